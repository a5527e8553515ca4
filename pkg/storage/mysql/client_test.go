package mysql_test

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/joho/godotenv"

	"github.com/cosmoos/cosmo-go/pkg/storage/mysql"
	"github.com/cosmoos/cosmo-go/pkg/storage/storagetest"
)

func setupMySQLTest(t *testing.T) *mysql.Client {
	_ = godotenv.Load(filepath.Join("..", "..", "..", ".env"))

	host := os.Getenv("MYSQL_HOST")
	if host == "" {
		host = "127.0.0.1"
	}

	portStr := os.Getenv("MYSQL_PORT")
	if portStr == "" {
		portStr = "3306"
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		t.Skipf("Skipping MySQL test: invalid MYSQL_PORT: %s", portStr)
	}

	user := os.Getenv("MYSQL_USER")
	if user == "" {
		user = "root"
	}

	password := os.Getenv("MYSQL_PASSWORD")
	if password == "" {
		t.Skip("Skipping MySQL test: MYSQL_PASSWORD not set")
	}

	dbName := os.Getenv("MYSQL_DATABASE")
	if dbName == "" {
		dbName = "cosmo_test"
	}

	client, err := mysql.NewClient(&mysql.Config{
		Host:      host,
		Port:      port,
		User:      user,
		Password:  password,
		DBName:    dbName,
		TableName: "test_records",
	})
	if err != nil {
		t.Skipf("Skipping MySQL test: failed to connect: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestMySQLClient(t *testing.T) {
	storagetest.RunRecordStoreTests(t, setupMySQLTest(t))
}
