package sqlite_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cosmoos/cosmo-go/pkg/storage/sqlite"
	"github.com/cosmoos/cosmo-go/pkg/storage/storagetest"
)

func setupSQLiteTest(t *testing.T) *sqlite.Client {
	t.Helper()
	client, err := sqlite.NewClient(&sqlite.Config{
		DBPath:    filepath.Join(t.TempDir(), "nested", "cosmo.db"),
		TableName: "test_records",
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestSQLiteClient(t *testing.T) {
	storagetest.RunRecordStoreTests(t, setupSQLiteTest(t))
}

func TestSQLiteClient_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cosmo.db")

	first, err := sqlite.NewClient(&sqlite.Config{DBPath: path})
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := sqlite.NewClient(&sqlite.Config{DBPath: path})
	require.NoError(t, err, "table creation is idempotent")
	require.NoError(t, second.Close())
}
