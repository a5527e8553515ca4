package core_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	cosmo "github.com/cosmoos/cosmo-go/pkg/core"
)

func TestErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{"ErrNotFound", cosmo.ErrNotFound, "record not found"},
		{"ErrInvalidConfig", cosmo.ErrInvalidConfig, "invalid configuration"},
		{"ErrConnectionFailed", cosmo.ErrConnectionFailed, "connection failed"},
		{"ErrInvalidInput", cosmo.ErrInvalidInput, "invalid input"},
		{"ErrStorageOperation", cosmo.ErrStorageOperation, "storage operation failed"},
		{"ErrUnknownDimension", cosmo.ErrUnknownDimension, "unknown dimension"},
		{"ErrNoSnapshot", cosmo.ErrNoSnapshot, "no snapshot available"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestCosmoError(t *testing.T) {
	err := cosmo.NewCosmoError("Refresh", cosmo.ErrUnknownDimension)
	assert.Equal(t, "cosmo: Refresh: unknown dimension", err.Error())
	assert.True(t, errors.Is(err, cosmo.ErrUnknownDimension))

	var cosmoErr *cosmo.CosmoError
	assert.True(t, errors.As(err, &cosmoErr))
	assert.Equal(t, "Refresh", cosmoErr.Op)

	assert.Nil(t, cosmo.NewCosmoError("Refresh", nil))
}
