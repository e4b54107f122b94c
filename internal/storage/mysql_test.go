package storage

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JamesPrial/bookstore-api/pkg/config"
)

// Integration tests run against a real MySQL when a DSN is provided:
//
//	BOOKSTORE_TEST_MYSQL_DSN="books:books@tcp(localhost:3306)/books_test" go test ./...
const mysqlDSNEnv = "BOOKSTORE_TEST_MYSQL_DSN"

func newTestMySQLBackend(t *testing.T) Backend {
	t.Helper()
	dsn := os.Getenv(mysqlDSNEnv)
	if dsn == "" {
		t.Skipf("set %s to run mysql integration tests", mysqlDSNEnv)
	}

	backend, err := NewMySQLBackend(context.Background(), config.MySQLSettings{DSN: dsn})
	require.NoError(t, err)
	t.Cleanup(func() {
		cleanupBooksTable(t, backend)
		backend.Close()
	})
	cleanupBooksTable(t, backend)
	return backend
}

func TestMySQLBackend_NoDSN(t *testing.T) {
	backend, err := NewMySQLBackend(context.Background(), config.MySQLSettings{})
	assert.Error(t, err)
	assert.Nil(t, backend)
	assert.Contains(t, err.Error(), "mysql dsn is required")
}

func TestMySQLBackend_InvalidDSN(t *testing.T) {
	backend, err := NewMySQLBackend(context.Background(), config.MySQLSettings{DSN: "not a dsn"})
	assert.Error(t, err)
	assert.Nil(t, backend)
}

func TestMySQLBackend_Name(t *testing.T) {
	backend := newTestMySQLBackend(t)
	assert.Equal(t, "mysql", backend.Name())
}

func TestMySQLBackend_Conformance(t *testing.T) {
	runBackendConformance(t, func(t *testing.T) Backend {
		return newTestMySQLBackend(t)
	})
}
