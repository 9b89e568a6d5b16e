package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mail-expense-intake/internal/config"
	"mail-expense-intake/internal/model"
)

func TestInitSqliteMigrates(t *testing.T) {
	conn, err := Init(config.DatabaseConfig{Driver: "sqlite", Path: ":memory:"})
	require.NoError(t, err)

	for _, m := range model.All() {
		assert.True(t, conn.Migrator().HasTable(m), "missing table for %T", m)
	}
	assert.NoError(t, Ping(conn))
}

func TestInitRejectsUnknownDriver(t *testing.T) {
	_, err := Init(config.DatabaseConfig{Driver: "oracle"})
	assert.Error(t, err)
}
