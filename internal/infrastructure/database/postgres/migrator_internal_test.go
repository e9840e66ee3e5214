package postgres

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/turtacn/TradeLink-Intelligence/internal/config"
	"github.com/turtacn/TradeLink-Intelligence/pkg/errors"
)

func TestSourceURL(t *testing.T) {
	abs, _ := filepath.Abs("migrations")
	assert.Equal(t, "file://"+filepath.ToSlash(abs), sourceURL(""))
	assert.Equal(t, "file:///srv/migrations", sourceURL("/srv/migrations"))
	assert.Equal(t, "s3://bucket/migrations", sourceURL("s3://bucket/migrations"))
}

func TestNewMigrator_UsesConnectionURL(t *testing.T) {
	cfg := config.DatabaseConfig{Host: "db", Port: 5432, User: "u", Password: "p", DBName: "trade", MigrationPath: "/srv/migrations"}
	m := NewMigrator(cfg)
	assert.Equal(t, buildDSN(cfg), m.dbURL)
	assert.Equal(t, "file:///srv/migrations", m.source)
}

func TestMigrator_DownRejectsNonPositiveSteps(t *testing.T) {
	err := NewMigratorFromURL("postgres://localhost/none", "/tmp").Down(0)
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidation))
}

//Personal.AI order the ending
