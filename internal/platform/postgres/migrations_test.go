package postgres_test

import (
	"context"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/songcraft/songcraft-api/internal/platform/postgres"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationFiles(t *testing.T) {
	files, err := postgres.MigrationFiles()
	require.NoError(t, err)
	require.NotEmpty(t, files)
	require.Len(t, files, 2)
	assert.Equal(t, "00001_create_songs.sql", files[0])
	assert.Equal(t, "00002_add_video_job.sql", files[1])
	for _, name := range files {
		assert.True(t, strings.HasSuffix(name, ".sql"), name)
	}
}

func TestMigrate_UnknownCommand(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	err = postgres.Migrate(context.Background(), db, "sideways", nil)
	assert.ErrorIs(t, err, postgres.ErrUnknownMigrationCommand)
}
