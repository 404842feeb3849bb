package db

import (
	"context"
	"io"
	"os"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func TestPostgresStore(t *testing.T) {
	connStr := os.Getenv("TEST_DATABASE_URL")
	if connStr == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	runStoreSuite(t, func(t *testing.T) Store {
		s, err := NewPostgresStore(connStr, logger)
		require.NoError(t, err)
		require.NoError(t, s.Migrate())

		_, err = s.db.ExecContext(context.Background(), "TRUNCATE cache_records, sync_metadata, sync_logs")
		require.NoError(t, err)

		t.Cleanup(func() { s.Close() })
		return s
	})
}
