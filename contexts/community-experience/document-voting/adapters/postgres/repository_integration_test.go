//go:build integration

package postgresadapter

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"docvote/contexts/community-experience/document-voting/adapters/storetest"
	domainerrors "docvote/contexts/community-experience/document-voting/domain/errors"
	"docvote/contexts/community-experience/document-voting/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var testDB *gorm.DB

func TestMain(m *testing.M) {
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("docvote"),
		tcpostgres.WithUsername("docvote"),
		tcpostgres.WithPassword("docvote"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start postgres container: %v\n", err)
		os.Exit(1)
	}

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to get postgres connection string: %v\n", err)
		_ = container.Terminate(ctx)
		os.Exit(1)
	}
	testDB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open postgres: %v\n", err)
		_ = container.Terminate(ctx)
		os.Exit(1)
	}
	if err := NewRepository(testDB, nil).Migrate(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "failed to migrate: %v\n", err)
		_ = container.Terminate(ctx)
		os.Exit(1)
	}

	code := m.Run()

	_ = container.Terminate(ctx)
	os.Exit(code)
}

func setupRepository(t *testing.T) *Repository {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	require.NoError(t, testDB.Exec(
		"TRUNCATE document_votes, documents, document_voting_outbox, document_voting_event_dedup",
	).Error)
	return NewRepository(testDB, nil)
}

func TestRepositoryContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) storetest.Repository {
		return setupRepository(t)
	})
}

func TestOutboxLifecycle(t *testing.T) {
	repo := setupRepository(t)
	ctx := context.Background()
	occurred := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	envelope := ports.EventEnvelope{
		EventID:      "evt-1",
		EventType:    "document.vote_changed",
		PartitionKey: "doc-1",
		OccurredAt:   occurred,
		Data:         []byte(`{"document_id":"doc-1"}`),
	}
	require.NoError(t, repo.AppendOutbox(ctx, envelope))
	require.NoError(t, repo.AppendOutbox(ctx, envelope))

	changed := envelope
	changed.Data = []byte(`{"document_id":"doc-2"}`)
	assert.ErrorIs(t, repo.AppendOutbox(ctx, changed), domainerrors.ErrConflict)

	pending, err := repo.ListPendingOutbox(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "evt-1", pending[0].OutboxID)
	assert.Equal(t, "doc-1", pending[0].PartitionKey)

	require.NoError(t, repo.MarkOutboxPublished(ctx, "evt-1", occurred.Add(time.Second)))
	pending, err = repo.ListPendingOutbox(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)

	assert.ErrorIs(t, repo.MarkOutboxPublished(ctx, "missing", occurred), domainerrors.ErrConflict)
}

func TestReserveEvent(t *testing.T) {
	repo := setupRepository(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	expires := now.Add(time.Hour)

	duplicate, err := repo.ReserveEvent(ctx, "evt-1", "hash-a", now, expires)
	require.NoError(t, err)
	assert.False(t, duplicate)

	duplicate, err = repo.ReserveEvent(ctx, "evt-1", "hash-a", now.Add(time.Minute), expires)
	require.NoError(t, err)
	assert.True(t, duplicate)

	_, err = repo.ReserveEvent(ctx, "evt-1", "hash-b", now.Add(time.Minute), expires)
	assert.ErrorIs(t, err, domainerrors.ErrConflict)
}

func TestReserveEventTakesOverExpiredReservation(t *testing.T) {
	repo := setupRepository(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	_, err := repo.ReserveEvent(ctx, "evt-1", "hash-a", now, now.Add(time.Minute))
	require.NoError(t, err)

	later := now.Add(2 * time.Minute)
	duplicate, err := repo.ReserveEvent(ctx, "evt-1", "hash-b", later, later.Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, duplicate)

	duplicate, err = repo.ReserveEvent(ctx, "evt-1", "hash-b", later, later.Add(time.Hour))
	require.NoError(t, err)
	assert.True(t, duplicate)
}

func TestReleaseEventAllowsRedelivery(t *testing.T) {
	repo := setupRepository(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	_, err := repo.ReserveEvent(ctx, "evt-1", "hash-a", now, now.Add(time.Hour))
	require.NoError(t, err)
	require.NoError(t, repo.ReleaseEvent(ctx, "evt-1"))

	duplicate, err := repo.ReserveEvent(ctx, "evt-1", "hash-a", now, now.Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, duplicate)
}
