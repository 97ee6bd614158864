//go:build integration

package journal

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sightgate/sightgate/pkg/testutil"
)

// testPG holds the shared postgres container for tests.
var testPG struct {
	container *testutil.PostgresContainer
	journal   *PostgresJournal
}

func TestMain(m *testing.M) {
	if !testutil.IsDockerAvailable() {
		os.Exit(0) // Skip if Docker is not available
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	pg, err := testutil.NewPostgresContainer(ctx, testutil.DefaultPostgresConfig())
	if err != nil {
		panic("failed to start postgres container: " + err.Error())
	}
	testPG.container = pg

	j, err := NewPostgres(ctx, PostgresConfig{URL: pg.ConnStr, MaxConns: 5})
	if err != nil {
		pg.Terminate(ctx)
		panic("failed to create postgres journal: " + err.Error())
	}
	testPG.journal = j

	code := m.Run()

	j.Close()
	pg.Terminate(ctx)
	os.Exit(code)
}

func TestPostgresJournal_RecordAndGet(t *testing.T) {
	ctx := context.Background()
	j := testPG.journal

	entry := &Entry{
		ID:             uuid.New().String(),
		SightingValue:  "evil.example.com",
		SightingTitle:  "Malicious domain",
		SightingType:   "domain",
		Outcome:        OutcomeDelivered,
		UpstreamStatus: 201,
		EntityID:       "entity-7",
		Duration:       800 * time.Millisecond,
	}
	require.NoError(t, j.Record(ctx, entry))

	got, err := j.Get(ctx, entry.ID)
	require.NoError(t, err)

	assert.Equal(t, entry.SightingValue, got.SightingValue)
	assert.Equal(t, entry.Outcome, got.Outcome)
	assert.Equal(t, entry.UpstreamStatus, got.UpstreamStatus)
	assert.Equal(t, entry.EntityID, got.EntityID)
	assert.Equal(t, entry.Duration, got.Duration)
}

func TestPostgresJournal_GetNotFound(t *testing.T) {
	_, err := testPG.journal.Get(context.Background(), uuid.New().String())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPostgresJournal_List(t *testing.T) {
	ctx := context.Background()
	j := testPG.journal

	base := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	ids := make([]string, 3)
	for i := range ids {
		ids[i] = uuid.New().String()
		require.NoError(t, j.Record(ctx, &Entry{
			ID:            ids[i],
			SightingValue: "10.0.0.1",
			SightingTitle: "Scanner",
			SightingType:  "ip",
			Outcome:       OutcomeFailed,
			Error:         "connection refused",
			CreatedAt:     base.Add(time.Duration(i) * time.Minute),
		}))
	}

	entries, err := j.List(ctx, 100)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(entries), 3)

	// Newest first
	for i := 1; i < len(entries); i++ {
		assert.False(t, entries[i-1].CreatedAt.Before(entries[i].CreatedAt))
	}
}

func TestPostgresJournal_Health(t *testing.T) {
	assert.NoError(t, testPG.journal.Health(context.Background()))
}
