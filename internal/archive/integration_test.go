//go:build integration

package archive

import (
	"context"
	"io"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sightgate/sightgate/pkg/testutil"
)

var testMinio struct {
	container *testutil.MinioContainer
	store     *Store
}

func TestMain(m *testing.M) {
	if !testutil.IsDockerAvailable() {
		os.Exit(0) // Skip if Docker is not available
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	mc, err := testutil.NewMinioContainer(ctx, testutil.DefaultMinioConfig())
	if err != nil {
		panic("failed to start minio container: " + err.Error())
	}
	testMinio.container = mc

	store, err := NewStore(Config{
		Endpoint:        mc.Endpoint,
		Bucket:          "sightgate-test",
		Region:          "us-east-1",
		AccessKeyID:     mc.AccessKeyID,
		SecretAccessKey: mc.SecretAccessKey,
		UseSSL:          false,
	}, zerolog.Nop())
	if err != nil {
		mc.Terminate(ctx)
		panic("failed to create archive store: " + err.Error())
	}
	if err := store.EnsureBucket(ctx); err != nil {
		mc.Terminate(ctx)
		panic("failed to ensure bucket: " + err.Error())
	}
	testMinio.store = store

	code := m.Run()

	mc.Terminate(ctx)
	os.Exit(code)
}

func TestStore_PutAndGet(t *testing.T) {
	ctx := context.Background()
	id := uuid.New().String()
	doc := []byte(`{"data":{"data":{"type":"eclecticiq-sighting","value":"1.2.3.4"}}}`)

	path, err := testMinio.store.Put(ctx, id, doc)
	require.NoError(t, err)
	assert.Equal(t, "sightings/"+id+".json", path)

	rc, err := testMinio.store.Get(ctx, id)
	require.NoError(t, err)
	defer rc.Close()

	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, doc, got)
}

func TestStore_GetMissing(t *testing.T) {
	_, err := testMinio.store.Get(context.Background(), uuid.New().String())
	assert.Error(t, err)
}

func TestStore_PresignedURL(t *testing.T) {
	ctx := context.Background()
	id := uuid.New().String()

	_, err := testMinio.store.Put(ctx, id, []byte(`{"data":{}}`))
	require.NoError(t, err)

	url, err := testMinio.store.PresignedURL(ctx, id, time.Minute)
	require.NoError(t, err)

	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestStore_Delete(t *testing.T) {
	ctx := context.Background()
	id := uuid.New().String()

	_, err := testMinio.store.Put(ctx, id, []byte(`{"data":{}}`))
	require.NoError(t, err)

	require.NoError(t, testMinio.store.Delete(ctx, id))

	_, err = testMinio.store.Get(ctx, id)
	assert.Error(t, err)
}

func TestStore_HealthCheck(t *testing.T) {
	assert.NoError(t, testMinio.store.HealthCheck(context.Background()))
}
