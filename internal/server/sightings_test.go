package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sightgate/sightgate/internal/credentials"
	"github.com/sightgate/sightgate/internal/eiq"
	"github.com/sightgate/sightgate/internal/events"
	"github.com/sightgate/sightgate/internal/journal"
)

const testAppScope = "TA-eclecticiq"

// mockSecrets implements SecretLister for testing.
type mockSecrets struct {
	records []credentials.SecretRecord
	err     error
}

func (m *mockSecrets) List(ctx context.Context) ([]credentials.SecretRecord, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.records, nil
}

// mockPlatform implements EntityCreator for testing.
type mockPlatform struct {
	result   *eiq.CreateResult
	err      error
	requests []eiq.CreateEntityRequest
}

func (m *mockPlatform) CreateEntity(ctx context.Context, req eiq.CreateEntityRequest) (*eiq.CreateResult, error) {
	m.requests = append(m.requests, req)
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

func (m *mockPlatform) EntityURL(entityID string) string {
	return "https://eiq.example.com/entities/" + entityID
}

// memJournal implements journal.Journal in memory for testing.
type memJournal struct {
	entries []*journal.Entry
	err     error
}

func (m *memJournal) Record(ctx context.Context, entry *journal.Entry) error {
	if m.err != nil {
		return m.err
	}
	m.entries = append(m.entries, entry)
	return nil
}

func (m *memJournal) Get(ctx context.Context, id string) (*journal.Entry, error) {
	for _, e := range m.entries {
		if e.ID == id {
			return e, nil
		}
	}
	return nil, journal.ErrNotFound
}

func (m *memJournal) List(ctx context.Context, limit int) ([]*journal.Entry, error) {
	if limit > len(m.entries) {
		limit = len(m.entries)
	}
	return m.entries[:limit], nil
}

func (m *memJournal) Close() error { return nil }

// mockPublisher implements events.Publisher for testing.
type mockPublisher struct {
	submitted []events.SubmissionPayload
	failed    []events.SubmissionPayload
}

func (m *mockPublisher) PublishSubmitted(p events.SubmissionPayload) {
	m.submitted = append(m.submitted, p)
}

func (m *mockPublisher) PublishFailed(p events.SubmissionPayload) {
	m.failed = append(m.failed, p)
}

// mockArchiver implements DocumentArchiver for testing.
type mockArchiver struct {
	docs map[string][]byte
	err  error
}

func (m *mockArchiver) Put(ctx context.Context, submissionID string, doc []byte) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	if m.docs == nil {
		m.docs = map[string][]byte{}
	}
	m.docs[submissionID] = doc
	return "sightings/" + submissionID + ".json", nil
}

func (m *mockArchiver) PresignedURL(ctx context.Context, submissionID string, expires time.Duration) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	return "https://archive.example.com/sightings/" + submissionID + ".json", nil
}

func validSecretRecords() []credentials.SecretRecord {
	return []credentials.SecretRecord{
		{AppScope: testAppScope, Realm: "eiq_api", ClearPassword: `{"api_key":"key-123"}`},
		{AppScope: testAppScope, Realm: "proxy_settings", ClearPassword: `{"proxy_password":"pw-456"}`},
	}
}

type handlerFixture struct {
	handler   *SightingHandler
	secrets   *mockSecrets
	platform  *mockPlatform
	journal   *memJournal
	publisher *mockPublisher
	archiver  *mockArchiver
}

func newTestHandler(t *testing.T) *handlerFixture {
	t.Helper()

	f := &handlerFixture{
		secrets:   &mockSecrets{records: validSecretRecords()},
		platform:  &mockPlatform{result: &eiq.CreateResult{StatusCode: 201, EntityID: "entity-1"}},
		journal:   &memJournal{},
		publisher: &mockPublisher{},
		archiver:  &mockArchiver{},
	}

	f.handler = NewSightingHandler(SightingDeps{
		Secrets:       f.secrets,
		Resolver:      credentials.NewResolver(testAppScope, zerolog.Nop()),
		Platform:      f.platform,
		Journal:       f.journal,
		JournalDriver: journal.DriverSQLite,
		Publisher:     f.publisher,
		Archiver:      f.archiver,
	}, zerolog.Nop())

	return f
}

func submitRequest(t *testing.T, body any) *http.Request {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	return httptest.NewRequest(http.MethodPost, "/api/v1/sightings", bytes.NewReader(data))
}

func TestHandleSubmit_Success(t *testing.T) {
	f := newTestHandler(t)

	req := submitRequest(t, SubmitRequest{
		SightingValue:   "1.2.3.4",
		SightingDesc:    "observed on perimeter",
		SightingTitle:   "Sighting of 1.2.3.4",
		SightingTags:    "perimeter",
		ConfidenceLevel: "high",
		SightingType:    "ip",
		Index:           "main",
	})
	rec := httptest.NewRecorder()

	f.handler.HandleSubmit(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)

	var resp SubmitResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "success", resp.Status)
	assert.Equal(t, "entity-1", resp.EntityID)
	assert.Equal(t, "https://eiq.example.com/entities/entity-1", resp.EntityURL)
	assert.Equal(t, 201, resp.UpstreamStatus)
	assert.NotEmpty(t, resp.SubmissionID)

	// Delivery used the resolved credentials
	require.Len(t, f.platform.requests, 1)
	sent := f.platform.requests[0]
	assert.Equal(t, "key-123", sent.APIKey)
	assert.Equal(t, "pw-456", sent.ProxyPassword)
	assert.Equal(t, "1.2.3.4", sent.Entity.Data.Data.Value)
	assert.Equal(t, "eclecticiq-sighting", sent.Entity.Data.Data.Type)
	assert.Equal(t, []string{"perimeter"}, sent.Entity.Data.Meta.Tags)

	// Outcome journaled
	require.Len(t, f.journal.entries, 1)
	entry := f.journal.entries[0]
	assert.Equal(t, resp.SubmissionID, entry.ID)
	assert.Equal(t, journal.OutcomeDelivered, entry.Outcome)
	assert.Equal(t, "entity-1", entry.EntityID)
	assert.Equal(t, 201, entry.UpstreamStatus)

	// Event published, document archived
	require.Len(t, f.publisher.submitted, 1)
	assert.Equal(t, "entity-1", f.publisher.submitted[0].EntityID)
	assert.Empty(t, f.publisher.failed)
	assert.Contains(t, f.archiver.docs, resp.SubmissionID)
}

func TestHandleSubmit_InvalidBody(t *testing.T) {
	f := newTestHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sightings", bytes.NewReader([]byte("not json")))
	rec := httptest.NewRecorder()

	f.handler.HandleSubmit(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, f.journal.entries)
}

func TestHandleSubmit_MissingValue(t *testing.T) {
	f := newTestHandler(t)

	req := submitRequest(t, SubmitRequest{SightingTitle: "no value"})
	rec := httptest.NewRecorder()

	f.handler.HandleSubmit(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, f.platform.requests)
}

func TestHandleSubmit_CredentialsNotFound(t *testing.T) {
	f := newTestHandler(t)
	f.secrets.records = []credentials.SecretRecord{
		{AppScope: "other_app", Realm: "eiq_api", ClearPassword: `{"api_key":"foreign"}`},
	}

	req := submitRequest(t, SubmitRequest{SightingValue: "1.2.3.4"})
	rec := httptest.NewRecorder()

	f.handler.HandleSubmit(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	var resp SubmitResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "credentials not found", resp.Message)

	require.Len(t, f.journal.entries, 1)
	assert.Equal(t, journal.OutcomeFailed, f.journal.entries[0].Outcome)
	require.Len(t, f.publisher.failed, 1)
	assert.Empty(t, f.platform.requests)
}

func TestHandleSubmit_MalformedPrimaryIsTerminal(t *testing.T) {
	f := newTestHandler(t)
	// First primary candidate is malformed and terminal for that role.
	f.secrets.records = []credentials.SecretRecord{
		{AppScope: testAppScope, Realm: "eiq_api", ClearPassword: `{"wrong_field":"x"}`},
		{AppScope: testAppScope, Realm: "eiq_api_backup", ClearPassword: `{"api_key":"never-used"}`},
	}

	req := submitRequest(t, SubmitRequest{SightingValue: "1.2.3.4"})
	rec := httptest.NewRecorder()

	f.handler.HandleSubmit(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, f.platform.requests)
}

func TestHandleSubmit_SecretStoreError(t *testing.T) {
	f := newTestHandler(t)
	f.secrets.err = errors.New("connection refused")

	req := submitRequest(t, SubmitRequest{SightingValue: "1.2.3.4"})
	rec := httptest.NewRecorder()

	f.handler.HandleSubmit(rec, req)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	require.Len(t, f.journal.entries, 1)
	assert.Equal(t, journal.OutcomeFailed, f.journal.entries[0].Outcome)
}

func TestHandleSubmit_UpstreamRejected(t *testing.T) {
	f := newTestHandler(t)
	f.platform.err = &eiq.TransportError{StatusCode: 400, Body: "invalid entity"}

	req := submitRequest(t, SubmitRequest{SightingValue: "1.2.3.4"})
	rec := httptest.NewRecorder()

	f.handler.HandleSubmit(rec, req)

	// Upstream status is surfaced to the caller
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var resp SubmitResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 400, resp.UpstreamStatus)

	require.Len(t, f.journal.entries, 1)
	assert.Equal(t, journal.OutcomeRejected, f.journal.entries[0].Outcome)
	assert.Equal(t, 400, f.journal.entries[0].UpstreamStatus)
	require.Len(t, f.publisher.failed, 1)
	assert.Empty(t, f.archiver.docs)
}

func TestHandleSubmit_TransportFailure(t *testing.T) {
	f := newTestHandler(t)
	f.platform.err = &eiq.TransportError{Err: errors.New("dial tcp: timeout")}

	req := submitRequest(t, SubmitRequest{SightingValue: "1.2.3.4"})
	rec := httptest.NewRecorder()

	f.handler.HandleSubmit(rec, req)

	assert.Equal(t, http.StatusBadGateway, rec.Code)

	require.Len(t, f.journal.entries, 1)
	assert.Equal(t, journal.OutcomeFailed, f.journal.entries[0].Outcome)
	assert.Equal(t, 0, f.journal.entries[0].UpstreamStatus)
}

func TestHandleSubmit_JournalWriteFailureDoesNotFailSubmission(t *testing.T) {
	f := newTestHandler(t)
	f.journal.err = errors.New("disk full")

	req := submitRequest(t, SubmitRequest{SightingValue: "1.2.3.4"})
	rec := httptest.NewRecorder()

	f.handler.HandleSubmit(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestHandleJournalList(t *testing.T) {
	f := newTestHandler(t)
	f.journal.entries = []*journal.Entry{
		{ID: "sub-2", SightingValue: "5.6.7.8", Outcome: journal.OutcomeDelivered},
		{ID: "sub-1", SightingValue: "1.2.3.4", Outcome: journal.OutcomeFailed},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/journal?limit=1", nil)
	rec := httptest.NewRecorder()

	f.handler.HandleJournalList(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp JournalListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Entries, 1)
	assert.Equal(t, "sub-2", resp.Entries[0].ID)
}

func TestHandleJournalList_InvalidLimit(t *testing.T) {
	f := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/journal?limit=bogus", nil)
	rec := httptest.NewRecorder()

	f.handler.HandleJournalList(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleJournalGet(t *testing.T) {
	f := newTestHandler(t)
	f.journal.entries = []*journal.Entry{
		{ID: "sub-1", SightingValue: "1.2.3.4", Outcome: journal.OutcomeDelivered, EntityID: "entity-1"},
	}

	mux := http.NewServeMux()
	f.handler.RegisterRoutes(mux)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/journal/sub-1", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var entry journal.Entry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entry))
	assert.Equal(t, "entity-1", entry.EntityID)
}

func TestHandleJournalGet_NotFound(t *testing.T) {
	f := newTestHandler(t)

	mux := http.NewServeMux()
	f.handler.RegisterRoutes(mux)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/journal/missing", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleJournalDocument(t *testing.T) {
	f := newTestHandler(t)

	mux := http.NewServeMux()
	f.handler.RegisterRoutes(mux)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/journal/sub-1/document", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "https://archive.example.com/sightings/sub-1.json", resp["url"])
}

func TestHandleJournalDocument_ArchiveNotConfigured(t *testing.T) {
	f := newTestHandler(t)
	f.handler.archiver = nil

	mux := http.NewServeMux()
	f.handler.RegisterRoutes(mux)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/journal/sub-1/document", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleCredentialsCheck(t *testing.T) {
	f := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/credentials/check", nil)
	rec := httptest.NewRecorder()

	f.handler.HandleCredentialsCheck(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp CredentialsCheckResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Primary)
	assert.True(t, resp.Proxy)
	assert.Empty(t, resp.Errors)
}

func TestHandleCredentialsCheck_MalformedSecret(t *testing.T) {
	f := newTestHandler(t)
	f.secrets.records = []credentials.SecretRecord{
		{AppScope: testAppScope, Realm: "eiq_api", ClearPassword: `not json`},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/credentials/check", nil)
	rec := httptest.NewRecorder()

	f.handler.HandleCredentialsCheck(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp CredentialsCheckResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Primary)
	require.Len(t, resp.Errors, 1)
	assert.Contains(t, resp.Errors[0], "eiq_api")
}

func TestCompatPath(t *testing.T) {
	f := newTestHandler(t)

	mux := http.NewServeMux()
	f.handler.RegisterRoutes(mux)

	data, err := json.Marshal(SubmitRequest{SightingValue: "1.2.3.4"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/services/create_sighting", bytes.NewReader(data))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/api/v1/journal", "/api/v1/journal"},
		{"/api/v1/journal/42", "/api/v1/journal/:id"},
		{"/api/v1/journal/550e8400-e29b-41d4-a716-446655440000", "/api/v1/journal/:id"},
		{"/api/v1/journal/550e8400-e29b-41d4-a716-446655440000/document", "/api/v1/journal/:id/document"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, normalizePath(tt.path), tt.path)
	}
}
