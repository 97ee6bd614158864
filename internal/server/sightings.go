package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/sightgate/sightgate/internal/credentials"
	"github.com/sightgate/sightgate/internal/eiq"
	"github.com/sightgate/sightgate/internal/events"
	"github.com/sightgate/sightgate/internal/journal"
	"github.com/sightgate/sightgate/internal/sighting"
	"github.com/sightgate/sightgate/pkg/log"
	"github.com/sightgate/sightgate/pkg/metrics"
)

// SecretLister lists stored secrets from the platform secret store.
type SecretLister interface {
	List(ctx context.Context) ([]credentials.SecretRecord, error)
}

// EntityCreator delivers sighting entity documents upstream.
type EntityCreator interface {
	CreateEntity(ctx context.Context, req eiq.CreateEntityRequest) (*eiq.CreateResult, error)
	EntityURL(entityID string) string
}

// DocumentArchiver stores delivered entity documents.
type DocumentArchiver interface {
	Put(ctx context.Context, submissionID string, doc []byte) (string, error)
	PresignedURL(ctx context.Context, submissionID string, expires time.Duration) (string, error)
}

// SightingDeps wires the submission pipeline into the handler. Archiver,
// Publisher, and Metrics are optional.
type SightingDeps struct {
	Secrets       SecretLister
	Resolver      *credentials.Resolver
	Platform      EntityCreator
	Journal       journal.Journal
	JournalDriver string
	Publisher     events.Publisher
	Archiver      DocumentArchiver
	Metrics       *metrics.GatewayMetrics
}

// SightingHandler handles sighting submissions and journal lookups.
type SightingHandler struct {
	secrets       SecretLister
	resolver      *credentials.Resolver
	platform      EntityCreator
	journal       journal.Journal
	journalDriver string
	publisher     events.Publisher
	archiver      DocumentArchiver
	metrics       *metrics.GatewayMetrics
	logger        zerolog.Logger

	now func() time.Time
}

// NewSightingHandler creates a new sighting handler.
func NewSightingHandler(deps SightingDeps, logger zerolog.Logger) *SightingHandler {
	publisher := deps.Publisher
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}

	return &SightingHandler{
		secrets:       deps.Secrets,
		resolver:      deps.Resolver,
		platform:      deps.Platform,
		journal:       deps.Journal,
		journalDriver: deps.JournalDriver,
		publisher:     publisher,
		archiver:      deps.Archiver,
		metrics:       deps.Metrics,
		logger:        logger.With().Str("component", "sighting_handler").Logger(),
		now:           time.Now,
	}
}

// RegisterRoutes registers the handler's routes on the given mux.
func (h *SightingHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/sightings", h.HandleSubmit)

	// Compatibility path for callers of the original integration.
	mux.HandleFunc("POST /services/create_sighting", h.HandleSubmit)

	mux.HandleFunc("GET /api/v1/journal", h.HandleJournalList)
	mux.HandleFunc("GET /api/v1/journal/{id}", h.HandleJournalGet)
	mux.HandleFunc("GET /api/v1/journal/{id}/document", h.HandleJournalDocument)
	mux.HandleFunc("GET /api/v1/credentials/check", h.HandleCredentialsCheck)
}

// Ready reports whether the handler can accept submissions.
func (h *SightingHandler) Ready(ctx context.Context) error {
	if h.secrets == nil || h.resolver == nil || h.platform == nil {
		return errors.New("submission pipeline not configured")
	}
	if h.journal == nil {
		return errors.New("journal not configured")
	}
	return nil
}

// SubmitRequest is the body of a sighting submission. The first six fields
// are the user-entered form; the rest are optional context tokens from the
// calling environment.
type SubmitRequest struct {
	SightingValue   string `json:"sighting_value"`
	SightingDesc    string `json:"sighting_desc"`
	SightingTitle   string `json:"sighting_title"`
	SightingTags    string `json:"sighting_tags"`
	ConfidenceLevel string `json:"confidence_level"`
	SightingType    string `json:"sighting_type"`
	Index           string `json:"index"`
	Host            string `json:"host"`
	Source          string `json:"source"`
	Sourcetype      string `json:"sourcetype"`
	Time            string `json:"time"`
	Field           string `json:"field"`
}

// SubmitResponse is the body returned for a submission.
type SubmitResponse struct {
	Status         string `json:"status"`
	Message        string `json:"message"`
	SubmissionID   string `json:"submission_id"`
	EntityID       string `json:"entity_id,omitempty"`
	EntityURL      string `json:"entity_url,omitempty"`
	UpstreamStatus int    `json:"upstream_status,omitempty"`
}

// HandleSubmit runs the submission pipeline: resolve credentials, compose
// the payload, build the entity document, deliver it, journal the outcome,
// and publish an event.
func (h *SightingHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	submissionID := uuid.New().String()
	ctx := log.ContextWithSubmissionID(r.Context(), submissionID)
	logger := h.logger.With().Str("submission_id", submissionID).Logger()

	var req SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, SubmitResponse{
			Status:       "error",
			Message:      "invalid request body",
			SubmissionID: submissionID,
		})
		return
	}

	if req.SightingValue == "" {
		writeJSON(w, http.StatusBadRequest, SubmitResponse{
			Status:       "error",
			Message:      "sighting_value is required",
			SubmissionID: submissionID,
		})
		return
	}

	start := h.now()

	records, err := h.secrets.List(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("failed to list stored secrets")
		h.recordSecretStoreRequest("error")
		h.finishFailed(ctx, submissionID, req, 0, "secret store unreachable", h.now().Sub(start))
		writeJSON(w, http.StatusBadGateway, SubmitResponse{
			Status:       "error",
			Message:      "secret store unreachable",
			SubmissionID: submissionID,
		})
		return
	}
	h.recordSecretStoreRequest("ok")

	creds, rerr := h.resolver.Resolve(records)
	if rerr != nil {
		// Malformed secrets are terminal per role but never abort the
		// submission outright.
		logger.Warn().Err(rerr).Msg("credential resolution reported malformed secrets")
	}
	h.recordResolution(creds)

	if credentials.Primary(creds) == "" {
		logger.Warn().Msg("no primary credential resolved")
		h.finishFailed(ctx, submissionID, req, 0, "credentials not found", h.now().Sub(start))
		writeJSON(w, http.StatusUnauthorized, SubmitResponse{
			Status:       "error",
			Message:      "credentials not found",
			SubmissionID: submissionID,
		})
		return
	}

	payload := sighting.Compose(sighting.Form{
		Value:           req.SightingValue,
		Description:     req.SightingDesc,
		Title:           req.SightingTitle,
		Tags:            req.SightingTags,
		Type:            req.SightingType,
		ConfidenceLevel: req.ConfidenceLevel,
	}, sighting.ContextTokens{
		Index:      req.Index,
		Host:       req.Host,
		Source:     req.Source,
		Sourcetype: req.Sourcetype,
		Time:       req.Time,
		Field:      req.Field,
	}, creds)

	entity := sighting.BuildEntity(payload, h.now())

	result, err := h.platform.CreateEntity(ctx, eiq.CreateEntityRequest{
		APIKey:        payload.Creds,
		ProxyPassword: payload.ProxyPass,
		Entity:        entity,
	})
	duration := h.now().Sub(start)

	if err != nil {
		var terr *eiq.TransportError
		if errors.As(err, &terr) {
			h.recordPlatformRequest(terr.StatusCode, duration)

			status := http.StatusBadGateway
			outcome := journal.OutcomeFailed
			if terr.StatusCode > 0 {
				status = terr.StatusCode
				outcome = journal.OutcomeRejected
			}

			h.journalOutcome(ctx, &journal.Entry{
				ID:             submissionID,
				SightingValue:  req.SightingValue,
				SightingTitle:  req.SightingTitle,
				SightingType:   req.SightingType,
				Outcome:        outcome,
				UpstreamStatus: terr.StatusCode,
				Error:          terr.Error(),
				Duration:       duration,
			})
			h.recordSubmission(outcome, duration)
			h.publisher.PublishFailed(events.SubmissionPayload{
				SubmissionID:   submissionID,
				SightingValue:  req.SightingValue,
				SightingTitle:  req.SightingTitle,
				SightingType:   req.SightingType,
				UpstreamStatus: terr.StatusCode,
				Error:          terr.Error(),
			})

			writeJSON(w, status, SubmitResponse{
				Status:         "error",
				Message:        terr.Error(),
				SubmissionID:   submissionID,
				UpstreamStatus: terr.StatusCode,
			})
			return
		}

		logger.Error().Err(err).Msg("failed to deliver sighting")
		h.finishFailed(ctx, submissionID, req, 0, err.Error(), duration)
		writeJSON(w, http.StatusInternalServerError, SubmitResponse{
			Status:       "error",
			Message:      "failed to deliver sighting",
			SubmissionID: submissionID,
		})
		return
	}

	h.recordPlatformRequest(result.StatusCode, duration)

	h.journalOutcome(ctx, &journal.Entry{
		ID:             submissionID,
		SightingValue:  req.SightingValue,
		SightingTitle:  req.SightingTitle,
		SightingType:   req.SightingType,
		Outcome:        journal.OutcomeDelivered,
		UpstreamStatus: result.StatusCode,
		EntityID:       result.EntityID,
		Duration:       duration,
	})
	h.recordSubmission(journal.OutcomeDelivered, duration)

	h.archiveDocument(ctx, submissionID, entity, logger)

	entityURL := h.platform.EntityURL(result.EntityID)
	h.publisher.PublishSubmitted(events.SubmissionPayload{
		SubmissionID:   submissionID,
		SightingValue:  req.SightingValue,
		SightingTitle:  req.SightingTitle,
		SightingType:   req.SightingType,
		UpstreamStatus: result.StatusCode,
		EntityID:       result.EntityID,
		EntityURL:      entityURL,
	})

	logger.Info().
		Str("entity_id", result.EntityID).
		Int("upstream_status", result.StatusCode).
		Dur("duration", duration).
		Msg("sighting created")

	writeJSON(w, http.StatusCreated, SubmitResponse{
		Status:         "success",
		Message:        "sighting created",
		SubmissionID:   submissionID,
		EntityID:       result.EntityID,
		EntityURL:      entityURL,
		UpstreamStatus: result.StatusCode,
	})
}

// JournalListResponse is the body returned for a journal listing.
type JournalListResponse struct {
	Entries []*journal.Entry `json:"entries"`
}

// HandleJournalList returns recent submissions, newest first.
func (h *SightingHandler) HandleJournalList(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid limit"})
			return
		}
		if n > 500 {
			n = 500
		}
		limit = n
	}

	entries, err := h.journal.List(r.Context(), limit)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to list journal entries")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list journal entries"})
		return
	}

	if entries == nil {
		entries = []*journal.Entry{}
	}
	writeJSON(w, http.StatusOK, JournalListResponse{Entries: entries})
}

// HandleJournalGet returns a single journal entry by submission ID.
func (h *SightingHandler) HandleJournalGet(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	entry, err := h.journal.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, journal.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "submission not found"})
			return
		}
		h.logger.Error().Err(err).Str("submission_id", id).Msg("failed to get journal entry")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get journal entry"})
		return
	}

	writeJSON(w, http.StatusOK, entry)
}

// HandleJournalDocument returns a presigned link to the archived entity
// document of a delivered submission.
func (h *SightingHandler) HandleJournalDocument(w http.ResponseWriter, r *http.Request) {
	if h.archiver == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "archive not configured"})
		return
	}

	id := r.PathValue("id")

	url, err := h.archiver.PresignedURL(r.Context(), id, time.Hour)
	if err != nil {
		h.logger.Error().Err(err).Str("submission_id", id).Msg("failed to presign archived document")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to presign archived document"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"url": url})
}

// CredentialsCheckResponse reports which credential roles currently resolve.
type CredentialsCheckResponse struct {
	Primary bool     `json:"primary"`
	Proxy   bool     `json:"proxy"`
	Errors  []string `json:"errors,omitempty"`
}

// HandleCredentialsCheck resolves stored credentials without submitting
// anything. Secret values are never returned.
func (h *SightingHandler) HandleCredentialsCheck(w http.ResponseWriter, r *http.Request) {
	records, err := h.secrets.List(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to list stored secrets")
		h.recordSecretStoreRequest("error")
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "secret store unreachable"})
		return
	}
	h.recordSecretStoreRequest("ok")

	creds, rerr := h.resolver.Resolve(records)
	h.recordResolution(creds)

	resp := CredentialsCheckResponse{
		Primary: credentials.Primary(creds) != "",
		Proxy:   credentials.ProxyPassword(creds) != "",
	}
	if rerr != nil {
		var merr *credentials.MalformedSecretError
		for _, e := range unwrapJoined(rerr) {
			if errors.As(e, &merr) {
				resp.Errors = append(resp.Errors, merr.Error())
			}
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// finishFailed journals, counts, and publishes a submission that never
// reached the platform.
func (h *SightingHandler) finishFailed(ctx context.Context, submissionID string, req SubmitRequest, upstreamStatus int, errText string, duration time.Duration) {
	h.journalOutcome(ctx, &journal.Entry{
		ID:             submissionID,
		SightingValue:  req.SightingValue,
		SightingTitle:  req.SightingTitle,
		SightingType:   req.SightingType,
		Outcome:        journal.OutcomeFailed,
		UpstreamStatus: upstreamStatus,
		Error:          errText,
		Duration:       duration,
	})
	h.recordSubmission(journal.OutcomeFailed, duration)
	h.publisher.PublishFailed(events.SubmissionPayload{
		SubmissionID:   submissionID,
		SightingValue:  req.SightingValue,
		SightingTitle:  req.SightingTitle,
		SightingType:   req.SightingType,
		UpstreamStatus: upstreamStatus,
		Error:          errText,
	})
}

// journalOutcome records the entry, logging write failures without failing
// the submission.
func (h *SightingHandler) journalOutcome(ctx context.Context, entry *journal.Entry) {
	if h.journal == nil {
		return
	}

	err := h.journal.Record(ctx, entry)
	if h.metrics != nil {
		h.metrics.RecordJournalWrite(h.journalDriver, err)
	}
	if err != nil {
		h.logger.Error().Err(err).Str("submission_id", entry.ID).Msg("failed to journal submission")
	}
}

// archiveDocument stores the delivered entity JSON; failures are logged
// only, the delivery already succeeded.
func (h *SightingHandler) archiveDocument(ctx context.Context, submissionID string, entity sighting.Entity, logger zerolog.Logger) {
	if h.archiver == nil {
		return
	}

	doc, err := json.Marshal(entity)
	if err != nil {
		logger.Error().Err(err).Msg("failed to marshal entity document for archive")
		return
	}

	if _, err := h.archiver.Put(ctx, submissionID, doc); err != nil {
		logger.Error().Err(err).Msg("failed to archive entity document")
		if h.metrics != nil {
			h.metrics.RecordArchiveUpload("error")
		}
		return
	}
	if h.metrics != nil {
		h.metrics.RecordArchiveUpload("ok")
	}
}

func (h *SightingHandler) recordSubmission(outcome string, duration time.Duration) {
	if h.metrics == nil {
		return
	}
	h.metrics.RecordSubmission(outcome, duration.Seconds())
}

func (h *SightingHandler) recordPlatformRequest(statusCode int, duration time.Duration) {
	if h.metrics == nil {
		return
	}
	status := "error"
	if statusCode > 0 {
		status = strconv.Itoa(statusCode)
	}
	h.metrics.RecordPlatformRequest(status, duration.Seconds())
}

func (h *SightingHandler) recordResolution(creds []credentials.Resolved) {
	if h.metrics == nil {
		return
	}

	primaryResult, proxyResult := "missing", "missing"
	if credentials.Primary(creds) != "" {
		primaryResult = "resolved"
	}
	if credentials.ProxyPassword(creds) != "" {
		proxyResult = "resolved"
	}
	h.metrics.RecordCredentialResolution(string(credentials.RolePrimary), primaryResult)
	h.metrics.RecordCredentialResolution(string(credentials.RoleProxy), proxyResult)
}

func (h *SightingHandler) recordSecretStoreRequest(status string) {
	if h.metrics == nil {
		return
	}
	h.metrics.RecordSecretStoreRequest(status)
}

// unwrapJoined flattens an error produced by errors.Join. A non-joined error
// comes back as a single-element slice.
func unwrapJoined(err error) []error {
	if u, ok := err.(interface{ Unwrap() []error }); ok {
		return u.Unwrap()
	}
	return []error{err}
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		// Headers are already written; nothing left to do.
		_ = err
	}
}
