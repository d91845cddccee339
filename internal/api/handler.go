package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/opensource-finance/heron/internal/alert"
	"github.com/opensource-finance/heron/internal/domain"
	"github.com/opensource-finance/heron/internal/ingest"
	"github.com/opensource-finance/heron/internal/rollup"
	"github.com/opensource-finance/heron/internal/scoring"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	defaultMaxUploadBytes = 32 << 20
	defaultUploadTTL      = 24 * time.Hour
	maxJSONBytes          = 8 << 20
)

// Handler holds dependencies for API handlers.
type Handler struct {
	cache    domain.Cache
	bus      domain.EventBus
	pipeline *ingest.Pipeline
	engine   *scoring.Engine
	version  string

	uploadTTL      time.Duration
	maxUploadBytes int64
	now            func() time.Time
}

// NewHandler creates a new API handler. cache and bus may be nil; uploads
// are then scored but not kept, and no events are published.
func NewHandler(cache domain.Cache, bus domain.EventBus, pipeline *ingest.Pipeline, engine *scoring.Engine, version string) *Handler {
	return &Handler{
		cache:          cache,
		bus:            bus,
		pipeline:       pipeline,
		engine:         engine,
		version:        version,
		uploadTTL:      defaultUploadTTL,
		maxUploadBytes: defaultMaxUploadBytes,
		now:            time.Now,
	}
}

// UploadResponse is the response for POST /uploads.
type UploadResponse struct {
	UploadID     string               `json:"uploadId"`
	FileName     string               `json:"fileName,omitempty"`
	RowsRead     int                  `json:"rowsRead"`
	RowsSkipped  int                  `json:"rowsSkipped"`
	Users        int                  `json:"users"`
	FlaggedUsers int                  `json:"flaggedUsers"`
	Stored       bool                 `json:"stored"`
	Profiles     []domain.UserProfile `json:"profiles"`
}

// UsersResponse is the response for GET /uploads/{id}.
type UsersResponse struct {
	UploadID  string               `json:"uploadId"`
	CreatedAt time.Time            `json:"createdAt"`
	Total     int                  `json:"total"`
	Users     []domain.UserProfile `json:"users"`
}

// ScoreRequest is the request body for POST /score.
type ScoreRequest struct {
	domain.Identity
	Transactions []domain.Transaction `json:"transactions"`
}

// RollupRequest is the request body for POST /rollup.
type RollupRequest struct {
	Profiles []domain.UserProfile `json:"profiles"`
}

// CreateUpload handles POST /uploads. The CSV is either the raw request
// body or the "file" field of a multipart form.
func (h *Handler) CreateUpload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)

	src, fileName, err := h.uploadSource(r)
	if err != nil {
		writeBodyError(w, err)
		return
	}
	defer src.Close()

	res, err := h.pipeline.Run(ctx, src)
	if err != nil {
		switch {
		case errors.Is(err, ingest.ErrParse):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, ingest.ErrNoRecords):
			writeError(w, http.StatusUnprocessableEntity, err.Error())
		default:
			writeBodyError(w, err)
		}
		return
	}

	upload := &domain.Upload{
		ID:          uuid.New().String(),
		TenantID:    tenantID,
		FileName:    fileName,
		CreatedAt:   h.now().UTC(),
		RowsRead:    res.RowsRead,
		RowsSkipped: res.RowsSkipped,
		Profiles:    res.Profiles,
	}
	trace.SpanFromContext(ctx).SetAttributes(
		attribute.String("upload.id", upload.ID),
		attribute.Int("upload.users", len(upload.Profiles)),
	)

	flagged := 0
	for i := range upload.Profiles {
		if upload.Profiles[i].IsFlagged {
			flagged++
		}
	}

	stored := h.storeUpload(ctx, upload)
	if stored {
		h.publishScored(ctx, upload, flagged)
	}

	writeJSON(w, http.StatusCreated, UploadResponse{
		UploadID:     upload.ID,
		FileName:     upload.FileName,
		RowsRead:     upload.RowsRead,
		RowsSkipped:  upload.RowsSkipped,
		Users:        len(upload.Profiles),
		FlaggedUsers: flagged,
		Stored:       stored,
		Profiles:     upload.Profiles,
	})
}

func (h *Handler) uploadSource(r *http.Request) (io.ReadCloser, string, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		return r.Body, r.URL.Query().Get("name"), nil
	}

	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		return nil, "", err
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, "", errMissingFile
	}
	return file, header.Filename, nil
}

var errMissingFile = errors.New(`multipart upload needs a "file" field`)

func (h *Handler) storeUpload(ctx context.Context, u *domain.Upload) bool {
	if h.cache == nil {
		return false
	}
	if err := h.cache.SetUpload(ctx, u.TenantID, u, h.uploadTTL); err != nil {
		slog.Error("failed to store upload",
			"upload_id", u.ID,
			"tenant_id", u.TenantID,
			"error", err,
		)
		return false
	}
	return true
}

func (h *Handler) publishScored(ctx context.Context, u *domain.Upload, flagged int) {
	if h.bus == nil {
		return
	}
	payload, err := json.Marshal(domain.UploadScoredEvent{
		UploadID:     u.ID,
		TenantID:     u.TenantID,
		Users:        len(u.Profiles),
		FlaggedUsers: flagged,
	})
	if err != nil {
		return
	}
	if err := h.bus.Publish(ctx, u.TenantID, domain.TopicUploadScored, payload); err != nil {
		slog.Error("failed to publish upload event",
			"upload_id", u.ID,
			"error", err,
		)
	}
}

// GetUpload handles GET /uploads/{id}. Query parameters: q filters by
// name, id or email; sort picks the field; order is asc or desc.
func (h *Handler) GetUpload(w http.ResponseWriter, r *http.Request) {
	upload, ok := h.loadUpload(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	field := q.Get("sort")
	if field == "" {
		field = rollup.SortRiskScore
	}
	if !rollup.ValidSortField(field) {
		writeError(w, http.StatusBadRequest, "unsupported sort field: "+field)
		return
	}

	desc := true
	switch strings.ToLower(q.Get("order")) {
	case "", "desc":
	case "asc":
		desc = false
	default:
		writeError(w, http.StatusBadRequest, "order must be asc or desc")
		return
	}

	users := rollup.SortUsers(rollup.FilterUsers(upload.Profiles, q.Get("q")), field, desc)
	writeJSON(w, http.StatusOK, UsersResponse{
		UploadID:  upload.ID,
		CreatedAt: upload.CreatedAt,
		Total:     len(users),
		Users:     users,
	})
}

// GetDashboard handles GET /uploads/{id}/dashboard.
func (h *Handler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	upload, ok := h.loadUpload(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, rollup.Dashboard(upload.Profiles))
}

// ListAlerts handles GET /uploads/{id}/alerts. The optional type query
// keeps only critical or warning alerts.
func (h *Handler) ListAlerts(w http.ResponseWriter, r *http.Request) {
	upload, ok := h.loadUpload(w, r)
	if !ok {
		return
	}

	alerts := alert.ForUpload(upload, upload.CreatedAt)
	if severity := r.URL.Query().Get("type"); severity != "" {
		kept := alerts[:0]
		for _, a := range alerts {
			if a.Severity == severity {
				kept = append(kept, a)
			}
		}
		alerts = kept
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"alerts": alerts,
		"count":  len(alerts),
	})
}

// GetUser handles GET /uploads/{id}/users/{userId}.
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	profile, ok := h.loadUser(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// GetUserTimeline handles GET /uploads/{id}/users/{userId}/timeline.
func (h *Handler) GetUserTimeline(w http.ResponseWriter, r *http.Request) {
	profile, ok := h.loadUser(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"userId":   profile.ID,
		"timeline": rollup.UserTimeline(*profile),
	})
}

// Score handles POST /score.
func (h *Handler) Score(w http.ResponseWriter, r *http.Request) {
	var req ScoreRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if req.ID == "" {
		writeError(w, http.StatusBadRequest, "id is required")
		return
	}
	for i := range req.Transactions {
		switch req.Transactions[i].Kind {
		case domain.KindPurchase, domain.KindReturn:
		default:
			writeError(w, http.StatusBadRequest, "transaction type must be purchase or return")
			return
		}
	}
	if req.MemberSince == "" {
		req.MemberSince = domain.DefaultMemberSince
	}

	writeJSON(w, http.StatusOK, h.engine.Score(req.Identity, req.Transactions))
}

// Rollup handles POST /rollup.
func (h *Handler) Rollup(w http.ResponseWriter, r *http.Request) {
	var req RollupRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, rollup.Dashboard(req.Profiles))
}

// Health handles GET /health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	components := map[string]string{}

	if h.cache != nil {
		components["cache"] = "ok"
		if err := h.cache.Ping(r.Context()); err != nil {
			status = "degraded"
			components["cache"] = err.Error()
		}
	}
	if h.bus != nil {
		components["bus"] = "ok"
		if err := h.bus.Ping(r.Context()); err != nil {
			status = "degraded"
			components["bus"] = err.Error()
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":     status,
		"version":    h.version,
		"components": components,
		"rules":      h.engine.Classifier().Rules(),
	})
}

// Ready handles GET /ready.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"ready": "true",
	})
}

func (h *Handler) loadUpload(w http.ResponseWriter, r *http.Request) (*domain.Upload, bool) {
	if h.cache == nil {
		writeError(w, http.StatusServiceUnavailable, "upload storage not configured")
		return nil, false
	}

	id := chi.URLParam(r, "id")
	upload, err := h.cache.GetUpload(r.Context(), GetTenantID(r.Context()), id)
	if err != nil {
		slog.Error("failed to load upload", "upload_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load upload")
		return nil, false
	}
	if upload == nil {
		writeError(w, http.StatusNotFound, "upload not found")
		return nil, false
	}
	return upload, true
}

func (h *Handler) loadUser(w http.ResponseWriter, r *http.Request) (*domain.UserProfile, bool) {
	upload, ok := h.loadUpload(w, r)
	if !ok {
		return nil, false
	}
	profile, ok := upload.Profile(chi.URLParam(r, "userId"))
	if !ok {
		writeError(w, http.StatusNotFound, "user not found")
		return nil, false
	}
	return profile, true
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBytes))
	if err := dec.Decode(v); err != nil {
		writeBodyError(w, err)
		return false
	}
	return true
}

// writeBodyError maps request body failures to a status.
func writeBodyError(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.As(err, &tooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
	case errors.As(err, &syntaxErr), errors.As(err, &typeErr), errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		writeError(w, http.StatusBadRequest, "invalid JSON request body")
	case errors.Is(err, errMissingFile), errors.Is(err, http.ErrNotMultipart):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		slog.Error("failed to read request body", "error", err)
		writeError(w, http.StatusBadRequest, "failed to read request body")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
