package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"gestion/internal/participation/models"
	"gestion/internal/platform/metrics"
	"gestion/internal/platform/middleware"
	dErrors "gestion/pkg/domain-errors"
	"gestion/pkg/platform/httputil"
)

// BasePath is where the participation resource is mounted.
const BasePath = "/api/gestion/participation"

const (
	// ConflictMessage replaces the service message when the person is already on the project.
	ConflictMessage = "this person already participates in the project"
	// InternalErrorPrefix is prepended to unexpected error messages.
	InternalErrorPrefix = "an error occurred: "

	defaultRequestTimeout = 30 * time.Second
)

// Service defines the participation operations the handler needs.
type Service interface {
	Register(ctx context.Context, personID models.PersonID, projectCode models.ProjectCode, role models.Role, percentage float64) (*models.Participation, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Participation, error)
	ListByPerson(ctx context.Context, personID models.PersonID) ([]*models.Participation, error)
	ListByProject(ctx context.Context, code models.ProjectCode) ([]*models.Participation, error)
}

// Handler serves the participation endpoints.
type Handler struct {
	service        Service
	logger         *slog.Logger
	metrics        *metrics.Metrics
	requestTimeout time.Duration
}

type Option func(*Handler)

func WithRequestTimeout(d time.Duration) Option {
	return func(h *Handler) {
		if d > 0 {
			h.requestTimeout = d
		}
	}
}

// New creates a participation Handler. metrics may be nil.
func New(service Service, logger *slog.Logger, metrics *metrics.Metrics, opts ...Option) *Handler {
	h := &Handler{
		service:        service,
		logger:         logger,
		metrics:        metrics,
		requestTimeout: defaultRequestTimeout,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register mounts the participation routes under BasePath.
func (h *Handler) Register(r chi.Router) {
	r.Route(BasePath, func(r chi.Router) {
		r.Use(middleware.Recovery(h.logger))
		r.Use(middleware.RequestID)
		r.Use(middleware.ClientMetadata)
		r.Use(middleware.Logger(h.logger))
		r.Use(middleware.Timeout(h.requestTimeout))
		r.Use(middleware.ContentTypeJSON)
		r.Use(middleware.LatencyMiddleware(h.metrics))

		r.Post("/", h.HandleRegister)
		r.Get("/", h.HandleList)
		r.Get("/{id}", h.HandleGet)
	})
}

// HandleRegister handles POST /api/gestion/participation.
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	var req models.CreateParticipationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "invalid register participation request",
			"request_id", requestID,
			"error", err.Error(),
		)
		httputil.WriteMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	p, err := h.service.Register(ctx,
		models.PersonID(req.PersonID),
		models.ProjectCode(req.ProjectCode),
		models.Role(req.Role),
		req.Percentage,
	)
	if err != nil {
		h.writeRegistrationError(ctx, w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, models.ToParticipationResponse(p))
}

// writeRegistrationError maps a Register failure to its HTTP response.
func (h *Handler) writeRegistrationError(ctx context.Context, w http.ResponseWriter, err error) {
	status, message := registrationError(err)
	h.logFailure(ctx, status, "participation registration failed", err)
	httputil.WriteMessage(w, status, message)
}

func registrationError(err error) (int, string) {
	switch dErrors.CodeOf(err) {
	case dErrors.CodeNotFound, dErrors.CodeInvalidState:
		return http.StatusBadRequest, err.Error()
	case dErrors.CodeConflict:
		return http.StatusBadRequest, ConflictMessage
	default:
		return http.StatusInternalServerError, InternalErrorPrefix + err.Error()
	}
}

// HandleGet handles GET /api/gestion/participation/{id}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteMessage(w, http.StatusBadRequest, "invalid participation id")
		return
	}

	p, err := h.service.Get(ctx, id)
	if err != nil {
		h.writeReadError(ctx, w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.ToParticipationResponse(p))
}

// HandleList handles GET /api/gestion/participation?personId= or ?projectCode=.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	personID := r.URL.Query().Get("personId")
	projectCode := r.URL.Query().Get("projectCode")

	if (personID == "") == (projectCode == "") {
		httputil.WriteMessage(w, http.StatusBadRequest, "exactly one of personId or projectCode is required")
		return
	}

	var (
		list []*models.Participation
		err  error
	)
	if personID != "" {
		list, err = h.service.ListByPerson(ctx, models.PersonID(personID))
	} else {
		list, err = h.service.ListByProject(ctx, models.ProjectCode(projectCode))
	}
	if err != nil {
		h.writeReadError(ctx, w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.ToParticipationListResponse(list))
}

func (h *Handler) writeReadError(ctx context.Context, w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	message := InternalErrorPrefix + err.Error()
	if dErrors.HasCode(err, dErrors.CodeNotFound) {
		status = http.StatusNotFound
		message = err.Error()
	}
	h.logFailure(ctx, status, "participation lookup failed", err)
	httputil.WriteMessage(w, status, message)
}

func (h *Handler) logFailure(ctx context.Context, status int, msg string, err error) {
	attrs := []any{
		"request_id", middleware.GetRequestID(ctx),
		"status", status,
		"error", err.Error(),
	}
	if status >= http.StatusInternalServerError {
		h.logger.ErrorContext(ctx, msg, attrs...)
		return
	}
	h.logger.WarnContext(ctx, msg, attrs...)
}
