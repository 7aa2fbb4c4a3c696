// Package handler exposes the admin status board and the audit trail under
// /admin.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"studentreg/internal/platform/metrics"
	"studentreg/internal/platform/middleware"
	"studentreg/internal/roster/models"
	id "studentreg/pkg/domain"
	dErrors "studentreg/pkg/domain-errors"
	"studentreg/pkg/platform/audit"
	"studentreg/pkg/platform/httputil"
	"studentreg/pkg/platform/middleware/admin"
	"studentreg/pkg/platform/middleware/metadata"
	"studentreg/pkg/platform/middleware/request"
	"studentreg/pkg/platform/middleware/requesttime"
)

const (
	defaultAuditLimit = 50
	maxAuditLimit     = 500
)

// Board is the roster surface the handler drives.
type Board interface {
	Reload(ctx context.Context) ([]models.Student, error)
	Students() ([]models.Student, error)
	Submitting() bool
	SetStatus(ctx context.Context, studentID id.StudentID, status models.Status) (models.Student, error)
	Submit(ctx context.Context) ([]models.Student, error)
}

type Handler struct {
	board      Board
	auditLog   audit.Lister
	adminToken string
	logger     *slog.Logger
	metrics    *metrics.Metrics
	// submitTimeout bounds the submit route, which may outlast the default.
	submitTimeout time.Duration
}

// New creates the admin handler. auditLog and m may be nil.
func New(board Board, auditLog audit.Lister, adminToken string, logger *slog.Logger, m *metrics.Metrics) *Handler {
	return &Handler{
		board:         board,
		auditLog:      auditLog,
		adminToken:    adminToken,
		logger:        logger,
		metrics:       m,
		submitTimeout: 30 * time.Second,
	}
}

type statusRequest struct {
	Status string `json:"status"`
}

func (r *statusRequest) Validate() error {
	_, err := models.ParseStatus(r.Status)
	return err
}

type studentsResponse struct {
	Students   []models.Student `json:"students"`
	Submitting bool             `json:"submitting"`
}

// Register mounts /admin on r.
func (h *Handler) Register(r chi.Router) {
	adminRouter := chi.NewRouter()
	adminRouter.Use(request.Recovery(h.logger))
	adminRouter.Use(request.RequestID)
	adminRouter.Use(requesttime.Middleware)
	adminRouter.Use(metadata.ClientMetadata)
	adminRouter.Use(request.Logger(h.logger))
	adminRouter.Use(request.Timeout(h.submitTimeout))
	adminRouter.Use(request.ContentTypeJSON)
	adminRouter.Use(middleware.LatencyMiddleware(h.metrics))
	adminRouter.Use(admin.RequireAdminToken(h.adminToken, h.logger))

	adminRouter.Get("/students", h.handleList)
	adminRouter.Put("/students/{id}/status", h.handleSetStatus)
	adminRouter.Post("/students/submit", h.handleSubmit)
	adminRouter.Post("/students/reload", h.handleReload)
	adminRouter.Get("/audit", h.handleAudit)

	r.Mount("/admin", adminRouter)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	students, err := h.board.Students()
	if dErrors.Is(err, dErrors.CodeInvalidState) {
		// First visit: fetch lazily like the board page does on mount.
		students, err = h.board.Reload(r.Context())
	}
	if err != nil {
		h.writeError(r.Context(), w, "failed to list students", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, studentsResponse{Students: students, Submitting: h.board.Submitting()})
}

func (h *Handler) handleSetStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)
	studentID, err := id.ParseStudentID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[statusRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	student, err := h.board.SetStatus(ctx, studentID, models.Status(req.Status))
	if err != nil {
		h.writeError(ctx, w, "failed to set student status", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, student)
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	students, err := h.board.Submit(ctx)
	if err != nil {
		h.writeError(ctx, w, "failed to submit student statuses", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"submitted": len(students),
		"message":   "Student statuses submitted successfully!",
	})
}

func (h *Handler) handleReload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	students, err := h.board.Reload(ctx)
	if err != nil {
		h.writeError(ctx, w, "failed to reload students", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, studentsResponse{Students: students, Submitting: h.board.Submitting()})
}

// handleAudit returns events for ?subject=, or the most recent ?limit= events.
func (h *Handler) handleAudit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.auditLog == nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "audit log is not readable"))
		return
	}

	var (
		events []audit.Event
		err    error
	)
	if subject := r.URL.Query().Get("subject"); subject != "" {
		events, err = h.auditLog.ListBySubject(ctx, subject)
	} else {
		limit, perr := parseLimit(r.URL.Query().Get("limit"))
		if perr != nil {
			httputil.WriteError(w, perr)
			return
		}
		events, err = h.auditLog.ListRecent(ctx, limit)
	}
	if err != nil {
		h.writeError(ctx, w, "failed to read audit log", dErrors.Wrap(err, dErrors.CodeInternal, "audit read failed"))
		return
	}
	if events == nil {
		events = []audit.Event{}
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"events": events})
}

func parseLimit(raw string) (int, error) {
	if raw == "" {
		return defaultAuditLimit, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, dErrors.New(dErrors.CodeBadRequest, "limit must be a positive integer")
	}
	return min(n, maxAuditLimit), nil
}

func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	level := slog.LevelWarn
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		level = slog.LevelError
	}
	h.logger.Log(ctx, level, msg,
		"request_id", request.GetRequestID(ctx),
		"error", err,
	)
	httputil.WriteError(w, err)
}
