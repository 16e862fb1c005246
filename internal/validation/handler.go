package validation

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"veritas/internal/caller"
	"veritas/internal/validation/models"
	"veritas/internal/validation/store"
	dErrors "veritas/pkg/domain-errors"
	"veritas/pkg/platform/httputil"
)

// Handler exposes the validation bus over HTTP.
type Handler struct {
	service *Service
	logger  *slog.Logger
}

func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the validation routes.
func (h *Handler) Register(r chi.Router) {
	r.Post("/validations", h.submit)
	r.Get("/validations", h.history)
	r.Get("/validations/{id}", h.get)
	r.Delete("/validations/{id}", h.softDelete)
	r.Post("/validations/{id}/restore", h.restore)
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.DecodeJSON[ValidateRequest](w, r)
	if !ok {
		return
	}

	vt, ok := models.ParseValidationType(req.ValidationType)
	if !ok {
		httputil.WriteError(w, dErrors.Newf(dErrors.CodeInvalidInput, "unsupported validation type %q", req.ValidationType))
		return
	}
	if vt == models.TypeAddress {
		if req.Address == nil {
			httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "address validations require the address payload"))
			return
		}
	} else if strings.TrimSpace(req.Value) == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "value is required"))
		return
	}

	out, err := h.service.Submit(r.Context(), SubmitInput{
		Type:             vt,
		Raw:              req.Value,
		Address:          req.Address,
		ClientIdentifier: req.ClientIdentifier,
		Caller:           caller.FromContext(r.Context()),
	})
	if err != nil {
		h.logger.ErrorContext(r.Context(), "submitting validation", "error", err)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, ValidateResponse{
		Record:  toRecordResponse(out.Record),
		Actions: toActionsResponse(out.Actions),
		Golden:  toGoldenResponse(out.Golden),
	})
}

func (h *Handler) history(w http.ResponseWriter, r *http.Request) {
	filter := store.ListFilter{
		App:            r.URL.Query().Get("app"),
		IncludeDeleted: r.URL.Query().Get("include_deleted") == "true",
	}
	if raw := r.URL.Query().Get("validation_type"); raw != "" {
		vt, ok := models.ParseValidationType(raw)
		if !ok {
			httputil.WriteError(w, dErrors.Newf(dErrors.CodeInvalidInput, "unsupported validation type %q", raw))
			return
		}
		filter.Type = vt
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "limit must be a positive integer"))
			return
		}
		filter.Limit = limit
	}

	recs, err := h.service.History(r.Context(), filter)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "listing validations", "error", err)
		httputil.WriteError(w, err)
		return
	}

	out := HistoryResponse{Records: make([]RecordResponse, 0, len(recs))}
	for _, rec := range recs {
		out.Records = append(out.Records, toRecordResponse(rec))
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.recordID(w, r)
	if !ok {
		return
	}

	rec, err := h.service.Get(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toRecordResponse(rec))
}

func (h *Handler) softDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.recordID(w, r)
	if !ok {
		return
	}

	rec, err := h.service.SoftDelete(r.Context(), caller.FromContext(r.Context()), id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toRecordResponse(rec))
}

func (h *Handler) restore(w http.ResponseWriter, r *http.Request) {
	id, ok := h.recordID(w, r)
	if !ok {
		return
	}

	rec, err := h.service.Restore(r.Context(), caller.FromContext(r.Context()), id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toRecordResponse(rec))
}

func (h *Handler) recordID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "record id must be a UUID"))
		return uuid.Nil, false
	}
	return id, true
}
