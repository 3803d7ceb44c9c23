package book

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/Tinyu01/library-management-system/internal/httpx"
	"github.com/rs/zerolog"
)

type HTTPHandler struct {
	service *Service
	logger  zerolog.Logger
}

func NewHTTPHandler(service *Service, logger zerolog.Logger) *HTTPHandler {
	return &HTTPHandler{service: service, logger: logger}
}

type bookRequest struct {
	Title     string `json:"title" validate:"required,notblank,max=255"`
	Author    string `json:"author" validate:"max=255"`
	ISBN      string `json:"isbn" validate:"omitempty,min=10,max=20"`
	Available *bool  `json:"available"`
}

// normalize clears a whitespace-only ISBN before validation.
func (req *bookRequest) normalize() {
	if strings.TrimSpace(req.ISBN) == "" {
		req.ISBN = ""
	}
}

func (req bookRequest) toInput() Input {
	available := true
	if req.Available != nil {
		available = *req.Available
	}
	return Input{
		Title:     req.Title,
		Author:    req.Author,
		ISBN:      req.ISBN,
		Available: available,
	}
}

// List handles GET /api/books
func (h *HTTPHandler) List(w http.ResponseWriter, r *http.Request) {
	books, err := h.service.ListAll(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, r, books, map[string]interface{}{"total": len(books)})
}

// Get handles GET /api/books/{id}
func (h *HTTPHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	b, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, r, b, nil)
}

// Availability handles GET /api/books/{title}/availability
func (h *HTTPHandler) Availability(w http.ResponseWriter, r *http.Request) {
	title := r.PathValue("title")

	status, err := h.service.CheckAvailability(r.Context(), title)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, r, map[string]string{"status": status}, nil)
}

// Create handles POST /api/books
func (h *HTTPHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req bookRequest
	if !httpx.DecodeJSON(w, r, &req) {
		return
	}
	req.normalize()
	if details := httpx.ValidateStruct(req); details != nil {
		httpx.JSONError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid book", details)
		return
	}

	b, err := h.service.Add(r.Context(), req.toInput())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONSuccessCreated(w, r, b)
}

// Update handles PUT /api/books/{id}
func (h *HTTPHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	var req bookRequest
	if !httpx.DecodeJSON(w, r, &req) {
		return
	}
	req.normalize()
	if details := httpx.ValidateStruct(req); details != nil {
		httpx.JSONError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid book", details)
		return
	}

	b, err := h.service.Update(r.Context(), id, req.toInput())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, r, b, nil)
}

// UpdateTitle handles PATCH /api/books/{id}/title?new_title=
func (h *HTTPHandler) UpdateTitle(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	b, err := h.service.UpdateTitleByID(r.Context(), id, r.URL.Query().Get("new_title"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, r, b, nil)
}

// UpdateTitleByOldTitle handles PATCH /api/books/title?old_title=&new_title=
func (h *HTTPHandler) UpdateTitleByOldTitle(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	b, err := h.service.UpdateTitleByOldTitle(r.Context(), query.Get("old_title"), query.Get("new_title"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, r, b, nil)
}

// Delete handles DELETE /api/books/{id}
func (h *HTTPHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONSuccessNoContent(w)
}

// ToggleAvailability handles PATCH /api/books/{id}/availability
func (h *HTTPHandler) ToggleAvailability(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	b, err := h.service.ToggleAvailability(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, r, b, nil)
}

func parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.JSONError(w, r, http.StatusBadRequest, "BAD_REQUEST", "Book id must be a positive integer", nil)
		return 0, false
	}
	return id, true
}

func (h *HTTPHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.JSONError(w, r, http.StatusNotFound, "NOT_FOUND", err.Error(), nil)
	case errors.Is(err, ErrDuplicateTitle):
		httpx.JSONError(w, r, http.StatusConflict, "DUPLICATE_TITLE", err.Error(), nil)
	case errors.Is(err, ErrDuplicateISBN):
		httpx.JSONError(w, r, http.StatusConflict, "DUPLICATE_ISBN", err.Error(), nil)
	case errors.Is(err, ErrInvalidInput):
		httpx.JSONError(w, r, http.StatusBadRequest, "INVALID_INPUT", err.Error(), nil)
	default:
		h.logger.Error().Err(err).
			Str("request_id", httpx.RequestIDFrom(r)).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Msg("book request failed")
		httpx.JSONError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error", nil)
	}
}
