package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"barsync/internal/model"
	"barsync/internal/service"
	"barsync/internal/upload"

	"github.com/rs/zerolog"
)

// DefaultMaxUploadBytes caps multipart request bodies.
const DefaultMaxUploadBytes = 10 << 20

// itemRequest is the JSON body of item create and update requests.
type itemRequest struct {
	model.MenuItemInput
	Rev string `json:"_rev"`
}

// MenuHandler handles menu item HTTP requests.
type MenuHandler struct {
	controller     service.SyncController
	uploads        upload.Store
	maxUploadBytes int64
	logger         zerolog.Logger
}

// NewMenuHandler creates a new menu handler. Images in multipart requests
// are saved to uploads.
func NewMenuHandler(controller service.SyncController, uploads upload.Store, logger zerolog.Logger) *MenuHandler {
	return &MenuHandler{
		controller:     controller,
		uploads:        uploads,
		maxUploadBytes: DefaultMaxUploadBytes,
		logger:         logger.With().Str("handler", "menu").Logger(),
	}
}

// List handles GET /api/cocktails requests.
func (h *MenuHandler) List(w http.ResponseWriter, r *http.Request) {
	var filter model.MenuItemFilter
	if raw := r.URL.Query().Get("active"); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, model.ErrCodeValidation, "invalid active parameter", h.logger)
			return
		}
		filter.Active = &active
	}

	items, err := h.controller.ListItems(r.Context(), filter)
	if err != nil {
		writeDomainError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, items)
}

// Get handles GET /api/cocktails/{id} requests.
func (h *MenuHandler) Get(w http.ResponseWriter, r *http.Request) {
	item, err := h.controller.GetItem(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, item)
}

// Create handles POST /api/cocktails requests.
func (h *MenuHandler) Create(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeItemRequest(w, r)
	if !ok {
		return
	}

	item, err := h.controller.CreateItem(r.Context(), req.MenuItemInput)
	if err != nil {
		writeDomainError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusCreated, item)
}

// Update handles PUT /api/cocktails/{id} requests. The revision comes from
// the _rev body field or the rev query parameter.
func (h *MenuHandler) Update(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeItemRequest(w, r)
	if !ok {
		return
	}
	rev := req.Rev
	if rev == "" {
		rev = r.URL.Query().Get("rev")
	}

	item, err := h.controller.UpdateItem(r.Context(), r.PathValue("id"), rev, req.MenuItemInput)
	if err != nil {
		writeDomainError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, item)
}

// Delete handles DELETE /api/cocktails/{id}?rev= requests.
func (h *MenuHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.controller.DeleteItem(r.Context(), id, r.URL.Query().Get("rev")); err != nil {
		writeDomainError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: "Cocktail deleted"})
}

// decodeItemRequest reads a JSON or multipart item body. On failure the
// error response has already been written.
func (h *MenuHandler) decodeItemRequest(w http.ResponseWriter, r *http.Request) (itemRequest, bool) {
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		var req itemRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidJSON, "invalid request body", h.logger)
			return itemRequest{}, false
		}
		return req, true
	}

	req, err := h.parseMultipart(w, r)
	if err != nil {
		var domainErr *model.DomainError
		if errors.As(err, &domainErr) {
			writeDomainError(w, r, err, h.logger)
		} else {
			h.logger.Error().Err(err).Msg("failed to store uploaded image")
			writeError(w, r, http.StatusInternalServerError, model.ErrCodeInternalError, "failed to store image", h.logger)
		}
		return itemRequest{}, false
	}
	return req, true
}

func (h *MenuHandler) parseMultipart(w http.ResponseWriter, r *http.Request) (itemRequest, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		return itemRequest{}, model.NewValidationError("body", "is not a valid multipart form")
	}

	req := itemRequest{
		MenuItemInput: model.MenuItemInput{
			Title:       r.FormValue("title"),
			Description: r.FormValue("description"),
			Ingredients: r.FormValue("ingredients"),
			Recipe:      r.FormValue("recipe"),
			Image:       r.FormValue("image"),
		},
		Rev: r.FormValue("_rev"),
	}
	if raw := r.FormValue("active"); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			return itemRequest{}, model.NewValidationError("active", "must be true or false")
		}
		req.Active = &active
	}

	file, header, err := r.FormFile("image")
	switch {
	case errors.Is(err, http.ErrMissingFile):
		return req, nil
	case err != nil:
		return itemRequest{}, model.NewValidationError("image", "could not be read")
	}
	defer file.Close()

	if h.uploads == nil {
		return itemRequest{}, model.NewValidationError("image", "uploads are not enabled")
	}
	// Reject before saving so invalid requests leave no file behind.
	if err := service.ValidateItemInput(req.MenuItemInput); err != nil {
		return itemRequest{}, err
	}
	ref, err := h.uploads.Save(r.Context(), header.Filename, file)
	if err != nil {
		return itemRequest{}, fmt.Errorf("failed to save image: %w", err)
	}
	req.Image = ref
	return req, nil
}
