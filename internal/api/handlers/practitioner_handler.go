package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/afferentology/platform/backend/internal/api/middleware"
	"github.com/afferentology/platform/backend/internal/domain/entities"
	apperrors "github.com/afferentology/platform/backend/pkg/errors"
)

// defaultNearestLimit applies only when the search omits limit.
const defaultNearestLimit = 3

// PractitionerService defines the directory operations used by the handler.
type PractitionerService interface {
	Submit(ctx context.Context, app *entities.PractitionerApplication) (*entities.SubmitResult, error)
	Search(ctx context.Context, lat, lng float64, limit int) ([]*entities.PractitionerMatch, error)
	UpdateStatus(ctx context.Context, id string, status entities.PractitionerStatus, actor string) (*entities.Practitioner, error)
	List(ctx context.Context, filter entities.PractitionerFilter) ([]*entities.Practitioner, error)
	Get(ctx context.Context, id string) (*entities.Practitioner, error)
	Delete(ctx context.Context, id string) error
}

// SubmissionObserver counts intake submissions.
type SubmissionObserver interface {
	ObserveSubmission(isUpdate bool)
}

// PractitionerHandler handles the practitioner directory routes.
type PractitionerHandler struct {
	service  PractitionerService
	observer SubmissionObserver
}

// NewPractitionerHandler creates a new practitioner handler. observer may be nil.
func NewPractitionerHandler(service PractitionerService, observer SubmissionObserver) *PractitionerHandler {
	return &PractitionerHandler{service: service, observer: observer}
}

// Search handles GET /api/practitioners/search?lat=&lng=&limit=
func (h *PractitionerHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	lat, err := strconv.ParseFloat(query.Get("lat"), 64)
	if err != nil || lat < -90 || lat > 90 {
		respondWithError(w, http.StatusBadRequest, "invalid latitude parameter")
		return
	}
	lng, err := strconv.ParseFloat(query.Get("lng"), 64)
	if err != nil || lng < -180 || lng > 180 {
		respondWithError(w, http.StatusBadRequest, "invalid longitude parameter")
		return
	}
	limit, err := queryInt(r, "limit", defaultNearestLimit)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	matches, err := h.service.Search(r.Context(), lat, lng, limit)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"practitioners": matches,
	})
}

// Submit handles POST /api/practitioners
func (h *PractitionerHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var app entities.PractitionerApplication
	if err := decodeJSON(w, r, &app); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	result, err := h.service.Submit(r.Context(), &app)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	if h.observer != nil {
		h.observer.ObserveSubmission(result.IsUpdate)
	}

	status := http.StatusCreated
	if result.IsUpdate {
		status = http.StatusOK
	}
	respondWithJSON(w, status, map[string]interface{}{
		"success":      true,
		"practitioner": result.Practitioner,
		"isUpdate":     result.IsUpdate,
	})
}

// AdminList handles GET /api/admin/practitioners?status=
func (h *PractitionerHandler) AdminList(w http.ResponseWriter, r *http.Request) {
	filter := entities.PractitionerFilter{
		Status: entities.PractitionerStatus(r.URL.Query().Get("status")),
	}
	if filter.Status != "" && !filter.Status.Valid() {
		respondWithError(w, http.StatusBadRequest, "invalid status parameter")
		return
	}
	var err error
	if filter.Limit, err = queryInt(r, "limit", 0); err != nil {
		respondWithAppError(w, r, err)
		return
	}
	if filter.Offset, err = queryInt(r, "offset", 0); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	list, err := h.service.List(r.Context(), filter)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"practitioners": list,
	})
}

// AdminGet handles GET /api/admin/practitioners/{id}
func (h *PractitionerHandler) AdminGet(w http.ResponseWriter, r *http.Request) {
	p, err := h.service.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"practitioner": p,
	})
}

type statusRequest struct {
	Status entities.PractitionerStatus `json:"status"`
}

// AdminUpdateStatus handles PATCH /api/admin/practitioners/{id}
func (h *PractitionerHandler) AdminUpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithAppError(w, r, err)
		return
	}
	if req.Status == "" {
		respondWithError(w, http.StatusBadRequest, "Missing id or status")
		return
	}

	actor := middleware.AdminSubject(r.Context())
	p, err := h.service.UpdateStatus(r.Context(), r.PathValue("id"), req.Status, actor)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"practitioner": p,
	})
}

// AdminDelete handles DELETE /api/admin/practitioners/{id}
func (h *PractitionerHandler) AdminDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		respondWithAppError(w, r, apperrors.NewValidationError("practitioner ID is required"))
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		respondWithAppError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
