package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"aprovaai-backend/internal/middleware"
	"aprovaai-backend/internal/models"
	"aprovaai-backend/internal/services"
)

type StudyPlanHandler struct {
	planService *services.StudyPlanService
}

func NewStudyPlanHandler(planService *services.StudyPlanService) *StudyPlanHandler {
	return &StudyPlanHandler{planService: planService}
}

func (h *StudyPlanHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req models.StudyPlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	userID := middleware.GetUserID(r.Context())

	plan, err := h.planService.Generate(r.Context(), userID, req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, plan)
}

func (h *StudyPlanHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	plans, err := h.planService.List(r.Context(), userID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to list study plans", r))
		return
	}

	if plans == nil {
		plans = []*models.StudyPlan{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"plans": plans})
}

func (h *StudyPlanHandler) Get(w http.ResponseWriter, r *http.Request) {
	planID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid plan ID", r))
		return
	}

	userID := middleware.GetUserID(r.Context())

	plan, err := h.planService.Get(r.Context(), userID, planID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, plan)
}

func (h *StudyPlanHandler) Delete(w http.ResponseWriter, r *http.Request) {
	planID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid plan ID", r))
		return
	}

	userID := middleware.GetUserID(r.Context())

	if err := h.planService.Delete(r.Context(), userID, planID); err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Study plan deleted"})
}

// RecordSession logs a finished study timer against a plan subject.
func (h *StudyPlanHandler) RecordSession(w http.ResponseWriter, r *http.Request) {
	planID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid plan ID", r))
		return
	}

	var req models.RecordSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}
	req.PlanID = planID

	userID := middleware.GetUserID(r.Context())

	session, err := h.planService.RecordSession(r.Context(), userID, req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, session)
}
