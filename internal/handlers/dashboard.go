package handlers

import (
	"math"
	"net/http"
	"time"

	"aprovaai-backend/internal/middleware"
	"aprovaai-backend/internal/models"
	"aprovaai-backend/internal/repository"
)

type DashboardHandler struct {
	planRepo    *repository.StudyPlanRepo
	sessionRepo *repository.StudySessionRepo
	docRepo     *repository.DocumentRepo
}

func NewDashboardHandler(planRepo *repository.StudyPlanRepo, sessionRepo *repository.StudySessionRepo, docRepo *repository.DocumentRepo) *DashboardHandler {
	return &DashboardHandler{planRepo: planRepo, sessionRepo: sessionRepo, docRepo: docRepo}
}

// Stats aggregates the figures shown on the dashboard home screen.
func (h *DashboardHandler) Stats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	activePlans, err := h.planRepo.CountActiveByUser(ctx, userID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to load dashboard stats", r))
		return
	}

	hoursToday, err := h.sessionRepo.HoursSince(ctx, userID, "day")
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to load dashboard stats", r))
		return
	}

	hoursWeek, err := h.sessionRepo.HoursSince(ctx, userID, "week")
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to load dashboard stats", r))
		return
	}

	completed, estimated, err := h.planRepo.OverallProgress(ctx, userID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to load dashboard stats", r))
		return
	}
	progress := 0.0
	if estimated > 0 {
		progress = math.Round(completed/float64(estimated)*100*10) / 10
		if progress > 100 {
			progress = 100
		}
	}

	upcoming, err := h.planRepo.UpcomingItems(ctx, userID, time.Now(), 5)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to load dashboard stats", r))
		return
	}
	if upcoming == nil {
		upcoming = []models.ScheduleItem{}
	}

	documents, err := h.docRepo.CountByUser(ctx, userID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to load dashboard stats", r))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"active_plans":      activePlans,
		"hours_today":       hoursToday,
		"hours_this_week":   hoursWeek,
		"overall_progress":  progress,
		"upcoming_sessions": upcoming,
		"total_documents":   documents,
	})
}
