package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"aprovaai-backend/internal/models"
	"aprovaai-backend/internal/planner"
)

// planStore is the slice of StudyPlanRepo the service needs. Narrowed to an
// interface so tests can run the full generation flow against a fake.
type planStore interface {
	CreatePlan(ctx context.Context, p *models.StudyPlan) error
	CreateSubjects(ctx context.Context, planID uuid.UUID, subjects []models.PlanSubject) error
	CreateScheduleItems(ctx context.Context, planID uuid.UUID, items []models.ScheduleItem) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.StudyPlan, error)
	GetFull(ctx context.Context, id uuid.UUID) (*models.StudyPlan, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.StudyPlan, error)
	GetSubject(ctx context.Context, subjectID uuid.UUID) (*models.PlanSubject, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type sessionStore interface {
	Record(ctx context.Context, s *models.StudySession, hours float64) error
}

// planAllocator is the AI side of plan generation. A nil allocator (or one
// that is disabled) sends every plan through the deterministic calculator.
type planAllocator interface {
	Enabled() bool
	PlanAllocation(ctx context.Context, req models.StudyPlanRequest) (*models.AIPlanAllocation, error)
}

type StudyPlanService struct {
	plans    planStore
	sessions sessionStore
	ai       planAllocator
	now      func() time.Time
}

func NewStudyPlanService(plans planStore, sessions sessionStore, ai planAllocator) *StudyPlanService {
	return &StudyPlanService{
		plans:    plans,
		sessions: sessions,
		ai:       ai,
		now:      time.Now,
	}
}

// Generate builds and persists a complete study plan: allocation, subjects
// and the full day-by-day schedule up to the exam.
func (s *StudyPlanService) Generate(ctx context.Context, userID uuid.UUID, req models.StudyPlanRequest) (*models.StudyPlan, error) {
	if err := validatePlanRequest(&req); err != nil {
		return nil, err
	}

	now := s.now()
	daysUntilExam := int(math.Ceil(req.ExamDate.Sub(now).Hours() / 24))
	if daysUntilExam <= 0 {
		return nil, &ValidationError{Fields: map[string]string{
			"exam_date": "Exam date must be in the future",
		}}
	}

	totalAvailable := float64(daysUntilExam) * req.AvailableHoursPerDay
	studyHours := planner.StudyHours(totalAvailable)
	if studyHours <= 0 {
		return nil, &ValidationError{Fields: map[string]string{
			"available_hours_per_day": "Not enough study time before the exam",
		}}
	}

	title, description, subjects, aiGenerated, err := s.allocate(ctx, req, studyHours)
	if err != nil {
		return nil, err
	}
	if description == "" {
		description = fmt.Sprintf("Plano personalizado com %dh de estudos distribuídas até %s",
			studyHours, req.ExamDate.Format("02/01/2006"))
	}

	plan := &models.StudyPlan{
		UserID:          userID,
		Title:           title,
		Description:     description,
		ExamName:        req.ExamName,
		ExamDate:        req.ExamDate,
		TotalStudyHours: studyHours,
		DailyStudyHours: req.AvailableHoursPerDay,
		AIGenerated:     aiGenerated,
	}

	if err := s.plans.CreatePlan(ctx, plan); err != nil {
		return nil, err
	}
	if err := s.plans.CreateSubjects(ctx, plan.ID, subjects); err != nil {
		return nil, err
	}

	schedule := buildSchedule(subjects, req, now, daysUntilExam)
	if err := s.plans.CreateScheduleItems(ctx, plan.ID, schedule); err != nil {
		return nil, err
	}

	plan.Subjects = subjects
	plan.Schedule = schedule
	return plan, nil
}

func (s *StudyPlanService) List(ctx context.Context, userID uuid.UUID) ([]*models.StudyPlan, error) {
	return s.plans.ListByUser(ctx, userID)
}

func (s *StudyPlanService) Get(ctx context.Context, userID, planID uuid.UUID) (*models.StudyPlan, error) {
	plan, err := s.plans.GetFull(ctx, planID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Message: "Study plan not found"}
		}
		return nil, err
	}
	if plan.UserID != userID {
		return nil, &ForbiddenError{Message: "You do not have access to this study plan"}
	}
	return plan, nil
}

// Delete removes a plan after checking ownership. Subjects, schedule and
// sessions cascade away with it.
func (s *StudyPlanService) Delete(ctx context.Context, userID, planID uuid.UUID) error {
	plan, err := s.plans.GetByID(ctx, planID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &NotFoundError{Message: "Study plan not found"}
		}
		return err
	}
	if plan.UserID != userID {
		return &ForbiddenError{Message: "You do not have access to this study plan"}
	}

	return s.plans.Delete(ctx, planID)
}

// RecordSession logs a finished timer interval and credits the studied hours
// to the subject. Sessions under a minute are rejected without touching
// anything.
func (s *StudyPlanService) RecordSession(ctx context.Context, userID uuid.UUID, req models.RecordSessionRequest) (*models.StudySession, error) {
	duration := req.DurationSeconds
	if duration == 0 && !req.EndedAt.IsZero() && req.EndedAt.After(req.StartedAt) {
		duration = int(req.EndedAt.Sub(req.StartedAt).Seconds())
	}
	if duration < 60 {
		return nil, &ValidationError{Fields: map[string]string{
			"duration_seconds": "Session must be at least 60 seconds long",
		}}
	}

	plan, err := s.plans.GetByID(ctx, req.PlanID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Message: "Study plan not found"}
		}
		return nil, err
	}
	if plan.UserID != userID {
		return nil, &ForbiddenError{Message: "You do not have access to this study plan"}
	}

	subject, err := s.plans.GetSubject(ctx, req.SubjectID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Message: "Plan subject not found"}
		}
		return nil, err
	}
	if subject.PlanID != req.PlanID {
		return nil, &ValidationError{Fields: map[string]string{
			"subject_id": "Subject does not belong to this plan",
		}}
	}

	sessionType := req.SessionType
	switch sessionType {
	case "study", "review", "practice":
	case "":
		sessionType = "study"
	default:
		return nil, &ValidationError{Fields: map[string]string{
			"session_type": "Session type must be study, review or practice",
		}}
	}

	started := req.StartedAt
	if started.IsZero() {
		started = s.now().Add(-time.Duration(duration) * time.Second)
	}
	ended := req.EndedAt
	if ended.IsZero() {
		ended = started.Add(time.Duration(duration) * time.Second)
	}

	session := &models.StudySession{
		UserID:          userID,
		PlanID:          req.PlanID,
		SubjectID:       req.SubjectID,
		StartedAt:       started,
		EndedAt:         ended,
		DurationSeconds: duration,
		SessionType:     sessionType,
		Notes:           req.Notes,
	}

	// Two decimal places: 120s credits 0.03h
	hours := math.Round(float64(duration)/3600*100) / 100

	if err := s.sessions.Record(ctx, session, hours); err != nil {
		return nil, err
	}

	return session, nil
}

func validatePlanRequest(req *models.StudyPlanRequest) error {
	fieldErrors := make(map[string]string)

	if strings.TrimSpace(req.ExamName) == "" {
		fieldErrors["exam_name"] = "Exam name is required"
	}
	if len(req.Subjects) == 0 {
		fieldErrors["subjects"] = "At least one subject is required"
	}
	if req.AvailableHoursPerDay <= 0 || req.AvailableHoursPerDay > 24 {
		fieldErrors["available_hours_per_day"] = "Daily hours must be between 0 and 24"
	}

	switch req.CurrentLevel {
	case "beginner", "intermediate", "advanced":
	case "":
		req.CurrentLevel = "intermediate"
	default:
		fieldErrors["current_level"] = "Level must be beginner, intermediate or advanced"
	}

	if len(fieldErrors) > 0 {
		return &ValidationError{Fields: fieldErrors}
	}
	return nil
}

// allocate decides the per-subject split. The AI allocation is used when it
// is available and structurally sound; anything else falls back to the
// deterministic calculator.
func (s *StudyPlanService) allocate(ctx context.Context, req models.StudyPlanRequest, studyHours int) (string, string, []models.PlanSubject, bool, error) {
	if s.ai != nil && s.ai.Enabled() {
		alloc, err := s.ai.PlanAllocation(ctx, req)
		if err != nil {
			log.Printf("AI plan allocation failed, using deterministic fallback: %v", err)
		} else if subjects, ok := normalizeAllocation(alloc, req.Subjects, studyHours); ok {
			title := strings.TrimSpace(alloc.Title)
			if title == "" {
				title = "Plano de Estudos - " + req.ExamName
			}
			return title, strings.TrimSpace(alloc.Description), subjects, true, nil
		} else {
			log.Printf("AI plan allocation rejected, using deterministic fallback")
		}
	}

	allocated, err := planner.Allocate(req.Subjects, studyHours, req.CurrentLevel, req.FocusAreas)
	if err != nil {
		return "", "", nil, false, &ValidationError{Fields: map[string]string{
			"subjects": err.Error(),
		}}
	}

	subjects := make([]models.PlanSubject, len(allocated))
	for i, a := range allocated {
		subjects[i] = models.PlanSubject{
			SubjectName:      a.Name,
			WeightPercentage: a.Weight,
			EstimatedHours:   a.EstimatedHours,
			Difficulty:       a.Difficulty,
			Priority:         a.Priority,
		}
	}

	return "Plano de Estudos - " + req.ExamName, "", subjects, false, nil
}

// normalizeAllocation maps an AI allocation back onto the requested subjects
// and forces its arithmetic into shape: integer weights summing to 100 and
// hours summing exactly to the study budget. Returns false when the
// allocation is unusable.
func normalizeAllocation(alloc *models.AIPlanAllocation, requested []string, studyHours int) ([]models.PlanSubject, bool) {
	if alloc == nil || len(alloc.Subjects) == 0 {
		return nil, false
	}

	matched := make([]*models.AIPlanSubjectItem, len(requested))
	for i, name := range requested {
		for j := range alloc.Subjects {
			if subjectNamesMatch(name, alloc.Subjects[j].Name) {
				matched[i] = &alloc.Subjects[j]
				break
			}
		}
		if matched[i] == nil {
			return nil, false
		}
	}

	raw := make([]float64, len(matched))
	var total float64
	for i, item := range matched {
		if item.Weight < 0 {
			return nil, false
		}
		raw[i] = item.Weight
		total += item.Weight
	}
	if total <= 0 {
		return nil, false
	}

	weights := planner.NormalizeWeights(raw)
	hours := planner.DistributeHours(weights, studyHours)

	subjects := make([]models.PlanSubject, len(requested))
	for i, name := range requested {
		difficulty := matched[i].Difficulty
		switch difficulty {
		case "easy", "medium", "hard":
		default:
			difficulty = "medium"
		}

		priority := matched[i].Priority
		if priority < 1 || priority > 5 {
			priority = planner.PriorityForWeight(weights[i])
		}

		subjects[i] = models.PlanSubject{
			SubjectName:      name,
			WeightPercentage: weights[i],
			EstimatedHours:   hours[i],
			Difficulty:       difficulty,
			Priority:         priority,
		}
	}

	return subjects, true
}

func subjectNamesMatch(requested, returned string) bool {
	a := strings.ToLower(strings.TrimSpace(requested))
	b := strings.ToLower(strings.TrimSpace(returned))
	if a == "" || b == "" {
		return false
	}
	return a == b || strings.Contains(a, b) || strings.Contains(b, a)
}

// buildSchedule walks every calendar day up to the exam, skipping weekends,
// and fills each work day with planner sessions.
func buildSchedule(subjects []models.PlanSubject, req models.StudyPlanRequest, start time.Time, daysUntilExam int) []models.ScheduleItem {
	startDate := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)

	totalWorkDays := 0
	for day := 0; day < daysUntilExam; day++ {
		if isWorkDay(startDate.AddDate(0, 0, day)) {
			totalWorkDays++
		}
	}
	if totalWorkDays == 0 {
		return []models.ScheduleItem{}
	}

	cycles := planner.BuildCycles(totalWorkDays)
	dailyMinutes := int(req.AvailableHoursPerDay * 60)

	plannerSubjects := make([]planner.Subject, len(subjects))
	for i, s := range subjects {
		plannerSubjects[i] = planner.Subject{
			Name:           s.SubjectName,
			Weight:         s.WeightPercentage,
			EstimatedHours: s.EstimatedHours,
			Difficulty:     s.Difficulty,
			Priority:       s.Priority,
		}
	}

	schedule := []models.ScheduleItem{}
	workDay := 0
	for day := 0; day < daysUntilExam; day++ {
		date := startDate.AddDate(0, 0, day)
		if !isWorkDay(date) {
			continue
		}

		phase := cycles.PhaseFor(workDay)
		for _, sess := range planner.ScheduleDay(plannerSubjects, phase, workDay, dailyMinutes, planner.DefaultStartTime) {
			schedule = append(schedule, models.ScheduleItem{
				SubjectID:       subjects[sess.SubjectIndex].ID,
				ScheduledDate:   date,
				StartTime:       sess.StartTime,
				EndTime:         sess.EndTime,
				DurationMinutes: sess.DurationMinutes,
				SessionType:     sess.SessionType,
				Topic:           sess.Topic,
			})
		}
		workDay++
	}

	return schedule
}

func isWorkDay(date time.Time) bool {
	wd := date.Weekday()
	return wd != time.Saturday && wd != time.Sunday
}
