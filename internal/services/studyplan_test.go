package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"aprovaai-backend/internal/models"
)

// ─── Fakes ───

type fakePlanStore struct {
	plans         map[uuid.UUID]*models.StudyPlan
	subjects      map[uuid.UUID][]models.PlanSubject
	scheduleItems map[uuid.UUID][]models.ScheduleItem
	deleted       []uuid.UUID
}

func newFakePlanStore() *fakePlanStore {
	return &fakePlanStore{
		plans:         make(map[uuid.UUID]*models.StudyPlan),
		subjects:      make(map[uuid.UUID][]models.PlanSubject),
		scheduleItems: make(map[uuid.UUID][]models.ScheduleItem),
	}
}

func (f *fakePlanStore) CreatePlan(ctx context.Context, p *models.StudyPlan) error {
	p.ID = uuid.New()
	p.CreatedAt = time.Now()
	stored := *p
	f.plans[p.ID] = &stored
	return nil
}

func (f *fakePlanStore) CreateSubjects(ctx context.Context, planID uuid.UUID, subjects []models.PlanSubject) error {
	for i := range subjects {
		subjects[i].ID = uuid.New()
		subjects[i].PlanID = planID
	}
	f.subjects[planID] = append([]models.PlanSubject{}, subjects...)
	return nil
}

func (f *fakePlanStore) CreateScheduleItems(ctx context.Context, planID uuid.UUID, items []models.ScheduleItem) error {
	for i := range items {
		items[i].ID = uuid.New()
		items[i].PlanID = planID
	}
	f.scheduleItems[planID] = append([]models.ScheduleItem{}, items...)
	return nil
}

func (f *fakePlanStore) GetByID(ctx context.Context, id uuid.UUID) (*models.StudyPlan, error) {
	p, ok := f.plans[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return p, nil
}

func (f *fakePlanStore) GetFull(ctx context.Context, id uuid.UUID) (*models.StudyPlan, error) {
	p, err := f.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	full := *p
	full.Subjects = f.subjects[id]
	full.Schedule = f.scheduleItems[id]
	return &full, nil
}

func (f *fakePlanStore) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.StudyPlan, error) {
	var out []*models.StudyPlan
	for _, p := range f.plans {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakePlanStore) GetSubject(ctx context.Context, subjectID uuid.UUID) (*models.PlanSubject, error) {
	for _, subjects := range f.subjects {
		for i := range subjects {
			if subjects[i].ID == subjectID {
				return &subjects[i], nil
			}
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakePlanStore) Delete(ctx context.Context, id uuid.UUID) error {
	delete(f.plans, id)
	f.deleted = append(f.deleted, id)
	return nil
}

type fakeSessionStore struct {
	recorded []models.StudySession
	hours    []float64
}

func (f *fakeSessionStore) Record(ctx context.Context, s *models.StudySession, hours float64) error {
	s.ID = uuid.New()
	s.CreatedAt = time.Now()
	f.recorded = append(f.recorded, *s)
	f.hours = append(f.hours, hours)
	return nil
}

type fakeAllocator struct {
	enabled bool
	alloc   *models.AIPlanAllocation
	err     error
}

func (f *fakeAllocator) Enabled() bool { return f.enabled }

func (f *fakeAllocator) PlanAllocation(ctx context.Context, req models.StudyPlanRequest) (*models.AIPlanAllocation, error) {
	return f.alloc, f.err
}

// newTestService pins time to a Monday morning so work-day math is stable.
func newTestService(plans *fakePlanStore, sessions *fakeSessionStore, ai planAllocator) *StudyPlanService {
	svc := NewStudyPlanService(plans, sessions, ai)
	svc.now = func() time.Time {
		return time.Date(2026, 1, 5, 8, 0, 0, 0, time.UTC) // Monday
	}
	return svc
}

func basePlanRequest() models.StudyPlanRequest {
	return models.StudyPlanRequest{
		ExamName:             "Concurso TRT 4ª Região",
		ExamDate:             time.Date(2026, 1, 19, 8, 0, 0, 0, time.UTC), // 14 days out
		AvailableHoursPerDay: 4,
		Subjects:             []string{"Direito Constitucional", "Português", "Raciocínio Lógico"},
		CurrentLevel:         "intermediate",
	}
}

// ─── Generate ───

func TestGenerateDeterministicPlan(t *testing.T) {
	plans := newFakePlanStore()
	svc := newTestService(plans, &fakeSessionStore{}, nil)
	userID := uuid.New()

	plan, err := svc.Generate(context.Background(), userID, basePlanRequest())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	// 14 days x 4h = 56h available, 80% of that is study time
	if plan.TotalStudyHours != 44 {
		t.Errorf("Expected 44 study hours, got %d", plan.TotalStudyHours)
	}
	if plan.AIGenerated {
		t.Error("Plan should not be marked AI-generated without an allocator")
	}
	if plan.Title != "Plano de Estudos - Concurso TRT 4ª Região" {
		t.Errorf("Unexpected title: %q", plan.Title)
	}
	if plan.Description == "" {
		t.Error("Expected a default description")
	}

	weightSum, hourSum := 0, 0
	for _, s := range plan.Subjects {
		if s.ID == uuid.Nil {
			t.Error("Subject was not assigned an ID")
		}
		weightSum += s.WeightPercentage
		hourSum += s.EstimatedHours
	}
	if weightSum != 100 {
		t.Errorf("Subject weights sum to %d, want 100", weightSum)
	}
	if hourSum != plan.TotalStudyHours {
		t.Errorf("Subject hours sum to %d, want %d", hourSum, plan.TotalStudyHours)
	}

	if len(plan.Schedule) == 0 {
		t.Fatal("Expected a non-empty schedule")
	}

	subjectIDs := make(map[uuid.UUID]bool)
	for _, s := range plan.Subjects {
		subjectIDs[s.ID] = true
	}

	var prevDate time.Time
	prevEnd := ""
	for _, item := range plan.Schedule {
		wd := item.ScheduledDate.Weekday()
		if wd == time.Saturday || wd == time.Sunday {
			t.Errorf("Session scheduled on a weekend: %s", item.ScheduledDate.Format("2006-01-02"))
		}
		if item.ScheduledDate.Before(prevDate) {
			t.Error("Schedule items are not in date order")
		}
		if item.DurationMinutes < 25 || item.DurationMinutes > 90 {
			t.Errorf("Session duration %d outside 25-90 range", item.DurationMinutes)
		}
		if !subjectIDs[item.SubjectID] {
			t.Error("Schedule item references an unknown subject")
		}

		// HH:MM strings compare lexicographically within a day
		if item.ScheduledDate.Equal(prevDate) && item.StartTime < prevEnd {
			t.Errorf("Overlapping sessions: start %s before previous end %s", item.StartTime, prevEnd)
		}
		prevDate = item.ScheduledDate
		prevEnd = item.EndTime
	}

	// Everything was persisted through the store
	if len(plans.subjects[plan.ID]) != len(plan.Subjects) {
		t.Error("Subjects were not persisted")
	}
	if len(plans.scheduleItems[plan.ID]) != len(plan.Schedule) {
		t.Error("Schedule was not persisted")
	}
}

func TestGenerateRejectsPastExamDate(t *testing.T) {
	svc := newTestService(newFakePlanStore(), &fakeSessionStore{}, nil)

	req := basePlanRequest()
	req.ExamDate = time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC)

	_, err := svc.Generate(context.Background(), uuid.New(), req)
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("Expected ValidationError, got %v", err)
	}
	if vErr.Fields["exam_date"] == "" {
		t.Error("Expected exam_date field error")
	}
}

func TestGenerateValidation(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*models.StudyPlanRequest)
		badField string
	}{
		{"missing exam name", func(r *models.StudyPlanRequest) { r.ExamName = "  " }, "exam_name"},
		{"no subjects", func(r *models.StudyPlanRequest) { r.Subjects = nil }, "subjects"},
		{"zero hours", func(r *models.StudyPlanRequest) { r.AvailableHoursPerDay = 0 }, "available_hours_per_day"},
		{"too many hours", func(r *models.StudyPlanRequest) { r.AvailableHoursPerDay = 25 }, "available_hours_per_day"},
		{"bad level", func(r *models.StudyPlanRequest) { r.CurrentLevel = "expert" }, "current_level"},
	}

	svc := newTestService(newFakePlanStore(), &fakeSessionStore{}, nil)

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := basePlanRequest()
			tc.mutate(&req)

			_, err := svc.Generate(context.Background(), uuid.New(), req)
			var vErr *ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("Expected ValidationError, got %v", err)
			}
			if vErr.Fields[tc.badField] == "" {
				t.Errorf("Expected field error for %q, got %v", tc.badField, vErr.Fields)
			}
		})
	}
}

func TestGenerateUsesAIAllocation(t *testing.T) {
	ai := &fakeAllocator{
		enabled: true,
		alloc: &models.AIPlanAllocation{
			Title:       "Plano TRT Intensivo",
			Description: "Foco em Direito Constitucional",
			Subjects: []models.AIPlanSubjectItem{
				{Name: "direito constitucional", Weight: 50, Difficulty: "hard", Priority: 5},
				{Name: "Português", Weight: 30, Difficulty: "medium", Priority: 3},
				{Name: "raciocínio lógico", Weight: 20, Difficulty: "easy", Priority: 2},
			},
		},
	}

	svc := newTestService(newFakePlanStore(), &fakeSessionStore{}, ai)

	plan, err := svc.Generate(context.Background(), uuid.New(), basePlanRequest())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if !plan.AIGenerated {
		t.Error("Plan should be marked AI-generated")
	}
	if plan.Title != "Plano TRT Intensivo" {
		t.Errorf("Expected AI title, got %q", plan.Title)
	}
	if plan.Description != "Foco em Direito Constitucional" {
		t.Errorf("Expected AI description, got %q", plan.Description)
	}

	hourSum := 0
	for _, s := range plan.Subjects {
		hourSum += s.EstimatedHours
	}
	if hourSum != plan.TotalStudyHours {
		t.Errorf("AI hours not renormalized: sum %d, want %d", hourSum, plan.TotalStudyHours)
	}

	// Subjects keep the names the user asked for, not the AI's casing
	if plan.Subjects[0].SubjectName != "Direito Constitucional" {
		t.Errorf("Expected requested subject name, got %q", plan.Subjects[0].SubjectName)
	}
	if plan.Subjects[0].Difficulty != "hard" || plan.Subjects[0].Priority != 5 {
		t.Errorf("AI difficulty/priority not carried over: %+v", plan.Subjects[0])
	}
}

func TestGenerateFallsBackWhenAIAllocationUnusable(t *testing.T) {
	tests := []struct {
		name  string
		alloc *models.AIPlanAllocation
		err   error
	}{
		{"allocator error", nil, errors.New("model overloaded")},
		{"missing subject", &models.AIPlanAllocation{
			Subjects: []models.AIPlanSubjectItem{
				{Name: "Matemática", Weight: 100},
			},
		}, nil},
		{"zero weights", &models.AIPlanAllocation{
			Subjects: []models.AIPlanSubjectItem{
				{Name: "Direito Constitucional", Weight: 0},
				{Name: "Português", Weight: 0},
				{Name: "Raciocínio Lógico", Weight: 0},
			},
		}, nil},
		{"negative weight", &models.AIPlanAllocation{
			Subjects: []models.AIPlanSubjectItem{
				{Name: "Direito Constitucional", Weight: -10},
				{Name: "Português", Weight: 60},
				{Name: "Raciocínio Lógico", Weight: 50},
			},
		}, nil},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ai := &fakeAllocator{enabled: true, alloc: tc.alloc, err: tc.err}
			svc := newTestService(newFakePlanStore(), &fakeSessionStore{}, ai)

			plan, err := svc.Generate(context.Background(), uuid.New(), basePlanRequest())
			if err != nil {
				t.Fatalf("Generate failed: %v", err)
			}
			if plan.AIGenerated {
				t.Error("Unusable AI allocation must fall back to the calculator")
			}

			hourSum := 0
			for _, s := range plan.Subjects {
				hourSum += s.EstimatedHours
			}
			if hourSum != plan.TotalStudyHours {
				t.Errorf("Fallback hours sum to %d, want %d", hourSum, plan.TotalStudyHours)
			}
		})
	}
}

// ─── Get / Delete ───

func TestGetChecksOwnership(t *testing.T) {
	plans := newFakePlanStore()
	svc := newTestService(plans, &fakeSessionStore{}, nil)
	owner := uuid.New()

	plan, err := svc.Generate(context.Background(), owner, basePlanRequest())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if _, err := svc.Get(context.Background(), owner, plan.ID); err != nil {
		t.Errorf("Owner should be able to read the plan: %v", err)
	}

	_, err = svc.Get(context.Background(), uuid.New(), plan.ID)
	var fErr *ForbiddenError
	if !errors.As(err, &fErr) {
		t.Errorf("Expected ForbiddenError for another user, got %v", err)
	}

	_, err = svc.Get(context.Background(), owner, uuid.New())
	var nfErr *NotFoundError
	if !errors.As(err, &nfErr) {
		t.Errorf("Expected NotFoundError for missing plan, got %v", err)
	}
}

func TestDeleteChecksOwnership(t *testing.T) {
	plans := newFakePlanStore()
	svc := newTestService(plans, &fakeSessionStore{}, nil)
	owner := uuid.New()

	plan, err := svc.Generate(context.Background(), owner, basePlanRequest())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	err = svc.Delete(context.Background(), uuid.New(), plan.ID)
	var fErr *ForbiddenError
	if !errors.As(err, &fErr) {
		t.Errorf("Expected ForbiddenError, got %v", err)
	}
	if len(plans.deleted) != 0 {
		t.Error("Plan must not be deleted by a non-owner")
	}

	if err := svc.Delete(context.Background(), owner, plan.ID); err != nil {
		t.Errorf("Owner delete failed: %v", err)
	}
	if len(plans.deleted) != 1 {
		t.Error("Plan was not deleted")
	}
}

// ─── RecordSession ───

func recordSetup(t *testing.T) (*StudyPlanService, *fakeSessionStore, uuid.UUID, *models.StudyPlan) {
	t.Helper()
	plans := newFakePlanStore()
	sessions := &fakeSessionStore{}
	svc := newTestService(plans, sessions, nil)
	owner := uuid.New()

	plan, err := svc.Generate(context.Background(), owner, basePlanRequest())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	return svc, sessions, owner, plan
}

func TestRecordSessionTooShort(t *testing.T) {
	svc, sessions, owner, plan := recordSetup(t)

	_, err := svc.RecordSession(context.Background(), owner, models.RecordSessionRequest{
		PlanID:          plan.ID,
		SubjectID:       plan.Subjects[0].ID,
		DurationSeconds: 30,
	})
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("Expected ValidationError, got %v", err)
	}
	if len(sessions.recorded) != 0 {
		t.Error("Short session must not be recorded")
	}
}

func TestRecordSessionOwnership(t *testing.T) {
	svc, sessions, _, plan := recordSetup(t)

	_, err := svc.RecordSession(context.Background(), uuid.New(), models.RecordSessionRequest{
		PlanID:          plan.ID,
		SubjectID:       plan.Subjects[0].ID,
		DurationSeconds: 1800,
	})
	var fErr *ForbiddenError
	if !errors.As(err, &fErr) {
		t.Fatalf("Expected ForbiddenError, got %v", err)
	}
	if len(sessions.recorded) != 0 {
		t.Error("Session must not be recorded for a non-owner")
	}
}

func TestRecordSessionSubjectMustBelongToPlan(t *testing.T) {
	plans := newFakePlanStore()
	sessions := &fakeSessionStore{}
	svc := newTestService(plans, sessions, nil)
	owner := uuid.New()

	planA, err := svc.Generate(context.Background(), owner, basePlanRequest())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	planB, err := svc.Generate(context.Background(), owner, basePlanRequest())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	_, err = svc.RecordSession(context.Background(), owner, models.RecordSessionRequest{
		PlanID:          planA.ID,
		SubjectID:       planB.Subjects[0].ID,
		DurationSeconds: 1800,
	})
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("Expected ValidationError, got %v", err)
	}
	if vErr.Fields["subject_id"] == "" {
		t.Error("Expected subject_id field error")
	}
}

func TestRecordSessionCreditsHours(t *testing.T) {
	svc, sessions, owner, plan := recordSetup(t)

	session, err := svc.RecordSession(context.Background(), owner, models.RecordSessionRequest{
		PlanID:          plan.ID,
		SubjectID:       plan.Subjects[0].ID,
		DurationSeconds: 120,
	})
	if err != nil {
		t.Fatalf("RecordSession failed: %v", err)
	}

	if session.SessionType != "study" {
		t.Errorf("Expected default session type 'study', got %q", session.SessionType)
	}
	if len(sessions.hours) != 1 || sessions.hours[0] != 0.03 {
		t.Errorf("Expected 0.03 credited hours for 120s, got %v", sessions.hours)
	}
	if session.EndedAt.Sub(session.StartedAt) != 120*time.Second {
		t.Error("Derived start/end do not span the session duration")
	}
	// The notes column is NOT NULL; a request without notes must store "".
	if session.Notes != "" {
		t.Errorf("Expected empty notes for a plain timer session, got %q", session.Notes)
	}
}

func TestRecordSessionKeepsNotes(t *testing.T) {
	svc, sessions, owner, plan := recordSetup(t)

	session, err := svc.RecordSession(context.Background(), owner, models.RecordSessionRequest{
		PlanID:          plan.ID,
		SubjectID:       plan.Subjects[0].ID,
		DurationSeconds: 1800,
		Notes:           "Revisão de controle de constitucionalidade",
	})
	if err != nil {
		t.Fatalf("RecordSession failed: %v", err)
	}

	if session.Notes != "Revisão de controle de constitucionalidade" {
		t.Errorf("Notes not carried onto the session, got %q", session.Notes)
	}
	if len(sessions.recorded) != 1 || sessions.recorded[0].Notes != session.Notes {
		t.Error("Stored session does not carry the request notes")
	}
}

func TestRecordSessionDerivesDurationFromInterval(t *testing.T) {
	svc, sessions, owner, plan := recordSetup(t)

	started := time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)
	session, err := svc.RecordSession(context.Background(), owner, models.RecordSessionRequest{
		PlanID:      plan.ID,
		SubjectID:   plan.Subjects[0].ID,
		StartedAt:   started,
		EndedAt:     started.Add(45 * time.Minute),
		SessionType: "review",
	})
	if err != nil {
		t.Fatalf("RecordSession failed: %v", err)
	}

	if session.DurationSeconds != 2700 {
		t.Errorf("Expected 2700s derived duration, got %d", session.DurationSeconds)
	}
	if session.SessionType != "review" {
		t.Errorf("Expected session type 'review', got %q", session.SessionType)
	}
	if len(sessions.hours) != 1 || sessions.hours[0] != 0.75 {
		t.Errorf("Expected 0.75 credited hours, got %v", sessions.hours)
	}
}

func TestRecordSessionRejectsUnknownType(t *testing.T) {
	svc, _, owner, plan := recordSetup(t)

	_, err := svc.RecordSession(context.Background(), owner, models.RecordSessionRequest{
		PlanID:          plan.ID,
		SubjectID:       plan.Subjects[0].ID,
		DurationSeconds: 1800,
		SessionType:     "cramming",
	})
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("Expected ValidationError, got %v", err)
	}
}
