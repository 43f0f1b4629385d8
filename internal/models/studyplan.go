package models

import (
	"time"

	"github.com/google/uuid"
)

type StudyPlan struct {
	ID              uuid.UUID      `json:"id"`
	UserID          uuid.UUID      `json:"user_id"`
	Title           string         `json:"title"`
	Description     string         `json:"description"`
	ExamName        string         `json:"exam_name"`
	ExamDate        time.Time      `json:"exam_date"`
	TotalStudyHours int            `json:"total_study_hours"`
	DailyStudyHours float64        `json:"daily_study_hours"`
	AIGenerated     bool           `json:"ai_generated"`
	Subjects        []PlanSubject  `json:"subjects"`
	Schedule        []ScheduleItem `json:"schedule"`
	CreatedAt       time.Time      `json:"created_at"`
}

type PlanSubject struct {
	ID               uuid.UUID `json:"id"`
	PlanID           uuid.UUID `json:"plan_id"`
	SubjectName      string    `json:"subject_name"`
	WeightPercentage int       `json:"weight_percentage"`
	EstimatedHours   int       `json:"estimated_hours"`
	CompletedHours   float64   `json:"completed_hours"`
	Difficulty       string    `json:"difficulty"` // "easy" | "medium" | "hard"
	Priority         int       `json:"priority"`   // 1-5
}

type ScheduleItem struct {
	ID              uuid.UUID `json:"id"`
	PlanID          uuid.UUID `json:"plan_id"`
	SubjectID       uuid.UUID `json:"subject_id"`
	ScheduledDate   time.Time `json:"scheduled_date"`
	StartTime       string    `json:"start_time"` // "HH:MM"
	EndTime         string    `json:"end_time"`   // "HH:MM"
	DurationMinutes int       `json:"duration_minutes"`
	SessionType     string    `json:"session_type"` // "study" | "review" | "practice" | "break"
	Topic           string    `json:"topic"`
	Completed       bool      `json:"completed"`
}

type StudyPlanRequest struct {
	ExamName             string    `json:"exam_name"`
	ExamDate             time.Time `json:"exam_date"`
	AvailableHoursPerDay float64   `json:"available_hours_per_day"`
	Subjects             []string  `json:"subjects"`
	CurrentLevel         string    `json:"current_level"` // "beginner" | "intermediate" | "advanced"
	FocusAreas           []string  `json:"focus_areas,omitempty"`
}

// StudySession is one timer-tracked study interval logged against a plan
// subject. Rows are append-only; progress lives on the subject.
type StudySession struct {
	ID              uuid.UUID `json:"id"`
	UserID          uuid.UUID `json:"user_id"`
	PlanID          uuid.UUID `json:"plan_id"`
	SubjectID       uuid.UUID `json:"subject_id"`
	StartedAt       time.Time `json:"started_at"`
	EndedAt         time.Time `json:"ended_at"`
	DurationSeconds int       `json:"duration_seconds"`
	SessionType     string    `json:"session_type"`
	Notes           string    `json:"notes"`
	CreatedAt       time.Time `json:"created_at"`
}

type RecordSessionRequest struct {
	PlanID          uuid.UUID `json:"plan_id"`
	SubjectID       uuid.UUID `json:"subject_id"`
	StartedAt       time.Time `json:"started_at"`
	EndedAt         time.Time `json:"ended_at"`
	DurationSeconds int       `json:"duration_seconds"`
	SessionType     string    `json:"session_type"`
	Notes           string    `json:"notes"`
}

// AIPlanAllocation is the untrusted JSON shape the AI service is asked to
// return for plan generation. It is structurally validated and arithmetically
// corrected before anything is persisted.
type AIPlanAllocation struct {
	Title       string              `json:"title"`
	Description string              `json:"description"`
	TotalHours  float64             `json:"total_hours"`
	Subjects    []AIPlanSubjectItem `json:"subjects"`
}

type AIPlanSubjectItem struct {
	Name       string  `json:"name"`
	Weight     float64 `json:"weight"`
	Hours      float64 `json:"hours"`
	Difficulty string  `json:"difficulty"`
	Priority   int     `json:"priority"`
}
