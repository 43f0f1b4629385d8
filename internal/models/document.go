package models

import (
	"time"

	"github.com/google/uuid"
)

type Document struct {
	ID          uuid.UUID `json:"id"`
	UserID      uuid.UUID `json:"user_id"`
	Title       string    `json:"title"`
	SourceType  string    `json:"source_type"` // "file" | "url" | "youtube"
	Status      string    `json:"status"`      // "pending" | "processing" | "completed" | "failed"
	SourceURL   *string   `json:"source_url"`
	FilePath    *string   `json:"file_path"`
	Category    *string   `json:"category"`
	Tags        []string  `json:"tags"`
	ContentText *string   `json:"content_text,omitempty"`
	Summary     *string   `json:"summary"`
	SummaryType *string   `json:"summary_type"` // "short" | "medium" | "detailed" | "study_guide"
	WordCount   int       `json:"word_count"`
	IsFavorite  bool      `json:"is_favorite"`
	CreatedAt   time.Time `json:"created_at"`
}

type IngestURLRequest struct {
	URL         string `json:"url"`
	SummaryType string `json:"summary_type"`
	Tone        string `json:"tone"`
}

type SummaryOptions struct {
	Type     string `json:"type"` // "short" | "medium" | "detailed" | "study_guide"
	Tone     string `json:"tone"` // "formal" | "casual" | "simple"
	Language string `json:"language"`
}

// EditalAnalysis is the structured result of analyzing a public-exam
// announcement (edital) with the AI service.
type EditalAnalysis struct {
	ExamName        string          `json:"exam_name"`
	Agency          string          `json:"agency"`
	Role            string          `json:"role"`
	ExamDate        string          `json:"exam_date"` // YYYY-MM-DD when available
	Subjects        []EditalSubject `json:"subjects"`
	SuggestedHours  string          `json:"suggested_hours_per_day"`
	DifficultyLevel string          `json:"difficulty_level"` // "easy" | "medium" | "hard"
	Notes           string          `json:"notes"`
}

type EditalSubject struct {
	Name   string   `json:"name"`
	Weight int      `json:"weight"` // 1-5
	Topics []string `json:"topics"`
}
