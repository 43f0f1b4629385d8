package services

import (
	"context"
	"errors"
	"testing"

	"aprovaai-backend/internal/models"
)

func disabledAIService(t *testing.T) *AIService {
	t.Helper()
	s, err := NewAIService("", 5, nil)
	if err != nil {
		t.Fatalf("NewAIService failed: %v", err)
	}
	return s
}

func TestDisabledServiceDegrades(t *testing.T) {
	s := disabledAIService(t)

	if s.Enabled() {
		t.Error("Service without an API key must report disabled")
	}

	if _, err := s.GenerateSummary(context.Background(), longContent("constituição "), models.SummaryOptions{}); !errors.Is(err, ErrAIDisabled) {
		t.Errorf("Expected ErrAIDisabled from GenerateSummary, got %v", err)
	}
	if _, err := s.AnalyzeEdital(context.Background(), longContent("edital ")); !errors.Is(err, ErrAIDisabled) {
		t.Errorf("Expected ErrAIDisabled from AnalyzeEdital, got %v", err)
	}
	if _, err := s.PlanAllocation(context.Background(), models.StudyPlanRequest{}); !errors.Is(err, ErrAIDisabled) {
		t.Errorf("Expected ErrAIDisabled from PlanAllocation, got %v", err)
	}

	// Classification degrades to keyword heuristics instead of failing
	category := s.Categorize(context.Background(), "A constituição federal garante direitos fundamentais")
	if category != "Direito Constitucional" {
		t.Errorf("Expected fallback category, got %q", category)
	}
}

func longContent(word string) string {
	out := ""
	for len(out) < 200 {
		out += word
	}
	return out
}

func TestFallbackCategory(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		expected string
	}{
		{
			"two keyword hits win",
			"A constituição define os direitos fundamentais do cidadão",
			"Direito Constitucional",
		},
		{
			"single hit used when nothing scores twice",
			"O edital exige conhecimentos de gramática atualizada",
			"Português",
		},
		{
			"first double hit beats later single hits",
			"Licitação e contrato administrativo, além de gramática",
			"Direito Administrativo",
		},
		{
			"no keywords falls back to Outros",
			"Texto genérico sem termos reconhecíveis de prova",
			"Outros",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := fallbackCategory(tc.content); got != tc.expected {
				t.Errorf("fallbackCategory() = %q, want %q", got, tc.expected)
			}
		})
	}
}

func TestFallbackTagsCapsAtFive(t *testing.T) {
	content := "Os princípios e conceitos da lei exigem que o artigo trate do direito e da administração do servidor"

	tags := fallbackTags(content)
	if len(tags) != 5 {
		t.Fatalf("Expected 5 tags, got %d: %v", len(tags), tags)
	}
	if tags[0] != "princípios" {
		t.Errorf("Expected first tag 'princípios', got %q", tags[0])
	}
}

func TestFallbackTagsEmptyForUnrelatedText(t *testing.T) {
	if tags := fallbackTags("nothing relevant here"); len(tags) != 0 {
		t.Errorf("Expected no tags, got %v", tags)
	}
}

func TestFallbackEditalAnalysis(t *testing.T) {
	content := "Edital do concurso: serão cobradas as disciplinas de direito constitucional, português e informática."

	analysis := fallbackEditalAnalysis(content)

	if len(analysis.Subjects) != 3 {
		t.Fatalf("Expected 3 detected subjects, got %d", len(analysis.Subjects))
	}
	for _, s := range analysis.Subjects {
		if s.Weight != 3 {
			t.Errorf("Fallback subject weight should be 3, got %d", s.Weight)
		}
	}
	if analysis.SuggestedHours != "4" {
		t.Errorf("Expected suggested hours '4', got %q", analysis.SuggestedHours)
	}
	if analysis.DifficultyLevel != "medium" {
		t.Errorf("Expected medium difficulty, got %q", analysis.DifficultyLevel)
	}
}

func TestFallbackEditalAnalysisDefaultSubjects(t *testing.T) {
	analysis := fallbackEditalAnalysis("documento sem disciplinas reconhecíveis")

	if len(analysis.Subjects) != 2 {
		t.Fatalf("Expected 2 default subjects, got %d", len(analysis.Subjects))
	}
	if analysis.Subjects[0].Name != "Português" || analysis.Subjects[0].Weight != 4 {
		t.Errorf("Unexpected default subject: %+v", analysis.Subjects[0])
	}
}

func TestStripFences(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"bare fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"no fence", `{"a":1}`, `{"a":1}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := stripFences(tc.input); got != tc.expected {
				t.Errorf("stripFences(%q) = %q, want %q", tc.input, got, tc.expected)
			}
		})
	}
}

func TestSalvageJSONObject(t *testing.T) {
	input := `Here is the analysis you asked for: {"exam_name":"TRT"} hope it helps`
	if got := salvageJSONObject(input); got != `{"exam_name":"TRT"}` {
		t.Errorf("salvageJSONObject() = %q", got)
	}

	// Nothing to salvage passes through untouched
	if got := salvageJSONObject("no json at all"); got != "no json at all" {
		t.Errorf("salvageJSONObject() = %q", got)
	}
}

func TestSummaryTokenBudget(t *testing.T) {
	tests := []struct {
		summaryType string
		expected    int32
	}{
		{"short", 800},
		{"medium", 1500},
		{"detailed", 2500},
		{"study_guide", 4000},
		{"", 1500},
		{"unknown", 1500},
	}

	for _, tc := range tests {
		if got := summaryTokenBudget(tc.summaryType); got != tc.expected {
			t.Errorf("summaryTokenBudget(%q) = %d, want %d", tc.summaryType, got, tc.expected)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("abcdef", 4); got != "abcd" {
		t.Errorf("truncate() = %q, want %q", got, "abcd")
	}
	if got := truncate("abc", 10); got != "abc" {
		t.Errorf("truncate() = %q, want %q", got, "abc")
	}
}
