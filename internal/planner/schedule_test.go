package planner

import (
	"strings"
	"testing"
)

func TestAddMinutes(t *testing.T) {
	cases := []struct {
		clock   string
		minutes int
		want    string
	}{
		{"09:00", 90, "10:30"},
		{"09:00", 0, "09:00"},
		{"23:30", 45, "00:15"},
		{"00:00", 1440, "00:00"},
		{"10:45", 80, "12:05"},
	}
	for _, tc := range cases {
		if got := AddMinutes(tc.clock, tc.minutes); got != tc.want {
			t.Errorf("AddMinutes(%q, %d) = %q, want %q", tc.clock, tc.minutes, got, tc.want)
		}
	}
}

func threeSubjects() []Subject {
	return []Subject{
		{Name: "Direito Constitucional", Weight: 34, EstimatedHours: 34, Difficulty: "medium", Priority: 5},
		{Name: "Direito Administrativo", Weight: 41, EstimatedHours: 41, Difficulty: "medium", Priority: 5},
		{Name: "Português", Weight: 25, EstimatedHours: 25, Difficulty: "medium", Priority: 5},
	}
}

func TestScheduleDayInitialPhase(t *testing.T) {
	c := BuildCycles(100)
	sessions := ScheduleDay(threeSubjects(), c.PhaseFor(0), 0, 240, DefaultStartTime)

	if len(sessions) != 3 {
		t.Fatalf("got %d sessions, want 3", len(sessions))
	}

	wantDurations := []int{90, 80, 40}
	for i, s := range sessions {
		if s.DurationMinutes != wantDurations[i] {
			t.Errorf("session %d lasts %d min, want %d", i, s.DurationMinutes, wantDurations[i])
		}
		if s.SessionType != "study" {
			t.Errorf("session %d type %q, want study", i, s.SessionType)
		}
		if !strings.HasPrefix(s.Topic, "Fundamentos de ") {
			t.Errorf("session %d topic %q lacks the study prefix", i, s.Topic)
		}
	}

	if sessions[0].StartTime != "09:00" || sessions[0].EndTime != "10:30" {
		t.Errorf("first session %s-%s, want 09:00-10:30", sessions[0].StartTime, sessions[0].EndTime)
	}
	// 15-minute break after a 90-minute block.
	if sessions[1].StartTime != "10:45" {
		t.Errorf("second session starts %s, want 10:45", sessions[1].StartTime)
	}
}

func TestScheduleDaySessionBounds(t *testing.T) {
	c := BuildCycles(100)
	subjects := threeSubjects()

	for day := 0; day < c.TotalWorkDays; day++ {
		for _, s := range ScheduleDay(subjects, c.PhaseFor(day), day, 300, DefaultStartTime) {
			if s.DurationMinutes < MinSessionMinutes || s.DurationMinutes > MaxSessionMinutes {
				t.Fatalf("day %d: session of %d min outside [%d,%d]", day, s.DurationMinutes, MinSessionMinutes, MaxSessionMinutes)
			}
		}
	}
}

func TestScheduleDayNoOverlap(t *testing.T) {
	c := BuildCycles(100)
	sessions := ScheduleDay(threeSubjects(), c.PhaseFor(0), 0, 480, DefaultStartTime)

	// HH:MM strings compare lexicographically within a day.
	for i := 1; i < len(sessions); i++ {
		if sessions[i].StartTime < sessions[i-1].EndTime {
			t.Errorf("session %d starts %s before previous ends %s", i, sessions[i].StartTime, sessions[i-1].EndTime)
		}
	}
}

func TestScheduleDayDropsShortLeftovers(t *testing.T) {
	c := BuildCycles(100)
	final := c.PhaseFor(99) // 0.7 multiplier

	sessions := ScheduleDay(threeSubjects(), final, 99, 60, DefaultStartTime)

	// 60 minutes across three subjects at 0.7 leaves only the last split
	// above the 25-minute floor.
	if len(sessions) != 1 {
		t.Fatalf("got %d sessions, want 1", len(sessions))
	}
	if sessions[0].DurationMinutes != 42 {
		t.Errorf("session lasts %d min, want 42", sessions[0].DurationMinutes)
	}
	if !strings.HasPrefix(sessions[0].Topic, "Revisão final de ") {
		t.Errorf("topic %q lacks the final review prefix", sessions[0].Topic)
	}
}

func TestScheduleDayDeepPhaseAlternatesDifficulty(t *testing.T) {
	subjects := []Subject{
		{Name: "Direito Constitucional", Weight: 40, Difficulty: "hard", Priority: 5},
		{Name: "Português", Weight: 35, Difficulty: "easy", Priority: 4},
		{Name: "Informática", Weight: 25, Difficulty: "medium", Priority: 3},
	}
	c := BuildCycles(100)
	deep := c.PhaseFor(48)

	even := ScheduleDay(subjects, deep, 48, 240, DefaultStartTime)
	odd := ScheduleDay(subjects, deep, 49, 240, DefaultStartTime)

	if even[0].SubjectIndex != 0 {
		t.Errorf("even day opened with subject %d, want the hard one", even[0].SubjectIndex)
	}
	if odd[0].SubjectIndex != 1 {
		t.Errorf("odd day opened with subject %d, want the easy one", odd[0].SubjectIndex)
	}
	for _, s := range even {
		if s.SessionType != "practice" {
			t.Errorf("deep phase session type %q, want practice", s.SessionType)
		}
	}
}

func TestScheduleDayEmptyInputs(t *testing.T) {
	c := BuildCycles(100)
	if got := ScheduleDay(nil, c.PhaseFor(0), 0, 240, DefaultStartTime); got != nil {
		t.Errorf("nil subjects produced %d sessions", len(got))
	}
	if got := ScheduleDay(threeSubjects(), c.PhaseFor(0), 0, 0, DefaultStartTime); got != nil {
		t.Errorf("zero minutes produced %d sessions", len(got))
	}
}
