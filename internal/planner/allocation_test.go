package planner

import (
	"errors"
	"fmt"
	"testing"
)

func TestAllocateWeightsSumTo100(t *testing.T) {
	cases := []struct {
		name     string
		subjects []string
		level    string
		focus    []string
	}{
		{"known subjects", []string{"Direito Constitucional", "Direito Administrativo", "Português"}, "intermediate", nil},
		{"beginner boost", []string{"Direito Constitucional", "Direito Administrativo", "Português"}, "beginner", nil},
		{"advanced boost", []string{"Direito Constitucional", "Português", "Matemática"}, "advanced", nil},
		{"with focus", []string{"Direito Constitucional", "Direito Administrativo", "Português"}, "intermediate", []string{"Português"}},
		{"unknown subjects", []string{"Física", "Química"}, "intermediate", nil},
		{"single subject", []string{"Português"}, "beginner", nil},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			subjects, err := Allocate(tc.subjects, 100, tc.level, tc.focus)
			if err != nil {
				t.Fatalf("Allocate failed: %v", err)
			}

			sum := 0
			for _, s := range subjects {
				sum += s.Weight
			}
			if sum != 100 {
				t.Errorf("weights sum to %d, want 100", sum)
			}
		})
	}
}

func TestAllocateHoursSumToBudget(t *testing.T) {
	for _, budget := range []int{32, 100, 250, 7} {
		subjects, err := Allocate([]string{"Direito Constitucional", "Direito Administrativo", "Português"}, budget, "intermediate", nil)
		if err != nil {
			t.Fatalf("Allocate failed: %v", err)
		}

		sum := 0
		for _, s := range subjects {
			sum += s.EstimatedHours
			if s.EstimatedHours < 0 {
				t.Errorf("budget %d: subject %s got negative hours %d", budget, s.Name, s.EstimatedHours)
			}
		}
		if sum != budget {
			t.Errorf("budget %d: hours sum to %d", budget, sum)
		}
	}
}

func TestAllocateBeginnerFavorsFoundational(t *testing.T) {
	subjects, err := Allocate([]string{"Direito Constitucional", "Direito Administrativo", "Português"}, 100, "beginner", nil)
	if err != nil {
		t.Fatalf("Allocate failed: %v", err)
	}

	byName := map[string]Subject{}
	for _, s := range subjects {
		byName[s.Name] = s
	}

	// Português is 15 at base vs 20/25 for the law subjects; the beginner
	// adjustment has to flip that ordering.
	if byName["Português"].Weight <= byName["Direito Administrativo"].Weight {
		t.Errorf("beginner allocation kept Português at %d%% below Direito Administrativo at %d%%",
			byName["Português"].Weight, byName["Direito Administrativo"].Weight)
	}
}

func TestAllocateFocusBoost(t *testing.T) {
	without, _ := Allocate([]string{"Direito Constitucional", "Direito Administrativo", "Português"}, 100, "intermediate", nil)
	with, _ := Allocate([]string{"Direito Constitucional", "Direito Administrativo", "Português"}, 100, "intermediate", []string{"português"})

	if with[2].Weight <= without[2].Weight {
		t.Errorf("focus boost did not raise Português: %d%% vs %d%% without", with[2].Weight, without[2].Weight)
	}
}

func TestAllocateUnknownSubjectsSplitEvenly(t *testing.T) {
	subjects, err := Allocate([]string{"Física", "Química"}, 32, "intermediate", nil)
	if err != nil {
		t.Fatalf("Allocate failed: %v", err)
	}

	if subjects[0].Weight != 50 || subjects[1].Weight != 50 {
		t.Errorf("got weights %d/%d, want 50/50", subjects[0].Weight, subjects[1].Weight)
	}
	if subjects[0].EstimatedHours+subjects[1].EstimatedHours != 32 {
		t.Errorf("hours %d+%d do not cover the 32h budget", subjects[0].EstimatedHours, subjects[1].EstimatedHours)
	}
}

func TestAllocateErrors(t *testing.T) {
	if _, err := Allocate(nil, 100, "beginner", nil); !errors.Is(err, ErrNoSubjects) {
		t.Errorf("empty subjects: got %v, want ErrNoSubjects", err)
	}
	if _, err := Allocate([]string{"Português"}, 0, "beginner", nil); !errors.Is(err, ErrNoBudget) {
		t.Errorf("zero budget: got %v, want ErrNoBudget", err)
	}
}

func TestDistributeHoursFloor(t *testing.T) {
	// 2% weights would round to 2h out of 100; the 5% floor lifts them and
	// the first subject absorbs the difference.
	hours := DistributeHours([]int{96, 2, 2}, 100)

	if hours[1] != 5 || hours[2] != 5 {
		t.Errorf("small subjects got %d/%d hours, want the 5h floor", hours[1], hours[2])
	}
	if hours[0]+hours[1]+hours[2] != 100 {
		t.Errorf("hours sum to %d, want 100", hours[0]+hours[1]+hours[2])
	}
}

func TestDistributeHoursFloorOvershootShaved(t *testing.T) {
	// Budget 20 has a 1h floor; lifting the five 4% subjects adds an hour
	// over budget, which must come back out of the largest allocation.
	hours := DistributeHours([]int{80, 4, 4, 4, 4, 4}, 20)

	sum := 0
	for i, h := range hours {
		sum += h
		if h < 1 {
			t.Errorf("subject %d got %d hours, want at least the 1h floor", i, h)
		}
	}
	if sum != 20 {
		t.Errorf("hours sum to %d, want 20", sum)
	}
	if hours[0] != 15 {
		t.Errorf("largest subject got %d hours after shaving, want 15", hours[0])
	}
}

func TestAllocateManySubjectsStaysOnBudget(t *testing.T) {
	// With 25 subjects the 5% floor cannot fit inside the budget and has to
	// be abandoned rather than inflate the total.
	names := make([]string, 25)
	for i := range names {
		names[i] = fmt.Sprintf("Disciplina %d", i+1)
	}

	subjects, err := Allocate(names, 100, "intermediate", nil)
	if err != nil {
		t.Fatalf("Allocate failed: %v", err)
	}

	wsum, hsum := 0, 0
	for _, s := range subjects {
		wsum += s.Weight
		hsum += s.EstimatedHours
		if s.EstimatedHours < 0 {
			t.Errorf("subject %s got negative hours %d", s.Name, s.EstimatedHours)
		}
	}
	if wsum != 100 {
		t.Errorf("weights sum to %d, want 100", wsum)
	}
	if hsum != 100 {
		t.Errorf("hours sum to %d, want the 100h budget", hsum)
	}
}

func TestPriorityForWeight(t *testing.T) {
	cases := []struct {
		weight, want int
	}{
		{25, 5}, {20, 5}, {19, 4}, {15, 4}, {14, 3}, {10, 3}, {9, 2}, {5, 2}, {4, 1}, {0, 1},
	}
	for _, tc := range cases {
		if got := PriorityForWeight(tc.weight); got != tc.want {
			t.Errorf("PriorityForWeight(%d) = %d, want %d", tc.weight, got, tc.want)
		}
	}
}
