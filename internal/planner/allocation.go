package planner

import (
	"errors"
	"math"
	"strings"
)

// Subject is one entry of a finished allocation: an integer weight out of 100,
// whole hours out of the study budget, and derived metadata used by the
// day scheduler.
type Subject struct {
	Name           string
	Weight         int
	EstimatedHours int
	Difficulty     string
	Priority       int
}

var (
	ErrNoSubjects = errors.New("allocation requires at least one subject")
	ErrNoBudget   = errors.New("allocation requires a positive hour budget")
)

// Base weights for the subjects that dominate Brazilian public exams. Subjects
// outside the table get an equal share of 100.
var baseWeights = map[string]int{
	"Direito Constitucional": 20,
	"Direito Administrativo": 25,
	"Português":              15,
	"Matemática":             10,
	"Raciocínio Lógico":      10,
	"Conhecimentos Gerais":   10,
	"Informática":            10,
}

var foundationalSubjects = map[string]bool{
	"Português":            true,
	"Matemática":           true,
	"Raciocínio Lógico":    true,
	"Conhecimentos Gerais": true,
	"Informática":          true,
}

var advancedSubjects = map[string]bool{
	"Direito Constitucional": true,
	"Direito Administrativo": true,
}

// StudyHours converts the total hours available before the exam into the
// usable study budget. 20% is reserved for rest and life.
func StudyHours(totalAvailableHours float64) int {
	return int(totalAvailableHours * 0.8)
}

// Allocate distributes weights and hours across the requested subjects
// deterministically. Weights come from the base table adjusted by the
// candidate's level and declared focus areas, then are renormalized to sum
// exactly 100; hours follow the weights with a 5%-of-budget floor per subject.
func Allocate(names []string, studyHours int, level string, focusAreas []string) ([]Subject, error) {
	if len(names) == 0 {
		return nil, ErrNoSubjects
	}
	if studyHours <= 0 {
		return nil, ErrNoBudget
	}

	raw := make([]float64, len(names))
	for i, name := range names {
		base, ok := baseWeights[name]
		if !ok {
			base = 100 / len(names)
		}

		w := float64(base)
		w *= levelFactor(level, name)
		if matchesFocus(name, focusAreas) {
			w *= 1.2
		}
		raw[i] = w
	}

	weights := NormalizeWeights(raw)
	hours := DistributeHours(weights, studyHours)

	subjects := make([]Subject, len(names))
	for i, name := range names {
		subjects[i] = Subject{
			Name:           name,
			Weight:         weights[i],
			EstimatedHours: hours[i],
			Difficulty:     "medium",
			Priority:       PriorityForWeight(weights[i]),
		}
	}

	return subjects, nil
}

// levelFactor boosts foundational subjects 30% for beginners and advanced
// subjects 30% for advanced candidates, shrinking the opposite group.
func levelFactor(level, name string) float64 {
	switch level {
	case "beginner":
		if foundationalSubjects[name] {
			return 1.3
		}
		if advancedSubjects[name] {
			return 0.7
		}
	case "advanced":
		if advancedSubjects[name] {
			return 1.3
		}
		if foundationalSubjects[name] {
			return 0.7
		}
	}
	return 1.0
}

func matchesFocus(name string, focusAreas []string) bool {
	for _, focus := range focusAreas {
		if strings.EqualFold(strings.TrimSpace(focus), name) {
			return true
		}
	}
	return false
}

// NormalizeWeights scales raw weights to integer percentages that sum to
// exactly 100. The rounding remainder goes to the first subject.
func NormalizeWeights(raw []float64) []int {
	weights := make([]int, len(raw))
	if len(raw) == 0 {
		return weights
	}

	var total float64
	for _, w := range raw {
		total += w
	}
	if total <= 0 {
		return weights
	}

	sum := 0
	for i, w := range raw {
		weights[i] = int(math.Floor(w / total * 100))
		sum += weights[i]
	}
	weights[0] += 100 - sum

	return weights
}

// DistributeHours splits the hour budget across subjects proportionally to
// their integer weights, with every subject raised to a floor of 5% of the
// budget, and always sums exactly to studyHours. The floor is dropped when
// the subject list is too long for every subject to get 5%.
func DistributeHours(weights []int, studyHours int) []int {
	hours := make([]int, len(weights))
	if len(weights) == 0 {
		return hours
	}

	floor := studyHours * 5 / 100
	if floor*len(weights) > studyHours {
		floor = 0
	}

	sum := 0
	for i, w := range weights {
		hours[i] = studyHours * w / 100
		if hours[i] < floor {
			hours[i] = floor
		}
		sum += hours[i]
	}

	// Lifting subjects to the floor can push the total over budget; shave
	// the excess from the largest allocations, never below the floor.
	for sum > studyHours {
		largest := -1
		for i, h := range hours {
			if h > floor && (largest < 0 || h > hours[largest]) {
				largest = i
			}
		}
		if largest < 0 {
			break
		}
		hours[largest]--
		sum--
	}

	hours[0] += studyHours - sum

	return hours
}

// PriorityForWeight maps an integer weight onto the 1..5 priority scale used
// by the day scheduler.
func PriorityForWeight(weight int) int {
	switch {
	case weight >= 20:
		return 5
	case weight >= 15:
		return 4
	case weight >= 10:
		return 3
	case weight >= 5:
		return 2
	default:
		return 1
	}
}
