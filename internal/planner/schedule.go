package planner

import (
	"fmt"
	"sort"
)

const (
	// MinSessionMinutes is the shortest session worth scheduling; leftovers
	// smaller than this are dropped rather than emitted.
	MinSessionMinutes = 25
	// MaxSessionMinutes caps any single session regardless of phase boosts.
	MaxSessionMinutes = 90

	longBreakMinutes  = 15
	shortBreakMinutes = 5
)

// Session is one scheduled block inside a day. SubjectIndex points back into
// the subjects slice passed to ScheduleDay.
type Session struct {
	SubjectIndex    int
	StartTime       string
	EndTime         string
	DurationMinutes int
	SessionType     string
	Topic           string
}

// ScheduleDay fills one work day with sessions. Subjects are visited in a
// phase-dependent order; each gets an even split of the remaining minutes,
// adjusted by its difficulty and the phase multiplier and clamped to the
// session bounds. Breaks advance the clock after every session but are not
// emitted as blocks.
func ScheduleDay(subjects []Subject, phase Phase, workDay, dailyMinutes int, startTime string) []Session {
	if len(subjects) == 0 || dailyMinutes <= 0 {
		return nil
	}
	if startTime == "" {
		startTime = DefaultStartTime
	}

	order := dayOrder(subjects, phase, workDay)

	clock := startTime
	remaining := dailyMinutes
	var sessions []Session

	for pos, idx := range order {
		if remaining <= 0 {
			break
		}

		target := remaining / (len(order) - pos)
		adjusted := int(float64(target) * difficultyMultiplier(subjects[idx].Difficulty) * phase.Multiplier)
		if adjusted > MaxSessionMinutes {
			adjusted = MaxSessionMinutes
		}
		if adjusted > remaining {
			adjusted = remaining
		}
		if adjusted < MinSessionMinutes {
			continue
		}

		end := AddMinutes(clock, adjusted)
		sessions = append(sessions, Session{
			SubjectIndex:    idx,
			StartTime:       clock,
			EndTime:         end,
			DurationMinutes: adjusted,
			SessionType:     phase.SessionType,
			Topic:           fmt.Sprintf(phase.TopicFormat, subjects[idx].Name),
		})

		brk := shortBreakMinutes
		if adjusted >= 60 {
			brk = longBreakMinutes
		}
		clock = AddMinutes(end, brk)
		remaining -= adjusted + brk
	}

	return sessions
}

// dayOrder decides which subject comes first on a given day. Initial study
// leads with high-priority subjects, deep study alternates hard-first and
// easy-first across days, and review phases follow exam weight.
func dayOrder(subjects []Subject, phase Phase, workDay int) []int {
	order := make([]int, len(subjects))
	for i := range order {
		order[i] = i
	}

	switch phase.Name {
	case "initial_study":
		sort.SliceStable(order, func(a, b int) bool {
			return subjects[order[a]].Priority > subjects[order[b]].Priority
		})
	case "deep_study":
		hardFirst := workDay%2 == 0
		sort.SliceStable(order, func(a, b int) bool {
			ra := difficultyRank(subjects[order[a]].Difficulty)
			rb := difficultyRank(subjects[order[b]].Difficulty)
			if hardFirst {
				return ra > rb
			}
			return ra < rb
		})
	default:
		sort.SliceStable(order, func(a, b int) bool {
			return subjects[order[a]].Weight > subjects[order[b]].Weight
		})
	}

	return order
}

func difficultyMultiplier(difficulty string) float64 {
	switch difficulty {
	case "hard":
		return 1.3
	case "easy":
		return 0.8
	default:
		return 1.0
	}
}

func difficultyRank(difficulty string) int {
	switch difficulty {
	case "hard":
		return 3
	case "easy":
		return 1
	default:
		return 2
	}
}
