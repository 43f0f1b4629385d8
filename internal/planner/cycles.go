package planner

// Phase is a contiguous run of work days with a single session type, topic
// template and duration multiplier.
type Phase struct {
	Name        string
	Start       int // inclusive work-day offset
	End         int // exclusive work-day offset
	SessionType string
	Multiplier  float64
	TopicFormat string
}

// Cycles partitions the work days before the exam into four study phases:
// initial study, deep study, intensive review and final review.
type Cycles struct {
	TotalWorkDays int
	StudyPeriod   int
	ReviewPeriod  int
	Phases        [4]Phase
}

// BuildCycles derives the phase boundaries for a plan spanning the given
// number of work days. The final review takes a fifth of the plan but never
// less than a week, clamped to the plan length; the remaining study period is
// split 60/30/10 across the first three phases.
func BuildCycles(totalWorkDays int) Cycles {
	review := totalWorkDays / 5
	if review < 7 {
		review = 7
	}
	if review > totalWorkDays {
		review = totalWorkDays
	}

	study := totalWorkDays - review
	initialEnd := study * 6 / 10
	deepEnd := initialEnd + study*3/10

	return Cycles{
		TotalWorkDays: totalWorkDays,
		StudyPeriod:   study,
		ReviewPeriod:  review,
		Phases: [4]Phase{
			{
				Name:        "initial_study",
				Start:       0,
				End:         initialEnd,
				SessionType: "study",
				Multiplier:  1.2,
				TopicFormat: "Fundamentos de %s",
			},
			{
				Name:        "deep_study",
				Start:       initialEnd,
				End:         deepEnd,
				SessionType: "practice",
				Multiplier:  1.0,
				TopicFormat: "Exercícios de %s",
			},
			{
				Name:        "intensive_review",
				Start:       deepEnd,
				End:         study,
				SessionType: "review",
				Multiplier:  1.0,
				TopicFormat: "Revisão de %s",
			},
			{
				Name:        "final_review",
				Start:       study,
				End:         totalWorkDays,
				SessionType: "review",
				Multiplier:  0.7,
				TopicFormat: "Revisão final de %s",
			},
		},
	}
}

// PhaseFor returns the phase covering the given work-day offset. Out-of-range
// offsets fall back to the first phase.
func (c Cycles) PhaseFor(workDay int) Phase {
	for _, p := range c.Phases {
		if workDay >= p.Start && workDay < p.End {
			return p
		}
	}
	return c.Phases[0]
}
