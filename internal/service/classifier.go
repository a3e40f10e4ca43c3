package service

import (
	"sort"

	"github.com/campuspulse/attendance-api/internal/models"
)

// scoringRule is one entry in the ordered classifier rule list. Each rule
// adds its weight to one or more strategies when the predicate matches.
// Keeping rules as data makes every rule independently testable and maps
// rationale strings 1:1 to fired rules.
type scoringRule struct {
	name        string
	description string
	weight      float64
	strategies  []models.Strategy
	predicate   func(models.EventSignals) bool
}

var classifierRules = []scoringRule{
	{
		name:        "short_no_competition",
		description: "short event (<=8h) without competition keywords favors a single attendance mark",
		weight:      4,
		strategies:  []models.Strategy{models.StrategySingleMark},
		predicate: func(s models.EventSignals) bool {
			// Duration overrides the declared-type default here.
			return s.Bucket == models.DurationShort && !s.HasAnyKeyword(competitionKeywords...)
		},
	},
	{
		name:        "competition_keywords",
		description: "competition or round keywords favor session tracking regardless of duration",
		weight:      4,
		strategies:  []models.Strategy{models.StrategySessionBased},
		predicate: func(s models.EventSignals) bool {
			return s.HasAnyKeyword(competitionKeywords...)
		},
	},
	{
		name:        "milestone_keywords",
		description: "festival, exhibition or ceremony keywords favor milestone tracking",
		weight:      3,
		strategies:  []models.Strategy{models.StrategyMilestone},
		predicate: func(s models.EventSignals) bool {
			return s.HasAnyKeyword(milestoneKeywords...)
		},
	},
	{
		name:        "multi_day_no_milestone",
		description: "multi-day event without milestone keywords favors per-day tracking",
		weight:      3,
		strategies:  []models.Strategy{models.StrategyDayBased},
		predicate: func(s models.EventSignals) bool {
			return s.Bucket == models.DurationMultiDay && !s.HasAnyKeyword(milestoneKeywords...) && s.DurationDays < 14
		},
	},
	{
		name:        "long_running_program",
		description: "programs spanning two weeks or more favor continuous weekly tracking",
		weight:      4,
		strategies:  []models.Strategy{models.StrategyContinuous},
		predicate: func(s models.EventSignals) bool {
			return s.DurationDays >= 14
		},
	},
	{
		name:        "continuous_keywords",
		description: "internship or fellowship keywords lean towards continuous tracking",
		weight:      2,
		strategies:  []models.Strategy{models.StrategyContinuous},
		predicate: func(s models.EventSignals) bool {
			return s.HasAnyKeyword(continuousKeywords...)
		},
	},
	{
		name:        "training_keywords",
		description: "workshop or training keywords lean towards per-day tracking",
		weight:      2,
		strategies:  []models.Strategy{models.StrategyDayBased},
		predicate: func(s models.EventSignals) bool {
			return s.HasAnyKeyword(dayKeywords...) && s.Bucket != models.DurationShort
		},
	},
	{
		name:        "single_mark_keywords",
		description: "seminar, visit or defense keywords lean towards a single mark",
		weight:      2,
		strategies:  []models.Strategy{models.StrategySingleMark},
		predicate: func(s models.EventSignals) bool {
			return s.HasAnyKeyword(singleMarkKeywords...)
		},
	},
	{
		name:        "declared_competition",
		description: "declared type names a competition format",
		weight:      2,
		strategies:  []models.Strategy{models.StrategySessionBased},
		predicate: func(s models.EventSignals) bool {
			switch s.DeclaredType {
			case "hackathon", "competition", "contest", "tournament":
				return true
			}
			return false
		},
	},
	{
		name:        "declared_training",
		description: "declared type names a training format",
		weight:      1,
		strategies:  []models.Strategy{models.StrategyDayBased},
		predicate: func(s models.EventSignals) bool {
			switch s.DeclaredType {
			case "workshop", "training", "bootcamp":
				return true
			}
			return false
		},
	},
	{
		name:        "medium_duration_sessions",
		description: "medium duration (8-24h) benefits from multiple observation points",
		weight:      1,
		strategies:  []models.Strategy{models.StrategySessionBased},
		predicate: func(s models.EventSignals) bool {
			return s.Bucket == models.DurationMedium
		},
	},
	{
		name:        "team_event_sessions",
		description: "team events benefit from per-session observation",
		weight:      1,
		strategies:  []models.Strategy{models.StrategySessionBased},
		predicate: func(s models.EventSignals) bool {
			return s.TeamMode == models.TeamModeTeam
		},
	},
}

const fallbackRationale = "no classification rule matched, defaulting to session tracking for more observation points"

// Classify scores every strategy against the signals and returns the
// decision. Ties break on the fixed strategy priority order. Zero I/O.
func Classify(signals models.EventSignals) models.StrategyDecision {
	scores := map[models.Strategy]float64{
		models.StrategySingleMark:   0,
		models.StrategyDayBased:     0,
		models.StrategySessionBased: 0,
		models.StrategyMilestone:    0,
		models.StrategyContinuous:   0,
	}
	fired := make([]scoringRule, 0, len(classifierRules))
	for _, rule := range classifierRules {
		if !rule.predicate(signals) {
			continue
		}
		fired = append(fired, rule)
		for _, strategy := range rule.strategies {
			scores[strategy] += rule.weight
		}
	}

	if len(fired) == 0 {
		scores[models.StrategySessionBased] = 1
		return models.StrategyDecision{
			Strategy:       models.StrategySessionBased,
			Confidence:     1,
			Rationale:      []string{fallbackRationale},
			ScoreBreakdown: scores,
		}
	}

	winner := pickWinner(scores)

	var rationale []string
	for _, rule := range fired {
		for _, strategy := range rule.strategies {
			if strategy == winner {
				rationale = append(rationale, rule.description)
				break
			}
		}
	}

	var total float64
	for _, score := range scores {
		total += score
	}
	confidence := 0.0
	if total > 0 {
		confidence = scores[winner] / total
	}
	if confidence > 1 {
		confidence = 1
	}
	if confidence < 0 {
		confidence = 0
	}

	return models.StrategyDecision{
		Strategy:       winner,
		Confidence:     confidence,
		Rationale:      rationale,
		ScoreBreakdown: scores,
	}
}

func pickWinner(scores map[models.Strategy]float64) models.Strategy {
	candidates := make([]models.Strategy, 0, len(scores))
	for strategy := range scores {
		candidates = append(candidates, strategy)
	}
	sort.Slice(candidates, func(i, j int) bool {
		if scores[candidates[i]] != scores[candidates[j]] {
			return scores[candidates[i]] > scores[candidates[j]]
		}
		return candidates[i].TiePriority() < candidates[j].TiePriority()
	})
	return candidates[0]
}
