package progression

import (
	"sort"
	"time"

	"xforce-progression/internal/domain"
)

// SubmissionFacts describes the quiz submission being processed, if any.
type SubmissionFacts struct {
	PercentageScore int
	Passed          bool
	Difficulty      domain.Difficulty
	PointsAwarded   int
}

// Facts are the counters achievement rules are measured against.
type Facts struct {
	// Submission is nil outside the quiz flow.
	Submission *SubmissionFacts
	// QuizPointsEarned is the value before the current submission.
	QuizPointsEarned int
	// QuizAttempts holds historical attempt counts per filter, excluding the current submission.
	QuizAttempts   map[domain.AttemptFilter]int
	Streak         int
	ForumTopics    int
	ForumReplies   int
	BestAnswers    int
	ResourceAccess map[string]int // keyed by access type, "" counts every access
}

// FactRequest lists the counters a set of candidate achievements depends on.
type FactRequest struct {
	AttemptFilters []domain.AttemptFilter
	AccessTypes    []string
	ForumTopics    bool
	ForumReplies   bool
	BestAnswers    bool
}

// FactsNeeded returns the counters required to measure candidates.
func FactsNeeded(candidates []domain.AchievementDefinition) FactRequest {
	var req FactRequest
	filters := map[domain.AttemptFilter]bool{}
	accessTypes := map[string]bool{}
	for _, def := range candidates {
		switch def.Trigger {
		case domain.TriggerQuizCompletion:
			f := def.Condition.AttemptFilter()
			if !filters[f] {
				filters[f] = true
				req.AttemptFilters = append(req.AttemptFilters, f)
			}
		case domain.TriggerResourceAccess:
			at := def.Condition.AccessTypeFilter()
			if !accessTypes[at] {
				accessTypes[at] = true
				req.AccessTypes = append(req.AccessTypes, at)
			}
		case domain.TriggerForumPosts:
			req.ForumTopics = true
		case domain.TriggerForumReplies:
			req.ForumReplies = true
		case domain.TriggerForumBestAnswers:
			req.BestAnswers = true
		}
	}
	return req
}

// Measure returns the quantity def counts for the given facts and the target it must reach.
// Both the unlock decision and the progress display go through here.
func Measure(def domain.AchievementDefinition, f Facts) (current, target float64) {
	target = def.Requirement
	switch def.Trigger {
	case domain.TriggerQuizPerfectScore:
		target = 1
		if s := f.Submission; s != nil && s.PercentageScore == 100 {
			if d := def.Condition; d == nil || d.Difficulty == "" || d.Difficulty == s.Difficulty {
				current = 1
			}
		}
	case domain.TriggerQuizCompletion:
		filter := def.Condition.AttemptFilter()
		count := f.QuizAttempts[filter]
		if s := f.Submission; s != nil && filter.Matches(s.PercentageScore, s.Passed, s.Difficulty) {
			count++
		}
		current = float64(count)
	case domain.TriggerQuizPoints:
		earned := f.QuizPointsEarned
		if f.Submission != nil {
			earned += f.Submission.PointsAwarded
		}
		current = float64(earned)
	case domain.TriggerForumPosts:
		current = float64(f.ForumTopics)
	case domain.TriggerForumReplies:
		current = float64(f.ForumReplies)
	case domain.TriggerForumBestAnswers:
		current = float64(f.BestAnswers)
	case domain.TriggerResourceAccess:
		current = float64(f.ResourceAccess[def.Condition.AccessTypeFilter()])
	case domain.TriggerStudyStreak:
		current = float64(f.Streak)
	default:
		// Unknown triggers can never be satisfied.
		return 0, 1
	}
	return current, target
}

// Satisfied reports whether def unlocks under f.
func Satisfied(def domain.AchievementDefinition, f Facts) bool {
	current, target := Measure(def, f)
	return current >= target
}

// ProgressPercent returns how close def is to unlocking, from 0 to 100.
func ProgressPercent(def domain.AchievementDefinition, f Facts) float64 {
	current, target := Measure(def, f)
	if target <= 0 || current >= target {
		return 100
	}
	return min(max(current/target*100, 0), 100)
}

// AchievementEvaluator decides which achievements unlock and applies their rewards.
type AchievementEvaluator struct {
	now func() time.Time
}

func NewAchievementEvaluator() *AchievementEvaluator {
	return NewAchievementEvaluatorWithClock(time.Now)
}

// NewAchievementEvaluatorWithClock allows deterministic unlock timestamps in tests.
func NewAchievementEvaluatorWithClock(now func() time.Time) *AchievementEvaluator {
	return &AchievementEvaluator{now: now}
}

// Evaluate checks every candidate that agg has not unlocked yet, in candidate order.
// Satisfied ones are added to agg.Achievements with the current time and their
// rewards are added to agg's XP and points. Level is not touched; the caller
// recomputes it once after all unlocks.
func (e *AchievementEvaluator) Evaluate(agg *domain.UserAggregate, candidates []domain.AchievementDefinition, facts Facts) []domain.UnlockedAchievement {
	if agg.Achievements == nil {
		agg.Achievements = domain.AchievementSet{}
	}
	now := e.now().UTC()
	var unlocked []domain.UnlockedAchievement
	for _, def := range candidates {
		if agg.Achievements.Has(def.ID) || !Satisfied(def, facts) {
			continue
		}
		agg.Achievements.Add(def.ID, now)
		agg.XP += max(def.RewardXP, 0)
		agg.Points += max(def.RewardPoints, 0)
		unlocked = append(unlocked, domain.UnlockedAchievement{Achievement: def, UnlockedAt: now})
	}
	return unlocked
}

// Progress reports every definition's state for agg under facts.
func (e *AchievementEvaluator) Progress(agg domain.UserAggregate, defs []domain.AchievementDefinition, facts Facts) []domain.AchievementProgress {
	out := make([]domain.AchievementProgress, 0, len(defs))
	for _, def := range defs {
		current, _ := Measure(def, facts)
		p := domain.AchievementProgress{Achievement: def, Current: current}
		if at, ok := agg.Achievements.UnlockedAt(def.ID); ok {
			stamp := at
			p.Unlocked = true
			p.UnlockedAt = &stamp
			p.Progress = 100
		} else {
			p.Progress = ProgressPercent(def, facts)
		}
		out = append(out, p)
	}
	return out
}

// FilterCandidates keeps definitions of the given triggers that agg has not unlocked,
// ordered by catalog position.
func FilterCandidates(agg domain.UserAggregate, defs []domain.AchievementDefinition, triggers ...domain.Trigger) []domain.AchievementDefinition {
	allowed := make(map[domain.Trigger]bool, len(triggers))
	for _, t := range triggers {
		allowed[t] = true
	}
	out := make([]domain.AchievementDefinition, 0, len(defs))
	for _, def := range defs {
		if len(allowed) > 0 && !allowed[def.Trigger] {
			continue
		}
		if agg.Achievements.Has(def.ID) {
			continue
		}
		out = append(out, def)
	}
	SortByPosition(out)
	return out
}

// SortByPosition orders definitions by catalog insertion order.
func SortByPosition(defs []domain.AchievementDefinition) {
	sort.SliceStable(defs, func(i, j int) bool { return defs[i].Position < defs[j].Position })
}
