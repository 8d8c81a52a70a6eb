package progression

import (
	"testing"
	"time"

	"xforce-progression/internal/domain"
)

func boolPtr(b bool) *bool { return &b }
func intPtr(i int) *int    { return &i }

func fixedClock() func() time.Time {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	return func() time.Time { return at }
}

func TestMeasurePerfectScore(t *testing.T) {
	def := domain.AchievementDefinition{ID: "perfect", Trigger: domain.TriggerQuizPerfectScore}
	hardOnly := domain.AchievementDefinition{ID: "perfect-hard", Trigger: domain.TriggerQuizPerfectScore,
		Condition: &domain.AchievementCondition{Difficulty: domain.DifficultyHard}}

	facts := Facts{Submission: &SubmissionFacts{PercentageScore: 100, Passed: true, Difficulty: domain.DifficultyMedium}}
	if !Satisfied(def, facts) {
		t.Fatalf("expected perfect score to unlock")
	}
	if Satisfied(hardOnly, facts) {
		t.Fatalf("difficulty condition should reject a medium quiz")
	}
	if Satisfied(def, Facts{Submission: &SubmissionFacts{PercentageScore: 99}}) {
		t.Fatalf("99%% must not count as perfect")
	}
	if Satisfied(def, Facts{}) {
		t.Fatalf("perfect score needs a submission")
	}
}

func TestMeasureCompletionCountsCurrentSubmission(t *testing.T) {
	def := domain.AchievementDefinition{ID: "pass-5", Trigger: domain.TriggerQuizCompletion, Requirement: 5,
		Condition: &domain.AchievementCondition{Passed: boolPtr(true)}}
	filter := def.Condition.AttemptFilter()

	facts := Facts{
		QuizAttempts: map[domain.AttemptFilter]int{filter: 4},
		Submission:   &SubmissionFacts{PercentageScore: 80, Passed: true},
	}
	if current, target := Measure(def, facts); current != 5 || target != 5 {
		t.Fatalf("expected 5/5, got %v/%v", current, target)
	}

	facts.Submission.Passed = false
	if Satisfied(def, facts) {
		t.Fatalf("failed attempt must not count towards a passed-only rule")
	}
}

func TestMeasureCompletionMinScore(t *testing.T) {
	def := domain.AchievementDefinition{ID: "high", Trigger: domain.TriggerQuizCompletion, Requirement: 1,
		Condition: &domain.AchievementCondition{MinScore: intPtr(90)}}
	if Satisfied(def, Facts{Submission: &SubmissionFacts{PercentageScore: 89, Passed: true}}) {
		t.Fatalf("89 is below the minimum score")
	}
	if !Satisfied(def, Facts{Submission: &SubmissionFacts{PercentageScore: 90, Passed: true}}) {
		t.Fatalf("90 meets the minimum score")
	}
}

func TestMeasureCommunityCounters(t *testing.T) {
	facts := Facts{
		ForumTopics:    3,
		ForumReplies:   10,
		BestAnswers:    1,
		Streak:         7,
		ResourceAccess: map[string]int{"": 12, "download": 4},
	}
	cases := []struct {
		def  domain.AchievementDefinition
		want float64
	}{
		{domain.AchievementDefinition{Trigger: domain.TriggerForumPosts, Requirement: 3}, 3},
		{domain.AchievementDefinition{Trigger: domain.TriggerForumReplies, Requirement: 25}, 10},
		{domain.AchievementDefinition{Trigger: domain.TriggerForumBestAnswers, Requirement: 1}, 1},
		{domain.AchievementDefinition{Trigger: domain.TriggerStudyStreak, Requirement: 7}, 7},
		{domain.AchievementDefinition{Trigger: domain.TriggerResourceAccess, Requirement: 10}, 12},
		{domain.AchievementDefinition{Trigger: domain.TriggerResourceAccess, Requirement: 5,
			Condition: &domain.AchievementCondition{AccessType: "download"}}, 4},
	}
	for _, tc := range cases {
		if got, _ := Measure(tc.def, facts); got != tc.want {
			t.Fatalf("%s: expected %v, got %v", tc.def.Trigger, tc.want, got)
		}
	}
}

func TestMeasureUnknownTriggerNeverUnlocks(t *testing.T) {
	def := domain.AchievementDefinition{ID: "x", Trigger: "mystery", Requirement: 0}
	if Satisfied(def, Facts{Streak: 100}) {
		t.Fatalf("unknown trigger must not unlock")
	}
}

func TestEvaluateQuizPointsUnlockAppliesRewards(t *testing.T) {
	agg := domain.NewUserAggregate("u1")
	agg.QuizPointsEarned = 108
	agg.Points = 108
	agg.XP = 200

	def := domain.AchievementDefinition{ID: "points-100", Trigger: domain.TriggerQuizPoints, Requirement: 100, RewardXP: 50, RewardPoints: 10}
	facts := Facts{QuizPointsEarned: 90, Submission: &SubmissionFacts{PointsAwarded: 18}}

	ev := NewAchievementEvaluatorWithClock(fixedClock())
	unlocked := ev.Evaluate(&agg, []domain.AchievementDefinition{def}, facts)
	if len(unlocked) != 1 || unlocked[0].Achievement.ID != "points-100" {
		t.Fatalf("expected points-100 to unlock, got %+v", unlocked)
	}
	if agg.XP != 250 || agg.Points != 118 {
		t.Fatalf("expected rewards applied, got xp=%d points=%d", agg.XP, agg.Points)
	}
	if agg.QuizPointsEarned != 108 {
		t.Fatalf("reward points must not count as quiz points, got %d", agg.QuizPointsEarned)
	}
	if at, ok := agg.Achievements.UnlockedAt("points-100"); !ok || !at.Equal(fixedClock()()) {
		t.Fatalf("expected unlock timestamp recorded, got %v %v", at, ok)
	}
}

func TestEvaluateSkipsAlreadyUnlocked(t *testing.T) {
	agg := domain.NewUserAggregate("u1")
	earlier := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	agg.Achievements.Add("streak-3", earlier)

	def := domain.AchievementDefinition{ID: "streak-3", Trigger: domain.TriggerStudyStreak, Requirement: 3, RewardXP: 30}
	unlocked := NewAchievementEvaluatorWithClock(fixedClock()).Evaluate(&agg, []domain.AchievementDefinition{def}, Facts{Streak: 10})
	if len(unlocked) != 0 || agg.XP != 0 {
		t.Fatalf("already unlocked achievement must not be awarded twice")
	}
	if at, _ := agg.Achievements.UnlockedAt("streak-3"); !at.Equal(earlier) {
		t.Fatalf("unlock time must not be overwritten, got %v", at)
	}
}

func TestFilterCandidatesOrdersByPosition(t *testing.T) {
	agg := domain.NewUserAggregate("u1")
	agg.Achievements.Add("b", time.Now())
	defs := []domain.AchievementDefinition{
		{ID: "c", Trigger: domain.TriggerQuizPoints, Position: 3},
		{ID: "a", Trigger: domain.TriggerQuizCompletion, Position: 1},
		{ID: "b", Trigger: domain.TriggerQuizCompletion, Position: 2},
		{ID: "s", Trigger: domain.TriggerStudyStreak, Position: 0},
	}
	got := FilterCandidates(agg, defs, domain.QuizTriggers...)
	if len(got) != 2 || got[0].ID != "a" || got[1].ID != "c" {
		t.Fatalf("unexpected candidates %+v", got)
	}
}

func TestProgressReportsPartialAndUnlocked(t *testing.T) {
	agg := domain.NewUserAggregate("u1")
	agg.Achievements.Add("replies-5", time.Now())
	defs := []domain.AchievementDefinition{
		{ID: "replies-5", Trigger: domain.TriggerForumReplies, Requirement: 5},
		{ID: "replies-20", Trigger: domain.TriggerForumReplies, Requirement: 20},
	}
	progress := NewAchievementEvaluator().Progress(agg, defs, Facts{ForumReplies: 5})
	if !progress[0].Unlocked || progress[0].Progress != 100 || progress[0].UnlockedAt == nil {
		t.Fatalf("expected first achievement unlocked, got %+v", progress[0])
	}
	if progress[1].Unlocked || progress[1].Progress != 25 || progress[1].Current != 5 {
		t.Fatalf("expected 25%% progress, got %+v", progress[1])
	}
}

func TestFactsNeededDeduplicates(t *testing.T) {
	passed := &domain.AchievementCondition{Passed: boolPtr(true)}
	req := FactsNeeded([]domain.AchievementDefinition{
		{Trigger: domain.TriggerQuizCompletion, Condition: passed},
		{Trigger: domain.TriggerQuizCompletion, Condition: &domain.AchievementCondition{Passed: boolPtr(true)}},
		{Trigger: domain.TriggerQuizCompletion},
		{Trigger: domain.TriggerResourceAccess},
		{Trigger: domain.TriggerForumReplies},
	})
	if len(req.AttemptFilters) != 2 {
		t.Fatalf("expected 2 distinct attempt filters, got %d", len(req.AttemptFilters))
	}
	if len(req.AccessTypes) != 1 || !req.ForumReplies || req.ForumTopics || req.BestAnswers {
		t.Fatalf("unexpected request %+v", req)
	}
}
