package domain

func boolRef(b bool) *bool { return &b }
func intRef(i int) *int    { return &i }

// DefaultAchievements is the built-in catalog, in insertion order.
func DefaultAchievements() []AchievementDefinition {
	defs := []AchievementDefinition{
		{ID: "first-quiz", Name: "First Steps", Description: "Complete your first quiz", Trigger: TriggerQuizCompletion, Requirement: 1, RewardXP: 10, RewardPoints: 5},
		{ID: "quiz-pass-5", Name: "On a Roll", Description: "Pass 5 quizzes", Trigger: TriggerQuizCompletion, Requirement: 5,
			Condition: &AchievementCondition{Passed: boolRef(true)}, RewardXP: 50, RewardPoints: 20},
		{ID: "quiz-pass-25", Name: "Quiz Veteran", Description: "Pass 25 quizzes", Trigger: TriggerQuizCompletion, Requirement: 25,
			Condition: &AchievementCondition{Passed: boolRef(true)}, RewardXP: 200, RewardPoints: 75},
		{ID: "high-achiever", Name: "High Achiever", Description: "Score 90% or more on 3 quizzes", Trigger: TriggerQuizCompletion, Requirement: 3,
			Condition: &AchievementCondition{MinScore: intRef(90)}, RewardXP: 75, RewardPoints: 30},
		{ID: "hard-pass-3", Name: "Brave Mind", Description: "Pass 3 hard quizzes", Trigger: TriggerQuizCompletion, Requirement: 3,
			Condition: &AchievementCondition{Passed: boolRef(true), Difficulty: DifficultyHard}, RewardXP: 100, RewardPoints: 40},
		{ID: "perfect-score", Name: "Flawless", Description: "Score 100% on a quiz", Trigger: TriggerQuizPerfectScore, Requirement: 1, RewardXP: 25, RewardPoints: 10},
		{ID: "perfect-hard", Name: "Mastermind", Description: "Score 100% on a hard quiz", Trigger: TriggerQuizPerfectScore, Requirement: 1,
			Condition: &AchievementCondition{Difficulty: DifficultyHard}, RewardXP: 100, RewardPoints: 40},
		{ID: "points-100", Name: "Point Collector", Description: "Earn 100 quiz points", Trigger: TriggerQuizPoints, Requirement: 100, RewardXP: 50, RewardPoints: 10},
		{ID: "points-1000", Name: "Point Hoarder", Description: "Earn 1000 quiz points", Trigger: TriggerQuizPoints, Requirement: 1000, RewardXP: 250, RewardPoints: 50},
		{ID: "first-topic", Name: "Conversation Starter", Description: "Open your first forum topic", Trigger: TriggerForumPosts, Requirement: 1, RewardXP: 10, RewardPoints: 5},
		{ID: "replies-25", Name: "Helpful Peer", Description: "Post 25 forum replies", Trigger: TriggerForumReplies, Requirement: 25, RewardXP: 60, RewardPoints: 20},
		{ID: "best-answer", Name: "Problem Solver", Description: "Have a reply marked as best answer", Trigger: TriggerForumBestAnswers, Requirement: 1, RewardXP: 40, RewardPoints: 15},
		{ID: "resources-10", Name: "Explorer", Description: "Open 10 learning resources", Trigger: TriggerResourceAccess, Requirement: 10, RewardXP: 20, RewardPoints: 10},
		{ID: "downloads-5", Name: "Archivist", Description: "Download 5 resources", Trigger: TriggerResourceAccess, Requirement: 5,
			Condition: &AchievementCondition{AccessType: "download"}, RewardXP: 20, RewardPoints: 10},
		{ID: "streak-3", Name: "Warming Up", Description: "Study 3 days in a row", Trigger: TriggerStudyStreak, Requirement: 3, RewardXP: 30, RewardPoints: 10},
		{ID: "streak-7", Name: "Week Warrior", Description: "Study 7 days in a row", Trigger: TriggerStudyStreak, Requirement: 7, RewardXP: 80, RewardPoints: 25},
		{ID: "streak-30", Name: "Unstoppable", Description: "Study 30 days in a row", Trigger: TriggerStudyStreak, Requirement: 30, RewardXP: 400, RewardPoints: 100},
	}
	for i := range defs {
		defs[i].Position = i + 1
	}
	return defs
}
