package domain

import "time"

// Difficulty is the authored difficulty of a quiz.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// DefaultPassScore applies when a quiz does not configure its own threshold.
const DefaultPassScore = 70

// Option represents a possible answer for a question.
type Option struct {
	ID      string `json:"id"`
	Text    string `json:"text"`
	Correct bool   `json:"correct"`
}

// Question models an MCQ question with exactly one correct option.
type Question struct {
	ID      string   `json:"id"`
	Prompt  string   `json:"prompt"`
	Options []Option `json:"options"`
	Points  int      `json:"points"`
	// CorrectOptionID is precomputed when the quiz is authored. When empty the
	// first option flagged correct is used.
	CorrectOptionID string `json:"correctOptionId,omitempty"`
}

// CorrectOption returns the identifier of the correct option, or "" if none is flagged.
func (q Question) CorrectOption() string {
	if q.CorrectOptionID != "" {
		return q.CorrectOptionID
	}
	for _, opt := range q.Options {
		if opt.Correct {
			return opt.ID
		}
	}
	return ""
}

// Quiz is a collection of questions plus the settings scoring depends on.
type Quiz struct {
	ID               string     `json:"id"`
	Title            string     `json:"title,omitempty"`
	Difficulty       Difficulty `json:"difficulty"`
	PassScore        int        `json:"passScore"`        // 0 means DefaultPassScore
	TimeLimitMinutes float64    `json:"timeLimitMinutes"` // 0 means no limit
	Questions        []Question `json:"questions"`
}

// EffectivePassScore returns the configured pass threshold or the default.
func (q Quiz) EffectivePassScore() int {
	if q.PassScore <= 0 {
		return DefaultPassScore
	}
	return q.PassScore
}

// AnswerSubmission is one submitted answer.
type AnswerSubmission struct {
	QuestionID string `json:"questionId"`
	OptionID   string `json:"optionId"`
}

// AnswerOutcome is the per-question result of scoring.
type AnswerOutcome struct {
	QuestionID       string `json:"questionId"`
	SelectedOptionID string `json:"selectedOptionId,omitempty"`
	Correct          bool   `json:"correct"`
	PointsEarned     int    `json:"pointsEarned"`
}

// QuizSubmissionResult is computed once per submitted attempt and never stored by the engine.
type QuizSubmissionResult struct {
	QuizID              string          `json:"quizId"`
	PercentageScore     int             `json:"percentageScore"`
	Passed              bool            `json:"passed"`
	RawScore            int             `json:"rawScore"`
	TotalPossiblePoints int             `json:"totalPossiblePoints"`
	CorrectCount        int             `json:"correctCount"`
	Difficulty          Difficulty      `json:"difficulty"`
	QuestionCount       int             `json:"questionCount"`
	TimeTakenSeconds    *float64        `json:"timeTakenSeconds,omitempty"`
	TimeLimitMinutes    float64         `json:"timeLimitMinutes,omitempty"`
	PointsAwarded       int             `json:"pointsAwarded"`
	XPAwarded           int             `json:"xpAwarded"`
	Answers             []AnswerOutcome `json:"answers"`
}

// QuizAttempt is the historical record of a scored submission.
type QuizAttempt struct {
	ID               string     `json:"id"`
	UserID           string     `json:"userId"`
	QuizID           string     `json:"quizId"`
	PercentageScore  int        `json:"percentageScore"`
	Passed           bool       `json:"passed"`
	Difficulty       Difficulty `json:"difficulty"`
	PointsAwarded    int        `json:"pointsAwarded"`
	XPAwarded        int        `json:"xpAwarded"`
	TimeTakenSeconds *float64   `json:"timeTakenSeconds,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
}

// ActivityLedgerEntry records that a user was active on a calendar day.
type ActivityLedgerEntry struct {
	UserID         string    `json:"userId"`
	Day            time.Time `json:"day"`
	LastActivityAt time.Time `json:"lastActivityAt"`
}

// LeaderboardEntry is a snapshot-friendly view of a ranked user.
type LeaderboardEntry struct {
	Rank   int    `json:"rank"`
	UserID string `json:"userId"`
	Points int    `json:"points"`
}

// Leaderboard captures the ordered points ranking.
type Leaderboard struct {
	Entries   []LeaderboardEntry `json:"entries"`
	UpdatedAt time.Time          `json:"updatedAt"`
}
