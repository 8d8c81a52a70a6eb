// Package progression holds the scoring, level, streak and achievement rules.
// Everything here except StreakTracker is pure and never touches a store.
package progression

import (
	"math"

	"xforce-progression/internal/domain"
)

const (
	basePoints          = 10.0
	maxQuestionFactor   = 2.0
	perfectScoreBonus   = 1.2
	fastFinishBonus     = 1.1
	fastFinishFraction  = 0.5
	xpPerPercentagePt   = 0.5
	percentageMaxScore  = 100
	minPointsPerAttempt = 1
)

// Score grades answers against quiz and derives the points and XP awards.
// Answers for unknown questions are ignored; a question without an answer earns nothing.
// When the same question is answered more than once the first answer counts.
func Score(quiz domain.Quiz, answers []domain.AnswerSubmission, timeTakenSeconds *float64) (domain.QuizSubmissionResult, error) {
	if answers == nil {
		return domain.QuizSubmissionResult{}, domain.ErrInvalidAnswers
	}
	if timeTakenSeconds != nil && (*timeTakenSeconds < 0 || math.IsNaN(*timeTakenSeconds)) {
		return domain.QuizSubmissionResult{}, domain.ErrInvalidTimeTaken
	}

	submitted := make(map[string]string, len(answers))
	for _, a := range answers {
		if _, seen := submitted[a.QuestionID]; !seen {
			submitted[a.QuestionID] = a.OptionID
		}
	}

	result := domain.QuizSubmissionResult{
		QuizID:           quiz.ID,
		Difficulty:       quiz.Difficulty,
		QuestionCount:    len(quiz.Questions),
		TimeTakenSeconds: timeTakenSeconds,
		TimeLimitMinutes: quiz.TimeLimitMinutes,
		Answers:          make([]domain.AnswerOutcome, 0, len(quiz.Questions)),
	}
	for _, q := range quiz.Questions {
		points := max(q.Points, 0)
		result.TotalPossiblePoints += points

		outcome := domain.AnswerOutcome{QuestionID: q.ID}
		if selected, ok := submitted[q.ID]; ok {
			outcome.SelectedOptionID = selected
			if correct := q.CorrectOption(); correct != "" && selected == correct {
				outcome.Correct = true
				outcome.PointsEarned = points
				result.RawScore += points
				result.CorrectCount++
			}
		}
		result.Answers = append(result.Answers, outcome)
	}

	result.PercentageScore = PercentageScore(result.RawScore, result.TotalPossiblePoints)
	result.Passed = result.PercentageScore >= quiz.EffectivePassScore()
	if result.TotalPossiblePoints > 0 {
		result.PointsAwarded = PointsAward(PointsInput{
			PercentageScore:  result.PercentageScore,
			Difficulty:       quiz.Difficulty,
			QuestionCount:    result.QuestionCount,
			TimeTakenSeconds: timeTakenSeconds,
			TimeLimitMinutes: quiz.TimeLimitMinutes,
		})
		result.XPAwarded = XPAward(result.PercentageScore, quiz.Difficulty)
	}
	return result, nil
}

// PercentageScore returns round(raw/total*100), or 0 when total is 0.
func PercentageScore(raw, total int) int {
	if total <= 0 {
		return 0
	}
	pct := int(math.Round(float64(raw) / float64(total) * percentageMaxScore))
	return min(max(pct, 0), percentageMaxScore)
}

// PointsInput carries the factors of the points formula.
type PointsInput struct {
	PercentageScore  int
	Difficulty       domain.Difficulty
	QuestionCount    int
	TimeTakenSeconds *float64
	TimeLimitMinutes float64
}

// PointsAward applies the multi-factor points formula. The result is never below 1.
func PointsAward(in PointsInput) int {
	raw := basePoints *
		DifficultyMultiplier(in.Difficulty) *
		(float64(in.PercentageScore) / percentageMaxScore) *
		QuestionCountFactor(in.QuestionCount) *
		PerfectScoreBonus(in.PercentageScore) *
		TimeBonus(in.TimeTakenSeconds, in.TimeLimitMinutes)
	return max(minPointsPerAttempt, int(math.Round(raw)))
}

// DifficultyMultiplier scales the points award by quiz difficulty.
func DifficultyMultiplier(d domain.Difficulty) float64 {
	switch d {
	case domain.DifficultyEasy:
		return 1
	case domain.DifficultyMedium:
		return 1.5
	case domain.DifficultyHard:
		return 2.5
	default:
		return 1
	}
}

// QuestionCountFactor rewards longer quizzes logarithmically, capped at 2.
func QuestionCountFactor(questionCount int) float64 {
	return math.Min(maxQuestionFactor, math.Log10(float64(questionCount)+1)+0.5)
}

// PerfectScoreBonus is 1.2 for a perfect score and 1 otherwise.
func PerfectScoreBonus(percentageScore int) float64 {
	if percentageScore == percentageMaxScore {
		return perfectScoreBonus
	}
	return 1
}

// TimeBonus is 1.1 when the quiz was finished in under half its time limit.
// Unknown elapsed time or a quiz without a limit yields 1.
func TimeBonus(timeTakenSeconds *float64, timeLimitMinutes float64) float64 {
	if timeTakenSeconds == nil || timeLimitMinutes <= 0 {
		return 1
	}
	if *timeTakenSeconds < fastFinishFraction*timeLimitMinutes*60 {
		return fastFinishBonus
	}
	return 1
}

// XPMultiplier scales the XP award by quiz difficulty.
func XPMultiplier(d domain.Difficulty) float64 {
	switch d {
	case domain.DifficultyMedium:
		return 1.5
	case domain.DifficultyHard:
		return 2
	default:
		return 1
	}
}

// XPAward returns floor(percentageScore * 0.5 * multiplier).
func XPAward(percentageScore int, d domain.Difficulty) int {
	return int(math.Floor(float64(percentageScore) * xpPerPercentagePt * XPMultiplier(d)))
}
