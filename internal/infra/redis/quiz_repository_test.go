package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"xforce-progression/internal/domain"
	"xforce-progression/internal/infra/memory"
	"xforce-progression/internal/progression"
)

func TestQuizRepositoryCachesInRedis(t *testing.T) {
	mr, client := newTestRedis(t)

	loader := &countingLoader{
		QuizLoader: memory.NewStaticQuizLoader(map[string]domain.Quiz{
			"quiz-1": sampleQuiz(),
		}),
	}
	repo := NewQuizRepository(client, loader, time.Minute)

	first, err := repo.GetQuiz(context.Background(), "quiz-1")
	if err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader called once, got %d", loader.calls)
	}

	// Second call should hit cache, loader not incremented.
	cached, err := repo.GetQuiz(context.Background(), "quiz-1")
	if err != nil {
		t.Fatalf("get cached quiz: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls=%d", loader.calls)
	}
	if cached.Difficulty != domain.DifficultyHard || cached.PassScore != 60 || cached.TimeLimitMinutes != 2.5 {
		t.Fatalf("settings not cached: %+v", cached)
	}
	if len(cached.Questions) != 2 || cached.Questions[0].ID != "q1" || cached.Questions[1].ID != "q2" {
		t.Fatalf("question order not kept: %+v", cached.Questions)
	}

	answers := []domain.AnswerSubmission{{QuestionID: "q1", OptionID: "o2"}, {QuestionID: "q2", OptionID: "x"}}
	fromLoader, _ := progression.Score(first, answers, nil)
	fromCache, _ := progression.Score(cached, answers, nil)
	if fromLoader.PercentageScore != fromCache.PercentageScore || fromLoader.PointsAwarded != fromCache.PointsAwarded {
		t.Fatalf("cached quiz scores differently: %+v vs %+v", fromLoader, fromCache)
	}

	if ttl := mr.TTL("quiz:quiz-1:answers"); ttl < time.Minute {
		t.Fatalf("expected ttl with jitter, got %v", ttl)
	}
}

func TestQuizRepositoryInvalidate(t *testing.T) {
	_, client := newTestRedis(t)
	loader := &countingLoader{QuizLoader: memory.NewStaticQuizLoader(map[string]domain.Quiz{"quiz-1": sampleQuiz()})}
	repo := NewQuizRepository(client, loader, time.Minute)
	ctx := context.Background()

	_, _ = repo.GetQuiz(ctx, "quiz-1")
	if err := repo.Invalidate(ctx, "quiz-1"); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	_, _ = repo.GetQuiz(ctx, "quiz-1")
	if loader.calls != 2 {
		t.Fatalf("expected reload after invalidate, got %d", loader.calls)
	}
}

type countingLoader struct {
	memory.QuizLoader
	calls int
}

func (l *countingLoader) LoadQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	l.calls++
	return l.QuizLoader.LoadQuiz(ctx, quizID)
}

func sampleQuiz() domain.Quiz {
	return domain.Quiz{
		ID:               "quiz-1",
		Title:            "Arithmetic",
		Difficulty:       domain.DifficultyHard,
		PassScore:        60,
		TimeLimitMinutes: 2.5,
		Questions: []domain.Question{
			{
				ID:     "q1",
				Prompt: "What is 2 + 2?",
				Options: []domain.Option{
					{ID: "o1", Text: "3", Correct: false},
					{ID: "o2", Text: "4", Correct: true},
				},
				Points: 1,
			},
			{ID: "q2", Prompt: "What is 3 * 3?", CorrectOptionID: "o9", Points: 3},
		},
	}
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}
