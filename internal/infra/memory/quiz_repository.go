package memory

import (
	"context"
	"time"

	"xforce-progression/internal/domain"
)

// QuizLoader fetches quiz content from a backing store (e.g., document DB).
type QuizLoader interface {
	LoadQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
}

// QuizRepository caches quizzes with TTL to avoid repeated DB hits.
type QuizRepository struct {
	loader QuizLoader
	cache  *ttlCache[domain.Quiz]
}

func NewQuizRepository(loader QuizLoader, ttl time.Duration) *QuizRepository {
	return &QuizRepository{loader: loader, cache: newTTLCache[domain.Quiz](ttl)}
}

func (r *QuizRepository) GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	return r.cache.get(ctx, quizID, func(ctx context.Context) (domain.Quiz, error) {
		return r.loader.LoadQuiz(ctx, quizID)
	})
}

// Invalidate drops a cached quiz so the next read reloads it.
func (r *QuizRepository) Invalidate(quizID string) {
	r.cache.invalidate(quizID)
}

// StaticQuizLoader is a simple loader backed by an in-memory map (useful for tests/demos).
type StaticQuizLoader struct {
	quizzes map[string]domain.Quiz
}

func NewStaticQuizLoader(quizzes map[string]domain.Quiz) *StaticQuizLoader {
	return &StaticQuizLoader{quizzes: quizzes}
}

func (l *StaticQuizLoader) LoadQuiz(_ context.Context, quizID string) (domain.Quiz, error) {
	if quiz, ok := l.quizzes[quizID]; ok {
		return quiz, nil
	}
	return domain.Quiz{}, domain.ErrQuizNotFound
}

// DemoQuizzes is the quiz set served when no database is configured.
func DemoQuizzes() map[string]domain.Quiz {
	return map[string]domain.Quiz{
		"go-basics": {
			ID:               "go-basics",
			Title:            "Go basics",
			Difficulty:       domain.DifficultyEasy,
			TimeLimitMinutes: 5,
			Questions: []domain.Question{
				{ID: "q1", Prompt: "Which keyword starts a goroutine?", Points: 10, Options: []domain.Option{
					{ID: "a", Text: "async"}, {ID: "b", Text: "go", Correct: true}, {ID: "c", Text: "spawn"},
				}},
				{ID: "q2", Prompt: "What does len of a nil slice return?", Points: 10, Options: []domain.Option{
					{ID: "a", Text: "0", Correct: true}, {ID: "b", Text: "panic"}, {ID: "c", Text: "-1"},
				}},
			},
		},
		"concurrency": {
			ID:               "concurrency",
			Title:            "Concurrency patterns",
			Difficulty:       domain.DifficultyHard,
			PassScore:        80,
			TimeLimitMinutes: 10,
			Questions: []domain.Question{
				{ID: "q1", Prompt: "Which type cancels work across goroutines?", Points: 10, Options: []domain.Option{
					{ID: "a", Text: "context.Context", Correct: true}, {ID: "b", Text: "sync.Once"},
				}},
				{ID: "q2", Prompt: "Sending on a closed channel...", Points: 10, Options: []domain.Option{
					{ID: "a", Text: "blocks"}, {ID: "b", Text: "panics", Correct: true},
				}},
				{ID: "q3", Prompt: "Which package offers errgroup?", Points: 10, Options: []domain.Option{
					{ID: "a", Text: "golang.org/x/sync", Correct: true}, {ID: "b", Text: "sync/atomic"},
				}},
			},
		},
	}
}
