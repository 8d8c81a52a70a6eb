package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"xforce-progression/internal/domain"
)

// QuizLoader fetches quiz content from a backing store (e.g., document DB).
type QuizLoader interface {
	LoadQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
}

// QuizRepository caches the scoring view of a quiz in Redis and falls back to a loader on cache miss.
// Answers are stored as:  HSET quiz:{quizID}:answers {questionID} {optionID}
// Points are stored as:   HSET quiz:{quizID}:points  {questionID} {points}
// Settings are stored as: HSET quiz:{quizID}:meta    difficulty|passScore|timeLimitMinutes|title|order
type QuizRepository struct {
	client *redis.Client
	loader QuizLoader
	ttl    time.Duration
	sf     singleflight.Group

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewQuizRepository(client *redis.Client, loader QuizLoader, ttl time.Duration) *QuizRepository {
	return &QuizRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *QuizRepository) GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	if quiz, ok := r.cached(ctx, quizID); ok {
		return quiz, nil
	}

	result, err, _ := r.sf.Do(quizID, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if quiz, ok := r.cached(ctx, quizID); ok {
			return quiz, nil
		}

		quiz, err := r.loader.LoadQuiz(ctx, quizID)
		if err != nil {
			return domain.Quiz{}, err
		}
		r.store(ctx, quiz)
		return quiz, nil
	})
	if err != nil {
		return domain.Quiz{}, err
	}
	return result.(domain.Quiz), nil
}

// Invalidate removes the cached copy of a quiz.
func (r *QuizRepository) Invalidate(ctx context.Context, quizID string) error {
	return r.client.Del(ctx, answersKey(quizID), pointsKey(quizID), metaKey(quizID)).Err()
}

func (r *QuizRepository) cached(ctx context.Context, quizID string) (domain.Quiz, bool) {
	pipe := r.client.Pipeline()
	metaCmd := pipe.HGetAll(ctx, metaKey(quizID))
	answersCmd := pipe.HGetAll(ctx, answersKey(quizID))
	pointsCmd := pipe.HGetAll(ctx, pointsKey(quizID))
	if _, err := pipe.Exec(ctx); err != nil {
		return domain.Quiz{}, false
	}
	meta := metaCmd.Val()
	if len(meta) == 0 {
		return domain.Quiz{}, false
	}
	return buildQuizFromCache(quizID, meta, answersCmd.Val(), pointsCmd.Val()), true
}

// store writes the scoring view of quiz. Cache writes are best-effort.
func (r *QuizRepository) store(ctx context.Context, quiz domain.Quiz) {
	order := make([]string, 0, len(quiz.Questions))
	for _, q := range quiz.Questions {
		order = append(order, q.ID)
	}
	orderJSON, _ := json.Marshal(order)

	ttl := r.ttlWithJitter()
	pipe := r.client.TxPipeline()
	for _, q := range quiz.Questions {
		pipe.HSet(ctx, answersKey(quiz.ID), q.ID, q.CorrectOption())
		pipe.HSet(ctx, pointsKey(quiz.ID), q.ID, q.Points)
	}
	pipe.HSet(ctx, metaKey(quiz.ID),
		"difficulty", string(quiz.Difficulty),
		"passScore", quiz.PassScore,
		"timeLimitMinutes", strconv.FormatFloat(quiz.TimeLimitMinutes, 'f', -1, 64),
		"title", quiz.Title,
		"order", string(orderJSON),
	)
	if ttl > 0 {
		pipe.Expire(ctx, answersKey(quiz.ID), ttl)
		pipe.Expire(ctx, pointsKey(quiz.ID), ttl)
		pipe.Expire(ctx, metaKey(quiz.ID), ttl)
	}
	_, _ = pipe.Exec(ctx)
}

func answersKey(quizID string) string {
	return "quiz:" + quizID + ":answers"
}

func pointsKey(quizID string) string {
	return "quiz:" + quizID + ":points"
}

func metaKey(quizID string) string {
	return "quiz:" + quizID + ":meta"
}

func buildQuizFromCache(quizID string, meta, answers, pointsMap map[string]string) domain.Quiz {
	quiz := domain.Quiz{
		ID:         quizID,
		Title:      meta["title"],
		Difficulty: domain.Difficulty(meta["difficulty"]),
	}
	quiz.PassScore, _ = strconv.Atoi(meta["passScore"])
	quiz.TimeLimitMinutes, _ = strconv.ParseFloat(meta["timeLimitMinutes"], 64)

	var order []string
	if err := json.Unmarshal([]byte(meta["order"]), &order); err != nil || len(order) != len(answers) {
		order = order[:0]
		for questionID := range answers {
			order = append(order, questionID)
		}
	}

	quiz.Questions = make([]domain.Question, 0, len(order))
	for _, questionID := range order {
		points, _ := strconv.Atoi(pointsMap[questionID])
		quiz.Questions = append(quiz.Questions, domain.Question{
			ID:              questionID,
			Points:          points,
			CorrectOptionID: answers[questionID],
		})
	}
	return quiz
}

func (r *QuizRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
