package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"xforce-progression/internal/domain"
	"xforce-progression/internal/logger"
	"xforce-progression/internal/metrics"
	"xforce-progression/internal/progression"
)

// QuizRepository loads quiz content (from cache/backing store).
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
}

// UserAggregateStore persists per-user progression totals.
type UserAggregateStore interface {
	// Read returns domain.ErrUserNotFound for users that were never provisioned.
	Read(ctx context.Context, userID string) (domain.UserAggregate, error)
	// Write replaces the stored aggregate if its version still equals agg.Version,
	// and returns the stored state carrying the new version. A concurrent writer
	// makes it fail with domain.ErrVersionConflict.
	Write(ctx context.Context, agg domain.UserAggregate) (domain.UserAggregate, error)
	// ApplyDelta atomically adds delta to the stored counters and recomputes the level.
	ApplyDelta(ctx context.Context, userID string, delta domain.AggregateDelta) (domain.UserAggregate, error)
	// Create provisions an empty aggregate, returning the existing one if present.
	Create(ctx context.Context, userID string) (domain.UserAggregate, error)
}

// AchievementCatalog serves the read-only achievement definitions.
type AchievementCatalog interface {
	ListByTrigger(ctx context.Context, trigger domain.Trigger) ([]domain.AchievementDefinition, error)
	List(ctx context.Context) ([]domain.AchievementDefinition, error)
}

// StatsProvider exposes counters owned by the forum and resource features.
type StatsProvider interface {
	ForumTopicCount(ctx context.Context, userID string) (int, error)
	ForumReplyCount(ctx context.Context, userID string) (int, error)
	BestAnswerCount(ctx context.Context, userID string) (int, error)
	// ResourceAccessCount counts every access when accessType is empty.
	ResourceAccessCount(ctx context.Context, userID, accessType string) (int, error)
}

// AttemptHistory stores scored quiz attempts.
type AttemptHistory interface {
	CountAttempts(ctx context.Context, userID string, filter domain.AttemptFilter) (int, error)
	RecordAttempt(ctx context.Context, attempt domain.QuizAttempt) error
}

// Leaderboard ranks users by total points.
type Leaderboard interface {
	SetPoints(ctx context.Context, userID string, points int) error
	Top(ctx context.Context, n int) (domain.Leaderboard, error)
}

// Notifier receives progression events after they are persisted.
type Notifier interface {
	Notify(ctx context.Context, event domain.ProgressionEvent) error
}

// Dependencies wires the service to its stores. Quizzes, Store, Ledger and Catalog
// are required; the rest may be nil.
type Dependencies struct {
	Quizzes     QuizRepository
	Store       UserAggregateStore
	Ledger      progression.ActivityLedger
	Catalog     AchievementCatalog
	Stats       StatsProvider
	Attempts    AttemptHistory
	Leaderboard Leaderboard
	Notifiers   []Notifier
	Logger      *logger.Logger
}

type Options struct {
	// MaxWriteRetries bounds optimistic write retries; 0 means 3.
	MaxWriteRetries int
	// LeaderboardSize is the default number of ranked entries; 0 means 10.
	LeaderboardSize int
	Now             func() time.Time
}

// ProgressionService coordinates scoring, levels, streaks and achievements for user events.
type ProgressionService struct {
	quizzes     QuizRepository
	store       UserAggregateStore
	catalog     AchievementCatalog
	stats       StatsProvider
	attempts    AttemptHistory
	leaderboard Leaderboard
	notifiers   []Notifier

	streaks   *progression.StreakTracker
	evaluator *progression.AchievementEvaluator
	locks     userLocks
	log       *logger.Logger
	now       func() time.Time

	maxWriteRetries int
	leaderboardSize int
}

func NewProgressionService(deps Dependencies, opts Options) *ProgressionService {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	log := deps.Logger
	if log == nil {
		log = logger.Nop()
	}
	retries := opts.MaxWriteRetries
	if retries <= 0 {
		retries = 3
	}
	size := opts.LeaderboardSize
	if size <= 0 {
		size = 10
	}
	return &ProgressionService{
		quizzes:         deps.Quizzes,
		store:           deps.Store,
		catalog:         deps.Catalog,
		stats:           deps.Stats,
		attempts:        deps.Attempts,
		leaderboard:     deps.Leaderboard,
		notifiers:       deps.Notifiers,
		streaks:         progression.NewStreakTracker(deps.Ledger),
		evaluator:       progression.NewAchievementEvaluatorWithClock(now),
		log:             log.With("service", "ProgressionService"),
		now:             now,
		maxWriteRetries: retries,
		leaderboardSize: size,
	}
}

// quizWrite is the result of the aggregate part of the quiz flow.
type quizWrite struct {
	previousLevel int
	after         domain.UserAggregate
	unlocked      []domain.UnlockedAchievement
}

// OnQuizSubmitted scores a submission and applies its effects to the user's progression.
// Input and quiz lookup errors are returned. Persistence failures are logged and
// reported through QuizOutcome.Persisted; the score is returned regardless.
func (s *ProgressionService) OnQuizSubmitted(ctx context.Context, userID, quizID string, answers []domain.AnswerSubmission, timeTakenSeconds *float64) (domain.QuizOutcome, error) {
	timer := time.Now()
	defer func() { metrics.FlowDuration.WithLabelValues("quiz").Observe(time.Since(timer).Seconds()) }()

	if strings.TrimSpace(userID) == "" {
		metrics.QuizSubmissions.WithLabelValues("rejected").Inc()
		return domain.QuizOutcome{}, domain.ErrInvalidUserID
	}
	if strings.TrimSpace(quizID) == "" {
		metrics.QuizSubmissions.WithLabelValues("rejected").Inc()
		return domain.QuizOutcome{}, domain.ErrInvalidQuizID
	}
	if answers == nil {
		metrics.QuizSubmissions.WithLabelValues("rejected").Inc()
		return domain.QuizOutcome{}, domain.ErrInvalidAnswers
	}

	quiz, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		metrics.QuizSubmissions.WithLabelValues("rejected").Inc()
		return domain.QuizOutcome{}, err
	}
	result, err := progression.Score(quiz, answers, timeTakenSeconds)
	if err != nil {
		metrics.QuizSubmissions.WithLabelValues("rejected").Inc()
		return domain.QuizOutcome{}, err
	}

	outcome := domain.QuizOutcome{
		PercentageScore:           result.PercentageScore,
		Passed:                    result.Passed,
		PointsAwarded:             result.PointsAwarded,
		XPAwarded:                 result.XPAwarded,
		NewlyUnlockedAchievements: []domain.UnlockedAchievement{},
		Result:                    result,
	}
	delta := domain.AggregateDelta{
		XP:               result.XPAwarded,
		Points:           result.PointsAwarded,
		QuizPointsEarned: result.PointsAwarded,
		QuizCompleted:    1,
		PercentageSum:    result.PercentageScore,
	}
	submission := progression.SubmissionFacts{
		PercentageScore: result.PercentageScore,
		Passed:          result.Passed,
		Difficulty:      result.Difficulty,
		PointsAwarded:   result.PointsAwarded,
	}

	unlock := s.locks.lock(userID)
	written, err := s.writeQuiz(ctx, userID, delta, submission)
	if err == nil {
		s.recordAttempt(ctx, userID, result)
	}
	unlock()

	if errors.Is(err, domain.ErrUserNotFound) {
		metrics.QuizSubmissions.WithLabelValues("rejected").Inc()
		return domain.QuizOutcome{}, err
	}
	label := "failed"
	if result.Passed {
		label = "passed"
	}
	metrics.QuizSubmissions.WithLabelValues(label).Inc()
	if err != nil {
		metrics.PersistenceFailures.WithLabelValues("quiz").Inc()
		s.log.Warn("quiz progression not persisted", "userId", userID, "quizId", quizID, "flow", "quiz", "error", err)
		return outcome, nil
	}

	outcome.Persisted = true
	outcome.PreviousLevel = written.previousLevel
	outcome.Level = written.after.Level
	outcome.LeveledUp = written.after.Level > written.previousLevel
	if written.unlocked != nil {
		outcome.NewlyUnlockedAchievements = written.unlocked
	}

	s.updateLeaderboard(ctx, written.after)
	events := []domain.ProgressionEvent{s.newEvent(domain.EventQuizScored, userID)}
	events[0].Quiz = &domain.QuizScoredPayload{
		QuizID:          quizID,
		PercentageScore: result.PercentageScore,
		Passed:          result.Passed,
		PointsAwarded:   result.PointsAwarded,
		XPAwarded:       result.XPAwarded,
	}
	events = append(events, s.progressEvents(userID, written.previousLevel, written.after, written.unlocked)...)
	s.emit(ctx, events)
	return outcome, nil
}

// writeQuiz runs the read-evaluate-write cycle for one scored submission. When the
// optimistic write keeps losing it falls back to an atomic increment of the scoring
// delta, leaving achievements to the next event.
func (s *ProgressionService) writeQuiz(ctx context.Context, userID string, delta domain.AggregateDelta, submission progression.SubmissionFacts) (quizWrite, error) {
	for attempt := 0; attempt <= s.maxWriteRetries; attempt++ {
		current, err := s.store.Read(ctx, userID)
		if err != nil {
			return quizWrite{}, err
		}

		next := current.Clone()
		delta.AddTo(&next)
		progression.Relevel(&next)

		candidates := s.candidates(ctx, next, domain.QuizTriggers...)
		var unlocked []domain.UnlockedAchievement
		if len(candidates) > 0 {
			facts, err := s.gatherFacts(ctx, userID, candidates)
			if err != nil {
				s.log.Warn("achievement facts unavailable, evaluation deferred", "userId", userID, "error", err)
			} else {
				facts.Submission = &submission
				facts.QuizPointsEarned = current.QuizPointsEarned
				facts.Streak = progression.EffectiveStreak(current, s.now())
				unlocked = s.evaluator.Evaluate(&next, candidates, facts)
				progression.Relevel(&next)
			}
		}

		stored, err := s.store.Write(ctx, next)
		if errors.Is(err, domain.ErrVersionConflict) {
			metrics.WriteConflicts.Inc()
			s.log.Debug("aggregate version conflict", "userId", userID, "attempt", attempt+1)
			continue
		}
		if err != nil {
			return quizWrite{}, err
		}
		return quizWrite{previousLevel: current.Level, after: stored, unlocked: unlocked}, nil
	}

	s.log.Warn("write retries exhausted, applying scoring delta", "userId", userID, "retries", s.maxWriteRetries)
	stored, err := s.store.ApplyDelta(ctx, userID, delta)
	if err != nil {
		return quizWrite{}, fmt.Errorf("apply delta: %w", err)
	}
	return quizWrite{previousLevel: progression.LevelForXP(stored.XP - delta.XP), after: stored}, nil
}

func (s *ProgressionService) recordAttempt(ctx context.Context, userID string, result domain.QuizSubmissionResult) {
	if s.attempts == nil {
		return
	}
	attempt := domain.QuizAttempt{
		ID:               uuid.NewString(),
		UserID:           userID,
		QuizID:           result.QuizID,
		PercentageScore:  result.PercentageScore,
		Passed:           result.Passed,
		Difficulty:       result.Difficulty,
		PointsAwarded:    result.PointsAwarded,
		XPAwarded:        result.XPAwarded,
		TimeTakenSeconds: result.TimeTakenSeconds,
		CreatedAt:        s.now().UTC(),
	}
	if err := s.attempts.RecordAttempt(ctx, attempt); err != nil {
		s.log.Warn("quiz attempt not recorded", "userId", userID, "quizId", result.QuizID, "error", err)
	}
}

// OnUserActivity advances the user's daily streak and unlocks streak achievements.
// Only validation errors and unknown users are returned; everything else is logged
// and reported through ActivityOutcome.Persisted, so callers on the login path can ignore it.
func (s *ProgressionService) OnUserActivity(ctx context.Context, userID string, at time.Time) (domain.ActivityOutcome, error) {
	timer := time.Now()
	defer func() { metrics.FlowDuration.WithLabelValues("activity").Observe(time.Since(timer).Seconds()) }()

	if strings.TrimSpace(userID) == "" {
		return domain.ActivityOutcome{}, domain.ErrInvalidUserID
	}
	if at.IsZero() {
		at = s.now()
	}

	unlock := s.locks.lock(userID)
	previousLevel, after, streakChanged, unlocked, err := s.writeActivity(ctx, userID, at)
	unlock()

	if errors.Is(err, domain.ErrUserNotFound) {
		return domain.ActivityOutcome{}, err
	}
	outcome := domain.ActivityOutcome{
		Streak:                    after.Streak,
		NewlyUnlockedAchievements: []domain.UnlockedAchievement{},
		Level:                     after.Level,
	}
	if err != nil {
		metrics.PersistenceFailures.WithLabelValues("activity").Inc()
		s.log.Warn("activity progression not persisted", "userId", userID, "flow", "activity", "error", err)
		return outcome, nil
	}

	outcome.Persisted = true
	outcome.LeveledUp = after.Level > previousLevel
	if unlocked != nil {
		outcome.NewlyUnlockedAchievements = unlocked
	}

	var events []domain.ProgressionEvent
	if streakChanged {
		ev := s.newEvent(domain.EventStreakUpdated, userID)
		streak := after.Streak
		ev.Streak = &streak
		events = append(events, ev)
	}
	if len(unlocked) > 0 {
		s.updateLeaderboard(ctx, after)
	}
	events = append(events, s.progressEvents(userID, previousLevel, after, unlocked)...)
	s.emit(ctx, events)
	return outcome, nil
}

func (s *ProgressionService) writeActivity(ctx context.Context, userID string, at time.Time) (int, domain.UserAggregate, bool, []domain.UnlockedAchievement, error) {
	var current domain.UserAggregate
	for attempt := 0; attempt <= s.maxWriteRetries; attempt++ {
		var err error
		current, err = s.store.Read(ctx, userID)
		if err != nil {
			return 0, current, false, nil, err
		}

		next := current.Clone()
		_, changed, err := s.streaks.RecordActivity(ctx, &next, at)
		if err != nil {
			return current.Level, current, false, nil, err
		}

		var unlocked []domain.UnlockedAchievement
		candidates := s.candidates(ctx, next, domain.TriggerStudyStreak)
		if len(candidates) > 0 {
			unlocked = s.evaluator.Evaluate(&next, candidates, progression.Facts{
				QuizPointsEarned: next.QuizPointsEarned,
				Streak:           next.Streak,
			})
			progression.Relevel(&next)
		}
		if !changed && len(unlocked) == 0 {
			return current.Level, current, false, nil, nil
		}

		stored, err := s.store.Write(ctx, next)
		if errors.Is(err, domain.ErrVersionConflict) {
			metrics.WriteConflicts.Inc()
			s.log.Debug("aggregate version conflict", "userId", userID, "attempt", attempt+1)
			continue
		}
		if err != nil {
			return current.Level, current, false, nil, err
		}
		return current.Level, stored, changed, unlocked, nil
	}
	return current.Level, current, false, nil, fmt.Errorf("activity write: %w", domain.ErrVersionConflict)
}

// Reevaluate checks the given triggers (all of them when none are given) against the
// user's current counters. Forum and resource features call it after a counter changes.
func (s *ProgressionService) Reevaluate(ctx context.Context, userID string, triggers ...domain.Trigger) ([]domain.UnlockedAchievement, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, domain.ErrInvalidUserID
	}
	if len(triggers) == 0 {
		triggers = domain.AllTriggers
	}

	unlock := s.locks.lock(userID)
	var (
		current  domain.UserAggregate
		stored   domain.UserAggregate
		unlocked []domain.UnlockedAchievement
		err      error
	)
	for attempt := 0; attempt <= s.maxWriteRetries; attempt++ {
		current, err = s.store.Read(ctx, userID)
		if err != nil {
			break
		}
		next := current.Clone()
		candidates := s.candidates(ctx, next, triggers...)
		if len(candidates) == 0 {
			unlocked, stored = nil, current
			break
		}
		var facts progression.Facts
		facts, err = s.gatherFacts(ctx, userID, candidates)
		if err != nil {
			break
		}
		facts.QuizPointsEarned = current.QuizPointsEarned
		facts.Streak = progression.EffectiveStreak(current, s.now())
		unlocked = s.evaluator.Evaluate(&next, candidates, facts)
		if len(unlocked) == 0 {
			stored = current
			break
		}
		progression.Relevel(&next)
		stored, err = s.store.Write(ctx, next)
		if errors.Is(err, domain.ErrVersionConflict) {
			metrics.WriteConflicts.Inc()
			continue
		}
		break
	}
	unlock()

	if err != nil {
		return nil, fmt.Errorf("reevaluate achievements: %w", err)
	}
	if len(unlocked) == 0 {
		return []domain.UnlockedAchievement{}, nil
	}
	s.updateLeaderboard(ctx, stored)
	s.emit(ctx, s.progressEvents(userID, current.Level, stored, unlocked))
	return unlocked, nil
}

// AchievementProgress reports every catalog achievement from the user's point of view.
func (s *ProgressionService) AchievementProgress(ctx context.Context, userID string) ([]domain.AchievementProgress, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, domain.ErrInvalidUserID
	}
	agg, err := s.store.Read(ctx, userID)
	if err != nil {
		return nil, err
	}
	defs, err := s.catalog.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list achievements: %w", err)
	}
	progression.SortByPosition(defs)

	facts, err := s.gatherFacts(ctx, userID, defs)
	if err != nil {
		return nil, err
	}
	facts.QuizPointsEarned = agg.QuizPointsEarned
	facts.Streak = progression.EffectiveStreak(agg, s.now())
	return s.evaluator.Progress(agg, defs, facts), nil
}

// Snapshot returns the user's aggregate with level progress and average score.
func (s *ProgressionService) Snapshot(ctx context.Context, userID string) (domain.ProgressionSnapshot, error) {
	if strings.TrimSpace(userID) == "" {
		return domain.ProgressionSnapshot{}, domain.ErrInvalidUserID
	}
	agg, err := s.store.Read(ctx, userID)
	if err != nil {
		return domain.ProgressionSnapshot{}, err
	}
	// The stored streak only resets on the next activity; report the live value.
	agg.Streak = progression.EffectiveStreak(agg, s.now())
	return domain.ProgressionSnapshot{
		Aggregate:    agg,
		Level:        progression.Progress(agg.XP),
		AverageScore: agg.AverageScore(),
	}, nil
}

// Leaderboard returns the top n users by points; n <= 0 selects the configured size.
func (s *ProgressionService) Leaderboard(ctx context.Context, n int) (domain.Leaderboard, error) {
	if n <= 0 {
		n = s.leaderboardSize
	}
	if s.leaderboard == nil {
		return domain.Leaderboard{Entries: []domain.LeaderboardEntry{}, UpdatedAt: s.now()}, nil
	}
	return s.leaderboard.Top(ctx, n)
}

// Provision creates an empty aggregate for userID. Calling it again is harmless.
func (s *ProgressionService) Provision(ctx context.Context, userID string) (domain.UserAggregate, error) {
	if strings.TrimSpace(userID) == "" {
		return domain.UserAggregate{}, domain.ErrInvalidUserID
	}
	agg, err := s.store.Create(ctx, userID)
	if err != nil {
		return domain.UserAggregate{}, fmt.Errorf("provision user: %w", err)
	}
	s.updateLeaderboard(ctx, agg)
	return agg, nil
}

// candidates returns catalog entries of triggers that agg has not unlocked.
// Catalog failures are logged and yield no candidates.
func (s *ProgressionService) candidates(ctx context.Context, agg domain.UserAggregate, triggers ...domain.Trigger) []domain.AchievementDefinition {
	var defs []domain.AchievementDefinition
	for _, trigger := range triggers {
		list, err := s.catalog.ListByTrigger(ctx, trigger)
		if err != nil {
			s.log.Warn("achievement catalog unavailable", "trigger", trigger, "error", err)
			return nil
		}
		defs = append(defs, list...)
	}
	return progression.FilterCandidates(agg, defs, triggers...)
}

// gatherFacts loads the historical and external counters candidates depend on.
func (s *ProgressionService) gatherFacts(ctx context.Context, userID string, candidates []domain.AchievementDefinition) (progression.Facts, error) {
	req := progression.FactsNeeded(candidates)
	facts := progression.Facts{
		QuizAttempts:   make(map[domain.AttemptFilter]int, len(req.AttemptFilters)),
		ResourceAccess: make(map[string]int, len(req.AccessTypes)),
	}

	if s.attempts != nil {
		for _, filter := range req.AttemptFilters {
			n, err := s.attempts.CountAttempts(ctx, userID, filter)
			if err != nil {
				return facts, fmt.Errorf("count attempts: %w", err)
			}
			facts.QuizAttempts[filter] = n
		}
	}
	if s.stats == nil {
		return facts, nil
	}

	var err error
	if req.ForumTopics {
		if facts.ForumTopics, err = s.stats.ForumTopicCount(ctx, userID); err != nil {
			return facts, fmt.Errorf("forum topic count: %w", err)
		}
	}
	if req.ForumReplies {
		if facts.ForumReplies, err = s.stats.ForumReplyCount(ctx, userID); err != nil {
			return facts, fmt.Errorf("forum reply count: %w", err)
		}
	}
	if req.BestAnswers {
		if facts.BestAnswers, err = s.stats.BestAnswerCount(ctx, userID); err != nil {
			return facts, fmt.Errorf("best answer count: %w", err)
		}
	}
	for _, accessType := range req.AccessTypes {
		n, err := s.stats.ResourceAccessCount(ctx, userID, accessType)
		if err != nil {
			return facts, fmt.Errorf("resource access count: %w", err)
		}
		facts.ResourceAccess[accessType] = n
	}
	return facts, nil
}

func (s *ProgressionService) updateLeaderboard(ctx context.Context, agg domain.UserAggregate) {
	if s.leaderboard == nil {
		return
	}
	if err := s.leaderboard.SetPoints(ctx, agg.UserID, agg.Points); err != nil {
		s.log.Warn("leaderboard not updated", "userId", agg.UserID, "error", err)
	}
}

func (s *ProgressionService) newEvent(kind domain.EventType, userID string) domain.ProgressionEvent {
	return domain.ProgressionEvent{
		ID:         uuid.NewString(),
		Type:       kind,
		UserID:     userID,
		OccurredAt: s.now().UTC(),
	}
}

// progressEvents builds the unlock and level-up events of one write.
func (s *ProgressionService) progressEvents(userID string, previousLevel int, after domain.UserAggregate, unlocked []domain.UnlockedAchievement) []domain.ProgressionEvent {
	var events []domain.ProgressionEvent
	for i := range unlocked {
		metrics.AchievementsUnlocked.WithLabelValues(string(unlocked[i].Achievement.Trigger)).Inc()
		ev := s.newEvent(domain.EventAchievementUnlocked, userID)
		def := unlocked[i].Achievement
		ev.Unlocked = &def
		ev.OccurredAt = unlocked[i].UnlockedAt
		events = append(events, ev)
	}
	if after.Level > previousLevel {
		metrics.LevelUps.Inc()
		ev := s.newEvent(domain.EventLevelUp, userID)
		ev.LevelUp = &domain.LevelUpPayload{From: previousLevel, To: after.Level, XP: after.XP}
		events = append(events, ev)
	}
	return events
}

// emit hands events to every notifier. Failures are logged; the write already happened.
func (s *ProgressionService) emit(ctx context.Context, events []domain.ProgressionEvent) {
	for _, ev := range events {
		for _, n := range s.notifiers {
			status := "ok"
			if err := n.Notify(ctx, ev); err != nil {
				status = "error"
				s.log.Warn("progression event not delivered", "type", ev.Type, "userId", ev.UserID, "error", err)
			}
			metrics.EventsPublished.WithLabelValues(string(ev.Type), status).Inc()
		}
	}
}
