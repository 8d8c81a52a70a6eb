package memory

import (
	"context"
	"sync"

	"xforce-progression/internal/domain"
	"xforce-progression/internal/progression"
)

// AggregateStore keeps user aggregates in process memory with versioned writes.
type AggregateStore struct {
	mu    sync.Mutex
	users map[string]domain.UserAggregate
}

func NewAggregateStore() *AggregateStore {
	return &AggregateStore{users: make(map[string]domain.UserAggregate)}
}

func (s *AggregateStore) Read(_ context.Context, userID string) (domain.UserAggregate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	agg, ok := s.users[userID]
	if !ok {
		return domain.UserAggregate{}, domain.ErrUserNotFound
	}
	return agg.Clone(), nil
}

func (s *AggregateStore) Write(_ context.Context, agg domain.UserAggregate) (domain.UserAggregate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.users[agg.UserID]
	if !ok {
		return domain.UserAggregate{}, domain.ErrUserNotFound
	}
	if current.Version != agg.Version {
		return domain.UserAggregate{}, domain.ErrVersionConflict
	}
	next := agg.Clone()
	// Unlocks are never lost, even if the caller's set was stale.
	for id, at := range current.Achievements {
		next.Achievements.Add(id, at)
	}
	next.Version++
	s.users[agg.UserID] = next
	return next.Clone(), nil
}

func (s *AggregateStore) ApplyDelta(_ context.Context, userID string, delta domain.AggregateDelta) (domain.UserAggregate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	agg, ok := s.users[userID]
	if !ok {
		return domain.UserAggregate{}, domain.ErrUserNotFound
	}
	delta.AddTo(&agg)
	progression.Relevel(&agg)
	agg.Version++
	s.users[userID] = agg
	return agg.Clone(), nil
}

func (s *AggregateStore) Create(_ context.Context, userID string) (domain.UserAggregate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if agg, ok := s.users[userID]; ok {
		return agg.Clone(), nil
	}
	agg := domain.NewUserAggregate(userID)
	s.users[userID] = agg
	return agg.Clone(), nil
}

// Put stores agg as is. Used to seed fixtures.
func (s *AggregateStore) Put(agg domain.UserAggregate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if agg.Achievements == nil {
		agg.Achievements = domain.AchievementSet{}
	}
	s.users[agg.UserID] = agg.Clone()
}
