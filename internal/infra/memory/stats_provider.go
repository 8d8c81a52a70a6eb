package memory

import (
	"context"
	"sync"
)

type userStats struct {
	topics      int
	replies     int
	bestAnswers int
	access      map[string]int
}

// StatsProvider holds community counters in memory. Tests and demo mode use it
// in place of the forum and resource collections.
type StatsProvider struct {
	mu    sync.RWMutex
	users map[string]*userStats
}

func NewStatsProvider() *StatsProvider {
	return &StatsProvider{users: make(map[string]*userStats)}
}

func (p *StatsProvider) user(userID string) *userStats {
	u, ok := p.users[userID]
	if !ok {
		u = &userStats{access: map[string]int{}}
		p.users[userID] = u
	}
	return u
}

func (p *StatsProvider) AddForumTopics(userID string, n int) {
	p.mu.Lock()
	p.user(userID).topics += n
	p.mu.Unlock()
}

func (p *StatsProvider) AddForumReplies(userID string, n int) {
	p.mu.Lock()
	p.user(userID).replies += n
	p.mu.Unlock()
}

func (p *StatsProvider) AddBestAnswers(userID string, n int) {
	p.mu.Lock()
	p.user(userID).bestAnswers += n
	p.mu.Unlock()
}

// AddResourceAccess records n accesses of the given type.
func (p *StatsProvider) AddResourceAccess(userID, accessType string, n int) {
	p.mu.Lock()
	p.user(userID).access[accessType] += n
	p.mu.Unlock()
}

func (p *StatsProvider) ForumTopicCount(_ context.Context, userID string) (int, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if u, ok := p.users[userID]; ok {
		return u.topics, nil
	}
	return 0, nil
}

func (p *StatsProvider) ForumReplyCount(_ context.Context, userID string) (int, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if u, ok := p.users[userID]; ok {
		return u.replies, nil
	}
	return 0, nil
}

func (p *StatsProvider) BestAnswerCount(_ context.Context, userID string) (int, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if u, ok := p.users[userID]; ok {
		return u.bestAnswers, nil
	}
	return 0, nil
}

func (p *StatsProvider) ResourceAccessCount(_ context.Context, userID, accessType string) (int, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	u, ok := p.users[userID]
	if !ok {
		return 0, nil
	}
	if accessType != "" {
		return u.access[accessType], nil
	}
	total := 0
	for _, n := range u.access {
		total += n
	}
	return total, nil
}
