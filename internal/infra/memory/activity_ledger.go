package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"xforce-progression/internal/domain"
	"xforce-progression/internal/progression"
)

type ledgerKey struct {
	userID string
	day    time.Time
}

// ActivityLedger records one entry per user and calendar day.
type ActivityLedger struct {
	mu      sync.RWMutex
	entries map[ledgerKey]domain.ActivityLedgerEntry
}

func NewActivityLedger() *ActivityLedger {
	return &ActivityLedger{entries: make(map[ledgerKey]domain.ActivityLedgerEntry)}
}

func (l *ActivityLedger) WasActiveOn(_ context.Context, userID string, day time.Time) (bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.entries[ledgerKey{userID: userID, day: progression.CalendarDay(day)}]
	return ok, nil
}

func (l *ActivityLedger) RecordActivity(_ context.Context, userID string, at time.Time) error {
	key := ledgerKey{userID: userID, day: progression.CalendarDay(at)}
	l.mu.Lock()
	defer l.mu.Unlock()
	entry, ok := l.entries[key]
	if ok && !at.After(entry.LastActivityAt) {
		return nil
	}
	l.entries[key] = domain.ActivityLedgerEntry{UserID: userID, Day: key.day, LastActivityAt: at.UTC()}
	return nil
}

// Entries returns the user's ledger in day order.
func (l *ActivityLedger) Entries(userID string) []domain.ActivityLedgerEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []domain.ActivityLedgerEntry
	for key, entry := range l.entries {
		if key.userID == userID {
			out = append(out, entry)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Day.Before(out[j].Day) })
	return out
}
