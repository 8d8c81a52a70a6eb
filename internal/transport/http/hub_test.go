package http

import (
	"context"
	"testing"

	"xforce-progression/internal/domain"
)

func TestHubDeliversToOwnerOnly(t *testing.T) {
	hub := NewHub()
	mine, cancelMine := hub.Subscribe("u1")
	defer cancelMine()
	other, cancelOther := hub.Subscribe("u2")
	defer cancelOther()

	_ = hub.Notify(context.Background(), domain.ProgressionEvent{Type: domain.EventLevelUp, UserID: "u1"})

	select {
	case ev := <-mine:
		if ev.Type != domain.EventLevelUp {
			t.Fatalf("unexpected event %+v", ev)
		}
	default:
		t.Fatalf("expected event for u1")
	}
	select {
	case ev := <-other:
		t.Fatalf("u2 must not receive u1 events, got %+v", ev)
	default:
	}
}

func TestHubDropsOldestWhenFull(t *testing.T) {
	hub := NewHub()
	ch, cancel := hub.Subscribe("u1")
	defer cancel()

	for i := 0; i < 20; i++ {
		streak := i
		_ = hub.Notify(context.Background(), domain.ProgressionEvent{Type: domain.EventStreakUpdated, UserID: "u1", Streak: &streak})
	}

	var last int
	for len(ch) > 0 {
		last = *(<-ch).Streak
	}
	if last != 19 {
		t.Fatalf("expected newest event to be kept, got %d", last)
	}
}

func TestHubCancel(t *testing.T) {
	hub := NewHub()
	ch, cancel := hub.Subscribe("u1")
	if hub.Connections("u1") != 1 {
		t.Fatalf("expected one connection")
	}
	cancel()
	cancel()
	if _, ok := <-ch; ok {
		t.Fatalf("expected closed channel")
	}
	if hub.Connections("u1") != 0 {
		t.Fatalf("expected no connections after cancel")
	}
	if err := hub.Notify(context.Background(), domain.ProgressionEvent{UserID: "u1"}); err != nil {
		t.Fatalf("notify without subscribers: %v", err)
	}
}
