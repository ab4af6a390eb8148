package server

import (
	"testing"
	"time"
)

func TestTypingTrackerLifecycle(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tracker := newTypingTracker(30 * time.Second)

	if tracker.typing(7, 1, now) {
		t.Fatal("typing before start")
	}
	tracker.start(7, 1, now)
	if !tracker.typing(7, 1, now.Add(10*time.Second)) {
		t.Fatal("not typing within ttl")
	}
	tracker.stop(7, 1)
	if tracker.typing(7, 1, now.Add(10*time.Second)) {
		t.Fatal("typing after stop")
	}
}

func TestTypingTrackerExpiry(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tracker := newTypingTracker(30 * time.Second)

	tracker.start(7, 1, now)
	if tracker.typing(7, 1, now.Add(31*time.Second)) {
		t.Fatal("typing after ttl expired")
	}
	// A fresh start after expiry resets the deadline.
	tracker.start(7, 1, now.Add(40*time.Second))
	if !tracker.typing(7, 1, now.Add(60*time.Second)) {
		t.Fatal("not typing after restart")
	}
}

func TestTypingTrackerIsolatesConversations(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tracker := newTypingTracker(30 * time.Second)

	tracker.start(7, 1, now)
	if tracker.typing(8, 1, now) {
		t.Fatal("typing leaked across conversations")
	}
	if tracker.typing(7, 2, now) {
		t.Fatal("typing leaked across users")
	}
}
