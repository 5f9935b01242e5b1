package sched

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestMuteRefreshReplacesDeadline(t *testing.T) {
	fired := make(chan Action, 2)
	s := New(func(action Action) error {
		fired <- action
		return nil
	}, zap.NewNop())
	defer s.Stop()

	t1 := time.Now().Add(500 * time.Millisecond)
	t2 := time.Now().Add(80 * time.Millisecond)
	s.Add(Action{Kind: Mute, UserID: "u1", GuildID: "g1", RoleID: "r1", Deadline: t1})
	s.Add(Action{Kind: Mute, UserID: "u1", GuildID: "g1", RoleID: "r1", Deadline: t2})

	if got := s.Len(); got != 1 {
		t.Fatalf("expected one scheduled entry after refresh, got %d", got)
	}

	select {
	case action := <-fired:
		if !action.Deadline.Equal(t2) {
			t.Fatalf("expected refreshed deadline, got %v", action.Deadline)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("mute never fired")
	}

	select {
	case <-fired:
		t.Fatalf("mute fired twice")
	case <-time.After(700 * time.Millisecond):
	}
}

func TestConcurrentPomodoroTimersAllowed(t *testing.T) {
	s := New(func(action Action) error { return nil }, zap.NewNop())
	defer s.Stop()

	deadline := time.Now().Add(time.Hour)
	s.Add(Action{Kind: Pomodoro, UserID: "u1", ChannelID: "c1", Label: "Writing", Deadline: deadline})
	s.Add(Action{Kind: Pomodoro, UserID: "u1", ChannelID: "c1", Label: "Reading", Deadline: deadline})

	if got := s.Len(); got != 2 {
		t.Fatalf("expected two pomodoro entries, got %d", got)
	}
}

func TestCancelMuteRemovesWithoutEffect(t *testing.T) {
	var count int64
	s := New(func(action Action) error {
		atomic.AddInt64(&count, 1)
		return nil
	}, zap.NewNop())
	defer s.Stop()

	s.Add(Action{Kind: Mute, UserID: "u1", GuildID: "g1", Deadline: time.Now().Add(100 * time.Millisecond)})
	if !s.CancelMute("u1", "g1") {
		t.Fatalf("expected cancel to find the mute")
	}
	if s.CancelMute("u1", "g1") {
		t.Fatalf("second cancel should observe already removed")
	}

	time.Sleep(300 * time.Millisecond)
	if atomic.LoadInt64(&count) != 0 {
		t.Fatalf("cancelled mute still fired")
	}
}

func TestCancelFireRaceExactlyOnce(t *testing.T) {
	for i := 0; i < 50; i++ {
		var fires int64
		s := New(func(action Action) error {
			atomic.AddInt64(&fires, 1)
			return nil
		}, zap.NewNop())

		s.Add(Action{Kind: Mute, UserID: "u1", GuildID: "g1", Deadline: time.Now().Add(time.Millisecond)})

		var wg sync.WaitGroup
		wg.Add(1)
		var cancelled bool
		go func() {
			defer wg.Done()
			time.Sleep(time.Millisecond)
			cancelled = s.CancelMute("u1", "g1")
		}()
		wg.Wait()

		time.Sleep(50 * time.Millisecond)
		fired := atomic.LoadInt64(&fires) == 1

		if cancelled == fired {
			t.Fatalf("iteration %d: cancelled=%v fired=%v, want exactly one winner", i, cancelled, fired)
		}
		s.Stop()
	}
}

func TestSlowEffectDoesNotDelayOtherTimers(t *testing.T) {
	release := make(chan struct{})
	fired := make(chan Kind, 2)
	s := New(func(action Action) error {
		if action.Kind == Pomodoro {
			<-release
		}
		fired <- action.Kind
		return nil
	}, zap.NewNop())
	defer s.Stop()
	defer close(release)

	s.Add(Action{Kind: Pomodoro, UserID: "u1", ChannelID: "c1", Deadline: time.Now().Add(10 * time.Millisecond)})
	s.Add(Action{Kind: ShortBreak, UserID: "u2", ChannelID: "c2", Deadline: time.Now().Add(60 * time.Millisecond)})

	select {
	case kind := <-fired:
		if kind != ShortBreak {
			t.Fatalf("expected short break to fire while pomodoro effect is blocked, got %v", kind)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("second timer blocked behind slow effect")
	}
}

func TestEffectErrorIsTerminal(t *testing.T) {
	var count int64
	s := New(func(action Action) error {
		atomic.AddInt64(&count, 1)
		return errTest
	}, zap.NewNop())
	defer s.Stop()

	s.Add(Action{Kind: Mute, UserID: "u1", GuildID: "g1", Deadline: time.Now().Add(10 * time.Millisecond)})

	time.Sleep(200 * time.Millisecond)
	if got := atomic.LoadInt64(&count); got != 1 {
		t.Fatalf("expected one attempt, got %d", got)
	}
	if s.Len() != 0 {
		t.Fatalf("failed effect should still remove the entry")
	}
}

var errTest = timeoutError{}

type timeoutError struct{}

func (timeoutError) Error() string { return "test effect failure" }
