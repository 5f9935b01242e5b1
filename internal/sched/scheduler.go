package sched

import (
	"container/heap"
	"sync"
	"time"

	"go.uber.org/zap"
)

type Kind int

const (
	Mute Kind = iota
	Pomodoro
	ShortBreak
	LongBreak
)

func (k Kind) String() string {
	switch k {
	case Mute:
		return "mute"
	case Pomodoro:
		return "pomodoro"
	case ShortBreak:
		return "short_break"
	case LongBreak:
		return "long_break"
	default:
		return "unknown"
	}
}

type Action struct {
	Kind      Kind
	UserID    string
	GuildID   string
	ChannelID string
	RoleID    string
	Label     string
	CreatedAt time.Time
	Deadline  time.Time
}

// EffectFunc performs the reversal side effect for a fired action. A
// returned error is logged and the action is still considered done.
type EffectFunc func(action Action) error

type entry struct {
	action Action
	index  int
}

type entryHeap []*entry

func (h entryHeap) Len() int            { return len(h) }
func (h entryHeap) Less(i, j int) bool  { return h[i].action.Deadline.Before(h[j].action.Deadline) }
func (h entryHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i]; h[i].index = i; h[j].index = j }
func (h *entryHeap) Push(x any)         { e := x.(*entry); e.index = len(*h); *h = append(*h, e) }
func (h *entryHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.index = -1
	*h = old[:n-1]
	return e
}

// Scheduler owns every pending timed action and runs a single worker
// that fires them at their deadlines. Mute actions are unique per
// (user, guild); adding a second mute for the same subject replaces the
// deadline. Pomodoro kinds always occupy fresh slots.
type Scheduler struct {
	mu      sync.Mutex
	pending entryHeap
	mutes   map[string]*entry
	wake    chan struct{}
	stop    chan struct{}
	stopped bool
	effect  EffectFunc
	logger  *zap.Logger
}

func New(effect EffectFunc, logger *zap.Logger) *Scheduler {
	s := &Scheduler{
		mutes:  make(map[string]*entry),
		wake:   make(chan struct{}, 1),
		stop:   make(chan struct{}),
		effect: effect,
		logger: logger,
	}
	go s.run()
	return s
}

func (s *Scheduler) Add(action Action) {
	if action.CreatedAt.IsZero() {
		action.CreatedAt = time.Now()
	}

	s.mu.Lock()
	if action.Kind == Mute {
		key := muteKey(action.UserID, action.GuildID)
		if existing, ok := s.mutes[key]; ok {
			existing.action = action
			heap.Fix(&s.pending, existing.index)
			s.mu.Unlock()
			s.signal()
			return
		}
		e := &entry{action: action}
		heap.Push(&s.pending, e)
		s.mutes[key] = e
		s.mu.Unlock()
		s.signal()
		return
	}
	heap.Push(&s.pending, &entry{action: action})
	s.mu.Unlock()
	s.signal()
}

// CancelMute removes a scheduled mute without running its effect. The
// reversal is the canceller's job. Returns false when no mute is
// scheduled, including when the worker already fired it.
func (s *Scheduler) CancelMute(userID, guildID string) bool {
	key := muteKey(userID, guildID)

	s.mu.Lock()
	e, ok := s.mutes[key]
	if !ok {
		s.mu.Unlock()
		return false
	}
	heap.Remove(&s.pending, e.index)
	delete(s.mutes, key)
	s.mu.Unlock()
	s.signal()
	return true
}

func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending.Len()
}

func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	s.mu.Unlock()
	close(s.stop)
}

func (s *Scheduler) run() {
	for {
		wait := s.fireDue()

		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
		case <-s.wake:
			timer.Stop()
		case <-s.stop:
			timer.Stop()
			return
		}
	}
}

// fireDue pops every expired entry and launches its effect on its own
// goroutine so one slow reversal cannot delay another deadline. Returns
// the wait until the next deadline.
func (s *Scheduler) fireDue() time.Duration {
	const idle = time.Hour

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for s.pending.Len() > 0 {
		next := s.pending[0]
		if next.action.Deadline.After(now) {
			return time.Until(next.action.Deadline)
		}
		e := heap.Pop(&s.pending).(*entry)
		if e.action.Kind == Mute {
			delete(s.mutes, muteKey(e.action.UserID, e.action.GuildID))
		}
		go s.invoke(e.action)
	}
	return idle
}

func (s *Scheduler) invoke(action Action) {
	if s.effect == nil {
		return
	}
	if err := s.effect(action); err != nil {
		s.logger.Warn("timer effect failed",
			zap.String("kind", action.Kind.String()),
			zap.String("user_id", action.UserID),
			zap.String("guild_id", action.GuildID),
			zap.Error(err))
	}
}

func (s *Scheduler) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func muteKey(userID, guildID string) string {
	return userID + "|" + guildID
}
