package moderation

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"guildkeeper/internal/storage"
)

type fakeEnforcer struct {
	kicks []string
	bans  []string
	err   error
}

func (f *fakeEnforcer) Kick(ctx context.Context, guildID, userID, reason string) error {
	if f.err != nil {
		return f.err
	}
	f.kicks = append(f.kicks, userID)
	return nil
}

func (f *fakeEnforcer) Ban(ctx context.Context, guildID, userID, reason string, deleteDays int) error {
	if f.err != nil {
		return f.err
	}
	f.bans = append(f.bans, userID)
	return nil
}

func newTestService(t *testing.T) (*Service, *fakeEnforcer) {
	t.Helper()
	store, err := storage.New(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(store.Close)
	if err := store.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	defaults := storage.GuildPolicy{
		Prefix:        "!",
		ProfanityMode: storage.ProfanityOff,
		WarnAction:    storage.WarnActionNone,
		WarnThreshold: 3,
		AllowInvites:  true,
	}
	enforcer := &fakeEnforcer{}
	return NewService(store, enforcer, defaults, 8, zap.NewNop()), enforcer
}

func TestWarnThresholdKicksExactlyOnce(t *testing.T) {
	ctx := context.Background()
	svc, enforcer := newTestService(t)
	if err := svc.SetWarnAction(ctx, "g1", "kick", 3); err != nil {
		t.Fatalf("set warn action: %v", err)
	}

	for i := 0; i < 2; i++ {
		result, err := svc.RecordWarning(ctx, "g1", "u1", "spamming")
		if err != nil {
			t.Fatalf("warn %d: %v", i+1, err)
		}
		if result.ActionTaken {
			t.Fatalf("warn %d below threshold triggered the action", i+1)
		}
	}

	result, err := svc.RecordWarning(ctx, "g1", "u1", "spamming")
	if err != nil {
		t.Fatalf("third warn: %v", err)
	}
	if !result.ActionTaken || result.Count != 3 {
		t.Fatalf("expected kick on third warn, got %+v", result)
	}
	if len(enforcer.kicks) != 1 {
		t.Fatalf("expected one kick, got %d", len(enforcer.kicks))
	}

	result, err = svc.RecordWarning(ctx, "g1", "u1", "still spamming")
	if err != nil {
		t.Fatalf("fourth warn: %v", err)
	}
	if result.ActionTaken {
		t.Fatalf("fourth warn past threshold kicked again")
	}
	if len(enforcer.kicks) != 1 {
		t.Fatalf("expected kick count to stay at 1, got %d", len(enforcer.kicks))
	}
}

func TestWarnActionNoneNeverEscalates(t *testing.T) {
	ctx := context.Background()
	svc, enforcer := newTestService(t)

	for i := 0; i < 5; i++ {
		result, err := svc.RecordWarning(ctx, "g1", "u1", "rude")
		if err != nil {
			t.Fatalf("warn %d: %v", i+1, err)
		}
		if result.ActionTaken {
			t.Fatalf("action none escalated on warn %d", i+1)
		}
	}
	if len(enforcer.kicks)+len(enforcer.bans) != 0 {
		t.Fatalf("enforcer called with action none")
	}
}

func TestWarnActionBanAtThreshold(t *testing.T) {
	ctx := context.Background()
	svc, enforcer := newTestService(t)
	if err := svc.SetWarnAction(ctx, "g1", "ban", 2); err != nil {
		t.Fatalf("set warn action: %v", err)
	}

	svc.RecordWarning(ctx, "g1", "u1", "first")
	result, err := svc.RecordWarning(ctx, "g1", "u1", "second")
	if err != nil {
		t.Fatalf("second warn: %v", err)
	}
	if !result.ActionTaken || len(enforcer.bans) != 1 {
		t.Fatalf("expected ban at threshold, got %+v bans=%d", result, len(enforcer.bans))
	}
}

func TestWarnActionFailureSurfaces(t *testing.T) {
	ctx := context.Background()
	svc, enforcer := newTestService(t)
	if err := svc.SetWarnAction(ctx, "g1", "kick", 1); err != nil {
		t.Fatalf("set warn action: %v", err)
	}
	enforcer.err = errors.New("missing permission")

	result, err := svc.RecordWarning(ctx, "g1", "u1", "spam")
	if err == nil {
		t.Fatalf("expected enforcer failure to surface")
	}
	if result.ActionTaken {
		t.Fatalf("failed action reported as taken")
	}
	if result.Count != 1 {
		t.Fatalf("warning should still be recorded, count=%d", result.Count)
	}
}

func TestSetPrefixValidation(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	if err := svc.SetPrefix(ctx, "g1", "?"); err != nil {
		t.Fatalf("set prefix: %v", err)
	}

	var validation *ValidationError
	err := svc.SetPrefix(ctx, "g1", "!!!!!!!!!")
	if !errors.As(err, &validation) {
		t.Fatalf("expected ValidationError for 9 char prefix, got %v", err)
	}
	if err := svc.SetPrefix(ctx, "g1", ""); !errors.As(err, &validation) {
		t.Fatalf("expected ValidationError for empty prefix, got %v", err)
	}

	policy, err := svc.Policy(ctx, "g1")
	if err != nil {
		t.Fatalf("policy: %v", err)
	}
	if policy.Prefix != "?" {
		t.Fatalf("rejected prefix mutated state, got %q", policy.Prefix)
	}
}

func TestSetProfanityModeValidation(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	if err := svc.SetProfanityMode(ctx, "g1", "Censor"); err != nil {
		t.Fatalf("set mode: %v", err)
	}
	var validation *ValidationError
	if err := svc.SetProfanityMode(ctx, "g1", "loud"); !errors.As(err, &validation) {
		t.Fatalf("expected ValidationError, got %v", err)
	}

	policy, _ := svc.Policy(ctx, "g1")
	if policy.ProfanityMode != storage.ProfanityCensor {
		t.Fatalf("expected censor mode preserved, got %q", policy.ProfanityMode)
	}
}

func TestSetWarnActionValidation(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	var validation *ValidationError
	if err := svc.SetWarnAction(ctx, "g1", "mute", 3); !errors.As(err, &validation) {
		t.Fatalf("expected ValidationError for unknown action, got %v", err)
	}
	if err := svc.SetWarnAction(ctx, "g1", "kick", 0); !errors.As(err, &validation) {
		t.Fatalf("expected ValidationError for zero threshold, got %v", err)
	}
}

func TestSetEmbedColor(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	if err := svc.SetEmbedColor(ctx, "g1", "59 130 246"); err != nil {
		t.Fatalf("set rgb: %v", err)
	}
	policy, _ := svc.Policy(ctx, "g1")
	if policy.EmbedR != 59 || policy.EmbedG != 130 || policy.EmbedB != 246 || policy.EmbedRandom {
		t.Fatalf("unexpected color state: %+v", policy)
	}

	if err := svc.SetEmbedColor(ctx, "g1", "random"); err != nil {
		t.Fatalf("set random: %v", err)
	}
	policy, _ = svc.Policy(ctx, "g1")
	if !policy.EmbedRandom {
		t.Fatalf("expected random flag set")
	}

	var validation *ValidationError
	for _, input := range []string{"256 0 0", "blue", "1 2", "-1 0 0"} {
		if err := svc.SetEmbedColor(ctx, "g1", input); !errors.As(err, &validation) {
			t.Fatalf("input %q: expected ValidationError, got %v", input, err)
		}
	}
}

func TestInvitePolicyRoundTrip(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	if err := svc.SetInvitePolicy(ctx, "g1", false); err != nil {
		t.Fatalf("set invites: %v", err)
	}
	policy, _ := svc.Policy(ctx, "g1")
	if policy.AllowInvites {
		t.Fatalf("expected invites disabled")
	}
}
