package pipeline

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/alkaitz/telepilot/internal/bot"
)

// replyRecorder is an in-memory bot.Responder capturing reply texts.
type replyRecorder struct {
	texts []string
}

func (r *replyRecorder) Reply(_ context.Context, text string) error {
	r.texts = append(r.texts, text)
	return nil
}
func (r *replyRecorder) ReplyKeyboard(_ context.Context, text string, _ [][]bot.Button) error {
	r.texts = append(r.texts, text)
	return nil
}
func (r *replyRecorder) ReplyPhoto(_ context.Context, url, _ string) error {
	r.texts = append(r.texts, url)
	return nil
}
func (r *replyRecorder) ReplyAudio(_ context.Context, _ io.Reader, caption string) error {
	r.texts = append(r.texts, caption)
	return nil
}
func (r *replyRecorder) Typing(context.Context) error { return nil }

// chanRecorder forwards records to a channel so async delivery can be
// observed without sleeps.
type chanRecorder struct {
	ch chan ActivityRecord
}

func newChanRecorder() *chanRecorder {
	return &chanRecorder{ch: make(chan ActivityRecord, 8)}
}

func (c *chanRecorder) Record(_ context.Context, rec ActivityRecord) { c.ch <- rec }

func (c *chanRecorder) wait(t *testing.T) ActivityRecord {
	t.Helper()
	select {
	case rec := <-c.ch:
		return rec
	case <-time.After(2 * time.Second):
		t.Fatalf("no activity record delivered")
		return ActivityRecord{}
	}
}

func (c *chanRecorder) assertNone(t *testing.T) {
	t.Helper()
	select {
	case rec := <-c.ch:
		t.Fatalf("unexpected activity record: %+v", rec)
	case <-time.After(50 * time.Millisecond):
	}
}

func req(identity int64, text string) (*bot.Request, *replyRecorder) {
	rec := &replyRecorder{}
	return &bot.Request{Identity: identity, ChatID: identity, Text: text, Private: true, Responder: rec}, rec
}

// --- Gate ---

func TestGate_EmptyAllowListAdmitsEveryone(t *testing.T) {
	g := NewGate(nil)
	for _, id := range []int64{1, 42, -5, 0} {
		if !g.Admit(id) {
			t.Fatalf("open-access gate rejected %d", id)
		}
	}
}

func TestGate_MembershipIsIdempotent(t *testing.T) {
	g := NewGate([]int64{42, 7})
	for i := 0; i < 3; i++ {
		if !g.Admit(42) || !g.Admit(7) {
			t.Fatalf("allow-list member rejected on call %d", i)
		}
		if g.Admit(9) {
			t.Fatalf("non-member admitted on call %d", i)
		}
	}
}

func TestGate_Middleware_RejectionShortCircuits(t *testing.T) {
	g := NewGate([]int64{7})
	called := false
	h := g.Middleware()(func(context.Context, *bot.Request) error {
		called = true
		return nil
	})

	r, rec := req(42, "/ask hi")
	if err := h(context.Background(), r); err != nil {
		t.Fatalf("rejection must not surface an error: %v", err)
	}
	if called {
		t.Fatalf("handler must not run for unauthorized identity")
	}
	if len(rec.texts) != 1 || rec.texts[0] != UnauthorizedReply {
		t.Fatalf("expected fixed rejection reply, got %v", rec.texts)
	}
}

// --- Limiter ---

func clockedLimiter(max int, window time.Duration) (*Limiter, *time.Time) {
	l := NewLimiter(max, window)
	now := time.Date(2026, 1, 2, 15, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }
	return l, &now
}

func TestLimiter_SpecScenario(t *testing.T) {
	// Identity 42, limit 2 per 60s: admit t=0, admit t=1, reject t=2,
	// admit t=61 after the window rolls over.
	l, now := clockedLimiter(2, time.Minute)
	base := *now

	if !l.Admit(42) {
		t.Fatalf("t=0 should be admitted")
	}
	*now = base.Add(1 * time.Second)
	if !l.Admit(42) {
		t.Fatalf("t=1 should be admitted")
	}
	*now = base.Add(2 * time.Second)
	if l.Admit(42) {
		t.Fatalf("t=2 should be rejected")
	}
	*now = base.Add(61 * time.Second)
	if !l.Admit(42) {
		t.Fatalf("t=61 should be admitted after window rollover")
	}
}

func TestLimiter_RejectionDoesNotConsume(t *testing.T) {
	l, now := clockedLimiter(1, time.Minute)
	base := *now

	if !l.Admit(7) {
		t.Fatalf("first request should be admitted")
	}
	// Hammering while limited must not extend the lockout.
	for i := 1; i < 30; i++ {
		*now = base.Add(time.Duration(i) * time.Second)
		if l.Admit(7) {
			t.Fatalf("request %d should be rejected inside the window", i)
		}
	}
	*now = base.Add(60 * time.Second)
	if !l.Admit(7) {
		t.Fatalf("rejections must not count as requests; window should have expired")
	}
}

func TestLimiter_IdentitiesAreIndependent(t *testing.T) {
	l, _ := clockedLimiter(1, time.Minute)
	if !l.Admit(1) {
		t.Fatalf("identity 1 first request should pass")
	}
	if !l.Admit(2) {
		t.Fatalf("identity 2 must have its own window")
	}
	if l.Admit(1) {
		t.Fatalf("identity 1 second request should be rejected")
	}
}

func TestLimiter_FirstSeenIdentityDoesNotPanic(t *testing.T) {
	l := NewLimiter(10, time.Minute)
	if !l.Admit(999) {
		t.Fatalf("never-seen identity should be admitted")
	}
}

func TestLimiter_OpportunisticSweep(t *testing.T) {
	l, now := clockedLimiter(5, time.Minute)
	base := *now

	l.Admit(1)
	l.Admit(2)

	// All windows idle past the full window, force the sweep on the next
	// call.
	*now = base.Add(2 * time.Minute)
	l.mu.Lock()
	l.sweepN = sweepEvery - 1
	l.mu.Unlock()
	l.Admit(3)

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.windows[1]; ok {
		t.Fatalf("idle window for identity 1 should have been swept")
	}
	if _, ok := l.windows[2]; ok {
		t.Fatalf("idle window for identity 2 should have been swept")
	}
	if _, ok := l.windows[3]; !ok {
		t.Fatalf("active identity 3 should remain")
	}
}

func TestLimiter_Middleware_RejectionReply(t *testing.T) {
	l, _ := clockedLimiter(1, time.Minute)
	calls := 0
	h := l.Middleware()(func(context.Context, *bot.Request) error {
		calls++
		return nil
	})

	r1, _ := req(42, "/ask one")
	_ = h(context.Background(), r1)
	r2, rec2 := req(42, "/ask two")
	_ = h(context.Background(), r2)

	if calls != 1 {
		t.Fatalf("expected exactly one dispatched request, got %d", calls)
	}
	if len(rec2.texts) != 1 || rec2.texts[0] != RateLimitedReply {
		t.Fatalf("expected fixed rate-limit reply, got %v", rec2.texts)
	}
}

// --- Telemetry ---

func TestTelemetry_RecordsDispatchedOutcome(t *testing.T) {
	rec := newChanRecorder()
	h := Telemetry(rec)(func(_ context.Context, r *bot.Request) error {
		r.Command = "ask"
		return nil
	})

	r, _ := req(42, "/ask hi")
	r.Username = "alice"
	if err := h(context.Background(), r); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	got := rec.wait(t)
	if got.Identity != 42 || got.Command != "ask" || !got.Success || got.Username != "alice" {
		t.Fatalf("unexpected record: %+v", got)
	}
}

func TestTelemetry_RecordsFailure(t *testing.T) {
	rec := newChanRecorder()
	h := Telemetry(rec)(func(_ context.Context, r *bot.Request) error {
		r.Command = "stock"
		return errors.New("vendor down")
	})

	r, _ := req(7, "/stock AAPL")
	if err := h(context.Background(), r); err == nil {
		t.Fatalf("expected handler error to propagate through telemetry")
	}
	got := rec.wait(t)
	if got.Success {
		t.Fatalf("failed dispatch must record success=false")
	}
}

func TestTelemetry_NoRecordWithoutDispatch(t *testing.T) {
	rec := newChanRecorder()
	h := Telemetry(rec)(func(context.Context, *bot.Request) error {
		return nil // router matched nothing; Command stays empty
	})
	r, _ := req(42, "")
	_ = h(context.Background(), r)
	rec.assertNone(t)
}

// --- Composition ---

func TestPipeline_AuthRejectionProducesNoTelemetry(t *testing.T) {
	rec := newChanRecorder()
	gate := NewGate([]int64{7})
	limiter := NewLimiter(10, time.Minute)

	handled := 0
	chain := bot.Chain(
		func(_ context.Context, r *bot.Request) error {
			r.Command = "ask"
			handled++
			return nil
		},
		Logging(),
		gate.Middleware(),
		limiter.Middleware(),
		Telemetry(rec),
	)

	// Unauthorized: fixed reply, no handler, no record.
	r1, rr1 := req(42, "/ask hi")
	if err := chain(context.Background(), r1); err != nil {
		t.Fatalf("chain error: %v", err)
	}
	if handled != 0 || len(rr1.texts) != 1 || rr1.texts[0] != UnauthorizedReply {
		t.Fatalf("unauthorized path wrong: handled=%d replies=%v", handled, rr1.texts)
	}
	rec.assertNone(t)

	// Authorized: handler runs and the outcome is recorded.
	r2, _ := req(7, "/ask hi")
	if err := chain(context.Background(), r2); err != nil {
		t.Fatalf("chain error: %v", err)
	}
	if handled != 1 {
		t.Fatalf("authorized request should reach the handler")
	}
	if got := rec.wait(t); got.Identity != 7 || got.Command != "ask" {
		t.Fatalf("unexpected record: %+v", got)
	}
}

func TestPipeline_RateRejectionProducesNoTelemetry(t *testing.T) {
	rec := newChanRecorder()
	limiter, _ := clockedLimiter(1, time.Minute)

	chain := bot.Chain(
		func(_ context.Context, r *bot.Request) error {
			r.Command = "ask"
			return nil
		},
		limiter.Middleware(),
		Telemetry(rec),
	)

	r1, _ := req(42, "/ask one")
	_ = chain(context.Background(), r1)
	_ = rec.wait(t) // first request recorded

	r2, rr2 := req(42, "/ask two")
	_ = chain(context.Background(), r2)
	if len(rr2.texts) != 1 || rr2.texts[0] != RateLimitedReply {
		t.Fatalf("expected rate-limit reply, got %v", rr2.texts)
	}
	rec.assertNone(t)
}

func TestLogging_AssignsRequestIDAndSwallowsError(t *testing.T) {
	h := Logging()(func(context.Context, *bot.Request) error {
		return errors.New("already replied downstream")
	})
	r, _ := req(42, "/fail")
	if err := h(context.Background(), r); err != nil {
		t.Fatalf("logging stage must terminate the error, got %v", err)
	}
	if r.ID == "" {
		t.Fatalf("request ID should have been assigned")
	}
}
