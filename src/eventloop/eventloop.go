package eventloop

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"finalshot/src/config"
	"finalshot/src/logutil"
	"finalshot/src/session"
	"finalshot/src/trigger"
	"finalshot/src/worker"
)

const (
	submitAttempts = 20
	submitBackoff  = 5 * time.Millisecond
)

// Loop is the single-threaded coordinator for hotkey and tray triggers. At
// most one capture runs at a time; triggers arriving meanwhile are rejected.
type Loop struct {
	capturer trigger.Capturer
	pool     *worker.Pool
	settings atomic.Pointer[config.Settings]
	busy     atomic.Bool
	triggers chan request
	results  chan result
	tooltip  func(string)
	resting  atomic.Pointer[string]

	// OnRejected, if set, is called on the loop goroutine for each trigger
	// dropped because a capture is running.
	OnRejected func(trigger.Trigger)
	// OnDone, if set, is called on the loop goroutine after each capture.
	OnDone func(trigger.Trigger, error)
	// OnSettings, if set, is called from UpdateSettings after the swap.
	OnSettings func(config.Settings)
}

type request struct {
	trigger trigger.Trigger
	// claimed requests already own the busy flag.
	claimed bool
}

type result struct {
	trigger trigger.Trigger
	err     error
}

// New creates a loop over c using cfg until UpdateSettings replaces it.
func New(c trigger.Capturer, cfg config.Settings) *Loop {
	l := &Loop{
		capturer: c,
		pool:     worker.New(1),
		triggers: make(chan request, 4),
		results:  make(chan result, 1),
	}
	l.settings.Store(&cfg)
	l.SetRestingTooltip("FinalShot")
	return l
}

// SetTooltip wires a tooltip sink and its resting text.
func (l *Loop) SetTooltip(set func(string), resting string) {
	l.tooltip = set
	l.SetRestingTooltip(resting)
}

// SetRestingTooltip changes the text shown while idle. Safe to call from
// any goroutine; it shows on the next idle transition.
func (l *Loop) SetRestingTooltip(resting string) {
	if resting != "" {
		l.resting.Store(&resting)
	}
}

// Settings returns the snapshot the next capture will use.
func (l *Loop) Settings() config.Settings { return *l.settings.Load() }

// UpdateSettings swaps in a new snapshot. Captures already running keep
// the one they started with. Safe to call from any goroutine.
func (l *Loop) UpdateSettings(cfg config.Settings) {
	l.settings.Store(&cfg)
	logutil.WithComponent("eventloop").Info().Str("save_path", cfg.SavePath).Msg("settings reloaded")
	if l.OnSettings != nil {
		l.OnSettings(cfg)
	}
}

// Post queues a trigger from any goroutine. It returns false if the queue
// is full, which only happens when triggers arrive faster than the loop
// can reject them.
func (l *Loop) Post(t trigger.Trigger) bool {
	select {
	case l.triggers <- request{trigger: t}:
		return true
	default:
		return false
	}
}

// Claim reserves the loop for t and queues it, or returns session.ErrBusy
// if a capture is running or already reserved. Unlike Post, a nil error
// means t will run.
func (l *Loop) Claim(t trigger.Trigger) error {
	if !l.busy.CompareAndSwap(false, true) {
		return session.ErrBusy
	}
	select {
	case l.triggers <- request{trigger: t, claimed: true}:
		return nil
	default:
		l.busy.Store(false)
		return session.ErrBusy
	}
}

// Busy reports whether a capture is running or reserved.
func (l *Loop) Busy() bool { return l.busy.Load() }

// PostName posts the trigger for a hotkey or menu name.
func (l *Loop) PostName(name string) {
	t, ok := trigger.FromName(name)
	if !ok {
		logutil.WithComponent("eventloop").Warn().Str("name", name).Msg("unknown trigger name")
		return
	}
	l.Post(t)
}

func (l *Loop) setBusy(b bool) {
	l.busy.Store(b)
	l.showBusy(b)
}

func (l *Loop) showBusy(b bool) {
	if l.tooltip == nil {
		return
	}
	if b {
		l.tooltip("FinalShot: capturing...")
	} else {
		l.tooltip(*l.resting.Load())
	}
}

// Run processes triggers until ctx is cancelled. It waits for a running
// capture to finish before returning.
func (l *Loop) Run(ctx context.Context) error {
	defer l.pool.Close()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case req := <-l.triggers:
			l.handleTrigger(ctx, req)
		case res := <-l.results:
			l.handleResult(res)
		}
	}
}

func (l *Loop) handleTrigger(ctx context.Context, req request) {
	log := logutil.WithComponent("eventloop")
	t := req.trigger
	if !req.claimed && !l.busy.CompareAndSwap(false, true) {
		log.Info().Stringer("trigger", t.Kind).Msg("capture in progress; trigger rejected")
		if l.OnRejected != nil {
			l.OnRejected(t)
		}
		return
	}

	cfg := l.Settings()
	l.showBusy(true)
	run := func(ctx context.Context) error {
		_, err := trigger.Dispatch(ctx, l.capturer, cfg, t)
		return err
	}
	done := func(_ string, err error) {
		l.results <- result{trigger: t, err: err}
	}
	if !l.submit(ctx, t, run, done) {
		l.setBusy(false)
		log.Warn().Stringer("trigger", t.Kind).Msg("worker unavailable; trigger rejected")
		if l.OnRejected != nil {
			l.OnRejected(t)
		}
	}
}

// submit hands the job to the worker. The worker may still be returning
// from the previous job's callback, so a refused hand-off is retried briefly.
func (l *Loop) submit(ctx context.Context, t trigger.Trigger, run worker.Job, done worker.ResultCallback) bool {
	for i := 0; i < submitAttempts; i++ {
		if l.pool.Submit(ctx, t.Kind.String(), run, done) {
			return true
		}
		time.Sleep(submitBackoff)
	}
	return false
}

func (l *Loop) handleResult(res result) {
	l.setBusy(false)
	if res.err != nil && !errors.Is(res.err, session.ErrBusy) {
		logutil.WithComponent("eventloop").Debug().Err(res.err).Stringer("trigger", res.trigger.Kind).Msg("capture ended without output")
	}
	if l.OnDone != nil {
		l.OnDone(res.trigger, res.err)
	}
}

// WatchConfig reloads settings whenever the YAML config file changes.
func (l *Loop) WatchConfig(opts config.LoadOptions) error {
	return config.Watch(opts, l.UpdateSettings)
}
