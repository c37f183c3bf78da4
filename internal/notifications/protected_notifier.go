package notifications

import (
	"context"
	"errors"
	"sync"
	"time"
)

var ErrCircuitOpen = errors.New("mail circuit open")

// Delivery outcomes reported to a DeliveryObserver.
const (
	OutcomeSent     = "sent"
	OutcomeFailed   = "failed"
	OutcomeRejected = "rejected"
)

// DeliveryObserver receives every send outcome and breaker transition.
type DeliveryObserver interface {
	MailDelivery(outcome string)
	MailCircuit(state string)
}

type ProtectedNotifierConfig struct {
	// upper bound on a single provider call
	Timeout time.Duration
	// consecutive failures before sends are short-circuited
	FailureThreshold int
	// how long to short-circuit before letting probes through
	Cooldown time.Duration
	// concurrent probes allowed while half open
	HalfOpenMaxCalls int
	Observer         DeliveryObserver
}

type breakerState uint8

const (
	closed breakerState = iota
	open
	halfOpen
)

func (s breakerState) String() string {
	switch s {
	case open:
		return "open"
	case halfOpen:
		return "half_open"
	default:
		return "closed"
	}
}

// ProtectedNotifier bounds each send with a timeout and stops calling a
// provider that keeps failing, so a mail outage fails forgot-password fast.
type ProtectedNotifier struct {
	inner Notifier
	cfg   ProtectedNotifierConfig
	now   func() time.Time

	mu       sync.Mutex
	state    breakerState
	failures int
	openedAt time.Time
	probes   int
}

func NewProtectedNotifier(inner Notifier, cfg ProtectedNotifierConfig) *ProtectedNotifier {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 3
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 30 * time.Second
	}
	if cfg.HalfOpenMaxCalls <= 0 {
		cfg.HalfOpenMaxCalls = 1
	}

	return &ProtectedNotifier{inner: inner, cfg: cfg, now: time.Now}
}

func (n *ProtectedNotifier) Send(ctx context.Context, msg Message) error {
	if !n.admit() {
		n.observe(OutcomeRejected)
		return ErrCircuitOpen
	}

	sendCtx, cancel := context.WithTimeout(ctx, n.cfg.Timeout)
	defer cancel()

	err := n.inner.Send(sendCtx, msg)
	n.record(err == nil)

	if err != nil {
		n.observe(OutcomeFailed)
		return err
	}
	n.observe(OutcomeSent)
	return nil
}

func (n *ProtectedNotifier) State() string {
	n.mu.Lock()
	defer n.mu.Unlock()

	return n.state.String()
}

func (n *ProtectedNotifier) admit() bool {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.state == open {
		if n.now().Sub(n.openedAt) < n.cfg.Cooldown {
			return false
		}
		n.transition(halfOpen)
	}

	if n.state == halfOpen {
		if n.probes >= n.cfg.HalfOpenMaxCalls {
			return false
		}
		n.probes++
	}

	return true
}

func (n *ProtectedNotifier) record(ok bool) {
	n.mu.Lock()
	defer n.mu.Unlock()

	wasProbe := n.state == halfOpen
	if wasProbe && n.probes > 0 {
		n.probes--
	}

	if ok {
		n.failures = 0
		n.transition(closed)
		return
	}

	n.failures++
	if wasProbe || n.failures >= n.cfg.FailureThreshold {
		n.openedAt = n.now()
		n.transition(open)
	}
}

// transition must be called with mu held.
func (n *ProtectedNotifier) transition(to breakerState) {
	if n.state == to {
		return
	}
	n.state = to
	if n.cfg.Observer != nil {
		n.cfg.Observer.MailCircuit(to.String())
	}
}

func (n *ProtectedNotifier) observe(outcome string) {
	if n.cfg.Observer != nil {
		n.cfg.Observer.MailDelivery(outcome)
	}
}
