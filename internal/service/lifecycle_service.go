package service

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"trustpay-sync/internal/core/domain"
	"trustpay-sync/internal/core/ports"
	"trustpay-sync/pkg/apperror"
)

// Transition is one observable escrow state change delivered to lifecycle
// listeners.
type Transition struct {
	EscrowID string
	From     domain.EscrowStatus
	To       domain.EscrowStatus
	Disputed bool
	Event    string
}

type transitionListener struct {
	id int64
	fn func(Transition)
}

type tracked struct {
	machine   *domain.Machine
	offBus    func()
	listeners []transitionListener
}

// LifecycleService tracks escrow state machines and keeps them in step with
// the event stream. Each tracked escrow gets a listener on its channel
// topic; stale or duplicate pushes are absorbed by the machine and never
// reach transition listeners. Writes (confirm, dispute) are gated on the
// local machine before any network call and applied only after the
// collaborator acknowledges them.
type LifecycleService struct {
	log  zerolog.Logger
	api  ports.EscrowAPI
	bus  ports.EventBus
	subs ports.Subscriptions

	mu     sync.Mutex
	nextID int64
	escrow map[string]*tracked
}

// NewLifecycleService creates a LifecycleService.
func NewLifecycleService(log zerolog.Logger, api ports.EscrowAPI, bus ports.EventBus, subs ports.Subscriptions) *LifecycleService {
	return &LifecycleService{
		log:    log,
		api:    api,
		bus:    bus,
		subs:   subs,
		escrow: make(map[string]*tracked),
	}
}

// Track starts following an escrow: its machine is seeded with the given
// status, its channel is added to the desired subscription set, and inbound
// pushes start driving the machine. Tracking an already tracked escrow is a
// no-op.
func (s *LifecycleService) Track(escrowID string, status domain.EscrowStatus) {
	s.mu.Lock()
	if _, ok := s.escrow[escrowID]; ok {
		s.mu.Unlock()
		return
	}
	tr := &tracked{machine: domain.NewMachine(escrowID, status)}
	tr.offBus = s.bus.On(domain.EscrowTopic(escrowID), func(env domain.EventEnvelope) {
		s.handleEvent(escrowID, env)
	})
	s.escrow[escrowID] = tr
	s.mu.Unlock()

	s.subs.Subscribe(escrowID)
	s.log.Info().Str("escrow_id", escrowID).Str("status", string(status)).Msg("tracking escrow")
}

// Untrack stops following an escrow. Its channel leaves the desired set and
// any events still in flight for it are ignored from here on.
func (s *LifecycleService) Untrack(escrowID string) {
	s.mu.Lock()
	tr, ok := s.escrow[escrowID]
	if ok {
		delete(s.escrow, escrowID)
	}
	s.mu.Unlock()
	if !ok {
		return
	}

	tr.offBus()
	s.subs.Unsubscribe(escrowID)
	s.log.Info().Str("escrow_id", escrowID).Msg("untracked escrow")
}

// Status returns a snapshot of a tracked escrow's machine.
func (s *LifecycleService) Status(escrowID string) (domain.Machine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tr, ok := s.escrow[escrowID]
	if !ok {
		return domain.Machine{}, apperror.ErrEscrowNotTracked(escrowID)
	}
	return *tr.machine, nil
}

// OnTransition registers fn for a tracked escrow's observable state changes
// and returns its removal func. Registering for an untracked escrow returns
// a no-op removal and the listener never fires.
func (s *LifecycleService) OnTransition(escrowID string, fn func(Transition)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	tr, ok := s.escrow[escrowID]
	if !ok {
		return func() {}
	}
	s.nextID++
	id := s.nextID
	tr.listeners = append(tr.listeners, transitionListener{id: id, fn: fn})

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		cur, ok := s.escrow[escrowID]
		if !ok {
			return
		}
		for i, l := range cur.listeners {
			if l.id == id {
				cur.listeners = append(cur.listeners[:i:i], cur.listeners[i+1:]...)
				break
			}
		}
	}
}

// Confirm records the caller's release confirmation. The local machine gates
// the call: a non-confirmable escrow is rejected without touching the
// network. The acknowledged status is applied to the machine.
func (s *LifecycleService) Confirm(ctx context.Context, escrowID string) (*ports.ActionResult, error) {
	m, err := s.Status(escrowID)
	if err != nil {
		return nil, err
	}
	if !m.CanConfirm() {
		return nil, apperror.ErrNotConfirmable(string(m.Status))
	}

	res, err := s.api.Confirm(ctx, escrowID)
	if err != nil {
		return nil, err
	}
	if res.Status != "" {
		s.apply(escrowID, res.Status, "confirm")
	}
	return res, nil
}

// Dispute flags the escrow as disputed. Gated like Confirm; the
// acknowledged status is applied to the machine.
func (s *LifecycleService) Dispute(ctx context.Context, escrowID, reason string) (*ports.ActionResult, error) {
	m, err := s.Status(escrowID)
	if err != nil {
		return nil, err
	}
	if !m.CanDispute() {
		return nil, apperror.ErrInvalidTransition("dispute", string(m.Status))
	}

	res, err := s.api.RaiseDispute(ctx, escrowID, reason)
	if err != nil {
		return nil, err
	}
	status := res.Status
	if status == "" {
		status = domain.EscrowStatusDisputed
	}
	s.apply(escrowID, status, "dispute")
	return res, nil
}

// PaymentStatus polls the payment view of a tracked escrow and feeds the
// returned status through the machine, so polling and pushes converge on
// the same state.
func (s *LifecycleService) PaymentStatus(ctx context.Context, escrowID string) (*ports.PaymentStatusResult, error) {
	if _, err := s.Status(escrowID); err != nil {
		return nil, err
	}
	res, err := s.api.GetPaymentStatus(ctx, escrowID)
	if err != nil {
		return nil, err
	}
	if res.Status != "" {
		s.apply(escrowID, res.Status, "payment_status_poll")
	}
	return res, nil
}

func (s *LifecycleService) handleEvent(escrowID string, env domain.EventEnvelope) {
	status := env.StatusHint()
	if status == "" {
		return
	}
	s.apply(escrowID, status, env.Type)
}

// apply runs one status through the machine and, when it produces an
// observable change, notifies the escrow's transition listeners exactly
// once.
func (s *LifecycleService) apply(escrowID string, status domain.EscrowStatus, event string) {
	s.mu.Lock()
	tr, ok := s.escrow[escrowID]
	if !ok {
		s.mu.Unlock()
		return
	}
	from := tr.machine.Status
	changed := tr.machine.Apply(status)
	if !changed {
		s.mu.Unlock()
		s.log.Debug().
			Str("escrow_id", escrowID).
			Str("status", string(status)).
			Str("event", event).
			Msg("status push absorbed, no transition")
		return
	}
	t := Transition{
		EscrowID: escrowID,
		From:     from,
		To:       tr.machine.Status,
		Disputed: tr.machine.Disputed,
		Event:    event,
	}
	listeners := make([]transitionListener, len(tr.listeners))
	copy(listeners, tr.listeners)
	s.mu.Unlock()

	s.log.Info().
		Str("escrow_id", escrowID).
		Str("from", string(t.From)).
		Str("to", string(t.To)).
		Bool("disputed", t.Disputed).
		Str("event", event).
		Msg("escrow transitioned")

	for _, l := range listeners {
		l.fn(t)
	}
}
