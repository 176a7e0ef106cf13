package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"trustpay-sync/internal/core/domain"
	"trustpay-sync/internal/core/ports"
	"trustpay-sync/pkg/apperror"
)

// MatchmakingService pairs the two parties of an escrow. The creator shares
// a 6 character join code; the joiner redeems it. AwaitParticipant watches
// the creator's waiting room: the collaborator announces the second party
// either as an explicit participant_joined event or as a state push that
// carries the payee identity, and either signal resolves the wait exactly
// once.
type MatchmakingService struct {
	log  zerolog.Logger
	api  ports.EscrowAPI
	bus  ports.EventBus
	subs ports.Subscriptions
}

// NewMatchmakingService creates a MatchmakingService.
func NewMatchmakingService(log zerolog.Logger, api ports.EscrowAPI, bus ports.EventBus, subs ports.Subscriptions) *MatchmakingService {
	return &MatchmakingService{log: log, api: api, bus: bus, subs: subs}
}

// CreateWithCode creates an escrow and subscribes to its channel so the
// waiting room sees the joiner arrive.
func (s *MatchmakingService) CreateWithCode(ctx context.Context, req ports.CreateEscrowRequest) (*ports.CreateEscrowResult, error) {
	res, err := s.api.CreateEscrow(ctx, req)
	if err != nil {
		return nil, err
	}
	s.subs.Subscribe(res.Escrow.ID)
	s.log.Info().
		Str("escrow_id", res.Escrow.ID).
		Str("escrow_code", res.Escrow.EscrowCode).
		Msg("escrow created, code issued")
	return res, nil
}

// JoinByCode redeems a join code. The code's shape is checked before any
// network call; codes are case-insensitive and submitted upper-cased.
func (s *MatchmakingService) JoinByCode(ctx context.Context, code string) (*domain.Escrow, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if !domain.ValidEscrowCode(code) {
		return nil, apperror.ErrMalformedCode()
	}

	esc, err := s.api.JoinByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	s.subs.Subscribe(esc.ID)
	s.log.Info().Str("escrow_id", esc.ID).Msg("joined escrow by code")
	return esc, nil
}

// AwaitParticipant blocks until a second party is attached to the escrow or
// ctx ends. An escrow that already carries a distinct payee resolves
// immediately. Both join signals funnel through a single-fire latch, so a
// server emitting both shapes for one join still resolves the wait once.
// On a match the escrow snapshot is updated in place: the payee is recorded
// and the join code is treated as consumed.
func (s *MatchmakingService) AwaitParticipant(ctx context.Context, esc *domain.Escrow) (*domain.Participant, error) {
	if esc == nil || esc.ID == "" {
		return nil, apperror.ErrNotFound("escrow")
	}
	if p := joinerOf(esc.PayerID, esc.PayeeID); p != nil {
		return p, nil
	}

	s.subs.Subscribe(esc.ID)

	matched := make(chan domain.Participant, 1)
	var once sync.Once
	off := s.bus.On(domain.EscrowTopic(esc.ID), func(env domain.EventEnvelope) {
		d, err := env.DecodeData()
		if err != nil {
			s.log.Warn().Err(err).Str("escrow_id", esc.ID).Msg("undecodable event payload in waiting room")
			return
		}
		explicit := d.EventType == domain.EventParticipantJoined
		viaIdentity := joinerOf(esc.PayerID, d.PayeeID) != nil
		if !explicit && !viaIdentity {
			return
		}
		once.Do(func() {
			matched <- domain.Participant{
				UserID:   d.PayeeID,
				Role:     domain.ParticipantRoleJoiner,
				JoinedAt: time.Now().UTC(),
			}
		})
	})
	defer off()

	select {
	case p := <-matched:
		if p.UserID != "" {
			esc.PayeeID = p.UserID
		}
		esc.IsCodeActive = false
		s.log.Info().
			Str("escrow_id", esc.ID).
			Str("payee_id", p.UserID).
			Msg("participant joined")
		return &p, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// joinerOf reports the joiner implied by a payer/payee pair, or nil when
// the pair does not name a distinct second party.
func joinerOf(payerID, payeeID string) *domain.Participant {
	if payeeID == "" || payeeID == payerID {
		return nil
	}
	return &domain.Participant{UserID: payeeID, Role: domain.ParticipantRoleJoiner}
}
