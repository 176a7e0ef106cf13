package simulator

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"trustpay-sync/internal/core/domain"
	"trustpay-sync/internal/core/ports"
	"trustpay-sync/pkg/apperror"
)

const codeCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// escrowTTL is how long an escrow may sit unfunded before the sweeper
// expires it.
const escrowTTL = 7 * 24 * time.Hour

var (
	nameAdjectives = []string{"swift", "amber", "quiet", "bold", "lucky", "bright", "steady", "mellow"}
	nameNouns      = []string{"falcon", "harbor", "lotus", "summit", "anchor", "meadow", "beacon", "ledger"}
)

type escrowRecord struct {
	escrow        domain.Escrow
	confirmations map[string]bool
	disputeReason string
	payment       *ports.PaymentLeg
	payout        *ports.PaymentLeg
}

// Store is the simulator's in-memory system of record for users and
// escrows. It enforces the collaborator's business rules: join codes are
// single use, confirmation needs both parties, and release requires the
// funds to be held.
type Store struct {
	log  zerolog.Logger
	hash ports.HashService

	mu           sync.Mutex
	users        map[string]*domain.User
	usersByEmail map[string]string
	escrows      map[string]*escrowRecord
	byCode       map[string]string // active code -> escrow id
	byOrder      map[string]string // payment order id -> escrow id
}

// NewStore creates an empty Store.
func NewStore(log zerolog.Logger, hash ports.HashService) *Store {
	return &Store{
		log:          log,
		hash:         hash,
		users:        make(map[string]*domain.User),
		usersByEmail: make(map[string]string),
		escrows:      make(map[string]*escrowRecord),
		byCode:       make(map[string]string),
		byOrder:      make(map[string]string),
	}
}

// RegisterUser creates a user with an Argon2id password hash. Duplicate
// emails are rejected.
func (s *Store) RegisterUser(email, password, fullName, vpa string) (*domain.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, apperror.Validation("email and password are required")
	}

	hashed, err := s.hash.Hash(password)
	if err != nil {
		return nil, apperror.InternalError(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.usersByEmail[email]; exists {
		return nil, apperror.Validation("email already registered")
	}

	u := &domain.User{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: hashed,
		FullName:     fullName,
		VPA:          vpa,
		CreatedAt:    time.Now().UTC(),
	}
	s.users[u.ID] = u
	s.usersByEmail[email] = u.ID
	return u, nil
}

// Authenticate verifies credentials and returns the user.
func (s *Store) Authenticate(email, password string) (*domain.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	s.mu.Lock()
	id, ok := s.usersByEmail[email]
	var u *domain.User
	if ok {
		u = s.users[id]
	}
	s.mu.Unlock()

	if u == nil {
		return nil, apperror.ErrInvalidCredentials()
	}
	match, err := s.hash.Verify(password, u.PasswordHash)
	if err != nil || !match {
		return nil, apperror.ErrInvalidCredentials()
	}
	return u, nil
}

// User returns a user by id.
func (s *Store) User(id string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, apperror.ErrNotFound("user")
	}
	return u, nil
}

// CreateEscrow opens an escrow for payerID with a fresh single-use join
// code and a payment order awaiting capture.
func (s *Store) CreateEscrow(payerID string, req ports.CreateEscrowRequest) (*ports.CreateEscrowResult, error) {
	if req.Amount <= 0 {
		return nil, apperror.ErrInvalidAmount()
	}
	currency := req.Currency
	if currency == "" {
		currency = "INR"
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	code, err := s.newCodeLocked()
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	orderID := "order_" + uuid.New().String()[:8]
	now := time.Now().UTC()
	expiresAt := now.Add(escrowTTL)

	esc := domain.Escrow{
		ID:           uuid.New().String(),
		PayerID:      payerID,
		PayeeVPA:     req.PayeeVPA,
		Amount:       req.Amount,
		Currency:     currency,
		Status:       domain.EscrowStatusInitiated,
		Description:  req.Description,
		OrderID:      orderID,
		EscrowCode:   code,
		EscrowName:   s.newNameLocked(),
		IsCodeActive: true,
		CreatedAt:    now,
		ExpiresAt:    &expiresAt,
	}
	s.escrows[esc.ID] = &escrowRecord{
		escrow:        esc,
		confirmations: make(map[string]bool),
		payment:       &ports.PaymentLeg{Reference: orderID, State: "created"},
	}
	s.byCode[code] = esc.ID
	s.byOrder[orderID] = esc.ID

	s.log.Info().Str("escrow_id", esc.ID).Str("escrow_code", code).Msg("escrow opened")
	return &ports.CreateEscrowResult{
		Escrow:       esc,
		PaymentOrder: ports.PaymentOrder{OrderID: orderID, Amount: req.Amount, Currency: currency},
	}, nil
}

// JoinByCode attaches userID as the payee of the escrow behind code and
// consumes the code. Creators cannot join their own escrow.
func (s *Store) JoinByCode(userID, code string) (*domain.Escrow, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if !domain.ValidEscrowCode(code) {
		return nil, apperror.ErrMalformedCode()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	escrowID, ok := s.byCode[code]
	if !ok {
		// Distinguish a consumed code from one that never existed.
		for _, rec := range s.escrows {
			if rec.escrow.EscrowCode == code {
				return nil, apperror.ErrCodeConsumed()
			}
		}
		return nil, apperror.ErrCodeNotFound()
	}

	rec := s.escrows[escrowID]
	if rec.escrow.PayerID == userID {
		return nil, apperror.ErrSelfJoin()
	}

	rec.escrow.PayeeID = userID
	rec.escrow.IsCodeActive = false
	delete(s.byCode, code)

	s.log.Info().Str("escrow_id", escrowID).Str("payee_id", userID).Msg("escrow joined")
	snapshot := rec.escrow
	return &snapshot, nil
}

// Confirm records one party's release confirmation. When both parties have
// confirmed a held escrow, the funds are released.
func (s *Store) Confirm(userID, escrowID string) (*ports.ActionResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.escrows[escrowID]
	if !ok {
		return nil, apperror.ErrNotFound("escrow")
	}
	if userID != rec.escrow.PayerID && userID != rec.escrow.PayeeID {
		return nil, apperror.ErrNotFound("escrow")
	}
	switch rec.escrow.Status {
	case domain.EscrowStatusInitiated, domain.EscrowStatusHeld:
	default:
		return nil, apperror.ErrNotConfirmable(string(rec.escrow.Status))
	}
	if rec.confirmations[userID] {
		return nil, apperror.ErrAlreadyConfirmed()
	}

	rec.confirmations[userID] = true

	bothConfirmed := rec.escrow.PayeeID != "" &&
		rec.confirmations[rec.escrow.PayerID] &&
		rec.confirmations[rec.escrow.PayeeID]
	if bothConfirmed {
		rec.escrow.Status = domain.EscrowStatusReleased
		rec.payout = &ports.PaymentLeg{
			Reference:   "payout_" + uuid.New().String()[:8],
			State:       "completed",
			CompletedAt: timePtr(time.Now().UTC()),
		}
		s.log.Info().Str("escrow_id", escrowID).Msg("both parties confirmed, funds released")
		return &ports.ActionResult{Message: "Both parties confirmed, funds released", Status: domain.EscrowStatusReleased}, nil
	}

	return &ports.ActionResult{Message: "Confirmation recorded"}, nil
}

// Dispute flags the escrow as disputed on behalf of one of its parties.
func (s *Store) Dispute(userID, escrowID, reason string) (*ports.ActionResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.escrows[escrowID]
	if !ok {
		return nil, apperror.ErrNotFound("escrow")
	}
	if userID != rec.escrow.PayerID && userID != rec.escrow.PayeeID {
		return nil, apperror.ErrNotFound("escrow")
	}
	switch rec.escrow.Status {
	case domain.EscrowStatusInitiated, domain.EscrowStatusHeld:
	default:
		return nil, apperror.ErrInvalidTransition("dispute", string(rec.escrow.Status))
	}

	rec.escrow.Status = domain.EscrowStatusDisputed
	rec.disputeReason = reason

	s.log.Warn().Str("escrow_id", escrowID).Str("reason", reason).Msg("escrow disputed")
	return &ports.ActionResult{Message: "Dispute raised", Status: domain.EscrowStatusDisputed}, nil
}

// MarkHeld captures the payment for orderID, moving its escrow to HELD.
// Mirrors the payment gateway webhook.
func (s *Store) MarkHeld(orderID string) (*domain.Escrow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	escrowID, ok := s.byOrder[orderID]
	if !ok {
		return nil, apperror.ErrNotFound("payment order")
	}
	rec := s.escrows[escrowID]
	if rec.escrow.Status != domain.EscrowStatusInitiated {
		return nil, apperror.ErrInvalidTransition("capture", string(rec.escrow.Status))
	}

	now := time.Now().UTC()
	rec.escrow.Status = domain.EscrowStatusHeld
	rec.escrow.PaymentCompletedAt = &now
	rec.payment = &ports.PaymentLeg{Reference: orderID, State: "captured", CompletedAt: &now}

	s.log.Info().Str("escrow_id", escrowID).Str("order_id", orderID).Msg("payment captured, funds held")
	snapshot := rec.escrow
	return &snapshot, nil
}

// ExpireStale marks every INITIATED escrow whose deadline passed as
// EXPIRED and retires its join code. Funded escrows are left alone, the
// payment leg keeps them alive regardless of age. Returns snapshots of
// the escrows expired by this sweep.
func (s *Store) ExpireStale(now time.Time) []domain.Escrow {
	s.mu.Lock()
	defer s.mu.Unlock()

	var expired []domain.Escrow
	for _, rec := range s.escrows {
		if rec.escrow.Status != domain.EscrowStatusInitiated {
			continue
		}
		if rec.escrow.ExpiresAt == nil || now.Before(*rec.escrow.ExpiresAt) {
			continue
		}

		rec.escrow.Status = domain.EscrowStatusExpired
		if rec.escrow.IsCodeActive {
			rec.escrow.IsCodeActive = false
			delete(s.byCode, rec.escrow.EscrowCode)
		}

		s.log.Info().Str("escrow_id", rec.escrow.ID).Msg("escrow expired unfunded")
		expired = append(expired, rec.escrow)
	}
	return expired
}

// Get returns an escrow snapshot by id.
func (s *Store) Get(escrowID string) (*domain.Escrow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.escrows[escrowID]
	if !ok {
		return nil, apperror.ErrNotFound("escrow")
	}
	snapshot := rec.escrow
	return &snapshot, nil
}

// PaymentStatus returns the payment view of an escrow.
func (s *Store) PaymentStatus(escrowID string) (*ports.PaymentStatusResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.escrows[escrowID]
	if !ok {
		return nil, apperror.ErrNotFound("escrow")
	}
	return &ports.PaymentStatusResult{
		Status:  rec.escrow.Status,
		Payment: rec.payment,
		Payout:  rec.payout,
	}, nil
}

// newCodeLocked draws random codes until one is free. Caller holds s.mu.
func (s *Store) newCodeLocked() (string, error) {
	for {
		b := make([]byte, 6)
		for i := range b {
			n, err := rand.Int(rand.Reader, big.NewInt(int64(len(codeCharset))))
			if err != nil {
				return "", err
			}
			b[i] = codeCharset[n.Int64()]
		}
		code := string(b)
		if _, taken := s.byCode[code]; !taken {
			return code, nil
		}
	}
}

// newNameLocked builds a human-friendly escrow name. Caller holds s.mu.
func (s *Store) newNameLocked() string {
	n := len(s.escrows)
	adj := nameAdjectives[n%len(nameAdjectives)]
	noun := nameNouns[(n/len(nameAdjectives))%len(nameNouns)]
	return fmt.Sprintf("%s-%s-%d", adj, noun, n+1)
}

func timePtr(t time.Time) *time.Time {
	return &t
}
