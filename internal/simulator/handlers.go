package simulator

import (
	"context"
	"encoding/json"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"trustpay-sync/internal/adapter/http/middleware"
	"trustpay-sync/internal/core/domain"
	"trustpay-sync/internal/core/ports"
	"trustpay-sync/pkg/apperror"
	"trustpay-sync/pkg/response"
)

type registerRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	FullName string `json:"full_name"`
	VPA      string `json:"vpa"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type loginResponse struct {
	AccessToken string      `json:"access_token"`
	TokenType   string      `json:"token_type"`
	User        domain.User `json:"user"`
}

type joinRequest struct {
	EscrowCode string `json:"escrow_code" binding:"required"`
}

type disputeRequest struct {
	Reason string `json:"reason"`
}

type webhookRequest struct {
	OrderID string `json:"order_id" binding:"required"`
	Event   string `json:"event" binding:"required"`
}

// Handler exposes the simulator's REST surface.
type Handler struct {
	log       zerolog.Logger
	store     *Store
	tokenSvc  ports.TokenService
	publisher ports.EventPublisher
}

// NewHandler creates a Handler.
func NewHandler(log zerolog.Logger, store *Store, tokenSvc ports.TokenService, publisher ports.EventPublisher) *Handler {
	return &Handler{log: log, store: store, tokenSvc: tokenSvc, publisher: publisher}
}

// Register handles POST /api/v1/auth/register.
func (h *Handler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	u, err := h.store.RegisterUser(req.Email, req.Password, req.FullName, req.VPA)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, u)
}

// Login handles POST /api/v1/auth/login.
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	u, err := h.store.Authenticate(req.Email, req.Password)
	if err != nil {
		response.Error(c, err)
		return
	}
	token, _, err := h.tokenSvc.Generate(u.ID, u.Email)
	if err != nil {
		response.Error(c, apperror.InternalError(err))
		return
	}

	response.OK(c, loginResponse{AccessToken: token, TokenType: "bearer", User: *u})
}

// CreateEscrow handles POST /api/v1/escrows/create.
func (h *Handler) CreateEscrow(c *gin.Context) {
	var req ports.CreateEscrowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	result, err := h.store.CreateEscrow(c.GetString(middleware.CtxUserID), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// JoinEscrow handles POST /api/v1/escrows/join.
func (h *Handler) JoinEscrow(c *gin.Context) {
	var req joinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	userID := c.GetString(middleware.CtxUserID)
	esc, err := h.store.JoinByCode(userID, req.EscrowCode)
	if err != nil {
		response.Error(c, err)
		return
	}

	h.publish(c.Request.Context(), domain.EventEnvelope{
		Type:     domain.EventEscrowUpdate,
		EscrowID: esc.ID,
		Data: mustJSON(domain.EventData{
			EventType:    domain.EventParticipantJoined,
			PayerID:      esc.PayerID,
			PayeeID:      esc.PayeeID,
			IsCodeActive: boolPtr(false),
		}),
	})
	response.OK(c, esc)
}

// ConfirmEscrow handles POST /api/v1/escrows/:id/confirm.
func (h *Handler) ConfirmEscrow(c *gin.Context) {
	escrowID := c.Param("id")
	result, err := h.store.Confirm(c.GetString(middleware.CtxUserID), escrowID)
	if err != nil {
		response.Error(c, err)
		return
	}

	if result.Status != "" {
		h.publish(c.Request.Context(), domain.EventEnvelope{
			Type:     domain.EventStatusChange,
			EscrowID: escrowID,
			Status:   result.Status,
		})
	}
	response.OK(c, result)
}

// DisputeEscrow handles POST /api/v1/escrows/:id/dispute.
func (h *Handler) DisputeEscrow(c *gin.Context) {
	var req disputeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	escrowID := c.Param("id")
	result, err := h.store.Dispute(c.GetString(middleware.CtxUserID), escrowID, req.Reason)
	if err != nil {
		response.Error(c, err)
		return
	}

	h.publish(c.Request.Context(), domain.EventEnvelope{
		Type:     domain.EventStatusChange,
		EscrowID: escrowID,
		Status:   domain.EscrowStatusDisputed,
	})
	response.OK(c, result)
}

// GetEscrow handles GET /api/v1/escrows/:id.
func (h *Handler) GetEscrow(c *gin.Context) {
	esc, err := h.store.Get(c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, esc)
}

// GetPaymentStatus handles GET /api/v1/escrows/:id/payment-status.
func (h *Handler) GetPaymentStatus(c *gin.Context) {
	result, err := h.store.PaymentStatus(c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, result)
}

// PaymentWebhook handles POST /api/v1/webhooks/payment. It stands in for
// the payment gateway's capture callback: a captured order moves its
// escrow to HELD.
func (h *Handler) PaymentWebhook(c *gin.Context) {
	var req webhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	if req.Event != "payment.captured" {
		response.OK(c, gin.H{"ignored": req.Event})
		return
	}

	esc, err := h.store.MarkHeld(req.OrderID)
	if err != nil {
		response.Error(c, err)
		return
	}

	h.publish(c.Request.Context(), domain.EventEnvelope{
		Type:     domain.EventPaymentStatus,
		EscrowID: esc.ID,
		Status:   esc.Status,
		Data: mustJSON(domain.EventData{
			OldStatus: domain.EscrowStatusInitiated,
			NewStatus: esc.Status,
			PayerID:   esc.PayerID,
			PayeeID:   esc.PayeeID,
		}),
	})
	response.OK(c, gin.H{"escrow_id": esc.ID, "status": esc.Status})
}

// publish pushes an event without failing the request on broadcast errors.
func (h *Handler) publish(ctx context.Context, env domain.EventEnvelope) {
	if err := h.publisher.PublishEscrowEvent(ctx, env); err != nil {
		h.log.Warn().Err(err).Str("escrow_id", env.EscrowID).Msg("event publish failed")
	}
}

func mustJSON(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return b
}

func boolPtr(b bool) *bool {
	return &b
}
