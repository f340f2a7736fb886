package api

import (
	"net/http"
	"time"

	"github.com/Domenick1991/outdoorcamp/internal/domain"
	"github.com/Domenick1991/outdoorcamp/internal/service/payment"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type PaymentHandler struct {
	service payment.PaymentUseCase
}

type createPaymentRequest struct {
	BookingID string           `json:"booking_id" binding:"required"`
	Amount    *decimal.Decimal `json:"amount"`
	Method    string           `json:"method" binding:"required"`
	Notes     *string          `json:"notes"`
}

type updatePaymentRequest struct {
	Status        *string `json:"status"`
	TransactionID *string `json:"transaction_id"`
	Notes         *string `json:"notes"`
}

type paymentResponse struct {
	ID            string          `json:"id"`
	BookingID     string          `json:"booking_id"`
	Amount        decimal.Decimal `json:"amount"`
	Method        string          `json:"method"`
	Status        string          `json:"status"`
	TransactionID string          `json:"transaction_id"`
	Notes         *string         `json:"notes"`
	CreatedAt     time.Time       `json:"created_at"`
}

func newPaymentResponse(p *domain.Payment) paymentResponse {
	return paymentResponse{
		ID:            p.ID.String(),
		BookingID:     p.BookingID.String(),
		Amount:        p.Amount,
		Method:        p.Method,
		Status:        string(p.Status),
		TransactionID: p.TransactionID,
		Notes:         p.Notes,
		CreatedAt:     p.CreatedAt,
	}
}

func NewPaymentHandler(service payment.PaymentUseCase) *PaymentHandler {
	return &PaymentHandler{service: service}
}

func (h *PaymentHandler) Register(router *gin.RouterGroup, admin gin.HandlerFunc) {
	router.GET("", h.list)
	router.POST("", h.create)
	router.GET("/:id", h.get)
	router.PUT("/:id", admin, h.update)
	router.DELETE("/:id", admin, h.delete)
}

func (h *PaymentHandler) create(c *gin.Context) {
	principal, ok := actor(c)
	if !ok {
		return
	}
	var req createPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	bookingID, err := uuid.Parse(req.BookingID)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid booking id"})
		return
	}
	if req.Amount == nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "amount is required"})
		return
	}

	created, err := h.service.CreatePayment(c.Request.Context(), principal, payment.CreatePaymentInput{
		BookingID: bookingID,
		Amount:    *req.Amount,
		Method:    req.Method,
		Notes:     req.Notes,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newPaymentResponse(created))
}

func (h *PaymentHandler) list(c *gin.Context) {
	principal, ok := actor(c)
	if !ok {
		return
	}
	payments, err := h.service.ListPayments(c.Request.Context(), principal)
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]paymentResponse, 0, len(payments))
	for i := range payments {
		out = append(out, newPaymentResponse(&payments[i]))
	}
	c.JSON(http.StatusOK, out)
}

func (h *PaymentHandler) get(c *gin.Context) {
	principal, ok := actor(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "payment")
	if !ok {
		return
	}
	found, err := h.service.GetPayment(c.Request.Context(), principal, id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newPaymentResponse(found))
}

func (h *PaymentHandler) update(c *gin.Context) {
	principal, ok := actor(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "payment")
	if !ok {
		return
	}
	var req updatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	updated, err := h.service.UpdatePayment(c.Request.Context(), principal, id, domain.PaymentPatch{
		Status:        (*domain.PaymentStatus)(req.Status),
		TransactionID: req.TransactionID,
		Notes:         req.Notes,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newPaymentResponse(updated))
}

func (h *PaymentHandler) delete(c *gin.Context) {
	principal, ok := actor(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "payment")
	if !ok {
		return
	}
	if err := h.service.DeletePayment(c.Request.Context(), principal, id); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Payment deleted successfully"})
}
