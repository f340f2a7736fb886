package api

import (
	"net/http"
	"time"

	"github.com/Domenick1991/outdoorcamp/internal/domain"
	"github.com/Domenick1991/outdoorcamp/internal/service/booking"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// defaultBookingQuantity applies when a create request omits quantity.
const defaultBookingQuantity = 1

type BookingHandler struct {
	service booking.BookingUseCase
}

type createBookingRequest struct {
	ProductID string  `json:"product_id" binding:"required"`
	StartDate string  `json:"start_date" binding:"required"`
	EndDate   string  `json:"end_date" binding:"required"`
	Quantity  *int    `json:"quantity"`
	Notes     *string `json:"notes"`
}

type updateBookingRequest struct {
	Status    *string `json:"status"`
	StartDate *string `json:"start_date"`
	EndDate   *string `json:"end_date"`
	Quantity  *int    `json:"quantity"`
	Notes     *string `json:"notes"`
}

type bookingResponse struct {
	ID          string          `json:"id"`
	UserID      string          `json:"user_id"`
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	StartDate   string          `json:"start_date"`
	EndDate     string          `json:"end_date"`
	Quantity    int             `json:"quantity"`
	TotalPrice  decimal.Decimal `json:"total_price"`
	Status      string          `json:"status"`
	Notes       *string         `json:"notes"`
	CreatedAt   time.Time       `json:"created_at"`
}

func newBookingResponse(b *domain.Booking) bookingResponse {
	return bookingResponse{
		ID:          b.ID.String(),
		UserID:      b.UserID.String(),
		ProductID:   b.ProductID.String(),
		ProductName: b.ProductName,
		StartDate:   b.StartDate,
		EndDate:     b.EndDate,
		Quantity:    b.Quantity,
		TotalPrice:  b.TotalPrice,
		Status:      string(b.Status),
		Notes:       b.Notes,
		CreatedAt:   b.CreatedAt,
	}
}

func NewBookingHandler(service booking.BookingUseCase) *BookingHandler {
	return &BookingHandler{service: service}
}

func (h *BookingHandler) Register(router *gin.RouterGroup) {
	router.GET("", h.list)
	router.POST("", h.create)
	router.GET("/:id", h.get)
	router.PUT("/:id", h.update)
	router.DELETE("/:id", h.cancel)
}

func (h *BookingHandler) create(c *gin.Context) {
	principal, ok := actor(c)
	if !ok {
		return
	}
	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	productID, err := uuid.Parse(req.ProductID)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid product id"})
		return
	}

	quantity := defaultBookingQuantity
	if req.Quantity != nil {
		quantity = *req.Quantity
	}

	created, err := h.service.CreateBooking(c.Request.Context(), principal, booking.CreateBookingInput{
		ProductID: productID,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
		Quantity:  quantity,
		Notes:     req.Notes,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newBookingResponse(created))
}

func (h *BookingHandler) list(c *gin.Context) {
	principal, ok := actor(c)
	if !ok {
		return
	}
	bookings, err := h.service.ListBookings(c.Request.Context(), principal)
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]bookingResponse, 0, len(bookings))
	for i := range bookings {
		out = append(out, newBookingResponse(&bookings[i]))
	}
	c.JSON(http.StatusOK, out)
}

func (h *BookingHandler) get(c *gin.Context) {
	principal, ok := actor(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "booking")
	if !ok {
		return
	}
	found, err := h.service.GetBooking(c.Request.Context(), principal, id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newBookingResponse(found))
}

func (h *BookingHandler) update(c *gin.Context) {
	principal, ok := actor(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "booking")
	if !ok {
		return
	}
	var req updateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	updated, err := h.service.UpdateBooking(c.Request.Context(), principal, id, domain.BookingPatch{
		Status:    (*domain.BookingStatus)(req.Status),
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
		Quantity:  req.Quantity,
		Notes:     req.Notes,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newBookingResponse(updated))
}

func (h *BookingHandler) cancel(c *gin.Context) {
	principal, ok := actor(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "booking")
	if !ok {
		return
	}
	if _, err := h.service.CancelBooking(c.Request.Context(), principal, id); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Booking cancelled successfully"})
}
