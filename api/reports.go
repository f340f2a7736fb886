package api

import (
	"net/http"

	"github.com/Domenick1991/outdoorcamp/internal/service/reports"
	"github.com/gin-gonic/gin"
)

type ReportHandler struct {
	service reports.ReportUseCase
}

func NewReportHandler(service reports.ReportUseCase) *ReportHandler {
	return &ReportHandler{service: service}
}

func (h *ReportHandler) Register(router *gin.RouterGroup) {
	router.GET("/stats", h.stats)
	router.GET("/revenue", h.revenue)
	router.GET("/bookings-trend", h.bookingsTrend)
	router.GET("/popular-products", h.popularProducts)
}

func (h *ReportHandler) stats(c *gin.Context) {
	principal, ok := actor(c)
	if !ok {
		return
	}
	stats, err := h.service.Stats(c.Request.Context(), principal)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *ReportHandler) revenue(c *gin.Context) {
	principal, ok := actor(c)
	if !ok {
		return
	}
	revenue, err := h.service.Revenue(c.Request.Context(), principal)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, revenue)
}

func (h *ReportHandler) bookingsTrend(c *gin.Context) {
	principal, ok := actor(c)
	if !ok {
		return
	}
	trend, err := h.service.BookingsTrend(c.Request.Context(), principal)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, trend)
}

func (h *ReportHandler) popularProducts(c *gin.Context) {
	principal, ok := actor(c)
	if !ok {
		return
	}
	popular, err := h.service.PopularProducts(c.Request.Context(), principal)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, popular)
}
