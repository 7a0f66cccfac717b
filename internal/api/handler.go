package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"cylinder-service/internal/service"
	"cylinder-service/internal/util"
	"cylinder-service/internal/workflow"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler contains HTTP handlers
type Handler struct {
	orderService    *service.OrderService
	transferService *service.TransferService
}

// NewHandler creates a new HTTP handler
func NewHandler(orderService *service.OrderService, transferService *service.TransferService) *Handler {
	return &Handler{
		orderService:    orderService,
		transferService: transferService,
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.POST("/orders", h.createOrder)
		v1.GET("/orders/:id", h.getOrder)
		v1.POST("/orders/:id/status", h.changeOrderStatus)
		v1.PUT("/orders/:id/tax", h.updateOrderTax)

		v1.POST("/transfers/validate", h.validateTransfer)
		v1.POST("/transfers", h.createTransfer)
		v1.POST("/transfers/:id/approve", h.approveTransfer)
		v1.POST("/transfers/:id/complete", h.completeTransfer)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck handles readiness check requests
func (h *Handler) readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// createOrder handles order creation
func (h *Handler) createOrder(c *gin.Context) {
	var req service.CreateOrderRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	if req.IdempotencyKey == "" {
		req.IdempotencyKey = c.GetHeader("Idempotency-Key")
	}

	resp, err := h.orderService.CreateOrder(c.Request.Context(), &req)
	if err != nil {
		c.JSON(orderErrorStatus(err), gin.H{
			"error":   "Failed to create order",
			"details": err.Error(),
		})
		return
	}

	if resp.Replayed {
		c.JSON(http.StatusOK, resp)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// getOrder handles get order by ID
func (h *Handler) getOrder(c *gin.Context) {
	orderID, ok := parseID(c)
	if !ok {
		return
	}

	order, lines, err := h.orderService.GetOrder(c.Request.Context(), orderID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "Order not found",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"order": order,
		"lines": lines,
	})
}

// changeOrderStatus handles a workflow transition request
func (h *Handler) changeOrderStatus(c *gin.Context) {
	orderID, ok := parseID(c)
	if !ok {
		return
	}

	var req struct {
		Status string `json:"status" binding:"required"`
		Reason string `json:"reason"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	order, err := h.orderService.ChangeStatus(c.Request.Context(), orderID, req.Status, req.Reason)
	if err != nil {
		var invalid *workflow.ErrInvalidTransition
		status := http.StatusInternalServerError
		switch {
		case errors.As(err, &invalid):
			status = http.StatusConflict
		case errors.Is(err, service.ErrNotFound):
			status = http.StatusNotFound
		case errors.Is(err, service.ErrInsufficientStock):
			status = http.StatusUnprocessableEntity
		}
		c.JSON(status, gin.H{
			"error":   "Failed to change order status",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, order)
}

// updateOrderTax handles a tax percentage change
func (h *Handler) updateOrderTax(c *gin.Context) {
	orderID, ok := parseID(c)
	if !ok {
		return
	}

	var req struct {
		TaxPercent float64 `json:"tax_percent" binding:"min=0"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	totals, err := h.orderService.UpdateTax(c.Request.Context(), orderID, req.TaxPercent)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, service.ErrNotFound):
			status = http.StatusNotFound
		case errors.Is(err, service.ErrOrderNotEditable):
			status = http.StatusConflict
		}
		c.JSON(status, gin.H{
			"error":   "Failed to update tax",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, totals)
}

// validateTransfer runs transfer validation without persisting
func (h *Handler) validateTransfer(c *gin.Context) {
	var req service.CreateTransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	result, err := h.transferService.ValidateOnly(c.Request.Context(), &req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to validate transfer",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, result)
}

// createTransfer handles transfer creation
func (h *Handler) createTransfer(c *gin.Context) {
	var req service.CreateTransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	result, err := h.transferService.CreateTransfer(c.Request.Context(), &req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to create transfer",
			"details": err.Error(),
		})
		return
	}

	if !result.Validation.IsValid {
		c.JSON(http.StatusUnprocessableEntity, result)
		return
	}
	c.JSON(http.StatusCreated, result)
}

// approveTransfer handles transfer approval
func (h *Handler) approveTransfer(c *gin.Context) {
	transferID, ok := parseID(c)
	if !ok {
		return
	}

	result, err := h.transferService.ApproveTransfer(c.Request.Context(), transferID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, service.ErrNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{
			"error":   "Failed to approve transfer",
			"details": err.Error(),
		})
		return
	}

	if !result.Validation.IsValid {
		c.JSON(http.StatusUnprocessableEntity, result)
		return
	}
	c.JSON(http.StatusOK, result)
}

// completeTransfer handles transfer completion
func (h *Handler) completeTransfer(c *gin.Context) {
	transferID, ok := parseID(c)
	if !ok {
		return
	}

	result, err := h.transferService.CompleteTransfer(c.Request.Context(), transferID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, service.ErrNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{
			"error":   "Failed to complete transfer",
			"details": err.Error(),
		})
		return
	}

	if !result.Completed {
		c.JSON(http.StatusConflict, result)
		return
	}
	c.JSON(http.StatusOK, result)
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID"})
		return 0, false
	}
	return id, true
}

func orderErrorStatus(err error) int {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrConcurrentDuplicate):
		return http.StatusConflict
	case errors.Is(err, service.ErrAccountOnHold),
		errors.Is(err, service.ErrAccountClosed),
		errors.Is(err, service.ErrProductInactive),
		errors.Is(err, service.ErrPriceMismatch),
		errors.Is(err, service.ErrPriceChanged),
		errors.Is(err, service.ErrNoPricingFound),
		errors.Is(err, service.ErrInsufficientStock),
		errors.Is(err, service.ErrOrderBelowMinimum):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
