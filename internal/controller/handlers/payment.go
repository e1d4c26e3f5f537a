package handlers

import (
	"net/http"

	"github.com/Freeeeeet/consult_booking/internal/model"
	"github.com/Freeeeeet/consult_booking/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type confirmRequest struct {
	MerchantUID string `json:"merchant_uid" binding:"required"`
	ImpUID      string `json:"imp_uid" binding:"required"`
}

type cancelRequest struct {
	Reason string `json:"reason" binding:"max=200"`
}

// Quote GET /api/consultants/:id/quote
func (h *Handlers) Quote(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	q, err := h.payments.Quote(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, q)
}

// Checkout POST /api/payments/checkout
func (h *Handlers) Checkout(c *gin.Context) {
	var in service.CheckoutInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err.Error())
		return
	}

	res, err := h.payments.Checkout(c.Request.Context(), actor(c), in)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

// Confirm POST /api/payments/confirm
func (h *Handlers) Confirm(c *gin.Context) {
	var req confirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	p, err := h.payments.Confirm(c.Request.Context(), req.MerchantUID, req.ImpUID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"order_id":     p.OrderID,
		"merchant_uid": p.MerchantUID,
		"status":       p.Status,
		"amount":       p.Amount,
		"paid_at":      p.PaidAt,
	})
}

// CancelOrder POST /api/payments/orders/:id/cancel
func (h *Handlers) CancelOrder(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req cancelRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
	}

	view, err := h.payments.Cancel(c.Request.Context(), actor(c), id, req.Reason)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// ListOrders GET /api/payments/orders
func (h *Handlers) ListOrders(c *gin.Context) {
	orders, err := h.payments.ListOrders(c.Request.Context(), actor(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	if orders == nil {
		orders = []*model.OrderView{}
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

// GetOrder GET /api/payments/orders/:id
func (h *Handlers) GetOrder(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	view, err := h.payments.GetOrder(c.Request.Context(), actor(c), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// PortOneWebhook POST /api/payments/portone/webhook.
// 200 означает, что уведомление обработано; 5xx заставит шлюз повторить доставку.
func (h *Handlers) PortOneWebhook(c *gin.Context) {
	var payload service.WebhookPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		badRequest(c, err.Error())
		return
	}

	if err := h.payments.HandleWebhook(c.Request.Context(), payload); err != nil {
		h.logger.Warn("Webhook processing failed",
			zap.String("merchant_uid", payload.MerchantUID),
			zap.String("imp_uid", payload.ImpUID),
			zap.Error(err))
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"received": true})
}
