package handlers

import (
	"net/http"

	"github.com/Freeeeeet/consult_booking/internal/availability"
	"github.com/Freeeeeet/consult_booking/internal/model"
	"github.com/Freeeeeet/consult_booking/internal/service"
	"github.com/gin-gonic/gin"
)

type ruleRequest struct {
	Weekday     int    `json:"weekday" binding:"required,min=1,max=7"`
	StartTime   string `json:"start_time" binding:"required,hhmm"`
	EndTime     string `json:"end_time" binding:"required,hhmm"`
	SlotMinutes int    `json:"slot_minutes" binding:"required,gt=0"`
	ZoneID      string `json:"zone_id"`
}

type slotsRequest struct {
	Slots []service.SlotInput `json:"slots" binding:"required,min=1"`
}

// CreateRule POST /api/availability/rules
func (h *Handlers) CreateRule(c *gin.Context) {
	var req ruleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	rule, err := h.availability.CreateRule(c.Request.Context(), actor(c), service.RuleInput{
		Weekday:     req.Weekday,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		SlotMinutes: req.SlotMinutes,
		ZoneID:      req.ZoneID,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, rule)
}

// DeleteRule DELETE /api/availability/rules/:id
func (h *Handlers) DeleteRule(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.availability.DeleteRule(c.Request.Context(), actor(c), id); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListRules GET /api/consultants/:id/availability/rules
func (h *Handlers) ListRules(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	rules, err := h.availability.ListRules(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if rules == nil {
		rules = []*model.AvailabilityRule{}
	}
	c.JSON(http.StatusOK, gin.H{"rules": rules})
}

// GenerateSlots GET /api/consultants/:id/availability/slots?from&to
func (h *Handlers) GenerateSlots(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	from, to, ok := dateRange(c)
	if !ok {
		return
	}

	windows, err := h.availability.GenerateSlots(c.Request.Context(), id, from, to)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if windows == nil {
		windows = []availability.Window{}
	}
	c.JSON(http.StatusOK, gin.H{"slots": windows})
}

// AddMySlots POST /api/availability/me/slots
func (h *Handlers) AddMySlots(c *gin.Context) {
	var req slotsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	added, err := h.slots.AddSlots(c.Request.Context(), actor(c), req.Slots)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"added": added})
}

// ListMySlots GET /api/availability/me/slots?from&to
func (h *Handlers) ListMySlots(c *gin.Context) {
	h.listSlots(c, actor(c))
}

// ListConsultantSlots GET /api/consultants/:id/slots?from&to
func (h *Handlers) ListConsultantSlots(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	h.listSlots(c, id)
}

// RemoveMySlot DELETE /api/availability/me/slots/:id
func (h *Handlers) RemoveMySlot(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.slots.RemoveSlot(c.Request.Context(), actor(c), id); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handlers) listSlots(c *gin.Context, consultantID int64) {
	from, to, ok := dateRange(c)
	if !ok {
		return
	}

	slots, err := h.slots.ListSlots(c.Request.Context(), consultantID, from, to)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if slots == nil {
		slots = []*model.AvailableSlot{}
	}
	c.JSON(http.StatusOK, gin.H{"slots": slots})
}
