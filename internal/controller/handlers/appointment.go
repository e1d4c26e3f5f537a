package handlers

import (
	"net/http"
	"time"

	"github.com/Freeeeeet/consult_booking/internal/model"
	"github.com/gin-gonic/gin"
)

type createAppointmentRequest struct {
	ConsultantID int64     `json:"consultant_id" binding:"required,gt=0"`
	StartAt      time.Time `json:"start_at" binding:"required"`
	EndAt        time.Time `json:"end_at" binding:"required"`
}

type rescheduleRequest struct {
	StartAt time.Time `json:"start_at" binding:"required"`
	EndAt   time.Time `json:"end_at" binding:"required"`
}

// CreateAppointment POST /api/appointments
func (h *Handlers) CreateAppointment(c *gin.Context) {
	var req createAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	a, err := h.appointments.Create(c.Request.Context(), req.ConsultantID, actor(c), req.StartAt, req.EndAt)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, a.View())
}

// MyAppointments GET /api/appointments/me?as=consultant
func (h *Handlers) MyAppointments(c *gin.Context) {
	var (
		views []*model.AppointmentView
		err   error
	)
	if c.Query("as") == "consultant" {
		views, err = h.appointments.ListForConsultant(c.Request.Context(), actor(c))
	} else {
		views, err = h.appointments.ListForClient(c.Request.Context(), actor(c))
	}
	if err != nil {
		h.respondError(c, err)
		return
	}
	if views == nil {
		views = []*model.AppointmentView{}
	}
	c.JSON(http.StatusOK, gin.H{"appointments": views})
}

// GetAppointment GET /api/appointments/:id
func (h *Handlers) GetAppointment(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	view, err := h.appointments.Get(c.Request.Context(), actor(c), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// ApproveAppointment POST /api/appointments/:id/approve
func (h *Handlers) ApproveAppointment(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	a, err := h.appointments.Approve(c.Request.Context(), id, actor(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, a.View())
}

// RescheduleAppointment PATCH /api/appointments/:id/reschedule
func (h *Handlers) RescheduleAppointment(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req rescheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	a, err := h.appointments.Reschedule(c.Request.Context(), id, actor(c), req.StartAt, req.EndAt)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, a.View())
}
