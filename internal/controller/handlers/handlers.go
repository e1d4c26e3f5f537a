package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/Freeeeeet/consult_booking/internal/apperr"
	"github.com/Freeeeeet/consult_booking/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ActorKey ключ контекста gin, под которым лежит id пользователя
const ActorKey = "actor_id"

const dateLayout = "2006-01-02"

// Handlers HTTP-обработчики поверх сервисов
type Handlers struct {
	availability *service.AvailabilityService
	slots        *service.SlotService
	appointments *service.AppointmentService
	payments     *service.PaymentService
	logger       *zap.Logger
}

func NewHandlers(
	availability *service.AvailabilityService,
	slots *service.SlotService,
	appointments *service.AppointmentService,
	payments *service.PaymentService,
	logger *zap.Logger,
) *Handlers {
	return &Handlers{
		availability: availability,
		slots:        slots,
		appointments: appointments,
		payments:     payments,
		logger:       logger,
	}
}

// Health проверка живости
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// actor id из заголовка, положенный туда RequireActor
func actor(c *gin.Context) int64 {
	return c.GetInt64(ActorKey)
}

// StatusOf переводит вид ошибки в HTTP-статус
func StatusOf(err error) int {
	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindConflict, apperr.KindState:
		return http.StatusConflict
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindAuthorization:
		return http.StatusForbidden
	case apperr.KindGateway:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// respondError отвечает ошибкой; внутренние детали наружу не отдаются
func (h *Handlers) respondError(c *gin.Context, err error) {
	status := StatusOf(err)

	var appErr *apperr.Error
	if status == http.StatusInternalServerError || !errors.As(err, &appErr) {
		h.logger.Error("Request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "INTERNAL", "message": "internal error"})
		return
	}

	if status == http.StatusBadGateway {
		h.logger.Warn("Payment gateway error", zap.String("path", c.FullPath()), zap.Error(err))
	}
	c.JSON(status, gin.H{"error": appErr.Code, "message": appErr.Error()})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": "INVALID_INPUT", "message": msg})
}

// pathID разбирает положительный числовой параметр пути
func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "invalid "+name)
		return 0, false
	}
	return id, true
}

// dateRange читает ?from=YYYY-MM-DD&to=YYYY-MM-DD; to по умолчанию равен from
func dateRange(c *gin.Context) (time.Time, time.Time, bool) {
	from, err := time.Parse(dateLayout, c.Query("from"))
	if err != nil {
		badRequest(c, "from must be YYYY-MM-DD")
		return time.Time{}, time.Time{}, false
	}

	to := from
	if raw := c.Query("to"); raw != "" {
		to, err = time.Parse(dateLayout, raw)
		if err != nil {
			badRequest(c, "to must be YYYY-MM-DD")
			return time.Time{}, time.Time{}, false
		}
	}
	return from, to, true
}
