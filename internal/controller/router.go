package controller

import (
	"fmt"
	"slices"
	"time"

	"github.com/Freeeeeet/consult_booking/internal/controller/handlers"
	"github.com/Freeeeeet/consult_booking/internal/service"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// RouterConfig настройки HTTP-слоя
type RouterConfig struct {
	AllowOrigins []string
	// Лимит вебхука на IP
	WebhookPerMinute int
	WebhookBurst     int
}

// NewRouter собирает gin-движок со всеми маршрутами
func NewRouter(cfg RouterConfig, h *handlers.Handlers, logger *zap.Logger) (*gin.Engine, error) {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		if err := service.RegisterValidations(v); err != nil {
			return nil, fmt.Errorf("register validations: %w", err)
		}
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(handlers.RequestLogger(logger))
	r.Use(cors.New(corsConfig(cfg.AllowOrigins)))

	r.GET("/healthz", h.Health)

	api := r.Group("/api")

	// Шлюз не знает о пользователях, поэтому вебхук без X-User-ID
	api.POST("/payments/portone/webhook",
		handlers.RateLimit(cfg.WebhookPerMinute, cfg.WebhookBurst, logger),
		h.PortOneWebhook)

	authed := api.Group("")
	authed.Use(handlers.RequireActor())
	{
		consultants := authed.Group("/consultants/:id")
		consultants.GET("/availability/rules", h.ListRules)
		consultants.GET("/availability/slots", h.GenerateSlots)
		consultants.GET("/slots", h.ListConsultantSlots)
		consultants.GET("/quote", h.Quote)

		av := authed.Group("/availability")
		av.POST("/rules", h.CreateRule)
		av.DELETE("/rules/:id", h.DeleteRule)
		av.GET("/me/slots", h.ListMySlots)
		av.POST("/me/slots", h.AddMySlots)
		av.DELETE("/me/slots/:id", h.RemoveMySlot)

		ap := authed.Group("/appointments")
		ap.POST("", h.CreateAppointment)
		ap.GET("/me", h.MyAppointments)
		ap.GET("/:id", h.GetAppointment)
		ap.POST("/:id/approve", h.ApproveAppointment)
		ap.PATCH("/:id/reschedule", h.RescheduleAppointment)

		pay := authed.Group("/payments")
		pay.POST("/checkout", h.Checkout)
		pay.POST("/confirm", h.Confirm)
		pay.GET("/orders", h.ListOrders)
		pay.GET("/orders/:id", h.GetOrder)
		pay.POST("/orders/:id/cancel", h.CancelOrder)
	}

	return r, nil
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Authorization", "Content-Type", handlers.ActorHeader},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || slices.Contains(origins, "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}
