package server

import (
	"go.uber.org/zap"

	"github.com/gin-gonic/gin"

	"campusDeliveryBot/internal/auth"
	"campusDeliveryBot/internal/dispatch"
	"campusDeliveryBot/repository"
)

// Server carries the HTTP handler dependencies.
type Server struct {
	orders   repository.OrderRepositoryI
	couriers repository.CourierRepositoryI
	users    repository.UserRepositoryI
	svc      *dispatch.Service
	logger   *zap.SugaredLogger
}

func New(
	orders repository.OrderRepositoryI,
	couriers repository.CourierRepositoryI,
	users repository.UserRepositoryI,
	svc *dispatch.Service,
	log *zap.SugaredLogger,
) *Server {
	return &Server{orders: orders, couriers: couriers, users: users, svc: svc, logger: log}
}

// Router builds the gin engine with all routes. Every /api/v1 route requires a
// Bearer JWT; role checks are per-group.
func (s *Server) Router(jwtSecret string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	v1 := r.Group("/api/v1")
	v1.Use(auth.Middleware(jwtSecret))

	orders := v1.Group("/orders")
	{
		orders.POST("", auth.RequireKind("student"), s.placeOrder)
		orders.POST("/:id/accept", auth.RequireKind("courier"), s.acceptOrder)
		orders.POST("/:id/skip", auth.RequireKind("courier"), s.skipOrder)
	}

	courier := v1.Group("/courier", auth.RequireKind("courier"))
	{
		courier.GET("/me", s.courierProfile)
		courier.POST("/location", s.courierLocation)
		courier.POST("/status", s.courierStatus)
	}

	admin := v1.Group("/admin", auth.RequireKind("admin"))
	{
		admin.GET("/orders", s.adminListOrders)
		admin.GET("/couriers", s.adminListCouriers)
		admin.POST("/couriers/:id/block", s.adminBlockCourier)
		admin.POST("/couriers/:id/unblock", s.adminUnblockCourier)
	}

	return r
}
