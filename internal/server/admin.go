package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"campusDeliveryBot/models"
	"campusDeliveryBot/repository"
)

// adminListOrders returns orders filtered by status/user/courier with keyset
// pagination (?after_id=N from the previous page's last id).
func (s *Server) adminListOrders(c *gin.Context) {
	var p repository.ListAdminParams

	if raw := c.Query("status"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			p.Statuses = append(p.Statuses, models.OrderStatus(strings.TrimSpace(part)))
		}
	}
	if raw := c.Query("user_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user_id"})
			return
		}
		p.UserID = &id
	}
	if raw := c.Query("courier_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid courier_id"})
			return
		}
		p.CourierID = &id
	}
	if raw := c.Query("page_size"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid page_size"})
			return
		}
		p.PageSize = n
	}
	if raw := c.Query("after_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid after_id"})
			return
		}
		p.AfterID = id
	}

	orders, err := s.orders.ListAdmin(c.Request.Context(), p)
	if err != nil {
		s.logger.Errorw("admin list orders failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not list orders"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

func (s *Server) adminListCouriers(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	couriers, err := s.couriers.List(c.Request.Context(), limit, offset)
	if err != nil {
		s.logger.Errorw("admin list couriers failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not list couriers"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"couriers": couriers})
}

func (s *Server) adminBlockCourier(c *gin.Context) {
	s.setCourierBlocked(c, true)
}

func (s *Server) adminUnblockCourier(c *gin.Context) {
	s.setCourierBlocked(c, false)
}

// setCourierBlocked flips the block flag. Blocking does not touch orders the
// courier already accepted; it only removes them from future matching.
func (s *Server) setCourierBlocked(c *gin.Context, blocked bool) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	courier, err := s.couriers.GetByID(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load courier"})
		return
	}
	if courier == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "courier not found"})
		return
	}
	if err := s.couriers.SetBlocked(c.Request.Context(), id, blocked); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not update courier"})
		return
	}
	s.logger.Infow("courier block flag changed", "courier_id", id, "blocked", blocked)
	c.JSON(http.StatusOK, gin.H{"id": id, "blocked": blocked})
}
