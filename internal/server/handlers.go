package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"campusDeliveryBot/internal/auth"
	"campusDeliveryBot/internal/dispatch"
	"campusDeliveryBot/models"
)

type placeOrderRequest struct {
	VendorName   string   `json:"vendor_name" binding:"required"`
	Pickup       string   `json:"pickup" binding:"required"`
	Dropoff      string   `json:"dropoff" binding:"required"`
	ItemsJSON    string   `json:"items_json"`
	FoodSubtotal float64  `json:"food_subtotal"`
	DeliveryFee  float64  `json:"delivery_fee"`
	DropLat      *float64 `json:"drop_lat"`
	DropLon      *float64 `json:"drop_lon"`
	ExpiresAt    *string  `json:"expires_at"`
}

// placeOrder creates a pending order for the calling student and immediately
// runs it through the matcher. A missing candidate is not an error: the order
// is returned in pending and the admins have been alerted.
func (s *Server) placeOrder(c *gin.Context) {
	p, _ := auth.FromContext(c.Request.Context())

	var req placeOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if (req.DropLat == nil) != (req.DropLon == nil) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "drop_lat and drop_lon must be set together"})
		return
	}

	o, err := s.orders.Create(c.Request.Context(), &models.Order{
		UserID:       p.ID,
		VendorName:   req.VendorName,
		Pickup:       req.Pickup,
		Dropoff:      req.Dropoff,
		ItemsJSON:    req.ItemsJSON,
		FoodSubtotal: req.FoodSubtotal,
		DeliveryFee:  req.DeliveryFee,
		DropLat:      req.DropLat,
		DropLon:      req.DropLon,
		ExpiresAt:    req.ExpiresAt,
	})
	if err != nil {
		s.logger.Errorw("place order failed", "user_id", p.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create order"})
		return
	}

	if _, err := s.svc.Assign(c.Request.Context(), o.ID); err != nil {
		s.logger.Errorw("initial assignment failed", "order_id", o.ID, "error", err)
	}

	o, err = s.orders.GetByID(c.Request.Context(), o.ID)
	if err != nil || o == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load order"})
		return
	}
	c.JSON(http.StatusCreated, o)
}

// acceptOrder handles a courier accepting their outstanding offer.
func (s *Server) acceptOrder(c *gin.Context) {
	p, _ := auth.FromContext(c.Request.Context())
	orderID, ok := pathID(c)
	if !ok {
		return
	}

	o, err := s.svc.HandleAccept(c.Request.Context(), orderID, p.ID)
	if err != nil {
		if errors.Is(err, dispatch.ErrStaleTransition) {
			c.JSON(http.StatusConflict, gin.H{"error": "offer no longer available"})
			return
		}
		s.logger.Errorw("accept failed", "order_id", orderID, "courier_id", p.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not accept order"})
		return
	}
	c.JSON(http.StatusOK, o)
}

// skipOrder handles a courier declining their outstanding offer.
func (s *Server) skipOrder(c *gin.Context) {
	p, _ := auth.FromContext(c.Request.Context())
	orderID, ok := pathID(c)
	if !ok {
		return
	}

	if err := s.svc.HandleSkip(c.Request.Context(), orderID, p.ID); err != nil {
		if errors.Is(err, dispatch.ErrStaleTransition) {
			c.JSON(http.StatusConflict, gin.H{"error": "offer no longer available"})
			return
		}
		s.logger.Errorw("skip failed", "order_id", orderID, "courier_id", p.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not skip order"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "skipped"})
}

func (s *Server) courierProfile(c *gin.Context) {
	p, _ := auth.FromContext(c.Request.Context())
	courier, err := s.couriers.GetByID(c.Request.Context(), p.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load profile"})
		return
	}
	if courier == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "courier not found"})
		return
	}
	active, err := s.couriers.ActiveOrderCount(c.Request.Context(), courier.ID)
	if err == nil {
		courier.ActiveOrders = active
	}
	c.JSON(http.StatusOK, courier)
}

type locationRequest struct {
	Lat float64 `json:"lat" binding:"required"`
	Lon float64 `json:"lon" binding:"required"`
}

func (s *Server) courierLocation(c *gin.Context) {
	p, _ := auth.FromContext(c.Request.Context())

	var req locationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.couriers.UpdateLocation(c.Request.Context(), p.ID, req.Lat, req.Lon); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not update location"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "updated"})
}

type statusRequest struct {
	Active *bool `json:"active" binding:"required"`
}

func (s *Server) courierStatus(c *gin.Context) {
	p, _ := auth.FromContext(c.Request.Context())

	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.couriers.SetActive(c.Request.Context(), p.ID, *req.Active); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not update status"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "updated"})
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}
