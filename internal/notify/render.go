package notify

import (
	"fmt"
	"time"

	"campusDeliveryBot/models"
)

// FormatCountdown renders a remaining duration as MM:SS, clamped at zero.
func FormatCountdown(remaining time.Duration) string {
	secs := int(remaining.Seconds())
	if secs < 0 {
		secs = 0
	}
	return fmt.Sprintf("%02d:%02d", secs/60, secs%60)
}

// dropoffDisplay prefers live coordinates over the free-text dropoff.
func dropoffDisplay(order *models.Order) string {
	if order.HasDropLocation() {
		return fmt.Sprintf("Live location (%.6f,%.6f)", *order.DropLat, *order.DropLon)
	}
	return order.Dropoff
}

// RenderOffer builds the courier-facing offer message with a countdown line.
// The urgency icon escalates as the offer nears expiry.
func RenderOffer(order *models.Order, countdown, icon string) string {
	return fmt.Sprintf(
		"New Order Incoming!\n\n"+
			"Pickup: %s\n"+
			"Drop-off: %s\n"+
			"Delivery Fee: %d birr\n"+
			"%s Expires in: %s\n",
		order.Pickup, dropoffDisplay(order), int(order.DeliveryFee), icon, countdown)
}

// RenderOfferExpired builds the terminal text an offer message is edited to
// when its countdown runs out.
func RenderOfferExpired(orderID int64) string {
	return fmt.Sprintf("Offer Expired!\n\nOrder #%d has been returned to the pool.", orderID)
}

// RenderOfferSkipped builds the terminal text after an explicit skip.
func RenderOfferSkipped() string {
	return "You skipped this order. It will be reassigned to another partner."
}

// RenderStudentAssigned tells the student a partner took their order.
func RenderStudentAssigned(order *models.Order, courierName string) string {
	return fmt.Sprintf(
		"Order #%d update\n\nDelivery partner %s is on it.\nPickup: %s\nDrop-off: %s",
		order.ID, courierName, order.Pickup, dropoffDisplay(order))
}

// RenderStudentDelay tells the student reassignment is in progress.
func RenderStudentDelay(orderID int64) string {
	return fmt.Sprintf(
		"Order #%d is pending reassignment. We're finding the next available delivery partner.", orderID)
}

// RenderStudentCancelled tells the student their order expired unaccepted.
func RenderStudentCancelled(orderID int64) string {
	return fmt.Sprintf(
		"Order #%d expired\n\nNo delivery partner accepted in time. No charges applied.\nPlease place a new order.", orderID)
}

// RenderOfferAccepted builds the courier-facing text after acceptance.
func RenderOfferAccepted(order *models.Order) string {
	total := order.FoodSubtotal + order.DeliveryFee
	return fmt.Sprintf(
		"Order #%d accepted\n\n"+
			"Pickup: %s\n"+
			"Drop-off: %s\n"+
			"Subtotal: %d birr\n"+
			"Delivery fee: %d birr\n"+
			"Total payable: %d birr\n\n"+
			"Manage this order from My Orders.",
		order.ID, order.Pickup, dropoffDisplay(order),
		int(order.FoodSubtotal), int(order.DeliveryFee), int(total))
}
