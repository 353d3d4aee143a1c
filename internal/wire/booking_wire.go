package wire

import (
	"kids-tutoring/internal/adaptor"

	"github.com/go-chi/chi/v5"
)

func wireBooking(r chi.Router, bookingHandler *adaptor.BookingHandler) {
	// POST /api/book-session - Create a pending booking
	r.Post("/api/book-session", bookingHandler.CreateBooking)

	// GET /api/booking/{id} - Booking with its session and payments
	r.Get("/api/booking/{id}", bookingHandler.GetBooking)

	// POST /api/payment-confirmed/{bookingId} - Operator confirmation
	r.Post("/api/payment-confirmed/{bookingId}", bookingHandler.ConfirmPayment)
}
