package wire

import (
	"kids-tutoring/internal/adaptor"

	"github.com/go-chi/chi/v5"
)

func wirePayment(r chi.Router, paymentHandler *adaptor.PaymentHandler) {
	r.Route("/api/pay", func(r chi.Router) {
		r.Post("/stripe/create-session", paymentHandler.CreateStripeSession)
		r.Post("/stripe/verify", paymentHandler.VerifyStripeSession)

		r.Post("/paypal/create-order", paymentHandler.CreatePayPalOrder)
		r.Post("/paypal/capture", paymentHandler.CapturePayPalOrder)

		r.Post("/mpesa", paymentHandler.PayMpesa)
	})

	// Daraja calls this one; it must always answer 200
	r.Post("/api/mpesa/callback", paymentHandler.MpesaCallback)
}
