// internal/wire/wire.go
package wire

import (
	"errors"
	"net/http"

	"kids-tutoring/internal/adaptor"
	"kids-tutoring/internal/data/repository"
	"kids-tutoring/internal/gateway"
	"kids-tutoring/internal/signaling"
	"kids-tutoring/internal/usecase"
	"kids-tutoring/pkg/middleware"
	"kids-tutoring/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// App holds the router and the pieces main needs to shut down cleanly.
type App struct {
	Router *chi.Mux
	Relay  *signaling.Relay
}

// Wiring builds services, handlers and routes. gw fields left nil make the
// matching payment endpoints answer 503.
func Wiring(repo *repository.Repository, gw usecase.Gateways, events usecase.EventPublisher, config *utils.Config, logger *zap.Logger) *App {
	service := usecase.NewService(repo, gw, events, config, logger)

	// rooms are admitted against their stored record before the registry
	// sees the connection
	relay := signaling.NewRelay(signaling.NewRegistry(), service.Room, logger)
	ws := signaling.NewServer(relay, signaling.Options{
		SendBuffer:   config.Signaling.SendBuffer,
		PingInterval: config.Signaling.PingInterval,
		ReadLimit:    config.Signaling.ReadLimit,
	}, logger)

	handler := adaptor.NewHandler(service, relay, ws, logger)

	return &App{
		Router: setupRouter(handler, config, logger),
		Relay:  relay,
	}
}

// Gateways builds every provider that has credentials. Missing credentials
// only disable that provider.
func Gateways(config *utils.Config, logger *zap.Logger) (usecase.Gateways, error) {
	var gw usecase.Gateways

	stripeGw, err := gateway.NewStripe(config.Stripe, logger)
	switch {
	case err == nil:
		gw.Checkout = stripeGw
	case errors.Is(err, gateway.ErrNotConfigured):
		logger.Warn("Stripe disabled", zap.Error(err))
	default:
		return gw, err
	}

	paypalGw, err := gateway.NewPayPal(config.PayPal, logger)
	switch {
	case err == nil:
		gw.Order = paypalGw
	case errors.Is(err, gateway.ErrNotConfigured):
		logger.Warn("PayPal disabled", zap.Error(err))
	default:
		return gw, err
	}

	mpesaGw, err := gateway.NewMpesa(config.Mpesa, config.Booking.ProviderTimeout, logger)
	switch {
	case err == nil:
		gw.Push = mpesaGw
	case errors.Is(err, gateway.ErrNotConfigured):
		logger.Warn("M-Pesa disabled", zap.Error(err))
	default:
		return gw, err
	}

	return gw, nil
}

func setupRouter(handler *adaptor.Handler, config *utils.Config, logger *zap.Logger) *chi.Mux {
	r := chi.NewRouter()

	// Apply global middleware
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recover(logger))
	r.Use(middleware.CORS(config.App.CORSOrigins))

	// Apply routes
	wireBooking(r, handler.Booking)
	wirePayment(r, handler.Payment)
	wireRoom(r, handler.Room)
	wireSignaling(r, handler.Signaling)

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	return r
}
