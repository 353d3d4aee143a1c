package adaptor

import (
	"net/http"

	"kids-tutoring/internal/signaling"
	"kids-tutoring/pkg/utils"

	"go.uber.org/zap"
)

type SignalingHandler struct {
	relay *signaling.Relay
	ws    http.Handler
	log   *zap.Logger
}

func NewSignalingHandler(relay *signaling.Relay, ws http.Handler, log *zap.Logger) *SignalingHandler {
	return &SignalingHandler{
		relay: relay,
		ws:    ws,
		log:   log.With(zap.String("handler", "signaling")),
	}
}

// Connect handles GET /ws
func (h *SignalingHandler) Connect(w http.ResponseWriter, r *http.Request) {
	h.ws.ServeHTTP(w, r)
}

// Stats handles GET /api/signaling/stats
func (h *SignalingHandler) Stats(w http.ResponseWriter, r *http.Request) {
	utils.ResponseSuccess(w, "success", h.relay.Registry().Stats())
}
