package wire

import (
	"kids-tutoring/internal/adaptor"

	"github.com/go-chi/chi/v5"
)

func wireSignaling(r chi.Router, signalingHandler *adaptor.SignalingHandler) {
	// GET /ws - Upgrade to the signaling channel
	r.Get("/ws", signalingHandler.Connect)

	r.Get("/api/signaling/stats", signalingHandler.Stats)
}
