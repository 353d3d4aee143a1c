package adaptor

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"kids-tutoring/internal/dto/request"
	"kids-tutoring/internal/usecase"
	"kids-tutoring/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type RoomHandler struct {
	service usecase.RoomService
	log     *zap.Logger
}

func NewRoomHandler(service usecase.RoomService, log *zap.Logger) *RoomHandler {
	return &RoomHandler{
		service: service,
		log:     log.With(zap.String("handler", "room")),
	}
}

// CreateRoom handles POST /api/rooms. An empty body creates a room with no
// booking, tutor, expiry or secret.
func (h *RoomHandler) CreateRoom(w http.ResponseWriter, r *http.Request) {
	var req request.CreateRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	if validationErrors := utils.ValidateStruct(req); len(validationErrors) > 0 {
		utils.ResponseBadRequest(w, "Validation failed", validationErrors)
		return
	}

	room, err := h.service.CreateRoom(r.Context(), &req)
	if err != nil {
		handleServiceError(w, h.log, err, "create room")
		return
	}

	utils.ResponseCreated(w, "success", room)
}

// GetRoom handles GET /api/rooms/{id}
func (h *RoomHandler) GetRoom(w http.ResponseWriter, r *http.Request) {
	room, err := h.service.GetRoom(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, h.log, err, "get room")
		return
	}

	utils.ResponseSuccess(w, "success", room)
}

// ListRooms handles GET /api/rooms?limit=
func (h *RoomHandler) ListRooms(w http.ResponseWriter, r *http.Request) {
	req := &request.ListRequest{
		Limit: utils.ParseInt(r.URL.Query().Get("limit"), request.DefaultListLimit),
	}

	rooms, err := h.service.ListRooms(r.Context(), req)
	if err != nil {
		handleServiceError(w, h.log, err, "list rooms")
		return
	}

	utils.ResponseSuccess(w, "success", rooms)
}

// CloseRoom handles POST /api/rooms/{id}/close
func (h *RoomHandler) CloseRoom(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.service.CloseRoom(r.Context(), id); err != nil {
		handleServiceError(w, h.log, err, "close room")
		return
	}

	utils.ResponseSuccess(w, "Room closed", nil)
}
