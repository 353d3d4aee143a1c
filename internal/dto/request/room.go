package request

type CreateRoomRequest struct {
	BookingID        *int64 `json:"bookingId,omitempty" validate:"omitempty,gt=0"`
	TutorID          *int64 `json:"tutorId,omitempty" validate:"omitempty,gt=0"`
	ExpiresInMinutes *int   `json:"expiresInMinutes,omitempty" validate:"omitempty,gt=0,max=10080"`
	Secret           string `json:"secret,omitempty" validate:"max=72"`
}
