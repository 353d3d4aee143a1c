package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"kids-tutoring/internal/data/entity"
	"kids-tutoring/internal/data/repository/repotest"
	"kids-tutoring/internal/dto/request"

	"go.uber.org/zap/zaptest"
)

func newTestRoomService(t *testing.T, now time.Time) (*roomService, *repotest.Store) {
	t.Helper()
	store := repotest.NewStore()
	svc := NewRoomService(store.Repository(), zaptest.NewLogger(t)).(*roomService)
	svc.now = func() time.Time { return now }
	return svc, store
}

func intPtr(v int) *int { return &v }

func TestCreateRoomExpiry(t *testing.T) {
	now := time.Date(2024, 3, 1, 9, 15, 42, 500, time.UTC)
	svc, _ := newTestRoomService(t, now)
	ctx := context.Background()

	created, err := svc.CreateRoom(ctx, &request.CreateRoomRequest{ExpiresInMinutes: intPtr(120)})
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}
	if len(created.RoomID) != 12 {
		t.Errorf("room id %q, want 12 hex chars", created.RoomID)
	}

	room, err := svc.GetRoom(ctx, created.RoomID)
	if err != nil {
		t.Fatalf("GetRoom: %v", err)
	}
	if room.ExpiresAt == nil {
		t.Fatal("ExpiresAt should be set")
	}
	if got := room.ExpiresAt.Sub(room.CreatedAt); got != 120*time.Minute {
		t.Errorf("expiresAt - createdAt = %s, want 2h", got)
	}
	if room.Status != entity.RoomStatusPending || room.HasSecret {
		t.Errorf("room = %+v", room)
	}

	open, err := svc.CreateRoom(ctx, &request.CreateRoomRequest{})
	if err != nil {
		t.Fatalf("CreateRoom without expiry: %v", err)
	}
	if open.ExpiresAt != nil {
		t.Errorf("ExpiresAt = %v, want nil", open.ExpiresAt)
	}
}

func TestCreateRoomValidation(t *testing.T) {
	svc, _ := newTestRoomService(t, time.Now())
	ctx := context.Background()

	if _, err := svc.CreateRoom(ctx, &request.CreateRoomRequest{ExpiresInMinutes: intPtr(0)}); !errors.Is(err, ErrValidation) {
		t.Errorf("zero minutes: err = %v, want ErrValidation", err)
	}
	missing := int64(77)
	if _, err := svc.CreateRoom(ctx, &request.CreateRoomRequest{BookingID: &missing}); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown booking: err = %v, want ErrNotFound", err)
	}
}

func TestAdmitJoin(t *testing.T) {
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	svc, _ := newTestRoomService(t, now)
	ctx := context.Background()

	open, _ := svc.CreateRoom(ctx, &request.CreateRoomRequest{})
	locked, _ := svc.CreateRoom(ctx, &request.CreateRoomRequest{Secret: "s3cret"})
	short, _ := svc.CreateRoom(ctx, &request.CreateRoomRequest{ExpiresInMinutes: intPtr(30)})
	closed, _ := svc.CreateRoom(ctx, &request.CreateRoomRequest{})
	if err := svc.CloseRoom(ctx, closed.RoomID); err != nil {
		t.Fatalf("CloseRoom: %v", err)
	}

	if err := svc.AdmitJoin(ctx, open.RoomID, ""); err != nil {
		t.Errorf("open room: %v", err)
	}
	room, _ := svc.GetRoom(ctx, open.RoomID)
	if room.Status != entity.RoomStatusActive {
		t.Errorf("status = %s, want active after the first join", room.Status)
	}

	if err := svc.AdmitJoin(ctx, locked.RoomID, "wrong"); !errors.Is(err, ErrForbidden) {
		t.Errorf("wrong secret: err = %v, want ErrForbidden", err)
	}
	if err := svc.AdmitJoin(ctx, locked.RoomID, "s3cret"); err != nil {
		t.Errorf("right secret: %v", err)
	}
	if got, _ := svc.GetRoom(ctx, locked.RoomID); !got.HasSecret {
		t.Error("HasSecret should be true")
	}

	if err := svc.AdmitJoin(ctx, closed.RoomID, ""); !errors.Is(err, ErrConflict) {
		t.Errorf("closed room: err = %v, want ErrConflict", err)
	}
	if err := svc.AdmitJoin(ctx, "000000000000", ""); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown room: err = %v, want ErrNotFound", err)
	}
	if err := svc.AdmitJoin(ctx, " ", ""); !errors.Is(err, ErrValidation) {
		t.Errorf("blank room: err = %v, want ErrValidation", err)
	}

	if err := svc.AdmitJoin(ctx, short.RoomID, ""); err != nil {
		t.Errorf("before expiry: %v", err)
	}
	svc.now = func() time.Time { return now.Add(30 * time.Minute) }
	if err := svc.AdmitJoin(ctx, short.RoomID, ""); !errors.Is(err, ErrConflict) {
		t.Errorf("at expiry: err = %v, want ErrConflict", err)
	}
}

func TestListRooms(t *testing.T) {
	svc, _ := newTestRoomService(t, time.Now())
	ctx := context.Background()

	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	var ids []string
	for i := 0; i < 3; i++ {
		at := base.Add(time.Duration(i) * time.Minute)
		svc.now = func() time.Time { return at }
		created, err := svc.CreateRoom(ctx, &request.CreateRoomRequest{})
		if err != nil {
			t.Fatalf("CreateRoom: %v", err)
		}
		ids = append(ids, created.RoomID)
	}

	list, err := svc.ListRooms(ctx, &request.ListRequest{Limit: 2})
	if err != nil {
		t.Fatalf("ListRooms: %v", err)
	}
	if list.Count != 2 || list.Data[0].ID != ids[2] || list.Data[1].ID != ids[1] {
		t.Errorf("list = %+v, want newest two", list)
	}

	all, _ := svc.ListRooms(ctx, &request.ListRequest{})
	if all.Limit != request.DefaultListLimit || all.Count != 3 {
		t.Errorf("default list = count %d limit %d", all.Count, all.Limit)
	}
}
