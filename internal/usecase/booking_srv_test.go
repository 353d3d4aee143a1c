package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"kids-tutoring/internal/data/entity"
	"kids-tutoring/internal/dto/request"
)

func validBooking() request.CreateBookingRequest {
	return request.CreateBookingRequest{
		ParentName:  "Jane Parent",
		ChildName:   "Sam",
		Email:       "jane@example.com",
		SessionType: "reading",
		Date:        "2024-03-10",
		Time:        "09:30",
	}
}

func TestCreateBookingValidation(t *testing.T) {
	f := newFixture(t, Gateways{}, false)

	tests := []struct {
		name   string
		mutate func(*request.CreateBookingRequest)
		field  string
	}{
		{"missing parent", func(r *request.CreateBookingRequest) { r.ParentName = "" }, "parentName"},
		{"blank child", func(r *request.CreateBookingRequest) { r.ChildName = "   " }, "childName"},
		{"bad email", func(r *request.CreateBookingRequest) { r.Email = "not-an-email" }, "email"},
		{"missing session type", func(r *request.CreateBookingRequest) { r.SessionType = "" }, "sessionType"},
		{"bad date", func(r *request.CreateBookingRequest) { r.Date = "10/03/2024" }, "date"},
		{"bad time", func(r *request.CreateBookingRequest) { r.Time = "25:00" }, "time"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validBooking()
			tt.mutate(&req)

			_, err := f.booking.CreateBooking(context.Background(), &req)
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("err = %v, want ErrValidation", err)
			}
			if !strings.Contains(err.Error(), tt.field) {
				t.Errorf("error %q does not name %s", err, tt.field)
			}
		})
	}
}

func TestCreateAndGetBooking(t *testing.T) {
	f := newFixture(t, Gateways{}, false)
	ctx := context.Background()

	req := validBooking()
	phone := "0712 345 678"
	req.Phone = &phone

	created, err := f.booking.CreateBooking(ctx, &req)
	if err != nil {
		t.Fatalf("CreateBooking: %v", err)
	}
	if created.ID < 1 {
		t.Fatalf("id = %d", created.ID)
	}

	got, err := f.booking.GetBooking(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetBooking: %v", err)
	}
	if got.ChildName != "Sam" || got.Processed || got.Session != nil {
		t.Errorf("booking = %+v", got)
	}
	if got.Amount != 150000 {
		t.Errorf("amount = %d, want the configured session price", got.Amount)
	}
	if got.Phone == nil || *got.Phone != "254712345678" {
		t.Errorf("phone = %v, want normalised", got.Phone)
	}

	if _, err := f.booking.GetBooking(ctx, created.ID+100); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing booking: err = %v, want ErrNotFound", err)
	}
}

func TestConfirmManually(t *testing.T) {
	f := newFixture(t, Gateways{}, false)
	ctx := context.Background()
	id := f.book(t, "", 150000)

	req := &request.ConfirmPaymentRequest{Provider: "manual", TransactionID: "cash-1"}
	first, err := f.booking.ConfirmManually(ctx, id, req)
	if err != nil {
		t.Fatalf("ConfirmManually: %v", err)
	}
	if first.PaymentStatus != entity.PaymentStatusPaid || *first.PaymentRef != "cash-1" {
		t.Errorf("session = %+v", first)
	}

	again, err := f.booking.ConfirmManually(ctx, id, req)
	if err != nil {
		t.Fatalf("repeat: %v", err)
	}
	if again.ID != first.ID {
		t.Errorf("repeat returned session %d, want %d", again.ID, first.ID)
	}

	got, _ := f.booking.GetBooking(ctx, id)
	if !got.Processed || got.Session == nil || len(got.Payments) != 1 {
		t.Errorf("booking = %+v", got)
	}

	if _, err := f.booking.ConfirmManually(ctx, id, &request.ConfirmPaymentRequest{Provider: "cash"}); !errors.Is(err, ErrValidation) {
		t.Errorf("bad provider: err = %v, want ErrValidation", err)
	}
	if _, err := f.booking.ConfirmManually(ctx, 999, req); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing booking: err = %v, want ErrNotFound", err)
	}
}
