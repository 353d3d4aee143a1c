// Package repotest provides in-memory implementations of the repository
// interfaces for tests. They follow the same contracts as the SQL versions:
// missing rows come back as nil, nil and Confirm is atomic on the processed
// flag.
package repotest

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"kids-tutoring/internal/data/entity"
	"kids-tutoring/internal/data/repository"
)

// Store holds every table behind one mutex.
type Store struct {
	mu sync.Mutex

	// Now stamps created_at. Tests replace it to control ordering.
	Now func() time.Time

	pending  map[int64]*entity.PendingSession
	sessions map[int64]*entity.Session
	payments []*entity.Payment
	rooms    map[string]*entity.Room

	nextPending int64
	nextSession int64
	nextPayment int64
}

func NewStore() *Store {
	return &Store{
		Now:      time.Now,
		pending:  make(map[int64]*entity.PendingSession),
		sessions: make(map[int64]*entity.Session),
		rooms:    make(map[string]*entity.Room),
	}
}

// Repository exposes the store through the repository interfaces.
func (s *Store) Repository() *repository.Repository {
	return &repository.Repository{
		PendingSession: pendingRepo{s},
		Session:        sessionRepo{s},
		Payment:        paymentRepo{s},
		Room:           roomRepo{s},
	}
}

// SessionCount and PaymentCount let tests assert on table sizes.
func (s *Store) SessionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *Store) PaymentCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.payments)
}

func (s *Store) Pending(id int64) *entity.PendingSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.pending[id]; ok {
		cp := *p
		return &cp
	}
	return nil
}

// ==================== PENDING SESSIONS ====================

type pendingRepo struct{ s *Store }

func (r pendingRepo) Create(_ context.Context, p *entity.PendingSession) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.s.nextPending++
	p.ID = r.s.nextPending
	p.CreatedAt = r.s.Now()
	cp := *p
	r.s.pending[p.ID] = &cp
	return nil
}

func (r pendingRepo) FindByID(_ context.Context, id int64) (*entity.PendingSession, error) {
	return r.s.Pending(id), nil
}

func (r pendingRepo) SetPushDetails(_ context.Context, id int64, phone, checkoutRef string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.pending[id]
	if !ok || p.Processed {
		return fmt.Errorf("pending session %d not found or already processed", id)
	}
	p.Phone = &phone
	if checkoutRef != "" {
		p.CheckoutRef = &checkoutRef
	}
	return nil
}

func (r pendingRepo) FindUnprocessedByCheckoutRef(_ context.Context, checkoutRef string) (*entity.PendingSession, error) {
	matches := r.s.filterPending(func(p *entity.PendingSession) bool {
		return p.CheckoutRef != nil && *p.CheckoutRef == checkoutRef
	})
	if len(matches) == 0 {
		return nil, nil
	}
	return matches[0], nil
}

func (r pendingRepo) FindUnprocessedByPhoneAmount(_ context.Context, phone string, amount int64, limit int) ([]*entity.PendingSession, error) {
	matches := r.s.filterPending(func(p *entity.PendingSession) bool {
		return p.Phone != nil && *p.Phone == phone && p.Amount == amount
	})
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

// filterPending returns copies of unprocessed rows, newest first.
func (s *Store) filterPending(keep func(*entity.PendingSession) bool) []*entity.PendingSession {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*entity.PendingSession
	for _, p := range s.pending {
		if !p.Processed && keep(p) {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

// ==================== SESSIONS ====================

type sessionRepo struct{ s *Store }

func (r sessionRepo) FindByPendingID(_ context.Context, pendingID int64) (*entity.Session, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.sessionForPending(pendingID), nil
}

func (s *Store) sessionForPending(pendingID int64) *entity.Session {
	for _, sess := range s.sessions {
		if sess.PendingSessionID != nil && *sess.PendingSessionID == pendingID {
			cp := *sess
			return &cp
		}
	}
	return nil
}

// ==================== PAYMENTS ====================

type paymentRepo struct{ s *Store }

func (r paymentRepo) ListByPendingID(_ context.Context, pendingID int64) ([]*entity.Payment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []*entity.Payment
	for _, p := range r.s.payments {
		if p.PendingSessionID != nil && *p.PendingSessionID == pendingID {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r paymentRepo) Confirm(_ context.Context, params repository.ConfirmParams) (*repository.ConfirmResult, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	pending, ok := s.pending[params.PendingID]
	if !ok {
		return nil, nil
	}
	if pending.Processed {
		cp := *pending
		return &repository.ConfirmResult{Pending: &cp, Session: s.sessionForPending(pending.ID)}, nil
	}

	now := s.Now()
	provider := string(params.Provider)
	var ref *string
	if params.ProviderRef != "" {
		v := params.ProviderRef
		ref = &v
	}

	session := s.sessionForPending(pending.ID)
	if session == nil {
		s.nextSession++
		pid := pending.ID
		session = &entity.Session{
			Base: entity.Base{
				BaseSimple: entity.BaseSimple{ID: s.nextSession, CreatedAt: now},
			},
			PendingSessionID: &pid,
			Booking:          pending.Booking,
		}
	}
	session.PaymentStatus = entity.PaymentStatusPaid
	session.PaymentProvider = &provider
	session.PaymentRef = ref
	session.UpdatedAt = now
	stored := *session
	s.sessions[session.ID] = &stored

	pending.Processed = true

	raw := params.Raw
	if len(raw) == 0 {
		raw = json.RawMessage("{}")
	}
	s.nextPayment++
	pid := pending.ID
	payment := &entity.Payment{
		BaseSimple:       entity.BaseSimple{ID: s.nextPayment, CreatedAt: now},
		PendingSessionID: &pid,
		Provider:         params.Provider,
		ProviderRef:      ref,
		Status:           entity.PaymentStatusSuccess,
		RawResponse:      raw,
	}
	s.payments = append(s.payments, payment)

	pcp := *pending
	paycp := *payment
	return &repository.ConfirmResult{
		Pending: &pcp,
		Session: session,
		Payment: &paycp,
		Applied: true,
	}, nil
}

// ==================== ROOMS ====================

type roomRepo struct{ s *Store }

func (r roomRepo) Create(_ context.Context, room *entity.Room) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, exists := r.s.rooms[room.ID]; exists {
		return fmt.Errorf("create room %s: duplicate id", room.ID)
	}
	cp := *room
	r.s.rooms[room.ID] = &cp
	return nil
}

func (r roomRepo) FindByID(_ context.Context, id string) (*entity.Room, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if room, ok := r.s.rooms[id]; ok {
		cp := *room
		return &cp, nil
	}
	return nil, nil
}

func (r roomRepo) List(_ context.Context, limit int) ([]*entity.Room, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	out := make([]*entity.Room, 0, len(r.s.rooms))
	for _, room := range r.s.rooms {
		cp := *room
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r roomRepo) MarkActive(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if room, ok := r.s.rooms[id]; ok && room.Status == entity.RoomStatusPending {
		room.Status = entity.RoomStatusActive
	}
	return nil
}

func (r roomRepo) Close(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	room, ok := r.s.rooms[id]
	if !ok {
		return fmt.Errorf("room %s not found", id)
	}
	room.Status = entity.RoomStatusClosed
	return nil
}
