package signaling

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
)

// fakePeer records every frame it is sent.
type fakePeer struct {
	id string

	mu     sync.Mutex
	frames []Frame
}

func newFakePeer(id string) *fakePeer { return &fakePeer{id: id} }

func (p *fakePeer) ID() string { return p.id }

func (p *fakePeer) Send(f Frame) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.frames = append(p.frames, f)
	return true
}

func (p *fakePeer) Frames() []Frame {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Frame(nil), p.frames...)
}

func (p *fakePeer) Events() []string {
	var out []string
	for _, f := range p.Frames() {
		out = append(out, f.Event)
	}
	return out
}

// decoded round-trips a frame's data through JSON, the way a client sees it.
func decoded(t *testing.T, f Frame) map[string]any {
	t.Helper()
	b, err := json.Marshal(f.Data)
	if err != nil {
		t.Fatalf("marshal frame data: %v", err)
	}
	var out map[string]any
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatalf("unmarshal frame data: %v", err)
	}
	return out
}

func addPeers(t *testing.T, reg *Registry, ids ...string) []*fakePeer {
	t.Helper()
	peers := make([]*fakePeer, len(ids))
	for i, id := range ids {
		peers[i] = newFakePeer(id)
		if err := reg.Add(peers[i]); err != nil {
			t.Fatalf("Add(%s): %v", id, err)
		}
	}
	return peers
}

func TestRegistryJoinReturnsOthers(t *testing.T) {
	reg := NewRegistry()
	addPeers(t, reg, "a", "b", "c")

	others, err := reg.Join("a", "room", nil)
	if err != nil || len(others) != 0 {
		t.Fatalf("first join: others=%v err=%v", others, err)
	}

	others, err = reg.Join("b", "room", nil)
	if err != nil {
		t.Fatalf("second join: %v", err)
	}
	if got := peerIDs(others); len(got) != 1 || got[0] != "a" {
		t.Errorf("others = %v, want [a]", got)
	}

	others, _ = reg.Join("c", "room", nil)
	if got := peerIDs(others); fmt.Sprint(got) != "[a b]" {
		t.Errorf("others = %v, want [a b]", got)
	}

	if got := peerIDs(reg.Members("room")); fmt.Sprint(got) != "[a b c]" {
		t.Errorf("members = %v, want [a b c]", got)
	}
}

func TestRegistryJoinErrors(t *testing.T) {
	reg := NewRegistry()
	addPeers(t, reg, "a")

	if _, err := reg.Join("a", "", nil); !errors.Is(err, ErrRoomIDRequired) {
		t.Errorf("empty room: err = %v", err)
	}
	if _, err := reg.Join("ghost", "room", nil); !errors.Is(err, ErrUnknownConn) {
		t.Errorf("unknown conn: err = %v", err)
	}

	if _, err := reg.Join("a", "one", nil); err != nil {
		t.Fatalf("join: %v", err)
	}
	if _, err := reg.Join("a", "two", nil); !errors.Is(err, ErrAlreadyInRoom) {
		t.Errorf("double join: err = %v, want ErrAlreadyInRoom", err)
	}
	if _, err := reg.Join("a", "one", nil); !errors.Is(err, ErrAlreadyInRoom) {
		t.Errorf("rejoin same room: err = %v, want ErrAlreadyInRoom", err)
	}
	if reg.Stats().Rooms != 1 {
		t.Errorf("rooms = %d, want 1", reg.Stats().Rooms)
	}
}

func TestRegistryAddDuplicate(t *testing.T) {
	reg := NewRegistry()
	addPeers(t, reg, "a")
	if err := reg.Add(newFakePeer("a")); !errors.Is(err, ErrDuplicateConn) {
		t.Errorf("err = %v, want ErrDuplicateConn", err)
	}
}

func TestRegistryLeaveDropsEmptyRoom(t *testing.T) {
	reg := NewRegistry()
	addPeers(t, reg, "a", "b")
	reg.Join("a", "room", nil)
	reg.Join("b", "room", nil)

	remaining, left := reg.Leave("a", "room")
	if !left || fmt.Sprint(peerIDs(remaining)) != "[b]" {
		t.Fatalf("leave a: remaining=%v left=%v", peerIDs(remaining), left)
	}
	if reg.RoomOf("a") != "" {
		t.Error("a should no longer be in a room")
	}

	if _, left := reg.Leave("a", "room"); left {
		t.Error("second leave should be a no-op")
	}

	reg.Leave("b", "room")
	if got := reg.Stats(); got.Rooms != 0 || got.Connections != 2 {
		t.Errorf("stats = %+v, want 0 rooms 2 connections", got)
	}

	// a left, so it may join again
	if _, err := reg.Join("a", "room", nil); err != nil {
		t.Errorf("rejoin after leave: %v", err)
	}
}

func TestRegistryRemove(t *testing.T) {
	reg := NewRegistry()
	addPeers(t, reg, "a", "b")
	reg.Join("a", "room", nil)
	reg.Join("b", "room", nil)

	roomID, remaining := reg.Remove("a")
	if roomID != "room" || fmt.Sprint(peerIDs(remaining)) != "[b]" {
		t.Errorf("Remove = %q %v", roomID, peerIDs(remaining))
	}
	if _, ok := reg.Peer("a"); ok {
		t.Error("a should be forgotten")
	}

	roomID, remaining = reg.Remove("never-joined")
	if roomID != "" || remaining != nil {
		t.Errorf("Remove of unknown = %q %v", roomID, remaining)
	}
}

// Two connections joining the same empty room at the same time must still
// see each other: one gets the other in its others list.
func TestRegistryConcurrentJoinSeesEachOther(t *testing.T) {
	for i := 0; i < 200; i++ {
		reg := NewRegistry()
		addPeers(t, reg, "x", "y")

		var wg sync.WaitGroup
		results := make([][]Peer, 2)
		for j, id := range []string{"x", "y"} {
			wg.Add(1)
			go func(j int, id string) {
				defer wg.Done()
				others, err := reg.Join(id, "race", nil)
				if err != nil {
					t.Errorf("join %s: %v", id, err)
				}
				results[j] = others
			}(j, id)
		}
		wg.Wait()

		total := len(results[0]) + len(results[1])
		if total != 1 {
			t.Fatalf("iteration %d: others lengths %d and %d, want exactly one to see the other",
				i, len(results[0]), len(results[1]))
		}
		if len(reg.Members("race")) != 2 {
			t.Fatalf("iteration %d: members = %d, want 2", i, len(reg.Members("race")))
		}
	}
}

// Joining while the last member leaves must never strand the joiner in a
// room that was already dropped from the registry.
func TestRegistryJoinDuringLastLeave(t *testing.T) {
	for i := 0; i < 200; i++ {
		reg := NewRegistry()
		addPeers(t, reg, "old", "new")
		reg.Join("old", "room", nil)

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			reg.Leave("old", "room")
		}()
		go func() {
			defer wg.Done()
			if _, err := reg.Join("new", "room", nil); err != nil {
				t.Errorf("join: %v", err)
			}
		}()
		wg.Wait()

		if got := peerIDs(reg.Members("room")); fmt.Sprint(got) != "[new]" {
			t.Fatalf("iteration %d: members = %v, want [new]", i, got)
		}
	}
}
