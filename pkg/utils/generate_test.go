package utils

import (
	"regexp"
	"testing"
)

func TestGenerateRoomID(t *testing.T) {
	hex12 := regexp.MustCompile(`^[0-9a-f]{12}$`)
	seen := make(map[string]bool)

	for i := 0; i < 100; i++ {
		id, err := GenerateRoomID()
		if err != nil {
			t.Fatalf("GenerateRoomID: %v", err)
		}
		if !hex12.MatchString(id) {
			t.Fatalf("id %q is not 12 hex chars", id)
		}
		if seen[id] {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = true
	}
}

func TestParseID(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"1", 1, false},
		{"42", 42, false},
		{"0", 0, true},
		{"-3", 0, true},
		{"abc", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		got, err := ParseID(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseID(%q) = %d, %v", tt.in, got, err)
		}
	}
}

func TestParseInt(t *testing.T) {
	if got := ParseInt("", 500); got != 500 {
		t.Errorf("empty = %d", got)
	}
	if got := ParseInt("x", 500); got != 500 {
		t.Errorf("garbage = %d", got)
	}
	if got := ParseInt("0", 500); got != 500 {
		t.Errorf("zero = %d", got)
	}
	if got := ParseInt("20", 500); got != 20 {
		t.Errorf("20 = %d", got)
	}
}
