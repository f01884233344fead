package documentdomain

import (
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestNormalizeAndDecodeRoundTrip(t *testing.T) {
	type entry struct {
		RID    primitive.ObjectID `json:"rid"`
		PID    int64              `json:"pid"`
		Accept bool               `json:"accept"`
	}
	type payload struct {
		BeginAt time.Time `json:"beginAt"`
		PIDs    []int64   `json:"pids"`
		Journal []entry   `json:"journal"`
	}

	rid := primitive.NewObjectID()
	begin := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	f, err := Normalize(map[string]any{
		"beginAt": begin,
		"pids":    []int64{1000, 1001},
		"journal": []any{map[string]any{"rid": rid, "pid": 1000, "accept": true}},
	})
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if got := f.String("beginAt"); got != "2026-03-01T08:00:00Z" {
		t.Errorf("beginAt stored as %q", got)
	}

	var p payload
	if err := f.Decode(&p); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !p.BeginAt.Equal(begin) || len(p.PIDs) != 2 || p.Journal[0].RID != rid || !p.Journal[0].Accept {
		t.Errorf("decoded payload mismatch: %+v", p)
	}
}

func TestNormalizeNilIsEmpty(t *testing.T) {
	var nilFields Fields
	f, err := Normalize(nilFields)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if f == nil || len(f) != 0 {
		t.Errorf("expected empty non-nil fields, got %#v", f)
	}
}

func TestCompare(t *testing.T) {
	tests := []struct {
		a, b any
		want int
	}{
		{1.0, 2.0, -1},
		{2.0, 2.0, 0},
		{"b", "a", 1},
		{false, true, -1},
		{nil, 1.0, 1},
		{1.0, nil, -1},
		{nil, nil, 0},
	}
	for _, tt := range tests {
		if got := Compare(tt.a, tt.b); got != tt.want {
			t.Errorf("Compare(%v, %v) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestDocID(t *testing.T) {
	if n, err := NumericDocID(1001).Int64(); err != nil || n != 1001 {
		t.Errorf("NumericDocID round trip = %d, %v", n, err)
	}
	if _, err := NewDocID().Int64(); err == nil {
		t.Errorf("generated ids are not numeric")
	}
	if TypeHomework.String() != "homework" || DocType(99).String() != "doctype(99)" {
		t.Errorf("unexpected DocType names")
	}
}
