package model

import (
	"testing"
	"time"
)

func TestParseInstant(t *testing.T) {
	tests := []struct {
		input string
		ok    bool
	}{
		{"2026-03-14T09:00:00Z", true},
		{"2026-03-14T09:00:00.123456789Z", true},
		{"2026-03-14T09:00:00+05:30", true},
		{"2026-03-14T09:00:00", true},
		{"2026-03-14 09:00:00", true},
		{"", false},
		{"yesterday", false},
		{"2026-03-14", false},
	}

	for _, tt := range tests {
		_, ok := ParseInstant(tt.input)
		if ok != tt.ok {
			t.Errorf("ParseInstant(%q) ok = %v, want %v", tt.input, ok, tt.ok)
		}
	}
}

func TestParseInstant_Value(t *testing.T) {
	got, ok := ParseInstant("2026-03-14T09:00:00Z")
	if !ok {
		t.Fatal("expected parse to succeed")
	}
	want := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("ParseInstant = %v, want %v", got, want)
	}
}

func TestRoutePoint_ParseTime(t *testing.T) {
	p := RoutePoint{Time: "2026-03-14 09:00:00"}
	if _, ok := p.ParseTime(); !ok {
		t.Error("expected space-separated layout to parse")
	}

	p = RoutePoint{Time: "junk"}
	if _, ok := p.ParseTime(); ok {
		t.Error("expected junk timestamp to fail")
	}
}
