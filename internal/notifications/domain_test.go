package notifications

import (
	"strconv"
	"testing"
)

func TestBadgeLabelOverflow(t *testing.T) {
	cases := []struct {
		count int
		want  string
	}{
		{0, "0"},
		{1, "1"},
		{42, "42"},
		{99, "99"},
		{100, "99+"},
		{101, "99+"},
		{1000, "99+"},
	}
	for _, tc := range cases {
		if got := BadgeLabel(tc.count); got != tc.want {
			t.Fatalf("BadgeLabel(%d) = %q, want %q", tc.count, got, tc.want)
		}
	}
}

func TestBadgeLabelExactBelowThreshold(t *testing.T) {
	for v := 0; v <= 99; v++ {
		if got := BadgeLabel(v); got != strconv.Itoa(v) {
			t.Fatalf("BadgeLabel(%d) = %q, want exact integer", v, got)
		}
	}
}

func TestOverviewDerivesFromSameCount(t *testing.T) {
	ov := NewOverview(0)
	if ov.HasUnread || ov.Badge != "0" {
		t.Fatalf("empty overview wrong: %+v", ov)
	}

	ov = NewOverview(100)
	if !ov.HasUnread {
		t.Fatalf("expected HasUnread for count 100")
	}
	if ov.Badge != "99+" {
		t.Fatalf("Badge = %q, want 99+", ov.Badge)
	}
	if ov.UnreadCount != 100 {
		t.Fatalf("UnreadCount must stay exact, got %d", ov.UnreadCount)
	}
}
