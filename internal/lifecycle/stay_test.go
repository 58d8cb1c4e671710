package lifecycle

import (
	"testing"
	"time"
)

func TestDerive(t *testing.T) {
	t.Parallel()

	base := time.Date(2024, 6, 1, 14, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		events []Event
		want   StayState
	}{
		{name: "no events", want: NotArrived},
		{name: "open check-in", events: []Event{{Kind: CheckIn, OccurredAt: base, Seq: 1}}, want: CheckedIn},
		{
			name: "closed stay",
			events: []Event{
				{Kind: CheckIn, OccurredAt: base, Seq: 1},
				{Kind: CheckOut, OccurredAt: base.Add(time.Hour), Seq: 2},
			},
			want: CheckedOut,
		},
		{
			name: "order is by timestamp not slice position",
			events: []Event{
				{Kind: CheckOut, OccurredAt: base.Add(time.Hour), Seq: 2},
				{Kind: CheckIn, OccurredAt: base, Seq: 1},
			},
			want: CheckedOut,
		},
		{
			name: "same timestamp falls back to sequence",
			events: []Event{
				{Kind: CheckOut, OccurredAt: base, Seq: 2},
				{Kind: CheckIn, OccurredAt: base, Seq: 1},
			},
			want: CheckedOut,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := Derive(tc.events); got != tc.want {
				t.Fatalf("Derive() = %s, want %s", got, tc.want)
			}
		})
	}
}

func TestCheckedInSince(t *testing.T) {
	t.Parallel()

	at := time.Date(2024, 6, 1, 14, 0, 0, 0, time.UTC)
	since, ok := CheckedInSince([]Event{{Kind: CheckIn, OccurredAt: at, Seq: 1}})
	if !ok || !since.Equal(at) {
		t.Fatalf("expected open check-in at %v, got %v %v", at, since, ok)
	}
	if _, ok := CheckedInSince([]Event{{Kind: CheckIn, OccurredAt: at, Seq: 1}, {Kind: CheckOut, OccurredAt: at.Add(time.Minute), Seq: 2}}); ok {
		t.Fatalf("closed stay must not report an open check-in")
	}
}

func TestNextOccurredAt(t *testing.T) {
	t.Parallel()

	checkIn := time.Date(2024, time.January, 2, 15, 0, 0, 0, time.UTC)
	log := []Event{{Kind: CheckIn, OccurredAt: checkIn, Seq: 1}}

	if got := NextOccurredAt(nil, checkIn); !got.Equal(checkIn) {
		t.Fatalf("expected empty log to keep %s, got %s", checkIn, got)
	}
	if got := NextOccurredAt(log, checkIn.Add(-time.Second)); !got.Equal(checkIn) {
		t.Fatalf("expected lagging time to be raised to %s, got %s", checkIn, got)
	}
	later := checkIn.Add(time.Hour)
	if got := NextOccurredAt(log, later); !got.Equal(later) {
		t.Fatalf("expected later time to be kept, got %s", got)
	}

	closed := append(log, Event{Kind: CheckOut, OccurredAt: NextOccurredAt(log, checkIn.Add(-time.Second)), Seq: 2})
	if Derive(closed) != CheckedOut {
		t.Fatalf("expected raised check-out to close the stay")
	}
}
