package model

import "testing"

func TestReservationStatusTransitions(t *testing.T) {
	cases := []struct {
		from  ReservationStatus
		to    ReservationStatus
		valid bool
	}{
		{StatusPending, StatusConfirmed, true},
		{StatusPending, StatusCancelled, true},
		{StatusPending, StatusExpired, true},
		{StatusPending, StatusInUse, false},
		{StatusPending, StatusNoShow, false},
		{StatusConfirmed, StatusInUse, true},
		{StatusConfirmed, StatusCancelled, true},
		{StatusConfirmed, StatusNoShow, true},
		{StatusConfirmed, StatusExpired, false},
		{StatusInUse, StatusCompleted, true},
		{StatusInUse, StatusCancelled, false},
		{StatusCompleted, StatusInUse, false},
		{StatusCancelled, StatusPending, false},
		{StatusExpired, StatusConfirmed, false},
		{StatusNoShow, StatusConfirmed, false},
	}

	for _, tt := range cases {
		if got := tt.from.CanTransitionTo(tt.to); got != tt.valid {
			t.Fatalf("CanTransitionTo(%q -> %q)=%v, want %v", tt.from, tt.to, got, tt.valid)
		}
	}
}

func TestReservationStatusTerminal(t *testing.T) {
	terminal := []ReservationStatus{StatusCompleted, StatusCancelled, StatusExpired, StatusNoShow}
	for _, s := range terminal {
		if !s.Terminal() {
			t.Fatalf("expected %q to be terminal", s)
		}
		if len(reservationTransitions[s]) != 0 {
			t.Fatalf("terminal status %q has outgoing transitions", s)
		}
	}
	for _, s := range []ReservationStatus{StatusPending, StatusConfirmed, StatusInUse} {
		if s.Terminal() {
			t.Fatalf("did not expect %q to be terminal", s)
		}
	}
}

func TestPaymentStatusTransitions(t *testing.T) {
	cases := []struct {
		from  PaymentStatus
		to    PaymentStatus
		valid bool
	}{
		{PaymentPending, PaymentPaid, true},
		{PaymentPending, PaymentExpired, true},
		{PaymentPaid, PaymentPending, false},
		{PaymentPaid, PaymentExpired, false},
		{PaymentExpired, PaymentPaid, false},
	}
	for _, tt := range cases {
		if got := tt.from.CanTransitionTo(tt.to); got != tt.valid {
			t.Fatalf("CanTransitionTo(%q -> %q)=%v, want %v", tt.from, tt.to, got, tt.valid)
		}
	}
}

func TestUsageStatusTransitions(t *testing.T) {
	cases := []struct {
		from  UsageStatus
		to    UsageStatus
		valid bool
	}{
		{UsageReady, UsageActive, true},
		{UsageReady, UsageCompleted, true}, // defensive auto-start path
		{UsageReady, UsageVerified, false},
		{UsageActive, UsageCompleted, true},
		{UsageActive, UsageVerified, false},
		{UsageCompleted, UsageVerified, true},
		{UsageCompleted, UsageActive, false},
		{UsageVerified, UsageReady, false},
	}
	for _, tt := range cases {
		if got := tt.from.CanTransitionTo(tt.to); got != tt.valid {
			t.Fatalf("CanTransitionTo(%q -> %q)=%v, want %v", tt.from, tt.to, got, tt.valid)
		}
	}
}

func TestActionFor(t *testing.T) {
	pairs := map[UsageStatus]UsageAction{
		UsageReady:     UsageActionConfirmed,
		UsageActive:    UsageActionStarted,
		UsageCompleted: UsageActionCompleted,
		UsageVerified:  UsageActionVerified,
	}
	for status, want := range pairs {
		if got := ActionFor(status); got != want {
			t.Fatalf("ActionFor(%q)=%q, want %q", status, got, want)
		}
	}
}
