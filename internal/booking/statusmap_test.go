package booking

import "testing"

func TestCanTransition(t *testing.T) {
	allowed := [][2]string{
		{StatusPending, StatusConfirmed},
		{StatusPending, StatusCancelled},
		{StatusConfirmed, StatusCheckedIn},
		{StatusConfirmed, StatusCancelled},
		{StatusCheckedIn, StatusCompleted},
		{StatusCheckedIn, StatusCancelled},
	}
	for _, edge := range allowed {
		if !CanTransition(edge[0], edge[1]) {
			t.Fatalf("expected %s -> %s to be allowed", edge[0], edge[1])
		}
	}

	denied := [][2]string{
		{StatusPending, StatusCheckedIn},
		{StatusPending, StatusCompleted},
		{StatusConfirmed, StatusCompleted},
		{StatusCompleted, StatusConfirmed},
		{StatusCancelled, StatusPending},
		{StatusCompleted, StatusCancelled},
	}
	for _, edge := range denied {
		if CanTransition(edge[0], edge[1]) {
			t.Fatalf("expected %s -> %s to be rejected", edge[0], edge[1])
		}
	}
}

func TestValidStatus(t *testing.T) {
	for _, s := range []string{StatusPending, StatusConfirmed, StatusCheckedIn, StatusCompleted, StatusCancelled} {
		if !ValidStatus(s) {
			t.Fatalf("expected %s to be valid", s)
		}
	}
	for _, s := range []string{"", "pending", "ARCHIVED", "NEW"} {
		if ValidStatus(s) {
			t.Fatalf("expected %q to be invalid", s)
		}
	}
}

func TestIsTerminal(t *testing.T) {
	if !IsTerminal(StatusCompleted) || !IsTerminal(StatusCancelled) {
		t.Fatal("COMPLETED and CANCELLED must be terminal")
	}
	if IsTerminal(StatusPending) || IsTerminal(StatusConfirmed) || IsTerminal(StatusCheckedIn) {
		t.Fatal("live statuses must not be terminal")
	}
	if IsTerminal("ARCHIVED") {
		t.Fatal("unknown statuses are not terminal")
	}
}
