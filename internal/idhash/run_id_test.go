package idhash

import (
	"testing"
	"time"
)

func TestComputeRunID_Deterministic(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(1, 0, 0)

	a := ComputeRunID("baseline", 42, start, end)
	b := ComputeRunID("baseline", 42, start, end)
	if a != b {
		t.Errorf("same inputs must produce the same run ID: %s vs %s", a, b)
	}
	if a == "" {
		t.Error("run ID must be non-empty")
	}
}

func TestComputeRunID_DistinctInputs(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(1, 0, 0)
	base := ComputeRunID("baseline", 42, start, end)

	variants := []string{
		ComputeRunID("bank-run", 42, start, end),
		ComputeRunID("baseline", 43, start, end),
		ComputeRunID("baseline", 42, start.Add(time.Hour), end),
		ComputeRunID("baseline", 42, start, end.Add(time.Hour)),
	}
	for i, v := range variants {
		if v == base {
			t.Errorf("variant %d collided with the base run ID", i)
		}
	}
}
