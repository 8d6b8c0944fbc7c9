package idhash

import (
	"crypto/sha256"
	"fmt"
	"time"

	"github.com/mr-tron/base58"
)

// ComputeRunID computes a deterministic run_id using SHA256.
// Formula: SHA256(scenario_id|seed|start_unix|end_unix)
// Returns the base58 encoding of the first 16 hash bytes, short enough for
// file names and log lines while still collision-safe per suite.
func ComputeRunID(
	scenarioID string,
	seed int64,
	start time.Time,
	end time.Time,
) string {
	data := fmt.Sprintf("%s|%d|%d|%d",
		scenarioID,
		seed,
		start.Unix(),
		end.Unix(),
	)

	hash := sha256.Sum256([]byte(data))
	return base58.Encode(hash[:16])
}
