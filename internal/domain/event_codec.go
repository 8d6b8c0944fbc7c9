package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// DecodeEventDetails unmarshals a details payload into the concrete type for
// kind. Empty payloads decode as the zero value of the kind's type.
func DecodeEventDetails(kind EventKind, raw []byte) (EventDetails, error) {
	if len(raw) == 0 {
		raw = []byte("{}")
	}

	switch kind {
	case EventMint:
		var d MintDetails
		return d, json.Unmarshal(raw, &d)
	case EventBurn:
		var d BurnDetails
		return d, json.Unmarshal(raw, &d)
	case EventOracleUpdate:
		var d OracleUpdateDetails
		return d, json.Unmarshal(raw, &d)
	case EventOracleFailure:
		var d OracleFailureDetails
		return d, json.Unmarshal(raw, &d)
	case EventPause:
		var d PauseDetails
		return d, json.Unmarshal(raw, &d)
	case EventUnpause:
		var d UnpauseDetails
		return d, json.Unmarshal(raw, &d)
	case EventEpochReset:
		var d EpochResetDetails
		return d, json.Unmarshal(raw, &d)
	case EventBankRun:
		var d BankRunDetails
		return d, json.Unmarshal(raw, &d)
	case EventCrash:
		var d CrashDetails
		return d, json.Unmarshal(raw, &d)
	case EventInvariantCheck:
		var d InvariantCheckDetails
		return d, json.Unmarshal(raw, &d)
	default:
		return nil, fmt.Errorf("unknown event kind %q", kind)
	}
}

type eventEnvelope struct {
	Timestamp  time.Time       `json:"timestamp"`
	Kind       EventKind       `json:"kind"`
	Details    json.RawMessage `json:"details"`
	Invariants InvariantStatus `json:"invariants"`
}

// UnmarshalJSON decodes an event, resolving the details payload to its
// concrete type via the kind tag.
func (e *SimulationEvent) UnmarshalJSON(data []byte) error {
	var env eventEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return err
	}

	details, err := DecodeEventDetails(env.Kind, env.Details)
	if err != nil {
		return err
	}

	e.Timestamp = env.Timestamp
	e.Kind = env.Kind
	e.Details = details
	e.Invariants = env.Invariants
	return nil
}
