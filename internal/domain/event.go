package domain

import "time"

// EventKind tags a SimulationEvent.
type EventKind string

// Event kinds.
const (
	EventMint           EventKind = "mint"
	EventBurn           EventKind = "burn"
	EventOracleUpdate   EventKind = "oracle-update"
	EventOracleFailure  EventKind = "oracle-failure"
	EventPause          EventKind = "pause"
	EventUnpause        EventKind = "unpause"
	EventEpochReset     EventKind = "epoch-reset"
	EventBankRun        EventKind = "bank-run"
	EventCrash          EventKind = "crash"
	EventInvariantCheck EventKind = "invariant-check"
)

// EventDetails is the kind-specific payload of a SimulationEvent. Each kind
// carries its own concrete type; there is no open details dictionary.
type EventDetails interface {
	Kind() EventKind
}

// MintDetails is the payload of a mint event.
type MintDetails struct {
	Amount       float64 `json:"amount"`
	BackingRatio float64 `json:"backingRatio"`
}

func (MintDetails) Kind() EventKind { return EventMint }

// BurnDetails is the payload of a burn event. Rate is the redemption rate
// applied this tick as a fraction of supply.
type BurnDetails struct {
	Amount       float64 `json:"amount"`
	Rate         float64 `json:"rate"`
	BackingRatio float64 `json:"backingRatio"`
}

func (BurnDetails) Kind() EventKind { return EventBurn }

// OracleUpdateDetails is the payload of an oracle-update event.
type OracleUpdateDetails struct {
	Backing      float64 `json:"backing"`
	BackingRatio float64 `json:"backingRatio"`
	Price        float64 `json:"price"`
}

func (OracleUpdateDetails) Kind() EventKind { return EventOracleUpdate }

// OracleFailureDetails is the payload of an oracle-failure event.
type OracleFailureDetails struct{}

func (OracleFailureDetails) Kind() EventKind { return EventOracleFailure }

// PauseDetails is the payload of a pause event.
type PauseDetails struct {
	Level  int    `json:"level"`
	Reason string `json:"reason"`
}

func (PauseDetails) Kind() EventKind { return EventPause }

// UnpauseDetails is the payload of an unpause event.
type UnpauseDetails struct{}

func (UnpauseDetails) Kind() EventKind { return EventUnpause }

// EpochResetDetails is the payload of an epoch-reset event.
type EpochResetDetails struct {
	Epoch int `json:"epoch"`
}

func (EpochResetDetails) Kind() EventKind { return EventEpochReset }

// BankRunDetails is the payload of a bank-run event. RedemptionRate is the
// surge rate in percent of supply per tick.
type BankRunDetails struct {
	RedemptionRate float64 `json:"redemptionRate"`
}

func (BankRunDetails) Kind() EventKind { return EventBankRun }

// CrashDetails is the payload of a crash event.
type CrashDetails struct {
	Magnitude float64 `json:"magnitude"` // % price drop applied
	Price     float64 `json:"price"`     // price after the shock
}

func (CrashDetails) Kind() EventKind { return EventCrash }

// InvariantCheckDetails is the payload of an invariant-check event.
type InvariantCheckDetails struct {
	Status InvariantStatus `json:"status"`
}

func (InvariantCheckDetails) Kind() EventKind { return EventInvariantCheck }

// SimulationEvent is one append-only log entry: a tagged payload plus a
// snapshot of invariant status at the instant of emission. Never mutated
// after creation.
type SimulationEvent struct {
	Timestamp  time.Time       `json:"timestamp"`
	Kind       EventKind       `json:"kind"`
	Details    EventDetails    `json:"details"`
	Invariants InvariantStatus `json:"invariants"`
}

// NewEvent builds an event; the kind tag is derived from the payload type.
func NewEvent(ts time.Time, details EventDetails, inv InvariantStatus) SimulationEvent {
	return SimulationEvent{
		Timestamp:  ts,
		Kind:       details.Kind(),
		Details:    details,
		Invariants: inv,
	}
}
