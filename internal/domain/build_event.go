package domain

// Outcome classifies how a request ended.
type Outcome string

const (
	OutcomeOK       Outcome = "ok"
	OutcomeRejected Outcome = "rejected" // client error, e.g. invalid input or supply cap
	OutcomeError    Outcome = "error"
)

// BuildEvent is one handled API request.
// Corresponds to build_events table in ClickHouse.
type BuildEvent struct {
	EventID          string
	Route            string
	Outcome          Outcome
	DurationMs       int64
	InstructionCount int
	TimestampMs      int64
}
