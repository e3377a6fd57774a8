// Package model defines the data structures for disputebot's configuration,
// shared state documents, and invoice classification.
package model

// RunState is the single control document shared between the worker and the
// controller. The controller owns Command, the worker owns Status; both read
// freely, writes are last-write-wins.
type RunState struct {
	Command Command   `yaml:"command"`
	Status  RunStatus `yaml:"status"`
	RunID   string    `yaml:"run_id,omitempty"`
	Started string    `yaml:"started,omitempty"`
	Updated string    `yaml:"updated,omitempty"`
}

// DefaultRunState is the value readers substitute for a missing or corrupt
// run document.
func DefaultRunState() RunState {
	return RunState{Command: CommandIdle, Status: StatusIdle}
}

// LogEvent is one structured entry of the session log, rendered by the
// dashboard.
type LogEvent struct {
	ID          string         `yaml:"id" json:"id"`
	Timestamp   string         `yaml:"timestamp" json:"timestamp"`
	Title       string         `yaml:"title" json:"title"`
	Description string         `yaml:"description" json:"description"`
	Status      string         `yaml:"status" json:"status"`
	Tags        []string       `yaml:"tags,omitempty" json:"tags,omitempty"`
	Data        map[string]any `yaml:"data,omitempty" json:"data,omitempty"`
}

// Stats are session-scoped counters, reset at run start.
type Stats struct {
	Disputed          int `yaml:"disputed" json:"disputed"`
	Skipped           int `yaml:"skipped" json:"skipped"`
	Errors            int `yaml:"errors" json:"errors"`
	InvoicesProcessed int `yaml:"invoices_processed" json:"invoices_processed"`
	TotalInvoices     int `yaml:"total_invoices" json:"total_invoices"`

	// Mirrors of the persistent counters so the dashboard reads one document.
	TotalAllTime int `yaml:"total_all_time" json:"total_all_time"`
	TotalMonth   int `yaml:"total_month" json:"total_month"`
}

// Session is the combined log/stats/invoices document. A new run overwrites
// it wholesale.
type Session struct {
	Logs     []LogEvent `yaml:"logs"`
	Stats    Stats      `yaml:"stats"`
	Invoices []Invoice  `yaml:"invoices"`
}

func DefaultSession() Session {
	return Session{Logs: []LogEvent{}, Invoices: []Invoice{}}
}

// PersistentStats survive across runs.
type PersistentStats struct {
	TotalDisputes   int            `yaml:"total_disputes"`
	MonthlyDisputes map[string]int `yaml:"monthly_disputes"`
}

func DefaultPersistentStats() PersistentStats {
	return PersistentStats{MonthlyDisputes: map[string]int{}}
}

// DisputeResult classifies the outcome of one shipment-line attempt.
type DisputeResult string

const (
	ResultDisputed DisputeResult = "disputed"
	ResultSkipped  DisputeResult = "skipped"
	ResultFailed   DisputeResult = "failed"
)

// DisputeOutcome records one shipment line processed during an invoice pass.
type DisputeOutcome struct {
	TrackingID string
	Result     DisputeResult
	Reason     string
	Amount     string
}

// ShipmentLine is one row of an invoice's shipment table. Ephemeral; not
// persisted beyond the current invoice's pass.
type ShipmentLine struct {
	TrackingID string
	RawText    string
	Amount     string
	Row        int // 1-based position in the displayed table
}

// ClickRequest is one dashboard click forwarded to the worker's browser
// session during the interactive login phase.
type ClickRequest struct {
	X         int    `json:"x"`
	Y         int    `json:"y"`
	Timestamp string `json:"timestamp,omitempty"`
}

// DisputeReason classifies an entry of the dispute-activity ledger.
type DisputeReason string

const (
	ReasonDutyTax DisputeReason = "duty_tax"
	ReasonOther   DisputeReason = "other"
)

// DisputeActivityEntry is one ledger row of previously filed disputes.
type DisputeActivityEntry struct {
	TrackingID string
	Reason     DisputeReason
}
