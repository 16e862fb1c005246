// Package audit emits structured events for every state change on the
// validation bus. Events flow through an in-process channel to a sink; the
// kafka sink is the production path, the log sink the local default.
package audit

import (
	"time"

	"github.com/google/uuid"
)

// Actions emitted by the validation service.
const (
	ActionValidationRecorded = "validation_recorded"
	ActionRecordSoftDeleted  = "record_soft_deleted"
	ActionRecordRestored     = "record_restored"
	ActionGoldenElected      = "golden_elected"
	ActionElectionFailed     = "election_failed"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so sinks can fan out.
type Event struct {
	Timestamp      time.Time  `json:"timestamp"`
	Action         string     `json:"action"`
	App            string     `json:"app"`
	RecordID       *uuid.UUID `json:"record_id,omitempty"`
	ValidationType string     `json:"validation_type,omitempty"`
	GroupKey       string     `json:"group_key,omitempty"`
	Decision       string     `json:"decision,omitempty"`
	Reason         string     `json:"reason,omitempty"`
	RequestID      string     `json:"request_id,omitempty"`
}
