package domain

import "encoding/json"

type EscalationStatus string

const (
	EscalationTeacherNotFound EscalationStatus = "teacher_not_found"
	EscalationConfigMissing   EscalationStatus = "config_missing"
	EscalationCountUpdate     EscalationStatus = "count_update"
	EscalationSent            EscalationStatus = "sent"
	EscalationFailed          EscalationStatus = "failed"
	EscalationNoChange        EscalationStatus = "no_change"
)

// EscalationTypeMentorEmail is the only kind of escalation there is today.
const EscalationTypeMentorEmail = "mentor_email"

// EscalationEvent is the outcome of one escalation evaluation. It is not
// persisted, only reported back to the caller.
type EscalationEvent struct {
	Triggered bool
	Type      string
	Status    EscalationStatus

	// NegativeCount is the counter seen by an evaluation that did not fire.
	NegativeCount int

	// Set only when Triggered.
	CountBefore int
	CountAfter  int
	Error       string
}

// MarshalJSON renders the event with only the fields that make sense for
// its status.
func (e EscalationEvent) MarshalJSON() ([]byte, error) {
	out := map[string]any{"triggered": e.Triggered}

	switch {
	case e.Triggered:
		out["type"] = e.Type
		out["status"] = e.Status
		out["negative_count_before"] = e.CountBefore
		out["negative_count_after"] = e.CountAfter
		if e.Error != "" {
			out["error"] = e.Error
		} else {
			out["error"] = nil
		}
	case e.Status == EscalationConfigMissing || e.Status == EscalationCountUpdate:
		out["status"] = e.Status
		out["negative_count"] = e.NegativeCount
	case e.Status != "":
		out["status"] = e.Status
	}

	return json.Marshal(out)
}
