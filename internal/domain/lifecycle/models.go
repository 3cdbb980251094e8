package lifecycle

import "time"

// Phase is the auction's global lifecycle state
type Phase string

const (
	PhaseActive Phase = "active"
	PhasePaused Phase = "paused"
	PhaseEnded  Phase = "ended"
)

// State is the process-wide auction singleton. The countdown deadline is
// advisory display state for the bidder UI; reaching it does not end the
// auction by itself.
type State struct {
	Phase     Phase      `db:"phase"`
	Deadline  *time.Time `db:"deadline"`
	EndedAt   *time.Time `db:"ended_at"`
	UpdatedAt time.Time  `db:"updated_at"`
}
