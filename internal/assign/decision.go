package assign

import (
	"time"

	"github.com/google/uuid"
	"github.com/lalith-99/sitetrack/internal/models"
	"github.com/lalith-99/sitetrack/internal/store"
)

// DecisionKind names the question the caller has to answer.
type DecisionKind string

const (
	// DecisionConflict: the rep is ACTIVE at another site. Proceeding
	// completes that site first.
	DecisionConflict DecisionKind = "conflict"

	// DecisionReassign: the site already has a different rep. The caller
	// picks correction (erase the old rep's history here) or handover
	// (keep it and try to restore the old rep elsewhere).
	DecisionReassign DecisionKind = "reassign"

	// DecisionRestore: a rep was relieved of a site and their previous
	// site is idle. Proceeding reactivates it for them.
	DecisionRestore DecisionKind = "restore"
)

// Choice is an answer to a Decision.
type Choice string

const (
	ChoiceProceed    Choice = "proceed"
	ChoiceAbort      Choice = "abort"
	ChoiceCorrection Choice = "correction"
	ChoiceHandover   Choice = "handover"
)

// Decision is a pending question. Nothing has been written for the
// operation that produced it, except for DecisionRestore, which is only
// ever asked after the preceding change has been committed.
type Decision struct {
	Token     string       `json:"token"`
	Kind      DecisionKind `json:"kind"`
	Choices   []Choice     `json:"choices"`
	ExpiresAt time.Time    `json:"expires_at"`

	// SiteID is the site the operation targets; RepID is the rep being
	// assigned, or for DecisionRestore the rep being restored. A site that
	// is still waiting to be created has no id yet, only its Title.
	SiteID uuid.UUID `json:"site_id,omitzero"`
	Title  string    `json:"title,omitempty"`
	RepID  uuid.UUID `json:"rep_id"`

	ConflictingSite *models.Site `json:"conflicting_site,omitempty"`
	CurrentRepID    *uuid.UUID   `json:"current_rep_id,omitempty"`
	CandidateSite   *models.Site `json:"candidate_site,omitempty"`
}

func (d *Decision) allows(c Choice) bool {
	for _, allowed := range d.Choices {
		if allowed == c {
			return true
		}
	}
	return false
}

// Mode is how a site with a different rep gets its new one.
type Mode string

const (
	ModeUnset      Mode = ""
	ModeCorrection Mode = "correction"
	ModeHandover   Mode = "handover"
)

// plan is everything needed to commit an assignment once every question
// has been answered.
type plan struct {
	ownerID uuid.UUID

	// create is set when the site doesn't exist yet.
	create *store.SiteInput

	siteID uuid.UUID
	repID  uuid.UUID

	mode             Mode
	conflictResolved bool
}

// pending is what the engine remembers about an open Decision.
type pending struct {
	decision Decision
	ownerID  uuid.UUID
	plan     *plan

	// restore targets, for DecisionRestore.
	restoreSiteID uuid.UUID
	restoreRepID  uuid.UUID
}

// Outcome is what an engine operation did, and what it still needs.
type Outcome struct {
	// Site is the target site after the operation. Nil when the site was
	// deleted or the operation is waiting on a decision.
	Site *models.Site `json:"site,omitempty"`

	// Completed is the site force-completed to resolve a conflict.
	Completed *models.Site `json:"completed,omitempty"`

	// Restored is the previous site reactivated for a relieved rep.
	Restored *models.Site `json:"restored,omitempty"`

	// PreviousRepID is the rep who held the site before the operation.
	PreviousRepID *uuid.UUID `json:"previous_rep_id,omitempty"`

	PrunedLogs int64 `json:"pruned_logs,omitempty"`
	Deleted    bool  `json:"deleted,omitempty"`
	Aborted    bool  `json:"aborted,omitempty"`

	// Pending is set when the caller must Resume with a choice.
	Pending *Decision `json:"pending,omitempty"`
}

// Blocked reports whether nothing was committed because a conflict or
// reassignment question is open.
func (o *Outcome) Blocked() bool {
	return o.Pending != nil && o.Pending.Kind != DecisionRestore
}
