// Package assign is the assignment state machine: how a site moves between
// NEW, ACTIVE and COMPLETE as reps are linked to it, and the two decision
// points that sit in front of some of those moves.
//
// Decisions are a two-phase protocol. An operation that needs an answer
// returns an Outcome carrying a pending Decision and writes nothing; the
// caller comes back through Resume with a Choice.
package assign

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lalith-99/sitetrack/internal/crmerr"
	"github.com/lalith-99/sitetrack/internal/models"
	"github.com/lalith-99/sitetrack/internal/observ"
	"github.com/lalith-99/sitetrack/internal/store"
	"go.uber.org/zap"
)

// Store is the slice of store.Store the engine drives.
type Store interface {
	OwnerID() uuid.UUID
	Site(id uuid.UUID) (*models.Site, bool)
	Representative(id uuid.UUID) (*models.Representative, bool)
	ActiveSiteForRepresentative(repID uuid.UUID) *models.Site
	LogsForRepresentative(repID uuid.UUID) []models.ActivityLog

	CheckSite(in store.SiteInput) error
	AddSite(ctx context.Context, in store.SiteInput) (*models.Site, error)
	DeleteSite(ctx context.Context, id uuid.UUID) (bool, error)
	AssignRepresentative(ctx context.Context, siteID, repID uuid.UUID) (*models.Site, error)
	UnassignRepresentative(ctx context.Context, siteID uuid.UUID) (*store.UnassignResult, error)
	CompleteSite(ctx context.Context, siteID uuid.UUID) (*models.Site, error)
	DeleteLogsByRepAndSite(ctx context.Context, repID, siteID uuid.UUID) (int64, error)
}

type Options struct {
	// DecisionTTL bounds how long an open decision can be resumed.
	DecisionTTL time.Duration

	// AutoRestore commits previous-site restoration without asking.
	AutoRestore bool

	Now func() time.Time
}

type Engine struct {
	logger  *zap.Logger
	metrics *observ.Metrics
	opts    Options

	mu      sync.Mutex
	pending map[string]*pending
}

func NewEngine(logger *zap.Logger, metrics *observ.Metrics, opts Options) *Engine {
	if opts.DecisionTTL <= 0 {
		opts.DecisionTTL = 10 * time.Minute
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Engine{
		logger:  logger,
		metrics: metrics,
		opts:    opts,
		pending: make(map[string]*pending),
	}
}

// CreateSite creates a site, optionally with a rep. A rep that is ACTIVE
// elsewhere raises DecisionConflict before anything is written.
func (e *Engine) CreateSite(ctx context.Context, st Store, in store.SiteInput) (*Outcome, error) {
	if in.AssignedRepID == nil {
		site, err := st.AddSite(ctx, in)
		if err != nil {
			return nil, err
		}
		e.metrics.Transition("", models.StatusNew)
		return &Outcome{Site: site}, nil
	}
	if err := st.CheckSite(in); err != nil {
		return nil, err
	}
	input := in
	return e.run(ctx, st, &plan{
		ownerID: st.OwnerID(),
		create:  &input,
		repID:   *in.AssignedRepID,
	})
}

// Assign links repID to siteID. Depending on the current state it may
// first ask DecisionReassign (site held by someone else) and/or
// DecisionConflict (rep busy elsewhere). Assigning the rep the site
// already has is a no-op.
func (e *Engine) Assign(ctx context.Context, st Store, siteID, repID uuid.UUID) (*Outcome, error) {
	return e.start(ctx, st, siteID, repID, ModeUnset)
}

// Correct reassigns the site to newRepID treating the old link as a data
// entry mistake: the old rep's logs for this site are deleted.
func (e *Engine) Correct(ctx context.Context, st Store, siteID, newRepID uuid.UUID) (*Outcome, error) {
	return e.start(ctx, st, siteID, newRepID, ModeCorrection)
}

// Handover reassigns the site to newRepID as a real transfer: history is
// kept and the old rep may be offered their previous site back.
func (e *Engine) Handover(ctx context.Context, st Store, siteID, newRepID uuid.UUID) (*Outcome, error) {
	return e.start(ctx, st, siteID, newRepID, ModeHandover)
}

func (e *Engine) start(ctx context.Context, st Store, siteID, repID uuid.UUID, mode Mode) (*Outcome, error) {
	site, ok := st.Site(siteID)
	if !ok {
		return nil, crmerr.NotFound("site", siteID)
	}
	if _, ok := st.Representative(repID); !ok {
		return nil, crmerr.NotFound("representative", repID)
	}
	if site.AssignedTo(repID) {
		return &Outcome{Site: site}, nil
	}
	return e.run(ctx, st, &plan{
		ownerID: st.OwnerID(),
		siteID:  siteID,
		repID:   repID,
		mode:    mode,
	})
}

// run asks the next open question of p, or commits it if there is none.
func (e *Engine) run(ctx context.Context, st Store, p *plan) (*Outcome, error) {
	var current *models.Site
	if p.create == nil {
		site, ok := st.Site(p.siteID)
		if !ok {
			return nil, crmerr.NotFound("site", p.siteID)
		}
		current = site
	}

	var prevRep *uuid.UUID
	if current != nil && current.Status == models.StatusActive && current.AssignedRepID != nil && *current.AssignedRepID != p.repID {
		id := *current.AssignedRepID
		prevRep = &id
	}

	if prevRep != nil && p.mode == ModeUnset {
		d := Decision{
			Kind:         DecisionReassign,
			Choices:      []Choice{ChoiceCorrection, ChoiceHandover, ChoiceAbort},
			SiteID:       p.siteID,
			RepID:        p.repID,
			CurrentRepID: prevRep,
		}
		return &Outcome{Pending: e.park(&pending{decision: d, ownerID: p.ownerID, plan: p})}, nil
	}

	busy := st.ActiveSiteForRepresentative(p.repID)
	if busy != nil && (p.create != nil || busy.ID != p.siteID) && !p.conflictResolved {
		e.metrics.Conflict()
		d := Decision{
			Kind:            DecisionConflict,
			Choices:         []Choice{ChoiceProceed, ChoiceAbort},
			SiteID:          p.siteID,
			RepID:           p.repID,
			ConflictingSite: busy,
		}
		if p.create != nil {
			d.Title = p.create.Title
		}
		return &Outcome{Pending: e.park(&pending{decision: d, ownerID: p.ownerID, plan: p})}, nil
	}

	return e.commit(ctx, st, p, current, prevRep, busy)
}

func (e *Engine) commit(ctx context.Context, st Store, p *plan, current *models.Site, prevRep *uuid.UUID, busy *models.Site) (*Outcome, error) {
	out := &Outcome{PreviousRepID: prevRep}

	if p.create != nil {
		// The title may have been taken while the decision was open.
		if err := st.CheckSite(*p.create); err != nil {
			return nil, err
		}
	}

	if busy != nil && (p.create != nil || busy.ID != p.siteID) {
		completed, err := st.CompleteSite(ctx, busy.ID)
		if err != nil {
			return nil, err
		}
		out.Completed = completed
		e.metrics.Transition(models.StatusActive, models.StatusComplete)
		e.logger.Info("conflicting site completed",
			zap.String("site_id", busy.ID.String()),
			zap.String("rep_id", p.repID.String()),
		)
	}

	if p.create != nil {
		site, err := st.AddSite(ctx, *p.create)
		if err != nil {
			return nil, err
		}
		e.metrics.Transition("", site.Status)
		out.Site = site
		return out, nil
	}

	if prevRep != nil {
		if _, err := st.UnassignRepresentative(ctx, p.siteID); err != nil {
			return nil, err
		}
	}

	site, err := st.AssignRepresentative(ctx, p.siteID, p.repID)
	if err != nil {
		return nil, err
	}
	out.Site = site
	e.metrics.Transition(current.Status, models.StatusActive)

	// The old rep's history goes only once the new rep holds the site, so
	// a failed assign never leaves an erased site behind.
	if prevRep != nil && p.mode == ModeCorrection {
		n, err := st.DeleteLogsByRepAndSite(ctx, *prevRep, p.siteID)
		if err != nil {
			return out, err
		}
		out.PrunedLogs = n
		e.logger.Info("reassignment corrected",
			zap.String("site_id", p.siteID.String()),
			zap.String("old_rep_id", prevRep.String()),
			zap.Int64("pruned_logs", n),
		)
	}

	if prevRep != nil && p.mode == ModeHandover {
		e.logger.Info("site handed over",
			zap.String("site_id", p.siteID.String()),
			zap.String("old_rep_id", prevRep.String()),
			zap.String("new_rep_id", p.repID.String()),
		)
		if err := e.restore(ctx, st, *prevRep, p.siteID, out); err != nil {
			return out, err
		}
	}
	return out, nil
}

// Unassign puts an ACTIVE site back to NEW. No log, no restoration.
func (e *Engine) Unassign(ctx context.Context, st Store, siteID uuid.UUID) (*Outcome, error) {
	res, err := st.UnassignRepresentative(ctx, siteID)
	if err != nil {
		return nil, err
	}
	if res.PreviousRepID != nil {
		e.metrics.Transition(models.StatusActive, models.StatusNew)
	}
	return &Outcome{Site: res.Site, PreviousRepID: res.PreviousRepID}, nil
}

// Complete marks the site COMPLETE, clearing any rep. No new log.
func (e *Engine) Complete(ctx context.Context, st Store, siteID uuid.UUID) (*Outcome, error) {
	before, ok := st.Site(siteID)
	if !ok {
		return nil, crmerr.NotFound("site", siteID)
	}
	site, err := st.CompleteSite(ctx, siteID)
	if err != nil {
		return nil, err
	}
	e.metrics.Transition(before.Status, models.StatusComplete)
	return &Outcome{Site: site, PreviousRepID: before.AssignedRepID}, nil
}

// DeleteSite removes the site. If it was ACTIVE, its rep may be offered
// their previous site back.
func (e *Engine) DeleteSite(ctx context.Context, st Store, siteID uuid.UUID) (*Outcome, error) {
	before, ok := st.Site(siteID)
	if !ok {
		return &Outcome{}, nil
	}
	deleted, err := st.DeleteSite(ctx, siteID)
	if err != nil {
		return nil, err
	}
	out := &Outcome{Deleted: deleted, PreviousRepID: before.AssignedRepID}
	if before.Status == models.StatusActive && before.AssignedRepID != nil {
		if err := e.restore(ctx, st, *before.AssignedRepID, siteID, out); err != nil {
			return out, err
		}
	}
	return out, nil
}

// RestoreCandidate finds the site repID should fall back to after leaving
// vacated: the site of their most recent log that isn't vacated, provided
// it still exists and is not ACTIVE. Returns nil when there is none, or
// when the rep is already ACTIVE somewhere.
func RestoreCandidate(st Store, repID, vacated uuid.UUID) *models.Site {
	if st.ActiveSiteForRepresentative(repID) != nil {
		return nil
	}
	logs := st.LogsForRepresentative(repID)
	for i := len(logs) - 1; i >= 0; i-- {
		if logs[i].SiteID == vacated {
			continue
		}
		site, ok := st.Site(logs[i].SiteID)
		if !ok || site.Status == models.StatusActive {
			return nil
		}
		return site
	}
	return nil
}

func (e *Engine) restore(ctx context.Context, st Store, repID, vacated uuid.UUID, out *Outcome) error {
	candidate := RestoreCandidate(st, repID, vacated)
	if candidate == nil {
		return nil
	}

	if e.opts.AutoRestore {
		site, err := e.commitRestore(ctx, st, candidate.ID, repID)
		if err != nil {
			return err
		}
		out.Restored = site
		return nil
	}

	d := Decision{
		Kind:          DecisionRestore,
		Choices:       []Choice{ChoiceProceed, ChoiceAbort},
		SiteID:        candidate.ID,
		RepID:         repID,
		CandidateSite: candidate,
	}
	out.Pending = e.park(&pending{
		decision:      d,
		ownerID:       st.OwnerID(),
		restoreSiteID: candidate.ID,
		restoreRepID:  repID,
	})
	return nil
}

func (e *Engine) commitRestore(ctx context.Context, st Store, siteID, repID uuid.UUID) (*models.Site, error) {
	site, ok := st.Site(siteID)
	if !ok {
		return nil, crmerr.NotFound("site", siteID)
	}
	if site.Status == models.StatusActive {
		return nil, crmerr.Conflict("site %s was reactivated in the meantime", siteID)
	}
	if busy := st.ActiveSiteForRepresentative(repID); busy != nil {
		return nil, crmerr.Conflict("representative %s is already active at %s", repID, busy.Title)
	}
	before := site.Status
	restored, err := st.AssignRepresentative(ctx, siteID, repID)
	if err != nil {
		return nil, err
	}
	e.metrics.Transition(before, models.StatusActive)
	e.metrics.Restoration()
	e.logger.Info("previous site restored",
		zap.String("site_id", siteID.String()),
		zap.String("rep_id", repID.String()),
	)
	return restored, nil
}

// Resume answers an open decision. The token is single use.
func (e *Engine) Resume(ctx context.Context, st Store, token string, choice Choice) (*Outcome, error) {
	p, err := e.take(st.OwnerID(), token)
	if err != nil {
		return nil, err
	}
	if !p.decision.allows(choice) {
		// Put it back so a typo doesn't lose the question.
		e.mu.Lock()
		e.pending[token] = p
		e.mu.Unlock()
		return nil, crmerr.Validation("choice %q not allowed for %s decision", choice, p.decision.Kind)
	}
	e.metrics.Decision(string(p.decision.Kind), string(choice))

	if choice == ChoiceAbort {
		return &Outcome{Aborted: true}, nil
	}

	switch p.decision.Kind {
	case DecisionRestore:
		site, err := e.commitRestore(ctx, st, p.restoreSiteID, p.restoreRepID)
		if err != nil {
			return nil, err
		}
		return &Outcome{Restored: site}, nil
	case DecisionConflict:
		p.plan.conflictResolved = true
	case DecisionReassign:
		if choice == ChoiceCorrection {
			p.plan.mode = ModeCorrection
		} else {
			p.plan.mode = ModeHandover
		}
	}
	return e.run(ctx, st, p.plan)
}

// Pending returns an open decision by token, for display.
func (e *Engine) Pending(ownerID uuid.UUID, token string) (*Decision, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	p, ok := e.pending[token]
	if !ok || p.ownerID != ownerID || e.opts.Now().After(p.decision.ExpiresAt) {
		return nil, false
	}
	d := p.decision
	return &d, true
}

func (e *Engine) park(p *pending) *Decision {
	now := e.opts.Now()
	p.decision.Token = uuid.NewString()
	p.decision.ExpiresAt = now.Add(e.opts.DecisionTTL)

	e.mu.Lock()
	defer e.mu.Unlock()
	for token, old := range e.pending {
		if now.After(old.decision.ExpiresAt) {
			delete(e.pending, token)
		}
	}
	e.pending[p.decision.Token] = p

	d := p.decision
	return &d
}

func (e *Engine) take(ownerID uuid.UUID, token string) (*pending, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	p, ok := e.pending[token]
	if !ok || p.ownerID != ownerID {
		return nil, crmerr.Validation("unknown or expired decision: %s", token)
	}
	delete(e.pending, token)
	if e.opts.Now().After(p.decision.ExpiresAt) {
		return nil, crmerr.Validation("unknown or expired decision: %s", token)
	}
	return p, nil
}
