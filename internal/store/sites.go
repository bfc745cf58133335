package store

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/lalith-99/sitetrack/internal/crmerr"
	"github.com/lalith-99/sitetrack/internal/models"
	"github.com/lalith-99/sitetrack/internal/repository"
	"go.uber.org/zap"
)

// SiteInput is the payload for AddSite.
type SiteInput struct {
	Title         string     `json:"title" validate:"required"`
	Address       string     `json:"address"`
	Lat           float64    `json:"lat" validate:"gte=-90,lte=90"`
	Lng           float64    `json:"lng" validate:"gte=-180,lte=180"`
	AssignedRepID *uuid.UUID `json:"assigned_rep_id"`
	Photo         []byte     `json:"photo"`
	Notes         string     `json:"notes"`
}

// SitePatch is a generic field patch. Nil fields are left alone.
//
// Status and AssignedRepID/ClearRep are overrides for flows like completion
// that set the lifecycle fields directly. They never write a log, and the
// result is normalized so ACTIVE ⇔ assigned still holds.
type SitePatch struct {
	Title      *string
	Address    *string
	Lat        *float64
	Lng        *float64
	Notes      *string
	Photo      []byte
	ClearPhoto bool

	Status        *models.SiteStatus
	AssignedRepID *uuid.UUID
	ClearRep      bool
}

// UnassignResult is the site after an unassign, plus who held it.
type UnassignResult struct {
	Site          *models.Site `json:"site"`
	PreviousRepID *uuid.UUID   `json:"previous_rep_id"`
}

// Sites returns copies of every site, oldest first.
func (s *Store) Sites() []models.Site {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Site, 0, len(s.sites))
	for _, site := range s.sites {
		out = append(out, *site.Clone())
	}
	return out
}

func (s *Store) Site(id uuid.UUID) (*models.Site, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.siteIndex(id); i >= 0 {
		return s.sites[i].Clone(), true
	}
	return nil, false
}

func (s *Store) siteIndex(id uuid.UUID) int {
	for i, site := range s.sites {
		if site.ID == id {
			return i
		}
	}
	return -1
}

// replaceSite must be called with mu held.
func (s *Store) replaceSite(site *models.Site) {
	if i := s.siteIndex(site.ID); i >= 0 {
		s.sites[i] = site.Clone()
		return
	}
	s.sites = append(s.sites, site.Clone())
}

func (s *Store) titleTaken(skip uuid.UUID, title string) bool {
	for _, site := range s.sites {
		if site.ID != skip && site.Title == title {
			return true
		}
	}
	return false
}

// CheckSite reports the error AddSite would fail with before reaching the
// backend, without writing anything.
func (s *Store) CheckSite(in SiteInput) error {
	in.Title = strings.TrimSpace(in.Title)
	if err := s.validate.Struct(in); err != nil {
		return crmerr.Validation("invalid site: %v", err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.checkSite(in)
}

// checkSite must be called with mu held.
func (s *Store) checkSite(in SiteInput) error {
	if s.titleTaken(uuid.Nil, in.Title) {
		return crmerr.DuplicateTitle(in.Title)
	}
	if in.AssignedRepID != nil && s.repIndex(*in.AssignedRepID) < 0 {
		return crmerr.NotFound("representative", *in.AssignedRepID)
	}
	return nil
}

// AddSite creates a site. It starts ACTIVE when a rep is given (and the
// creation is logged), NEW otherwise.
func (s *Store) AddSite(ctx context.Context, in SiteInput) (*models.Site, error) {
	in.Title = strings.TrimSpace(in.Title)
	if err := s.validate.Struct(in); err != nil {
		return nil, crmerr.Validation("invalid site: %v", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkSite(in); err != nil {
		return nil, err
	}

	site, log, err := s.backend.Sites.Create(ctx, s.ownerID, repository.NewSite{
		Title:         in.Title,
		Address:       in.Address,
		Lat:           in.Lat,
		Lng:           in.Lng,
		AssignedRepID: in.AssignedRepID,
		Photo:         in.Photo,
		Notes:         in.Notes,
	})
	if err != nil {
		return nil, wrapBackend("insert site", err)
	}
	s.sites = append(s.sites, site.Clone())
	if log != nil {
		s.appendLog(*log)
	}

	s.logger.Debug("site added",
		zap.String("site_id", site.ID.String()),
		zap.String("status", string(site.Status)),
	)
	return site.Clone(), nil
}

// UpdateSite applies patch to the site.
func (s *Store) UpdateSite(ctx context.Context, id uuid.UUID, patch SitePatch) (*models.Site, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.siteIndex(id)
	if i < 0 {
		return nil, crmerr.NotFound("site", id)
	}
	next := s.sites[i].Clone()

	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" {
			return nil, crmerr.Validation("site title is required")
		}
		if title != next.Title && s.titleTaken(id, title) {
			return nil, crmerr.DuplicateTitle(title)
		}
		next.Title = title
	}
	if patch.Address != nil {
		next.Address = *patch.Address
	}
	if patch.Lat != nil {
		if err := s.validate.Var(*patch.Lat, "gte=-90,lte=90"); err != nil {
			return nil, crmerr.Validation("invalid latitude: %v", err)
		}
		next.Lat = *patch.Lat
	}
	if patch.Lng != nil {
		if err := s.validate.Var(*patch.Lng, "gte=-180,lte=180"); err != nil {
			return nil, crmerr.Validation("invalid longitude: %v", err)
		}
		next.Lng = *patch.Lng
	}
	if patch.Notes != nil {
		next.Notes = *patch.Notes
	}
	if patch.ClearPhoto {
		next.Photo = nil
	} else if patch.Photo != nil {
		next.Photo = append([]byte(nil), patch.Photo...)
	}

	if err := s.applyLifecycle(next, patch); err != nil {
		return nil, err
	}

	updated, err := s.backend.Sites.Update(ctx, s.ownerID, next)
	if err != nil {
		return nil, wrapBackend("update site", err)
	}
	if updated == nil {
		s.sites = append(s.sites[:i], s.sites[i+1:]...)
		return nil, crmerr.NotFound("site", id)
	}
	s.sites[i] = updated.Clone()
	return updated.Clone(), nil
}

// applyLifecycle folds the status/rep overrides into site so the
// ACTIVE ⇔ assigned invariant holds afterwards.
func (s *Store) applyLifecycle(site *models.Site, patch SitePatch) error {
	if patch.AssignedRepID != nil {
		if s.repIndex(*patch.AssignedRepID) < 0 {
			return crmerr.NotFound("representative", *patch.AssignedRepID)
		}
		rep := *patch.AssignedRepID
		site.AssignedRepID = &rep
		site.Status = models.StatusActive
	} else if patch.ClearRep {
		site.AssignedRepID = nil
		if site.Status == models.StatusActive {
			site.Status = models.StatusNew
		}
	}

	if patch.Status == nil {
		return nil
	}
	status := *patch.Status
	if !status.Valid() {
		return crmerr.Validation("unknown site status: %q", status)
	}
	switch status {
	case models.StatusActive:
		if site.AssignedRepID == nil {
			return crmerr.Validation("an active site needs an assigned representative")
		}
	case models.StatusNew, models.StatusComplete:
		site.AssignedRepID = nil
	}
	site.Status = status
	return nil
}

// DeleteSite hard-deletes the site. Its logs stay; trajectories drop them
// as orphans. Reports false if there was nothing to delete.
func (s *Store) DeleteSite(ctx context.Context, id uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.siteIndex(id)
	if i < 0 {
		return false, nil
	}
	deleted, err := s.backend.Sites.Delete(ctx, s.ownerID, id)
	if err != nil {
		return false, wrapBackend("delete site", err)
	}
	s.sites = append(s.sites[:i], s.sites[i+1:]...)
	return deleted, nil
}

// AssignRepresentative links repID to the site, marks it ACTIVE and
// appends exactly one activity log.
func (s *Store) AssignRepresentative(ctx context.Context, siteID, repID uuid.UUID) (*models.Site, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.siteIndex(siteID)
	if i < 0 {
		return nil, crmerr.NotFound("site", siteID)
	}
	if s.repIndex(repID) < 0 {
		return nil, crmerr.NotFound("representative", repID)
	}

	site, log, err := s.backend.Sites.Assign(ctx, s.ownerID, siteID, repID)
	if err != nil {
		return nil, wrapBackend("assign representative", err)
	}
	if site == nil {
		s.sites = append(s.sites[:i], s.sites[i+1:]...)
		return nil, crmerr.NotFound("site", siteID)
	}
	s.sites[i] = site.Clone()
	s.appendLog(*log)

	return site.Clone(), nil
}

// UnassignRepresentative clears the rep and puts the site back to NEW.
// Nothing is logged. On a site with no rep it is a no-op.
func (s *Store) UnassignRepresentative(ctx context.Context, siteID uuid.UUID) (*UnassignResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.siteIndex(siteID)
	if i < 0 {
		return nil, crmerr.NotFound("site", siteID)
	}
	current := s.sites[i]
	if current.AssignedRepID == nil && current.Status != models.StatusActive {
		return &UnassignResult{Site: current.Clone()}, nil
	}

	prev := current.AssignedRepID
	next := current.Clone()
	next.AssignedRepID = nil
	next.Status = models.StatusNew

	updated, err := s.backend.Sites.Update(ctx, s.ownerID, next)
	if err != nil {
		return nil, wrapBackend("unassign representative", err)
	}
	if updated == nil {
		s.sites = append(s.sites[:i], s.sites[i+1:]...)
		return nil, crmerr.NotFound("site", siteID)
	}
	s.sites[i] = updated.Clone()

	res := &UnassignResult{Site: updated.Clone()}
	if prev != nil {
		id := *prev
		res.PreviousRepID = &id
	}
	return res, nil
}

// CompleteSite marks the site COMPLETE and clears its rep. No log.
func (s *Store) CompleteSite(ctx context.Context, siteID uuid.UUID) (*models.Site, error) {
	complete := models.StatusComplete
	return s.UpdateSite(ctx, siteID, SitePatch{Status: &complete})
}

// ActiveSiteForRepresentative returns the site repID is ACTIVE at, or nil.
func (s *Store) ActiveSiteForRepresentative(repID uuid.UUID) *models.Site {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, site := range s.sites {
		if site.AssignedTo(repID) {
			return site.Clone()
		}
	}
	return nil
}

// Activity logs -------------------------------------------------------------

// appendLog must be called with mu held. It keeps logs ordered by date.
func (s *Store) appendLog(l models.ActivityLog) {
	n := len(s.logs)
	if n == 0 || !l.Date.Before(s.logs[n-1].Date) {
		s.logs = append(s.logs, l)
		return
	}
	s.logs = append(s.logs, l)
	sortLogs(s.logs)
}

// LogsForRepresentative returns repID's logs, oldest first. Trajectory
// numbering depends on this order.
func (s *Store) LogsForRepresentative(repID uuid.UUID) []models.ActivityLog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.ActivityLog, 0)
	for _, l := range s.logs {
		if l.RepID == repID {
			out = append(out, l)
		}
	}
	return out
}

// Logs returns every log, newest first (admin history view).
func (s *Store) Logs() []models.ActivityLog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.ActivityLog, len(s.logs))
	for i, l := range s.logs {
		out[len(s.logs)-1-i] = l
	}
	return out
}

// DeleteLog deletes by id without checking that the log or its site exist.
func (s *Store) DeleteLog(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.backend.Logs.Delete(ctx, s.ownerID, id); err != nil {
		return wrapBackend("delete activity log", err)
	}
	s.removeLogs(func(l models.ActivityLog) bool { return l.ID == id })
	return nil
}

// DeleteLogsByRepAndSite prunes every log pairing repID with siteID and
// returns how many went. Used by the correction path.
func (s *Store) DeleteLogsByRepAndSite(ctx context.Context, repID, siteID uuid.UUID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, err := s.backend.Logs.DeleteByRepAndSite(ctx, s.ownerID, repID, siteID)
	if err != nil {
		return 0, wrapBackend("delete activity logs", err)
	}
	s.removeLogs(func(l models.ActivityLog) bool { return l.RepID == repID && l.SiteID == siteID })
	return n, nil
}

func (s *Store) removeLogs(match func(models.ActivityLog) bool) {
	kept := s.logs[:0]
	for _, l := range s.logs {
		if !match(l) {
			kept = append(kept, l)
		}
	}
	s.logs = kept
}
