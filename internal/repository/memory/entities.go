package memory

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"github.com/lalith-99/sitetrack/internal/crmerr"
	"github.com/lalith-99/sitetrack/internal/models"
	"github.com/lalith-99/sitetrack/internal/repository"
)

// RepresentativeStore ----------------------------------------------------

type RepresentativeStore struct{ db *DB }

// uniqueRep must be called with mu held. skip is the row being updated.
func (s RepresentativeStore) uniqueRep(ownerID, skip uuid.UUID, name, phone string) error {
	for _, r := range s.db.reps {
		if r.OwnerID != ownerID || r.ID == skip {
			continue
		}
		if r.Name == name {
			return crmerr.DuplicateName(name)
		}
		if phone != "" && r.Phone == phone {
			return crmerr.DuplicatePhone(phone)
		}
	}
	return nil
}

func (s RepresentativeStore) Create(_ context.Context, ownerID uuid.UUID, name, phone string) (*models.Representative, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if err := s.uniqueRep(ownerID, uuid.Nil, name, phone); err != nil {
		return nil, err
	}
	r := models.Representative{
		ID:        s.db.newID(),
		OwnerID:   ownerID,
		Name:      name,
		Phone:     phone,
		CreatedAt: s.db.now(),
	}
	s.db.reps[r.ID] = r
	return &r, nil
}

func (s RepresentativeStore) Update(_ context.Context, ownerID, repID uuid.UUID, name, phone string) (*models.Representative, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	r, ok := s.db.reps[repID]
	if !ok || r.OwnerID != ownerID {
		return nil, nil
	}
	if err := s.uniqueRep(ownerID, repID, name, phone); err != nil {
		return nil, err
	}
	r.Name = name
	r.Phone = phone
	s.db.reps[repID] = r
	return &r, nil
}

func (s RepresentativeStore) Delete(_ context.Context, ownerID, repID uuid.UUID) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if r, ok := s.db.reps[repID]; ok && r.OwnerID == ownerID {
		delete(s.db.reps, repID)
	}
	return nil
}

func (s RepresentativeStore) ListByOwner(_ context.Context, ownerID uuid.UUID) ([]models.Representative, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	reps := make([]models.Representative, 0)
	for _, r := range s.db.reps {
		if r.OwnerID == ownerID {
			reps = append(reps, r)
		}
	}
	sort.Slice(reps, func(i, j int) bool { return s.db.less(reps[i].ID, reps[j].ID) })
	return reps, nil
}

// SiteStore --------------------------------------------------------------

type SiteStore struct{ db *DB }

func (s SiteStore) uniqueTitle(ownerID, skip uuid.UUID, title string) error {
	for _, site := range s.db.sites {
		if site.OwnerID == ownerID && site.ID != skip && site.Title == title {
			return crmerr.DuplicateTitle(title)
		}
	}
	return nil
}

// appendLog must be called with mu held.
func (db *DB) appendLog(ownerID, repID, siteID uuid.UUID) models.ActivityLog {
	l := models.ActivityLog{
		ID:      db.newID(),
		OwnerID: ownerID,
		RepID:   repID,
		SiteID:  siteID,
		Date:    db.now(),
	}
	db.logs[l.ID] = l
	return l
}

func (s SiteStore) Create(_ context.Context, ownerID uuid.UUID, in repository.NewSite) (*models.Site, *models.ActivityLog, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if err := s.uniqueTitle(ownerID, uuid.Nil, in.Title); err != nil {
		return nil, nil, err
	}
	site := models.Site{
		ID:            s.db.newID(),
		OwnerID:       ownerID,
		Title:         in.Title,
		Address:       in.Address,
		Lat:           in.Lat,
		Lng:           in.Lng,
		AssignedRepID: in.AssignedRepID,
		Status:        models.StatusNew,
		Photo:         in.Photo,
		Notes:         in.Notes,
		CreatedAt:     s.db.now(),
	}
	var log *models.ActivityLog
	if in.AssignedRepID != nil {
		site.Status = models.StatusActive
		l := s.db.appendLog(ownerID, *in.AssignedRepID, site.ID)
		log = &l
	}
	s.db.sites[site.ID] = *site.Clone()
	return &site, log, nil
}

func (s SiteStore) Update(_ context.Context, ownerID uuid.UUID, in *models.Site) (*models.Site, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	site, ok := s.db.sites[in.ID]
	if !ok || site.OwnerID != ownerID {
		return nil, nil
	}
	if err := s.uniqueTitle(ownerID, in.ID, in.Title); err != nil {
		return nil, err
	}
	updated := in.Clone()
	updated.OwnerID = site.OwnerID
	updated.CreatedAt = site.CreatedAt
	s.db.sites[in.ID] = *updated
	return updated.Clone(), nil
}

func (s SiteStore) Assign(_ context.Context, ownerID, siteID, repID uuid.UUID) (*models.Site, *models.ActivityLog, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	site, ok := s.db.sites[siteID]
	if !ok || site.OwnerID != ownerID {
		return nil, nil, nil
	}
	rep := repID
	site.AssignedRepID = &rep
	site.Status = models.StatusActive
	s.db.sites[siteID] = site
	l := s.db.appendLog(ownerID, repID, siteID)
	return site.Clone(), &l, nil
}

func (s SiteStore) UnassignRep(_ context.Context, ownerID, repID uuid.UUID) ([]models.Site, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	updated := make([]models.Site, 0)
	for id, site := range s.db.sites {
		if site.OwnerID != ownerID || site.AssignedRepID == nil || *site.AssignedRepID != repID {
			continue
		}
		site.AssignedRepID = nil
		site.Status = models.StatusNew
		s.db.sites[id] = site
		updated = append(updated, *site.Clone())
	}
	sort.Slice(updated, func(i, j int) bool { return s.db.less(updated[i].ID, updated[j].ID) })
	return updated, nil
}

func (s SiteStore) Delete(_ context.Context, ownerID, siteID uuid.UUID) (bool, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	site, ok := s.db.sites[siteID]
	if !ok || site.OwnerID != ownerID {
		return false, nil
	}
	delete(s.db.sites, siteID)
	return true, nil
}

func (s SiteStore) ListByOwner(_ context.Context, ownerID uuid.UUID) ([]models.Site, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	sites := make([]models.Site, 0)
	for _, site := range s.db.sites {
		if site.OwnerID == ownerID {
			sites = append(sites, *site.Clone())
		}
	}
	sort.Slice(sites, func(i, j int) bool { return s.db.less(sites[i].ID, sites[j].ID) })
	return sites, nil
}

// ActivityLogStore -------------------------------------------------------

type ActivityLogStore struct{ db *DB }

func (s ActivityLogStore) Create(_ context.Context, ownerID, repID, siteID uuid.UUID) (*models.ActivityLog, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	l := s.db.appendLog(ownerID, repID, siteID)
	return &l, nil
}

func (s ActivityLogStore) Delete(_ context.Context, ownerID, logID uuid.UUID) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if l, ok := s.db.logs[logID]; ok && l.OwnerID == ownerID {
		delete(s.db.logs, logID)
	}
	return nil
}

func (s ActivityLogStore) DeleteByRepAndSite(_ context.Context, ownerID, repID, siteID uuid.UUID) (int64, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	var n int64
	for id, l := range s.db.logs {
		if l.OwnerID == ownerID && l.RepID == repID && l.SiteID == siteID {
			delete(s.db.logs, id)
			n++
		}
	}
	return n, nil
}

func (s ActivityLogStore) ListByOwner(_ context.Context, ownerID uuid.UUID) ([]models.ActivityLog, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	logs := make([]models.ActivityLog, 0)
	for _, l := range s.db.logs {
		if l.OwnerID == ownerID {
			logs = append(logs, l)
		}
	}
	sort.Slice(logs, func(i, j int) bool {
		if !logs[i].Date.Equal(logs[j].Date) {
			return logs[i].Date.Before(logs[j].Date)
		}
		return s.db.less(logs[i].ID, logs[j].ID)
	})
	return logs, nil
}
