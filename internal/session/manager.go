// Package session tracks who is logged in and how sure we are about it.
//
// A session restored from the profile cache starts Provisional and is
// confirmed against the actor store in the background. Only an explicit
// "actor no longer exists" answer ends it; a slow or failing store leaves
// it as it was.
package session

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lalith-99/sitetrack/internal/crmerr"
	"github.com/lalith-99/sitetrack/internal/models"
	"github.com/lalith-99/sitetrack/internal/observ"
	"go.uber.org/zap"
)

type State string

const (
	StateProvisional State = "provisional"
	StateVerified    State = "verified"
	StateLoggedOut   State = "logged_out"
)

// allowed lists the legal transitions. Nothing leaves LoggedOut and
// nothing goes back to Provisional.
func allowed(from, to State) bool {
	switch from {
	case StateProvisional:
		return to == StateVerified || to == StateLoggedOut
	case StateVerified:
		return to == StateLoggedOut
	}
	return false
}

// Session is a snapshot of one actor's session.
type Session struct {
	ActorID  uuid.UUID `json:"actor_id"`
	OwnerID  uuid.UUID `json:"owner_id"`
	State    State     `json:"state"`
	Profile  Profile   `json:"profile"`
	Since    time.Time `json:"since"`
	Verified time.Time `json:"verified_at,omitzero"`
}

// Change is delivered to listeners on every transition.
type Change struct {
	ActorID uuid.UUID
	OwnerID uuid.UUID
	From    State
	To      State
}

// ActorSource is the authoritative actor lookup. GetByID returns nil, nil
// when the actor does not exist.
type ActorSource interface {
	GetByID(ctx context.Context, actorID uuid.UUID) (*models.Actor, error)
}

type Options struct {
	// VerifyTimeout bounds each authoritative check. Defaults to 10s.
	VerifyTimeout time.Duration
	Now           func() time.Time
}

type Manager struct {
	actors  ActorSource
	cache   ProfileCache
	logger  *zap.Logger
	metrics *observ.Metrics
	opts    Options

	mu        sync.Mutex
	sessions  map[uuid.UUID]*Session
	listeners []func(Change)

	background sync.WaitGroup
}

func NewManager(actors ActorSource, cache ProfileCache, logger *zap.Logger, metrics *observ.Metrics, opts Options) *Manager {
	if opts.VerifyTimeout <= 0 {
		opts.VerifyTimeout = 10 * time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Manager{
		actors:   actors,
		cache:    cache,
		logger:   logger,
		metrics:  metrics,
		opts:     opts,
		sessions: make(map[uuid.UUID]*Session),
	}
}

// OnChange registers fn for every state transition. Listeners run
// synchronously, outside the manager's lock.
func (m *Manager) OnChange(fn func(Change)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, fn)
}

// Start opens a Verified session for an actor who just proved who they
// are (login or signup). It replaces any earlier session, including a
// logged-out one.
func (m *Manager) Start(ctx context.Context, actor *models.Actor) *Session {
	now := m.opts.Now()
	s := &Session{
		ActorID:  actor.ID,
		OwnerID:  actor.OwnerID,
		State:    StateVerified,
		Profile:  profileOf(actor, now),
		Since:    now,
		Verified: now,
	}

	m.mu.Lock()
	m.sessions[actor.ID] = s
	out := *s
	m.mu.Unlock()

	m.remember(ctx, &s.Profile)
	return &out
}

// Restore returns the actor's session, creating one if needed. A cached
// profile gives a Provisional session immediately and schedules a
// background check; without one the check runs inline and its result
// decides.
func (m *Manager) Restore(ctx context.Context, actorID uuid.UUID) (*Session, error) {
	m.mu.Lock()
	if s, ok := m.sessions[actorID]; ok {
		out := *s
		m.mu.Unlock()
		if out.State == StateLoggedOut {
			return nil, crmerr.Authorization("session ended, log in again")
		}
		return &out, nil
	}
	m.mu.Unlock()

	profile, err := m.cache.Get(ctx, actorID)
	if err != nil {
		m.logger.Warn("profile cache unavailable", zap.String("actor_id", actorID.String()), zap.Error(err))
	}

	if profile != nil {
		s := m.open(profile, StateProvisional)
		m.background.Add(1)
		go func() {
			defer m.background.Done()
			// Detached from the request: the check outlives it.
			_ = m.Verify(context.Background(), actorID)
		}()
		return s, nil
	}

	actor, err := m.lookup(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if actor == nil {
		m.metrics.Verification("revoked")
		return nil, crmerr.Authorization("actor %s no longer exists", actorID)
	}
	m.metrics.Verification("ok")
	now := m.opts.Now()
	p := profileOf(actor, now)
	s := m.open(&p, StateVerified)
	m.remember(ctx, &p)
	return s, nil
}

// open installs a new session unless one appeared meanwhile, and returns
// whichever is current.
func (m *Manager) open(p *Profile, state State) *Session {
	now := m.opts.Now()
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[p.ActorID]; ok {
		out := *s
		return &out
	}
	s := &Session{ActorID: p.ActorID, OwnerID: p.OwnerID, State: state, Profile: *p, Since: now}
	if state == StateVerified {
		s.Verified = now
	}
	m.sessions[p.ActorID] = s
	out := *s
	return &out
}

// Verify checks the actor against the store under the verify timeout.
// Outcomes:
//   - actor exists: Provisional becomes Verified, the cache is refreshed
//   - actor gone: the session is logged out; an authorization error is returned
//   - timeout or store failure: logged, session untouched; a storage error is returned
func (m *Manager) Verify(ctx context.Context, actorID uuid.UUID) error {
	actor, err := m.lookup(ctx, actorID)
	if err != nil {
		m.logger.Warn("session verification inconclusive",
			zap.String("actor_id", actorID.String()),
			zap.Error(err),
		)
		return err
	}
	if actor == nil {
		m.metrics.Verification("revoked")
		m.logger.Info("actor revoked, ending session", zap.String("actor_id", actorID.String()))
		m.end(context.Background(), actorID)
		return crmerr.Authorization("actor %s no longer exists", actorID)
	}

	m.metrics.Verification("ok")
	now := m.opts.Now()
	p := profileOf(actor, now)
	if !m.transition(actorID, StateVerified, func(s *Session) {
		s.Profile = p
		s.Verified = now
	}) {
		// Logged out while the check was in flight; the cache stays empty.
		return nil
	}
	m.remember(ctx, &p)
	if m.State(actorID) == StateLoggedOut {
		m.forget(ctx, actorID)
	}
	return nil
}

func (m *Manager) lookup(ctx context.Context, actorID uuid.UUID) (*models.Actor, error) {
	vctx, cancel := context.WithTimeout(ctx, m.opts.VerifyTimeout)
	defer cancel()

	actor, err := m.actors.GetByID(vctx, actorID)
	if err != nil {
		m.metrics.Verification("unreachable")
		return nil, crmerr.Storage("verify actor", err)
	}
	return actor, nil
}

// Logout ends the actor's session.
func (m *Manager) Logout(ctx context.Context, actorID uuid.UUID) {
	m.end(ctx, actorID)
}

func (m *Manager) end(ctx context.Context, actorID uuid.UUID) {
	m.forget(ctx, actorID)
	m.transition(actorID, StateLoggedOut, nil)
}

func (m *Manager) forget(ctx context.Context, actorID uuid.UUID) {
	if err := m.cache.Delete(ctx, actorID); err != nil {
		m.logger.Warn("failed to clear cached profile", zap.String("actor_id", actorID.String()), zap.Error(err))
	}
}

// transition moves the session to `to` if that is legal, applies mutate,
// and notifies listeners. It reports whether the session is now in `to`;
// a session already there counts, an illegal move does not.
func (m *Manager) transition(actorID uuid.UUID, to State, mutate func(*Session)) bool {
	m.mu.Lock()
	s, ok := m.sessions[actorID]
	if !ok {
		if to != StateLoggedOut {
			m.mu.Unlock()
			return false
		}
		// Logging out an actor we never saw still leaves a marker, so a
		// later Restore doesn't quietly bring them back.
		s = &Session{ActorID: actorID, State: StateProvisional, Since: m.opts.Now()}
		m.sessions[actorID] = s
	}
	if s.State == to {
		if mutate != nil {
			mutate(s)
		}
		m.mu.Unlock()
		return true
	}
	if !allowed(s.State, to) {
		m.mu.Unlock()
		return false
	}
	change := Change{ActorID: actorID, OwnerID: s.OwnerID, From: s.State, To: to}
	s.State = to
	if mutate != nil {
		mutate(s)
	}
	listeners := slices.Clone(m.listeners)
	m.mu.Unlock()

	for _, fn := range listeners {
		fn(change)
	}
	return true
}

// State reports the actor's session state, or "" if there is none.
func (m *Manager) State(actorID uuid.UUID) State {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[actorID]; ok {
		return s.State
	}
	return ""
}

// Wait blocks until background verifications have finished.
func (m *Manager) Wait() {
	m.background.Wait()
}

func (m *Manager) remember(ctx context.Context, p *Profile) {
	if err := m.cache.Put(ctx, p); err != nil {
		m.logger.Warn("failed to cache profile", zap.String("actor_id", p.ActorID.String()), zap.Error(err))
	}
}

func profileOf(a *models.Actor, now time.Time) Profile {
	return Profile{
		ActorID:     a.ID,
		OwnerID:     a.OwnerID,
		Email:       a.Email,
		DisplayName: a.DisplayName,
		CachedAt:    now,
	}
}
