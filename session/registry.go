package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Scalingo/popular-repos/model"
	"github.com/Scalingo/popular-repos/popular"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

const (
	// DefaultIdleTTL is how long a session can stay without any access before being reclaimed
	DefaultIdleTTL = 30 * time.Minute

	// closeTimeout bound how long closing reclaimed sessions can take
	closeTimeout = 10 * time.Second
)

type entry struct {
	cache      *popular.Cache
	lastAccess time.Time
}

func (e *entry) isExpired(now time.Time, idleTTL time.Duration) bool {
	return idleTTL > 0 && now.Sub(e.lastAccess) > idleTTL
}

// Registry own one popular repositories cache per session
// a cache lives until its session is deleted, stays idle longer than the idle TTL, or the registry is closed
type Registry struct {
	mu          sync.Mutex
	sessions    map[string]*entry
	newCache    func() *popular.Cache
	maxSessions int
	idleTTL     time.Duration
	now         func() time.Time

	// background work: closing reclaimed sessions and the cleanup ticker
	background sync.WaitGroup
	stop       chan struct{}
	stopOnce   sync.Once
}

type Option func(*Registry)

// WithIdleTTL set how long an unused session is kept, <= 0 disables expiry
func WithIdleTTL(idleTTL time.Duration) Option {
	return func(r *Registry) {
		r.idleTTL = idleTTL
	}
}

// WithClock replace time.Now, used by tests
func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		r.now = now
	}
}

// NewRegistry create an empty registry
// maxSessions <= 0 means no limit
func NewRegistry(newCache func() *popular.Cache, maxSessions int, opts ...Option) *Registry {
	r := &Registry{
		sessions:    make(map[string]*entry),
		newCache:    newCache,
		maxSessions: maxSessions,
		idleTTL:     DefaultIdleTTL,
		now:         time.Now,
		stop:        make(chan struct{}),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Create open a new session with the default language selected, so its first fetch is already running
// expired sessions are reclaimed first so their slots can be reused
func (r *Registry) Create() (string, *popular.Cache, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	r.closeInBackground(r.removeExpiredLocked(now))

	if r.maxSessions > 0 && len(r.sessions) >= r.maxSessions {
		log.WithField("maxSessions", r.maxSessions).Warning("maximum number of sessions reached")
		return "", nil, model.ErrTooManySessions
	}

	id := uuid.NewString()
	cache := r.newCache()

	if err := cache.Select(model.DefaultLanguage); err != nil {
		_ = cache.Close(context.Background())
		return "", nil, err
	}

	r.sessions[id] = &entry{cache: cache, lastAccess: now}

	log.WithField("sessionID", id).Debug("session created")
	return id, cache, nil
}

// Get return the session cache and refresh its last access
func (r *Registry) Get(id string) (*popular.Cache, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, found := r.sessions[id]
	if !found {
		return nil, model.ErrSessionNotFound
	}

	now := r.now()
	if e.isExpired(now, r.idleTTL) {
		delete(r.sessions, id)
		r.closeInBackground(map[string]*popular.Cache{id: e.cache})
		return nil, model.ErrSessionNotFound
	}

	e.lastAccess = now
	return e.cache, nil
}

// Delete remove the session and close its cache
func (r *Registry) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	e, found := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()

	if !found {
		return model.ErrSessionNotFound
	}

	log.WithField("sessionID", id).Debug("session deleted")
	return e.cache.Close(ctx)
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Cleanup close and remove every expired session, it returns how many were reclaimed
func (r *Registry) Cleanup(ctx context.Context) int {
	r.mu.Lock()
	expired := r.removeExpiredLocked(r.now())
	r.mu.Unlock()

	r.closeSessions(ctx, expired)
	return len(expired)
}

// StartCleanup run Cleanup every interval until the registry is closed
func (r *Registry) StartCleanup(interval time.Duration) {
	if interval <= 0 {
		return
	}

	r.background.Add(1)

	go func() {
		defer r.background.Done()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
				if reclaimed := r.Cleanup(ctx); reclaimed > 0 {
					log.WithField("reclaimedSessions", reclaimed).Info("idle sessions reclaimed")
				}
				cancel()
			case <-r.stop:
				return
			}
		}
	}()
}

// Close stop the cleanup and close every session, errors are joined
func (r *Registry) Close(ctx context.Context) error {
	r.stopOnce.Do(func() {
		close(r.stop)
	})

	r.mu.Lock()
	sessions := make(map[string]*popular.Cache, len(r.sessions))
	for id, e := range r.sessions {
		sessions[id] = e.cache
	}
	r.sessions = make(map[string]*entry)
	r.mu.Unlock()

	err := r.closeSessions(ctx, sessions)
	r.background.Wait()

	return err
}

// removeExpiredLocked must be called with mu held
func (r *Registry) removeExpiredLocked(now time.Time) map[string]*popular.Cache {
	expired := make(map[string]*popular.Cache)

	for id, e := range r.sessions {
		if e.isExpired(now, r.idleTTL) {
			expired[id] = e.cache
			delete(r.sessions, id)
		}
	}

	return expired
}

// closeInBackground avoid holding the registry lock while caches wait for their fetches
func (r *Registry) closeInBackground(sessions map[string]*popular.Cache) {
	if len(sessions) == 0 {
		return
	}

	r.background.Add(1)

	go func() {
		defer r.background.Done()

		ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
		defer cancel()

		_ = r.closeSessions(ctx, sessions)
	}()
}

func (r *Registry) closeSessions(ctx context.Context, sessions map[string]*popular.Cache) error {
	var errs []error

	for id, cache := range sessions {
		log.WithField("sessionID", id).Debug("closing session")

		if err := cache.Close(ctx); err != nil {
			log.WithError(err).WithField("sessionID", id).Error("unable to close session")
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
