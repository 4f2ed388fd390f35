// Package popular keeps, for one session, the repositories already fetched per language
// and decides when the fetch collaborator must be called.
//
// All the state (selection, cache, error) is owned by a single goroutine.
// Select and Status are executed on it, fetch completions are posted back to it.
package popular

import (
	"context"
	"sync"

	"github.com/Scalingo/popular-repos/model"
	"github.com/remeh/sizedwaitgroup"
	"github.com/rs/xid"
	log "github.com/sirupsen/logrus"
)

// ErrClosed is returned by Select once the cache has been closed
// after that, Status reports the fetch error for the last selected language
var ErrClosed = model.ErrCacheClosed

// Fetcher is the external collaborator returning ranked repositories for a language
type Fetcher interface {
	FetchPopularRepositories(ctx context.Context, language model.Language) ([]model.RepositorySummary, error)
}

// FetcherFunc allow to use a plain function as Fetcher
type FetcherFunc func(ctx context.Context, language model.Language) ([]model.RepositorySummary, error)

func (f FetcherFunc) FetchPopularRepositories(ctx context.Context, language model.Language) ([]model.RepositorySummary, error) {
	return f(ctx, language)
}

type state struct {
	selected model.Language
	repos    map[model.Language][]model.RepositorySummary
	err      string
	closing  bool
}

type Cache struct {
	fetcher Fetcher

	ops  chan func(*state)
	quit chan struct{}
	done chan struct{}

	// limit the number of fetches running at the same time
	// waiting for a slot happens in the fetch goroutine, never in the loop
	slots    sizedwaitgroup.SizedWaitGroup
	inflight sync.WaitGroup

	ctx      context.Context
	cancel   context.CancelFunc
	quitOnce sync.Once

	// written once by the loop when closing starts, read after quit is closed
	lastSelected model.Language
}

type Option func(*Cache)

// WithMaxParallelFetches bound how many fetches can run at the same time
func WithMaxParallelFetches(limit int) Option {
	return func(c *Cache) {
		if limit > 0 {
			c.slots = sizedwaitgroup.New(limit)
		}
	}
}

// New create the cache and start its loop, callers must call Close when done
// the default language is selected but not fetched until Select is called
func New(fetcher Fetcher, opts ...Option) *Cache {
	ctx, cancel := context.WithCancel(context.Background())

	c := &Cache{
		fetcher: fetcher,
		ops:     make(chan func(*state)),
		quit:    make(chan struct{}),
		done:    make(chan struct{}),
		slots:   sizedwaitgroup.New(8),
		ctx:     ctx,
		cancel:  cancel,
	}

	for _, opt := range opts {
		opt(c)
	}

	go c.loop(&state{
		selected: model.DefaultLanguage,
		repos:    make(map[model.Language][]model.RepositorySummary),
	})

	return c
}

func (c *Cache) loop(s *state) {
	defer close(c.done)

	for {
		select {
		case op := <-c.ops:
			op(s)
		case <-c.quit:
			return
		}
	}
}

// do run fn on the loop goroutine and wait until it's done
func (c *Cache) do(fn func(*state)) error {
	ran := make(chan struct{})

	select {
	case c.ops <- func(s *state) {
		fn(s)
		close(ran)
	}:
	case <-c.quit:
		return ErrClosed
	}

	<-ran
	return nil
}

// Select make language the current selection and clear the error
// on a cache miss exactly one fetch is started, Select doesn't wait for it
func (c *Cache) Select(language model.Language) error {
	var closed bool

	if err := c.do(func(s *state) {
		if s.closing {
			closed = true
			return
		}

		s.selected = language
		s.err = ""

		if _, found := s.repos[language]; found {
			log.WithField("language", language).Debug("popular repositories found in cache")
			return
		}

		c.startFetch(language)
	}); err != nil {
		return err
	}

	if closed {
		return ErrClosed
	}

	return nil
}

// startFetch is only called from the loop goroutine
func (c *Cache) startFetch(language model.Language) {
	fetchID := xid.New().String()
	logger := log.WithFields(log.Fields{
		"fetchID":  fetchID,
		"language": language,
	})

	logger.Debug("cache miss, fetching popular repositories")

	c.inflight.Add(1)

	go func() {
		defer c.inflight.Done()

		var data []model.RepositorySummary

		err := c.slots.AddWithContext(c.ctx)
		if err == nil {
			data, err = c.fetcher.FetchPopularRepositories(c.ctx, language)
			c.slots.Done()
		}

		// the result is stored under the language requested at call time
		// whatever the selection is when it arrives
		postErr := c.do(func(s *state) {
			if err != nil {
				logger.WithError(err).Warn("Error fetching repos")
				s.err = model.FetchErrorMessage
				return
			}

			// two fetches for the same language can overlap, the first one to land wins
			if _, found := s.repos[language]; found {
				logger.Debug("popular repositories already cached, result dropped")
				return
			}

			s.repos[language] = data
			logger.WithField("numberOfRepositories", len(data)).Debug("popular repositories stored in cache")
		})

		if postErr != nil {
			logger.Debug("cache closed before the fetch completed, result dropped")
		}
	}()
}

// Status return the status of the current selection
// a closed cache always reports the fetch error
func (c *Cache) Status() model.Status {
	var status model.Status

	if err := c.do(func(s *state) {
		status = DeriveStatus(s.selected, s.repos, s.err)
	}); err != nil {
		return model.Status{Language: c.lastSelected, State: model.StateError, Error: model.FetchErrorMessage}
	}

	return status
}

// Selected return the current selection
func (c *Cache) Selected() model.Language {
	var selected model.Language

	if err := c.do(func(s *state) {
		selected = s.selected
	}); err != nil {
		return c.lastSelected
	}

	return selected
}

// Languages return the fixed list of languages a caller can select
func (c *Cache) Languages() []model.Language {
	return model.Languages()
}

// Close cancel the running fetches, wait for them and stop the loop
// if ctx expires first, ctx.Err() is returned and the loop still stops in the background
// once the remaining fetches return. Calling it more than once is safe
func (c *Cache) Close(ctx context.Context) error {
	// once closing is set, the loop never starts a new fetch
	// so waiting on inflight can't race with a new Add
	if err := c.do(func(s *state) {
		if !s.closing {
			c.lastSelected = s.selected
		}
		s.closing = true
	}); err != nil {
		return nil
	}

	c.cancel()

	// the loop must keep running until every fetch has posted its result
	c.quitOnce.Do(func() {
		go func() {
			c.inflight.Wait()
			close(c.quit)
		}()
	})

	select {
	case <-c.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// DeriveStatus compute the status from the selection, the cache and the error
// an error always wins, even if a previous selection is cached
func DeriveStatus(selected model.Language, repos map[model.Language][]model.RepositorySummary, errMessage string) model.Status {
	if errMessage != "" {
		return model.Status{
			Language: selected,
			State:    model.StateError,
			Error:    errMessage,
		}
	}

	data, found := repos[selected]
	if !found {
		return model.Status{
			Language: selected,
			State:    model.StateLoading,
		}
	}

	// callers must not be able to alter the cached ranking
	repositories := make([]model.RepositorySummary, len(data))
	copy(repositories, data)

	return model.Status{
		Language:     selected,
		State:        model.StateReady,
		Repositories: repositories,
	}
}
