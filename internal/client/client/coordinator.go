package client

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/bizportal/internal/client/metrics"
	"github.com/dmitrijs2005/bizportal/internal/logging"
)

// State is the refresh coordinator state.
type State int

const (
	StateIdle State = iota
	StateRefreshing
	// StateFatal is entered when a refresh fails. It lasts until a new
	// session is started with SetAuth.
	StateFatal
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRefreshing:
		return "refreshing"
	case StateFatal:
		return "fatal"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

type Event int

const (
	EventUnauthorized Event = iota
	EventRefreshSucceeded
	EventRefreshFailed
	EventNoRefreshToken
	EventSessionStarted
)

func (e Event) String() string {
	switch e {
	case EventUnauthorized:
		return "unauthorized"
	case EventRefreshSucceeded:
		return "refresh_succeeded"
	case EventRefreshFailed:
		return "refresh_failed"
	case EventNoRefreshToken:
		return "no_refresh_token"
	case EventSessionStarted:
		return "session_started"
	}
	return fmt.Sprintf("Event(%d)", int(e))
}

var ErrInvalidTransition = errors.New("invalid state transition")

// Transition is the coordinator's transition table.
func Transition(from State, ev Event) (State, error) {
	switch from {
	case StateIdle:
		switch ev {
		case EventUnauthorized:
			return StateRefreshing, nil
		case EventSessionStarted:
			return StateIdle, nil
		}
	case StateRefreshing:
		switch ev {
		case EventUnauthorized, EventSessionStarted:
			return StateRefreshing, nil
		case EventRefreshSucceeded:
			return StateIdle, nil
		case EventRefreshFailed, EventNoRefreshToken:
			return StateFatal, nil
		}
	case StateFatal:
		switch ev {
		case EventUnauthorized:
			return StateFatal, nil
		case EventSessionStarted:
			return StateIdle, nil
		}
	}
	return from, fmt.Errorf("%w: %s in state %s", ErrInvalidTransition, ev, from)
}

type tokenPair struct {
	access  string
	refresh string
}

type refreshFunc func(ctx context.Context) (tokenPair, error)

type outcome struct {
	token string
	err   error
}

// waiter is a request parked while a refresh is in flight.
type waiter struct {
	ready chan outcome
	done  chan struct{}
	once  sync.Once
}

func newWaiter() *waiter {
	return &waiter{ready: make(chan outcome, 1), done: make(chan struct{})}
}

// release signals that the waiter dispatched its replay or gave up.
func (w *waiter) release() {
	w.once.Do(func() { close(w.done) })
}

// coordinator serializes token refreshes. The mutex guards state, queue,
// settled and epoch, and is held across the store writes that must not
// interleave with SetAuth.
type coordinator struct {
	mu      sync.Mutex
	state   State
	queue   []*waiter
	settled chan struct{}
	epoch   uint64

	store   CredentialStore
	refresh refreshFunc
	timeout time.Duration
	log     logging.Logger
	metrics *metrics.Metrics
}

func newCoordinator(store CredentialStore, refresh refreshFunc, timeout time.Duration, log logging.Logger, m *metrics.Metrics) *coordinator {
	return &coordinator{
		store:   store,
		refresh: refresh,
		timeout: timeout,
		log:     log,
		metrics: m,
	}
}

func (c *coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *coordinator) fire(ev Event) {
	next, err := Transition(c.state, ev)
	if err != nil {
		c.log.Error(context.Background(), "coordinator transition rejected", "error", err)
		return
	}
	c.state = next
}

// recover is called by a request that got a 401 while carrying sentWith.
// It returns the token to replay with and a release func the caller must
// invoke right before it dispatches the replay (it is safe to call twice).
func (c *coordinator) recover(ctx context.Context, sentWith string) (string, func(), error) {
	c.mu.Lock()

	switch c.state {
	case StateFatal:
		c.mu.Unlock()
		return "", nil, ErrSessionExpired

	case StateRefreshing:
		c.fire(EventUnauthorized)
		w := newWaiter()
		c.queue = append(c.queue, w)
		c.mu.Unlock()
		c.metrics.IncrementQueued()

		select {
		case o := <-w.ready:
			if o.err != nil {
				w.release()
				return "", nil, o.err
			}
			return o.token, w.release, nil
		case <-ctx.Done():
			w.release()
			return "", nil, ctx.Err()
		}
	}

	// A refresh finished after this request was sent: replay with the
	// current token instead of refreshing again.
	current, err := c.store.AccessToken(ctx)
	if err == nil && current != "" && current != sentWith {
		c.mu.Unlock()
		c.log.Debug(ctx, "replaying with token refreshed meanwhile")
		return current, nil, nil
	}

	c.fire(EventUnauthorized)
	c.settled = make(chan struct{})
	epoch := c.epoch
	c.mu.Unlock()

	token, err := c.run(ctx, epoch)
	return token, nil, err
}

// run performs the refresh on behalf of the request that triggered it and
// settles every waiter that queued up meanwhile.
func (c *coordinator) run(ctx context.Context, epoch uint64) (string, error) {
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
	defer cancel()

	c.log.Info(rctx, "refreshing access token")
	pair, err := c.refresh(rctx)

	c.mu.Lock()
	var token string
	switch {
	case c.epoch != epoch:
		// SetAuth stored a new session while the refresh was in flight.
		token, err = c.store.AccessToken(rctx)
		if err == nil && token == "" {
			err = ErrNoAccessToken
		}
	case err == nil:
		if perr := c.store.UpdateTokens(rctx, pair.access, pair.refresh); perr != nil {
			err = fmt.Errorf("persist refreshed tokens: %w", perr)
		} else {
			token = pair.access
		}
	}

	switch {
	case err == nil:
		c.fire(EventRefreshSucceeded)
	case errors.Is(err, ErrNoRefreshToken):
		c.fire(EventNoRefreshToken)
	default:
		c.fire(EventRefreshFailed)
	}
	queue := c.queue
	c.queue = nil
	settled := c.settled
	c.settled = nil
	c.mu.Unlock()

	if err != nil {
		rerr := &RefreshError{Err: err}
		c.log.Warn(rctx, "token refresh failed, ending session", "error", err, "queued", len(queue))
		for _, w := range queue {
			w.ready <- outcome{err: rerr}
		}
		if lerr := c.store.Logout(rctx); lerr != nil {
			c.log.Error(rctx, "logout after failed refresh", "error", lerr)
		}
		close(settled)
		c.metrics.IncrementRefresh("failure")
		c.metrics.IncrementSessionsExpired()
		return "", rerr
	}

	close(settled)
	c.metrics.IncrementRefresh("success")
	c.log.Info(rctx, "access token refreshed", "queued", len(queue))

	// Hand the token out one waiter at a time so replays are dispatched in
	// the order the requests were queued.
	for _, w := range queue {
		w.ready <- outcome{token: token}
		<-w.done
	}
	return token, nil
}

// sessionStarted stores a new session via save and moves the coordinator
// out of the fatal state.
func (c *coordinator) sessionStarted(save func() error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := save(); err != nil {
		return err
	}
	c.epoch++
	c.fire(EventSessionStarted)
	return nil
}

// wait blocks until no refresh is in flight.
func (c *coordinator) wait(ctx context.Context) error {
	c.mu.Lock()
	ch := c.settled
	c.mu.Unlock()

	if ch == nil {
		return nil
	}
	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
