package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/cashpoint/cashpoint-backend/internal/domain"
)

// State is the session state machine. There is no monetary logic here; the
// controller only tracks which account the current interaction acts as.
type State string

const (
	StateLoggedOut      State = "LOGGED_OUT"
	StateAuthenticating State = "AUTHENTICATING"
	StateAuthenticated  State = "AUTHENTICATED"
)

// Verifier checks a secret against an account's stored credential.
type Verifier interface {
	Verify(accountID, secret string) (bool, error)
}

// LoginRecorder appends a LOGIN record to an account's history.
type LoginRecorder interface {
	RecordLogin(ctx context.Context, accountID string) error
}

// Controller tracks at most one authenticated account and enforces the
// idle timeout cooperatively: ExpireIfIdle is polled by a monitor and never
// interrupts an operation already in flight.
type Controller struct {
	mu           sync.Mutex
	state        State
	accountID    string
	lastActivity time.Time

	idleTimeout time.Duration
	creds       Verifier
	engine      LoginRecorder
	log         *zap.Logger
	now         func() time.Time
}

// NewController creates a logged-out session controller.
func NewController(creds Verifier, engine LoginRecorder, idleTimeout time.Duration, log *zap.Logger) *Controller {
	return &Controller{
		state:       StateLoggedOut,
		idleTimeout: idleTimeout,
		creds:       creds,
		engine:      engine,
		log:         log,
		now:         time.Now,
	}
}

// Login authenticates the account and, on success, records the login in
// the account's history and activates the session. Any previous session is
// replaced.
func (c *Controller) Login(ctx context.Context, accountID, secret string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.state = StateAuthenticating
	c.accountID = ""

	ok, err := c.creds.Verify(accountID, secret)
	if err != nil {
		c.state = StateLoggedOut
		return err
	}
	if !ok {
		c.state = StateLoggedOut
		return fmt.Errorf("%w: incorrect PIN", domain.ErrInvalidCredential)
	}
	if err := c.engine.RecordLogin(ctx, accountID); err != nil {
		c.state = StateLoggedOut
		return err
	}

	c.state = StateAuthenticated
	c.accountID = accountID
	c.lastActivity = c.now()
	c.log.Info("session opened", zap.String("account", accountID))
	return nil
}

// Logout ends the current session. Safe to call when logged out.
func (c *Controller) Logout() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateAuthenticated {
		c.log.Info("session closed", zap.String("account", c.accountID))
	}
	c.state = StateLoggedOut
	c.accountID = ""
}

// Current returns the authenticated account id, if any.
func (c *Controller) Current() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.accountID, c.state == StateAuthenticated
}

// State returns the current session state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Touch marks user activity, resetting the idle clock.
func (c *Controller) Touch() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastActivity = c.now()
}

// ExpireIfIdle logs the session out when it has been idle longer than the
// configured timeout. It reports whether an expiry happened.
func (c *Controller) ExpireIfIdle() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateAuthenticated {
		return false
	}
	if c.now().Sub(c.lastActivity) <= c.idleTimeout {
		return false
	}
	c.log.Info("session expired after inactivity",
		zap.String("account", c.accountID),
		zap.Duration("idle_timeout", c.idleTimeout))
	c.state = StateLoggedOut
	c.accountID = ""
	return true
}

// Watch polls ExpireIfIdle at the given interval until ctx is done.
func (c *Controller) Watch(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.ExpireIfIdle()
		}
	}
}
