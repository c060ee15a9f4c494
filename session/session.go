// Package session holds the account state of one storefront client: who is
// signed in and which cart is active.
package session

import (
	"context"
	"errors"

	"bookstore-storefront/model"

	"go.uber.org/zap"
)

var ErrNoSession = errors.New("session_not_initialized")

type AccountFetcher interface {
	FetchAccount(ctx context.Context, userID int) (*model.Account, error)
}

// CartStore is the client-side copy of the cart.
type CartStore interface {
	LoadCart(ctx context.Context, clientID string) ([]model.CartLine, error)
	SaveCart(ctx context.Context, clientID string, lines []model.CartLine) error
	ClearCart(ctx context.Context, clientID string) error
}

// ClientStateStore is cleared on logout alongside the cart.
type ClientStateStore interface {
	ClearStep(ctx context.Context, clientID string) error
	ClearPendingPayment(ctx context.Context, clientID string) error
}

type State struct {
	User          *model.User
	Authenticated bool
	ClientID      string
	Cart          []model.CartLine
}

// UserID is 0 for anonymous clients.
func (s *State) UserID() int {
	if s.User == nil {
		return 0
	}
	return s.User.ID
}

type Manager struct {
	accounts AccountFetcher
	carts    CartStore
	client   ClientStateStore
	logger   *zap.Logger
}

func NewManager(accounts AccountFetcher, carts CartStore, client ClientStateStore, logger *zap.Logger) *Manager {
	return &Manager{accounts: accounts, carts: carts, client: client, logger: logger}
}

// Init issues one account fetch. A returned account becomes the session and
// its cart overwrites the client copy; anything else falls back to the cart
// the client stored earlier. Failures are logged and never returned.
func (m *Manager) Init(ctx context.Context, userID int, clientID string) *State {
	st := &State{ClientID: clientID}

	if userID != 0 {
		acc, err := m.accounts.FetchAccount(ctx, userID)
		if err != nil {
			m.logger.Warn("account fetch failed, continuing signed out",
				zap.Int("user_id", userID), zap.Error(err))
		} else if acc != nil {
			user := acc.User
			st.User = &user
			st.Authenticated = true
			st.Cart = acc.Cart
			if st.Cart == nil {
				st.Cart = []model.CartLine{}
			}
			if err := m.carts.SaveCart(ctx, clientID, st.Cart); err != nil {
				m.logger.Warn("failed to store account cart locally",
					zap.String("client_id", clientID), zap.Error(err))
			}
			return st
		}
	}

	lines, err := m.carts.LoadCart(ctx, clientID)
	if err != nil {
		m.logger.Warn("failed to load local cart",
			zap.String("client_id", clientID), zap.Error(err))
	}
	if lines == nil {
		lines = []model.CartLine{}
	}
	st.Cart = lines
	return st
}

// Teardown signs the client out and forgets its cart and checkout progress.
func (m *Manager) Teardown(ctx context.Context, st *State) error {
	errs := []error{
		m.carts.ClearCart(ctx, st.ClientID),
		m.client.ClearStep(ctx, st.ClientID),
		m.client.ClearPendingPayment(ctx, st.ClientID),
	}

	st.User = nil
	st.Authenticated = false
	st.Cart = []model.CartLine{}

	return errors.Join(errs...)
}

type ctxKey struct{}

func NewContext(ctx context.Context, st *State) context.Context {
	return context.WithValue(ctx, ctxKey{}, st)
}

// FromContext fails with ErrNoSession outside the session middleware.
func FromContext(ctx context.Context) (*State, error) {
	st, ok := ctx.Value(ctxKey{}).(*State)
	if !ok || st == nil {
		return nil, ErrNoSession
	}
	return st, nil
}
