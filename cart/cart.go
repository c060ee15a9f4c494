// Package cart mutates the active cart of a session.
//
// For signed-in clients the account cart on the backend is the source of
// truth: every mutation goes to the backend first and the client copy is
// rewritten only after it succeeded. A failed backend call drops the client
// copy so the next session load re-reads the account. Anonymous clients only
// have the client copy.
package cart

import (
	"context"
	"errors"

	"bookstore-storefront/model"
	"bookstore-storefront/session"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var (
	ErrInvalidQuantity = errors.New("invalid_quantity")
	ErrLineNotFound    = errors.New("cart_line_not_found")
	ErrOutOfStock      = errors.New("out_of_stock")
)

type Backend interface {
	AddCartLine(ctx context.Context, userID, bookID, qty int) error
	SetCartLineQuantity(ctx context.Context, userID, bookID, qty int) error
	RemoveCartLine(ctx context.Context, userID, bookID int) error
}

type Catalog interface {
	GetBook(ctx context.Context, bookID int) (model.Book, error)
}

type Store interface {
	SaveCart(ctx context.Context, clientID string, lines []model.CartLine) error
	ClearCart(ctx context.Context, clientID string) error
}

type Synchronizer struct {
	backend Backend
	catalog Catalog
	store   Store
	logger  *zap.Logger
}

func NewSynchronizer(backend Backend, catalog Catalog, store Store, logger *zap.Logger) *Synchronizer {
	return &Synchronizer{backend: backend, catalog: catalog, store: store, logger: logger}
}

// Add merges qty into the line of bookID, or appends a new line holding a
// snapshot of the book.
func (s *Synchronizer) Add(ctx context.Context, st *session.State, bookID, qty int) ([]model.CartLine, error) {
	if qty < 1 {
		return st.Cart, ErrInvalidQuantity
	}

	book, err := s.catalog.GetBook(ctx, bookID)
	if err != nil {
		return st.Cart, err
	}
	if book.Stock <= 0 {
		return st.Cart, ErrOutOfStock
	}

	next := Merge(st.Cart, book, qty)
	err = s.commit(ctx, st, next, func() error {
		return s.backend.AddCartLine(ctx, st.UserID(), bookID, qty)
	})
	return st.Cart, err
}

// ChangeQuantity sets the line quantity, coerced into [1, stock on hand].
func (s *Synchronizer) ChangeQuantity(ctx context.Context, st *session.State, bookID, qty int) ([]model.CartLine, error) {
	i := indexOf(st.Cart, bookID)
	if i < 0 {
		return st.Cart, ErrLineNotFound
	}

	book, err := s.catalog.GetBook(ctx, bookID)
	if err != nil {
		return st.Cart, err
	}
	qty = ClampQuantity(qty, book.Stock)

	next := clone(st.Cart)
	next[i].Quantity = qty
	next[i].Book = book
	err = s.commit(ctx, st, next, func() error {
		return s.backend.SetCartLineQuantity(ctx, st.UserID(), bookID, qty)
	})
	return st.Cart, err
}

func (s *Synchronizer) Remove(ctx context.Context, st *session.State, bookID int) ([]model.CartLine, error) {
	i := indexOf(st.Cart, bookID)
	if i < 0 {
		return st.Cart, ErrLineNotFound
	}

	next := make([]model.CartLine, 0, len(st.Cart)-1)
	next = append(next, st.Cart[:i]...)
	next = append(next, st.Cart[i+1:]...)
	err := s.commit(ctx, st, next, func() error {
		return s.backend.RemoveCartLine(ctx, st.UserID(), bookID)
	})
	return st.Cart, err
}

func (s *Synchronizer) commit(ctx context.Context, st *session.State, next []model.CartLine, remote func() error) error {
	if !st.Authenticated {
		if err := s.store.SaveCart(ctx, st.ClientID, next); err != nil {
			return err
		}
		st.Cart = next
		return nil
	}

	if err := remote(); err != nil {
		if cerr := s.store.ClearCart(ctx, st.ClientID); cerr != nil {
			s.logger.Warn("failed to invalidate local cart",
				zap.String("client_id", st.ClientID), zap.Error(cerr))
		}
		return err
	}

	st.Cart = next
	if err := s.store.SaveCart(ctx, st.ClientID, next); err != nil {
		s.logger.Warn("failed to cache cart locally",
			zap.String("client_id", st.ClientID), zap.Error(err))
	}
	return nil
}

// Merge returns a new cart with qty added to bookID's line, appending a line
// when the book is not in the cart yet.
func Merge(lines []model.CartLine, book model.Book, qty int) []model.CartLine {
	next := clone(lines)
	if i := indexOf(next, book.ID); i >= 0 {
		next[i].Quantity += qty
		next[i].Book = book
		return next
	}
	return append(next, model.CartLine{BookID: book.ID, Quantity: qty, Book: book})
}

// ClampQuantity coerces qty into [1, stock]. With nothing on hand the line
// keeps quantity 1 and is rejected at submission.
func ClampQuantity(qty, stock int) int {
	if qty > stock {
		qty = stock
	}
	if qty < 1 {
		qty = 1
	}
	return qty
}

// Subtotal is the sum of unit price times quantity over all lines.
func Subtotal(lines []model.CartLine) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Book.Price.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	return total
}

func indexOf(lines []model.CartLine, bookID int) int {
	for i, l := range lines {
		if l.BookID == bookID {
			return i
		}
	}
	return -1
}

func clone(lines []model.CartLine) []model.CartLine {
	out := make([]model.CartLine, len(lines), len(lines)+1)
	copy(out, lines)
	return out
}
