// Package checkout drives a client through cart review, payment and
// confirmation and turns the cart into an order.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"bookstore-storefront/cart"
	"bookstore-storefront/model"
	"bookstore-storefront/promotion"
	"bookstore-storefront/session"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	ErrWrongStep        = errors.New("wrong_checkout_step")
	ErrNotAuthenticated = errors.New("not_authenticated")
	ErrEmptyCart        = errors.New("empty_cart")
	ErrMissingAddress   = errors.New("missing_address")
	ErrPaymentDeclined  = errors.New("payment_declined")
	ErrBadSignature     = errors.New("invalid_payment_signature")
)

const PaymentStatusPaid = "paid"

// cartDeleteLimit bounds the concurrent cart line deletes after an order.
const cartDeleteLimit = 8

type OrderBackend interface {
	CreateOrder(ctx context.Context, req model.OrderRequest) (int, error)
	RemoveCartLine(ctx context.Context, userID, bookID int) error
}

type BookLookup interface {
	GetBooks(ctx context.Context, ids []int) ([]model.Book, error)
}

type PromotionPicker interface {
	Select(ctx context.Context, promotionID int) (model.Promotion, error)
}

type IntentBackend interface {
	CreateIntent(ctx context.Context, intent model.OrderIntent) error
	CompleteIntent(ctx context.Context, token string) (model.OrderIntent, bool, error)
	FailIntent(ctx context.Context, token string) error
}

// ClientStore is the per-client state: cart copy, step and pending payment.
type ClientStore interface {
	ClearCart(ctx context.Context, clientID string) error
	LoadStep(ctx context.Context, clientID string) (string, error)
	SaveStep(ctx context.Context, clientID, step string) error
	SwapPendingPayment(ctx context.Context, clientID, token string) (string, error)
	LoadPendingPayment(ctx context.Context, clientID string) (string, error)
	ClearPendingPayment(ctx context.Context, clientID string) error
	ArmIntentExpiry(ctx context.Context, token string, ttl time.Duration) error
	DisarmIntentExpiry(ctx context.Context, token string) error
}

type Gateway interface {
	RedirectURL(token string, amount decimal.Decimal) (string, error)
	VerifyCallback(cb Callback) error
}

type Deps struct {
	Orders     OrderBackend
	Books      BookLookup
	Promotions PromotionPicker
	Intents    IntentBackend
	Store      ClientStore
	Gateway    Gateway
	IntentTTL  time.Duration
	Logger     *zap.Logger
}

type Submitter struct {
	Deps
	newToken func() string
}

func NewSubmitter(d Deps) *Submitter {
	return &Submitter{Deps: d, newToken: uuid.NewString}
}

type SubmitRequest struct {
	Address     string
	PromotionID *int
}

type Result struct {
	OrderID    int
	FinalPrice decimal.Decimal
	Replayed   bool
}

type PaymentStart struct {
	Token       string
	RedirectURL string
}

func (s *Submitter) Step(ctx context.Context, st *session.State) (Step, error) {
	raw, err := s.Store.LoadStep(ctx, st.ClientID)
	if err != nil {
		return StepCartReview, err
	}
	return ParseStep(raw), nil
}

func (s *Submitter) Proceed(ctx context.Context, st *session.State) (Step, error) {
	return s.transition(ctx, st, func(from Step) (Step, error) { return Proceed(from, len(st.Cart)) })
}

func (s *Submitter) Back(ctx context.Context, st *session.State) (Step, error) {
	return s.transition(ctx, st, Back)
}

func (s *Submitter) Reset(ctx context.Context, st *session.State) (Step, error) {
	return s.transition(ctx, st, Reset)
}

func (s *Submitter) transition(ctx context.Context, st *session.State, move func(Step) (Step, error)) (Step, error) {
	from, err := s.Step(ctx, st)
	if err != nil {
		return from, err
	}
	to, err := move(from)
	if err != nil {
		return from, err
	}
	if err := s.Store.SaveStep(ctx, st.ClientID, string(to)); err != nil {
		return from, err
	}
	return to, nil
}

// Quote prices the session cart under an optional promotion.
func (s *Submitter) Quote(ctx context.Context, st *session.State, promotionID *int) (promotion.Quote, error) {
	subtotal := cart.Subtotal(st.Cart)
	if promotionID == nil {
		return promotion.Apply(subtotal, nil), nil
	}

	p, err := s.Promotions.Select(ctx, *promotionID)
	if err != nil {
		return promotion.Quote{}, err
	}
	return promotion.Apply(subtotal, &p), nil
}

// CheckStock returns an *model.InsufficientStockError naming every line whose
// quantity exceeds the stock on hand.
func (s *Submitter) CheckStock(ctx context.Context, lines []model.CartLine) error {
	ids := make([]int, len(lines))
	for i, l := range lines {
		ids[i] = l.BookID
	}

	books, err := s.Books.GetBooks(ctx, ids)
	if err != nil {
		return err
	}
	byID := make(map[int]model.Book, len(books))
	for _, b := range books {
		byID[b.ID] = b
	}

	var shortages []model.StockShortage
	for _, l := range lines {
		b, ok := byID[l.BookID]
		if !ok {
			title := l.Book.Title
			if title == "" {
				title = fmt.Sprintf("book #%d", l.BookID)
			}
			shortages = append(shortages, model.StockShortage{BookID: l.BookID, Title: title, Requested: l.Quantity})
			continue
		}
		if b.Stock < l.Quantity {
			shortages = append(shortages, model.StockShortage{
				BookID: l.BookID, Title: b.Title, Requested: l.Quantity, Available: b.Stock,
			})
		}
	}
	if len(shortages) > 0 {
		return &model.InsufficientStockError{Items: shortages}
	}
	return nil
}

func (s *Submitter) prepare(ctx context.Context, st *session.State, req SubmitRequest) (model.OrderRequest, promotion.Quote, error) {
	step, err := s.Step(ctx, st)
	if err != nil {
		return model.OrderRequest{}, promotion.Quote{}, err
	}
	if step != StepPayment {
		return model.OrderRequest{}, promotion.Quote{}, ErrWrongStep
	}
	if !st.Authenticated || st.User == nil {
		return model.OrderRequest{}, promotion.Quote{}, ErrNotAuthenticated
	}
	if len(st.Cart) == 0 {
		return model.OrderRequest{}, promotion.Quote{}, ErrEmptyCart
	}

	address := strings.TrimSpace(req.Address)
	if address == "" {
		address = strings.TrimSpace(st.User.Address)
	}
	if address == "" {
		return model.OrderRequest{}, promotion.Quote{}, ErrMissingAddress
	}

	quote, err := s.Quote(ctx, st, req.PromotionID)
	if err != nil {
		return model.OrderRequest{}, promotion.Quote{}, err
	}

	if err := s.CheckStock(ctx, st.Cart); err != nil {
		return model.OrderRequest{}, promotion.Quote{}, err
	}

	lines := make([]model.OrderLineReq, len(st.Cart))
	for i, l := range st.Cart {
		lines[i] = model.OrderLineReq{BookID: l.BookID, Quantity: l.Quantity}
	}

	return model.OrderRequest{
		UserID:      st.User.ID,
		Username:    st.User.Username,
		Address:     address,
		Lines:       lines,
		PromotionID: quote.PromotionID,
		FinalPrice:  quote.FinalPrice,
	}, quote, nil
}

// Submit places the order for the session cart. On failure the cart and the
// payment step are left as they were.
func (s *Submitter) Submit(ctx context.Context, st *session.State, req SubmitRequest) (Result, error) {
	orderReq, quote, err := s.prepare(ctx, st, req)
	if err != nil {
		return Result{}, err
	}

	orderID, err := s.Orders.CreateOrder(ctx, orderReq)
	if err != nil {
		s.Logger.Error("order creation failed",
			zap.String("username", orderReq.Username), zap.Error(err))
		return Result{}, err
	}

	s.Logger.Info("order placed",
		zap.Int("order_id", orderID),
		zap.String("username", orderReq.Username),
		zap.Stringer("final_price", quote.FinalPrice))

	s.finish(ctx, st.ClientID, orderReq.UserID, orderReq.Lines)
	st.Cart = []model.CartLine{}

	return Result{OrderID: orderID, FinalPrice: quote.FinalPrice}, nil
}

// finish clears the cart everywhere and shows the confirmation. Nothing in
// here can undo a placed order, so failures are only logged.
func (s *Submitter) finish(ctx context.Context, clientID string, userID int, lines []model.OrderLineReq) {
	s.clearAccountCart(ctx, userID, lines)

	if err := s.Store.ClearCart(ctx, clientID); err != nil {
		s.Logger.Warn("failed to clear local cart", zap.String("client_id", clientID), zap.Error(err))
	}
	if err := s.Store.SaveStep(ctx, clientID, string(StepConfirmation)); err != nil {
		s.Logger.Warn("failed to store checkout step", zap.String("client_id", clientID), zap.Error(err))
	}
}

// clearAccountCart deletes the ordered lines from the account concurrently.
// Lines that could not be deleted are logged for reconciliation.
func (s *Submitter) clearAccountCart(ctx context.Context, userID int, lines []model.OrderLineReq) {
	var (
		g      errgroup.Group
		mu     sync.Mutex
		failed []int
	)
	g.SetLimit(cartDeleteLimit)

	for _, l := range lines {
		g.Go(func() error {
			if err := s.Orders.RemoveCartLine(ctx, userID, l.BookID); err != nil {
				mu.Lock()
				failed = append(failed, l.BookID)
				mu.Unlock()
				return err
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		s.Logger.Warn("cart lines left on account after order",
			zap.Int("user_id", userID), zap.Ints("book_ids", failed), zap.Error(err))
	}
}
