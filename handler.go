package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"bookstore-storefront/cart"
	"bookstore-storefront/checkout"
	"bookstore-storefront/helper"
	"bookstore-storefront/localstore"
	"bookstore-storefront/middleware"
	"bookstore-storefront/model"
	"bookstore-storefront/promotion"
	"bookstore-storefront/repository"
	"bookstore-storefront/session"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

type Catalog interface {
	ListBooks(ctx context.Context) ([]model.Book, error)
	GetBook(ctx context.Context, bookID int) (model.Book, error)
}

type OrderHistory interface {
	ListOrders(ctx context.Context, userID int) ([]model.Order, error)
}

// Backend is everything the storefront needs from the bookstore backend.
type Backend interface {
	Catalog
	OrderHistory
	session.AccountFetcher
	cart.Backend
	promotion.Lister
	checkout.OrderBackend
	checkout.BookLookup
	checkout.IntentBackend
}

type App struct {
	db       *sql.DB
	catalog  Catalog
	history  OrderHistory
	sessions *session.Manager
	carts    *cart.Synchronizer
	promos   *promotion.Selector
	checkout *checkout.Submitter
	logger   *zap.Logger
}

func newApp(db *sql.DB, local *localstore.RedisStore, cfg helper.Config, logger *zap.Logger) *App {
	return newAppWithBackend(db, repository.NewStore(db, logger, cfg.IntentTTL), local, cfg, logger)
}

func newAppWithBackend(db *sql.DB, backend Backend, local *localstore.RedisStore, cfg helper.Config, logger *zap.Logger) *App {
	promos := promotion.NewSelector(backend)
	return &App{
		db:       db,
		catalog:  backend,
		history:  backend,
		sessions: session.NewManager(backend, local, local, logger),
		carts:    cart.NewSynchronizer(backend, backend, local, logger),
		promos:   promos,
		checkout: checkout.NewSubmitter(checkout.Deps{
			Orders:     backend,
			Books:      backend,
			Promotions: promos,
			Intents:    backend,
			Store:      local,
			Gateway:    checkout.HostedGateway{BaseURL: cfg.PaymentGatewayURL, ReturnURL: cfg.PaymentReturnURL, Secret: cfg.PaymentSecret},
			IntentTTL:  cfg.IntentTTL,
			Logger:     logger,
		}),
		logger: logger,
	}
}

func (a *App) setupRouter() *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.RequestLogger(a.logger))

	// public endpoints
	r.HandleFunc("/login", a.LoginHandler).Methods("POST")
	r.HandleFunc("/books", a.ListBooksHandler).Methods("GET")
	r.HandleFunc("/books/{id}", a.GetBookHandler).Methods("GET")
	r.HandleFunc("/promotions", a.ListPromotionsHandler).Methods("GET")
	r.HandleFunc("/payment/callback", a.PaymentCallbackHandler).Methods("GET")

	orders := r.PathPrefix("/orders").Subrouter()
	orders.Use(middleware.AuthMiddleware)
	orders.HandleFunc("", a.ListOrdersHandler).Methods("GET")

	// storefront endpoints run inside a client session
	api := r.PathPrefix("/").Subrouter()
	api.Use(middleware.OptionalAuthMiddleware, middleware.ClientIDMiddleware, a.sessions.Middleware)

	api.HandleFunc("/account", a.AccountHandler).Methods("GET")
	api.HandleFunc("/logout", a.LogoutHandler).Methods("POST")
	api.HandleFunc("/cart", a.GetCartHandler).Methods("GET")
	api.HandleFunc("/cart/lines", a.AddCartLineHandler).Methods("POST")
	api.HandleFunc("/cart/lines/{bookId}", a.ChangeCartLineHandler).Methods("PUT")
	api.HandleFunc("/cart/lines/{bookId}", a.RemoveCartLineHandler).Methods("DELETE")
	api.HandleFunc("/checkout", a.CheckoutStateHandler).Methods("GET")
	api.HandleFunc("/checkout/quote", a.QuoteHandler).Methods("GET")
	api.HandleFunc("/checkout/proceed", a.ProceedHandler).Methods("POST")
	api.HandleFunc("/checkout/back", a.BackHandler).Methods("POST")
	api.HandleFunc("/checkout/reset", a.ResetHandler).Methods("POST")
	api.HandleFunc("/checkout/submit", a.SubmitOrderHandler).Methods("POST")
	api.HandleFunc("/checkout/payment", a.StartPaymentHandler).Methods("POST")
	return r
}

func (a *App) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req model.LoginReq

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		helper.WriteErrorJSON(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var user repository.User
	var err error
	if strings.Contains(req.EmailOrPhone, "@") {
		user, err = repository.GetUserByEmail(a.db, req.EmailOrPhone)
	} else {
		user, err = repository.GetUserByPhone(a.db, req.EmailOrPhone)
	}

	if err != nil {
		helper.WriteErrorJSON(w, http.StatusUnauthorized, "user not found")
		return
	}

	if !helper.CheckPasswordHash(req.Password, user.PasswordHash) {
		helper.WriteErrorJSON(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	if user.Status != model.UserStatusActive {
		helper.WriteErrorJSON(w, http.StatusForbidden, "account disabled")
		return
	}

	token, err := helper.GenerateJWT(user.ID)
	if err != nil {
		helper.WriteErrorJSON(w, http.StatusInternalServerError, "failed to generate token")
		return
	}

	helper.WriteJSON(w, http.StatusOK, model.LoginResp{Token: token})
}

func (a *App) ListBooksHandler(w http.ResponseWriter, r *http.Request) {
	books, err := a.catalog.ListBooks(r.Context())
	if err != nil {
		a.writeError(w, err)
		return
	}
	helper.WriteJSON(w, http.StatusOK, books)
}

func (a *App) GetBookHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt(w, r, "id")
	if !ok {
		return
	}

	book, err := a.catalog.GetBook(r.Context(), id)
	if err != nil {
		a.writeError(w, err)
		return
	}
	helper.WriteJSON(w, http.StatusOK, book)
}

func (a *App) ListPromotionsHandler(w http.ResponseWriter, r *http.Request) {
	promos, err := a.promos.Available(r.Context())
	if err != nil {
		a.writeError(w, err)
		return
	}
	helper.WriteJSON(w, http.StatusOK, promos)
}

func (a *App) ListOrdersHandler(w http.ResponseWriter, r *http.Request) {
	orders, err := a.history.ListOrders(r.Context(), helper.GetUserIDFromContext(r.Context()))
	if err != nil {
		a.writeError(w, err)
		return
	}
	helper.WriteJSON(w, http.StatusOK, orders)
}

func (a *App) AccountHandler(w http.ResponseWriter, r *http.Request) {
	st, ok := a.state(w, r)
	if !ok {
		return
	}
	helper.WriteJSON(w, http.StatusOK, model.AccountResp{User: st.User, Authenticated: st.Authenticated, Cart: st.Cart})
}

func (a *App) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	st, ok := a.state(w, r)
	if !ok {
		return
	}
	if err := a.sessions.Teardown(r.Context(), st); err != nil {
		a.logger.Warn("logout left client state behind", zap.String("client_id", st.ClientID), zap.Error(err))
	}
	helper.WriteJSON(w, http.StatusOK, model.AccountResp{User: st.User, Authenticated: st.Authenticated, Cart: st.Cart})
}

func (a *App) GetCartHandler(w http.ResponseWriter, r *http.Request) {
	st, ok := a.state(w, r)
	if !ok {
		return
	}
	writeCart(w, st.Cart)
}

func (a *App) AddCartLineHandler(w http.ResponseWriter, r *http.Request) {
	st, ok := a.state(w, r)
	if !ok {
		return
	}

	var req model.AddCartLineReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		helper.WriteErrorJSON(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.BookID <= 0 {
		helper.WriteErrorJSON(w, http.StatusBadRequest, "book_id required")
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	lines, err := a.carts.Add(r.Context(), st, req.BookID, req.Quantity)
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeCart(w, lines)
}

func (a *App) ChangeCartLineHandler(w http.ResponseWriter, r *http.Request) {
	st, ok := a.state(w, r)
	if !ok {
		return
	}
	bookID, ok := pathInt(w, r, "bookId")
	if !ok {
		return
	}

	var req model.ChangeQuantityReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		helper.WriteErrorJSON(w, http.StatusBadRequest, "invalid json")
		return
	}

	lines, err := a.carts.ChangeQuantity(r.Context(), st, bookID, req.Quantity)
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeCart(w, lines)
}

func (a *App) RemoveCartLineHandler(w http.ResponseWriter, r *http.Request) {
	st, ok := a.state(w, r)
	if !ok {
		return
	}
	bookID, ok := pathInt(w, r, "bookId")
	if !ok {
		return
	}

	lines, err := a.carts.Remove(r.Context(), st, bookID)
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeCart(w, lines)
}

func (a *App) CheckoutStateHandler(w http.ResponseWriter, r *http.Request) {
	st, ok := a.state(w, r)
	if !ok {
		return
	}

	step, err := a.checkout.Step(r.Context(), st)
	if err != nil {
		a.writeError(w, err)
		return
	}
	pending, err := a.checkout.PendingPayment(r.Context(), st)
	if err != nil {
		a.writeError(w, err)
		return
	}

	helper.WriteJSON(w, http.StatusOK, model.CheckoutStateResp{
		Step:     string(step),
		Subtotal: cart.Subtotal(st.Cart),
		Pending:  pending,
	})
}

func (a *App) QuoteHandler(w http.ResponseWriter, r *http.Request) {
	st, ok := a.state(w, r)
	if !ok {
		return
	}

	var promotionID *int
	if raw := r.URL.Query().Get("promotion_id"); raw != "" {
		id, err := strconv.Atoi(raw)
		if err != nil || id <= 0 {
			helper.WriteErrorJSON(w, http.StatusBadRequest, "invalid promotion_id")
			return
		}
		promotionID = &id
	}

	quote, err := a.checkout.Quote(r.Context(), st, promotionID)
	if err != nil {
		a.writeError(w, err)
		return
	}
	helper.WriteJSON(w, http.StatusOK, quote)
}

func (a *App) ProceedHandler(w http.ResponseWriter, r *http.Request) {
	a.moveStep(w, r, a.checkout.Proceed)
}

func (a *App) BackHandler(w http.ResponseWriter, r *http.Request) {
	a.moveStep(w, r, a.checkout.Back)
}

func (a *App) ResetHandler(w http.ResponseWriter, r *http.Request) {
	a.moveStep(w, r, a.checkout.Reset)
}

func (a *App) moveStep(w http.ResponseWriter, r *http.Request, move func(context.Context, *session.State) (checkout.Step, error)) {
	st, ok := a.state(w, r)
	if !ok {
		return
	}

	step, err := move(r.Context(), st)
	if err != nil {
		a.writeError(w, err)
		return
	}
	helper.WriteJSON(w, http.StatusOK, map[string]string{"step": string(step)})
}

func (a *App) SubmitOrderHandler(w http.ResponseWriter, r *http.Request) {
	st, ok := a.state(w, r)
	if !ok {
		return
	}

	var req model.SubmitOrderReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		helper.WriteErrorJSON(w, http.StatusBadRequest, "invalid json")
		return
	}

	res, err := a.checkout.Submit(r.Context(), st, checkout.SubmitRequest{Address: req.Address, PromotionID: req.PromotionID})
	if err != nil {
		a.writeError(w, err)
		return
	}

	helper.WriteJSON(w, http.StatusCreated, model.SubmitOrderResp{
		OrderID:    res.OrderID,
		FinalPrice: res.FinalPrice,
		Step:       string(checkout.StepConfirmation),
	})
}

func (a *App) StartPaymentHandler(w http.ResponseWriter, r *http.Request) {
	st, ok := a.state(w, r)
	if !ok {
		return
	}

	var req model.SubmitOrderReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		helper.WriteErrorJSON(w, http.StatusBadRequest, "invalid json")
		return
	}

	start, err := a.checkout.StartPayment(r.Context(), st, checkout.SubmitRequest{Address: req.Address, PromotionID: req.PromotionID})
	if err != nil {
		a.writeError(w, err)
		return
	}

	helper.WriteJSON(w, http.StatusCreated, model.StartPaymentResp{Token: start.Token, RedirectURL: start.RedirectURL})
}

func (a *App) PaymentCallbackHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	token := q.Get("token")
	if _, err := uuid.Parse(token); err != nil {
		helper.WriteErrorJSON(w, http.StatusBadRequest, "invalid token")
		return
	}

	res, err := a.checkout.CompletePayment(r.Context(), checkout.Callback{
		Token:     token,
		Amount:    q.Get("amount"),
		Status:    q.Get("status"),
		Signature: q.Get("sig"),
	})
	if err != nil {
		a.writeError(w, err)
		return
	}

	helper.WriteJSON(w, http.StatusOK, map[string]any{
		"order_id":    res.OrderID,
		"final_price": res.FinalPrice,
		"replayed":    res.Replayed,
		"step":        string(checkout.StepConfirmation),
	})
}

func (a *App) state(w http.ResponseWriter, r *http.Request) (*session.State, bool) {
	st, err := session.FromContext(r.Context())
	if err != nil {
		a.writeError(w, err)
		return nil, false
	}
	return st, true
}

func writeCart(w http.ResponseWriter, lines []model.CartLine) {
	helper.WriteJSON(w, http.StatusOK, model.CartResp{Lines: lines, Subtotal: cart.Subtotal(lines)})
}

func pathInt(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	v, err := strconv.Atoi(mux.Vars(r)[name])
	if err != nil || v <= 0 {
		helper.WriteErrorJSON(w, http.StatusBadRequest, "invalid "+name)
		return 0, false
	}
	return v, true
}

// writeError turns a flow error into the notification shown to the shopper.
func (a *App) writeError(w http.ResponseWriter, err error) {
	var stockErr *model.InsufficientStockError
	if errors.As(err, &stockErr) {
		helper.WriteStockErrorJSON(w, stockErr)
		return
	}

	switch {
	case errors.Is(err, cart.ErrInvalidQuantity),
		errors.Is(err, checkout.ErrMissingAddress):
		helper.WriteErrorJSON(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, checkout.ErrNotAuthenticated),
		errors.Is(err, checkout.ErrBadSignature):
		helper.WriteErrorJSON(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, checkout.ErrPaymentDeclined):
		helper.WriteErrorJSON(w, http.StatusPaymentRequired, err.Error())
	case errors.Is(err, repository.ErrBookNotFound),
		errors.Is(err, repository.ErrPromotionNotFound),
		errors.Is(err, repository.ErrIntentNotFound),
		errors.Is(err, cart.ErrLineNotFound):
		helper.WriteErrorJSON(w, http.StatusNotFound, err.Error())
	case errors.Is(err, cart.ErrOutOfStock),
		errors.Is(err, checkout.ErrEmptyCart),
		errors.Is(err, checkout.ErrWrongStep),
		errors.Is(err, checkout.ErrInvalidTransition),
		errors.Is(err, promotion.ErrNotSelectable),
		errors.Is(err, repository.ErrPromotionUnavailable),
		errors.Is(err, repository.ErrIntentExpired),
		errors.Is(err, repository.ErrIntentFailed),
		errors.Is(err, repository.ErrIntentNotPending),
		errors.Is(err, repository.ErrCartLineNotFound):
		helper.WriteErrorJSON(w, http.StatusConflict, err.Error())
	default:
		a.logger.Error("request failed", zap.Error(err))
		helper.WriteErrorJSON(w, http.StatusInternalServerError, "internal error")
	}
}
