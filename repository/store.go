package repository

import (
	"context"
	"database/sql"
	"time"

	"bookstore-storefront/model"

	"go.uber.org/zap"
)

// Store binds the package functions to one database so the storefront
// services can depend on narrow interfaces instead of *sql.DB.
type Store struct {
	DB        *sql.DB
	Logger    *zap.Logger
	IntentTTL time.Duration
}

func NewStore(db *sql.DB, logger *zap.Logger, intentTTL time.Duration) *Store {
	return &Store{DB: db, Logger: logger, IntentTTL: intentTTL}
}

func (s *Store) FetchAccount(ctx context.Context, userID int) (*model.Account, error) {
	return GetAccount(ctx, s.DB, userID)
}

func (s *Store) AddCartLine(ctx context.Context, userID, bookID, qty int) error {
	return AddCartLine(ctx, s.DB, userID, bookID, qty)
}

func (s *Store) SetCartLineQuantity(ctx context.Context, userID, bookID, qty int) error {
	return SetCartLineQuantity(ctx, s.DB, userID, bookID, qty)
}

func (s *Store) RemoveCartLine(ctx context.Context, userID, bookID int) error {
	return DeleteCartLine(ctx, s.DB, userID, bookID)
}

func (s *Store) ListBooks(ctx context.Context) ([]model.Book, error) {
	return GetAllBooks(ctx, s.DB)
}

func (s *Store) GetBook(ctx context.Context, bookID int) (model.Book, error) {
	return GetBook(ctx, s.DB, bookID)
}

func (s *Store) GetBooks(ctx context.Context, ids []int) ([]model.Book, error) {
	return GetBooksByIDs(ctx, s.DB, ids)
}

func (s *Store) ListPromotions(ctx context.Context) ([]model.Promotion, error) {
	return GetAllPromotions(ctx, s.DB)
}

func (s *Store) GetPromotion(ctx context.Context, promotionID int) (model.Promotion, error) {
	return GetPromotion(ctx, s.DB, promotionID)
}

func (s *Store) CreateOrder(ctx context.Context, req model.OrderRequest) (int, error) {
	return CreateOrder(ctx, s.DB, s.Logger, req)
}

func (s *Store) ListOrders(ctx context.Context, userID int) ([]model.Order, error) {
	return ListOrdersByUser(ctx, s.DB, userID)
}

func (s *Store) CreateIntent(ctx context.Context, intent model.OrderIntent) error {
	return CreateOrderIntent(ctx, s.DB, intent)
}

func (s *Store) CompleteIntent(ctx context.Context, token string) (model.OrderIntent, bool, error) {
	return CompleteOrderIntent(ctx, s.DB, s.Logger, token, s.IntentTTL)
}

func (s *Store) FailIntent(ctx context.Context, token string) error {
	return FailOrderIntent(ctx, s.DB, token)
}

func (s *Store) ExpireIntent(ctx context.Context, token string) error {
	return ExpireOrderIntent(ctx, s.DB, token)
}
