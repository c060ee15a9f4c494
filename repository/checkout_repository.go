package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"bookstore-storefront/model"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

type lockedBook struct {
	Title string
	Stock int
}

// CreateOrder places the order in a single transaction: book rows are locked,
// stock is checked and decremented, the promotion is redeemed and the order
// with its items is inserted.
func CreateOrder(ctx context.Context, db *sql.DB, logger *zap.Logger, req model.OrderRequest) (int, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	orderID, err := createOrderTx(ctx, tx, logger, req)
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return orderID, nil
}

func createOrderTx(ctx context.Context, tx *sql.Tx, logger *zap.Logger, req model.OrderRequest) (int, error) {
	if len(req.Lines) == 0 {
		return 0, errors.New("order has no lines")
	}

	ids := make([]int, len(req.Lines))
	for i, l := range req.Lines {
		ids[i] = l.BookID
	}

	// 1. lock the books in id order so concurrent orders do not deadlock
	rows, err := tx.QueryContext(ctx, `
		SELECT id, title, stock
		FROM books
		WHERE id = ANY($1)
		ORDER BY id
		FOR UPDATE
	`, pq.Array(toInt64(ids)))
	if err != nil {
		return 0, err
	}

	locked := map[int]lockedBook{}
	for rows.Next() {
		var id int
		var b lockedBook
		if err := rows.Scan(&id, &b.Title, &b.Stock); err != nil {
			rows.Close()
			return 0, err
		}
		locked[id] = b
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	// 2. stock check across every line before touching anything
	var shortages []model.StockShortage
	for _, l := range req.Lines {
		b, ok := locked[l.BookID]
		if !ok {
			shortages = append(shortages, model.StockShortage{
				BookID: l.BookID, Title: fmt.Sprintf("book #%d", l.BookID), Requested: l.Quantity,
			})
			continue
		}
		if b.Stock < l.Quantity {
			shortages = append(shortages, model.StockShortage{
				BookID: l.BookID, Title: b.Title, Requested: l.Quantity, Available: b.Stock,
			})
		}
	}
	if len(shortages) > 0 {
		return 0, &model.InsufficientStockError{Items: shortages}
	}

	// 3. redeem the promotion
	if req.PromotionID != nil {
		if err := redeemPromotion(ctx, tx, *req.PromotionID); err != nil {
			return 0, err
		}
	}

	// 4. order header
	var orderID int
	err = tx.QueryRowContext(ctx, `
		INSERT INTO orders (user_id, address, promotion_id, final_price, status)
		VALUES ($1, $2, $3, $4, 'placed') RETURNING id
	`, req.UserID, req.Address, req.PromotionID, req.FinalPrice).Scan(&orderID)
	if err != nil {
		return 0, err
	}

	// 5. items and stock
	for _, l := range req.Lines {
		_, err := tx.ExecContext(ctx, `
			UPDATE books
			SET stock = stock - $1
			WHERE id = $2
		`, l.Quantity, l.BookID)
		if err != nil {
			return 0, err
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO order_items (order_id, book_id, quantity, unit_price)
			SELECT $1, id, $2, price FROM books WHERE id = $3
		`, orderID, l.Quantity, l.BookID)
		if err != nil {
			return 0, err
		}

		logger.Debug("order line placed",
			zap.Int("order_id", orderID),
			zap.Int("book_id", l.BookID),
			zap.Int("quantity", l.Quantity))
	}

	return orderID, nil
}

// ListOrdersByUser returns the order history of a user, newest first.
func ListOrdersByUser(ctx context.Context, db *sql.DB, userID int) ([]model.Order, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT o.id, o.address, o.promotion_id, o.final_price, o.status, o.created_at,
		       oi.book_id, b.title, oi.quantity, oi.unit_price
		FROM orders o
		JOIN order_items oi ON oi.order_id = o.id
		JOIN books b ON b.id = oi.book_id
		WHERE o.user_id = $1
		ORDER BY o.created_at DESC, o.id DESC, oi.book_id
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orders := []model.Order{}
	index := map[int]int{}
	for rows.Next() {
		var o model.Order
		var promo sql.NullInt64
		var l model.OrderLine
		if err := rows.Scan(&o.ID, &o.Address, &promo, &o.FinalPrice, &o.Status, &o.CreatedAt,
			&l.BookID, &l.Title, &l.Quantity, &l.UnitPrice); err != nil {
			return nil, err
		}

		i, seen := index[o.ID]
		if !seen {
			if promo.Valid {
				id := int(promo.Int64)
				o.PromotionID = &id
			}
			orders = append(orders, o)
			i = len(orders) - 1
			index[o.ID] = i
		}
		orders[i].Lines = append(orders[i].Lines, l)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return orders, nil
}
