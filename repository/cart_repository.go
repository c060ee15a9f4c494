package repository

import (
	"context"
	"database/sql"

	"bookstore-storefront/model"
)

func GetCartLines(ctx context.Context, db *sql.DB, userID int) ([]model.CartLine, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT ci.book_id, ci.quantity, b.title, b.author, b.category, b.price, b.stock
		FROM cart_items ci
		JOIN books b ON b.id = ci.book_id
		WHERE ci.user_id = $1
		ORDER BY ci.created_at, ci.book_id
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	lines := []model.CartLine{}
	for rows.Next() {
		var l model.CartLine
		if err := rows.Scan(&l.BookID, &l.Quantity, &l.Book.Title, &l.Book.Author,
			&l.Book.Category, &l.Book.Price, &l.Book.Stock); err != nil {
			return nil, err
		}
		l.Book.ID = l.BookID
		lines = append(lines, l)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}

// AddCartLine merges qty into an existing line or creates one.
func AddCartLine(ctx context.Context, db *sql.DB, userID, bookID, qty int) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO cart_items (user_id, book_id, quantity)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, book_id)
		DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity
	`, userID, bookID, qty)
	return err
}

func SetCartLineQuantity(ctx context.Context, db *sql.DB, userID, bookID, qty int) error {
	res, err := db.ExecContext(ctx, `
		UPDATE cart_items
		SET quantity = $1
		WHERE user_id = $2 AND book_id = $3
	`, qty, userID, bookID)
	if err != nil {
		return err
	}
	return requireAffected(res, ErrCartLineNotFound)
}

func DeleteCartLine(ctx context.Context, db *sql.DB, userID, bookID int) error {
	_, err := db.ExecContext(ctx, `DELETE FROM cart_items WHERE user_id = $1 AND book_id = $2`, userID, bookID)
	return err
}

func requireAffected(res sql.Result, notFound error) error {
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return notFound
	}
	return nil
}
