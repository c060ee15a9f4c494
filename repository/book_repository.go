package repository

import (
	"context"
	"database/sql"
	"fmt"

	"bookstore-storefront/model"

	"github.com/lib/pq"
)

func scanBooks(rows *sql.Rows) ([]model.Book, error) {
	defer rows.Close()

	books := []model.Book{}
	for rows.Next() {
		var b model.Book
		if err := rows.Scan(&b.ID, &b.Title, &b.Author, &b.Category, &b.Price, &b.Stock); err != nil {
			return nil, err
		}
		books = append(books, b)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return books, nil
}

func GetAllBooks(ctx context.Context, db *sql.DB) ([]model.Book, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, title, author, category, price, stock
		FROM books
		ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	return scanBooks(rows)
}

func GetBook(ctx context.Context, db *sql.DB, bookID int) (model.Book, error) {
	var b model.Book
	err := db.QueryRowContext(ctx, `
		SELECT id, title, author, category, price, stock
		FROM books
		WHERE id = $1
	`, bookID).Scan(&b.ID, &b.Title, &b.Author, &b.Category, &b.Price, &b.Stock)

	if err == sql.ErrNoRows {
		return model.Book{}, ErrBookNotFound
	}
	if err != nil {
		return model.Book{}, fmt.Errorf("failed to query book: %w", err)
	}
	return b, nil
}

// GetBooksByIDs returns the books that exist among ids; missing ids are
// simply absent from the result.
func GetBooksByIDs(ctx context.Context, db *sql.DB, ids []int) ([]model.Book, error) {
	if len(ids) == 0 {
		return []model.Book{}, nil
	}

	rows, err := db.QueryContext(ctx, `
		SELECT id, title, author, category, price, stock
		FROM books
		WHERE id = ANY($1)
		ORDER BY id
	`, pq.Array(toInt64(ids)))
	if err != nil {
		return nil, err
	}
	return scanBooks(rows)
}

func toInt64(ids []int) []int64 {
	out := make([]int64, len(ids))
	for i, id := range ids {
		out[i] = int64(id)
	}
	return out
}
