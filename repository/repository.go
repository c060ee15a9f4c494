package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"bookstore-storefront/model"
)

var (
	ErrUserNotFound         = errors.New("user_not_found")
	ErrBookNotFound         = errors.New("book_not_found")
	ErrCartLineNotFound     = errors.New("cart_line_not_found")
	ErrPromotionNotFound    = errors.New("promotion_not_found")
	ErrPromotionUnavailable = errors.New("promotion_unavailable")
	ErrIntentNotFound       = errors.New("intent_not_found")
	ErrIntentNotPending     = errors.New("intent_not_pending")
	ErrIntentExpired        = errors.New("intent_expired")
	ErrIntentFailed         = errors.New("intent_failed")
)

// User is the login row; PasswordHash never leaves this package's callers.
type User struct {
	ID           int
	Email        string
	Phone        string
	PasswordHash string
	Status       string
}

const userColumns = `id, username, name, email, phone, address, role, status`

func GetUserByEmail(db *sql.DB, email string) (User, error) {
	var u User
	row := db.QueryRow(`SELECT id, email, phone, password_hash, status FROM users WHERE email = $1`, email)
	err := row.Scan(&u.ID, &u.Email, &u.Phone, &u.PasswordHash, &u.Status)
	return u, err
}

func GetUserByPhone(db *sql.DB, phone string) (User, error) {
	var u User
	row := db.QueryRow(`SELECT id, email, phone, password_hash, status FROM users WHERE phone = $1`, phone)
	err := row.Scan(&u.ID, &u.Email, &u.Phone, &u.PasswordHash, &u.Status)
	return u, err
}

// GetAccount loads the user profile together with the cart collection kept
// on the account.
func GetAccount(ctx context.Context, db *sql.DB, userID int) (*model.Account, error) {
	var u model.User
	err := db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, userID).
		Scan(&u.ID, &u.Username, &u.Name, &u.Email, &u.Phone, &u.Address, &u.Role, &u.Status)
	if err == sql.ErrNoRows {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}

	lines, err := GetCartLines(ctx, db, userID)
	if err != nil {
		return nil, err
	}

	return &model.Account{User: u, Cart: lines}, nil
}
