package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

//
// ────────────────────────────────────────────────────────────────
//   GET USER BY EMAIL
// ────────────────────────────────────────────────────────────────
//

func TestGetUserByEmail_Success(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer db.Close()

	rows := sqlmock.NewRows([]string{
		"id", "email", "phone", "password_hash", "status",
	}).AddRow(1, "test@example.com", "08123", "hash", "active")

	mock.ExpectQuery(regexp.QuoteMeta(
		`SELECT id, email, phone, password_hash, status FROM users WHERE email = $1`,
	)).WithArgs("test@example.com").WillReturnRows(rows)

	u, err := GetUserByEmail(db, "test@example.com")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if u.Email != "test@example.com" {
		t.Fatalf("email mismatch")
	}
	if u.Status != "active" {
		t.Fatalf("status mismatch: %s", u.Status)
	}
}

func TestGetUserByEmail_NoRows(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta(
		`SELECT id, email, phone, password_hash, status FROM users WHERE email = $1`,
	)).
		WithArgs("x@example.com").
		WillReturnError(sql.ErrNoRows)

	_, err := GetUserByEmail(db, "x@example.com")
	if err == nil {
		t.Fatalf("expected error for no rows")
	}
}

//
// ────────────────────────────────────────────────────────────────
//   GET USER BY PHONE
// ────────────────────────────────────────────────────────────────
//

func TestGetUserByPhone_Success(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer db.Close()

	rows := sqlmock.NewRows([]string{
		"id", "email", "phone", "password_hash", "status",
	}).AddRow(1, "p@example.com", "08123", "hash", "active")

	mock.ExpectQuery(`SELECT id, email, phone, password_hash, status FROM users WHERE phone = \$1`).
		WithArgs("08123").WillReturnRows(rows)

	u, err := GetUserByPhone(db, "08123")
	if err != nil {
		t.Fatalf("unexpected: %v", err)
	}
	if u.Phone != "08123" {
		t.Fatalf("phone mismatch")
	}
}

func TestGetUserByPhone_NoRows(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer db.Close()

	mock.ExpectQuery(`SELECT id, email, phone, password_hash, status FROM users WHERE phone = \$1`).
		WithArgs("000").
		WillReturnError(sql.ErrNoRows)

	_, err := GetUserByPhone(db, "000")
	if err == nil {
		t.Fatalf("expected error for no rows")
	}
}

//
// ────────────────────────────────────────────────────────────────
//   GET ACCOUNT
// ────────────────────────────────────────────────────────────────
//

var cartLineColumns = []string{"book_id", "quantity", "title", "author", "category", "price", "stock"}

func TestGetAccount_Success(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT ` + userColumns + ` FROM users WHERE id = $1`)).
		WithArgs(7).
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "name", "email", "phone", "address", "role", "status"}).
			AddRow(7, "rina", "Rina", "rina@example.com", "0812", "Jl. Merdeka 1", "customer", "active"))

	mock.ExpectQuery(regexp.QuoteMeta(`FROM cart_items ci JOIN books b ON b.id = ci.book_id WHERE ci.user_id = $1`)).
		WithArgs(7).
		WillReturnRows(sqlmock.NewRows(cartLineColumns).
			AddRow(1, 2, "Go in Action", "Kennedy", "programming", "50000", 5).
			AddRow(3, 1, "Laskar Pelangi", "Hirata", "novel", "75000.50", 9))

	acc, err := GetAccount(context.Background(), db, 7)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if acc.User.Username != "rina" || acc.User.Address != "Jl. Merdeka 1" {
		t.Fatalf("user mismatch: %+v", acc.User)
	}
	if len(acc.Cart) != 2 {
		t.Fatalf("expected 2 cart lines, got %d", len(acc.Cart))
	}
	if acc.Cart[0].Book.ID != 1 || acc.Cart[0].Quantity != 2 {
		t.Fatalf("cart line mismatch: %+v", acc.Cart[0])
	}
	if acc.Cart[1].Book.Price.String() != "75000.5" {
		t.Fatalf("price mismatch: %s", acc.Cart[1].Book.Price)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestGetAccount_EmptyCart(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer db.Close()

	mock.ExpectQuery(`FROM users WHERE id = \$1`).
		WithArgs(7).
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "name", "email", "phone", "address", "role", "status"}).
			AddRow(7, "rina", "Rina", "", "", "", "customer", "active"))
	mock.ExpectQuery(`FROM cart_items`).
		WithArgs(7).
		WillReturnRows(sqlmock.NewRows(cartLineColumns))

	acc, err := GetAccount(context.Background(), db, 7)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if acc.Cart == nil || len(acc.Cart) != 0 {
		t.Fatalf("expected empty non-nil cart, got %#v", acc.Cart)
	}
}

func TestGetAccount_NotFound(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer db.Close()

	mock.ExpectQuery(`FROM users WHERE id = \$1`).
		WithArgs(404).
		WillReturnError(sql.ErrNoRows)

	_, err := GetAccount(context.Background(), db, 404)
	if !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestGetAccount_CartQueryFails(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer db.Close()

	mock.ExpectQuery(`FROM users WHERE id = \$1`).
		WithArgs(7).
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "name", "email", "phone", "address", "role", "status"}).
			AddRow(7, "rina", "Rina", "", "", "", "customer", "active"))
	mock.ExpectQuery(`FROM cart_items`).
		WithArgs(7).
		WillReturnError(errors.New("connection reset"))

	if _, err := GetAccount(context.Background(), db, 7); err == nil {
		t.Fatalf("expected error")
	}
}
