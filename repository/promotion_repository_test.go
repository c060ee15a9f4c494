package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

var promotionColumns = []string{"id", "code", "name", "discount_percent", "valid_from", "valid_to", "remaining_quantity", "status"}

func TestGetAllPromotions_Success(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer db.Close()

	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)
	mock.ExpectQuery(regexp.QuoteMeta(`FROM promotions ORDER BY valid_to, id`)).
		WillReturnRows(sqlmock.NewRows(promotionColumns).
			AddRow(1, "HEMAT10", "Hemat 10%", "10", from, to, 5, "active").
			AddRow(2, "HABIS", "Sold out", "25.5", from, to, 0, "active"))

	promos, err := GetAllPromotions(context.Background(), db)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(promos) != 2 {
		t.Fatalf("expected 2 promotions, got %d", len(promos))
	}
	if promos[1].DiscountPercent.String() != "25.5" {
		t.Fatalf("discount mismatch: %s", promos[1].DiscountPercent)
	}
	if !promos[0].ValidTo.Equal(to) {
		t.Fatalf("valid_to mismatch")
	}
}

func TestGetPromotion_NotFound(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer db.Close()

	mock.ExpectQuery(`FROM promotions WHERE id = \$1`).
		WithArgs(9).
		WillReturnError(sql.ErrNoRows)

	_, err := GetPromotion(context.Background(), db, 9)
	if !errors.Is(err, ErrPromotionNotFound) {
		t.Fatalf("expected ErrPromotionNotFound, got %v", err)
	}
}

func TestRedeemPromotion_Unavailable(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE promotions SET remaining_quantity = remaining_quantity - 1 WHERE id = $1`)).
		WithArgs(3).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	tx, err := db.Begin()
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	err = redeemPromotion(context.Background(), tx, 3)
	tx.Rollback()

	if !errors.Is(err, ErrPromotionUnavailable) {
		t.Fatalf("expected ErrPromotionUnavailable, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
