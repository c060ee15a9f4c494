package repository

import (
	"context"
	"database/sql"
	"fmt"

	"bookstore-storefront/model"
)

func GetAllPromotions(ctx context.Context, db *sql.DB) ([]model.Promotion, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, code, name, discount_percent, valid_from, valid_to, remaining_quantity, status
		FROM promotions
		ORDER BY valid_to, id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	promos := []model.Promotion{}
	for rows.Next() {
		var p model.Promotion
		if err := rows.Scan(&p.ID, &p.Code, &p.Name, &p.DiscountPercent,
			&p.ValidFrom, &p.ValidTo, &p.RemainingQuantity, &p.Status); err != nil {
			return nil, err
		}
		promos = append(promos, p)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return promos, nil
}

func GetPromotion(ctx context.Context, db *sql.DB, promotionID int) (model.Promotion, error) {
	var p model.Promotion
	err := db.QueryRowContext(ctx, `
		SELECT id, code, name, discount_percent, valid_from, valid_to, remaining_quantity, status
		FROM promotions
		WHERE id = $1
	`, promotionID).Scan(&p.ID, &p.Code, &p.Name, &p.DiscountPercent,
		&p.ValidFrom, &p.ValidTo, &p.RemainingQuantity, &p.Status)

	if err == sql.ErrNoRows {
		return model.Promotion{}, ErrPromotionNotFound
	}
	if err != nil {
		return model.Promotion{}, fmt.Errorf("failed to query promotion: %w", err)
	}
	return p, nil
}

// redeemPromotion consumes one unit of a promotion that is still active and
// inside its validity window.
func redeemPromotion(ctx context.Context, tx *sql.Tx, promotionID int) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE promotions
		SET remaining_quantity = remaining_quantity - 1
		WHERE id = $1
		AND status = 'active'
		AND remaining_quantity > 0
		AND NOW() BETWEEN valid_from AND valid_to
	`, promotionID)
	if err != nil {
		return err
	}
	return requireAffected(res, ErrPromotionUnavailable)
}
