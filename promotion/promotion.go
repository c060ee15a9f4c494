// Package promotion decides which promotions a shopper may pick and prices a
// cart under one.
package promotion

import (
	"context"
	"errors"
	"time"

	"bookstore-storefront/model"

	"github.com/shopspring/decimal"
)

var ErrNotSelectable = errors.New("promotion_not_selectable")

var hundred = decimal.NewFromInt(100)

type Lister interface {
	ListPromotions(ctx context.Context) ([]model.Promotion, error)
	GetPromotion(ctx context.Context, promotionID int) (model.Promotion, error)
}

// Quote is the price of a cart under an optional promotion.
type Quote struct {
	Subtotal    decimal.Decimal `json:"subtotal"`
	Discount    decimal.Decimal `json:"discount"`
	FinalPrice  decimal.Decimal `json:"final_price"`
	PromotionID *int            `json:"promotion_id,omitempty"`
}

// Selectable reports whether p can be applied at now: inside its validity
// window (both ends inclusive), with redemptions left and active status.
func Selectable(p model.Promotion, now time.Time) bool {
	if now.Before(p.ValidFrom) || now.After(p.ValidTo) {
		return false
	}
	return p.RemainingQuantity > 0 && p.Status == model.PromotionStatusActive
}

func Filter(promos []model.Promotion, now time.Time) []model.Promotion {
	out := []model.Promotion{}
	for _, p := range promos {
		if Selectable(p, now) {
			out = append(out, p)
		}
	}
	return out
}

// Apply prices subtotal under p. The final price is rounded half-up to the
// whole currency unit and always lies in [0, subtotal].
func Apply(subtotal decimal.Decimal, p *model.Promotion) Quote {
	q := Quote{Subtotal: subtotal, Discount: decimal.Zero, FinalPrice: subtotal}
	if p == nil {
		return q
	}

	id := p.ID
	q.PromotionID = &id

	percent := p.DiscountPercent
	if percent.IsNegative() {
		percent = decimal.Zero
	}
	if percent.GreaterThan(hundred) {
		percent = hundred
	}

	final := subtotal.Mul(hundred.Sub(percent)).Div(hundred).Round(0)
	if final.GreaterThan(subtotal) {
		final = subtotal
	}
	q.FinalPrice = final
	q.Discount = subtotal.Sub(final)
	return q
}

type Selector struct {
	lister Lister
	now    func() time.Time
}

func NewSelector(lister Lister) *Selector {
	return &Selector{lister: lister, now: time.Now}
}

// Available lists the promotions a shopper may pick right now.
func (s *Selector) Available(ctx context.Context) ([]model.Promotion, error) {
	promos, err := s.lister.ListPromotions(ctx)
	if err != nil {
		return nil, err
	}
	return Filter(promos, s.now()), nil
}

// Select returns the promotion when it is selectable. Nothing is reserved;
// redemption happens when the order is created.
func (s *Selector) Select(ctx context.Context, promotionID int) (model.Promotion, error) {
	p, err := s.lister.GetPromotion(ctx, promotionID)
	if err != nil {
		return model.Promotion{}, err
	}
	if !Selectable(p, s.now()) {
		return model.Promotion{}, ErrNotSelectable
	}
	return p, nil
}
