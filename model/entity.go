package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	UserStatusActive = "active"

	PromotionStatusActive = "active"

	IntentStatusPending   = "pending"
	IntentStatusCompleted = "completed"
	IntentStatusFailed    = "failed"
	IntentStatusExpired   = "expired"
)

type User struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
	Role     string `json:"role"`
	Status   string `json:"status"`
}

type Book struct {
	ID       int             `json:"id"`
	Title    string          `json:"title"`
	Author   string          `json:"author"`
	Category string          `json:"category"`
	Price    decimal.Decimal `json:"price"`
	Stock    int             `json:"stock"`
}

// CartLine is one (book, quantity) pairing. Book is a snapshot taken when the
// line was added or when the cart was last loaded from the account.
type CartLine struct {
	BookID   int  `json:"book_id"`
	Quantity int  `json:"quantity"`
	Book     Book `json:"book"`
}

type Account struct {
	User User
	Cart []CartLine
}

type Promotion struct {
	ID                int             `json:"id"`
	Code              string          `json:"code"`
	Name              string          `json:"name"`
	DiscountPercent   decimal.Decimal `json:"discount_percent"`
	ValidFrom         time.Time       `json:"valid_from"`
	ValidTo           time.Time       `json:"valid_to"`
	RemainingQuantity int             `json:"remaining_quantity"`
	Status            string          `json:"status"`
}

type OrderLineReq struct {
	BookID   int `json:"book_id"`
	Quantity int `json:"quantity"`
}

type OrderRequest struct {
	UserID      int             `json:"user_id"`
	Username    string          `json:"username"`
	Address     string          `json:"address"`
	Lines       []OrderLineReq  `json:"lines"`
	PromotionID *int            `json:"promotion_id,omitempty"`
	FinalPrice  decimal.Decimal `json:"final_price"`
}

type OrderIntent struct {
	Token    string       `json:"token"`
	ClientID string       `json:"client_id"`
	UserID   int          `json:"user_id"`
	Request  OrderRequest `json:"request"`
	Status   string       `json:"status"`
	OrderID  int          `json:"order_id,omitempty"`
}

type OrderLine struct {
	BookID    int             `json:"book_id"`
	Title     string          `json:"title"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

type Order struct {
	ID          int             `json:"id"`
	Address     string          `json:"address"`
	PromotionID *int            `json:"promotion_id,omitempty"`
	FinalPrice  decimal.Decimal `json:"final_price"`
	Status      string          `json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
	Lines       []OrderLine     `json:"lines"`
}

type StockShortage struct {
	BookID    int    `json:"book_id"`
	Title     string `json:"title"`
	Requested int    `json:"requested"`
	Available int    `json:"available"`
}

// InsufficientStockError blocks an order submission and names every book that
// cannot be delivered in the requested quantity.
type InsufficientStockError struct {
	Items []StockShortage
}

func (e *InsufficientStockError) Error() string {
	parts := make([]string, 0, len(e.Items))
	for _, it := range e.Items {
		parts = append(parts, fmt.Sprintf("%s (requested %d, available %d)", it.Title, it.Requested, it.Available))
	}
	return "insufficient_stock: " + strings.Join(parts, ", ")
}
