package model

import "github.com/shopspring/decimal"

type LoginReq struct {
	EmailOrPhone string `json:"email_or_phone"`
	Password     string `json:"password"`
}

type LoginResp struct {
	Token string `json:"token"`
}

type AddCartLineReq struct {
	BookID   int `json:"book_id"`
	Quantity int `json:"quantity"`
}

type ChangeQuantityReq struct {
	Quantity int `json:"quantity"`
}

type CartResp struct {
	Lines    []CartLine      `json:"lines"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

type AccountResp struct {
	User          *User      `json:"user"`
	Authenticated bool       `json:"authenticated"`
	Cart          []CartLine `json:"cart"`
}

type SubmitOrderReq struct {
	Address     string `json:"address"`
	PromotionID *int   `json:"promotion_id,omitempty"`
}

type SubmitOrderResp struct {
	OrderID    int             `json:"order_id"`
	FinalPrice decimal.Decimal `json:"final_price"`
	Step       string          `json:"step"`
}

type StartPaymentResp struct {
	Token       string `json:"token"`
	RedirectURL string `json:"redirect_url"`
}

type CheckoutStateResp struct {
	Step     string          `json:"step"`
	Subtotal decimal.Decimal `json:"subtotal"`
	Pending  string          `json:"pending_token,omitempty"`
}
