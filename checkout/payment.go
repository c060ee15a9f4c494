package checkout

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"

	"bookstore-storefront/model"
	"bookstore-storefront/session"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Callback is what the gateway sends back once the shopper left its page.
// Amount is kept as sent so the signature is checked over the exact bytes.
type Callback struct {
	Token     string
	Amount    string
	Status    string
	Signature string
}

// StartPayment records a durable order intent and returns where to send the
// shopper to pay. The client only keeps the intent token. An earlier
// unfinished payment of the same client is closed so one cart never has two
// intents that can complete.
func (s *Submitter) StartPayment(ctx context.Context, st *session.State, req SubmitRequest) (PaymentStart, error) {
	orderReq, quote, err := s.prepare(ctx, st, req)
	if err != nil {
		return PaymentStart{}, err
	}

	token := s.newToken()
	redirect, err := s.Gateway.RedirectURL(token, quote.FinalPrice)
	if err != nil {
		return PaymentStart{}, err
	}

	intent := model.OrderIntent{
		Token:    token,
		ClientID: st.ClientID,
		UserID:   orderReq.UserID,
		Request:  orderReq,
		Status:   model.IntentStatusPending,
	}
	if err := s.Intents.CreateIntent(ctx, intent); err != nil {
		return PaymentStart{}, err
	}

	if err := s.Store.ArmIntentExpiry(ctx, token, s.IntentTTL); err != nil {
		s.Logger.Warn("failed to arm intent expiry", zap.String("token", token), zap.Error(err))
	}

	prev, err := s.Store.SwapPendingPayment(ctx, st.ClientID, token)
	if err != nil {
		s.closeIntent(ctx, token)
		return PaymentStart{}, err
	}
	if prev != "" && prev != token {
		s.Logger.Info("superseding unfinished payment",
			zap.String("client_id", st.ClientID), zap.String("token", prev))
		s.closeIntent(ctx, prev)
	}

	s.Logger.Info("payment started",
		zap.String("token", token),
		zap.String("username", orderReq.Username),
		zap.Stringer("final_price", quote.FinalPrice))

	return PaymentStart{Token: token, RedirectURL: redirect}, nil
}

// closeIntent fails a pending intent and stops its expiry window. An intent
// that already left pending is left alone.
func (s *Submitter) closeIntent(ctx context.Context, token string) {
	if err := s.Intents.FailIntent(ctx, token); err != nil {
		s.Logger.Warn("failed to close payment intent", zap.String("token", token), zap.Error(err))
	}
	s.disarm(ctx, token)
}

// PendingPayment returns the token of the client's unfinished payment, if any.
func (s *Submitter) PendingPayment(ctx context.Context, st *session.State) (string, error) {
	return s.Store.LoadPendingPayment(ctx, st.ClientID)
}

// CompletePayment handles the gateway callback. Callbacks without a valid
// gateway signature are rejected before any state changes. However often a
// signed callback fires, at most one order is created; repeats return that
// order.
func (s *Submitter) CompletePayment(ctx context.Context, cb Callback) (Result, error) {
	if err := s.Gateway.VerifyCallback(cb); err != nil {
		s.Logger.Warn("payment callback rejected", zap.String("token", cb.Token), zap.Error(err))
		return Result{}, err
	}
	token := cb.Token

	if cb.Status != PaymentStatusPaid {
		if err := s.Intents.FailIntent(ctx, token); err != nil {
			return Result{}, err
		}
		s.disarm(ctx, token)
		s.Logger.Info("payment declined", zap.String("token", token), zap.String("status", cb.Status))
		return Result{}, ErrPaymentDeclined
	}

	intent, replayed, err := s.Intents.CompleteIntent(ctx, token)
	if err != nil {
		s.Logger.Error("intent completion failed", zap.String("token", token), zap.Error(err))
		return Result{}, err
	}

	res := Result{OrderID: intent.OrderID, FinalPrice: intent.Request.FinalPrice, Replayed: replayed}
	if replayed {
		s.Logger.Info("payment callback replayed",
			zap.String("token", token), zap.Int("order_id", intent.OrderID))
		return res, nil
	}

	s.disarm(ctx, token)
	s.finish(ctx, intent.ClientID, intent.UserID, intent.Request.Lines)
	if err := s.Store.ClearPendingPayment(ctx, intent.ClientID); err != nil {
		s.Logger.Warn("failed to clear pending payment", zap.String("client_id", intent.ClientID), zap.Error(err))
	}

	s.Logger.Info("order placed from payment",
		zap.String("token", token), zap.Int("order_id", intent.OrderID))
	return res, nil
}

func (s *Submitter) disarm(ctx context.Context, token string) {
	if err := s.Store.DisarmIntentExpiry(ctx, token); err != nil {
		s.Logger.Warn("failed to disarm intent expiry", zap.String("token", token), zap.Error(err))
	}
}

// HostedGateway redirects to a hosted payment page that calls back ReturnURL
// with the token, the amount, a status and a signature. Both directions are
// signed with HMAC-SHA256 under Secret; without a secret nothing is signed or
// accepted.
type HostedGateway struct {
	BaseURL   string
	ReturnURL string
	Secret    string
}

var errNoGatewaySecret = errors.New("payment gateway secret not configured")

func (g HostedGateway) RedirectURL(token string, amount decimal.Decimal) (string, error) {
	if g.Secret == "" {
		return "", errNoGatewaySecret
	}
	u, err := url.Parse(g.BaseURL)
	if err != nil {
		return "", fmt.Errorf("invalid payment gateway url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("invalid payment gateway url: %q", g.BaseURL)
	}

	fixed := amount.StringFixed(0)
	q := u.Query()
	q.Set("token", token)
	q.Set("amount", fixed)
	q.Set("return_url", g.ReturnURL)
	q.Set("sig", g.sign(token, fixed))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// SignCallback is the signature the gateway attaches to a callback.
func (g HostedGateway) SignCallback(token, amount, status string) string {
	return g.sign(token, amount, status)
}

func (g HostedGateway) VerifyCallback(cb Callback) error {
	if g.Secret == "" || cb.Token == "" || cb.Signature == "" {
		return ErrBadSignature
	}
	got, err := hex.DecodeString(cb.Signature)
	if err != nil {
		return ErrBadSignature
	}
	want, _ := hex.DecodeString(g.sign(cb.Token, cb.Amount, cb.Status))
	if !hmac.Equal(got, want) {
		return ErrBadSignature
	}
	return nil
}

func (g HostedGateway) sign(parts ...string) string {
	mac := hmac.New(sha256.New, []byte(g.Secret))
	for i, p := range parts {
		if i > 0 {
			mac.Write([]byte{'|'})
		}
		mac.Write([]byte(p))
	}
	return hex.EncodeToString(mac.Sum(nil))
}
