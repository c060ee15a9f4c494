package helper

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestGetEnv(t *testing.T) {
	// unset key falls back to the default
	v := GetEnv("UNKNOWN_ENV_KEY_XYZ", "default123")
	if v != "default123" {
		t.Fatalf("expected default123, got %s", v)
	}

	// a set key wins over the default
	os.Setenv("MY_ENV_TEST", "hello123")
	v = GetEnv("MY_ENV_TEST", "fallback")
	if v != "hello123" {
		t.Fatalf("expected hello123, got %s", v)
	}
}

func TestGenerateAndValidateJWT(t *testing.T) {
	os.Setenv("JWT_SECRET", "unittestsecret")

	token, err := GenerateJWT(42)
	if err != nil {
		t.Fatalf("GenerateJWT returned error: %v", err)
	}
	if token == "" {
		t.Fatalf("expected token string, got empty")
	}

	claims, err := ValidateJWT(token)
	if err != nil {
		t.Fatalf("ValidateJWT returned error: %v", err)
	}

	userID, ok := claims["user_id"].(float64)
	if !ok {
		t.Fatalf("expected user_id claim in token")
	}
	if int(userID) != 42 {
		t.Fatalf("expected user_id=42, got %d", int(userID))
	}
}

func TestValidateJWT_InvalidToken(t *testing.T) {
	invalidToken := "random.invalid.token.12345"

	_, err := ValidateJWT(invalidToken)
	if err == nil {
		t.Fatalf("expected error for invalid token")
	}
}

func TestValidateJWT_WrongSignature(t *testing.T) {
	os.Setenv("JWT_SECRET", "secretA")
	token, _ := GenerateJWT(99)

	// rotating the secret breaks the signature
	os.Setenv("JWT_SECRET", "secretB")

	_, err := ValidateJWT(token)
	if err == nil {
		t.Fatalf("expected signature error but got nil")
	}
}

func TestValidateJWT_Expired(t *testing.T) {
	os.Setenv("JWT_SECRET", "expiretestsecret")

	claims := jwt.MapClaims{
		"user_id": 11,
		"exp":     time.Now().Add(-1 * time.Hour).Unix(),
		"iat":     time.Now().Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	expiredToken, _ := token.SignedString(jwtSecret())

	_, err := ValidateJWT(expiredToken)
	if err == nil {
		t.Fatalf("expected error for expired token")
	}
}

func TestGetUserIDFromContext(t *testing.T) {
	ctx := context.Background()

	ctx = context.WithValue(ctx, UserIDKey, 123)

	uid := GetUserIDFromContext(ctx)
	if uid != 123 {
		t.Fatalf("expected 123, got %d", uid)
	}

	// test no-value case
	ctx = context.Background()
	uid = GetUserIDFromContext(ctx)
	if uid != 0 {
		t.Fatalf("expected default 0 when not set, got %d", uid)
	}
}

func TestGetClientIDFromContext(t *testing.T) {
	ctx := context.WithValue(context.Background(), ClientIDKey, "tab-1")
	if got := GetClientIDFromContext(ctx); got != "tab-1" {
		t.Fatalf("expected tab-1, got %q", got)
	}

	if got := GetClientIDFromContext(context.Background()); got != "" {
		t.Fatalf("expected empty client id, got %q", got)
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("INTENT_TTL_MINUTES", "")
	t.Setenv("HTTP_ADDR", "")

	cfg, _ := LoadConfig()
	if cfg.HTTPAddr != ":8080" {
		t.Fatalf("expected default http addr, got %s", cfg.HTTPAddr)
	}
	if cfg.IntentTTL != time.Duration(IntentTTLMinutesDefault)*time.Minute {
		t.Fatalf("unexpected intent ttl %s", cfg.IntentTTL)
	}
}

func TestLoadConfig_IntentTTLOverride(t *testing.T) {
	t.Setenv("INTENT_TTL_MINUTES", "7")

	cfg, _ := LoadConfig()
	if cfg.IntentTTL != 7*time.Minute {
		t.Fatalf("expected 7m, got %s", cfg.IntentTTL)
	}
}

func TestLoadConfig_PaymentSecret(t *testing.T) {
	t.Setenv("PAYMENT_GATEWAY_SECRET", "gw-secret")

	cfg, _ := LoadConfig()
	if cfg.PaymentSecret != "gw-secret" {
		t.Fatalf("expected gateway secret from env, got %q", cfg.PaymentSecret)
	}
}

func TestNewLogger(t *testing.T) {
	for _, env := range []string{"development", "production"} {
		l, err := NewLogger(env)
		if err != nil {
			t.Fatalf("NewLogger(%s) err: %v", env, err)
		}
		if l == nil {
			t.Fatalf("NewLogger(%s) returned nil", env)
		}
	}
}
