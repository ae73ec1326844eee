package auth

import (
	"testing"
	"time"
)

func TestValidateToken(t *testing.T) {
	cfg := &JWTConfig{Secret: []byte("secret"), Issuer: "wirechat", Audience: "clients", TTL: time.Hour}

	token, err := GenerateToken(cfg, 7, "alice")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	claims, err := ValidateToken(cfg, token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if claims.UID != 7 || claims.Username != "alice" || claims.Subject != "7" {
		t.Fatalf("unexpected claims %+v", claims)
	}

	cases := map[string]*JWTConfig{
		"wrong secret":   {Secret: []byte("other"), Issuer: "wirechat", Audience: "clients"},
		"wrong issuer":   {Secret: []byte("secret"), Issuer: "someone", Audience: "clients"},
		"wrong audience": {Secret: []byte("secret"), Issuer: "wirechat", Audience: "servers"},
	}
	for name, other := range cases {
		if _, err := ValidateToken(other, token); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}

	expired := &JWTConfig{Secret: []byte("secret"), TTL: -time.Minute}
	old, err := GenerateToken(expired, 7, "alice")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := ValidateToken(expired, old); err == nil {
		t.Fatalf("expected expired token to fail")
	}
}

func TestGenerateTokenStartsNewSession(t *testing.T) {
	cfg := &JWTConfig{Secret: []byte("secret"), TTL: time.Hour}

	first, err := GenerateToken(cfg, 7, "alice")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	second, err := GenerateToken(cfg, 7, "alice")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	a, err := ValidateToken(cfg, first)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	b, err := ValidateToken(cfg, second)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if a.SessionID() == "" || a.SessionID() == b.SessionID() {
		t.Fatalf("expected distinct session ids, got %q and %q", a.SessionID(), b.SessionID())
	}
}
