package usertoken

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

type jwksFixture struct {
	key    *rsa.PrivateKey
	kid    string
	issuer string
	srv    *httptest.Server
	hits   int
}

func newJWKSFixture(t *testing.T) *jwksFixture {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate rsa key: %v", err)
	}
	f := &jwksFixture{key: key, kid: "key-1", issuer: "https://id.example.com"}
	f.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		f.hits++
		w.Header().Set("Cache-Control", "public, max-age=300")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"keys": []map[string]string{
				{
					"kty": "RSA",
					"kid": f.kid,
					"n":   base64.RawURLEncoding.EncodeToString(key.N.Bytes()),
					"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(key.E)).Bytes()),
				},
			},
		})
	}))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *jwksFixture) sign(t *testing.T, kid string, claims jwt.RegisteredClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = kid
	signed, err := token.SignedString(f.key)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func (f *jwksFixture) verifier(t *testing.T, audience string) *Verifier {
	t.Helper()
	v, err := NewVerifier(Config{
		JWKSURL:  f.srv.URL,
		Issuer:   f.issuer,
		Audience: audience,
	})
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}
	return v
}

func baseClaims(issuer string) jwt.RegisteredClaims {
	now := time.Now().UTC()
	return jwt.RegisteredClaims{
		Subject:   "user_123",
		Issuer:    issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
	}
}

func TestVerifySubject(t *testing.T) {
	f := newJWKSFixture(t)
	v := f.verifier(t, "")

	token := f.sign(t, f.kid, baseClaims(f.issuer))
	subject, err := v.VerifySubject(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if subject != "user_123" {
		t.Fatalf("subject: got %q", subject)
	}
}

func TestVerifyRejectsWrongIssuer(t *testing.T) {
	f := newJWKSFixture(t)
	v := f.verifier(t, "")

	token := f.sign(t, f.kid, baseClaims("https://evil.example.com"))
	if _, err := v.VerifySubject(token); err == nil {
		t.Fatal("expected issuer rejection")
	}
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	f := newJWKSFixture(t)
	v := f.verifier(t, "")

	claims := baseClaims(f.issuer)
	claims.ExpiresAt = jwt.NewNumericDate(time.Now().UTC().Add(-time.Hour))
	token := f.sign(t, f.kid, claims)
	if _, err := v.VerifySubject(token); err == nil {
		t.Fatal("expected expiry rejection")
	}
}

func TestVerifyAudienceWhenConfigured(t *testing.T) {
	f := newJWKSFixture(t)
	v := f.verifier(t, "quickgen-api")

	claims := baseClaims(f.issuer)
	claims.Audience = jwt.ClaimStrings{"quickgen-api"}
	token := f.sign(t, f.kid, claims)
	if _, err := v.VerifySubject(token); err != nil {
		t.Fatalf("matching audience should verify: %v", err)
	}

	claims.Audience = jwt.ClaimStrings{"other-api"}
	token = f.sign(t, f.kid, claims)
	if _, err := v.VerifySubject(token); err == nil {
		t.Fatal("expected audience rejection")
	}
}

func TestVerifyRefreshesOnUnknownKid(t *testing.T) {
	f := newJWKSFixture(t)
	v := f.verifier(t, "")

	// Rotate the key id after the initial fetch; verification must trigger
	// a refresh and then succeed against the new key set.
	f.kid = "key-2"
	token := f.sign(t, "key-2", baseClaims(f.issuer))
	subject, err := v.VerifySubject(token)
	if err != nil {
		t.Fatalf("verify after rotation: %v", err)
	}
	if subject != "user_123" {
		t.Fatalf("subject: got %q", subject)
	}
	if f.hits < 2 {
		t.Fatalf("expected a jwks refresh, got %d fetches", f.hits)
	}
}

func TestVerifyRejectsMissingSubject(t *testing.T) {
	f := newJWKSFixture(t)
	v := f.verifier(t, "")

	claims := baseClaims(f.issuer)
	claims.Subject = ""
	token := f.sign(t, f.kid, claims)
	if _, err := v.VerifySubject(token); err == nil {
		t.Fatal("expected missing-subject rejection")
	}
}

func TestNewVerifierRequiresIssuerAndJWKSURL(t *testing.T) {
	if _, err := NewVerifier(Config{JWKSURL: "http://unused"}); err == nil {
		t.Fatal("expected error for missing issuer")
	}
	if _, err := NewVerifier(Config{Issuer: "https://id.example.com"}); err == nil {
		t.Fatal("expected error for missing jwks url")
	}
}

func TestParseCacheMaxAge(t *testing.T) {
	cases := []struct {
		header string
		want   time.Duration
	}{
		{"public, max-age=300", 5 * time.Minute},
		{"max-age=0", 0},
		{"no-store", 0},
		{"", 0},
	}
	for _, tc := range cases {
		if got := parseCacheMaxAge(tc.header); got != tc.want {
			t.Errorf("parseCacheMaxAge(%q): got %v want %v", tc.header, got, tc.want)
		}
	}
}
