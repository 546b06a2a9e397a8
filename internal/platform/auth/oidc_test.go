package auth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	jose "github.com/go-jose/go-jose/v4"
	jwt "github.com/golang-jwt/jwt/v4"
)

const testAudience = "https://naming.example.com"

type jwksFixture struct {
	key      *rsa.PrivateKey
	server   *httptest.Server
	requests atomic.Int32
}

func newJWKSFixture(t *testing.T, kid string) *jwksFixture {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	fixture := &jwksFixture{key: key}
	jwk := jose.JSONWebKey{
		Key:       &key.PublicKey,
		KeyID:     kid,
		Algorithm: jwt.SigningMethodRS256.Alg(),
		Use:       "sig",
	}
	fixture.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fixture.requests.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "public, max-age=3600")
		_ = json.NewEncoder(w).Encode(jose.JSONWebKeySet{Keys: []jose.JSONWebKey{jwk}})
	}))
	t.Cleanup(fixture.server.Close)
	return fixture
}

func (f *jwksFixture) sign(t *testing.T, kid string, mutate func(jwt.MapClaims)) string {
	t.Helper()

	now := time.Now()
	claims := jwt.MapClaims{
		"aud":   testAudience,
		"iss":   IssuerGoogleAccounts,
		"sub":   "1234567890",
		"email": "scheduler@naming.iam.gserviceaccount.com",
		"exp":   float64(now.Add(time.Hour).Unix()),
		"iat":   float64(now.Unix()),
	}
	if mutate != nil {
		mutate(claims)
	}
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = kid
	signed, err := token.SignedString(f.key)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func TestJWKSCacheKeyCachesKeys(t *testing.T) {
	fixture := newJWKSFixture(t, "key1")
	cache := NewJWKSCache(fixture.server.URL, WithoutJWKSBackgroundRefresh())

	ctx := context.Background()
	got, err := cache.Key(ctx, "key1")
	if err != nil {
		t.Fatalf("cache.Key: %v", err)
	}
	if _, ok := got.(*rsa.PublicKey); !ok {
		t.Fatalf("expected *rsa.PublicKey, got %T", got)
	}
	if _, err := cache.Key(ctx, "key1"); err != nil {
		t.Fatalf("cache.Key second call: %v", err)
	}
	if n := fixture.requests.Load(); n != 1 {
		t.Fatalf("expected single JWKS fetch, got %d", n)
	}
}

func TestJWKSCacheUnknownKidRefetches(t *testing.T) {
	fixture := newJWKSFixture(t, "key1")
	cache := NewJWKSCache(fixture.server.URL, WithoutJWKSBackgroundRefresh())

	if _, err := cache.Key(context.Background(), "key1"); err != nil {
		t.Fatalf("cache.Key: %v", err)
	}
	_, err := cache.Key(context.Background(), "rotated")
	if err == nil || !strings.Contains(err.Error(), "rotated") {
		t.Fatalf("expected key not found error, got %v", err)
	}
	if n := fixture.requests.Load(); n != 2 {
		t.Fatalf("expected refetch for unknown kid, got %d fetches", n)
	}
}

func TestJWKSCacheExpiresWithMaxAge(t *testing.T) {
	fixture := newJWKSFixture(t, "key1")
	now := time.Unix(1_700_000_000, 0)
	cache := NewJWKSCache(fixture.server.URL,
		WithoutJWKSBackgroundRefresh(),
		WithJWKSClock(func() time.Time { return now }),
	)

	if _, err := cache.Key(context.Background(), "key1"); err != nil {
		t.Fatalf("cache.Key: %v", err)
	}
	now = now.Add(2 * time.Hour)
	if _, err := cache.Key(context.Background(), "key1"); err != nil {
		t.Fatalf("cache.Key after expiry: %v", err)
	}
	if n := fixture.requests.Load(); n != 2 {
		t.Fatalf("expected refresh after max-age, got %d fetches", n)
	}
}

func TestParseMaxAge(t *testing.T) {
	cases := map[string]time.Duration{
		"public, max-age=600":   10 * time.Minute,
		"max-age=0":             0,
		"no-store":              0,
		"MAX-AGE=30, immutable": 30 * time.Second,
		"max-age=abc":           0,
	}
	for header, want := range cases {
		if got := parseMaxAge(header); got != want {
			t.Fatalf("parseMaxAge(%q) = %s, want %s", header, got, want)
		}
	}
}

func TestRequireOIDC(t *testing.T) {
	fixture := newJWKSFixture(t, "svc-key")
	validator := NewOIDCValidator(NewJWKSCache(fixture.server.URL, WithoutJWKSBackgroundRefresh()))

	tests := []struct {
		name     string
		audience string
		header   string
		token    func(t *testing.T) string
		status   int
	}{
		{
			name:     "bearer token",
			audience: testAudience,
			header:   "Authorization",
			token:    func(t *testing.T) string { return "Bearer " + fixture.sign(t, "svc-key", nil) },
			status:   http.StatusNoContent,
		},
		{
			name:     "iap assertion",
			audience: "/projects/123/global/backendServices/456",
			header:   "X-Goog-Iap-Jwt-Assertion",
			token: func(t *testing.T) string {
				return fixture.sign(t, "svc-key", func(c jwt.MapClaims) {
					c["aud"] = []string{"/projects/123/global/backendServices/456"}
					c["iss"] = IssuerIAP
				})
			},
			status: http.StatusNoContent,
		},
		{
			name:     "missing token",
			audience: testAudience,
			token:    func(*testing.T) string { return "" },
			status:   http.StatusUnauthorized,
		},
		{
			name:     "audience mismatch",
			audience: "https://other.example.com",
			header:   "Authorization",
			token:    func(t *testing.T) string { return "Bearer " + fixture.sign(t, "svc-key", nil) },
			status:   http.StatusUnauthorized,
		},
		{
			name:     "issuer mismatch",
			audience: testAudience,
			header:   "Authorization",
			token: func(t *testing.T) string {
				return "Bearer " + fixture.sign(t, "svc-key", func(c jwt.MapClaims) { c["iss"] = "https://evil.example.com" })
			},
			status: http.StatusUnauthorized,
		},
		{
			name:     "expired",
			audience: testAudience,
			header:   "Authorization",
			token: func(t *testing.T) string {
				return "Bearer " + fixture.sign(t, "svc-key", func(c jwt.MapClaims) {
					c["exp"] = float64(time.Now().Add(-time.Minute).Unix())
				})
			},
			status: http.StatusUnauthorized,
		},
		{
			name:     "audience not configured",
			audience: "",
			header:   "Authorization",
			token:    func(t *testing.T) string { return "Bearer " + fixture.sign(t, "svc-key", nil) },
			status:   http.StatusServiceUnavailable,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			middleware := validator.RequireOIDC(tc.audience, []string{IssuerGoogleAccounts, IssuerIAP})

			req := httptest.NewRequest(http.MethodPost, "/internal/dataset:reload", nil)
			if value := tc.token(t); value != "" {
				req.Header.Set(tc.header, value)
			}
			rr := httptest.NewRecorder()

			middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				identity, ok := ServiceIdentityFromContext(r.Context())
				if !ok || identity.Subject != "1234567890" {
					t.Fatalf("expected service identity in context, got %+v", identity)
				}
				w.WriteHeader(http.StatusNoContent)
			})).ServeHTTP(rr, req)

			if rr.Code != tc.status {
				t.Fatalf("expected status %d, got %d: %s", tc.status, rr.Code, rr.Body.String())
			}
			if tc.status == http.StatusUnauthorized && rr.Header().Get("WWW-Authenticate") == "" {
				t.Fatalf("expected WWW-Authenticate header on 401")
			}
		})
	}
}

func TestRequireOIDCJWKSUnavailable(t *testing.T) {
	fixture := newJWKSFixture(t, "svc-key")
	token := fixture.sign(t, "svc-key", nil)

	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	t.Cleanup(broken.Close)

	validator := NewOIDCValidator(NewJWKSCache(broken.URL, WithoutJWKSBackgroundRefresh()))
	middleware := validator.RequireOIDC(testAudience, nil)

	req := httptest.NewRequest(http.MethodPost, "/internal/dataset:reload", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()

	middleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatalf("handler should not be called")
	})).ServeHTTP(rr, req)

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status 503, got %d", rr.Code)
	}
}
