package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"idle_clicker/internal/identity"

	"github.com/gin-gonic/gin"
)

type fakeResolver struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (r *fakeResolver) Resolve(ctx context.Context, userID int64) (identity.Identity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.err != nil {
		return identity.Identity{}, r.err
	}
	return identity.Identity{UserID: userID}, nil
}

func (r *fakeResolver) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

func newJWTTestRouter(t *testing.T, resolver IdentityResolver) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.GET("/protected", JWT(resolver), func(c *gin.Context) {
		uid, _ := c.Get("user_id")
		c.JSON(http.StatusOK, gin.H{"user_id": uid})
	})
	return r
}

func TestJWTResolvesThroughIdentityCache(t *testing.T) {
	identity.InitJWT("test-secret")
	resolver := &fakeResolver{}
	r := newJWTTestRouter(t, resolver)

	token, err := identity.GenerateJWT(42)
	if err != nil {
		t.Fatalf("GenerateJWT: %v", err)
	}

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/protected", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		r.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("status = %d; want 200", w.Code)
		}
	}

	// every authenticated request goes through the resolver; the resolver's
	// own cache decides whether the store is hit
	if got := resolver.callCount(); got != 3 {
		t.Fatalf("resolver calls = %d; want 3", got)
	}
}

func TestJWTRejectsUnresolvableIdentity(t *testing.T) {
	identity.InitJWT("test-secret")
	resolver := &fakeResolver{err: identity.ErrNotAuthenticated}
	r := newJWTTestRouter(t, resolver)

	token, err := identity.GenerateJWT(42)
	if err != nil {
		t.Fatalf("GenerateJWT: %v", err)
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d; want 401", w.Code)
	}
}

func TestJWTRejectsMissingAndMalformedTokens(t *testing.T) {
	identity.InitJWT("test-secret")
	resolver := &fakeResolver{}
	r := newJWTTestRouter(t, resolver)

	cases := []struct {
		name   string
		header string
	}{
		{"no header", ""},
		{"not bearer", "Token abc"},
		{"garbage token", "Bearer not-a-jwt"},
	}

	for _, tc := range cases {
		w := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/protected", nil)
		if tc.header != "" {
			req.Header.Set("Authorization", tc.header)
		}
		r.ServeHTTP(w, req)

		if w.Code != http.StatusUnauthorized {
			t.Fatalf("%s: status = %d; want 401", tc.name, w.Code)
		}
	}

	// rejection happens before identity resolution
	if got := resolver.callCount(); got != 0 {
		t.Fatalf("resolver calls = %d; want 0", got)
	}
}
