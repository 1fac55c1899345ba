package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"antroute/internal/auth"
	"antroute/internal/config"
)

func TestHMACAuthGuardsAPI(t *testing.T) {
	s, h := newTestServer(t, func(c *config.Config) { c.AuthMode = "hmac"; c.AuthSecret = "k" })

	assert.Equal(t, http.StatusUnauthorized, do(t, h, http.MethodGet, "/v1/runs", "t1", nil).Code)
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/healthz", "", nil).Code)

	tok, err := s.Auth.Issue(auth.Principal{Tenant: "t_jwt", Role: "viewer"}, time.Minute)
	require.NoError(t, err)
	call := func(method, path string) int {
		req := httptest.NewRequest(method, path, nil)
		req.Header.Set("Authorization", "Bearer "+tok)
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		return rr.Code
	}
	assert.Equal(t, http.StatusOK, call(http.MethodGet, "/v1/runs"))
	// viewers cannot solve or administer
	assert.Equal(t, http.StatusForbidden, call(http.MethodPost, "/v1/solve"))
	assert.Equal(t, http.StatusForbidden, call(http.MethodGet, "/v1/admin/optimizer/config"))

	req := httptest.NewRequest(http.MethodGet, "/v1/runs", nil)
	req.Header.Set("Authorization", "Bearer not.a.token")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestDevBearerTokenSetsTenant(t *testing.T) {
	s, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/v1/runs", nil)
	req.Header.Set("Authorization", "Bearer t9:operator")
	req.Header.Set("X-Tenant-Id", "ignored")
	assert.Equal(t, Principal{Tenant: "t9", Role: "operator"}, s.getPrincipal(req))
}
