package api

import (
	"encoding/json"
	"errors"
	mrand "math/rand/v2"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raaihank/passforge/internal/config"
	"github.com/raaihank/passforge/internal/forge"
	"github.com/raaihank/passforge/internal/random"
	"github.com/raaihank/passforge/internal/store"
	"github.com/raaihank/passforge/internal/strength"
)

const fullPolicy = "Password must be 8-16 characters, include uppercase, lowercase, numbers, and symbols"

type brokenReader struct{}

func (brokenReader) Read([]byte) (int, error) { return 0, errors.New("entropy pool closed") }

func testConfig() *config.Config {
	cfg := config.GetDefaults()
	cfg.Security.RateLimit.Enabled = false
	cfg.Generator.MaxCount = 20
	cfg.Generator.MaxLength = 64
	return cfg
}

func newTestServer(t *testing.T, cfg *config.Config, opts ...Option) *Server {
	t.Helper()
	svc := forge.New(forge.WithSource(random.New(mrand.NewChaCha8([32]byte{3}))))
	return New(cfg, nil, svc, opts...)
}

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

type passwordsBody struct {
	Count     int `json:"count"`
	Passwords []struct {
		Password string          `json:"password"`
		Strength strength.Result `json:"strength"`
		Producer string          `json:"producer"`
	} `json:"passwords"`
	Policy string `json:"policy"`
}

type errorBody struct {
	Error  string   `json:"error"`
	Errors []string `json:"errors"`
}

func TestHealthAndInfo(t *testing.T) {
	s := newTestServer(t, testConfig())

	rec := do(t, s, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", decodeBody[map[string]string](t, rec)["status"])

	rec = do(t, s, http.MethodGet, "/info", "")
	require.Equal(t, http.StatusOK, rec.Code)
	info := decodeBody[map[string]any](t, rec)
	assert.Equal(t, "passforge", info["name"])
	assert.Equal(t, false, info["policies_enabled"])
	assert.EqualValues(t, 20, info["max_count"])
}

func TestGenerate(t *testing.T) {
	s := newTestServer(t, testConfig())

	t.Run("DefaultRules", func(t *testing.T) {
		rec := do(t, s, http.MethodPost, "/api/v1/generate", "")
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		body := decodeBody[passwordsBody](t, rec)
		assert.Equal(t, 5, body.Count)
		for _, p := range body.Passwords {
			n := len([]rune(p.Password))
			assert.GreaterOrEqual(t, n, 12)
			assert.LessOrEqual(t, n, 16)
			assert.Equal(t, "local", p.Producer)
			assert.NotEmpty(t, p.Strength.Level)
		}
	})

	t.Run("CustomRules", func(t *testing.T) {
		rec := do(t, s, http.MethodPost, "/api/v1/generate",
			`{"count": 3, "rules": {"minLength": 20, "maxLength": 20, "includeNumbers": true}}`)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		body := decodeBody[passwordsBody](t, rec)
		require.Len(t, body.Passwords, 3)
		for _, p := range body.Passwords {
			assert.Len(t, p.Password, 20)
			assert.Equal(t, "", strings.Trim(p.Password, "23456789"), p.Password)
		}
	})

	t.Run("Limits", func(t *testing.T) {
		for _, payload := range []string{
			`{"count": 21}`,
			`{"count": -1}`,
			`{"rules": {"minLength": 8, "maxLength": 65, "includeLowercase": true}}`,
			`{"rules": {"minLength": 100, "includeLowercase": true}}`,
			`{"count": "five"}`,
		} {
			rec := do(t, s, http.MethodPost, "/api/v1/generate", payload)
			assert.Equal(t, http.StatusBadRequest, rec.Code, payload)
			assert.NotEmpty(t, decodeBody[errorBody](t, rec).Error)
		}
	})

	t.Run("BodyTooLarge", func(t *testing.T) {
		payload := `{"rules": {"minLength": 8}, "pad": "` + strings.Repeat("x", 70<<10) + `"}`
		rec := do(t, s, http.MethodPost, "/api/v1/generate", payload)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, decodeBody[errorBody](t, rec).Error, "exceeds")
	})

	t.Run("GenerationFailure", func(t *testing.T) {
		broken := New(testConfig(), nil, forge.New(forge.WithSource(random.New(brokenReader{}))))
		rec := do(t, broken, http.MethodPost, "/api/v1/generate", "")
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, "password generation failed", decodeBody[errorBody](t, rec).Error)
		assert.NotContains(t, rec.Body.String(), "entropy pool")
	})
}

func TestPatternEndpoints(t *testing.T) {
	s := newTestServer(t, testConfig())

	t.Run("Generate", func(t *testing.T) {
		rec := do(t, s, http.MethodPost, "/api/v1/pattern/generate", `{"pattern": "CvcCvc11", "count": 4}`)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		body := decodeBody[passwordsBody](t, rec)
		require.Len(t, body.Passwords, 4)
		for _, p := range body.Passwords {
			assert.Len(t, p.Password, 8)
			assert.Equal(t, "pattern", p.Producer)
		}
	})

	t.Run("GenerateDefaultsToOne", func(t *testing.T) {
		rec := do(t, s, http.MethodPost, "/api/v1/pattern/generate", `{"pattern": "Aa1@"}`)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, 1, decodeBody[passwordsBody](t, rec).Count)
	})

	t.Run("GenerateInvalid", func(t *testing.T) {
		rec := do(t, s, http.MethodPost, "/api/v1/pattern/generate", `{"pattern": "A"}`)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		body := decodeBody[errorBody](t, rec)
		assert.Equal(t, "invalid pattern", body.Error)
		assert.NotEmpty(t, body.Errors)
	})

	t.Run("Validate", func(t *testing.T) {
		rec := do(t, s, http.MethodPost, "/api/v1/pattern/validate", `{"pattern": "CvcCvc11"}`)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, map[string]any{"valid": true, "errors": []any{}}, decodeBody[map[string]any](t, rec))

		rec = do(t, s, http.MethodPost, "/api/v1/pattern/validate", `{"pattern": "A"}`)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, false, decodeBody[map[string]any](t, rec)["valid"])
	})

	t.Run("Complexity", func(t *testing.T) {
		rec := do(t, s, http.MethodPost, "/api/v1/pattern/complexity", `{"pattern": "Aa1@Aa1@"}`)
		require.Equal(t, http.StatusOK, rec.Code)
		body := decodeBody[map[string]any](t, rec)
		assert.EqualValues(t, 8, body["length"])
		assert.Equal(t, true, body["hasSymbols"])
	})

	t.Run("Catalogue", func(t *testing.T) {
		rec := do(t, s, http.MethodGet, "/api/v1/pattern/tokens", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.NotEmpty(t, decodeBody[map[string][]any](t, rec)["tokens"])

		rec = do(t, s, http.MethodGet, "/api/v1/pattern/presets", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "CvcCvc11")
	})
}

func TestStrength(t *testing.T) {
	s := newTestServer(t, testConfig())

	rec := do(t, s, http.MethodPost, "/api/v1/strength", `{"password": "Xk9#mP2$vL7@qR4!"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody[map[string]any](t, rec)
	assert.Equal(t, "Very Strong", body["level"])
	assert.EqualValues(t, 100, body["score"])
	assert.Contains(t, body, "crossCheck")

	rec = do(t, s, http.MethodPost, "/api/v1/strength", `{"password": "password"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	cross := decodeBody[map[string]any](t, rec)["crossCheck"].(map[string]any)
	assert.EqualValues(t, 0, cross["score"])

	assert.Equal(t, int64(2), s.service.GetStats().Analyses)
}

func TestPolicyAnalyze(t *testing.T) {
	s := newTestServer(t, testConfig())

	rec := do(t, s, http.MethodPost, "/api/v1/policy/analyze", `{"text": "`+fullPolicy+`"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body forge.PolicyAnalysis
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 8, body.Rules.MinLength)
	assert.Equal(t, 16, body.Rules.MaxLength)
	assert.Contains(t, body.Analysis, "8-16")
	assert.Len(t, body.Passwords, 5)
	assert.False(t, body.Ambiguous)
}

func TestPolicyAnalyzeCapsLength(t *testing.T) {
	s := newTestServer(t, testConfig())

	rec := do(t, s, http.MethodPost, "/api/v1/policy/analyze", `{"text": "Password must be 99999999999999 characters"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body forge.PolicyAnalysis
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 64, body.Rules.MinLength)
	assert.Equal(t, 64, body.Rules.MaxLength)
	require.Len(t, body.Passwords, 5)
	for _, p := range body.Passwords {
		assert.Len(t, p.Password, 64)
	}

	cfg := testConfig()
	cfg.Generator.MaxLength = 20
	s.ApplyConfig(cfg)

	rec = do(t, s, http.MethodPost, "/api/v1/policy/analyze", `{"text": "At least 18 to 400 characters"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body = forge.PolicyAnalysis{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 18, body.Rules.MinLength)
	assert.Equal(t, 20, body.Rules.MaxLength)
}

func TestPolicies(t *testing.T) {
	t.Run("Disabled", func(t *testing.T) {
		s := newTestServer(t, testConfig())
		rec := do(t, s, http.MethodGet, "/api/v1/policies", "")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})

	s := newTestServer(t, testConfig(), WithPolicyStore(store.NewMemoryStore()))

	rec := do(t, s, http.MethodPost, "/api/v1/policies", `{"name": "corp", "text": "`+fullPolicy+`"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	saved := decodeBody[store.Policy](t, rec)
	assert.Equal(t, "corp", saved.Name)
	assert.Equal(t, 8, saved.Rules.MinLength)
	assert.Equal(t, "heuristic", saved.Source)

	rec = do(t, s, http.MethodPost, "/api/v1/policies", `{"name": "no spaces", "text": "x"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, s, http.MethodGet, "/api/v1/policies/corp", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, s, http.MethodGet, "/api/v1/policies", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, decodeBody[map[string]any](t, rec)["count"])

	rec = do(t, s, http.MethodPost, "/api/v1/policies/corp/generate", `{"count": 2}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decodeBody[passwordsBody](t, rec)
	assert.Equal(t, "corp", body.Policy)
	require.Len(t, body.Passwords, 2)
	for _, p := range body.Passwords {
		assert.GreaterOrEqual(t, len(p.Password), 8)
		assert.LessOrEqual(t, len(p.Password), 16)
	}

	rec = do(t, s, http.MethodDelete, "/api/v1/policies/corp", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, s, http.MethodGet, "/api/v1/policies/corp", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, s, http.MethodPost, "/api/v1/policies/corp/generate", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.Security.RateLimit.Enabled = true
	cfg.Security.RateLimit.RequestsPerMin = 1
	cfg.Security.RateLimit.Burst = 1
	s := newTestServer(t, cfg)

	assert.Equal(t, http.StatusOK, do(t, s, http.MethodGet, "/api/v1/pattern/tokens", "").Code)
	rec := do(t, s, http.MethodGet, "/api/v1/pattern/tokens", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))

	// health is outside the limited API
	assert.Equal(t, http.StatusOK, do(t, s, http.MethodGet, "/health", "").Code)

	relaxed := testConfig()
	s.ApplyConfig(relaxed)
	assert.Equal(t, http.StatusOK, do(t, s, http.MethodGet, "/api/v1/pattern/tokens", "").Code)
}

func TestApplyConfigCaps(t *testing.T) {
	s := newTestServer(t, testConfig())

	cfg := testConfig()
	cfg.Generator.MaxCount = 2
	s.ApplyConfig(cfg)

	rec := do(t, s, http.MethodPost, "/api/v1/generate", `{"count": 3}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Same(t, cfg, s.Config())
}

func TestRequestID(t *testing.T) {
	s := newTestServer(t, testConfig())

	rec := do(t, s, http.MethodGet, "/api/v1/pattern/presets", "")
	assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/pattern/presets", nil)
	req.Header.Set(RequestIDHeader, "req-42")
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, "req-42", rec.Header().Get(RequestIDHeader))
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t, testConfig())

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/generate", nil)
	req.Header.Set("Origin", "https://app.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRecoverMiddleware(t *testing.T) {
	s := newTestServer(t, testConfig())
	h := s.recoverMiddleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestGetClientIP(t *testing.T) {
	_, proxies, err := net.ParseCIDR("10.0.0.0/24")
	require.NoError(t, err)
	trusted := []*net.IPNet{proxies}

	t.Run("UntrustedPeerIgnoresHeaders", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "203.0.113.9:5555"
		req.Header.Set("X-Forwarded-For", "198.51.100.1")
		req.Header.Set("X-Real-IP", "198.51.100.2")
		assert.Equal(t, "203.0.113.9", getClientIP(req, trusted))
		assert.Equal(t, "203.0.113.9", getClientIP(req, nil))
	})

	t.Run("TrustedPeer", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1:5555"
		assert.Equal(t, "10.0.0.1", getClientIP(req, trusted))

		req.Header.Set("X-Real-IP", "10.0.0.2")
		assert.Equal(t, "10.0.0.2", getClientIP(req, trusted))

		req.Header.Set("X-Forwarded-For", "198.51.100.7, 203.0.113.4, 10.0.0.5")
		assert.Equal(t, "203.0.113.4", getClientIP(req, trusted))

		req.Header.Set("X-Forwarded-For", "10.0.0.8, 10.0.0.5")
		assert.Equal(t, "10.0.0.8", getClientIP(req, trusted))
	})
}

func TestRateLimitIgnoresSpoofedForwardedFor(t *testing.T) {
	cfg := testConfig()
	cfg.Security.RateLimit = config.RateLimitConfig{Enabled: true, RequestsPerMin: 60, Burst: 1, IdleTTL: time.Hour}
	s := newTestServer(t, cfg)

	send := func(xff string) int {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/pattern/tokens", nil)
		req.RemoteAddr = "203.0.113.9:40000"
		req.Header.Set("X-Forwarded-For", xff)
		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, send("198.51.100.1"))
	assert.Equal(t, http.StatusTooManyRequests, send("198.51.100.2"))

	cfg = testConfig()
	cfg.Security.RateLimit = config.RateLimitConfig{Enabled: true, RequestsPerMin: 60, Burst: 1, IdleTTL: time.Hour}
	cfg.Security.TrustedProxies = []string{"203.0.113.9"}
	s.ApplyConfig(cfg)

	assert.Equal(t, http.StatusOK, send("198.51.100.3"))
	assert.Equal(t, http.StatusOK, send("198.51.100.4"))
}

func TestRateLimiterCleanup(t *testing.T) {
	rl := NewRateLimiter(config.RateLimitConfig{Enabled: true, RequestsPerMin: 60, Burst: 1, IdleTTL: -1})
	assert.True(t, rl.Allow("a"))
	assert.False(t, rl.Allow("a"))
	assert.True(t, rl.Allow("b"))
	assert.Equal(t, 2, rl.Clients())

	rl.mu.Lock()
	for _, c := range rl.clients {
		c.lastSeen = c.lastSeen.Add(-2 * time.Hour)
	}
	rl.mu.Unlock()

	rl.CleanupOldBuckets()
	assert.Zero(t, rl.Clients())
}
