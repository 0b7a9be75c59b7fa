package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/raaihank/passforge/internal/forge"
	"github.com/raaihank/passforge/internal/generator"
	"github.com/raaihank/passforge/internal/pattern"
	"github.com/raaihank/passforge/internal/rules"
	"github.com/raaihank/passforge/internal/store"
	"github.com/raaihank/passforge/internal/strength"
)

type generateRequest struct {
	Rules *rules.RuleSet `json:"rules,omitempty"`
	Count int            `json:"count,omitempty"`
}

type patternRequest struct {
	Pattern string `json:"pattern"`
	Count   int    `json:"count,omitempty"`
}

type strengthRequest struct {
	Password   string   `json:"password"`
	UserInputs []string `json:"userInputs,omitempty"`
}

type strengthResponse struct {
	strength.Result
	CrossCheck strength.Estimate `json:"crossCheck"`
}

type policyRequest struct {
	Name string `json:"name,omitempty"`
	Text string `json:"text"`
}

type passwordsResponse struct {
	Count     int                       `json:"count"`
	Passwords []forge.GeneratedPassword `json:"passwords"`
	Policy    string                    `json:"policy,omitempty"`
}

type errorResponse struct {
	Error  string   `json:"error"`
	Errors []string `json:"errors,omitempty"`
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// handleInfo handles info requests
func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	cfg := s.Config()
	writeJSON(w, http.StatusOK, map[string]any{
		"name":              "passforge",
		"version":           Version,
		"uptime":            time.Since(s.started).Round(time.Second).String(),
		"remote_enabled":    cfg.Remote.Enabled,
		"cache_enabled":     cfg.Cache.Enabled,
		"policies_enabled":  s.policies != nil,
		"websocket_enabled": s.hub != nil,
		"max_count":         cfg.Generator.MaxCount,
		"max_length":        cfg.Generator.MaxLength,
		"pattern_length":    []int{pattern.MinLength, pattern.MaxLength},
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{
		"service":          s.service.GetStats(),
		"rate_limited_ips": s.limiter.Clients(),
	}
	if s.hub != nil {
		body["websocket"] = s.hub.GetStats()
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if !s.decode(w, r, &req) {
		return
	}

	rs := rules.Default()
	if req.Rules != nil {
		rs = *req.Rules
	}
	if msg := s.checkLimits(req.Count, rs); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	passwords, err := s.service.GenerateN(r.Context(), rs, req.Count)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, passwordsResponse{Count: len(passwords), Passwords: passwords})
}

func (s *Server) handlePatternGenerate(w http.ResponseWriter, r *http.Request) {
	var req patternRequest
	if !s.decode(w, r, &req) {
		return
	}
	if msg := s.checkCount(req.Count); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	passwords, err := s.service.GenerateFromPatternN(req.Pattern, max(req.Count, 1))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, passwordsResponse{Count: len(passwords), Passwords: passwords})
}

func (s *Server) handlePatternValidate(w http.ResponseWriter, r *http.Request) {
	var req patternRequest
	if !s.decode(w, r, &req) {
		return
	}
	result := s.service.ValidatePattern(req.Pattern)
	if result.Errors == nil {
		result.Errors = []string{}
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handlePatternComplexity(w http.ResponseWriter, r *http.Request) {
	var req patternRequest
	if !s.decode(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, s.service.PatternComplexity(req.Pattern))
}

func (s *Server) handlePatternTokens(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"tokens": pattern.Tokens()})
}

func (s *Server) handlePatternPresets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"presets": pattern.Presets()})
}

func (s *Server) handleStrength(w http.ResponseWriter, r *http.Request) {
	var req strengthRequest
	if !s.decode(w, r, &req) {
		return
	}

	writeJSON(w, http.StatusOK, strengthResponse{
		Result:     s.service.AnalyzeStrength(req.Password),
		CrossCheck: s.service.CrossCheck(req.Password, req.UserInputs),
	})
}

func (s *Server) handlePolicyAnalyze(w http.ResponseWriter, r *http.Request) {
	var req policyRequest
	if !s.decode(w, r, &req) {
		return
	}

	analysis, err := s.service.AnalyzePolicyAndGenerate(r.Context(), req.Text)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, analysis)
}

func (s *Server) handleListPolicies(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	policies, err := s.policies.List(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"count": len(policies), "policies": policies})
}

func (s *Server) handleSavePolicy(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	var req policyRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := store.ValidateName(req.Name); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	extraction := s.service.ExtractRulesFromPolicyText(r.Context(), req.Text)
	p := &store.Policy{
		Name:      req.Name,
		Text:      req.Text,
		Rules:     extraction.Rules,
		Ambiguous: extraction.Ambiguous,
		Source:    string(extraction.Source),
	}
	if err := s.policies.Save(r.Context(), p); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (s *Server) handleGetPolicy(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	p, err := s.policies.Get(r.Context(), mux.Vars(r)["name"])
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleDeletePolicy(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	if err := s.policies.Delete(r.Context(), mux.Vars(r)["name"]); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePolicyGenerate(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	var req generateRequest
	if !s.decode(w, r, &req) {
		return
	}

	p, err := s.policies.Get(r.Context(), mux.Vars(r)["name"])
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if msg := s.checkLimits(req.Count, p.Rules); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	passwords, err := s.service.GenerateN(r.Context(), p.Rules, req.Count)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, passwordsResponse{Count: len(passwords), Passwords: passwords, Policy: p.Name})
}

// decode reads a JSON body no larger than the configured limit. An empty
// body leaves v untouched.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, s.Config().Server.MaxBodyBytes)

	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return true
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit))
		return false
	}
	writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
	return false
}

func (s *Server) checkCount(count int) string {
	cfg := s.Config()
	if count < 0 {
		return "count must not be negative"
	}
	if count > cfg.Generator.MaxCount {
		return fmt.Sprintf("count %d exceeds the maximum of %d", count, cfg.Generator.MaxCount)
	}
	return ""
}

func (s *Server) checkLimits(count int, rs rules.RuleSet) string {
	if msg := s.checkCount(count); msg != "" {
		return msg
	}
	limit := s.Config().Generator.MaxLength
	if rs.MaxLength > limit || rs.MinLength > limit {
		return fmt.Sprintf("maxLength exceeds the maximum of %d", limit)
	}
	return ""
}

func (s *Server) requireStore(w http.ResponseWriter) bool {
	if s.policies == nil {
		writeError(w, http.StatusServiceUnavailable, "policy catalogue is not configured")
		return false
	}
	return true
}

// writeServiceError maps domain errors to status codes. Generation
// failures are reported to Sentry and answered with a generic body.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var invalid *pattern.ValidationError
	switch {
	case errors.As(err, &invalid):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid pattern", Errors: invalid.Errors})

	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())

	case errors.Is(err, store.ErrInvalidName):
		writeError(w, http.StatusBadRequest, err.Error())

	case errors.Is(err, generator.ErrGenerationFailure):
		requestID := getRequestID(r.Context())
		hub := sentry.CurrentHub().Clone()
		hub.Scope().SetTag("request_id", requestID)
		hub.CaptureException(err)

		s.logger.WithRequestID(requestID).Error("Password generation failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "password generation failed")

	default:
		s.logger.WithRequestID(getRequestID(r.Context())).Error("Request failed",
			zap.String("path", r.URL.Path),
			zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
