package httpadapter

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/mzaitsev/policy-assistant/internal/core/ports"
	"github.com/mzaitsev/policy-assistant/internal/observability/metrics"
)

type Router struct {
	search      ports.PolicySearcher
	keys        ports.KeyIssuer
	keyResolver ports.APIKeyResolver
	auth        ports.Authenticator
	metrics     *metrics.ServerMetrics

	sessionTTL       time.Duration
	rateLimitRPS     int
	rateLimitBurst   int
	maxInFlight      int
	backpressureWait time.Duration
	secureCookies    bool
}

type RouterConfig struct {
	SessionTTL       time.Duration
	RateLimitRPS     int
	RateLimitBurst   int
	MaxInFlight      int
	BackpressureWait time.Duration
	// SecureCookies marks session cookies Secure; disabled only for local
	// development over plain HTTP.
	SecureCookies bool
}

func NewRouter(
	search ports.PolicySearcher,
	keys ports.KeyIssuer,
	keyResolver ports.APIKeyResolver,
	auth ports.Authenticator,
	serverMetrics *metrics.ServerMetrics,
	cfg RouterConfig,
) *Router {
	if cfg.BackpressureWait <= 0 {
		cfg.BackpressureWait = 2 * time.Second
	}
	return &Router{
		search:           search,
		keys:             keys,
		keyResolver:      keyResolver,
		auth:             auth,
		metrics:          serverMetrics,
		sessionTTL:       cfg.SessionTTL,
		rateLimitRPS:     cfg.RateLimitRPS,
		rateLimitBurst:   cfg.RateLimitBurst,
		maxInFlight:      cfg.MaxInFlight,
		backpressureWait: cfg.BackpressureWait,
		secureCookies:    cfg.SecureCookies,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", rt.healthz)
	if rt.metrics != nil {
		mux.Handle("GET /metrics", rt.metrics.Handler())
	}

	mux.HandleFunc("POST /v1/auth/login", rt.login)
	mux.HandleFunc("POST /v1/auth/logout", rt.logout)
	mux.HandleFunc("POST /v1/keys", rt.sessionAuthMiddleware(rt.generateKey))
	mux.HandleFunc("POST /v1/search", rt.sessionAuthMiddleware(rt.searchPolicies))
	mux.HandleFunc("POST /ext/v1/search", rt.apiKeyAuthMiddleware(rt.searchPolicies))

	var handler http.Handler = mux
	handler = backpressureMiddleware(handler, rt.maxInFlight, rt.backpressureWait)
	handler = rateLimitMiddleware(handler, rt.rateLimitRPS, rt.rateLimitBurst)
	handler = accessLogMiddleware(rt.metrics, handler)
	handler = requestIDMiddleware(handler)
	return handler
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	token, err := rt.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}

	http.SetCookie(w, rt.sessionCookie(token, rt.sessionTTL))
	w.WriteHeader(http.StatusNoContent)
}

func (rt *Router) logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(sessionCookieName); err == nil {
		if err := rt.auth.Logout(r.Context(), cookie.Value); err != nil {
			writeError(w, r, err)
			return
		}
	}
	http.SetCookie(w, rt.sessionCookie("", -time.Second))
	w.WriteHeader(http.StatusNoContent)
}

func (rt *Router) generateKey(w http.ResponseWriter, r *http.Request) {
	key, err := rt.keys.GenerateKey(r.Context(), userIDFromContext(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"api_key": key})
}

func (rt *Router) searchPolicies(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Query string `json:"query"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "query is required"})
		return
	}

	// A dropped client connection must not abort an in-flight model call;
	// the pipeline runs to completion and the response is discarded by the
	// transport instead.
	ctx := context.WithoutCancel(r.Context())
	result, err := rt.search.Search(ctx, req.Query, userIDFromContext(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (rt *Router) sessionCookie(token string, maxAge time.Duration) *http.Cookie {
	cookie := &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   rt.secureCookies,
		SameSite: http.SameSiteLaxMode,
	}
	if maxAge > 0 {
		cookie.MaxAge = int(maxAge / time.Second)
	} else if maxAge < 0 {
		cookie.MaxAge = -1
	}
	return cookie
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
