package server

import (
	"context"
	"encoding/json"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	humachi "github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"luschuster/internal/csrf"
	"luschuster/internal/forms"
	"luschuster/internal/notify"
	"luschuster/internal/ratelimit"
)

// Config wires the HTTP API handler.
type Config struct {
	BasePath string
	CSRF     csrf.Service

	ContactLimiter ratelimit.Limiter
	QuoteLimiter   ratelimit.Limiter

	// Simulated processing delay per form, purely so the client UI shows a
	// loading state. Zero disables it (tests run with zero).
	ContactDelay time.Duration
	QuoteDelay   time.Duration

	Notifier notify.Notifier
	Log      zerolog.Logger
	Now      func() time.Time
}

func (c Config) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

// apiError models the flat error envelope every endpoint returns.
type apiError struct {
	status  int
	Message string             `json:"error"`
	Code    string             `json:"code,omitempty"`
	Details []forms.FieldError `json:"details,omitempty"`
}

func (e *apiError) GetStatus() int { return e.status }
func (e *apiError) Error() string  { return e.Message }

func newAPIError(status int, code, message string, details []forms.FieldError) huma.StatusError {
	return &apiError{status: status, Message: message, Code: code, Details: details}
}

// Fixed client-facing messages. Internal failure detail goes to the log only.
const (
	msgInvalidData     = "Données invalides"
	msgSecurityRefresh = "Session invalide ou expirée. Veuillez rafraîchir la page et réessayer."
	msgInternal        = "Une erreur inattendue s'est produite"

	codeRateLimited = "RATE_LIMITED"
	codeInternal    = "INTERNAL_ERROR"
)

// New returns an HTTP handler exposing the forms API.
func New(cfg Config) (http.Handler, error) {
	basePath := cfg.BasePath
	if basePath == "" {
		basePath = "/api"
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}

	// Override huma errors so framework-generated failures (bad content type,
	// unparsable headers) use the same envelope as ours.
	huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
		switch {
		case status >= 500:
			return newAPIError(status, codeInternal, msgInternal, nil)
		case status == http.StatusUnprocessableEntity:
			return newAPIError(http.StatusBadRequest, "", msgInvalidData, nil)
		default:
			return newAPIError(status, "", msg, nil)
		}
	}

	router := chi.NewRouter()
	router.Use(recoverJSON(cfg.Log))

	hcfg := huma.DefaultConfig("Luschuster Web API", "1.0.0")
	hcfg.OpenAPIPath = "/openapi"
	api := humachi.New(router, hcfg)
	group := huma.NewGroup(api, basePath)

	registerHealth(group)
	registerCSRF(group, cfg)
	registerContact(group, cfg)
	registerQuote(group, cfg)

	return router, nil
}

// recoverJSON turns a handler panic into the 500 envelope so no failure
// escapes as a non-JSON response.
func recoverJSON(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if v := recover(); v != nil {
					log.Error().
						Interface("panic", v).
						Str("path", r.URL.Path).
						Bytes("stack", debug.Stack()).
						Msg("panic recovered")
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"error": msgInternal,
						"code":  codeInternal,
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

func registerHealth(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
	}, func(_ context.Context, _ *struct{}) (*struct {
		Body map[string]string `json:"body"`
	}, error) {
		return &struct {
			Body map[string]string `json:"body"`
		}{Body: map[string]string{"status": "ok"}}, nil
	})
}
