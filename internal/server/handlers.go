package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"luschuster/internal/forms"
	"luschuster/internal/notify"
	"luschuster/internal/ratelimit"
)

const (
	contactLimitMsg = "Trop de tentatives. Veuillez réessayer dans 15 minutes."
	quoteLimitMsg   = "Trop de demandes de devis. Veuillez réessayer dans 30 minutes."

	contactSuccessMsg = "Message envoyé avec succès"
	quoteSuccessMsg   = "Demande de devis envoyée avec succès"
)

// clientID resolves the submitting client's identifier from forwarding
// headers, falling back to a sentinel when none are present.
func clientID(forwardedFor, realIP string) string {
	if v := strings.TrimSpace(forwardedFor); v != "" {
		return v
	}
	if v := strings.TrimSpace(realIP); v != "" {
		return v
	}
	return "unknown"
}

// formInput is the shared request shape for both submission endpoints. The
// body is taken raw: the schema validator owns parsing semantics so that a
// garbage body fails with the same taxonomy as a structurally invalid one.
type formInput struct {
	XForwardedFor string `header:"X-Forwarded-For"`
	XRealIP       string `header:"X-Real-Ip"`
	XSessionID    string `header:"X-Session-Id"`
	RawBody       []byte `contentType:"application/json"`
}

// runPipeline performs the server-side gauntlet for one submission:
// rate limit, parse, schema validation, CSRF verification, sanitization.
// It returns the sanitized value set or the error to send as-is.
func (cfg Config) runPipeline(
	ctx context.Context,
	schema forms.Schema,
	in *formInput,
	limiter ratelimit.Limiter,
	limitMsg string,
) (values map[string]any, id string, herr huma.StatusError) {
	id = clientID(in.XForwardedFor, in.XRealIP)

	ok, _ := limiter.Allow(ctx, id)
	if !ok {
		return nil, id, newAPIError(http.StatusTooManyRequests, codeRateLimited, limitMsg, nil)
	}

	// A body that is not a JSON object validates like an empty one: every
	// required field is reported missing rather than a separate parse error.
	raw := map[string]any{}
	if len(in.RawBody) > 0 {
		_ = json.Unmarshal(in.RawBody, &raw)
	}

	res := forms.Validate(schema, raw)
	if !res.Valid {
		return nil, id, newAPIError(http.StatusBadRequest, "", msgInvalidData, res.Errors)
	}

	// The schema guarantees the token field is present; verify its value.
	// One generic message for every token failure mode: signature, expiry and
	// session mismatch must be indistinguishable from outside.
	token, _ := res.Values["csrfToken"].(string)
	if !cfg.CSRF.Validate(token, in.XSessionID) {
		return nil, id, newAPIError(http.StatusBadRequest, "", msgSecurityRefresh,
			[]forms.FieldError{{Field: "csrfToken", Message: msgSecurityRefresh}})
	}

	return forms.SanitizeValues(schema, res.Values), id, nil
}

// wait sleeps for the configured simulated processing delay, bailing early if
// the client went away.
func wait(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}

func registerCSRF(api huma.API, cfg Config) {
	type csrfOutput struct {
		CacheControl string `header:"Cache-Control"`
		Pragma       string `header:"Pragma"`
		Expires      string `header:"Expires"`
		Body         CSRFResponse
	}
	huma.Register(api, huma.Operation{
		OperationID: "get-csrf-token",
		Method:      http.MethodGet,
		Path:        "/csrf",
		Summary:     "Issue a CSRF token",
		Errors:      []int{http.StatusInternalServerError},
	}, func(_ context.Context, input *struct {
		XSessionID string `header:"X-Session-Id"`
	}) (*csrfOutput, error) {
		token, sid, err := cfg.CSRF.Issue(strings.TrimSpace(input.XSessionID))
		if err != nil {
			cfg.Log.Error().Err(err).Msg("csrf token issuance failed")
			return nil, newAPIError(http.StatusInternalServerError, codeInternal, msgInternal, nil)
		}
		return &csrfOutput{
			CacheControl: "no-cache, no-store, must-revalidate",
			Pragma:       "no-cache",
			Expires:      "0",
			Body:         CSRFResponse{CSRFToken: token, SessionID: sid},
		}, nil
	})
}

func registerContact(api huma.API, cfg Config) {
	huma.Register(api, huma.Operation{
		OperationID: "submit-contact",
		Method:      http.MethodPost,
		Path:        "/contact",
		Summary:     "Submit the contact form",
		// RawBody with a JSON contentType makes huma validate the body against
		// a string schema; skip that so the raw bytes reach the pipeline.
		SkipValidateBody: true,
		Errors: []int{
			http.StatusBadRequest,
			http.StatusTooManyRequests,
			http.StatusInternalServerError,
		},
	}, func(ctx context.Context, input *formInput) (*struct {
		Body SubmissionResponse `json:"body"`
	}, error) {
		values, id, herr := cfg.runPipeline(ctx, forms.Contact(), input, cfg.ContactLimiter, contactLimitMsg)
		if herr != nil {
			return nil, herr
		}

		cfg.Notifier.ContactReceived(ctx, notify.ContactSubmission{
			Name:       str(values, "name"),
			Email:      str(values, "email"),
			Phone:      str(values, "phone"),
			Company:    str(values, "company"),
			Subject:    str(values, "subject"),
			Message:    str(values, "message"),
			ClientID:   id,
			ReceivedAt: cfg.now(),
		})

		wait(ctx, cfg.ContactDelay)
		return &struct {
			Body SubmissionResponse `json:"body"`
		}{Body: SubmissionResponse{Success: true, Message: contactSuccessMsg}}, nil
	})

	registerFormOptions(api, "contact-options", "/contact")
}

func registerQuote(api huma.API, cfg Config) {
	huma.Register(api, huma.Operation{
		OperationID: "submit-quote",
		Method:      http.MethodPost,
		Path:        "/quote",
		Summary:     "Submit a quote request",
		// See submit-contact: keep huma from validating the raw JSON body.
		SkipValidateBody: true,
		Errors: []int{
			http.StatusBadRequest,
			http.StatusTooManyRequests,
			http.StatusInternalServerError,
		},
	}, func(ctx context.Context, input *formInput) (*struct {
		Body SubmissionResponse `json:"body"`
	}, error) {
		values, id, herr := cfg.runPipeline(ctx, forms.Quote(), input, cfg.QuoteLimiter, quoteLimitMsg)
		if herr != nil {
			return nil, herr
		}

		now := cfg.now()
		quoteRef := notify.NewQuoteRef(now)
		cfg.Notifier.QuoteReceived(ctx, notify.QuoteSubmission{
			CompanyName:    str(values, "companyName"),
			CompanySize:    str(values, "companySize"),
			Industry:       str(values, "industry"),
			ServicesNeeded: strs(values, "servicesNeeded"),
			BudgetRange:    str(values, "budgetRange"),
			Timeline:       str(values, "timeline"),
			Description:    str(values, "description"),
			ContactName:    str(values, "contactName"),
			ContactEmail:   str(values, "contactEmail"),
			ContactPhone:   str(values, "contactPhone"),
			GDPRConsent:    boolean(values, "gdprConsent"),
			QuoteRef:       quoteRef,
			ClientID:       id,
			ReceivedAt:     now,
		})

		wait(ctx, cfg.QuoteDelay)
		return &struct {
			Body SubmissionResponse `json:"body"`
		}{Body: SubmissionResponse{Success: true, Message: quoteSuccessMsg, QuoteRef: quoteRef}}, nil
	})

	registerFormOptions(api, "quote-options", "/quote")
}

func registerFormOptions(api huma.API, opID, path string) {
	type optionsOutput struct {
		Allow        string `header:"Allow"`
		AllowMethods string `header:"Access-Control-Allow-Methods"`
		AllowHeaders string `header:"Access-Control-Allow-Headers"`
	}
	huma.Register(api, huma.Operation{
		OperationID:   opID,
		Method:        http.MethodOptions,
		Path:          path,
		Summary:       "Preflight",
		DefaultStatus: http.StatusOK,
		Hidden:        true,
	}, func(_ context.Context, _ *struct{}) (*optionsOutput, error) {
		return &optionsOutput{
			Allow:        http.MethodPost,
			AllowMethods: http.MethodPost,
			AllowHeaders: "Content-Type",
		}, nil
	})
}

func str(values map[string]any, key string) string {
	s, _ := values[key].(string)
	return s
}

func strs(values map[string]any, key string) []string {
	s, _ := values[key].([]string)
	return s
}

func boolean(values map[string]any, key string) bool {
	b, _ := values[key].(bool)
	return b
}
