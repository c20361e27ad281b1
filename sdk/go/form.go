package luschustersdk

import (
	"context"
	"errors"
	"sync"

	"luschuster/internal/forms"
)

// FieldState is one field's runtime record. Error is always the result of
// re-running the field's schema rule against Value; the two never diverge
// because every mutation goes through Set.
type FieldState struct {
	Value   any
	Error   string
	Touched bool
}

// ErrSubmitInFlight is returned when Submit is called while a previous
// submission is still running.
var ErrSubmitInFlight = errors.New("submission already in flight")

// ErrInvalidFields is returned when Submit aborts locally because at least
// one field fails its schema rule.
var ErrInvalidFields = errors.New("form has invalid fields")

// Form mirrors the server's validation contract locally for responsive UX.
// It is never the source of truth: the server re-runs everything. One Form
// instance backs one rendered form; guard it with its own methods only.
type Form struct {
	mu sync.Mutex

	schema forms.Schema
	client *Client
	fields map[string]*FieldState

	token      string
	submitting bool
	submitted  bool
}

// NewForm builds a controller for schema, posting through client.
func NewForm(schema forms.Schema, client *Client) *Form {
	f := &Form{schema: schema, client: client}
	f.resetLocked()
	return f
}

func (f *Form) resetLocked() {
	f.fields = make(map[string]*FieldState, len(f.schema.Fields))
	for _, fd := range f.schema.Fields {
		if fd.Name == "csrfToken" {
			continue // supplied at submit time, not user-editable
		}
		f.fields[fd.Name] = &FieldState{}
	}
	f.submitting = false
}

// Set updates one field's value, marks it touched, and re-validates it.
func (f *Form) Set(name string, value any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fs, ok := f.fields[name]
	if !ok {
		return
	}
	fs.Value = value
	fs.Touched = true
	fs.Error = forms.ValidateField(f.schema, name, value)
}

// Touch marks a field touched without changing its value (blur handling).
func (f *Form) Touch(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if fs, ok := f.fields[name]; ok {
		fs.Touched = true
	}
}

// Field returns a snapshot of one field's state.
func (f *Form) Field(name string) FieldState {
	f.mu.Lock()
	defer f.mu.Unlock()
	if fs, ok := f.fields[name]; ok {
		return *fs
	}
	return FieldState{}
}

// HasErrors reports whether any touched field currently fails its rule.
func (f *Form) HasErrors() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, fs := range f.fields {
		if fs.Touched && fs.Error != "" {
			return true
		}
	}
	return false
}

// AllTouched reports whether the visitor has interacted with every field.
func (f *Form) AllTouched() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, fs := range f.fields {
		if !fs.Touched {
			return false
		}
	}
	return true
}

// Submitting reports whether a submission is in flight.
func (f *Form) Submitting() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.submitting
}

// Submitted reports whether the form reached its confirmation state.
func (f *Form) Submitted() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.submitted
}

// Reset clears all field state and the confirmation flag.
func (f *Form) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resetLocked()
	f.submitted = false
}

// validateAllLocked marks every field touched, re-validates each one, and
// returns the current values. Callers hold f.mu.
func (f *Form) validateAllLocked() (values map[string]any, ok bool) {
	values = make(map[string]any, len(f.fields))
	ok = true
	for name, fs := range f.fields {
		fs.Touched = true
		fs.Error = forms.ValidateField(f.schema, name, fs.Value)
		if fs.Error != "" {
			ok = false
		}
		if fs.Value != nil {
			values[name] = fs.Value
		}
	}
	return values, ok
}

// ValidateAll forces full validation (all fields become touched) and returns
// the assembled values when everything passes.
func (f *Form) ValidateAll() (map[string]any, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.validateAllLocked()
}

// Submit runs the client-side gate and posts the payload with the current
// CSRF token, fetching one first if needed. Local validation failures and an
// in-flight submission abort without a request. Server field errors are
// copied back into field state verbatim; on success all field state is
// cleared and the form transitions to its confirmation state.
func (f *Form) Submit(ctx context.Context) (*SubmissionAck, error) {
	f.mu.Lock()
	if f.submitting {
		f.mu.Unlock()
		return nil, ErrSubmitInFlight
	}
	values, ok := f.validateAllLocked()
	if !ok {
		f.mu.Unlock()
		return nil, ErrInvalidFields
	}
	f.submitting = true
	token := f.token
	f.mu.Unlock()

	ack, err := f.post(ctx, values, token)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitting = false
	if err != nil {
		f.applyServerErrors(err)
		return nil, err
	}
	f.resetLocked()
	f.submitted = true
	return ack, nil
}

func (f *Form) post(ctx context.Context, values map[string]any, token string) (*SubmissionAck, error) {
	if token == "" {
		handshake, err := f.client.FetchCSRF(ctx)
		if err != nil {
			return nil, err
		}
		token = handshake.CSRFToken
		f.mu.Lock()
		f.token = token
		f.mu.Unlock()
	}
	values["csrfToken"] = token
	return f.client.Submit(ctx, f.schema, values)
}

// applyServerErrors surfaces the server's field details into local state so
// the form stays fully editable after a failure.
func (f *Form) applyServerErrors(err error) {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return
	}
	for _, d := range apiErr.Details {
		if fs, ok := f.fields[d.Field]; ok {
			fs.Error = d.Message
			fs.Touched = true
		}
	}
	if apiErr.Code != "" || len(apiErr.Details) > 0 {
		// A stale token is recoverable by handshaking again on retry.
		f.token = ""
	}
}
