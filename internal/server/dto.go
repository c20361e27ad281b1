package server

// CSRFResponse is the handshake payload the form controller fetches once per
// page load.
type CSRFResponse struct {
	CSRFToken string `json:"csrfToken"`
	SessionID string `json:"sessionId"`
}

// SubmissionResponse acknowledges an accepted submission. QuoteRef is set
// only for quote requests.
type SubmissionResponse struct {
	Success  bool   `json:"success"`
	Message  string `json:"message"`
	QuoteRef string `json:"quoteRef,omitempty"`
}
