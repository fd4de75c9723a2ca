package api

// ErrorResponse is the body of every non-2xx response
type ErrorResponse struct {
	Error string `json:"error"`
	// Fields carries per-field validation messages reported by the store
	Fields map[string]string `json:"fields,omitempty"`
}

// HealthResponse is the body of GET /health
type HealthResponse struct {
	Status     string            `json:"status"`
	Components map[string]string `json:"components"`
}
