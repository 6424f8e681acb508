package schema

// MessageResponse is the plain acknowledgment returned by most write endpoints.
type MessageResponse struct {
	Message string `json:"message"`
}

// ErrorResponse is the error body shape of every failing endpoint.
type ErrorResponse struct {
	Error string `json:"error"`
}
