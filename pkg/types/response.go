package types

type SuccessEnvelope struct {
	Data any `json:"data"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

// PagedData wraps list payloads that carry a continuation cursor.
type PagedData struct {
	Items      any    `json:"items"`
	NextCursor string `json:"next_cursor,omitempty"`
	Degraded   bool   `json:"degraded,omitempty"`
}
