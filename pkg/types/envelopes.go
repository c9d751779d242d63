package types

// SuccessEnvelope wraps successful API responses.
type SuccessEnvelope struct {
	Data any `json:"data"`
}

// APIError is the public error shape.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// ErrorEnvelope wraps failed API responses.
type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

// Page wraps a cursor-paginated list response.
type Page[T any] struct {
	Items      []T     `json:"items"`
	NextCursor *string `json:"next_cursor,omitempty"`
}
