package dto

import "time"

// Response is the envelope of every API response
type Response struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorInfo `json:"error,omitempty"`
	Meta    *Meta      `json:"meta,omitempty"`
}

// Meta annotates a response without changing its outcome
type Meta struct {
	Warnings []Warning `json:"warnings,omitempty"`
}

// Warning reports a side effect of a successful request that did not complete
type Warning struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorInfo describes a failed request. Details carries per-field or
// per-item information such as validation failures or stock shortfalls.
type ErrorInfo struct {
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	RequestID string    `json:"request_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Retryable bool      `json:"retryable,omitempty"`
	Details   any       `json:"details,omitempty"`
}

// ValidationDetail is one rejected request field
type ValidationDetail struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// NewSuccessResponse creates a success response
func NewSuccessResponse(data any) Response {
	return Response{Success: true, Data: data}
}

// NewErrorResponse creates an error response
func NewErrorResponse(code, message string) Response {
	return NewErrorResponseWithRequestID(code, message, "")
}

// NewErrorResponseWithRequestID creates an error response tagged with the request id
func NewErrorResponseWithRequestID(code, message, requestID string) Response {
	return Response{
		Success: false,
		Error: &ErrorInfo{
			Code:      code,
			Message:   message,
			RequestID: requestID,
			Timestamp: time.Now().UTC(),
		},
	}
}

// NewValidationErrorResponse creates a 400 response listing the rejected fields
func NewValidationErrorResponse(message, requestID string, details []ValidationDetail) Response {
	resp := NewErrorResponseWithRequestID(ErrCodeValidation, message, requestID)
	resp.Error.Details = details
	return resp
}

// WithDetails attaches details to an error response
func (r Response) WithDetails(details any) Response {
	if r.Error != nil {
		r.Error.Details = details
	}
	return r
}

// WithData attaches data to a response. Error responses may carry data when
// part of the request took effect.
func (r Response) WithData(data any) Response {
	r.Data = data
	return r
}

// WithWarning appends a warning to the response meta
func (r Response) WithWarning(code, message string) Response {
	if r.Meta == nil {
		r.Meta = &Meta{}
	}
	r.Meta.Warnings = append(r.Meta.Warnings, Warning{Code: code, Message: message})
	return r
}

// AsRetryable marks an error response as safe to retry unchanged
func (r Response) AsRetryable() Response {
	if r.Error != nil {
		r.Error.Retryable = true
	}
	return r
}
