package ocpi

import (
	"encoding/json"
	"time"
)

// Status codes carried in the OCPI response envelope.
const (
	StatusSuccess            = 1000
	StatusGenericClientError = 2000
	StatusUnknownLocation    = 2003
	StatusGenericServerError = 3000
	StatusUnableToUseAPI     = 3001
	StatusUnsupportedVersion = 3002
)

// Response is the envelope wrapping every OCPI payload.
type Response struct {
	Data          json.RawMessage `json:"data"`
	StatusCode    int             `json:"status_code"`
	StatusMessage string          `json:"status_message,omitempty"`
	Timestamp     string          `json:"timestamp"`
}

// NewResponse wraps data in an envelope; nil data becomes an empty list.
func NewResponse(statusCode int, data interface{}) *Response {
	raw := []byte("[]")
	if data != nil {
		if encoded, err := json.Marshal(data); err == nil {
			raw = encoded
		}
	}
	return &Response{
		Data:       raw,
		StatusCode: statusCode,
		Timestamp:  time.Now().UTC().Format("2006-01-02T15:04:05Z"),
	}
}
