package http

import (
	"net/http"
	"time"
)

// TimingInfo contains detailed timing of a single push
type TimingInfo struct {
	StartTime        time.Time
	DNSLookupTime    time.Duration
	TCPConnectTime   time.Duration
	TLSHandshakeTime time.Duration
	TimeToFirstByte  time.Duration
	TotalTime        time.Duration
}

// Response represents the import endpoint's answer to a push
type Response struct {
	StatusCode int
	Status     string
	Headers    http.Header

	// Body holds the beginning of the body for non-2xx responses only
	Body []byte

	Timing TimingInfo
}

// IsSuccess returns true if the response status code is in the 2xx range
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// IsClientError returns true if the response status code is in the 4xx range
func (r *Response) IsClientError() bool {
	return r.StatusCode >= 400 && r.StatusCode < 500
}

// IsServerError returns true if the response status code is in the 5xx range
func (r *Response) IsServerError() bool {
	return r.StatusCode >= 500 && r.StatusCode < 600
}
