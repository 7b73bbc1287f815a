// Package envelope wraps API payloads with request metadata.
// Core results never carry request IDs or timings; they live only here.
package envelope

import (
	"time"

	json "github.com/goccy/go-json"

	"sasu-tax/core/determinism"
)

// Metadata accompanies every API response
type Metadata struct {
	RequestID string `json:"request_id"`

	// InputHash is the sha256 of the canonical request body
	InputHash string `json:"input_hash,omitempty"`

	TaxYear     int    `json:"tax_year,omitempty"`
	RateTableID string `json:"rate_table_id,omitempty"`

	DurationMs int64 `json:"duration_ms"`
}

// ErrorBody is the error half of a response
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Response is the wire envelope: exactly one of Data or Error is set
type Response struct {
	Data     interface{} `json:"data,omitempty"`
	Error    *ErrorBody  `json:"error,omitempty"`
	Metadata *Metadata   `json:"metadata"`
}

// Recorder collects metadata while a request is handled
type Recorder struct {
	meta  Metadata
	start time.Time
}

// Start begins recording for a request
func Start(requestID string) *Recorder {
	return &Recorder{
		meta:  Metadata{RequestID: requestID},
		start: time.Now(),
	}
}

// Input hashes the decoded request.
// Hashing the decoded value rather than raw bytes makes whitespace and key order irrelevant.
func (r *Recorder) Input(req interface{}) {
	if hash, err := InputHash(req); err == nil {
		r.meta.InputHash = hash
	}
}

// Table records the rate table a response was computed with
func (r *Recorder) Table(year int, id string) {
	r.meta.TaxYear = year
	r.meta.RateTableID = id
}

// Finish stamps the duration and returns the metadata
func (r *Recorder) Finish() *Metadata {
	meta := r.meta
	meta.DurationMs = time.Since(r.start).Milliseconds()
	return &meta
}

// Success wraps a payload
func (r *Recorder) Success(data interface{}) *Response {
	return &Response{Data: data, Metadata: r.Finish()}
}

// Failure wraps an error
func (r *Recorder) Failure(code, message string) *Response {
	return &Response{Error: &ErrorBody{Code: code, Message: message}, Metadata: r.Finish()}
}

// InputHash returns the hex sha256 of the JSON encoding of v
func InputHash(v interface{}) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return determinism.ComputeHash(data).Hex(), nil
}
