package domain

import "time"

// Response codes reported to the harness. CodeInitFailure is the sentinel
// used when subscription-client creation fails; no broker response carries it.
const (
	CodeOK          = "200"
	CodeInitFailure = "000"
)

// Result is the outcome of one sample call: the timing window, the drained
// payload (or just its size), the property trace, and the counts the harness
// aggregates. Produced once per call and handed off, never retained.
type Result struct {
	Label           string
	Start           time.Time
	End             time.Time
	Success         bool
	ResponseCode    string
	ResponseMessage string
	ResponseData    []byte
	Bytes           int
	ResponseHeaders string
	SamplerData     string
	SampleCount     int
}

// NewResult returns a Result labeled for the sampler that produced it.
func NewResult(label string) *Result {
	return &Result{Label: label}
}

// SampleStart records the beginning of the timing window.
func (r *Result) SampleStart() {
	r.Start = time.Now()
}

// SampleEnd records the end of the timing window. Called regardless of how
// the wait loop terminated.
func (r *Result) SampleEnd() {
	r.End = time.Now()
}

// Duration is the width of the timing window.
func (r *Result) Duration() time.Duration {
	return r.End.Sub(r.Start)
}

// Fail marks the result as a failed sample with the given code and the
// error text as the human-readable message.
func (r *Result) Fail(code string, err error) {
	r.Success = false
	r.ResponseCode = code
	if err != nil {
		r.ResponseMessage = err.Error()
	}
}
