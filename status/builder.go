package status

import (
	"encoding/json"
	"net/http"

	"golang.org/x/net/http/httpguts"
)

type envelope struct {
	outcome Outcome
	message string
	header  http.Header
	cookies []*http.Cookie
}

func newEnvelope(outcome Outcome, message string) envelope {
	return envelope{outcome: outcome, message: message, header: make(http.Header)}
}

// setHeader replaces any previous value for key. Invalid names or values
// are dropped.
func (e *envelope) setHeader(key, value string) {
	if !httpguts.ValidHeaderFieldName(key) || !httpguts.ValidHeaderFieldValue(value) {
		return
	}
	e.header.Set(key, value)
}

func (e *envelope) addCookie(c *http.Cookie) {
	if c == nil {
		return
	}
	cp := *c
	e.cookies = append(e.cookies, &cp)
}

func (e *envelope) finish(body []byte) *Response {
	cookies := make([]*http.Cookie, len(e.cookies))
	for i, c := range e.cookies {
		cp := *c
		cookies[i] = &cp
	}
	return &Response{
		outcome: e.outcome,
		code:    e.outcome.Code(),
		header:  e.header.Clone(),
		cookies: cookies,
		body:    body,
	}
}

type errorBody struct {
	Status Outcome `json:"status"`
	Error  string  `json:"error"`
	Input  *string `json:"input,omitempty"`
}

// ErrorBuilder accumulates a failure response.
type ErrorBuilder struct {
	envelope
	input *string
}

// Error starts a failure response for outcome.
func Error(outcome Outcome, message string) *ErrorBuilder {
	return &ErrorBuilder{envelope: newEnvelope(outcome, message)}
}

// Input echoes the offending raw value back to the caller.
func (b *ErrorBuilder) Input(input string) *ErrorBuilder {
	b.input = &input
	return b
}

// Header sets a response header. The last write for a key wins.
func (b *ErrorBuilder) Header(key, value string) *ErrorBuilder {
	b.setHeader(key, value)
	return b
}

// Cookie appends a cookie. Duplicate names are kept.
func (b *ErrorBuilder) Cookie(c *http.Cookie) *ErrorBuilder {
	b.addCookie(c)
	return b
}

// Finish serializes the accumulated state.
func (b *ErrorBuilder) Finish() *Response {
	body, err := json.Marshal(errorBody{Status: b.outcome, Error: b.message, Input: b.input})
	if err != nil {
		return internalError(b.envelope)
	}
	return b.finish(body)
}

type successBody struct {
	Status  Outcome         `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// SuccessBuilder accumulates a success response.
type SuccessBuilder struct {
	envelope
	data    any
	hasData bool
}

// Success starts a success response for outcome.
func Success(outcome Outcome, message string) *SuccessBuilder {
	return &SuccessBuilder{envelope: newEnvelope(outcome, message)}
}

// Data attaches a JSON-serializable payload.
func (b *SuccessBuilder) Data(data any) *SuccessBuilder {
	b.data = data
	b.hasData = true
	return b
}

// Header sets a response header. The last write for a key wins.
func (b *SuccessBuilder) Header(key, value string) *SuccessBuilder {
	b.setHeader(key, value)
	return b
}

// Cookie appends a cookie. Duplicate names are kept.
func (b *SuccessBuilder) Cookie(c *http.Cookie) *SuccessBuilder {
	b.addCookie(c)
	return b
}

// Finish serializes the accumulated state. A payload that cannot be encoded
// turns the response into an InternalServerError.
func (b *SuccessBuilder) Finish() *Response {
	var data json.RawMessage
	if b.hasData {
		raw, err := json.Marshal(b.data)
		if err != nil {
			return internalError(b.envelope)
		}
		data = raw
	}

	body, err := json.Marshal(successBody{Status: b.outcome, Message: b.message, Data: data})
	if err != nil {
		return internalError(b.envelope)
	}
	return b.finish(body)
}

// internalError drops the collected headers and cookies so a failed
// response never sets session state.
func internalError(e envelope) *Response {
	e.outcome = InternalServerError
	e.header = make(http.Header)
	e.cookies = nil
	body, _ := json.Marshal(errorBody{Status: InternalServerError, Error: "failed to encode response"})
	return e.finish(body)
}
