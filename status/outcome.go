package status

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// Outcome is the closed set of results an auth operation can report.
type Outcome int

const (
	BadInput Outcome = iota
	NoCredential
	MalformedCredential
	ExpiredCredential
	CorruptCredential
	DataNotFound
	FailedToCreateData
	BadLoginCredentials
	Conflict
	RateLimited
	InternalServerError
	Ok
	Authenticated
	GoodLogin
	Created

	outcomeCount
)

var outcomeNames = [outcomeCount]string{
	BadInput:            "BadInput",
	NoCredential:        "NoCredential",
	MalformedCredential: "MalformedCredential",
	ExpiredCredential:   "ExpiredCredential",
	CorruptCredential:   "CorruptCredential",
	DataNotFound:        "DataNotFound",
	FailedToCreateData:  "FailedToCreateData",
	BadLoginCredentials: "BadLoginCredentials",
	Conflict:            "Conflict",
	RateLimited:         "RateLimited",
	InternalServerError: "InternalServerError",
	Ok:                  "Ok",
	Authenticated:       "Authenticated",
	GoodLogin:           "GoodLogin",
	Created:             "Created",
}

// Outcomes returns every defined outcome in declaration order.
func Outcomes() []Outcome {
	out := make([]Outcome, 0, outcomeCount)
	for o := Outcome(0); o < outcomeCount; o++ {
		out = append(out, o)
	}
	return out
}

// Valid reports whether o is one of the defined outcomes.
func (o Outcome) Valid() bool {
	return o >= 0 && o < outcomeCount
}

func (o Outcome) String() string {
	if !o.Valid() {
		return "Unknown"
	}
	return outcomeNames[o]
}

// Code returns the HTTP status for o. This is the only place transport codes
// are chosen.
func (o Outcome) Code() int {
	switch o {
	case BadInput:
		return http.StatusBadRequest
	case NoCredential, MalformedCredential, ExpiredCredential, CorruptCredential:
		return http.StatusForbidden
	case DataNotFound, FailedToCreateData, BadLoginCredentials:
		return http.StatusUnauthorized
	case Conflict:
		return http.StatusConflict
	case RateLimited:
		return http.StatusTooManyRequests
	case InternalServerError:
		return http.StatusInternalServerError
	case Ok, Authenticated, GoodLogin:
		return http.StatusOK
	case Created:
		return http.StatusCreated
	default:
		return http.StatusInternalServerError
	}
}

// IsSuccess reports whether o maps to a 2xx code.
func (o Outcome) IsSuccess() bool {
	c := o.Code()
	return c >= 200 && c < 300
}

// ParseOutcome resolves an outcome by its name.
func ParseOutcome(name string) (Outcome, error) {
	for o := Outcome(0); o < outcomeCount; o++ {
		if outcomeNames[o] == name {
			return o, nil
		}
	}
	return InternalServerError, fmt.Errorf("unknown outcome %q", name)
}

func (o Outcome) MarshalJSON() ([]byte, error) {
	return json.Marshal(o.String())
}

func (o *Outcome) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	parsed, err := ParseOutcome(name)
	if err != nil {
		return err
	}
	*o = parsed
	return nil
}
