package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

const (
	DefaultProfession = "Not specified"
	DefaultLocation   = "Not specified"
	DefaultRisk       = "Medium"
)

var ErrMissingFields = errors.New("missing required fields")

// Age accepts either a JSON number or a JSON string and keeps it as text. A JSON
// number equal to zero is treated as absent; strings are kept verbatim, so "0" is
// a supplied age.
type Age string

func (a *Age) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*a = ""
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*a = Age(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("age must be a number or a string: %w", err)
	}
	if f, err := n.Float64(); err == nil && f == 0 {
		*a = ""
		return nil
	}
	*a = Age(n.String())
	return nil
}

// Present reports whether the age counts as supplied.
func (a Age) Present() bool {
	return a != ""
}

type GenerationRequest struct {
	Age        Age    `json:"age"`
	Profession string `json:"profession"`
	Location   string `json:"location"`
	Risk       string `json:"risk"`
	Decision   string `json:"decision"`
}

// Validate only checks presence; lengths, ranges and content are not checked.
func (r GenerationRequest) Validate() error {
	if !r.Age.Present() || r.Decision == "" {
		return ErrMissingFields
	}
	return nil
}

// WithDefaults fills the optional fields that were left empty.
func (r GenerationRequest) WithDefaults() GenerationRequest {
	if strings.TrimSpace(r.Profession) == "" {
		r.Profession = DefaultProfession
	}
	if strings.TrimSpace(r.Location) == "" {
		r.Location = DefaultLocation
	}
	if strings.TrimSpace(r.Risk) == "" {
		r.Risk = DefaultRisk
	}
	return r
}

type GenerationResponse struct {
	RawOutput string `json:"raw_output"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

// Test endpoint statuses
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

type TestResponse struct {
	Status   string `json:"status"`
	Response string `json:"response,omitempty"`
	Message  string `json:"message,omitempty"`
}
