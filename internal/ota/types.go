package ota

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// Request is an upgrade request as received. Fields are kept as text; an
// empty field counts as missing.
type Request struct {
	Server string
	Port   string
	URI    string
}

// Complete reports whether server, port and path are all present.
func (r Request) Complete() bool {
	return r.Server != "" && r.Port != "" && r.URI != ""
}

// Target converts the request into a fetch target. A port that is not a
// number becomes 0, which the fetcher rejects.
func (r Request) Target() Target {
	port, err := strconv.Atoi(r.Port)
	if err != nil {
		port = 0
	}
	return Target{Server: r.Server, Port: port, URI: r.URI}
}

// ParseRequest reads the value of a command's "upgrade" key. Values that are
// not strings or numbers, and payloads that are not objects, leave the
// corresponding fields empty.
func ParseRequest(raw json.RawMessage) Request {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var fields map[string]any
	if err := dec.Decode(&fields); err != nil {
		return Request{}
	}
	return Request{
		Server: text(fields["server"]),
		Port:   text(fields["port"]),
		URI:    text(fields["uri"]),
	}
}

func text(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	default:
		return ""
	}
}

// Target is a resolved firmware location.
type Target struct {
	Server string
	Port   int
	URI    string
}

// Outcome is the result class of a fetch-and-flash attempt.
type Outcome int

// Fetch outcomes.
const (
	Failed Outcome = iota
	NoUpdateAvailable
	Applied
)

// String returns the outcome name used in logs and event records.
func (o Outcome) String() string {
	switch o {
	case NoUpdateAvailable:
		return "no_update"
	case Applied:
		return "applied"
	default:
		return "failed"
	}
}

// Result is returned by a Fetcher. Err explains a Failed outcome.
type Result struct {
	Outcome Outcome
	Err     error
}
