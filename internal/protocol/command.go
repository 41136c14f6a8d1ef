package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/bft-labs/fimsync/internal/domain"
)

// Inbound commands sent by the collector.
const (
	CommandChecksumFail = "checksum_fail"
	CommandNoData       = "no_data"
)

// Command is a parsed inbound message: `<name> {"id": N, "begin": "k", "end": "k"}`.
type Command struct {
	Name  string
	ID    int64
	Begin string
	End   string
}

// ParseCommand parses and validates a raw inbound message. Errors wrap
// domain.ErrNoArgument or domain.ErrInvalidArgument.
// Unknown command names are not rejected here.
func ParseCommand(raw string) (Command, error) {
	name, arg, found := strings.Cut(raw, " ")
	if !found {
		return Command{}, fmt.Errorf("%w: %q", domain.ErrNoArgument, raw)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(arg), &fields); err != nil || fields == nil {
		return Command{}, fmt.Errorf("%w: %q", domain.ErrInvalidArgument, arg)
	}

	id, ok := parseNumber(fields["id"])
	if !ok {
		return Command{}, fmt.Errorf("%w: id is not a number: %q", domain.ErrInvalidArgument, arg)
	}
	begin, okBegin := parseString(fields["begin"])
	end, okEnd := parseString(fields["end"])
	if !okBegin || !okEnd {
		return Command{}, fmt.Errorf("%w: missing range: %q", domain.ErrInvalidArgument, arg)
	}

	return Command{Name: name, ID: id, Begin: begin, End: end}, nil
}

func parseNumber(raw json.RawMessage) (int64, bool) {
	if len(raw) == 0 {
		return 0, false
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return 0, false
	}
	n, ok := v.(json.Number)
	if !ok {
		return 0, false
	}
	if i, err := n.Int64(); err == nil {
		return i, true
	}
	f, err := n.Float64()
	if err != nil || math.IsNaN(f) || f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, false
	}
	return int64(f), true
}

func parseString(raw json.RawMessage) (string, bool) {
	if len(raw) == 0 {
		return "", false
	}
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}
