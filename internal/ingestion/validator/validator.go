// Package validator checks alias requests and events before they reach the
// alias store or the indexer, returning per-field error details.
package validator

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/Adithya-Monish-Kumar-K/softdict/internal/ingestion"
)

const (
	maxAliasLength = 512
	maxValueLength = 1024
	maxBatchSize   = 1000
)

// ValidationError holds per-field validation failure messages.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for field, msg := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s: %s", field, msg))
	}
	sort.Strings(parts)
	return strings.Join(parts, "; ")
}

// ValidateAliasRequest checks every alias in req. Field names are indexed,
// e.g. "aliases[2].value".
func ValidateAliasRequest(req *ingestion.AliasRequest) error {
	errs := make(map[string]string)
	if !validOp(req.Op) {
		errs["op"] = fmt.Sprintf("unknown op %q", req.Op)
	}
	switch {
	case len(req.Aliases) == 0:
		errs["aliases"] = "at least one alias is required"
	case len(req.Aliases) > maxBatchSize:
		errs["aliases"] = fmt.Sprintf("at most %d aliases per request", maxBatchSize)
	default:
		for i, a := range req.Aliases {
			checkPair(errs, fmt.Sprintf("aliases[%d].", i), a.Alias, a.Value)
		}
	}
	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}

// ValidateAliasEvent checks an event read from Kafka.
func ValidateAliasEvent(ev *ingestion.AliasEvent) error {
	errs := make(map[string]string)
	if ev.Op == "" || !validOp(ev.Op) {
		errs["op"] = fmt.Sprintf("unknown op %q", ev.Op)
	}
	checkPair(errs, "", ev.Alias, ev.Value)
	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}

func validOp(op ingestion.Op) bool {
	switch op {
	case "", ingestion.OpUpsert, ingestion.OpDelete:
		return true
	}
	return false
}

func checkPair(errs map[string]string, prefix, alias, value string) {
	switch {
	case strings.TrimSpace(alias) == "":
		errs[prefix+"alias"] = "alias is required"
	case len(alias) > maxAliasLength:
		errs[prefix+"alias"] = fmt.Sprintf("alias must be at most %d bytes", maxAliasLength)
	case !utf8.ValidString(alias):
		errs[prefix+"alias"] = "alias must be valid UTF-8"
	case strings.ContainsAny(alias, "\t\n\r"):
		errs[prefix+"alias"] = "alias must not contain tabs or newlines"
	}
	switch {
	case strings.TrimSpace(value) == "":
		errs[prefix+"value"] = "value is required"
	case len(value) > maxValueLength:
		errs[prefix+"value"] = fmt.Sprintf("value must be at most %d bytes", maxValueLength)
	case !utf8.ValidString(value):
		errs[prefix+"value"] = "value must be valid UTF-8"
	case strings.ContainsAny(value, "\t\n\r"):
		errs[prefix+"value"] = "value must not contain tabs or newlines"
	}
}
