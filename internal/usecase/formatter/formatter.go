// Package formatter is the only place a Response can be built.
package formatter

import (
	"encoding/json"
	"fmt"

	"sentinel-bfsi/internal/domain/entity"
)

// SchemaVersion is bumped whenever the response shape changes.
const SchemaVersion = 1

// Response is immutable: fields are unexported and there are no setters.
type Response struct {
	text        string
	reason      entity.ReasonCode
	category    string
	tier        entity.Tier
	isGenerated bool
}

// Format builds the final response. The decision's verdict must be clean;
// passing a violating verdict is a programming error and panics.
func Format(text string, decision entity.Decision) Response {
	if decision.Verdict.Violation || decision.Verdict.Category != entity.ViolationNone {
		panic(fmt.Sprintf("formatter: refusing to format text with verdict %s (rule %s)",
			decision.Verdict.Category, decision.Verdict.RuleID))
	}
	return Response{
		text:        text,
		reason:      decision.Reason,
		category:    decision.Category,
		tier:        decision.Tier,
		isGenerated: decision.Reason.Generated(),
	}
}

func (r Response) Text() string { return r.text }
func (r Response) Reason() entity.ReasonCode { return r.reason }
func (r Response) Category() string { return r.category }
func (r Response) Tier() entity.Tier { return r.tier }
func (r Response) IsGenerated() bool { return r.isGenerated }
func (r Response) SchemaVersion() int { return SchemaVersion }
func (r Response) IsZero() bool { return r.reason == "" }

// Meta is the audit projection of the response (no text).
func (r Response) Meta() entity.ResponseMeta {
	return entity.ResponseMeta{
		Reason:        r.reason,
		Category:      r.category,
		SchemaVersion: SchemaVersion,
		IsGenerated:   r.isGenerated,
		TextLength:    len(r.text),
	}
}

type responseJSON struct {
	Response      string            `json:"response"`
	Reason        entity.ReasonCode `json:"reason"`
	Category      string            `json:"category"`
	Tier          string            `json:"tier"`
	SchemaVersion int               `json:"schema_version"`
	IsGenerated   bool              `json:"is_generated"`
}

func (r Response) MarshalJSON() ([]byte, error) {
	return json.Marshal(responseJSON{
		Response:      r.text,
		Reason:        r.reason,
		Category:      r.category,
		Tier:          r.tier.String(),
		SchemaVersion: SchemaVersion,
		IsGenerated:   r.isGenerated,
	})
}
