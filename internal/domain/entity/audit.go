package entity

import "time"

type AuditStatus string

const (
	AuditCompleted AuditStatus = "COMPLETED"
	AuditCancelled AuditStatus = "CANCELLED"
	AuditRejected  AuditStatus = "REJECTED"
)

// ResponseMeta is what the audit trail keeps about the delivered response.
// It deliberately carries no user text.
type ResponseMeta struct {
	Reason        ReasonCode `json:"reason"`
	Category      string     `json:"category"`
	SchemaVersion int        `json:"schema_version"`
	IsGenerated   bool       `json:"is_generated"`
	TextLength    int        `json:"text_length"`
}

// AuditRecord is write-once: sinks insert it and never update it.
type AuditRecord struct {
	RequestID string        `json:"request_id"`
	SessionID string        `json:"session_id"`
	Timestamp time.Time     `json:"timestamp"`
	Status    AuditStatus   `json:"status"`
	Decision  Decision      `json:"decision"`
	Verdict   SafetyVerdict `json:"verdict"`
	Response  ResponseMeta  `json:"response"`
}
