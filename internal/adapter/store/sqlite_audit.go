package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"sentinel-bfsi/internal/domain/entity"
)

// SQLiteAudit persists audit records. Rows are inserted once and never
// updated; a duplicate request id is an error.
type SQLiteAudit struct {
	db *sql.DB
}

// NewSQLiteAudit opens a SQLite database at the given path and configures WAL mode.
func NewSQLiteAudit(dsn string) (*SQLiteAudit, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite audit: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite audit: exec %s", pragma)
		}
	}
	return &SQLiteAudit{db: db}, nil
}

const auditMigration = `
CREATE TABLE IF NOT EXISTS audit_records (
	request_id     TEXT PRIMARY KEY,
	session_id     TEXT NOT NULL,
	recorded_at    DATETIME NOT NULL,
	status         TEXT NOT NULL,
	tier           TEXT NOT NULL,
	reason         TEXT NOT NULL,
	confidence     REAL NOT NULL,
	category       TEXT NOT NULL,
	violation      TEXT NOT NULL,
	decision       TEXT NOT NULL,
	verdict        TEXT NOT NULL,
	response_meta  TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_audit_session ON audit_records(session_id);
CREATE INDEX IF NOT EXISTS idx_audit_reason ON audit_records(reason);

CREATE TRIGGER IF NOT EXISTS audit_records_no_update
BEFORE UPDATE ON audit_records
BEGIN
	SELECT RAISE(ABORT, 'audit records are write-once');
END;

CREATE TRIGGER IF NOT EXISTS audit_records_no_delete
BEFORE DELETE ON audit_records
BEGIN
	SELECT RAISE(ABORT, 'audit records are write-once');
END;
`

func (s *SQLiteAudit) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, auditMigration)
	return eris.Wrap(err, "sqlite audit: migrate")
}

func (s *SQLiteAudit) Close() error {
	return s.db.Close()
}

func (s *SQLiteAudit) Record(ctx context.Context, rec entity.AuditRecord) error {
	decision, err := json.Marshal(rec.Decision)
	if err != nil {
		return eris.Wrap(err, "sqlite audit: marshal decision")
	}
	verdict, err := json.Marshal(rec.Verdict)
	if err != nil {
		return eris.Wrap(err, "sqlite audit: marshal verdict")
	}
	meta, err := json.Marshal(rec.Response)
	if err != nil {
		return eris.Wrap(err, "sqlite audit: marshal response meta")
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO audit_records (request_id, session_id, recorded_at, status, tier, reason,
			confidence, category, violation, decision, verdict, response_meta)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.RequestID, rec.SessionID, rec.Timestamp.UTC().Format(time.RFC3339Nano), string(rec.Status),
		rec.Decision.Tier.String(), string(rec.Decision.Reason), rec.Decision.Confidence,
		rec.Decision.Category, string(rec.Verdict.Category),
		string(decision), string(verdict), string(meta),
	)
	return eris.Wrapf(err, "sqlite audit: insert %s", rec.RequestID)
}

// Get loads one record by request id.
func (s *SQLiteAudit) Get(ctx context.Context, requestID string) (*entity.AuditRecord, error) {
	var (
		rec                     entity.AuditRecord
		recordedAt, status      string
		decision, verdict, meta string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT request_id, session_id, recorded_at, status, decision, verdict, response_meta
		FROM audit_records WHERE request_id = ?`, requestID).
		Scan(&rec.RequestID, &rec.SessionID, &recordedAt, &status, &decision, &verdict, &meta)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite audit: get %s", requestID)
	}
	rec.Status = entity.AuditStatus(status)
	if rec.Timestamp, err = time.Parse(time.RFC3339Nano, recordedAt); err != nil {
		return nil, eris.Wrap(err, "sqlite audit: parse timestamp")
	}
	if err := json.Unmarshal([]byte(decision), &rec.Decision); err != nil {
		return nil, eris.Wrap(err, "sqlite audit: unmarshal decision")
	}
	if err := json.Unmarshal([]byte(verdict), &rec.Verdict); err != nil {
		return nil, eris.Wrap(err, "sqlite audit: unmarshal verdict")
	}
	if err := json.Unmarshal([]byte(meta), &rec.Response); err != nil {
		return nil, eris.Wrap(err, "sqlite audit: unmarshal response meta")
	}
	return &rec, nil
}

// CountByReason summarizes routed outcomes, e.g. for an escalation-rate check.
func (s *SQLiteAudit) CountByReason(ctx context.Context) (map[entity.ReasonCode]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT reason, COUNT(*) FROM audit_records GROUP BY reason`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite audit: count by reason")
	}
	defer rows.Close()

	out := make(map[entity.ReasonCode]int)
	for rows.Next() {
		var reason string
		var n int
		if err := rows.Scan(&reason, &n); err != nil {
			return nil, eris.Wrap(err, "sqlite audit: scan count")
		}
		out[entity.ReasonCode(reason)] = n
	}
	return out, eris.Wrap(rows.Err(), "sqlite audit: iterate counts")
}
