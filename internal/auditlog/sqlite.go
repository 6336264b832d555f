package auditlog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/spigell/hr-screener/internal/screening"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS audit_records (
	seq                  INTEGER PRIMARY KEY AUTOINCREMENT,
	audit_id             TEXT NOT NULL UNIQUE,
	timestamp            TEXT NOT NULL,
	trace_id             TEXT NOT NULL,
	candidate_id         TEXT NOT NULL,
	candidate_name       TEXT NOT NULL,
	applied_role         TEXT NOT NULL,
	requested_by         TEXT DEFAULT '',
	final_verdict        TEXT NOT NULL,
	risk_score           INTEGER NOT NULL,
	rationale            TEXT NOT NULL,
	matched_factors      TEXT NOT NULL DEFAULT '[]',
	redacted_description TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_audit_records_trace_id ON audit_records(trace_id);

CREATE TRIGGER IF NOT EXISTS audit_records_no_update
BEFORE UPDATE ON audit_records
BEGIN
	SELECT RAISE(ABORT, 'audit records are append-only');
END;

CREATE TRIGGER IF NOT EXISTS audit_records_no_delete
BEFORE DELETE ON audit_records
BEGIN
	SELECT RAISE(ABORT, 'audit records are append-only');
END;
`

// SQLiteStore keeps the trail in a sqlite table. Triggers reject updates and
// deletes.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// NewSQLiteStore opens or creates the database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	// One writer keeps the append order equal to the commit order.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating audit schema: %w", err)
	}

	return &SQLiteStore{db: db, path: path}, nil
}

func (s *SQLiteStore) Append(ctx context.Context, rec Record) error {
	factors, err := json.Marshal(rec.MatchedFactors)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO audit_records (audit_id, timestamp, trace_id, candidate_id, candidate_name, applied_role,
		 requested_by, final_verdict, risk_score, rationale, matched_factors, redacted_description)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.AuditID, rec.Timestamp.UTC().Format(time.RFC3339Nano), rec.TraceID, rec.CandidateID,
		rec.CandidateName, rec.AppliedRole, rec.RequestedBy, string(rec.FinalVerdict), rec.RiskScore,
		rec.Rationale, string(factors), rec.RedactedDescription,
	)
	return err
}

func (s *SQLiteStore) List(ctx context.Context) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT audit_id, timestamp, trace_id, candidate_id, candidate_name, applied_role, requested_by,
		 final_verdict, risk_score, rationale, matched_factors, redacted_description
		 FROM audit_records ORDER BY seq`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := []Record{}
	for rows.Next() {
		var (
			rec     Record
			ts      string
			verdict string
			factors string
		)
		if err := rows.Scan(&rec.AuditID, &ts, &rec.TraceID, &rec.CandidateID, &rec.CandidateName,
			&rec.AppliedRole, &rec.RequestedBy, &verdict, &rec.RiskScore, &rec.Rationale,
			&factors, &rec.RedactedDescription); err != nil {
			return nil, err
		}

		rec.FinalVerdict = screening.Decision(verdict)

		if rec.Timestamp, err = time.Parse(time.RFC3339Nano, ts); err != nil {
			return nil, &screening.StorageCorruption{Path: s.path + "#" + rec.AuditID, Err: err}
		}

		rec.MatchedFactors = []screening.Factor{}
		if err := json.Unmarshal([]byte(factors), &rec.MatchedFactors); err != nil {
			return nil, &screening.StorageCorruption{Path: s.path + "#" + rec.AuditID, Err: err}
		}

		records = append(records, rec)
	}

	return records, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
