package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// Record kinds: a whole-run synthesis object or one partition's insight.
const (
	KindKnowledge = "knowledge"
	KindInsight   = "insight"
)

type Record struct {
	ID           string    `json:"id"`
	ProjectID    string    `json:"project_id"`
	Kind         string    `json:"kind"`
	Title        string    `json:"title"`
	Body         string    `json:"body"`
	BodyTokens   int       `json:"body_tokens"`
	PartitionID  string    `json:"partition_id,omitempty"`
	AnchorCommit string    `json:"anchor_commit,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

type SearchHit struct {
	Record
	BM25 float64 `json:"bm25"`
}

type AddRecordInput struct {
	ID           string
	ProjectID    string
	Kind         string
	Title        string
	Body         string
	BodyTokens   int
	PartitionID  string
	AnchorCommit string
	CreatedAt    time.Time
}

func (s *Store) AddRecord(input AddRecordInput) (Record, error) {
	id := input.ID
	if id == "" {
		id = NewID("K")
	}
	createdAt := input.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	createdAt = createdAt.UTC()

	_, err := s.db.Exec(`
		INSERT INTO records (id, project_id, kind, title, body, body_tokens, partition_id, anchor_commit, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, id, input.ProjectID, input.Kind, input.Title, input.Body, input.BodyTokens,
		input.PartitionID, input.AnchorCommit, createdAt.Format(time.RFC3339Nano))
	if err != nil {
		return Record{}, err
	}

	return Record{
		ID:           id,
		ProjectID:    input.ProjectID,
		Kind:         input.Kind,
		Title:        input.Title,
		Body:         input.Body,
		BodyTokens:   input.BodyTokens,
		PartitionID:  input.PartitionID,
		AnchorCommit: input.AnchorCommit,
		CreatedAt:    createdAt,
	}, nil
}

// SearchRecords runs an FTS match scoped to one project, best matches
// first. The query is quoted per term so user input cannot inject FTS
// syntax errors.
func (s *Store) SearchRecords(projectID, query string, limit int) ([]SearchHit, error) {
	match := sanitizeQuery(query)
	if match == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.db.Query(`
		SELECT r.id, r.project_id, r.kind, r.title, r.body, r.body_tokens,
		       r.partition_id, r.anchor_commit, r.created_at,
		       bm25(records_fts, 3.0, 1.0)
		FROM records_fts
		JOIN records r ON r.rowid = records_fts.rowid
		WHERE records_fts MATCH ? AND records_fts.project_id = ?
		ORDER BY bm25(records_fts, 3.0, 1.0)
		LIMIT ?
	`, match, projectID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SearchHit
	for rows.Next() {
		var hit SearchHit
		var createdAt string
		if err := rows.Scan(&hit.ID, &hit.ProjectID, &hit.Kind, &hit.Title, &hit.Body,
			&hit.BodyTokens, &hit.PartitionID, &hit.AnchorCommit, &createdAt, &hit.BM25); err != nil {
			return nil, err
		}
		hit.CreatedAt = parseTime(createdAt)
		out = append(out, hit)
	}
	return out, rows.Err()
}

// ListRecords returns a project's records newest first.
func (s *Store) ListRecords(projectID string, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(`
		SELECT id, project_id, kind, title, body, body_tokens, partition_id, anchor_commit, created_at
		FROM records
		WHERE project_id = ?
		ORDER BY created_at DESC
		LIMIT ?
	`, projectID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var rec Record
		var createdAt string
		if err := rows.Scan(&rec.ID, &rec.ProjectID, &rec.Kind, &rec.Title, &rec.Body,
			&rec.BodyTokens, &rec.PartitionID, &rec.AnchorCommit, &createdAt); err != nil {
			return nil, err
		}
		rec.CreatedAt = parseTime(createdAt)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// DeleteRecord removes one record by id; returns false when it did not
// exist.
func (s *Store) DeleteRecord(projectID, id string) (bool, error) {
	res, err := s.db.Exec(`DELETE FROM records WHERE project_id = ? AND id = ?`, projectID, id)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (s *Store) GetRecord(projectID, id string) (Record, error) {
	row := s.db.QueryRow(`
		SELECT id, project_id, kind, title, body, body_tokens, partition_id, anchor_commit, created_at
		FROM records
		WHERE project_id = ? AND id = ?
	`, projectID, id)

	var rec Record
	var createdAt string
	if err := row.Scan(&rec.ID, &rec.ProjectID, &rec.Kind, &rec.Title, &rec.Body,
		&rec.BodyTokens, &rec.PartitionID, &rec.AnchorCommit, &createdAt); err != nil {
		if err == sql.ErrNoRows {
			return Record{}, fmt.Errorf("record not found: %s", id)
		}
		return Record{}, err
	}
	rec.CreatedAt = parseTime(createdAt)
	return rec, nil
}

func sanitizeQuery(query string) string {
	var terms []string
	for _, tok := range strings.Fields(query) {
		tok = strings.Trim(tok, `"'`)
		if tok == "" {
			continue
		}
		terms = append(terms, fmt.Sprintf("%q", strings.ReplaceAll(tok, `"`, "")))
	}
	return strings.Join(terms, " ")
}

func parseTime(value string) time.Time {
	parsed, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return parsed
}
