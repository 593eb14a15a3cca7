// Package history persists the append-only audit trail of applied corrections.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"avalia-integrity/internal/common/logger"
	"avalia-integrity/internal/models"
)

const defaultQueryLimit = 200

// Store writes and reads correction history rows. Entries are never updated or
// deleted; a reverted fix is a new entry, not a mutation of the old one.
type Store struct {
	db     *sql.DB
	logger logger.Logger
}

func NewStore(db *sql.DB, log logger.Logger) *Store {
	return &Store{
		db:     db,
		logger: log.WithFields(map[string]interface{}{"component": "history"}),
	}
}

// Append records one applied fix. The entry id and timestamp are assigned here
// when the caller leaves them zero.
func (s *Store) Append(ctx context.Context, e *models.HistoryEntry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	before, err := marshalState(e.Before)
	if err != nil {
		return fmt.Errorf("marshal before state: %w", err)
	}
	after, err := marshalState(e.After)
	if err != nil {
		return fmt.Errorf("marshal after state: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO correcoes_historico
			(id, tipo, severidade, entidade_tipo, entidade_id,
			 dados_antes, dados_depois, acao, automatica, usuario, criado_em)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		e.ID, e.Type, e.Severity, e.EntityKind, e.EntityID,
		before, after, e.Action, e.Automatic, e.User, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert history entry: %w", err)
	}
	return nil
}

// Query returns entries matching the filter, newest first.
func (s *Store) Query(ctx context.Context, f models.HistoryFilter) ([]models.HistoryEntry, error) {
	query := `
		SELECT id, tipo, severidade, entidade_tipo, entidade_id,
		       dados_antes, dados_depois, acao, automatica, usuario, criado_em
		FROM correcoes_historico
		WHERE 1=1`
	var args []interface{}

	addArg := func(clause string, v interface{}) {
		args = append(args, v)
		query += fmt.Sprintf(clause, len(args))
	}

	if f.Type != "" {
		addArg(" AND tipo = $%d", string(f.Type))
	}
	if f.EntityKind != "" {
		addArg(" AND entidade_tipo = $%d", f.EntityKind)
	}
	if f.EntityID != 0 {
		addArg(" AND entidade_id = $%d", f.EntityID)
	}
	if !f.From.IsZero() {
		addArg(" AND criado_em >= $%d", f.From)
	}
	if !f.To.IsZero() {
		addArg(" AND criado_em < $%d", f.To)
	}

	limit := f.Limit
	if limit <= 0 || limit > defaultQueryLimit {
		limit = defaultQueryLimit
	}
	addArg(" ORDER BY criado_em DESC LIMIT $%d", limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	entries := make([]models.HistoryEntry, 0, limit)
	for rows.Next() {
		var (
			e             models.HistoryEntry
			before, after []byte
		)
		if err := rows.Scan(&e.ID, &e.Type, &e.Severity, &e.EntityKind, &e.EntityID,
			&before, &after, &e.Action, &e.Automatic, &e.User, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan history entry: %w", err)
		}
		if e.Before, err = unmarshalState(before); err != nil {
			return nil, err
		}
		if e.After, err = unmarshalState(after); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func marshalState(m map[string]interface{}) ([]byte, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

func unmarshalState(b []byte) (map[string]interface{}, error) {
	if len(b) == 0 {
		return nil, nil
	}
	var m map[string]interface{}
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("unmarshal history state: %w", err)
	}
	return m, nil
}
