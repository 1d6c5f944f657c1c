package repositories

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/turtacn/CompliSense/internal/domain/suggestion"
	"github.com/turtacn/CompliSense/internal/infrastructure/monitoring/logging"
	appErrors "github.com/turtacn/CompliSense/pkg/errors"
	"github.com/turtacn/CompliSense/pkg/types/common"
)

// suggestionColumns is the canonical column list for the suggestions table.
const suggestionColumns = `
	id, entity_name, trigger_name, trigger_type, priority,
	title, message, action_id, action_label, metadata, raised_at`

// StoredSuggestion is one persisted advisory row: the raised suggestion plus
// the entity and time of the scan that produced it.
type StoredSuggestion struct {
	ID         common.ID
	EntityName string
	RaisedAt   time.Time
	Suggestion suggestion.Suggestion
}

// SuggestionRepository persists suggestions raised by trigger scans so the
// advisory history survives restarts and feeds compliance reports.
type SuggestionRepository struct {
	db     dbtx
	logger logging.Logger
}

// NewSuggestionRepository creates a suggestion repository backed by the
// given connection pool.
func NewSuggestionRepository(pool *pgxpool.Pool, logger logging.Logger) *SuggestionRepository {
	return &SuggestionRepository{
		db:     pool,
		logger: logger.Named("suggestion_repo"),
	}
}

// SaveBatch stores every suggestion from a single scan in one transaction.
// All rows share the entity name and raised-at time of the scan. Returns the
// generated row IDs in input order.
func (r *SuggestionRepository) SaveBatch(ctx context.Context, entityName string, raisedAt time.Time, suggestions []suggestion.Suggestion) ([]common.ID, error) {
	if len(suggestions) == 0 {
		return nil, nil
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.CodeDBQueryError, "failed to begin suggestion batch")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	query := `
		INSERT INTO suggestions (` + suggestionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	ids := make([]common.ID, 0, len(suggestions))
	for _, s := range suggestions {
		metadataJSON, err := marshalJSONB(s.Metadata)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrCodeSerialization, "failed to encode suggestion metadata")
		}

		id := common.NewID()
		_, err = tx.Exec(ctx, query,
			string(id),
			entityName,
			s.TriggerName,
			string(s.Type),
			string(s.Priority),
			s.Title,
			s.Message,
			s.ActionID,
			s.ActionLabel,
			metadataJSON,
			raisedAt,
		)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.CodeDBQueryError, "failed to insert suggestion")
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, appErrors.Wrap(err, appErrors.CodeDBQueryError, "failed to commit suggestion batch")
	}

	r.logger.Debug("suggestion batch stored",
		logging.String("entity_name", entityName),
		logging.Int("count", len(ids)),
	)
	return ids, nil
}

// ListByEntity returns the stored suggestions for an entity, newest scan
// first. A non-positive limit falls back to 50.
func (r *SuggestionRepository) ListByEntity(ctx context.Context, entityName string, limit int) ([]StoredSuggestion, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT ` + suggestionColumns + `
		FROM suggestions
		WHERE entity_name = $1
		ORDER BY raised_at DESC, id
		LIMIT $2`

	rows, err := r.db.Query(ctx, query, entityName, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.CodeDBQueryError, "failed to list suggestions")
	}
	defer rows.Close()

	return scanStoredSuggestions(rows)
}

// CountSince reports how many suggestions of the given trigger type were
// raised for an entity at or after the cutoff. The advisory service uses it
// to suppress repeat raises inside the cool-down window.
func (r *SuggestionRepository) CountSince(ctx context.Context, entityName string, triggerType suggestion.TriggerType, since time.Time) (int64, error) {
	query := `
		SELECT COUNT(*)
		FROM suggestions
		WHERE entity_name = $1 AND trigger_type = $2 AND raised_at >= $3`

	var count int64
	if err := r.db.QueryRow(ctx, query, entityName, string(triggerType), since).Scan(&count); err != nil {
		return 0, appErrors.Wrap(err, appErrors.CodeDBQueryError, "failed to count suggestions")
	}
	return count, nil
}

// DeleteOlderThan removes suggestions raised before the cutoff and returns
// the number of rows removed. Used by the worker's retention sweep.
func (r *SuggestionRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM suggestions WHERE raised_at < $1`, cutoff)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.CodeDBQueryError, "failed to delete expired suggestions")
	}

	removed := tag.RowsAffected()
	if removed > 0 {
		r.logger.Info("expired suggestions removed",
			logging.Int64("count", removed),
			logging.String("cutoff", cutoff.Format(time.RFC3339)),
		)
	}
	return removed, nil
}

// scanStoredSuggestions scans all positioned rows into stored suggestions.
func scanStoredSuggestions(rows pgx.Rows) ([]StoredSuggestion, error) {
	var out []StoredSuggestion
	for rows.Next() {
		var (
			s            StoredSuggestion
			id           string
			triggerType  string
			priority     string
			metadataJSON []byte
		)
		err := rows.Scan(
			&id,
			&s.EntityName,
			&s.Suggestion.TriggerName,
			&triggerType,
			&priority,
			&s.Suggestion.Title,
			&s.Suggestion.Message,
			&s.Suggestion.ActionID,
			&s.Suggestion.ActionLabel,
			&metadataJSON,
			&s.RaisedAt,
		)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.CodeDBQueryError, "failed to scan suggestion")
		}
		if len(metadataJSON) > 0 {
			if err := json.Unmarshal(metadataJSON, &s.Suggestion.Metadata); err != nil {
				return nil, appErrors.Wrap(err, appErrors.ErrCodeSerialization, "failed to decode suggestion metadata")
			}
		}
		s.ID = common.ID(id)
		s.Suggestion.Type = suggestion.TriggerType(triggerType)
		s.Suggestion.Priority = suggestion.Priority(priority)
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.CodeDBQueryError, "row iteration error")
	}
	return out, nil
}
