package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/wicketpool/points-pipeline/internal/domain/rawdata"
	qb "github.com/wicketpool/points-pipeline/internal/platform/querybuilder"
)

type RawDataRepository struct {
	db *sqlx.DB
}

func NewRawDataRepository(db *sqlx.DB) *RawDataRepository {
	return &RawDataRepository{db: db}
}

func (r *RawDataRepository) Upsert(ctx context.Context, item rawdata.Payload) error {
	insertModel := rawPayloadInsertModel{
		MatchID:     item.MatchID,
		Provider:    item.Provider,
		Payload:     item.PayloadJSON,
		PayloadHash: item.PayloadHash,
		FetchedAt:   item.FetchedAt,
	}

	query, args, err := qb.InsertModel("raw_payloads", insertModel, `ON CONFLICT (match_id)
DO UPDATE SET
    provider = EXCLUDED.provider,
    payload = EXCLUDED.payload,
    payload_hash = EXCLUDED.payload_hash,
    fetched_at = EXCLUDED.fetched_at`)
	if err != nil {
		return fmt.Errorf("build upsert raw payload query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert raw payload match=%s: %w", item.MatchID, err)
	}
	return nil
}

func (r *RawDataRepository) GetByMatch(ctx context.Context, matchID string) (rawdata.Payload, bool, error) {
	query, args, err := qb.Select("*").
		From("raw_payloads").
		Where(qb.Eq("match_id", matchID)).
		ToSQL()
	if err != nil {
		return rawdata.Payload{}, false, fmt.Errorf("build get raw payload query: %w", err)
	}

	var row rawPayloadTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return rawdata.Payload{}, false, nil
		}
		return rawdata.Payload{}, false, fmt.Errorf("get raw payload: %w", err)
	}

	return rawdata.Payload{
		MatchID:     row.MatchID,
		Provider:    row.Provider,
		PayloadJSON: row.Payload,
		PayloadHash: row.PayloadHash,
		FetchedAt:   row.FetchedAt,
	}, true, nil
}

type rawPayloadTableModel struct {
	MatchID     string    `db:"match_id"`
	Provider    string    `db:"provider"`
	Payload     string    `db:"payload"`
	PayloadHash string    `db:"payload_hash"`
	FetchedAt   time.Time `db:"fetched_at"`
}

type rawPayloadInsertModel struct {
	MatchID     string    `db:"match_id"`
	Provider    string    `db:"provider"`
	Payload     string    `db:"payload"`
	PayloadHash string    `db:"payload_hash"`
	FetchedAt   time.Time `db:"fetched_at"`
}
