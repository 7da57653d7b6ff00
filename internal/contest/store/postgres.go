package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"votum/internal/contest/models"
	id "votum/pkg/domain"
	"votum/pkg/platform/sentinel"
)

// PostgresStore persists contest configuration with pgx. Businesses are
// stored as one JSONB document each since the core only ever reads them whole.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) SaveContest(ctx context.Context, contest *models.Contest) error {
	settings, err := json.Marshal(contest.Settings)
	if err != nil {
		return fmt.Errorf("marshal canton settings: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO contests (id, state, canton_settings)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET state = EXCLUDED.state, canton_settings = EXCLUDED.canton_settings
	`, contest.ID.UUID(), string(contest.State), settings)
	if err != nil {
		return fmt.Errorf("upsert contest: %w", err)
	}
	return nil
}

func (s *PostgresStore) SaveBusiness(ctx context.Context, business *models.PoliticalBusiness) error {
	definition, err := json.Marshal(business)
	if err != nil {
		return fmt.Errorf("marshal political business: %w", err)
	}
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO political_businesses (id, contest_id, definition)
		SELECT $1, c.id, $3 FROM contests c WHERE c.id = $2
		ON CONFLICT (id) DO UPDATE SET contest_id = EXCLUDED.contest_id, definition = EXCLUDED.definition
	`, business.ID.UUID(), business.ContestID.UUID(), definition)
	if err != nil {
		return fmt.Errorf("upsert political business: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) FindContest(ctx context.Context, contestID id.ContestID) (*models.Contest, error) {
	var (
		contest  = models.Contest{ID: contestID}
		state    string
		settings []byte
	)
	err := s.pool.QueryRow(ctx,
		`SELECT state, canton_settings FROM contests WHERE id = $1`, contestID.UUID(),
	).Scan(&state, &settings)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find contest: %w", err)
	}
	contest.State = models.ContestState(state)
	if err := json.Unmarshal(settings, &contest.Settings); err != nil {
		return nil, fmt.Errorf("unmarshal canton settings: %w", err)
	}
	return &contest, nil
}

func (s *PostgresStore) FindBusiness(ctx context.Context, businessID id.PoliticalBusinessID) (*models.PoliticalBusiness, error) {
	var definition []byte
	err := s.pool.QueryRow(ctx,
		`SELECT definition FROM political_businesses WHERE id = $1`, businessID.UUID(),
	).Scan(&definition)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find political business: %w", err)
	}
	var business models.PoliticalBusiness
	if err := json.Unmarshal(definition, &business); err != nil {
		return nil, fmt.Errorf("unmarshal political business: %w", err)
	}
	return &business, nil
}

func (s *PostgresStore) ListBusinesses(ctx context.Context) ([]models.PoliticalBusiness, error) {
	rows, err := s.pool.Query(ctx, `SELECT definition FROM political_businesses ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list political businesses: %w", err)
	}
	defer rows.Close()

	var out []models.PoliticalBusiness
	for rows.Next() {
		var definition []byte
		if err := rows.Scan(&definition); err != nil {
			return nil, fmt.Errorf("scan political business: %w", err)
		}
		var business models.PoliticalBusiness
		if err := json.Unmarshal(definition, &business); err != nil {
			return nil, fmt.Errorf("unmarshal political business: %w", err)
		}
		out = append(out, business)
	}
	return out, rows.Err()
}
