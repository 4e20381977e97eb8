package visual

import (
	"context"
	"database/sql"
	"errors"

	_ "github.com/lib/pq"
)

const schema = `
CREATE TABLE IF NOT EXISTS visuals (
	id               UUID PRIMARY KEY,
	campaign_id      TEXT NOT NULL,
	session_token    TEXT NOT NULL,
	participant_name TEXT NOT NULL DEFAULT '',
	storage_key      TEXT NOT NULL,
	image_url        TEXT NOT NULL,
	width            INTEGER NOT NULL,
	height           INTEGER NOT NULL,
	created_at       TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS visuals_campaign_created_idx ON visuals (campaign_id, created_at DESC);
`

type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, schema)
	return err
}

func (r *PostgresRepository) Create(ctx context.Context, v *Visual) error {
	query := `INSERT INTO visuals (id, campaign_id, session_token, participant_name, storage_key, image_url, width, height, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.db.ExecContext(ctx, query, v.ID, v.CampaignID, v.SessionToken, v.ParticipantName,
		v.StorageKey, v.ImageURL, v.Width, v.Height, v.CreatedAt)
	return err
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*Visual, error) {
	var v Visual
	query := `SELECT id, campaign_id, session_token, participant_name, storage_key, image_url, width, height, created_at
		FROM visuals WHERE id = $1`
	err := r.db.QueryRowContext(ctx, query, id).Scan(&v.ID, &v.CampaignID, &v.SessionToken, &v.ParticipantName,
		&v.StorageKey, &v.ImageURL, &v.Width, &v.Height, &v.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *PostgresRepository) ListByCampaign(ctx context.Context, campaignID string, limit int) ([]Visual, error) {
	query := `SELECT id, campaign_id, session_token, participant_name, storage_key, image_url, width, height, created_at
		FROM visuals WHERE campaign_id = $1 ORDER BY created_at DESC LIMIT $2`
	rows, err := r.db.QueryContext(ctx, query, campaignID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	visuals := []Visual{}
	for rows.Next() {
		var v Visual
		if err := rows.Scan(&v.ID, &v.CampaignID, &v.SessionToken, &v.ParticipantName,
			&v.StorageKey, &v.ImageURL, &v.Width, &v.Height, &v.CreatedAt); err != nil {
			return nil, err
		}
		visuals = append(visuals, v)
	}
	return visuals, rows.Err()
}
