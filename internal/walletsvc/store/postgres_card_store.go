package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/avvvet/card-wallet/internal/walletsvc/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Writes compare against the uuid column itself so the primary key index is
// used.
const (
	updateOpenCountQuery = `UPDATE cards SET open_count = GREATEST(open_count, $1) WHERE id = $2::uuid AND user_id = $3`
	deleteCardQuery      = `DELETE FROM cards WHERE id = $1::uuid AND user_id = $2`
)

type PostgresCardStore struct {
	db *pgxpool.Pool
}

func NewPostgresCardStore(db *pgxpool.Pool) *PostgresCardStore {
	return &PostgresCardStore{db: db}
}

func (s *PostgresCardStore) SelectByOwner(ctx context.Context, owner string) ([]models.Card, error) {
	query := `
		SELECT id::text, user_id, name, number, is_qr_code, color, image_url, open_count, created_at
		FROM cards
		WHERE user_id = $1
		ORDER BY open_count DESC, created_at DESC
	`

	rows, err := s.db.Query(ctx, query, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to select cards: %w", err)
	}
	defer rows.Close()

	cards := []models.Card{}
	for rows.Next() {
		var c models.Card
		err := rows.Scan(
			&c.ID,
			&c.UserID,
			&c.Name,
			&c.Number,
			&c.IsQRCode,
			&c.Color,
			&c.ImageURL,
			&c.OpenCount,
			&c.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan card: %w", err)
		}
		cards = append(cards, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read cards: %w", err)
	}

	return cards, nil
}

func (s *PostgresCardStore) Insert(ctx context.Context, card models.Card) (*models.Card, error) {
	const query = `
INSERT INTO cards (user_id, name, number, is_qr_code, color, image_url, open_count)
VALUES ($1, $2, $3, $4, $5, $6, 0)
RETURNING id::text, user_id, name, number, is_qr_code, color, image_url, open_count, created_at;
`
	c := &models.Card{}
	err := s.db.QueryRow(ctx, query,
		card.UserID, card.Name, card.Number, card.IsQRCode, card.Color, card.ImageURL,
	).Scan(
		&c.ID,
		&c.UserID,
		&c.Name,
		&c.Number,
		&c.IsQRCode,
		&c.Color,
		&c.ImageURL,
		&c.OpenCount,
		&c.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23502" {
			return nil, fmt.Errorf("invalid card: %s", pgErr.Message)
		}
		return nil, fmt.Errorf("failed to insert card: %w", err)
	}

	return c, nil
}

// cardID parses id as a card key. No row can match an id that is not a
// uuid, so those are reported as not found without a round trip.
func cardID(id string) (string, error) {
	u, err := uuid.Parse(id)
	if err != nil {
		return "", ErrCardNotFound
	}
	return u.String(), nil
}

func (s *PostgresCardStore) UpdateOpenCount(ctx context.Context, owner, id string, openCount int) error {
	key, err := cardID(id)
	if err != nil {
		return err
	}
	tag, err := s.db.Exec(ctx, updateOpenCountQuery, openCount, key, owner)
	if err != nil {
		return fmt.Errorf("failed to update open count: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrCardNotFound
	}
	return nil
}

func (s *PostgresCardStore) Delete(ctx context.Context, owner, id string) error {
	key, err := cardID(id)
	if err != nil {
		return err
	}
	tag, err := s.db.Exec(ctx, deleteCardQuery, key, owner)
	if err != nil {
		return fmt.Errorf("failed to delete card: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrCardNotFound
	}
	return nil
}

var _ CardStore = (*PostgresCardStore)(nil)
