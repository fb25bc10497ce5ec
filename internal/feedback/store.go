package feedback

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store persists interactions in PostgreSQL. Sources and feedback are
// stored as JSONB documents alongside the interaction row.
type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewStore creates a Store backed by pool. Pass a nil logger to use
// slog.Default.
func NewStore(pool *pgxpool.Pool, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{pool: pool, logger: logger}
}

// Create inserts a new interaction.
func (s *Store) Create(ctx context.Context, in *Interaction) error {
	sources, err := json.Marshal(in.Sources)
	if err != nil {
		return fmt.Errorf("failed to marshal sources: %w", err)
	}
	votes, err := json.Marshal(in.Feedback)
	if err != nil {
		return fmt.Errorf("failed to marshal feedback: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO interactions (id, query, response, user_context, sources, feedback, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		in.ID, in.Query, in.Response, in.UserContext, sources, votes, in.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create interaction: %w", err)
	}

	s.logger.Debug("recorded interaction", "id", in.ID, "sources", len(in.Sources))
	return nil
}

// Get retrieves an interaction by ID. Returns ErrNotFound when it does
// not exist.
func (s *Store) Get(ctx context.Context, id string) (*Interaction, error) {
	if uuid.Validate(id) != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	var (
		in      Interaction
		sources []byte
		votes   []byte
	)
	err := s.pool.QueryRow(ctx, `
		SELECT id, query, response, user_context, sources, feedback, created_at
		FROM interactions WHERE id = $1`, id).
		Scan(&in.ID, &in.Query, &in.Response, &in.UserContext, &sources, &votes, &in.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to get interaction %s: %w", id, err)
	}

	if err := json.Unmarshal(sources, &in.Sources); err != nil {
		return nil, fmt.Errorf("failed to parse interaction sources: %w", err)
	}
	if err := json.Unmarshal(votes, &in.Feedback); err != nil {
		return nil, fmt.Errorf("failed to parse interaction feedback: %w", err)
	}
	return &in, nil
}

// AppendVote atomically appends one vote to an interaction's feedback
// history. Returns ErrNotFound when the interaction does not exist.
func (s *Store) AppendVote(ctx context.Context, id string, v Vote) error {
	if uuid.Validate(id) != nil {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	encoded, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal vote: %w", err)
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE interactions SET feedback = feedback || $1::jsonb WHERE id = $2`,
		encoded, id)
	if err != nil {
		return fmt.Errorf("failed to append vote to %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}
