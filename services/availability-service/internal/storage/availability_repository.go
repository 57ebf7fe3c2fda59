package storage

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/telecare-labs/telesched/libs/db"
	"github.com/telecare-labs/telesched/services/availability-service/internal/horizon"
	"github.com/telecare-labs/telesched/services/availability-service/internal/outbox"
)

// AvailabilityRepository persists one practitioner's template, horizon
// and blocks as a single row, so the triad can never be half-written.
type AvailabilityRepository struct {
	pool       *db.Pool
	outboxRepo *outbox.Repository
}

func NewAvailabilityRepository(pool *db.Pool, outboxRepo *outbox.Repository) *AvailabilityRepository {
	return &AvailabilityRepository{pool: pool, outboxRepo: outboxRepo}
}

// Load reconstructs the calendar; the second return is false when the
// practitioner has never configured availability.
func (r *AvailabilityRepository) Load(ctx context.Context, practitionerID string) (*horizon.Calendar, bool, error) {
	var template, hz, blocks []byte
	err := r.pool.QueryRow(ctx, `
		SELECT template, horizon, blocks
		FROM availability_states
		WHERE practitioner_id = $1
	`, practitionerID).Scan(&template, &hz, &blocks)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	cal := &horizon.Calendar{Blocks: horizon.BlockSet{}}
	if err := json.Unmarshal(template, &cal.Template); err != nil {
		return nil, false, err
	}
	if err := json.Unmarshal(hz, &cal.Horizon); err != nil {
		return nil, false, err
	}
	if err := json.Unmarshal(blocks, &cal.Blocks); err != nil {
		return nil, false, err
	}
	if cal.Blocks == nil {
		cal.Blocks = horizon.BlockSet{}
	}
	return cal, true, nil
}

// Save upserts the triad and appends any events in one transaction.
// Either everything lands or the previously persisted state survives.
func (r *AvailabilityRepository) Save(ctx context.Context, practitionerID string, cal *horizon.Calendar, events []outbox.Event) error {
	template, err := json.Marshal(cal.Template)
	if err != nil {
		return err
	}
	hz, err := json.Marshal(cal.Horizon)
	if err != nil {
		return err
	}
	blocks, err := json.Marshal(cal.Blocks)
	if err != nil {
		return err
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		INSERT INTO availability_states (practitioner_id, template, horizon, blocks)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (practitioner_id) DO UPDATE
		SET template = EXCLUDED.template,
			horizon = EXCLUDED.horizon,
			blocks = EXCLUDED.blocks,
			updated_at = now()
	`, practitionerID, template, hz, blocks)
	if err != nil {
		return err
	}

	for _, evt := range events {
		if err := r.outboxRepo.Insert(ctx, tx, evt); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}
