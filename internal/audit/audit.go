package audit

import (
	"context"
	"encoding/json"
	"log"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Recorder is the append-only audit sink consumed by mutating operations.
// Failures are the caller's to swallow; recording never gates a transition.
type Recorder interface {
	Record(ctx context.Context, category, eventType, actorID, resourceID string, before, after, metadata any) error
}

type PGRecorder struct {
	pool *pgxpool.Pool
}

func NewPGRecorder(pool *pgxpool.Pool) *PGRecorder {
	return &PGRecorder{pool: pool}
}

func (r *PGRecorder) Record(ctx context.Context, category, eventType, actorID, resourceID string, before, after, metadata any) error {
	bj := marshalOrNil(before)
	aj := marshalOrNil(after)
	mj := marshalOrNil(metadata)

	_, err := r.pool.Exec(ctx,
		`INSERT INTO audit_log (category, event_type, actor_id, resource_id, before, after, metadata)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		category, eventType, actorID, resourceID, bj, aj, mj,
	)
	if err != nil {
		log.Printf("[audit][ERROR] record %s/%s failed: %v", category, eventType, err)
	}
	return err
}

func marshalOrNil(v any) []byte {
	if v == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return b
}
