package cdc

import (
	"context"
	"fmt"

	"forumpipe/internal/broker"
	"forumpipe/internal/cache"
	"forumpipe/internal/logger"
	"forumpipe/pkg/metrics"
)

const triggerCDC = "cdc"

// Invalidator forgets cached post snapshots when the row changes. It only ever deletes; the next
// read repopulates from the database.
type Invalidator struct {
	store  cache.Store
	logger logger.Logger
}

func NewInvalidator(store cache.Store, log logger.Logger) *Invalidator {
	return &Invalidator{store: store, logger: log}
}

func (i *Invalidator) Handler() broker.Handler {
	return broker.NewHandler("post-cache-invalidator", DecodeMessage, i.Handle)
}

func (i *Invalidator) Handle(ctx context.Context, rec ChangeRecord) error {
	if rec.Tombstone {
		i.logger.DebugwCtx(ctx, "Ignoring tombstone record")
		return nil
	}

	if rec.Op == "" {
		metrics.IncCacheInvalidation(triggerCDC, "skipped")
		i.logger.WarnwCtx(ctx, "Change record has no op, skipping")
		return nil
	}

	switch rec.Op {
	case OpUpdate, OpDelete:
	case OpCreate, OpRead:
		return nil
	default:
		metrics.IncCacheInvalidation(triggerCDC, "skipped")
		i.logger.WarnwCtx(ctx, "Unsupported change op, skipping", "op", rec.Op)
		return nil
	}

	id, ok := rec.ID()
	if !ok {
		metrics.IncCacheInvalidation(triggerCDC, "skipped")
		i.logger.WarnwCtx(ctx, "Change record has no row id, skipping", "op", rec.Op)
		return nil
	}

	key := cache.PostKey(id)
	if err := i.store.Delete(ctx, key); err != nil {
		metrics.IncCacheInvalidation(triggerCDC, "failed")
		return fmt.Errorf("failed to invalidate %s: %w", key, err)
	}

	metrics.IncCacheInvalidation(triggerCDC, "success")
	i.logger.InfowCtx(ctx, "Post cache invalidated",
		"key", key,
		"op", rec.Op,
	)
	return nil
}
