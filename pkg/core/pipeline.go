package core

import (
	"context"

	"go.uber.org/zap"

	"github.com/companionlabs/cortexmem-go/pkg/extraction"
)

// TranscriptSupplier hands the pipeline the full turn history to
// re-extract from. Hosts implement it over whatever their conversation
// archive looks like.
type TranscriptSupplier interface {
	Turns(ctx context.Context) ([]extraction.Turn, error)
}

// TurnSlice adapts an in-memory transcript to TranscriptSupplier.
type TurnSlice []extraction.Turn

// Turns returns the slice unchanged.
func (s TurnSlice) Turns(ctx context.Context) ([]extraction.Turn, error) {
	return s, nil
}

// Reprocess re-extracts memories from an owner's whole history.
//
// The pipeline runs sequentially: load all turns, chunk into fixed-size
// batches, extract and persist batch by batch, then rebuild and persist
// the profile. progress (optional) receives the fraction of chunks
// processed after each chunk. Failed batches are skipped, not fatal,
// unless the whole run produces nothing.
func (e *Engine) Reprocess(ctx context.Context, ownerID, conversationID string, supplier TranscriptSupplier, progress func(fraction float64)) (*extraction.RunResult, error) {
	if ownerID == "" || supplier == nil {
		return nil, NewEngineError("Reprocess", ErrInvalidInput)
	}

	turns, err := supplier.Turns(ctx)
	if err != nil {
		return nil, NewEngineError("Reprocess", err)
	}

	unlock := e.lockOwner(ownerID)
	defer unlock()

	var chunkProgress extraction.Progress
	if progress != nil {
		chunkProgress = func(done, total int) {
			progress(float64(done) / float64(total))
		}
	}

	result, err := e.batcher.Run(ctx, ownerID, conversationID, turns, e.store.Save, chunkProgress)
	if err != nil {
		return result, NewEngineError("Reprocess", err)
	}

	e.logger.Info("reprocessing complete",
		zap.String("owner_id", ownerID),
		zap.Int("extracted", result.Extracted),
		zap.Int("failed_batches", result.FailedBatches))

	if _, err := e.cleanupLocked(ctx, ownerID); err != nil {
		return result, NewEngineError("Reprocess", err)
	}
	if err := e.rebuildCortex(ctx, ownerID); err != nil {
		return result, NewEngineError("Reprocess", err)
	}
	return result, nil
}
