package extraction

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/companionlabs/cortexmem-go/pkg/storage"
)

const (
	// DefaultBatchSize is how many turns one extraction call covers.
	DefaultBatchSize = 10

	// DefaultBatchTimeout bounds a single extraction call.
	DefaultBatchTimeout = 30 * time.Second
)

// draftNamespace seeds the deterministic draft ids.
var draftNamespace = uuid.NewSHA1(uuid.NameSpaceOID, []byte("cortexmem/extraction"))

// Sink receives each batch's drafts for persistence.
type Sink func(ctx context.Context, memories []*storage.Memory) error

// Progress is called after each batch with how many batches are done.
type Progress func(done, total int)

// RunResult summarizes an extraction run.
type RunResult struct {
	// Extracted is how many memories all batches produced.
	Extracted int

	// FailedBatches is how many batches were skipped after a retry.
	FailedBatches int

	// TotalBatches is how many batches the transcript split into.
	TotalBatches int
}

// BatcherConfig configures a Batcher.
type BatcherConfig struct {
	// BatchSize is the number of turns per extraction call.
	// Defaults to DefaultBatchSize.
	BatchSize int

	// BatchTimeout bounds each extraction call.
	// Defaults to DefaultBatchTimeout.
	BatchTimeout time.Duration

	// Logger receives per-batch failure and progress events.
	// Defaults to a no-op logger.
	Logger *zap.Logger
}

// Batcher drives a Capability over a transcript in fixed-size batches.
//
// Draft ids are derived from (owner, conversation, batch offset, index
// within batch), so re-running the same transcript produces the same
// ids and the store's upsert semantics absorb the retry without
// duplicates.
type Batcher struct {
	capability Capability
	batchSize  int
	timeout    time.Duration
	logger     *zap.Logger
}

// NewBatcher creates a batcher around the given capability.
func NewBatcher(capability Capability, cfg *BatcherConfig) *Batcher {
	if cfg == nil {
		cfg = &BatcherConfig{}
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	timeout := cfg.BatchTimeout
	if timeout <= 0 {
		timeout = DefaultBatchTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Batcher{
		capability: capability,
		batchSize:  batchSize,
		timeout:    timeout,
		logger:     logger,
	}
}

// Run extracts memories from the whole transcript batch by batch,
// handing each batch's drafts to the sink before moving on.
//
// A failing batch is retried once; if the retry also fails the batch is
// logged and skipped so one bad stretch of transcript cannot sink the
// run. Run returns an error only when the context is canceled, the sink
// fails (persistence errors must not pass silently), or at least one
// batch failed and the run produced nothing at all.
func (b *Batcher) Run(ctx context.Context, ownerID, conversationID string, turns []Turn, sink Sink, progress Progress) (*RunResult, error) {
	total := (len(turns) + b.batchSize - 1) / b.batchSize
	result := &RunResult{TotalBatches: total}

	for i := 0; i < total; i++ {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		offset := i * b.batchSize
		end := offset + b.batchSize
		if end > len(turns) {
			end = len(turns)
		}
		batch := turns[offset:end]

		drafts, err := b.extractWithRetry(ctx, batch, offset)
		if err != nil {
			result.FailedBatches++
			b.logger.Warn("extraction batch skipped",
				zap.String("owner_id", ownerID),
				zap.Int("offset", offset),
				zap.Error(err))
			if progress != nil {
				progress(i+1, total)
			}
			continue
		}

		stampDrafts(drafts, ownerID, conversationID, offset)
		result.Extracted += len(drafts)

		if len(drafts) > 0 && sink != nil {
			if err := sink(ctx, drafts); err != nil {
				return result, fmt.Errorf("persist batch at offset %d: %w", offset, err)
			}
		}

		b.logger.Debug("extraction batch done",
			zap.String("owner_id", ownerID),
			zap.Int("offset", offset),
			zap.Int("drafts", len(drafts)))
		if progress != nil {
			progress(i+1, total)
		}
	}

	if result.FailedBatches > 0 && result.Extracted == 0 {
		return result, errors.New("extraction produced no memories and at least one batch failed")
	}
	return result, nil
}

// extractWithRetry runs one extraction call under the batch timeout,
// retrying once on failure.
func (b *Batcher) extractWithRetry(ctx context.Context, batch []Turn, offset int) ([]*storage.Memory, error) {
	drafts, err := b.extractOnce(ctx, batch, offset)
	if err == nil {
		return drafts, nil
	}
	if ctx.Err() != nil {
		return nil, err
	}
	return b.extractOnce(ctx, batch, offset)
}

func (b *Batcher) extractOnce(ctx context.Context, batch []Turn, offset int) ([]*storage.Memory, error) {
	batchCtx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()
	return b.capability.Extract(batchCtx, batch, offset)
}

// stampDrafts fills in the owner, source conversation, and the
// deterministic offset-derived id on every draft.
func stampDrafts(drafts []*storage.Memory, ownerID, conversationID string, offset int) {
	for i, d := range drafts {
		d.OwnerID = ownerID
		if d.SourceConversationID == "" {
			d.SourceConversationID = conversationID
		}
		d.ID = DraftID(ownerID, conversationID, offset, i)
	}
}

// DraftID derives the deterministic id for the i-th draft of the batch
// starting at the given transcript offset.
func DraftID(ownerID, conversationID string, offset, index int) string {
	name := fmt.Sprintf("%s/%s/%d/%d", ownerID, conversationID, offset, index)
	return uuid.NewSHA1(draftNamespace, []byte(name)).String()
}
