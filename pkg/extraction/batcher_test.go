package extraction

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/companionlabs/cortexmem-go/pkg/storage"
)

// fakeCapability yields one draft per batch and can be told to fail at
// specific offsets.
type fakeCapability struct {
	failOffsets map[int]bool
	calls       []int
}

func (f *fakeCapability) Extract(ctx context.Context, turns []Turn, startingOffset int) ([]*storage.Memory, error) {
	f.calls = append(f.calls, startingOffset)
	if f.failOffsets[startingOffset] {
		return nil, errors.New("boom")
	}
	return []*storage.Memory{{
		Content:   fmt.Sprintf("draft at %d", startingOffset),
		Type:      storage.TypeFact,
		CreatedAt: time.Now(),
	}}, nil
}

func makeTurns(n int) []Turn {
	turns := make([]Turn, n)
	for i := range turns {
		turns[i] = Turn{Role: "user", Content: fmt.Sprintf("turn %d", i)}
	}
	return turns
}

func collectSink(collected *[]*storage.Memory) Sink {
	return func(ctx context.Context, memories []*storage.Memory) error {
		*collected = append(*collected, memories...)
		return nil
	}
}

func TestBatcherChunksTranscript(t *testing.T) {
	fake := &fakeCapability{}
	b := NewBatcher(fake, &BatcherConfig{BatchSize: 10})

	var saved []*storage.Memory
	result, err := b.Run(context.Background(), "owner-1", "conv-1", makeTurns(25), collectSink(&saved), nil)
	require.NoError(t, err)

	assert.Equal(t, 3, result.TotalBatches)
	assert.Equal(t, 3, result.Extracted)
	assert.Zero(t, result.FailedBatches)
	assert.Equal(t, []int{0, 10, 20}, fake.calls)
	assert.Len(t, saved, 3)
}

func TestBatcherStampsOwnerAndIDs(t *testing.T) {
	b := NewBatcher(&fakeCapability{}, nil)

	var saved []*storage.Memory
	_, err := b.Run(context.Background(), "owner-1", "conv-1", makeTurns(12), collectSink(&saved), nil)
	require.NoError(t, err)
	require.Len(t, saved, 2)

	for _, m := range saved {
		assert.Equal(t, "owner-1", m.OwnerID)
		assert.Equal(t, "conv-1", m.SourceConversationID)
		assert.NotEmpty(t, m.ID)
	}
	assert.NotEqual(t, saved[0].ID, saved[1].ID)
}

func TestBatcherIDsAreDeterministicAcrossReruns(t *testing.T) {
	run := func() []string {
		var saved []*storage.Memory
		b := NewBatcher(&fakeCapability{}, nil)
		_, err := b.Run(context.Background(), "owner-1", "conv-1", makeTurns(25), collectSink(&saved), nil)
		require.NoError(t, err)
		ids := make([]string, len(saved))
		for i, m := range saved {
			ids[i] = m.ID
		}
		return ids
	}

	assert.Equal(t, run(), run(), "retrying the same transcript yields the same ids")
}

func TestBatcherIDsVaryByOwnerAndOffset(t *testing.T) {
	assert.NotEqual(t,
		DraftID("owner-1", "conv-1", 0, 0),
		DraftID("owner-2", "conv-1", 0, 0))
	assert.NotEqual(t,
		DraftID("owner-1", "conv-1", 0, 0),
		DraftID("owner-1", "conv-1", 10, 0))
	assert.NotEqual(t,
		DraftID("owner-1", "conv-1", 0, 0),
		DraftID("owner-1", "conv-1", 0, 1))
}

func TestBatcherSkipsFailedBatchAfterRetry(t *testing.T) {
	fake := &fakeCapability{failOffsets: map[int]bool{10: true}}
	b := NewBatcher(fake, &BatcherConfig{BatchSize: 10})

	var saved []*storage.Memory
	result, err := b.Run(context.Background(), "owner-1", "conv-1", makeTurns(25), collectSink(&saved), nil)
	require.NoError(t, err, "one bad batch must not sink the run")

	assert.Equal(t, 1, result.FailedBatches)
	assert.Equal(t, 2, result.Extracted)
	// The failing batch was attempted twice.
	assert.Equal(t, []int{0, 10, 10, 20}, fake.calls)
}

func TestBatcherErrorsWhenNothingExtractedAndBatchFailed(t *testing.T) {
	fake := &fakeCapability{failOffsets: map[int]bool{0: true}}
	b := NewBatcher(fake, &BatcherConfig{BatchSize: 10})

	result, err := b.Run(context.Background(), "owner-1", "conv-1", makeTurns(5), nil, nil)
	assert.Error(t, err)
	assert.Equal(t, 1, result.FailedBatches)
	assert.Zero(t, result.Extracted)
}

func TestBatcherEmptyTranscriptSucceeds(t *testing.T) {
	b := NewBatcher(&fakeCapability{}, nil)

	result, err := b.Run(context.Background(), "owner-1", "conv-1", nil, nil, nil)
	require.NoError(t, err)
	assert.Zero(t, result.TotalBatches)
	assert.Zero(t, result.Extracted)
}

func TestBatcherReportsProgress(t *testing.T) {
	b := NewBatcher(&fakeCapability{}, &BatcherConfig{BatchSize: 10})

	var reports [][2]int
	_, err := b.Run(context.Background(), "owner-1", "conv-1", makeTurns(25), nil,
		func(done, total int) {
			reports = append(reports, [2]int{done, total})
		})
	require.NoError(t, err)
	assert.Equal(t, [][2]int{{1, 3}, {2, 3}, {3, 3}}, reports)
}

func TestBatcherSinkErrorPropagates(t *testing.T) {
	b := NewBatcher(&fakeCapability{}, nil)

	_, err := b.Run(context.Background(), "owner-1", "conv-1", makeTurns(5),
		func(ctx context.Context, memories []*storage.Memory) error {
			return errors.New("disk full")
		}, nil)
	assert.ErrorContains(t, err, "disk full")
}
