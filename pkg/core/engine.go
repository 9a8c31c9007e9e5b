package core

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/companionlabs/cortexmem-go/pkg/cortex"
	"github.com/companionlabs/cortexmem-go/pkg/extraction"
	"github.com/companionlabs/cortexmem-go/pkg/intent"
	"github.com/companionlabs/cortexmem-go/pkg/llm"
	"github.com/companionlabs/cortexmem-go/pkg/llm/openai"
	"github.com/companionlabs/cortexmem-go/pkg/storage"
	"github.com/companionlabs/cortexmem-go/pkg/storage/mysql"
	"github.com/companionlabs/cortexmem-go/pkg/storage/postgres"
	"github.com/companionlabs/cortexmem-go/pkg/storage/sqlite"
)

// contextMemoryLimit is how many memories a prompt context may carry.
const contextMemoryLimit = 5

// Engine is the conversational memory client.
//
// It owns the storage backend, the extraction capability, the retention
// policy, and the per-session intent tracker, and exposes the operations
// a companion host drives on every turn.
//
// Writes for the same owner are serialized with a per-owner lock; the
// store itself stays last-write-wins.
type Engine struct {
	cfg        *Config
	store      storage.Store
	provider   llm.Provider
	capability extraction.Capability
	batcher    *extraction.Batcher
	policy     *storage.RetentionPolicy
	tracker    *intent.Tracker
	logger     *zap.Logger

	mu     sync.Mutex
	owners map[string]*sync.Mutex
}

// Option customizes an Engine beyond what Config expresses.
type Option func(*Engine)

// WithLogger sets the engine's logger. Defaults to a no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithStore injects a pre-built storage backend, overriding the
// config's store provider. Useful for tests.
func WithStore(store storage.Store) Option {
	return func(e *Engine) {
		e.store = store
	}
}

// WithCapability injects an extraction capability, overriding the
// config's LLM provider.
func WithCapability(capability extraction.Capability) Option {
	return func(e *Engine) {
		e.capability = capability
	}
}

// WithClassifier replaces the intent classifier, e.g. to supply
// localized keyword sets.
func WithClassifier(classifier *intent.Classifier) Option {
	return func(e *Engine) {
		e.tracker = intent.NewTracker(classifier)
	}
}

// NewEngine creates an engine from the given configuration.
func NewEngine(cfg *Config, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, NewEngineError("NewEngine", err)
	}

	e := &Engine{
		cfg:    cfg,
		logger: zap.NewNop(),
		owners: make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.store == nil {
		store, err := initStore(cfg)
		if err != nil {
			return nil, NewEngineError("NewEngine", err)
		}
		e.store = store
	}

	if e.capability == nil {
		capability, provider, err := initCapability(cfg)
		if err != nil {
			e.store.Close()
			return nil, NewEngineError("NewEngine", err)
		}
		e.capability = capability
		e.provider = provider
	}

	e.batcher = extraction.NewBatcher(e.capability, &extraction.BatcherConfig{
		BatchSize: cfg.Extraction.BatchSize,
		Logger:    e.logger,
	})

	e.policy = storage.DefaultRetentionPolicy()
	if cfg.Retention.Disabled {
		e.policy.AutoCleanupEnabled = false
	}
	if cfg.Retention.MaxMemoriesPerOwner > 0 {
		e.policy.MaxMemoriesPerOwner = cfg.Retention.MaxMemoriesPerOwner
	}

	if e.tracker == nil {
		e.tracker = intent.NewTracker(nil)
	}

	return e, nil
}

func initStore(cfg *Config) (storage.Store, error) {
	switch cfg.Store.Provider {
	case "sqlite":
		return sqlite.NewClient(&sqlite.Config{DBPath: cfg.Store.SQLitePath})
	case "postgres":
		return postgres.NewClient(&postgres.Config{
			Host:     cfg.Store.Host,
			Port:     cfg.Store.Port,
			User:     cfg.Store.User,
			Password: cfg.Store.Password,
			DBName:   cfg.Store.DBName,
			SSLMode:  cfg.Store.SSLMode,
		})
	case "mysql":
		return mysql.NewClient(&mysql.Config{
			Host:     cfg.Store.Host,
			Port:     cfg.Store.Port,
			User:     cfg.Store.User,
			Password: cfg.Store.Password,
			DBName:   cfg.Store.DBName,
		})
	default:
		return nil, ErrInvalidConfig
	}
}

func initCapability(cfg *Config) (extraction.Capability, llm.Provider, error) {
	switch cfg.LLM.Provider {
	case "openai":
		provider, err := openai.NewClient(&openai.Config{
			APIKey:  cfg.LLM.APIKey,
			Model:   cfg.LLM.Model,
			BaseURL: cfg.LLM.BaseURL,
		})
		if err != nil {
			return nil, nil, err
		}
		return extraction.NewLLMExtractor(provider), provider, nil
	default:
		return extraction.NewRuleExtractor(), nil, nil
	}
}

// Intents returns the engine's session intent tracker.
func (e *Engine) Intents() *intent.Tracker {
	return e.tracker
}

// Remember extracts memories from the given turns, persists them,
// applies retention, and rebuilds the owner's profile.
//
// Draft ids derive from the conversation id and batch offsets, so
// re-running the same turns is idempotent.
func (e *Engine) Remember(ctx context.Context, ownerID, conversationID string, turns []extraction.Turn) (*extraction.RunResult, error) {
	if ownerID == "" {
		return nil, NewEngineError("Remember", ErrInvalidInput)
	}

	unlock := e.lockOwner(ownerID)
	defer unlock()

	result, err := e.batcher.Run(ctx, ownerID, conversationID, turns, e.store.Save, nil)
	if err != nil {
		return result, NewEngineError("Remember", err)
	}

	if _, err := e.cleanupLocked(ctx, ownerID); err != nil {
		return result, NewEngineError("Remember", err)
	}
	if err := e.rebuildCortex(ctx, ownerID); err != nil {
		return result, NewEngineError("Remember", err)
	}
	return result, nil
}

// Cleanup applies the retention policy to the owner's memories and
// returns how many were evicted.
func (e *Engine) Cleanup(ctx context.Context, ownerID string) (int, error) {
	unlock := e.lockOwner(ownerID)
	defer unlock()

	evicted, err := e.cleanupLocked(ctx, ownerID)
	if err != nil {
		return 0, NewEngineError("Cleanup", err)
	}
	return evicted, nil
}

func (e *Engine) cleanupLocked(ctx context.Context, ownerID string) (int, error) {
	evicted, err := e.store.Cleanup(ctx, ownerID, e.policy)
	if err != nil {
		return 0, err
	}
	if evicted > 0 {
		e.logger.Info("memories evicted",
			zap.String("owner_id", ownerID),
			zap.Int("count", evicted))
	}
	return evicted, nil
}

// rebuildCortex regenerates and persists the owner's profile from the
// full memory set. Callers must hold the owner lock.
func (e *Engine) rebuildCortex(ctx context.Context, ownerID string) error {
	memories, err := e.store.Load(ctx, ownerID)
	if err != nil {
		return err
	}
	return e.store.SaveCortex(ctx, cortex.Build(ownerID, memories, time.Now()))
}

// ContextForMessage assembles the text block to prepend to an outgoing
// user message: the consolidated profile plus the most relevant
// memories for the message's keywords.
//
// Read failures degrade to an empty string; context assembly must never
// break the conversation flow.
func (e *Engine) ContextForMessage(ctx context.Context, ownerID, message string) string {
	keywords := ExtractKeywords(message)

	var profileBlock string
	if profile, err := e.store.LoadCortex(ctx, ownerID); err == nil {
		profileBlock = cortex.ContextForAI(profile)
	} else {
		e.logger.Warn("profile load failed", zap.String("owner_id", ownerID), zap.Error(err))
	}

	memoryBlock, err := e.store.RankedContext(ctx, ownerID, keywords, contextMemoryLimit)
	if err != nil {
		e.logger.Warn("memory retrieval failed", zap.String("owner_id", ownerID), zap.Error(err))
		memoryBlock = ""
	}

	switch {
	case profileBlock != "" && memoryBlock != "":
		return strings.TrimRight(profileBlock, "\n") + "\n\n" + memoryBlock
	case profileBlock != "":
		return profileBlock
	default:
		return memoryBlock
	}
}

// Memories returns all of the owner's memories.
func (e *Engine) Memories(ctx context.Context, ownerID string) ([]*Memory, error) {
	records, err := e.store.Load(ctx, ownerID)
	if err != nil {
		return nil, NewEngineError("Memories", err)
	}
	return toCoreMemories(records), nil
}

// Close releases the engine's resources.
func (e *Engine) Close() error {
	if e.provider != nil {
		e.provider.Close()
	}
	return e.store.Close()
}

// lockOwner acquires the per-owner write lock.
func (e *Engine) lockOwner(ownerID string) func() {
	e.mu.Lock()
	lock, ok := e.owners[ownerID]
	if !ok {
		lock = &sync.Mutex{}
		e.owners[ownerID] = lock
	}
	e.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}
