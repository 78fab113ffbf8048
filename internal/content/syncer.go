package content

import (
	"context"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/mirelletran/fangallery-backend/pkg/broadcast"
	"github.com/mirelletran/fangallery-backend/pkg/db/models"
	"github.com/mirelletran/fangallery-backend/pkg/logger"
	"github.com/mirelletran/fangallery-backend/pkg/metrics"
)

// Channel names for the two snapshot channels. They double as broadcast
// event kinds and metric labels.
const (
	ChannelContent = "content"
	ChannelBanners = "banners"
)

// Source identifies which layer answered a load cycle.
type Source string

const (
	SourceRemote   Source = "remote"
	SourceMemory   Source = "memory"
	SourceFallback Source = "fallback"
	SourceEmpty    Source = "empty"
)

// SnapshotCodec serializes a record set to and from the fallback blob. A
// decode failure marks the snapshot corrupt.
type SnapshotCodec[T any] struct {
	Encode func([]T) (string, error)
	Decode func(string) ([]T, error)
}

// RecordSnapshotCodec is the codec for the content record channel.
func RecordSnapshotCodec() SnapshotCodec[models.ContentRecord] {
	return SnapshotCodec[models.ContentRecord]{Encode: EncodeSnapshot, Decode: DecodeSnapshot}
}

// SyncerConfig controls one logical snapshot channel.
type SyncerConfig struct {
	// Kind is the logical channel name ("content", "banners"). It doubles
	// as the metric label and the broadcast event kind.
	Kind string
	// SnapshotKey is the full fallback cache key for this channel.
	SnapshotKey string
	// SnapshotTTL bounds the fallback blob lifetime. Zero keeps it forever.
	SnapshotTTL time.Duration
	// RemoteAttempts caps remote fetch tries per cycle, including the first.
	RemoteAttempts int
	// RemoteBackoff is the pause between remote retries.
	RemoteBackoff time.Duration
	// MemoryCache serves repeat loads from process memory while no
	// invalidation has arrived.
	MemoryCache bool
}

const (
	defaultRemoteAttempts = 3
	defaultRemoteBackoff  = 100 * time.Millisecond
)

// Syncer keeps one record set available through remote outages. A load tries
// the remote store first and falls back to the cached snapshot; a corrupt
// snapshot is evicted and the cycle degrades to an empty set. Load never
// returns an error: the caller always gets something renderable.
type Syncer[T any] struct {
	remote   Lister[T]
	codec    SnapshotCodec[T]
	fallback SnapshotStore
	cfg      SyncerConfig
	logg     *logger.Logger
	metrics  *metrics.SyncMetrics

	mu sync.Mutex
	// generation advances on every invalidation. A refresh that started
	// under an older generation must not overwrite caches written by a
	// newer one.
	generation uint64
	cached     []T
	cachedGen  uint64
	hasCached  bool
}

// NewSyncer wires a syncer over the remote store and fallback cache. Metrics
// and logger may be nil.
func NewSyncer[T any](remote Lister[T], codec SnapshotCodec[T], fallback SnapshotStore, cfg SyncerConfig, logg *logger.Logger, syncMetrics *metrics.SyncMetrics) *Syncer[T] {
	if cfg.RemoteAttempts <= 0 {
		cfg.RemoteAttempts = defaultRemoteAttempts
	}
	if cfg.RemoteBackoff <= 0 {
		cfg.RemoteBackoff = defaultRemoteBackoff
	}
	return &Syncer[T]{
		remote:   remote,
		codec:    codec,
		fallback: fallback,
		cfg:      cfg,
		logg:     logg,
		metrics:  syncMetrics,
	}
}

// Kind returns the logical channel name the syncer serves.
func (s *Syncer[T]) Kind() string {
	return s.cfg.Kind
}

// AttachTo subscribes the syncer to change events for its channel and
// returns the unsubscribe func. Any matching event invalidates the memory
// cache so the next load refreshes.
func (s *Syncer[T]) AttachTo(b *broadcast.Broadcaster) func() {
	if b == nil {
		return func() {}
	}
	return b.Subscribe(func(ctx context.Context, evt broadcast.Event) {
		if evt.Kind != s.cfg.Kind {
			return
		}
		s.Invalidate()
	})
}

// Invalidate marks every cached layer stale. In-flight refreshes that
// started before the call will not commit their results.
func (s *Syncer[T]) Invalidate() {
	s.mu.Lock()
	s.generation++
	s.hasCached = false
	s.cached = nil
	s.mu.Unlock()
}

// Load returns the freshest record set it can get, and the source that
// served it. It never fails; total loss of every layer yields an empty set.
func (s *Syncer[T]) Load(ctx context.Context) ([]T, Source) {
	start := time.Now()

	s.mu.Lock()
	gen := s.generation
	if s.cfg.MemoryCache && s.hasCached && s.cachedGen == gen {
		records := append([]T(nil), s.cached...)
		s.mu.Unlock()
		s.observe(SourceMemory, start)
		return records, SourceMemory
	}
	s.mu.Unlock()

	records, err := s.fetchRemote(ctx)
	if err == nil {
		s.commit(ctx, gen, records)
		s.observe(SourceRemote, start)
		return records, SourceRemote
	}
	if s.logg != nil {
		s.logg.Error(ctx, "remote content fetch failed, trying fallback snapshot", err)
	}

	records, source := s.loadFallback(ctx)
	s.observe(source, start)
	return records, source
}

// Mirror rewrites the fallback snapshot from the given records and caches
// them in memory. Write paths call it after a successful remote mutation so
// the snapshot tracks the store without waiting for the next load.
func (s *Syncer[T]) Mirror(ctx context.Context, records []T) error {
	blob, err := s.codec.Encode(records)
	if err != nil {
		return err
	}
	if err := s.fallback.Set(ctx, s.cfg.SnapshotKey, blob, s.cfg.SnapshotTTL); err != nil {
		return err
	}
	s.mu.Lock()
	s.cached = append([]T(nil), records...)
	s.cachedGen = s.generation
	s.hasCached = true
	s.mu.Unlock()
	return nil
}

func (s *Syncer[T]) fetchRemote(ctx context.Context) ([]T, error) {
	backoff := retry.WithMaxRetries(uint64(s.cfg.RemoteAttempts-1), retry.NewConstant(s.cfg.RemoteBackoff))

	var records []T
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		fetched, err := s.remote.List(ctx)
		if err != nil {
			return retry.RetryableError(err)
		}
		records = fetched
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// commit publishes a fetched record set into the caches unless a newer
// invalidation has arrived since the cycle started.
func (s *Syncer[T]) commit(ctx context.Context, gen uint64, records []T) {
	s.mu.Lock()
	if s.generation != gen {
		s.mu.Unlock()
		s.metrics.IncStaleDiscard()
		if s.logg != nil {
			s.logg.Warn(ctx, "discarding stale refresh result")
		}
		return
	}
	s.cached = append([]T(nil), records...)
	s.cachedGen = gen
	s.hasCached = true
	s.mu.Unlock()

	blob, err := s.codec.Encode(records)
	if err != nil {
		if s.logg != nil {
			s.logg.Error(ctx, "encoding fallback snapshot", err)
		}
		return
	}
	if err := s.fallback.Set(ctx, s.cfg.SnapshotKey, blob, s.cfg.SnapshotTTL); err != nil {
		if s.logg != nil {
			s.logg.Warn(s.logg.WithField(ctx, "key", s.cfg.SnapshotKey), "writing fallback snapshot failed")
		}
	}
}

func (s *Syncer[T]) loadFallback(ctx context.Context) ([]T, Source) {
	blob, err := s.fallback.Get(ctx, s.cfg.SnapshotKey)
	if err != nil {
		return []T{}, SourceEmpty
	}

	records, err := s.codec.Decode(blob)
	if err != nil {
		// A corrupt snapshot would fail every future cycle too. Evict it
		// so the next successful remote fetch rebuilds a clean one.
		s.metrics.IncEviction(s.cfg.Kind)
		if s.logg != nil {
			s.logg.Error(ctx, "evicting corrupt fallback snapshot", err)
		}
		if delErr := s.fallback.Del(ctx, s.cfg.SnapshotKey); delErr != nil && s.logg != nil {
			s.logg.Warn(s.logg.WithField(ctx, "key", s.cfg.SnapshotKey), "deleting corrupt snapshot failed")
		}
		return []T{}, SourceEmpty
	}

	s.metrics.IncFallbackRead(s.cfg.Kind)
	return records, SourceFallback
}

func (s *Syncer[T]) observe(source Source, start time.Time) {
	s.metrics.ObserveRefresh(s.cfg.Kind, string(source), time.Since(start))
}
