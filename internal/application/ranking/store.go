package ranking

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/turtacn/TradeLink-Intelligence/internal/domain/trade"
	"github.com/turtacn/TradeLink-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/TradeLink-Intelligence/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// Artifact sources
// ─────────────────────────────────────────────────────────────────────────────

// ArtifactSource yields the serialised model and a modification marker.
type ArtifactSource interface {
	Describe() string
	ModTime(ctx context.Context) (time.Time, error)
	Read(ctx context.Context) ([]byte, error)
}

// FileSource reads the model from the local filesystem.
type FileSource struct {
	Path string
}

func (f FileSource) Describe() string { return "file:" + f.Path }

func (f FileSource) ModTime(_ context.Context) (time.Time, error) {
	st, err := os.Stat(f.Path)
	if err != nil {
		return time.Time{}, err
	}
	return st.ModTime(), nil
}

func (f FileSource) Read(_ context.Context) ([]byte, error) { return os.ReadFile(f.Path) }

// ObjectReader is the subset of an object store the model source needs.
type ObjectReader interface {
	GetObject(ctx context.Context, key string) ([]byte, error)
}

// RegistrySource follows the latest registered model version and reads its
// artifact from object storage.  The registration time is the marker.
type RegistrySource struct {
	Registry trade.ModelRegistry
	Objects  ObjectReader
}

func (r RegistrySource) Describe() string { return "registry" }

func (r RegistrySource) ModTime(ctx context.Context) (time.Time, error) {
	v, err := r.Registry.Latest(ctx)
	if err != nil {
		return time.Time{}, err
	}
	if v == nil {
		return time.Time{}, os.ErrNotExist
	}
	return v.CreatedAt, nil
}

func (r RegistrySource) Read(ctx context.Context) ([]byte, error) {
	v, err := r.Registry.Latest(ctx)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, os.ErrNotExist
	}
	return r.Objects.GetObject(ctx, v.ObjectKey)
}

// ─────────────────────────────────────────────────────────────────────────────
// ModelStore
// ─────────────────────────────────────────────────────────────────────────────

// ModelInfo describes the currently served model.
type ModelInfo struct {
	Loaded    bool         `json:"loaded"`
	Version   string       `json:"version,omitempty"`
	Source    string       `json:"source"`
	ModTime   time.Time    `json:"modified_at,omitempty"`
	LoadedAt  time.Time    `json:"loaded_at,omitempty"`
	Metrics   ModelMetrics `json:"metrics"`
	LastError string       `json:"last_error,omitempty"`
}

type loadedModel struct {
	model    *LinearModel
	modTime  time.Time
	loadedAt time.Time
}

// ModelStore caches the learned model process-wide.  Readers never block
// on a reload: a new model is published by swapping an atomic pointer.
type ModelStore struct {
	src      ArtifactSource
	interval time.Duration
	now      func() time.Time
	logger   logging.Logger
	onLoad   func(*LinearModel)

	current   atomic.Pointer[loadedModel]
	lastCheck atomic.Int64

	mu          sync.Mutex
	lastAttempt string
	lastErr     string
}

// StoreOption configures a ModelStore.
type StoreOption func(*ModelStore)

// WithCheckInterval bounds how often the modification marker is polled.
func WithCheckInterval(d time.Duration) StoreOption { return func(s *ModelStore) { s.interval = d } }

// WithStoreClock overrides the clock.
func WithStoreClock(now func() time.Time) StoreOption { return func(s *ModelStore) { s.now = now } }

// WithStoreLogger sets the logger.
func WithStoreLogger(l logging.Logger) StoreOption {
	return func(s *ModelStore) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithOnLoad registers a callback invoked after each successful load.
func WithOnLoad(fn func(*LinearModel)) StoreOption { return func(s *ModelStore) { s.onLoad = fn } }

// NewModelStore returns a store reading from src.  Nothing is loaded until
// the first Model or Reload call.
func NewModelStore(src ArtifactSource, opts ...StoreOption) *ModelStore {
	s := &ModelStore{src: src, now: time.Now, logger: logging.NewNopLogger()}
	for _, o := range opts {
		o(s)
	}
	s.logger = s.logger.Named("model_store")
	return s
}

// Model returns the current model, reloading first if the artifact's
// modification marker changed and no other check is in flight.  Nil means
// no usable model.
func (s *ModelStore) Model(ctx context.Context) *LinearModel {
	_ = s.refresh(ctx, false)
	if l := s.current.Load(); l != nil {
		return l.model
	}
	return nil
}

// Reload forces a load attempt regardless of the modification marker.
func (s *ModelStore) Reload(ctx context.Context) error {
	return s.refresh(ctx, true)
}

// Info reports the served model.
func (s *ModelStore) Info() ModelInfo {
	s.mu.Lock()
	lastErr := s.lastErr
	s.mu.Unlock()

	info := ModelInfo{Source: s.src.Describe(), LastError: lastErr}
	if l := s.current.Load(); l != nil {
		info.Loaded = true
		info.Version = l.model.Version
		info.ModTime = l.modTime
		info.LoadedAt = l.loadedAt
		info.Metrics = l.model.Metrics
	}
	return info
}

// checkDue reports whether the modification marker should be polled at now.
func (s *ModelStore) checkDue(now time.Time) bool {
	if s.interval <= 0 {
		return true
	}
	last := s.lastCheck.Load()
	return last == 0 || now.Sub(time.Unix(0, last)) >= s.interval
}

// refresh polls the source and loads a changed artifact.  Unforced calls
// come from the request path: once a model is loaded they skip the check
// while another goroutine holds the lock.
func (s *ModelStore) refresh(ctx context.Context, force bool) error {
	now := s.now()
	switch {
	case force:
		s.mu.Lock()
	case !s.checkDue(now):
		return nil
	case s.mu.TryLock():
	case s.current.Load() == nil:
		// Nothing to serve yet; wait for the first load.
		s.mu.Lock()
	default:
		return nil
	}
	if !force && !s.checkDue(now) {
		s.mu.Unlock()
		return nil
	}
	defer s.mu.Unlock()
	s.lastCheck.Store(now.UnixNano())

	mod, err := s.src.ModTime(ctx)
	if err != nil {
		return s.fail(force, "stat:"+err.Error(), err)
	}
	cur := s.current.Load()
	if !force && cur != nil && cur.modTime.Equal(mod) {
		return nil
	}
	attempt := "load:" + mod.UTC().Format(time.RFC3339Nano)
	if !force && attempt == s.lastAttempt && s.lastErr != "" {
		return errors.New(errors.ErrCodeModelUnavailable, s.lastErr)
	}

	data, err := s.src.Read(ctx)
	if err != nil {
		return s.fail(force, attempt, err)
	}
	m, err := UnmarshalModel(data)
	if err != nil {
		return s.fail(force, attempt, err)
	}

	s.current.Store(&loadedModel{model: m, modTime: mod, loadedAt: now})
	s.lastAttempt, s.lastErr = attempt, ""
	s.logger.Info("ranking model loaded",
		logging.String("source", s.src.Describe()),
		logging.String("version", m.Version),
		logging.Float64("ndcg", m.Metrics.NDCG),
	)
	if s.onLoad != nil {
		s.onLoad(m)
	}
	return nil
}

// fail logs at ERROR once per distinct attempt; the previously loaded
// model, if any, stays in service.
func (s *ModelStore) fail(force bool, attempt string, cause error) error {
	if force || attempt != s.lastAttempt {
		s.logger.WithError(cause).Error("ranking model unavailable; learned score disabled",
			logging.String("source", s.src.Describe()),
		)
	}
	s.lastAttempt, s.lastErr = attempt, cause.Error()
	return errors.Wrap(cause, errors.ErrCodeModelUnavailable, "ranking model unavailable")
}

// WatchFile reloads whenever path is written, created or renamed into
// place.  It returns once the watcher is installed; watching stops when ctx
// is cancelled.
func (s *ModelStore) WatchFile(ctx context.Context, path string) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("ranking: create watcher: %w", err)
	}
	dir := filepath.Dir(path)
	if err := w.Add(dir); err != nil {
		w.Close()
		return fmt.Errorf("ranking: watch %s: %w", dir, err)
	}
	target := filepath.Clean(path)

	go func() {
		defer w.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != target {
					continue
				}
				if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) {
					_ = s.Reload(ctx)
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				s.logger.WithError(err).Warn("model file watcher error")
			}
		}
	}()
	return nil
}

//Personal.AI order the ending
