package buildings

import (
	"os"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"
)

// A Reloader periodically reloads a GeoJSON file into a Static source
// when the file changes.
type Reloader struct {
	static *Static
	path   string
	layer  string
	logger *zap.Logger

	scheduler *gocron.Scheduler

	mu      sync.Mutex
	modTime time.Time
}

// NewReloader returns a Reloader for the given file. modTime is the
// modification time of the version already loaded into static.
func NewReloader(static *Static, path, layer string, modTime time.Time, logger *zap.Logger) *Reloader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reloader{
		static:    static,
		path:      path,
		layer:     layer,
		logger:    logger,
		scheduler: gocron.NewScheduler(time.UTC),
		modTime:   modTime,
	}
}

// Start checks the file every interval until Stop is called.
func (r *Reloader) Start(interval time.Duration) error {
	_, err := r.scheduler.Every(interval).SingletonMode().Do(func() {
		if _, err := r.Reload(); err != nil {
			r.logger.Warn("reloading buildings failed", zap.String("path", r.path), zap.Error(err))
		}
	})
	if err != nil {
		return err
	}
	r.scheduler.StartAsync()
	return nil
}

// Stop stops the scheduler and cancels any future reloads.
func (r *Reloader) Stop() {
	if r.scheduler != nil {
		r.scheduler.Stop()
	}
}

// Reload reloads the file if it changed since the last load. It
// reports whether it reloaded. On error the old buildings stay in use.
func (r *Reloader) Reload() (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	info, err := os.Stat(r.path)
	if err != nil {
		return false, err
	}
	if info.ModTime().Equal(r.modTime) {
		return false, nil
	}
	bs, err := ReadGeoJSONFile(r.path, r.layer)
	if err != nil {
		return false, err
	}
	r.static.Replace(bs)
	r.modTime = info.ModTime()
	r.logger.Info("reloaded buildings", zap.String("path", r.path), zap.Int("count", len(bs)))
	return true, nil
}
