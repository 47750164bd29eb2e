package modindex

import (
	"log/slog"
	"time"

	"github.com/hupe1980/modindex/identity"
	"github.com/hupe1980/modindex/internal/format"
	"github.com/hupe1980/modindex/internal/fs"
	"github.com/hupe1980/modindex/modulefile"
)

// Compression selects how the module table of a written index is stored.
type Compression = format.Compression

const (
	CompressionNone = format.CompressionNone
	CompressionLZ4  = format.CompressionLZ4
	CompressionZSTD = format.CompressionZSTD
)

// ParseCompression parses "none", "lz4" or "zstd".
func ParseCompression(s string) (Compression, error) {
	return format.ParseCompression(s)
}

type options struct {
	identity         identity.Service
	reader           modulefile.Reader
	fs               fs.FileSystem
	metricsCollector MetricsCollector
	logger           *Logger
	validateOnOpen   bool
	verifyChecksums  bool
	compression      Compression
	maxWorkers       int
	readBytesPerSec  int64
	moduleExtension  string
	staleLockAfter   time.Duration
	now              func() time.Time
}

// Option configures ReadIndex and WriteIndex.
type Option func(*options)

// WithIdentityService configures how module paths are mapped to identities.
// If nil is passed, identity.Default is used.
func WithIdentityService(s identity.Service) Option {
	return func(o *options) {
		if s == nil {
			s = identity.Default
		}
		o.identity = s
	}
}

// WithModuleReader configures how WriteIndex extracts names and imports from
// module files. If nil is passed, modulefile.FileReader is used.
func WithModuleReader(r modulefile.Reader) Option {
	return func(o *options) {
		if r == nil {
			r = modulefile.FileReader{}
		}
		o.reader = r
	}
}

// WithValidateOnOpen controls whether ReadIndex compares every recorded
// module identity against the file on disk. Modules that changed or
// disappeared since the build are tombstoned: they drop out of KnownModules
// and lookup hits. Enabled by default.
func WithValidateOnOpen(enabled bool) Option {
	return func(o *options) {
		o.validateOnOpen = enabled
	}
}

// WithVerifyChecksums makes ReadIndex verify the checksum of the whole hash
// table. This reads every page of the table, so it is off by default; the
// module table and statistics block are always verified.
func WithVerifyChecksums(enabled bool) Option {
	return func(o *options) {
		o.verifyChecksums = enabled
	}
}

// WithCompression configures module table compression for WriteIndex.
func WithCompression(c Compression) Option {
	return func(o *options) {
		o.compression = c
	}
}

// WithMaxWorkers bounds how many module files WriteIndex reads concurrently.
// Values <= 0 use GOMAXPROCS.
func WithMaxWorkers(n int) Option {
	return func(o *options) {
		o.maxWorkers = n
	}
}

// WithReadRateLimit throttles module file reads during WriteIndex to the
// given number of bytes per second. Zero disables throttling.
func WithReadRateLimit(bytesPerSec int64) Option {
	return func(o *options) {
		o.readBytesPerSec = bytesPerSec
	}
}

// WithModuleExtension sets the file extension WriteIndex treats as a module
// file. The default is ModuleExtension.
func WithModuleExtension(ext string) Option {
	return func(o *options) {
		if ext != "" {
			o.moduleExtension = ext
		}
	}
}

// WithStaleLockAfter sets the age after which a build marker is considered
// abandoned on platforms without advisory file locks.
func WithStaleLockAfter(d time.Duration) Option {
	return func(o *options) {
		o.staleLockAfter = d
	}
}

// WithMetricsCollector configures a metrics collector for monitoring operations.
// Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &modindex.BasicMetricsCollector{}
//	idx, _ := modindex.ReadIndex(dir, modindex.WithMetricsCollector(metrics))
//	// ... use idx ...
//	stats := metrics.GetStats()
//	fmt.Printf("Lookups: %d, hits: %d\n", stats.LookupCount, stats.LookupHits)
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging for operations.
// Pass nil to disable logging.
//
// Example with JSON logging:
//
//	logger := modindex.NewJSONLogger(slog.LevelInfo)
//	err := modindex.WriteIndex(ctx, dir, modindex.WithLogger(logger))
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = NoopLogger()
		}
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

func withFileSystem(fsys fs.FileSystem) Option {
	return func(o *options) {
		o.fs = fsys
	}
}

func withClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		identity:         identity.Default,
		reader:           modulefile.FileReader{},
		fs:               fs.Default,
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
		validateOnOpen:   true,
		compression:      CompressionNone,
		moduleExtension:  ModuleExtension,
		now:              time.Now,
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}
