package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBTracingConfig holds configuration for database tracing.
type DBTracingConfig struct {
	Enabled         bool
	LogFullSQL      bool // include bound variables in db.statement; dev only
	SlowQueryThresh time.Duration
	// TracerProvider overrides the global provider. Tests use it.
	TracerProvider trace.TracerProvider
}

// DefaultDBTracingConfig returns default configuration for database tracing.
func DefaultDBTracingConfig() DBTracingConfig {
	return DBTracingConfig{
		SlowQueryThresh: 200 * time.Millisecond,
	}
}

type queryStartKey struct{}

var gormHooks = []struct {
	operation string
	before    func(*gorm.DB, string, func(*gorm.DB)) error
	after     func(*gorm.DB, string, func(*gorm.DB)) error
}{
	{"create",
		func(db *gorm.DB, n string, fn func(*gorm.DB)) error {
			return db.Callback().Create().Before("gorm:create").Register(n, fn)
		},
		func(db *gorm.DB, n string, fn func(*gorm.DB)) error {
			return db.Callback().Create().After("gorm:create").Register(n, fn)
		}},
	{"query",
		func(db *gorm.DB, n string, fn func(*gorm.DB)) error {
			return db.Callback().Query().Before("gorm:query").Register(n, fn)
		},
		func(db *gorm.DB, n string, fn func(*gorm.DB)) error {
			return db.Callback().Query().After("gorm:query").Register(n, fn)
		}},
	{"update",
		func(db *gorm.DB, n string, fn func(*gorm.DB)) error {
			return db.Callback().Update().Before("gorm:update").Register(n, fn)
		},
		func(db *gorm.DB, n string, fn func(*gorm.DB)) error {
			return db.Callback().Update().After("gorm:update").Register(n, fn)
		}},
	{"delete",
		func(db *gorm.DB, n string, fn func(*gorm.DB)) error {
			return db.Callback().Delete().Before("gorm:delete").Register(n, fn)
		},
		func(db *gorm.DB, n string, fn func(*gorm.DB)) error {
			return db.Callback().Delete().After("gorm:delete").Register(n, fn)
		}},
	{"row",
		func(db *gorm.DB, n string, fn func(*gorm.DB)) error {
			return db.Callback().Row().Before("gorm:row").Register(n, fn)
		},
		func(db *gorm.DB, n string, fn func(*gorm.DB)) error {
			return db.Callback().Row().After("gorm:row").Register(n, fn)
		}},
	{"raw",
		func(db *gorm.DB, n string, fn func(*gorm.DB)) error {
			return db.Callback().Raw().Before("gorm:raw").Register(n, fn)
		},
		func(db *gorm.DB, n string, fn func(*gorm.DB)) error {
			return db.Callback().Raw().After("gorm:raw").Register(n, fn)
		}},
}

// registerTimedCallbacks installs a before hook that stamps the start time
// and an after hook that receives the operation name and elapsed time.
func registerTimedCallbacks(db *gorm.DB, prefix string, after func(db *gorm.DB, operation string, elapsed time.Duration)) error {
	for _, h := range gormHooks {
		operation := h.operation
		if err := h.before(db, prefix+":before_"+operation, markQueryStart); err != nil {
			return err
		}
		if err := h.after(db, prefix+":after_"+operation, func(db *gorm.DB) {
			after(db, operation, queryElapsed(db))
		}); err != nil {
			return err
		}
	}
	return nil
}

func markQueryStart(db *gorm.DB) {
	if db.Statement.Context == nil {
		return
	}
	if _, ok := db.Statement.Context.Value(queryStartKey{}).(time.Time); ok {
		return
	}
	db.Statement.Context = context.WithValue(db.Statement.Context, queryStartKey{}, time.Now())
}

func queryElapsed(db *gorm.DB) time.Duration {
	if db.Statement.Context == nil {
		return 0
	}
	start, ok := db.Statement.Context.Value(queryStartKey{}).(time.Time)
	if !ok {
		return 0
	}
	return time.Since(start)
}

// RegisterDBTracing installs otelgorm and marks slow or failed statements on
// the active span.
func RegisterDBTracing(db *gorm.DB, cfg DBTracingConfig, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	if !cfg.Enabled {
		logger.Debug("Database tracing disabled")
		return nil
	}
	if cfg.SlowQueryThresh <= 0 {
		cfg.SlowQueryThresh = DefaultDBTracingConfig().SlowQueryThresh
	}

	opts := []otelgorm.Option{
		otelgorm.WithDBName(db.Dialector.Name()),
	}
	if !cfg.LogFullSQL {
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}
	if cfg.TracerProvider != nil {
		opts = append(opts, otelgorm.WithTracerProvider(cfg.TracerProvider))
	}
	if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
		return err
	}

	if err := registerTimedCallbacks(db, "otel_slow_query", func(db *gorm.DB, _ string, elapsed time.Duration) {
		annotateSpan(db, elapsed, cfg.SlowQueryThresh)
	}); err != nil {
		return err
	}

	logger.Info("Database tracing enabled",
		zap.Bool("log_full_sql", cfg.LogFullSQL),
		zap.Duration("slow_query_threshold", cfg.SlowQueryThresh),
		zap.String("dialect", db.Dialector.Name()),
	)
	return nil
}

func annotateSpan(db *gorm.DB, elapsed, threshold time.Duration) {
	if db.Statement.Context == nil {
		return
	}
	span := trace.SpanFromContext(db.Statement.Context)
	if !span.IsRecording() {
		return
	}

	if db.Statement.Table != "" {
		span.SetAttributes(AttrDBTable.String(db.Statement.Table))
	}
	if db.Error != nil && !errors.Is(db.Error, gorm.ErrRecordNotFound) {
		span.SetStatus(codes.Error, db.Error.Error())
		span.RecordError(db.Error)
	}
	if elapsed > threshold {
		span.SetAttributes(
			attribute.Bool("db.slow_query", true),
			attribute.Int64("db.query_duration_ms", elapsed.Milliseconds()),
		)
		span.AddEvent("slow_query", trace.WithAttributes(
			attribute.Int64("threshold_ms", threshold.Milliseconds()),
		))
	}
}
