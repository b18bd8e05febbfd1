package logger

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/erp/stockledger/internal/domain/shared"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	gormlogger "gorm.io/gorm/logger"
)

// GormLogger routes GORM statement logs through zap, tagged with the request,
// tenant and trace of the statement's context.
type GormLogger struct {
	logger        *zap.Logger
	level         gormlogger.LogLevel
	slowThreshold time.Duration
	quietNotFound bool
	fullSQL       bool
}

// GormLoggerOption configures a GormLogger
type GormLoggerOption func(*GormLogger)

// WithSlowThreshold sets the duration above which statements are logged as slow
func WithSlowThreshold(threshold time.Duration) GormLoggerOption {
	return func(l *GormLogger) {
		l.slowThreshold = threshold
	}
}

// WithIgnoreRecordNotFoundError silences ErrRecordNotFound, which lookups
// return routinely.
func WithIgnoreRecordNotFoundError(ignore bool) GormLoggerOption {
	return func(l *GormLogger) {
		l.quietNotFound = ignore
	}
}

// WithFullSQL logs every statement at debug level. Otherwise only failed and
// slow statements carry their SQL.
func WithFullSQL(enabled bool) GormLoggerOption {
	return func(l *GormLogger) {
		l.fullSQL = enabled
	}
}

// NewGormLogger creates a GORM logger writing to zapLogger
func NewGormLogger(zapLogger *zap.Logger, level gormlogger.LogLevel, opts ...GormLoggerOption) *GormLogger {
	l := &GormLogger{
		logger:        zapLogger.Named("gorm"),
		level:         level,
		slowThreshold: 200 * time.Millisecond,
		quietNotFound: true,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// LogMode implements gormlogger.Interface
func (l *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	clone := *l
	clone.level = level
	return &clone
}

// Info implements gormlogger.Interface
func (l *GormLogger) Info(ctx context.Context, msg string, data ...any) {
	l.printf(ctx, gormlogger.Info, zapcore.InfoLevel, msg, data)
}

// Warn implements gormlogger.Interface
func (l *GormLogger) Warn(ctx context.Context, msg string, data ...any) {
	l.printf(ctx, gormlogger.Warn, zapcore.WarnLevel, msg, data)
}

// Error implements gormlogger.Interface
func (l *GormLogger) Error(ctx context.Context, msg string, data ...any) {
	l.printf(ctx, gormlogger.Error, zapcore.ErrorLevel, msg, data)
}

func (l *GormLogger) printf(ctx context.Context, min gormlogger.LogLevel, lvl zapcore.Level, msg string, data []any) {
	if l.level < min {
		return
	}
	l.contextLogger(ctx).Sugar().Logf(lvl, msg, data...)
}

// Trace implements gormlogger.Interface. Failed statements log at error,
// except writes rejected by the ledger's append-only guard which are
// warnings; slow statements log at warn.
func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}
	elapsed := time.Since(begin)

	switch {
	case err != nil && l.level >= gormlogger.Error:
		if l.quietNotFound && errors.Is(err, gormlogger.ErrRecordNotFound) {
			return
		}
		sql, rows := fc()
		fields := append(statementFields(sql, rows, elapsed), zap.Error(err))
		if strings.Contains(err.Error(), "append-only") {
			l.contextLogger(ctx).Warn("ledger write rejected", fields...)
			return
		}
		l.contextLogger(ctx).Error("sql failed", fields...)

	case l.slowThreshold > 0 && elapsed > l.slowThreshold && l.level >= gormlogger.Warn:
		sql, rows := fc()
		l.contextLogger(ctx).Warn("slow sql",
			append(statementFields(sql, rows, elapsed), zap.Duration("threshold", l.slowThreshold))...)

	case l.fullSQL && l.level >= gormlogger.Info:
		sql, rows := fc()
		l.contextLogger(ctx).Debug("sql", statementFields(sql, rows, elapsed)...)
	}
}

// contextLogger adds the request, tenant and trace identifiers found on ctx.
func (l *GormLogger) contextLogger(ctx context.Context) *zap.Logger {
	log := WithTraceContext(ctx, l.logger)
	var fields []zap.Field
	if requestID := GetRequestID(ctx); requestID != "" {
		fields = append(fields, zap.String("request_id", requestID))
	}
	if actor, ok := shared.ActorFromContext(ctx); ok {
		fields = append(fields, zap.String("tenant_id", actor.TenantID.String()))
	}
	if len(fields) == 0 {
		return log
	}
	return log.With(fields...)
}

func statementFields(sql string, rows int64, elapsed time.Duration) []zap.Field {
	return []zap.Field{
		zap.String("sql", sql),
		zap.Int64("rows", rows),
		zap.Duration("elapsed", elapsed),
	}
}

// MapGormLogLevel maps the application log level onto GORM's. Debug and info
// both enable statement logging; anything unknown keeps warnings.
func MapGormLogLevel(level string) gormlogger.LogLevel {
	switch strings.ToLower(level) {
	case "silent":
		return gormlogger.Silent
	case "error":
		return gormlogger.Error
	case "info", "debug":
		return gormlogger.Info
	default:
		return gormlogger.Warn
	}
}
