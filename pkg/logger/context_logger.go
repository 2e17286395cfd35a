package logger

import (
	"context"
	"time"

	ctxutil "github.com/Payphone-Digital/sprintdesk/pkg/context"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ContextLogBuilder collects fields for one entry and attaches request
// metadata found in the context.
type ContextLogBuilder struct {
	logger     *OptimizedLogger
	ctx        context.Context
	level      zapcore.Level
	fields     []zap.Field
	message    string
	shouldLog  bool
	autoFields bool
}

// WithContext starts a builder bound to ctx
func (ol *OptimizedLogger) WithContext(ctx context.Context) *ContextLogBuilder {
	return &ContextLogBuilder{
		logger:     ol,
		ctx:        ctx,
		level:      zapcore.InfoLevel,
		fields:     make([]zap.Field, 0, 12),
		shouldLog:  true,
		autoFields: true,
	}
}

// AutoFields toggles extraction of context fields
func (clb *ContextLogBuilder) AutoFields(auto bool) *ContextLogBuilder {
	clb.autoFields = auto
	return clb
}

func (clb *ContextLogBuilder) extractContextFields() {
	if !clb.autoFields || clb.ctx == nil {
		return
	}

	if requestID := ctxutil.GetRequestID(clb.ctx); requestID != "" {
		clb.fields = append(clb.fields, zap.String("request_id", requestID))
	}

	if clientIP := ctxutil.GetClientIP(clb.ctx); clientIP != "" {
		clb.fields = append(clb.fields, zap.String("client_ip", clientIP))
	}

	if userID, ok := ctxutil.GetUserID(clb.ctx); ok {
		clb.fields = append(clb.fields, zap.Uint("user_id", userID))
	}

	if workspaceID, ok := ctxutil.GetWorkspaceID(clb.ctx); ok {
		clb.fields = append(clb.fields, zap.Uint("workspace_id", workspaceID))
	}

	if connID := ctxutil.GetConnectionID(clb.ctx); connID != "" {
		clb.fields = append(clb.fields, zap.String("connection_id", connID))
	}

	if module := ctxutil.GetModule(clb.ctx); module != "" {
		clb.fields = append(clb.fields, zap.String("module", module))
	}

	if function := ctxutil.GetFunction(clb.ctx); function != "" {
		clb.fields = append(clb.fields, zap.String("function", function))
	}

	if elapsed := ctxutil.GetDuration(clb.ctx); elapsed > 0 {
		clb.fields = append(clb.fields, zap.Duration("elapsed", elapsed))
	}
}

func (clb *ContextLogBuilder) at(level zapcore.Level, message string) *ContextLogBuilder {
	if !clb.logger.ShouldLog(level) {
		clb.shouldLog = false
		return clb
	}
	clb.level = level
	clb.message = message
	clb.extractContextFields()
	return clb
}

func (clb *ContextLogBuilder) Info(message string) *ContextLogBuilder {
	return clb.at(zapcore.InfoLevel, message)
}

func (clb *ContextLogBuilder) Warn(message string) *ContextLogBuilder {
	return clb.at(zapcore.WarnLevel, message)
}

func (clb *ContextLogBuilder) Error(message string) *ContextLogBuilder {
	return clb.at(zapcore.ErrorLevel, message)
}

func (clb *ContextLogBuilder) Debug(message string) *ContextLogBuilder {
	return clb.at(zapcore.DebugLevel, message)
}

func (clb *ContextLogBuilder) add(f zap.Field) *ContextLogBuilder {
	if clb.shouldLog {
		clb.fields = append(clb.fields, f)
	}
	return clb
}

func (clb *ContextLogBuilder) String(key, value string) *ContextLogBuilder {
	return clb.add(zap.String(key, value))
}

func (clb *ContextLogBuilder) Strings(key string, value []string) *ContextLogBuilder {
	return clb.add(zap.Strings(key, value))
}

func (clb *ContextLogBuilder) Int(key string, value int) *ContextLogBuilder {
	return clb.add(zap.Int(key, value))
}

func (clb *ContextLogBuilder) Int64(key string, value int64) *ContextLogBuilder {
	return clb.add(zap.Int64(key, value))
}

func (clb *ContextLogBuilder) Uint(key string, value uint) *ContextLogBuilder {
	return clb.add(zap.Uint(key, value))
}

func (clb *ContextLogBuilder) Bool(key string, value bool) *ContextLogBuilder {
	return clb.add(zap.Bool(key, value))
}

func (clb *ContextLogBuilder) Duration(value time.Duration) *ContextLogBuilder {
	return clb.add(zap.Duration("duration", value))
}

func (clb *ContextLogBuilder) Err(err error) *ContextLogBuilder {
	if err == nil {
		return clb
	}
	return clb.add(zap.Error(err))
}

func (clb *ContextLogBuilder) Any(key string, value interface{}) *ContextLogBuilder {
	return clb.add(zap.Any(key, value))
}

// Fields adds every entry of the map
func (clb *ContextLogBuilder) Fields(fields map[string]interface{}) *ContextLogBuilder {
	for k, v := range fields {
		clb.add(zap.Any(k, v))
	}
	return clb
}

// Log writes the entry
func (clb *ContextLogBuilder) Log() {
	if !clb.shouldLog {
		return
	}

	switch clb.level {
	case zapcore.DebugLevel:
		clb.logger.logger.Debug(clb.message, clb.fields...)
	case zapcore.InfoLevel:
		clb.logger.logger.Info(clb.message, clb.fields...)
	case zapcore.WarnLevel:
		clb.logger.logger.Warn(clb.message, clb.fields...)
	case zapcore.ErrorLevel:
		clb.logger.logger.Error(clb.message, clb.fields...)
	}
}

func WithContext(ctx context.Context) *ContextLogBuilder {
	return GetOptimizedLogger().WithContext(ctx)
}

func InfoWithContext(ctx context.Context, message string) *ContextLogBuilder {
	return GetOptimizedLogger().WithContext(ctx).Info(message)
}

func WarnWithContext(ctx context.Context, message string) *ContextLogBuilder {
	return GetOptimizedLogger().WithContext(ctx).Warn(message)
}

func ErrorWithContext(ctx context.Context, message string) *ContextLogBuilder {
	return GetOptimizedLogger().WithContext(ctx).Error(message)
}

func DebugWithContext(ctx context.Context, message string) *ContextLogBuilder {
	return GetOptimizedLogger().WithContext(ctx).Debug(message)
}
