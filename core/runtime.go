package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"
)

// Runtime owns the dependencies shared by every provider adapter:
// resolved config, logger, metrics, error mapper, the metadata store,
// and the event dispatcher. One runtime per gateway instance; no
// process-wide state.
type Runtime struct {
	config          Config
	logger          Logger
	loggerProvider  LoggerProvider
	metricsRecorder MetricsRecorder
	errorMapper     ErrorMapper
	metadataStore   MetadataStore
	dispatcher      *Dispatcher
	transport       TransportAdapter
	now             func() time.Time
}

func NewRuntime(cfg Config, options ...Option) (*Runtime, error) {
	builder := defaultRuntimeBuilder(cfg)
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(&builder)
	}

	provider, logger := glog.Resolve("payments", builder.loggerProvider, builder.logger)
	logger = glog.Ensure(logger)
	if provider != nil {
		if named := provider.GetLogger("payments"); named != nil {
			logger = glog.Ensure(named)
		}
	}

	if builder.metricsRecorder == nil {
		builder.metricsRecorder = NopMetricsRecorder{}
	}
	if builder.errorMapper == nil {
		builder.errorMapper = paymentErrorMapper
	}
	if builder.configProvider == nil {
		builder.configProvider = NewCfgxConfigProvider(nil)
	}
	if builder.optionsResolver == nil {
		builder.optionsResolver = GoOptionsResolver{}
	}
	if builder.now == nil {
		builder.now = func() time.Time { return time.Now().UTC() }
	}

	defaults := DefaultConfig()
	loaded, err := builder.configProvider.Load(context.Background(), defaults)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}
	finalConfig, err := builder.optionsResolver.Resolve(defaults, loaded, builder.runtimeConfig)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}

	if builder.metadataStore == nil {
		builder.metadataStore = NewMemoryMetadataStore(finalConfig.MetadataTTL)
	}
	if builder.dispatcher == nil {
		builder.dispatcher = NewDispatcher(logger)
	}

	return &Runtime{
		config:          finalConfig,
		logger:          logger,
		loggerProvider:  provider,
		metricsRecorder: builder.metricsRecorder,
		errorMapper:     builder.errorMapper,
		metadataStore:   builder.metadataStore,
		dispatcher:      builder.dispatcher,
		transport:       builder.transport,
		now:             builder.now,
	}, nil
}

func (r *Runtime) Config() Config {
	if r == nil {
		return Config{}
	}
	return r.config
}

func (r *Runtime) Logger() Logger {
	if r == nil {
		return nil
	}
	return r.logger
}

func (r *Runtime) Metadata() MetadataStore {
	if r == nil {
		return nil
	}
	return r.metadataStore
}

func (r *Runtime) Events() *Dispatcher {
	if r == nil {
		return nil
	}
	return r.dispatcher
}

func (r *Runtime) Transport() TransportAdapter {
	if r == nil {
		return nil
	}
	return r.transport
}

func (r *Runtime) Now() time.Time {
	if r == nil || r.now == nil {
		return time.Now().UTC()
	}
	return r.now().UTC()
}

func (r *Runtime) MetadataTTL() time.Duration {
	if r == nil || r.config.MetadataTTL <= 0 {
		return DefaultMetadataTTL
	}
	return r.config.MetadataTTL
}

func (r *Runtime) MapError(err error) error {
	if r == nil || r.errorMapper == nil {
		return err
	}
	if err == nil {
		return nil
	}
	return r.errorMapper(err)
}

// ReportError routes operation failures to the error event so automated
// handlers see them alongside the synchronous return.
func (r *Runtime) ReportError(ctx context.Context, operation string, provider string, err error, raw any) {
	if r == nil || err == nil {
		return
	}
	r.dispatcher.EmitError(ctx, operation, provider, err, raw)
}

// ObserveOperation records one counter, one duration histogram, and a
// structured log line per gateway operation.
func (r *Runtime) ObserveOperation(
	ctx context.Context,
	startedAt time.Time,
	operation string,
	err error,
	fields map[string]any,
) {
	if r == nil {
		return
	}
	operation = strings.TrimSpace(operation)
	if operation == "" {
		operation = "unknown"
	}
	status := "success"
	if err != nil {
		status = "failure"
	}

	contextFields := cloneFields(fields)
	contextFields["operation"] = operation
	contextFields["status"] = status
	contextFields["duration_ms"] = time.Since(startedAt).Milliseconds()
	if err != nil {
		contextFields["error"] = err.Error()
	}

	tags := map[string]string{
		"operation": operation,
		"status":    status,
	}
	for _, key := range []string{"provider", "transaction_id", "kind"} {
		if value := strings.TrimSpace(fmt.Sprint(contextFields[key])); value != "" && value != "<nil>" {
			tags[key] = value
		}
	}

	r.recordCounter(ctx, "payments."+operation+".total", 1, tags)
	r.recordHistogram(ctx, "payments."+operation+".duration_ms", float64(time.Since(startedAt).Milliseconds()), tags)

	if err != nil {
		r.logError(ctx, operation+" failed", contextFields)
		return
	}
	r.logInfo(ctx, operation+" succeeded", contextFields)
}

func (r *Runtime) logInfo(ctx context.Context, message string, fields map[string]any) {
	r.logWithLevel(ctx, "info", message, fields)
}

func (r *Runtime) logError(ctx context.Context, message string, fields map[string]any) {
	r.logWithLevel(ctx, "error", message, fields)
}

// LogNormalizationGap reports a raw provider status missing from the
// normalization table. The gap is a defect to fix, so it logs at error
// level even though the event still dispatches as failed.
func (r *Runtime) LogNormalizationGap(ctx context.Context, provider string, kind TransactionKind, raw string) {
	r.logError(ctx, "status normalization gap", map[string]any{
		"provider":   provider,
		"kind":       string(kind),
		"raw_status": raw,
	})
}

func (r *Runtime) logWithLevel(ctx context.Context, level string, message string, fields map[string]any) {
	if r == nil || r.logger == nil {
		return
	}
	logger := r.logger
	if ctx != nil {
		logger = logger.WithContext(ctx)
	}
	if fieldsLogger, ok := logger.(FieldsLogger); ok {
		logger = fieldsLogger.WithFields(cloneFields(fields))
	}
	if strings.ToLower(strings.TrimSpace(level)) == "error" {
		logger.Error(message)
		return
	}
	logger.Info(message)
}

func (r *Runtime) recordCounter(ctx context.Context, name string, value int64, tags map[string]string) {
	if r == nil || r.metricsRecorder == nil {
		return
	}
	r.metricsRecorder.IncCounter(ctx, strings.TrimSpace(name), value, cloneTags(tags))
}

func (r *Runtime) recordHistogram(ctx context.Context, name string, value float64, tags map[string]string) {
	if r == nil || r.metricsRecorder == nil {
		return
	}
	r.metricsRecorder.ObserveHistogram(ctx, strings.TrimSpace(name), value, cloneTags(tags))
}

func cloneFields(fields map[string]any) map[string]any {
	if len(fields) == 0 {
		return map[string]any{}
	}
	copied := make(map[string]any, len(fields))
	for key, value := range fields {
		copied[key] = value
	}
	return copied
}

func mapBuildError(mapper ErrorMapper, err error) error {
	if err == nil {
		return nil
	}
	if mapper == nil {
		return err
	}
	if mapped := mapper(err); mapped != nil {
		return mapped
	}
	return goerrors.New(err.Error(), goerrors.CategoryInternal)
}
