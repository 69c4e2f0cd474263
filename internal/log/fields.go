package log

import "custos/internal/core"

// Common field names for structured logging
const (
	FieldComponent   = "component"
	FieldRequestID   = "request_id"
	FieldClientIP    = "client_ip"
	FieldMethod      = "method"
	FieldPath        = "path"
	FieldQuery       = "query"
	FieldStatusCode  = "status_code"
	FieldDuration    = "duration_ms"
	FieldUserAgent   = "user_agent"
	FieldSuccess     = "success"
	FieldError       = "error"
	FieldOperation   = "operation"
	FieldSource      = "source"
	FieldOutcome     = "outcome"
	FieldReason      = "reason"
	FieldInputRows   = "input_rows"
	FieldOutputRows  = "output_rows"
	FieldDropped     = "dropped_rows"
	FieldDefaulted   = "defaulted_values"
	FieldFilledPlant = "filled_plants"
	FieldCacheKey    = "cache_key"
	FieldLoadID      = "load_id"
)

// Components defines standard component names
const (
	ComponentApp        = "app"
	ComponentHTTP       = "http"
	ComponentLoader     = "loader"
	ComponentNormalizer = "normalizer"
	ComponentCache      = "cache"
	ComponentStorage    = "storage"
	ComponentAMQP       = "amqp"
	ComponentReport     = "report"
	ComponentRateLimit  = "rate_limit"
	ComponentTemplate   = "template"
	ComponentWorker     = "worker"
)

// Operations defines standard operation names
const (
	OpLoad     = "load"
	OpRefresh  = "refresh"
	OpReport   = "report"
	OpValidate = "validate"
	OpRender   = "render"
	OpShutdown = "shutdown"
	OpStartup  = "startup"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

// NewFields creates a new LogFields instance
func NewFields() LogFields {
	return make(LogFields)
}

// WithComponent adds component field
func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

// WithRequestID adds request ID field
func (f LogFields) WithRequestID(requestID string) LogFields {
	f[FieldRequestID] = requestID
	return f
}

// WithClientIP adds client IP field
func (f LogFields) WithClientIP(ip string) LogFields {
	f[FieldClientIP] = ip
	return f
}

// WithError adds error field
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

// WithOperation adds operation field
func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithSource adds the loader source key.
func (f LogFields) WithSource(source string) LogFields {
	f[FieldSource] = source
	return f
}

// WithStats adds normalizer counters.
func (f LogFields) WithStats(s core.NormalizeStats) LogFields {
	f[FieldInputRows] = s.InputRows
	f[FieldOutputRows] = s.OutputRows
	f[FieldDropped] = s.Dropped()
	f[FieldDefaulted] = s.DefaultedValues
	f[FieldFilledPlant] = s.FilledPlants
	return f
}

// WithHTTPRequest adds HTTP request fields
func (f LogFields) WithHTTPRequest(method, path, query, userAgent string) LogFields {
	f[FieldMethod] = method
	f[FieldPath] = path
	f[FieldQuery] = query
	f[FieldUserAgent] = userAgent
	return f
}

// WithHTTPResponse adds HTTP response fields
func (f LogFields) WithHTTPResponse(statusCode int, durationMs int64, success bool) LogFields {
	f[FieldStatusCode] = statusCode
	f[FieldDuration] = durationMs
	f[FieldSuccess] = success
	return f
}

// ToSlice converts LogFields to a slice for slog
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
