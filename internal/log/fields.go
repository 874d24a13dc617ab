package log

// Common field names for structured logging
const (
	FieldComponent   = "component"
	FieldRequestID   = "request_id"
	FieldSessionID   = "session_id"
	FieldClientIP    = "client_ip"
	FieldMethod      = "method"
	FieldPath        = "path"
	FieldStatusCode  = "status_code"
	FieldDuration    = "duration_ms"
	FieldError       = "error"
	FieldOperation   = "operation"
	FieldIdentity    = "identity"
	FieldFunction    = "ledger_function"
	FieldRecordID    = "record_id"
	FieldRecordCount = "record_count"
	FieldAmountCents = "amount_cents"
	FieldCategory    = "category"
	FieldStoreKey    = "store_key"
	FieldNoticeKind  = "notice_kind"
)

// Components defines standard component names
const (
	ComponentApp     = "app"
	ComponentHTTP    = "http"
	ComponentSession = "session"
	ComponentLedger  = "ledger"
	ComponentLocal   = "localstore"
	ComponentAMQP    = "amqp"
	ComponentNotify  = "notify"
	ComponentBackend = "backend"
	ComponentCLI     = "cli"
)

// Operations defines standard operation names
const (
	OpConnect    = "connect"
	OpDisconnect = "disconnect"
	OpLoad       = "load"
	OpAdd        = "add"
	OpDelete     = "delete"
	OpSubmit     = "submit"
	OpView       = "view"
	OpPersist    = "persist"
	OpShutdown   = "shutdown"
	OpStartup    = "startup"
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

// WithIdentity adds the session identity
func (f LogFields) WithIdentity(identity string) LogFields {
	f[FieldIdentity] = identity
	return f
}

// WithRecord adds record-related fields
func (f LogFields) WithRecord(id int64, amountCents int64, category int) LogFields {
	if id != 0 {
		f[FieldRecordID] = id
	}
	f[FieldAmountCents] = amountCents
	f[FieldCategory] = category
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
