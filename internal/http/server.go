package http

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"ledgerview/internal/charts"
	"ledgerview/internal/core"
	"ledgerview/internal/ledger"
	"ledgerview/internal/log"
	"ledgerview/internal/notify"
	"ledgerview/internal/session"
)

// Deps are the collaborators a Server needs.
type Deps struct {
	Registry *session.Registry
	// Notices is the feed served by GET /notices.
	Notices *notify.Buffer
	// Notifier receives notices raised by the API itself. Defaults to Notices.
	Notifier          notify.Notifier
	Logger            *log.Logger
	ConnectTimeout    time.Duration
	ReloadDelay       time.Duration
	DeleteReloadDelay time.Duration
	// RateLimit is the number of writes per client IP per minute.
	RateLimit int
}

type Server struct {
	http.Server
	registry          *session.Registry
	notices           *notify.Buffer
	notifier          notify.Notifier
	logger            *log.Logger
	connectTimeout    time.Duration
	reloadDelay       time.Duration
	deleteReloadDelay time.Duration
	rateLimiter       *rateLimiter
	reloads           *reloadScheduler
	metrics           *securityMetrics

	shutdownOnce sync.Once
}

// NewServer configures routes and returns a ready-to-run server.
func NewServer(addr string, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentHTTP)
	notices := deps.Notices
	if notices == nil {
		notices = notify.NewBuffer(50)
	}
	notifier := deps.Notifier
	if notifier == nil {
		notifier = notices
	}

	s := &Server{
		registry:          deps.Registry,
		notices:           notices,
		notifier:          notifier,
		logger:            logger,
		connectTimeout:    deps.ConnectTimeout,
		reloadDelay:       deps.ReloadDelay,
		deleteReloadDelay: deps.DeleteReloadDelay,
		rateLimiter:       newRateLimiter(deps.RateLimit, time.Minute),
		reloads:           newReloadScheduler(logger),
		metrics:           &securityMetrics{},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /categories", s.handleCategories)

	mux.HandleFunc("GET /session", s.handleSession)
	mux.HandleFunc("POST /session/connect", s.handleConnect)
	mux.HandleFunc("POST /session/disconnect", s.handleDisconnect)
	mux.HandleFunc("POST /session/load", s.handleLoad)

	mux.HandleFunc("GET /expenses", s.handleListExpenses)
	mux.HandleFunc("POST /expenses", s.handleAddExpense)
	mux.HandleFunc("DELETE /expenses/{id}", s.handleDeleteExpense)

	mux.HandleFunc("GET /summary", s.handleSummary)
	mux.HandleFunc("GET /summary/breakdown.png", s.handleBreakdownChart)
	mux.HandleFunc("GET /notices", s.handleNotices)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           log.Middleware(s.logger)(s.withMiddleware(log.SessionMiddleware(sessionIDFrom)(mux))),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// withMiddleware adds request tracing, security headers and write rate
// limiting.
func (s *Server) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		clientIP := extractClientIP(r)
		requestID := generateRequestID()

		logger := log.FromContext(r.Context()).With(log.FieldRequestID, requestID, log.FieldClientIP, clientIP)
		ctx := log.NewContext(r.Context(), logger)
		r = r.WithContext(ctx)

		w.Header().Set("X-Request-ID", requestID)
		setSecurityHeaders(w.Header())

		if detectSuspiciousRequest(r, s.metrics) {
			logger.WarnContext(ctx, "Suspicious request",
				log.FieldMethod, r.Method,
				log.FieldPath, r.URL.Path,
				"user_agent", r.Header.Get("User-Agent"))
		}

		if isWrite(r.Method) && !s.rateLimiter.allow(clientIP, s.metrics) {
			logger.WarnContext(ctx, "Rate limit exceeded", log.FieldMethod, r.Method, log.FieldPath, r.URL.Path)
			w.Header().Set("Retry-After", "60")
			ErrorResponse(http.StatusTooManyRequests, "rate_limited", "Rate limit exceeded. Please try again later.").Write(w)
			return
		}

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		logger.InfoContext(ctx, "Request completed",
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path,
			log.FieldStatusCode, rw.statusCode,
			log.FieldDuration, time.Since(start).Milliseconds())
	})
}

func isWrite(method string) bool {
	return method == http.MethodPost || method == http.MethodDelete
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Shutdown stops background work and gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.reloads.stop()
		s.rateLimiter.stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Data(map[string]any{
		"status":   "ready",
		"sessions": s.registry.Len(),
	}).Write(w)
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Data(core.Categories()).Write(w)
}

// openSession returns the caller's store, creating a session when the
// header is missing or names an expired one.
func (s *Server) openSession(r *http.Request) (string, *session.Store) {
	id, store, created := s.registry.Open(sessionIDFrom(r))
	if created {
		log.FromContext(r.Context()).DebugContext(r.Context(), "New session", log.FieldSessionID, id)
	}
	return id, store
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	id, store := s.openSession(r)
	NewJSONResponse().Session(id).Data(newSessionView(id, store)).Write(w)
}

func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()
	id, store := s.openSession(r)

	p := NewRequestBodyParser(w, r)
	if err := p.Parse(); err != nil {
		BadRequestError(err.Error()).Session(id).Write(w)
		return
	}
	mode, err := p.ConnectMode()
	if err != nil {
		BadRequestError(err.Error()).Session(id).Write(w)
		return
	}

	var done <-chan error
	if mode == modeFallback {
		done, err = store.Connect(context.WithoutCancel(ctx), ledger.Fallback())
	} else if store.State() == session.Connected {
		err = session.ErrAlreadyConnected
	} else {
		var res ledger.ConnectResult
		res, done, err = store.ConnectLedger(ctx, s.connectTimeout)
		if err == nil && res.Status != ledger.Connected {
			ErrorResponse(http.StatusServiceUnavailable, "ledger_unavailable", "Ledger not available, fallback mode can be used").
				Session(id).
				Data(map[string]any{
					"status":             res.Status.String(),
					"fallback_available": true,
				}).
				Notices(s.noticesSince(id, start)).
				Write(w)
			return
		}
	}
	if err != nil {
		s.writeStoreError(w, r, id, start, err)
		return
	}

	select {
	case <-done:
	case <-ctx.Done():
	}
	NewJSONResponse().Session(id).Data(newSessionView(id, store)).Notices(s.noticesSince(id, start)).Write(w)
}

func (s *Server) handleDisconnect(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	id, store := s.openSession(r)
	s.reloads.cancel(id)
	store.Disconnect(r.Context())
	NewJSONResponse().Session(id).Data(newSessionView(id, store)).Notices(s.noticesSince(id, start)).Write(w)
}

func (s *Server) handleLoad(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	id, store := s.openSession(r)
	if err := store.Load(r.Context()); err != nil {
		s.writeStoreError(w, r, id, start, err)
		return
	}
	NewJSONResponse().Session(id).Data(newSessionView(id, store)).Notices(s.noticesSince(id, start)).Write(w)
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	id, store := s.openSession(r)
	filter, err := parseCategoryFilter(r.URL.Query())
	if err != nil {
		BadRequestError(err.Error()).Session(id).Write(w)
		return
	}
	items := store.Summary(filter).Items
	NewJSONResponse().Session(id).Data(newRecordViews(items, store.Location())).Write(w)
}

func (s *Server) handleAddExpense(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	id, store := s.openSession(r)

	p := NewRequestBodyParser(w, r)
	if err := p.Parse(); err != nil {
		BadRequestError(err.Error()).Session(id).Write(w)
		return
	}

	res, err := store.AddRecord(r.Context(), p.RecordInput())
	if err != nil {
		s.writeStoreError(w, r, id, start, err)
		return
	}

	status := http.StatusCreated
	if res.ReloadRequired {
		status = http.StatusAccepted
		s.scheduleReload(r.Context(), id, store, s.reloadDelay)
	}
	NewJSONResponse().Status(status).Session(id).
		Data(newChangeView(res, store.Location(), s.reloadDelay)).
		Notices(s.noticesSince(id, start)).
		Write(w)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	id, store := s.openSession(r)

	recordID, err := parseRecordID(r.PathValue("id"))
	if err != nil {
		BadRequestError(err.Error()).Session(id).Write(w)
		return
	}

	res, err := store.DeleteRecord(r.Context(), recordID)
	if err != nil {
		s.writeStoreError(w, r, id, start, err)
		return
	}

	status := http.StatusOK
	if res.ReloadRequired {
		status = http.StatusAccepted
		s.scheduleReload(r.Context(), id, store, s.deleteReloadDelay)
	}
	NewJSONResponse().Status(status).Session(id).
		Data(newChangeView(res, store.Location(), s.deleteReloadDelay)).
		Notices(s.noticesSince(id, start)).
		Write(w)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	id, store := s.openSession(r)
	filter, err := parseCategoryFilter(r.URL.Query())
	if err != nil {
		BadRequestError(err.Error()).Session(id).Write(w)
		return
	}
	NewJSONResponse().Session(id).
		Data(newSummaryView(store.Summary(filter), store.Location(), store.Degraded())).
		Write(w)
}

func (s *Server) handleBreakdownChart(w http.ResponseWriter, r *http.Request) {
	id, store := s.openSession(r)
	png, err := charts.RenderBreakdownPNG(store.Summary(core.AllCategories).Breakdown, charts.Options{})
	if errors.Is(err, charts.ErrNoData) {
		NewJSONResponse().Status(http.StatusNoContent).Session(id).Write(w)
		return
	}
	if err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Chart rendering failed", log.FieldError, err.Error())
		InternalServerError("Could not render chart").Session(id).Write(w)
		return
	}
	w.Header().Set(SessionHeader, id)
	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

func (s *Server) handleNotices(w http.ResponseWriter, r *http.Request) {
	id, _ := s.openSession(r)
	NewJSONResponse().Session(id).Data(s.noticesSince(id, time.Time{})).Write(w)
}

// noticesSince returns the buffered notices of one session raised at or
// after since.
func (s *Server) noticesSince(sessionID string, since time.Time) []notify.Notice {
	out := []notify.Notice{}
	for _, n := range s.notices.List() {
		if n.SessionID == sessionID && !n.At.Before(since) {
			out = append(out, n)
		}
	}
	return out
}

func (s *Server) scheduleReload(ctx context.Context, sessionID string, store *session.Store, delay time.Duration) {
	s.reloads.schedule(sessionID, store, delay)
	n := notify.New(notify.KindInfo, log.OpLoad, "Your change will appear after the ledger confirms it")
	n.Code = session.CodeReloadPending
	notify.WithSession(sessionID, s.notifier).Notify(ctx, n)
}

// writeStoreError maps session store errors to API responses.
func (s *Server) writeStoreError(w http.ResponseWriter, r *http.Request, sessionID string, start time.Time, err error) {
	var (
		validation *core.ValidationError
		submission *ledger.SubmissionError
		query      *ledger.QueryError
		resp       *JSONResponseBuilder
	)
	switch {
	case errors.As(err, &validation):
		resp = NewJSONResponse().Status(http.StatusUnprocessableEntity).
			FieldError("validation_failed", validation.Field, validation.Error())
	case errors.Is(err, session.ErrNotConnected):
		resp = ErrorResponse(http.StatusConflict, "not_connected", "Connect a ledger account or enable fallback mode first")
	case errors.Is(err, session.ErrAlreadyConnected):
		resp = ErrorResponse(http.StatusConflict, "already_connected", "Session is already connected; disconnect first")
	case errors.As(err, &submission):
		resp = ErrorResponse(http.StatusBadGateway, "submission_failed", submission.Error())
	case errors.As(err, &query):
		resp = ErrorResponse(http.StatusBadGateway, "query_failed", query.Error())
	default:
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Unexpected store error", log.FieldError, err.Error())
		resp = InternalServerError("Unexpected error")
	}
	resp.Session(sessionID).Notices(s.noticesSince(sessionID, start)).Write(w)
}
