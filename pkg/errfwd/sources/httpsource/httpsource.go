// Package httpsource receives browser error reports over HTTP and WebSocket
// and dispatches them as error events. A Source is an errfwd.EventSource, so
// it can be bound to a Coordinator with errfwd.RegisterElement.
package httpsource

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/strongdm/ai-cxdb-errfwd/pkg/errfwd"
)

const (
	defaultMaxReportBytes = 64 * 1024
	wsReadTimeout         = 60 * time.Second
)

// ErrEmptyReport is returned for reports that carry no message, either
// directly or through the attached error.
var ErrEmptyReport = errors.New("report has no message or error")

// Report is the JSON body of a browser error report, mirroring the fields of
// a window ErrorEvent.
type Report struct {
	Message  string            `json:"message"`
	Filename string            `json:"filename"`
	Lineno   int               `json:"lineno"`
	Colno    int               `json:"colno"`
	Error    *ReportError      `json:"error,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// ReportError is the serialized JavaScript error object attached to a report.
type ReportError struct {
	Type    string `json:"name"`
	Message string `json:"message"`
	Stack   string `json:"stack,omitempty"`
}

func (e *ReportError) Error() string {
	switch {
	case e.Type == "":
		return e.Message
	case e.Message == "":
		return e.Type
	}
	return e.Type + ": " + e.Message
}

// Name returns the JavaScript error name, e.g. "TypeError".
func (e *ReportError) Name() string {
	return e.Type
}

// Option configures a Source.
type Option func(*Source)

// WithLogger sets the logger used for transport diagnostics.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Source) {
		s.logger = logger
	}
}

// WithMaxReportBytes limits the size of a single report.
func WithMaxReportBytes(n int64) Option {
	return func(s *Source) {
		s.maxReportBytes = n
	}
}

// WithCheckOrigin sets the origin check for WebSocket upgrades. By default
// all origins are accepted, since reports come from arbitrary pages.
func WithCheckOrigin(fn func(r *http.Request) bool) Option {
	return func(s *Source) {
		s.upgrader.CheckOrigin = fn
	}
}

// Source is an HTTP event source.
type Source struct {
	*errfwd.Dispatcher

	logger         zerolog.Logger
	maxReportBytes int64
	upgrader       websocket.Upgrader
	router         chi.Router
}

// New creates a Source with routes:
//
//	POST /errors     one JSON report per request
//	GET  /errors/ws  one JSON report per text frame
func New(opts ...Option) *Source {
	s := &Source{
		Dispatcher:     errfwd.NewDispatcher(),
		logger:         log.With().Str("component", "httpsource").Logger(),
		maxReportBytes: defaultMaxReportBytes,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Post("/errors", s.handleReport)
	r.Get("/errors/ws", s.handleWebSocket)
	s.router = r
	return s
}

// Handler returns the HTTP handler serving the report routes.
func (s *Source) Handler() http.Handler {
	return s.router
}

type ack struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Source) handleReport(w http.ResponseWriter, r *http.Request) {
	var report Report
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.maxReportBytes))
	if err := dec.Decode(&report); err != nil {
		writeJSON(w, http.StatusBadRequest, ack{Status: "rejected", Error: err.Error()})
		return
	}

	event, err := toEvent(report, r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ack{Status: "rejected", Error: err.Error()})
		return
	}

	if err := s.DispatchError(r.Context(), event); err != nil {
		s.logger.Warn().Err(err).Str("method", "handleReport").Msg("listener failed")
		writeJSON(w, http.StatusBadGateway, ack{Status: "failed", Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusAccepted, ack{Status: "accepted"})
}

func (s *Source) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug().Err(err).Str("method", "handleWebSocket").Msg("upgrade failed")
		return
	}
	defer conn.Close()

	conn.SetReadLimit(s.maxReportBytes)
	conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
		return nil
	})

	for {
		msgType, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Debug().Err(err).Str("method", "handleWebSocket").Msg("read failed")
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
		if msgType != websocket.TextMessage {
			continue
		}

		reply := s.handleFrame(r, message)
		if err := conn.WriteJSON(reply); err != nil {
			s.logger.Debug().Err(err).Str("method", "handleWebSocket").Msg("write failed")
			return
		}
	}
}

func (s *Source) handleFrame(r *http.Request, message []byte) ack {
	var report Report
	if err := json.Unmarshal(message, &report); err != nil {
		return ack{Status: "rejected", Error: err.Error()}
	}
	event, err := toEvent(report, r)
	if err != nil {
		return ack{Status: "rejected", Error: err.Error()}
	}
	if err := s.DispatchError(r.Context(), event); err != nil {
		s.logger.Warn().Err(err).Str("method", "handleFrame").Msg("listener failed")
		return ack{Status: "failed", Error: err.Error()}
	}
	return ack{Status: "accepted"}
}

// toEvent converts a report into an error event, adding request headers as
// metadata. Report metadata wins over header-derived values.
func toEvent(report Report, r *http.Request) (errfwd.ErrorEvent, error) {
	event := errfwd.ErrorEvent{
		Message:  report.Message,
		Filename: report.Filename,
		Lineno:   report.Lineno,
		Colno:    report.Colno,
		Metadata: make(map[string]string, len(report.Metadata)+2),
	}
	if report.Error != nil {
		event.Error = report.Error
		if event.Message == "" {
			event.Message = report.Error.Error()
		}
	}
	if event.Message == "" {
		return errfwd.ErrorEvent{}, ErrEmptyReport
	}

	if ua := r.UserAgent(); ua != "" {
		event.Metadata["user_agent"] = ua
	}
	if ref := r.Referer(); ref != "" {
		event.Metadata["page"] = ref
	}
	for k, v := range report.Metadata {
		event.Metadata[k] = v
	}
	return event, nil
}
