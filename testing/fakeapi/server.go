package fakeapi

import (
	"crypto/rand"
	"encoding/hex"
	"maps"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/smashsdk/sdk-core/logger"
)

const (
	// ServiceName is reported by the tracing middleware.
	ServiceName = "smash-fake-api"

	// MissingTransferID always answers 404 NotFound.
	MissingTransferID = "missing"

	tokenPath     = "/auth/token"
	transfersPath = "/v1/transfers"
)

// Transfer is the resource served under /v1/transfers.
type Transfer struct {
	ID     string `json:"id" xml:"id"`
	Name   string `json:"name,omitempty" xml:"name,omitempty"`
	Status string `json:"status" xml:"status"`
}

// TokenResponse is returned by POST /auth/token.
type TokenResponse struct {
	Token string `json:"token"`
}

// Server is an in-process fake API. It is safe for concurrent use.
type Server struct {
	echo   *echo.Echo
	http   *httptest.Server
	logger logger.Logger
	tracer trace.TracerProvider

	mu        sync.Mutex
	valid     map[string]struct{}
	current   string
	transfers map[string]Transfer
	nextID    int

	tokenRequests atomic.Int64
	unauthorized  atomic.Int64
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger. The default discards output.
func WithLogger(log logger.Logger) Option {
	return func(s *Server) {
		if log != nil {
			s.logger = log
		}
	}
}

// WithTracerProvider records server spans on tp.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Server) {
		if tp != nil {
			s.tracer = tp
		}
	}
}

// New starts a server listening on a loopback address.
func New(opts ...Option) *Server {
	s := &Server{
		logger:    logger.Nop(),
		tracer:    noop.NewTracerProvider(),
		valid:     make(map[string]struct{}),
		transfers: make(map[string]Transfer),
	}
	for _, opt := range opts {
		opt(s)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = s.errorHandler

	e.Use(middleware.RequestID())
	e.Use(otelecho.Middleware(ServiceName, otelecho.WithTracerProvider(s.tracer)))
	e.Use(s.requestLogger())

	e.POST(tokenPath, s.issueToken)

	v1 := e.Group("/v1", s.requireToken)
	v1.POST("/transfers", s.createTransfer)
	v1.GET("/transfers/:id", s.getTransfer)

	s.echo = e
	s.http = httptest.NewServer(e)
	return s
}

// URL returns the server base URL.
func (s *Server) URL() string {
	return s.http.URL
}

// Close shuts the server down.
func (s *Server) Close() {
	s.http.Close()
}

// IssueToken mints a new valid token and makes it current.
func (s *Server) IssueToken() string {
	token := newToken()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.valid[token] = struct{}{}
	s.current = token
	return token
}

// ExpireTokens invalidates every token issued so far.
func (s *Server) ExpireTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.valid)
	s.current = ""
}

// Token returns the most recently issued token that is still valid.
func (s *Server) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// TokenRequests returns the number of POST /auth/token calls served.
func (s *Server) TokenRequests() int64 {
	return s.tokenRequests.Load()
}

// Unauthorized returns the number of requests rejected with 401.
func (s *Server) Unauthorized() int64 {
	return s.unauthorized.Load()
}

// Transfers returns a copy of the stored transfers.
func (s *Server) Transfers() map[string]Transfer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return maps.Clone(s.transfers)
}

func (s *Server) isValid(token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.valid[token]
	return ok
}

func newToken() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

func (s *Server) requestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			err := next(c)
			req := c.Request()
			s.logger.Debug().
				Str("method", req.Method).
				Str("path", req.URL.Path).
				Str("request_id", c.Response().Header().Get(echo.HeaderXRequestID)).
				Msg("Fake API request")
			return err
		}
	}
}

func (s *Server) requireToken(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		auth := c.Request().Header.Get(echo.HeaderAuthorization)
		token, ok := strings.CutPrefix(auth, "Bearer ")
		if !ok || token == "" {
			s.unauthorized.Add(1)
			return newAPIError(http.StatusUnauthorized, "Unauthorized", "missing bearer token")
		}
		if !s.isValid(token) {
			s.unauthorized.Add(1)
			return newAPIError(http.StatusUnauthorized, "Unauthorized", "token expired")
		}
		return next(c)
	}
}
