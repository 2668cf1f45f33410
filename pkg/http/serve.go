package xhttp

import (
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/bancoapp/banco-ledger/pkg/logger"
)

const (
	StatusOK                  = fasthttp.StatusOK
	StatusCreated             = fasthttp.StatusCreated
	StatusBadRequest          = fasthttp.StatusBadRequest
	StatusUnauthorized        = fasthttp.StatusUnauthorized
	StatusNotFound            = fasthttp.StatusNotFound
	StatusRequestTimeout      = fasthttp.StatusRequestTimeout
	StatusInternalServerError = fasthttp.StatusInternalServerError
)

func StatusText(code int) string {
	return fasthttp.StatusMessage(code)
}

type Server = fasthttp.Server

type ServerOption struct {
	Handler RequestHandler

	// idle connections held open too long exhaust file descriptors
	IdleTimeout           time.Duration
	MaxIdleWorkerDuration time.Duration
	TCPKeepalivePeriod    time.Duration
	MaxRequestBodySize    int
	ReadBufferSize        int
	WriteBufferSize       int
	ReadTimeout           time.Duration
	WriteTimeout          time.Duration
	Concurrency           int
	MaxConnsPerIP         int

	ErrorHandler func(ctx *RequestCtx, err error)
	Logger       logger.Logger
}

var DefaultServerOption = ServerOption{
	Handler: func(ctx *RequestCtx) {
		ctx.Error(StatusText(StatusNotFound), StatusNotFound)
	},
	IdleTimeout:           time.Second * 10,
	MaxIdleWorkerDuration: time.Minute,
	TCPKeepalivePeriod:    time.Minute * 120,
	MaxRequestBodySize:    4 * 1024 * 1024,
	ReadBufferSize:        1024 * 4,
	WriteBufferSize:       1024 * 4,
	ReadTimeout:           time.Millisecond * 2500,
	WriteTimeout:          time.Millisecond * 2500,
	Concurrency:           30_000,
	MaxConnsPerIP:         10_000,
	ErrorHandler: func(ctx *RequestCtx, err error) {
		ctx.Logger().Printf("[xhttp] error: %s", err)
	},
}

type Engine struct {
	*Router
	*Server
	option ServerOption
	middle []MiddlewareFunc
}

func newServer(options ServerOption) *fasthttp.Server {
	return &fasthttp.Server{
		Handler:                      options.Handler,
		ErrorHandler:                 options.ErrorHandler,
		Concurrency:                  options.Concurrency,
		ReadBufferSize:               options.ReadBufferSize,
		WriteBufferSize:              options.WriteBufferSize,
		ReadTimeout:                  options.ReadTimeout,
		WriteTimeout:                 options.WriteTimeout,
		IdleTimeout:                  options.IdleTimeout,
		MaxConnsPerIP:                options.MaxConnsPerIP,
		MaxIdleWorkerDuration:        options.MaxIdleWorkerDuration,
		TCPKeepalivePeriod:           options.TCPKeepalivePeriod,
		MaxRequestBodySize:           options.MaxRequestBodySize,
		TCPKeepalive:                 true,
		DisablePreParseMultipartForm: true,
		LogAllErrors:                 true,
		NoDefaultServerHeader:        true,
		NoDefaultDate:                true,
		NoDefaultContentType:         true,
		CloseOnShutdown:              true,
		Logger:                       options.Logger,
	}
}

func NewServer(options ServerOption) *Engine {
	if options.Logger == nil {
		options.Logger = logger.GetLogger()
	}
	return &Engine{
		Server: newServer(options),
		Router: NewRouter(),
		option: options,
	}
}

func CreateServer() *Engine {
	s := NewServer(DefaultServerOption)
	s.Router = CreateDefaultRouter()
	return s
}

func (e *Engine) ListenAndServe(addr string) error {
	e.doRouting()
	e.Server.Logger.Printf("[xhttp] server is listening on %s", addr)
	return e.Server.ListenAndServe(addr)
}

// Use adds middleware to the chain which is run for every request. The
// first middleware registered is the outermost.
func (e *Engine) Use(middleware MiddlewareFunc) {
	e.middle = append(e.middle, middleware)
}

func (e *Engine) doRouting() {
	for method, routes := range e.Router.List() {
		for _, r := range routes {
			e.Server.Logger.Printf("[xhttp] method: %s, path: %s", method, r)
		}
	}
	e.Server.Handler = e.Router.Handler
	slices.Reverse(e.middle)
	for _, m := range e.middle {
		e.Server.Handler = m(e.Server.Handler)
	}
}

func (e *Engine) CloseOnSignal() {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	go func() {
		<-sig
		e.Shutdown()
	}()
}

// Shutdown gracefully shuts down the server without interrupting active
// connections.
func (e *Engine) Shutdown() {
	e.Server.Logger.Printf("[xhttp] server is shutting down, process id: %d", os.Getpid())
	if err := e.Server.Shutdown(); err != nil {
		e.Server.Logger.Printf("[xhttp] error while shutting down: %v", err)
	}
}
