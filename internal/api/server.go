package api

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/nerrad567/lockwise-core/internal/access"
	"github.com/nerrad567/lockwise-core/internal/accesslog"
	"github.com/nerrad567/lockwise-core/internal/auth"
	"github.com/nerrad567/lockwise-core/internal/control"
	"github.com/nerrad567/lockwise-core/internal/device"
	"github.com/nerrad567/lockwise-core/internal/infrastructure/config"
	"github.com/nerrad567/lockwise-core/internal/infrastructure/logging"
	"github.com/nerrad567/lockwise-core/internal/reconciler"
	"github.com/nerrad567/lockwise-core/internal/transport"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// DeviceReader reads device state. *device.Registry satisfies it.
type DeviceReader interface {
	GetDevice(ctx context.Context, id string) (*device.Device, error)
	ListByOwner(ctx context.Context, ownerID string) ([]device.Device, error)
	GetStats() device.Stats
}

// AccessResolver answers standing questions. *access.Checker satisfies it.
type AccessResolver interface {
	Standing(ctx context.Context, actorID, deviceID string) (access.Standing, error)
	SharedDeviceIDs(ctx context.Context, actorID string) ([]string, error)
}

// Commander issues device commands. *control.Service satisfies it.
type Commander interface {
	Ping(ctx context.Context, actorID, deviceID string) error
	Control(ctx context.Context, actorID, deviceID, command string) error
	Lockdown(ctx context.Context, actorID, deviceID string) error
	Reboot(ctx context.Context, actorID, deviceID string) error
	ApplyConfig(ctx context.Context, actorID, deviceID string, items []control.ConfigItem) error
}

// LogReader lists access log entries. *accesslog.SQLiteRepository satisfies it.
type LogReader interface {
	List(ctx context.Context, filter accesslog.Filter) (*accesslog.ListResult, error)
}

// Optional metrics sources.
type (
	ConnectionStatus interface{ IsConnected() bool }
	DispatchStats    interface{ Stats() reconciler.DispatchStats }
	TransportStats   interface{ Stats() transport.Stats }
	PendingCounter   interface{ Pending() int }
	DBStats          interface{ Stats() sql.DBStats }
)

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config    config.APIConfig
	WS        config.WebSocketConfig
	Logger    *logging.Logger
	Issuer    *auth.Issuer
	Devices   DeviceReader
	Access    AccessResolver
	Commands  Commander
	AccessLog LogReader
	Hub       *Hub // If set, the server uses this hub instead of creating its own

	MQTT       ConnectionStatus
	Dispatcher DispatchStats
	Transport  TransportStats
	Waiters    PendingCounter
	DB         DBStats
	Version    string
}

// Server is the HTTP API server for LockWise Core.
//
// It manages the HTTP listener, routes, middleware, and WebSocket hub.
// The server is created with New() and started with Start().
type Server struct {
	cfg       config.APIConfig
	wsCfg     config.WebSocketConfig
	logger    *logging.Logger
	issuer    *auth.Issuer
	devices   DeviceReader
	access    AccessResolver
	commands  Commander
	accessLog LogReader

	mqtt       ConnectionStatus
	dispatcher DispatchStats
	transport  TransportStats
	waiters    PendingCounter
	db         DBStats

	version     string
	startTime   time.Time
	server      *http.Server
	hub         *Hub
	tickets     *ticketStore
	externalHub bool               // true if hub was injected externally
	cancel      context.CancelFunc // cancels background goroutines on Close()
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if deps.Issuer == nil {
		return nil, errors.New("token issuer is required")
	}
	if deps.Devices == nil || deps.Access == nil || deps.Commands == nil || deps.AccessLog == nil {
		return nil, errors.New("devices, access, commands and access log are required")
	}

	s := &Server{
		cfg:        deps.Config,
		wsCfg:      deps.WS,
		logger:     deps.Logger,
		issuer:     deps.Issuer,
		devices:    deps.Devices,
		access:     deps.Access,
		commands:   deps.Commands,
		accessLog:  deps.AccessLog,
		mqtt:       deps.MQTT,
		dispatcher: deps.Dispatcher,
		transport:  deps.Transport,
		waiters:    deps.Waiters,
		db:         deps.DB,
		version:    deps.Version,
		startTime:  time.Now(),
		tickets:    newTicketStore(),
	}

	// The reconciler needs the hub before the server starts, so main
	// usually builds it and passes it in.
	if deps.Hub != nil {
		s.hub = deps.Hub
		s.externalHub = true
	}

	return s, nil
}

// Start begins listening for HTTP connections.
//
// It sets up the router, starts the WebSocket hub if it owns one, and
// launches the HTTP listener in a background goroutine. The server can be
// stopped with Close().
func (s *Server) Start(ctx context.Context) error {
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	if s.hub == nil {
		s.hub = NewHub(s.wsCfg, s.logger)
		go s.hub.Run(srvCtx)
	}

	go s.cleanTicketsLoop(srvCtx)

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		var err error
		if s.cfg.TLS.Enabled {
			s.logger.Info("API server starting with TLS",
				"address", s.server.Addr,
				"cert", s.cfg.TLS.CertFile,
			)
			err = s.server.ListenAndServeTLS(s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
		} else {
			s.logger.Info("API server starting", "address", s.server.Addr)
			err = s.server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	if s.cancel != nil {
		s.cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running and responsive.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return errors.New("api server not started")
	}

	return nil
}
