package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/aretw0/roboflow"
	"github.com/aretw0/roboflow/internal/config"
	"github.com/aretw0/roboflow/pkg/adapters/adb"
	"github.com/aretw0/roboflow/pkg/adapters/file"
	"github.com/aretw0/roboflow/pkg/adapters/memory"
	"github.com/aretw0/roboflow/pkg/adapters/mqtt"
	"github.com/aretw0/roboflow/pkg/adapters/redis"
	"github.com/aretw0/roboflow/pkg/adapters/sqlstore"
	"github.com/aretw0/roboflow/pkg/domain"
	"github.com/aretw0/roboflow/pkg/observability"
	"github.com/aretw0/roboflow/pkg/persistence/middleware"
	"github.com/aretw0/roboflow/pkg/ports"
)

// DefaultSQLitePath is the database file used by the sqlite driver when no path is set.
const DefaultSQLitePath = ".roboflow/runs.db"

// Backend is an opened run store with its optional device locker.
type Backend struct {
	Store  ports.RunStore
	Locker ports.DistributedLocker
	close  func() error
}

// Close releases the store's connections.
func (b *Backend) Close() error {
	if b.close == nil {
		return nil
	}
	return b.close()
}

// OpenBackend opens the run store selected by cfg.Driver, masking cfg.Redact patterns in saved reports.
func OpenBackend(cfg config.StoreConfig) (*Backend, error) {
	b, err := openBackend(cfg)
	if err != nil || b.Store == nil || len(cfg.Redact) == 0 {
		return b, err
	}
	redact, err := middleware.NewRedactMiddleware(cfg.Redact)
	if err != nil {
		b.Close()
		return nil, err
	}
	b.Store = middleware.Wrap(b.Store, redact)
	return b, nil
}

func openBackend(cfg config.StoreConfig) (*Backend, error) {
	switch cfg.Driver {
	case config.StoreNone:
		return &Backend{}, nil
	case config.StoreMemory:
		return &Backend{Store: memory.NewStore(), Locker: memory.NewLocker()}, nil
	case config.StoreFile:
		return &Backend{Store: file.NewStore(cfg.Path)}, nil
	case config.StoreRedis:
		var opts []redis.Option
		if cfg.TTL > 0 {
			opts = append(opts, redis.WithTTL(cfg.TTL))
		}
		s := redis.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, opts...)
		return &Backend{Store: s, Locker: redis.NewLocker(s.Client(), ""), close: s.Close}, nil
	case config.StoreSQLite:
		path := cfg.Path
		if path == "" {
			path = DefaultSQLitePath
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite dir: %w", err)
		}
		s, err := sqlstore.OpenSQLite(path)
		if err != nil {
			return nil, err
		}
		return &Backend{Store: s, close: s.Close}, nil
	case config.StorePostgres:
		s, err := sqlstore.Open(sqlstore.Postgres, cfg.DSN)
		if err != nil {
			return nil, err
		}
		return &Backend{Store: s, close: s.Close}, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

// Stack is an engine with everything it was wired to.
type Stack struct {
	Engine   *roboflow.Engine
	Backend  *Backend
	Registry *prometheus.Registry
	Logger   *slog.Logger
	closers  []func() error
}

// Close releases the backend and the MQTT connection.
func (s *Stack) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		errs = append(errs, s.closers[i]())
	}
	return errors.Join(errs...)
}

// StackOptions tunes NewStack.
type StackOptions struct {
	// Device overrides the adb device built from the config.
	Device ports.Device
	// Hooks are merged after the built-in logging, metrics and MQTT hooks.
	Hooks []domain.LifecycleHooks
	// Metrics registers Prometheus collectors in Stack.Registry.
	Metrics bool
}

// NewStack wires an engine from the configuration: device, project loader, run store,
// device locker, logging hooks, optional metrics and optional MQTT event stream.
func NewStack(cfg config.Config, logger *slog.Logger, opts StackOptions) (*Stack, error) {
	stack := &Stack{Logger: logger}
	ok := false
	defer func() {
		if !ok {
			stack.Close()
		}
	}()

	backend, err := OpenBackend(cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("failed to open run store: %w", err)
	}
	stack.Backend = backend
	stack.closers = append(stack.closers, backend.Close)

	hooks := []domain.LifecycleHooks{observability.LoggingHooks(logger)}

	if opts.Metrics {
		stack.Registry = prometheus.NewRegistry()
		m, err := observability.NewMetrics(stack.Registry)
		if err != nil {
			return nil, err
		}
		hooks = append(hooks, m.Hooks())
	}

	if cfg.MQTT.URL != "" {
		client, err := mqtt.Dial(cfg.MQTT.URL, cfg.MQTT.ClientID)
		if err != nil {
			return nil, err
		}
		stack.closers = append(stack.closers, func() error {
			client.Disconnect(250)
			return nil
		})
		pub := mqtt.NewPublisher(client,
			mqtt.WithTopicPrefix(cfg.MQTT.TopicPrefix),
			mqtt.WithLogger(logger),
		)
		hooks = append(hooks, pub.Hooks())
		logger.Info("streaming run events", "broker", cfg.MQTT.URL, "prefix", cfg.MQTT.TopicPrefix)
	}
	hooks = append(hooks, opts.Hooks...)

	device := opts.Device
	if device == nil {
		device = adb.New(cfg.Device, adb.WithLogger(logger))
	}

	engineOpts := []roboflow.Option{
		roboflow.WithLogger(logger),
		roboflow.WithLifecycleHooks(domain.MergeHooks(hooks...)),
		roboflow.WithMaxSteps(cfg.MaxSteps),
		roboflow.WithLoader(file.NewProjectFile(cfg.Project)),
	}
	if backend.Store != nil {
		engineOpts = append(engineOpts, roboflow.WithStore(backend.Store))
	}
	if backend.Locker != nil {
		engineOpts = append(engineOpts, roboflow.WithLocker(backend.Locker, 0))
	}

	eng, err := roboflow.New(device, engineOpts...)
	if err != nil {
		return nil, fmt.Errorf("error initializing engine: %w", err)
	}
	stack.Engine = eng
	ok = true
	return stack, nil
}
