package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"gorm.io/gorm"

	"github.com/studioflow/class-payroll-service/internal/cache"
	"github.com/studioflow/class-payroll-service/internal/events"
	"github.com/studioflow/class-payroll-service/internal/notify"
	"github.com/studioflow/class-payroll-service/internal/repositories"
	"github.com/studioflow/class-payroll-service/internal/validator"
)

// ServiceManagerConfig holds configuration for the service manager
type ServiceManagerConfig struct {
	Series SeriesOptions
	Auth   AuthOptions
}

// ServiceDeps are the shared collaborators handed to every service
type ServiceDeps struct {
	DB        *gorm.DB
	Repo      repositories.Repository
	Cache     *cache.CacheManager
	Publisher events.EventPublisher
	Notifier  notify.Notifier
	Validator *validator.Validator
	Logger    *slog.Logger
}

// serviceManager implements ServiceManager interface
type serviceManager struct {
	deps   ServiceDeps
	config ServiceManagerConfig

	// Service instances
	financeService   FinanceService
	payrollService   PayrollService
	classService     ClassService
	referenceService ReferenceService
	authService      AuthService

	// Lifecycle management
	initialized bool
	shutdown    bool
	mu          sync.RWMutex
}

// NewServiceManager creates a new service manager with all dependencies
func NewServiceManager(deps ServiceDeps, config ServiceManagerConfig) ServiceManager {
	if deps.Cache == nil {
		deps.Cache = cache.NewCacheManager(nil, 0)
	}
	if deps.Validator == nil {
		deps.Validator = validator.New()
	}
	return &serviceManager{
		deps:   deps,
		config: config,
	}
}

// Initialize sets up all services and their dependencies
func (sm *serviceManager) Initialize(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.initialized {
		return nil
	}

	sm.deps.Logger.Info("Initializing service manager")

	d := sm.deps
	if d.Repo == nil {
		return fmt.Errorf("failed to initialize services: repository is required")
	}
	if d.Notifier == nil {
		d.Notifier = notify.NewLogNotifier(d.Logger)
	}

	sm.financeService = NewFinanceService(d.Repo, d.DB, d.Cache, d.Logger)
	sm.payrollService = NewPayrollService(d.Repo, d.DB, d.Cache, d.Logger)
	sm.classService = NewClassService(d.Repo, d.DB, d.Publisher, d.Validator, sm.config.Series, d.Logger)
	sm.referenceService = NewReferenceService(d.Repo, d.DB, d.Cache, d.Publisher, d.Logger)
	sm.authService = NewAuthService(d.Repo, d.Notifier, sm.config.Auth, d.Logger)

	sm.initialized = true
	sm.deps.Logger.Info("Service manager initialized successfully")

	return nil
}

// Service getters
func (sm *serviceManager) Finance() FinanceService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.mustBeInitialized()
	return sm.financeService
}

func (sm *serviceManager) Payroll() PayrollService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.mustBeInitialized()
	return sm.payrollService
}

func (sm *serviceManager) Class() ClassService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.mustBeInitialized()
	return sm.classService
}

func (sm *serviceManager) Reference() ReferenceService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.mustBeInitialized()
	return sm.referenceService
}

func (sm *serviceManager) Auth() AuthService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.mustBeInitialized()
	return sm.authService
}

func (sm *serviceManager) mustBeInitialized() {
	if !sm.initialized {
		panic("service manager not initialized")
	}
}

// Health and lifecycle
func (sm *serviceManager) HealthCheck(ctx context.Context) error {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		return fmt.Errorf("service manager not initialized")
	}

	if sm.shutdown {
		return fmt.Errorf("service manager is shut down")
	}

	if err := sm.deps.Repo.Ping(ctx); err != nil {
		return fmt.Errorf("repository health check failed: %w", err)
	}

	return nil
}

func (sm *serviceManager) Shutdown(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.shutdown {
		return nil
	}

	sm.deps.Logger.Info("Shutting down service manager")

	if sm.deps.Publisher != nil {
		if err := sm.deps.Publisher.Close(); err != nil {
			sm.deps.Logger.Error("Failed to close event publisher", "error", err)
		}
	}

	sm.shutdown = true
	sm.deps.Logger.Info("Service manager shut down completed")

	return nil
}
