package retention

import (
	"sync"
	"time"

	"github.com/roylee0704/gron"

	"signalgate/internal/models"
	"signalgate/internal/providers"
	"signalgate/internal/retention/interfaces"
	"signalgate/internal/services"
	"signalgate/internal/structures"
)

// Scheduler runs the two periodic jobs: snapshot persistence and expiry
// sweeps (dead entitlements, stale reservations, spent proof ids, expired
// price quotes).
type Scheduler struct {
	config      *structures.Config
	logger      providers.Logger
	metrics     providers.MetricsProviderInterface
	store       *models.EntitlementStore
	unlock      services.UnlockServiceInterface
	fileManager *FileManager
	cron        *gron.Cron
	opsMu       sync.Mutex
}

func (s *Scheduler) Init() {
	s.cron = gron.New()
	saveInterval := s.config.Persistence.SaveInterval
	sweepInterval := s.config.Persistence.SweepInterval

	s.cron.AddFunc(gron.Every(saveInterval), func() {
		s.opsMu.Lock()
		defer s.opsMu.Unlock()

		start := time.Now()
		err := s.fileManager.SaveToFile(s.config.Persistence.FilePath)
		if err != nil {
			s.logger.Errorf(providers.TypeApp, "Error while persisting entitlements: %s", err)
			return
		}
		s.metrics.ObservePersistenceDuration(time.Since(start))
		s.logger.Infof(providers.TypeApp, "Persisted entitlements to file %s", s.config.Persistence.FilePath)
	})

	s.cron.AddFunc(gron.Every(sweepInterval), func() {
		s.opsMu.Lock()
		defer s.opsMu.Unlock()

		removed := s.store.SweepExpired(models.ToEpochSeconds(time.Now()))
		s.unlock.PruneQuotes()
		if removed > 0 {
			s.logger.Infof(providers.TypeApp, "Swept %d expired entitlements", removed)
		}
	})

	s.cron.Start()
}

func (s *Scheduler) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
}

func (s *Scheduler) Restore() error {
	err := s.fileManager.LoadFromFile(s.config.Persistence.FilePath)
	if err != nil {
		return err
	}
	// grants expired while the service was down never resurface
	s.store.SweepExpired(models.ToEpochSeconds(time.Now()))
	return nil
}

func (s *Scheduler) Persist() error {
	s.opsMu.Lock()
	defer s.opsMu.Unlock()

	s.logger.Infof(providers.TypeApp, "Persisting entitlements to file...")
	err := s.fileManager.SaveToFile(s.config.Persistence.FilePath)
	if err != nil {
		s.logger.Errorf(providers.TypeApp, "Error while persisting entitlements: %s", err)
		return err
	}
	return nil
}

func NewScheduler(config *structures.Config, logger providers.Logger, metrics providers.MetricsProviderInterface, store *models.EntitlementStore, unlock services.UnlockServiceInterface, fileManager *FileManager) interfaces.SchedulerInterface {
	return &Scheduler{
		config:      config,
		logger:      logger,
		metrics:     metrics,
		store:       store,
		unlock:      unlock,
		fileManager: fileManager,
	}
}
