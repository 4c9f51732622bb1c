package services

import (
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/terraincognita07/lua/internal/models"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

var (
	ErrPeriodNotFound      = errors.New("period not found")
	ErrPeriodLoadFailed    = errors.New("load periods failed")
	ErrPeriodSaveFailed    = errors.New("save period failed")
	ErrPeriodDeleteFailed  = errors.New("delete period failed")
	ErrPeriodAlreadyActive = errors.New("a period is already ongoing")
	ErrNoOngoingPeriod     = errors.New("no ongoing period")
	ErrImportFailed        = errors.New("import periods failed")
	ErrClearDataFailed     = errors.New("clear data failed")
	ErrSyncMetaFailed      = errors.New("sync metadata failed")
)

type PeriodRepository interface {
	List() ([]models.Period, error)
	FindByID(id uint) (models.Period, bool, error)
	Create(period *models.Period) error
	Update(period *models.Period) error
	Delete(id uint) (bool, error)
	ApplyChanges(changes []models.PeriodChange) error
	ReplaceAll(periods []models.Period, meta map[string]string) error
	Clear() error
}

type MetaRepository interface {
	Get(key string) (string, bool, error)
	Set(key string, value string) error
}

type PeriodServiceConfig struct {
	PredictionWindow int
	ForecastCycles   int
	Location         *time.Location
	Now              func() time.Time
	Logger           *zap.Logger
}

// PeriodService owns every write to the period store. Each mutation runs
// under one lock, and concurrent snapshot loads of the same store state
// share a single computation.
type PeriodService struct {
	periods  PeriodRepository
	meta     MetaRepository
	options  SnapshotOptions
	location *time.Location
	now      func() time.Time
	logger   *zap.Logger

	writeMu    sync.Mutex
	loads      singleflight.Group
	generation atomic.Uint64

	listenersMu sync.RWMutex
	listeners   []func()
}

func NewPeriodService(periods PeriodRepository, meta MetaRepository, config PeriodServiceConfig) *PeriodService {
	if config.Location == nil {
		config.Location = time.UTC
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}
	return &PeriodService{
		periods: periods,
		meta:    meta,
		options: SnapshotOptions{
			PredictionWindow: config.PredictionWindow,
			ForecastCycles:   config.ForecastCycles,
		},
		location: config.Location,
		now:      config.Now,
		logger:   config.Logger,
	}
}

// OnMutation registers fn to run after every successful user-driven write.
func (service *PeriodService) OnMutation(fn func()) {
	service.listenersMu.Lock()
	defer service.listenersMu.Unlock()
	service.listeners = append(service.listeners, fn)
}

func (service *PeriodService) Today() time.Time {
	return CalendarToday(service.now(), service.location)
}

func (service *PeriodService) Location() *time.Location {
	return service.location
}

func (service *PeriodService) List() ([]models.Period, error) {
	periods, err := service.periods.List()
	if err != nil {
		service.logger.Error("list periods", zap.Error(err))
		return nil, ErrPeriodLoadFailed
	}
	return SortPeriods(periods), nil
}

// Snapshot reads the store once and derives all engine outputs for today.
func (service *PeriodService) Snapshot() (Snapshot, error) {
	today := service.Today()
	key := FormatDate(today) + "#" + strconv.FormatUint(service.generation.Load(), 10)
	value, err, _ := service.loads.Do(key, func() (any, error) {
		periods, err := service.List()
		if err != nil {
			return nil, err
		}
		return BuildSnapshot(periods, today, service.options), nil
	})
	if err != nil {
		return Snapshot{}, err
	}
	return value.(Snapshot), nil
}

// Forecast chains n future cycles from the stored records.
func (service *PeriodService) Forecast(n int) ([]FutureCycle, error) {
	periods, err := service.List()
	if err != nil {
		return nil, err
	}
	return PredictNextNPeriods(periods, n, service.options.PredictionWindow, service.Today()), nil
}

func (service *PeriodService) Add(period models.Period) (models.Period, error) {
	var created models.Period
	err := service.mutate(func(existing []models.Period) error {
		if err := ValidateNoOverlap(existing, period, service.Today()); err != nil {
			return err
		}
		created = models.Period{StartDate: period.StartDate, EndDate: period.EndDate}
		if err := service.periods.Create(&created); err != nil {
			service.logger.Error("create period", zap.Error(err))
			return ErrPeriodSaveFailed
		}
		return nil
	})
	return created, err
}

func (service *PeriodService) Update(period models.Period) (models.Period, error) {
	err := service.mutate(func(existing []models.Period) error {
		if !containsPeriod(existing, period.ID) {
			return ErrPeriodNotFound
		}
		if err := ValidateNoOverlap(existing, period, service.Today()); err != nil {
			return err
		}
		if err := service.periods.Update(&period); err != nil {
			service.logger.Error("update period", zap.Uint("id", period.ID), zap.Error(err))
			return ErrPeriodSaveFailed
		}
		return nil
	})
	return period, err
}

func (service *PeriodService) Delete(id uint) error {
	return service.mutate(func([]models.Period) error {
		deleted, err := service.periods.Delete(id)
		if err != nil {
			service.logger.Error("delete period", zap.Uint("id", id), zap.Error(err))
			return ErrPeriodDeleteFailed
		}
		if !deleted {
			return ErrPeriodNotFound
		}
		return nil
	})
}

// StartPeriod opens a new ongoing period today.
func (service *PeriodService) StartPeriod() (models.Period, error) {
	today := FormatDate(service.Today())
	var created models.Period
	err := service.mutate(func(existing []models.Period) error {
		if _, ongoing := OngoingPeriod(existing); ongoing {
			return ErrPeriodAlreadyActive
		}
		candidate := models.Period{StartDate: today}
		if err := ValidateNoOverlap(existing, candidate, service.Today()); err != nil {
			return err
		}
		created = candidate
		if err := service.periods.Create(&created); err != nil {
			service.logger.Error("start period", zap.Error(err))
			return ErrPeriodSaveFailed
		}
		return nil
	})
	return created, err
}

// EndOngoingPeriod closes the ongoing period with today's date.
func (service *PeriodService) EndOngoingPeriod() (models.Period, error) {
	today := FormatDate(service.Today())
	var closed models.Period
	err := service.mutate(func(existing []models.Period) error {
		ongoing, ok := OngoingPeriod(existing)
		if !ok {
			return ErrNoOngoingPeriod
		}
		if today < ongoing.StartDate {
			return ErrInvalidPeriodRange
		}
		ongoing.EndDate = models.StringPtr(today)
		if err := service.periods.Update(&ongoing); err != nil {
			service.logger.Error("end period", zap.Uint("id", ongoing.ID), zap.Error(err))
			return ErrPeriodSaveFailed
		}
		closed = ongoing
		return nil
	})
	return closed, err
}

// ApplyCalendarSelection reconciles the stored periods with the given
// selection and returns the changes that were written.
func (service *PeriodService) ApplyCalendarSelection(selected DateSet) ([]models.PeriodChange, error) {
	var changes []models.PeriodChange
	err := service.mutate(func(existing []models.Period) error {
		changes = ComputePeriodChanges(existing, selected)
		if len(changes) == 0 {
			return nil
		}
		if err := service.periods.ApplyChanges(changes); err != nil {
			service.logger.Error("apply calendar selection", zap.Int("changes", len(changes)), zap.Error(err))
			return ErrPeriodSaveFailed
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return changes, nil
}

// ExportDocument captures the current records for download or backup.
func (service *PeriodService) ExportDocument() (ExportDocument, error) {
	periods, err := service.List()
	if err != nil {
		return ExportDocument{}, err
	}
	return NewExportDocument(periods, service.now()), nil
}

func (service *PeriodService) ExportJSON() ([]byte, error) {
	document, err := service.ExportDocument()
	if err != nil {
		return nil, err
	}
	return MarshalExportDocument(document)
}

// Import validates payload and replaces every stored record with it.
func (service *PeriodService) Import(payload []byte) (int, error) {
	document, err := ParseExportDocument(payload)
	if err != nil {
		return 0, err
	}
	err = service.mutate(func([]models.Period) error {
		if err := service.periods.ReplaceAll(document.Records(), nil); err != nil {
			service.logger.Error("import periods", zap.Error(err))
			return ErrImportFailed
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	service.logger.Info("imported periods", zap.Int("count", len(document.Periods)))
	return len(document.Periods), nil
}

// Restore replaces the store with a backup document and records syncedAt,
// without notifying mutation listeners.
func (service *PeriodService) Restore(document ExportDocument, syncedAt string) error {
	service.writeMu.Lock()
	defer service.writeMu.Unlock()
	defer service.generation.Add(1)

	meta := map[string]string{models.MetaLastSyncedAt: syncedAt}
	if err := service.periods.ReplaceAll(document.Records(), meta); err != nil {
		service.logger.Error("restore periods", zap.Error(err))
		return ErrImportFailed
	}
	return nil
}

func (service *PeriodService) ClearAll() error {
	return service.mutate(func([]models.Period) error {
		if err := service.periods.Clear(); err != nil {
			service.logger.Error("clear data", zap.Error(err))
			return ErrClearDataFailed
		}
		return nil
	})
}

func (service *PeriodService) LastSyncedAt() (string, bool, error) {
	value, ok, err := service.meta.Get(models.MetaLastSyncedAt)
	if err != nil {
		return "", false, fmt.Errorf("%w: %v", ErrSyncMetaFailed, err)
	}
	return value, ok, nil
}

func (service *PeriodService) MarkSynced(at string) error {
	if err := service.meta.Set(models.MetaLastSyncedAt, at); err != nil {
		return fmt.Errorf("%w: %v", ErrSyncMetaFailed, err)
	}
	return nil
}

// mutate runs write under the write lock with a fresh read of the store,
// then invalidates in-flight snapshots and notifies listeners on success.
func (service *PeriodService) mutate(write func(existing []models.Period) error) error {
	service.writeMu.Lock()
	existing, err := service.List()
	if err == nil {
		err = write(existing)
	}
	if err == nil {
		service.generation.Add(1)
	}
	service.writeMu.Unlock()

	if err != nil {
		return err
	}
	service.notify()
	return nil
}

func (service *PeriodService) notify() {
	service.listenersMu.RLock()
	listeners := append([]func(){}, service.listeners...)
	service.listenersMu.RUnlock()
	for _, listener := range listeners {
		listener()
	}
}

func containsPeriod(periods []models.Period, id uint) bool {
	for _, period := range periods {
		if period.ID == id {
			return true
		}
	}
	return false
}
