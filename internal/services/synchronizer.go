package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"eventregistry/internal/domain"
)

const (
	DefaultAutosaveInterval = 5 * time.Minute
	DefaultBackupInterval   = 24 * time.Hour
	DefaultShutdownTimeout  = 10 * time.Second

	autosaveJobID = "autosave"
	backupJobID   = "backup"
)

// SynchronizerConfig wires a Synchronizer. Registry and Store are required;
// Users and Notifier are optional collaborators.
type SynchronizerConfig struct {
	Registry domain.EventRegistry
	Store    domain.EventStore
	Users    domain.UserDirectory
	Notifier domain.NotificationService
	Logger   *slog.Logger

	// AutosaveInterval and BackupInterval default when zero; a negative value disables the job.
	AutosaveInterval time.Duration
	BackupInterval   time.Duration
	ShutdownTimeout  time.Duration
	Workers          int
	Now              func() time.Time
}

// Synchronizer keeps the registry, its observers, the persisted files and the
// cached statistics consistent. Every mutating call returns only after both
// canonical files reflect the change.
type Synchronizer struct {
	registry domain.EventRegistry
	store    domain.EventStore
	users    domain.UserDirectory
	notifier domain.NotificationService
	logger   *slog.Logger
	nowFn    func() time.Time

	autosaveInterval time.Duration
	backupInterval   time.Duration
	shutdownTimeout  time.Duration
	scheduler        *Scheduler

	// mu guards the registry's compound operations, the global observers,
	// the statistics cache and the save/load timestamps.
	mu       sync.RWMutex
	globals  []domain.Observer
	stats    domain.Statistics
	lastSave time.Time
	lastLoad time.Time

	// saveMu orders file writes so files always hold the latest snapshot.
	saveMu sync.Mutex

	lifecycleMu sync.Mutex
	initialized bool
	shutdown    bool

	pending sync.WaitGroup
}

// NewSynchronizer returns a Synchronizer. Call Init before use and Shutdown at exit.
func NewSynchronizer(cfg SynchronizerConfig) (*Synchronizer, error) {
	if cfg.Registry == nil {
		return nil, fmt.Errorf("synchronizer: registry is required")
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("synchronizer: store is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	nowFn := cfg.Now
	if nowFn == nil {
		nowFn = time.Now
	}
	s := &Synchronizer{
		registry:         cfg.Registry,
		store:            cfg.Store,
		users:            cfg.Users,
		notifier:         cfg.Notifier,
		logger:           logger,
		nowFn:            nowFn,
		autosaveInterval: orDefault(cfg.AutosaveInterval, DefaultAutosaveInterval),
		backupInterval:   orDefault(cfg.BackupInterval, DefaultBackupInterval),
		shutdownTimeout:  orDefault(cfg.ShutdownTimeout, DefaultShutdownTimeout),
		scheduler:        NewScheduler(cfg.Workers, logger),
	}
	if s.autosaveInterval > 0 {
		if err := s.scheduler.Every(autosaveJobID, s.autosaveInterval, s.SaveNow); err != nil {
			return nil, err
		}
	}
	if s.backupInterval > 0 {
		if err := s.scheduler.Every(backupJobID, s.backupInterval, func(ctx context.Context) error {
			_, err := s.Backup(ctx)
			return err
		}); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func orDefault(d, def time.Duration) time.Duration {
	if d == 0 {
		return def
	}
	return d
}

// Init loads the registry from the store, attaches the global observers to
// every loaded event, computes statistics and starts the background jobs.
func (s *Synchronizer) Init(ctx context.Context) error {
	s.lifecycleMu.Lock()
	defer s.lifecycleMu.Unlock()
	if s.initialized {
		return fmt.Errorf("synchronizer already initialized")
	}

	if err := s.Load(ctx); err != nil {
		return err
	}
	s.scheduler.Start(context.WithoutCancel(ctx))
	s.initialized = true
	s.logger.Info("synchronizer started",
		"events", s.registry.Len(),
		"autosave_interval", s.autosaveInterval.String(),
		"backup_interval", s.backupInterval.String(),
	)
	return nil
}

// Load replaces the in-memory registry with the persisted one. On error the
// registry keeps its previous content.
func (s *Synchronizer) Load(ctx context.Context) error {
	events, err := s.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load registry: %w", err)
	}

	s.mu.Lock()
	previous := s.registry.All()
	if err := s.registry.Reset(events); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("load registry: %w", err)
	}
	for _, g := range s.globals {
		for _, e := range previous {
			e.RemoveObserver(g)
		}
		for _, e := range events {
			e.AddObserver(g)
		}
	}
	s.lastLoad = s.nowFn()
	s.mu.Unlock()

	s.refreshStats(ctx)
	return nil
}

// Shutdown saves one last time, then stops the background jobs, waiting at
// most the configured shutdown timeout before cancelling them.
func (s *Synchronizer) Shutdown(ctx context.Context) error {
	s.lifecycleMu.Lock()
	defer s.lifecycleMu.Unlock()
	if s.shutdown {
		return nil
	}
	s.shutdown = true

	saveErr := s.SaveNow(ctx)
	if saveErr != nil {
		s.logger.Error("final save failed", "error", saveErr)
	}

	stopCtx, cancel := context.WithTimeout(ctx, s.shutdownTimeout)
	defer cancel()
	if err := s.scheduler.Stop(stopCtx); err != nil {
		s.logger.Warn("background jobs cancelled", "error", err)
	}

	sent := make(chan struct{})
	go func() {
		s.pending.Wait()
		close(sent)
	}()
	select {
	case <-sent:
	case <-stopCtx.Done():
		s.logger.Warn("pending notifications not confirmed before shutdown")
	}

	s.logger.Info("synchronizer stopped")
	return saveErr
}

// AddGlobalObserver attaches o to every current and future event.
// Registering the same observer again is a no-op.
func (s *Synchronizer) AddGlobalObserver(o domain.Observer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if slices.Contains(s.globals, o) {
		return
	}
	s.globals = append(s.globals, o)
	for _, e := range s.registry.All() {
		e.AddObserver(o)
	}
}

// RemoveGlobalObserver detaches o from every event.
func (s *Synchronizer) RemoveGlobalObserver(o domain.Observer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := slices.Index(s.globals, o)
	if i < 0 {
		return
	}
	s.globals = slices.Delete(s.globals, i, i+1)
	for _, e := range s.registry.All() {
		e.RemoveObserver(o)
	}
}

// CreateEvent registers e, notifies the observers and the notification
// service, persists the registry and refreshes statistics. A duplicate id is
// reported to the global observers and returned as an *AlreadyExistsError.
func (s *Synchronizer) CreateEvent(ctx context.Context, e *domain.Event) error {
	if err := checkCapacity(e); err != nil {
		return s.fail("create", e, err)
	}

	s.mu.Lock()
	if _, exists := s.registry.Find(e.ID()); exists {
		s.mu.Unlock()
		return s.fail("create", e, &domain.AlreadyExistsError{ID: e.ID()})
	}
	for _, g := range s.globals {
		e.AddObserver(g)
	}
	if err := s.registry.Add(e); err != nil {
		for _, g := range s.globals {
			e.RemoveObserver(g)
		}
		s.mu.Unlock()
		return s.fail("create", e, err)
	}
	s.mu.Unlock()

	n := domain.NewEventNotification(domain.NotificationEventCreated, e)
	e.Publish(n)
	s.notifyExternal(ctx, n.Message())

	return s.commit(ctx, "create", e)
}

// UpdateEvent replaces the stored event having e's id.
func (s *Synchronizer) UpdateEvent(ctx context.Context, e *domain.Event) error {
	if err := checkCapacity(e); err != nil {
		return s.fail("update", e, err)
	}

	s.mu.Lock()
	old, ok := s.registry.Find(e.ID())
	if !ok {
		s.mu.Unlock()
		return s.fail("update", e, fmt.Errorf("event %q: %w", e.ID(), domain.ErrNotFound))
	}
	s.registry.Replace(e)
	for _, g := range s.globals {
		if old != e {
			old.RemoveObserver(g)
		}
		if !e.HasObserver(g) {
			e.AddObserver(g)
		}
	}
	s.mu.Unlock()

	e.Publish(domain.NewEventNotification(domain.NotificationEventUpdated, e))
	return s.commit(ctx, "update", e)
}

// DeleteEvent removes the event, then runs its cancellation hook and tells the
// global observers once the synchronizer lock is released.
func (s *Synchronizer) DeleteEvent(ctx context.Context, id string) error {
	s.mu.Lock()
	e, ok := s.registry.Take(id)
	if !ok {
		s.mu.Unlock()
		return s.failID("delete", id, fmt.Errorf("event %q: %w", id, domain.ErrNotFound))
	}
	for _, g := range s.globals {
		e.RemoveObserver(g)
	}
	globals := slices.Clone(s.globals)
	s.mu.Unlock()

	e.Cancel()

	n := domain.NewEventNotification(domain.NotificationEventDeleted, e)
	for _, g := range globals {
		g.Notify(n)
	}
	return s.commit(ctx, "delete", e)
}

// checkCapacity rejects negative capacities and events already holding more
// participants than their capacity.
func checkCapacity(e *domain.Event) error {
	if c := e.Capacity(); c < 0 || e.ParticipantCount() > c {
		return fmt.Errorf("event %q: capacity %d: %w", e.ID(), c, domain.ErrInvalidCapacity)
	}
	return nil
}

// AddParticipant registers p for the event and persists the change. A full
// event yields a *CapacityExceededError and nothing is saved.
func (s *Synchronizer) AddParticipant(ctx context.Context, eventID string, p *domain.Participant) error {
	e, ok := s.Find(eventID)
	if !ok {
		return fmt.Errorf("event %q: %w", eventID, domain.ErrNotFound)
	}
	if err := e.AddParticipant(p); err != nil {
		return err
	}
	return s.commit(ctx, "add participant", e)
}

// RemoveParticipant unregisters p from the event and persists the change.
func (s *Synchronizer) RemoveParticipant(ctx context.Context, eventID string, p *domain.Participant) error {
	e, ok := s.Find(eventID)
	if !ok {
		return fmt.Errorf("event %q: %w", eventID, domain.ErrNotFound)
	}
	e.RemoveParticipant(p)
	return s.commit(ctx, "remove participant", e)
}

// SetCapacity changes an event's capacity, refusing values below its current
// participant count.
func (s *Synchronizer) SetCapacity(ctx context.Context, eventID string, capacity int) error {
	s.mu.Lock()
	e, ok := s.registry.Find(eventID)
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("event %q: %w", eventID, domain.ErrNotFound)
	}
	if capacity < 0 || capacity < e.ParticipantCount() {
		s.mu.Unlock()
		return fmt.Errorf("event %q: capacity %d: %w", eventID, capacity, domain.ErrInvalidCapacity)
	}
	e.SetCapacity(capacity)
	s.mu.Unlock()

	e.Publish(domain.NewEventNotification(domain.NotificationEventUpdated, e))
	return s.commit(ctx, "set capacity", e)
}

func (s *Synchronizer) Find(id string) (*domain.Event, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.registry.Find(id)
}

func (s *Synchronizer) FindByVenue(query string) []*domain.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.registry.FindByVenue(query)
}

func (s *Synchronizer) Upcoming() []*domain.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.registry.Upcoming()
}

func (s *Synchronizer) Events() []*domain.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.registry.All()
}

// Stats returns the statistics computed after the latest mutation.
func (s *Synchronizer) Stats() domain.Statistics {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats
}

func (s *Synchronizer) LastSave() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastSave
}

func (s *Synchronizer) LastLoad() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastLoad
}

// SaveNow writes the current registry to both canonical files.
func (s *Synchronizer) SaveNow(ctx context.Context) error {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()
	return s.saveLocked(ctx)
}

func (s *Synchronizer) saveLocked(ctx context.Context) error {
	events := s.Events()
	if err := s.store.Save(ctx, events); err != nil {
		return fmt.Errorf("save registry: %w", err)
	}
	s.mu.Lock()
	s.lastSave = s.nowFn()
	s.mu.Unlock()
	return nil
}

// Backup writes timestamped copies of the registry and, when a user directory
// is configured, of the users. It returns the written paths.
func (s *Synchronizer) Backup(ctx context.Context) ([]string, error) {
	stamp := s.nowFn().Format(domain.BackupTimeLayout)
	paths, err := s.store.Backup(ctx, stamp, s.Events())
	if err != nil {
		return paths, fmt.Errorf("backup registry: %w", err)
	}
	if s.users == nil {
		return paths, nil
	}
	users, err := s.users.ListUsers(ctx)
	if err != nil {
		return paths, fmt.Errorf("backup users: %w", err)
	}
	path, err := s.store.BackupUsers(ctx, stamp, users)
	if err != nil {
		return paths, fmt.Errorf("backup users: %w", err)
	}
	return append(paths, path), nil
}

// commit persists the registry and refreshes statistics after a mutation.
// Holding saveMu across both keeps files and statistics in snapshot order.
func (s *Synchronizer) commit(ctx context.Context, op string, e *domain.Event) error {
	s.saveMu.Lock()
	saveErr := s.saveLocked(ctx)
	s.refreshStats(ctx)
	s.saveMu.Unlock()
	if saveErr != nil {
		return s.fail(op, e, saveErr)
	}
	s.logger.Debug("registry synchronized", "op", op, "event_id", e.ID())
	return nil
}

func (s *Synchronizer) refreshStats(ctx context.Context) {
	st := domain.ComputeEventStatistics(s.Events(), s.nowFn())
	if s.users != nil {
		if n, err := s.users.CountUsers(ctx); err != nil {
			s.logger.Warn("count users failed", "error", err)
		} else {
			st.TotalUsers = n
		}
		if n, err := s.users.CountActiveSessions(ctx); err != nil {
			s.logger.Warn("count sessions failed", "error", err)
		} else {
			st.ActiveSessions = n
		}
	}
	s.mu.Lock()
	s.stats = st
	s.mu.Unlock()
}

func (s *Synchronizer) notifyExternal(ctx context.Context, message string) {
	if s.notifier == nil {
		return
	}
	done := s.notifier.SendAsync(context.WithoutCancel(ctx), message)
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		if err := <-done; err != nil {
			s.logger.Warn("notification not delivered", "message", message, "error", err)
		}
	}()
}

// fail logs err, reports it to the global observers and returns it. The caller
// must not hold s.mu.
func (s *Synchronizer) fail(op string, e *domain.Event, err error) error {
	n := domain.NewEventNotification(domain.NotificationSyncFailed, e)
	return s.report(op, n, err)
}

func (s *Synchronizer) failID(op, id string, err error) error {
	return s.report(op, domain.Notification{Kind: domain.NotificationSyncFailed, EventID: id}, err)
}

func (s *Synchronizer) report(op string, n domain.Notification, err error) error {
	level := slog.LevelError
	if errors.Is(err, domain.ErrAlreadyExists) || errors.Is(err, domain.ErrNotFound) {
		level = slog.LevelWarn
	}
	s.logger.Log(context.Background(), level, "synchronizer operation failed", "op", op, "event_id", n.EventID, "error", err)

	n.Detail = op + " failed"
	n.Err = err
	n.OccurredAt = s.nowFn()

	s.mu.RLock()
	globals := slices.Clone(s.globals)
	s.mu.RUnlock()
	for _, g := range globals {
		g.Notify(n)
	}
	return err
}
