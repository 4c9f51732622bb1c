package backup

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/terraincognita07/lua/internal/services"
	"go.uber.org/zap"
)

const (
	DefaultDebounce     = 2 * time.Second
	WeeklyBackupPeriod  = 7 * 24 * time.Hour
	scheduledRunTimeout = time.Minute

	SyncTimestampLayout = services.ExportTimestampLayout
)

type State string

const (
	StateIdle    State = "idle"
	StateSyncing State = "syncing"
	StateSuccess State = "success"
	StateError   State = "error"
)

var (
	ErrSyncInProgress  = errors.New("a sync is already running")
	ErrBackupCorrupted = errors.New("backup file is corrupted")
	ErrBackupFormat    = errors.New("invalid backup format")
	ErrSessionClosed   = errors.New("sync session is closed")
)

// Store is the local side of a sync: the period store plus the
// lastSyncedAt marker.
type Store interface {
	ExportJSON() ([]byte, error)
	Restore(document services.ExportDocument, syncedAt string) error
	LastSyncedAt() (string, bool, error)
	MarkSynced(at string) error
}

type Status struct {
	SessionID    string `json:"sessionId"`
	Provider     string `json:"provider"`
	State        State  `json:"state"`
	Connected    bool   `json:"connected"`
	LastSyncedAt string `json:"lastSyncedAt,omitempty"`
	Error        string `json:"error,omitempty"`
}

type SessionConfig struct {
	Debounce time.Duration
	Sealer   *Sealer
	Now      func() time.Time
	Logger   *zap.Logger
}

// Session is one last-write-wins backup link between the local store and a
// remote. All sync state lives here: the cached remote file ID, the pending
// debounce timer and the single-flight upload guard.
type Session struct {
	id       string
	remote   Remote
	tokens   TokenSource
	store    Store
	sealer   *Sealer
	debounce time.Duration
	now      func() time.Time
	logger   *zap.Logger

	mu           sync.Mutex
	connected    bool
	fileID       string
	uploading    bool
	rerun        bool
	timer        *time.Timer
	closed       bool
	state        State
	lastError    string
	lastSyncedAt string
	inflight     sync.WaitGroup
}

func NewSession(remote Remote, tokens TokenSource, store Store, config SessionConfig) *Session {
	if tokens == nil {
		tokens = StaticTokenSource{}
	}
	if config.Debounce <= 0 {
		config.Debounce = DefaultDebounce
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}

	session := &Session{
		id:        uuid.NewString(),
		remote:    remote,
		tokens:    tokens,
		store:     store,
		sealer:    config.Sealer,
		debounce:  config.Debounce,
		now:       config.Now,
		state:     StateIdle,
		connected: tokens.Connected(),
	}
	session.logger = config.Logger.With(zap.String("session_id", session.id), zap.String("remote", remote.Name()))

	if synced, ok, err := store.LastSyncedAt(); err == nil && ok {
		session.lastSyncedAt = synced
	}
	return session
}

func (session *Session) Status() Status {
	session.mu.Lock()
	defer session.mu.Unlock()
	return Status{
		SessionID:    session.id,
		Provider:     session.remote.Name(),
		State:        session.state,
		Connected:    session.connected,
		LastSyncedAt: session.lastSyncedAt,
		Error:        session.lastError,
	}
}

// ScheduleUpload debounces an upload after a local mutation. Each call
// restarts the delay.
func (session *Session) ScheduleUpload() {
	session.mu.Lock()
	defer session.mu.Unlock()
	if !session.connected || session.closed {
		return
	}
	if session.timer != nil {
		session.timer.Stop()
	}
	session.timer = time.AfterFunc(session.debounce, session.runScheduled)
}

func (session *Session) runScheduled() {
	ctx, cancel := context.WithTimeout(context.Background(), scheduledRunTimeout)
	defer cancel()
	if err := session.upload(ctx); err != nil && !errors.Is(err, ErrSyncInProgress) {
		session.logger.Warn("scheduled backup failed", zap.Error(err))
	}
}

// SyncNow cancels any pending debounce and uploads immediately.
func (session *Session) SyncNow(ctx context.Context) error {
	session.mu.Lock()
	if session.timer != nil {
		session.timer.Stop()
		session.timer = nil
	}
	session.mu.Unlock()
	return session.upload(ctx)
}

// upload pushes the local store. A call that arrives while another upload
// runs does not start a second one; it asks the running one to reschedule.
func (session *Session) upload(ctx context.Context) error {
	session.mu.Lock()
	if session.closed {
		session.mu.Unlock()
		return ErrSessionClosed
	}
	if !session.connected {
		session.mu.Unlock()
		return nil
	}
	if session.uploading {
		session.rerun = true
		session.mu.Unlock()
		return ErrSyncInProgress
	}
	session.uploading = true
	session.state = StateSyncing
	session.lastError = ""
	session.inflight.Add(1)
	session.mu.Unlock()

	err := session.withToken(ctx, session.pushOnce)

	session.mu.Lock()
	session.uploading = false
	rerun := session.rerun
	session.rerun = false
	session.mu.Unlock()
	session.inflight.Done()

	if rerun {
		session.ScheduleUpload()
	}
	return err
}

func (session *Session) pushOnce(ctx context.Context, token string) error {
	payload, err := session.store.ExportJSON()
	if err != nil {
		return fmt.Errorf("export local data: %w", err)
	}
	if payload, err = session.sealer.Seal(payload); err != nil {
		return err
	}

	fileID := session.cachedFileID()
	if fileID == "" {
		found, ok, err := session.remote.Find(ctx, token)
		if err != nil {
			return err
		}
		if ok {
			fileID = found
		}
	}

	if fileID != "" {
		if err := session.remote.Update(ctx, token, fileID, payload); err != nil {
			return err
		}
	} else {
		created, err := session.remote.Create(ctx, token, payload)
		if err != nil {
			return err
		}
		fileID = created
	}

	syncedAt := session.now().UTC().Format(SyncTimestampLayout)
	if err := session.store.MarkSynced(syncedAt); err != nil {
		return err
	}

	session.mu.Lock()
	session.fileID = fileID
	session.lastSyncedAt = syncedAt
	session.state = StateSuccess
	session.mu.Unlock()
	session.logger.Info("backup uploaded", zap.Int("bytes", len(payload)))
	return nil
}

// DownloadOnStart restores the remote backup when it is newer than the last
// local sync. The local store is only touched after the backup validates.
func (session *Session) DownloadOnStart(ctx context.Context) error {
	session.mu.Lock()
	if !session.connected || session.closed {
		session.mu.Unlock()
		return nil
	}
	session.state = StateSyncing
	session.lastError = ""
	session.inflight.Add(1)
	session.mu.Unlock()
	defer session.inflight.Done()

	return session.withToken(ctx, session.pullOnce)
}

func (session *Session) pullOnce(ctx context.Context, token string) error {
	fileID, found, err := session.remote.Find(ctx, token)
	if err != nil {
		return err
	}
	if !found {
		session.setState(StateIdle, "")
		return nil
	}
	session.mu.Lock()
	session.fileID = fileID
	session.mu.Unlock()

	blob, err := session.remote.Read(ctx, token, fileID)
	if err != nil {
		return err
	}
	payload, err := session.sealer.Open(blob)
	if err != nil {
		return err
	}

	document, err := services.ParseBackupDocument(payload)
	switch {
	case errors.Is(err, services.ErrImportInvalidJSON):
		return ErrBackupCorrupted
	case err != nil:
		return fmt.Errorf("%w: %v", ErrBackupFormat, err)
	}

	remoteAt, ok := document.ExportedAtTime()
	if !ok {
		session.setState(StateIdle, "")
		return nil
	}

	localAt, hasLocal, err := session.store.LastSyncedAt()
	if err != nil {
		return err
	}
	localTime, localErr := time.Parse(time.RFC3339Nano, localAt)
	if hasLocal && localErr == nil && !remoteAt.After(localTime) {
		session.mu.Lock()
		session.lastSyncedAt = localAt
		session.state = StateSuccess
		session.mu.Unlock()
		return nil
	}

	syncedAt := session.now().UTC().Format(SyncTimestampLayout)
	if err := session.store.Restore(document, syncedAt); err != nil {
		return err
	}
	session.mu.Lock()
	session.lastSyncedAt = syncedAt
	session.state = StateSuccess
	session.mu.Unlock()
	session.logger.Info("backup restored", zap.Int("periods", len(document.Periods)), zap.String("exported_at", document.ExportedAt))
	return nil
}

// WeeklyBackupIfNeeded uploads when nothing was ever synced or the last
// sync is a week old.
func (session *Session) WeeklyBackupIfNeeded(ctx context.Context) error {
	session.mu.Lock()
	connected := session.connected
	session.mu.Unlock()
	if !connected {
		return nil
	}

	last, ok, err := session.store.LastSyncedAt()
	if err != nil {
		return err
	}
	if ok {
		lastTime, err := time.Parse(time.RFC3339Nano, last)
		if err == nil && session.now().Sub(lastTime) < WeeklyBackupPeriod {
			return nil
		}
	}
	return session.upload(ctx)
}

// Connect stores a fresh credential, then pulls a newer remote backup and
// runs the weekly check.
func (session *Session) Connect(ctx context.Context, credential Credential) error {
	if err := session.tokens.Connect(credential); err != nil {
		return err
	}
	session.mu.Lock()
	session.connected = true
	session.fileID = ""
	session.mu.Unlock()

	if err := session.DownloadOnStart(ctx); err != nil {
		return err
	}
	return session.WeeklyBackupIfNeeded(ctx)
}

func (session *Session) Disconnect() error {
	session.mu.Lock()
	if session.timer != nil {
		session.timer.Stop()
		session.timer = nil
	}
	session.connected = false
	session.fileID = ""
	session.state = StateIdle
	session.lastError = ""
	session.mu.Unlock()
	return session.tokens.Disconnect()
}

// Close stops the debounce timer and waits for running transfers.
func (session *Session) Close() {
	session.mu.Lock()
	session.closed = true
	if session.timer != nil {
		session.timer.Stop()
		session.timer = nil
	}
	session.mu.Unlock()
	session.inflight.Wait()
}

// withToken runs op with a token. A 401 earns one silent refresh and retry;
// a second 401 or a failed refresh drops the connection. A 404 clears the
// cached file ID for the next attempt.
func (session *Session) withToken(ctx context.Context, op func(context.Context, string) error) error {
	token, err := session.tokens.Token(ctx)
	if err != nil {
		session.mu.Lock()
		session.connected = false
		session.state = StateIdle
		session.mu.Unlock()
		session.logger.Warn("backup token unavailable", zap.Error(err))
		return nil
	}

	err = op(ctx, token)
	if isUnauthorized(err) {
		if refreshed, refreshErr := session.tokens.Refresh(ctx); refreshErr == nil {
			err = op(ctx, refreshed)
		}
		if isUnauthorized(err) {
			session.mu.Lock()
			session.connected = false
			session.fileID = ""
			session.mu.Unlock()
		}
	}
	if isNotFound(err) {
		session.mu.Lock()
		session.fileID = ""
		session.mu.Unlock()
	}

	if err != nil {
		session.setState(StateError, err.Error())
		return err
	}
	return nil
}

func (session *Session) cachedFileID() string {
	session.mu.Lock()
	defer session.mu.Unlock()
	return session.fileID
}

func (session *Session) setState(state State, message string) {
	session.mu.Lock()
	defer session.mu.Unlock()
	session.state = state
	session.lastError = message
}

var _ Store = (*services.PeriodService)(nil)
