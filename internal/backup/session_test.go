package backup

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/terraincognita07/lua/internal/services"
)

var sessionNow = time.Date(2023, time.March, 10, 9, 30, 0, 0, time.UTC)

const sessionNowStamp = "2023-03-10T09:30:00.000Z"

type memoryStore struct {
	mu         sync.Mutex
	payload    []byte
	exportErr  error
	lastSynced string
	restored   *services.ExportDocument
	restoredAt string
}

func newMemoryStore(lastSynced string) *memoryStore {
	return &memoryStore{
		payload:    []byte(`{"version":1,"exportedAt":"2023-03-10T09:30:00.000Z","periods":[{"startDate":"2023-01-01","endDate":"2023-01-04"}]}`),
		lastSynced: lastSynced,
	}
}

func (store *memoryStore) ExportJSON() ([]byte, error) {
	store.mu.Lock()
	defer store.mu.Unlock()
	return store.payload, store.exportErr
}

func (store *memoryStore) Restore(document services.ExportDocument, syncedAt string) error {
	store.mu.Lock()
	defer store.mu.Unlock()
	store.restored = &document
	store.restoredAt = syncedAt
	store.lastSynced = syncedAt
	return nil
}

func (store *memoryStore) LastSyncedAt() (string, bool, error) {
	store.mu.Lock()
	defer store.mu.Unlock()
	return store.lastSynced, store.lastSynced != "", nil
}

func (store *memoryStore) MarkSynced(at string) error {
	store.mu.Lock()
	defer store.mu.Unlock()
	store.lastSynced = at
	return nil
}

// scriptedRemote keeps files in memory. Each queued failure is returned by
// the next call, in order, instead of doing the work.
type scriptedRemote struct {
	mu       sync.Mutex
	files    map[string][]byte
	nextID   int
	failures []error
	calls    []string
	tokens   []string
	entered  chan struct{}
	release  chan struct{}
}

func newScriptedRemote() *scriptedRemote {
	return &scriptedRemote{files: map[string][]byte{}}
}

func (remote *scriptedRemote) Name() string { return "memory" }

func (remote *scriptedRemote) begin(call string, token string) error {
	remote.mu.Lock()
	remote.calls = append(remote.calls, call)
	remote.tokens = append(remote.tokens, token)
	var failure error
	if len(remote.failures) > 0 {
		failure = remote.failures[0]
		remote.failures = remote.failures[1:]
	}
	entered, release := remote.entered, remote.release
	remote.mu.Unlock()

	if entered != nil && (call == "create" || call == "update") {
		entered <- struct{}{}
		<-release
	}
	return failure
}

func (remote *scriptedRemote) Find(_ context.Context, token string) (string, bool, error) {
	if err := remote.begin("find", token); err != nil {
		return "", false, err
	}
	remote.mu.Lock()
	defer remote.mu.Unlock()
	for id := range remote.files {
		return id, true, nil
	}
	return "", false, nil
}

func (remote *scriptedRemote) Read(_ context.Context, token string, id string) ([]byte, error) {
	if err := remote.begin("read", token); err != nil {
		return nil, err
	}
	remote.mu.Lock()
	defer remote.mu.Unlock()
	content, ok := remote.files[id]
	if !ok {
		return nil, &RemoteError{Remote: "memory", Status: http.StatusNotFound}
	}
	return content, nil
}

func (remote *scriptedRemote) Create(_ context.Context, token string, payload []byte) (string, error) {
	if err := remote.begin("create", token); err != nil {
		return "", err
	}
	remote.mu.Lock()
	defer remote.mu.Unlock()
	remote.nextID++
	id := fmt.Sprintf("file-%d", remote.nextID)
	remote.files[id] = append([]byte(nil), payload...)
	return id, nil
}

func (remote *scriptedRemote) Update(_ context.Context, token string, id string, payload []byte) error {
	if err := remote.begin("update", token); err != nil {
		return err
	}
	remote.mu.Lock()
	defer remote.mu.Unlock()
	if _, ok := remote.files[id]; !ok {
		return &RemoteError{Remote: "memory", Status: http.StatusNotFound}
	}
	remote.files[id] = append([]byte(nil), payload...)
	return nil
}

func (remote *scriptedRemote) callLog() []string {
	remote.mu.Lock()
	defer remote.mu.Unlock()
	return append([]string(nil), remote.calls...)
}

func (remote *scriptedRemote) uploads() int {
	count := 0
	for _, call := range remote.callLog() {
		if call == "create" || call == "update" {
			count++
		}
	}
	return count
}

type scriptedTokens struct {
	mu          sync.Mutex
	connected   bool
	token       string
	refreshed   string
	tokenErr    error
	refreshErr  error
	refreshes   int
	disconnects int
	credential  Credential
}

func (tokens *scriptedTokens) Connected() bool {
	tokens.mu.Lock()
	defer tokens.mu.Unlock()
	return tokens.connected
}

func (tokens *scriptedTokens) Token(context.Context) (string, error) {
	tokens.mu.Lock()
	defer tokens.mu.Unlock()
	return tokens.token, tokens.tokenErr
}

func (tokens *scriptedTokens) Refresh(context.Context) (string, error) {
	tokens.mu.Lock()
	defer tokens.mu.Unlock()
	tokens.refreshes++
	if tokens.refreshErr != nil {
		return "", tokens.refreshErr
	}
	tokens.token = tokens.refreshed
	return tokens.refreshed, nil
}

func (tokens *scriptedTokens) Connect(credential Credential) error {
	tokens.mu.Lock()
	defer tokens.mu.Unlock()
	tokens.connected = true
	tokens.credential = credential
	tokens.token = credential.AccessToken
	return nil
}

func (tokens *scriptedTokens) Disconnect() error {
	tokens.mu.Lock()
	defer tokens.mu.Unlock()
	tokens.connected = false
	tokens.disconnects++
	return nil
}

func unauthorized() error { return &RemoteError{Remote: "memory", Status: http.StatusUnauthorized} }
func notFound() error     { return &RemoteError{Remote: "memory", Status: http.StatusNotFound} }

func newTestSession(t *testing.T, remote Remote, tokens TokenSource, store Store, sealer *Sealer) *Session {
	t.Helper()
	session := NewSession(remote, tokens, store, SessionConfig{
		Debounce: 20 * time.Millisecond,
		Sealer:   sealer,
		Now:      func() time.Time { return sessionNow },
	})
	t.Cleanup(session.Close)
	return session
}

func TestSessionSyncNowCreatesThenUpdates(t *testing.T) {
	remote := newScriptedRemote()
	tokens := &scriptedTokens{connected: true, token: "access"}
	store := newMemoryStore("")
	session := newTestSession(t, remote, tokens, store, nil)

	require.NoError(t, session.SyncNow(context.Background()))
	require.NoError(t, session.SyncNow(context.Background()))

	assert.Equal(t, []string{"find", "create", "update"}, remote.callLog())
	assert.Equal(t, store.payload, remote.files["file-1"])
	assert.Equal(t, sessionNowStamp, store.lastSynced)

	status := session.Status()
	assert.Equal(t, StateSuccess, status.State)
	assert.True(t, status.Connected)
	assert.Equal(t, "memory", status.Provider)
	assert.Equal(t, sessionNowStamp, status.LastSyncedAt)
	assert.NotEmpty(t, status.SessionID)
}

func TestSessionRefreshesOnceOnUnauthorized(t *testing.T) {
	remote := newScriptedRemote()
	remote.failures = []error{unauthorized()}
	tokens := &scriptedTokens{connected: true, token: "stale", refreshed: "fresh"}
	session := newTestSession(t, remote, tokens, newMemoryStore(""), nil)

	require.NoError(t, session.SyncNow(context.Background()))

	assert.Equal(t, 1, tokens.refreshes)
	assert.Equal(t, []string{"find", "find", "create"}, remote.callLog())
	assert.Equal(t, []string{"stale", "fresh", "fresh"}, remote.tokens)
	assert.True(t, session.Status().Connected)
}

func TestSessionDisconnectsAfterRepeatedUnauthorized(t *testing.T) {
	cases := []struct {
		name       string
		failures   []error
		refreshErr error
	}{
		{name: "second unauthorized", failures: []error{unauthorized(), unauthorized()}},
		{name: "refresh fails", failures: []error{unauthorized()}, refreshErr: ErrRefreshUnavailable},
	}

	for _, testCase := range cases {
		t.Run(testCase.name, func(t *testing.T) {
			remote := newScriptedRemote()
			remote.failures = testCase.failures
			tokens := &scriptedTokens{connected: true, token: "stale", refreshed: "fresh", refreshErr: testCase.refreshErr}
			store := newMemoryStore("")
			session := newTestSession(t, remote, tokens, store, nil)

			err := session.SyncNow(context.Background())
			require.Error(t, err)
			assert.True(t, isUnauthorized(err))

			status := session.Status()
			assert.False(t, status.Connected)
			assert.Equal(t, StateError, status.State)
			assert.NotEmpty(t, status.Error)
			assert.Empty(t, store.lastSynced)

			calls := len(remote.callLog())
			require.NoError(t, session.SyncNow(context.Background()))
			assert.Len(t, remote.callLog(), calls)
		})
	}
}

func TestSessionNotFoundClearsCachedFile(t *testing.T) {
	remote := newScriptedRemote()
	tokens := &scriptedTokens{connected: true, token: "access"}
	session := newTestSession(t, remote, tokens, newMemoryStore(""), nil)

	require.NoError(t, session.SyncNow(context.Background()))
	remote.mu.Lock()
	remote.failures = []error{notFound()}
	remote.mu.Unlock()

	err := session.SyncNow(context.Background())
	require.Error(t, err)
	assert.Equal(t, StateError, session.Status().State)
	assert.True(t, session.Status().Connected)

	require.NoError(t, session.SyncNow(context.Background()))
	assert.Equal(t, []string{"find", "create", "update", "find", "update"}, remote.callLog())
}

func TestSessionTokenFailureDisconnectsSilently(t *testing.T) {
	remote := newScriptedRemote()
	tokens := &scriptedTokens{connected: true, tokenErr: ErrNotConnected}
	session := newTestSession(t, remote, tokens, newMemoryStore(""), nil)

	require.NoError(t, session.SyncNow(context.Background()))
	assert.Empty(t, remote.callLog())
	assert.False(t, session.Status().Connected)
	assert.Equal(t, StateIdle, session.Status().State)
}

func TestSessionScheduleUploadDebounces(t *testing.T) {
	remote := newScriptedRemote()
	tokens := &scriptedTokens{connected: true, token: "access"}
	session := newTestSession(t, remote, tokens, newMemoryStore(""), nil)

	for range 5 {
		session.ScheduleUpload()
	}

	require.Eventually(t, func() bool { return remote.uploads() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, 1, remote.uploads())
}

func TestSessionUploadIsSingleFlight(t *testing.T) {
	remote := newScriptedRemote()
	remote.entered = make(chan struct{})
	remote.release = make(chan struct{})
	tokens := &scriptedTokens{connected: true, token: "access"}
	session := newTestSession(t, remote, tokens, newMemoryStore(""), nil)

	done := make(chan error, 1)
	go func() { done <- session.SyncNow(context.Background()) }()
	<-remote.entered

	assert.ErrorIs(t, session.SyncNow(context.Background()), ErrSyncInProgress)

	// let the rescheduled upload through without blocking
	remote.mu.Lock()
	remote.entered = nil
	remote.mu.Unlock()
	close(remote.release)
	require.NoError(t, <-done)

	require.Eventually(t, func() bool { return remote.uploads() == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"find", "create", "update"}, remote.callLog())
}

func backupDocument(exportedAt string) []byte {
	return []byte(`{"version":1,"exportedAt":"` + exportedAt + `","periods":[{"startDate":"2022-12-01","endDate":"2022-12-05"},{"startDate":"2022-12-29","endDate":null}]}`)
}

func TestSessionDownloadOnStart(t *testing.T) {
	cases := []struct {
		name        string
		localSynced string
		remoteFile  []byte
		wantRestore bool
		wantErr     error
	}{
		{name: "remote newer", localSynced: "2023-03-09T00:00:00.000Z", remoteFile: backupDocument("2023-03-10T08:00:00.000Z"), wantRestore: true},
		{name: "never synced", localSynced: "", remoteFile: backupDocument("2023-03-10T08:00:00.000Z"), wantRestore: true},
		{name: "local newer", localSynced: "2023-03-10T09:00:00.000Z", remoteFile: backupDocument("2023-03-10T08:00:00.000Z")},
		{name: "same instant", localSynced: "2023-03-10T08:00:00.000Z", remoteFile: backupDocument("2023-03-10T08:00:00.000Z")},
		{name: "no remote file"},
		{name: "corrupted", remoteFile: []byte("{not json"), wantErr: ErrBackupCorrupted},
		{name: "invalid records", remoteFile: []byte(`{"exportedAt":"2023-03-10T08:00:00.000Z","periods":[{"startDate":"2023-02-30"}]}`), wantErr: ErrBackupFormat},
		{name: "empty backup restores", remoteFile: []byte(`{"version":1,"exportedAt":"2023-03-10T08:00:00.000Z","periods":[]}`), wantRestore: true},
	}

	for _, testCase := range cases {
		t.Run(testCase.name, func(t *testing.T) {
			remote := newScriptedRemote()
			if testCase.remoteFile != nil {
				remote.files["file-7"] = testCase.remoteFile
			}
			store := newMemoryStore(testCase.localSynced)
			session := newTestSession(t, remote, &scriptedTokens{connected: true, token: "access"}, store, nil)

			err := session.DownloadOnStart(context.Background())
			if testCase.wantErr != nil {
				assert.ErrorIs(t, err, testCase.wantErr)
				assert.Nil(t, store.restored)
				assert.Equal(t, StateError, session.Status().State)
				return
			}
			require.NoError(t, err)

			if !testCase.wantRestore {
				assert.Nil(t, store.restored)
				return
			}
			require.NotNil(t, store.restored)
			assert.Equal(t, sessionNowStamp, store.restoredAt)
			assert.Equal(t, sessionNowStamp, session.Status().LastSyncedAt)
			assert.Equal(t, StateSuccess, session.Status().State)
		})
	}
}

func TestSessionDownloadOnStartOpensSealedBackup(t *testing.T) {
	sealer := NewSealer("correct horse")
	sealed, err := sealer.Seal(backupDocument("2023-03-10T08:00:00.000Z"))
	require.NoError(t, err)

	remote := newScriptedRemote()
	remote.files["file-1"] = sealed

	store := newMemoryStore("")
	session := newTestSession(t, remote, &scriptedTokens{connected: true, token: "access"}, store, sealer)
	require.NoError(t, session.DownloadOnStart(context.Background()))
	require.NotNil(t, store.restored)
	assert.Len(t, store.restored.Periods, 2)

	plainStore := newMemoryStore("")
	plain := newTestSession(t, remote, &scriptedTokens{connected: true, token: "access"}, plainStore, nil)
	assert.ErrorIs(t, plain.DownloadOnStart(context.Background()), ErrSealedBackup)
	assert.Nil(t, plainStore.restored)
}

func TestSessionWeeklyBackupIfNeeded(t *testing.T) {
	cases := []struct {
		name        string
		lastSynced  string
		connected   bool
		wantUploads int
	}{
		{name: "never synced", lastSynced: "", connected: true, wantUploads: 1},
		{name: "synced this week", lastSynced: "2023-03-07T09:30:00.000Z", connected: true, wantUploads: 0},
		{name: "synced a week ago", lastSynced: "2023-03-03T09:30:00.000Z", connected: true, wantUploads: 1},
		{name: "unreadable marker", lastSynced: "yesterday", connected: true, wantUploads: 1},
		{name: "disconnected", lastSynced: "", connected: false, wantUploads: 0},
	}

	for _, testCase := range cases {
		t.Run(testCase.name, func(t *testing.T) {
			remote := newScriptedRemote()
			session := newTestSession(t, remote, &scriptedTokens{connected: testCase.connected, token: "access"}, newMemoryStore(testCase.lastSynced), nil)

			require.NoError(t, session.WeeklyBackupIfNeeded(context.Background()))
			assert.Equal(t, testCase.wantUploads, remote.uploads())
		})
	}
}

func TestSessionConnectAndDisconnect(t *testing.T) {
	remote := newScriptedRemote()
	tokens := &scriptedTokens{}
	store := newMemoryStore("")
	session := newTestSession(t, remote, tokens, store, nil)
	assert.False(t, session.Status().Connected)

	session.ScheduleUpload()
	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, remote.callLog())

	credential := CredentialFromGrant("access", "refresh", 3600, sessionNow)
	require.NoError(t, session.Connect(context.Background(), credential))
	assert.True(t, session.Status().Connected)
	assert.Equal(t, "access", tokens.credential.AccessToken)
	assert.Equal(t, []string{"find", "find", "create"}, remote.callLog())

	session.ScheduleUpload()
	require.NoError(t, session.Disconnect())
	time.Sleep(50 * time.Millisecond)

	assert.Equal(t, 1, tokens.disconnects)
	assert.False(t, session.Status().Connected)
	assert.Equal(t, StateIdle, session.Status().State)
	assert.Equal(t, 1, remote.uploads())
}

func TestSessionClosedRejectsUploads(t *testing.T) {
	session := NewSession(newScriptedRemote(), &scriptedTokens{connected: true, token: "access"}, newMemoryStore(""), SessionConfig{})
	session.Close()
	assert.True(t, errors.Is(session.SyncNow(context.Background()), ErrSessionClosed))
}

func TestSessionExportFailure(t *testing.T) {
	remote := newScriptedRemote()
	store := newMemoryStore("")
	store.exportErr = errors.New("locked")
	session := newTestSession(t, remote, &scriptedTokens{connected: true, token: "access"}, store, nil)

	err := session.SyncNow(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "export local data")
	assert.Empty(t, remote.callLog())
}
