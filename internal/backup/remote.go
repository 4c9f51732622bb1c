package backup

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// BackupFileName is the single backup object kept on every remote.
const BackupFileName = "lua-backup.json"

// Remote stores one opaque backup payload. IDs are remote specific; token
// is whatever the session's TokenSource issued and may be empty.
type Remote interface {
	Name() string
	Find(ctx context.Context, token string) (string, bool, error)
	Read(ctx context.Context, token string, id string) ([]byte, error)
	Create(ctx context.Context, token string, payload []byte) (string, error)
	Update(ctx context.Context, token string, id string, payload []byte) error
}

// RemoteError is a non-success response from a remote API.
type RemoteError struct {
	Remote string
	Status int
}

func (err *RemoteError) Error() string {
	return fmt.Sprintf("%s API error: %d", err.Remote, err.Status)
}

func remoteStatus(err error) int {
	var remoteErr *RemoteError
	if errors.As(err, &remoteErr) {
		return remoteErr.Status
	}
	return 0
}

func isUnauthorized(err error) bool {
	return remoteStatus(err) == http.StatusUnauthorized
}

func isNotFound(err error) bool {
	return remoteStatus(err) == http.StatusNotFound
}

var (
	_ Remote = (*DriveRemote)(nil)
	_ Remote = (*AzureRemote)(nil)
)
