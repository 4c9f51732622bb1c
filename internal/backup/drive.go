package backup

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const (
	DefaultDriveEndpoint = "https://www.googleapis.com/drive/v3/"

	driveRequestTimeout = 30 * time.Second
	backupMIMEType      = "application/json"
)

// DriveRemote keeps the backup as a file in the user's Google Drive.
type DriveRemote struct {
	Endpoint string
	Client   *http.Client
}

func NewDriveRemote() *DriveRemote {
	return &DriveRemote{
		Endpoint: DefaultDriveEndpoint,
		Client:   &http.Client{Timeout: driveRequestTimeout},
	}
}

func (remote *DriveRemote) Name() string {
	return "drive"
}

func (remote *DriveRemote) Find(ctx context.Context, token string) (string, bool, error) {
	service, err := remote.service(ctx, token)
	if err != nil {
		return "", false, err
	}

	listing, err := service.Files.List().
		Q(fmt.Sprintf("name='%s' and trashed=false", BackupFileName)).
		Spaces("drive").
		Fields("files(id)").
		Context(ctx).
		Do()
	if err != nil {
		return "", false, driveError(err)
	}
	if len(listing.Files) == 0 || listing.Files[0].Id == "" {
		return "", false, nil
	}
	return listing.Files[0].Id, true, nil
}

func (remote *DriveRemote) Read(ctx context.Context, token string, id string) ([]byte, error) {
	service, err := remote.service(ctx, token)
	if err != nil {
		return nil, err
	}

	response, err := service.Files.Get(id).Context(ctx).Download()
	if err != nil {
		return nil, driveError(err)
	}
	defer response.Body.Close()

	content, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, fmt.Errorf("read drive response: %w", err)
	}
	return content, nil
}

func (remote *DriveRemote) Create(ctx context.Context, token string, payload []byte) (string, error) {
	service, err := remote.service(ctx, token)
	if err != nil {
		return "", err
	}

	created, err := service.Files.Create(&drive.File{Name: BackupFileName, MimeType: backupMIMEType}).
		Media(bytes.NewReader(payload), googleapi.ContentType(backupMIMEType)).
		Fields("id").
		Context(ctx).
		Do()
	if err != nil {
		return "", driveError(err)
	}
	return created.Id, nil
}

func (remote *DriveRemote) Update(ctx context.Context, token string, id string, payload []byte) error {
	service, err := remote.service(ctx, token)
	if err != nil {
		return err
	}

	_, err = service.Files.Update(id, &drive.File{}).
		Media(bytes.NewReader(payload), googleapi.ContentType(backupMIMEType)).
		Fields("id").
		Context(ctx).
		Do()
	return driveError(err)
}

// service binds one access token to a Drive client; tokens are refreshed by
// the session, not here.
func (remote *DriveRemote) service(ctx context.Context, token string) (*drive.Service, error) {
	base := remote.Client
	if base == nil {
		base = &http.Client{Timeout: driveRequestTimeout}
	}
	client := &http.Client{
		Timeout: base.Timeout,
		Transport: &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}),
			Base:   base.Transport,
		},
	}

	service, err := drive.NewService(ctx, option.WithHTTPClient(client), option.WithEndpoint(remote.Endpoint))
	if err != nil {
		return nil, fmt.Errorf("init drive client: %w", err)
	}
	return service, nil
}

func driveError(err error) error {
	if err == nil {
		return nil
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return &RemoteError{Remote: "Drive", Status: apiErr.Code}
	}
	return fmt.Errorf("drive request: %w", err)
}
