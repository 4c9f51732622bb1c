package backup

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
	"go.uber.org/zap"
)

// AzureRemote keeps the backup as a block blob. The blob name doubles as its ID.
type AzureRemote struct {
	client        *azblob.Client
	containerName string
	logger        *zap.Logger
}

type AzureConfig struct {
	ConnectionString string
	AccountName      string
	AccountKey       string
	ContainerName    string
}

func NewAzureRemote(config AzureConfig, logger *zap.Logger) (*AzureRemote, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.ContainerName == "" {
		return nil, errors.New("azure container name is required")
	}

	var (
		client *azblob.Client
		err    error
	)
	switch {
	case config.ConnectionString != "":
		client, err = azblob.NewClientFromConnectionString(config.ConnectionString, nil)
	case config.AccountName != "" && config.AccountKey != "":
		var credential *azblob.SharedKeyCredential
		credential, err = azblob.NewSharedKeyCredential(config.AccountName, config.AccountKey)
		if err != nil {
			return nil, fmt.Errorf("create shared key credential: %w", err)
		}
		serviceURL := fmt.Sprintf("https://%s.blob.core.windows.net/", config.AccountName)
		client, err = azblob.NewClientWithSharedKeyCredential(serviceURL, credential, nil)
	default:
		return nil, errors.New("azure connection string or account name and key are required")
	}
	if err != nil {
		return nil, fmt.Errorf("create blob client: %w", err)
	}

	return &AzureRemote{client: client, containerName: config.ContainerName, logger: logger}, nil
}

func (remote *AzureRemote) Name() string {
	return "azure"
}

func (remote *AzureRemote) Find(ctx context.Context, _ string) (string, bool, error) {
	blob := remote.client.ServiceClient().NewContainerClient(remote.containerName).NewBlobClient(BackupFileName)
	if _, err := blob.GetProperties(ctx, nil); err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound, bloberror.ContainerNotFound) {
			return "", false, nil
		}
		return "", false, azureError(err)
	}
	return BackupFileName, true, nil
}

func (remote *AzureRemote) Read(ctx context.Context, _ string, id string) ([]byte, error) {
	response, err := remote.client.DownloadStream(ctx, remote.containerName, id, nil)
	if err != nil {
		return nil, azureError(err)
	}
	defer response.Body.Close()

	data, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, fmt.Errorf("read backup blob: %w", err)
	}
	return data, nil
}

// Create makes the container on first use, then uploads the blob.
func (remote *AzureRemote) Create(ctx context.Context, token string, payload []byte) (string, error) {
	if _, err := remote.client.CreateContainer(ctx, remote.containerName, nil); err != nil &&
		!bloberror.HasCode(err, bloberror.ContainerAlreadyExists) {
		return "", azureError(err)
	}
	if err := remote.Update(ctx, token, BackupFileName, payload); err != nil {
		return "", err
	}
	remote.logger.Info("created backup blob", zap.String("container", remote.containerName))
	return BackupFileName, nil
}

func (remote *AzureRemote) Update(ctx context.Context, _ string, id string, payload []byte) error {
	contentType := "application/json"
	_, err := remote.client.UploadBuffer(ctx, remote.containerName, id, payload, &azblob.UploadBufferOptions{
		Metadata: map[string]*string{"contenttype": &contentType},
	})
	if err != nil {
		return azureError(err)
	}
	return nil
}

// azureError maps SDK response errors onto RemoteError.
func azureError(err error) error {
	var responseErr *azcore.ResponseError
	if errors.As(err, &responseErr) {
		return fmt.Errorf("%w: %s", &RemoteError{Remote: "Azure", Status: responseErr.StatusCode}, responseErr.ErrorCode)
	}
	return fmt.Errorf("azure request: %w", err)
}
