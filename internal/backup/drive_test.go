package backup

import (
	"context"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type driveRequest struct {
	Method        string
	Path          string
	Query         string
	Authorization string
	ContentType   string
	Body          []byte
}

func newDriveTestServer(t *testing.T, handler func(request driveRequest) (int, string)) (*DriveRemote, *[]driveRequest) {
	t.Helper()

	var mu sync.Mutex
	requests := make([]driveRequest, 0)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		request := driveRequest{
			Method:        r.Method,
			Path:          r.URL.Path,
			Query:         r.URL.RawQuery,
			Authorization: r.Header.Get("Authorization"),
			ContentType:   r.Header.Get("Content-Type"),
			Body:          body,
		}
		mu.Lock()
		requests = append(requests, request)
		mu.Unlock()

		status, response := handler(request)
		w.WriteHeader(status)
		_, _ = io.WriteString(w, response)
	}))
	t.Cleanup(server.Close)

	remote := NewDriveRemote()
	remote.Endpoint = server.URL + "/drive/v3/"
	remote.Client = server.Client()
	return remote, &requests
}

func TestDriveRemoteFind(t *testing.T) {
	remote, requests := newDriveTestServer(t, func(driveRequest) (int, string) {
		return http.StatusOK, `{"files":[{"id":"abc123"}]}`
	})

	id, ok, err := remote.Find(context.Background(), "token-1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "abc123", id)

	request := (*requests)[0]
	assert.Equal(t, http.MethodGet, request.Method)
	assert.Equal(t, "/drive/v3/files", request.Path)
	assert.Equal(t, "Bearer token-1", request.Authorization)
	assert.Contains(t, request.Query, "trashed%3Dfalse")
	assert.Contains(t, request.Query, BackupFileName)
}

func TestDriveRemoteFindNothing(t *testing.T) {
	remote, _ := newDriveTestServer(t, func(driveRequest) (int, string) {
		return http.StatusOK, `{"files":[]}`
	})

	_, ok, err := remote.Find(context.Background(), "token-1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDriveRemoteReadAndUpdate(t *testing.T) {
	remote, requests := newDriveTestServer(t, func(request driveRequest) (int, string) {
		if request.Method == http.MethodGet {
			return http.StatusOK, `{"periods":[]}`
		}
		return http.StatusOK, `{"id":"abc123"}`
	})

	content, err := remote.Read(context.Background(), "token-1", "abc123")
	require.NoError(t, err)
	assert.Equal(t, `{"periods":[]}`, string(content))

	require.NoError(t, remote.Update(context.Background(), "token-1", "abc123", []byte(`{"periods":[1]}`)))

	read, update := (*requests)[0], (*requests)[1]
	assert.Equal(t, "/drive/v3/files/abc123", read.Path)
	assert.Contains(t, read.Query, "alt=media")
	assert.Equal(t, "Bearer token-1", read.Authorization)

	assert.Equal(t, http.MethodPatch, update.Method)
	assert.Equal(t, "/upload/drive/v3/files/abc123", update.Path)
	assert.Equal(t, "Bearer token-1", update.Authorization)
	_, media := multipartParts(t, update)
	assert.Equal(t, `{"periods":[1]}`, media)
}

func TestDriveRemoteCreateSendsMultipart(t *testing.T) {
	remote, requests := newDriveTestServer(t, func(driveRequest) (int, string) {
		return http.StatusOK, `{"id":"new-file"}`
	})

	id, err := remote.Create(context.Background(), "token-1", []byte(`{"periods":[]}`))
	require.NoError(t, err)
	assert.Equal(t, "new-file", id)

	request := (*requests)[0]
	assert.Equal(t, http.MethodPost, request.Method)
	assert.Equal(t, "/upload/drive/v3/files", request.Path)
	assert.Contains(t, request.Query, "uploadType=multipart")

	metadata, media := multipartParts(t, request)
	assert.JSONEq(t, `{"name":"`+BackupFileName+`","mimeType":"application/json"}`, metadata)
	assert.Equal(t, `{"periods":[]}`, media)
}

// multipartParts returns the metadata and media parts of an upload.
func multipartParts(t *testing.T, request driveRequest) (string, string) {
	t.Helper()

	mediaType, params, err := mime.ParseMediaType(request.ContentType)
	require.NoError(t, err)
	require.Equal(t, "multipart/related", mediaType)

	reader := multipart.NewReader(strings.NewReader(string(request.Body)), params["boundary"])
	metadata, err := reader.NextPart()
	require.NoError(t, err)
	metadataBody, err := io.ReadAll(metadata)
	require.NoError(t, err)

	media, err := reader.NextPart()
	require.NoError(t, err)
	mediaBody, err := io.ReadAll(media)
	require.NoError(t, err)
	return string(metadataBody), string(mediaBody)
}

func TestDriveRemoteMapsErrorStatus(t *testing.T) {
	cases := []struct {
		status  int
		checkFn func(error) bool
	}{
		{status: http.StatusUnauthorized, checkFn: isUnauthorized},
		{status: http.StatusNotFound, checkFn: isNotFound},
	}

	for _, testCase := range cases {
		remote, _ := newDriveTestServer(t, func(driveRequest) (int, string) {
			return testCase.status, fmt.Sprintf(`{"error":{"code":%d,"message":"denied"}}`, testCase.status)
		})
		_, err := remote.Read(context.Background(), "token-1", "abc123")
		require.Error(t, err)
		assert.True(t, testCase.checkFn(err), "status %d", testCase.status)
		assert.Equal(t, fmt.Sprintf("Drive API error: %d", testCase.status), err.Error())
	}
}
