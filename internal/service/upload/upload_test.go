package upload_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chating-app/chating/client/internal/fakebackend"
	"github.com/chating-app/chating/client/internal/model/chat"
	"github.com/chating-app/chating/client/internal/service/api"
	"github.com/chating-app/chating/client/internal/service/upload"
)

type sinkRecorder struct {
	mu     sync.Mutex
	frames []chat.OutboundFrame
	err    error
}

func (s *sinkRecorder) Send(frame chat.OutboundFrame) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.frames = append(s.frames, frame)
	return nil
}

type stubUploader struct {
	url   string
	err   error
	names []string
}

func (u *stubUploader) Upload(_ context.Context, name string, body io.Reader) (string, error) {
	u.names = append(u.names, name)
	_, _ = io.Copy(io.Discard, body)
	return u.url, u.err
}

func TestRelaySendsURLWithInferredKind(t *testing.T) {
	cases := []struct {
		name string
		want chat.Kind
	}{
		{"photo.PNG", chat.KindImage},
		{"clip.mp4", chat.KindVideo},
		{"notes.pdf", chat.KindFile},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sink := &sinkRecorder{}
			uploader := &stubUploader{url: "http://cdn/x"}
			relay := upload.NewRelay(uploader)

			frame, err := relay.Send(context.Background(), sink, "kim", "/tmp/"+tc.name, strings.NewReader("data"))
			require.NoError(t, err)
			assert.Equal(t, tc.want, frame.Type)
			assert.Equal(t, "http://cdn/x", frame.Content)
			assert.Equal(t, "kim", frame.Sender)
			require.Len(t, sink.frames, 1)
			assert.Equal(t, []string{tc.name}, uploader.names)
		})
	}
}

func TestRelayFailedUploadSendsNothing(t *testing.T) {
	sink := &sinkRecorder{}
	relay := upload.NewRelay(&stubUploader{err: errors.New("boom")})

	_, err := relay.Send(context.Background(), sink, "kim", "a.png", strings.NewReader("x"))
	require.Error(t, err)
	assert.Empty(t, sink.frames)
}

func TestRelayValidatesBeforeUploading(t *testing.T) {
	uploader := &stubUploader{url: "http://cdn/x"}
	relay := upload.NewRelay(uploader)

	_, err := relay.Send(context.Background(), &sinkRecorder{}, "kim", "  ", strings.NewReader("x"))
	assert.ErrorIs(t, err, api.ErrValidation)

	_, err = relay.Send(context.Background(), &sinkRecorder{}, "kim", "a.png", nil)
	assert.ErrorIs(t, err, api.ErrValidation)

	_, err = relay.Send(context.Background(), nil, "kim", "a.png", strings.NewReader("x"))
	assert.ErrorIs(t, err, api.ErrValidation)

	assert.Empty(t, uploader.names)
}

func TestRelaySurfacesSendFailure(t *testing.T) {
	sinkErr := errors.New("not open")
	relay := upload.NewRelay(&stubUploader{url: "http://cdn/x"})

	_, err := relay.Send(context.Background(), &sinkRecorder{err: sinkErr}, "kim", "a.png", strings.NewReader("x"))
	assert.ErrorIs(t, err, sinkErr)
}

func newClient(t *testing.T, backend *fakebackend.Backend) *api.Client {
	t.Helper()
	client, err := api.New(backend.URL())
	require.NoError(t, err)
	return client
}

func TestHTTPUploaderPostsMultipart(t *testing.T) {
	backend := fakebackend.New()
	defer backend.Close()

	uploader := upload.NewHTTPUploader(newClient(t, backend))
	url, err := uploader.Upload(context.Background(), "cat.jpg", bytes.NewReader([]byte("meow")))
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(url, backend.URL()+"/files/"), url)
	assert.True(t, strings.HasSuffix(url, "_cat.jpg"), url)
	assert.Equal(t, 1, backend.Requests("POST /upload"))

	name := url[strings.LastIndex(url, "/")+1:]
	data, ok := backend.Uploaded(name)
	require.True(t, ok)
	assert.Equal(t, "meow", string(data))
}

func TestHTTPUploaderRejected(t *testing.T) {
	backend := fakebackend.New()
	defer backend.Close()
	backend.FailUploads(http.StatusRequestEntityTooLarge)

	uploader := upload.NewHTTPUploader(newClient(t, backend))
	_, err := uploader.Upload(context.Background(), "cat.jpg", strings.NewReader("meow"))
	require.Error(t, err)
	assert.True(t, api.IsStatus(err, http.StatusRequestEntityTooLarge), "got %v", err)
}

type memoryStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
	err     error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{objects: make(map[string][]byte), types: make(map[string]string)}
}

func (m *memoryStore) Put(_ context.Context, name string, body io.Reader, contentType string) error {
	if m.err != nil {
		return m.err
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[name] = data
	m.types[name] = contentType
	return nil
}

func TestObjectStoreUploaderNamesAndResolves(t *testing.T) {
	store := newMemoryStore()
	uploader, err := upload.NewObjectStoreUploader(store, "https://cdn.example.com/bucket/")
	require.NoError(t, err)

	url, err := uploader.Upload(context.Background(), "dir/My Photo.png", strings.NewReader("px"))
	require.NoError(t, err)
	require.Len(t, store.objects, 1)

	for name, data := range store.objects {
		assert.True(t, strings.HasPrefix(name, "images/"), name)
		assert.True(t, strings.HasSuffix(name, "_My Photo.png"), name)
		assert.Equal(t, "px", string(data))
		assert.Equal(t, "image/png", store.types[name])
	}
	assert.True(t, strings.HasPrefix(url, "https://cdn.example.com/bucket/images/"), url)
	assert.True(t, strings.HasSuffix(url, "_My%20Photo.png"), url)
}

func TestObjectStoreUploaderPropagatesStoreError(t *testing.T) {
	store := newMemoryStore()
	store.err = errors.New("bucket gone")
	uploader, err := upload.NewObjectStoreUploader(store, "https://cdn.example.com")
	require.NoError(t, err)

	_, err = uploader.Upload(context.Background(), "a.bin", strings.NewReader("x"))
	assert.ErrorIs(t, err, store.err)
}

func TestObjectStoreUploaderRequiresAbsoluteBase(t *testing.T) {
	_, err := upload.NewObjectStoreUploader(newMemoryStore(), "/relative")
	assert.ErrorIs(t, err, api.ErrValidation)
}
