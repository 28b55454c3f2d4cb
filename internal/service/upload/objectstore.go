package upload

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/chating-app/chating/client/internal/service/api"
)

// ObjectStore is the minimal object storage surface the uploader needs.
type ObjectStore interface {
	Put(ctx context.Context, name string, body io.Reader, contentType string) error
}

// JetStreamStore implements ObjectStore on a NATS JetStream object bucket.
type JetStreamStore struct {
	conn  *nats.Conn
	store jetstream.ObjectStore
}

// OpenJetStream connects to NATS and opens (or creates) the bucket.
func OpenJetStream(ctx context.Context, natsURL, bucket string) (*JetStreamStore, error) {
	conn, err := nats.Connect(natsURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	store, err := js.ObjectStore(ctx, bucket)
	if err != nil {
		store, err = js.CreateObjectStore(ctx, jetstream.ObjectStoreConfig{
			Bucket:      bucket,
			Description: "chat attachments",
		})
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to open object store bucket %s: %w", bucket, err)
		}
	}

	return &JetStreamStore{conn: conn, store: store}, nil
}

// Put stores one object.
func (s *JetStreamStore) Put(ctx context.Context, name string, body io.Reader, contentType string) error {
	meta := jetstream.ObjectMeta{
		Name: name,
		Headers: nats.Header{
			"Content-Type": []string{contentType},
		},
	}
	if _, err := s.store.Put(ctx, meta, body); err != nil {
		return fmt.Errorf("failed to store object: %w", err)
	}
	return nil
}

// Close closes the NATS connection.
func (s *JetStreamStore) Close() error {
	if s.conn != nil {
		s.conn.Close()
	}
	return nil
}

// ObjectStoreUploader writes attachments to images/{unixMillis}_{filename}
// and resolves them under a public base URL.
type ObjectStoreUploader struct {
	store      ObjectStore
	publicBase *url.URL
	now        func() time.Time
}

// NewObjectStoreUploader validates publicBase and wraps store.
func NewObjectStoreUploader(store ObjectStore, publicBase string) (*ObjectStoreUploader, error) {
	base, err := url.Parse(strings.TrimSpace(publicBase))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("%w: public upload url must be absolute, got %q", api.ErrValidation, publicBase)
	}
	base.Path = strings.TrimRight(base.Path, "/")
	return &ObjectStoreUploader{store: store, publicBase: base, now: time.Now}, nil
}

// ObjectName is the bucket path an upload of name lands on at t.
func ObjectName(name string, t time.Time) string {
	return fmt.Sprintf("images/%d_%s", t.UnixMilli(), filepath.Base(name))
}

// Upload stores body and returns its download URL.
func (u *ObjectStoreUploader) Upload(ctx context.Context, name string, body io.Reader) (string, error) {
	objectName := ObjectName(name, u.now())

	contentType := mime.TypeByExtension(strings.ToLower(filepath.Ext(name)))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	if err := u.store.Put(ctx, objectName, body, contentType); err != nil {
		return "", err
	}
	return api.JoinURL(u.publicBase, strings.Split(objectName, "/")...), nil
}
