// Package archive stores raw uploaded statements in Google Cloud Storage so
// an ingested batch can always be traced back to the bytes it came from.
package archive

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// GCSArchiver writes statement files to a single bucket. It assumes
// Application Default Credentials are configured.
type GCSArchiver struct {
	client *storage.Client
	bucket string
	log    zerolog.Logger
}

func New(ctx context.Context, bucket string, log zerolog.Logger) (*GCSArchiver, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("archive: create storage client: %w", err)
	}
	return &GCSArchiver{client: client, bucket: bucket, log: log}, nil
}

func (a *GCSArchiver) Close() error {
	return a.client.Close()
}

// ArchiveStatement uploads the raw statement bytes and returns the gs:// URI
// of the stored object. Object names are prefixed with the user id and upload
// date so one user's statements group together.
func (a *GCSArchiver) ArchiveStatement(ctx context.Context, userID, filename string, data []byte) (string, error) {
	object := objectName(userID, filename, time.Now().UTC())

	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := a.client.Bucket(a.bucket).Object(object).NewWriter(ctx)
	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("archive: write object %q: %w", object, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("archive: finalize object %q: %w", object, err)
	}

	uri := fmt.Sprintf("gs://%s/%s", a.bucket, object)
	a.log.Debug().Str("uri", uri).Msg("Statement stored")
	return uri, nil
}

// Fetch downloads the bytes behind a gs:// URI. It accepts URIs produced by
// ArchiveStatement as well as objects uploaded out of band.
func (a *GCSArchiver) Fetch(ctx context.Context, uri string) ([]byte, error) {
	bucket, object, err := parseURI(uri)
	if err != nil {
		return nil, err
	}

	r, err := a.client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("archive: open object %s/%s: %w", bucket, object, err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("archive: read object %s/%s: %w", bucket, object, err)
	}
	return data, nil
}

func objectName(userID, filename string, at time.Time) string {
	// Random prefix keeps repeated uploads of the same filename distinct.
	return fmt.Sprintf("statements/%s/%s/%s-%s",
		userID, at.Format("2006-01-02"), uuid.NewString()[:8], path.Base(filename))
}

func parseURI(uri string) (bucket, object string, err error) {
	trimmed, ok := strings.CutPrefix(uri, "gs://")
	if !ok {
		return "", "", fmt.Errorf("archive: invalid storage URI %q", uri)
	}
	bucket, object, ok = strings.Cut(trimmed, "/")
	if !ok || bucket == "" || object == "" {
		return "", "", fmt.Errorf("archive: invalid storage URI %q (no object path)", uri)
	}
	return bucket, object, nil
}

// FilenameFromURI returns the base filename of a storage URI, e.g.
// "gs://bucket/statements/u1/2024-02-01/ab12cd34-feb.pdf" yields
// "ab12cd34-feb.pdf".
func FilenameFromURI(uri string) string {
	trimmed := strings.TrimPrefix(uri, "gs://")
	if _, object, ok := strings.Cut(trimmed, "/"); ok {
		return path.Base(object)
	}
	return trimmed
}
