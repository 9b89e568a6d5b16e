package archive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"cloud.google.com/go/storage"
	"github.com/sirupsen/logrus"
	"google.golang.org/api/googleapi"
)

// GCS archives objects into a Cloud Storage bucket
type GCS struct {
	client *storage.Client
	bucket string
}

// NewGCS creates a GCS archiver using application default credentials
func NewGCS(ctx context.Context, bucket string) (*GCS, error) {
	if bucket == "" {
		return nil, fmt.Errorf("archive bucket cannot be empty")
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create Storage client: %w", err)
	}
	return &GCS{client: client, bucket: bucket}, nil
}

// Archive writes the object only if it does not exist yet. An existing
// object counts as archived.
func (g *GCS) Archive(ctx context.Context, obj Object) (string, error) {
	name := ObjectName(obj)
	uri := fmt.Sprintf("gs://%s/%s", g.bucket, name)

	writer := g.client.Bucket(g.bucket).Object(name).
		If(storage.Conditions{DoesNotExist: true}).
		NewWriter(ctx)
	writer.ContentType = obj.ContentType

	if _, err := io.Copy(writer, bytes.NewReader(obj.Data)); err != nil {
		_ = writer.Close()
		if alreadyExists(err) {
			logrus.WithField("object", uri).Info("Archive object already exists")
			return uri, nil
		}
		return "", fmt.Errorf("failed to write to GCS: %w", err)
	}
	if err := writer.Close(); err != nil {
		if alreadyExists(err) {
			logrus.WithField("object", uri).Info("Archive object already exists")
			return uri, nil
		}
		return "", fmt.Errorf("failed to finalize GCS write: %w", err)
	}
	return uri, nil
}

// Close releases the storage client
func (g *GCS) Close() error {
	return g.client.Close()
}

func alreadyExists(err error) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == http.StatusPreconditionFailed
}
