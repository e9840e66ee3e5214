package minio

import (
	"bytes"
	"context"
	"io"
	"sort"
	"time"

	"github.com/minio/minio-go/v7"

	"github.com/turtacn/TradeLink-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/TradeLink-Intelligence/pkg/errors"
)

const artifactContentType = "application/json"

// ArtifactInfo describes one stored model object.
type ArtifactInfo struct {
	Key          string
	Size         int64
	LastModified time.Time
}

// ModelArtifactRepository reads and writes serialized ranking models.
type ModelArtifactRepository struct {
	client *Client
	logger logging.Logger
}

func NewModelArtifactRepository(c *Client, log logging.Logger) *ModelArtifactRepository {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &ModelArtifactRepository{client: c, logger: log.Named("model_artifacts")}
}

// PutObject uploads a model artifact.
func (r *ModelArtifactRepository) PutObject(ctx context.Context, key string, data []byte) error {
	if key == "" {
		return errors.New(errors.ErrCodeValidation, "object key is required")
	}
	_, err := r.client.api.PutObject(ctx, r.client.bucket, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: artifactContentType})
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeStorageError, "artifact upload failed")
	}
	r.logger.Info("artifact uploaded", logging.String("key", key), logging.Int("bytes", len(data)))
	return nil
}

// GetObject downloads a model artifact.
func (r *ModelArtifactRepository) GetObject(ctx context.Context, key string) ([]byte, error) {
	obj, err := r.client.api.Fetch(ctx, r.client.bucket, key)
	if err != nil {
		return nil, r.readError(err, key)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, r.readError(err, key)
	}
	return data, nil
}

func (r *ModelArtifactRepository) readError(err error, key string) error {
	if minio.ToErrorResponse(err).Code == "NoSuchKey" {
		return errors.Wrap(err, errors.ErrCodeNotFound, "artifact not found: "+key)
	}
	return errors.Wrap(err, errors.ErrCodeStorageError, "artifact download failed")
}

// List returns artifacts under prefix, newest first.
func (r *ModelArtifactRepository) List(ctx context.Context, prefix string) ([]ArtifactInfo, error) {
	var out []ArtifactInfo
	for obj := range r.client.api.ListObjects(ctx, r.client.bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if obj.Err != nil {
			return nil, errors.Wrap(obj.Err, errors.ErrCodeStorageError, "artifact listing failed")
		}
		out = append(out, ArtifactInfo{Key: obj.Key, Size: obj.Size, LastModified: obj.LastModified})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].LastModified.After(out[j].LastModified) })
	return out, nil
}

// Prune deletes all but the newest keep artifacts under prefix and returns
// the deleted keys.
func (r *ModelArtifactRepository) Prune(ctx context.Context, prefix string, keep int) ([]string, error) {
	all, err := r.List(ctx, prefix)
	if err != nil {
		return nil, err
	}
	if keep < 0 {
		keep = 0
	}
	if len(all) <= keep {
		return nil, nil
	}
	var deleted []string
	for _, a := range all[keep:] {
		if err := r.client.api.RemoveObject(ctx, r.client.bucket, a.Key, minio.RemoveObjectOptions{}); err != nil {
			return deleted, errors.Wrap(err, errors.ErrCodeStorageError, "artifact delete failed")
		}
		deleted = append(deleted, a.Key)
	}
	r.logger.Info("artifacts pruned", logging.Int("deleted", len(deleted)))
	return deleted, nil
}

//Personal.AI order the ending
