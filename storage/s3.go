package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"pulse-service/ppg"
)

// ErrNotFound is returned when an archived series does not exist.
var ErrNotFound = errors.New("series not found")

// Series is a per-frame signal recording archived after a video run.
type Series struct {
	ID         string       `json:"id"`
	Source     string       `json:"source"`
	FPS        float64      `json:"fps"`
	Width      int          `json:"width"`
	Height     int          `json:"height"`
	Timestamps []float64    `json:"timestamps"`
	Samples    []ppg.Sample `json:"samples"`
	Summary    ppg.Summary  `json:"summary"`
}

type SignalArchiveConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
	Prefix    string
}

// SignalArchive stores extracted series as JSON objects in an S3 bucket.
type SignalArchive struct {
	Client *minio.Client
	Bucket string
	Prefix string
}

func NewSignalArchive(cfg SignalArchiveConfig) (*SignalArchive, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	return &SignalArchive{Client: client, Bucket: cfg.Bucket, Prefix: cfg.Prefix}, nil
}

// EnsureBucket creates the archive bucket when it does not exist yet.
func (a *SignalArchive) EnsureBucket(ctx context.Context) error {
	exists, err := a.Client.BucketExists(ctx, a.Bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", a.Bucket, err)
	}
	if !exists {
		if err := a.Client.MakeBucket(ctx, a.Bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("create bucket %s: %w", a.Bucket, err)
		}
	}
	return nil
}

// ObjectKey maps a series id or explicit location to its object key.
func (a *SignalArchive) ObjectKey(id string) string {
	return path.Join(a.Prefix, id+".json")
}

// Put stores series under the object key of id.
func (a *SignalArchive) Put(ctx context.Context, id string, series *Series) error {
	body, err := json.Marshal(series)
	if err != nil {
		return fmt.Errorf("encode series: %w", err)
	}

	_, err = a.Client.PutObject(ctx, a.Bucket, a.ObjectKey(id), bytes.NewReader(body), int64(len(body)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	if err != nil {
		return fmt.Errorf("upload series: %w", err)
	}
	return nil
}

// Get loads the series stored for id. A missing object is ErrNotFound.
func (a *SignalArchive) Get(ctx context.Context, id string) (*Series, error) {
	obj, err := a.Client.GetObject(ctx, a.Bucket, a.ObjectKey(id), minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get series: %w", err)
	}
	defer obj.Close()

	body, err := io.ReadAll(obj)
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read series: %w", err)
	}

	var series Series
	if err := json.Unmarshal(body, &series); err != nil {
		return nil, fmt.Errorf("decode series: %w", err)
	}
	return &series, nil
}
