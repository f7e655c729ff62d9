package reader

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/kompaudit/audit-planner/internal/config"
	"github.com/kompaudit/audit-planner/internal/store/model"
)

// ObjectReader extracts evidence from artifacts stored in an S3 compatible
// object store. The artifact locator is the object key inside the
// configured bucket.
type ObjectReader struct {
	client   *minio.Client
	bucket   string
	maxChars int
}

func NewObjectReader(cfg *config.ObjectStoreConfig, maxChars int) (*ObjectReader, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("creating object store client: %w", err)
	}
	return &ObjectReader{client: client, bucket: cfg.Bucket, maxChars: maxChars}, nil
}

func (r *ObjectReader) Read(ctx context.Context, artifact *model.Artifact, item *model.RuleItem) (Evidence, error) {
	obj, err := r.client.GetObject(ctx, r.bucket, artifact.Locator, minio.GetObjectOptions{})
	if err != nil {
		return Evidence{}, fmt.Errorf("fetching artifact %q: %w", artifact.Name, err)
	}
	defer obj.Close()

	limit := int64(r.maxChars) * 8
	if limit <= 0 {
		limit = 1 << 20
	}
	data, err := io.ReadAll(io.LimitReader(obj, limit))
	if err != nil {
		return Evidence{}, fmt.Errorf("reading artifact %q: %w", artifact.Name, err)
	}

	keywords := Keywords(item)
	snippet := selectLines(strings.Split(string(data), "\n"), keywords)
	if snippet == "" {
		return Evidence{}, nil
	}
	if r.maxChars > 0 && len(snippet) > r.maxChars {
		snippet = snippet[:r.maxChars]
	}

	ev := Evidence{Snippets: []Snippet{{Source: artifact.Locator, Content: snippet}}}
	ev.Conflicting = conflicting(ev.Snippets)
	return ev, nil
}
