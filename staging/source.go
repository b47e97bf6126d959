package staging

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/sonofy/dwhpipe/aws/s3"
	"github.com/sonofy/dwhpipe/constants"
	"github.com/sonofy/dwhpipe/file"
	"github.com/sonofy/dwhpipe/logger"
)

// Source lists and streams objects. Keys returned by List can be passed to Open.
type Source interface {
	List(prefix string) ([]string, error)
	Open(key string) (io.ReadCloser, error)
}

// Resolver maps a source URL to the Source holding it and the key or prefix within that Source.
type Resolver interface {
	Resolve(url string) (Source, string, error)
}

// DefaultResolver understands s3:// and file:// URLs.
// Endpoint is passed to the S3 client for S3 compatible stores.
type DefaultResolver struct {
	Log      logger.Logger
	Region   string
	Endpoint string
	mu       sync.Mutex
	buckets  map[string]s3.BasicClient
}

func (r *DefaultResolver) Resolve(url string) (Source, string, error) {
	lower := strings.ToLower(url)
	switch {
	case strings.HasPrefix(lower, constants.ConnectionTypeS3+"://"):
		b, err := s3.ParseDSN(url, r.Region)
		if err != nil {
			return nil, "", err
		}
		c, err := r.bucketClient(b)
		if err != nil {
			return nil, "", err
		}
		return c, b.Prefix, nil
	case strings.HasPrefix(lower, constants.ConnectionTypeFile+"://"):
		p, err := file.ParsePath(url)
		if err != nil {
			return nil, "", err
		}
		return file.NewLocalSource(r.Log), p, nil
	}
	return nil, "", fmt.Errorf("unsupported source %q: expected an s3:// or file:// URL", url)
}

// bucketClient returns one client per bucket. Clients have no prefix so that listed keys are
// full object keys.
func (r *DefaultResolver) bucketClient(b s3.AwsS3Bucket) (s3.BasicClient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.buckets[b.Name]; ok {
		return c, nil
	}
	c, err := s3.NewBasicClientWithConfig(s3.ClientConfig{Bucket: b.Name, Region: b.Region, Endpoint: r.Endpoint})
	if err != nil {
		return nil, fmt.Errorf("error creating S3 client for bucket %v: %w", b.Name, err)
	}
	if r.buckets == nil {
		r.buckets = make(map[string]s3.BasicClient)
	}
	r.buckets[b.Name] = c
	r.Log.Debug("created S3 client for bucket ", b.Name, " in region ", b.Region)
	return c, nil
}
