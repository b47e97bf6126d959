package s3

import (
	"bytes"
	"io"
	"io/ioutil"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
)

// ClientConfig locates a bucket. Endpoint is only needed for S3 compatible stores such as minio,
// in which case path style addressing is used.
type ClientConfig struct {
	Bucket   string
	Region   string
	Prefix   string
	Endpoint string
}

// NewBasicClientWithConfig creates a client using the default AWS credential chain.
func NewBasicClientWithConfig(c ClientConfig) (BasicClient, error) {
	awsConfig := aws.NewConfig()
	awsConfig.Region = aws.String(c.Region)
	if c.Endpoint != "" {
		awsConfig.Endpoint = aws.String(c.Endpoint)
		awsConfig.S3ForcePathStyle = aws.Bool(true)
		awsConfig.DisableSSL = aws.Bool(strings.HasPrefix(c.Endpoint, "http://"))
	}
	sess, err := session.NewSession(awsConfig)
	if err != nil {
		return nil, err
	}
	return NewBasicClientWithAPI(c.Bucket, c.Prefix, s3.New(sess)), nil
}

func NewBasicClientWithAPI(bucket, prefix string, api s3iface.S3API) BasicClient {
	return &basicClient{
		bucket: bucket,
		prefix: prefix,
		api:    api,
	}
}

type basicClient struct {
	bucket string
	prefix string
	api    s3iface.S3API
}

func (s *basicClient) List(key string) (keys []string, err error) {
	keys = make([]string, 0, 1000)
	lastKey := ""
	for {
		params := &s3.ListObjectsInput{
			Bucket:  aws.String(s.bucket),
			Marker:  aws.String(lastKey),
			MaxKeys: aws.Int64(1000),
			Prefix:  aws.String(s.getKeyWithPrefix(key)),
		}
		resp, err := s.api.ListObjects(params)
		if err != nil {
			return nil, err
		}
		for _, v := range resp.Contents {
			lastKey = aws.StringValue(v.Key)
			if strings.HasSuffix(lastKey, "/") { // if this is a folder placeholder...
				continue
			}
			keys = append(keys, s.trimPrefix(lastKey))
		}
		if !aws.BoolValue(resp.IsTruncated) || len(resp.Contents) == 0 {
			break
		}
	}
	return
}

func (s *basicClient) Get(key string) ([]byte, error) {
	body, err := s.Open(key)
	if err != nil {
		return nil, err
	}
	defer body.Close()
	return ioutil.ReadAll(body)
}

func (s *basicClient) Open(key string) (io.ReadCloser, error) {
	res, err := s.api.GetObject(&s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.getKeyWithPrefix(key)),
	})
	if err != nil {
		if awsErr, ok := err.(awserr.Error); ok && awsErr.Code() == s3.ErrCodeNoSuchKey {
			return nil, ErrKeyNotFound
		}
		return nil, err
	}
	return res.Body, nil
}

func (s *basicClient) Put(key string, data []byte) error {
	_, err := s.api.PutObject(&s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.getKeyWithPrefix(key)),
		Body:   bytes.NewReader(data),
	})
	return err
}

func (s *basicClient) getKeyWithPrefix(key string) string {
	if s.prefix == "" {
		return key
	}
	if key == "" {
		return strings.TrimRight(s.prefix, "/") + "/"
	}
	return strings.TrimRight(s.prefix, "/") + "/" + key // ensure trailing slash after prefix.
}

func (s *basicClient) trimPrefix(key string) string {
	if s.prefix == "" {
		return key
	}
	return strings.TrimPrefix(key, strings.TrimRight(s.prefix, "/")+"/")
}
