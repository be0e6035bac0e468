package storagesvc

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/trezcool/uninotes/core"
)

// S3Store stores objects in S3 compatible buckets with a public-read ACL.
type S3Store struct {
	client        *s3.Client
	uploader      *manager.Uploader
	publicBaseURL string
}

var _ core.ObjectStore = (*S3Store)(nil)

// NewS3Store loads the AWS config (static keys when set, the default chain otherwise).
// A custom endpoint enables path-style addressing for S3 compatible servers.
func NewS3Store(ctx context.Context, conf *core.Config) (*S3Store, error) {
	sc := conf.Storage
	if err := vala.BeginValidation().Validate(
		vala.StringNotEmpty(sc.Region, "storage.region"),
		vala.StringNotEmpty(sc.NotesBucket, "storage.notesBucket"),
		vala.StringNotEmpty(sc.AvatarsBucket, "storage.avatarsBucket"),
	).Check(); err != nil {
		return nil, errors.Wrap(err, "checking storage config")
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(sc.Region)}
	if sc.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(sc.AccessKeyID, sc.SecretAccessKey, ""),
		))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "loading AWS config")
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if sc.Endpoint != "" {
			o.BaseEndpoint = aws.String(sc.Endpoint)
			o.UsePathStyle = true
		}
	})

	base := sc.PublicBaseURL
	if base == "" {
		if sc.Endpoint != "" {
			base = strings.TrimSuffix(sc.Endpoint, "/")
		} else {
			base = fmt.Sprintf("https://s3.%s.amazonaws.com", sc.Region)
		}
	}
	return &S3Store{
		client:        client,
		uploader:      manager.NewUploader(client),
		publicBaseURL: strings.TrimSuffix(base, "/"),
	}, nil
}

// PublicURL is the URL of a public-read object.
func (s *S3Store) PublicURL(bucket, key string) string {
	return publicURL(s.publicBaseURL, bucket, key)
}

func publicURL(base, bucket, key string) string {
	return fmt.Sprintf("%s/%s/%s", base, url.PathEscape(bucket), url.PathEscape(key))
}

func (s *S3Store) Put(ctx context.Context, bucket, key string, body io.Reader, size int64, contentType string) (string, error) {
	_, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentLength: aws.Int64(size),
		ContentType:   aws.String(contentType),
		ACL:           types.ObjectCannedACLPublicRead,
	})
	if err != nil {
		return "", errors.Wrapf(err, "uploading %s/%s", bucket, key)
	}
	return s.PublicURL(bucket, key), nil
}

func (s *S3Store) Delete(ctx context.Context, bucket, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	return errors.Wrapf(err, "deleting %s/%s", bucket, key)
}
