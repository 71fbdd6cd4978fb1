package fetch

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"path/filepath"
	"strings"

	"github.com/dapello/brainio/core"

	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/gcsblob"
	_ "gocloud.dev/blob/s3blob"
	"gocloud.dev/gcerrors"
)

// bucketReader closes the bucket along with the object reader.
type bucketReader struct {
	*blob.Reader
	bucket *blob.Bucket
}

func (r bucketReader) Close() error {
	err := r.Reader.Close()
	if berr := r.bucket.Close(); err == nil {
		err = berr
	}
	return err
}

// openBlob opens key within the bucket referenced by bucketURL.
func openBlob(ctx context.Context, bucketURL, key string) (io.ReadCloser, error) {
	bucket, err := blob.OpenBucket(ctx, bucketURL)
	if err != nil {
		return nil, fmt.Errorf("can't open bucket reference @ %q: %w", bucketURL, err)
	}
	r, err := bucket.NewReader(ctx, key, nil)
	if err != nil {
		bucket.Close()
		if gcerrors.Code(err) == gcerrors.NotFound {
			return nil, &core.NotFoundError{Kind: "object", Identifier: key + " in " + bucketURL}
		}
		return nil, err
	}
	return bucketReader{r, bucket}, nil
}

// splitBlobURL splits a gocloud URL holding an object key into a bucket URL and key.
//
//	gs://bucket/a/b.nc        -> gs://bucket, a/b.nc
//	s3://bucket/b.nc?region=x -> s3://bucket?region=x, b.nc
//	file:///tmp/dir/b.nc      -> file:///tmp/dir, b.nc
func splitBlobURL(location string) (bucketURL, key string, err error) {
	u, err := url.Parse(location)
	if err != nil {
		return "", "", err
	}
	if u.Scheme == "" {
		return "", "", fmt.Errorf("blob location %q has no scheme", location)
	}
	if u.Scheme == "file" {
		dir, base := path.Split(u.Path)
		if base == "" {
			return "", "", fmt.Errorf("blob location %q has no object key", location)
		}
		return "file://" + filepath.ToSlash(strings.TrimSuffix(dir, "/")), base, nil
	}
	key = strings.TrimPrefix(u.Path, "/")
	if u.Host == "" || key == "" {
		return "", "", fmt.Errorf("blob location %q must be of form <scheme>://<bucket>/<key>", location)
	}
	bucketURL = u.Scheme + "://" + u.Host
	if u.RawQuery != "" {
		bucketURL += "?" + u.RawQuery
	}
	return bucketURL, key, nil
}

type blobEngine struct {
	engineInfo
}

func (e blobEngine) Open(ctx context.Context, location string) (io.ReadCloser, error) {
	bucketURL, key, err := splitBlobURL(location)
	if err != nil {
		return nil, err
	}
	return openBlob(ctx, bucketURL, key)
}

var (
	// DefaultS3Region is used for s3blob access to catalog locations, which carry no region.
	DefaultS3Region = "us-east-1"

	// AnonymousS3 skips the S3 API and reads S3 locations over plain HTTPS.
	AnonymousS3 = false
)

type s3Engine struct {
	engineInfo
}

// parseS3Location extracts bucket and key from https://<bucket>.s3.amazonaws.com/<key>
// or https://s3.amazonaws.com/<bucket>/<key>.
func parseS3Location(location string) (bucket, key string, err error) {
	u, err := url.Parse(location)
	if err != nil {
		return "", "", err
	}
	host := u.Hostname()
	p := strings.TrimPrefix(u.Path, "/")
	switch {
	case u.Scheme == "s3":
		bucket, key = host, p
	case strings.HasPrefix(host, "s3.") || strings.HasPrefix(host, "s3-"):
		parts := strings.SplitN(p, "/", 2)
		if len(parts) == 2 {
			bucket, key = parts[0], parts[1]
		}
	default:
		if i := strings.Index(host, ".s3"); i > 0 {
			bucket, key = host[:i], p
		}
	}
	if bucket == "" || key == "" {
		return "", "", fmt.Errorf("unable to parse S3 bucket and key from %q", location)
	}
	return bucket, key, nil
}

// Open reads through the S3 API when credentials are available and falls back to an
// unsigned HTTPS request otherwise, which suffices for public buckets.
func (e s3Engine) Open(ctx context.Context, location string) (io.ReadCloser, error) {
	bucket, key, err := parseS3Location(location)
	if err != nil {
		return nil, err
	}
	if !AnonymousS3 {
		bucketURL := fmt.Sprintf("s3://%s?region=%s", bucket, DefaultS3Region)
		r, err := openBlob(ctx, bucketURL, key)
		if err == nil {
			return r, nil
		}
		if core.IsNotFound(err) {
			return nil, err
		}
		core.Debugf("S3 API access to %s failed (%v), trying HTTPS\n", location, err)
	}
	httpsURL := location
	if strings.HasPrefix(location, "s3://") {
		httpsURL = fmt.Sprintf("https://%s.s3.amazonaws.com/%s", bucket, key)
	}
	return httpGet(ctx, httpsURL)
}
