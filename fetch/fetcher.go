package fetch

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/coocood/freecache"
	"github.com/dapello/brainio/core"
	"github.com/dustin/go-humanize"
	"github.com/golang/groupcache/singleflight"
	"github.com/twinj/uuid"
)

// HashMismatchError is returned when fetched bytes do not have the expected digest.
type HashMismatchError struct {
	Location string
	Expected string
	Got      string
}

func (e *HashMismatchError) Error() string {
	return fmt.Sprintf("sha1 mismatch for %s: expected %s, got %s", e.Location, e.Expected, e.Got)
}

// Fetcher downloads artifacts into a content-addressed directory tree:
//
//	<home>/<sha1>/<basename of location>
//
// A file already in place is returned once its digest verifies.  Concurrent fetches of
// the same digest share a single download.
type Fetcher struct {
	home string

	// verified memoizes local paths whose digest was checked by this process.
	verified *freecache.Cache

	inflight singleflight.Group
}

// NewFetcher returns a fetcher caching under home.  cacheBytes sizes the memo of
// verified digests; 0 disables it and every cache hit is rehashed.
func NewFetcher(home string, cacheBytes int) *Fetcher {
	f := &Fetcher{home: home}
	if cacheBytes > 0 {
		f.verified = freecache.NewCache(cacheBytes)
	}
	return f
}

// Home returns the cache directory.
func (f *Fetcher) Home() string {
	return f.home
}

// LocalPath returns where an artifact with the given location and digest is cached.
func (f *Fetcher) LocalPath(location, sha1 string) string {
	return filepath.Join(f.home, strings.ToLower(sha1), baseName(location))
}

func baseName(location string) string {
	p := location
	if u, err := url.Parse(location); err == nil && u.Path != "" {
		p = u.Path
	}
	base := path.Base(filepath.ToSlash(p))
	if base == "." || base == "/" || base == "" {
		return "artifact"
	}
	return base
}

// Fetch returns a local path holding the verified artifact at location.
func (f *Fetcher) Fetch(ctx context.Context, locationType, location, sha1 string) (string, error) {
	if sha1 == "" {
		return "", fmt.Errorf("cannot fetch %s without a content hash", location)
	}
	dest := f.LocalPath(location, sha1)
	v, err := f.inflight.Do(dest, func() (interface{}, error) {
		return dest, f.fetch(ctx, locationType, location, sha1, dest)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (f *Fetcher) isVerified(dest, sha1 string) bool {
	if f.verified == nil {
		return false
	}
	digest, err := f.verified.Get([]byte(dest))
	if err != nil {
		if err != freecache.ErrNotFound {
			core.Errorf("Unable to check verified digest of %s: %v\n", dest, err)
		}
		return false
	}
	return core.SameDigest(string(digest), sha1)
}

func (f *Fetcher) setVerified(dest, sha1 string) {
	if f.verified == nil {
		return
	}
	if err := f.verified.Set([]byte(dest), []byte(strings.ToLower(sha1)), 0); err != nil {
		core.Errorf("Unable to memoize digest of %s: %v\n", dest, err)
	}
}

func (f *Fetcher) fetch(ctx context.Context, locationType, location, sha1, dest string) error {
	if _, err := os.Stat(dest); err == nil {
		if f.isVerified(dest, sha1) {
			return nil
		}
		switch err := VerifySHA1(dest, sha1); err.(type) {
		case nil:
			f.setVerified(dest, sha1)
			core.Debugf("Using cached %s\n", dest)
			return nil
		case *HashMismatchError:
			core.Warningf("Cached %s is corrupt (%v), fetching again\n", dest, err)
			if err := os.Remove(dest); err != nil {
				return err
			}
		default:
			return err
		}
	}

	engine, err := GetEngine(locationType)
	if err != nil {
		return err
	}
	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("unable to create cache directory %s: %w", dir, err)
	}

	timedLog := core.NewTimeLog()
	rc, err := engine.Open(ctx, location)
	if err != nil {
		return fmt.Errorf("unable to open %s via %s: %w", location, engine.GetName(), err)
	}
	defer rc.Close()

	tmpPath := filepath.Join(dir, "."+uuid.NewV4().String()+".part")
	out, err := os.Create(tmpPath)
	if err != nil {
		return err
	}
	counter := &countingWriter{w: out}
	got, err := core.HashReader(io.TeeReader(rc, counter))
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("unable to download %s: %w", location, err)
	}
	if !core.SameDigest(got, sha1) {
		os.Remove(tmpPath)
		return &HashMismatchError{Location: location, Expected: sha1, Got: got}
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		os.Remove(tmpPath)
		return err
	}
	f.setVerified(dest, sha1)
	timedLog.Infof("Fetched %s (%s) to %s", location, humanize.Bytes(counter.n), dest)
	return nil
}

type countingWriter struct {
	w io.Writer
	n uint64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += uint64(n)
	return n, err
}

// VerifySHA1 checks the digest of a local file.
func VerifySHA1(path, expected string) error {
	got, err := HashFile(path)
	if err != nil {
		return err
	}
	if !core.SameDigest(got, expected) {
		return &HashMismatchError{Location: path, Expected: expected, Got: got}
	}
	return nil
}

// HashFile returns the hex SHA1 of a local file, read in fixed-size chunks.
func HashFile(path string) (string, error) {
	return core.HashFile(path)
}
