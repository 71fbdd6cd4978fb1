/*
Package fetch retrieves content-addressed artifacts into a local cache directory,
verifying the SHA1 of every downloaded byte before the artifact becomes visible.

Location types are served by registered engines.  Built-in engines:

	S3     https://<bucket>.s3.amazonaws.com/<key>, via gocloud s3blob with plain HTTPS fallback
	blob   any gocloud blob URL, e.g., gs://bucket/key, s3://bucket/key, file:///dir/key
	http   plain HTTP(S) GET (also registered as "https")
	file   a local path or file:// URL
*/
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/blang/semver"
	"github.com/dapello/brainio/core"
)

// Engine opens a byte stream for a location of one location type.
type Engine interface {
	GetName() string
	GetDescription() string
	GetSemVer() semver.Version

	// Open returns a reader over the artifact at location.  The caller closes it.
	Open(ctx context.Context, location string) (io.ReadCloser, error)
}

var (
	enginesMu sync.RWMutex
	engines   = map[string]Engine{}
)

// RegisterEngine makes an engine available for its name as location type.
// Location types are matched case-insensitively.
func RegisterEngine(e Engine) {
	enginesMu.Lock()
	engines[strings.ToLower(e.GetName())] = e
	enginesMu.Unlock()
}

// GetEngine returns the engine serving a location type.
func GetEngine(locationType string) (Engine, error) {
	enginesMu.RLock()
	defer enginesMu.RUnlock()
	e, found := engines[strings.ToLower(locationType)]
	if !found {
		return nil, fmt.Errorf("no fetch engine for location type %q", locationType)
	}
	return e, nil
}

// EnginesAvailable returns a description of each registered engine.
func EnginesAvailable() string {
	enginesMu.RLock()
	defer enginesMu.RUnlock()
	var descs []string
	for _, e := range engines {
		descs = append(descs, fmt.Sprintf("%s [%s]: %s", e.GetName(), e.GetSemVer(), e.GetDescription()))
	}
	sort.Strings(descs)
	return strings.Join(descs, "; ")
}

// engineInfo carries the name, description and version common to built-in engines.
type engineInfo struct {
	name   string
	desc   string
	semver semver.Version
}

func newEngineInfo(name, desc, version string) engineInfo {
	ver, err := semver.Make(version)
	if err != nil {
		core.Errorf("Unable to make semver in %s engine: %v\n", name, err)
	}
	return engineInfo{name, desc, ver}
}

func (e engineInfo) GetName() string {
	return e.name
}

func (e engineInfo) GetDescription() string {
	return e.desc
}

func (e engineInfo) GetSemVer() semver.Version {
	return e.semver
}

func (e engineInfo) String() string {
	return fmt.Sprintf("%s [%s]", e.name, e.semver)
}

func init() {
	RegisterEngine(s3Engine{newEngineInfo("S3", "Amazon S3 objects addressed by virtual-hosted HTTPS URL", "0.1.0")})
	RegisterEngine(blobEngine{newEngineInfo("blob", "Go Cloud blob URLs (gs, s3, file)", "0.1.0")})
	RegisterEngine(httpEngine{newEngineInfo("http", "HTTP GET", "0.1.0")})
	RegisterEngine(httpEngine{newEngineInfo("https", "HTTPS GET", "0.1.0")})
	RegisterEngine(fileEngine{newEngineInfo("file", "Local file system", "0.1.0")})
}

// Configure applies engine settings, e.g., from the [fetch.engine] table of a TOML
// configuration.  Recognized keywords:
//
//	s3_region     region used for S3 API access (string)
//	anonymous_s3  read S3 locations over plain HTTPS only (bool)
//	timeout       seconds allowed for each HTTP(S) request, 0 for none (int)
func Configure(c core.Config) error {
	region, found, err := c.GetString("s3_region")
	if err != nil {
		return err
	}
	if found {
		DefaultS3Region = region
	}
	anonymous, found, err := c.GetBool("anonymous_s3")
	if err != nil {
		return err
	}
	if found {
		AnonymousS3 = anonymous
	}
	timeout, found, err := c.GetInt("timeout")
	if err != nil {
		return err
	}
	if found {
		if timeout < 0 {
			return fmt.Errorf("negative fetch timeout %d", timeout)
		}
		HTTPClient = &http.Client{Timeout: time.Duration(timeout) * time.Second}
	}
	return nil
}
