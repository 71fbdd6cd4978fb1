package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"

	"github.com/dapello/brainio/core"
)

// HTTPClient is used by the http and S3 engines.
var HTTPClient = http.DefaultClient

func httpGet(ctx context.Context, location string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, err
	}
	resp, err := HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	switch {
	case resp.StatusCode == http.StatusNotFound:
		resp.Body.Close()
		return nil, &core.NotFoundError{Kind: "object", Identifier: location}
	case resp.StatusCode != http.StatusOK:
		resp.Body.Close()
		return nil, fmt.Errorf("GET %s: %s", location, resp.Status)
	}
	return resp.Body, nil
}

type httpEngine struct {
	engineInfo
}

func (e httpEngine) Open(ctx context.Context, location string) (io.ReadCloser, error) {
	return httpGet(ctx, location)
}

type fileEngine struct {
	engineInfo
}

func (e fileEngine) Open(ctx context.Context, location string) (io.ReadCloser, error) {
	p := location
	if u, err := url.Parse(location); err == nil && u.Scheme == "file" {
		p = u.Path
	}
	f, err := os.Open(filepath.FromSlash(p))
	if os.IsNotExist(err) {
		return nil, &core.NotFoundError{Kind: "file", Identifier: p}
	}
	if err != nil {
		return nil, err
	}
	return f, nil
}
