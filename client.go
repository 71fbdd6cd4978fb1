package brainio

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/DmitriyVTitov/size"
	"github.com/dustin/go-humanize"
	"github.com/golang/groupcache/lru"
	"github.com/golang/groupcache/singleflight"
	"golang.org/x/sync/errgroup"

	"github.com/dapello/brainio/assemblies"
	"github.com/dapello/brainio/core"
	"github.com/dapello/brainio/fetch"
	"github.com/dapello/brainio/lookup"
	"github.com/dapello/brainio/stimuli"
)

// Attributes set on every assembly returned by a Client.
const (
	AttrIdentifier            = "identifier"
	AttrStimulusSetIdentifier = "stimulus_set_identifier"
)

// Client resolves identifiers, fetches their artifacts and keeps loaded assemblies
// and stimulus sets for the life of the process.  It is safe for concurrent use.
type Client struct {
	resolver *lookup.Resolver
	fetcher  *fetch.Fetcher

	maxAssemblies int

	mu           sync.Mutex
	assemblies   *lru.Cache
	stimulusSets map[string]*stimuli.StimulusSet

	loading singleflight.Group
}

// Option configures a Client.
type Option func(*Client)

// WithMaxAssemblies bounds the number of assemblies kept in memory.  0, the default,
// keeps them all.
func WithMaxAssemblies(n int) Option {
	return func(c *Client) {
		c.maxAssemblies = n
	}
}

// NewClient returns a client using the given resolver and fetcher.
func NewClient(resolver *lookup.Resolver, fetcher *fetch.Fetcher, opts ...Option) *Client {
	c := &Client{
		resolver:     resolver,
		fetcher:      fetcher,
		stimulusSets: make(map[string]*stimuli.StimulusSet),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.assemblies = lru.New(c.maxAssemblies)
	c.assemblies.OnEvicted = func(key lru.Key, value interface{}) {
		core.Debugf("Evicted assembly %v from memory\n", key)
	}
	return c
}

// New sets up logging and returns a client for the configuration.
func New(cfg Config) (*Client, error) {
	cfg.Logging.SetLogger()
	if err := fetch.Configure(cfg.Fetch.EngineConfig()); err != nil {
		return nil, fmt.Errorf("bad [fetch.engine] settings: %v", err)
	}
	if cfg.Fetch.Home == "" {
		cfg.Fetch.Home = DefaultHome()
	}
	sources := cfg.Sources()
	if len(sources) == 0 {
		return nil, fmt.Errorf("no catalogs configured or registered")
	}
	core.Infof("Using catalogs %v with cache %s\n", sources, cfg.Fetch.Home)
	resolver := lookup.NewResolver(sources...)
	fetcher := fetch.NewFetcher(cfg.Fetch.Home, cfg.Fetch.CacheMB*core.Mega)
	return NewClient(resolver, fetcher, WithMaxAssemblies(cfg.Cache.MaxAssemblies)), nil
}

func (c *Client) Resolver() *lookup.Resolver {
	return c.resolver
}

func (c *Client) Fetcher() *fetch.Fetcher {
	return c.fetcher
}

func (c *Client) ListAssemblies() ([]string, error) {
	return c.resolver.ListAssemblies()
}

func (c *Client) ListStimulusSets() ([]string, error) {
	return c.resolver.ListStimulusSets()
}

func (c *Client) cachedAssembly(identifier string) (*assemblies.Assembly, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, found := c.assemblies.Get(identifier)
	if !found {
		return nil, false
	}
	return v.(*assemblies.Assembly), true
}

// GetAssembly returns the assembly with the given identifier, loading it on first
// use.  The stimulus set it refers to, if any, is attached.
func (c *Client) GetAssembly(ctx context.Context, identifier string) (*assemblies.Assembly, error) {
	if assy, found := c.cachedAssembly(identifier); found {
		return assy, nil
	}
	v, err := c.loading.Do("assembly/"+identifier, func() (interface{}, error) {
		if assy, found := c.cachedAssembly(identifier); found {
			return assy, nil
		}
		assy, err := c.loadAssembly(ctx, identifier)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.assemblies.Add(identifier, assy)
		c.mu.Unlock()
		return assy, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*assemblies.Assembly), nil
}

func (c *Client) loadAssembly(ctx context.Context, identifier string) (*assemblies.Assembly, error) {
	rec, err := c.resolver.ResolveAssembly(identifier)
	if err != nil {
		return nil, err
	}
	timedLog := core.NewTimeLog()
	path, err := c.fetcher.Fetch(ctx, rec.LocationType, rec.Location, rec.SHA1)
	if err != nil {
		return nil, err
	}
	assy, err := assemblies.Load(path, rec.Class)
	if err != nil {
		return nil, fmt.Errorf("assembly %q: %w", identifier, err)
	}
	attrs := assy.Attrs()
	attrs[AttrIdentifier] = identifier
	if rec.StimulusSetIdentifier != "" {
		attrs[AttrStimulusSetIdentifier] = rec.StimulusSetIdentifier
		stimulusSet, err := c.GetStimulusSet(ctx, rec.StimulusSetIdentifier)
		if err != nil {
			return nil, fmt.Errorf("stimulus set of assembly %q: %w", identifier, err)
		}
		assy = assy.SetStimulusSet(stimulusSet)
	}
	assy = assy.WithAttrs(attrs)
	timedLog.Infof("Loaded %s %q %v, %s in memory", assy.Class(), identifier, assy.Shape(),
		humanize.Bytes(uint64(size.Of(assy.Values()))))
	return assy, nil
}

// GetStimulusSet returns the stimulus set with the given identifier, fetching its
// table and archive in parallel on first use.  Either may be missing from the
// catalogs, but not both.
func (c *Client) GetStimulusSet(ctx context.Context, identifier string) (*stimuli.StimulusSet, error) {
	c.mu.Lock()
	s, found := c.stimulusSets[identifier]
	c.mu.Unlock()
	if found {
		return s, nil
	}
	v, err := c.loading.Do("stimulus_set/"+identifier, func() (interface{}, error) {
		s, err := c.loadStimulusSet(ctx, identifier)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.stimulusSets[identifier] = s
		c.mu.Unlock()
		return s, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*stimuli.StimulusSet), nil
}

func (c *Client) loadStimulusSet(ctx context.Context, identifier string) (*stimuli.StimulusSet, error) {
	table, archive, err := c.resolver.ResolveStimulusSetLenient(identifier)
	if err != nil {
		return nil, err
	}
	var csvPath, zipPath string
	g, gctx := errgroup.WithContext(ctx)
	if table != nil {
		g.Go(func() (err error) {
			csvPath, err = c.fetcher.Fetch(gctx, table.LocationType, table.Location, table.SHA1)
			return
		})
	}
	if archive != nil {
		g.Go(func() (err error) {
			zipPath, err = c.fetcher.Fetch(gctx, archive.LocationType, archive.Location, archive.SHA1)
			return
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	dir := ""
	if zipPath != "" {
		dir = strings.TrimSuffix(zipPath, filepath.Ext(zipPath))
	}
	return stimuli.Load(identifier, csvPath, zipPath, dir)
}

// Prefetch fetches the artifacts of the given assemblies and stimulus sets into the
// local cache without loading them.
func (c *Client) Prefetch(ctx context.Context, identifiers ...string) error {
	var records []lookup.Record
	seen := make(map[string]bool)
	for _, id := range identifiers {
		if seen[id] {
			continue
		}
		seen[id] = true
		rec, err := c.resolver.ResolveAssembly(id)
		if err == nil {
			records = append(records, rec)
			continue
		}
		if !core.IsNotFound(err) {
			return err
		}
		table, archive, err := c.resolver.ResolveStimulusSetLenient(id)
		if err != nil {
			return err
		}
		for _, r := range []*lookup.Record{table, archive} {
			if r != nil {
				records = append(records, *r)
			}
		}
	}
	g, gctx := errgroup.WithContext(ctx)
	for _, rec := range records {
		rec := rec
		g.Go(func() error {
			_, err := c.fetcher.Fetch(gctx, rec.LocationType, rec.Location, rec.SHA1)
			return err
		})
	}
	return g.Wait()
}

// Forget drops a loaded assembly so the next GetAssembly reloads it.
func (c *Client) Forget(identifier string) {
	c.mu.Lock()
	c.assemblies.Remove(identifier)
	c.mu.Unlock()
}
