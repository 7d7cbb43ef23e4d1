// Package service composes the cached resolver, filter engine, and pager
// into the query surface consumed by the HTTP and MCP boundaries.
package service

import (
	"database/sql"
	"errors"
	"io"
	"os"
	"slices"
	"sort"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/rs/zerolog"

	"github.com/agentic-research/panlens/api"
	"github.com/agentic-research/panlens/internal/cache"
	"github.com/agentic-research/panlens/internal/filter"
	"github.com/agentic-research/panlens/internal/page"
	"github.com/agentic-research/panlens/internal/panosdoc"
	"github.com/agentic-research/panlens/internal/resolve"
	"github.com/agentic-research/panlens/internal/store"
)

// Service serves read-only queries over a directory of configuration
// exports. It owns the cache manager and the accessor registry; both are
// built once here and never mutated afterwards.
type Service struct {
	fs       billy.Filesystem
	cache    *cache.Manager
	registry *filter.Registry
	log      zerolog.Logger
}

// New builds a Service over a filesystem of .xml exports. db may be nil to
// disable snapshot persistence.
func New(fs billy.Filesystem, db *sql.DB, log zerolog.Logger) *Service {
	s := &Service{
		fs:       fs,
		registry: filter.DefaultRegistry(),
		log:      log,
	}
	s.cache = cache.NewManager(cache.Config{
		FS:        fs,
		DB:        db,
		Parse:     ParseSnapshot,
		Rehydrate: func(snap *store.Snapshot) { snap.AttachSummaries(resolve.Aggregate(snap)) },
		Log:       log,
	})
	return s
}

// ParseSnapshot is the parse primitive the cache wraps: document parse plus
// record resolution plus aggregation.
func ParseSnapshot(name string, r io.Reader) (*store.Snapshot, error) {
	doc, err := panosdoc.Parse(r)
	if err != nil {
		return nil, err
	}
	return resolve.Resolve(doc), nil
}

// Registry exposes the accessor table, for boundaries that parse filters
// themselves.
func (s *Service) Registry() *filter.Registry { return s.registry }

// Cache exposes the cache manager, for tests and the warm command.
func (s *Service) Cache() *cache.Manager { return s.cache }

// Configs enumerates the available source files, sorted by name.
func (s *Service) Configs() ([]api.ConfigInfo, error) {
	infos, err := s.fs.ReadDir(".")
	if err != nil {
		return nil, err
	}
	var out []api.ConfigInfo
	for _, fi := range infos {
		if fi.IsDir() || !strings.HasSuffix(fi.Name(), ".xml") {
			continue
		}
		out = append(out, api.ConfigInfo{
			Name:    fi.Name(),
			Size:    fi.Size(),
			ModTime: fi.ModTime().Unix(),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// List runs the composed pipeline: cached snapshot, filter, page.
func (s *Service) List(config, kind string, params map[string][]string, pageNum, size int, disablePaging bool) (api.PageResult, error) {
	if !disablePaging {
		if pageNum < page.MinPage {
			return api.PageResult{}, &ValidationError{Msg: "page must be >= 1"}
		}
		if size < page.MinPageSize || size > page.MaxPageSize {
			return api.PageResult{}, &ValidationError{Msg: "page_size must be between 1 and 10000"}
		}
	}
	if !slices.Contains(api.Kinds(), kind) {
		return api.PageResult{}, &NotFoundError{What: "object kind " + kind}
	}
	snap, err := s.snapshot(config)
	if err != nil {
		return api.PageResult{}, err
	}

	preds := filter.Parse(params, s.registry, kind)
	records := snap.Kind(kind)
	filtered := records
	if len(preds) > 0 {
		filtered = make([]api.Record, 0, len(records))
		for _, rec := range records {
			if preds.Evaluate(rec) {
				filtered = append(filtered, rec)
			}
		}
	}

	w := page.Paginate(len(filtered), pageNum, size, disablePaging)
	return api.PageResult{
		Items:       filtered[w.Start:w.End],
		TotalItems:  w.Total,
		Page:        w.Page,
		PageSize:    w.PageSize,
		TotalPages:  w.TotalPages,
		HasNext:     w.HasNext,
		HasPrevious: w.HasPrevious,
	}, nil
}

// GetByName returns the first record of a kind with the given name.
func (s *Service) GetByName(config, kind, name string) (api.Record, error) {
	if !slices.Contains(api.Kinds(), kind) {
		return api.Record{}, &NotFoundError{What: "object kind " + kind}
	}
	snap, err := s.snapshot(config)
	if err != nil {
		return api.Record{}, err
	}
	rec, ok := snap.ByName(kind, name)
	if !ok {
		return api.Record{}, &NotFoundError{What: kind + " " + name}
	}
	return rec, nil
}

// FindBySourcePath resolves a stable source path back to its record.
func (s *Service) FindBySourcePath(config, path string) (api.Record, error) {
	snap, err := s.snapshot(config)
	if err != nil {
		return api.Record{}, err
	}
	rec, ok := snap.ByPath(path)
	if !ok {
		return api.Record{}, &NotFoundError{What: "object at " + path}
	}
	return rec, nil
}

// DeviceGroupSummary returns the aggregated counts for one device-group.
func (s *Service) DeviceGroupSummary(config, group string) (api.DeviceGroupSummary, error) {
	snap, err := s.snapshot(config)
	if err != nil {
		return api.DeviceGroupSummary{}, err
	}
	sum, ok := snap.Summary(group)
	if !ok {
		return api.DeviceGroupSummary{}, &NotFoundError{What: "device-group " + group}
	}
	return sum, nil
}

// DeviceGroupSummaries returns every device-group summary.
func (s *Service) DeviceGroupSummaries(config string) (map[string]api.DeviceGroupSummary, error) {
	snap, err := s.snapshot(config)
	if err != nil {
		return nil, err
	}
	return snap.Summaries(), nil
}

// Status reports the parse lifecycle stage for one configuration, starting
// a load for configurations that exist but have never been requested.
func (s *Service) Status(config string) (api.Status, error) {
	if status, ok, _ := s.cache.Status(config); ok {
		return status, nil
	}
	_, status, err := s.cache.Snapshot(config)
	if err != nil && status == "" {
		// The source file could not even be stat'd.
		if errors.Is(err, os.ErrNotExist) {
			return "", &NotFoundError{What: "configuration " + config}
		}
		return "", err
	}
	if status == "" {
		status = api.StatusLoading
	}
	return status, nil
}

// StatusAll reports the status of every configuration seen so far.
func (s *Service) StatusAll() map[string]api.Status {
	return s.cache.StatusAll()
}

// Retry restarts a failed parse.
func (s *Service) Retry(config string) error {
	return s.cache.Retry(config)
}

// snapshot fetches the servable snapshot for a configuration, translating
// cache states into the service error taxonomy. A stale snapshot during a
// refresh is served as-is.
func (s *Service) snapshot(config string) (*store.Snapshot, error) {
	snap, status, err := s.cache.Snapshot(config)
	if err != nil && errors.Is(err, os.ErrNotExist) {
		return nil, &NotFoundError{What: "configuration " + config}
	}
	if snap != nil {
		return snap, nil
	}
	switch status {
	case api.StatusFailed:
		return nil, &ParseFailedError{Config: config, Err: err}
	case api.StatusLoading:
		return nil, ErrNotReady
	}
	if err != nil {
		return nil, err
	}
	return nil, ErrNotReady
}
