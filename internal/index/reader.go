package index

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/frederic-klein/cratefix/internal/registry"
)

const maxLineSize = 16 * 1024 * 1024

// Desugarer translates one requirement string.
type Desugarer interface {
	Desugar(req string) (string, error)
}

// Reader builds a registry from index files.
type Reader struct {
	desugarer  Desugarer
	normalizer registry.Normalizer
	strategy   registry.MergeStrategy
	workers    int
	logger     *log.Logger
}

// Option configures a Reader.
type Option func(*Reader)

// WithNormalizer sets how package and dependency names become keys.
func WithNormalizer(n registry.Normalizer) Option {
	return func(r *Reader) {
		r.normalizer = n
	}
}

// WithMergeStrategy sets how packages defined in several files combine.
func WithMergeStrategy(s registry.MergeStrategy) Option {
	return func(r *Reader) {
		r.strategy = s
	}
}

// WithWorkers bounds the number of files read concurrently.
func WithWorkers(n int) Option {
	return func(r *Reader) {
		if n > 0 {
			r.workers = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(r *Reader) {
		r.logger = l
	}
}

// NewReader creates a reader. Names are kept verbatim unless a normalizer
// is supplied.
func NewReader(d Desugarer, opts ...Option) *Reader {
	r := &Reader{
		desugarer:  d,
		normalizer: registry.RawNames(),
		strategy:   registry.MergeReplace,
		workers:    runtime.NumCPU(),
		logger:     log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Load discovers the index files below root and reads them.
func (r *Reader) Load(ctx context.Context, root string, patterns []string) (registry.Registry, error) {
	files, err := Discover(root, patterns)
	if err != nil {
		return nil, err
	}
	r.logger.Info("Reading index", "root", root, "files", len(files))
	return r.Read(ctx, files)
}

// Read parses files concurrently and folds the partial registries in file
// order, so the result only depends on the order of files.
func (r *Reader) Read(ctx context.Context, files []string) (registry.Registry, error) {
	partials := make([]registry.Registry, len(files))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for i, path := range files {
		i, path := i, path
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			reg, err := r.ReadFile(path)
			if err != nil {
				return err
			}
			partials[i] = reg
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	reg := make(registry.Registry)
	for _, partial := range partials {
		reg.Merge(partial, r.strategy)
	}
	return reg, nil
}

// ReadFile parses a single index file.
func (r *Reader) ReadFile(path string) (registry.Registry, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening index file: %w", err)
	}
	defer file.Close()

	reg, err := r.Parse(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return reg, nil
}

// Parse reads newline-delimited version records. Blank lines are skipped;
// any other line that is not a valid record fails the whole parse.
func (r *Reader) Parse(in io.Reader) (registry.Registry, error) {
	reg := make(registry.Registry)

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if strings.TrimSpace(string(line)) == "" {
			continue
		}

		var rec registry.Record
		if err := json.Unmarshal(line, &rec); err != nil {
			return nil, fmt.Errorf("line %d: parsing record: %w", lineNo, err)
		}
		if rec.Name == "" || rec.Vers == "" {
			return nil, fmt.Errorf("line %d: record missing name or vers", lineNo)
		}

		deps, err := r.dependencies(rec)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}

		key := r.normalizer.Key(rec.Name)
		table, ok := reg[key]
		if !ok {
			table = make(registry.VersionTable)
			reg[key] = table
		}
		table[registry.StripBuildMetadata(rec.Vers)] = deps
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading index file: %w", err)
	}
	return reg, nil
}

func (r *Reader) dependencies(rec registry.Record) (registry.DependencyMap, error) {
	deps := make(registry.DependencyMap)
	for _, dep := range rec.Deps {
		if !dep.Required() {
			continue
		}
		rng, err := r.desugarer.Desugar(dep.Req)
		if err != nil {
			return nil, fmt.Errorf("%s %s -> %s: %w", rec.Name, rec.Vers, dep.Name, err)
		}
		deps[r.normalizer.Key(dep.Name)] = rng
	}
	return deps, nil
}
