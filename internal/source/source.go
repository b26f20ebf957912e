// Package source locates the index tree the registry is built from,
// fetching a pinned snapshot of the crates.io index when needed.
package source

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/frederic-klein/cratefix/internal/downloader"
	"github.com/frederic-klein/cratefix/internal/extractor"
	"github.com/frederic-klein/cratefix/internal/index"
)

const (
	// DefaultCommit pins the crates.io index snapshot used for fixtures.
	DefaultCommit = "cb69ec98b649c4f57e48cb34c086ef150910f16a"
	// DefaultBaseURL is the repository the snapshot archive is taken from.
	DefaultBaseURL = "https://github.com/rust-lang/crates.io-index"
)

// Source kinds, as named in configuration.
const (
	KindSnapshot = "snapshot"
	KindHome     = "home"
)

// Source yields an index root and the file patterns to read below it.
type Source interface {
	Ensure(ctx context.Context) (string, error)
	Patterns() []string
}

// Snapshot is a content-addressed archive of the index, extracted once into
// a cache directory.
type Snapshot struct {
	Commit   string
	BaseURL  string
	CacheDir string

	downloader *downloader.Downloader
	extractor  *extractor.Extractor
	logger     *log.Logger
}

// NewSnapshot creates a snapshot source.
func NewSnapshot(commit, baseURL, cacheDir string, dl *downloader.Downloader, logger *log.Logger) *Snapshot {
	if commit == "" {
		commit = DefaultCommit
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if dl == nil {
		dl = downloader.NewDownloader()
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Snapshot{
		Commit:     commit,
		BaseURL:    strings.TrimSuffix(baseURL, "/"),
		CacheDir:   cacheDir,
		downloader: dl,
		extractor:  extractor.NewExtractor(),
		logger:     logger,
	}
}

// Root is where the extracted index lives.
func (s *Snapshot) Root() string {
	return filepath.Join(s.CacheDir, "crates.io-index-"+s.Commit)
}

// ArchiveURL is the address of the snapshot tarball.
func (s *Snapshot) ArchiveURL() string {
	return fmt.Sprintf("%s/archive/%s.tar.gz", s.BaseURL, s.Commit)
}

// Patterns implements Source.
func (s *Snapshot) Patterns() []string {
	return index.DefaultPatterns
}

// Ensure fetches and extracts the snapshot unless Root already exists.
func (s *Snapshot) Ensure(ctx context.Context) (string, error) {
	root := s.Root()
	if info, err := os.Stat(root); err == nil && info.IsDir() {
		return root, nil
	}

	if err := os.MkdirAll(s.CacheDir, 0755); err != nil {
		return "", fmt.Errorf("creating cache dir: %w", err)
	}

	archive := filepath.Join(s.CacheDir, s.Commit+".tar.gz")
	s.logger.Info("Fetching index snapshot", "url", s.ArchiveURL())
	if err := s.downloader.Download(ctx, downloader.Job{URL: s.ArchiveURL(), DestPath: archive}); err != nil {
		return "", fmt.Errorf("fetching index snapshot: %w", err)
	}

	tmpDir, err := os.MkdirTemp(s.CacheDir, ".extract-*")
	if err != nil {
		return "", fmt.Errorf("creating temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	s.logger.Info("Extracting index snapshot", "dest", root)
	extracted, err := s.extractor.Extract(archive, tmpDir)
	if err != nil {
		// a broken archive would otherwise count as a cache hit next run
		os.Remove(archive)
		return "", fmt.Errorf("extracting index snapshot: %w", err)
	}
	if err := os.Rename(extracted, root); err != nil {
		return "", fmt.Errorf("moving index snapshot: %w", err)
	}

	os.Remove(archive)
	return root, nil
}

// Dir is an index tree already present on disk.
type Dir struct {
	Path     string
	patterns []string
}

// NewDir creates a source for an existing directory.
func NewDir(path string, patterns []string) *Dir {
	if len(patterns) == 0 {
		patterns = index.DefaultPatterns
	}
	return &Dir{Path: path, patterns: patterns}
}

// Ensure implements Source. It never creates anything.
func (d *Dir) Ensure(ctx context.Context) (string, error) {
	info, err := os.Stat(d.Path)
	if err != nil || !info.IsDir() {
		return "", fmt.Errorf("%w: %s", index.ErrMissingIndex, d.Path)
	}
	return d.Path, nil
}

// Patterns implements Source.
func (d *Dir) Patterns() []string {
	return d.patterns
}

// NewHome returns the index checkouts in the user's cargo cache,
// <cargoHome>/registry/index/<registry>/...
func NewHome(cargoHome string) *Dir {
	return NewDir(filepath.Join(cargoHome, "registry", "index"), index.RegistryPatterns(index.DefaultPatterns))
}

// CargoHome resolves $CARGO_HOME, falling back to ~/.cargo.
func CargoHome() (string, error) {
	if dir := os.Getenv("CARGO_HOME"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".cargo"), nil
}
