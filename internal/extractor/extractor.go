package extractor

import (
	"archive/tar"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ErrUnsafePath is returned for archive entries that would be written
// outside the destination directory.
var ErrUnsafePath = errors.New("archive entry escapes destination")

// Extractor unpacks gzipped tarballs.
type Extractor struct{}

// NewExtractor creates a new extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract unpacks the tarball at tarballPath into destDir and returns the
// path of the archive's top-level directory. Only directories and regular
// files are written.
func (e *Extractor) Extract(tarballPath, destDir string) (string, error) {
	file, err := os.Open(tarballPath)
	if err != nil {
		return "", fmt.Errorf("opening tarball: %w", err)
	}
	defer file.Close()

	return e.ExtractReader(file, destDir)
}

// ExtractReader is Extract for an already opened gzip stream.
func (e *Extractor) ExtractReader(r io.Reader, destDir string) (string, error) {
	gzReader, err := gzip.NewReader(r)
	if err != nil {
		return "", fmt.Errorf("decompressing tarball: %w", err)
	}
	defer gzReader.Close()

	if err := os.MkdirAll(destDir, 0755); err != nil {
		return "", fmt.Errorf("creating destination: %w", err)
	}

	tarReader := tar.NewReader(gzReader)
	var rootDir string

	for {
		header, err := tarReader.Next()
		if err == io.EOF {
			break
		}
		if errors.Is(err, tar.ErrInsecurePath) {
			return "", fmt.Errorf("%w: %s", ErrUnsafePath, header.Name)
		}
		if err != nil {
			return "", fmt.Errorf("reading tarball: %w", err)
		}

		if header.Typeflag != tar.TypeDir && header.Typeflag != tar.TypeReg {
			continue
		}

		target, err := safeJoin(destDir, header.Name)
		if err != nil {
			return "", err
		}

		// Get the root directory name from the first entry
		if rootDir == "" {
			rootDir = strings.SplitN(strings.TrimPrefix(header.Name, "./"), "/", 2)[0]
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0755); err != nil {
				return "", fmt.Errorf("creating directory: %w", err)
			}
		case tar.TypeReg:
			if err := writeFile(target, tarReader, header.FileInfo().Mode().Perm()); err != nil {
				return "", err
			}
		}
	}

	if rootDir == "" {
		return "", fmt.Errorf("tarball is empty")
	}
	return filepath.Join(destDir, rootDir), nil
}

func writeFile(target string, r io.Reader, perm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}
	if perm == 0 {
		perm = 0644
	}
	f, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return fmt.Errorf("creating file: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", target, err)
	}
	return f.Close()
}

func safeJoin(destDir, name string) (string, error) {
	if filepath.IsAbs(name) || strings.HasPrefix(name, "/") {
		return "", fmt.Errorf("%w: %s", ErrUnsafePath, name)
	}
	target := filepath.Join(destDir, name)
	rel, err := filepath.Rel(destDir, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrUnsafePath, name)
	}
	return target, nil
}
