package extractor

import (
	"archive/tar"
	"compress/gzip"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

type entry struct {
	name    string
	content string
	dir     bool
}

func createTestTarball(t *testing.T, entries []entry) string {
	t.Helper()

	tarballPath := filepath.Join(t.TempDir(), "test.tar.gz")

	f, err := os.Create(tarballPath)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	gw := gzip.NewWriter(f)
	defer gw.Close()

	tw := tar.NewWriter(gw)
	defer tw.Close()

	for _, e := range entries {
		hdr := &tar.Header{
			Name:     e.name,
			Mode:     0644,
			Size:     int64(len(e.content)),
			Typeflag: tar.TypeReg,
		}
		if e.dir {
			hdr.Mode = 0755
			hdr.Size = 0
			hdr.Typeflag = tar.TypeDir
		}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatal(err)
		}
		if !e.dir {
			if _, err := tw.Write([]byte(e.content)); err != nil {
				t.Fatal(err)
			}
		}
	}

	return tarballPath
}

func TestExtractor_Extract(t *testing.T) {
	// Arrange
	tarballPath := createTestTarball(t, []entry{
		{name: "crates.io-index-abc/", dir: true},
		{name: "crates.io-index-abc/config.json", content: `{"dl":"x"}`},
		{name: "crates.io-index-abc/3/l/log", content: `{"name":"log","vers":"0.4.0","deps":[]}`},
	})
	destDir := t.TempDir()

	// Act
	root, err := NewExtractor().Extract(tarballPath, destDir)

	// Assert
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if want := filepath.Join(destDir, "crates.io-index-abc"); root != want {
		t.Errorf("root = %q, want %q", root, want)
	}
	data, err := os.ReadFile(filepath.Join(root, "3", "l", "log"))
	if err != nil {
		t.Fatalf("reading extracted file: %v", err)
	}
	if string(data) != `{"name":"log","vers":"0.4.0","deps":[]}` {
		t.Errorf("extracted content = %q", data)
	}
}

func TestExtractor_Extract_WithoutDirEntries(t *testing.T) {
	tarballPath := createTestTarball(t, []entry{
		{name: "index/se/rd/serde", content: "{}"},
	})
	destDir := t.TempDir()

	root, err := NewExtractor().Extract(tarballPath, destDir)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "se", "rd", "serde")); err != nil {
		t.Errorf("extracted file missing: %v", err)
	}
}

func TestExtractor_Extract_RejectsTraversal(t *testing.T) {
	tests := []string{"../evil", "index/../../evil"}

	for _, name := range tests {
		t.Run(name, func(t *testing.T) {
			tarballPath := createTestTarball(t, []entry{{name: name, content: "x"}})

			_, err := NewExtractor().Extract(tarballPath, t.TempDir())
			if !errors.Is(err, ErrUnsafePath) {
				t.Errorf("Extract() error = %v, want ErrUnsafePath", err)
			}
		})
	}
}

func TestExtractor_Extract_NotGzip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plain.tar.gz")
	if err := os.WriteFile(path, []byte("not gzip"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := NewExtractor().Extract(path, t.TempDir()); err == nil {
		t.Error("Extract() should fail on non-gzip input")
	}
}

func TestExtractor_Extract_Empty(t *testing.T) {
	tarballPath := createTestTarball(t, nil)

	if _, err := NewExtractor().Extract(tarballPath, t.TempDir()); err == nil {
		t.Error("Extract() should fail on an empty tarball")
	}
}
