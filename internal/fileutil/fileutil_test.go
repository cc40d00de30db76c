package fileutil

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestArtifactPath(t *testing.T) {
	got, err := ArtifactPath("/work", "job1", "browser", "pdf")
	if err != nil {
		t.Fatalf("ArtifactPath() error = %v", err)
	}
	want := filepath.Join("/work", "report2pdf-job1-browser.pdf")
	if got != want {
		t.Errorf("ArtifactPath() = %q, want %q", got, want)
	}
}

func TestArtifactPathRejectsUnsafeParts(t *testing.T) {
	tests := []struct {
		name                    string
		dir, job, strategy, ext string
		wantErr                 error
	}{
		{"empty dir", "", "j", "s", "pdf", ErrNoArtifactDir},
		{"empty job", "/w", "", "s", "pdf", ErrEmptyJobID},
		{"separator in job", "/w", "../escape", "s", "pdf", ErrUnsafeName},
		{"separator in ext", "/w", "j", "s", "pdf/../x", ErrUnsafeName},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ArtifactPath(tt.dir, tt.job, tt.strategy, tt.ext); !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestWriteJobTempFile(t *testing.T) {
	dir := t.TempDir()
	path, cleanup, err := WriteJobTempFile(dir, "job9", "<html></html>", "html")
	if err != nil {
		t.Fatalf("WriteJobTempFile() error = %v", err)
	}

	base := filepath.Base(path)
	if !strings.HasPrefix(base, "report2pdf-job9-tmp-") || !strings.HasSuffix(base, ".html") {
		t.Errorf("temp file name %q does not follow the job-scoped convention", base)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "<html></html>" {
		t.Errorf("content = %q", data)
	}

	cleanup()
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("cleanup left the temp file behind")
	}
}

func TestWriteJobTempFileEmptyContent(t *testing.T) {
	if _, _, err := WriteJobTempFile(t.TempDir(), "j", "", "html"); !errors.Is(err, ErrEmptyContent) {
		t.Errorf("error = %v, want ErrEmptyContent", err)
	}
}

func TestRemoveJobFiles(t *testing.T) {
	dir := t.TempDir()
	files := map[string]bool{ // name -> should survive
		"report2pdf-a-browser.pdf": false,
		"report2pdf-a-tmp-1.html":  false,
		"report2pdf-b-browser.pdf": true,
		"other.txt":                true,
	}
	for name := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	if err := RemoveJobFiles(dir, "a"); err != nil {
		t.Fatalf("RemoveJobFiles() error = %v", err)
	}

	for name, survives := range files {
		_, err := os.Stat(filepath.Join(dir, name))
		if survives && err != nil {
			t.Errorf("%s removed, belongs to another job", name)
		}
		if !survives && !os.IsNotExist(err) {
			t.Errorf("%s not removed", name)
		}
	}
}

func TestFileExists(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "f.txt")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	if !FileExists(file) {
		t.Error("FileExists() = false for a regular file")
	}
	if FileExists(dir) {
		t.Error("FileExists() = true for a directory")
	}
	if FileExists(filepath.Join(dir, "absent")) {
		t.Error("FileExists() = true for a missing path")
	}
}

func TestIsFilePath(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"config.yaml", false},
		{"./config.yaml", true},
		{"/etc/report2pdf/config.yaml", true},
		{`C:\configs\r.yaml`, true},
	}
	for _, tt := range tests {
		if got := IsFilePath(tt.in); got != tt.want {
			t.Errorf("IsFilePath(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
