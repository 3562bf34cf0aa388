package backup

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestCaptureFilesystemTargetProducesChecksummedArchive(t *testing.T) {
	src := t.TempDir()
	if err := os.WriteFile(filepath.Join(src, "config.yml"), []byte("key: value\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	workDir := t.TempDir()
	target := Target{ID: "cfg", Name: "config", Type: TargetFilesystem, Path: src}

	path, size, checksum, err := capture(context.Background(), target, workDir)
	if err != nil {
		t.Fatalf("capture failed: %v", err)
	}
	if size == 0 {
		t.Fatal("expected non-zero archive size")
	}
	if len(checksum) != 64 {
		t.Fatalf("expected a 64-char hex sha256, got %d chars", len(checksum))
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected archive to exist at %s: %v", path, err)
	}

	_, _, checksum2, err := capture(context.Background(), target, workDir)
	if err != nil {
		t.Fatalf("second capture failed: %v", err)
	}
	if checksum2 != checksum {
		t.Fatalf("expected deterministic content checksum across runs, got %q != %q", checksum, checksum2)
	}
}

func TestCaptureUnsupportedTargetType(t *testing.T) {
	_, _, _, err := capture(context.Background(), Target{ID: "x", Type: "bogus"}, t.TempDir())
	if err == nil {
		t.Fatal("expected an error for an unsupported target type")
	}
}
