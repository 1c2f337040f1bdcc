// Package snapshot computes table file digests and writes and restores
// xz-compressed backups with a JSON manifest alongside.
package snapshot

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/ulikunitz/xz"
	"github.com/zeebo/blake3"

	"github.com/takeuchi-shogo/go-example-rowstore/internal/storage"
)

var (
	// ErrTornFile is returned when a table file is not a whole number of rows.
	ErrTornFile = errors.New("file is not a whole number of rows")
	// ErrChecksumMismatch is returned when restored data does not match its manifest.
	ErrChecksumMismatch = errors.New("checksum mismatch")
	// ErrDestinationExists is returned by Restore instead of overwriting a file.
	ErrDestinationExists = errors.New("destination already exists")
)

// Manifest describes one backup archive.
type Manifest struct {
	Source    string    `json:"source"`
	Size      int64     `json:"size"`
	Rows      uint32    `json:"rows"`
	BLAKE3    string    `json:"blake3"`
	CreatedAt time.Time `json:"created_at"`
}

// ManifestPath returns where the manifest of archive is stored.
func ManifestPath(archive string) string {
	return archive + ".json"
}

// Checksum returns the hex BLAKE3-256 digest of everything read from r and
// the number of bytes read.
func Checksum(r io.Reader) (string, int64, error) {
	h := blake3.New()
	n, err := io.Copy(h, r)
	if err != nil {
		return "", n, err
	}
	return hex.EncodeToString(h.Sum(nil)), n, nil
}

// ChecksumFile returns the hex BLAKE3-256 digest of the file at path.
func ChecksumFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	sum, _, err := Checksum(f)
	if err != nil {
		return "", fmt.Errorf("failed to hash %s: %w", path, err)
	}
	return sum, nil
}

func checkWholeRows(size int64) error {
	if size%storage.RowSize != 0 {
		return fmt.Errorf("%w: %d bytes, %d left over", ErrTornFile, size, size%storage.RowSize)
	}
	return nil
}

// Backup compresses the table file src into the xz archive dst and writes
// the manifest next to it. The table must not be open for writing. On
// failure an existing archive at dst is left untouched.
func Backup(src, dst string) (*Manifest, error) {
	in, err := os.Open(src)
	if err != nil {
		return nil, err
	}
	defer in.Close()

	// 一時ファイルに圧縮し、検証が済んでから置き換える
	tmp, err := os.CreateTemp(filepath.Dir(dst), ".backup-*")
	if err != nil {
		return nil, err
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	m, err := compressTo(tmp, in, src)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return nil, err
	}

	if err := os.Chmod(tmpPath, 0644); err != nil {
		return nil, err
	}
	if err := os.Rename(tmpPath, dst); err != nil {
		return nil, err
	}
	if err := writeManifest(ManifestPath(dst), m); err != nil {
		return nil, err
	}
	return m, nil
}

// compressTo は src の内容を xz で out に書き、マニフェストを返す
func compressTo(out *os.File, in io.Reader, src string) (*Manifest, error) {
	xw, err := xz.NewWriter(out)
	if err != nil {
		return nil, fmt.Errorf("failed to create xz writer: %w", err)
	}

	h := blake3.New()
	size, err := io.Copy(io.MultiWriter(xw, h), in)
	if err != nil {
		return nil, fmt.Errorf("failed to compress %s: %w", src, err)
	}
	if err := checkWholeRows(size); err != nil {
		return nil, err
	}
	if err := xw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish xz stream: %w", err)
	}
	if err := out.Sync(); err != nil {
		return nil, err
	}

	return &Manifest{
		Source:    filepath.Base(src),
		Size:      size,
		Rows:      uint32(size / storage.RowSize),
		BLAKE3:    hex.EncodeToString(h.Sum(nil)),
		CreatedAt: time.Now().UTC(),
	}, nil
}

func writeManifest(path string, m *Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}

// LoadManifest reads the manifest stored next to archive.
func LoadManifest(archive string) (*Manifest, error) {
	data, err := os.ReadFile(ManifestPath(archive))
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	return &m, nil
}

// Restore decompresses the archive src into a new table file dst. The result
// must be a whole number of rows and, when a manifest exists, match its size
// and digest. Nothing is left at dst on failure.
func Restore(src, dst string) (*Manifest, error) {
	if _, err := os.Stat(dst); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrDestinationExists, dst)
	}

	want, err := LoadManifest(src)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	in, err := os.Open(src)
	if err != nil {
		return nil, err
	}
	defer in.Close()

	xr, err := xz.NewReader(in)
	if err != nil {
		return nil, fmt.Errorf("failed to create xz reader: %w", err)
	}

	// 一時ファイルに展開し、検証が済んでから置き換える
	tmp, err := os.CreateTemp(filepath.Dir(dst), ".restore-*")
	if err != nil {
		return nil, err
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	h := blake3.New()
	size, err := io.Copy(io.MultiWriter(tmp, h), xr)
	if err != nil {
		tmp.Close()
		return nil, fmt.Errorf("failed to decompress %s: %w", src, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return nil, err
	}
	if err := tmp.Close(); err != nil {
		return nil, err
	}

	if err := checkWholeRows(size); err != nil {
		return nil, err
	}
	got := &Manifest{
		Source:    filepath.Base(dst),
		Size:      size,
		Rows:      uint32(size / storage.RowSize),
		BLAKE3:    hex.EncodeToString(h.Sum(nil)),
		CreatedAt: time.Now().UTC(),
	}
	if want != nil && (want.Size != got.Size || want.BLAKE3 != got.BLAKE3) {
		return nil, fmt.Errorf("%w: manifest has %d bytes %s, archive has %d bytes %s",
			ErrChecksumMismatch, want.Size, want.BLAKE3, got.Size, got.BLAKE3)
	}

	if err := os.Chmod(tmpPath, 0644); err != nil {
		return nil, err
	}
	if err := os.Rename(tmpPath, dst); err != nil {
		return nil, err
	}
	return got, nil
}
