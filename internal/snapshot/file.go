package snapshot

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"go.uber.org/zap"
)

// Stdio is the path that reads from stdin or writes to stdout.
const Stdio = "-"

// Format is a snapshot storage format.
type Format string

const (
	FormatJSON     Format = "json"
	FormatJSONGzip Format = "json.gz"
	FormatJSONZstd Format = "json.zst"
	FormatSQLite   Format = "sqlite"
)

func logger() *zap.Logger {
	return zap.L().Named("snapshot")
}

// FormatOf returns the storage format selected by the extension of path.
func FormatOf(path string) (Format, error) {
	name := strings.ToLower(filepath.Base(path))
	switch {
	case path == Stdio:
		return FormatJSON, nil
	case strings.HasSuffix(name, ".json.gz"):
		return FormatJSONGzip, nil
	case strings.HasSuffix(name, ".json.zst"):
		return FormatJSONZstd, nil
	case strings.HasSuffix(name, ".json"):
		return FormatJSON, nil
	case strings.HasSuffix(name, ".sqlite"):
		return FormatSQLite, fmt.Errorf("%w: sqlite snapshots", ErrNotImplemented)
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
}

// Save writes s to path in the format chosen by its extension. An existing
// file is only replaced when force is set. The file is written to a
// temporary sibling and renamed into place.
func Save(path string, s *Snapshot, force bool) error {
	format, err := FormatOf(path)
	if err != nil {
		return err
	}

	if path == Stdio {
		return Encode(os.Stdout, s)
	}

	if err := CheckWritable(path, force); err != nil {
		return err
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temporary file: %w", err)
	}
	defer func() {
		_ = os.Remove(tmp.Name())
	}()

	if err := write(tmp, format, s); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("saving snapshot: %w", err)
	}

	logger().Info("snapshot saved",
		zap.String("path", path),
		zap.String("format", string(format)),
		zap.Int("prs", len(s.PullRequests)),
		zap.Int("releases", len(s.Releases)),
	)
	return nil
}

// Load reads a snapshot from path in the format chosen by its extension.
func Load(path string) (*Snapshot, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}

	if path == Stdio {
		return Decode(os.Stdin)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = f.Close()
	}()

	s, err := read(f, format)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}

	logger().Debug("snapshot loaded",
		zap.String("path", path),
		zap.Int("prs", len(s.PullRequests)),
		zap.Int("releases", len(s.Releases)),
	)
	return s, nil
}

// CheckWritable fails with ErrExists when path exists and force is not set.
func CheckWritable(path string, force bool) error {
	if path == Stdio {
		return nil
	}

	_, err := os.Stat(path)
	switch {
	case err == nil:
		if !force {
			return fmt.Errorf("%w: %s (use --force to overwrite)", ErrExists, path)
		}
		return nil
	case errors.Is(err, fs.ErrNotExist):
		return nil
	default:
		return err
	}
}

func write(w io.Writer, format Format, s *Snapshot) error {
	switch format {
	case FormatJSON:
		return Encode(w, s)

	case FormatJSONGzip:
		gz := gzip.NewWriter(w)
		if err := Encode(gz, s); err != nil {
			_ = gz.Close()
			return err
		}
		return gz.Close()

	case FormatJSONZstd:
		zw, err := zstd.NewWriter(w)
		if err != nil {
			return err
		}
		if err := Encode(zw, s); err != nil {
			_ = zw.Close()
			return err
		}
		return zw.Close()

	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}

func read(r io.Reader, format Format) (*Snapshot, error) {
	switch format {
	case FormatJSON:
		return Decode(r)

	case FormatJSONGzip:
		gz, err := gzip.NewReader(r)
		if err != nil {
			return nil, err
		}
		defer func() {
			_ = gz.Close()
		}()
		return Decode(gz)

	case FormatJSONZstd:
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, err
		}
		defer zr.Close()
		return Decode(zr)

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}
