package assets

import (
	"bytes"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/rs/zerolog/log"
)

var compressible = map[string]bool{
	".js":   true,
	".css":  true,
	".html": true,
	".map":  true,
	".json": true,
	".svg":  true,
	".txt":  true,
}

// precompress writes .gz and .zst siblings for text outputs so static servers can skip
// compressing on the fly.
func (p *Pipeline) precompress(files []File) error {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedBestCompression))
	if err != nil {
		return fmt.Errorf("failed to create encoder: %w", err)
	}
	defer enc.Close()

	for _, f := range files {
		if !compressible[path.Ext(f.Path)] {
			continue
		}

		source := filepath.Join(p.outdir, filepath.FromSlash(f.Path))
		data, err := os.ReadFile(source)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", f.Path, err)
		}

		gz, err := gzipBytes(data)
		if err != nil {
			return fmt.Errorf("failed to gzip %s: %w", f.Path, err)
		}
		if err := os.WriteFile(source+".gz", gz, 0o644); err != nil { //nolint:gosec
			return err
		}

		zst := enc.EncodeAll(data, nil)
		if err := os.WriteFile(source+".zst", zst, 0o644); err != nil { //nolint:gosec
			return err
		}

		log.Debug().
			Str("file", f.Path).
			Int("original", len(data)).
			Int("gzip", len(gz)).
			Int("zstd", len(zst)).
			Msg("Precompressed file")
	}
	return nil
}

func gzipBytes(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := gzip.NewWriterLevel(&buf, gzip.BestCompression)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
