package assets

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/minio/crc64nvme"
	"github.com/mr-tron/base58"
)

// Manifest is written next to the outputs so servers can map bundles to files.
type Manifest struct {
	BuildID string            `json:"buildId"`
	Mode    string            `json:"mode"`
	Entries map[string]string `json:"entries"`
	Files   []File            `json:"files"`
}

func (p *Pipeline) writeManifest(res *Result) error {
	manifest := Manifest{
		BuildID: res.BuildID,
		Mode:    res.Mode.String(),
		Entries: res.Entries,
		Files:   res.Files,
	}

	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}

	target := filepath.Join(p.outdir, filepath.FromSlash(p.opts.ManifestPath))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	return os.WriteFile(target, data, 0o644) //nolint:gosec
}

// ReadManifest loads a manifest written by a previous build.
func ReadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var manifest Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("failed to decode manifest: %w", err)
	}
	return &manifest, nil
}

// checksum is the base58 encoded CRC64-NVME of contents.
func checksum(contents []byte) string {
	h := crc64nvme.New()
	h.Write(contents)

	var sum [8]byte
	binary.BigEndian.PutUint64(sum[:], h.Sum64())
	return base58.Encode(sum[:])
}
