package persistence

import (
	"bufio"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/LaunchDay-Studio-Inc/linesremain/internal/sim"
)

// World archives: a point-in-time copy of everything the database
// holds, written as a zstd-compressed gob with a JSON header line so
// `zstd -d | head -1` identifies a file without decoding the body.

const archiveVersion = 1

// ArchiveHeader identifies an archive file.
type ArchiveHeader struct {
	Version int       `json:"version"`
	Tick    uint64    `json:"tick"`
	SavedAt time.Time `json:"savedAt"`
}

// WorldArchive is the full archived state.
type WorldArchive struct {
	Header    ArchiveHeader
	Players   []sim.PlayerRecord
	Buildings []sim.BuildingRecord
}

// WriteArchive saves an archive to path, creating directories as
// needed.
func WriteArchive(path string, arch WorldArchive) error {
	arch.Header.Version = archiveVersion
	if arch.Header.SavedAt.IsZero() {
		arch.Header.SavedAt = time.Now().UTC()
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	defer enc.Close()

	bw := bufio.NewWriterSize(enc, 64*1024)
	defer bw.Flush()

	hb, _ := json.Marshal(arch.Header)
	if _, err := bw.Write(hb); err != nil {
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		return err
	}
	if err := gob.NewEncoder(bw).Encode(&arch); err != nil {
		return fmt.Errorf("gob encode: %w", err)
	}
	return nil
}

// ReadArchive loads an archive written by WriteArchive.
func ReadArchive(path string) (WorldArchive, error) {
	var arch WorldArchive

	f, err := os.Open(path)
	if err != nil {
		return arch, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return arch, err
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 64*1024)
	headerLine, err := br.ReadBytes('\n')
	if err != nil {
		return arch, fmt.Errorf("archive header: %w", err)
	}
	var header ArchiveHeader
	if err := json.Unmarshal(headerLine, &header); err != nil {
		return arch, fmt.Errorf("archive header: %w", err)
	}
	if header.Version != archiveVersion {
		return arch, fmt.Errorf("unsupported archive version %d", header.Version)
	}

	if err := gob.NewDecoder(br).Decode(&arch); err != nil {
		return arch, fmt.Errorf("gob decode: %w", err)
	}
	return arch, nil
}

// ArchivePath names an archive file inside dir for the given tick.
func ArchivePath(dir string, tick uint64) string {
	return filepath.Join(dir, fmt.Sprintf("world-%012d.zst", tick))
}
