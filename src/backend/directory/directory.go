package directory

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"lvm-backup/src/backend"
)

// File names inside an artifact directory.
const (
	ImageName     = "disk.raw.gz"
	ManifestName  = "manifest.json"
	ChecksumsName = "checksums.txt"
)

// Backend implements backend.Store over the nested filesystem layout
// <root>/<host>/<vg>/<lv>/<timestamp>/.
type Backend struct {
	Root string // absolute directory path
}

// New validates that root exists and is a directory.
func New(root string) (*Backend, error) {
	if root == "" {
		return nil, errors.New("destination directory must not be empty")
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("stat destination: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("destination is not a directory: %s", root)
	}
	return &Backend{Root: root}, nil
}

// ArtifactDir returns the directory path for one artifact.
func (b *Backend) ArtifactDir(host, vg, lv, timestamp string) string {
	return filepath.Join(b.Root, host, vg, lv, timestamp)
}

// List walks the host/vg/lv/timestamp tree and returns matching entries in
// a stable order.
func (b *Backend) List(f backend.Filter) ([]backend.Entry, error) {
	var entries []backend.Entry
	hosts, err := readDirNames(b.Root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	for _, host := range hosts {
		vgs, err := readDirNames(filepath.Join(b.Root, host))
		if err != nil {
			return nil, err
		}
		for _, vg := range vgs {
			lvs, err := readDirNames(filepath.Join(b.Root, host, vg))
			if err != nil {
				return nil, err
			}
			for _, lv := range lvs {
				timestamps, err := readDirNames(filepath.Join(b.Root, host, vg, lv))
				if err != nil {
					return nil, err
				}
				for _, ts := range timestamps {
					e := backend.Entry{
						Host:      host,
						VG:        vg,
						LV:        lv,
						Timestamp: ts,
						Path:      filepath.Join(b.Root, host, vg, lv, ts),
					}
					if !f.Matches(e) {
						continue
					}
					if info, err := os.Stat(filepath.Join(e.Path, ImageName)); err == nil {
						e.Size = info.Size()
					}
					entries = append(entries, e)
				}
			}
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		a, c := entries[i], entries[j]
		if a.Host != c.Host {
			return a.Host < c.Host
		}
		if a.VG != c.VG {
			return a.VG < c.VG
		}
		if a.LV != c.LV {
			return a.LV < c.LV
		}
		return a.Timestamp < c.Timestamp
	})
	return entries, nil
}

// Delete removes one artifact directory. Paths outside the store root,
// including siblings sharing the root as a name prefix, are refused.
func (b *Backend) Delete(e backend.Entry) error {
	rel, err := filepath.Rel(b.Root, e.Path)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return fmt.Errorf("refusing to delete path outside store: %q", e.Path)
	}
	return os.RemoveAll(e.Path)
}

// WriteManifest stores the artifact manifest as indented JSON.
func WriteManifest(dir string, m backend.Manifest) error {
	f, err := os.Create(filepath.Join(dir, ManifestName))
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(m)
}

// ReadManifest loads an artifact manifest.
func ReadManifest(dir string) (backend.Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestName))
	if err != nil {
		return backend.Manifest{}, err
	}
	var m backend.Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return backend.Manifest{}, fmt.Errorf("parse %s: %w", ManifestName, err)
	}
	return m, nil
}

// WriteChecksums records sha256 sums for the named files in checksums.txt,
// in "sum  name" format.
func WriteChecksums(dir string, files []string) error {
	out, err := os.Create(filepath.Join(dir, ChecksumsName))
	if err != nil {
		return err
	}
	defer out.Close()
	for _, name := range files {
		sum, err := SHA256File(filepath.Join(dir, name))
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(out, "%s  %s\n", sum, name); err != nil {
			return err
		}
	}
	return nil
}

// ReadChecksums parses checksums.txt into a name -> sum map.
func ReadChecksums(dir string) (map[string]string, error) {
	data, err := os.ReadFile(filepath.Join(dir, ChecksumsName))
	if err != nil {
		return nil, err
	}
	sums := map[string]string{}
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 2 {
			return nil, fmt.Errorf("malformed checksum line %q", line)
		}
		sums[fields[1]] = fields[0]
	}
	return sums, nil
}

// SHA256File returns the hex sha256 digest of a file.
func SHA256File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func readDirNames(path string) ([]string, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			name := e.Name()
			if strings.HasPrefix(name, ".") {
				continue
			}
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}
