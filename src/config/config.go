package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"lvm-backup/src/rotation"
)

// ErrMissingParameter marks a required flag that was not provided.
var ErrMissingParameter = errors.New("missing required parameter")

// SnapshotSuffix is appended to the logical volume name to derive the
// temporary snapshot name. A second run against the same LV while a
// snapshot with this name still exists will collide, so the backup engine
// always removes it before exiting.
const SnapshotSuffix = "-backupsnap"

// BackupRequest is the fully resolved configuration for one backup run.
// It is immutable once built from flags and the defaults file.
type BackupRequest struct {
	Dest     string
	Host     string
	Port     uint
	User     string
	KeyPath  string
	VG       string
	LV       string
	SnapSize string
	Rotation rotation.Policy
	Timeout  time.Duration
	DryRun   bool
	Force    bool
}

// SnapshotName returns the name of the ephemeral snapshot volume.
func (r BackupRequest) SnapshotName() string {
	return r.LV + SnapshotSuffix
}

// lvcreate accepts a number with an optional unit suffix (lvm(8) units).
var sizeRe = regexp.MustCompile(`^[0-9]+(\.[0-9]+)?[bBsSkKmMgGtTpPeE]?$`)

// Validate checks the request for the conditions that must hold before any
// command, local or remote, is issued.
func (r BackupRequest) Validate() error {
	required := []struct{ flag, value string }{
		{"--dest", r.Dest},
		{"--ssh", r.Host},
		{"--vg", r.VG},
		{"--lv", r.LV},
	}
	for _, req := range required {
		if strings.TrimSpace(req.value) == "" {
			return fmt.Errorf("%w: %s", ErrMissingParameter, req.flag)
		}
	}
	if r.Port == 0 || r.Port > 65535 {
		return fmt.Errorf("invalid --ssh_port %d", r.Port)
	}
	if !sizeRe.MatchString(r.SnapSize) {
		return fmt.Errorf("invalid --snap_size %q (expected lvm size like 1G or 512M)", r.SnapSize)
	}
	if strings.ContainsAny(r.VG, "/ \t") || strings.ContainsAny(r.LV, "/ \t") {
		return fmt.Errorf("volume names must not contain slashes or whitespace: vg=%q lv=%q", r.VG, r.LV)
	}
	return nil
}

// Summary renders the collected configuration for the pre-run confirmation
// prompt.
func (r BackupRequest) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "  destination:   %s\n", r.Dest)
	fmt.Fprintf(&b, "  remote host:   %s@%s:%d\n", r.User, r.Host, r.Port)
	fmt.Fprintf(&b, "  volume group:  %s\n", r.VG)
	fmt.Fprintf(&b, "  logical vol:   %s\n", r.LV)
	fmt.Fprintf(&b, "  snapshot:      %s (%s)\n", r.SnapshotName(), r.SnapSize)
	fmt.Fprintf(&b, "  rotation:      %s\n", r.Rotation)
	if r.DryRun {
		fmt.Fprintf(&b, "  dry-run:       true\n")
	}
	return b.String()
}

// Defaults holds optional values read from the YAML defaults file. Explicit
// flags always take precedence over these.
type Defaults struct {
	Dest     string `yaml:"dest,omitempty"`
	SSHUser  string `yaml:"ssh_user,omitempty"`
	SSHKey   string `yaml:"ssh_key,omitempty"`
	SSHPort  uint   `yaml:"ssh_port,omitempty"`
	SnapSize string `yaml:"snap_size,omitempty"`
	Rotation string `yaml:"rotation,omitempty"`
}

// DefaultsPath resolves the defaults file location: $LVM_BACKUP_CONFIG if
// set, otherwise ~/.config/lvm-backup/config.yml.
func DefaultsPath() string {
	if v := os.Getenv("LVM_BACKUP_CONFIG"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "lvm-backup", "config.yml")
}

// LoadDefaults reads the defaults file at path. A missing file is not an
// error; the zero Defaults is returned.
func LoadDefaults(path string) (Defaults, error) {
	if path == "" {
		path = DefaultsPath()
	}
	if path == "" {
		return Defaults{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Defaults{}, nil
		}
		return Defaults{}, fmt.Errorf("read defaults file: %w", err)
	}
	var d Defaults
	if err := yaml.Unmarshal(data, &d); err != nil {
		return Defaults{}, fmt.Errorf("parse defaults file %s: %w", path, err)
	}
	return d, nil
}

// DefaultKeyPath returns the conventional private key location, or "" when
// the home directory cannot be determined (the SSH agent is tried then).
func DefaultKeyPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".ssh", "id_rsa")
}
