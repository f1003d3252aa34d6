package backend

import (
	"time"
)

// TimestampLayout names artifact directories. Lexical order equals
// chronological order, which list, prune and rotation rely on.
const TimestampLayout = "20060102T150405Z"

// Entry represents a single stored backup artifact discovered in a store.
type Entry struct {
	Host      string
	VG        string
	LV        string
	Timestamp string // TimestampLayout
	Path      string // absolute filesystem path to the artifact directory
	Size      int64  // compressed image size in bytes, 0 if unknown
}

// Time parses the entry's timestamp directory name.
func (e Entry) Time() (time.Time, error) {
	return time.Parse(TimestampLayout, e.Timestamp)
}

// Filter narrows listings; empty fields match everything.
type Filter struct {
	Host string
	VG   string
	LV   string
}

// Matches reports whether an entry passes the filter.
func (f Filter) Matches(e Entry) bool {
	if f.Host != "" && f.Host != e.Host {
		return false
	}
	if f.VG != "" && f.VG != e.VG {
		return false
	}
	if f.LV != "" && f.LV != e.LV {
		return false
	}
	return true
}

// Store is the artifact store surface consumed by list, prune and the
// backup engine.
type Store interface {
	List(f Filter) ([]Entry, error)
	Delete(e Entry) error
}

// Manifest describes one artifact; stored as manifest.json next to the
// compressed image.
type Manifest struct {
	Type      string    `json:"type"` // "lvm-raw"
	Host      string    `json:"host"`
	VG        string    `json:"vg"`
	LV        string    `json:"lv"`
	Snapshot  string    `json:"snapshot"`
	CreatedAt time.Time `json:"createdAt"`
	SizeBytes int64     `json:"sizeBytes"`
	SHA256    string    `json:"sha256"`
}
