package domain

// Entry types reported in Attributes.Type.
const (
	EntryTypeFile    = "file"
	EntryTypeDir     = "directory"
	EntryTypeSymlink = "symlink"
	EntryTypeOther   = "other"
)

// Entry is the recorded state of a monitored filesystem object, keyed by Path.
type Entry struct {
	Path       string     `json:"path"`
	Timestamp  int64      `json:"timestamp"`
	Attributes Attributes `json:"attributes"`
}

// Attributes holds the metadata of an entry. Checksum is a hex digest over
// the other attributes and is what the integrity digests are built from.
type Attributes struct {
	Type       string `json:"type"`
	Size       int64  `json:"size"`
	Perm       string `json:"perm"`
	UID        string `json:"uid"`
	GID        string `json:"gid"`
	Inode      uint64 `json:"inode"`
	MTime      int64  `json:"mtime"`
	HashSHA256 string `json:"hash_sha256,omitempty"`
	Checksum   string `json:"checksum"`
}

// Checksum returns the precomputed entry checksum.
func (e Entry) Checksum() string {
	return e.Attributes.Checksum
}
