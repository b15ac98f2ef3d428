package types

import "time"

// SyncPaths are the four directories involved in one sync run.
// They are resolved once and never change during the run.
type SyncPaths struct {
	SourceRoot  string `json:"source_root"`
	DestRoot    string `json:"dest_root"`
	SourceUtils string `json:"source_utils"`
	DestUtils   string `json:"dest_utils"`
}

// SyncReport summarizes a completed sync
type SyncReport struct {
	RunID       string        `json:"run_id"`
	SourceRoot  string        `json:"source_root"`
	DestRoot    string        `json:"dest_root"`
	Files       int           `json:"files"`
	Dirs        int           `json:"dirs"`
	Symlinks    int           `json:"symlinks"`
	Bytes       int64         `json:"bytes"`
	UtilsCopied bool          `json:"utils_copied"`
	Duration    time.Duration `json:"duration"`
}

// PublishReport summarizes an upload of the destination tree
type PublishReport struct {
	Bucket   string        `json:"bucket"`
	Prefix   string        `json:"prefix"`
	Uploaded int           `json:"uploaded"`
	Skipped  int           `json:"skipped"`
	Bytes    int64         `json:"bytes"`
	Duration time.Duration `json:"duration"`
}

// BundleReport summarizes a written tarball
type BundleReport struct {
	Path     string `json:"path"`
	Files    int    `json:"files"`
	Dirs     int    `json:"dirs"`
	Symlinks int    `json:"symlinks"`
	Bytes    int64  `json:"bytes"` // Uncompressed content size
}
