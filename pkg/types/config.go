package types

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// Default layout for the functions tree, relative to the working directory.
const (
	DefaultSourceDir = "netlify/functions"
	DefaultDestDir   = "dist/netlify/functions"
	DefaultUtilsName = "utils"
)

// AppConfig is the root configuration for fnsync
type AppConfig struct {
	DebugMode  bool `key:"debugMode" json:"debug_mode"`
	PrettyLogs bool `key:"prettyLogs" json:"pretty_logs"`
	Trace      bool `key:"trace" json:"trace"` // Opt-in filesystem operation tracing

	Sync    SyncConfig    `key:"sync" json:"sync"`
	Watch   WatchConfig   `key:"watch" json:"watch"`
	Bundle  BundleConfig  `key:"bundle" json:"bundle"`
	Publish PublishConfig `key:"publish" json:"publish"`
}

// ----------------------------------------------------------------------------
// Sync Configuration
// ----------------------------------------------------------------------------

type SyncConfig struct {
	SourceDir string `key:"sourceDir" json:"source_dir"` // Relative to cwd unless absolute
	DestDir   string `key:"destDir" json:"dest_dir"`     // Relative to cwd unless absolute
	UtilsName string `key:"utilsName" json:"utils_name"` // Child of SourceDir copied separately
}

// ValidateUtilsName reports whether name can be used as the single-element
// name of the separately copied subdirectory.
func ValidateUtilsName(name string) error {
	switch {
	case name == "":
		return &ConfigError{Field: "sync.utilsName", Reason: "must not be empty"}
	case name == "." || name == "..":
		return &ConfigError{Field: "sync.utilsName", Reason: fmt.Sprintf("%q is not a directory name", name)}
	case strings.ContainsRune(name, '/') || strings.ContainsRune(name, filepath.Separator):
		return &ConfigError{Field: "sync.utilsName", Reason: fmt.Sprintf("%q must be a single path element", name)}
	}
	return nil
}

// ----------------------------------------------------------------------------
// Watch Configuration
// ----------------------------------------------------------------------------

type WatchConfig struct {
	Debounce time.Duration `key:"debounce" json:"debounce"`
	Publish  bool          `key:"publish" json:"publish"` // Publish after every successful re-sync
}

// ----------------------------------------------------------------------------
// Bundle Configuration
// ----------------------------------------------------------------------------

type BundleConfig struct {
	Output string `key:"output" json:"output"` // Tarball path, relative to cwd unless absolute
}

// ----------------------------------------------------------------------------
// Publish Configuration
// ----------------------------------------------------------------------------

// PublishConfig configures uploads of the synchronized tree to S3-compatible storage
type PublishConfig struct {
	Bucket      string `key:"bucket" json:"bucket"`
	Prefix      string `key:"prefix" json:"prefix"`
	Region      string `key:"region" json:"region"`
	EndpointUrl string `key:"endpointUrl" json:"endpoint_url"`
	AccessKey   string `key:"accessKey" json:"access_key"`
	SecretKey   string `key:"secretKey" json:"secret_key"`
	Concurrency int    `key:"concurrency" json:"concurrency"`
	CacheSize   int    `key:"cacheSize" json:"cache_size"` // Remembered digests for skip-unchanged
}

func (c PublishConfig) IsConfigured() bool {
	return c.Bucket != "" && c.Region != ""
}

// Redact returns a copy safe for logging
func (c PublishConfig) Redact() PublishConfig {
	if c.SecretKey != "" {
		c.SecretKey = "[REDACTED]"
	}
	return c
}

// Validate checks the values that cannot be defaulted at use sites.
func (c *AppConfig) Validate() error {
	if strings.TrimSpace(c.Sync.SourceDir) == "" {
		return &ConfigError{Field: "sync.sourceDir", Reason: "must not be empty"}
	}
	if strings.TrimSpace(c.Sync.DestDir) == "" {
		return &ConfigError{Field: "sync.destDir", Reason: "must not be empty"}
	}
	if err := ValidateUtilsName(c.Sync.UtilsName); err != nil {
		return err
	}
	if c.Watch.Debounce <= 0 {
		return &ConfigError{Field: "watch.debounce", Reason: "must be positive"}
	}
	if c.Publish.Concurrency <= 0 {
		return &ConfigError{Field: "publish.concurrency", Reason: "must be positive"}
	}
	return nil
}
