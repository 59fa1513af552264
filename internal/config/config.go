// Package config implements TOML configuration loading and
// platform-specific path resolution for quarkpan. The config file
// remembers the active save destination and local output directories
// between runs; the session cookie lives in its own file next to it.
package config

// Config is the top-level configuration structure parsed from a TOML
// file.
type Config struct {
	// SaveFolderID is the storage folder id new saves land in.
	// "0" is the storage root.
	SaveFolderID string `toml:"save_folder_id"`

	// SaveFolderName is the display name recorded for SaveFolderID,
	// shown in prompts and summaries. Purely cosmetic: the id is
	// authoritative.
	SaveFolderName string `toml:"save_folder_name"`

	// DownloadDir is where downloaded trees are mirrored.
	DownloadDir string `toml:"download_dir"`

	// ShareDir holds the bulk-publish ledgers.
	ShareDir string `toml:"share_dir"`

	// ParallelDownloads caps concurrent file fetches.
	ParallelDownloads int `toml:"parallel_downloads"`
}

// DefaultConfig returns a Config populated with all default values.
func DefaultConfig() *Config {
	return &Config{
		SaveFolderID:      "0",
		SaveFolderName:    "root",
		DownloadDir:       "download",
		ShareDir:          "share",
		ParallelDownloads: 4,
	}
}
