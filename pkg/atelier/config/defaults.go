// Package config loads atelier settings from YAML, environment variables and
// built-in defaults.
package config

import "time"

const (
	// DefaultRootName names the workspace root folder.
	DefaultRootName = "root"

	// DefaultHistoryLimit bounds the undo stack.
	DefaultHistoryLimit = 100

	// DefaultActivityCapacity bounds the activity log.
	DefaultActivityCapacity = 500

	// DefaultMaxFileSize is the import threshold in bytes.
	DefaultMaxFileSize = "500000B"

	// DefaultSessionInterval is how often the session is flushed.
	DefaultSessionInterval = 30 * time.Second

	// DefaultGitHubAPI is the GitHub REST endpoint used for imports.
	DefaultGitHubAPI = "https://api.github.com"

	// DefaultAssistantProvider answers chat prompts locally.
	DefaultAssistantProvider = "rules"
)

// DefaultImportExclusions are skipped by local and git imports.
var DefaultImportExclusions = []string{
	".git",
	"node_modules",
	".DS_Store",
}
