package workspace

import (
	"fmt"
	"time"

	"github.com/jamesainslie/atelier/pkg/atelier/config"
	"github.com/jamesainslie/atelier/pkg/workspace/importer"
	"github.com/jamesainslie/atelier/pkg/workspace/session"
)

// Options configures a Workspace. Zero values take the defaults.
type Options struct {
	RootName         string
	HistoryLimit     int
	ActivityCapacity int
	MaxFileSize      int64
	Exclude          []string

	// Persister, if set, receives the session. The workspace owns it and
	// closes it on Close.
	Persister    *session.Persister
	SaveInterval time.Duration
}

func (o Options) withDefaults() Options {
	if o.RootName == "" {
		o.RootName = config.DefaultRootName
	}
	if o.HistoryLimit <= 0 {
		o.HistoryLimit = config.DefaultHistoryLimit
	}
	if o.ActivityCapacity <= 0 {
		o.ActivityCapacity = config.DefaultActivityCapacity
	}
	if o.MaxFileSize <= 0 {
		o.MaxFileSize = importer.DefaultMaxFileSize
	}
	if o.SaveInterval <= 0 {
		o.SaveInterval = config.DefaultSessionInterval
	}
	return o
}

// OptionsFromConfig maps the user configuration onto Options. When sessions
// are enabled the Badger database at cfg.Session.Path is opened.
func OptionsFromConfig(cfg *config.Config) (Options, error) {
	maxSize, err := cfg.MaxFileSizeBytes()
	if err != nil {
		return Options{}, err
	}
	opts := Options{
		RootName:         cfg.Workspace.RootName,
		HistoryLimit:     cfg.History.Limit,
		ActivityCapacity: cfg.Activity.Capacity,
		MaxFileSize:      maxSize,
		Exclude:          cfg.Import.Exclude,
		SaveInterval:     cfg.Session.Interval,
	}
	if !cfg.Session.Enabled {
		return opts, nil
	}

	dir, err := config.ExpandPath(cfg.Session.Path)
	if err != nil {
		return Options{}, err
	}
	kv, err := session.OpenBadger(dir)
	if err != nil {
		return Options{}, err
	}
	p, err := session.NewPersister(kv)
	if err != nil {
		_ = kv.Close()
		return Options{}, fmt.Errorf("session at %s: %w", dir, err)
	}
	opts.Persister = p
	return opts, nil
}
