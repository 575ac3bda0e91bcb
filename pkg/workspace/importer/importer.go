package importer

import (
	"context"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/jamesainslie/atelier/pkg/atelier/logging"
	"github.com/jamesainslie/atelier/pkg/workspace/activity"
	"github.com/jamesainslie/atelier/pkg/workspace/tree"
	"github.com/jamesainslie/atelier/pkg/workspace/vpath"
)

// DefaultMaxFileSize is the largest file imported, in bytes.
const DefaultMaxFileSize = 500000

// Target is the tree an import writes into.
type Target interface {
	Root() tree.Node
	MkdirAll(p string) (string, error)
	WriteFile(p, content string) (string, bool, error)
}

// Progress reports how far an import has got.
type Progress struct {
	Done    int
	Total   int
	Current string
}

// ProgressFunc is called after every entry.
type ProgressFunc func(Progress)

// Result counts what an import did.
type Result struct {
	Source   string        `json:"source"`
	Dest     string        `json:"dest"`
	Folders  int           `json:"folders"`
	Files    int           `json:"files"`
	Skipped  int           `json:"skipped"`
	Failed   int           `json:"failed"`
	Bytes    int64         `json:"bytes"`
	Duration time.Duration `json:"duration"`
}

// Importer copies source listings into a tree.
type Importer struct {
	target      Target
	activity    *activity.Log
	log         *logging.Logger
	maxFileSize int64
	exclude     *matcher
	onProgress  ProgressFunc
}

// Option configures an Importer.
type Option func(*Importer) error

// WithMaxFileSize changes the size above which files are skipped.
func WithMaxFileSize(n int64) Option {
	return func(i *Importer) error {
		if n > 0 {
			i.maxFileSize = n
		}
		return nil
	}
}

// WithExclude skips entries whose path or any path segment matches one of
// the glob patterns.
func WithExclude(patterns ...string) Option {
	return func(i *Importer) error {
		m, err := newMatcher(patterns)
		if err != nil {
			return fmt.Errorf("exclude pattern: %w", err)
		}
		i.exclude = m
		return nil
	}
}

// WithProgress registers a progress callback.
func WithProgress(fn ProgressFunc) Option {
	return func(i *Importer) error {
		i.onProgress = fn
		return nil
	}
}

// New returns an Importer writing into target and reporting to log, which
// may be nil.
func New(target Target, log *activity.Log, opts ...Option) (*Importer, error) {
	i := &Importer{
		target:      target,
		activity:    log,
		log:         logging.Get("importer"),
		maxFileSize: DefaultMaxFileSize,
	}
	for _, opt := range opts {
		if err := opt(i); err != nil {
			return nil, err
		}
	}
	if i.activity == nil {
		i.activity = activity.New(0)
	}
	return i, nil
}

// MaxFileSize reports the configured threshold.
func (i *Importer) MaxFileSize() int64 {
	return i.maxFileSize
}

// Import lists src and recreates it under dest, a folder path in the tree
// ("" means the root folder). Files above the size threshold are skipped
// with a warning. A failing file is reported and the import carries on.
// Listing failures and cancellation stop the import; everything imported
// so far stays in the tree.
func (i *Importer) Import(ctx context.Context, src Source, dest string) (Result, error) {
	start := time.Now()
	if dest == "" {
		dest = i.target.Root().Path
	}
	dest = vpath.Clean(dest)
	res := Result{Source: src.Name(), Dest: dest}

	i.activity.Infof("Importing %s into %s", src.Name(), dest)
	if _, err := i.target.MkdirAll(dest); err != nil {
		i.activity.Errorf("Import failed: %v", err)
		return res, err
	}

	entries, err := src.List(ctx)
	if err != nil {
		i.activity.Errorf("Import of %s failed: %v", src.Name(), err)
		res.Duration = time.Since(start)
		return res, err
	}
	sortEntries(entries)

	for n, e := range entries {
		if err := ctx.Err(); err != nil {
			i.activity.Warnf("Import of %s cancelled after %d files", src.Name(), res.Files)
			res.Duration = time.Since(start)
			return res, err
		}
		i.importEntry(ctx, src, dest, e, &res)
		if i.onProgress != nil {
			i.onProgress(Progress{Done: n + 1, Total: len(entries), Current: e.Path})
		}
	}

	res.Duration = time.Since(start)
	i.log.Info("import finished", "source", src.Name(), "files", res.Files,
		"folders", res.Folders, "skipped", res.Skipped, "failed", res.Failed, "took", res.Duration)

	if res.Failed > 0 {
		i.activity.Warnf("Imported %d files from %s (%d skipped, %d failed)", res.Files, src.Name(), res.Skipped, res.Failed)
	} else {
		i.activity.Successf("Imported %d files from %s (%s, %d skipped)", res.Files, src.Name(),
			humanize.Bytes(uint64(res.Bytes)), res.Skipped)
	}
	return res, nil
}

func (i *Importer) importEntry(ctx context.Context, src Source, dest string, e Entry, res *Result) {
	if i.exclude.excluded(e.Path) {
		return
	}
	p := vpath.Clean(dest + vpath.Sep + e.Path)

	if e.Kind == KindDir {
		if _, err := i.target.MkdirAll(p); err != nil {
			res.Failed++
			i.activity.Errorf("Failed to create folder %s: %v", p, err)
			return
		}
		res.Folders++
		return
	}

	if e.Size > i.maxFileSize {
		res.Skipped++
		i.activity.Warnf("Skipped %s: %s exceeds the %s limit", e.Path,
			humanize.Bytes(uint64(e.Size)), humanize.Bytes(uint64(i.maxFileSize)))
		return
	}

	body, err := src.Fetch(ctx, e)
	if err != nil {
		res.Failed++
		i.activity.Errorf("Failed to import %s: %v", e.Path, err)
		return
	}
	if int64(len(body)) > i.maxFileSize {
		res.Skipped++
		i.activity.Warnf("Skipped %s: %s exceeds the %s limit", e.Path,
			humanize.Bytes(uint64(len(body))), humanize.Bytes(uint64(i.maxFileSize)))
		return
	}

	if _, _, err := i.target.WriteFile(p, string(body)); err != nil {
		res.Failed++
		i.activity.Errorf("Failed to import %s: %v", e.Path, err)
		return
	}
	res.Files++
	res.Bytes += int64(len(body))
	i.activity.Successf("Imported %s", e.Path)
}
