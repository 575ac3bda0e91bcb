package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	atelierv1 "github.com/jamesainslie/atelier/pkg/api/atelier/v1"
	"github.com/jamesainslie/atelier/pkg/atelier/config"
	"github.com/jamesainslie/atelier/pkg/atelier/output"
	"github.com/jamesainslie/atelier/pkg/client"
)

var importCmd = &cobra.Command{
	Use:   "import <location>",
	Short: "Import a repository or folder into the workspace",
	Long: `Import files into the workspace tree.

Kinds:
  github  owner/repo or a github.com URL, fetched through the GitHub API (default)
  git     any clone URL, cloned in memory
  local   a folder on this machine

Files over import.max_file_size and paths matching import.exclude are
skipped. Existing files at the same paths are overwritten.

Examples:
  atelier import golang/example
  atelier import --branch dev https://github.com/acme/app
  atelier import --kind git https://git.example.com/team/tool.git
  atelier import --kind local --dest vendor/lib --watch ./lib`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)

	importCmd.Flags().StringP("kind", "k", atelierv1.SourceGitHub, "source kind: github, git or local")
	importCmd.Flags().StringP("branch", "b", "", "branch or tag (default: the repository's default branch)")
	importCmd.Flags().StringP("dest", "d", "", "folder to import into (default: the root)")
	importCmd.Flags().String("max-size", "", "skip files larger than this (e.g. 500KB, 2MB)")
	importCmd.Flags().StringSliceP("exclude", "e", nil, "glob patterns to skip (can be specified multiple times)")
	importCmd.Flags().BoolP("watch", "w", false, "keep mirroring changes of a local folder")
}

func runImport(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()
	kind, _ := flags.GetString("kind")
	branch, _ := flags.GetString("branch")
	dest, _ := flags.GetString("dest")
	maxSize, _ := flags.GetString("max-size")
	exclude, _ := flags.GetStringSlice("exclude")
	watch, _ := flags.GetBool("watch")

	location := args[0]
	if kind == atelierv1.SourceLocal {
		// The daemon resolves paths against its own working directory.
		expanded, err := config.ExpandPath(location)
		if err != nil {
			return err
		}
		if location, err = filepath.Abs(expanded); err != nil {
			return fmt.Errorf("failed to resolve path: %w", err)
		}
	}

	return withWorkspace(func(ctx context.Context, ws client.Workspace) error {
		req := &atelierv1.ImportRequest{
			Kind:     kind,
			Location: location,
			Branch:   branch,
			Dest:     dest,
			Exclude:  exclude,
			Watch:    watch,
		}
		if maxSize != "" {
			n, err := humanize.ParseBytes(maxSize)
			if err != nil {
				return fmt.Errorf("invalid max-size %q: %w", maxSize, err)
			}
			req.MaxFileSize = int64(n)
		}

		printVerbose("importing %s (%s) into %q", location, kind, dest)
		resp, err := ws.Import(ctx, req)
		if err != nil {
			return describe(err)
		}
		return render(&output.View{Import: &resp.Result})
	})
}
