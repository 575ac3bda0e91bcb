package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	atelierv1 "github.com/jamesainslie/atelier/pkg/api/atelier/v1"
	"github.com/jamesainslie/atelier/pkg/atelier/output"
	"github.com/jamesainslie/atelier/pkg/client"
	"github.com/jamesainslie/atelier/pkg/workspace/tree"
	"github.com/jamesainslie/atelier/pkg/workspace/vpath"
)

var treeCmd = &cobra.Command{
	Use:   "tree [path]",
	Short: "Draw the folder tree",
	Long:  `Draw the workspace tree, or the subtree under path, with totals.`,
	Args:  cobra.MaximumNArgs(1),
	RunE:  runTree,
}

var lsCmd = &cobra.Command{
	Use:   "ls [path]",
	Short: "List a folder",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runLs,
}

var catCmd = &cobra.Command{
	Use:   "cat <path>",
	Short: "Print a file's saved content",
	Args:  cobra.ExactArgs(1),
	RunE:  runCat,
}

var writeCmd = &cobra.Command{
	Use:   "write <path> [content]",
	Short: "Create or overwrite a file",
	Long: `Write content to a file, creating it and any missing folders.
Content is read from stdin when omitted or given as "-".`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runWrite,
}

var touchCmd = &cobra.Command{
	Use:   "touch <path>",
	Short: "Create an empty file and open it",
	Args:  cobra.ExactArgs(1),
	RunE:  runTouch,
}

var mkdirCmd = &cobra.Command{
	Use:   "mkdir <path>",
	Short: "Create a folder",
	Args:  cobra.ExactArgs(1),
	RunE:  runMkdir,
}

var mvCmd = &cobra.Command{
	Use:   "mv <src> <dest>",
	Short: "Move or rename a file or folder",
	Long: `Move src into dest when dest is an existing folder. Otherwise src is
moved to dest's folder and takes dest's name.`,
	Args: cobra.ExactArgs(2),
	RunE: runMv,
}

var renameCmd = &cobra.Command{
	Use:   "rename <path> <name>",
	Short: "Rename a file or folder in place",
	Args:  cobra.ExactArgs(2),
	RunE:  runRename,
}

var rmCmd = &cobra.Command{
	Use:   "rm <path>",
	Short: "Delete a file or folder and everything under it",
	Args:  cobra.ExactArgs(1),
	RunE:  runRm,
}

var toggleCmd = &cobra.Command{
	Use:   "toggle <folder>",
	Short: "Expand or collapse a folder",
	Args:  cobra.ExactArgs(1),
	RunE:  runToggle,
}

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Find files and folders by name",
	Long: `Search names case-insensitively. Queries containing *, ? or [ are
matched as glob patterns against the full path.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Discard the tree, tabs and history",
	Args:  cobra.NoArgs,
	RunE:  runReset,
}

func init() {
	rootCmd.AddCommand(treeCmd, lsCmd, catCmd, writeCmd, touchCmd, mkdirCmd,
		mvCmd, renameCmd, rmCmd, toggleCmd, searchCmd, resetCmd)

	mkdirCmd.Flags().BoolP("parents", "p", false, "create missing parent folders")
	touchCmd.Flags().BoolP("parents", "p", false, "create missing parent folders")
	resetCmd.Flags().String("root", "", "name of the new root folder")
	resetCmd.Flags().BoolP("yes", "y", false, "do not ask for confirmation")
}

// withWorkspace runs fn against an open workspace and closes it after.
func withWorkspace(fn func(ctx context.Context, ws client.Workspace) error) error {
	ctx := context.Background()
	ws, _, err := openWorkspace(ctx)
	if err != nil {
		return err
	}
	defer ws.Close()
	return fn(ctx, ws)
}

// describe turns RPC errors into the plain message.
func describe(err error) error {
	if s, ok := status.FromError(err); ok && s.Code() != codes.Unknown {
		return fmt.Errorf("%s", s.Message())
	}
	return err
}

func optionalArg(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return ""
}

func runTree(_ *cobra.Command, args []string) error {
	return withWorkspace(func(ctx context.Context, ws client.Workspace) error {
		resp, err := ws.GetTree(ctx, &atelierv1.GetTreeRequest{Path: optionalArg(args)})
		if err != nil {
			return describe(err)
		}
		return render(&output.View{Tree: resp.Tree, Stats: &resp.Stats})
	})
}

func runLs(_ *cobra.Command, args []string) error {
	return withWorkspace(func(ctx context.Context, ws client.Workspace) error {
		resp, err := ws.GetNode(ctx, &atelierv1.NodeRequest{Ref: optionalArg(args)})
		if err != nil {
			return describe(err)
		}
		if !resp.Node.IsFolder() {
			return render(&output.View{Nodes: []tree.Node{resp.Node}})
		}
		nodes := make([]tree.Node, 0, len(resp.Node.Children))
		for _, id := range resp.Node.Children {
			child, err := ws.GetNode(ctx, &atelierv1.NodeRequest{Ref: id})
			if err != nil {
				return describe(err)
			}
			nodes = append(nodes, child.Node)
		}
		if len(nodes) == 0 {
			printInfo("%s is empty", resp.Node.Path)
			return nil
		}
		return render(&output.View{Nodes: nodes})
	})
}

func runCat(_ *cobra.Command, args []string) error {
	return withWorkspace(func(ctx context.Context, ws client.Workspace) error {
		resp, err := ws.GetNode(ctx, &atelierv1.NodeRequest{Ref: args[0]})
		if err != nil {
			return describe(err)
		}
		if resp.Node.IsFolder() {
			return fmt.Errorf("%s is a folder", resp.Node.Path)
		}
		return render(&output.View{Path: resp.Node.Path, Content: resp.Node.Content})
	})
}

func runWrite(cmd *cobra.Command, args []string) error {
	var content string
	if len(args) == 2 && args[1] != "-" {
		content = args[1]
	} else {
		b, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("read stdin: %w", err)
		}
		content = string(b)
	}

	return withWorkspace(func(ctx context.Context, ws client.Workspace) error {
		resp, err := ws.WriteFile(ctx, &atelierv1.WriteFileRequest{Path: args[0], Content: content})
		if err != nil {
			return describe(err)
		}
		n, err := ws.GetNode(ctx, &atelierv1.NodeRequest{Ref: resp.ID})
		if err != nil {
			return describe(err)
		}
		verb := "updated"
		if resp.Created {
			verb = "created"
		}
		return render(&output.View{Message: fmt.Sprintf("%s %s", verb, n.Node.Path)})
	})
}

// create makes the node at p, which is relative to the root unless it
// already starts with it.
func create(cmd *cobra.Command, p string, kind tree.Kind) error {
	parents, _ := cmd.Flags().GetBool("parents")
	clean := vpath.Clean(p)
	if clean == "" {
		return fmt.Errorf("invalid path %q", p)
	}

	return withWorkspace(func(ctx context.Context, ws client.Workspace) error {
		resp, err := ws.CreateNode(ctx, &atelierv1.CreateNodeRequest{
			Parent:  vpath.Dir(clean),
			Name:    vpath.Base(clean),
			Kind:    kind,
			Parents: parents,
		})
		if err != nil {
			return describe(err)
		}
		return render(&output.View{Message: "created " + resp.Path})
	})
}

func runTouch(cmd *cobra.Command, args []string) error {
	return create(cmd, args[0], tree.KindFile)
}

func runMkdir(cmd *cobra.Command, args []string) error {
	return create(cmd, args[0], tree.KindFolder)
}

func runMv(_ *cobra.Command, args []string) error {
	return withWorkspace(func(ctx context.Context, ws client.Workspace) error {
		src, err := ws.GetNode(ctx, &atelierv1.NodeRequest{Ref: args[0]})
		if err != nil {
			return describe(err)
		}

		if dest, err := ws.GetNode(ctx, &atelierv1.NodeRequest{Ref: args[1]}); err == nil {
			if !dest.Node.IsFolder() {
				return fmt.Errorf("%s already exists", dest.Node.Path)
			}
			if _, err := ws.MoveNode(ctx, &atelierv1.MoveNodeRequest{Ref: src.Node.ID, Dest: dest.Node.ID}); err != nil {
				return describe(err)
			}
			return render(&output.View{Message: fmt.Sprintf("moved %s into %s", src.Node.Path, dest.Node.Path)})
		}

		target := vpath.Clean(args[1])
		folder, err := ws.GetNode(ctx, &atelierv1.NodeRequest{Ref: vpath.Dir(target)})
		if err != nil {
			return describe(err)
		}
		if folder.Node.ID != src.Node.ParentID {
			if _, err := ws.MoveNode(ctx, &atelierv1.MoveNodeRequest{Ref: src.Node.ID, Dest: folder.Node.ID}); err != nil {
				return describe(err)
			}
		}
		if name := vpath.Base(target); name != src.Node.Name {
			if _, err := ws.RenameNode(ctx, &atelierv1.RenameNodeRequest{Ref: src.Node.ID, Name: name}); err != nil {
				return describe(err)
			}
		}
		moved, err := ws.GetNode(ctx, &atelierv1.NodeRequest{Ref: src.Node.ID})
		if err != nil {
			return describe(err)
		}
		return render(&output.View{Message: fmt.Sprintf("moved %s to %s", src.Node.Path, moved.Node.Path)})
	})
}

func runRename(_ *cobra.Command, args []string) error {
	return withWorkspace(func(ctx context.Context, ws client.Workspace) error {
		n, err := ws.GetNode(ctx, &atelierv1.NodeRequest{Ref: args[0]})
		if err != nil {
			return describe(err)
		}
		if _, err := ws.RenameNode(ctx, &atelierv1.RenameNodeRequest{Ref: n.Node.ID, Name: args[1]}); err != nil {
			return describe(err)
		}
		renamed, err := ws.GetNode(ctx, &atelierv1.NodeRequest{Ref: n.Node.ID})
		if err != nil {
			return describe(err)
		}
		return render(&output.View{Message: fmt.Sprintf("renamed %s to %s", n.Node.Path, renamed.Node.Path)})
	})
}

func runRm(_ *cobra.Command, args []string) error {
	return withWorkspace(func(ctx context.Context, ws client.Workspace) error {
		n, err := ws.GetNode(ctx, &atelierv1.NodeRequest{Ref: args[0]})
		if err != nil {
			return describe(err)
		}
		if _, err := ws.DeleteNode(ctx, &atelierv1.NodeRequest{Ref: n.Node.ID}); err != nil {
			return describe(err)
		}
		return render(&output.View{Message: "deleted " + n.Node.Path})
	})
}

func runToggle(_ *cobra.Command, args []string) error {
	return withWorkspace(func(ctx context.Context, ws client.Workspace) error {
		if _, err := ws.ToggleFolder(ctx, &atelierv1.NodeRequest{Ref: args[0]}); err != nil {
			return describe(err)
		}
		n, err := ws.GetNode(ctx, &atelierv1.NodeRequest{Ref: args[0]})
		if err != nil {
			return describe(err)
		}
		state := "collapsed"
		if n.Node.IsOpen {
			state = "expanded"
		}
		return render(&output.View{Message: fmt.Sprintf("%s %s", state, n.Node.Path)})
	})
}

func runSearch(_ *cobra.Command, args []string) error {
	return withWorkspace(func(ctx context.Context, ws client.Workspace) error {
		resp, err := ws.Search(ctx, &atelierv1.SearchRequest{Query: args[0]})
		if err != nil {
			return describe(err)
		}
		if len(resp.Nodes) == 0 {
			printInfo("no matches for %q", args[0])
			return nil
		}
		return render(&output.View{Nodes: resp.Nodes})
	})
}

func runReset(cmd *cobra.Command, _ []string) error {
	yes, _ := cmd.Flags().GetBool("yes")
	if !yes && !confirm(cmd, "Discard every file, tab and undo step?") {
		printInfo("Aborted")
		return nil
	}
	root, _ := cmd.Flags().GetString("root")

	return withWorkspace(func(ctx context.Context, ws client.Workspace) error {
		if _, err := ws.Reset(ctx, &atelierv1.ResetRequest{RootName: root}); err != nil {
			return describe(err)
		}
		resp, err := ws.GetTree(ctx, &atelierv1.GetTreeRequest{})
		if err != nil {
			return describe(err)
		}
		return render(&output.View{Message: "reset to an empty " + resp.Tree.Path})
	})
}

// confirm asks a yes/no question on stdin.
func confirm(cmd *cobra.Command, question string) bool {
	fmt.Fprintf(os.Stderr, "%s [y/N] ", question)
	var answer string
	_, _ = fmt.Fscanln(cmd.InOrStdin(), &answer)
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}
