// Package mcptools exposes the workspace to MCP clients as a set of tools.
package mcptools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/jamesainslie/atelier/pkg/workspace"
	"github.com/jamesainslie/atelier/pkg/workspace/tree"
	"github.com/jamesainslie/atelier/pkg/workspace/vpath"
)

// NewServer returns an MCP server with every workspace tool registered.
func NewServer(ws *workspace.Workspace, version string) *server.MCPServer {
	s := server.NewMCPServer("atelier", version,
		server.WithToolCapabilities(false),
		server.WithInstructions("Tools for reading and editing the files of an in-memory atelier workspace. Paths are absolute (/root/src/main.go) or relative to the root."),
	)
	s.AddTools(Tools(ws)...)
	return s
}

// Tools returns the workspace tools bound to ws.
func Tools(ws *workspace.Workspace) []server.ServerTool {
	h := handlers{ws: ws}
	return []server.ServerTool{
		{
			Tool: mcp.NewTool("tree_list",
				mcp.WithDescription("Draw the folder tree"),
				mcp.WithString("path", mcp.Description("Folder to start at; defaults to the root")),
			),
			Handler: h.treeList,
		},
		{
			Tool: mcp.NewTool("file_read",
				mcp.WithDescription("Read a file. Returns the unsaved editor buffer when the file is open and buffer is true"),
				mcp.WithString("path", mcp.Required(), mcp.Description("File path")),
				mcp.WithBoolean("buffer", mcp.Description("Prefer the open tab's buffer, default false")),
			),
			Handler: h.fileRead,
		},
		{
			Tool: mcp.NewTool("file_write",
				mcp.WithDescription("Write a file, creating it and its folders if needed"),
				mcp.WithString("path", mcp.Required(), mcp.Description("File path")),
				mcp.WithString("content", mcp.Required(), mcp.Description("Full file content")),
			),
			Handler: h.fileWrite,
		},
		{
			Tool: mcp.NewTool("file_create",
				mcp.WithDescription("Create an empty file in an existing folder and open it"),
				mcp.WithString("path", mcp.Required(), mcp.Description("File path")),
			),
			Handler: h.fileCreate,
		},
		{
			Tool: mcp.NewTool("folder_create",
				mcp.WithDescription("Create a folder"),
				mcp.WithString("path", mcp.Required(), mcp.Description("Folder path")),
				mcp.WithBoolean("parents", mcp.Description("Create missing parent folders, default false")),
			),
			Handler: h.folderCreate,
		},
		{
			Tool: mcp.NewTool("node_rename",
				mcp.WithDescription("Rename a file or folder in place"),
				mcp.WithString("path", mcp.Required(), mcp.Description("Node path")),
				mcp.WithString("name", mcp.Required(), mcp.Description("New name")),
			),
			Handler: h.nodeRename,
		},
		{
			Tool: mcp.NewTool("node_move",
				mcp.WithDescription("Move a file or folder into another folder"),
				mcp.WithString("path", mcp.Required(), mcp.Description("Node path")),
				mcp.WithString("dest", mcp.Required(), mcp.Description("Destination folder")),
			),
			Handler: h.nodeMove,
		},
		{
			Tool: mcp.NewTool("node_delete",
				mcp.WithDescription("Delete a file or folder with everything in it"),
				mcp.WithString("path", mcp.Required(), mcp.Description("Node path")),
			),
			Handler: h.nodeDelete,
		},
		{
			Tool: mcp.NewTool("search",
				mcp.WithDescription("Find files and folders whose name contains query, ignoring case"),
				mcp.WithString("query", mcp.Required(), mcp.Description("Name fragment")),
			),
			Handler: h.search,
		},
		{
			Tool: mcp.NewTool("tabs_list",
				mcp.WithDescription("List open editor tabs as JSON"),
			),
			Handler: h.tabsList,
		},
	}
}

type handlers struct {
	ws *workspace.Workspace
}

func (h handlers) resolve(p string) string {
	return h.ws.AbsPath(p)
}

func (h handlers) node(req mcp.CallToolRequest, key string) (tree.Node, *mcp.CallToolResult) {
	p, err := req.RequireString(key)
	if err != nil {
		return tree.Node{}, mcp.NewToolResultError(err.Error())
	}
	n, ok := h.ws.Tree.GetNodeByPath(h.resolve(p))
	if !ok {
		return tree.Node{}, mcp.NewToolResultError(fmt.Sprintf("%s: not found", p))
	}
	return n, nil
}

func (h handlers) treeList(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	p := h.resolve(req.GetString("path", ""))
	n, ok := h.ws.Tree.GetNodeByPath(p)
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("%s: not found", p)), nil
	}
	return mcp.NewToolResultText(tree.Draw(h.ws.Tree.Nested(n.ID), nil)), nil
}

func (h handlers) fileRead(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	n, res := h.node(req, "path")
	if res != nil {
		return res, nil
	}
	if n.IsFolder() {
		return mcp.NewToolResultError(fmt.Sprintf("%s is a folder", n.Path)), nil
	}
	if req.GetBool("buffer", false) {
		if content, ok := h.ws.Tabs.GetTabContent(n.ID); ok {
			return mcp.NewToolResultText(content), nil
		}
	}
	return mcp.NewToolResultText(n.Content), nil
}

func (h handlers) fileWrite(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	p, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	_, created, err := h.ws.Tree.WriteFile(h.resolve(p), content)
	if err != nil {
		return mcp.NewToolResultErrorFromErr("write failed", err), nil
	}
	verb := "updated"
	if created {
		verb = "created"
	}
	return mcp.NewToolResultText(fmt.Sprintf("%s %s (%d bytes)", verb, h.resolve(p), len(content))), nil
}

func (h handlers) fileCreate(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	p, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	full := h.resolve(p)
	if _, err := h.ws.CreateFile(vpath.Dir(full), vpath.Base(full)); err != nil {
		return mcp.NewToolResultErrorFromErr("create failed", err), nil
	}
	return mcp.NewToolResultText("created " + full), nil
}

func (h handlers) folderCreate(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	p, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	full := h.resolve(p)
	if req.GetBool("parents", false) {
		_, err = h.ws.Tree.MkdirAll(full)
	} else {
		_, err = h.ws.CreateFolder(vpath.Dir(full), vpath.Base(full))
	}
	if err != nil {
		return mcp.NewToolResultErrorFromErr("create failed", err), nil
	}
	return mcp.NewToolResultText("created " + full), nil
}

func (h handlers) nodeRename(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	n, res := h.node(req, "path")
	if res != nil {
		return res, nil
	}
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := h.ws.Rename(n.ID, name); err != nil {
		return mcp.NewToolResultErrorFromErr("rename failed", err), nil
	}
	renamed, _ := h.ws.Tree.GetNodeByID(n.ID)
	return mcp.NewToolResultText(fmt.Sprintf("renamed %s to %s", n.Path, renamed.Path)), nil
}

func (h handlers) nodeMove(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	n, res := h.node(req, "path")
	if res != nil {
		return res, nil
	}
	dest, res := h.node(req, "dest")
	if res != nil {
		return res, nil
	}
	if err := h.ws.Move(n.ID, dest.ID); err != nil {
		return mcp.NewToolResultErrorFromErr("move failed", err), nil
	}
	moved, _ := h.ws.Tree.GetNodeByID(n.ID)
	return mcp.NewToolResultText(fmt.Sprintf("moved %s to %s", n.Path, moved.Path)), nil
}

func (h handlers) nodeDelete(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	n, res := h.node(req, "path")
	if res != nil {
		return res, nil
	}
	if err := h.ws.Delete(n.ID); err != nil {
		return mcp.NewToolResultErrorFromErr("delete failed", err), nil
	}
	return mcp.NewToolResultText("deleted " + n.Path), nil
}

func (h handlers) search(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	q, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	hits := h.ws.Search(q)
	if len(hits) == 0 {
		return mcp.NewToolResultText("no matches"), nil
	}
	paths := make([]string, len(hits))
	for i, n := range hits {
		paths[i] = n.Path
		if n.IsFolder() {
			paths[i] += vpath.Sep
		}
	}
	return mcp.NewToolResultText(strings.Join(paths, "\n")), nil
}

type tabView struct {
	Path     string `json:"path"`
	Language string `json:"language"`
	Modified bool   `json:"modified"`
	Active   bool   `json:"active"`
}

func (h handlers) tabsList(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	active := h.ws.Tabs.ActiveID()
	out := []tabView{}
	for _, t := range h.ws.Tabs.Tabs() {
		out = append(out, tabView{Path: t.Path, Language: t.Language, Modified: t.IsModified, Active: t.ID == active})
	}
	b, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(b)), nil
}
