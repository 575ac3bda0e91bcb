package assistant

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/dustin/go-humanize"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/jamesainslie/atelier/pkg/workspace"
	"github.com/jamesainslie/atelier/pkg/workspace/tree"
)

// maxListed bounds how many paths a reply lists.
const maxListed = 10

// RuleResponder answers from workspace state without any network access.
type RuleResponder struct {
	ws    *workspace.Workspace
	fold  cases.Caser
	title cases.Caser
}

// NewRuleResponder returns a responder for ws.
func NewRuleResponder(ws *workspace.Workspace) *RuleResponder {
	return &RuleResponder{
		ws:    ws,
		fold:  cases.Fold(),
		title: cases.Title(language.English),
	}
}

type rule struct {
	re     *regexp.Regexp
	answer func(r *RuleResponder, m []string) string
}

var rules = []rule{
	{regexp.MustCompile(`^(hi|hello|hey|good (morning|afternoon|evening))\b`), (*RuleResponder).greet},
	{regexp.MustCompile(`^(help|\?)$|what can you do`), (*RuleResponder).help},
	{regexp.MustCompile(`(what|which) language is (\S+)`), (*RuleResponder).languageOf},
	{regexp.MustCompile(`^(find|search|where is|where's)\s+(.+)$`), (*RuleResponder).find},
	{regexp.MustCompile(`unsaved|modified|dirty`), (*RuleResponder).unsaved},
	{regexp.MustCompile(`\btabs?\b|open files`), (*RuleResponder).tabs},
	{regexp.MustCompile(`how many|stats|count|size of`), (*RuleResponder).stats},
}

// Reply matches prompt against the rules in order; the first match answers.
func (r *RuleResponder) Reply(_ context.Context, prompt string) (string, error) {
	q := strings.TrimSpace(r.fold.String(prompt))
	q = strings.TrimRight(q, "?!. ")
	if q == "" {
		return "Ask me about your workspace. Type **help** to see what I know.", nil
	}
	for _, rl := range rules {
		if m := rl.re.FindStringSubmatch(q); m != nil {
			return rl.answer(r, m), nil
		}
	}
	return "I can only answer questions about this workspace. Try **help**.", nil
}

func (r *RuleResponder) greet([]string) string {
	return fmt.Sprintf("Hello! You are working in **%s**. Type **help** to see what I can do.", r.ws.Tree.Root().Name)
}

func (r *RuleResponder) help([]string) string {
	return strings.Join([]string{
		"I can tell you about:",
		"",
		"- **how many** files and folders there are",
		"- **find** _name_: where a file lives",
		"- **tabs**: which files are open",
		"- **unsaved** changes",
		"- **what language is** _file_",
	}, "\n")
}

func (r *RuleResponder) stats([]string) string {
	st := r.ws.Tree.Stats()
	return fmt.Sprintf("The workspace has **%d files** in **%d folders** (%s).",
		st.Files, st.Folders, humanize.Bytes(uint64(st.Bytes)))
}

func (r *RuleResponder) find(m []string) string {
	query := strings.Trim(m[2], "`'\" ")
	hits := r.ws.Search(query)
	if len(hits) == 0 {
		return fmt.Sprintf("Nothing matches `%s`.", query)
	}
	lines := []string{fmt.Sprintf("Found %d match(es) for `%s`:", len(hits), query), ""}
	lines = append(lines, bulletPaths(hits)...)
	return strings.Join(lines, "\n")
}

func bulletPaths(nodes []tree.Node) []string {
	var out []string
	for i, n := range nodes {
		if i == maxListed {
			out = append(out, fmt.Sprintf("- … and %d more", len(nodes)-maxListed))
			break
		}
		out = append(out, "- `"+n.Path+"`")
	}
	return out
}

func (r *RuleResponder) tabs([]string) string {
	open := r.ws.Tabs.Tabs()
	if len(open) == 0 {
		return "No files are open."
	}
	active := r.ws.Tabs.ActiveID()
	lines := []string{fmt.Sprintf("%d open tab(s):", len(open)), ""}
	for _, t := range open {
		line := "- `" + t.Path + "`"
		if t.IsModified {
			line += " (unsaved)"
		}
		if t.ID == active {
			line += " **active**"
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func (r *RuleResponder) unsaved([]string) string {
	var dirty []string
	for _, t := range r.ws.Tabs.Tabs() {
		if t.IsModified {
			dirty = append(dirty, "- `"+t.Path+"`")
		}
	}
	if len(dirty) == 0 {
		return "Everything is saved."
	}
	return strings.Join(append([]string{"Unsaved changes in:", ""}, dirty...), "\n")
}

func (r *RuleResponder) languageOf(m []string) string {
	name := strings.Trim(m[2], "`'\"")
	lang := tree.DetectLanguage(name)
	for _, n := range r.ws.Search(name) {
		if !n.IsFolder() && r.fold.String(n.Name) == name {
			lang = n.Language
			break
		}
	}
	return fmt.Sprintf("`%s` is treated as **%s**.", name, r.title.String(lang))
}
