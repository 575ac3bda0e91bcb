package tree

import "github.com/jamesainslie/atelier/pkg/workspace/vpath"

// DefaultLanguage is used for unknown extensions.
const DefaultLanguage = "plaintext"

// languageMap maps lowercase file extensions to editor language ids.
var languageMap = map[string]string{
	".js":       "javascript",
	".mjs":      "javascript",
	".cjs":      "javascript",
	".jsx":      "javascript",
	".ts":       "typescript",
	".tsx":      "typescript",
	".py":       "python",
	".java":     "java",
	".c":        "c",
	".h":        "c",
	".cpp":      "cpp",
	".cc":       "cpp",
	".cxx":      "cpp",
	".hpp":      "cpp",
	".cs":       "csharp",
	".go":       "go",
	".rs":       "rust",
	".rb":       "ruby",
	".php":      "php",
	".swift":    "swift",
	".kt":       "kotlin",
	".html":     "html",
	".htm":      "html",
	".css":      "css",
	".scss":     "scss",
	".less":     "less",
	".json":     "json",
	".md":       "markdown",
	".markdown": "markdown",
	".xml":      "xml",
	".yaml":     "yaml",
	".yml":      "yaml",
	".toml":     "toml",
	".sh":       "shell",
	".bash":     "shell",
	".sql":      "sql",
	".txt":      "plaintext",
}

// DetectLanguage returns the editor language for a file name or path.
func DetectLanguage(name string) string {
	if lang, ok := languageMap[vpath.Ext(name)]; ok {
		return lang
	}
	return DefaultLanguage
}

// Languages returns a copy of the extension table.
func Languages() map[string]string {
	out := make(map[string]string, len(languageMap))
	for ext, lang := range languageMap {
		out[ext] = lang
	}
	return out
}
