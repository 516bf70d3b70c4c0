package utils

import (
	"path/filepath"
	"strings"
)

var languageByExtension = map[string]string{
	".js":   "javascript",
	".mjs":  "javascript",
	".cjs":  "javascript",
	".jsx":  "javascriptreact",
	".ts":   "typescript",
	".tsx":  "typescriptreact",
	".py":   "python",
	".go":   "go",
	".java": "java",
	".cs":   "csharp",
	".rs":   "rust",
	".rb":   "ruby",
	".php":  "php",
	".c":    "c",
	".h":    "c",
	".cpp":  "cpp",
	".hpp":  "cpp",
	".kt":   "kotlin",
	".sh":   "shellscript",
}

// LanguageFromPath maps a file extension onto an editor language identifier, "plaintext" when unknown.
func LanguageFromPath(path string) string {
	if language, ok := languageByExtension[strings.ToLower(filepath.Ext(path))]; ok {
		return language
	}
	return "plaintext"
}
