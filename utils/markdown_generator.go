package utils

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/alecthomas/chroma/v2/quick"
)

// RenderMarkdown highlights a result line by line. Fenced blocks are highlighted with their own
// language tag, prose with the markdown lexer.
func RenderMarkdown(ctx context.Context, w io.Writer, content string, language string, theme string) error {
	inCodeBlock := false
	blockLanguage := language

	for _, line := range strings.Split(content, "\n") {
		if err := ctx.Err(); err != nil {
			fmt.Fprint(w, "\n\nOutput interrupted...\n")
			return err
		}

		if strings.HasPrefix(line, "```") {
			inCodeBlock = !inCodeBlock
			if tag := DetectLanguageFromCodeBlock(line); inCodeBlock && tag != "" {
				blockLanguage = tag
			} else if !inCodeBlock {
				blockLanguage = language
			}
			fmt.Fprintln(w, line)
			continue
		}

		switch {
		case inCodeBlock && strings.HasPrefix(line, "+"):
			fmt.Fprint(w, "\x1b[92m"+line+"\x1b[0m\n")
		case inCodeBlock && strings.HasPrefix(line, "-"):
			fmt.Fprint(w, "\x1b[91m"+line+"\x1b[0m\n")
		default:
			lexer := "markdown"
			if inCodeBlock {
				lexer = blockLanguage
			}
			var buf bytes.Buffer
			if err := quick.Highlight(&buf, line+"\n", lexer, "terminal256", theme); err != nil {
				return err
			}
			_, _ = w.Write(buf.Bytes())
		}
	}
	return nil
}

// DetectLanguageFromCodeBlock returns the language tag of a fence line such as "```go".
func DetectLanguageFromCodeBlock(line string) string {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "```") {
		return ""
	}
	tag := strings.TrimSpace(strings.TrimPrefix(line, "```"))
	if fields := strings.Fields(tag); len(fields) > 0 {
		return strings.ToLower(fields[0])
	}
	return ""
}
