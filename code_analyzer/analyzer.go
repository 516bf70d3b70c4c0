package code_analyzer

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/csharp"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/java"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
	"github.com/weavecode/weave/embed_data"
	"github.com/weavecode/weave/models"
)

// Symbol is a function or class found in a document.
type Symbol struct {
	Name  string
	Kind  string
	Range models.Range
}

// SymbolScanner finds the symbols that get an optimize lens.
type SymbolScanner interface {
	Name() string
	Scan(ctx context.Context, language string, text string) ([]Symbol, error)
}

// symbolPattern is a syntactic heuristic, not a parser: it misses arrow-function bindings
// and also matches inside comments and strings.
var symbolPattern = regexp.MustCompile(`(async\s+)?(function|class)\s+([A-Za-z_$][\w$]*)`)

// RegexScanner matches `(async )?(function|class) name` anywhere in the text.
type RegexScanner struct{}

// NewRegexScanner creates the default scanner.
func NewRegexScanner() *RegexScanner {
	return &RegexScanner{}
}

func (s *RegexScanner) Name() string { return "regex" }

// Scan returns one symbol per match. Each symbol spans from its match to the next match or the end of the text.
func (s *RegexScanner) Scan(ctx context.Context, language string, text string) ([]Symbol, error) {
	matches := symbolPattern.FindAllStringSubmatchIndex(text, -1)
	index := newLineIndex(text)

	symbols := make([]Symbol, 0, len(matches))
	for i, m := range matches {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		end := len(text)
		if i+1 < len(matches) {
			end = matches[i+1][0]
		}
		symbols = append(symbols, Symbol{
			Name: text[m[6]:m[7]],
			Kind: text[m[4]:m[5]],
			Range: models.Range{
				Start: index.position(m[0]),
				End:   index.position(end),
			},
		})
	}
	return symbols, nil
}

// SyntaxScanner uses tree-sitter queries and falls back to another scanner for unsupported languages.
type SyntaxScanner struct {
	fallback SymbolScanner

	mu      sync.Mutex
	queries map[string]*sitter.Query
}

// NewSyntaxScanner creates a tree-sitter backed scanner.
func NewSyntaxScanner(fallback SymbolScanner) *SyntaxScanner {
	return &SyntaxScanner{
		fallback: fallback,
		queries:  make(map[string]*sitter.Query),
	}
}

func (s *SyntaxScanner) Name() string { return "syntax" }

// Scan parses the text and collects every @symbol capture with its @name.
func (s *SyntaxScanner) Scan(ctx context.Context, language string, text string) ([]Symbol, error) {
	lang, queryText := GetSupportedLanguage(language)
	if lang == nil {
		return s.fallback.Scan(ctx, language, text)
	}

	query, err := s.query(language, lang, queryText)
	if err != nil {
		slog.Warn("tree-sitter query failed to compile, using fallback scanner", "language", language, "error", err)
		return s.fallback.Scan(ctx, language, text)
	}

	sourceCode := []byte(text)
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(lang)

	tree, err := parser.ParseCtx(ctx, nil, sourceCode)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s source: %w", language, err)
	}
	defer tree.Close()

	index := newLineIndex(text)
	cursor := sitter.NewQueryCursor()
	defer cursor.Close()
	cursor.Exec(query, tree.RootNode())

	var symbols []Symbol
	for {
		match, ok := cursor.NextMatch()
		if !ok {
			break
		}

		var symbol Symbol
		for _, capture := range match.Captures {
			switch query.CaptureNameForId(capture.Index) {
			case "name":
				symbol.Name = capture.Node.Content(sourceCode)
			case "symbol":
				symbol.Kind = kindFromNodeType(capture.Node.Type())
				symbol.Range = models.Range{
					Start: index.position(int(capture.Node.StartByte())),
					End:   index.position(int(capture.Node.EndByte())),
				}
			}
		}
		if symbol.Name != "" {
			symbols = append(symbols, symbol)
		}
	}

	sort.SliceStable(symbols, func(i, j int) bool {
		a, b := symbols[i].Range.Start, symbols[j].Range.Start
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		return a.Column < b.Column
	})
	return symbols, nil
}

func (s *SyntaxScanner) query(language string, lang *sitter.Language, queryText []byte) (*sitter.Query, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if q, ok := s.queries[language]; ok {
		return q, nil
	}
	q, err := sitter.NewQuery(queryText, lang)
	if err != nil {
		return nil, err
	}
	s.queries[language] = q
	return q, nil
}

// GetSupportedLanguage returns the tree-sitter grammar and symbol query for an editor language id.
func GetSupportedLanguage(language string) (*sitter.Language, []byte) {
	switch strings.ToLower(language) {
	case "go":
		return golang.GetLanguage(), embed_data.GoQuery
	case "javascript", "javascriptreact":
		return javascript.GetLanguage(), embed_data.JavascriptQuery
	case "typescript":
		return typescript.GetLanguage(), embed_data.TypescriptQuery
	case "python":
		return python.GetLanguage(), embed_data.PythonQuery
	case "java":
		return java.GetLanguage(), embed_data.JavaQuery
	case "csharp":
		return csharp.GetLanguage(), embed_data.CSharpQuery
	default:
		return nil, nil
	}
}

func kindFromNodeType(nodeType string) string {
	switch {
	case strings.Contains(nodeType, "class"), strings.Contains(nodeType, "type"), strings.Contains(nodeType, "interface"):
		return "class"
	default:
		return "function"
	}
}

// lineIndex converts byte offsets to line/column positions with UTF-16 columns.
type lineIndex struct {
	text   string
	starts []int
}

func newLineIndex(text string) lineIndex {
	starts := []int{0}
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			starts = append(starts, i+1)
		}
	}
	return lineIndex{text: text, starts: starts}
}

func (li lineIndex) position(offset int) models.Position {
	line := sort.Search(len(li.starts), func(i int) bool { return li.starts[i] > offset }) - 1
	start := li.starts[line]
	return models.Position{Line: line, Column: models.UTF16Column(li.text[start:], offset-start)}
}
