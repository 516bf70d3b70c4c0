package code_analyzer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/weavecode/weave/models"
)

const jsSource = `// helpers
async function load(url) {
  return fetch(url);
}

class Cache {
  get(key) { return this[key]; }
}

const double = (x) => x * 2;
`

func TestRegexScanner_FindsFunctionsAndClasses(t *testing.T) {
	symbols, err := NewRegexScanner().Scan(context.Background(), "javascript", jsSource)
	require.NoError(t, err)

	require.Len(t, symbols, 2)
	assert.Equal(t, "load", symbols[0].Name)
	assert.Equal(t, "function", symbols[0].Kind)
	assert.Equal(t, models.Position{Line: 1, Column: 0}, symbols[0].Range.Start)
	assert.Equal(t, "Cache", symbols[1].Name)
	assert.Equal(t, "class", symbols[1].Kind)
	assert.Equal(t, models.Position{Line: 5, Column: 0}, symbols[1].Range.Start)
	// a symbol runs until the next match
	assert.Equal(t, symbols[1].Range.Start, symbols[0].Range.End)
}

func TestRegexScanner_KnownHeuristicGaps(t *testing.T) {
	source := "// this function foo is only a comment\nconst bar = () => 1;\nlet s = \"class Fake\";"

	symbols, err := NewRegexScanner().Scan(context.Background(), "javascript", source)
	require.NoError(t, err)

	names := make([]string, 0, len(symbols))
	for _, s := range symbols {
		names = append(names, s.Name)
	}
	// comments and strings match, arrow bindings do not
	assert.Equal(t, []string{"foo", "Fake"}, names)
}

func TestRegexScanner_NoMatches(t *testing.T) {
	symbols, err := NewRegexScanner().Scan(context.Background(), "plaintext", "nothing to see here")
	require.NoError(t, err)
	assert.Empty(t, symbols)
}

func TestSyntaxScanner_Go(t *testing.T) {
	source := `package demo

type Cache struct{}

func (c *Cache) Get(key string) string { return key }

func New() *Cache {
	return &Cache{}
}
`
	symbols, err := NewSyntaxScanner(NewRegexScanner()).Scan(context.Background(), "go", source)
	require.NoError(t, err)

	require.Len(t, symbols, 3)
	assert.Equal(t, "Cache", symbols[0].Name)
	assert.Equal(t, "class", symbols[0].Kind)
	assert.Equal(t, "Get", symbols[1].Name)
	assert.Equal(t, "New", symbols[2].Name)
	assert.Equal(t, 6, symbols[2].Range.Start.Line)
	assert.Equal(t, 8, symbols[2].Range.End.Line)
}

func TestSyntaxScanner_PythonIgnoresComments(t *testing.T) {
	source := "# def commented(): pass\nclass Greeter:\n    def greet(self):\n        return 'class Fake'\n"

	symbols, err := NewSyntaxScanner(NewRegexScanner()).Scan(context.Background(), "python", source)
	require.NoError(t, err)

	require.Len(t, symbols, 2)
	assert.Equal(t, "Greeter", symbols[0].Name)
	assert.Equal(t, "greet", symbols[1].Name)
}

func TestSyntaxScanner_FallsBackForUnsupportedLanguages(t *testing.T) {
	symbols, err := NewSyntaxScanner(NewRegexScanner()).Scan(context.Background(), "php", "function hello() {}")
	require.NoError(t, err)

	require.Len(t, symbols, 1)
	assert.Equal(t, "hello", symbols[0].Name)
}

type countingScanner struct {
	calls int
}

func (c *countingScanner) Name() string { return "counting" }

func (c *countingScanner) Scan(ctx context.Context, language string, text string) ([]Symbol, error) {
	c.calls++
	return []Symbol{{Name: text}}, nil
}

func TestCachedScanner_HitsAndMisses(t *testing.T) {
	inner := &countingScanner{}
	cached, err := NewCachedScanner(inner, 2)
	require.NoError(t, err)

	ctx := context.Background()
	_, _ = cached.Scan(ctx, "go", "a")
	_, _ = cached.Scan(ctx, "go", "a")
	_, _ = cached.Scan(ctx, "python", "a")

	assert.Equal(t, 2, inner.calls)
	assert.Equal(t, CacheStats{Hits: 1, Misses: 2}, cached.Stats())

	cached.Purge()
	_, _ = cached.Scan(ctx, "go", "a")
	assert.Equal(t, 3, inner.calls)
}

func BenchmarkCacheKeyGeneration(b *testing.B) {
	text := jsSource
	for i := 0; i < 6; i++ {
		text += text
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = generateCacheKey("regex", "javascript", text)
	}
}

func TestRegexScanner_ColumnsAreUTF16(t *testing.T) {
	source := "const café = 1; function brew() {}\n/* 😀 */ class Pot {}"

	symbols, err := NewRegexScanner().Scan(context.Background(), "javascript", source)
	require.NoError(t, err)

	require.Len(t, symbols, 2)
	assert.Equal(t, models.Position{Line: 0, Column: 16}, symbols[0].Range.Start)
	assert.Equal(t, models.Position{Line: 1, Column: 9}, symbols[1].Range.Start)
}

func TestSyntaxScanner_ColumnsAreUTF16(t *testing.T) {
	source := "const café = 1; function brew() {}\n"

	symbols, err := NewSyntaxScanner(NewRegexScanner()).Scan(context.Background(), "javascript", source)
	require.NoError(t, err)

	require.NotEmpty(t, symbols)
	assert.Equal(t, "brew", symbols[0].Name)
	assert.Equal(t, models.Position{Line: 0, Column: 16}, symbols[0].Range.Start)
}
