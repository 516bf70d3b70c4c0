package embed_data

import _ "embed"

//go:embed prompts/generate_prompt.md
var GeneratePromptSystemPrompt []byte

//go:embed prompts/analyze.md
var AnalyzeSystemPrompt []byte

//go:embed prompts/suggest_optimization.md
var SuggestOptimizationSystemPrompt []byte

//go:embed prompts/complete.md
var CompleteSystemPrompt []byte

//go:embed documentation.md
var Documentation []byte

//go:embed templates.json
var Templates []byte

//go:embed models_details/model_details.json
var ModelDetails []byte

//go:embed tree-sitter/queries/go.scm
var GoQuery []byte

//go:embed tree-sitter/queries/javascript.scm
var JavascriptQuery []byte

//go:embed tree-sitter/queries/typescript.scm
var TypescriptQuery []byte

//go:embed tree-sitter/queries/python.scm
var PythonQuery []byte

//go:embed tree-sitter/queries/java.scm
var JavaQuery []byte

//go:embed tree-sitter/queries/csharp.scm
var CSharpQuery []byte
