package presentation

import (
	"fmt"

	"github.com/weavecode/weave/code_analyzer"
	"github.com/weavecode/weave/models"
)

// CodeLens is an actionable annotation above a range of the document.
type CodeLens struct {
	Range     models.Range
	Title     string
	Command   string
	Arguments []models.CommandArgs
}

// NewCodeLenses emits the document-start analyze lens followed by one optimize lens per symbol.
func NewCodeLenses(uri string, doc *models.Document, symbols []code_analyzer.Symbol) []CodeLens {
	top := models.Range{}
	lenses := make([]CodeLens, 0, len(symbols)+1)
	lenses = append(lenses, CodeLens{
		Range:   top,
		Title:   "Analyze with Weave",
		Command: models.CommandAnalyzeCode,
		Arguments: []models.CommandArgs{{
			URI:       uri,
			Selection: doc.FullRange(),
		}},
	})

	for _, symbol := range symbols {
		lenses = append(lenses, CodeLens{
			Range:   models.Range{Start: symbol.Range.Start, End: symbol.Range.Start},
			Title:   fmt.Sprintf("Optimize %s", symbol.Name),
			Command: models.CommandSuggestOptimization,
			Arguments: []models.CommandArgs{{
				URI:       uri,
				Selection: symbol.Range,
				Position:  symbol.Range.Start,
			}},
		})
	}
	return lenses
}
