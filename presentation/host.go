package presentation

import (
	"context"

	"github.com/weavecode/weave/models"
)

// Host is the editor surface results are rendered into.
type Host interface {
	ShowInformation(ctx context.Context, message string)
	ShowError(ctx context.Context, message string)
	OpenPanel(ctx context.Context, panel *Panel) error
	InsertText(ctx context.Context, uri string, position models.Position, text string) error
}
