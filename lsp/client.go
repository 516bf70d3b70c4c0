package lsp

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/weavecode/weave/models"
	"github.com/weavecode/weave/presentation"
	"go.lsp.dev/jsonrpc2"
	"go.lsp.dev/protocol"
)

// Client renders results into the editor over the connection. It implements presentation.Host.
type Client struct {
	conn jsonrpc2.Conn
}

// NewClient wraps the server side of a connection.
func NewClient(conn jsonrpc2.Conn) *Client {
	return &Client{conn: conn}
}

func (c *Client) ShowInformation(ctx context.Context, message string) {
	c.showMessage(ctx, protocol.MessageTypeInfo, message)
}

func (c *Client) ShowError(ctx context.Context, message string) {
	c.showMessage(ctx, protocol.MessageTypeError, message)
}

func (c *Client) showMessage(ctx context.Context, kind protocol.MessageType, message string) {
	err := c.conn.Notify(ctx, MethodShowMessage, &protocol.ShowMessageParams{
		Type:    kind,
		Message: message,
	})
	if err != nil {
		slog.Error("failed to send message to client", "error", err)
	}
}

// OpenPanel asks the editor to open a new webview with the rendered panel.
func (c *Client) OpenPanel(ctx context.Context, panel *presentation.Panel) error {
	return c.conn.Notify(ctx, MethodOpenPanel, panel)
}

// InsertText applies a single insertion edit through workspace/applyEdit.
func (c *Client) InsertText(ctx context.Context, uri string, position models.Position, text string) error {
	at := toProtocolPosition(position)
	params := &protocol.ApplyWorkspaceEditParams{
		Label: "Insert Weave template",
		Edit: protocol.WorkspaceEdit{
			Changes: map[protocol.DocumentURI][]protocol.TextEdit{
				protocol.DocumentURI(uri): {{
					Range:   protocol.Range{Start: at, End: at},
					NewText: text,
				}},
			},
		},
	}

	var response protocol.ApplyWorkspaceEditResponse
	if _, err := c.conn.Call(ctx, MethodApplyEdit, params, &response); err != nil {
		return fmt.Errorf("workspace/applyEdit failed: %w", err)
	}
	if !response.Applied {
		return fmt.Errorf("edit rejected by the editor: %s", response.FailureReason)
	}
	return nil
}

func toProtocolPosition(p models.Position) protocol.Position {
	return protocol.Position{Line: uint32(max(p.Line, 0)), Character: uint32(max(p.Column, 0))}
}

func fromProtocolPosition(p protocol.Position) models.Position {
	return models.Position{Line: int(p.Line), Column: int(p.Character)}
}

func toProtocolRange(r models.Range) protocol.Range {
	return protocol.Range{Start: toProtocolPosition(r.Start), End: toProtocolPosition(r.End)}
}
