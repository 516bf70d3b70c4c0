package utils

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/weavecode/weave/constants/lipgloss"
)

// InputPrompt prints label and reads one trimmed line from reader.
func InputPrompt(reader *bufio.Reader, label string) (string, error) {
	fmt.Print(lipgloss.BlueSky.Render(label + " "))

	userInput, err := reader.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("error reading input: %w", err)
	}
	return strings.TrimSpace(userInput), nil
}

// InputPromptWithContext is InputPrompt that gives up when ctx is cancelled.
func InputPromptWithContext(ctx context.Context, reader *bufio.Reader, label string) (string, error) {
	type result struct {
		input string
		err   error
	}
	resultChan := make(chan result, 1)

	go func() {
		input, err := InputPrompt(reader, label)
		resultChan <- result{input, err}
	}()

	select {
	case <-ctx.Done():
		fmt.Println()
		return "", ctx.Err()
	case r := <-resultChan:
		return r.input, r.err
	}
}
