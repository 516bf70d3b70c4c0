package lsp

import (
	"errors"
	"io"
	"os"
)

// stdio joins stdin and stdout into the single stream the connection reads and writes.
type stdio struct {
	in  io.ReadCloser
	out io.WriteCloser
}

// Stdio returns the process standard streams as one ReadWriteCloser.
func Stdio() io.ReadWriteCloser {
	return &stdio{in: os.Stdin, out: os.Stdout}
}

func (s *stdio) Read(p []byte) (int, error) {
	return s.in.Read(p)
}

func (s *stdio) Write(p []byte) (int, error) {
	return s.out.Write(p)
}

func (s *stdio) Close() error {
	return errors.Join(s.in.Close(), s.out.Close())
}
