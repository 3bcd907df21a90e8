package cmd

import (
	"errors"
	"io"
	"strings"
	"syscall"
)

// ErrBrokenPipe is returned when the reader of the output went away.
var ErrBrokenPipe = errors.New("broken pipe")

// pipeWriter converts EPIPE write errors into ErrBrokenPipe.
type pipeWriter struct {
	w io.Writer
}

func (p pipeWriter) Write(b []byte) (int, error) {
	n, err := p.w.Write(b)
	if isBrokenPipe(err) {
		return n, ErrBrokenPipe
	}
	return n, err
}

func isBrokenPipe(err error) bool {
	return errors.Is(err, ErrBrokenPipe) || errors.Is(err, syscall.EPIPE)
}

// writeOutput writes s followed by a newline unless s is empty.
func writeOutput(w io.Writer, s string) error {
	if s == "" {
		return nil
	}
	if !strings.HasSuffix(s, "\n") {
		s += "\n"
	}
	_, err := io.WriteString(pipeWriter{w: w}, s)
	return err
}
