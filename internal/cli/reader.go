package cli

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strings"
)

// ErrInputCancelled is returned when input is canceled by context.
var ErrInputCancelled = errors.New("input canceled")

// Reader provides context-aware line reading so interactive prompts can be
// interrupted with Ctrl-C.
type Reader struct {
	reader *bufio.Reader
}

// NewReader creates a reader over the given input stream.
func NewReader(input io.Reader) *Reader {
	if input == nil {
		panic("input cannot be nil")
	}
	return &Reader{reader: bufio.NewReader(input)}
}

// ReadLine reads one trimmed line, respecting context cancellation.
func (r *Reader) ReadLine(ctx context.Context) (string, error) {
	type result struct {
		err   error
		value string
	}
	resultCh := make(chan result, 1)

	go func() {
		value, err := r.reader.ReadString('\n')
		resultCh <- result{value: value, err: err}
	}()

	select {
	case <-ctx.Done():
		// The reading goroutine keeps running until its read completes,
		// but we return to the caller immediately.
		return "", ErrInputCancelled
	case res := <-resultCh:
		if res.err != nil {
			return "", res.err
		}
		return strings.TrimSpace(res.value), nil
	}
}
