package service

import (
	"bufio"
	"context"
	"io"
)

// Source yields raw command lines. Next returns io.EOF once the input is
// exhausted.
type Source interface {
	Next(ctx context.Context) (string, error)
}

// LineSource reads newline-separated commands from r.
type LineSource struct {
	sc *bufio.Scanner
}

func NewLineSource(r io.Reader) *LineSource {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 4096), 1<<20)
	return &LineSource{sc: sc}
}

func (s *LineSource) Next(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if s.sc.Scan() {
		return s.sc.Text(), nil
	}
	if err := s.sc.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}
