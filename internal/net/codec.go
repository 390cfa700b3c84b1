package net

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

// MaxLineLength bounds one console command line, terminator excluded.
const MaxLineLength = 1024

var ErrLineTooLong = errors.New("line too long")

// ReadLine reads one console line from r.
// Wire format: UTF-8 text terminated by "\n"; a trailing "\r" is dropped.
func ReadLine(r *bufio.Reader) (string, error) {
	var sb strings.Builder
	for {
		chunk, isPrefix, err := r.ReadLine()
		if err != nil {
			if errors.Is(err, io.EOF) && sb.Len() > 0 {
				return sb.String(), nil
			}
			return "", fmt.Errorf("read line: %w", err)
		}
		if sb.Len()+len(chunk) > MaxLineLength {
			return "", ErrLineTooLong
		}
		sb.Write(chunk)
		if !isPrefix {
			return sb.String(), nil
		}
	}
}

// WriteLine writes text followed by "\r\n". Embedded newlines are normalized
// so multi-line replies render on any terminal.
func WriteLine(w io.Writer, text string) error {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\n", "\r\n")
	if _, err := io.WriteString(w, text+"\r\n"); err != nil {
		return fmt.Errorf("write line: %w", err)
	}
	return nil
}
