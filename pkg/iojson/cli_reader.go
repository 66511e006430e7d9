package iojson

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v3"
	"golang.org/x/term"
)

// ErrInputTooLarge is returned by Read when the input exceeds MaxBytes.
var ErrInputTooLarge = errors.New("input exceeds maximum size")

// FileReader decodes one JSON document of type T from the --file flag, or
// from stdin when the flag is unset.
type FileReader[T any] struct {
	// MaxBytes caps the input size. Zero means no limit.
	MaxBytes int64

	fileFlagValue string
}

func (fr *FileReader[T]) Flag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:        "file",
		Aliases:     []string{"f"},
		Usage:       "path to JSON file (reads from stdin if not provided)",
		Destination: &fr.fileFlagValue,
	}
}

func (fr *FileReader[T]) Read() (T, error) {
	var reader io.Reader
	var input T

	if fr.fileFlagValue != "" {
		f, err := os.Open(fr.fileFlagValue)
		if err != nil {
			return input, fmt.Errorf("open file: %w", err)
		}
		defer func() { _ = f.Close() }()
		reader = f
	} else {
		if term.IsTerminal(int(os.Stdin.Fd())) {
			return input, fmt.Errorf("no input provided (stdin is a terminal); use -f flag or pipe JSON input")
		}
		reader = os.Stdin
	}

	return fr.decode(reader)
}

func (fr *FileReader[T]) decode(r io.Reader) (T, error) {
	var input T

	if fr.MaxBytes > 0 {
		r = io.LimitReader(r, fr.MaxBytes+1)
	}
	bits, err := io.ReadAll(r)
	if err != nil {
		return input, fmt.Errorf("read input: %w", err)
	}
	if fr.MaxBytes > 0 && int64(len(bits)) > fr.MaxBytes {
		return input, fmt.Errorf("%w: limit is %d bytes", ErrInputTooLarge, fr.MaxBytes)
	}

	if err := json.Unmarshal(bits, &input); err != nil {
		return input, fmt.Errorf("decode JSON: %w", err)
	}
	return input, nil
}
