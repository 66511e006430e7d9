// Package iojson reads JSON input and writes indented JSON output for CLI
// commands.
package iojson

import (
	"encoding/json"
	"fmt"
	"io"
)

// WriteWith writes obj to w as indented JSON followed by a newline. When obj
// cannot be marshaled, a {"error": ...} object is written to ew instead and
// the marshal error is returned.
func WriteWith(w io.Writer, ew io.Writer, obj any) error {
	bits, err := json.MarshalIndent(obj, "", "  ")
	if err != nil {
		msg, _ := json.Marshal(map[string]string{"error": err.Error()})
		_, _ = fmt.Fprintln(ew, string(msg))
		return fmt.Errorf("marshal output: %w", err)
	}

	_, err = fmt.Fprintln(w, string(bits))
	return err
}
