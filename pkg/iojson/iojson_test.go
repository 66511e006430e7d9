package iojson

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteWith(t *testing.T) {
	tests := []struct {
		name    string
		obj     any
		wantOut string
		wantErr bool
	}{
		{name: "object", obj: map[string]int{"a": 1}, wantOut: `{"a":1}`},
		{name: "unmarshalable", obj: map[string]any{"ch": make(chan int)}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out, errOut bytes.Buffer

			err := WriteWith(&out, &errOut, tt.obj)
			if tt.wantErr {
				require.Error(t, err)
				assert.Empty(t, out.String())
				assert.Contains(t, errOut.String(), `"error"`)
				return
			}

			require.NoError(t, err)
			assert.JSONEq(t, tt.wantOut, out.String())
			assert.Empty(t, errOut.String())
		})
	}
}

func TestFileReader_Read(t *testing.T) {
	type payload struct {
		Mode string `json:"mode"`
	}

	write := func(t *testing.T, content string) string {
		t.Helper()
		path := filepath.Join(t.TempDir(), "task.json")
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
		return path
	}

	t.Run("reads file", func(t *testing.T) {
		fr := FileReader[payload]{fileFlagValue: write(t, `{"mode":"plan"}`)}
		got, err := fr.Read()
		require.NoError(t, err)
		assert.Equal(t, "plan", got.Mode)
	})

	t.Run("missing file", func(t *testing.T) {
		fr := FileReader[payload]{fileFlagValue: filepath.Join(t.TempDir(), "nope.json")}
		_, err := fr.Read()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "open file")
	})

	t.Run("invalid json", func(t *testing.T) {
		fr := FileReader[json.RawMessage]{fileFlagValue: write(t, `{`)}
		_, err := fr.Read()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "decode JSON")
	})
}

func TestFileReader_MaxBytes(t *testing.T) {
	body := `{"mode":"` + strings.Repeat("x", 40) + `"}`

	tests := []struct {
		name     string
		maxBytes int64
		wantErr  bool
	}{
		{name: "no limit", maxBytes: 0},
		{name: "at limit", maxBytes: int64(len(body))},
		{name: "over limit", maxBytes: int64(len(body)) - 1, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "task.json")
			require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

			fr := FileReader[json.RawMessage]{MaxBytes: tt.maxBytes, fileFlagValue: path}
			got, err := fr.Read()
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInputTooLarge)
				return
			}
			require.NoError(t, err)
			assert.JSONEq(t, body, string(got))
		})
	}
}
