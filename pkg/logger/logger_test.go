package logger

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"defaults", Config{}, false},
		{"console debug", Config{Level: "debug", Encoding: "console"}, false},
		{"development", Config{Level: "warn", Development: true, Encoding: "console"}, false},
		{"bad level", Config{Level: "loud"}, true},
		{"bad encoding", Config{Encoding: "xml"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := New(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, l)
		})
	}
}

func TestNewWritesJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.json")
	l, err := New(Config{Level: "info", OutputPaths: []string{path}})
	require.NoError(t, err)

	l.Debug("hidden")
	l.Info("row group written")
	require.NoError(t, l.Sync())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"message":"row group written"`)
	assert.NotContains(t, string(raw), "hidden")
}

func TestFields(t *testing.T) {
	assert.Empty(t, Fields(context.Background()))

	ctx := NewContext(context.Background(), OutputKey, "out.parquet")
	ctx = NewContext(ctx, RunIDKey, "run-2")

	fields := Fields(ctx)
	require.Len(t, fields, 2)
	assert.Equal(t, "run_id", fields[0].Key)
	assert.Equal(t, "run-2", fields[0].String)
	assert.Equal(t, "output", fields[1].Key)
}
