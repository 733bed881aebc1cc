package filestore

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loanflow-backend/internal/usecase/warehouse"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n0000")

func TestLocal_Save(t *testing.T) {
	root := t.TempDir()
	s, err := NewLocal(root)
	require.NoError(t, err)

	ref, err := s.Save(context.Background(), "abc123", warehouse.ProofFile{Name: "bukti.PNG", ContentType: "image/png", Data: pngHeader})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(ref, "abc123/"))
	assert.True(t, strings.HasSuffix(ref, ".png"))

	got, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(ref)))
	require.NoError(t, err)
	assert.Equal(t, pngHeader, got)

	entries, err := os.ReadDir(filepath.Join(root, "abc123"))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file left behind")
}

func TestLocal_SaveDistinctNames(t *testing.T) {
	s, err := NewLocal(t.TempDir())
	require.NoError(t, err)

	f := warehouse.ProofFile{Name: "a.jpg", ContentType: "image/jpeg", Data: []byte{0xff, 0xd8, 0xff}}
	a, err := s.Save(context.Background(), "L1", f)
	require.NoError(t, err)
	b, err := s.Save(context.Background(), "L1", f)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestLocal_RejectsPathTricks(t *testing.T) {
	s, err := NewLocal(t.TempDir())
	require.NoError(t, err)

	for _, id := range []string{"", "..", "../etc", "a/b", ".hidden"} {
		_, err := s.Save(context.Background(), id, warehouse.ProofFile{Data: pngHeader})
		assert.Error(t, err, "loan id %q", id)
	}
}

func TestExtFor(t *testing.T) {
	tests := []struct {
		f    warehouse.ProofFile
		want string
	}{
		{warehouse.ProofFile{ContentType: "image/webp"}, ".webp"},
		{warehouse.ProofFile{Name: "scan.TIFF", ContentType: "image/tiff"}, ".tiff"},
		{warehouse.ProofFile{Name: "noext", ContentType: "image/x-unknown"}, ".bin"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, extFor(tt.f))
	}
}
