// Package filestore keeps uploaded proof files on local disk.
package filestore

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"loanflow-backend/internal/usecase/warehouse"
)

var imageExt = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
	"image/bmp":  ".bmp",
}

type Local struct {
	root string
}

func NewLocal(root string) (*Local, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Local{root: root}, nil
}

// Save writes f under <root>/<loanID>/ and returns the slash-separated ref relative to root.
// Files are renamed into place so a reader never sees a partial write.
func (s *Local) Save(ctx context.Context, loanID string, f warehouse.ProofFile) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if loanID == "" || loanID != filepath.Base(loanID) || strings.HasPrefix(loanID, ".") {
		return "", fmt.Errorf("filestore: bad loan id %q", loanID)
	}
	dir := filepath.Join(s.root, loanID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	name := uuid.NewString() + extFor(f)
	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return "", err
	}
	if _, err := tmp.Write(f.Data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	if err := os.Rename(tmp.Name(), filepath.Join(dir, name)); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	return path.Join(loanID, name), nil
}

func extFor(f warehouse.ProofFile) string {
	if ext, ok := imageExt[strings.ToLower(f.ContentType)]; ok {
		return ext
	}
	ext := strings.ToLower(filepath.Ext(f.Name))
	if len(ext) > 1 && len(ext) <= 5 {
		return ext
	}
	return ".bin"
}
