package warehouse

import (
	"fmt"
	"net/http"
	"strings"

	"loanflow-backend/internal/domain/loan"
)

const (
	MaxProofFiles    = 6
	MaxProofFileSize = 5 << 20
)

// ValidateFiles checks the whole upload before anything is stored or mutated.
// The declared and the sniffed content type must both be images.
func ValidateFiles(files []ProofFile) error {
	if len(files) > MaxProofFiles {
		return loan.Invalid("files", fmt.Sprintf("at most %d files allowed, got %d", MaxProofFiles, len(files)))
	}
	for i, f := range files {
		field := fmt.Sprintf("files[%d]", i)
		size := f.Size
		if size < int64(len(f.Data)) {
			size = int64(len(f.Data))
		}
		switch {
		case size == 0:
			return loan.Invalid(field, "empty file")
		case size > MaxProofFileSize:
			return loan.Invalid(field, fmt.Sprintf("%s exceeds 5MB", f.Name))
		case !isImage(f.ContentType):
			return loan.Invalid(field, fmt.Sprintf("%s: declared type %q is not an image", f.Name, f.ContentType))
		}
		if sniffed := http.DetectContentType(f.Data); !isImage(sniffed) {
			return loan.Invalid(field, fmt.Sprintf("%s: content is %s, not an image", f.Name, sniffed))
		}
	}
	return nil
}

func isImage(mime string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(mime)), "image/")
}
