package memory

import (
	"context"

	"github.com/aretw0/staffgate/pkg/domain"
)

// Lister implements ports.DocumentLister over a fixed slice.
type Lister struct {
	Files []domain.File
	Err   error
}

// NewLister creates a lister returning files.
func NewLister(files ...domain.File) *Lister {
	return &Lister{Files: files}
}

// ListCandidateFiles returns a copy of the configured files.
func (l *Lister) ListCandidateFiles(ctx context.Context) ([]domain.File, error) {
	if l.Err != nil {
		return nil, l.Err
	}
	return append([]domain.File(nil), l.Files...), nil
}
