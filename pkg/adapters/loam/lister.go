// Package loam lists candidate schedule documents from a folder of
// Markdown/YAML/JSON files managed by Loam.
package loam

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aretw0/loam"
	"github.com/aretw0/staffgate/pkg/domain"
)

// KindDocument is the kind a file must declare to be offered to new members.
const KindDocument = "document"

// DocumentMeta is the frontmatter of one candidate file.
type DocumentMeta struct {
	ID    string `json:"id" mapstructure:"id"`
	Name  string `json:"name" mapstructure:"name"`
	Title string `json:"title" mapstructure:"title"`
	// Kind is either a bare kind ("document") or a mime type whose last
	// segment is the kind ("application/vnd.google-apps.document").
	Kind string `json:"kind" mapstructure:"kind"`
}

// Lister implements ports.DocumentLister over a Loam repository.
type Lister struct {
	Repo *loam.TypedRepository[DocumentMeta]
}

// New creates a lister over repo.
func New(repo *loam.TypedRepository[DocumentMeta]) *Lister {
	return &Lister{Repo: repo}
}

// Open initializes a read-only Loam repository at path.
func Open(path string) (*Lister, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}

	// Strict mode keeps numeric frontmatter consistent across adapters.
	// Read-only mode stops Loam from creating a sandbox in dev mode.
	repo, err := loam.Init(absPath,
		loam.WithStrict(true),
		loam.WithReadOnly(true),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize loam: %w", err)
	}
	return New(loam.NewTypedRepository[DocumentMeta](repo)), nil
}

// ListCandidateFiles returns every document of kind "document", sorted by name.
func (l *Lister) ListCandidateFiles(ctx context.Context) ([]domain.File, error) {
	docs, err := l.Repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("loam list failed: %w", err)
	}

	seen := make(map[string]string)
	files := make([]domain.File, 0, len(docs))
	for _, doc := range docs {
		if !isDocument(doc.Data.Kind) {
			continue
		}

		rawID := doc.Data.ID
		if rawID == "" {
			rawID = doc.ID
		}
		id := trimExtension(rawID)

		if existing, ok := seen[id]; ok {
			return nil, fmt.Errorf("collision detected: ID '%s' is defined in both '%s' and '%s'", id, existing, doc.ID)
		}
		seen[id] = doc.ID

		files = append(files, domain.File{ID: id, Name: displayName(id, doc.Data)})
	}

	sort.Slice(files, func(i, j int) bool {
		if files[i].Name == files[j].Name {
			return files[i].ID < files[j].ID
		}
		return files[i].Name < files[j].Name
	})
	return files, nil
}

func isDocument(kind string) bool {
	kind = strings.ToLower(strings.TrimSpace(kind))
	if i := strings.LastIndexAny(kind, "./"); i >= 0 {
		kind = kind[i+1:]
	}
	return kind == KindDocument
}

func displayName(id string, meta DocumentMeta) string {
	switch {
	case meta.Name != "":
		return meta.Name
	case meta.Title != "":
		return meta.Title
	default:
		return filepath.Base(id)
	}
}

func trimExtension(id string) string {
	if ext := filepath.Ext(id); ext != "" {
		return filepath.ToSlash(strings.TrimSuffix(id, ext))
	}
	return filepath.ToSlash(id)
}
