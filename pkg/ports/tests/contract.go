package tests

import (
	"context"
	"testing"

	"github.com/aretw0/staffgate/pkg/domain"
	"github.com/aretw0/staffgate/pkg/ports"
)

// DocumentListerContractTest is a reusable test suite that verifies if an adapter complies with ports.DocumentLister.
// want holds every document the adapter was seeded with; order is not significant.
func DocumentListerContractTest(t *testing.T, lister ports.DocumentLister, want []domain.File) {
	t.Helper()

	t.Run("ListCandidateFiles", func(t *testing.T) {
		files, err := lister.ListCandidateFiles(context.Background())
		if err != nil {
			t.Fatalf("unexpected error listing files: %v", err)
		}

		if len(files) != len(want) {
			t.Fatalf("expected %d files, got %d: %v", len(want), len(files), files)
		}

		lookup := make(map[string]string)
		for _, f := range files {
			if f.ID == "" {
				t.Errorf("file with empty id: %+v", f)
			}
			if _, dup := lookup[f.ID]; dup {
				t.Errorf("duplicate file id %s", f.ID)
			}
			lookup[f.ID] = f.Name
		}

		for _, w := range want {
			name, ok := lookup[w.ID]
			if !ok {
				t.Errorf("file %s missing from list", w.ID)
				continue
			}
			if name != w.Name {
				t.Errorf("name mismatch for %s. got %q, want %q", w.ID, name, w.Name)
			}
		}
	})
}
