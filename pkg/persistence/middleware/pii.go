package middleware

import (
	"context"
	"errors"
	"regexp"

	"github.com/aretw0/staffgate/pkg/domain"
	"github.com/aretw0/staffgate/pkg/ports"
)

// ErrReadOnly is returned by writes through a redacting store.
var ErrReadOnly = errors.New("store is read-only")

// Mask replaces a redacted value.
const Mask = "***"

// DefaultPIIPatterns covers the contact data collected from applicants.
var DefaultPIIPatterns = []string{`phone`, `^applicant\.name$`}

type piiMiddleware struct {
	next     ports.StateStore
	patterns []*regexp.Regexp
}

// NewPIIMiddleware creates a read-only view of a store that masks every field
// whose path matches one of the patterns. Paths are the JSON names, dotted for
// nested values: "applicant.phone", "alias", "files.name".
// Inspection surfaces (admin API, MCP) read through it; the engine never does.
func NewPIIMiddleware(patternStrings []string) Middleware {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		patterns[i] = regexp.MustCompile(p)
	}
	return func(next ports.StateStore) ports.StateStore {
		return &piiMiddleware{next: next, patterns: patterns}
	}
}

func (m *piiMiddleware) Save(ctx context.Context, id domain.Identity, conv *domain.Conversation) error {
	return ErrReadOnly
}

func (m *piiMiddleware) Load(ctx context.Context, id domain.Identity) (*domain.Conversation, error) {
	conv, err := m.next.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	// Clone so a store that hands out shared pointers is never modified.
	masked := conv.Clone()
	m.mask(&masked.Fields)
	return masked, nil
}

func (m *piiMiddleware) Delete(ctx context.Context, id domain.Identity) error {
	return ErrReadOnly
}

func (m *piiMiddleware) List(ctx context.Context) ([]domain.Identity, error) {
	return m.next.List(ctx)
}

func (m *piiMiddleware) matches(path string) bool {
	for _, p := range m.patterns {
		if p.MatchString(path) {
			return true
		}
	}
	return false
}

func (m *piiMiddleware) maskString(path string, v *string) {
	if *v != "" && m.matches(path) {
		*v = Mask
	}
}

func (m *piiMiddleware) mask(f *domain.Fields) {
	if f.Applicant != nil {
		m.maskString("applicant.name", &f.Applicant.Name)
		m.maskString("applicant.phone", &f.Applicant.Phone)
	}
	for i := range f.Files {
		m.maskString("files.name", &f.Files[i].Name)
	}
	m.maskString("file_name", &f.FileName)
	m.maskString("alias", &f.Alias)
	// The rollback point embeds prompt text that may quote any of the above.
	if f.Rollback != "" && m.matches("rollback") {
		f.Rollback = Mask
	}
}

// MaskStaff returns a copy of records with phone numbers replaced by Mask.
func MaskStaff(records []domain.StaffRecord) []domain.StaffRecord {
	out := make([]domain.StaffRecord, len(records))
	for i, rec := range records {
		if rec.Phone != "" {
			rec.Phone = Mask
		}
		out[i] = rec
	}
	return out
}
