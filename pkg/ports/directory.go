package ports

import (
	"context"

	"github.com/aretw0/staffgate/pkg/domain"
)

// Directory is the relational record store for members, blacklist and roles.
type Directory interface {
	// InsertStaff adds an accepted member. Returns domain.ErrAlreadyExists
	// if the identity is already on staff.
	InsertStaff(ctx context.Context, rec domain.StaffRecord) error

	// InsertBlacklist adds a rejected applicant. Returns
	// domain.ErrAlreadyExists if the identity is already blacklisted.
	InsertBlacklist(ctx context.Context, rec domain.BlacklistRecord) error

	// ListAssignedFileIDs returns the file ids already pinned to members.
	ListAssignedFileIDs(ctx context.Context) ([]string, error)

	// LookupRole returns the role of a registered identity.
	// ok is false when the identity is unknown.
	LookupRole(ctx context.Context, id domain.Identity) (role domain.Role, ok bool, err error)

	// IsBlacklisted reports whether the identity was rejected before.
	IsBlacklisted(ctx context.Context, id domain.Identity) (bool, error)

	// ListStaff returns every member. Ordering is backend specific.
	ListStaff(ctx context.Context) ([]domain.StaffRecord, error)
}

// DocumentLister lists the documents that may be pinned to new members.
type DocumentLister interface {
	ListCandidateFiles(ctx context.Context) ([]domain.File, error)
}
