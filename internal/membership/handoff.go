package membership

import (
	"context"
	"fmt"
	"sort"

	"github.com/aretw0/staffgate/pkg/domain"
	"github.com/aretw0/staffgate/pkg/rollback"
)

// Application is what the applicant hands to the reviewer. It is copied
// into the reviewer's conversation in full or not at all.
type Application struct {
	Applicant domain.Contact
	Role      domain.Role

	// Files are the unreserved documents, listed only for file-bearing roles.
	Files       []domain.File
	FilesListed bool

	// ContactMessage is the applicant's message carrying the contact. It is
	// forwarded to the reviewer.
	ContactMessage domain.MessageRef
}

// Validate reports every missing piece as one *domain.HandoffIntegrityError.
func (a Application) Validate() error {
	var missing []string
	if a.Applicant.Identity.IsZero() {
		missing = append(missing, "applicant.identity")
	}
	if a.Applicant.Name == "" {
		missing = append(missing, "applicant.name")
	}
	if a.Applicant.Phone == "" {
		missing = append(missing, "applicant.phone")
	}
	if !a.Role.Applicable() {
		missing = append(missing, "role")
	}
	if a.Role.FileBearing() && !a.FilesListed {
		missing = append(missing, "files")
	}
	if a.ContactMessage == 0 {
		missing = append(missing, "contact_message")
	}
	if len(missing) > 0 {
		return &domain.HandoffIntegrityError{Missing: missing}
	}
	return nil
}

// Fields returns the reviewer-side fields of the application.
func (a Application) Fields() domain.Fields {
	contact := a.Applicant
	return domain.Fields{
		Role:        a.Role,
		Applicant:   &contact,
		Files:       append([]domain.File(nil), a.Files...),
		FilesListed: a.FilesListed,
	}
}

func (a Application) offersFiles() bool {
	return a.Role.FileBearing() && len(a.Files) > 0
}

func (e *Engine) buildApplication(ctx context.Context, fields domain.Fields, contactMessage domain.MessageRef) (Application, error) {
	if !fields.Role.Applicable() {
		return Application{}, &domain.InvalidRoleError{Value: string(fields.Role)}
	}
	app := Application{Role: fields.Role, ContactMessage: contactMessage}
	if fields.Applicant != nil {
		app.Applicant = *fields.Applicant
	}
	if app.Role.FileBearing() {
		files, err := e.UnreservedFiles(ctx)
		if err != nil {
			return Application{}, err
		}
		app.Files = files
		app.FilesListed = true
	}
	return app, nil
}

// UnreservedFiles returns the candidate documents not yet pinned to a member.
func (e *Engine) UnreservedFiles(ctx context.Context) ([]domain.File, error) {
	candidates, err := e.documents.ListCandidateFiles(ctx)
	if err != nil {
		return nil, fmt.Errorf("list candidate files: %w", err)
	}
	assigned, err := e.directory.ListAssignedFileIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list assigned files: %w", err)
	}
	taken := make(map[string]struct{}, len(assigned))
	for _, id := range assigned {
		taken[id] = struct{}{}
	}
	free := make([]domain.File, 0, len(candidates))
	for _, f := range candidates {
		if _, ok := taken[f.ID]; !ok {
			free = append(free, f)
		}
	}
	sort.SliceStable(free, func(i, j int) bool { return free[i].Name < free[j].Name })
	return free, nil
}

// handoff moves an application from the applicant to the reviewer.
// Nothing is written unless the application is complete. The reviewer's
// conversation is replaced, not merged.
func (e *Engine) handoff(ctx context.Context, from, to domain.Identity, app Application) error {
	if err := app.Validate(); err != nil {
		return err
	}

	prompt := e.catalog.considerationPrompt(app)
	point, err := rollback.Encode(domain.RollbackPoint{Prompt: prompt, State: domain.StateApplicantConsideration})
	if err != nil {
		return err
	}
	fields := app.Fields()
	fields.Rollback = point

	if prev, err := e.sessions.GetState(ctx, to); err == nil && prev.Graph() == domain.GraphReviewer {
		e.logger.Warn("pending application replaced", "reviewer", to, "state", prev, "applicant", from)
	}
	if err := e.sessions.Replace(ctx, to, domain.StateApplicantConsideration, fields); err != nil {
		return err
	}
	applicant := app.Applicant
	if err := e.advance(ctx, from, domain.StateWaitAcceptance, func(f *domain.Fields) {
		f.Applicant = &applicant
	}); err != nil {
		return err
	}

	if err := e.messenger.ForwardContact(ctx, to, from, app.ContactMessage); err != nil {
		return fmt.Errorf("forward contact: %w", err)
	}
	ref, err := e.messenger.SendMessage(ctx, to, prompt)
	if err != nil {
		return fmt.Errorf("send consideration menu: %w", err)
	}
	if err := e.sessions.MergeData(ctx, to, domain.Fields{PromptRef: ref}); err != nil {
		return err
	}
	if _, err := e.messenger.SendMessage(ctx, from, e.catalog.waitPrompt()); err != nil {
		return fmt.Errorf("send wait notice: %w", err)
	}

	e.logger.Info("application handed off",
		"applicant", from, "reviewer", to, "role", app.Role, "files", len(app.Files))
	return nil
}
