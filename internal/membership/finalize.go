package membership

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/staffgate/internal/metrics"
	"github.com/aretw0/staffgate/pkg/domain"
	"github.com/aretw0/staffgate/pkg/ports"
	"github.com/aretw0/staffgate/pkg/session"
)

// Outcome describes a committed decision.
type Outcome struct {
	Decision  domain.Decision
	Reviewer  domain.Identity
	Applicant domain.Identity

	// Staff or Blacklist holds the written record.
	Staff     *domain.StaffRecord
	Blacklist *domain.BlacklistRecord

	// AlreadyFinalized is set when the record existed before. Both
	// conversations were cleared and nobody was notified again.
	AlreadyFinalized bool

	// NotifyErr is set when the record was written but a party could not
	// be told. The decision stands.
	NotifyErr error
}

// Inconsistent reports a stored decision that was not fully announced.
func (o Outcome) Inconsistent() bool {
	return o.NotifyErr != nil
}

// Finalizer commits the reviewer's decision. Storage comes first: when the
// write fails nothing is cleared and nothing is sent, so the reviewer can
// press confirm again.
type Finalizer struct {
	sessions  *session.Manager
	directory ports.Directory
	messenger ports.Messenger
	catalog   *Catalog
	logger    *slog.Logger
	metrics   *metrics.Metrics
	now       func() time.Time
}

// Finalize writes the decision held in the reviewer's conversation,
// clears both conversations and notifies both parties. A reviewer with no
// pending applicant gets domain.ErrAlreadyFinalized.
func (f *Finalizer) Finalize(ctx context.Context, reviewer domain.Identity, decision domain.Decision) (Outcome, error) {
	conv, err := f.sessions.Load(ctx, reviewer)
	if err != nil {
		return Outcome{}, err
	}
	fields := conv.Fields
	if fields.Applicant == nil || fields.Applicant.Identity.IsZero() {
		if conv.State == domain.StateNone {
			return Outcome{}, domain.ErrAlreadyFinalized
		}
		return Outcome{}, &domain.HandoffIntegrityError{Missing: []string{"applicant"}}
	}
	applicant := *fields.Applicant
	out := Outcome{Decision: decision, Reviewer: reviewer, Applicant: applicant.Identity}

	switch decision {
	case domain.DecisionAccepted:
		if !fields.Role.Applicable() {
			return Outcome{}, &domain.InvalidRoleError{Value: string(fields.Role)}
		}
		alias := fields.Alias
		if alias == "" {
			alias = applicant.Name
		}
		rec := domain.StaffRecord{
			Identity:  applicant.Identity,
			Alias:     alias,
			Role:      fields.Role,
			Phone:     applicant.Phone,
			FileID:    fields.FileID,
			CreatedAt: f.now().UTC(),
		}
		err = f.directory.InsertStaff(ctx, rec)
		out.Staff = &rec
	case domain.DecisionRejected:
		rec := domain.BlacklistRecord{
			Identity:  applicant.Identity,
			Name:      applicant.Name,
			Phone:     applicant.Phone,
			CreatedAt: f.now().UTC(),
		}
		err = f.directory.InsertBlacklist(ctx, rec)
		out.Blacklist = &rec
	default:
		return Outcome{}, fmt.Errorf("unknown decision %q", decision)
	}

	if errors.Is(err, domain.ErrAlreadyExists) {
		out.AlreadyFinalized = true
		f.logger.Warn("application already finalized", "applicant", applicant.Identity, "decision", decision)
		if err := f.clear(ctx, reviewer, applicant.Identity); err != nil {
			return out, err
		}
		return out, domain.ErrAlreadyFinalized
	}
	if err != nil {
		op := "insert_staff"
		if decision == domain.DecisionRejected {
			op = "insert_blacklist"
		}
		return Outcome{}, &domain.StorageWriteError{Op: op, Err: err}
	}

	if err := f.clear(ctx, reviewer, applicant.Identity); err != nil {
		return out, err
	}
	f.metrics.Finalized(string(decision))
	f.logger.Info("application finalized", "applicant", applicant.Identity, "decision", decision, "role", fields.Role)

	if err := f.notify(ctx, out); err != nil {
		out.NotifyErr = err
		f.metrics.Inconsistent()
		f.logger.Error("decision stored but not announced",
			"inconsistency", true, "applicant", applicant.Identity, "decision", decision, "error", err)
	}
	return out, nil
}

func (f *Finalizer) clear(ctx context.Context, ids ...domain.Identity) error {
	for _, id := range ids {
		if err := f.sessions.Clear(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// notify tells both parties. Every delivery is attempted; failures are joined.
func (f *Finalizer) notify(ctx context.Context, out Outcome) error {
	var reviewerText, applicantText, sticker string
	if out.Decision == domain.DecisionAccepted {
		role := out.Staff.Role
		reviewerText = f.catalog.Text("added_to_members",
			"badge", f.catalog.Badge(role), "alias", out.Staff.Alias, "role", role.Title())
		applicantText = f.catalog.Text("access_allowed", "role", role.Title())
		sticker = f.catalog.Stickers.Congratulation
	} else {
		reviewerText = f.catalog.Text("added_to_blacklist",
			"name", out.Blacklist.Name, "phone", out.Blacklist.Phone)
		applicantText = f.catalog.Text("access_denied")
		sticker = f.catalog.Stickers.Regret
	}

	var errs []error
	if _, err := f.messenger.SendMessage(ctx, out.Reviewer, domain.Prompt{Text: reviewerText}); err != nil {
		errs = append(errs, fmt.Errorf("notify reviewer: %w", err))
	}
	if _, err := f.messenger.SendMessage(ctx, out.Applicant, domain.Prompt{Text: applicantText}); err != nil {
		errs = append(errs, fmt.Errorf("notify applicant: %w", err))
	}
	if sticker != "" {
		if err := f.messenger.SendSticker(ctx, out.Applicant, sticker); err != nil {
			errs = append(errs, fmt.Errorf("send sticker: %w", err))
		}
	}
	return errors.Join(errs...)
}
