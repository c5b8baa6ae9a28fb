package membership

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/aretw0/staffgate/pkg/domain"
)

// promoDigits is the length of the invitation promo code.
const promoDigits = 5

// Staff returns the members shown to the superuser: everyone but the
// superuser, grouped by role and sorted by alias inside each group.
func (e *Engine) Staff(ctx context.Context) ([]domain.StaffRecord, error) {
	all, err := e.directory.ListStaff(ctx)
	if err != nil {
		return nil, fmt.Errorf("list staff: %w", err)
	}
	out := make([]domain.StaffRecord, 0, len(all))
	for _, rec := range all {
		if rec.Role != domain.RoleSuperuser {
			out = append(out, rec)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Role != out[j].Role {
			return out[i].Role < out[j].Role
		}
		return out[i].Alias < out[j].Alias
	})
	return out, nil
}

func (e *Engine) help(ctx context.Context, t *turn) error {
	staff, err := e.Staff(ctx)
	if err != nil {
		return err
	}
	name := t.ev.FromName
	if name == "" {
		name = t.ev.From.String()
	}
	_, err = e.messenger.SendMessage(ctx, t.ev.From, domain.Prompt{
		Text: e.catalog.Text("superuser_help", "name", name, "count", strconv.Itoa(len(staff))),
	})
	return err
}

// StaffText renders the staff list the way the superuser sees it.
func (e *Engine) StaffText(staff []domain.StaffRecord) string {
	if len(staff) == 0 {
		return e.catalog.Text("no_staff")
	}
	var b strings.Builder
	b.WriteString(e.catalog.Text("staff_header"))
	for _, rec := range staff {
		noFile := ""
		if rec.Role.FileBearing() && rec.FileID == "" {
			noFile = e.catalog.Text("no_file")
		}
		b.WriteString(e.catalog.Text("staff_row",
			"badge", e.catalog.Badge(rec.Role), "alias", rec.Alias, "no_file", noFile))
	}
	return b.String()
}

func (e *Engine) staff(ctx context.Context, t *turn) error {
	staff, err := e.Staff(ctx)
	if err != nil {
		return err
	}
	_, err = e.messenger.SendMessage(ctx, t.ev.From, domain.Prompt{
		Text:   e.StaffText(staff),
		Markup: e.catalog.inviteMarkup(),
	})
	return err
}

// PromoCode derives the invitation code from the inviter's identity.
func PromoCode(id domain.Identity) string {
	s := strconv.FormatInt(int64(id), 10)
	s = strings.TrimPrefix(s, "-")
	if len(s) > promoDigits {
		s = s[len(s)-promoDigits:]
	}
	return s
}

func (e *Engine) invite(ctx context.Context, t *turn) error {
	if t.ev.Message != 0 {
		staff, err := e.Staff(ctx)
		if err == nil {
			if err := e.messenger.EditMessage(ctx, t.ev.From, t.ev.Message, domain.Prompt{Text: e.StaffText(staff)}); err != nil {
				e.logger.Warn("drop invite button failed", "identity", t.ev.From, "error", err)
			}
		}
	}
	if _, err := e.messenger.SendMessage(ctx, t.ev.From, domain.Prompt{Text: e.catalog.Text("pre_invite")}); err != nil {
		return err
	}
	_, err := e.messenger.SendMessage(ctx, t.ev.From, domain.Prompt{
		Text: e.catalog.Text("invite", "code", PromoCode(t.ev.From)),
	})
	return err
}
