package membership

import (
	"github.com/aretw0/staffgate/pkg/domain"
)

// Prompt builders. Every prompt a workflow sends is composed here so the
// rollback codec always stores the exact layout that was shown.

func (c *Catalog) confirmMarkup(param string) *domain.Markup {
	return domain.InlineKeyboard(
		domain.Button{Text: c.Button("confirm"), Data: domain.ConfirmCallback(param)},
		domain.Button{Text: c.Button("back"), Data: domain.CallbackBack},
	)
}

func (c *Catalog) rolePrompt() domain.Prompt {
	buttons := make([]domain.Button, 0, len(domain.ApplicableRoles))
	for _, role := range domain.ApplicableRoles {
		buttons = append(buttons, domain.Button{Text: c.Button("role_" + string(role)), Data: string(role)})
	}
	return domain.Prompt{Text: c.Text("role_selection"), Markup: domain.InlineKeyboard(buttons...)}
}

func (c *Catalog) roleConfirmPrompt(role domain.Role) domain.Prompt {
	return domain.Prompt{
		Text:   c.Text("confirm_role", "role", role.Title()),
		Markup: c.confirmMarkup(string(role)),
	}
}

func (c *Catalog) contactPrompt(role domain.Role) domain.Prompt {
	return domain.Prompt{
		Text:   c.Text("send_contact", "access", c.Access[role]),
		Markup: domain.ContactRequest(c.Button("contact")),
	}
}

func (c *Catalog) waitPrompt() domain.Prompt {
	return domain.Prompt{Text: c.Text("wait"), Markup: domain.RemoveKeyboard()}
}

// considerationPrompt is the reviewer's accept/reject menu. A file-bearing
// applicant with no free files gets the "without a file" caption.
func (c *Catalog) considerationPrompt(app Application) domain.Prompt {
	text := c.Text("consideration", "name", app.Applicant.Name, "role", app.Role.Title())
	accept := c.Button("accept")
	if app.Role.FileBearing() && !app.offersFiles() {
		accept = c.Button("accept_without_file")
		text += c.Text("no_free_files")
	}
	return domain.Prompt{
		Text: text,
		Markup: domain.InlineKeyboard(
			domain.Button{Text: accept, Data: domain.CallbackAccepted},
			domain.Button{Text: c.Button("reject"), Data: domain.CallbackRejected},
		),
	}
}

func (c *Catalog) fileSelectionPrompt(files []domain.File) domain.Prompt {
	buttons := make([]domain.Button, 0, len(files)+2)
	for _, f := range files {
		buttons = append(buttons, domain.Button{Text: c.Button("file", "name", f.Name), Data: f.ID})
	}
	buttons = append(buttons,
		domain.Button{Text: c.Button("accept_without_file"), Data: domain.CallbackAccepted},
		domain.Button{Text: c.Button("reject"), Data: domain.CallbackRejected},
	)
	return domain.Prompt{Text: c.Text("file_selection"), Markup: domain.InlineKeyboard(buttons...)}
}

func (c *Catalog) fileConfirmPrompt(file domain.File) domain.Prompt {
	return domain.Prompt{Text: c.Text("confirm_file", "file", file.Name), Markup: c.confirmMarkup("")}
}

func (c *Catalog) acceptConfirmPrompt(role domain.Role) domain.Prompt {
	return domain.Prompt{
		Text:   c.Text("confirm_accept_" + string(role)),
		Markup: c.confirmMarkup(domain.CallbackAccepted),
	}
}

func (c *Catalog) rejectConfirmPrompt() domain.Prompt {
	return domain.Prompt{Text: c.Text("confirm_reject"), Markup: c.confirmMarkup(domain.CallbackRejected)}
}

// aliasPrompt has no buttons; the alias arrives as plain text.
func (c *Catalog) aliasPrompt(target string, role domain.Role) domain.Prompt {
	return domain.Prompt{Text: c.Text("alias_prompt", "target", target, "role", role.Title())}
}

func (c *Catalog) aliasConfirmPrompt(alias string) domain.Prompt {
	return domain.Prompt{Text: c.Text("confirm_alias", "alias", alias), Markup: c.confirmMarkup("")}
}

func (c *Catalog) inviteMarkup() *domain.Markup {
	return domain.InlineKeyboard(domain.Button{Text: c.Button("invite"), Data: domain.CallbackInvite})
}
