package domain

// MarkupKind selects how the buttons of a prompt are presented.
type MarkupKind string

const (
	// MarkupInline attaches callback buttons to the message.
	MarkupInline MarkupKind = "inline"
	// MarkupContactRequest shows a single reply button that shares the
	// sender's contact.
	MarkupContactRequest MarkupKind = "contact_request"
	// MarkupRemove removes a previously shown reply keyboard.
	MarkupRemove MarkupKind = "remove"
)

// Button is one inline button. Data is the opaque callback value sent back
// when the button is pressed.
type Button struct {
	Text string `json:"text"`
	Data string `json:"data"`
}

// Markup is the button layout of a prompt.
type Markup struct {
	Kind MarkupKind `json:"kind"`
	// Rows holds inline buttons row by row (MarkupInline only).
	Rows [][]Button `json:"rows,omitempty"`
	// Label is the caption of the contact button (MarkupContactRequest only).
	Label string `json:"label,omitempty"`
}

// Prompt is an outbound message as composed by a workflow step.
// Prompts are the unit stored in a rollback point, so two prompts are
// interchangeable only if they are equal field by field.
type Prompt struct {
	Text   string  `json:"text"`
	Markup *Markup `json:"markup,omitempty"`
}

// InlineKeyboard builds an inline markup with one button per row.
func InlineKeyboard(buttons ...Button) *Markup {
	rows := make([][]Button, 0, len(buttons))
	for _, b := range buttons {
		rows = append(rows, []Button{b})
	}
	return &Markup{Kind: MarkupInline, Rows: rows}
}

// ContactRequest builds a reply markup asking for the sender's contact.
func ContactRequest(label string) *Markup {
	return &Markup{Kind: MarkupContactRequest, Label: label}
}

// RemoveKeyboard builds a markup that hides the reply keyboard.
func RemoveKeyboard() *Markup {
	return &Markup{Kind: MarkupRemove}
}

// Buttons returns every inline button in layout order.
func (p Prompt) Buttons() []Button {
	if p.Markup == nil || p.Markup.Kind != MarkupInline {
		return nil
	}
	var out []Button
	for _, row := range p.Markup.Rows {
		out = append(out, row...)
	}
	return out
}

// HasButton reports whether the prompt carries a button with the given data.
func (p Prompt) HasButton(data string) bool {
	for _, b := range p.Buttons() {
		if b.Data == data {
			return true
		}
	}
	return false
}

// RollbackPoint is the undo target of a conversation: the prompt that was
// shown and the state it was shown from.
type RollbackPoint struct {
	Prompt Prompt `json:"prompt"`
	State  State  `json:"state"`
}
