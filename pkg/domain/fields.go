package domain

import "time"

// Contact is the identity card an applicant shares with the bot.
type Contact struct {
	Identity Identity `json:"identity"`
	Name     string   `json:"name"`
	Phone    string   `json:"phone"`
}

// File is a candidate document that may be pinned to a new member.
type File struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Fields is the typed data of one conversation. Zero values mean "unset".
type Fields struct {
	// Role requested by the applicant.
	Role Role `json:"role,omitempty"`

	// Applicant is the shared contact, copied into the reviewer's fields at handoff.
	Applicant *Contact `json:"applicant,omitempty"`

	// Files holds the unreserved documents offered to the reviewer.
	// FilesListed marks that the listing ran, so an empty Files is an
	// explicit "no files" rather than a missing value.
	Files       []File `json:"files,omitempty"`
	FilesListed bool   `json:"files_listed,omitempty"`

	FileID   string `json:"file_id,omitempty"`
	FileName string `json:"file_name,omitempty"`
	Alias    string `json:"alias,omitempty"`

	// Rollback is the encoded RollbackPoint. Only the rollback codec reads it.
	Rollback string `json:"rollback,omitempty"`

	// PromptRef is the last prompt message sent to this identity.
	PromptRef MessageRef `json:"prompt_ref,omitempty"`
}

// Merge upserts every set field of patch into f and leaves the others alone.
func (f *Fields) Merge(patch Fields) {
	if patch.Role != "" {
		f.Role = patch.Role
	}
	if patch.Applicant != nil {
		c := *patch.Applicant
		f.Applicant = &c
	}
	if patch.FilesListed || patch.Files != nil {
		f.Files = append([]File(nil), patch.Files...)
		f.FilesListed = true
	}
	if patch.FileID != "" {
		f.FileID = patch.FileID
	}
	if patch.FileName != "" {
		f.FileName = patch.FileName
	}
	if patch.Alias != "" {
		f.Alias = patch.Alias
	}
	if patch.Rollback != "" {
		f.Rollback = patch.Rollback
	}
	if patch.PromptRef != 0 {
		f.PromptRef = patch.PromptRef
	}
}

// Clone returns a deep copy.
func (f Fields) Clone() Fields {
	out := f
	if f.Applicant != nil {
		c := *f.Applicant
		out.Applicant = &c
	}
	if f.Files != nil {
		out.Files = append([]File(nil), f.Files...)
	}
	return out
}

// FindFile looks up a candidate file by id.
func (f Fields) FindFile(id string) (File, bool) {
	for _, file := range f.Files {
		if file.ID == id {
			return file, true
		}
	}
	return File{}, false
}

// Conversation is the persisted record of one identity's dialogue.
type Conversation struct {
	Identity  Identity  `json:"identity"`
	State     State     `json:"state"`
	Fields    Fields    `json:"fields"`
	UpdatedAt time.Time `json:"updated_at"`

	// Sealed holds the encrypted Fields when the backend sits behind the
	// encryption middleware. Fields is then left empty in storage.
	Sealed string `json:"sealed,omitempty"`
}

// NewConversation returns an empty conversation for id.
func NewConversation(id Identity) *Conversation {
	return &Conversation{Identity: id}
}

// Clone returns a deep copy.
func (c *Conversation) Clone() *Conversation {
	out := *c
	out.Fields = c.Fields.Clone()
	return &out
}

// Active reports whether a workflow is running for this identity.
func (c *Conversation) Active() bool {
	return c != nil && c.State != StateNone
}
