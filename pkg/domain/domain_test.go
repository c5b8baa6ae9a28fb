package domain_test

import (
	"errors"
	"testing"

	"github.com/aretw0/staffgate/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRole(t *testing.T) {
	r, err := domain.ParseRole("employee")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleEmployee, r)
	assert.True(t, r.FileBearing())
	assert.True(t, r.Applicable())

	_, err = domain.ParseRole("janitor")
	var roleErr *domain.InvalidRoleError
	require.True(t, errors.As(err, &roleErr))
	assert.Equal(t, "janitor", roleErr.Value)

	assert.False(t, domain.RoleSuperuser.Applicable())
	assert.False(t, domain.RoleAdmin.FileBearing())
	assert.Equal(t, "Admin", domain.RoleAdmin.Title())
}

func TestStateGraph(t *testing.T) {
	assert.Equal(t, domain.GraphApplicant, domain.StateSendingContact.Graph())
	assert.Equal(t, domain.GraphReviewer, domain.StateInputMembersAlias.Graph())
	assert.Equal(t, domain.GraphNone, domain.State("bogus").Graph())
	assert.True(t, domain.StateNone.Valid())
	assert.False(t, domain.State("bogus").Valid())
	assert.Equal(t, "input_members_alias", domain.StateInputMembersAlias.Short())
}

func TestFieldsMerge(t *testing.T) {
	f := domain.Fields{Role: domain.RoleAdmin, Alias: "keep"}
	f.Merge(domain.Fields{FileID: "f1", FileName: "Mon"})

	assert.Equal(t, domain.RoleAdmin, f.Role)
	assert.Equal(t, "keep", f.Alias)
	assert.Equal(t, "f1", f.FileID)
	assert.False(t, f.FilesListed)

	f.Merge(domain.Fields{FilesListed: true})
	assert.True(t, f.FilesListed)
	assert.Empty(t, f.Files)
}

func TestFieldsCloneIsDeep(t *testing.T) {
	f := domain.Fields{
		Applicant: &domain.Contact{Identity: 42, Name: "Ann"},
		Files:     []domain.File{{ID: "f1", Name: "Mon"}},
	}
	c := f.Clone()
	c.Applicant.Name = "Bob"
	c.Files[0].Name = "Tue"

	assert.Equal(t, "Ann", f.Applicant.Name)
	assert.Equal(t, "Mon", f.Files[0].Name)
}

func TestEventConfirmParam(t *testing.T) {
	ev := domain.Event{Kind: domain.EventCallback, Data: domain.ConfirmCallback("employee")}
	param, ok := ev.ConfirmParam()
	require.True(t, ok)
	assert.Equal(t, "employee", param)

	_, ok = domain.Event{Kind: domain.EventText, Data: "confirmed:x"}.ConfirmParam()
	assert.False(t, ok)
}

func TestPromptButtons(t *testing.T) {
	p := domain.Prompt{
		Text:   "pick",
		Markup: domain.InlineKeyboard(domain.Button{Text: "A", Data: "a"}, domain.Button{Text: "B", Data: "b"}),
	}
	assert.Len(t, p.Buttons(), 2)
	assert.True(t, p.HasButton("b"))
	assert.False(t, p.HasButton("c"))
	assert.Nil(t, domain.Prompt{Text: "x", Markup: domain.ContactRequest("share")}.Buttons())
}

func TestIdentityRoundTrip(t *testing.T) {
	id, err := domain.ParseIdentity(" 42 ")
	require.NoError(t, err)
	assert.Equal(t, domain.Identity(42), id)
	assert.Equal(t, "42", id.String())

	_, err = domain.ParseIdentity("forty-two")
	assert.Error(t, err)
}
