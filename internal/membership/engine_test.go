package membership_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/staffgate/internal/membership"
	"github.com/aretw0/staffgate/internal/metrics"
	"github.com/aretw0/staffgate/pkg/adapters/memory"
	"github.com/aretw0/staffgate/pkg/domain"
	"github.com/aretw0/staffgate/pkg/rollback"
	"github.com/aretw0/staffgate/pkg/session"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	superuserID domain.Identity = 1000012345
	applicantID domain.Identity = 42
	veteranID   domain.Identity = 77

	contactMessage domain.MessageRef = 5001
	aliasMessage   domain.MessageRef = 5002
)

var fixedNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

type harness struct {
	t        *testing.T
	ctx      context.Context
	engine   *membership.Engine
	sessions *session.Manager
	dir      *memory.Directory
	lister   *memory.Lister
	msg      *memory.Messenger
	metrics  *metrics.Metrics
	outcomes []membership.Outcome
}

func newHarness(t *testing.T, files ...domain.File) *harness {
	t.Helper()
	ctx := context.Background()

	h := &harness{
		t:        t,
		ctx:      ctx,
		sessions: session.NewManager(memory.NewStore()),
		dir:      memory.NewDirectory(),
		lister:   memory.NewLister(files...),
		msg:      memory.NewMessenger(),
		metrics:  metrics.New(prometheus.NewRegistry()),
	}
	require.NoError(t, h.dir.InsertStaff(ctx, domain.StaffRecord{Identity: superuserID, Alias: "Boss", Role: domain.RoleSuperuser}))

	engine, err := membership.New(membership.Deps{
		Sessions:  h.sessions,
		Directory: h.dir,
		Documents: h.lister,
		Messenger: h.msg,
		Superuser: superuserID,
	},
		membership.WithMetrics(h.metrics),
		membership.WithClock(func() time.Time { return fixedNow }),
		membership.WithFinalizeHook(func(o membership.Outcome) { h.outcomes = append(h.outcomes, o) }),
	)
	require.NoError(t, err)
	h.engine = engine
	return h
}

func (h *harness) handle(ev domain.Event) error {
	return h.engine.Handle(h.ctx, ev)
}

func (h *harness) state(id domain.Identity) domain.State {
	state, err := h.sessions.GetState(h.ctx, id)
	require.NoError(h.t, err)
	return state
}

func (h *harness) fields(id domain.Identity) domain.Fields {
	fields, err := h.sessions.GetData(h.ctx, id)
	require.NoError(h.t, err)
	return fields
}

func (h *harness) lastPrompt(id domain.Identity) domain.Prompt {
	p, ok := h.msg.LastPrompt(id)
	require.True(h.t, ok, "no prompt sent to %s", id)
	return p
}

// press taps a button on the identity's current prompt.
func (h *harness) press(id domain.Identity, data string) error {
	return h.handle(domain.Event{
		From:    id,
		Kind:    domain.EventCallback,
		Data:    data,
		Message: h.fields(id).PromptRef,
	})
}

func (h *harness) start(id domain.Identity, name string) error {
	return h.handle(domain.Event{From: id, Kind: domain.EventCommand, Data: domain.CommandStart, FromName: name})
}

func (h *harness) shareContact(id domain.Identity, name, phone string) error {
	return h.handle(domain.Event{
		From:    id,
		Kind:    domain.EventContact,
		Message: contactMessage,
		Contact: &domain.Contact{Identity: id, Name: name, Phone: phone},
	})
}

func (h *harness) typeText(id domain.Identity, text string) error {
	return h.handle(domain.Event{From: id, Kind: domain.EventText, Data: text, Message: aliasMessage})
}

// apply walks the applicant up to the handoff.
func (h *harness) apply(role domain.Role) {
	h.t.Helper()
	require.NoError(h.t, h.start(applicantID, "Ann"))
	require.NoError(h.t, h.press(applicantID, string(role)))
	require.NoError(h.t, h.press(applicantID, domain.ConfirmCallback(string(role))))
	require.NoError(h.t, h.shareContact(applicantID, "Ann Smith", "+380501112233"))
}

func (h *harness) deliveries(id domain.Identity, kind string) []memory.Delivery {
	var out []memory.Delivery
	for _, d := range h.msg.Deliveries(id) {
		if d.Kind == kind {
			out = append(out, d)
		}
	}
	return out
}

func scheduleFiles() []domain.File {
	return []domain.File{
		{ID: "f1", Name: "Mon"},
		{ID: "f2", Name: "Tue"},
		{ID: "f3", Name: "Wed"},
	}
}

func TestScenarioEmployeeWithFile(t *testing.T) {
	h := newHarness(t, scheduleFiles()...)
	require.NoError(t, h.dir.InsertStaff(h.ctx, domain.StaffRecord{Identity: veteranID, Alias: "Vet", Role: domain.RoleEmployee, FileID: "f2"}))

	require.NoError(t, h.start(applicantID, "Ann"))
	assert.Equal(t, domain.StateRoleSelection, h.state(applicantID))
	menu := h.lastPrompt(applicantID)
	assert.True(t, menu.HasButton(string(domain.RoleEmployee)))
	assert.True(t, menu.HasButton(string(domain.RoleAdmin)))
	assert.NotEmpty(t, h.fields(applicantID).Rollback)

	require.NoError(t, h.press(applicantID, string(domain.RoleEmployee)))
	assert.Equal(t, domain.StateRoleConfirmation, h.state(applicantID))
	assert.True(t, h.lastPrompt(applicantID).HasButton(domain.ConfirmCallback("employee")))

	require.NoError(t, h.press(applicantID, domain.ConfirmCallback("employee")))
	assert.Equal(t, domain.StateSendingContact, h.state(applicantID))
	contactPrompt := h.lastPrompt(applicantID)
	require.NotNil(t, contactPrompt.Markup)
	assert.Equal(t, domain.MarkupContactRequest, contactPrompt.Markup.Kind)

	require.NoError(t, h.shareContact(applicantID, "Ann Smith", "+380501112233"))
	assert.Equal(t, domain.StateWaitAcceptance, h.state(applicantID))
	assert.Equal(t, domain.StateApplicantConsideration, h.state(superuserID))

	forwards := h.deliveries(superuserID, memory.DeliveryForward)
	require.Len(t, forwards, 1)
	assert.Equal(t, applicantID, forwards[0].From)

	review := h.fields(superuserID)
	assert.Equal(t, domain.RoleEmployee, review.Role)
	assert.Equal(t, []domain.File{{ID: "f1", Name: "Mon"}, {ID: "f3", Name: "Wed"}}, review.Files)
	assert.True(t, review.FilesListed)
	assert.Contains(t, h.lastPrompt(superuserID).Text, "Ann Smith")
	assert.Contains(t, h.lastPrompt(superuserID).Text, "Employee")

	require.NoError(t, h.press(superuserID, domain.CallbackAccepted))
	assert.Equal(t, domain.StateMemberFileSelection, h.state(superuserID))
	fileMenu := h.lastPrompt(superuserID)
	assert.True(t, fileMenu.HasButton("f1"))
	assert.True(t, fileMenu.HasButton("f3"))
	assert.False(t, fileMenu.HasButton("f2"), "reserved files are never offered")
	assert.True(t, fileMenu.HasButton(domain.CallbackAccepted))
	assert.True(t, fileMenu.HasButton(domain.CallbackRejected))

	require.NoError(t, h.press(superuserID, "f1"))
	assert.Equal(t, domain.StateMemberFileConfirmation, h.state(superuserID))
	assert.Equal(t, "f1", h.fields(superuserID).FileID)

	require.NoError(t, h.press(superuserID, domain.ConfirmCallback("")))
	assert.Equal(t, domain.StateInputMembersAlias, h.state(superuserID))
	aliasPromptRef := h.fields(superuserID).PromptRef
	assert.Contains(t, h.lastPrompt(superuserID).Text, "Mon")

	require.NoError(t, h.typeText(superuserID, "  Ann S.  "))
	assert.Equal(t, domain.StateMemberAliasConfirmation, h.state(superuserID))
	assert.Equal(t, "Ann S.", h.fields(superuserID).Alias)
	var deleted []domain.MessageRef
	for _, d := range h.deliveries(superuserID, memory.DeliveryDelete) {
		deleted = append(deleted, d.Ref)
	}
	assert.Contains(t, deleted, aliasMessage)
	assert.Contains(t, deleted, aliasPromptRef)

	require.NoError(t, h.press(superuserID, domain.ConfirmCallback("")))

	assert.Equal(t, domain.StateNone, h.state(superuserID))
	assert.Equal(t, domain.StateNone, h.state(applicantID))
	role, ok, err := h.dir.LookupRole(h.ctx, applicantID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, domain.RoleEmployee, role)

	require.Len(t, h.outcomes, 1)
	out := h.outcomes[0]
	require.NotNil(t, out.Staff)
	assert.Equal(t, domain.StaffRecord{
		Identity:  applicantID,
		Alias:     "Ann S.",
		Role:      domain.RoleEmployee,
		Phone:     "+380501112233",
		FileID:    "f1",
		CreatedAt: fixedNow,
	}, *out.Staff)
	assert.False(t, out.Inconsistent())

	assert.Equal(t, []string{"congratulation"}, h.msg.Stickers(applicantID))
	assert.Contains(t, h.lastPrompt(superuserID).Text, "Ann S.")
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.Finalizations.WithLabelValues("accepted")))
}

func TestScenarioNoFreeFiles(t *testing.T) {
	h := newHarness(t, domain.File{ID: "f2", Name: "Tue"})
	require.NoError(t, h.dir.InsertStaff(h.ctx, domain.StaffRecord{Identity: veteranID, Alias: "Vet", Role: domain.RoleEmployee, FileID: "f2"}))

	h.apply(domain.RoleEmployee)
	review := h.fields(superuserID)
	assert.True(t, review.FilesListed)
	assert.Empty(t, review.Files)

	menu := h.lastPrompt(superuserID)
	catalog := h.engine.Catalog()
	assert.Contains(t, menu.Text, catalog.Text("no_free_files"))
	require.Len(t, menu.Buttons(), 2)
	assert.Equal(t, catalog.Button("accept_without_file"), menu.Buttons()[0].Text)

	require.NoError(t, h.press(superuserID, domain.CallbackAccepted))
	assert.Equal(t, domain.StateAcceptanceConfirmation, h.state(superuserID), "file selection is skipped")

	require.NoError(t, h.press(superuserID, domain.ConfirmCallback(domain.CallbackAccepted)))
	assert.Equal(t, domain.StateInputMembersAlias, h.state(superuserID))
	assert.Contains(t, h.lastPrompt(superuserID).Text, "Ann Smith")

	require.NoError(t, h.typeText(superuserID, "Ann"))
	require.NoError(t, h.press(superuserID, domain.ConfirmCallback("")))

	require.Len(t, h.outcomes, 1)
	assert.Empty(t, h.outcomes[0].Staff.FileID)
	assert.Equal(t, domain.StateNone, h.state(applicantID))
}

func TestScenarioAdminNeverSeesFiles(t *testing.T) {
	h := newHarness(t, scheduleFiles()...)

	h.apply(domain.RoleAdmin)
	review := h.fields(superuserID)
	assert.False(t, review.FilesListed)
	assert.NotContains(t, h.lastPrompt(superuserID).Text, h.engine.Catalog().Text("no_free_files"))

	require.NoError(t, h.press(superuserID, domain.CallbackAccepted))
	assert.Equal(t, domain.StateAcceptanceConfirmation, h.state(superuserID))
	assert.Equal(t, h.engine.Catalog().Text("confirm_accept_admin"), h.lastPrompt(superuserID).Text)
}

func TestScenarioRejection(t *testing.T) {
	h := newHarness(t, scheduleFiles()...)
	h.apply(domain.RoleEmployee)

	require.NoError(t, h.press(superuserID, domain.CallbackRejected))
	assert.Equal(t, domain.StateRejectionConfirmation, h.state(superuserID))

	require.NoError(t, h.press(superuserID, domain.ConfirmCallback(domain.CallbackRejected)))
	assert.Equal(t, domain.StateNone, h.state(superuserID))
	assert.Equal(t, domain.StateNone, h.state(applicantID))

	rec, ok := h.dir.Blacklist(applicantID)
	require.True(t, ok)
	assert.Equal(t, "Ann Smith", rec.Name)
	assert.Equal(t, "+380501112233", rec.Phone)
	_, known, err := h.dir.LookupRole(h.ctx, applicantID)
	require.NoError(t, err)
	assert.False(t, known)

	assert.Equal(t, []string{"regret"}, h.msg.Stickers(applicantID))
	assert.Equal(t, h.engine.Catalog().Text("access_denied"), h.lastPrompt(applicantID).Text)
	assert.Contains(t, h.lastPrompt(superuserID).Text, "+380501112233")

	before := h.msg.Len()
	err = h.start(applicantID, "Ann")
	assert.ErrorIs(t, err, domain.ErrAccessDenied)
	assert.Equal(t, before, h.msg.Len(), "blacklisted identities are denied silently")
	assert.Equal(t, domain.StateNone, h.state(applicantID))
}

func TestScenarioBackFromAliasConfirmation(t *testing.T) {
	h := newHarness(t)
	h.apply(domain.RoleAdmin)

	require.NoError(t, h.press(superuserID, domain.CallbackAccepted))
	require.NoError(t, h.press(superuserID, domain.ConfirmCallback(domain.CallbackAccepted)))
	aliasPrompt := h.lastPrompt(superuserID)

	require.NoError(t, h.typeText(superuserID, "Wrong"))
	assert.Equal(t, "Wrong", h.fields(superuserID).Alias)

	require.NoError(t, h.press(superuserID, domain.CallbackBack))
	assert.Equal(t, domain.StateInputMembersAlias, h.state(superuserID))
	assert.Empty(t, h.fields(superuserID).Alias, "alias is discarded on the way back")
	assert.Equal(t, aliasPrompt, h.lastPrompt(superuserID))

	require.NoError(t, h.typeText(superuserID, "Right"))
	require.NoError(t, h.press(superuserID, domain.ConfirmCallback("")))

	require.Len(t, h.outcomes, 1)
	assert.Equal(t, "Right", h.outcomes[0].Staff.Alias)
	assert.Equal(t, domain.RoleAdmin, h.outcomes[0].Staff.Role)
}

func TestBackRestoresExactPrompt(t *testing.T) {
	h := newHarness(t, scheduleFiles()...)

	require.NoError(t, h.start(applicantID, "Ann"))
	roleMenu := h.lastPrompt(applicantID)
	require.NoError(t, h.press(applicantID, string(domain.RoleAdmin)))
	assert.Equal(t, domain.RoleAdmin, h.fields(applicantID).Role)

	require.NoError(t, h.press(applicantID, domain.CallbackBack))
	assert.Equal(t, domain.StateRoleSelection, h.state(applicantID))
	assert.Equal(t, roleMenu, h.lastPrompt(applicantID))
	assert.Empty(t, h.fields(applicantID).Role)

	point, ok, err := rollback.Peek(h.fields(applicantID))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, roleMenu, point.Prompt)
}

func TestBackFromFileConfirmationReturnsToFileMenu(t *testing.T) {
	h := newHarness(t, scheduleFiles()...)
	h.apply(domain.RoleEmployee)

	require.NoError(t, h.press(superuserID, domain.CallbackAccepted))
	fileMenu := h.lastPrompt(superuserID)
	require.NoError(t, h.press(superuserID, "f3"))
	require.Equal(t, "f3", h.fields(superuserID).FileID)

	require.NoError(t, h.press(superuserID, domain.CallbackBack))
	assert.Equal(t, domain.StateMemberFileSelection, h.state(superuserID))
	assert.Equal(t, fileMenu, h.lastPrompt(superuserID))
	assert.Empty(t, h.fields(superuserID).FileID)
	assert.Empty(t, h.fields(superuserID).FileName)
	assert.Len(t, h.fields(superuserID).Files, 3, "candidate list survives the rollback")
}

func TestBackFromRejectionReturnsToConsideration(t *testing.T) {
	h := newHarness(t)
	h.apply(domain.RoleAdmin)
	menu := h.lastPrompt(superuserID)

	require.NoError(t, h.press(superuserID, domain.CallbackRejected))
	require.NoError(t, h.press(superuserID, domain.CallbackBack))
	assert.Equal(t, domain.StateApplicantConsideration, h.state(superuserID))
	assert.Equal(t, menu, h.lastPrompt(superuserID))
}

func TestBackFromAcceptanceReturnsToConsideration(t *testing.T) {
	tests := []struct {
		name  string
		role  domain.Role
		files []domain.File
	}{
		{"admin", domain.RoleAdmin, scheduleFiles()},
		{"employee without free files", domain.RoleEmployee, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, tt.files...)
			h.apply(tt.role)
			menu := h.lastPrompt(superuserID)

			require.NoError(t, h.press(superuserID, domain.CallbackAccepted))
			require.Equal(t, domain.StateAcceptanceConfirmation, h.state(superuserID))
			require.NotEqual(t, menu, h.lastPrompt(superuserID))

			require.NoError(t, h.press(superuserID, domain.CallbackBack))
			assert.Equal(t, domain.StateApplicantConsideration, h.state(superuserID))
			assert.Equal(t, menu, h.lastPrompt(superuserID))
			assert.True(t, h.lastPrompt(superuserID).HasButton(domain.CallbackAccepted))

			require.NoError(t, h.press(superuserID, domain.CallbackAccepted))
			assert.Equal(t, domain.StateAcceptanceConfirmation, h.state(superuserID), "the menu works again after going back")
		})
	}
}

func TestBackFromAcceptanceReturnsToFileMenu(t *testing.T) {
	h := newHarness(t, scheduleFiles()...)
	h.apply(domain.RoleEmployee)
	consideration := h.lastPrompt(superuserID)

	require.NoError(t, h.press(superuserID, domain.CallbackAccepted))
	require.Equal(t, domain.StateMemberFileSelection, h.state(superuserID))
	fileMenu := h.lastPrompt(superuserID)

	require.NoError(t, h.press(superuserID, domain.CallbackAccepted))
	require.Equal(t, domain.StateAcceptanceConfirmation, h.state(superuserID), "accepting without a file")

	require.NoError(t, h.press(superuserID, domain.CallbackBack))
	assert.Equal(t, domain.StateMemberFileSelection, h.state(superuserID))
	assert.Equal(t, fileMenu, h.lastPrompt(superuserID))
	assert.NotEqual(t, consideration, h.lastPrompt(superuserID))
	assert.Len(t, h.fields(superuserID).Files, 3)

	require.NoError(t, h.press(superuserID, "f2"))
	assert.Equal(t, domain.StateMemberFileConfirmation, h.state(superuserID))
	assert.Equal(t, "f2", h.fields(superuserID).FileID)
}

func TestBackFromRejectionReturnsToFileMenu(t *testing.T) {
	h := newHarness(t, scheduleFiles()...)
	h.apply(domain.RoleEmployee)

	require.NoError(t, h.press(superuserID, domain.CallbackAccepted))
	fileMenu := h.lastPrompt(superuserID)

	require.NoError(t, h.press(superuserID, domain.CallbackRejected))
	require.Equal(t, domain.StateRejectionConfirmation, h.state(superuserID))
	require.NotEqual(t, fileMenu, h.lastPrompt(superuserID))

	require.NoError(t, h.press(superuserID, domain.CallbackBack))
	assert.Equal(t, domain.StateMemberFileSelection, h.state(superuserID))
	assert.Equal(t, fileMenu, h.lastPrompt(superuserID))
	for _, f := range scheduleFiles() {
		assert.True(t, h.lastPrompt(superuserID).HasButton(f.ID), "file %s offered again", f.ID)
	}

	_, blacklisted := h.dir.Blacklist(applicantID)
	assert.False(t, blacklisted, "going back does not reject")
}

func TestNoSkipping(t *testing.T) {
	h := newHarness(t, scheduleFiles()...)
	require.NoError(t, h.start(applicantID, "Ann"))
	before := h.fields(applicantID)

	cases := []domain.Event{
		{From: applicantID, Kind: domain.EventCallback, Data: domain.ConfirmCallback("employee")},
		{From: applicantID, Kind: domain.EventContact, Contact: &domain.Contact{Identity: applicantID, Name: "Ann", Phone: "+1"}},
		{From: applicantID, Kind: domain.EventText, Data: "hello"},
		{From: applicantID, Kind: domain.EventCallback, Data: string(domain.RoleSuperuser)},
		{From: applicantID, Kind: domain.EventCallback, Data: domain.CallbackBack},
	}
	for _, ev := range cases {
		err := h.handle(ev)
		var unrecognized *domain.UnrecognizedEventError
		require.True(t, errors.As(err, &unrecognized), "event %+v: got %v", ev, err)
		assert.Equal(t, domain.StateRoleSelection, unrecognized.State)
		assert.Equal(t, domain.StateRoleSelection, h.state(applicantID))
		assert.Equal(t, before, h.fields(applicantID))
	}
}

func TestUnknownFileIsRejected(t *testing.T) {
	h := newHarness(t, scheduleFiles()...)
	h.apply(domain.RoleEmployee)
	require.NoError(t, h.press(superuserID, domain.CallbackAccepted))
	before := h.fields(superuserID)

	err := h.press(superuserID, "f404")
	var unrecognized *domain.UnrecognizedEventError
	require.True(t, errors.As(err, &unrecognized))
	assert.Equal(t, "f404", unrecognized.Data)
	assert.Equal(t, domain.StateMemberFileSelection, h.state(superuserID))
	assert.Equal(t, before, h.fields(superuserID))
}

func TestSomeoneElsesContactIsRejected(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.start(applicantID, "Ann"))
	require.NoError(t, h.press(applicantID, string(domain.RoleAdmin)))
	require.NoError(t, h.press(applicantID, domain.ConfirmCallback("admin")))

	err := h.handle(domain.Event{
		From:    applicantID,
		Kind:    domain.EventContact,
		Message: contactMessage,
		Contact: &domain.Contact{Identity: 99, Name: "Mallory", Phone: "+2"},
	})
	var unrecognized *domain.UnrecognizedEventError
	require.True(t, errors.As(err, &unrecognized))
	assert.Equal(t, domain.StateSendingContact, h.state(applicantID))
	assert.Equal(t, domain.StateNone, h.state(superuserID))
}

func TestReviewerStepsAreDeniedByDefault(t *testing.T) {
	h := newHarness(t)
	var intruder domain.Identity = 555
	require.NoError(t, h.sessions.Replace(h.ctx, intruder, domain.StateMemberAliasConfirmation, domain.Fields{
		Role:      domain.RoleAdmin,
		Applicant: &domain.Contact{Identity: 9, Name: "X", Phone: "+3"},
		Alias:     "X",
	}))

	err := h.press(intruder, domain.ConfirmCallback(""))
	require.ErrorIs(t, err, domain.ErrAccessDenied)
	assert.Equal(t, domain.StateMemberAliasConfirmation, h.state(intruder))
	_, known, _ := h.dir.LookupRole(h.ctx, 9)
	assert.False(t, known)

	require.NoError(t, h.dir.InsertStaff(h.ctx, domain.StaffRecord{Identity: intruder, Alias: "Adm", Role: domain.RoleAdmin}))
	err = h.press(intruder, domain.ConfirmCallback(""))
	require.ErrorIs(t, err, domain.ErrAccessDenied, "admins are not the accepting authority")

	err = h.handle(domain.Event{From: applicantID, Kind: domain.EventCommand, Data: domain.CommandStaff})
	assert.ErrorIs(t, err, domain.ErrAccessDenied)
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.Denials.WithLabelValues("role")))
	assert.Equal(t, 2.0, testutil.ToFloat64(h.metrics.Denials.WithLabelValues("unknown")))
}

func TestHandoffRejectsIncompleteApplication(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.start(applicantID, "Ann"))
	require.NoError(t, h.press(applicantID, string(domain.RoleAdmin)))
	require.NoError(t, h.press(applicantID, domain.ConfirmCallback("admin")))

	err := h.shareContact(applicantID, "Ann", "")
	var integrity *domain.HandoffIntegrityError
	require.True(t, errors.As(err, &integrity))
	assert.Equal(t, []string{"applicant.phone"}, integrity.Missing)

	assert.Equal(t, domain.StateNone, h.state(superuserID), "reviewer untouched")
	assert.Equal(t, domain.StateSendingContact, h.state(applicantID))
	assert.Empty(t, h.msg.Deliveries(superuserID))
}

func TestHandoffRejectsMissingRole(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.sessions.Replace(h.ctx, applicantID, domain.StateSendingContact, domain.Fields{}))

	err := h.shareContact(applicantID, "Ann", "+1")
	var roleErr *domain.InvalidRoleError
	require.True(t, errors.As(err, &roleErr))
	assert.Equal(t, domain.StateNone, h.state(superuserID))
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.Errors.WithLabelValues("invalid_role")))
}

func TestApplicationValidate(t *testing.T) {
	err := membership.Application{Role: domain.RoleEmployee}.Validate()
	var integrity *domain.HandoffIntegrityError
	require.True(t, errors.As(err, &integrity))
	assert.Equal(t, []string{
		"applicant.identity", "applicant.name", "applicant.phone", "files", "contact_message",
	}, integrity.Missing)

	ok := membership.Application{
		Applicant:      domain.Contact{Identity: 1, Name: "A", Phone: "+1"},
		Role:           domain.RoleEmployee,
		FilesListed:    true,
		ContactMessage: 3,
	}
	assert.NoError(t, ok.Validate())
}

func TestFinalizeIsIdempotent(t *testing.T) {
	h := newHarness(t)
	h.apply(domain.RoleAdmin)
	require.NoError(t, h.press(superuserID, domain.CallbackAccepted))
	require.NoError(t, h.press(superuserID, domain.ConfirmCallback(domain.CallbackAccepted)))
	require.NoError(t, h.typeText(superuserID, "Ann"))

	require.NoError(t, h.dir.InsertStaff(h.ctx, domain.StaffRecord{Identity: applicantID, Alias: "Ann", Role: domain.RoleAdmin}))
	applicantMessages := len(h.msg.Deliveries(applicantID))

	err := h.press(superuserID, domain.ConfirmCallback(""))
	require.ErrorIs(t, err, domain.ErrAlreadyFinalized)

	assert.Equal(t, domain.StateNone, h.state(superuserID))
	assert.Equal(t, domain.StateNone, h.state(applicantID))
	assert.Len(t, h.msg.Deliveries(applicantID), applicantMessages, "no repeated notification")
	staff, err := h.dir.ListStaff(h.ctx)
	require.NoError(t, err)
	assert.Len(t, staff, 2)
	require.Len(t, h.outcomes, 1)
	assert.True(t, h.outcomes[0].AlreadyFinalized)
}

func TestFinalizeTwiceReportsAlreadyFinalized(t *testing.T) {
	h := newHarness(t)
	h.apply(domain.RoleAdmin)
	require.NoError(t, h.press(superuserID, domain.CallbackRejected))

	finalizer := h.engine.Finalizer()
	out, err := finalizer.Finalize(h.ctx, superuserID, domain.DecisionRejected)
	require.NoError(t, err)
	require.NotNil(t, out.Blacklist)
	deliveries := h.msg.Len()

	_, err = finalizer.Finalize(h.ctx, superuserID, domain.DecisionRejected)
	require.ErrorIs(t, err, domain.ErrAlreadyFinalized)
	var integrity *domain.HandoffIntegrityError
	assert.False(t, errors.As(err, &integrity))
	assert.Equal(t, deliveries, h.msg.Len(), "nobody is notified twice")

	_, err = finalizer.Finalize(h.ctx, superuserID, domain.DecisionAccepted)
	assert.ErrorIs(t, err, domain.ErrAlreadyFinalized)
}

func TestFinalizeMidWorkflowWithoutApplicant(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.sessions.Replace(h.ctx, superuserID, domain.StateRejectionConfirmation, domain.Fields{}))

	_, err := h.engine.Finalizer().Finalize(h.ctx, superuserID, domain.DecisionRejected)
	var integrity *domain.HandoffIntegrityError
	require.True(t, errors.As(err, &integrity))
	assert.Equal(t, []string{"applicant"}, integrity.Missing)
}

func TestFinalizeStorageFailureIsRetryable(t *testing.T) {
	h := newHarness(t)
	h.apply(domain.RoleAdmin)
	require.NoError(t, h.press(superuserID, domain.CallbackRejected))
	applicantMessages := len(h.msg.Deliveries(applicantID))

	h.dir.Fail = errors.New("disk full")
	err := h.press(superuserID, domain.ConfirmCallback(domain.CallbackRejected))
	var writeErr *domain.StorageWriteError
	require.True(t, errors.As(err, &writeErr))
	assert.Equal(t, "insert_blacklist", writeErr.Op)

	assert.Equal(t, domain.StateRejectionConfirmation, h.state(superuserID))
	assert.Equal(t, domain.StateWaitAcceptance, h.state(applicantID))
	assert.Len(t, h.msg.Deliveries(applicantID), applicantMessages)
	assert.Empty(t, h.outcomes)

	h.dir.Fail = nil
	require.NoError(t, h.press(superuserID, domain.ConfirmCallback(domain.CallbackRejected)))
	_, ok := h.dir.Blacklist(applicantID)
	assert.True(t, ok)
}

func TestNotificationFailureIsReported(t *testing.T) {
	h := newHarness(t)
	h.apply(domain.RoleAdmin)
	require.NoError(t, h.press(superuserID, domain.CallbackAccepted))
	require.NoError(t, h.press(superuserID, domain.ConfirmCallback(domain.CallbackAccepted)))
	require.NoError(t, h.typeText(superuserID, "Ann"))

	h.msg.FailFor(applicantID, errors.New("bot was blocked by the user"))
	require.NoError(t, h.press(superuserID, domain.ConfirmCallback("")))

	require.Len(t, h.outcomes, 1)
	assert.True(t, h.outcomes[0].Inconsistent())
	assert.ErrorContains(t, h.outcomes[0].NotifyErr, "notify applicant")

	_, known, err := h.dir.LookupRole(h.ctx, applicantID)
	require.NoError(t, err)
	assert.True(t, known, "the decision stands")
	assert.Equal(t, domain.StateNone, h.state(applicantID))
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.Inconsistencies))
}

func TestSecondApplicationReplacesPendingOne(t *testing.T) {
	h := newHarness(t)
	h.apply(domain.RoleAdmin)

	var other domain.Identity = 43
	require.NoError(t, h.start(other, "Bob"))
	require.NoError(t, h.press(other, string(domain.RoleEmployee)))
	require.NoError(t, h.press(other, domain.ConfirmCallback("employee")))
	require.NoError(t, h.shareContact(other, "Bob", "+2"))

	review := h.fields(superuserID)
	require.NotNil(t, review.Applicant)
	assert.Equal(t, other, review.Applicant.Identity)
	assert.Equal(t, domain.RoleEmployee, review.Role)
	assert.Equal(t, domain.StateApplicantConsideration, h.state(superuserID))
}

func TestStartVariants(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.dir.InsertStaff(h.ctx, domain.StaffRecord{Identity: veteranID, Alias: "Vet", Role: domain.RoleEmployee}))

	require.NoError(t, h.start(veteranID, "Vet"))
	assert.Equal(t, h.engine.Catalog().Text("already_registered", "role", "Employee"), h.lastPrompt(veteranID).Text)
	assert.Equal(t, domain.StateNone, h.state(veteranID))

	h.apply(domain.RoleAdmin)
	require.NoError(t, h.start(applicantID, "Ann"))
	assert.Equal(t, h.engine.Catalog().Text("already_waiting"), h.lastPrompt(applicantID).Text)
	assert.Equal(t, domain.StateWaitAcceptance, h.state(applicantID))

	var restarter domain.Identity = 44
	require.NoError(t, h.start(restarter, "Cy"))
	require.NoError(t, h.press(restarter, string(domain.RoleAdmin)))
	require.NoError(t, h.start(restarter, "Cy"))
	assert.Equal(t, domain.StateRoleSelection, h.state(restarter))
	assert.Empty(t, h.fields(restarter).Role, "restart drops the unfinished application")
}

func TestSuperuserCommands(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.dir.InsertStaff(h.ctx, domain.StaffRecord{Identity: 2, Alias: "Zed", Role: domain.RoleEmployee}))
	require.NoError(t, h.dir.InsertStaff(h.ctx, domain.StaffRecord{Identity: 3, Alias: "Amy", Role: domain.RoleEmployee, FileID: "f1"}))
	require.NoError(t, h.dir.InsertStaff(h.ctx, domain.StaffRecord{Identity: 4, Alias: "Max", Role: domain.RoleAdmin}))

	require.NoError(t, h.start(superuserID, "Boss"))
	assert.Contains(t, h.lastPrompt(superuserID).Text, "Members on board: 3")

	staff, err := h.engine.Staff(h.ctx)
	require.NoError(t, err)
	var aliases []string
	for _, rec := range staff {
		aliases = append(aliases, rec.Alias)
	}
	assert.Equal(t, []string{"Max", "Amy", "Zed"}, aliases)

	require.NoError(t, h.handle(domain.Event{From: superuserID, Kind: domain.EventCommand, Data: domain.CommandStaff}))
	list := h.lastPrompt(superuserID)
	assert.True(t, list.HasButton(domain.CallbackInvite))
	lines := strings.Split(strings.TrimSpace(list.Text), "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[1], "Max")
	assert.NotContains(t, lines[2], "(no file)")
	assert.Contains(t, lines[3], "Zed (no file)")

	require.NoError(t, h.handle(domain.Event{From: superuserID, Kind: domain.EventCallback, Data: domain.CallbackInvite}))
	assert.Contains(t, h.lastPrompt(superuserID).Text, "12345")

	err = h.handle(domain.Event{From: applicantID, Kind: domain.EventCallback, Data: domain.CallbackInvite})
	assert.ErrorIs(t, err, domain.ErrAccessDenied)
}

func TestPromoCode(t *testing.T) {
	assert.Equal(t, "12345", membership.PromoCode(1000012345))
	assert.Equal(t, "42", membership.PromoCode(42))
}

func TestNewRequiresDependencies(t *testing.T) {
	_, err := membership.New(membership.Deps{})
	assert.Error(t, err)

	_, err = membership.New(membership.Deps{
		Sessions:  session.NewManager(memory.NewStore()),
		Directory: memory.NewDirectory(),
		Documents: memory.NewLister(),
		Messenger: memory.NewMessenger(),
	})
	assert.ErrorContains(t, err, "superuser")
}
