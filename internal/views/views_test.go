package views

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"testing"

	"certgen/frontend/internal/api"
	"certgen/frontend/internal/backendtest"
	"certgen/frontend/internal/model"
	"certgen/frontend/internal/session"
)

type harness struct {
	backend *backendtest.Backend
	deps    Deps
	notices *Notices
	confirm bool
	account backendtest.Account
}

func newHarness(t *testing.T, role string) *harness {
	t.Helper()
	ctx := context.Background()
	h := &harness{backend: backendtest.New(t), notices: &Notices{}}

	store, err := session.Open(ctx, session.NewMemoryStorage(), session.Options{})
	if err != nil {
		t.Fatalf("open session: %v", err)
	}
	client, err := api.New(api.Options{BaseURL: h.backend.URL, Tokens: store})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	h.deps = Deps{
		Client:    client,
		Session:   store,
		Notifier:  h.notices,
		Confirmer: ConfirmFunc(func(ctx context.Context, prompt string) bool { return h.confirm }),
	}
	if role != "" {
		h.account = h.backend.AddAccount(backendtest.Account{FullName: "Ada Lovelace", Email: "ada@x.io", Password: "pw", Role: role})
		if _, err := Login(ctx, h.deps, LoginForm{Email: "ada@x.io", Password: "pw"}); err != nil {
			t.Fatalf("login: %v", err)
		}
	}
	return h
}

func (h *harness) lastNotice(t *testing.T) Notice {
	t.Helper()
	list := h.notices.List()
	if len(list) == 0 {
		t.Fatalf("expected a notification")
	}
	return list[len(list)-1]
}

func TestLoginNotifications(t *testing.T) {
	h := newHarness(t, "")
	h.backend.AddAccount(backendtest.Account{FullName: "Ada", Email: "ada@x.io", Password: "pw", Role: "STUDENT"})
	ctx := context.Background()

	if _, err := Login(ctx, h.deps, LoginForm{Email: "ada@x.io", Password: "wrong"}); err == nil {
		t.Fatalf("expected login failure")
	}
	if got := h.lastNotice(t); got.Level != LevelError || got.Message != "Login failed. Please check your credentials." {
		t.Fatalf("unexpected notice %+v", got)
	}
	if h.deps.Session.State() != session.Anonymous {
		t.Fatalf("expected anonymous after failed login")
	}

	if _, err := Login(ctx, h.deps, LoginForm{Email: "", Password: "pw"}); !errors.Is(err, ErrRequired) {
		t.Fatalf("expected required error, got %v", err)
	}

	user, err := Login(ctx, h.deps, LoginForm{Email: "ada@x.io", Password: "pw"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if user.Role != "STUDENT" || h.lastNotice(t).Message != "Login successful!" {
		t.Fatalf("unexpected login result %+v", user)
	}
}

func TestRegisterMessages(t *testing.T) {
	h := newHarness(t, "")
	ctx := context.Background()

	if err := Register(ctx, h.deps, RegisterForm{FullName: "Bo", Email: "bo@x.io", Password: "pw"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if got := h.lastNotice(t).Message; got != "Registration successful! Please login." {
		t.Fatalf("unexpected message %s", got)
	}
	if h.deps.Session.State() != session.Anonymous {
		t.Fatalf("expected registration to leave session anonymous")
	}
	var payload map[string]any
	_ = json.Unmarshal([]byte(h.backend.LastBody(http.MethodPost, "/api/auth/register")), &payload)
	if payload["role"] != "STUDENT" {
		t.Fatalf("expected default role STUDENT, got %v", payload["role"])
	}

	if err := Register(ctx, h.deps, RegisterForm{FullName: "Bo", Email: "bo@x.io", Password: "pw"}); err == nil {
		t.Fatalf("expected duplicate registration to fail")
	}
	if got := h.lastNotice(t).Message; got != "Error: Email is already in use!" {
		t.Fatalf("expected backend message, got %s", got)
	}
}

func TestStudentCertificatesUseMine(t *testing.T) {
	h := newHarness(t, "STUDENT")
	h.backend.Seed("certificates", map[string]any{"certificateNumber": "C-1", "recipient": map[string]any{"id": h.account.ID, "fullName": "Ada Lovelace"}})
	h.backend.Seed("certificates", map[string]any{"certificateNumber": "C-2", "recipient": map[string]any{"id": 1}})

	v := NewCertificates(h.deps)
	v.Activate(context.Background())

	certs := v.Certificates()
	if len(certs) != 1 || certs[0].CertificateNumber != "C-1" {
		t.Fatalf("expected only own certificate, got %+v", certs)
	}
	if h.backend.CallsTo(http.MethodGet, "/api/certificates") != 0 || h.backend.CallsTo(http.MethodGet, "/api/users") != 0 {
		t.Fatalf("student should fetch neither the full list nor users")
	}
	if actions := v.Actions(); actions.Create || actions.Delete || actions.Edit {
		t.Fatalf("student gets no certificate actions, got %+v", actions)
	}
}

func TestAdminCertificatesFetchUsers(t *testing.T) {
	h := newHarness(t, "CERTIFICATE_ADMIN")
	v := NewCertificates(h.deps)
	v.Activate(context.Background())

	if h.backend.CallsTo(http.MethodGet, "/api/users") != 1 || h.backend.CallsTo(http.MethodGet, "/api/courses") != 1 {
		t.Fatalf("expected users and courses fetched once, calls=%+v", h.backend.Calls())
	}
	if len(v.Users()) != 1 {
		t.Fatalf("expected the admin account in users, got %+v", v.Users())
	}
}

func TestInstructorCertificateOmitsRecipientID(t *testing.T) {
	h := newHarness(t, "INSTRUCTOR")
	courseID := h.backend.Seed("courses", map[string]any{"courseName": "Go"})
	ctx := context.Background()

	v := NewCertificates(h.deps)
	v.Activate(ctx)
	v.OpenCreate()
	v.SetForm(CertificateForm{RecipientID: "42", RecipientEmail: "student@x.io", CourseID: itoa(courseID)})
	if err := v.Submit(ctx); err != nil {
		t.Fatalf("submit: %v", err)
	}

	var payload map[string]any
	if err := json.Unmarshal([]byte(h.backend.LastBody(http.MethodPost, "/api/certificates")), &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if _, ok := payload["recipientId"]; ok {
		t.Fatalf("expected recipientId omitted, got %v", payload)
	}
	if payload["recipientEmail"] != "student@x.io" {
		t.Fatalf("expected recipientEmail, got %v", payload)
	}
	if h.lastNotice(t).Message != "Certificate created successfully" {
		t.Fatalf("unexpected notice %+v", h.lastNotice(t))
	}
	if v.Form().Open {
		t.Fatalf("expected form closed after success")
	}
}

func TestSubmitRefetchesWholeList(t *testing.T) {
	h := newHarness(t, "SYSTEM_ADMIN")
	ctx := context.Background()
	courseID := h.backend.Seed("courses", map[string]any{"courseName": "Go"})

	v := NewCertificates(h.deps)
	v.Activate(ctx)
	if len(v.Certificates()) != 0 {
		t.Fatalf("expected empty list")
	}

	// Another client adds a certificate behind this view's back.
	h.backend.Seed("certificates", map[string]any{"certificateNumber": "EXT-1"})

	v.OpenCreate()
	v.SetForm(CertificateForm{RecipientID: itoa(h.account.ID), CourseID: itoa(courseID), CertificateNumber: "NEW-1"})
	if err := v.Submit(ctx); err != nil {
		t.Fatalf("submit: %v", err)
	}

	fresh, err := h.deps.Client.Certificates.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	got := v.Certificates()
	if len(got) != len(fresh) || len(got) != 2 {
		t.Fatalf("expected list to equal a fresh fetch, got %d vs %d", len(got), len(fresh))
	}
	for i := range got {
		if got[i].ID != fresh[i].ID || got[i].CertificateNumber != fresh[i].CertificateNumber {
			t.Fatalf("entry %d differs: %+v vs %+v", i, got[i], fresh[i])
		}
	}
}

func TestSubmitValidationSendsNothing(t *testing.T) {
	h := newHarness(t, "CERTIFICATE_ADMIN")
	v := NewCertificates(h.deps)
	v.OpenCreate()
	v.SetForm(CertificateForm{CourseID: "1"})

	before := len(h.backend.Calls())
	err := v.Submit(context.Background())
	var fieldErr *FieldError
	if !errors.As(err, &fieldErr) || fieldErr.Field != "recipientId" {
		t.Fatalf("expected recipientId required, got %v", err)
	}
	if len(h.backend.Calls()) != before {
		t.Fatalf("expected no request on validation failure")
	}
	if !v.Form().Open {
		t.Fatalf("expected form to stay open")
	}
}

func TestSubmitFailureKeepsFormOpen(t *testing.T) {
	h := newHarness(t, "CERTIFICATE_ADMIN")
	h.backend.Fail("/api/templates", http.StatusInternalServerError)
	v := NewTemplates(h.deps)
	v.OpenCreate()
	v.SetForm(TemplateForm{Name: "Classic"})

	if err := v.Submit(context.Background()); err == nil {
		t.Fatalf("expected submit failure")
	}
	if h.lastNotice(t).Message != "Operation failed" {
		t.Fatalf("unexpected notice %+v", h.lastNotice(t))
	}
	if state := v.Form(); !state.Open || state.Values.Name != "Classic" {
		t.Fatalf("expected form kept, got %+v", state)
	}
}

func TestFetchFailureEmptiesCollection(t *testing.T) {
	h := newHarness(t, "INSTRUCTOR")
	h.backend.Seed("templates", map[string]any{"name": "A", "approvalStatus": "APPROVED"})
	h.backend.Seed("templates", map[string]any{"name": "B", "approvalStatus": "PENDING"})
	h.backend.Fail("/api/courses", http.StatusInternalServerError)

	v := NewCourses(h.deps)
	v.Activate(context.Background())

	if len(v.Courses()) != 0 {
		t.Fatalf("expected empty courses")
	}
	found := false
	for _, n := range h.notices.List() {
		if n.Level == LevelError && n.Message == "Failed to fetch courses" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected fetch failure notice, got %+v", h.notices.List())
	}
	options := v.TemplateOptions()
	if len(options) != 1 || options[0].Name != "A" {
		t.Fatalf("expected only approved template, got %+v", options)
	}
}

func TestCourseWithoutTemplateSendsNull(t *testing.T) {
	h := newHarness(t, "INSTRUCTOR")
	v := NewCourses(h.deps)
	v.OpenCreate()
	v.SetForm(CourseForm{CourseName: "Intro to Go"})
	if err := v.Submit(context.Background()); err != nil {
		t.Fatalf("submit: %v", err)
	}
	var payload map[string]any
	_ = json.Unmarshal([]byte(h.backend.LastBody(http.MethodPost, "/api/courses")), &payload)
	value, ok := payload["certificateTemplate"]
	if !ok || value != nil {
		t.Fatalf("expected certificateTemplate null, got %v", payload)
	}
	if len(v.Courses()) != 1 {
		t.Fatalf("expected refetched course list")
	}
}

func TestDeleteRequiresConfirmation(t *testing.T) {
	h := newHarness(t, "SYSTEM_ADMIN")
	id := h.backend.Seed("courses", map[string]any{"courseName": "Go"})
	path := "/api/courses/" + itoa(id)
	ctx := context.Background()

	v := NewCourses(h.deps)
	v.Activate(ctx)

	h.confirm = false
	deleted, err := v.Delete(ctx, model.ID(itoa(id)))
	if deleted || err != nil {
		t.Fatalf("expected declined delete, got %v %v", deleted, err)
	}
	if h.backend.CallsTo(http.MethodDelete, path) != 0 {
		t.Fatalf("expected no delete request when declined")
	}

	h.confirm = true
	deleted, err = v.Delete(ctx, model.ID(itoa(id)))
	if !deleted || err != nil {
		t.Fatalf("expected delete, got %v %v", deleted, err)
	}
	if len(v.Courses()) != 0 || h.lastNotice(t).Message != "Course deleted successfully" {
		t.Fatalf("expected refetched empty list")
	}
}

func TestDeleteFailureKeepsList(t *testing.T) {
	h := newHarness(t, "SYSTEM_ADMIN")
	id := h.backend.Seed("templates", map[string]any{"name": "A"})
	ctx := context.Background()
	v := NewTemplates(h.deps)
	v.Activate(ctx)
	h.confirm = true
	h.backend.Fail("/api/templates/"+itoa(id), http.StatusForbidden)

	if _, err := v.Delete(ctx, model.ID(itoa(id))); !api.IsUnauthorized(err) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if len(v.Templates()) != 1 || h.lastNotice(t).Message != "Failed to delete template" {
		t.Fatalf("expected list unchanged")
	}
}

func TestUserActionsHideSelfDelete(t *testing.T) {
	h := newHarness(t, "SYSTEM_ADMIN")
	other := h.backend.AddAccount(backendtest.Account{FullName: "Bo", Email: "bo@x.io", Password: "pw", Role: "STUDENT"})
	v := NewUsers(h.deps)
	v.Activate(context.Background())

	if a := v.Actions(model.ID(itoa(h.account.ID))); a.Delete || !a.Edit {
		t.Fatalf("expected no delete on own row, got %+v", a)
	}
	if a := v.Actions(model.ID(itoa(other.ID))); !a.Delete {
		t.Fatalf("expected delete on other row")
	}
}

func TestInstitutionAdminCannotDeleteUsers(t *testing.T) {
	h := newHarness(t, "INSTITUTION_ADMIN")
	other := h.backend.AddAccount(backendtest.Account{FullName: "Bo", Email: "bo@x.io", Password: "pw", Role: "STUDENT"})
	v := NewUsers(h.deps)
	if a := v.Actions(model.ID(itoa(other.ID))); a.Delete || !a.Edit {
		t.Fatalf("expected edit only, got %+v", a)
	}
}

func TestUserUpdate(t *testing.T) {
	h := newHarness(t, "SYSTEM_ADMIN")
	other := h.backend.AddAccount(backendtest.Account{FullName: "Bo", Email: "bo@x.io", Password: "pw", Role: "STUDENT"})
	ctx := context.Background()
	v := NewUsers(h.deps)
	v.Activate(ctx)

	var target model.UserRecord
	for _, u := range v.Users() {
		if u.ID.String() == itoa(other.ID) {
			target = u
		}
	}
	v.OpenEdit(target)
	values := v.Form().Values
	values.Role = "verifier"
	values.IsActive = false
	v.SetForm(values)
	if err := v.Submit(ctx); err != nil {
		t.Fatalf("submit: %v", err)
	}
	for _, u := range v.Users() {
		if u.ID == target.ID && (u.Role != "VERIFIER" || u.IsActive) {
			t.Fatalf("expected updated user, got %+v", u)
		}
	}
	if h.lastNotice(t).Message != "User updated successfully" {
		t.Fatalf("unexpected notice %+v", h.lastNotice(t))
	}
}

func TestVerify(t *testing.T) {
	h := newHarness(t, "")
	h.backend.Seed("certificates", map[string]any{
		"certificateNumber": "CERT-2026-001",
		"verificationCode":  "ABC123",
		"status":            "ACTIVE",
		"issueDate":         "2026-02-03T10:00:00",
		"recipient":         map[string]any{"id": 1, "fullName": "Ada Lovelace"},
	})
	ctx := context.Background()

	result := Verify(ctx, h.deps, "  abc123 ")
	if result.Outcome != OutcomeValid || result.RecipientName != "Ada Lovelace" || result.CourseName != "N/A" || result.IssueDate != "2026-02-03" {
		t.Fatalf("unexpected result %+v", result)
	}

	result = Verify(ctx, h.deps, "nope")
	if result.Outcome != OutcomeInvalid || result.Message != "Certificate not found or invalid verification code" {
		t.Fatalf("unexpected result %+v", result)
	}
	if result.CertificateNumber != "" || result.RecipientName != "" || result.Status != "" {
		t.Fatalf("expected no detail fields, got %+v", result)
	}

	before := len(h.backend.Calls())
	result = Verify(ctx, h.deps, "   ")
	if result.Outcome != OutcomeNone || h.lastNotice(t).Message != "Please enter a verification code" {
		t.Fatalf("unexpected empty-input result %+v", result)
	}
	if len(h.backend.Calls()) != before {
		t.Fatalf("expected no request for empty code")
	}
}

func TestNormalizeCode(t *testing.T) {
	long := ""
	for i := 0; i < 60; i++ {
		long += "a"
	}
	if got := NormalizeCode(long); len(got) != 50 || got[0] != 'A' {
		t.Fatalf("expected 50 upper-case chars, got %q", got)
	}
}

func TestDashboard(t *testing.T) {
	h := newHarness(t, "SYSTEM_ADMIN")
	dash, err := BuildDashboard(h.deps)
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	want := []string{"Certificates", "Templates", "Courses", "Verify Certificate", "Users"}
	if len(dash.Cards) != len(want) {
		t.Fatalf("expected %d cards, got %+v", len(want), dash.Cards)
	}
	for i, title := range want {
		if dash.Cards[i].Title != title {
			t.Fatalf("card %d: expected %s, got %s", i, title, dash.Cards[i].Title)
		}
	}
	if dash.RoleLabel != "System Admin" {
		t.Fatalf("unexpected role label %s", dash.RoleLabel)
	}

	_ = h.deps.Session.Logout(context.Background())
	if _, err := BuildDashboard(h.deps); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected no session error, got %v", err)
	}
}

func itoa(n int) string {
	return strconv.Itoa(n)
}

func TestBearerFollowsSessionLifecycle(t *testing.T) {
	h := newHarness(t, "INSTRUCTOR")
	ctx := context.Background()

	lastAuth := func() string {
		calls := h.backend.Calls()
		for i := len(calls) - 1; i >= 0; i-- {
			if calls[i].Path == "/api/courses" {
				return calls[i].Auth
			}
		}
		t.Fatalf("no call to /api/courses")
		return ""
	}

	NewCourses(h.deps).Activate(ctx)
	if got, want := lastAuth(), "Bearer "+h.account.Token; got != want {
		t.Fatalf("after login Authorization = %q, want %q", got, want)
	}

	if err := h.deps.Session.Logout(ctx); err != nil {
		t.Fatalf("logout: %v", err)
	}
	NewCourses(h.deps).Activate(ctx)
	if got := lastAuth(); got != "" {
		t.Fatalf("after logout Authorization = %q", got)
	}
}
