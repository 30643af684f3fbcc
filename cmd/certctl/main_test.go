package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"certgen/frontend/internal/backendtest"
)

type result struct {
	code   int
	stdout string
	stderr string
}

func setup(t *testing.T) *backendtest.Backend {
	t.Helper()
	backend := backendtest.New(t)
	t.Setenv("API_URL", backend.URL)
	t.Setenv("SESSION_BACKEND", "bolt")
	t.Setenv("SESSION_PATH", filepath.Join(t.TempDir(), "session.db"))
	t.Setenv("LOG_LEVEL", "error")
	return backend
}

func runCLI(t *testing.T, stdin string, args ...string) result {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, strings.NewReader(stdin), &stdout, &stderr)
	return result{code: code, stdout: stdout.String(), stderr: stderr.String()}
}

func loginAs(t *testing.T, backend *backendtest.Backend, role string) backendtest.Account {
	t.Helper()
	acct := backend.AddAccount(backendtest.Account{
		FullName: "Test " + role,
		Email:    strings.ToLower(role) + "@example.com",
		Password: "secret",
		Role:     role,
	})
	res := runCLI(t, "", "login", "--email", acct.Email, "--password", "secret")
	if res.code != 0 {
		t.Fatalf("login exit=%d stderr=%q", res.code, res.stderr)
	}
	return acct
}

func TestUsage(t *testing.T) {
	setup(t)
	if res := runCLI(t, ""); res.code != 2 || !strings.Contains(res.stderr, "usage:") {
		t.Fatalf("no args: %+v", res)
	}
	if res := runCLI(t, "", "bogus"); res.code != 2 {
		t.Fatalf("unknown command exit=%d", res.code)
	}
}

func TestInvalidAPIURL(t *testing.T) {
	setup(t)
	res := runCLI(t, "", "--api", "not a url", "ping")
	if res.code != 2 || !strings.Contains(res.stderr, "invalid_base_url") {
		t.Fatalf("got %+v", res)
	}
}

func TestSessionPersistsBetweenRuns(t *testing.T) {
	backend := setup(t)
	loginAs(t, backend, "CERTIFICATE_ADMIN")

	res := runCLI(t, "", "whoami")
	if res.code != 0 {
		t.Fatalf("whoami exit=%d stderr=%q", res.code, res.stderr)
	}
	if !strings.Contains(res.stdout, "Welcome back, Test CERTIFICATE_ADMIN!") {
		t.Fatalf("greeting missing: %q", res.stdout)
	}
	if !strings.Contains(res.stdout, "/templates") {
		t.Fatalf("certificate admin should see templates: %q", res.stdout)
	}

	if res := runCLI(t, "", "logout"); res.code != 0 {
		t.Fatalf("logout exit=%d", res.code)
	}
	res = runCLI(t, "", "courses", "list")
	if res.code != 1 || !strings.Contains(res.stderr, "not logged in") {
		t.Fatalf("after logout: %+v", res)
	}
	if n := backend.CallsTo(http.MethodGet, "/api/courses"); n != 0 {
		t.Fatalf("anonymous list reached backend %d times", n)
	}
}

func TestLoginFailure(t *testing.T) {
	backend := setup(t)
	backend.AddAccount(backendtest.Account{FullName: "A", Email: "a@example.com", Password: "right", Role: "STUDENT"})

	res := runCLI(t, "", "login", "--email", "a@example.com", "--password", "wrong")
	if res.code != 1 {
		t.Fatalf("exit=%d", res.code)
	}
	if !strings.Contains(res.stderr, "[error] Login failed. Please check your credentials.") {
		t.Fatalf("stderr=%q", res.stderr)
	}
	if res := runCLI(t, "", "whoami"); res.code != 1 {
		t.Fatalf("whoami after failed login exit=%d", res.code)
	}
}

func TestPasswordPrompt(t *testing.T) {
	backend := setup(t)
	backend.AddAccount(backendtest.Account{FullName: "A", Email: "a@example.com", Password: "secret", Role: "STUDENT"})

	res := runCLI(t, "secret\n", "login", "--email", "a@example.com")
	if res.code != 0 || !strings.Contains(res.stdout, "Logged in as A (Student)") {
		t.Fatalf("got %+v", res)
	}
}

func TestRegister(t *testing.T) {
	backend := setup(t)

	res := runCLI(t, "", "register", "--name", "New", "--email", "new@example.com", "--password", "pw")
	if res.code != 0 || !strings.Contains(res.stderr, "Registration successful! Please login.") {
		t.Fatalf("got %+v", res)
	}
	if !strings.Contains(backend.LastBody(http.MethodPost, "/api/auth/register"), `"role":"STUDENT"`) {
		t.Fatalf("default role not sent: %s", backend.LastBody(http.MethodPost, "/api/auth/register"))
	}

	res = runCLI(t, "", "register", "--name", "New", "--email", "new@example.com", "--password", "pw")
	if res.code != 1 || !strings.Contains(res.stderr, "Error: Email is already in use!") {
		t.Fatalf("duplicate: %+v", res)
	}
}

func TestCourseLifecycle(t *testing.T) {
	backend := setup(t)
	loginAs(t, backend, "INSTRUCTOR")

	res := runCLI(t, "", "courses", "create", "--name", "Go 101", "--description", "intro")
	if res.code != 0 || !strings.Contains(res.stderr, "Course created successfully") {
		t.Fatalf("create: %+v", res)
	}
	if body := backend.LastBody(http.MethodPost, "/api/courses"); !strings.Contains(body, `"certificateTemplate":null`) {
		t.Fatalf("create body: %s", body)
	}

	res = runCLI(t, "", "--json", "courses", "list")
	if res.code != 0 {
		t.Fatalf("list: %+v", res)
	}
	var page struct {
		Courses []struct {
			ID         json.Number `json:"id"`
			CourseName string      `json:"courseName"`
		} `json:"courses"`
	}
	if err := json.Unmarshal([]byte(res.stdout), &page); err != nil {
		t.Fatalf("decode: %v\n%s", err, res.stdout)
	}
	if len(page.Courses) != 1 || page.Courses[0].CourseName != "Go 101" {
		t.Fatalf("courses = %+v", page.Courses)
	}
	id := page.Courses[0].ID.String()

	res = runCLI(t, "", "courses", "update", id, "--name", "Go 102")
	if res.code != 0 || !strings.Contains(res.stderr, "Course updated successfully") {
		t.Fatalf("update: %+v", res)
	}
	body := backend.LastBody(http.MethodPut, "/api/courses/"+id)
	if !strings.Contains(body, `"courseName":"Go 102"`) || !strings.Contains(body, `"description":"intro"`) {
		t.Fatalf("update body: %s", body)
	}

	res = runCLI(t, "n\n", "courses", "delete", id)
	if res.code != 0 || backend.CallsTo(http.MethodDelete, "/api/courses/"+id) != 0 {
		t.Fatalf("declined delete: %+v", res)
	}
	res = runCLI(t, "", "--yes", "courses", "delete", id)
	if res.code != 0 || !strings.Contains(res.stderr, "Course deleted successfully") {
		t.Fatalf("delete: %+v", res)
	}
}

func TestCertificateCreateValidation(t *testing.T) {
	backend := setup(t)
	loginAs(t, backend, "INSTRUCTOR")

	res := runCLI(t, "", "certificates", "create", "--course", "1")
	if res.code != 1 {
		t.Fatalf("exit=%d", res.code)
	}
	if n := backend.CallsTo(http.MethodPost, "/api/certificates"); n != 0 {
		t.Fatalf("invalid form reached backend %d times", n)
	}
}

func TestCertificateByEmail(t *testing.T) {
	backend := setup(t)
	loginAs(t, backend, "INSTRUCTOR")

	res := runCLI(t, "", "certificates", "create", "--course", "7", "--recipient-email", "s@example.com")
	if res.code != 0 {
		t.Fatalf("create: %+v", res)
	}
	body := backend.LastBody(http.MethodPost, "/api/certificates")
	if strings.Contains(body, "recipientId") || !strings.Contains(body, `"recipientEmail":"s@example.com"`) {
		t.Fatalf("body = %s", body)
	}
}

func TestStudentCertificatesUseMine(t *testing.T) {
	backend := setup(t)
	loginAs(t, backend, "STUDENT")

	if res := runCLI(t, "", "certificates", "list"); res.code != 0 {
		t.Fatalf("list: %+v", res)
	}
	if backend.CallsTo(http.MethodGet, "/api/certificates/my") != 1 || backend.CallsTo(http.MethodGet, "/api/certificates") != 0 {
		t.Fatalf("calls = %+v", backend.Calls())
	}
}

func TestExport(t *testing.T) {
	backend := setup(t)
	loginAs(t, backend, "SYSTEM_ADMIN")
	backend.Seed("certificates", map[string]any{
		"certificateNumber": "CERT-1",
		"verificationCode":  "ABC",
		"status":            "ACTIVE",
		"recipient":         map[string]any{"id": 1, "fullName": "Ada"},
		"course":            map[string]any{"id": 2, "courseName": "Go"},
	})

	out := filepath.Join(t.TempDir(), "certs.xlsx")
	res := runCLI(t, "", "certificates", "export", "--out", out)
	if res.code != 0 || !strings.Contains(res.stdout, "Wrote 1 certificates") {
		t.Fatalf("export: %+v", res)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	rows, err := f.GetRows("Certificates")
	if err != nil {
		t.Fatalf("rows: %v", err)
	}
	if len(rows) != 2 || rows[1][0] != "CERT-1" {
		t.Fatalf("rows = %v", rows)
	}
}

func TestUsersUpdateAndDelete(t *testing.T) {
	backend := setup(t)
	loginAs(t, backend, "SYSTEM_ADMIN")
	other := backend.AddAccount(backendtest.Account{FullName: "Bob", Email: "bob@example.com", Password: "x", Role: "STUDENT"})
	otherID := strconv.Itoa(other.ID)

	res := runCLI(t, "", "users", "list")
	if res.code != 0 || !strings.Contains(res.stdout, "bob@example.com") {
		t.Fatalf("list: %+v", res)
	}

	res = runCLI(t, "", "users", "update", otherID, "--role", "verifier", "--active", "false")
	if res.code != 0 || !strings.Contains(res.stderr, "User updated successfully") {
		t.Fatalf("update: %+v", res)
	}
	body := backend.LastBody(http.MethodPut, "/api/users/"+otherID)
	if !strings.Contains(body, `"role":"VERIFIER"`) || !strings.Contains(body, `"isActive":false`) {
		t.Fatalf("update body: %s", body)
	}

	if res := runCLI(t, "", "users", "update", otherID, "--active", "maybe"); res.code != 2 {
		t.Fatalf("bad --active exit=%d", res.code)
	}

	res = runCLI(t, "", "--yes", "users", "delete", otherID)
	if res.code != 0 || backend.CallsTo(http.MethodDelete, "/api/users/"+otherID) != 1 {
		t.Fatalf("delete: %+v", res)
	}
}

func TestVerify(t *testing.T) {
	backend := setup(t)
	backend.Seed("certificates", map[string]any{
		"certificateNumber": "CERT-9",
		"verificationCode":  "XYZ123",
		"status":            "ACTIVE",
		"recipient":         map[string]any{"id": 1, "fullName": "Ada"},
		"course":            map[string]any{"id": 2, "courseName": "Go"},
	})

	res := runCLI(t, "", "verify", " xyz123 ")
	if res.code != 0 || !strings.Contains(res.stdout, "Certificate is valid") || !strings.Contains(res.stdout, "CERT-9") {
		t.Fatalf("valid: %+v", res)
	}
	res = runCLI(t, "", "verify", "NOPE")
	if res.code != 1 || !strings.Contains(res.stdout, "Certificate not found or invalid verification code") {
		t.Fatalf("invalid: %+v", res)
	}
}

func TestPing(t *testing.T) {
	backend := setup(t)

	res := runCLI(t, "", "ping", "--register")
	if res.code != 0 {
		t.Fatalf("ping: %+v", res)
	}
	if !strings.Contains(res.stdout, "Certificate Generation API is running") {
		t.Fatalf("stdout = %q", res.stdout)
	}
	if !strings.Contains(res.stdout, "POST /api/auth/register: ok") {
		t.Fatalf("register line missing: %q", res.stdout)
	}
	if backend.CallsTo(http.MethodPost, "/api/auth/register") != 1 {
		t.Fatalf("calls = %+v", backend.Calls())
	}
}

func TestBlankIDIsUsageError(t *testing.T) {
	backend := setup(t)
	loginAs(t, backend, "SYSTEM_ADMIN")
	before := len(backend.Calls())

	if res := runCLI(t, "", "--yes", "courses", "delete", " "); res.code != 2 {
		t.Fatalf("exit=%d stderr=%q", res.code, res.stderr)
	}
	if after := len(backend.Calls()); after != before {
		t.Fatalf("blank id reached backend: %v", backend.Calls()[before:])
	}
}

func TestLeadingZeroCourseID(t *testing.T) {
	backend := setup(t)
	loginAs(t, backend, "INSTRUCTOR")

	res := runCLI(t, "", "certificates", "create", "--course", "007", "--recipient-email", "s@example.com")
	if res.code != 0 {
		t.Fatalf("create: %+v", res)
	}
	if body := backend.LastBody(http.MethodPost, "/api/certificates"); !strings.Contains(body, `"courseId":"007"`) {
		t.Fatalf("body = %s", body)
	}
}
