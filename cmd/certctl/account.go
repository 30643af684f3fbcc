package main

import (
	"context"
	"flag"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"certgen/frontend/internal/api"
	"certgen/frontend/internal/views"
)

func (a *app) flags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.errOut)
	return fs
}

func (a *app) login(ctx context.Context, args []string) error {
	fs := a.flags("login")
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password (prompted when empty)")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if *password == "" {
		*password = a.prompt("Password")
	}
	user, err := views.Login(ctx, a.deps(), views.LoginForm{Email: *email, Password: *password})
	if err != nil {
		return reported{err}
	}
	fmt.Fprintf(a.out, "Logged in as %s (%s)\n", user.FullName, user.Role.Label())
	return nil
}

func (a *app) logout(ctx context.Context) error {
	if err := a.store.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Logged out")
	return nil
}

func (a *app) register(ctx context.Context, args []string) error {
	fs := a.flags("register")
	name := fs.String("name", "", "full name")
	email := fs.String("email", "", "email")
	password := fs.String("password", "", "password (prompted when empty)")
	role := fs.String("role", "STUDENT", "one of STUDENT, INSTRUCTOR, CERTIFICATE_ADMIN, INSTITUTION_ADMIN, SYSTEM_ADMIN, VERIFIER")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if *password == "" {
		*password = a.prompt("Password")
	}
	form := views.RegisterForm{FullName: *name, Email: *email, Password: *password, Role: *role}
	if err := views.Register(ctx, a.deps(), form); err != nil {
		return reported{err}
	}
	fmt.Fprintln(a.out, "Next: certctl login --email", *email)
	return nil
}

func (a *app) dashboard() error {
	dash, err := views.BuildDashboard(a.deps())
	if err != nil {
		fmt.Fprintln(a.errOut, "not logged in; run certctl login")
		return reported{err}
	}
	if a.asJSON {
		return a.printJSON(dash)
	}
	fmt.Fprintln(a.out, dash.Greeting)
	fmt.Fprintf(a.out, "Role: %s\n\n", dash.RoleLabel)
	t := a.table("SHORTCUT", "PATH", "DESCRIPTION")
	for _, c := range dash.Cards {
		t.row(c.Title, c.Path, c.Description)
	}
	return t.flush()
}

func (a *app) verify(ctx context.Context, args []string) error {
	code := strings.Join(args, " ")
	result := views.Verify(ctx, a.deps(), code)
	if a.asJSON {
		return a.printJSON(result)
	}
	switch result.Outcome {
	case views.OutcomeValid:
		fmt.Fprintln(a.out, "Certificate is valid")
		t := a.table("FIELD", "VALUE")
		t.row("Certificate Number", result.CertificateNumber)
		t.row("Recipient", result.RecipientName)
		t.row("Course", result.CourseName)
		t.row("Issue Date", result.IssueDate)
		t.row("Status", result.Status)
		t.row("Verification Code", result.VerificationCode)
		return t.flush()
	case views.OutcomeInvalid:
		fmt.Fprintln(a.out, result.Message)
		return reported{fmt.Errorf("verification failed")}
	}
	return reported{fmt.Errorf("no code given")}
}

// ping checks the base URL answers and, with --register, that a throwaway
// registration succeeds.
func (a *app) ping(ctx context.Context, args []string) error {
	fs := a.flags("ping")
	register := fs.Bool("register", false, "also register a random student")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	fmt.Fprintf(a.out, "API URL: %s\n", a.client.BaseURL())
	body, err := a.client.Ping(ctx)
	if err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	fmt.Fprintf(a.out, "GET /: %s\n", body)
	if !*register {
		return nil
	}
	suffix := uuid.NewString()[:8]
	msg, err := a.client.Auth.Register(ctx, api.RegisterRequest{
		FullName: "Test User " + suffix,
		Email:    "test-" + suffix + "@example.com",
		Password: "password123",
		Role:     "STUDENT",
	})
	if err != nil {
		return fmt.Errorf("register: %s", api.Message(err, err.Error()))
	}
	if msg == "" {
		msg = "ok"
	}
	fmt.Fprintf(a.out, "POST /api/auth/register: %s\n", msg)
	return nil
}
