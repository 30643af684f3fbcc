package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"certgen/frontend/internal/model"
	"certgen/frontend/internal/report"
	"certgen/frontend/internal/views"
)

// split takes the subcommand and, for commands that address one entity, its
// id. The remaining args are flags.
func split(args []string, needID bool) (string, model.ID, []string, error) {
	if len(args) == 0 {
		return "", "", nil, errUsage
	}
	sub, rest := args[0], args[1:]
	if !needID {
		return sub, "", rest, nil
	}
	if len(rest) == 0 {
		return "", "", nil, errUsage
	}
	id, err := model.ParseID(rest[0])
	if err != nil {
		return "", "", nil, fmt.Errorf("%w: %q", errUsage, rest[0])
	}
	return sub, id, rest[1:], nil
}

func needsID(sub string) bool {
	return sub == "update" || sub == "delete"
}

func (a *app) certificates(ctx context.Context, args []string) error {
	sub, id, rest, err := split(args, len(args) > 0 && needsID(args[0]))
	if err != nil {
		return err
	}
	v := views.NewCertificates(a.deps())

	switch sub {
	case "list":
		v.Activate(ctx)
		if a.asJSON {
			return a.printJSON(v.Page())
		}
		t := a.table("ID", "NUMBER", "RECIPIENT", "COURSE", "ISSUED", "STATUS")
		for _, c := range v.Certificates() {
			t.row(c.ID.String(), c.CertificateNumber, c.RecipientName(), c.CourseName(), c.IssueDate.Date(), string(c.Status))
		}
		return t.flush()

	case "create", "update":
		fs := a.flags("certificates " + sub)
		course := fs.String("course", "", "course id")
		recipientID := fs.String("recipient-id", "", "recipient user id")
		recipientEmail := fs.String("recipient-email", "", "recipient email")
		number := fs.String("number", "", "certificate number")
		code := fs.String("code", "", "verification code")
		if err := fs.Parse(rest); err != nil {
			return errUsage
		}
		if sub == "create" {
			v.OpenCreate()
		} else {
			current, err := a.client.Certificates.Get(ctx, id)
			if err != nil {
				return fmt.Errorf("load certificate %s: %w", id, err)
			}
			v.OpenEdit(*current)
		}
		form := v.Form().Values
		override(&form.CourseID, *course)
		override(&form.RecipientID, *recipientID)
		override(&form.RecipientEmail, *recipientEmail)
		override(&form.CertificateNumber, *number)
		override(&form.VerificationCode, *code)
		v.SetForm(form)
		if err := v.Submit(ctx); err != nil {
			return reported{err}
		}
		return nil

	case "delete":
		if _, err := v.Delete(ctx, id); err != nil {
			return reported{err}
		}
		return nil

	case "export":
		fs := a.flags("certificates export")
		out := fs.String("out", report.Filename(time.Now()), "output file")
		if err := fs.Parse(rest); err != nil {
			return errUsage
		}
		v.Activate(ctx)
		f, err := os.Create(*out)
		if err != nil {
			return err
		}
		if err := report.WriteCertificates(f, v.Certificates()); err != nil {
			_ = f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		fmt.Fprintf(a.out, "Wrote %d certificates to %s\n", len(v.Certificates()), *out)
		return nil
	}
	return errUsage
}

func (a *app) courses(ctx context.Context, args []string) error {
	sub, id, rest, err := split(args, len(args) > 0 && needsID(args[0]))
	if err != nil {
		return err
	}
	v := views.NewCourses(a.deps())

	switch sub {
	case "list":
		v.Activate(ctx)
		if a.asJSON {
			return a.printJSON(v.Page())
		}
		t := a.table("ID", "NAME", "TEMPLATE", "DESCRIPTION")
		for _, c := range v.Courses() {
			tmpl := "-"
			if c.CertificateTemplate != nil {
				tmpl = c.CertificateTemplate.Name
			}
			t.row(c.ID.String(), c.CourseName, tmpl, c.Description)
		}
		return t.flush()

	case "create", "update":
		fs := a.flags("courses " + sub)
		name := fs.String("name", "", "course name")
		description := fs.String("description", "", "description")
		criteria := fs.String("criteria", "", "completion criteria")
		template := fs.String("template", "", "approved template id")
		noTemplate := fs.Bool("no-template", false, "clear the template")
		if err := fs.Parse(rest); err != nil {
			return errUsage
		}
		if sub == "create" {
			v.OpenCreate()
		} else {
			current, err := a.client.Courses.Get(ctx, id)
			if err != nil {
				return fmt.Errorf("load course %s: %w", id, err)
			}
			v.OpenEdit(*current)
		}
		form := v.Form().Values
		override(&form.CourseName, *name)
		override(&form.Description, *description)
		override(&form.CompletionCriteria, *criteria)
		override(&form.CertificateTemplateID, *template)
		if *noTemplate {
			form.CertificateTemplateID = ""
		}
		v.SetForm(form)
		if err := v.Submit(ctx); err != nil {
			return reported{err}
		}
		return nil

	case "delete":
		if _, err := v.Delete(ctx, id); err != nil {
			return reported{err}
		}
		return nil
	}
	return errUsage
}

func (a *app) templates(ctx context.Context, args []string) error {
	sub, id, rest, err := split(args, len(args) > 0 && needsID(args[0]))
	if err != nil {
		return err
	}
	v := views.NewTemplates(a.deps())

	switch sub {
	case "list":
		v.Activate(ctx)
		if a.asJSON {
			return a.printJSON(v.Page())
		}
		t := a.table("ID", "NAME", "STATUS", "VERSION", "PREVIEW")
		for _, tmpl := range v.Templates() {
			t.row(tmpl.ID.String(), tmpl.Name, string(tmpl.ApprovalStatus), strconv.Itoa(tmpl.Version), tmpl.Preview())
		}
		return t.flush()

	case "create", "update":
		fs := a.flags("templates " + sub)
		name := fs.String("name", "", "template name")
		design := fs.String("design", "", "design data")
		designFile := fs.String("design-file", "", "read design data from a file")
		if err := fs.Parse(rest); err != nil {
			return errUsage
		}
		if *designFile != "" {
			data, err := os.ReadFile(*designFile)
			if err != nil {
				return err
			}
			*design = string(data)
		}
		if sub == "create" {
			v.OpenCreate()
		} else {
			current, err := a.client.Templates.Get(ctx, id)
			if err != nil {
				return fmt.Errorf("load template %s: %w", id, err)
			}
			v.OpenEdit(*current)
		}
		form := v.Form().Values
		override(&form.Name, *name)
		override(&form.DesignData, *design)
		v.SetForm(form)
		if err := v.Submit(ctx); err != nil {
			return reported{err}
		}
		return nil

	case "delete":
		if _, err := v.Delete(ctx, id); err != nil {
			return reported{err}
		}
		return nil
	}
	return errUsage
}

func (a *app) users(ctx context.Context, args []string) error {
	sub, id, rest, err := split(args, len(args) > 0 && needsID(args[0]))
	if err != nil {
		return err
	}
	v := views.NewUsers(a.deps())

	switch sub {
	case "list":
		v.Activate(ctx)
		if a.asJSON {
			return a.printJSON(v.Page())
		}
		t := a.table("ID", "NAME", "EMAIL", "ROLE", "ACTIVE", "CREATED", "DELETABLE")
		for _, row := range v.Page().Users {
			t.row(row.ID.String(), row.FullName, row.Email, row.RoleLabel, yesNo(row.IsActive), row.CreatedDate.Date(), yesNo(row.Actions.Delete))
		}
		return t.flush()

	case "update":
		fs := a.flags("users update")
		name := fs.String("name", "", "full name")
		email := fs.String("email", "", "email")
		role := fs.String("role", "", "role")
		active := fs.String("active", "", "true or false")
		if err := fs.Parse(rest); err != nil {
			return errUsage
		}
		current, err := a.client.Users.Get(ctx, id)
		if err != nil {
			return fmt.Errorf("load user %s: %w", id, err)
		}
		v.OpenEdit(*current)
		form := v.Form().Values
		override(&form.FullName, *name)
		override(&form.Email, *email)
		override(&form.Role, *role)
		if *active != "" {
			parsed, err := strconv.ParseBool(*active)
			if err != nil {
				return errUsage
			}
			form.IsActive = parsed
		}
		v.SetForm(form)
		if err := v.Submit(ctx); err != nil {
			return reported{err}
		}
		return nil

	case "delete":
		if _, err := v.Delete(ctx, id); err != nil {
			return reported{err}
		}
		return nil
	}
	return errUsage
}

func override(dst *string, value string) {
	if value != "" {
		*dst = value
	}
}
