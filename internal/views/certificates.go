package views

import (
	"context"
	"strings"

	"certgen/frontend/internal/api"
	"certgen/frontend/internal/auth"
	"certgen/frontend/internal/model"
)

type CertificateForm struct {
	RecipientID       string `json:"recipientId"`
	RecipientEmail    string `json:"recipientEmail"`
	CourseID          string `json:"courseId"`
	CertificateNumber string `json:"certificateNumber"`
	VerificationCode  string `json:"verificationCode"`
}

// CertificateActions are the controls the current role may see.
type CertificateActions struct {
	Create    bool               `json:"create"`
	Edit      bool               `json:"edit"`
	Delete    bool               `json:"delete"`
	Recipient auth.RecipientMode `json:"-"`
	By        string             `json:"recipientBy"`
}

type CertificatesView struct {
	deps         Deps
	certificates collection[model.Certificate]
	courses      collection[model.Course]
	users        collection[model.UserRecord]
	form         *form[CertificateForm]
}

func NewCertificates(deps Deps) *CertificatesView {
	return &CertificatesView{deps: deps, form: newForm(func() CertificateForm { return CertificateForm{} })}
}

// Activate fetches certificates and courses, plus users for roles that pick
// recipients by id.
func (v *CertificatesView) Activate(ctx context.Context) {
	loaders := []loader{v.loadCertificates(), load("courses", &v.courses, v.deps.Client.Courses.List)}
	if v.deps.capabilities().CreateCertificate == auth.RecipientByID {
		loaders = append(loaders, load("users", &v.users, v.deps.Client.Users.List))
	}
	v.deps.fetchAll(ctx, loaders...)
}

func (v *CertificatesView) loadCertificates() loader {
	fetch := v.deps.Client.Certificates.List
	if v.deps.capabilities().Role == auth.RoleStudent {
		fetch = v.deps.Client.Certificates.Mine
	}
	return load("certificates", &v.certificates, fetch)
}

func (v *CertificatesView) Certificates() []model.Certificate { return v.certificates.snapshot() }
func (v *CertificatesView) Courses() []model.Course { return v.courses.snapshot() }
func (v *CertificatesView) Users() []model.UserRecord { return v.users.snapshot() }

func (v *CertificatesView) Actions() CertificateActions {
	caps := v.deps.capabilities()
	return CertificateActions{
		Create:    caps.CanCreateCertificate(),
		Edit:      caps.EditCertificate,
		Delete:    caps.DeleteCertificate,
		Recipient: caps.CreateCertificate,
		By:        caps.CreateCertificate.String(),
	}
}

func (v *CertificatesView) OpenCreate() {
	v.form.openWith("", CertificateForm{})
}

// OpenEdit seeds the form from cert. The verification code is left blank.
func (v *CertificatesView) OpenEdit(cert model.Certificate) {
	values := CertificateForm{CertificateNumber: cert.CertificateNumber}
	if cert.Recipient != nil {
		values.RecipientID = cert.Recipient.ID.String()
	}
	if cert.Course != nil {
		values.CourseID = cert.Course.ID.String()
	}
	v.form.openWith(cert.ID.String(), values)
}

// OpenEditWith opens the edit form for id with values supplied by the caller.
func (v *CertificatesView) OpenEditWith(id model.ID, values CertificateForm) {
	v.form.openWith(id.String(), values)
}

func (v *CertificatesView) SetForm(values CertificateForm) { v.form.set(values) }
func (v *CertificatesView) Form() FormState[CertificateForm] { return v.form.export() }
func (v *CertificatesView) Cancel() { v.form.reset() }

// Submit creates or updates, then refetches the certificate list. The form
// stays open on failure.
func (v *CertificatesView) Submit(ctx context.Context) error {
	values, editing, _ := v.form.state()
	mode := v.deps.capabilities().CreateCertificate
	if err := v.validate(values, mode); err != nil {
		v.deps.notify(LevelError, err.Error())
		return err
	}
	req := certificateRequest(values, mode)

	var err error
	if editing != "" {
		_, err = v.deps.Client.Certificates.Update(ctx, model.ID(editing), req)
	} else {
		_, err = v.deps.Client.Certificates.Create(ctx, req)
	}
	if err != nil {
		v.deps.logger().Warn("certificate submit failed", "editing", editing, "error", err)
		v.deps.notify(LevelError, "Operation failed")
		return err
	}
	if editing != "" {
		v.deps.notify(LevelSuccess, "Certificate updated successfully")
	} else {
		v.deps.notify(LevelSuccess, "Certificate created successfully")
	}
	v.form.reset()
	v.deps.fetchAll(ctx, v.loadCertificates())
	return nil
}

func (v *CertificatesView) validate(values CertificateForm, mode auth.RecipientMode) error {
	fields := [][2]string{{"courseId", values.CourseID}}
	switch mode {
	case auth.RecipientByID:
		fields = append(fields, [2]string{"recipientId", values.RecipientID})
	case auth.RecipientByEmail:
		fields = append(fields, [2]string{"recipientEmail", values.RecipientEmail})
	}
	return required(fields...)
}

// certificateRequest builds the payload. A recipient named by email never
// carries a recipient id.
func certificateRequest(values CertificateForm, mode auth.RecipientMode) api.CertificateRequest {
	req := api.CertificateRequest{
		CourseID:          model.ID(strings.TrimSpace(values.CourseID)),
		CertificateNumber: strings.TrimSpace(values.CertificateNumber),
		VerificationCode:  strings.TrimSpace(values.VerificationCode),
	}
	email := strings.TrimSpace(values.RecipientEmail)
	if mode == auth.RecipientByEmail && email != "" {
		req.RecipientEmail = email
		return req
	}
	req.RecipientEmail = email
	if id := strings.TrimSpace(values.RecipientID); id != "" {
		recipient := model.ID(id)
		req.RecipientID = &recipient
	}
	return req
}

// Delete asks for confirmation first. deleted is false when the user
// declined or the call failed.
func (v *CertificatesView) Delete(ctx context.Context, id model.ID) (bool, error) {
	if !v.deps.confirm(ctx, "Are you sure you want to delete this certificate?") {
		return false, nil
	}
	if err := v.deps.Client.Certificates.Delete(ctx, id); err != nil {
		v.deps.logger().Warn("certificate delete failed", "id", id.String(), "error", err)
		v.deps.notify(LevelError, "Failed to delete certificate")
		return false, err
	}
	v.deps.notify(LevelSuccess, "Certificate deleted successfully")
	v.deps.fetchAll(ctx, v.loadCertificates())
	return true, nil
}
