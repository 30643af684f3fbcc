package views

import (
	"certgen/frontend/internal/auth"
	"certgen/frontend/internal/model"
)

type CertificatesPage struct {
	Certificates []CertificateRow           `json:"certificates"`
	Courses      []model.Course             `json:"courses"`
	Users        []model.UserRecord         `json:"users,omitempty"`
	Actions      CertificateActions         `json:"actions"`
	Form         FormState[CertificateForm] `json:"form"`
}

type CertificateRow struct {
	model.Certificate
	RecipientName string `json:"recipientName"`
	CourseName    string `json:"courseName"`
	StatusColor   string `json:"statusColor"`
}

func (v *CertificatesView) Page() CertificatesPage {
	certs := v.Certificates()
	rows := make([]CertificateRow, 0, len(certs))
	for _, c := range certs {
		rows = append(rows, CertificateRow{
			Certificate:   c,
			RecipientName: c.RecipientName(),
			CourseName:    c.CourseName(),
			StatusColor:   statusColor(c.Status),
		})
	}
	return CertificatesPage{
		Certificates: rows,
		Courses:      v.Courses(),
		Users:        v.Users(),
		Actions:      v.Actions(),
		Form:         v.Form(),
	}
}

func statusColor(status model.CertificateStatus) string {
	if status == model.CertificateActive {
		return "#27ae60"
	}
	return "#e74c3c"
}

type CoursesPage struct {
	Courses         []model.Course        `json:"courses"`
	TemplateOptions []model.Template      `json:"templateOptions"`
	Actions         ManageActions         `json:"actions"`
	Form            FormState[CourseForm] `json:"form"`
}

func (v *CoursesView) Page() CoursesPage {
	return CoursesPage{
		Courses:         v.Courses(),
		TemplateOptions: v.TemplateOptions(),
		Actions:         v.Actions(),
		Form:            v.Form(),
	}
}

type TemplatesPage struct {
	Templates []TemplateRow           `json:"templates"`
	Actions   ManageActions           `json:"actions"`
	Form      FormState[TemplateForm] `json:"form"`
}

type TemplateRow struct {
	model.Template
	Preview       string `json:"preview"`
	ApprovalColor string `json:"approvalColor"`
}

func (v *TemplatesView) Page() TemplatesPage {
	templates := v.Templates()
	rows := make([]TemplateRow, 0, len(templates))
	for _, t := range templates {
		rows = append(rows, TemplateRow{Template: t, Preview: t.Preview(), ApprovalColor: approvalColor(t.ApprovalStatus)})
	}
	return TemplatesPage{Templates: rows, Actions: v.Actions(), Form: v.Form()}
}

func approvalColor(status model.ApprovalStatus) string {
	switch status {
	case model.ApprovalApproved:
		return "#27ae60"
	case model.ApprovalRejected:
		return "#e74c3c"
	}
	return "#f39c12"
}

type UsersPage struct {
	Users []UserRow           `json:"users"`
	Form  FormState[UserForm] `json:"form"`
}

type UserRow struct {
	model.UserRecord
	RoleLabel string        `json:"roleLabel"`
	RoleColor string        `json:"roleColor"`
	Actions   ManageActions `json:"actions"`
}

func (v *UsersView) Page() UsersPage {
	users := v.Users()
	rows := make([]UserRow, 0, len(users))
	for _, u := range users {
		role := auth.Role(u.Role)
		rows = append(rows, UserRow{
			UserRecord: u,
			RoleLabel:  role.Label(),
			RoleColor:  role.Color(),
			Actions:    v.Actions(u.ID),
		})
	}
	return UsersPage{Users: rows, Form: v.Form()}
}
