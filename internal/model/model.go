package model

import (
	"encoding/json"
	"strings"
	"time"
)

type CertificateStatus string

const (
	CertificateActive  CertificateStatus = "ACTIVE"
	CertificateRevoked CertificateStatus = "REVOKED"
	CertificateExpired CertificateStatus = "EXPIRED"
)

type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "PENDING"
	ApprovalApproved ApprovalStatus = "APPROVED"
	ApprovalRejected ApprovalStatus = "REJECTED"
)

// UserRef is the recipient embedded in a certificate.
type UserRef struct {
	ID       ID     `json:"id"`
	FullName string `json:"fullName"`
	Email    string `json:"email"`
}

type Certificate struct {
	ID                ID                `json:"id"`
	CertificateNumber string            `json:"certificateNumber"`
	VerificationCode  string            `json:"verificationCode"`
	Status            CertificateStatus `json:"status"`
	IssueDate         Timestamp         `json:"issueDate"`
	Recipient         *UserRef          `json:"recipient,omitempty"`
	Course            *Course           `json:"course,omitempty"`
}

type Course struct {
	ID                  ID        `json:"id"`
	CourseName          string    `json:"courseName"`
	Description         string    `json:"description"`
	CompletionCriteria  string    `json:"completionCriteria"`
	CertificateTemplate *Template `json:"certificateTemplate,omitempty"`
}

type Template struct {
	ID             ID             `json:"id"`
	Name           string         `json:"name"`
	DesignData     string         `json:"designData"`
	ApprovalStatus ApprovalStatus `json:"approvalStatus"`
	Version        int            `json:"version"`
}

// UserRecord is a user as listed by the users endpoint. Role stays a plain
// string here; callers parse it with auth.ParseRole.
type UserRecord struct {
	ID          ID        `json:"id"`
	FullName    string    `json:"fullName"`
	Email       string    `json:"email"`
	Role        string    `json:"role"`
	IsActive    bool      `json:"isActive"`
	CreatedDate Timestamp `json:"createdDate"`
}

// RecipientName returns the recipient's full name or N/A.
func (c Certificate) RecipientName() string {
	if c.Recipient == nil || c.Recipient.FullName == "" {
		return "N/A"
	}
	return c.Recipient.FullName
}

// CourseName returns the course name or N/A.
func (c Certificate) CourseName() string {
	if c.Course == nil || c.Course.CourseName == "" {
		return "N/A"
	}
	return c.Course.CourseName
}

// Preview returns the first 100 characters of the design data.
func (t Template) Preview() string {
	if t.DesignData == "" {
		return "No design data"
	}
	runes := []rune(t.DesignData)
	if len(runes) <= 100 {
		return t.DesignData + "..."
	}
	return string(runes[:100]) + "..."
}

// Approved filters templates down to the ones usable on a course.
func Approved(templates []Template) []Template {
	out := make([]Template, 0, len(templates))
	for _, t := range templates {
		if t.ApprovalStatus == ApprovalApproved {
			out = append(out, t)
		}
	}
	return out
}

// Timestamp accepts the backend's LocalDateTime strings (no zone), RFC 3339
// strings and epoch milliseconds.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" || raw == `""` {
		t.Time = time.Time{}
		return nil
	}
	if !strings.HasPrefix(raw, `"`) {
		var millis int64
		if err := json.Unmarshal(data, &millis); err != nil {
			return err
		}
		t.Time = time.UnixMilli(millis).UTC()
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	var lastErr error
	for _, layout := range timestampLayouts {
		parsed, err := time.Parse(layout, s)
		if err == nil {
			t.Time = parsed
			return nil
		}
		lastErr = err
	}
	return lastErr
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Format("2006-01-02T15:04:05"))
}

// Date renders the timestamp as a calendar date, empty when unset.
func (t Timestamp) Date() string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}
