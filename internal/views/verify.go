package views

import (
	"context"
	"strings"

	"certgen/frontend/internal/model"
)

const maxCodeLength = 50

type Outcome string

const (
	OutcomeNone    Outcome = ""
	OutcomeValid   Outcome = "valid"
	OutcomeInvalid Outcome = "invalid"
)

// VerifyResult carries certificate details only when the outcome is valid.
type VerifyResult struct {
	Outcome           Outcome `json:"outcome"`
	Message           string  `json:"message,omitempty"`
	CertificateNumber string  `json:"certificateNumber,omitempty"`
	RecipientName     string  `json:"recipientName,omitempty"`
	CourseName        string  `json:"courseName,omitempty"`
	IssueDate         string  `json:"issueDate,omitempty"`
	Status            string  `json:"status,omitempty"`
	VerificationCode  string  `json:"verificationCode,omitempty"`
}

// NormalizeCode trims, upper-cases and truncates a typed verification code.
func NormalizeCode(input string) string {
	code := strings.ToUpper(strings.TrimSpace(input))
	if runes := []rune(code); len(runes) > maxCodeLength {
		code = string(runes[:maxCodeLength])
	}
	return code
}

// Verify looks a certificate up by code. Every failure reads the same to the
// user.
func Verify(ctx context.Context, deps Deps, input string) VerifyResult {
	code := NormalizeCode(input)
	if code == "" {
		deps.notify(LevelError, "Please enter a verification code")
		return VerifyResult{}
	}
	cert, err := deps.Client.Verification.Verify(ctx, code)
	if err != nil {
		deps.logger().Info("verification failed", "code", code, "error", err)
		return VerifyResult{Outcome: OutcomeInvalid, Message: "Certificate not found or invalid verification code"}
	}
	return validResult(cert)
}

func validResult(cert *model.Certificate) VerifyResult {
	return VerifyResult{
		Outcome:           OutcomeValid,
		CertificateNumber: cert.CertificateNumber,
		RecipientName:     cert.RecipientName(),
		CourseName:        cert.CourseName(),
		IssueDate:         cert.IssueDate.Date(),
		Status:            string(cert.Status),
		VerificationCode:  cert.VerificationCode,
	}
}
