package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"certgen/frontend/internal/model"
)

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse mirrors the backend's JWT response.
type LoginResponse struct {
	Token        string   `json:"token"`
	RefreshToken string   `json:"refreshToken,omitempty"`
	Type         string   `json:"type,omitempty"`
	ID           model.ID `json:"id"`
	FullName     string   `json:"fullName"`
	Email        string   `json:"email"`
	Role         string   `json:"role"`
}

type RegisterRequest struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// CertificateRequest is the create/update payload. Instructors identify the
// recipient by email and leave RecipientID unset.
type CertificateRequest struct {
	RecipientID       *model.ID `json:"recipientId,omitempty"`
	RecipientEmail    string    `json:"recipientEmail,omitempty"`
	CourseID          model.ID  `json:"courseId"`
	CertificateNumber string    `json:"certificateNumber,omitempty"`
	VerificationCode  string    `json:"verificationCode,omitempty"`
}

type TemplateRef struct {
	ID model.ID `json:"id"`
}

// CourseRequest sends certificateTemplate as null when no template is chosen.
type CourseRequest struct {
	CourseName          string       `json:"courseName"`
	Description         string       `json:"description"`
	CompletionCriteria  string       `json:"completionCriteria"`
	CertificateTemplate *TemplateRef `json:"certificateTemplate"`
}

type TemplateRequest struct {
	Name       string `json:"name"`
	DesignData string `json:"designData"`
}

type UserUpdateRequest struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	IsActive bool   `json:"isActive"`
}

// Auth

type AuthAPI struct {
	c *Client
}

func (a *AuthAPI) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	var out LoginResponse
	if err := a.c.do(ctx, call{resource: "auth", operation: "login", method: http.MethodPost, path: "/api/auth/login", body: req, out: &out}); err != nil {
		return nil, err
	}
	return &out, nil
}

// Register returns the backend's confirmation message when it sent a
// structured one.
func (a *AuthAPI) Register(ctx context.Context, req RegisterRequest) (string, error) {
	body, err := a.c.send(ctx, call{resource: "auth", operation: "register", method: http.MethodPost, path: "/api/auth/register", body: req})
	if err != nil {
		return "", err
	}
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", nil
	}
	return strings.TrimSpace(payload.Message), nil
}

// Ping fetches the backend root, used as a connectivity check.
func (c *Client) Ping(ctx context.Context) (string, error) {
	body, err := c.send(ctx, call{resource: "root", operation: "ping", method: http.MethodGet, path: "/"})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(body)), nil
}

// Collections

type collection[T any] struct {
	c        *Client
	resource string
}

func (r collection[T]) base() string {
	return "/api/" + r.resource
}

func (r collection[T]) List(ctx context.Context) ([]T, error) {
	var out []T
	if err := r.c.do(ctx, call{resource: r.resource, operation: "list", method: http.MethodGet, path: r.base(), out: &out}); err != nil {
		return nil, err
	}
	return out, nil
}

func (r collection[T]) Get(ctx context.Context, id model.ID) (*T, error) {
	path, err := idPath(r.base(), id)
	if err != nil {
		return nil, r.c.rejected(r.resource, "get", err)
	}
	var out T
	if err := r.c.do(ctx, call{resource: r.resource, operation: "get", method: http.MethodGet, path: path, out: &out}); err != nil {
		return nil, err
	}
	return &out, nil
}

func (r collection[T]) Update(ctx context.Context, id model.ID, payload any) (*T, error) {
	path, err := idPath(r.base(), id)
	if err != nil {
		return nil, r.c.rejected(r.resource, "update", err)
	}
	var out T
	if err := r.c.do(ctx, call{resource: r.resource, operation: "update", method: http.MethodPut, path: path, body: payload, out: &out}); err != nil {
		return nil, err
	}
	return &out, nil
}

func (r collection[T]) Delete(ctx context.Context, id model.ID) error {
	path, err := idPath(r.base(), id)
	if err != nil {
		return r.c.rejected(r.resource, "delete", err)
	}
	return r.c.do(ctx, call{resource: r.resource, operation: "delete", method: http.MethodDelete, path: path})
}

func (r collection[T]) create(ctx context.Context, payload any) (*T, error) {
	var out T
	if err := r.c.do(ctx, call{resource: r.resource, operation: "create", method: http.MethodPost, path: r.base(), body: payload, out: &out}); err != nil {
		return nil, err
	}
	return &out, nil
}

type CertificateAPI struct {
	collection[model.Certificate]
}

func (a *CertificateAPI) Create(ctx context.Context, req CertificateRequest) (*model.Certificate, error) {
	return a.create(ctx, req)
}

// Mine lists the certificates issued to the authenticated user.
func (a *CertificateAPI) Mine(ctx context.Context) ([]model.Certificate, error) {
	var out []model.Certificate
	if err := a.c.do(ctx, call{resource: a.resource, operation: "mine", method: http.MethodGet, path: a.base() + "/my", out: &out}); err != nil {
		return nil, err
	}
	return out, nil
}

type CourseAPI struct {
	collection[model.Course]
}

func (a *CourseAPI) Create(ctx context.Context, req CourseRequest) (*model.Course, error) {
	return a.create(ctx, req)
}

type TemplateAPI struct {
	collection[model.Template]
}

func (a *TemplateAPI) Create(ctx context.Context, req TemplateRequest) (*model.Template, error) {
	return a.create(ctx, req)
}

// UserAPI has no create; users come from registration.
type UserAPI struct {
	users collection[model.UserRecord]
}

func (a *UserAPI) List(ctx context.Context) ([]model.UserRecord, error) {
	return a.users.List(ctx)
}

func (a *UserAPI) Get(ctx context.Context, id model.ID) (*model.UserRecord, error) {
	return a.users.Get(ctx, id)
}

func (a *UserAPI) Update(ctx context.Context, id model.ID, req UserUpdateRequest) (*model.UserRecord, error) {
	return a.users.Update(ctx, id, req)
}

func (a *UserAPI) Delete(ctx context.Context, id model.ID) error {
	return a.users.Delete(ctx, id)
}

// Verification

type VerifyAPI struct {
	c *Client
}

func (a *VerifyAPI) Verify(ctx context.Context, code string) (*model.Certificate, error) {
	if !validSegment(code) {
		return nil, a.c.rejected("verify", "verify", &ValidationError{Code: ErrInvalidCode, Field: "code"})
	}
	var out model.Certificate
	path := "/api/verify/" + url.PathEscape(code)
	if err := a.c.do(ctx, call{resource: "verify", operation: "verify", method: http.MethodGet, path: path, out: &out}); err != nil {
		return nil, err
	}
	return &out, nil
}

func idPath(base string, id model.ID) (string, error) {
	if err := id.Validate(); err != nil {
		return "", &ValidationError{Code: ErrInvalidID, Field: "id"}
	}
	return base + "/" + url.PathEscape(string(id)), nil
}

func validSegment(value string) bool {
	trimmed := strings.TrimSpace(value)
	return trimmed != "" && trimmed != "." && trimmed != ".."
}
