package views

import (
	"context"
	"errors"
	"strings"

	"certgen/frontend/internal/api"
	"certgen/frontend/internal/auth"
	"certgen/frontend/internal/session"
)

var ErrNoSession = errors.New("no active session")

type LoginForm struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login authenticates and reports the outcome through the notifier. The
// caller navigates to the dashboard on success.
func Login(ctx context.Context, deps Deps, form LoginForm) (session.User, error) {
	if err := required([2]string{"email", form.Email}, [2]string{"password", form.Password}); err != nil {
		deps.notify(LevelError, err.Error())
		return session.User{}, err
	}
	user, err := deps.Session.Login(ctx, deps.Client.Auth, api.LoginRequest{
		Email:    strings.TrimSpace(form.Email),
		Password: form.Password,
	})
	if err != nil {
		deps.logger().Info("login failed", "error", err)
		deps.notify(LevelError, api.Message(err, "Login failed. Please check your credentials."))
		return session.User{}, err
	}
	deps.notify(LevelSuccess, "Login successful!")
	return user, nil
}

type RegisterForm struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// Register never signs the user in; the caller navigates to login.
func Register(ctx context.Context, deps Deps, form RegisterForm) error {
	if err := required(
		[2]string{"fullName", form.FullName},
		[2]string{"email", form.Email},
		[2]string{"password", form.Password},
	); err != nil {
		deps.notify(LevelError, err.Error())
		return err
	}
	role := auth.RoleStudent
	if !isBlank(form.Role) {
		parsed, err := auth.ParseRole(form.Role)
		if err != nil {
			deps.notify(LevelError, "Unknown role "+form.Role)
			return err
		}
		role = parsed
	}
	message, err := deps.Session.Register(ctx, deps.Client.Auth, api.RegisterRequest{
		FullName: strings.TrimSpace(form.FullName),
		Email:    strings.TrimSpace(form.Email),
		Password: form.Password,
		Role:     role.String(),
	})
	if err != nil {
		deps.logger().Info("registration failed", "error", err)
		deps.notify(LevelError, api.Message(err, "Registration failed. Please try again."))
		return err
	}
	if message == "" {
		message = "Registration successful! Please login."
	}
	deps.notify(LevelSuccess, message)
	return nil
}

// RoleOption is one entry of the registration role selector.
type RoleOption struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

func RoleOptions() []RoleOption {
	options := make([]RoleOption, 0, len(auth.Roles))
	for _, role := range auth.Roles {
		options = append(options, RoleOption{Value: role.String(), Label: role.Label()})
	}
	return options
}

type Card struct {
	Title       string `json:"title"`
	Path        string `json:"path"`
	Description string `json:"description"`
}

type Dashboard struct {
	Greeting  string `json:"greeting"`
	FullName  string `json:"fullName"`
	Role      string `json:"role"`
	RoleLabel string `json:"roleLabel"`
	Cards     []Card `json:"cards"`
	Nav       []Card `json:"nav"`
}

var cardDescriptions = map[auth.NavEntry]string{
	auth.NavCertificates: "Manage and view certificates",
	auth.NavTemplates:    "Manage certificate templates",
	auth.NavCourses:      "Browse available courses",
	auth.NavVerify:       "Verify certificate authenticity",
	auth.NavUsers:        "Manage system users",
}

// BuildDashboard makes no API calls.
func BuildDashboard(deps Deps) (Dashboard, error) {
	user, ok := deps.Session.Current()
	if !ok {
		return Dashboard{}, ErrNoSession
	}
	caps := user.Capabilities()
	out := Dashboard{
		Greeting:  "Welcome back, " + user.FullName + "! What would you like to do today?",
		FullName:  user.FullName,
		Role:      user.Role.String(),
		RoleLabel: user.Role.Label(),
	}
	for _, entry := range caps.DashboardCards() {
		title := entry.Title()
		if entry == auth.NavVerify {
			title = "Verify Certificate"
		}
		out.Cards = append(out.Cards, Card{Title: title, Path: entry.Path(), Description: cardDescriptions[entry]})
	}
	for _, entry := range caps.Nav {
		out.Nav = append(out.Nav, Card{Title: entry.Title(), Path: entry.Path()})
	}
	return out, nil
}
