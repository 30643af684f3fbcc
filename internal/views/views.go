package views

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"certgen/frontend/internal/api"
	"certgen/frontend/internal/auth"
	"certgen/frontend/internal/session"
)

type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
	LevelInfo    Level = "info"
)

// Notifier receives transient user notifications. Implementations must be
// safe for concurrent use; fetches report from their own goroutines.
type Notifier interface {
	Notify(level Level, message string)
}

type NotifierFunc func(level Level, message string)

func (f NotifierFunc) Notify(level Level, message string) {
	f(level, message)
}

// Confirmer asks the user before a destructive action.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) bool
}

type ConfirmFunc func(ctx context.Context, prompt string) bool

func (f ConfirmFunc) Confirm(ctx context.Context, prompt string) bool {
	return f(ctx, prompt)
}

// Notice is one recorded notification.
type Notice struct {
	Level   Level  `json:"level"`
	Message string `json:"message"`
}

// Notices collects notifications in order.
type Notices struct {
	mu   sync.Mutex
	list []Notice
}

func (n *Notices) Notify(level Level, message string) {
	n.mu.Lock()
	n.list = append(n.list, Notice{Level: level, Message: message})
	n.mu.Unlock()
}

func (n *Notices) List() []Notice {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Notice(nil), n.list...)
}

var ErrRequired = errors.New("required")

// FieldError is a client-side validation failure; no request was sent.
type FieldError struct {
	Field string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s is required", e.Field)
}

func (e *FieldError) Is(target error) bool {
	return target == ErrRequired
}

// Deps are shared by every view.
type Deps struct {
	Client    *api.Client
	Session   *session.Store
	Notifier  Notifier
	Confirmer Confirmer
	Logger    *slog.Logger
}

func (d Deps) notify(level Level, message string) {
	if d.Notifier != nil {
		d.Notifier.Notify(level, message)
	}
}

func (d Deps) confirm(ctx context.Context, prompt string) bool {
	if d.Confirmer == nil {
		return false
	}
	return d.Confirmer.Confirm(ctx, prompt)
}

func (d Deps) logger() *slog.Logger {
	if d.Logger == nil {
		return slog.Default()
	}
	return d.Logger
}

func (d Deps) capabilities() auth.Capabilities {
	if d.Session == nil {
		return auth.Capabilities{}
	}
	return d.Session.Capabilities()
}

func (d Deps) actor() session.User {
	if d.Session == nil {
		return session.User{}
	}
	user, _ := d.Session.Current()
	return user
}

// collection holds one fetched list. Every fetch replaces it wholesale.
type collection[T any] struct {
	mu    sync.Mutex
	items []T
}

func (c *collection[T]) set(items []T) {
	c.mu.Lock()
	c.items = items
	c.mu.Unlock()
}

func (c *collection[T]) snapshot() []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]T(nil), c.items...)
}

// loader fetches into a collection. A failure empties it and notifies.
type loader func(ctx context.Context, d Deps)

func load[T any](name string, dst *collection[T], fetch func(context.Context) ([]T, error)) loader {
	return func(ctx context.Context, d Deps) {
		items, err := fetch(ctx)
		if err != nil {
			d.logger().Warn("fetch failed", "resource", name, "error", err)
			dst.set(nil)
			d.notify(LevelError, "Failed to fetch "+name)
			return
		}
		dst.set(items)
	}
}

// fetchAll runs the loaders concurrently and returns once all are done.
func (d Deps) fetchAll(ctx context.Context, loaders ...loader) {
	var wg sync.WaitGroup
	for _, l := range loaders {
		wg.Add(1)
		go func(l loader) {
			defer wg.Done()
			l(ctx, d)
		}(l)
	}
	wg.Wait()
}

// form tracks an open create or edit form.
type form[F any] struct {
	mu      sync.Mutex
	open    bool
	editing string
	values  F
	blank   func() F
}

func newForm[F any](blank func() F) *form[F] {
	return &form[F]{values: blank(), blank: blank}
}

func (f *form[F]) openWith(editing string, values F) {
	f.mu.Lock()
	f.open = true
	f.editing = editing
	f.values = values
	f.mu.Unlock()
}

func (f *form[F]) reset() {
	f.mu.Lock()
	f.open = false
	f.editing = ""
	f.values = f.blank()
	f.mu.Unlock()
}

func (f *form[F]) set(values F) {
	f.mu.Lock()
	f.values = values
	f.mu.Unlock()
}

func (f *form[F]) state() (F, string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.values, f.editing, f.open
}

// FormState is the serializable view of an open form.
type FormState[F any] struct {
	Open    bool   `json:"open"`
	Editing string `json:"editing,omitempty"`
	Values  F      `json:"values"`
}

func (f *form[F]) export() FormState[F] {
	values, editing, open := f.state()
	return FormState[F]{Open: open, Editing: editing, Values: values}
}

func required(fields ...[2]string) error {
	for _, field := range fields {
		if isBlank(field[1]) {
			return &FieldError{Field: field[0]}
		}
	}
	return nil
}

func isBlank(value string) bool {
	return strings.TrimSpace(value) == ""
}
