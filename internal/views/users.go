package views

import (
	"context"
	"strings"

	"certgen/frontend/internal/api"
	"certgen/frontend/internal/model"
)

type UserForm struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	IsActive bool   `json:"isActive"`
}

// UsersView only edits and deletes; accounts come from registration.
type UsersView struct {
	deps  Deps
	users collection[model.UserRecord]
	form  *form[UserForm]
}

func NewUsers(deps Deps) *UsersView {
	return &UsersView{deps: deps, form: newForm(func() UserForm { return UserForm{IsActive: true} })}
}

func (v *UsersView) Activate(ctx context.Context) {
	v.deps.fetchAll(ctx, v.loadUsers())
}

func (v *UsersView) loadUsers() loader {
	return load("users", &v.users, v.deps.Client.Users.List)
}

func (v *UsersView) Users() []model.UserRecord {
	return v.users.snapshot()
}

// Actions for one row. The acting user never gets a delete control on
// their own row.
func (v *UsersView) Actions(target model.ID) ManageActions {
	caps := v.deps.capabilities()
	return ManageActions{
		Edit:   caps.EditUsers,
		Delete: caps.CanDeleteUser(v.deps.actor().ID.String(), target.String()),
	}
}

func (v *UsersView) OpenEdit(user model.UserRecord) {
	v.form.openWith(user.ID.String(), UserForm{
		FullName: user.FullName,
		Email:    user.Email,
		Role:     user.Role,
		IsActive: user.IsActive,
	})
}

// OpenEditWith opens the edit form for id with values supplied by the caller.
func (v *UsersView) OpenEditWith(id model.ID, values UserForm) {
	v.form.openWith(id.String(), values)
}

func (v *UsersView) SetForm(values UserForm) {
	v.form.set(values)
}

func (v *UsersView) Form() FormState[UserForm] {
	return v.form.export()
}

func (v *UsersView) Cancel() {
	v.form.reset()
}

func (v *UsersView) Submit(ctx context.Context) error {
	values, editing, _ := v.form.state()
	if err := required(
		[2]string{"fullName", values.FullName},
		[2]string{"email", values.Email},
		[2]string{"role", values.Role},
	); err != nil {
		v.deps.notify(LevelError, err.Error())
		return err
	}
	req := api.UserUpdateRequest{
		FullName: strings.TrimSpace(values.FullName),
		Email:    strings.TrimSpace(values.Email),
		Role:     strings.ToUpper(strings.TrimSpace(values.Role)),
		IsActive: values.IsActive,
	}
	if _, err := v.deps.Client.Users.Update(ctx, model.ID(editing), req); err != nil {
		v.deps.logger().Warn("user update failed", "id", editing, "error", err)
		v.deps.notify(LevelError, "Update failed")
		return err
	}
	v.deps.notify(LevelSuccess, "User updated successfully")
	v.form.reset()
	v.deps.fetchAll(ctx, v.loadUsers())
	return nil
}

func (v *UsersView) Delete(ctx context.Context, id model.ID) (bool, error) {
	if !v.deps.confirm(ctx, "Are you sure you want to delete this user?") {
		return false, nil
	}
	if err := v.deps.Client.Users.Delete(ctx, id); err != nil {
		v.deps.logger().Warn("user delete failed", "id", id.String(), "error", err)
		v.deps.notify(LevelError, "Failed to delete user")
		return false, err
	}
	v.deps.notify(LevelSuccess, "User deleted successfully")
	v.deps.fetchAll(ctx, v.loadUsers())
	return true, nil
}
