package views

import (
	"context"
	"strings"

	"certgen/frontend/internal/api"
	"certgen/frontend/internal/model"
)

type TemplateForm struct {
	Name       string `json:"name"`
	DesignData string `json:"designData"`
}

type TemplatesView struct {
	deps      Deps
	templates collection[model.Template]
	form      *form[TemplateForm]
}

func NewTemplates(deps Deps) *TemplatesView {
	return &TemplatesView{deps: deps, form: newForm(func() TemplateForm { return TemplateForm{} })}
}

func (v *TemplatesView) Activate(ctx context.Context) {
	v.deps.fetchAll(ctx, v.loadTemplates())
}

func (v *TemplatesView) loadTemplates() loader {
	return load("templates", &v.templates, v.deps.Client.Templates.List)
}

func (v *TemplatesView) Templates() []model.Template {
	return v.templates.snapshot()
}

func (v *TemplatesView) Actions() ManageActions {
	manage := v.deps.capabilities().ManageTemplates
	return ManageActions{Create: manage, Edit: manage, Delete: manage}
}

func (v *TemplatesView) OpenCreate() {
	v.form.openWith("", TemplateForm{})
}

func (v *TemplatesView) OpenEdit(tmpl model.Template) {
	v.form.openWith(tmpl.ID.String(), TemplateForm{Name: tmpl.Name, DesignData: tmpl.DesignData})
}

// OpenEditWith opens the edit form for id with values supplied by the caller.
func (v *TemplatesView) OpenEditWith(id model.ID, values TemplateForm) {
	v.form.openWith(id.String(), values)
}

func (v *TemplatesView) SetForm(values TemplateForm) {
	v.form.set(values)
}

func (v *TemplatesView) Form() FormState[TemplateForm] {
	return v.form.export()
}

func (v *TemplatesView) Cancel() {
	v.form.reset()
}

func (v *TemplatesView) Submit(ctx context.Context) error {
	values, editing, _ := v.form.state()
	if err := required([2]string{"name", values.Name}); err != nil {
		v.deps.notify(LevelError, err.Error())
		return err
	}
	req := api.TemplateRequest{Name: strings.TrimSpace(values.Name), DesignData: values.DesignData}

	var err error
	if editing != "" {
		_, err = v.deps.Client.Templates.Update(ctx, model.ID(editing), req)
	} else {
		_, err = v.deps.Client.Templates.Create(ctx, req)
	}
	if err != nil {
		v.deps.logger().Warn("template submit failed", "editing", editing, "error", err)
		v.deps.notify(LevelError, "Operation failed")
		return err
	}
	if editing != "" {
		v.deps.notify(LevelSuccess, "Template updated successfully")
	} else {
		v.deps.notify(LevelSuccess, "Template created successfully")
	}
	v.form.reset()
	v.deps.fetchAll(ctx, v.loadTemplates())
	return nil
}

func (v *TemplatesView) Delete(ctx context.Context, id model.ID) (bool, error) {
	if !v.deps.confirm(ctx, "Are you sure you want to delete this template?") {
		return false, nil
	}
	if err := v.deps.Client.Templates.Delete(ctx, id); err != nil {
		v.deps.logger().Warn("template delete failed", "id", id.String(), "error", err)
		v.deps.notify(LevelError, "Failed to delete template")
		return false, err
	}
	v.deps.notify(LevelSuccess, "Template deleted successfully")
	v.deps.fetchAll(ctx, v.loadTemplates())
	return true, nil
}
