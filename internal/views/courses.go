package views

import (
	"context"
	"strings"

	"certgen/frontend/internal/api"
	"certgen/frontend/internal/model"
)

type CourseForm struct {
	CourseName            string `json:"courseName"`
	Description           string `json:"description"`
	CompletionCriteria    string `json:"completionCriteria"`
	CertificateTemplateID string `json:"certificateTemplateId"`
}

type ManageActions struct {
	Create bool `json:"create"`
	Edit   bool `json:"edit"`
	Delete bool `json:"delete"`
}

type CoursesView struct {
	deps      Deps
	courses   collection[model.Course]
	templates collection[model.Template]
	form      *form[CourseForm]
}

func NewCourses(deps Deps) *CoursesView {
	return &CoursesView{deps: deps, form: newForm(func() CourseForm { return CourseForm{} })}
}

func (v *CoursesView) Activate(ctx context.Context) {
	v.deps.fetchAll(ctx, v.loadCourses(), load("templates", &v.templates, v.deps.Client.Templates.List))
}

func (v *CoursesView) loadCourses() loader {
	return load("courses", &v.courses, v.deps.Client.Courses.List)
}

func (v *CoursesView) Courses() []model.Course {
	return v.courses.snapshot()
}

// TemplateOptions are the templates a course may reference.
func (v *CoursesView) TemplateOptions() []model.Template {
	return model.Approved(v.templates.snapshot())
}

func (v *CoursesView) Actions() ManageActions {
	manage := v.deps.capabilities().ManageCourses
	return ManageActions{Create: manage, Edit: manage, Delete: manage}
}

func (v *CoursesView) OpenCreate() {
	v.form.openWith("", CourseForm{})
}

func (v *CoursesView) OpenEdit(course model.Course) {
	values := CourseForm{
		CourseName:         course.CourseName,
		Description:        course.Description,
		CompletionCriteria: course.CompletionCriteria,
	}
	if course.CertificateTemplate != nil {
		values.CertificateTemplateID = course.CertificateTemplate.ID.String()
	}
	v.form.openWith(course.ID.String(), values)
}

// OpenEditWith opens the edit form for id with values supplied by the caller.
func (v *CoursesView) OpenEditWith(id model.ID, values CourseForm) {
	v.form.openWith(id.String(), values)
}

func (v *CoursesView) SetForm(values CourseForm) {
	v.form.set(values)
}

func (v *CoursesView) Form() FormState[CourseForm] {
	return v.form.export()
}

func (v *CoursesView) Cancel() {
	v.form.reset()
}

func (v *CoursesView) Submit(ctx context.Context) error {
	values, editing, _ := v.form.state()
	if err := required([2]string{"courseName", values.CourseName}); err != nil {
		v.deps.notify(LevelError, err.Error())
		return err
	}
	req := courseRequest(values)

	var err error
	if editing != "" {
		_, err = v.deps.Client.Courses.Update(ctx, model.ID(editing), req)
	} else {
		_, err = v.deps.Client.Courses.Create(ctx, req)
	}
	if err != nil {
		v.deps.logger().Warn("course submit failed", "editing", editing, "error", err)
		v.deps.notify(LevelError, "Operation failed")
		return err
	}
	if editing != "" {
		v.deps.notify(LevelSuccess, "Course updated successfully")
	} else {
		v.deps.notify(LevelSuccess, "Course created successfully")
	}
	v.form.reset()
	v.deps.fetchAll(ctx, v.loadCourses())
	return nil
}

// courseRequest sends certificateTemplate as null when none is selected.
func courseRequest(values CourseForm) api.CourseRequest {
	req := api.CourseRequest{
		CourseName:         strings.TrimSpace(values.CourseName),
		Description:        values.Description,
		CompletionCriteria: values.CompletionCriteria,
	}
	if id := strings.TrimSpace(values.CertificateTemplateID); id != "" {
		req.CertificateTemplate = &api.TemplateRef{ID: model.ID(id)}
	}
	return req
}

func (v *CoursesView) Delete(ctx context.Context, id model.ID) (bool, error) {
	if !v.deps.confirm(ctx, "Are you sure you want to delete this course?") {
		return false, nil
	}
	if err := v.deps.Client.Courses.Delete(ctx, id); err != nil {
		v.deps.logger().Warn("course delete failed", "id", id.String(), "error", err)
		v.deps.notify(LevelError, "Failed to delete course")
		return false, err
	}
	v.deps.notify(LevelSuccess, "Course deleted successfully")
	v.deps.fetchAll(ctx, v.loadCourses())
	return true, nil
}
