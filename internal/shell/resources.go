package shell

import "certgen/frontend/internal/views"

// These adapters give each view's typed page the common resource shape.

type certificatesResource struct{ *views.CertificatesView }

func (r certificatesResource) Page() any { return r.CertificatesView.Page() }

type coursesResource struct{ *views.CoursesView }

func (r coursesResource) Page() any { return r.CoursesView.Page() }

type templatesResource struct{ *views.TemplatesView }

func (r templatesResource) Page() any { return r.TemplatesView.Page() }

type usersResource struct{ *views.UsersView }

func (r usersResource) Page() any { return r.UsersView.Page() }
