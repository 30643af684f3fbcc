package auth

// NavEntry is a navigation destination.
type NavEntry string

const (
	NavDashboard    NavEntry = "dashboard"
	NavCertificates NavEntry = "certificates"
	NavTemplates    NavEntry = "templates"
	NavCourses      NavEntry = "courses"
	NavUsers        NavEntry = "users"
	NavVerify       NavEntry = "verify"
)

func (n NavEntry) Path() string {
	return "/" + string(n)
}

func (n NavEntry) Title() string {
	switch n {
	case NavDashboard:
		return "Dashboard"
	case NavCertificates:
		return "Certificates"
	case NavTemplates:
		return "Templates"
	case NavCourses:
		return "Courses"
	case NavUsers:
		return "Users"
	case NavVerify:
		return "Verify"
	}
	return string(n)
}

// RecipientMode says how a role identifies the recipient of a new certificate.
type RecipientMode int

const (
	RecipientNone RecipientMode = iota
	RecipientByEmail
	RecipientByID
)

func (m RecipientMode) String() string {
	switch m {
	case RecipientByEmail:
		return "email"
	case RecipientByID:
		return "id"
	}
	return "none"
}

// Capabilities drive which controls a view shows. They are an affordance
// only: the backend enforces authorization and its 401/403 answers win.
type Capabilities struct {
	Role              Role
	Nav               []NavEntry
	CreateCertificate RecipientMode
	EditCertificate   bool
	DeleteCertificate bool
	ManageTemplates   bool
	ManageCourses     bool
	ViewUsers         bool
	EditUsers         bool
	DeleteUsers       bool
}

type grant struct {
	templates         bool
	users             bool
	createCertificate RecipientMode
	deleteCertificate bool
	manageCourses     bool
	deleteUsers       bool
}

var policyTable = map[Role]grant{
	RoleStudent:          {},
	RoleInstructor:       {createCertificate: RecipientByEmail, manageCourses: true},
	RoleCertificateAdmin: {templates: true, createCertificate: RecipientByID, deleteCertificate: true, manageCourses: true},
	RoleInstitutionAdmin: {users: true},
	RoleSystemAdmin:      {templates: true, users: true, createCertificate: RecipientByID, deleteCertificate: true, manageCourses: true, deleteUsers: true},
	RoleVerifier:         {},
}

// PolicyFor maps a role to its capability set. Unknown roles get the
// universal navigation and nothing else.
func PolicyFor(role Role) Capabilities {
	g := policyTable[role]

	nav := []NavEntry{NavDashboard, NavCertificates}
	if g.templates {
		nav = append(nav, NavTemplates)
	}
	nav = append(nav, NavCourses)
	if g.users {
		nav = append(nav, NavUsers)
	}
	nav = append(nav, NavVerify)

	return Capabilities{
		Role:              role,
		Nav:               nav,
		CreateCertificate: g.createCertificate,
		EditCertificate:   g.createCertificate != RecipientNone,
		DeleteCertificate: g.deleteCertificate,
		ManageTemplates:   g.templates,
		ManageCourses:     g.manageCourses,
		ViewUsers:         g.users,
		EditUsers:         g.users,
		DeleteUsers:       g.deleteUsers,
	}
}

func (c Capabilities) CanNavigate(entry NavEntry) bool {
	for _, n := range c.Nav {
		if n == entry {
			return true
		}
	}
	return false
}

func (c Capabilities) CanCreateCertificate() bool {
	return c.CreateCertificate != RecipientNone
}

// CanDeleteUser hides the delete control on the actor's own row.
func (c Capabilities) CanDeleteUser(actorID, targetID string) bool {
	return c.DeleteUsers && actorID != targetID
}

// DashboardCards returns the dashboard shortcuts in display order.
func (c Capabilities) DashboardCards() []NavEntry {
	cards := []NavEntry{NavCertificates}
	if c.ManageTemplates {
		cards = append(cards, NavTemplates)
	}
	cards = append(cards, NavCourses, NavVerify)
	if c.ViewUsers {
		cards = append(cards, NavUsers)
	}
	return cards
}
