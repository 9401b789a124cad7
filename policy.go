package authclient

import "sort"

// Section is a named area of the back office
type Section string

const (
	SectionDashboard     Section = "dashboard"
	SectionPatients      Section = "patients"
	SectionDoctors       Section = "doctors"
	SectionNurses        Section = "nurses"
	SectionAppointments  Section = "appointments"
	SectionUsers         Section = "users"
	SectionCategories    Section = "categories"
	SectionProducts      Section = "products"
	SectionNotifications Section = "notifications"
	SectionSettings      Section = "settings"
)

// AllSections lists every known section
func AllSections() []Section {
	return []Section{
		SectionDashboard,
		SectionPatients,
		SectionDoctors,
		SectionNurses,
		SectionAppointments,
		SectionUsers,
		SectionCategories,
		SectionProducts,
		SectionNotifications,
		SectionSettings,
	}
}

// AccessRules maps a role to the sections it can reach
type AccessRules map[UserRole][]Section

// DefaultAccessRules is the five role scheme used by the back office
func DefaultAccessRules() AccessRules {
	return AccessRules{
		RoleAdmin: AllSections(),
		RoleDoctor: {
			SectionDashboard,
			SectionPatients,
			SectionAppointments,
		},
		RoleNurse: {
			SectionDashboard,
			SectionPatients,
		},
		RolePatient: {
			SectionDashboard,
		},
		RoleUser: {
			SectionDashboard,
			SectionProducts,
		},
	}
}

// AccessPolicy answers "can this role reach this section". It is built once
// and never mutated.
type AccessPolicy struct {
	rules map[UserRole]map[Section]struct{}
}

// NewAccessPolicy copies the given rules. RoleUnknown never gets access,
// even if the rules mention it.
func NewAccessPolicy(rules AccessRules) *AccessPolicy {
	p := &AccessPolicy{rules: make(map[UserRole]map[Section]struct{}, len(rules))}
	for role, sections := range rules {
		if !role.IsValid() {
			continue
		}
		set := make(map[Section]struct{}, len(sections))
		for _, s := range sections {
			set[s] = struct{}{}
		}
		p.rules[role] = set
	}
	return p
}

// CanReach is false for an empty or unknown role
func (p *AccessPolicy) CanReach(role UserRole, section Section) bool {
	if p == nil || role == "" {
		return false
	}
	set, ok := p.rules[role]
	if !ok {
		return false
	}
	_, ok = set[section]
	return ok
}

// Sections returns the sections a role can reach, sorted
func (p *AccessPolicy) Sections(role UserRole) []Section {
	if p == nil {
		return nil
	}
	set := p.rules[role]
	out := make([]Section, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// MenuItem is a navigation entry
type MenuItem struct {
	Path    string
	Title   string
	Section Section
	Roles   []UserRole
}

// DefaultMenu is the sidebar of the back office
func DefaultMenu() []MenuItem {
	return []MenuItem{
		{Path: "/dashboard", Title: "Dashboard", Section: SectionDashboard},
		{Path: "/patients", Title: "Patients", Section: SectionPatients},
		{Path: "/doctors", Title: "Doctors", Section: SectionDoctors},
		{Path: "/nurses", Title: "Nurses", Section: SectionNurses},
		{Path: "/appointments", Title: "Appointments", Section: SectionAppointments},
		{Path: "/categories", Title: "Categories", Section: SectionCategories, Roles: []UserRole{RoleAdmin}},
		{Path: "/users", Title: "Users", Section: SectionUsers, Roles: []UserRole{RoleAdmin}},
		{Path: "/products", Title: "Products", Section: SectionProducts},
		{Path: "/notifications", Title: "Notifications", Section: SectionNotifications, Roles: []UserRole{RoleAdmin}},
		{Path: "/settings", Title: "Settings", Section: SectionSettings, Roles: []UserRole{RoleAdmin}},
	}
}

// Menu filters items down to what role can see. Items with explicit roles
// must list the role; items with a section must be reachable.
func (p *AccessPolicy) Menu(role UserRole, items []MenuItem) []MenuItem {
	out := make([]MenuItem, 0, len(items))
	if role == "" {
		return out
	}
	for _, item := range items {
		if len(item.Roles) > 0 && !containsRole(item.Roles, role) {
			continue
		}
		if item.Section != "" && !p.CanReach(role, item.Section) {
			continue
		}
		out = append(out, item)
	}
	return out
}

func containsRole(roles []UserRole, role UserRole) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}
