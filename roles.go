package authclient

import "strings"

// UserRole is the user's role
type UserRole string

const (
	// RoleAdmin reaches every section
	RoleAdmin UserRole = "admin"
	// RoleDoctor handles patients and appointments
	RoleDoctor UserRole = "doctor"
	// RoleNurse handles patients
	RoleNurse UserRole = "nurse"
	// RolePatient only sees the dashboard
	RolePatient UserRole = "patient"
	// RoleUser is the generic store user (products)
	RoleUser UserRole = "user"
	// RoleUnknown is any role string the backend sent that we do not recognize
	RoleUnknown UserRole = "unknown"
)

var roleAliases = map[string]UserRole{
	"admin":         RoleAdmin,
	"administrator": RoleAdmin,
	"administrador": RoleAdmin,
	"doctor":        RoleDoctor,
	"medico":        RoleDoctor,
	"médico":        RoleDoctor,
	"nurse":         RoleNurse,
	"enfermera":     RoleNurse,
	"enfermero":     RoleNurse,
	"patient":       RolePatient,
	"paciente":      RolePatient,
	"user":          RoleUser,
	"usuario":       RoleUser,
	"consumer":      RoleUser,
	"consumidor":    RoleUser,
}

// IsValid checks if the role is one of the predefined valid roles
func (r UserRole) IsValid() bool {
	switch r {
	case RoleAdmin, RoleDoctor, RoleNurse, RolePatient, RoleUser:
		return true
	default:
		return false
	}
}

func (r UserRole) String() string {
	return string(r)
}

// GetAllRoles returns all predefined roles
func GetAllRoles() []UserRole {
	return []UserRole{
		RoleAdmin,
		RoleDoctor,
		RoleNurse,
		RolePatient,
		RoleUser,
	}
}

// ParseRole maps a backend role string (english or spanish) to a UserRole.
// Unrecognized values map to RoleUnknown and ok is false.
func ParseRole(roleStr string) (UserRole, bool) {
	key := strings.ToLower(strings.TrimSpace(roleStr))
	if role, ok := roleAliases[key]; ok {
		return role, true
	}
	return RoleUnknown, false
}

// roleFromAdminFlag resolves the legacy es_admin flag.
func roleFromAdminFlag(isAdmin bool) UserRole {
	if isAdmin {
		return RoleAdmin
	}
	return RoleUser
}
