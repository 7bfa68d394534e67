package models

const (
	RoleMember  = "member"
	RolePartner = "partner"
	RoleAdmin   = "admin"
)

// Principal is the authenticated actor behind a request.
type Principal struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	AvatarURL   string `json:"avatarUrl,omitempty"`
	Role        string `json:"role,omitempty"`
}

func (p Principal) NameOrDefault() string {
	if p.DisplayName == "" {
		return "Someone"
	}
	return p.DisplayName
}
