package enums

// MemberRole is the role claim on an access token.
type MemberRole string

const (
	MemberRoleUser  MemberRole = "user"
	MemberRoleAdmin MemberRole = "admin"
)

var memberRoles = []MemberRole{MemberRoleUser, MemberRoleAdmin}

func (m MemberRole) String() string { return string(m) }

func (m MemberRole) IsValid() bool { return member(memberRoles, m) }

// Satisfies reports whether a principal holding m may act where required is demanded.
// Admins satisfy every role.
func (m MemberRole) Satisfies(required MemberRole) bool {
	return m == required || m == MemberRoleAdmin
}

func ParseMemberRole(value string) (MemberRole, error) {
	return parse(memberRoles, value, "member role")
}
