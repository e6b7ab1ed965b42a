package shared

// Platform permissions.
const (
	PermBedsView = "beds.view"
	PermBedsEdit = "beds.edit"

	PermUsersView = "users.view"
	PermUsersEdit = "users.edit"

	PermWardsEdit = "wards.edit"
)

// AllScopes lists every permission the platform knows.
func AllScopes() []string {
	return []string{
		PermBedsView,
		PermBedsEdit,
		PermUsersView,
		PermUsersEdit,
		PermWardsEdit,
	}
}
