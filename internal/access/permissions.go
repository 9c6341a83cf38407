package access

const (
	PermEvents = "events"
	PermPhotos = "photos"
	PermPeople = "people"
	PermGrants = "grants"
)

var BuiltinPermissions = []Permission{
	{Key: PermEvents, Description: "Manage public events"},
	{Key: PermPhotos, Description: "Manage the photo gallery"},
	{Key: PermPeople, Description: "Manage the team directory"},
	{Key: PermGrants, Description: "Manage permission grants"},
}
