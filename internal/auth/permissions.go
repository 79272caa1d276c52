package auth

// Stable permission codenames. The gate resolves these against the catalog at
// request time so they survive data resets, unlike numeric ids.
const (
	PermCanCreateCourse           = "CAN_CREATE_COURSE"
	PermCanAssignUserCourse       = "CAN_ASSIGN_USER_COURSE"
	PermCanCreateAssessment       = "CAN_CREATE_ASSESSMENT"
	PermCanAssignUserAssessment   = "CAN_ASSIGN_USER_ASSESSMENT"
	PermCanEvaluateUserAssessment = "CAN_EVALUATE_USER_ASSESSMENT"
)

// CatalogEntry describes one fixed permission the seed command installs.
type CatalogEntry struct {
	Codename    string
	Name        string
	Flag        int
	Description string
}

// PermissionCatalog is the fixed permission set of the application.
var PermissionCatalog = []CatalogEntry{
	{Codename: PermCanCreateCourse, Name: "Create Course", Flag: 1, Description: "Can Create Course"},
	{Codename: PermCanAssignUserCourse, Name: "Assign User Course", Flag: 2, Description: "Can Assign User To A Course"},
	{Codename: PermCanCreateAssessment, Name: "Create Assessment", Flag: 3, Description: "Can Create Assessment"},
	{Codename: PermCanAssignUserAssessment, Name: "Assign User Assessment", Flag: 4, Description: "Can Assign User To An Assessment"},
	{Codename: PermCanEvaluateUserAssessment, Name: "Evaluate User Assessment", Flag: 5, Description: "Can Evaluate User To An Assessment"},
}
