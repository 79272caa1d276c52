package identity

import "time"

type User struct {
	ID           int64      `gorm:"column:user_id;primaryKey"`
	Username     string     `gorm:"column:username;uniqueIndex;not null"`
	Fullname     string     `gorm:"column:fullname;not null"`
	PasswordHash string     `gorm:"column:password_hash;not null"`
	IsActive     bool       `gorm:"column:is_active;default:true"`
	IsStaff      bool       `gorm:"column:is_staff;default:false"`
	IsSuperuser  bool       `gorm:"column:is_superuser;default:false"`
	RegisteredAt time.Time  `gorm:"column:registered_at;default:now()"`
	RegisteredBy *int64     `gorm:"column:registered_by_id"`
	LastLogin    *time.Time `gorm:"column:last_login"`
	GroupID      *int64     `gorm:"column:group_id"`
}

func (User) TableName() string { return "users" }

type Group struct {
	ID           int64  `gorm:"column:group_id;primaryKey"`
	Name         string `gorm:"column:name;uniqueIndex;not null"`
	Abbreviation string `gorm:"column:abbreviation;uniqueIndex;not null"`
	Description  string `gorm:"column:description;default:N/A"`
}

func (Group) TableName() string { return "groups" }

type Permission struct {
	ID          int64  `gorm:"column:permission_id;primaryKey"`
	Name        string `gorm:"column:name;uniqueIndex;not null"`
	Codename    string `gorm:"column:codename;uniqueIndex;not null"`
	Flag        int    `gorm:"column:flag;uniqueIndex;not null"`
	Description string `gorm:"column:description;default:N/A"`
}

func (Permission) TableName() string { return "permissions" }

// UserPermission is a direct user grant. Its mere presence authorizes the
// permission's codename for the user; there is no revoked or expired state.
type UserPermission struct {
	UserID       int64     `gorm:"column:user_id;primaryKey"`
	PermissionID int64     `gorm:"column:permission_id;primaryKey"`
	AssignedAt   time.Time `gorm:"column:assigned_at;default:now()"`
	AssignedBy   int64     `gorm:"column:assigned_by_id;not null"`
}

func (UserPermission) TableName() string { return "user_permissions" }

// GroupPermission mirrors UserPermission at the group level. It is stored for
// administration but is not consulted by the access gate.
type GroupPermission struct {
	GroupID      int64     `gorm:"column:group_id;primaryKey"`
	PermissionID int64     `gorm:"column:permission_id;primaryKey"`
	AssignedAt   time.Time `gorm:"column:assigned_at;default:now()"`
	AssignedBy   int64     `gorm:"column:assigned_by_id;not null"`
}

func (GroupPermission) TableName() string { return "group_permissions" }
