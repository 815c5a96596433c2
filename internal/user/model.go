package user

import "time"

// User 是注册用户。ManagePermission 为 true 的用户是项目管理者，可以创建和管理项目。
type User struct {
	ID               uint   `gorm:"primarykey"`
	Username         string `gorm:"size:64;uniqueIndex;not null"`
	HashedPassword   string `gorm:"not null"`
	QQ               *string
	Phone            *string
	ManagePermission bool `gorm:"not null;default:false"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Identity 是已认证调用者的最小身份信息，业务模块只依赖它。
type Identity struct {
	ID               uint
	ManagePermission bool
}

// Identity 返回用户对应的身份
func (u *User) Identity() Identity {
	return Identity{ID: u.ID, ManagePermission: u.ManagePermission}
}

// Response 是对外暴露的用户信息，不包含密码哈希
type Response struct {
	ID               uint    `json:"id"`
	Username         string  `json:"username"`
	QQ               *string `json:"qq"`
	Phone            *string `json:"phone"`
	ManagePermission bool    `json:"manage_permission"`
}

// ToResponse 转换为对外响应
func (u *User) ToResponse() Response {
	return Response{
		ID:               u.ID,
		Username:         u.Username,
		QQ:               u.QQ,
		Phone:            u.Phone,
		ManagePermission: u.ManagePermission,
	}
}
