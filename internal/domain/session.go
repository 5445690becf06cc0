package domain

// Session 是认证服务给出的当前会话状态，路由守卫只读取它
type Session struct {
	User           *User `json:"user"`
	UserRole       Role  `json:"userRole"`
	MinAccessLevel Role  `json:"minAccessLevel"`
	Loading        bool  `json:"loading"`
}

func (s Session) Authenticated() bool {
	return s.User != nil
}
