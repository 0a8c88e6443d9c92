package models

// Principal 已认证的调用方；匿名调用用 nil 表示
type Principal struct {
	UserID  string
	IsAdmin bool
	// Service 使用服务角色密钥认证
	Service bool
}

// ID 匿名时返回空串
func (p *Principal) ID() string {
	if p == nil {
		return ""
	}
	return p.UserID
}

// Admin 是否具有管理员权限
func (p *Principal) Admin() bool {
	return p != nil && (p.IsAdmin || p.Service)
}
