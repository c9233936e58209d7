package model

// Profile 用户资料（profiles 表），id 与 auth 用户 id 一致
type Profile struct {
	ID       ID     `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

func (Profile) TableName() string { return "profiles" }
