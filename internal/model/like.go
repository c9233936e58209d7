package model

// Like 点赞，每个 (user, moment) 至多一条（仅靠客户端查重）
type Like struct {
	ID       ID `json:"id"`
	UserID   ID `json:"user_id"`
	MomentID ID `json:"moment_id"`
}

func (Like) TableName() string { return "likes" }
