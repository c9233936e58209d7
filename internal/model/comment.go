package model

import "time"

// Comment 评论，只追加，按 created_at 升序展示
type Comment struct {
	ID        ID        `json:"id"`
	MomentID  ID        `json:"moment_id"`
	UserID    ID        `json:"user_id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

func (Comment) TableName() string { return "comments" }
