package model

// Follow 关注关系（follower 关注 following）
// (follower_id, following_id) 应唯一，但客户端不保证
type Follow struct {
	ID          ID `json:"id"`
	FollowerID  ID `json:"follower_id"`
	FollowingID ID `json:"following_id"`
}

func (Follow) TableName() string { return "follows" }
