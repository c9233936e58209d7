package feed

import (
	"strings"

	"github.com/d60-Lab/moments/internal/model"
)

// Engagement 某条 moment 的点赞情况
type Engagement struct {
	LikeCount int  `json:"like_count"`
	Liked     bool `json:"liked"`
}

// FindLike 线性查找 viewer 对 moment 的点赞
func FindLike(likes []model.Like, viewerID, momentID model.ID) (model.Like, bool) {
	for _, l := range likes {
		if l.UserID == viewerID && l.MomentID == momentID {
			return l, true
		}
	}
	return model.Like{}, false
}

func EngagementFor(likes []model.Like, viewerID, momentID model.ID) Engagement {
	var e Engagement
	for _, l := range likes {
		if l.MomentID != momentID {
			continue
		}
		e.LikeCount++
		if l.UserID == viewerID {
			e.Liked = true
		}
	}
	return e
}

// CommentView 评论 + 作者名
type CommentView struct {
	model.Comment
	Username string `json:"username"`
}

// AttachAuthors 作者资料缺失时 Username 为空，评论照常保留
func AttachAuthors(comments []model.Comment, profiles []model.Profile) []CommentView {
	idx := profileIndex(profiles)
	out := make([]CommentView, len(comments))
	for i, c := range comments {
		out[i] = CommentView{Comment: c, Username: idx[c.UserID].Username}
	}
	return out
}

// SearchProfiles 用户名或邮箱包含 query（不区分大小写）的用户，不含 viewer 本人。
// query 为空时返回所有其他用户。
func SearchProfiles(profiles []model.Profile, viewerID model.ID, query string) []model.Profile {
	q := strings.ToLower(query)
	out := make([]model.Profile, 0)
	for _, p := range profiles {
		if p.ID == viewerID {
			continue
		}
		if strings.Contains(strings.ToLower(p.Username), q) || strings.Contains(strings.ToLower(p.Email), q) {
			out = append(out, p)
		}
	}
	return out
}

// Summary 个人主页统计
type Summary struct {
	Profile   *model.Profile `json:"profile,omitempty"`
	Email     string         `json:"email"`
	Moments   []model.Moment `json:"moments"`
	Following int            `json:"following"`
	Followers int            `json:"followers"`
}

// Summarize viewer 的主页：自己的 moment（拉取顺序）、关注数与粉丝数。
// follows 可同时包含两个方向的关注行。
// 资料缺失时 Email 退回会话里的邮箱。
func Summarize(moments []model.Moment, profiles []model.Profile, follows []model.Follow, viewerID model.ID, sessionEmail string) Summary {
	s := Summary{
		Moments: AuthorMoments(moments, viewerID),
		Email:   sessionEmail,
	}
	for _, f := range follows {
		if f.FollowerID == viewerID {
			s.Following++
		}
		if f.FollowingID == viewerID {
			s.Followers++
		}
	}
	if p, ok := profileIndex(profiles)[viewerID]; ok {
		s.Profile = &p
		if p.Email != "" {
			s.Email = p.Email
		}
	}
	return s
}
