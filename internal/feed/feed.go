// Package feed rebuilds the UI view models from independently fetched rows.
// Every join happens here, client side; nothing in this package does I/O.
package feed

import (
	"github.com/d60-Lab/moments/internal/model"
)

// Item 一条 feed：moment 及其作者
type Item struct {
	Moment model.Moment    `json:"moment"`
	Author model.Profile   `json:"author"`
	Images model.ImageURLs `json:"images"`
}

// FollowingIDs viewer 关注的用户集合
func FollowingIDs(follows []model.Follow, viewerID model.ID) map[model.ID]struct{} {
	ids := make(map[model.ID]struct{}, len(follows))
	for _, f := range follows {
		if f.FollowerID == viewerID {
			ids[f.FollowingID] = struct{}{}
		}
	}
	return ids
}

func profileIndex(profiles []model.Profile) map[model.ID]model.Profile {
	idx := make(map[model.ID]model.Profile, len(profiles))
	for _, p := range profiles {
		if _, dup := idx[p.ID]; !dup {
			idx[p.ID] = p
		}
	}
	return idx
}

// AssembleFeed 只保留 viewer 关注的作者的 moment，并挂上作者资料。
//
// viewer 自己的 moment 虽然也被拉取，但除非 viewer 关注了自己，否则不会出现在 feed 里。
// 找不到作者资料的 moment 直接丢弃。顺序保持后端返回的顺序（created_at 倒序），不重排。
func AssembleFeed(moments []model.Moment, profiles []model.Profile, follows []model.Follow, viewerID model.ID) []Item {
	following := FollowingIDs(follows, viewerID)
	authors := profileIndex(profiles)

	items := make([]Item, 0, len(moments))
	for _, m := range moments {
		if _, ok := following[m.UserID]; !ok {
			continue
		}
		author, ok := authors[m.UserID]
		if !ok {
			continue
		}
		items = append(items, Item{Moment: m, Author: author, Images: m.Images()})
	}
	return items
}
