package feed

import "github.com/d60-Lab/moments/internal/model"

// Album 某个作者的全部 moment（保持拉取顺序）以及当前查看的位置
type Album struct {
	Author  *model.Profile `json:"author,omitempty"`
	Moments []model.Moment `json:"moments"`
	// Images 与 Moments 按下标一一对应，已解码
	Images []model.ImageURLs `json:"images"`
	Index  int               `json:"index"`
}

// Current 当前 moment；相册为空时返回 nil
func (a Album) Current() *model.Moment {
	if a.Index < 0 || a.Index >= len(a.Moments) {
		return nil
	}
	return &a.Moments[a.Index]
}

// CurrentImages 当前 moment 的图片；相册为空时返回 nil
func (a Album) CurrentImages() model.ImageURLs {
	if a.Index < 0 || a.Index >= len(a.Images) {
		return nil
	}
	return a.Images[a.Index]
}

// HasPrev / HasNext 翻页
func (a Album) HasPrev() bool { return a.Index > 0 }
func (a Album) HasNext() bool { return a.Index < len(a.Moments)-1 }

// AuthorMoments 按原顺序筛出某作者的 moment
func AuthorMoments(moments []model.Moment, authorID model.ID) []model.Moment {
	out := make([]model.Moment, 0)
	for _, m := range moments {
		if m.UserID == authorID {
			out = append(out, m)
		}
	}
	return out
}

// AlbumIndex momentID 在作者子序列中的位置，找不到时为 0
func AlbumIndex(authorMoments []model.Moment, momentID model.ID) int {
	for i, m := range authorMoments {
		if m.ID == momentID {
			return i
		}
	}
	return 0
}

// AssembleAlbum 构造作者相册并定位到 momentID
func AssembleAlbum(moments []model.Moment, profiles []model.Profile, authorID, momentID model.ID) Album {
	own := AuthorMoments(moments, authorID)
	images := make([]model.ImageURLs, len(own))
	for i, m := range own {
		images[i] = m.Images()
	}
	album := Album{Moments: own, Images: images, Index: AlbumIndex(own, momentID)}
	if p, ok := profileIndex(profiles)[authorID]; ok {
		album.Author = &p
	}
	return album
}
