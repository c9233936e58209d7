package model

import "time"

// Moment 一条动态：若干图片 + 文字
type Moment struct {
	ID     ID `json:"id"`
	UserID ID `json:"user_id"`
	// ImageURL 存的是 JSON 编码的 URL 数组，见 ImageURLs
	ImageURL  string    `json:"image_url"`
	Caption   string    `json:"caption"`
	CreatedAt time.Time `json:"created_at"`
}

func (Moment) TableName() string { return "moments" }

// Images 解码 image_url 列
func (m Moment) Images() ImageURLs { return DecodeImageURLs(m.ImageURL) }

// Cover 第一张图，没有图时为空串
func (m Moment) Cover() string {
	imgs := m.Images()
	if len(imgs) == 0 {
		return ""
	}
	return imgs[0]
}
