package model

import (
	"encoding/json"
	"strings"
)

// ImageURLs 一条 moment 的有序图片地址。
// 落库时整体 JSON 编码进 moments.image_url 单个文本列。
type ImageURLs []string

// EncodeImageURLs 编码为 JSON 数组文本
func EncodeImageURLs(urls ImageURLs) (string, error) {
	if urls == nil {
		urls = ImageURLs{}
	}
	b, err := json.Marshal([]string(urls))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// DecodeImageURLs 解码 image_url 列，不会失败：
// JSON 数组按顺序返回；JSON 字符串视为单个 URL；其余情况把原始值当作单个 URL。
func DecodeImageURLs(raw string) ImageURLs {
	trimmed := strings.TrimSpace(raw)
	if strings.HasPrefix(trimmed, "[") {
		var urls []string
		if err := json.Unmarshal([]byte(trimmed), &urls); err == nil {
			return ImageURLs(urls)
		}
	}
	if strings.HasPrefix(trimmed, `"`) {
		var s string
		if err := json.Unmarshal([]byte(trimmed), &s); err == nil {
			return ImageURLs{s}
		}
	}
	return ImageURLs{raw}
}
