package gateway

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// UploadResult storage 返回的对象元数据
type UploadResult struct {
	Key string `json:"Key"`
	ID  string `json:"Id,omitempty"`
}

func objectPath(bucket, path string) string {
	segs := strings.Split(path, "/")
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	return url.PathEscape(bucket) + "/" + strings.Join(segs, "/")
}

// UploadFile 上传文件到 bucket/path，不重试
func (c *Client) UploadFile(ctx context.Context, bucket, path string, blob io.Reader, contentType string) (*UploadResult, error) {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	var out UploadResult
	err := c.do(ctx, request{
		kind:        kindUpload,
		method:      http.MethodPost,
		endpoint:    "/storage/v1/object/" + objectPath(bucket, path),
		body:        blob,
		contentType: contentType,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// PublicURL 公共访问地址，纯字符串拼接，不发请求
func (c *Client) PublicURL(bucket, path string) string {
	return c.baseURL + "/storage/v1/object/public/" + objectPath(bucket, path)
}
