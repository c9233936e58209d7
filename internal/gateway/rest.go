package gateway

import (
	"context"
	"net/http"
	"net/url"
)

const returnRepresentation = "return=representation"

func tablePath(table string) string { return "/rest/v1/" + url.PathEscape(table) }

// Select GET /rest/v1/{table}?{q}，结果解码到 dest（通常是切片指针）
func (c *Client) Select(ctx context.Context, table string, q Query, dest any) error {
	return c.do(ctx, request{
		kind:     kindRequest,
		method:   http.MethodGet,
		endpoint: tablePath(table) + "?" + q.String(),
		prefer:   returnRepresentation,
	}, dest)
}

// Insert 插入一行或多行；dest 非空时接收后端返回的行
func (c *Client) Insert(ctx context.Context, table string, record any, dest any) error {
	body, err := jsonBody(record)
	if err != nil {
		return err
	}
	return c.do(ctx, request{
		kind:        kindRequest,
		method:      http.MethodPost,
		endpoint:    tablePath(table),
		body:        body,
		contentType: "application/json",
		prefer:      returnRepresentation,
	}, dest)
}

// Update PATCH 指定 id 的行
func (c *Client) Update(ctx context.Context, table, id string, partial any, dest any) error {
	body, err := jsonBody(partial)
	if err != nil {
		return err
	}
	return c.do(ctx, request{
		kind:        kindRequest,
		method:      http.MethodPatch,
		endpoint:    tablePath(table) + "?" + NewQuery().Eq("id", id).String(),
		body:        body,
		contentType: "application/json",
		prefer:      returnRepresentation,
	}, dest)
}

// Delete 删除指定 id 的行
func (c *Client) Delete(ctx context.Context, table, id string) error {
	return c.do(ctx, request{
		kind:     kindRequest,
		method:   http.MethodDelete,
		endpoint: tablePath(table) + "?" + NewQuery().Eq("id", id).String(),
	}, nil)
}
