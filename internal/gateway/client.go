// Package gateway is a thin authenticated HTTP client for the hosted backend:
// auth, PostgREST-style row access and object storage.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/d60-Lab/moments/internal/model"
	"github.com/d60-Lab/moments/internal/session"
	"github.com/d60-Lab/moments/pkg/logger"
)

// Client 后端网关。自身不缓存 token：每次请求前都从 session.Store 读取。
type Client struct {
	baseURL string
	apiKey  string
	store   session.Store
	http    *http.Client
	timeout time.Duration
	tracer  trace.Tracer
}

type Option func(*Client)

// WithHTTPClient 替换底层 http.Client
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithTimeout 为每个请求设置超时；默认不设。与 WithHTTPClient 的先后顺序无关
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

func New(baseURL, apiKey string, store session.Store, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		store:   store,
		http:    &http.Client{},
		tracer:  otel.Tracer("github.com/d60-Lab/moments/internal/gateway"),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.timeout > 0 {
		// 复制一份，不改调用方传入的 http.Client
		hc := *c.http
		hc.Timeout = c.timeout
		c.http = &hc
	}
	return c
}

// BaseURL 后端根地址
func (c *Client) BaseURL() string { return c.baseURL }

// Session 当前会话；未登录或 token 已过期返回 session.ErrNoSession
func (c *Client) Session(ctx context.Context) (*model.Session, error) {
	sess, err := c.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	if sess.Expired(time.Now()) {
		return nil, session.ErrNoSession
	}
	return sess, nil
}

type request struct {
	kind        errorKind
	method      string
	endpoint    string
	body        io.Reader
	contentType string
	prefer      string
}

func jsonBody(v any) (io.Reader, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("gateway: encode body: %w", err)
	}
	return bytes.NewReader(b), nil
}

// do 发送请求；非 2xx 按 kind 转成对应错误，成功且 dest 非空时解码 JSON。
func (c *Client) do(ctx context.Context, r request, dest any) error {
	ctx, span := c.tracer.Start(ctx, "gateway "+r.method+" "+spanPath(r.endpoint),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("http.method", r.method)))
	defer span.End()

	req, err := http.NewRequestWithContext(ctx, r.method, c.baseURL+r.endpoint, r.body)
	if err != nil {
		return err
	}
	req.Header.Set("apikey", c.apiKey)
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}
	if r.prefer != "" {
		req.Header.Set("Prefer", r.prefer)
	}

	// 过期的 token 不再发送，按匿名请求处理
	sess, err := c.Session(ctx)
	switch {
	case err == nil && sess.Token != "":
		req.Header.Set("Authorization", "Bearer "+sess.Token)
	case err != nil && !errors.Is(err, session.ErrNoSession):
		span.RecordError(err)
		return fmt.Errorf("gateway: load session: %w", err)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("gateway: %s %s: %w", r.method, spanPath(r.endpoint), err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("gateway: read response: %w", err)
	}
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	logger.Debug("gateway request",
		zap.String("method", r.method),
		zap.String("endpoint", r.endpoint),
		zap.Int("status", resp.StatusCode),
		zap.Duration("took", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		err := newStatusError(r.kind, resp.StatusCode, payload)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	if dest == nil || len(bytes.TrimSpace(payload)) == 0 {
		return nil
	}
	if err := json.Unmarshal(payload, dest); err != nil {
		return fmt.Errorf("gateway: decode %s: %w", spanPath(r.endpoint), err)
	}
	return nil
}

// spanPath 去掉查询串，避免 span 名里带上 id
func spanPath(endpoint string) string {
	if i := strings.IndexByte(endpoint, '?'); i >= 0 {
		return endpoint[:i]
	}
	return endpoint
}
