// Package fakebackend is an in-memory stand-in for the hosted backend (auth, PostgREST
// subset, storage) used by tests. It records every request and supports fault injection.
package fakebackend

import (
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const DefaultAPIKey = "test-anon-key"

// Request 一次收到的请求
type Request struct {
	Method        string
	Path          string
	RawQuery      string
	APIKey        string
	Authorization string
	Prefer        string
}

type user struct {
	id       string
	email    string
	username string
	hash     []byte
}

type Row = map[string]any

// Backend 内存后端
type Backend struct {
	APIKey string

	mu       sync.Mutex
	secret   []byte
	users    map[string]*user // by email
	tables   map[string][]Row
	objects  map[string][]byte
	requests []Request
	clock    time.Time

	uploads         int
	failUploads     map[int]bool
	profileNotReady int
	down            bool

	server *httptest.Server
}

// New 启动后端，测试结束自动关闭
func New(t testing.TB) *Backend {
	t.Helper()
	b := NewBackend()
	b.server = httptest.NewServer(b.Handler())
	t.Cleanup(b.server.Close)
	return b
}

// NewBackend 只构造，不启动 HTTP 服务
func NewBackend() *Backend {
	return &Backend{
		APIKey:      DefaultAPIKey,
		secret:      []byte(uuid.NewString()),
		users:       map[string]*user{},
		tables:      map[string][]Row{},
		objects:     map[string][]byte{},
		clock:       time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		failUploads: map[int]bool{},
	}
}

func (b *Backend) URL() string { return b.server.URL }

// Handler gin 路由
func (b *Backend) Handler() http.Handler {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(b.record, b.requireAPIKey)

	auth := r.Group("/auth/v1")
	auth.POST("/signup", b.signUp)
	auth.POST("/token", b.token)

	rest := r.Group("/rest/v1")
	rest.GET("/:table", b.selectRows)
	rest.POST("/:table", b.requireUser, b.insertRows)
	rest.PATCH("/:table", b.requireUser, b.updateRows)
	rest.DELETE("/:table", b.requireUser, b.deleteRows)

	r.POST("/storage/v1/object/*path", b.requireUser, b.upload)
	r.GET("/storage/v1/object/*path", b.download)
	return r
}

func (b *Backend) record(c *gin.Context) {
	b.mu.Lock()
	b.requests = append(b.requests, Request{
		Method:        c.Request.Method,
		Path:          c.Request.URL.Path,
		RawQuery:      c.Request.URL.RawQuery,
		APIKey:        c.GetHeader("apikey"),
		Authorization: c.GetHeader("Authorization"),
		Prefer:        c.GetHeader("Prefer"),
	})
	down := b.down
	b.mu.Unlock()
	if down {
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"message": "service unavailable"})
		return
	}
	c.Next()
}

func (b *Backend) requireAPIKey(c *gin.Context) {
	if c.GetHeader("apikey") != b.APIKey {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Invalid API key"})
		return
	}
	c.Next()
}

func (b *Backend) requireUser(c *gin.Context) {
	raw := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
	if raw == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "missing bearer token"})
		return
	}
	claims := jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) { return b.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "invalid JWT: " + err.Error()})
		return
	}
	c.Set("user_id", claims.Subject)
	c.Next()
}

// Token 为指定用户签发 access token
func (b *Backend) Token(userID, email string) string {
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   userID,
		"email": email,
		"role":  "authenticated",
		"exp":   time.Now().Add(time.Hour).Unix(),
	}).SignedString(b.secret)
	if err != nil {
		panic(err)
	}
	return tok
}

// Requests 已收到请求的快照
func (b *Backend) Requests() []Request {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Request(nil), b.requests...)
}

func (b *Backend) ResetRequests() {
	b.mu.Lock()
	b.requests = nil
	b.mu.Unlock()
}

// Rows 某张表的行快照，按插入顺序
func (b *Backend) Rows(table string) []Row {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Row, len(b.tables[table]))
	for i, r := range b.tables[table] {
		out[i] = copyRow(r)
	}
	return out
}

// Seed 直接写入一行，补齐 id / created_at，返回写入后的行
func (b *Backend) Seed(table string, row Row) Row {
	b.mu.Lock()
	defer b.mu.Unlock()
	return copyRow(b.insertLocked(table, row))
}

// SeedUser 创建 auth 用户及其 profile，返回用户 id
func (b *Backend) SeedUser(email, password, username string) string {
	u, err := b.createUser(email, password, username)
	if err != nil {
		panic(err)
	}
	b.Seed("profiles", Row{"id": u.id, "username": username, "email": email})
	return u.id
}

// Objects 已上传对象的 key（bucket/path），已排序
func (b *Backend) Objects() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	keys := make([]string, 0, len(b.objects))
	for k := range b.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// FailUpload 第 n 次（从 1 开始）上传返回失败
func (b *Backend) FailUpload(n int) {
	b.mu.Lock()
	b.failUploads[n] = true
	b.mu.Unlock()
}

// DelayProfiles 接下来 n 次写 profiles 返回外键错误，模拟 auth 用户尚未同步
func (b *Backend) DelayProfiles(n int) {
	b.mu.Lock()
	b.profileNotReady = n
	b.mu.Unlock()
}

// SetDown 为 true 时所有请求返回 503
func (b *Backend) SetDown(down bool) {
	b.mu.Lock()
	b.down = down
	b.mu.Unlock()
}

func (b *Backend) now() time.Time {
	b.clock = b.clock.Add(time.Second)
	return b.clock
}

func copyRow(r Row) Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}
