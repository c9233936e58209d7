package fakebackend

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var errUserExists = errors.New("User already registered")

// 带 created_at 列的表
var timestamped = map[string]bool{"moments": true, "comments": true}

func (b *Backend) createUser(email, password, username string) (*user, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.users[email]; ok {
		return nil, errUserExists
	}
	u := &user{id: uuid.NewString(), email: email, username: username, hash: hash}
	b.users[email] = u
	return u, nil
}

func (b *Backend) session(u *user) gin.H {
	return gin.H{
		"access_token":  b.Token(u.id, u.email),
		"token_type":    "bearer",
		"expires_in":    3600,
		"refresh_token": uuid.NewString(),
		"user": gin.H{
			"id":            u.id,
			"email":         u.email,
			"user_metadata": gin.H{"username": u.username},
		},
	}
}

func (b *Backend) signUp(c *gin.Context) {
	var req struct {
		Email    string         `json:"email"`
		Password string         `json:"password"`
		Data     map[string]any `json:"data"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Email == "" || req.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"code": 400, "msg": "Signup requires a valid password"})
		return
	}
	username, _ := req.Data["username"].(string)
	u, err := b.createUser(req.Email, req.Password, username)
	if errors.Is(err, errUserExists) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"code": 422, "msg": err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"msg": err.Error()})
		return
	}
	c.JSON(http.StatusOK, b.session(u))
}

func (b *Backend) token(c *gin.Context) {
	if c.Query("grant_type") != "password" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported_grant_type"})
		return
	}
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	_ = c.ShouldBindJSON(&req)

	b.mu.Lock()
	u := b.users[req.Email]
	b.mu.Unlock()
	if u == nil || bcrypt.CompareHashAndPassword(u.hash, []byte(req.Password)) != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_grant", "error_description": "Invalid login credentials"})
		return
	}
	c.JSON(http.StatusOK, b.session(u))
}

// filter 单个 PostgREST 条件
type filter struct {
	column string
	values []string
}

func (f filter) match(r Row) bool {
	v := fmt.Sprint(r[f.column])
	for _, want := range f.values {
		if v == want {
			return true
		}
	}
	return false
}

func parseFilters(c *gin.Context) ([]filter, string, bool, error) {
	var (
		filters []filter
		orderBy string
		desc    bool
	)
	for key, vals := range c.Request.URL.Query() {
		for _, v := range vals {
			switch {
			case key == "select":
			case key == "order":
				col, dir, _ := strings.Cut(v, ".")
				orderBy, desc = col, dir == "desc"
			case strings.HasPrefix(v, "eq."):
				filters = append(filters, filter{column: key, values: []string{strings.TrimPrefix(v, "eq.")}})
			case strings.HasPrefix(v, "in.(") && strings.HasSuffix(v, ")"):
				list := strings.TrimSuffix(strings.TrimPrefix(v, "in.("), ")")
				filters = append(filters, filter{column: key, values: strings.Split(list, ",")})
			default:
				return nil, "", false, fmt.Errorf("unsupported filter %s=%s", key, v)
			}
		}
	}
	return filters, orderBy, desc, nil
}

func matchAll(r Row, filters []filter) bool {
	for _, f := range filters {
		if !f.match(r) {
			return false
		}
	}
	return true
}

func (b *Backend) selectRows(c *gin.Context) {
	filters, orderBy, desc, err := parseFilters(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	b.mu.Lock()
	out := make([]Row, 0)
	for _, r := range b.tables[c.Param("table")] {
		if matchAll(r, filters) {
			out = append(out, copyRow(r))
		}
	}
	b.mu.Unlock()

	if orderBy != "" {
		sort.SliceStable(out, func(i, j int) bool {
			a, z := fmt.Sprint(out[i][orderBy]), fmt.Sprint(out[j][orderBy])
			if desc {
				return a > z
			}
			return a < z
		})
	}
	c.JSON(http.StatusOK, out)
}

func (b *Backend) hasIDLocked(table string, id any) bool {
	for _, r := range b.tables[table] {
		if r["id"] == id {
			return true
		}
	}
	return false
}

func (b *Backend) insertLocked(table string, row Row) Row {
	r := copyRow(row)
	if _, ok := r["id"]; !ok {
		r["id"] = uuid.NewString()
	}
	if timestamped[table] {
		if _, ok := r["created_at"]; !ok {
			r["created_at"] = b.now().Format(time.RFC3339Nano)
		}
	}
	b.tables[table] = append(b.tables[table], r)
	return r
}

func (b *Backend) insertRows(c *gin.Context) {
	table := c.Param("table")
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	var rows []Row
	if len(body) > 0 && body[0] == '[' {
		err = json.Unmarshal(body, &rows)
	} else {
		var one Row
		err = json.Unmarshal(body, &one)
		rows = []Row{one}
	}
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid JSON body"})
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if table == "profiles" && b.profileNotReady > 0 {
		b.profileNotReady--
		c.JSON(http.StatusConflict, gin.H{
			"code":    "23503",
			"message": `insert or update on table "profiles" violates foreign key constraint "profiles_id_fkey"`,
		})
		return
	}
	for _, r := range rows {
		if id, ok := r["id"]; ok && b.hasIDLocked(table, id) {
			c.JSON(http.StatusConflict, gin.H{
				"code":    "23505",
				"message": fmt.Sprintf(`duplicate key value violates unique constraint "%s_pkey"`, table),
			})
			return
		}
	}
	out := make([]Row, 0, len(rows))
	for _, r := range rows {
		out = append(out, copyRow(b.insertLocked(table, r)))
	}
	c.JSON(http.StatusCreated, out)
}

func (b *Backend) updateRows(c *gin.Context) {
	filters, _, _, err := parseFilters(c)
	if err != nil || len(filters) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"message": "update requires a filter"})
		return
	}
	var patch Row
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid JSON body"})
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Row, 0)
	for _, r := range b.tables[c.Param("table")] {
		if matchAll(r, filters) {
			for k, v := range patch {
				r[k] = v
			}
			out = append(out, copyRow(r))
		}
	}
	c.JSON(http.StatusOK, out)
}

func (b *Backend) deleteRows(c *gin.Context) {
	filters, _, _, err := parseFilters(c)
	if err != nil || len(filters) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"message": "delete requires a filter"})
		return
	}
	table := c.Param("table")
	b.mu.Lock()
	kept := b.tables[table][:0]
	for _, r := range b.tables[table] {
		if !matchAll(r, filters) {
			kept = append(kept, r)
		}
	}
	b.tables[table] = kept
	b.mu.Unlock()
	c.Status(http.StatusNoContent)
}

func (b *Backend) upload(c *gin.Context) {
	key := strings.TrimPrefix(c.Param("path"), "/")
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.uploads++
	if b.failUploads[b.uploads] {
		c.JSON(http.StatusBadRequest, gin.H{"statusCode": "400", "error": "Bad Request", "message": "simulated upload failure"})
		return
	}
	if _, exists := b.objects[key]; exists {
		c.JSON(http.StatusConflict, gin.H{"statusCode": "409", "error": "Duplicate", "message": "The resource already exists"})
		return
	}
	b.objects[key] = body
	c.JSON(http.StatusOK, gin.H{"Key": key, "Id": uuid.NewString()})
}

func (b *Backend) download(c *gin.Context) {
	key, ok := strings.CutPrefix(c.Param("path"), "/public/")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"message": "only public objects are served"})
		return
	}
	b.mu.Lock()
	data, found := b.objects[key]
	b.mu.Unlock()
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"message": "Object not found"})
		return
	}
	c.Data(http.StatusOK, "application/octet-stream", data)
}
