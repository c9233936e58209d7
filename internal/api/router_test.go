package api

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/moments/internal/api/handler"
	"github.com/d60-Lab/moments/internal/gateway"
	"github.com/d60-Lab/moments/internal/service"
	"github.com/d60-Lab/moments/internal/session"
	"github.com/d60-Lab/moments/internal/testutil/fakebackend"
)

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func setupRouter(t *testing.T) (*gin.Engine, *fakebackend.Backend) {
	t.Helper()
	fb := fakebackend.New(t)
	gw := gateway.New(fb.URL(), fb.APIKey, session.NewMemoryStore())
	svc := service.NewCoordinator(gw, service.Options{ProfileRetryInitial: time.Millisecond})
	return NewRouter(handler.NewHandler(svc), RouterOptions{Mode: gin.TestMode}), fb
}

func doJSON(t *testing.T, r http.Handler, method, path string, body any) (int, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w.Code, env
}

func signIn(t *testing.T, r http.Handler) {
	t.Helper()
	code, env := doJSON(t, r, http.MethodPost, "/api/v1/auth/signin", gin.H{"email": "me@example.com", "password": "pw"})
	require.Equal(t, http.StatusOK, code, env.Message)
}

func TestHealthAndSwagger(t *testing.T) {
	r, _ := setupRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/swagger/doc.json", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "/api/v1/feed")
}

func TestAuthFlow(t *testing.T) {
	r, fb := setupRouter(t)
	fb.SeedUser("me@example.com", "pw", "me")

	code, _ := doJSON(t, r, http.MethodGet, "/api/v1/auth/me", nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, env := doJSON(t, r, http.MethodPost, "/api/v1/auth/signin", gin.H{"email": "me@example.com", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "Invalid login credentials", env.Message)

	code, env = doJSON(t, r, http.MethodGet, "/api/v1/status", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(env.Data), "Invalid login credentials")

	signIn(t, r)
	code, env = doJSON(t, r, http.MethodGet, "/api/v1/auth/me", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(env.Data), "me@example.com")

	code, _ = doJSON(t, r, http.MethodPost, "/api/v1/auth/signout", nil)
	assert.Equal(t, http.StatusOK, code)
	code, _ = doJSON(t, r, http.MethodGet, "/api/v1/auth/me", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestSignUp_Conflict(t *testing.T) {
	r, fb := setupRouter(t)
	fb.SeedUser("me@example.com", "pw", "me")

	code, env := doJSON(t, r, http.MethodPost, "/api/v1/auth/signup",
		gin.H{"email": "me@example.com", "password": "pw", "username": "again"})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "User already registered", env.Message)

	code, _ = doJSON(t, r, http.MethodPost, "/api/v1/auth/signup", gin.H{"email": "not-an-email"})
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestFollowAndFeed(t *testing.T) {
	r, fb := setupRouter(t)
	fb.SeedUser("me@example.com", "pw", "me")
	alice := fb.SeedUser("alice@example.com", "pw", "alice")
	carol := fb.SeedUser("carol@example.com", "pw", "carol")
	fb.Seed("moments", fakebackend.Row{"user_id": alice, "image_url": `["https://img/a.jpg"]`, "caption": "from alice"})
	fb.Seed("moments", fakebackend.Row{"user_id": carol, "image_url": "https://img/c.jpg", "caption": "from carol"})
	signIn(t, r)

	code, env := doJSON(t, r, http.MethodGet, "/api/v1/users?q=ali", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(env.Data), `"following":false`)

	code, _ = doJSON(t, r, http.MethodPost, "/api/v1/relations/follow", gin.H{"user_id": alice})
	require.Equal(t, http.StatusOK, code)

	code, env = doJSON(t, r, http.MethodGet, "/api/v1/feed", nil)
	require.Equal(t, http.StatusOK, code)
	var items []struct {
		Moment struct {
			Caption string `json:"caption"`
		} `json:"moment"`
		Cover string `json:"cover"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &items))
	require.Len(t, items, 1)
	assert.Equal(t, "from alice", items[0].Moment.Caption)
	assert.Equal(t, "https://img/a.jpg", items[0].Cover)

	code, env = doJSON(t, r, http.MethodGet, "/api/v1/relations/following", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(env.Data), alice)

	code, env = doJSON(t, r, http.MethodPost, "/api/v1/relations/toggle/"+alice, nil)
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"following":false}`, string(env.Data))
	assert.Empty(t, fb.Rows("follows"))
}

func TestAlbum_DecodedImages(t *testing.T) {
	r, fb := setupRouter(t)
	fb.SeedUser("me@example.com", "pw", "me")
	alice := fb.SeedUser("alice@example.com", "pw", "alice")
	m := fb.Seed("moments", fakebackend.Row{"user_id": alice, "image_url": `["https://img/1.jpg","https://img/2.jpg"]`, "caption": "two"})
	signIn(t, r)

	code, _ := doJSON(t, r, http.MethodPost, "/api/v1/relations/follow", gin.H{"user_id": alice})
	require.Equal(t, http.StatusOK, code)

	code, env := doJSON(t, r, http.MethodGet, "/api/v1/users/"+alice+"/album?moment_id="+m["id"].(string), nil)
	require.Equal(t, http.StatusOK, code)
	var album struct {
		Images [][]string `json:"images"`
		Index  int        `json:"index"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &album))
	assert.Equal(t, [][]string{{"https://img/1.jpg", "https://img/2.jpg"}}, album.Images)
	assert.Equal(t, 0, album.Index)
}

func TestPostMoment_Multipart(t *testing.T) {
	r, fb := setupRouter(t)
	fb.SeedUser("me@example.com", "pw", "me")
	signIn(t, r)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("caption", "hello"))
	for _, name := range []string{"a.png", "b.png"} {
		fw, err := mw.CreateFormFile("images", name)
		require.NoError(t, err)
		_, _ = fw.Write([]byte("png-bytes-" + name))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/moments", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	assert.Len(t, fb.Objects(), 2)
	rows := fb.Rows("moments")
	require.Len(t, rows, 1)
	assert.True(t, strings.HasPrefix(rows[0]["image_url"].(string), `["`+fb.URL()+"/storage/v1/object/public/Moments/"))

	// 没有图片：本地校验，不上传
	var empty bytes.Buffer
	mw = multipart.NewWriter(&empty)
	require.NoError(t, mw.WriteField("caption", "no images"))
	require.NoError(t, mw.Close())
	req = httptest.NewRequest(http.MethodPost, "/api/v1/moments", &empty)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Len(t, fb.Objects(), 2)
}

func TestLikeAndComments(t *testing.T) {
	r, fb := setupRouter(t)
	fb.SeedUser("me@example.com", "pw", "me")
	m := fb.Seed("moments", fakebackend.Row{"user_id": "someone", "image_url": "[]", "caption": "x"})
	mid := m["id"].(string)
	signIn(t, r)

	code, env := doJSON(t, r, http.MethodPost, "/api/v1/moments/"+mid+"/like", nil)
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"like_count":1,"liked":true}`, string(env.Data))

	code, _ = doJSON(t, r, http.MethodPost, "/api/v1/moments/"+mid+"/comments", gin.H{"text": "   "})
	assert.Equal(t, http.StatusBadRequest, code)

	code, env = doJSON(t, r, http.MethodPost, "/api/v1/moments/"+mid+"/comments", gin.H{"text": " great "})
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(env.Data), `"text":"great"`)
	assert.Contains(t, string(env.Data), `"username":"me"`)

	code, env = doJSON(t, r, http.MethodGet, "/api/v1/moments/"+mid+"/comments", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(env.Data), `"text":"great"`)
}

func TestBackendDown_BadGateway(t *testing.T) {
	r, fb := setupRouter(t)
	fb.SeedUser("me@example.com", "pw", "me")
	signIn(t, r)

	fb.SetDown(true)
	code, env := doJSON(t, r, http.MethodPost, "/api/v1/reload", nil)
	assert.Equal(t, http.StatusBadGateway, code)
	assert.Equal(t, "service unavailable", env.Message)

	code, _ = doJSON(t, r, http.MethodDelete, "/api/v1/status/error", nil)
	assert.Equal(t, http.StatusOK, code)
	_, env = doJSON(t, r, http.MethodGet, "/api/v1/status", nil)
	assert.Contains(t, string(env.Data), `"last_error":""`)
}
