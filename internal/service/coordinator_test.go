package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/moments/internal/gateway"
	"github.com/d60-Lab/moments/internal/model"
	"github.com/d60-Lab/moments/internal/session"
	"github.com/d60-Lab/moments/internal/testutil/fakebackend"
)

type fixture struct {
	fb     *fakebackend.Backend
	gw     *gateway.Client
	c      *Coordinator
	viewer model.ID
	users  map[string]model.ID
}

// setup 创建 viewer 以及 alice / bob / carol 三个用户，viewer 已登录
func setup(t *testing.T) *fixture {
	t.Helper()
	fb := fakebackend.New(t)
	f := &fixture{fb: fb, users: map[string]model.ID{}}
	f.viewer = model.ID(fb.SeedUser("me@example.com", "pw", "me"))
	for _, name := range []string{"alice", "bob", "carol"} {
		f.users[name] = model.ID(fb.SeedUser(name+"@example.com", "pw", name))
	}
	f.gw = gateway.New(fb.URL(), fb.APIKey, session.NewMemoryStore())
	f.c = NewCoordinator(f.gw, Options{ProfileRetryInitial: time.Millisecond})
	_, err := f.c.SignIn(context.Background(), "me@example.com", "pw")
	require.NoError(t, err)
	return f
}

func (f *fixture) seedMoment(author model.ID, caption string) {
	f.fb.Seed("moments", fakebackend.Row{
		"user_id":   author.String(),
		"image_url": fmt.Sprintf(`["https://img/%s.jpg"]`, caption),
		"caption":   caption,
	})
}

func images(n int) []Image {
	out := make([]Image, n)
	for i := range out {
		out[i] = Image{
			Name:        fmt.Sprintf("p%d.jpg", i),
			ContentType: "image/jpeg",
			Body:        bytes.NewReader([]byte(fmt.Sprintf("img-%d", i))),
		}
	}
	return out
}

func countRequests(fb *fakebackend.Backend, method, pathPrefix string) int {
	n := 0
	for _, r := range fb.Requests() {
		if r.Method == method && strings.HasPrefix(r.Path, pathPrefix) {
			n++
		}
	}
	return n
}

func TestFeed_OnlyFollowedAuthors(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	require.NoError(t, f.c.Follow(ctx, f.users["alice"]))
	require.NoError(t, f.c.Follow(ctx, f.users["bob"]))

	f.seedMoment(f.users["alice"], "a1")
	f.seedMoment(f.users["carol"], "c1")
	f.seedMoment(f.users["bob"], "b1")
	f.seedMoment(f.viewer, "mine")
	f.seedMoment(f.users["alice"], "a2")
	f.fb.Seed("follows", fakebackend.Row{"follower_id": f.users["carol"].String(), "following_id": f.viewer.String()})
	require.NoError(t, f.c.Reload(ctx))

	items := f.c.Feed()
	var captions []string
	for _, it := range items {
		captions = append(captions, it.Moment.Caption)
	}
	assert.Equal(t, []string{"a2", "b1", "a1"}, captions)
	assert.Equal(t, "alice", items[0].Author.Username)
	assert.Equal(t, model.ImageURLs{"https://img/a2.jpg"}, items[0].Images)

	// 自己的动态在 summary 里
	sum := f.c.Summary()
	require.Len(t, sum.Moments, 1)
	assert.Equal(t, "mine", sum.Moments[0].Caption)
	assert.Equal(t, 2, sum.Following)
	assert.Equal(t, 1, sum.Followers)
	assert.Equal(t, "me@example.com", sum.Email)
}

func TestReload_SignedOut(t *testing.T) {
	fb := fakebackend.New(t)
	c := NewCoordinator(gateway.New(fb.URL(), fb.APIKey, session.NewMemoryStore()), Options{})

	err := c.Reload(context.Background())
	assert.ErrorIs(t, err, ErrNotAuthenticated)
	assert.Empty(t, fb.Requests())
	assert.ErrorIs(t, c.Errors().Last(), ErrNotAuthenticated)
}

func TestExpiredSession_NotAuthenticated(t *testing.T) {
	ctx := context.Background()
	fb := fakebackend.New(t)
	store := session.NewMemoryStore()
	require.NoError(t, store.Save(ctx, &model.Session{
		Token:     "stale",
		UserID:    "u1",
		ExpiresAt: time.Now().Add(-time.Minute),
	}))
	c := NewCoordinator(gateway.New(fb.URL(), fb.APIKey, store), Options{})

	assert.ErrorIs(t, c.Reload(ctx), ErrNotAuthenticated)
	_, err := c.ToggleLike(ctx, "m1")
	assert.ErrorIs(t, err, ErrNotAuthenticated)
	assert.Empty(t, fb.Requests())
}

func TestExpiredSession_UsesCoordinatorClock(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	me, err := f.c.Me(ctx)
	require.NoError(t, err)
	require.False(t, me.ExpiresAt.IsZero())

	later := NewCoordinator(f.gw, Options{Now: func() time.Time { return me.ExpiresAt.Add(time.Second) }})
	f.fb.ResetRequests()
	_, err = later.ToggleFollow(ctx, f.users["alice"])
	assert.ErrorIs(t, err, ErrNotAuthenticated)
	assert.Empty(t, f.fb.Requests())
}

func TestReload_FailureKeepsState(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	require.NoError(t, f.c.Follow(ctx, f.users["alice"]))
	before := f.c.Snapshot()

	f.fb.SetDown(true)
	err := f.c.Reload(ctx)
	var reqErr *gateway.RequestError
	require.ErrorAs(t, err, &reqErr)
	assert.Equal(t, 503, reqErr.Status)
	assert.Equal(t, before, f.c.Snapshot())
	assert.Equal(t, err, f.c.Errors().Last())
}

func TestToggleFollow_Parity(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	alice := f.users["alice"]

	for i := 1; i <= 5; i++ {
		following, err := f.c.ToggleFollow(ctx, alice)
		require.NoError(t, err)
		odd := i%2 == 1
		assert.Equal(t, odd, following)
		assert.Equal(t, odd, f.c.IsFollowing(alice))

		rows := 0
		for _, r := range f.fb.Rows("follows") {
			if r["follower_id"] == f.viewer.String() && r["following_id"] == alice.String() {
				rows++
			}
		}
		if odd {
			assert.Equal(t, 1, rows, "toggle %d", i)
		} else {
			assert.Equal(t, 0, rows, "toggle %d", i)
		}
	}
}

func TestFollow_Idempotent(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	bob := f.users["bob"]

	require.NoError(t, f.c.Follow(ctx, bob))
	require.NoError(t, f.c.Follow(ctx, bob))
	assert.Len(t, f.fb.Rows("follows"), 1)

	require.NoError(t, f.c.Unfollow(ctx, bob))
	require.NoError(t, f.c.Unfollow(ctx, bob))
	assert.Empty(t, f.fb.Rows("follows"))
}

// stallingGateway 让下一次 Session 调用停住，直到 release 关闭
type stallingGateway struct {
	*gateway.Client
	armed   atomic.Bool
	entered chan struct{}
	release chan struct{}
}

func newStallingGateway(gw *gateway.Client) *stallingGateway {
	return &stallingGateway{Client: gw, entered: make(chan struct{}), release: make(chan struct{})}
}

func (g *stallingGateway) Session(ctx context.Context) (*model.Session, error) {
	if g.armed.CompareAndSwap(true, false) {
		close(g.entered)
		<-g.release
	}
	return g.Client.Session(ctx)
}

func followRows(f *fixture, target model.ID) int {
	n := 0
	for _, r := range f.fb.Rows("follows") {
		if r["follower_id"] == f.viewer.String() && r["following_id"] == target.String() {
			n++
		}
	}
	return n
}

func TestFollow_OverlappingCallsStayIdempotent(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	bob := f.users["bob"]
	gw := newStallingGateway(f.gw)
	c := NewCoordinator(gw, Options{})
	require.NoError(t, c.Reload(ctx))

	gw.armed.Store(true)
	errc := make(chan error, 1)
	go func() { errc <- c.Follow(ctx, bob) }()
	<-gw.entered

	require.NoError(t, c.Follow(ctx, bob))
	close(gw.release)
	require.NoError(t, <-errc)

	assert.True(t, c.IsFollowing(bob), "two Follow calls must leave the viewer following")
	assert.Equal(t, 1, followRows(f, bob))
}

func TestUnfollow_OverlappingCallsStayIdempotent(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	bob := f.users["bob"]
	gw := newStallingGateway(f.gw)
	c := NewCoordinator(gw, Options{})
	require.NoError(t, c.Follow(ctx, bob))

	gw.armed.Store(true)
	errc := make(chan error, 1)
	go func() { errc <- c.Unfollow(ctx, bob) }()
	<-gw.entered

	require.NoError(t, c.Unfollow(ctx, bob))
	close(gw.release)
	require.NoError(t, <-errc)

	assert.False(t, c.IsFollowing(bob))
	assert.Zero(t, followRows(f, bob))
}

func TestFollow_ConcurrentMixed(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	bob := f.users["bob"]

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, f.c.Follow(ctx, bob))
		}()
	}
	wg.Wait()
	assert.True(t, f.c.IsFollowing(bob))
	assert.Equal(t, 1, followRows(f, bob))

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, f.c.Unfollow(ctx, bob))
		}()
	}
	wg.Wait()
	assert.False(t, f.c.IsFollowing(bob))
	assert.Zero(t, followRows(f, bob))
}

func TestToggleFollow_Self(t *testing.T) {
	f := setup(t)
	f.fb.ResetRequests()

	_, err := f.c.ToggleFollow(context.Background(), f.viewer)
	assert.ErrorIs(t, err, ErrFollowSelf)
	assert.Empty(t, f.fb.Rows("follows"))
	assert.Zero(t, countRequests(f.fb, "POST", "/rest/v1/follows"))
}

func TestToggleLike_LocalPatchWithoutReload(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	f.seedMoment(f.users["alice"], "a1")
	m := f.fb.Rows("moments")[0]
	mid := model.ID(m["id"].(string))

	f.fb.ResetRequests()
	liked, err := f.c.ToggleLike(ctx, mid)
	require.NoError(t, err)
	assert.True(t, liked)
	assert.Equal(t, 1, f.c.Engagement(mid).LikeCount)
	assert.True(t, f.c.Engagement(mid).Liked)
	// 只有一次 insert，没有 select
	assert.Zero(t, countRequests(f.fb, "GET", "/rest/v1/"))

	liked, err = f.c.ToggleLike(ctx, mid)
	require.NoError(t, err)
	assert.False(t, liked)
	assert.Equal(t, 0, f.c.Engagement(mid).LikeCount)
	assert.Empty(t, f.fb.Rows("likes"))
	assert.Zero(t, countRequests(f.fb, "GET", "/rest/v1/"))
}

func TestToggleLike_ConcurrentDoubleInvocation(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	mid := model.ID("m-1")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = f.c.ToggleLike(ctx, mid)
		}()
	}
	wg.Wait()

	rows := f.fb.Rows("likes")
	assert.LessOrEqual(t, len(rows), 1)
	assert.Equal(t, len(rows) == 1, f.c.Engagement(mid).Liked)
	assert.Equal(t, len(rows), f.c.Engagement(mid).LikeCount)
}

func TestPostMoment_Success(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	f.c.now = func() time.Time { return time.UnixMilli(1700000000000) }
	f.c.SetDraft("draft", images(1))

	m, err := f.c.PostMoment(ctx, "sunset", images(2))
	require.NoError(t, err)
	require.NotNil(t, m)

	objs := f.fb.Objects()
	require.Len(t, objs, 2)
	for _, o := range objs {
		assert.True(t, strings.HasPrefix(o, "Moments/1700000000000_"), o)
	}
	assert.True(t, strings.HasSuffix(objs[0], "_p0.jpg") || strings.HasSuffix(objs[1], "_p0.jpg"))

	imgs := m.Images()
	require.Len(t, imgs, 2)
	assert.True(t, strings.HasPrefix(imgs[0], f.gw.BaseURL()+"/storage/v1/object/public/Moments/1700000000000_"), imgs[0])
	assert.True(t, strings.HasSuffix(imgs[0], "_p0.jpg"))
	assert.True(t, strings.HasSuffix(imgs[1], "_p1.jpg"))

	// 重载后出现在自己的主页，草稿已清空
	sum := f.c.Summary()
	require.Len(t, sum.Moments, 1)
	assert.Equal(t, "sunset", sum.Moments[0].Caption)
	assert.Equal(t, Draft{}, f.c.Draft())
}

func TestPostMoment_LocalValidation(t *testing.T) {
	f := setup(t)
	before := f.c.Snapshot()
	f.fb.ResetRequests()

	cases := []struct {
		caption string
		images  []Image
		field   string
	}{
		{"", images(1), "caption"},
		{"   ", images(1), "caption"},
		{"hello", nil, "images"},
		{"hello", []Image{{Name: "x.jpg"}}, "images"},
	}
	for _, tc := range cases {
		_, err := f.c.PostMoment(context.Background(), tc.caption, tc.images)
		var vErr *ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Equal(t, tc.field, vErr.Field)
	}
	assert.Empty(t, f.fb.Requests())
	assert.Equal(t, before, f.c.Snapshot())
	assert.NoError(t, f.c.Errors().Last())
}

func TestPostMoment_UploadFailureAborts(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	f.fb.FailUpload(2)

	_, err := f.c.PostMoment(ctx, "trip", images(3))
	var upErr *gateway.UploadError
	require.ErrorAs(t, err, &upErr)
	assert.Equal(t, "upload failed: simulated upload failure", err.Error())
	assert.Equal(t, err, f.c.Errors().Last())

	// 第一张留在存储里，第三张没有上传，moment 未写入
	assert.Len(t, f.fb.Objects(), 1)
	assert.Equal(t, 2, countRequests(f.fb, "POST", "/storage/v1/object/"))
	assert.Empty(t, f.fb.Rows("moments"))
}

func TestAddComment(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	require.NoError(t, f.c.Reload(ctx))

	f.fb.ResetRequests()
	_, err := f.c.AddComment(ctx, "m1", "   ")
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Empty(t, f.fb.Requests())

	c, err := f.c.AddComment(ctx, "m1", "  nice shot  ")
	require.NoError(t, err)
	assert.Equal(t, "nice shot", c.Text)

	// 只重载该条评论，不重载 feed
	assert.Zero(t, countRequests(f.fb, "GET", "/rest/v1/moments"))
	assert.Equal(t, 1, countRequests(f.fb, "GET", "/rest/v1/comments"))

	momentID, list := f.c.Comments()
	assert.Equal(t, model.ID("m1"), momentID)
	require.Len(t, list, 1)
	assert.Equal(t, "me", list[0].Username)
}

func TestLoadComments_FailureLeavesListUnchanged(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	_, err := f.c.AddComment(ctx, "m1", "first")
	require.NoError(t, err)

	f.fb.SetDown(true)
	f.c.LoadComments(ctx, "m2")

	id, list := f.c.Comments()
	assert.Equal(t, model.ID("m1"), id)
	require.Len(t, list, 1)
	assert.Equal(t, "first", list[0].Text)
	assert.NoError(t, f.c.Errors().Last())
}

func TestSignUp_RetriesProfileInsert(t *testing.T) {
	ctx := context.Background()
	fb := fakebackend.New(t)
	fb.DelayProfiles(2)
	c := NewCoordinator(gateway.New(fb.URL(), fb.APIKey, session.NewMemoryStore()),
		Options{ProfileRetryMax: 5, ProfileRetryInitial: time.Millisecond})

	resp, err := c.SignUp(ctx, "new@example.com", "pw", "newbie")
	require.NoError(t, err)
	require.NotNil(t, resp.User)

	profiles := fb.Rows("profiles")
	require.Len(t, profiles, 1)
	assert.Equal(t, "newbie", profiles[0]["username"])
	assert.Equal(t, 3, countRequests(fb, "POST", "/rest/v1/profiles"))

	me, err := c.Me(ctx)
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, me.UserID)
	sum := c.Summary()
	require.NotNil(t, sum.Profile)
	assert.Equal(t, "newbie", sum.Profile.Username)
}

func TestSignUp_ProfileRetryExhausted(t *testing.T) {
	fb := fakebackend.New(t)
	fb.DelayProfiles(10)
	c := NewCoordinator(gateway.New(fb.URL(), fb.APIKey, session.NewMemoryStore()),
		Options{ProfileRetryMax: 3, ProfileRetryInitial: time.Millisecond})

	_, err := c.SignUp(context.Background(), "new@example.com", "pw", "newbie")
	var reqErr *gateway.RequestError
	require.ErrorAs(t, err, &reqErr)
	assert.Equal(t, 409, reqErr.Status)
	assert.Equal(t, 3, countRequests(fb, "POST", "/rest/v1/profiles"))
}

func TestCreateProfile_DuplicateNotRetried(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	c := NewCoordinator(f.gw, Options{ProfileRetryMax: 5, ProfileRetryInitial: time.Millisecond})
	f.fb.ResetRequests()

	// SeedUser 已经写过这个 profile
	err := c.createProfile(ctx, model.Profile{ID: f.viewer, Username: "me", Email: "me@example.com"})
	var reqErr *gateway.RequestError
	require.ErrorAs(t, err, &reqErr)
	assert.Equal(t, 409, reqErr.Status)
	assert.Equal(t, "23505", reqErr.Code)
	assert.Equal(t, 1, countRequests(f.fb, "POST", "/rest/v1/profiles"))
}

func TestRetryableProfileError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"fk not yet visible", &gateway.RequestError{Status: 409, Code: "23503", Message: "violates foreign key constraint"}, true},
		{"fk by message only", &gateway.RequestError{Status: 409, Message: `violates foreign key constraint "profiles_id_fkey"`}, true},
		{"duplicate", &gateway.RequestError{Status: 409, Code: "23505", Message: "duplicate key value"}, false},
		{"bad request", &gateway.RequestError{Status: 400, Message: "invalid JSON body"}, false},
		{"unprocessable", &gateway.RequestError{Status: 422, Message: "bad column"}, false},
		{"rls not yet applied", &gateway.RequestError{Status: 403, Message: "permission denied"}, true},
		{"unauthorized", &gateway.RequestError{Status: 401, Message: "JWT expired"}, true},
		{"rate limited", &gateway.RequestError{Status: 429, Message: "slow down"}, true},
		{"server", &gateway.RequestError{Status: 503, Message: "service unavailable"}, true},
		{"network", errors.New("connection refused"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, retryableProfileError(tt.err))
		})
	}
}

func TestSignIn_BadCredentialsRecorded(t *testing.T) {
	f := setup(t)
	_, err := f.c.SignIn(context.Background(), "me@example.com", "wrong")
	var authErr *gateway.AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, "Invalid login credentials", f.c.Errors().Last().Error())
}

func TestSignOut_ClearsState(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	require.NoError(t, f.c.Follow(ctx, f.users["alice"]))

	require.NoError(t, f.c.SignOut(ctx))
	assert.Equal(t, State{}, f.c.Snapshot())
	_, err := f.c.Me(ctx)
	assert.ErrorIs(t, err, ErrNotAuthenticated)

	_, err = f.c.ToggleLike(ctx, "m1")
	assert.True(t, errors.Is(err, ErrNotAuthenticated))
}

func TestSearch(t *testing.T) {
	f := setup(t)
	got := f.c.Search("AL")
	require.Len(t, got, 1)
	assert.Equal(t, "alice", got[0].Username)
	assert.Len(t, f.c.Search(""), 3)
}

func TestErrorSlot_Reports(t *testing.T) {
	var reported []error
	slot := NewErrorSlot(func(err error) { reported = append(reported, err) })
	boom := errors.New("boom")

	slot.Set(boom)
	assert.Equal(t, boom, slot.Last())
	slot.Clear()
	assert.NoError(t, slot.Last())
	assert.Equal(t, []error{boom}, reported)
}
