package service

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/d60-Lab/moments/internal/feed"
	"github.com/d60-Lab/moments/internal/gateway"
	"github.com/d60-Lab/moments/internal/model"
	"github.com/d60-Lab/moments/internal/repository"
	"github.com/d60-Lab/moments/internal/session"
	"github.com/d60-Lab/moments/pkg/logger"
)

// Gateway 协调器依赖的后端能力，由 *gateway.Client 实现
type Gateway interface {
	repository.RowGateway
	SignUp(ctx context.Context, email, password, username string) (*gateway.AuthResponse, error)
	SignIn(ctx context.Context, email, password string) (*gateway.AuthResponse, error)
	SignOut(ctx context.Context) error
	Session(ctx context.Context) (*model.Session, error)
	UploadFile(ctx context.Context, bucket, path string, blob io.Reader, contentType string) (*gateway.UploadResult, error)
	PublicURL(bucket, path string) string
}

var _ Gateway = (*gateway.Client)(nil)

type Options struct {
	Bucket              string
	ProfileRetryMax     uint
	ProfileRetryInitial time.Duration
	// Errors 不传则新建
	Errors *ErrorSlot
	// Now 生成上传路径用，测试可替换
	Now func() time.Time
}

// State 客户端持有的只读副本，Reload 后整体替换
type State struct {
	ViewerID    model.ID        `json:"viewer_id"`
	ViewerEmail string          `json:"viewer_email"`
	Profiles    []model.Profile `json:"profiles"`
	Following   []model.Follow  `json:"following"`
	Followers   []model.Follow  `json:"followers"`
	Moments     []model.Moment  `json:"moments"`
	Likes       []model.Like    `json:"likes"`
	CommentsFor model.ID        `json:"comments_for,omitempty"`
	Comments    []model.Comment `json:"comments"`
	Draft       Draft           `json:"-"`
}

// Coordinator 执行写操作并维护本地状态。
// 关注、发布走“写后全量重载”；点赞直接修补本地列表，不重载；评论只重载该条 moment 的评论。
type Coordinator struct {
	gw       Gateway
	profiles repository.ProfileRepository
	follows  repository.FollowRepository
	moments  repository.MomentRepository
	likes    repository.LikeRepository
	comments repository.CommentRepository

	bucket       string
	retryMax     uint
	retryInitial time.Duration
	now          func() time.Time
	errs         *ErrorSlot

	// 同一目标的并发切换合并为一次请求
	flight  singleflight.Group
	loading atomic.Int32

	// followMu 串行化关注写操作
	followMu sync.Mutex

	mu    sync.RWMutex
	state State
}

func NewCoordinator(gw Gateway, opts Options) *Coordinator {
	if opts.Bucket == "" {
		opts.Bucket = "Moments"
	}
	if opts.ProfileRetryMax == 0 {
		opts.ProfileRetryMax = 5
	}
	if opts.ProfileRetryInitial <= 0 {
		opts.ProfileRetryInitial = 200 * time.Millisecond
	}
	if opts.Errors == nil {
		opts.Errors = NewErrorSlot(nil)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Coordinator{
		gw:           gw,
		profiles:     repository.NewProfileRepository(gw),
		follows:      repository.NewFollowRepository(gw),
		moments:      repository.NewMomentRepository(gw),
		likes:        repository.NewLikeRepository(gw),
		comments:     repository.NewCommentRepository(gw),
		bucket:       opts.Bucket,
		retryMax:     opts.ProfileRetryMax,
		retryInitial: opts.ProfileRetryInitial,
		now:          opts.Now,
		errs:         opts.Errors,
	}
}

// Errors 最近一次错误槽
func (c *Coordinator) Errors() *ErrorSlot { return c.errs }

// Loading 是否有请求在途
func (c *Coordinator) Loading() bool { return c.loading.Load() > 0 }

func (c *Coordinator) begin() func() {
	c.loading.Add(1)
	return func() { c.loading.Add(-1) }
}

// fail 记录并原样返回错误
func (c *Coordinator) fail(err error) error {
	c.errs.Set(err)
	return err
}

// viewer 每次都从会话存储读取当前身份
func (c *Coordinator) viewer(ctx context.Context) (*model.Session, error) {
	sess, err := c.gw.Session(ctx)
	if errors.Is(err, session.ErrNoSession) {
		return nil, ErrNotAuthenticated
	}
	if err != nil {
		return nil, err
	}
	if sess.Expired(c.now()) {
		return nil, ErrNotAuthenticated
	}
	return sess, nil
}

// Reload 重新拉取全部基础表。profiles、likes、followers 与 follows→moments 链并发执行；
// 任一失败则本地状态保持不变。
func (c *Coordinator) Reload(ctx context.Context) error {
	defer c.begin()()

	sess, err := c.viewer(ctx)
	if err != nil {
		logger.Debug("reload skipped", zap.Error(err))
		return c.fail(err)
	}

	var (
		profiles  []model.Profile
		following []model.Follow
		followers []model.Follow
		moments   []model.Moment
		likes     []model.Like
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		profiles, err = c.profiles.List(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		following, err = c.follows.ListFollowings(gctx, sess.UserID)
		if err != nil {
			return err
		}
		ids := make([]model.ID, 0, len(following)+1)
		for _, f := range following {
			ids = append(ids, f.FollowingID)
		}
		ids = append(ids, sess.UserID)
		moments, err = c.moments.ListByAuthors(gctx, ids)
		return err
	})
	g.Go(func() (err error) {
		likes, err = c.likes.List(gctx)
		return err
	})
	g.Go(func() (err error) {
		followers, err = c.follows.ListFollowers(gctx, sess.UserID)
		return err
	})
	if err := g.Wait(); err != nil {
		logger.Warn("reload failed", zap.String("viewer", sess.UserID.String()), zap.Error(err))
		return c.fail(err)
	}

	c.mu.Lock()
	c.state.ViewerID = sess.UserID
	c.state.ViewerEmail = sess.Email
	c.state.Profiles = profiles
	c.state.Following = following
	c.state.Followers = followers
	c.state.Moments = moments
	c.state.Likes = likes
	c.mu.Unlock()

	c.errs.Clear()
	return nil
}

// Snapshot 当前状态的拷贝
func (c *Coordinator) Snapshot() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s := c.state
	s.Profiles = append([]model.Profile(nil), s.Profiles...)
	s.Following = append([]model.Follow(nil), s.Following...)
	s.Followers = append([]model.Follow(nil), s.Followers...)
	s.Moments = append([]model.Moment(nil), s.Moments...)
	s.Likes = append([]model.Like(nil), s.Likes...)
	s.Comments = append([]model.Comment(nil), s.Comments...)
	s.Draft.Images = append([]Image(nil), s.Draft.Images...)
	return s
}

// Feed 由本地状态组装 feed
func (c *Coordinator) Feed() []feed.Item {
	s := c.Snapshot()
	return feed.AssembleFeed(s.Moments, s.Profiles, s.Following, s.ViewerID)
}

// Album 作者相册，定位到 momentID
func (c *Coordinator) Album(authorID, momentID model.ID) feed.Album {
	s := c.Snapshot()
	return feed.AssembleAlbum(s.Moments, s.Profiles, authorID, momentID)
}

// Search 按用户名 / 邮箱搜索其他用户
func (c *Coordinator) Search(query string) []model.Profile {
	s := c.Snapshot()
	return feed.SearchProfiles(s.Profiles, s.ViewerID, query)
}

// Summary 当前用户主页
func (c *Coordinator) Summary() feed.Summary {
	s := c.Snapshot()
	// 自己关注自己的行两边都有，只算一次
	follows := append([]model.Follow(nil), s.Following...)
	seen := make(map[model.ID]struct{}, len(follows))
	for _, f := range follows {
		seen[f.ID] = struct{}{}
	}
	for _, f := range s.Followers {
		if _, dup := seen[f.ID]; !dup {
			follows = append(follows, f)
		}
	}
	return feed.Summarize(s.Moments, s.Profiles, follows, s.ViewerID, s.ViewerEmail)
}

// Engagement 某条 moment 的点赞数与当前用户是否已赞
func (c *Coordinator) Engagement(momentID model.ID) feed.Engagement {
	s := c.Snapshot()
	return feed.EngagementFor(s.Likes, s.ViewerID, momentID)
}

// Comments 最近一次成功加载的评论（带作者名）
func (c *Coordinator) Comments() (model.ID, []feed.CommentView) {
	s := c.Snapshot()
	return s.CommentsFor, feed.AttachAuthors(s.Comments, s.Profiles)
}

func (c *Coordinator) reset() {
	c.mu.Lock()
	c.state = State{}
	c.mu.Unlock()
}
