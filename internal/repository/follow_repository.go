package repository

import (
	"context"

	"github.com/d60-Lab/moments/internal/gateway"
	"github.com/d60-Lab/moments/internal/model"
)

type FollowRepository interface {
	Create(ctx context.Context, followerID, followingID model.ID) (*model.Follow, error)
	Delete(ctx context.Context, id model.ID) error
	ListFollowings(ctx context.Context, followerID model.ID) ([]model.Follow, error)
	ListFollowers(ctx context.Context, followingID model.ID) ([]model.Follow, error)
}

type followRepository struct {
	gw RowGateway
}

func NewFollowRepository(gw RowGateway) FollowRepository { return &followRepository{gw: gw} }

type followInsert struct {
	FollowerID  model.ID `json:"follower_id"`
	FollowingID model.ID `json:"following_id"`
}

// Create 不做查重，(follower, following) 唯一性由调用方先查内存列表保证
func (r *followRepository) Create(ctx context.Context, followerID, followingID model.ID) (*model.Follow, error) {
	var rows []model.Follow
	if err := r.gw.Insert(ctx, model.Follow{}.TableName(), followInsert{FollowerID: followerID, FollowingID: followingID}, &rows); err != nil {
		return nil, err
	}
	return first(rows), nil
}

func (r *followRepository) Delete(ctx context.Context, id model.ID) error {
	return r.gw.Delete(ctx, model.Follow{}.TableName(), id.String())
}

func (r *followRepository) ListFollowings(ctx context.Context, followerID model.ID) ([]model.Follow, error) {
	var res []model.Follow
	err := r.gw.Select(ctx, model.Follow{}.TableName(), gateway.NewQuery().Eq("follower_id", followerID.String()), &res)
	return res, err
}

func (r *followRepository) ListFollowers(ctx context.Context, followingID model.ID) ([]model.Follow, error) {
	var res []model.Follow
	err := r.gw.Select(ctx, model.Follow{}.TableName(), gateway.NewQuery().Eq("following_id", followingID.String()), &res)
	return res, err
}
