package repository

import (
	"context"

	"github.com/d60-Lab/moments/internal/gateway"
	"github.com/d60-Lab/moments/internal/model"
)

type LikeRepository interface {
	List(ctx context.Context) ([]model.Like, error)
	Create(ctx context.Context, userID, momentID model.ID) (*model.Like, error)
	Delete(ctx context.Context, id model.ID) error
}

type likeRepository struct{ gw RowGateway }

func NewLikeRepository(gw RowGateway) LikeRepository { return &likeRepository{gw: gw} }

type likeInsert struct {
	UserID   model.ID `json:"user_id"`
	MomentID model.ID `json:"moment_id"`
}

func (r *likeRepository) List(ctx context.Context) ([]model.Like, error) {
	var res []model.Like
	err := r.gw.Select(ctx, model.Like{}.TableName(), gateway.NewQuery().Select("*"), &res)
	return res, err
}

func (r *likeRepository) Create(ctx context.Context, userID, momentID model.ID) (*model.Like, error) {
	var rows []model.Like
	if err := r.gw.Insert(ctx, model.Like{}.TableName(), likeInsert{UserID: userID, MomentID: momentID}, &rows); err != nil {
		return nil, err
	}
	return first(rows), nil
}

func (r *likeRepository) Delete(ctx context.Context, id model.ID) error {
	return r.gw.Delete(ctx, model.Like{}.TableName(), id.String())
}
