package repository

import (
	"context"

	"github.com/d60-Lab/moments/internal/gateway"
	"github.com/d60-Lab/moments/internal/model"
)

type MomentRepository interface {
	// ListByAuthors 按 created_at 倒序
	ListByAuthors(ctx context.Context, authorIDs []model.ID) ([]model.Moment, error)
	Create(ctx context.Context, userID model.ID, images model.ImageURLs, caption string) (*model.Moment, error)
}

type momentRepository struct{ gw RowGateway }

func NewMomentRepository(gw RowGateway) MomentRepository { return &momentRepository{gw: gw} }

type momentInsert struct {
	UserID   model.ID `json:"user_id"`
	ImageURL string   `json:"image_url"`
	Caption  string   `json:"caption"`
}

func (r *momentRepository) ListByAuthors(ctx context.Context, authorIDs []model.ID) ([]model.Moment, error) {
	if len(authorIDs) == 0 {
		return []model.Moment{}, nil
	}
	q := gateway.NewQuery().
		In("user_id", idStrings(authorIDs)...).
		Order("created_at", gateway.Desc)
	var res []model.Moment
	err := r.gw.Select(ctx, model.Moment{}.TableName(), q, &res)
	return res, err
}

func (r *momentRepository) Create(ctx context.Context, userID model.ID, images model.ImageURLs, caption string) (*model.Moment, error) {
	encoded, err := model.EncodeImageURLs(images)
	if err != nil {
		return nil, err
	}
	var rows []model.Moment
	if err := r.gw.Insert(ctx, model.Moment{}.TableName(), momentInsert{UserID: userID, ImageURL: encoded, Caption: caption}, &rows); err != nil {
		return nil, err
	}
	return first(rows), nil
}
