package repository

import (
	"context"

	"github.com/d60-Lab/moments/internal/gateway"
	"github.com/d60-Lab/moments/internal/model"
)

type ProfileRepository interface {
	List(ctx context.Context) ([]model.Profile, error)
	Create(ctx context.Context, p model.Profile) (*model.Profile, error)
}

type profileRepository struct{ gw RowGateway }

func NewProfileRepository(gw RowGateway) ProfileRepository { return &profileRepository{gw: gw} }

func (r *profileRepository) List(ctx context.Context) ([]model.Profile, error) {
	var res []model.Profile
	err := r.gw.Select(ctx, model.Profile{}.TableName(), gateway.NewQuery().Select("*"), &res)
	return res, err
}

func (r *profileRepository) Create(ctx context.Context, p model.Profile) (*model.Profile, error) {
	var rows []model.Profile
	if err := r.gw.Insert(ctx, model.Profile{}.TableName(), p, &rows); err != nil {
		return nil, err
	}
	return first(rows), nil
}
