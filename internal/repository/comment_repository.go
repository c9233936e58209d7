package repository

import (
	"context"

	"github.com/d60-Lab/moments/internal/gateway"
	"github.com/d60-Lab/moments/internal/model"
)

type CommentRepository interface {
	// ListByMoment 按 created_at 正序
	ListByMoment(ctx context.Context, momentID model.ID) ([]model.Comment, error)
	Create(ctx context.Context, momentID, userID model.ID, text string) (*model.Comment, error)
}

type commentRepository struct{ gw RowGateway }

func NewCommentRepository(gw RowGateway) CommentRepository { return &commentRepository{gw: gw} }

type commentInsert struct {
	MomentID model.ID `json:"moment_id"`
	UserID   model.ID `json:"user_id"`
	Text     string   `json:"text"`
}

func (r *commentRepository) ListByMoment(ctx context.Context, momentID model.ID) ([]model.Comment, error) {
	q := gateway.NewQuery().Eq("moment_id", momentID.String()).Order("created_at", gateway.Asc)
	var res []model.Comment
	err := r.gw.Select(ctx, model.Comment{}.TableName(), q, &res)
	return res, err
}

func (r *commentRepository) Create(ctx context.Context, momentID, userID model.ID, text string) (*model.Comment, error) {
	var rows []model.Comment
	if err := r.gw.Insert(ctx, model.Comment{}.TableName(), commentInsert{MomentID: momentID, UserID: userID, Text: text}, &rows); err != nil {
		return nil, err
	}
	return first(rows), nil
}
