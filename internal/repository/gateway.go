package repository

import (
	"context"

	"github.com/d60-Lab/moments/internal/gateway"
)

// RowGateway 仓储依赖的行级访问能力，由 *gateway.Client 实现
type RowGateway interface {
	Select(ctx context.Context, table string, q gateway.Query, dest any) error
	Insert(ctx context.Context, table string, record any, dest any) error
	Update(ctx context.Context, table, id string, partial any, dest any) error
	Delete(ctx context.Context, table, id string) error
}

var _ RowGateway = (*gateway.Client)(nil)

// first 取 return=representation 返回的第一行，后端未返回时为 nil
func first[T any](rows []T) *T {
	if len(rows) == 0 {
		return nil
	}
	return &rows[0]
}

func idStrings[T ~string](ids []T) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = string(id)
	}
	return out
}
