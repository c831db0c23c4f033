package repository

import (
	"context"

	"bookstore/internal/domain/model"
)

// ユーザーは認証側の持ち物。ここでは参照とtoken_versionだけ。
type UserRepository interface {
	// IDからユーザーを1件取得する。
	FindByID(ctx context.Context, userID int64) (model.User, error)
	//トークンのバージョンを＋１
	IncrementTokenVersion(ctx context.Context, userID int64) error
}
