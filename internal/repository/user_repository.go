package repository

import (
	"context"

	"shopapi/internal/domain/model"
)

type UserRepository interface {
	FindByID(ctx context.Context, userID int64) (model.User, error)
}
