package repository

import (
	"context"

	"intelwire/internal/domain/entity"
)

type ArticleRepository interface {
	Get(ctx context.Context, id int64) (*entity.Article, error)
	List(ctx context.Context, limit, offset int) ([]*entity.Article, error)
	Create(ctx context.Context, article *entity.Article) error
	Delete(ctx context.Context, id int64) error
}
