package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"intelwire/internal/domain/entity"
	"intelwire/internal/repository"
)

type ArticleRepo struct{ db *sql.DB }

func NewArticleRepo(db *sql.DB) repository.ArticleRepository {
	return &ArticleRepo{db: db}
}

func scanArticle(rows *sql.Rows) (*entity.Article, error) {
	var article entity.Article
	var topicsJSON []byte
	if err := rows.Scan(
		&article.ID, &article.SourceID, &article.Title, &article.Content,
		&article.Summary, &topicsJSON, &article.Status, &article.Confidence,
		&article.CreatedAt,
	); err != nil {
		return nil, err
	}
	if len(topicsJSON) > 0 {
		if err := json.Unmarshal(topicsJSON, &article.Topics); err != nil {
			return nil, fmt.Errorf("unmarshal topics: %w", err)
		}
	}
	return &article, nil
}

func (repo *ArticleRepo) Get(ctx context.Context, id int64) (*entity.Article, error) {
	const query = `
SELECT id, source_id, title, content, summary, topics, status, confidence, created_at
FROM articles
WHERE id = $1
LIMIT 1`
	var article entity.Article
	var topicsJSON []byte
	err := repo.db.QueryRowContext(ctx, query, id).Scan(
		&article.ID, &article.SourceID, &article.Title, &article.Content,
		&article.Summary, &topicsJSON, &article.Status, &article.Confidence,
		&article.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, entity.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}
	if len(topicsJSON) > 0 {
		if err := json.Unmarshal(topicsJSON, &article.Topics); err != nil {
			return nil, fmt.Errorf("Get: unmarshal topics: %w", err)
		}
	}
	return &article, nil
}

func (repo *ArticleRepo) List(ctx context.Context, limit, offset int) ([]*entity.Article, error) {
	const query = `
SELECT id, source_id, title, content, summary, topics, status, confidence, created_at
FROM articles
ORDER BY created_at DESC
LIMIT $1 OFFSET $2`
	rows, err := repo.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("List: %w", err)
	}
	defer func() { _ = rows.Close() }()

	articles := make([]*entity.Article, 0, limit)
	for rows.Next() {
		article, err := scanArticle(rows)
		if err != nil {
			return nil, fmt.Errorf("List: %w", err)
		}
		articles = append(articles, article)
	}
	return articles, rows.Err()
}

func (repo *ArticleRepo) Create(ctx context.Context, article *entity.Article) error {
	topics := article.Topics
	if topics == nil {
		topics = []string{}
	}
	topicsJSON, err := json.Marshal(topics)
	if err != nil {
		return fmt.Errorf("Create: marshal topics: %w", err)
	}

	const query = `
INSERT INTO articles (source_id, title, content, summary, topics, status, confidence, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING id`
	err = repo.db.QueryRowContext(ctx, query,
		article.SourceID, article.Title, article.Content, article.Summary,
		topicsJSON, article.Status, article.Confidence, article.CreatedAt,
	).Scan(&article.ID)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (repo *ArticleRepo) Delete(ctx context.Context, id int64) error {
	const query = `DELETE FROM articles WHERE id = $1`
	res, err := repo.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("Delete: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("Delete: no rows affected")
	}
	return nil
}
