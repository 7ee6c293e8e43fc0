package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/cheroliv/blogger/internal/model"
	"github.com/jackc/pgx/v5"
)

var articleColumns = map[string]string{
	"id":      "a.id",
	"title":   "a.title",
	"content": "a.content",
}

const articleSelect = `
	SELECT a.id, a.title, a.content,
	       p.id, p.name, p.username, p.email, p.company, p.website
	FROM article a
	JOIN person p ON p.id = a.person_id`

// ArticleRepository provides database access for articles.
type ArticleRepository struct {
	repo *Repository
}

// NewArticleRepository creates a new ArticleRepository.
func NewArticleRepository(repo *Repository) *ArticleRepository {
	return &ArticleRepository{repo: repo}
}

// Save inserts a transient article or overwrites a persisted one. The
// returned article carries the full referenced person.
func (r *ArticleRepository) Save(ctx context.Context, a *model.Article) (*model.Article, error) {
	personID := a.PersonID()
	if personID == nil {
		return nil, ErrReferenceNotFound
	}
	db := r.repo.db(ctx)

	var id int64
	if a.ID == nil {
		query := `
			INSERT INTO article (title, content, person_id)
			VALUES ($1, $2, $3)
			RETURNING id
		`
		if err := db.QueryRow(ctx, query, a.Title, a.Content, *personID).Scan(&id); err != nil {
			if isForeignKeyViolation(err) {
				return nil, ErrReferenceNotFound
			}
			return nil, fmt.Errorf("failed to create article: %w", err)
		}
	} else {
		id = *a.ID
		query := `
			UPDATE article
			SET title = $2, content = $3, person_id = $4
			WHERE id = $1
		`
		result, err := db.Exec(ctx, query, id, a.Title, a.Content, *personID)
		if err != nil {
			if isForeignKeyViolation(err) {
				return nil, ErrReferenceNotFound
			}
			return nil, fmt.Errorf("failed to update article: %w", err)
		}
		if result.RowsAffected() == 0 {
			return nil, ErrNotFound
		}
	}

	return r.FindByID(ctx, id)
}

// FindByID retrieves an article and its person by id.
func (r *ArticleRepository) FindByID(ctx context.Context, id int64) (*model.Article, error) {
	a, err := scanArticle(r.repo.db(ctx).QueryRow(ctx, articleSelect+` WHERE a.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get article by ID: %w", err)
	}
	return a, nil
}

// ExistsByID checks whether an article exists.
func (r *ArticleRepository) ExistsByID(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := r.repo.db(ctx).QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM article WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check article existence: %w", err)
	}
	return exists, nil
}

// DeleteByID removes an article. Deleting an absent id is not an error.
func (r *ArticleRepository) DeleteByID(ctx context.Context, id int64) error {
	if _, err := r.repo.db(ctx).Exec(ctx, `DELETE FROM article WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete article: %w", err)
	}
	return nil
}

// FindAll returns one page of articles, optionally restricted to authors.
func (r *ArticleRepository) FindAll(ctx context.Context, req model.PageRequest, filter model.Filter) (*model.Page[*model.Article], error) {
	order, err := orderBy(req.Sort, articleColumns)
	if err != nil {
		return nil, err
	}

	where := &whereClause{}
	where.anyOf("a.id", filter.IDs)
	where.anyOf("a.person_id", filter.PersonIDs)

	db := r.repo.db(ctx)

	var total int64
	if err := db.QueryRow(ctx, `SELECT COUNT(*) FROM article a`+where.String(), where.args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count articles: %w", err)
	}

	query := articleSelect + where.String() + order
	query += where.limitOffset(req)

	rows, err := db.Query(ctx, query, where.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list articles: %w", err)
	}
	defer rows.Close()

	articles := make([]*model.Article, 0, req.Size)
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan article: %w", err)
		}
		articles = append(articles, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating articles: %w", err)
	}

	return &model.Page[*model.Article]{Content: articles, Total: total, Page: req.Page, Size: req.Size}, nil
}

// scanArticle scans a joined row into an Article with its Person.
func scanArticle(row pgx.Row) (*model.Article, error) {
	var a model.Article
	var p model.Person
	err := row.Scan(
		&a.ID,
		&a.Title,
		&a.Content,
		&p.ID,
		&p.Name,
		&p.Username,
		&p.Email,
		&p.Company,
		&p.Website,
	)
	a.Person = &p
	return &a, err
}
