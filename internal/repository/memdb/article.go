package memdb

import (
	"context"
	"fmt"
	"slices"

	"github.com/cheroliv/blogger/internal/model"
	"github.com/cheroliv/blogger/internal/repository"
	"github.com/hashicorp/go-memdb"
)

type articleRow struct {
	ID       int64
	Title    *string
	Content  *string
	PersonID int64
}

var articleFields = map[string]field[*articleRow]{
	"id":      func(r *articleRow) any { return r.ID },
	"title":   func(r *articleRow) any { return r.Title },
	"content": func(r *articleRow) any { return r.Content },
}

// ArticleStore stores articles. Reads resolve the referenced person.
type ArticleStore struct {
	s *Store
}

// Articles returns the article store.
func (s *Store) Articles() *ArticleStore {
	return &ArticleStore{s: s}
}

func (r *ArticleStore) toModel(txn *memdb.Txn, row *articleRow) (*model.Article, error) {
	a := &model.Article{
		ID:      model.Int64Ptr(row.ID),
		Title:   row.Title,
		Content: row.Content,
	}
	p, ok, err := first[*personRow](txn, PersonTable, ID, row.PersonID)
	if err != nil {
		return nil, err
	}
	if ok {
		a.Person = p.toModel()
	} else {
		a.Person = &model.Person{ID: model.Int64Ptr(row.PersonID)}
	}
	return a.Clone(), nil
}

// Save inserts a transient article or overwrites a persisted one.
func (r *ArticleStore) Save(ctx context.Context, a *model.Article) (*model.Article, error) {
	personID := a.PersonID()
	if personID == nil {
		return nil, repository.ErrReferenceNotFound
	}

	var saved *model.Article
	err := r.s.write(ctx, func(txn *memdb.Txn) error {
		_, ok, err := first[*personRow](txn, PersonTable, ID, *personID)
		if err != nil {
			return err
		}
		if !ok {
			return repository.ErrReferenceNotFound
		}

		var id int64
		if a.ID == nil {
			id = r.s.articleSeq.Add(1)
		} else {
			id = *a.ID
			_, ok, err := first[*articleRow](txn, ArticleTable, ID, id)
			if err != nil {
				return err
			}
			if !ok {
				return repository.ErrNotFound
			}
		}

		c := a.Clone()
		row := &articleRow{ID: id, Title: c.Title, Content: c.Content, PersonID: *personID}
		if err := txn.Insert(ArticleTable, row); err != nil {
			return fmt.Errorf("failed to save article: %w", err)
		}
		saved, err = r.toModel(txn, row)
		return err
	})
	return saved, err
}

// FindByID retrieves an article by id.
func (r *ArticleStore) FindByID(ctx context.Context, id int64) (*model.Article, error) {
	txn := r.s.read(ctx)
	row, ok, err := first[*articleRow](txn, ArticleTable, ID, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get article by ID: %w", err)
	}
	if !ok {
		return nil, repository.ErrNotFound
	}
	return r.toModel(txn, row)
}

// ExistsByID checks whether an article exists.
func (r *ArticleStore) ExistsByID(ctx context.Context, id int64) (bool, error) {
	_, ok, err := first[*articleRow](r.s.read(ctx), ArticleTable, ID, id)
	return ok, err
}

// DeleteByID removes an article. Deleting an absent id is not an error.
func (r *ArticleStore) DeleteByID(ctx context.Context, id int64) error {
	return r.s.write(ctx, func(txn *memdb.Txn) error {
		if _, err := txn.DeleteAll(ArticleTable, ID, id); err != nil {
			return fmt.Errorf("failed to delete article: %w", err)
		}
		return nil
	})
}

// FindAll returns one page of articles, optionally restricted to authors.
func (r *ArticleStore) FindAll(ctx context.Context, req model.PageRequest, filter model.Filter) (*model.Page[*model.Article], error) {
	txn := r.s.read(ctx)
	rows, err := all[*articleRow](txn, ArticleTable)
	if err != nil {
		return nil, fmt.Errorf("failed to list articles: %w", err)
	}
	rows = slices.DeleteFunc(rows, func(row *articleRow) bool {
		if len(filter.IDs) > 0 && !slices.Contains(filter.IDs, row.ID) {
			return true
		}
		return len(filter.PersonIDs) > 0 && !slices.Contains(filter.PersonIDs, row.PersonID)
	})
	if err := sortRows(rows, req.Sort, articleFields); err != nil {
		return nil, err
	}

	var convErr error
	page := paginate(rows, req, func(row *articleRow) *model.Article {
		a, err := r.toModel(txn, row)
		if err != nil && convErr == nil {
			convErr = err
		}
		return a
	})
	if convErr != nil {
		return nil, fmt.Errorf("failed to resolve article person: %w", convErr)
	}
	return page, nil
}
