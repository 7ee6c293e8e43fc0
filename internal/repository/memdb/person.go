package memdb

import (
	"context"
	"fmt"
	"slices"

	"github.com/cheroliv/blogger/internal/model"
	"github.com/cheroliv/blogger/internal/repository"
	"github.com/hashicorp/go-memdb"
)

type personRow struct {
	ID       int64
	Name     *string
	Username *string
	Email    *string
	Company  *string
	Website  *string
}

func newPersonRow(id int64, p *model.Person) *personRow {
	c := p.Clone()
	return &personRow{
		ID:       id,
		Name:     c.Name,
		Username: c.Username,
		Email:    c.Email,
		Company:  c.Company,
		Website:  c.Website,
	}
}

func (r *personRow) toModel() *model.Person {
	p := &model.Person{
		Name:     r.Name,
		Username: r.Username,
		Email:    r.Email,
		Company:  r.Company,
		Website:  r.Website,
	}
	p.SetIdentity(r.ID)
	return p.Clone()
}

var personFields = map[string]field[*personRow]{
	"id":       func(r *personRow) any { return r.ID },
	"name":     func(r *personRow) any { return r.Name },
	"username": func(r *personRow) any { return r.Username },
	"email":    func(r *personRow) any { return r.Email },
	"company":  func(r *personRow) any { return r.Company },
	"website":  func(r *personRow) any { return r.Website },
}

// PersonStore stores people.
type PersonStore struct {
	s *Store
}

// People returns the person store.
func (s *Store) People() *PersonStore {
	return &PersonStore{s: s}
}

// Save inserts a transient person or overwrites a persisted one.
func (r *PersonStore) Save(ctx context.Context, p *model.Person) (*model.Person, error) {
	var saved *model.Person
	err := r.s.write(ctx, func(txn *memdb.Txn) error {
		var id int64
		if p.ID == nil {
			id = r.s.personSeq.Add(1)
		} else {
			id = *p.ID
			_, ok, err := first[*personRow](txn, PersonTable, ID, id)
			if err != nil {
				return err
			}
			if !ok {
				return repository.ErrNotFound
			}
		}

		row := newPersonRow(id, p)
		if err := txn.Insert(PersonTable, row); err != nil {
			return fmt.Errorf("failed to save person: %w", err)
		}
		saved = row.toModel()
		return nil
	})
	return saved, err
}

// FindByID retrieves a person by id.
func (r *PersonStore) FindByID(ctx context.Context, id int64) (*model.Person, error) {
	row, ok, err := first[*personRow](r.s.read(ctx), PersonTable, ID, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get person by ID: %w", err)
	}
	if !ok {
		return nil, repository.ErrNotFound
	}
	return row.toModel(), nil
}

// ExistsByID checks whether a person exists.
func (r *PersonStore) ExistsByID(ctx context.Context, id int64) (bool, error) {
	_, ok, err := first[*personRow](r.s.read(ctx), PersonTable, ID, id)
	return ok, err
}

// DeleteByID removes a person unless an article still references it.
func (r *PersonStore) DeleteByID(ctx context.Context, id int64) error {
	return r.s.write(ctx, func(txn *memdb.Txn) error {
		_, referenced, err := first[*articleRow](txn, ArticleTable, ByPersonID, id)
		if err != nil {
			return err
		}
		if referenced {
			return repository.ErrReferenced
		}
		if _, err := txn.DeleteAll(PersonTable, ID, id); err != nil {
			return fmt.Errorf("failed to delete person: %w", err)
		}
		return nil
	})
}

// FindAll returns one page of people.
func (r *PersonStore) FindAll(ctx context.Context, req model.PageRequest, filter model.Filter) (*model.Page[*model.Person], error) {
	rows, err := all[*personRow](r.s.read(ctx), PersonTable)
	if err != nil {
		return nil, fmt.Errorf("failed to list people: %w", err)
	}
	if len(filter.IDs) > 0 {
		rows = slices.DeleteFunc(rows, func(row *personRow) bool {
			return !slices.Contains(filter.IDs, row.ID)
		})
	}
	if err := sortRows(rows, req.Sort, personFields); err != nil {
		return nil, err
	}
	return paginate(rows, req, (*personRow).toModel), nil
}
