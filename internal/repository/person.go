package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/cheroliv/blogger/internal/model"
	"github.com/jackc/pgx/v5"
)

var personColumns = map[string]string{
	"id":       "id",
	"name":     "name",
	"username": "username",
	"email":    "email",
	"company":  "company",
	"website":  "website",
}

const personSelect = `SELECT id, name, username, email, company, website FROM person`

// PersonRepository provides database access for people.
type PersonRepository struct {
	repo *Repository
}

// NewPersonRepository creates a new PersonRepository.
func NewPersonRepository(repo *Repository) *PersonRepository {
	return &PersonRepository{repo: repo}
}

// Save inserts a transient person or overwrites a persisted one.
func (r *PersonRepository) Save(ctx context.Context, p *model.Person) (*model.Person, error) {
	saved := p.Clone()
	db := r.repo.db(ctx)

	if saved.ID == nil {
		query := `
			INSERT INTO person (name, username, email, company, website)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id
		`
		var id int64
		err := db.QueryRow(ctx, query, saved.Name, saved.Username, saved.Email, saved.Company, saved.Website).Scan(&id)
		if err != nil {
			return nil, fmt.Errorf("failed to create person: %w", err)
		}
		saved.SetIdentity(id)
		return saved, nil
	}

	query := `
		UPDATE person
		SET name = $2, username = $3, email = $4, company = $5, website = $6
		WHERE id = $1
	`
	result, err := db.Exec(ctx, query, *saved.ID, saved.Name, saved.Username, saved.Email, saved.Company, saved.Website)
	if err != nil {
		return nil, fmt.Errorf("failed to update person: %w", err)
	}
	if result.RowsAffected() == 0 {
		return nil, ErrNotFound
	}
	return saved, nil
}

// FindByID retrieves a person by id.
func (r *PersonRepository) FindByID(ctx context.Context, id int64) (*model.Person, error) {
	p, err := scanPerson(r.repo.db(ctx).QueryRow(ctx, personSelect+` WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get person by ID: %w", err)
	}
	return p, nil
}

// ExistsByID checks whether a person exists.
func (r *PersonRepository) ExistsByID(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := r.repo.db(ctx).QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM person WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check person existence: %w", err)
	}
	return exists, nil
}

// DeleteByID removes a person. Deleting an absent id is not an error.
func (r *PersonRepository) DeleteByID(ctx context.Context, id int64) error {
	_, err := r.repo.db(ctx).Exec(ctx, `DELETE FROM person WHERE id = $1`, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrReferenced
		}
		return fmt.Errorf("failed to delete person: %w", err)
	}
	return nil
}

// FindAll returns one page of people.
func (r *PersonRepository) FindAll(ctx context.Context, req model.PageRequest, filter model.Filter) (*model.Page[*model.Person], error) {
	order, err := orderBy(req.Sort, personColumns)
	if err != nil {
		return nil, err
	}

	where := &whereClause{}
	where.anyOf("id", filter.IDs)

	db := r.repo.db(ctx)

	var total int64
	if err := db.QueryRow(ctx, `SELECT COUNT(*) FROM person`+where.String(), where.args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count people: %w", err)
	}

	query := personSelect + where.String() + order
	query += where.limitOffset(req)

	rows, err := db.Query(ctx, query, where.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list people: %w", err)
	}
	defer rows.Close()

	people := make([]*model.Person, 0, req.Size)
	for rows.Next() {
		p, err := scanPerson(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan person: %w", err)
		}
		people = append(people, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating people: %w", err)
	}

	return &model.Page[*model.Person]{Content: people, Total: total, Page: req.Page, Size: req.Size}, nil
}

// scanPerson scans a single row into a Person model.
func scanPerson(row pgx.Row) (*model.Person, error) {
	var p model.Person
	err := row.Scan(&p.ID, &p.Name, &p.Username, &p.Email, &p.Company, &p.Website)
	return &p, err
}
