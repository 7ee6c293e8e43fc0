package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"sync/atomic"

	"github.com/cheroliv/blogger/internal/cache"
	"github.com/cheroliv/blogger/internal/metrics"
	"github.com/cheroliv/blogger/internal/model"
	"github.com/cheroliv/blogger/internal/repository"
)

// Entity is the behaviour the update protocol needs from an entity type.
// T is the pointer type itself, e.g. *model.Person.
type Entity[T any] interface {
	EntityName() string
	Identity() *int64
	Validate() error
	Merge(patch T)
	Clone() T
}

// Store is key-based persistence for one entity type.
// FindByID returns repository.ErrNotFound when no record exists; DeleteByID
// accepts absent ids silently.
type Store[T any] interface {
	Save(ctx context.Context, entity T) (T, error)
	FindByID(ctx context.Context, id int64) (T, error)
	ExistsByID(ctx context.Context, id int64) (bool, error)
	DeleteByID(ctx context.Context, id int64) error
	FindAll(ctx context.Context, req model.PageRequest, filter model.Filter) (*model.Page[T], error)
}

// Transactor runs fn inside one store transaction carried by ctx.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Cache is an optional read-through cache keyed by id.
// Get returns cache.ErrCacheMiss when the entry is absent.
type Cache[T any] interface {
	Get(ctx context.Context, id int64) (T, error)
	Set(ctx context.Context, id int64, entity T) error
	Delete(ctx context.Context, id int64) error
}

// Invalidator drops every cached entry of a dependent entity type.
type Invalidator interface {
	InvalidateAll(ctx context.Context) error
}

// Publisher forwards alerts to observers without blocking the caller.
type Publisher interface {
	PublishAsync(alert model.Alert)
}

// Deps holds the optional collaborators of an EntityService.
type Deps struct {
	Publisher       Publisher
	Metrics         metrics.Recorder
	Logger          *slog.Logger
	Dependents      []Invalidator
	DefaultPageSize int
	MaxPageSize     int
}

// Result is the outcome of a successful mutation.
type Result[T any] struct {
	Entity   T
	Alert    model.Alert
	Location string
}

// EntityService implements create, replace, partial update and delete for
// one entity type, enforcing identity consistency between path, body and
// store before mutating. It holds no per-request state.
type EntityService[T Entity[T]] struct {
	name       string
	collection string
	sortable   []string
	store      Store[T]
	tx         Transactor
	cache      Cache[T]
	publisher  Publisher
	metrics    metrics.Recorder
	logger     *slog.Logger
	dependents []Invalidator
	defSize    int
	maxSize    int

	// writes counts committed mutations; Get uses it to avoid caching a
	// read that raced with one.
	writes atomic.Uint64
}

func newEntityService[T Entity[T]](name, collection string, sortable []string, store Store[T], tx Transactor, c Cache[T], deps Deps) *EntityService[T] {
	if deps.Metrics == nil {
		deps.Metrics = metrics.NewNoop()
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Publisher == nil {
		deps.Publisher = noopPublisher{}
	}
	if deps.DefaultPageSize <= 0 {
		deps.DefaultPageSize = model.DefaultPageSize
	}
	if deps.MaxPageSize <= 0 {
		deps.MaxPageSize = model.MaxPageSize
	}
	return &EntityService[T]{
		name:       name,
		collection: collection,
		sortable:   sortable,
		store:      store,
		tx:         tx,
		cache:      c,
		publisher:  deps.Publisher,
		metrics:    deps.Metrics,
		logger:     deps.Logger.With("component", "service."+name),
		dependents: deps.Dependents,
		defSize:    deps.DefaultPageSize,
		maxSize:    deps.MaxPageSize,
	}
}

// EntityName returns the name used in alerts and errors.
func (s *EntityService[T]) EntityName() string {
	return s.name
}

// Collection returns the plural resource name.
func (s *EntityService[T]) Collection() string {
	return s.collection
}

// Create persists a transient entity and lets the store assign its id.
func (s *EntityService[T]) Create(ctx context.Context, entity T) (*Result[T], error) {
	s.logger.Debug("request to create", "entity", s.name)

	if entity.Identity() != nil {
		return nil, newEntityError(s.name, ReasonIDExists, ErrIdentityConflict)
	}
	if err := entity.Validate(); err != nil {
		return nil, err
	}

	var saved T
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		saved, err = s.store.Save(ctx, entity)
		return err
	})
	if err != nil {
		return nil, s.mapStoreError(err)
	}

	id := *saved.Identity()
	s.metrics.IncEntityCreated(s.name)

	return &Result[T]{
		Entity:   saved,
		Alert:    s.emit(model.AlertCreated, id),
		Location: "/" + s.collection + "/" + strconv.FormatInt(id, 10),
	}, nil
}

// Replace overwrites every field of an existing entity.
func (s *EntityService[T]) Replace(ctx context.Context, pathID int64, entity T) (*Result[T], error) {
	s.logger.Debug("request to update", "entity", s.name, "id", pathID)

	if err := s.checkIdentity(pathID, entity); err != nil {
		return nil, err
	}
	if err := entity.Validate(); err != nil {
		return nil, err
	}

	var saved T
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.requireExists(ctx, pathID); err != nil {
			return err
		}
		var err error
		saved, err = s.store.Save(ctx, entity)
		return err
	})
	if err != nil {
		return nil, s.mapStoreError(err)
	}

	s.afterUpdate(ctx, pathID)

	return &Result[T]{
		Entity: saved,
		Alert:  s.emit(model.AlertUpdated, pathID),
	}, nil
}

// PartialUpdate merges the non-nil fields of patch onto the stored entity.
// A nil field means "no change"; fields cannot be cleared this way.
func (s *EntityService[T]) PartialUpdate(ctx context.Context, pathID int64, patch T) (*Result[T], error) {
	s.logger.Debug("request to partially update", "entity", s.name, "id", pathID)

	if err := s.checkIdentity(pathID, patch); err != nil {
		return nil, err
	}

	var saved T
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.requireExists(ctx, pathID); err != nil {
			return err
		}
		stored, err := s.store.FindByID(ctx, pathID)
		if err != nil {
			return err
		}
		stored.Merge(patch)
		if err := stored.Validate(); err != nil {
			return err
		}
		saved, err = s.store.Save(ctx, stored)
		return err
	})
	if err != nil {
		return nil, s.mapStoreError(err)
	}

	s.afterUpdate(ctx, pathID)

	return &Result[T]{
		Entity: saved,
		Alert:  s.emit(model.AlertUpdated, pathID),
	}, nil
}

// Delete removes the entity if present. Absent ids are accepted.
func (s *EntityService[T]) Delete(ctx context.Context, id int64) (*model.Alert, error) {
	s.logger.Debug("request to delete", "entity", s.name, "id", id)

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		return s.store.DeleteByID(ctx, id)
	})
	if err != nil {
		return nil, s.mapStoreError(err)
	}

	s.metrics.IncEntityDeleted(s.name)
	s.invalidate(ctx, id)

	alert := s.emit(model.AlertDeleted, id)
	return &alert, nil
}

// Get returns the entity with the given id.
func (s *EntityService[T]) Get(ctx context.Context, id int64) (T, error) {
	var zero T

	if s.cache != nil {
		cached, err := s.cache.Get(ctx, id)
		if err == nil {
			s.metrics.IncCacheHit(s.name)
			return cached, nil
		}
		if errors.Is(err, cache.ErrCacheMiss) {
			s.metrics.IncCacheMiss(s.name)
		} else {
			s.logger.Warn("cache read failed", "id", id, "error", err)
		}
	}

	gen := s.writes.Load()
	entity, err := s.store.FindByID(ctx, id)
	if err != nil {
		return zero, s.mapStoreError(err)
	}

	if s.cache != nil {
		s.fill(ctx, id, entity, gen)
	}

	return entity, nil
}

// fill caches a read taken at write generation gen. The entry is skipped,
// or dropped again, when a mutation committed since then.
func (s *EntityService[T]) fill(ctx context.Context, id int64, entity T, gen uint64) {
	if s.writes.Load() != gen {
		return
	}
	if err := s.cache.Set(ctx, id, entity); err != nil {
		s.logger.Warn("cache write failed", "id", id, "error", err)
		return
	}
	if s.writes.Load() != gen {
		if err := s.cache.Delete(ctx, id); err != nil {
			s.logger.Warn("cache invalidation failed", "id", id, "error", err)
		}
	}
}

// List returns one page of entities.
func (s *EntityService[T]) List(ctx context.Context, req model.PageRequest, filter model.Filter) (*model.Page[T], error) {
	req = req.Normalize(s.defSize, s.maxSize)
	for _, o := range req.Sort {
		if !slices.Contains(s.sortable, o.Property) {
			return nil, newEntityError(s.name, ReasonSortNotAllowed, fmt.Errorf("%w: %s", ErrInvalidSort, o.Property))
		}
	}

	page, err := s.store.FindAll(ctx, req, filter)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", s.collection, err)
	}
	return page, nil
}

// checkIdentity applies the ordered id preconditions shared by Replace and
// PartialUpdate.
func (s *EntityService[T]) checkIdentity(pathID int64, entity T) error {
	id := entity.Identity()
	if id == nil {
		return newEntityError(s.name, ReasonIDNull, ErrMissingIdentity)
	}
	if *id != pathID {
		return newEntityError(s.name, ReasonIDInvalid, ErrIdentityMismatch)
	}
	return nil
}

func (s *EntityService[T]) requireExists(ctx context.Context, id int64) error {
	exists, err := s.store.ExistsByID(ctx, id)
	if err != nil {
		return err
	}
	if !exists {
		return newEntityError(s.name, ReasonIDNotFound, ErrNotFound)
	}
	return nil
}

func (s *EntityService[T]) afterUpdate(ctx context.Context, id int64) {
	s.metrics.IncEntityUpdated(s.name)
	s.invalidate(ctx, id)
}

// invalidate drops cached copies after a committed mutation.
// Cache failures are logged, never returned.
func (s *EntityService[T]) invalidate(ctx context.Context, id int64) {
	s.writes.Add(1)
	if s.cache != nil {
		if err := s.cache.Delete(ctx, id); err != nil {
			s.logger.Warn("cache invalidation failed", "id", id, "error", err)
		}
	}
	for _, dep := range s.dependents {
		if err := dep.InvalidateAll(ctx); err != nil {
			s.logger.Warn("dependent cache invalidation failed", "error", err)
		}
	}
}

func (s *EntityService[T]) emit(action model.AlertAction, id int64) model.Alert {
	alert := model.NewAlert(action, s.name, id)
	s.publisher.PublishAsync(alert)
	return alert
}

// mapStoreError translates store failures into service errors.
func (s *EntityService[T]) mapStoreError(err error) error {
	var entityErr *EntityError
	var validationErr *model.ValidationError
	switch {
	case errors.As(err, &entityErr), errors.As(err, &validationErr):
		return err
	case errors.Is(err, repository.ErrNotFound):
		return newEntityError(s.name, ReasonIDNotFound, ErrNotFound)
	case errors.Is(err, repository.ErrReferenceNotFound):
		return newEntityError(s.name, ReasonPersonNotFound, ErrReferenceNotFound)
	case errors.Is(err, repository.ErrReferenced):
		return newEntityError(s.name, ReasonInUse, ErrInUse)
	default:
		return fmt.Errorf("%s store: %w", s.name, err)
	}
}

type noopPublisher struct{}

func (noopPublisher) PublishAsync(model.Alert) {}
