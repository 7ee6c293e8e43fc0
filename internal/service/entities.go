package service

import "github.com/cheroliv/blogger/internal/model"

// Collection names used in resource paths.
const (
	PeopleCollection   = "people"
	ArticlesCollection = "articles"
)

// PersonService manages people.
type PersonService = EntityService[*model.Person]

// ArticleService manages articles.
type ArticleService = EntityService[*model.Article]

var (
	personSortable  = []string{"id", "name", "username", "email", "company", "website"}
	articleSortable = []string{"id", "title", "content"}
)

// NewPersonService creates the person service. c may be nil.
func NewPersonService(store Store[*model.Person], tx Transactor, c Cache[*model.Person], deps Deps) *PersonService {
	return newEntityService(model.PersonEntity, PeopleCollection, personSortable, store, tx, c, deps)
}

// NewArticleService creates the article service. c may be nil.
func NewArticleService(store Store[*model.Article], tx Transactor, c Cache[*model.Article], deps Deps) *ArticleService {
	return newEntityService(model.ArticleEntity, ArticlesCollection, articleSortable, store, tx, c, deps)
}
