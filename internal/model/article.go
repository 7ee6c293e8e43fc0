package model

// ArticleEntity is the entity name used in alerts and error payloads.
const ArticleEntity = "article"

// Article is a piece of content written by exactly one Person.
type Article struct {
	ID      *int64  `json:"id"`
	Title   *string `json:"title"`
	Content *string `json:"content"`
	Person  *Person `json:"person"`
}

// EntityName returns the entity name.
func (a *Article) EntityName() string {
	return ArticleEntity
}

// Identity returns the store-assigned id, or nil for a transient article.
func (a *Article) Identity() *int64 {
	return a.ID
}

// SetIdentity assigns the id.
func (a *Article) SetIdentity(id int64) {
	a.ID = &id
}

// SameIdentityAs reports whether both articles carry the same non-nil id.
func (a *Article) SameIdentityAs(other *Article) bool {
	if a == nil || other == nil {
		return false
	}
	return sameID(a.ID, other.ID)
}

// PersonID returns the id of the referenced person, or nil.
func (a *Article) PersonID() *int64 {
	if a.Person == nil {
		return nil
	}
	return a.Person.ID
}

// Validate checks attribute constraints. The person reference must be
// present and must point at a persisted person.
func (a *Article) Validate() error {
	v := newValidator(ArticleEntity)
	v.maxLen("title", a.Title)
	v.maxLen("content", a.Content)
	if a.Person == nil || a.Person.ID == nil {
		v.add("person", CodeNotNull)
	}
	return v.err()
}

// Merge copies every non-nil attribute of patch onto a, including the
// person reference. The id is never changed.
func (a *Article) Merge(patch *Article) {
	mergeString(&a.Title, patch.Title)
	mergeString(&a.Content, patch.Content)
	if patch.Person != nil {
		a.Person = patch.Person.Clone()
	}
}

// Clone returns a deep copy.
func (a *Article) Clone() *Article {
	if a == nil {
		return nil
	}
	return &Article{
		ID:      cloneInt64(a.ID),
		Title:   cloneString(a.Title),
		Content: cloneString(a.Content),
		Person:  a.Person.Clone(),
	}
}
