// Package model defines domain entities for the application.
package model

// PersonEntity is the entity name used in alerts and error payloads.
const PersonEntity = "person"

// Person is an author of articles.
// All attributes are optional; ID is nil until the store assigns one.
type Person struct {
	ID       *int64  `json:"id"`
	Name     *string `json:"name"`
	Username *string `json:"username"`
	Email    *string `json:"email"`
	Company  *string `json:"company"`
	Website  *string `json:"website"`
}

// EntityName returns the entity name.
func (p *Person) EntityName() string {
	return PersonEntity
}

// Identity returns the store-assigned id, or nil for a transient person.
func (p *Person) Identity() *int64 {
	return p.ID
}

// SetIdentity assigns the id.
func (p *Person) SetIdentity(id int64) {
	p.ID = &id
}

// SameIdentityAs reports whether both persons carry the same non-nil id.
// Two transient persons are never the same, even when compared to themselves.
func (p *Person) SameIdentityAs(other *Person) bool {
	if p == nil || other == nil {
		return false
	}
	return sameID(p.ID, other.ID)
}

// Validate checks attribute constraints.
func (p *Person) Validate() error {
	v := newValidator(PersonEntity)
	v.maxLen("name", p.Name)
	v.maxLen("username", p.Username)
	v.maxLen("email", p.Email)
	v.maxLen("company", p.Company)
	v.maxLen("website", p.Website)
	return v.err()
}

// Merge copies every non-nil attribute of patch onto p.
// Nil attributes in patch leave p untouched; the id is never changed.
func (p *Person) Merge(patch *Person) {
	mergeString(&p.Name, patch.Name)
	mergeString(&p.Username, patch.Username)
	mergeString(&p.Email, patch.Email)
	mergeString(&p.Company, patch.Company)
	mergeString(&p.Website, patch.Website)
}

// Clone returns a deep copy.
func (p *Person) Clone() *Person {
	if p == nil {
		return nil
	}
	return &Person{
		ID:       cloneInt64(p.ID),
		Name:     cloneString(p.Name),
		Username: cloneString(p.Username),
		Email:    cloneString(p.Email),
		Company:  cloneString(p.Company),
		Website:  cloneString(p.Website),
	}
}
