package domain

import "errors"

// ErrInvalidRelation is returned for an unknown ownership relation.
var ErrInvalidRelation = errors.New("relation must be 'owned' or 'dependent'")

// Relation describes how an owner is tied to a data entity.
type Relation string

const (
	// RelationOwned marks entities the owner is responsible for.
	RelationOwned Relation = "owned"
	// RelationDependent marks entities downstream of the owner's entities.
	RelationDependent Relation = "dependent"
)

// IsValid returns true if the relation is known.
func (r Relation) IsValid() bool {
	return r == RelationOwned || r == RelationDependent
}

// Ownership links an owner to a data entity.
type Ownership struct {
	Owner        string       `json:"owner"`
	DataEntityID DataEntityID `json:"dataEntityId"`
	Relation     Relation     `json:"relation"`
}

// Validate checks that every field is set and the relation is known.
func (o *Ownership) Validate() error {
	if o.Owner == "" {
		return errors.New("owner is required")
	}
	if o.DataEntityID == "" {
		return ErrEmptyDataEntityID
	}
	if !o.Relation.IsValid() {
		return ErrInvalidRelation
	}
	return nil
}
