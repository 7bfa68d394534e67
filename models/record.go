package models

import "time"

// Field names shared by every record.
const (
	FieldID        = "id"
	FieldOwnerID   = "ownerId"
	FieldCreatedAt = "createdAt"
	FieldIsActive  = "isActive"
)

// Counter fields patched by engagement.
const (
	FieldLikes    = "likes"
	FieldComments = "comments"
)

// Payload is the collection-specific part of a record.
type Payload interface {
	Fields() Document
}

type Record[P Payload] struct {
	ID         string     `json:"id"`
	Collection Collection `json:"collection"`
	OwnerID    string     `json:"ownerId,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
	IsActive   bool       `json:"isActive"`
	Payload    P          `json:"payload"`
}

// Document flattens the record into its stored shape. The id is not part of
// the remote document; local lists add it separately.
func (r Record[P]) Document() Document {
	d := r.Payload.Fields()
	if d == nil {
		d = Document{}
	}
	d.setString(FieldOwnerID, r.OwnerID)
	d[FieldCreatedAt] = r.CreatedAt
	d[FieldIsActive] = r.IsActive
	return d
}

// DecodeRecord is the single normalization path for documents read from
// either store.
func DecodeRecord[P Payload](c Collection, id string, d Document, decode func(Document) P) Record[P] {
	return Record[P]{
		ID:         id,
		Collection: c,
		OwnerID:    d.String(FieldOwnerID),
		CreatedAt:  d.Time(FieldCreatedAt),
		IsActive:   d.Bool(FieldIsActive, true),
		Payload:    decode(d),
	}
}
