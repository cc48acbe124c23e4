package notes

import "time"

// Note is a single chit owned by one identity.
type Note struct {
	ID            string    `json:"id" bson:"_id,omitempty"`
	UserID        string    `json:"user" bson:"user"`
	Title         string    `json:"title,omitempty" bson:"title,omitempty"`
	Body          string    `json:"body" bson:"body"`
	Archived      bool      `json:"archived" bson:"archived"`
	AttachmentKey string    `json:"-" bson:"attachmentKey,omitempty"`
	CreatedAt     time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt" bson:"updatedAt"`
}
