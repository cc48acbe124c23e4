package notes

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrBodyRequired is returned when a note is created or updated with an empty body.
var ErrBodyRequired = errors.New("notes: body is required")

// Service implements the note operations used by the handler layer.
type Service struct {
	repo  Repository
	now   func() time.Time
	newID func() string
}

func NewService(repo Repository) *Service {
	return &Service{
		repo:  repo,
		now:   time.Now,
		newID: func() string { return uuid.New().String() },
	}
}

// UpdateRequest carries partial note changes. Nil fields are left untouched.
type UpdateRequest struct {
	Title    *string
	Body     *string
	Archived *bool
}

func (s *Service) Create(ctx context.Context, userID, title, body string) (*Note, error) {
	if strings.TrimSpace(body) == "" {
		return nil, ErrBodyRequired
	}
	now := s.now().UTC()
	n := &Note{
		ID:        s.newID(),
		UserID:    userID,
		Title:     strings.TrimSpace(title),
		Body:      body,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Insert(ctx, n); err != nil {
		return nil, err
	}
	return n, nil
}

func (s *Service) Get(ctx context.Context, userID, id string) (*Note, error) {
	return s.repo.GetOwned(ctx, userID, id)
}

func (s *Service) List(ctx context.Context, userID string) ([]*Note, error) {
	return s.repo.ListByUser(ctx, userID)
}

func (s *Service) Update(ctx context.Context, userID, id string, req UpdateRequest) (*Note, error) {
	n, err := s.repo.GetOwned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if req.Title != nil {
		n.Title = strings.TrimSpace(*req.Title)
	}
	if req.Body != nil {
		if strings.TrimSpace(*req.Body) == "" {
			return nil, ErrBodyRequired
		}
		n.Body = *req.Body
	}
	if req.Archived != nil {
		n.Archived = *req.Archived
	}
	n.UpdatedAt = s.now().UTC()
	if err := s.repo.Update(ctx, n); err != nil {
		return nil, err
	}
	return n, nil
}

func (s *Service) Remove(ctx context.Context, userID, id string) error {
	return s.repo.DeleteOwned(ctx, userID, id)
}

// SetAttachmentKey records the object storage key for the note's attachment.
func (s *Service) SetAttachmentKey(ctx context.Context, userID, id, key string) (*Note, error) {
	n, err := s.repo.GetOwned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	n.AttachmentKey = key
	n.UpdatedAt = s.now().UTC()
	if err := s.repo.Update(ctx, n); err != nil {
		return nil, err
	}
	return n, nil
}
