package store

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
)

// ValidationError indicates a malformed onboarding field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// CreateRequest holds the seller onboarding input.
type CreateRequest struct {
	UserID      string
	Name        string
	Username    string
	Description string
	Email       string
	Contact     string
	Address     string
	LogoName    string
	Logo        []byte
}

// Service implements seller onboarding and the admin approval workflow.
type Service struct {
	stores   Repository
	uploader Uploader
}

// NewService creates a store Service.
func NewService(stores Repository, uploader Uploader) *Service {
	return &Service{stores: stores, uploader: uploader}
}

// Create onboards a new store in pending state. The user must not already
// own a store and the username must be free; the logo is uploaded to object
// storage before the row is written so a failed upload leaves nothing behind.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Store, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	if existing, err := s.stores.GetByUserID(ctx, req.UserID); err == nil && existing != nil {
		return nil, ErrAlreadyExists
	} else if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, errors.Wrap(err, "check existing store")
	}

	username := strings.ToLower(req.Username)
	if taken, err := s.stores.GetByUsername(ctx, username); err == nil && taken != nil {
		return nil, ErrUsernameTaken
	} else if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, errors.Wrap(err, "check username")
	}

	logoURL := ""
	if len(req.Logo) > 0 {
		name := fmt.Sprintf("store-logo-%d-%s", time.Now().UnixMilli(), req.LogoName)
		url, err := s.uploader.Upload(ctx, name, "logos", req.Logo)
		if err != nil {
			return nil, errors.Wrap(err, "upload logo")
		}
		logoURL = url
	}

	st := &Store{
		ID:          uuid.New().String(),
		UserID:      req.UserID,
		Name:        req.Name,
		Username:    username,
		Description: req.Description,
		Email:       req.Email,
		Contact:     req.Contact,
		Address:     req.Address,
		LogoURL:     logoURL,
		Status:      StatusPending,
	}
	if err := s.stores.Create(ctx, st); err != nil {
		return nil, errors.Wrap(err, "create store")
	}
	return st, nil
}

// Approve transitions a pending store to approved.
func (s *Service) Approve(ctx context.Context, id string) error {
	return s.setStatus(ctx, id, StatusApproved)
}

// Reject transitions a pending store to rejected.
func (s *Service) Reject(ctx context.Context, id string) error {
	return s.setStatus(ctx, id, StatusRejected)
}

func (s *Service) setStatus(ctx context.Context, id string, status Status) error {
	if err := s.stores.SetStatus(ctx, id, status); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return errors.Wrapf(err, "set store %q status", id)
	}
	return nil
}

// SellerStore returns the user's approved store, or ErrNotFound when the
// user sells nothing yet.
func (s *Service) SellerStore(ctx context.Context, userID string) (*Store, error) {
	st, err := s.stores.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if st.Status != StatusApproved {
		return nil, ErrNotFound
	}
	return st, nil
}

func validate(req CreateRequest) error {
	switch {
	case req.Name == "":
		return &ValidationError{Field: "name", Reason: "required"}
	case req.Username == "":
		return &ValidationError{Field: "username", Reason: "required"}
	case req.Description == "":
		return &ValidationError{Field: "description", Reason: "required"}
	case req.Address == "":
		return &ValidationError{Field: "address", Reason: "required"}
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		return &ValidationError{Field: "email", Reason: "malformed address"}
	}
	if !validContact(req.Contact) {
		return &ValidationError{Field: "contact", Reason: "must be a phone number"}
	}
	return nil
}

// validContact accepts digits, +, -, parentheses and spaces, with at least
// ten significant characters.
func validContact(contact string) bool {
	significant := 0
	for _, r := range contact {
		switch {
		case r >= '0' && r <= '9', r == '+', r == '-', r == '(', r == ')':
			significant++
		case r == ' ':
		default:
			return false
		}
	}
	return significant >= 10
}
