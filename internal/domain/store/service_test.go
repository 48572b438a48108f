package store

import (
	"context"
	"testing"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockStoreRepo struct {
	byUser     map[string]*Store
	byUsername map[string]*Store
	created    *Store
	createErr  error
	statusID   string
	statusVal  Status
	statusErr  error
}

func (m *mockStoreRepo) Create(_ context.Context, s *Store) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.created = s
	return nil
}

func (m *mockStoreRepo) GetByID(_ context.Context, _ string) (*Store, error) {
	return nil, ErrNotFound
}

func (m *mockStoreRepo) GetByUserID(_ context.Context, userID string) (*Store, error) {
	if s, ok := m.byUser[userID]; ok {
		return s, nil
	}
	return nil, ErrNotFound
}

func (m *mockStoreRepo) GetByUsername(_ context.Context, username string) (*Store, error) {
	if s, ok := m.byUsername[username]; ok {
		return s, nil
	}
	return nil, ErrNotFound
}

func (m *mockStoreRepo) ListByStatus(_ context.Context, _ Status) ([]Store, error) {
	return nil, nil
}

func (m *mockStoreRepo) SetStatus(_ context.Context, id string, status Status) error {
	if m.statusErr != nil {
		return m.statusErr
	}
	m.statusID = id
	m.statusVal = status
	return nil
}

type mockUploader struct {
	url    string
	err    error
	folder string
}

func (m *mockUploader) Upload(_ context.Context, _, folder string, _ []byte) (string, error) {
	m.folder = folder
	return m.url, m.err
}

func validRequest() CreateRequest {
	return CreateRequest{
		UserID:      "user-1",
		Name:        "Acme Outlet",
		Username:    "AcmeOutlet",
		Description: "Everything Acme",
		Email:       "owner@acme.example",
		Contact:     "+91 98765 43210",
		Address:     "42 Market Street",
		LogoName:    "logo.png",
		Logo:        []byte{0x89, 0x50},
	}
}

func TestCreate_Pending(t *testing.T) {
	repo := &mockStoreRepo{}
	up := &mockUploader{url: "https://cdn.example/logos/acme.png"}
	svc := NewService(repo, up)

	st, err := svc.Create(context.Background(), validRequest())
	require.NoError(t, err)

	assert.Equal(t, StatusPending, st.Status)
	assert.Equal(t, "acmeoutlet", st.Username)
	assert.Equal(t, "https://cdn.example/logos/acme.png", st.LogoURL)
	assert.Equal(t, "logos", up.folder)
	assert.NotEmpty(t, st.ID)
	require.NotNil(t, repo.created)
}

func TestCreate_UserAlreadyHasStore(t *testing.T) {
	repo := &mockStoreRepo{byUser: map[string]*Store{
		"user-1": {ID: "s1", Status: StatusPending},
	}}
	svc := NewService(repo, &mockUploader{})

	_, err := svc.Create(context.Background(), validRequest())
	require.ErrorIs(t, err, ErrAlreadyExists)
}

func TestCreate_UsernameTaken(t *testing.T) {
	repo := &mockStoreRepo{byUsername: map[string]*Store{
		"acmeoutlet": {ID: "s2"},
	}}
	svc := NewService(repo, &mockUploader{})

	_, err := svc.Create(context.Background(), validRequest())
	require.ErrorIs(t, err, ErrUsernameTaken)
}

func TestCreate_Validation(t *testing.T) {
	svc := NewService(&mockStoreRepo{}, &mockUploader{})

	for _, tc := range []struct {
		name   string
		mutate func(*CreateRequest)
		field  string
	}{
		{"missing name", func(r *CreateRequest) { r.Name = "" }, "name"},
		{"bad email", func(r *CreateRequest) { r.Email = "not-an-email" }, "email"},
		{"short contact", func(r *CreateRequest) { r.Contact = "123" }, "contact"},
		{"letters in contact", func(r *CreateRequest) { r.Contact = "call me maybe" }, "contact"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			req := validRequest()
			tc.mutate(&req)

			_, err := svc.Create(context.Background(), req)
			var vErr *ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, tc.field, vErr.Field)
		})
	}
}

func TestCreate_UploadFailureCreatesNothing(t *testing.T) {
	repo := &mockStoreRepo{}
	svc := NewService(repo, &mockUploader{err: errors.New("storage unavailable")})

	_, err := svc.Create(context.Background(), validRequest())
	require.Error(t, err)
	assert.Nil(t, repo.created)
}

func TestApproveReject(t *testing.T) {
	repo := &mockStoreRepo{}
	svc := NewService(repo, &mockUploader{})

	require.NoError(t, svc.Approve(context.Background(), "s1"))
	assert.Equal(t, StatusApproved, repo.statusVal)

	require.NoError(t, svc.Reject(context.Background(), "s2"))
	assert.Equal(t, StatusRejected, repo.statusVal)
	assert.Equal(t, "s2", repo.statusID)
}

func TestSellerStore_OnlyApproved(t *testing.T) {
	repo := &mockStoreRepo{byUser: map[string]*Store{
		"pending-user":  {ID: "s1", Status: StatusPending},
		"approved-user": {ID: "s2", Status: StatusApproved},
	}}
	svc := NewService(repo, &mockUploader{})

	_, err := svc.SellerStore(context.Background(), "pending-user")
	require.ErrorIs(t, err, ErrNotFound)

	st, err := svc.SellerStore(context.Background(), "approved-user")
	require.NoError(t, err)
	assert.Equal(t, "s2", st.ID)
}
