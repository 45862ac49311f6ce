package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/and161185/universal-api/internal/errs"
	"github.com/and161185/universal-api/internal/model"
	"github.com/and161185/universal-api/internal/repository"
)

type fakeMessageRepo struct {
	createOwner string
	createIn    model.MessageInput
	createCalls int

	updateID    int64
	updateIn    model.MessageInput
	updateCalls int

	out    *model.Message
	list   []model.Message
	delOK  bool
	err    error
	listBy string
}

var _ repository.MessageRepository = (*fakeMessageRepo)(nil)

func (f *fakeMessageRepo) Create(_ context.Context, ownerID string, in model.MessageInput) (*model.Message, error) {
	f.createCalls++
	f.createOwner, f.createIn = ownerID, in
	return f.out, f.err
}
func (f *fakeMessageRepo) Get(_ context.Context, id int64) (*model.Message, error) {
	return f.out, f.err
}
func (f *fakeMessageRepo) List(_ context.Context) ([]model.Message, error) {
	return f.list, f.err
}
func (f *fakeMessageRepo) ListByOwner(_ context.Context, ownerID string) ([]model.Message, error) {
	f.listBy = ownerID
	return f.list, f.err
}
func (f *fakeMessageRepo) Update(_ context.Context, id int64, in model.MessageInput) (*model.Message, error) {
	f.updateCalls++
	f.updateID, f.updateIn = id, in
	return f.out, f.err
}
func (f *fakeMessageRepo) Delete(_ context.Context, id int64) (bool, error) {
	return f.delOK, f.err
}

func TestMessageService_Create_Validation(t *testing.T) {
	ctx := context.Background()
	repo := &fakeMessageRepo{}
	s := NewMessageService(repo)

	_, err := s.Create(ctx, "u1", model.MessageInput{})
	require.ErrorIs(t, err, errs.ErrValidation)
	var ve *errs.ValidationError
	require.ErrorAs(t, err, &ve)
	require.Equal(t, "is required", ve.Fields["content"])

	_, err = s.Create(ctx, " ", model.MessageInput{Content: "x"})
	require.ErrorIs(t, err, errs.ErrValidation)
	require.Zero(t, repo.createCalls, "invalid input never reaches storage")
}

func TestMessageService_Create_Delegates(t *testing.T) {
	now := time.Now()
	repo := &fakeMessageRepo{out: &model.Message{ID: 1, UserID: "u1", Content: "hello", CreatedAt: now, UpdatedAt: now}}
	s := NewMessageService(repo)

	m, err := s.Create(context.Background(), "u1", model.MessageInput{Content: "hello"})
	require.NoError(t, err)
	require.Equal(t, "u1", repo.createOwner)
	require.Equal(t, "hello", repo.createIn.Content)
	require.Equal(t, "u1", m.UserID)
}

func TestMessageService_Update(t *testing.T) {
	repo := &fakeMessageRepo{out: &model.Message{ID: 3, Content: "hi"}}
	s := NewMessageService(repo)

	_, err := s.Update(context.Background(), 3, model.MessageInput{})
	require.ErrorIs(t, err, errs.ErrValidation)
	require.Zero(t, repo.updateCalls)

	m, err := s.Update(context.Background(), 3, model.MessageInput{Content: "hi"})
	require.NoError(t, err)
	require.Equal(t, int64(3), repo.updateID)
	require.Equal(t, "hi", m.Content)
}

func TestMessageService_PropagatesUnmodified(t *testing.T) {
	storageErr := errs.Storage("messages.get", errors.New("conn reset"))
	repo := &fakeMessageRepo{err: storageErr}
	s := NewMessageService(repo)
	ctx := context.Background()

	_, err := s.Get(ctx, 1)
	require.Same(t, storageErr, err)

	repo.err = errs.ErrNotFound
	_, err = s.Update(ctx, 1, model.MessageInput{Content: "x"})
	require.Same(t, errs.ErrNotFound, err)

	repo.err = nil
	ok, err := s.Delete(ctx, 99)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestMessageService_Lists(t *testing.T) {
	repo := &fakeMessageRepo{list: []model.Message{{ID: 1}, {ID: 2}}}
	s := NewMessageService(repo)

	all, err := s.List(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 2)

	_, err = s.ListByOwner(context.Background(), "u7")
	require.NoError(t, err)
	require.Equal(t, "u7", repo.listBy)
}

type fakeMapStateRepo struct {
	repository.MapStateRepository
	created int
}

func (f *fakeMapStateRepo) Create(_ context.Context, ownerID string, in model.MapStateInput) (*model.MapState, error) {
	f.created++
	return &model.MapState{ID: 1, UserID: ownerID, Name: in.Name, State: in.State}, nil
}

func TestMapStateService_Create_Validation(t *testing.T) {
	repo := &fakeMapStateRepo{}
	s := NewMapStateService(repo)
	ctx := context.Background()

	_, err := s.Create(ctx, "u1", model.MapStateInput{})
	var ve *errs.ValidationError
	require.ErrorAs(t, err, &ve)
	require.Contains(t, ve.Fields, "name")
	require.Contains(t, ve.Fields, "state")

	_, err = s.Create(ctx, "u1", model.MapStateInput{Name: strings.Repeat("n", 256), State: "{}"})
	require.ErrorAs(t, err, &ve)
	require.Equal(t, "must be at most 255 characters", ve.Fields["name"])
	require.Zero(t, repo.created)

	m, err := s.Create(ctx, "u1", model.MapStateInput{Name: strings.Repeat("n", 255), State: "{}"})
	require.NoError(t, err)
	require.Equal(t, "u1", m.UserID)
	require.Equal(t, 1, repo.created)
}
