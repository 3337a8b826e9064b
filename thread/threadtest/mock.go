package threadtest

import (
	"context"

	"github.com/habiliai/personachat/entity"
	"github.com/habiliai/personachat/thread"
	"github.com/stretchr/testify/mock"
)

type Store struct {
	mock.Mock
}

func (s *Store) FindThread(ctx context.Context, owner, name string) (*entity.Thread, error) {
	args := s.Called(ctx, owner, name)
	t, _ := args.Get(0).(*entity.Thread)
	return t, args.Error(1)
}

func (s *Store) InsertThread(ctx context.Context, owner, name, prompt string) (*entity.Thread, error) {
	args := s.Called(ctx, owner, name, prompt)
	t, _ := args.Get(0).(*entity.Thread)
	return t, args.Error(1)
}

func (s *Store) ListMessages(ctx context.Context, threadID uint) ([]entity.Message, error) {
	args := s.Called(ctx, threadID)
	msgs, _ := args.Get(0).([]entity.Message)
	return msgs, args.Error(1)
}

func (s *Store) AppendMessage(ctx context.Context, threadID uint, role entity.Role, content string, metadata entity.MessageMetadata) (*entity.Message, error) {
	args := s.Called(ctx, threadID, role, content, metadata)
	m, _ := args.Get(0).(*entity.Message)
	return m, args.Error(1)
}

func (s *Store) MostRecentThread(ctx context.Context, owner string) (*entity.Thread, error) {
	args := s.Called(ctx, owner)
	t, _ := args.Get(0).(*entity.Thread)
	return t, args.Error(1)
}

func (s *Store) ListThreads(ctx context.Context, owner string) ([]entity.Thread, error) {
	args := s.Called(ctx, owner)
	threads, _ := args.Get(0).([]entity.Thread)
	return threads, args.Error(1)
}

var (
	_ thread.Store = (*Store)(nil)
)
