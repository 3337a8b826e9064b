package thread_test

import (
	"context"
	"testing"
	"time"

	"github.com/habiliai/personachat/entity"
	"github.com/habiliai/personachat/errors"
	"github.com/habiliai/personachat/internal/db"
	"github.com/habiliai/personachat/internal/mytesting"
	"github.com/habiliai/personachat/thread"
	"github.com/jcooky/go-din"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"
)

type StoreTestSuite struct {
	mytesting.Suite

	store thread.Store
	DB    *gorm.DB
}

func (s *StoreTestSuite) SetupTest() {
	s.Suite.SetupTest()

	s.store = din.MustGetT[thread.Store](s.Container)
	s.DB = din.MustGet[*gorm.DB](s.Container, db.Key)
}

func (s *StoreTestSuite) TestInsertAndFind() {
	created, err := s.store.InsertThread(s, "alice", "mentor", "be a mentor")
	s.Require().NoError(err)
	s.NotZero(created.ID)

	found, err := s.store.FindThread(s, "alice", "mentor")
	s.Require().NoError(err)
	s.Require().NotNil(found)
	s.Equal(created.ID, found.ID)
	s.Equal("be a mentor", found.PersonaPrompt)

	missing, err := s.store.FindThread(s, "bob", "mentor")
	s.Require().NoError(err)
	s.Nil(missing)

	// same name under another owner is a different thread
	other, err := s.store.InsertThread(s, "bob", "mentor", "be a mentor")
	s.Require().NoError(err)
	s.NotEqual(created.ID, other.ID)
}

func (s *StoreTestSuite) TestInsertDuplicate() {
	_, err := s.store.InsertThread(s, "alice", "coach", "p")
	s.Require().NoError(err)

	_, err = s.store.InsertThread(s, "alice", "coach", "p")
	s.ErrorIs(err, errors.ErrAlreadyExists)

	var count int64
	s.Require().NoError(s.DB.Model(&entity.Thread{}).Where("user_id = ?", "alice").Count(&count).Error)
	s.EqualValues(1, count)
}

func (s *StoreTestSuite) TestAppendAndListMessages() {
	th, err := s.store.InsertThread(s, "alice", "mentor", "p")
	s.Require().NoError(err)

	_, err = s.store.AppendMessage(s, th.ID, entity.RoleUser, "hello", entity.MessageMetadata{})
	s.Require().NoError(err)
	_, err = s.store.AppendMessage(s, th.ID, entity.RoleAssistant, "hi there", entity.MessageMetadata{Model: "openai/gpt-4o-mini", OutputTokens: 3})
	s.Require().NoError(err)

	msgs, err := s.store.ListMessages(s, th.ID)
	s.Require().NoError(err)
	s.Require().Len(msgs, 2)
	s.Equal(entity.RoleUser, msgs[0].Role)
	s.Equal("hello", msgs[0].Content)
	s.Equal(entity.RoleAssistant, msgs[1].Role)
	s.Equal("openai/gpt-4o-mini", msgs[1].Metadata.Data().Model)
	s.Equal(3, msgs[1].Metadata.Data().OutputTokens)

	touched, err := s.store.FindThread(s, "alice", "mentor")
	s.Require().NoError(err)
	s.False(touched.UpdatedAt.Before(msgs[1].CreatedAt))
}

func (s *StoreTestSuite) TestAppendClampsTimestamps() {
	th, err := s.store.InsertThread(s, "alice", "mentor", "p")
	s.Require().NoError(err)

	// a clock running backwards
	base := time.Now().Add(time.Hour)
	calls := 0
	s.DB.Config.NowFunc = func() time.Time {
		calls++
		return base.Add(-time.Duration(calls) * time.Minute)
	}

	for _, content := range []string{"one", "two", "three"} {
		_, err := s.store.AppendMessage(s, th.ID, entity.RoleUser, content, entity.MessageMetadata{})
		s.Require().NoError(err)
	}

	msgs, err := s.store.ListMessages(s, th.ID)
	s.Require().NoError(err)
	s.Require().Len(msgs, 3)
	for i, content := range []string{"one", "two", "three"} {
		s.Equal(content, msgs[i].Content)
		if i > 0 {
			s.False(msgs[i].CreatedAt.Before(msgs[i-1].CreatedAt), "message %d went back in time", i)
		}
	}
}

func (s *StoreTestSuite) TestAppendValidation() {
	_, err := s.store.AppendMessage(s, 4242, entity.RoleUser, "hello", entity.MessageMetadata{})
	s.ErrorIs(err, errors.ErrNotFound)

	th, err := s.store.InsertThread(s, "alice", "mentor", "p")
	s.Require().NoError(err)
	_, err = s.store.AppendMessage(s, th.ID, entity.Role("system"), "hello", entity.MessageMetadata{})
	s.ErrorIs(err, errors.ErrInvalidParams)
}

func (s *StoreTestSuite) TestTransactionRollsBackMessages() {
	th, err := s.store.InsertThread(s, "alice", "mentor", "p")
	s.Require().NoError(err)

	err = db.Transaction(s, s.DB, func(ctx context.Context) error {
		if _, err := s.store.AppendMessage(ctx, th.ID, entity.RoleUser, "hello", entity.MessageMetadata{}); err != nil {
			return err
		}
		return errors.New("assistant write failed")
	})
	s.Require().Error(err)

	msgs, err := s.store.ListMessages(s, th.ID)
	s.Require().NoError(err)
	s.Empty(msgs)
}

func (s *StoreTestSuite) TestMostRecentThread() {
	none, err := s.store.MostRecentThread(s, "alice")
	s.Require().NoError(err)
	s.Nil(none)

	mentor, err := s.store.InsertThread(s, "alice", "mentor", "p")
	s.Require().NoError(err)
	investor, err := s.store.InsertThread(s, "alice", "investor", "p")
	s.Require().NoError(err)

	recent, err := s.store.MostRecentThread(s, "alice")
	s.Require().NoError(err)
	s.Equal(investor.ID, recent.ID)

	_, err = s.store.AppendMessage(s, mentor.ID, entity.RoleUser, "back again", entity.MessageMetadata{})
	s.Require().NoError(err)

	recent, err = s.store.MostRecentThread(s, "alice")
	s.Require().NoError(err)
	s.Equal(mentor.ID, recent.ID)

	threads, err := s.store.ListThreads(s, "alice")
	s.Require().NoError(err)
	s.Require().Len(threads, 2)
	s.Equal(mentor.ID, threads[0].ID)
	s.Equal(investor.ID, threads[1].ID)
}

func TestStore(t *testing.T) {
	suite.Run(t, new(StoreTestSuite))
}
