package chat_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/habiliai/personachat/chat"
	"github.com/habiliai/personachat/engine"
	"github.com/habiliai/personachat/entity"
	"github.com/habiliai/personachat/errors"
	"github.com/habiliai/personachat/internal/db"
	"github.com/habiliai/personachat/internal/metrics"
	"github.com/habiliai/personachat/internal/mylog"
	"github.com/habiliai/personachat/internal/mytesting"
	"github.com/habiliai/personachat/persona"
	"github.com/habiliai/personachat/thread"
	"github.com/jcooky/go-din"
	"github.com/stretchr/testify/suite"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

type completeCall struct {
	SystemPrompt string
	History      []string
	Message      string
}

// fakeCompleter answers "<reply> #n" and records what it was asked.
type fakeCompleter struct {
	mu    sync.Mutex
	calls []completeCall
	err   error
}

func (f *fakeCompleter) Complete(_ context.Context, systemPrompt string, history []entity.Message, message string) (*engine.Completion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	call := completeCall{SystemPrompt: systemPrompt, Message: message}
	for _, m := range history {
		call.History = append(call.History, m.Content)
	}
	f.calls = append(f.calls, call)

	if f.err != nil {
		return nil, f.err
	}
	return &engine.Completion{
		Text:         "reply to: " + message,
		Model:        "test/fake",
		InputTokens:  10,
		OutputTokens: 5,
	}, nil
}

func (f *fakeCompleter) lastCall() completeCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[len(f.calls)-1]
}

type ServiceTestSuite struct {
	mytesting.Suite

	completer *fakeCompleter
	service   *chat.Service
	store     thread.Store
}

func (s *ServiceTestSuite) SetupTest() {
	s.Suite.SetupTest()

	s.completer = &fakeCompleter{}
	din.SetT[chat.Completer](s.Container, s.completer)

	s.service = din.MustGetT[*chat.Service](s.Container)
	s.store = din.MustGetT[thread.Store](s.Container)
}

func (s *ServiceTestSuite) handle(message string) *chat.HandleResponse {
	resp, err := s.service.Handle(s, chat.HandleRequest{UserID: "founder", Message: message})
	s.Require().NoError(err)
	return resp
}

func (s *ServiceTestSuite) countMessages(threadID uint) int {
	msgs, err := s.store.ListMessages(s, threadID)
	s.Require().NoError(err)
	return len(msgs)
}

func (s *ServiceTestSuite) TestPersonaSwitchingScenario() {
	// a fresh user names a persona
	first := s.handle("act like my mentor")
	s.Equal("mentor", first.ThreadName)
	s.Equal("reply to: act like my mentor", first.Response)
	s.Equal(2, s.countMessages(first.ThreadID))
	s.Contains(s.completer.lastCall().SystemPrompt, "experienced business mentor")

	// no switch phrase continues in the same thread
	second := s.handle("how can I scale my product?")
	s.Equal(first.ThreadID, second.ThreadID)
	s.Equal(4, s.countMessages(first.ThreadID))
	s.Equal([]string{"act like my mentor", "reply to: act like my mentor"}, s.completer.lastCall().History)

	// a new persona gets its own thread
	third := s.handle("now act like an investor")
	s.Equal("investor", third.ThreadName)
	s.NotEqual(first.ThreadID, third.ThreadID)
	s.Contains(s.completer.lastCall().SystemPrompt, "venture capitalist")
	s.Empty(s.completer.lastCall().History)

	history, err := s.service.History(s, "founder")
	s.Require().NoError(err)
	s.Len(history, 2)

	// switching back keeps the mentor's context
	fourth := s.handle("back to mentor thread, should I focus on organic growth?")
	s.Equal(first.ThreadID, fourth.ThreadID)
	s.Equal("mentor", fourth.ThreadName)
	s.Len(s.completer.lastCall().History, 4)
	s.Equal(6, s.countMessages(first.ThreadID))
	s.Equal(2, s.countMessages(third.ThreadID))
}

func (s *ServiceTestSuite) TestModelFailurePersistsNothing() {
	s.completer.err = errors.New("provider down")

	_, err := s.service.Handle(s, chat.HandleRequest{UserID: "founder", Message: "act like my coach"})
	s.Require().ErrorIs(err, errors.ErrModelInvocation)
	s.Equal(errors.CodeModelInvocation, errors.Code(err))
	s.Contains(err.Error(), "provider down")

	th, err := s.store.FindThread(s, "founder", "coach")
	s.Require().NoError(err)
	s.Require().NotNil(th)
	s.Equal(0, s.countMessages(th.ID))
}

func (s *ServiceTestSuite) TestValidation() {
	for _, req := range []chat.HandleRequest{
		{UserID: "", Message: "act like my mentor"},
		{UserID: "   ", Message: "act like my mentor"},
		{UserID: "founder", Message: ""},
		{UserID: "founder", Message: "\x00\x01 \t"},
		{UserID: "founder", Message: "hello", ThreadName: "!!!"},
	} {
		_, err := s.service.Handle(s, req)
		s.ErrorIs(err, errors.ErrInvalidParams, "request %+v", req)
	}
	s.Empty(s.completer.calls)
}

func (s *ServiceTestSuite) TestFirstMessageWithoutPersona() {
	_, err := s.service.Handle(s, chat.HandleRequest{UserID: "founder", Message: "hello there"})
	s.ErrorIs(err, errors.ErrNoActivePersona)
	s.Empty(s.completer.calls)
}

func (s *ServiceTestSuite) TestExplicitThreadName() {
	resp, err := s.service.Handle(s, chat.HandleRequest{UserID: "founder", Message: "hello there", ThreadName: "Board Member"})
	s.Require().NoError(err)
	s.Equal("board_member", resp.ThreadName)
	s.Equal("You are acting as board_member. Respond accordingly.", s.completer.lastCall().SystemPrompt)
}

func (s *ServiceTestSuite) TestMessageIsSanitized() {
	resp := s.handle("act like my\x00 mentor\x07")
	msgs, err := s.store.ListMessages(s, resp.ThreadID)
	s.Require().NoError(err)
	s.Equal("act like my mentor", msgs[0].Content)
}

func (s *ServiceTestSuite) TestHistory() {
	first := s.handle("act like my mentor")
	s.handle("what should I do first?")

	history, err := s.service.History(s, "founder")
	s.Require().NoError(err)
	s.Require().Contains(history, "mentor")

	mentor := history["mentor"]
	s.Equal(first.ThreadID, mentor.ThreadID)
	s.Contains(mentor.PersonaPrompt, "business mentor")

	want := []chat.MessageView{
		{Role: entity.RoleUser, Content: "act like my mentor"},
		{Role: entity.RoleAssistant, Content: "reply to: act like my mentor"},
		{Role: entity.RoleUser, Content: "what should I do first?"},
		{Role: entity.RoleAssistant, Content: "reply to: what should I do first?"},
	}
	if diff := cmp.Diff(want, mentor.Messages, cmpopts.IgnoreFields(chat.MessageView{}, "Timestamp")); diff != "" {
		s.Failf("unexpected history", "(-want +got):\n%s", diff)
	}
	for i := 1; i < len(mentor.Messages); i++ {
		s.False(mentor.Messages[i].Timestamp.Before(mentor.Messages[i-1].Timestamp))
	}

	empty, err := s.service.History(s, "nobody")
	s.Require().NoError(err)
	s.Empty(empty)

	_, err = s.service.History(s, " ")
	s.ErrorIs(err, errors.ErrInvalidParams)
}

func (s *ServiceTestSuite) TestMaxHistoryMessages() {
	svc := chat.NewService(
		din.MustGet[*mylog.Logger](s.Container, mylog.Key),
		din.MustGet[*gorm.DB](s.Container, db.Key),
		s.store,
		din.MustGetT[*thread.Router](s.Container),
		persona.NewClassifier(),
		s.completer,
		metrics.New(),
		chat.Options{MaxHistoryMessages: 2},
	)

	for _, msg := range []string{"act like my coach", "one", "two"} {
		_, err := svc.Handle(s, chat.HandleRequest{UserID: "founder", Message: msg})
		s.Require().NoError(err)
	}

	s.Equal([]string{"one", "reply to: one"}, s.completer.lastCall().History)
}

func (s *ServiceTestSuite) TestConcurrentUsers() {
	const users, turns = 16, 4

	var eg errgroup.Group
	for i := 0; i < users; i++ {
		userID := fmt.Sprintf("user-%d", i)
		eg.Go(func() error {
			for turn := 0; turn < turns; turn++ {
				message := fmt.Sprintf("question %d", turn)
				if turn == 0 {
					message = "act like my mentor"
				}
				if _, err := s.service.Handle(s, chat.HandleRequest{UserID: userID, Message: message}); err != nil {
					return fmt.Errorf("%s turn %d: %w", userID, turn, err)
				}
			}
			return nil
		})
	}
	s.Require().NoError(eg.Wait())

	for i := 0; i < users; i++ {
		th, err := s.store.FindThread(s, fmt.Sprintf("user-%d", i), "mentor")
		s.Require().NoError(err)
		s.Require().NotNil(th)
		s.Equal(2*turns, s.countMessages(th.ID))
	}
}

func TestService(t *testing.T) {
	suite.Run(t, new(ServiceTestSuite))
}
