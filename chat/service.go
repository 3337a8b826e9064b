package chat

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/habiliai/personachat/config"
	"github.com/habiliai/personachat/engine"
	"github.com/habiliai/personachat/entity"
	"github.com/habiliai/personachat/errors"
	"github.com/habiliai/personachat/internal/db"
	"github.com/habiliai/personachat/internal/metrics"
	"github.com/habiliai/personachat/internal/mylog"
	"github.com/habiliai/personachat/internal/sliceutils"
	"github.com/habiliai/personachat/internal/stringutils"
	"github.com/habiliai/personachat/persona"
	"github.com/habiliai/personachat/thread"
	"github.com/jcooky/go-din"
	"gorm.io/gorm"
)

type (
	// Completer produces the assistant reply for one turn.
	Completer interface {
		Complete(ctx context.Context, systemPrompt string, history []entity.Message, message string) (*engine.Completion, error)
	}

	HandleRequest struct {
		UserID     string `json:"user_id" jsonschema:"required,minLength=1" jsonschema_description:"Caller identity; threads are scoped to it."`
		Message    string `json:"message" jsonschema:"required,minLength=1" jsonschema_description:"The user's message. May contain a persona switch phrase such as 'act like my mentor'."`
		ThreadName string `json:"thread_name,omitempty" jsonschema_description:"Optional explicit thread name; overrides persona detection."`
	}

	HandleResponse struct {
		Response   string `json:"response"`
		ThreadName string `json:"thread_name"`
		ThreadID   uint   `json:"thread_id"`
	}

	Options struct {
		// MaxHistoryMessages caps the history sent to the model; 0 sends all of it.
		MaxHistoryMessages int
	}

	Service struct {
		logger     *slog.Logger
		db         *gorm.DB
		store      thread.Store
		router     *thread.Router
		classifier *persona.Classifier
		completer  Completer
		metrics    *metrics.Metrics
		archive    *Archive
		opts       Options
	}
)

func NewService(
	logger *slog.Logger,
	gormDB *gorm.DB,
	store thread.Store,
	router *thread.Router,
	classifier *persona.Classifier,
	completer Completer,
	m *metrics.Metrics,
	opts Options,
) *Service {
	return &Service{
		logger:     logger,
		db:         gormDB,
		store:      store,
		router:     router,
		classifier: classifier,
		completer:  completer,
		metrics:    m,
		archive:    NewArchive(gormDB, store),
		opts:       opts,
	}
}

// Handle runs one turn: route the message to a persona thread, ask the model, and store the
// user message together with the reply. Nothing is stored when the model fails.
func (s *Service) Handle(ctx context.Context, req HandleRequest) (resp *HandleResponse, err error) {
	defer func() {
		s.metrics.Turns.WithLabelValues(outcomeOf(err)).Inc()
	}()

	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		return nil, errors.Wrapf(errors.ErrInvalidParams, "user_id is required")
	}
	message := stringutils.SanitizeText(req.Message)
	if stringutils.IsBlank(message) {
		return nil, errors.Wrapf(errors.ErrInvalidParams, "message is required")
	}

	intent := s.classifier.Classify(message)
	th, err := s.router.Resolve(ctx, userID, intent, req.ThreadName)
	if err != nil {
		return nil, err
	}

	history, err := s.store.ListMessages(ctx, th.ID)
	if err != nil {
		return nil, err
	}
	history = sliceutils.Last(history, s.opts.MaxHistoryMessages)

	started := time.Now()
	completion, err := s.completer.Complete(ctx, th.PersonaPrompt, history, message)
	if err != nil {
		s.logger.Warn("model invocation failed", "user_id", userID, "thread_id", th.ID, mylog.Err(err))
		return nil, errors.Wrapf(errors.ErrModelInvocation, "model call for thread %d failed: %v", th.ID, err)
	}
	s.metrics.ModelLatency.WithLabelValues(completion.Model).Observe(time.Since(started).Seconds())

	if err := db.Transaction(ctx, s.db, func(ctx context.Context) error {
		if _, err := s.store.AppendMessage(ctx, th.ID, entity.RoleUser, message, entity.MessageMetadata{}); err != nil {
			return err
		}
		_, err := s.store.AppendMessage(ctx, th.ID, entity.RoleAssistant, completion.Text, entity.MessageMetadata{
			Model:        completion.Model,
			InputTokens:  completion.InputTokens,
			OutputTokens: completion.OutputTokens,
		})
		return err
	}); err != nil {
		return nil, err
	}

	s.logger.Info("turn handled",
		"user_id", userID,
		"thread", th.Name,
		"thread_id", th.ID,
		"switch", intent.Switch,
		"history", len(history),
	)

	return &HandleResponse{
		Response:   completion.Text,
		ThreadName: th.Name,
		ThreadID:   th.ID,
	}, nil
}

func outcomeOf(err error) string {
	if err == nil {
		return metrics.OutcomeOK
	}
	switch errors.Code(err) {
	case errors.CodeInvalidParams:
		return metrics.OutcomeInvalid
	case errors.CodeNoActivePersona:
		return metrics.OutcomeNoActivePersona
	case errors.CodeModelInvocation:
		return metrics.OutcomeModelError
	case errors.CodeStoreUnavailable:
		return metrics.OutcomeStoreError
	default:
		return metrics.OutcomeInternal
	}
}

func init() {
	din.RegisterT(func(c *din.Container) (Completer, error) {
		return din.GetT[*engine.Engine](c)
	})

	din.RegisterT(func(c *din.Container) (*Service, error) {
		logger, err := din.Get[*slog.Logger](c, mylog.Key)
		if err != nil {
			return nil, err
		}
		conf, err := din.GetT[*config.Config](c)
		if err != nil {
			return nil, err
		}
		completer, err := din.GetT[Completer](c)
		if err != nil {
			return nil, err
		}

		return NewService(
			logger,
			din.MustGet[*gorm.DB](c, db.Key),
			din.MustGetT[thread.Store](c),
			din.MustGetT[*thread.Router](c),
			din.MustGetT[*persona.Classifier](c),
			completer,
			din.MustGetT[*metrics.Metrics](c),
			Options{MaxHistoryMessages: conf.Chat.MaxHistoryMessages},
		), nil
	})
}
