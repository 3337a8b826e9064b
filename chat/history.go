package chat

import (
	"context"
	"strings"
	"time"

	"github.com/habiliai/personachat/entity"
	"github.com/habiliai/personachat/errors"
	"github.com/habiliai/personachat/internal/db"
	"github.com/habiliai/personachat/thread"
	"github.com/jcooky/go-din"
	"github.com/mokiat/gog"
	"gorm.io/gorm"
)

type (
	ThreadHistory struct {
		ThreadID      uint          `json:"thread_id" yaml:"thread_id"`
		PersonaPrompt string        `json:"persona_prompt" yaml:"persona_prompt"`
		CreatedAt     time.Time     `json:"created_at" yaml:"created_at"`
		UpdatedAt     time.Time     `json:"updated_at" yaml:"updated_at"`
		Messages      []MessageView `json:"messages" yaml:"messages"`
	}

	MessageView struct {
		Role      entity.Role `json:"role" yaml:"role"`
		Content   string      `json:"content" yaml:"content"`
		Timestamp time.Time   `json:"timestamp" yaml:"timestamp"`
	}

	// Archive reads stored conversations without touching the model.
	Archive struct {
		db    *gorm.DB
		store thread.Store
	}
)

func NewArchive(gormDB *gorm.DB, store thread.Store) *Archive {
	return &Archive{
		db:    gormDB,
		store: store,
	}
}

func (s *Service) History(ctx context.Context, userID string) (map[string]ThreadHistory, error) {
	return s.archive.History(ctx, userID)
}

// History returns every thread of userID keyed by thread name, each with its messages in
// order. A user without threads gets an empty map.
func (a *Archive) History(ctx context.Context, userID string) (map[string]ThreadHistory, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, errors.Wrapf(errors.ErrInvalidParams, "user_id is required")
	}

	result := map[string]ThreadHistory{}
	// one transaction so all threads are read from the same snapshot
	if err := db.Transaction(ctx, a.db, func(ctx context.Context) error {
		threads, err := a.store.ListThreads(ctx, userID)
		if err != nil {
			return err
		}

		for _, th := range threads {
			msgs, err := a.store.ListMessages(ctx, th.ID)
			if err != nil {
				return err
			}
			result[th.Name] = ThreadHistory{
				ThreadID:      th.ID,
				PersonaPrompt: th.PersonaPrompt,
				CreatedAt:     th.CreatedAt,
				UpdatedAt:     th.UpdatedAt,
				Messages:      gog.Map(msgs, toMessageView),
			}
		}
		return nil
	}); err != nil {
		return nil, err
	}

	return result, nil
}

func toMessageView(m entity.Message) MessageView {
	return MessageView{
		Role:      m.Role,
		Content:   m.Content,
		Timestamp: m.CreatedAt,
	}
}

func init() {
	din.RegisterT(func(c *din.Container) (*Archive, error) {
		return NewArchive(din.MustGet[*gorm.DB](c, db.Key), din.MustGetT[thread.Store](c)), nil
	})
}
