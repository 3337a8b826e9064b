package thread

import (
	"context"
	"log/slog"
	"strings"

	"github.com/habiliai/personachat/entity"
	"github.com/habiliai/personachat/errors"
	"github.com/habiliai/personachat/internal/db"
	"github.com/habiliai/personachat/internal/mylog"
	"github.com/jcooky/go-din"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type (
	// Store persists threads and their messages. Every method joins the transaction carried
	// by ctx, if any (see db.Transaction).
	Store interface {
		// FindThread returns (nil, nil) when the owner has no thread with that name.
		FindThread(ctx context.Context, owner, name string) (*entity.Thread, error)
		// InsertThread fails with errors.ErrAlreadyExists when (owner, name) is taken.
		InsertThread(ctx context.Context, owner, name, prompt string) (*entity.Thread, error)
		ListMessages(ctx context.Context, threadID uint) ([]entity.Message, error)
		AppendMessage(ctx context.Context, threadID uint, role entity.Role, content string, metadata entity.MessageMetadata) (*entity.Message, error)
		// MostRecentThread returns (nil, nil) when the owner has no threads.
		MostRecentThread(ctx context.Context, owner string) (*entity.Thread, error)
		ListThreads(ctx context.Context, owner string) ([]entity.Thread, error)
	}

	store struct {
		logger *mylog.Logger
		db     *gorm.DB
	}
)

var _ Store = (*store)(nil)

func NewStore(db *gorm.DB, logger *mylog.Logger) Store {
	return &store{
		logger: logger,
		db:     db,
	}
}

func (s *store) FindThread(ctx context.Context, owner, name string) (*entity.Thread, error) {
	_, tx := db.OpenSession(ctx, s.db)

	var thread entity.Thread
	r := tx.Where("user_id = ? AND name = ?", owner, name).Limit(1).Find(&thread)
	if r.Error != nil {
		return nil, storeError(r.Error, "failed to find thread")
	} else if r.RowsAffected == 0 {
		return nil, nil
	}

	return &thread, nil
}

func (s *store) InsertThread(ctx context.Context, owner, name, prompt string) (*entity.Thread, error) {
	_, tx := db.OpenSession(ctx, s.db)

	thread := entity.Thread{
		UserID:        owner,
		Name:          name,
		PersonaPrompt: prompt,
	}
	if err := tx.Create(&thread).Error; err != nil {
		if isDuplicate(err) {
			return nil, errors.Wrapf(errors.ErrAlreadyExists, "thread %q of %q", name, owner)
		}
		return nil, storeError(err, "failed to create thread")
	}

	s.logger.Debug("thread created", "thread_id", thread.ID, "user_id", owner, "name", name)

	return &thread, nil
}

func (s *store) ListMessages(ctx context.Context, threadID uint) ([]entity.Message, error) {
	_, tx := db.OpenSession(ctx, s.db)

	var messages []entity.Message
	if err := tx.Where("thread_id = ?", threadID).Order("created_at ASC, id ASC").Find(&messages).Error; err != nil {
		return nil, storeError(err, "failed to find messages")
	}

	return messages, nil
}

// AppendMessage adds a message whose timestamp is never earlier than the thread's latest
// message and moves the thread's UpdatedAt forward to it.
func (s *store) AppendMessage(
	ctx context.Context,
	threadID uint,
	role entity.Role,
	content string,
	metadata entity.MessageMetadata,
) (*entity.Message, error) {
	if !role.Valid() {
		return nil, errors.Wrapf(errors.ErrInvalidParams, "invalid role %q", role)
	}

	_, tx := db.OpenSession(ctx, s.db)

	var msg entity.Message
	if err := tx.Transaction(func(tx *gorm.DB) error {
		var thread entity.Thread
		if r := tx.Limit(1).Find(&thread, threadID); r.Error != nil {
			return storeError(r.Error, "failed to find thread")
		} else if r.RowsAffected == 0 {
			return errors.Wrapf(errors.ErrNotFound, "thread %d not found", threadID)
		}

		var last entity.Message
		r := tx.Where("thread_id = ?", threadID).Order("created_at DESC, id DESC").Limit(1).Find(&last)
		if r.Error != nil {
			return storeError(r.Error, "failed to find latest message")
		}

		ts := tx.NowFunc()
		if r.RowsAffected > 0 && ts.Before(last.CreatedAt) {
			ts = last.CreatedAt
		}

		msg = entity.Message{
			ThreadID: threadID,
			Role:     role,
			Content:  content,
			Metadata: datatypes.NewJSONType(metadata),
		}
		msg.CreatedAt = ts
		msg.UpdatedAt = ts
		if err := tx.Create(&msg).Error; err != nil {
			return storeError(err, "failed to save message")
		}

		if ts.After(thread.UpdatedAt) {
			if err := tx.Model(&entity.Thread{}).Where("id = ?", threadID).UpdateColumn("updated_at", ts).Error; err != nil {
				return storeError(err, "failed to touch thread")
			}
		}

		return nil
	}); err != nil {
		return nil, err
	}

	return &msg, nil
}

func (s *store) MostRecentThread(ctx context.Context, owner string) (*entity.Thread, error) {
	_, tx := db.OpenSession(ctx, s.db)

	var thread entity.Thread
	r := tx.Where("user_id = ?", owner).Order("updated_at DESC, id DESC").Limit(1).Find(&thread)
	if r.Error != nil {
		return nil, storeError(r.Error, "failed to find most recent thread")
	} else if r.RowsAffected == 0 {
		return nil, nil
	}

	return &thread, nil
}

func (s *store) ListThreads(ctx context.Context, owner string) ([]entity.Thread, error) {
	_, tx := db.OpenSession(ctx, s.db)

	var threads []entity.Thread
	if err := tx.Where("user_id = ?", owner).Order("updated_at DESC, id DESC").Find(&threads).Error; err != nil {
		return nil, storeError(err, "failed to find threads")
	}

	return threads, nil
}

func isDuplicate(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// storeError keeps context cancellation visible to callers and files everything else
// under errors.ErrStoreUnavailable.
func storeError(err error, msg string) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return errors.Wrap(err, msg)
	}
	return errors.Wrapf(errors.ErrStoreUnavailable, "%s: %v", msg, err)
}

func init() {
	din.RegisterT(func(c *din.Container) (Store, error) {
		logger, err := din.Get[*slog.Logger](c, mylog.Key)
		if err != nil {
			return nil, err
		}

		return NewStore(din.MustGet[*gorm.DB](c, db.Key), logger), nil
	})
}
