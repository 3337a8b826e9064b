package thread

import (
	"context"
	"log/slog"

	"github.com/habiliai/personachat/entity"
	"github.com/habiliai/personachat/errors"
	"github.com/habiliai/personachat/internal/metrics"
	"github.com/habiliai/personachat/internal/mylog"
	"github.com/habiliai/personachat/persona"
	"github.com/jcooky/go-din"
	"golang.org/x/sync/singleflight"
)

type (
	PromptSource interface {
		PromptFor(name string) string
	}

	// Router picks the thread a message belongs to.
	Router struct {
		store   Store
		prompts PromptSource
		metrics *metrics.Metrics
		logger  *mylog.Logger

		creating singleflight.Group
	}
)

func NewRouter(store Store, prompts PromptSource, m *metrics.Metrics, logger *mylog.Logger) *Router {
	return &Router{
		store:   store,
		prompts: prompts,
		metrics: m,
		logger:  logger,
	}
}

// Resolve returns the thread for a message of userID. A non-empty explicitName wins over the
// classified intent; a switch intent finds or creates the persona's thread; otherwise the
// user's most recently active thread is used, and errors.ErrNoActivePersona when there is none.
//
// Resolve must not run inside a caller's transaction: concurrent callers for the same thread
// share one lookup.
func (r *Router) Resolve(ctx context.Context, userID string, intent persona.Intent, explicitName string) (*entity.Thread, error) {
	name := intent.Persona
	if explicitName != "" {
		name = persona.Normalize(explicitName)
		if name == "" {
			return nil, errors.Wrapf(errors.ErrInvalidParams, "invalid thread name %q", explicitName)
		}
	} else if !intent.Switch || name == "" {
		thread, err := r.store.MostRecentThread(ctx, userID)
		if err != nil {
			return nil, err
		}
		if thread == nil {
			return nil, errors.Wrapf(errors.ErrNoActivePersona, "user %q has no thread yet", userID)
		}
		return thread, nil
	}

	// the shared lookup outlives any single caller's cancellation
	sharedCtx := context.WithoutCancel(ctx)
	ch := r.creating.DoChan(userID+"\x00"+name, func() (any, error) {
		return r.findOrCreate(sharedCtx, userID, name)
	})

	select {
	case <-ctx.Done():
		return nil, errors.WithStack(ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			r.logger.Debug("thread resolution shared", "user_id", userID, "name", name)
		}
		return res.Val.(*entity.Thread), nil
	}
}

func (r *Router) findOrCreate(ctx context.Context, userID, name string) (*entity.Thread, error) {
	thread, err := r.store.FindThread(ctx, userID, name)
	if err != nil {
		return nil, err
	}
	if thread != nil {
		return thread, nil
	}

	thread, err = r.store.InsertThread(ctx, userID, name, r.prompts.PromptFor(name))
	if err == nil {
		r.metrics.ThreadsCreated.Inc()
		r.logger.Info("persona thread created", "user_id", userID, "name", name, "thread_id", thread.ID)
		return thread, nil
	}
	if !errors.Is(err, errors.ErrAlreadyExists) {
		return nil, err
	}

	// lost the insert race to another writer
	thread, err = r.store.FindThread(ctx, userID, name)
	if err != nil {
		return nil, err
	}
	if thread == nil {
		return nil, errors.Wrapf(errors.ErrInternal, "thread %q of %q vanished after a uniqueness conflict", name, userID)
	}
	return thread, nil
}

func init() {
	din.RegisterT(func(c *din.Container) (*Router, error) {
		logger, err := din.Get[*slog.Logger](c, mylog.Key)
		if err != nil {
			return nil, err
		}

		return NewRouter(
			din.MustGetT[Store](c),
			din.MustGetT[*persona.Catalog](c),
			din.MustGetT[*metrics.Metrics](c),
			logger,
		), nil
	})
}
