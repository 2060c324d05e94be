package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"querymate-be/internal/constant"
	"querymate-be/internal/dto"
	"querymate-be/internal/pkg/logger"
	"querymate-be/internal/repository/contract"
	"querymate-be/pkg/contextbuilder"
	"querymate-be/pkg/keylock"
	"querymate-be/pkg/store"
)

// Extractor is the model-backed step that turns one answer into field updates.
type Extractor interface {
	Extract(ctx context.Context, prior contextbuilder.Fields, transcript []contextbuilder.Turn, utterance string) contextbuilder.Result
}

type IContextSessionService interface {
	GetSession(ctx context.Context, userId uuid.UUID) (*dto.ContextSessionResponse, error)
	PostMessage(ctx context.Context, userId uuid.UUID, message string) (*dto.PostMessageResponse, error)
	CompleteSession(ctx context.Context, userId uuid.UUID, finalContext string) error
	ResetSession(ctx context.Context, userId uuid.UUID) error
	UpdateSession(ctx context.Context, userId uuid.UUID) (*dto.ContextSessionResponse, error)
}

type contextSessionService struct {
	sessions    contract.ContextSessionRepository
	userContext IUserContextService
	extractor   Extractor
	policy      contextbuilder.CompletionPolicy
	locker      *keylock.Locker
	logger      logger.ILogger
	now         func() time.Time
}

func NewContextSessionService(
	sessions contract.ContextSessionRepository,
	userContext IUserContextService,
	extractor Extractor,
	policy contextbuilder.CompletionPolicy,
	locker *keylock.Locker,
	logger logger.ILogger,
) IContextSessionService {
	return &contextSessionService{
		sessions:    sessions,
		userContext: userContext,
		extractor:   extractor,
		policy:      policy,
		locker:      locker,
		logger:      logger,
		now:         time.Now,
	}
}

func (s *contextSessionService) lock(ctx context.Context, userId uuid.UUID) (func(), error) {
	return s.locker.Lock(ctx, keylock.Key(keylock.ResourceSession, userId.String()))
}

// loadOrCreate must be called with the session lock held.
func (s *contextSessionService) loadOrCreate(ctx context.Context, userId uuid.UUID) (*store.ContextSession, error) {
	sess, err := s.sessions.Get(ctx, userId.String())
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if sess != nil {
		return sess, nil
	}
	return s.create(ctx, userId, constant.ContextSessionInitialMessage, false)
}

func (s *contextSessionService) create(ctx context.Context, userId uuid.UUID, greeting string, reopened bool) (*store.ContextSession, error) {
	sess := store.NewContextSession(userId.String(), greeting, s.now())
	sess.Reopened = reopened
	if err := s.sessions.Create(ctx, sess); err != nil {
		if errors.Is(err, store.ErrSessionExists) {
			return nil, ErrSessionConflict
		}
		return nil, fmt.Errorf("create session: %w", err)
	}
	s.logger.Info(constant.LogModuleContextSession, "Session started", map[string]interface{}{
		"user_id":  userId.String(),
		"reopened": reopened,
	})
	return sess, nil
}

func (s *contextSessionService) GetSession(ctx context.Context, userId uuid.UUID) (*dto.ContextSessionResponse, error) {
	unlock, err := s.lock(ctx, userId)
	if err != nil {
		return nil, err
	}
	defer unlock()

	sess, err := s.loadOrCreate(ctx, userId)
	if err != nil {
		return nil, err
	}

	hasExisting := false
	if !sess.Reopened && sess.CollectedData.IsEmpty() {
		hasExisting, err = s.userContext.HasContext(ctx, userId)
		if err != nil {
			return nil, fmt.Errorf("check existing context: %w", err)
		}
	}

	return toSessionResponse(sess, hasExisting), nil
}

func (s *contextSessionService) PostMessage(ctx context.Context, userId uuid.UUID, message string) (*dto.PostMessageResponse, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, ErrEmptyMessage
	}

	unlock, err := s.lock(ctx, userId)
	if err != nil {
		return nil, err
	}
	defer unlock()

	sess, err := s.loadOrCreate(ctx, userId)
	if err != nil {
		return nil, err
	}
	if sess.Stage != store.StageCollecting {
		return nil, ErrSessionAlreadyComplete
	}

	result := s.extractor.Extract(ctx, sess.CollectedData, sess.Messages, message)
	if result.Degraded {
		// nothing is persisted, the user simply retries
		return &dto.PostMessageResponse{
			Reply:         result.Reply,
			CollectedData: collectedOrNil(sess.CollectedData),
		}, nil
	}

	now := s.now()
	sess.Append(constant.ChatMessageRoleUser, message, now)
	sess.CollectedData = sess.CollectedData.Merge(result.Updates)

	done := s.policy.IsComplete(sess.CollectedData, contextbuilder.CompletionSignal{
		ModelDone: result.Done,
		Utterance: message,
		UserTurns: sess.UserTurns(),
	})

	reply := result.Reply
	if done {
		sess.Stage = store.StageComplete
		sess.FormattedContext = contextbuilder.Format(sess.CollectedData)
		reply = constant.ContextSessionCompleteReply
	}
	sess.Append(constant.ChatMessageRoleAssistant, reply, now)

	if err := s.sessions.Update(ctx, sess); err != nil {
		if errors.Is(err, store.ErrVersionConflict) || errors.Is(err, store.ErrSessionNotFound) {
			return nil, ErrSessionConflict
		}
		return nil, fmt.Errorf("save session: %w", err)
	}

	s.logger.Info(constant.LogModuleContextSession, "Message processed", map[string]interface{}{
		"user_id": userId.String(),
		"updated": len(result.Updates.Pairs()),
		"done":    done,
		"turns":   sess.UserTurns(),
	})

	return &dto.PostMessageResponse{
		Reply:            reply,
		Done:             done,
		CollectedData:    collectedOrNil(sess.CollectedData),
		FormattedContext: sess.FormattedContext,
	}, nil
}

func (s *contextSessionService) CompleteSession(ctx context.Context, userId uuid.UUID, finalContext string) error {
	finalContext = strings.TrimSpace(finalContext)
	if finalContext == "" {
		return ErrEmptyContext
	}

	unlock, err := s.lock(ctx, userId)
	if err != nil {
		return err
	}
	defer unlock()

	sess, err := s.sessions.Get(ctx, userId.String())
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	if sess == nil || sess.Stage != store.StageComplete {
		// A repeated commit of the text already on disk is a no-op.
		if current, err := s.userContext.GetContext(ctx, userId); err == nil && current.ContextData == finalContext {
			return nil
		}
		return ErrSessionNotComplete
	}

	if _, err := s.userContext.SaveContext(ctx, userId, finalContext); err != nil {
		return err
	}

	if err := s.sessions.Delete(ctx, userId.String()); err != nil {
		s.logger.Warn(constant.LogModuleContextSession, "Committed but failed to clear session", map[string]interface{}{
			"user_id": userId.String(),
			"error":   err.Error(),
		})
	}

	s.logger.Info(constant.LogModuleContextSession, "Session committed", map[string]interface{}{
		"user_id": userId.String(),
	})
	return nil
}

func (s *contextSessionService) ResetSession(ctx context.Context, userId uuid.UUID) error {
	unlock, err := s.lock(ctx, userId)
	if err != nil {
		return err
	}
	defer unlock()

	if err := s.sessions.Delete(ctx, userId.String()); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	s.logger.Info(constant.LogModuleContextSession, "Session reset", map[string]interface{}{
		"user_id": userId.String(),
	})
	return nil
}

func (s *contextSessionService) UpdateSession(ctx context.Context, userId uuid.UUID) (*dto.ContextSessionResponse, error) {
	unlock, err := s.lock(ctx, userId)
	if err != nil {
		return nil, err
	}
	defer unlock()

	sess, err := s.sessions.Get(ctx, userId.String())
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}

	hasExisting, err := s.userContext.HasContext(ctx, userId)
	if err != nil {
		return nil, fmt.Errorf("check existing context: %w", err)
	}

	completed := sess != nil && sess.Stage == store.StageComplete
	if !completed && !hasExisting {
		return nil, ErrSessionNotComplete
	}
	if sess != nil && sess.Stage == store.StageCollecting && !sess.CollectedData.IsEmpty() {
		return nil, ErrSessionNotComplete
	}

	if err := s.sessions.Delete(ctx, userId.String()); err != nil {
		return nil, fmt.Errorf("delete session: %w", err)
	}
	fresh, err := s.create(ctx, userId, constant.ContextSessionUpdateMessage, true)
	if err != nil {
		return nil, err
	}

	res := toSessionResponse(fresh, false)
	res.HasExistingContext = hasExisting
	return res, nil
}

func collectedOrNil(f contextbuilder.Fields) *contextbuilder.Fields {
	if f.IsEmpty() {
		return nil
	}
	out := f.Clone()
	return &out
}

func toSessionResponse(sess *store.ContextSession, hasExisting bool) *dto.ContextSessionResponse {
	res := &dto.ContextSessionResponse{
		Stage:              sess.Stage,
		CollectedData:      collectedOrNil(sess.CollectedData),
		HasExistingContext: hasExisting,
		Messages:           make([]dto.SessionMessage, 0, len(sess.Messages)),
		FormattedContext:   sess.FormattedContext,
	}
	if sess.Stage == store.StageCollecting {
		res.InitialMessage = sess.InitialMessage()
	}
	for _, m := range sess.Messages {
		res.Messages = append(res.Messages, dto.SessionMessage{
			Role:      m.Role,
			Content:   m.Content,
			CreatedAt: m.CreatedAt,
		})
	}
	return res
}
