package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"querymate-be/internal/constant"
	"querymate-be/internal/pkg/logger"
	"querymate-be/internal/repository/memory"
	"querymate-be/pkg/contextbuilder"
	"querymate-be/pkg/events"
	"querymate-be/pkg/keylock"
	"querymate-be/pkg/store"
)

type sessionFixture struct {
	svc       IContextSessionService
	db        *fakeDB
	sessions  *memory.SessionRepository
	extractor *scriptedExtractor
	publisher *recordingPublisher
	userId    uuid.UUID
}

func newSessionFixture(t *testing.T, results ...contextbuilder.Result) *sessionFixture {
	t.Helper()
	db := newFakeDB()
	user := db.addUser("owner@acme.test")
	locker := keylock.New()
	publisher := &recordingPublisher{}
	log := logger.NewNopLogger()
	sessions := memory.NewSessionRepository(time.Hour)
	extractor := &scriptedExtractor{results: results}

	userContext := NewUserContextService(db, locker, publisher, log)
	svc := NewContextSessionService(sessions, userContext, extractor, contextbuilder.DefaultCompletionPolicy(), locker, log)

	return &sessionFixture{
		svc:       svc,
		db:        db,
		sessions:  sessions,
		extractor: extractor,
		publisher: publisher,
		userId:    user.Id,
	}
}

func TestContextSession_GetSessionCreatesSeededSession(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()

	res, err := f.svc.GetSession(ctx, f.userId)
	require.NoError(t, err)

	assert.Equal(t, store.StageCollecting, res.Stage)
	assert.Nil(t, res.CollectedData)
	assert.False(t, res.HasExistingContext)
	assert.Equal(t, constant.ContextSessionInitialMessage, res.InitialMessage)
	require.Len(t, res.Messages, 1)
	assert.Equal(t, constant.ChatMessageRoleAssistant, res.Messages[0].Role)
}

func TestContextSession_FirstAnswerRecordsFieldsAndTranscript(t *testing.T) {
	f := newSessionFixture(t, contextbuilder.Result{
		Reply:   "What does Acme Bakery do?",
		Updates: contextbuilder.Fields{BusinessName: "Acme Bakery"},
	})
	ctx := context.Background()

	res, err := f.svc.PostMessage(ctx, f.userId, "My business is called Acme Bakery")
	require.NoError(t, err)

	assert.False(t, res.Done)
	assert.Equal(t, "What does Acme Bakery do?", res.Reply)
	require.NotNil(t, res.CollectedData)
	assert.Equal(t, contextbuilder.Fields{BusinessName: "Acme Bakery"}, *res.CollectedData)

	sess, err := f.svc.GetSession(ctx, f.userId)
	require.NoError(t, err)
	assert.Equal(t, store.StageCollecting, sess.Stage)
	assert.Len(t, sess.Messages, 3)
}

func TestContextSession_ModelDoneWithRequiredFieldsCompletes(t *testing.T) {
	f := newSessionFixture(t,
		contextbuilder.Result{Reply: "What do you do?", Updates: contextbuilder.Fields{BusinessName: "Acme Bakery"}},
		contextbuilder.Result{Reply: "Thanks!", Updates: contextbuilder.Fields{Description: "We bake bread"}, Done: true},
	)
	ctx := context.Background()

	_, err := f.svc.PostMessage(ctx, f.userId, "My business is called Acme Bakery")
	require.NoError(t, err)
	res, err := f.svc.PostMessage(ctx, f.userId, "We bake bread")
	require.NoError(t, err)

	assert.True(t, res.Done)
	assert.Equal(t, constant.ContextSessionCompleteReply, res.Reply)
	assert.Equal(t, "Business Name: Acme Bakery\n\nDescription:\nWe bake bread", res.FormattedContext)

	sess, err := f.svc.GetSession(ctx, f.userId)
	require.NoError(t, err)
	assert.Equal(t, store.StageComplete, sess.Stage)
	assert.Empty(t, sess.InitialMessage)

	// prior fields handed to the engine accumulate
	require.Len(t, f.extractor.priors, 2)
	assert.Equal(t, "Acme Bakery", f.extractor.priors[1].BusinessName)
}

func TestContextSession_ModelDoneWithoutRequiredFieldsKeepsCollecting(t *testing.T) {
	f := newSessionFixture(t, contextbuilder.Result{
		Reply:   "And what do you do?",
		Updates: contextbuilder.Fields{BusinessName: "Acme"},
		Done:    true,
	})

	res, err := f.svc.PostMessage(context.Background(), f.userId, "Acme")
	require.NoError(t, err)
	assert.False(t, res.Done)
	assert.Equal(t, "And what do you do?", res.Reply)
}

func TestContextSession_UserSaysNothingElse(t *testing.T) {
	f := newSessionFixture(t,
		contextbuilder.Result{Reply: "ok", Updates: contextbuilder.Fields{BusinessName: "Acme", Description: "Bread"}},
		contextbuilder.Result{Reply: "anything else?"},
	)
	ctx := context.Background()

	_, err := f.svc.PostMessage(ctx, f.userId, "Acme, we bake bread")
	require.NoError(t, err)
	res, err := f.svc.PostMessage(ctx, f.userId, "Nothing else, that's all")
	require.NoError(t, err)
	assert.True(t, res.Done)
}

func TestContextSession_ResetAfterCompleteReturnsToCollecting(t *testing.T) {
	f := newSessionFixture(t, contextbuilder.Result{
		Reply:   "done",
		Updates: contextbuilder.Fields{BusinessName: "X", Description: "Y"},
		Done:    true,
	})
	ctx := context.Background()

	res, err := f.svc.PostMessage(ctx, f.userId, "X does Y")
	require.NoError(t, err)
	require.True(t, res.Done)

	require.NoError(t, f.svc.ResetSession(ctx, f.userId))

	sess, err := f.svc.GetSession(ctx, f.userId)
	require.NoError(t, err)
	assert.Equal(t, store.StageCollecting, sess.Stage)
	assert.Nil(t, sess.CollectedData)
	assert.Len(t, sess.Messages, 1)
}

func TestContextSession_PostMessageRejectsCompleteStage(t *testing.T) {
	f := newSessionFixture(t, contextbuilder.Result{
		Updates: contextbuilder.Fields{BusinessName: "X", Description: "Y"},
		Done:    true,
	})
	ctx := context.Background()

	_, err := f.svc.PostMessage(ctx, f.userId, "X does Y")
	require.NoError(t, err)

	_, err = f.svc.PostMessage(ctx, f.userId, "one more thing")
	assert.ErrorIs(t, err, ErrSessionAlreadyComplete)
	assert.Equal(t, 1, f.extractor.calls)
}

func TestContextSession_EmptyMessage(t *testing.T) {
	f := newSessionFixture(t)
	_, err := f.svc.PostMessage(context.Background(), f.userId, "   ")
	assert.ErrorIs(t, err, ErrEmptyMessage)
}

func TestContextSession_DegradedReplyLeavesStateUntouched(t *testing.T) {
	f := newSessionFixture(t,
		contextbuilder.Result{Reply: "next?", Updates: contextbuilder.Fields{BusinessName: "Acme"}},
		contextbuilder.Result{Reply: constant.ContextSessionDegradedReply, Degraded: true},
	)
	ctx := context.Background()

	_, err := f.svc.PostMessage(ctx, f.userId, "Acme")
	require.NoError(t, err)
	before, err := f.sessions.Get(ctx, f.userId.String())
	require.NoError(t, err)

	res, err := f.svc.PostMessage(ctx, f.userId, "we bake")
	require.NoError(t, err)
	assert.False(t, res.Done)
	assert.Equal(t, constant.ContextSessionDegradedReply, res.Reply)

	after, err := f.sessions.Get(ctx, f.userId.String())
	require.NoError(t, err)
	assert.Equal(t, before.Version, after.Version)
	assert.Equal(t, before.CollectedData, after.CollectedData)
	assert.Len(t, after.Messages, len(before.Messages))
	assert.Equal(t, store.StageCollecting, after.Stage)
}

func TestContextSession_CompleteCommitsAndClears(t *testing.T) {
	f := newSessionFixture(t, contextbuilder.Result{
		Updates: contextbuilder.Fields{BusinessName: "Acme", Description: "Bread"},
		Done:    true,
	})
	ctx := context.Background()

	_, err := f.svc.PostMessage(ctx, f.userId, "Acme bakes bread")
	require.NoError(t, err)

	require.NoError(t, f.svc.CompleteSession(ctx, f.userId, "  Business Name: Acme (edited)  "))

	assert.Equal(t, "Business Name: Acme (edited)", f.db.documents[f.userId].Content)
	assert.Equal(t, []string{events.ContextCommitted}, f.publisher.types())

	gone, err := f.sessions.Get(ctx, f.userId.String())
	require.NoError(t, err)
	assert.Nil(t, gone)

	// same text again is a no-op
	require.NoError(t, f.svc.CompleteSession(ctx, f.userId, "Business Name: Acme (edited)"))
	assert.Equal(t, 1, f.db.upserts)

	// different text without a completed session is a conflict
	assert.ErrorIs(t, f.svc.CompleteSession(ctx, f.userId, "other"), ErrSessionNotComplete)

	sess, err := f.svc.GetSession(ctx, f.userId)
	require.NoError(t, err)
	assert.True(t, sess.HasExistingContext)
}

func TestContextSession_CompleteRequiresCompleteStage(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()

	_, err := f.svc.GetSession(ctx, f.userId)
	require.NoError(t, err)

	assert.ErrorIs(t, f.svc.CompleteSession(ctx, f.userId, "text"), ErrSessionNotComplete)
	assert.ErrorIs(t, f.svc.CompleteSession(ctx, f.userId, " "), ErrEmptyContext)
	assert.Empty(t, f.db.documents)
}

func TestContextSession_UpdateStartsFreshInterview(t *testing.T) {
	f := newSessionFixture(t, contextbuilder.Result{
		Updates: contextbuilder.Fields{BusinessName: "Acme", Description: "Bread"},
		Done:    true,
	})
	ctx := context.Background()

	_, err := f.svc.PostMessage(ctx, f.userId, "Acme bakes bread")
	require.NoError(t, err)

	res, err := f.svc.UpdateSession(ctx, f.userId)
	require.NoError(t, err)
	assert.Equal(t, store.StageCollecting, res.Stage)
	assert.Nil(t, res.CollectedData)
	assert.Equal(t, constant.ContextSessionUpdateMessage, res.InitialMessage)

	// reopened sessions do not short-circuit to the read view
	sess, err := f.svc.GetSession(ctx, f.userId)
	require.NoError(t, err)
	assert.False(t, sess.HasExistingContext)
	assert.Equal(t, constant.ContextSessionUpdateMessage, sess.InitialMessage)
}

func TestContextSession_UpdateAfterCommit(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()

	_, err := f.svc.UpdateSession(ctx, f.userId)
	assert.ErrorIs(t, err, ErrSessionNotComplete)

	_, err = NewUserContextService(f.db, keylock.New(), f.publisher, logger.NewNopLogger()).SaveContext(ctx, f.userId, "Business Name: Acme")
	require.NoError(t, err)

	res, err := f.svc.UpdateSession(ctx, f.userId)
	require.NoError(t, err)
	assert.True(t, res.HasExistingContext)
	assert.Equal(t, store.StageCollecting, res.Stage)
}

func TestContextSession_ConcurrentMessagesDoNotLoseUpdates(t *testing.T) {
	results := make([]contextbuilder.Result, 0, 10)
	for i := 0; i < 10; i++ {
		results = append(results, contextbuilder.Result{
			Reply: "ok",
			Updates: contextbuilder.Fields{Extensions: []contextbuilder.Extension{
				{Key: fmt.Sprintf("fact_%d", i), Value: "v"},
			}},
		})
	}
	f := newSessionFixture(t, results...)
	f.extractor.delay = 2 * time.Millisecond
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := f.svc.PostMessage(ctx, f.userId, fmt.Sprintf("fact %d", i))
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	sess, err := f.sessions.Get(ctx, f.userId.String())
	require.NoError(t, err)
	assert.Len(t, sess.CollectedData.Extensions, 10)
	assert.Equal(t, 10, sess.UserTurns())
}

func TestContextSession_UsersAreIndependent(t *testing.T) {
	f := newSessionFixture(t,
		contextbuilder.Result{Reply: "a", Updates: contextbuilder.Fields{BusinessName: "A"}},
		contextbuilder.Result{Reply: "b", Updates: contextbuilder.Fields{BusinessName: "B"}},
	)
	ctx := context.Background()
	other := f.db.addUser("other@acme.test")

	_, err := f.svc.PostMessage(ctx, f.userId, "A")
	require.NoError(t, err)
	_, err = f.svc.PostMessage(ctx, other.Id, "B")
	require.NoError(t, err)

	mine, _ := f.sessions.Get(ctx, f.userId.String())
	theirs, _ := f.sessions.Get(ctx, other.Id.String())
	assert.Equal(t, "A", mine.CollectedData.BusinessName)
	assert.Equal(t, "B", theirs.CollectedData.BusinessName)
}
