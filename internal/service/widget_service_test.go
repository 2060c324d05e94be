package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"querymate-be/internal/constant"
	"querymate-be/internal/pkg/logger"
	"querymate-be/pkg/events"
	"querymate-be/pkg/keylock"
	"querymate-be/pkg/llm"
)

type fakeLLM struct {
	mu      sync.Mutex
	reply   string
	err     error
	prompts []string
}

func (f *fakeLLM) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	return f.Generate(ctx, history[len(history)-1].Content, options...)
}

func (f *fakeLLM) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, prompt)
	return f.reply, f.err
}

type widgetFixture struct {
	db       *fakeDB
	apiKeys  IApiKeyService
	settings IWidgetSettingsService
	chat     IWidgetChatService
	llm      *fakeLLM
}

func newWidgetFixture() *widgetFixture {
	db := newFakeDB()
	locker := keylock.New()
	log := logger.NewNopLogger()
	apiKeys := NewApiKeyService(db, locker, &recordingPublisher{}, &recordingMailer{sent: make(chan notice, 4)}, log, "https://querymate.test")
	settings := NewWidgetSettingsService(db, locker, log)
	provider := &fakeLLM{reply: "  We open at 8am.  "}
	return &widgetFixture{
		db:       db,
		apiKeys:  apiKeys,
		settings: settings,
		chat:     NewWidgetChatService(db, apiKeys, settings, provider, time.Minute, time.Second, log),
		llm:      provider,
	}
}

func TestWithDefaults(t *testing.T) {
	out := WithDefaults(map[string]string{"primary_color": "#000000", "header_title": ""})
	assert.Equal(t, "#000000", out["primary_color"])
	assert.Equal(t, constant.DefaultWidgetSettings["header_title"], out["header_title"])
	assert.Len(t, out, len(constant.DefaultWidgetSettings))
}

func TestWidgetSettings_UpdateReplaces(t *testing.T) {
	f := newWidgetFixture()
	user := f.db.addUser("owner@acme.test")
	ctx := context.Background()

	got, err := f.settings.GetSettings(ctx, user.Id)
	require.NoError(t, err)
	assert.Equal(t, constant.DefaultWidgetSettings, got)

	_, err = f.settings.UpdateSettings(ctx, user.Id, map[string]string{"primary_color": "#111111", "logo": "x.png"})
	require.NoError(t, err)
	_, err = f.settings.UpdateSettings(ctx, user.Id, map[string]string{"logo": "y.png"})
	require.NoError(t, err)

	got, err = f.settings.GetSettings(ctx, user.Id)
	require.NoError(t, err)
	assert.Equal(t, "y.png", got["logo"])
	assert.Equal(t, constant.DefaultWidgetSettings["primary_color"], got["primary_color"])
}

func TestBuildWidgetPrompt(t *testing.T) {
	prompt := BuildWidgetPrompt("Business Name: Acme Bakery\n\nDescription:\nBread", "When do you open?")
	assert.Contains(t, prompt, "helpful assistant for Acme Bakery")
	assert.Contains(t, prompt, "questions about Acme Bakery")
	assert.Contains(t, prompt, "When do you open?")

	empty := BuildWidgetPrompt("", "hi")
	assert.Contains(t, empty, "this business")
	assert.Contains(t, empty, constant.WidgetNoContextMessage)
}

func TestWidgetChat_AnswersFromDocument(t *testing.T) {
	f := newWidgetFixture()
	user := f.db.addUser("owner@acme.test")
	ctx := context.Background()

	_, err := NewUserContextService(f.db, keylock.New(), &recordingPublisher{}, logger.NewNopLogger()).SaveContext(ctx, user.Id, "Business Name: Acme Bakery")
	require.NoError(t, err)
	key, err := f.apiKeys.RotateApiKey(ctx, user.Id)
	require.NoError(t, err)

	reply, err := f.chat.Chat(ctx, key.ApiKey, "When do you open?")
	require.NoError(t, err)
	assert.Equal(t, "We open at 8am.", reply)
	require.Len(t, f.llm.prompts, 1)
	assert.Contains(t, f.llm.prompts[0], "Business Name: Acme Bakery")
}

func TestWidgetChat_CommitVisibleImmediately(t *testing.T) {
	f := newWidgetFixture()
	user := f.db.addUser("owner@acme.test")
	ctx := context.Background()
	userContext := NewUserContextService(f.db, keylock.New(), &recordingPublisher{}, logger.NewNopLogger(), f.chat.InvalidateUser)

	_, err := userContext.SaveContext(ctx, user.Id, "Business Name: Old Name")
	require.NoError(t, err)
	key, err := f.apiKeys.RotateApiKey(ctx, user.Id)
	require.NoError(t, err)

	_, err = f.chat.Chat(ctx, key.ApiKey, "hi")
	require.NoError(t, err)
	assert.Contains(t, f.llm.prompts[0], "Old Name")

	_, err = userContext.SaveContext(ctx, user.Id, "Business Name: New Name")
	require.NoError(t, err)

	_, err = f.chat.Chat(ctx, key.ApiKey, "hi")
	require.NoError(t, err)
	assert.Contains(t, f.llm.prompts[1], "New Name")
}

func TestWidgetChat_DocumentCachedUntilInvalidated(t *testing.T) {
	f := newWidgetFixture()
	user := f.db.addUser("owner@acme.test")
	ctx := context.Background()
	userContext := NewUserContextService(f.db, keylock.New(), &recordingPublisher{}, logger.NewNopLogger())

	_, err := userContext.SaveContext(ctx, user.Id, "Business Name: Old Name")
	require.NoError(t, err)
	key, err := f.apiKeys.RotateApiKey(ctx, user.Id)
	require.NoError(t, err)
	_, err = f.chat.Chat(ctx, key.ApiKey, "hi")
	require.NoError(t, err)

	// a commit on another instance only reaches this cache through events
	_, err = userContext.SaveContext(ctx, user.Id, "Business Name: New Name")
	require.NoError(t, err)
	_, err = f.chat.Chat(ctx, key.ApiKey, "hi")
	require.NoError(t, err)
	assert.Contains(t, f.llm.prompts[1], "Old Name")

	f.chat.InvalidateUser(user.Id.String())
	_, err = f.chat.Chat(ctx, key.ApiKey, "hi")
	require.NoError(t, err)
	assert.Contains(t, f.llm.prompts[2], "New Name")
}

func TestWidgetChat_RotatedKeyRejectedImmediately(t *testing.T) {
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	defer pubSub.Close()

	db := newFakeDB()
	locker := keylock.New()
	log := logger.NewNopLogger()
	publisher := events.NewChannelPublisher(pubSub, "events")
	apiKeys := NewApiKeyService(db, locker, publisher, &recordingMailer{sent: make(chan notice, 128)}, log, "https://querymate.test")
	settings := NewWidgetSettingsService(db, locker, log)
	chat := NewWidgetChatService(db, apiKeys, settings, &fakeLLM{reply: "ok"}, time.Minute, time.Second, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, NewConsumerService(pubSub, "events", nil, chat, log).Consume(ctx))

	user := db.addUser("owner@acme.test")
	for i := 0; i < 50; i++ {
		old, err := apiKeys.RotateApiKey(ctx, user.Id)
		require.NoError(t, err)
		_, err = chat.Chat(ctx, old.ApiKey, "hi")
		require.NoError(t, err)
		_, err = chat.Settings(ctx, old.ApiKey)
		require.NoError(t, err)

		current, err := apiKeys.RotateApiKey(ctx, user.Id)
		require.NoError(t, err)

		_, err = chat.Chat(ctx, old.ApiKey, "hi")
		require.ErrorIs(t, err, ErrInvalidApiKey, "round %d", i)
		_, err = chat.Settings(ctx, old.ApiKey)
		require.ErrorIs(t, err, ErrInvalidApiKey, "round %d", i)
		_, err = chat.Chat(ctx, current.ApiKey, "hi")
		require.NoError(t, err)
	}
}

func TestWidgetChat_UpstreamFailure(t *testing.T) {
	f := newWidgetFixture()
	user := f.db.addUser("owner@acme.test")
	ctx := context.Background()
	key, err := f.apiKeys.RotateApiKey(ctx, user.Id)
	require.NoError(t, err)

	f.llm.err = errors.New("quota exceeded")
	reply, err := f.chat.Chat(ctx, key.ApiKey, "hi")
	require.NoError(t, err)
	assert.Equal(t, "Note: live AI unavailable. (Details: quota exceeded)", reply)
}

func TestWidgetChat_Validation(t *testing.T) {
	f := newWidgetFixture()
	_, err := f.chat.Chat(context.Background(), "qm_bad", " ")
	assert.ErrorIs(t, err, ErrEmptyMessage)

	_, err = f.chat.Chat(context.Background(), "qm_bad", "hello")
	assert.ErrorIs(t, err, ErrInvalidApiKey)

	_, err = f.chat.Settings(context.Background(), "")
	assert.ErrorIs(t, err, ErrInvalidApiKey)
}

func TestWidgetChat_SettingsByKey(t *testing.T) {
	f := newWidgetFixture()
	user := f.db.addUser("owner@acme.test")
	ctx := context.Background()
	key, err := f.apiKeys.RotateApiKey(ctx, user.Id)
	require.NoError(t, err)
	_, err = f.settings.UpdateSettings(ctx, user.Id, map[string]string{"header_title": "Acme Help"})
	require.NoError(t, err)

	got, err := f.chat.Settings(ctx, key.ApiKey)
	require.NoError(t, err)
	assert.Equal(t, "Acme Help", got["header_title"])
}
