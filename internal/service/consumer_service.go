package service

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"

	"querymate-be/internal/constant"
	"querymate-be/internal/pkg/logger"
	"querymate-be/pkg/events"
	pktNats "querymate-be/pkg/nats"
)

type IConsumerService interface {
	Consume(ctx context.Context) error
}

// consumerService drops cached widget lookups when a document is committed
// or a key is rotated. Local events arrive over the watermill channel; events
// from other instances arrive over NATS when it is configured.
type consumerService struct {
	pubSub     *gochannel.GoChannel
	topicName  string
	subscriber *pktNats.Subscriber
	widgetChat IWidgetChatService
	logger     logger.ILogger
}

func NewConsumerService(
	pubSub *gochannel.GoChannel,
	topicName string,
	subscriber *pktNats.Subscriber,
	widgetChat IWidgetChatService,
	logger logger.ILogger,
) IConsumerService {
	return &consumerService{
		pubSub:     pubSub,
		topicName:  topicName,
		subscriber: subscriber,
		widgetChat: widgetChat,
		logger:     logger,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.pubSub.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	if cs.subscriber != nil {
		durable := fmt.Sprintf("widget-cache-%s", instanceName())
		if err := cs.subscriber.Subscribe(ctx, pktNats.SubjectPrefix+".>", durable, cs.handle); err != nil {
			return err
		}
	}
	return nil
}

func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	event, err := events.Decode(msg)
	if err != nil {
		cs.logger.Error(constant.LogModuleCache, "Failed to decode event", map[string]interface{}{
			"message_id": msg.UUID,
			"error":      err.Error(),
		})
		msg.Ack() // Ack invalid messages to prevent infinite retry
		return
	}
	_ = cs.handle(ctx, event)
	msg.Ack()
}

func (cs *consumerService) handle(_ context.Context, event events.BaseEvent) error {
	userId := event.String("user_id")
	switch event.EventType() {
	case events.ContextCommitted, events.ApiKeyRotated:
		cs.widgetChat.InvalidateUser(userId)
	default:
		return nil
	}
	cs.logger.Debug(constant.LogModuleCache, "Widget cache invalidated", map[string]interface{}{
		"event":   event.EventType(),
		"user_id": userId,
	})
	return nil
}

func instanceName() string {
	if host, err := os.Hostname(); err == nil && host != "" {
		// durable names may not contain subject tokens
		return strings.NewReplacer(".", "-", "*", "-", ">", "-", " ", "-").Replace(host)
	}
	return uuid.NewString()[:8]
}
