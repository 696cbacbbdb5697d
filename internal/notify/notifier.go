package notify

import (
	"context"
	"fmt"

	"deal_room/pkg/logger"

	"github.com/slack-go/slack"
)

// Notifier дублирует сводки RaftAI во внешний канал
type Notifier interface {
	Notify(ctx context.Context, roomName, text string) error
}

type nopNotifier struct{}

// Nop - notifier, который ничего не отправляет
func Nop() Notifier {
	return nopNotifier{}
}

func (nopNotifier) Notify(ctx context.Context, roomName, text string) error {
	return nil
}

type slackNotifier struct {
	api       *slack.Client
	channelID string
	log       logger.Logger
}

// NewSlackNotifier отправляет сводки в канал Slack от имени бота
func NewSlackNotifier(token, channelID string, log logger.Logger, options ...slack.Option) Notifier {
	return &slackNotifier{
		api:       slack.New(token, options...),
		channelID: channelID,
		log:       log,
	}
}

func (n *slackNotifier) Notify(ctx context.Context, roomName, text string) error {
	_, _, err := n.api.PostMessageContext(ctx, n.channelID,
		slack.MsgOptionText(fmt.Sprintf("*%s*\n%s", roomName, text), false),
	)
	if err != nil {
		n.log.Error("Failed to post summary to Slack", "room", roomName, "error", err)
		return err
	}
	return nil
}
