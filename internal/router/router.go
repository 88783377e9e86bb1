// Package router answers chat messages arriving through the gateway.
package router

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/nidhogg/boutique-stylist/internal/apperr"
	"github.com/nidhogg/boutique-stylist/internal/command"
	"github.com/nidhogg/boutique-stylist/internal/gateway"
	"go.uber.org/zap"
)

// Sender delivers replies to a platform.
type Sender interface {
	Send(ctx context.Context, msg *gateway.OutboundMessage) error
}

// MessageRouter turns inbound chat messages into recommendations or slash
// command results and replies on the originating channel.
type MessageRouter struct {
	recommender command.Recommender
	sender      Sender
	commands    *command.Registry
	timeout     time.Duration
	wg          sync.WaitGroup
	logger      *zap.Logger
}

// New creates a new MessageRouter. timeout bounds the work for one message.
func New(rec command.Recommender, sender Sender, commands *command.Registry, timeout time.Duration, logger *zap.Logger) *MessageRouter {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &MessageRouter{
		recommender: rec,
		sender:      sender,
		commands:    commands,
		timeout:     timeout,
		logger:      logger,
	}
}

// Handle processes msg in the background so adapters' event loops are never
// blocked. Signature matches gateway.MessageHandler.
func (mr *MessageRouter) Handle(msg *gateway.InboundMessage) {
	mr.wg.Add(1)
	go func() {
		defer mr.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), mr.timeout)
		defer cancel()
		mr.handle(ctx, msg)
	}()
}

// Wait blocks until every in-flight message has been answered.
func (mr *MessageRouter) Wait() {
	mr.wg.Wait()
}

func (mr *MessageRouter) handle(ctx context.Context, msg *gateway.InboundMessage) {
	mr.logger.Info("routing message",
		zap.String("platform", msg.Platform),
		zap.String("channel", msg.ChannelID),
		zap.String("user", msg.UserName),
	)

	content := strings.TrimSpace(msg.Content)
	if content == "" {
		mr.sendReply(ctx, msg, "Tell me what you are shopping for, or type /help.")
		return
	}

	if command.IsCommand(content) && mr.commands != nil {
		origin := &command.Origin{
			Platform:  msg.Platform,
			ChannelID: msg.ChannelID,
			UserID:    msg.UserID,
			UserName:  msg.UserName,
		}
		result, err := mr.commands.Dispatch(ctx, content, origin)
		if err != nil {
			mr.logger.Error("command dispatch error", zap.Error(err))
			mr.sendReply(ctx, msg, userMessage(err))
			return
		}
		mr.sendReply(ctx, msg, result.Content)
		return
	}

	res, err := mr.recommender.Recommend(ctx, content)
	if err != nil {
		mr.logger.Error("recommend failed", zap.String("query", content), zap.Error(err))
		mr.sendReply(ctx, msg, userMessage(err))
		return
	}
	mr.sendReply(ctx, msg, command.FormatReply(res))
}

// userMessage maps an error to a short, non-technical reply.
func userMessage(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "Sorry, that took too long. Please try again."
	case errors.Is(err, apperr.ErrUpstreamUnavailable):
		return "The product catalog is unavailable right now. Please try again later."
	case errors.Is(err, apperr.ErrConfiguration):
		return "The shopping assistant is misconfigured. Please contact the operator."
	default:
		return "Sorry, I could not come up with recommendations right now."
	}
}

// sendReply sends a text reply back to the originating platform/channel.
// A fresh context is used so a timed-out request can still report it.
func (mr *MessageRouter) sendReply(ctx context.Context, orig *gateway.InboundMessage, text string) {
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	err := mr.sender.Send(sendCtx, &gateway.OutboundMessage{
		Platform:  orig.Platform,
		ChannelID: orig.ChannelID,
		Content:   text,
		ReplyTo:   orig.ReplyTo,
	})
	if err != nil {
		mr.logger.Error("send reply failed", zap.Error(err))
	}
}
