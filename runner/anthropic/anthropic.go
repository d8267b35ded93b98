//
// Tencent is pleased to support the open source community by making trpc-graph-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-graph-go is licensed under the Apache License Version 2.0.
//
//

// Package anthropic provides an Anthropic-backed agent runner.
package anthropic

import (
	"context"
	"fmt"
	"strings"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	anthropicopt "github.com/anthropics/anthropic-sdk-go/option"

	"trpc.group/trpc-go/trpc-graph-go/model"
	"trpc.group/trpc-go/trpc-graph-go/runner"
)

// defaultMaxTokens is used when no output token limit is configured.
// The Anthropic messages API requires a positive max_tokens value.
const defaultMaxTokens = 4096

// Runner implements runner.Runner on top of the Anthropic messages API.
type Runner struct {
	client    anthropic.Client
	maxTokens int64
}

// options contains configuration options for creating a Runner.
type options struct {
	clientOptions []anthropicopt.RequestOption
	maxTokens     int64
}

// Option is a function that configures the Runner.
type Option func(*options)

// WithAPIKey sets the API key. When omitted, the SDK reads ANTHROPIC_API_KEY
// from the environment.
func WithAPIKey(key string) Option {
	return func(o *options) {
		o.clientOptions = append(o.clientOptions, anthropicopt.WithAPIKey(key))
	}
}

// WithMaxTokens sets the output token limit for agent replies.
func WithMaxTokens(n int64) Option {
	return func(o *options) {
		o.maxTokens = n
	}
}

// New creates a new Anthropic-backed runner.
func New(opts ...Option) *Runner {
	o := options{maxTokens: defaultMaxTokens}
	for _, opt := range opts {
		opt(&o)
	}
	return &Runner{
		client:    anthropic.NewClient(o.clientOptions...),
		maxTokens: o.maxTokens,
	}
}

// Run sends the request messages to the messages API and appends the
// assistant reply to the message sequence.
func (r *Runner) Run(ctx context.Context, req *runner.Request) (*runner.Response, error) {
	chatRequest := anthropic.MessageNewParams{
		Model:     anthropic.Model(runner.ModelName(req.Model)),
		MaxTokens: r.maxTokens,
		Messages:  convertMessages(req.Messages),
	}
	if req.Prompt != "" {
		chatRequest.System = []anthropic.TextBlockParam{{Text: req.Prompt}}
	}
	message, err := r.client.Messages.New(ctx, chatRequest)
	if err != nil {
		return nil, fmt.Errorf("anthropic message: %w", err)
	}
	content := extractText(message.Content)
	if content == "" {
		return &runner.Response{}, nil
	}
	messages := make([]model.Message, 0, len(req.Messages)+1)
	messages = append(messages, req.Messages...)
	messages = append(messages, model.NewAssistantMessage(content))
	return &runner.Response{Messages: messages}, nil
}

// convertMessages converts runner messages to Anthropic params. System
// messages are carried separately by the messages API, so they are folded
// into user turns here to preserve ordering.
func convertMessages(messages []model.Message) []anthropic.MessageParam {
	result := make([]anthropic.MessageParam, 0, len(messages))
	for _, msg := range messages {
		block := anthropic.NewTextBlock(msg.Content)
		if msg.Role == model.RoleAssistant {
			result = append(result, anthropic.NewAssistantMessage(block))
			continue
		}
		result = append(result, anthropic.NewUserMessage(block))
	}
	return result
}

// extractText concatenates the text blocks of a response.
func extractText(contents []anthropic.ContentBlockUnion) string {
	var sb strings.Builder
	for _, content := range contents {
		if block, ok := content.AsAny().(anthropic.TextBlock); ok {
			sb.WriteString(block.Text)
		}
	}
	return sb.String()
}
