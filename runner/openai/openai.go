//
// Tencent is pleased to support the open source community by making trpc-graph-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-graph-go is licensed under the Apache License Version 2.0.
//
//

// Package openai provides an OpenAI-backed agent runner.
package openai

import (
	"context"
	"fmt"

	openai "github.com/openai/openai-go"
	openaiopt "github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"trpc.group/trpc-go/trpc-graph-go/model"
	"trpc.group/trpc-go/trpc-graph-go/runner"
)

// Runner implements runner.Runner on top of the OpenAI chat completions API.
type Runner struct {
	client openai.Client
}

// options contains configuration options for creating a Runner.
type options struct {
	clientOptions []openaiopt.RequestOption
}

// Option is a function that configures the Runner.
type Option func(*options)

// WithAPIKey sets the API key. When omitted, the SDK reads OPENAI_API_KEY
// from the environment.
func WithAPIKey(key string) Option {
	return func(o *options) {
		o.clientOptions = append(o.clientOptions, openaiopt.WithAPIKey(key))
	}
}

// WithBaseURL sets a custom API endpoint for OpenAI-compatible services.
func WithBaseURL(url string) Option {
	return func(o *options) {
		o.clientOptions = append(o.clientOptions, openaiopt.WithBaseURL(url))
	}
}

// New creates a new OpenAI-backed runner.
func New(opts ...Option) *Runner {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return &Runner{client: openai.NewClient(o.clientOptions...)}
}

// Run sends the request messages to the chat completions API and appends the
// assistant reply to the message sequence.
func (r *Runner) Run(ctx context.Context, req *runner.Request) (*runner.Response, error) {
	chatRequest := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(runner.ModelName(req.Model)),
		Messages: convertMessages(req),
	}
	completion, err := r.client.Chat.Completions.New(ctx, chatRequest)
	if err != nil {
		return nil, fmt.Errorf("openai chat completion: %w", err)
	}
	if len(completion.Choices) == 0 {
		return &runner.Response{}, nil
	}
	reply := model.NewAssistantMessage(completion.Choices[0].Message.Content)
	messages := make([]model.Message, 0, len(req.Messages)+1)
	messages = append(messages, req.Messages...)
	messages = append(messages, reply)
	return &runner.Response{Messages: messages}, nil
}

// convertMessages converts runner messages to OpenAI params, prepending the
// prompt as a system message when present.
func convertMessages(req *runner.Request) []openai.ChatCompletionMessageParamUnion {
	result := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages)+1)
	if req.Prompt != "" {
		result = append(result, openai.SystemMessage(req.Prompt))
	}
	for _, msg := range req.Messages {
		switch msg.Role {
		case model.RoleSystem:
			result = append(result, openai.SystemMessage(msg.Content))
		case model.RoleAssistant:
			result = append(result, openai.AssistantMessage(msg.Content))
		default:
			// Default to user message if role is unknown.
			result = append(result, openai.UserMessage(msg.Content))
		}
	}
	return result
}
