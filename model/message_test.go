//
// Tencent is pleased to support the open source community by making trpc-graph-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-graph-go is licensed under the Apache License Version 2.0.
//
//

package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMessageConstructors(t *testing.T) {
	assert.Equal(t, Message{Role: RoleSystem, Content: "be brief"}, NewSystemMessage("be brief"))
	assert.Equal(t, Message{Role: RoleUser, Content: "hi"}, NewUserMessage("hi"))
	assert.Equal(t, Message{Role: RoleAssistant, Content: "hello"}, NewAssistantMessage("hello"))
}
