//
// Tencent is pleased to support the open source community by making trpc-graph-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-graph-go is licensed under the Apache License Version 2.0.
//
//

package graph

import (
	"fmt"
	"strings"
)

// Renderer turns a compiled plan into a human-readable diagram. It is a
// pure function from plan to string; RenderMermaid is the default.
type Renderer func(*Plan) string

// RenderMermaid produces a Mermaid flowchart from a compiled plan. The
// Start and End sentinels render as circles, nodes as rectangles labeled
// with their kind, and each edge as one arrow line.
func RenderMermaid(p *Plan) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	referencesStart := false
	referencesEnd := false
	for _, e := range p.Edges {
		if e.Source == Start {
			referencesStart = true
		}
		if e.Target == End {
			referencesEnd = true
		}
	}
	if referencesStart {
		sb.WriteString("    " + sanitizeMermaidID(Start) + "((\"start\"))\n")
	}
	for _, step := range p.Steps {
		sb.WriteString(fmt.Sprintf("    %s[\"%s (%s)\"]\n",
			sanitizeMermaidID(step.Node.ID), step.Node.ID, step.Node.Kind()))
	}
	if referencesEnd {
		sb.WriteString("    " + sanitizeMermaidID(End) + "((\"end\"))\n")
	}
	for _, e := range p.Edges {
		sb.WriteString(fmt.Sprintf("    %s --> %s\n",
			sanitizeMermaidID(e.Source), sanitizeMermaidID(e.Target)))
	}
	return sb.String()
}

// sanitizeMermaidID rewrites an identifier so Mermaid accepts it as a node
// id: alphanumerics and underscores pass, everything else becomes '_'.
func sanitizeMermaidID(id string) string {
	var sb strings.Builder
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			sb.WriteRune(r)
		default:
			sb.WriteRune('_')
		}
	}
	return sb.String()
}
