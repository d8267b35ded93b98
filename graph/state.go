//
// Tencent is pleased to support the open source community by making trpc-graph-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-graph-go is licensed under the Apache License Version 2.0.
//
//

package graph

// State keys used by the canonical graph state.
const (
	// StateKeyInput holds the running input sequence ([]string, append-only).
	StateKeyInput = "input"
	// StateKeyOutput holds per-node outputs (map[string]any, last writer wins).
	StateKeyOutput = "output"
)

// State represents the state that flows through the graph.
type State map[string]any

// Clone creates a copy of the state. The input slice and output map are
// copied so that concurrent runs never share mutable containers; nested
// output values are not deep-copied.
func (s State) Clone() State {
	clone := make(State, len(s))
	for k, v := range s {
		switch val := v.(type) {
		case []string:
			clone[k] = append([]string(nil), val...)
		case map[string]any:
			m := make(map[string]any, len(val))
			for mk, mv := range val {
				m[mk] = mv
			}
			clone[k] = m
		default:
			clone[k] = v
		}
	}
	return clone
}

// Input returns the input sequence of the state.
func (s State) Input() []string {
	if v, ok := s[StateKeyInput].([]string); ok {
		return v
	}
	return nil
}

// Output returns the output mapping of the state.
func (s State) Output() map[string]any {
	if v, ok := s[StateKeyOutput].(map[string]any); ok {
		return v
	}
	return nil
}

// Reducer combines an existing state value with an update, returning the
// merged value. Reducers must not mutate either argument.
type Reducer func(existing, update any) any

// StateField describes one key of a state schema.
type StateField struct {
	// Reducer merges updates into the existing value.
	Reducer Reducer
	// Default produces the initial value for the field.
	Default func() any
}

// StateSchema declares the merge behavior of each state key.
type StateSchema struct {
	fields map[string]StateField
}

// NewStateSchema creates a new empty state schema.
func NewStateSchema() *StateSchema {
	return &StateSchema{fields: make(map[string]StateField)}
}

// AddField adds a field to the schema and returns the schema for chaining.
func (s *StateSchema) AddField(name string, field StateField) *StateSchema {
	s.fields[name] = field
	return s
}

// Init returns a fresh state populated with the schema defaults.
func (s *StateSchema) Init() State {
	state := make(State, len(s.fields))
	for name, field := range s.fields {
		if field.Default != nil {
			state[name] = field.Default()
		}
	}
	return state
}

// ApplyUpdate merges an update into a state and returns the merged state.
// Each key is merged by its field reducer; keys without a schema entry use
// DefaultReducer. The inputs are not mutated, and the merge is deterministic
// for a fixed update order.
func (s *StateSchema) ApplyUpdate(state, update State) State {
	merged := state.Clone()
	for key, value := range update {
		reducer := DefaultReducer
		if field, ok := s.fields[key]; ok && field.Reducer != nil {
			reducer = field.Reducer
		}
		merged[key] = reducer(merged[key], value)
	}
	return merged
}

// DefaultReducer replaces the existing value with the update.
func DefaultReducer(existing, update any) any {
	return update
}

// StringSliceReducer appends the update to the existing []string value.
func StringSliceReducer(existing, update any) any {
	prev, _ := existing.([]string)
	next, ok := update.([]string)
	if !ok {
		if s, isString := update.(string); isString {
			next = []string{s}
		} else {
			return existing
		}
	}
	merged := make([]string, 0, len(prev)+len(next))
	merged = append(merged, prev...)
	merged = append(merged, next...)
	return merged
}

// MergeReducer unions the update map into the existing map[string]any value.
// A later write to the same key overwrites the earlier one.
func MergeReducer(existing, update any) any {
	prev, _ := existing.(map[string]any)
	next, ok := update.(map[string]any)
	if !ok {
		return existing
	}
	merged := make(map[string]any, len(prev)+len(next))
	for k, v := range prev {
		merged[k] = v
	}
	for k, v := range next {
		merged[k] = v
	}
	return merged
}

// GraphStateSchema returns the canonical schema for graph runs: an
// append-only input sequence and a last-writer-wins output mapping.
func GraphStateSchema() *StateSchema {
	schema := NewStateSchema()
	schema.AddField(StateKeyInput, StateField{
		Reducer: StringSliceReducer,
		Default: func() any { return []string{} },
	})
	schema.AddField(StateKeyOutput, StateField{
		Reducer: MergeReducer,
		Default: func() any { return make(map[string]any) },
	})
	return schema
}

// RuntimeContext carries the per-run model configuration. It is supplied
// once per run, visible read-only to every node invocation, and never part
// of the merged state.
type RuntimeContext struct {
	// Provider is the LLM provider name ("openai" or "anthropic").
	Provider string `json:"llm_provider"`
	// Model is the provider-specific model identifier.
	Model string `json:"llm_model"`
}

// ModelIdentifier returns the "<provider>:<model>" identifier handed to the
// agent runner.
func (rc RuntimeContext) ModelIdentifier() string {
	return rc.Provider + ":" + rc.Model
}
