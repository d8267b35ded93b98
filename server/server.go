//
// Tencent is pleased to support the open source community by making trpc-graph-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-graph-go is licensed under the Apache License Version 2.0.
//
//

// Package server exposes the graph engine over HTTP. Every endpoint maps
// 1:1 to a core operation on the graph store; the handlers hold the
// per-graph lock across a mutation or a compile-and-run cycle.
package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"trpc.group/trpc-go/trpc-graph-go/graph"
	"trpc.group/trpc-go/trpc-graph-go/log"
	"trpc.group/trpc-go/trpc-graph-go/runner"
)

// defaultAllowedOrigins matches the web UI the original service fronts.
var defaultAllowedOrigins = []string{
	"http://localhost:3000",
	"http://127.0.0.1:3000",
}

// Server handles the REST API for building and running graphs.
type Server struct {
	store    *graph.Store
	executor *graph.Executor
	rc       graph.RuntimeContext
	render   graph.Renderer
	router   *mux.Router
}

// Option configures the Server instance.
type Option func(*Server)

// WithRenderer overrides the diagram renderer used by GET /graph/{id}.
func WithRenderer(r graph.Renderer) Option {
	return func(s *Server) {
		if r != nil {
			s.render = r
		}
	}
}

// New creates the HTTP server around a graph store, an agent runner and the
// runtime context applied to every run.
func New(store *graph.Store, r runner.Runner, rc graph.RuntimeContext, opts ...Option) *Server {
	s := &Server{
		store:    store,
		executor: graph.NewExecutor(r),
		rc:       rc,
		render:   graph.RenderMermaid,
		router:   mux.NewRouter(),
	}
	for _, opt := range opts {
		opt(s)
	}

	c := cors.New(cors.Options{
		AllowedOrigins:   defaultAllowedOrigins,
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
	})
	s.router.Use(c.Handler)
	s.registerRoutes()
	return s
}

// Handler returns the http.Handler for the server.
func (s *Server) Handler() http.Handler { return s.router }

// registerRoutes sets up all REST endpoints.
func (s *Server) registerRoutes() {
	s.router.HandleFunc("/", s.handleIndex).Methods(http.MethodGet)
	s.router.HandleFunc("/graph", s.handleCreateGraph).Methods(http.MethodPost)
	s.router.HandleFunc("/graph/{graphID}", s.handleGetGraph).Methods(http.MethodGet)
	s.router.HandleFunc("/graph/{graphID}/run", s.handleRunGraph).Methods(http.MethodPost)
	s.router.HandleFunc("/graph/{graphID}/node", s.handleAddNode).Methods(http.MethodPost)
	s.router.HandleFunc("/graph/{graphID}/node/{nodeID}", s.handleUpdateNode).Methods(http.MethodPut)
	s.router.HandleFunc("/graph/{graphID}/node/{nodeID}", s.handleDeleteNode).Methods(http.MethodDelete)
	s.router.HandleFunc("/graph/{graphID}/node/{nodeID}/edges", s.handleUpdateNodeEdges).Methods(http.MethodPut)
	s.router.HandleFunc("/graph/{graphID}/edge", s.handleAddEdge).Methods(http.MethodPost)
	s.router.HandleFunc("/graph/{graphID}/edge", s.handleDeleteEdge).Methods(http.MethodDelete)
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, map[string]string{"message": "graph REST API is running"})
}

func (s *Server) handleCreateGraph(w http.ResponseWriter, _ *http.Request) {
	id := s.store.Create()
	log.Infof("created graph %d", id)
	s.writeJSON(w, map[string]int{"graph_id": id})
}

func (s *Server) handleGetGraph(w http.ResponseWriter, r *http.Request) {
	g, release, err := s.acquire(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	defer release()
	plan, err := g.Compile()
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, map[string]string{"graph": s.render(plan)})
}

// runRequest seeds the run's input sequence.
type runRequest struct {
	Text string `json:"text"`
}

func (s *Server) handleRunGraph(w http.ResponseWriter, r *http.Request) {
	var req runRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	g, release, err := s.acquire(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	defer release()
	plan, err := g.Compile()
	if err != nil {
		s.writeError(w, err)
		return
	}
	initial := graph.State{graph.StateKeyInput: []string{req.Text}}
	result, err := s.executor.Run(r.Context(), plan, initial, s.rc)
	if err != nil {
		var execErr *graph.ExecutionError
		if errors.As(err, &execErr) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"error":         "graph execution failed: " + execErr.Err.Error(),
				"node":          execErr.Node,
				"partial_state": execErr.State,
			})
			return
		}
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, map[string]any{"result": result.State})
}

// addNodeRequest declares a node plus its optional predecessors and
// successors, which become edges in the same call.
type addNodeRequest struct {
	Config  json.RawMessage `json:"config"`
	Sources []string        `json:"sources,omitempty"`
	Targets []string        `json:"targets,omitempty"`
}

func (s *Server) handleAddNode(w http.ResponseWriter, r *http.Request) {
	var req addNodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	config, err := decodeNodeConfig(req.Config)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	g, release, err := s.acquire(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	defer release()
	if err := g.AddNode(config); err != nil {
		s.writeError(w, err)
		return
	}
	var failed []graph.Edge
	for _, source := range req.Sources {
		if err := g.AddEdge(source, config.NodeName()); err != nil {
			log.Warnf("graph %d: could not add edge %s -> %s: %v", g.ID(), source, config.NodeName(), err)
			failed = append(failed, graph.Edge{Source: source, Target: config.NodeName()})
		}
	}
	for _, target := range req.Targets {
		if err := g.AddEdge(config.NodeName(), target); err != nil {
			log.Warnf("graph %d: could not add edge %s -> %s: %v", g.ID(), config.NodeName(), target, err)
			failed = append(failed, graph.Edge{Source: config.NodeName(), Target: target})
		}
	}
	resp := map[string]any{
		"message": "node " + config.NodeName() + " added to graph " + strconv.Itoa(g.ID()),
	}
	if len(failed) > 0 {
		resp["failed_edges"] = failed
	}
	s.writeJSON(w, resp)
}

func (s *Server) handleUpdateNode(w http.ResponseWriter, r *http.Request) {
	raw, err := readBody(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	config, err := decodeNodeConfig(raw)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	nodeID := mux.Vars(r)["nodeID"]
	g, release, err := s.acquire(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	defer release()
	failed, err := g.UpdateNode(nodeID, config)
	if err != nil {
		s.writeError(w, err)
		return
	}
	resp := map[string]any{
		"message": "node " + nodeID + " updated",
	}
	if len(failed) > 0 {
		resp["failed_edges"] = failed
	}
	s.writeJSON(w, resp)
}

func (s *Server) handleDeleteNode(w http.ResponseWriter, r *http.Request) {
	nodeID := mux.Vars(r)["nodeID"]
	g, release, err := s.acquire(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	defer release()
	if err := g.RemoveNode(nodeID); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, map[string]string{
		"message": "node " + nodeID + " deleted from graph " + strconv.Itoa(g.ID()),
	})
}

// updateNodeEdgesRequest rewrites the full edge set touching a node.
type updateNodeEdgesRequest struct {
	Sources []string `json:"sources"`
	Targets []string `json:"targets"`
}

func (s *Server) handleUpdateNodeEdges(w http.ResponseWriter, r *http.Request) {
	var req updateNodeEdgesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	nodeID := mux.Vars(r)["nodeID"]
	g, release, err := s.acquire(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	defer release()
	failed, err := g.UpdateNodeEdges(nodeID, req.Sources, req.Targets)
	if err != nil {
		s.writeError(w, err)
		return
	}
	resp := map[string]any{
		"message": "edges for node " + nodeID + " updated",
	}
	if len(failed) > 0 {
		resp["failed_edges"] = failed
	}
	s.writeJSON(w, resp)
}

// edgeRequest names one directed edge.
type edgeRequest struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

func (s *Server) handleAddEdge(w http.ResponseWriter, r *http.Request) {
	var req edgeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	g, release, err := s.acquire(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	defer release()
	if err := g.AddEdge(req.Source, req.Target); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, map[string]string{
		"message": "edge " + req.Source + " to " + req.Target + " added",
	})
}

func (s *Server) handleDeleteEdge(w http.ResponseWriter, r *http.Request) {
	var req edgeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	g, release, err := s.acquire(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	defer release()
	if err := g.RemoveEdge(req.Source, req.Target); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, map[string]string{
		"message": "edge " + req.Source + " to " + req.Target + " removed",
	})
}

// acquire parses the graph id from the route and returns the graph with its
// lock held.
func (s *Server) acquire(r *http.Request) (*graph.Graph, func(), error) {
	id, err := strconv.Atoi(mux.Vars(r)["graphID"])
	if err != nil {
		return nil, nil, graph.ErrGraphNotFound
	}
	return s.store.Acquire(id)
}

// decodeNodeConfig infers the node kind from the config shape: a config
// carrying a "prompt" key is an agent node, anything else a function node.
func decodeNodeConfig(raw json.RawMessage) (graph.NodeConfig, error) {
	if len(raw) == 0 {
		return nil, errors.New("missing node config")
	}
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, err
	}
	if _, isAgent := probe["prompt"]; isAgent {
		var cfg graph.AgentNodeConfig
		if err := json.Unmarshal(raw, &cfg); err != nil {
			return nil, err
		}
		if cfg.Name == "" {
			return nil, errors.New("node config requires a name")
		}
		return cfg, nil
	}
	var cfg graph.FunctionNodeConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, err
	}
	if cfg.Name == "" {
		return nil, errors.New("node config requires a name")
	}
	return cfg, nil
}

// readBody returns the raw request body for handlers that decode it lazily.
// Malformed JSON is reported, not swallowed.
func readBody(r *http.Request) (json.RawMessage, error) {
	var raw json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// writeJSON writes v as a JSON response.
func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps core errors to HTTP status classes: not-found errors to
// 404, structural errors to 400, everything else to 500.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, graph.ErrGraphNotFound),
		errors.Is(err, graph.ErrNodeNotFound),
		errors.Is(err, graph.ErrEdgeNotFound):
		status = http.StatusNotFound
	case errors.Is(err, graph.ErrDuplicateNode),
		errors.Is(err, graph.ErrDuplicateEdge),
		errors.Is(err, graph.ErrInvalidEdge),
		errors.Is(err, graph.ErrCycleDetected),
		errors.Is(err, graph.ErrDanglingEdge):
		status = http.StatusBadRequest
	}
	http.Error(w, err.Error(), status)
}
