package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mwalimu/mwalimubot/internal/llm"
	"github.com/mwalimu/mwalimubot/internal/tavily"
)

// maxSearchesPerTopic caps web searches: a topic is researched once and the
// results are reused afterwards.
const maxSearchesPerTopic = 1

// Agents holds the dependencies shared by the graph nodes.
type Agents struct {
	llm             llm.Client
	search          tavily.Searcher
	fallbackMessage string
	log             *slog.Logger
}

// NewAgents wires the node implementations. search may be nil, in which case
// the tutor answers from model knowledge only. fallbackMessage is sent when
// an agent produces no usable reply.
func NewAgents(llmClient llm.Client, search tavily.Searcher, fallbackMessage string, log *slog.Logger) *Agents {
	if log == nil {
		log = slog.Default()
	}
	return &Agents{
		llm:             llmClient,
		search:          search,
		fallbackMessage: fallbackMessage,
		log:             log.With("component", "agents"),
	}
}

// BuildGraph assembles the tutoring workflow: entry decision, router, tutor,
// search, respond-to-user.
func (a *Agents) BuildGraph() *Graph {
	g := NewGraph(NodeFirst, a.log)

	g.AddNode(NodeFirst, a.firstNode)
	g.AddNode(NodeRouter, a.routerNode)
	g.AddNode(NodeTutor, a.tutorNode)
	g.AddNode(NodeSearch, a.searchNode)
	g.AddNode(NodeRespond, a.respondNode)

	g.AddConditionalEdge(NodeFirst, func(s *State) string {
		switch s.FirstNode {
		case NodeRouter, NodeTutor:
			return s.FirstNode
		default:
			return NodeRouter
		}
	})
	g.AddConditionalEdge(NodeRouter, routeByHandoff(NodeRespond, NodeTutor))
	g.AddConditionalEdge(NodeTutor, routeByHandoff(NodeRespond, NodeSearch))
	g.AddEdge(NodeSearch, NodeTutor)
	g.AddEdge(NodeRespond, End)

	return g
}

// routeByHandoff follows the first pending handoff that targets one of the
// allowed nodes; with no usable handoff the run ends.
func routeByHandoff(allowed ...string) EdgeFunc {
	return func(s *State) string {
		for _, name := range s.HandoffAgents {
			for _, a := range allowed {
				if name == a {
					return name
				}
			}
		}
		return End
	}
}

// firstNode decides which agent opens the turn. A new conversation starts at
// the router; an ongoing one resumes wherever the last respond_to_user step
// pointed, falling back to the recorded current step.
func (a *Agents) firstNode(_ context.Context, s *State) error {
	if len(s.NodeHistory) == 0 {
		s.FirstNode = NodeRouter
		return nil
	}

	s.FirstNode = ""
	for i := len(s.NodeHistory) - 1; i >= 0; i-- {
		rec := s.NodeHistory[i]
		if rec.NodeName != NodeRespond {
			continue
		}
		if rec.AgentAfterResponse == NodeRouter || rec.AgentAfterResponse == NodeTutor {
			s.FirstNode = rec.AgentAfterResponse
		} else {
			s.FirstNode = NodeRouter
		}
		break
	}

	if s.FirstNode == "" {
		switch s.CurrentStep {
		case NodeRouter:
			s.FirstNode = NodeRouter
		case NodeTutor, NodeSearch:
			s.FirstNode = NodeTutor
		default:
			s.FirstNode = NodeTutor
		}
	}

	return nil
}

// routerNode asks the routing agent where to send the student next.
func (a *Agents) routerNode(ctx context.Context, s *State) error {
	s.RouterAttempts++
	s.CurrentStep = NodeRouter

	prompt := routerPrompt(s.UserInput, s.ConversationHistory)
	handoffs, err := a.requestHandoffs(ctx, prompt, s.UserInput, NodeRespond, NodeTutor)
	if err != nil {
		a.log.ErrorContext(ctx, "Router agent failed", "chat_id", s.ChatID, "error", err)
		s.ErrorMessage = err.Error()
		handoffs = a.fallbackHandoffs(NodeRouter)
	}

	for _, h := range handoffs {
		if h.AgentName != NodeTutor {
			continue
		}
		if p, err := h.TutorParameters(); err == nil {
			if p.Subject != "" {
				s.CurrentSubject = p.Subject
			}
			if p.Grade > 0 {
				s.CurrentGrade = p.Grade
			}
			s.ReadyForTutoring = true
		}
	}

	s.setHandoffs(handoffs)
	s.NodeHistory = append(s.NodeHistory, NodeRecord{NodeName: NodeRouter, Handoffs: handoffs})
	return nil
}

// tutorNode teaches the current topic, optionally requesting one web search.
func (a *Agents) tutorNode(ctx context.Context, s *State) error {
	s.TutorAttempts++
	s.CurrentStep = NodeTutor

	prompt := tutorPrompt(s.UserInput, s.ConversationHistory, s.SearchResults, s.SearchAttempts)
	handoffs, err := a.requestHandoffs(ctx, prompt, s.UserInput, NodeRespond, NodeSearch)
	if err != nil {
		a.log.ErrorContext(ctx, "Tutor agent failed", "chat_id", s.ChatID, "error", err)
		s.ErrorMessage = err.Error()
		handoffs = a.fallbackHandoffs(NodeTutor)
	}

	// Enforce the single-search rule even when the model ignores it.
	if s.SearchAttempts >= maxSearchesPerTopic || a.search == nil {
		handoffs = dropHandoffs(handoffs, NodeSearch)
		if len(handoffs) == 0 {
			handoffs = a.fallbackHandoffs(NodeTutor)
		}
	}

	s.setHandoffs(handoffs)
	s.NodeHistory = append(s.NodeHistory, NodeRecord{NodeName: NodeTutor, Handoffs: handoffs})
	return nil
}

// searchNode runs the web search requested by the tutor and returns to it.
func (a *Agents) searchNode(ctx context.Context, s *State) error {
	s.CurrentStep = NodeSearch
	s.SearchAttempts++

	query := s.UserInput
	if h, ok := s.findHandoff(NodeSearch); ok {
		if p, err := h.SearchParameters(); err == nil && p.Query != "" {
			query = p.Query
		}
	}

	if a.search == nil {
		s.ErrorMessage = "web search is not configured"
		return nil
	}

	results, err := a.search.Search(ctx, query)
	if err != nil {
		// Search failure is not fatal; the tutor answers from knowledge.
		a.log.WarnContext(ctx, "Web search failed", "chat_id", s.ChatID, "query", query, "error", err)
		s.ErrorMessage = fmt.Sprintf("failed to get search results: %v", err)
		s.SearchResults = nil
		return nil
	}

	s.SearchResults = results
	s.NodeHistory = append(s.NodeHistory, NodeRecord{NodeName: NodeSearch})
	return nil
}

// respondNode turns the pending respond_to_user handoff into the outgoing
// student message and records which agent resumes next turn.
func (a *Agents) respondNode(_ context.Context, s *State) error {
	s.RespondAttempts++

	message := a.fallbackMessage
	agentAfter := NodeRouter

	if h, ok := s.findHandoff(NodeRespond); ok {
		if p, err := h.RespondParameters(); err == nil {
			if p.MessageToStudent != "" {
				message = p.MessageToStudent
			}
			if p.AgentAfterResponse == NodeRouter || p.AgentAfterResponse == NodeTutor {
				agentAfter = p.AgentAfterResponse
			}
		}
	} else if s.CurrentStep == NodeTutor {
		agentAfter = NodeTutor
	}

	s.MessageToStudent = message
	s.ConversationHistory = append(s.ConversationHistory, ChatMessage{Role: RoleAssistant, Content: message})
	s.NodeHistory = append(s.NodeHistory, NodeRecord{NodeName: NodeRespond, AgentAfterResponse: agentAfter})
	s.CurrentStep = agentAfter
	return nil
}

// requestHandoffs calls the LLM with the agent prompt and decodes the
// structured handoff list, keeping only handoffs for known agents.
func (a *Agents) requestHandoffs(ctx context.Context, systemPrompt, userInput string, allowed ...string) ([]Handoff, error) {
	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: systemPrompt},
		{Role: llm.RoleUser, Content: userInput},
	}

	raw, err := a.llm.CompleteJSON(ctx, messages)
	if err != nil {
		return nil, err
	}

	handoffs, err := decodeHandoffs(raw)
	if err != nil {
		return nil, err
	}

	filtered := make([]Handoff, 0, len(handoffs))
	for _, h := range handoffs {
		for _, name := range allowed {
			if h.AgentName == name {
				filtered = append(filtered, h)
				break
			}
		}
	}
	if len(filtered) == 0 {
		return nil, fmt.Errorf("model returned no usable handoff (got %d)", len(handoffs))
	}
	return filtered, nil
}

// fallbackHandoffs produces a respond_to_user handoff carrying the generic
// error message, so a failing agent still answers the student.
func (a *Agents) fallbackHandoffs(agentAfter string) []Handoff {
	params, _ := json.Marshal(RespondParameters{
		MessageToStudent:   a.fallbackMessage,
		AgentAfterResponse: agentAfter,
	})
	return []Handoff{{
		AgentName:      NodeRespond,
		MessageToAgent: "agent failure fallback",
		Parameters:     params,
	}}
}

func dropHandoffs(handoffs []Handoff, agentName string) []Handoff {
	kept := handoffs[:0]
	for _, h := range handoffs {
		if h.AgentName != agentName {
			kept = append(kept, h)
		}
	}
	return kept
}

// decodeHandoffs parses the model's JSON output into a handoff list,
// tolerating code fences some models wrap around JSON.
func decodeHandoffs(raw string) ([]Handoff, error) {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	var list HandoffList
	if err := json.Unmarshal([]byte(cleaned), &list); err != nil {
		return nil, fmt.Errorf("failed to decode handoff response: %w", err)
	}
	return list.HandoffAgents, nil
}
