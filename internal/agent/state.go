// Package agent implements the multi-agent tutoring orchestration: a small
// state graph whose nodes are LLM-backed agents (router, tutor, web search,
// respond-to-user) exchanging structured handoffs.
package agent

import (
	"encoding/json"
	"fmt"

	"github.com/mwalimu/mwalimubot/internal/tavily"
)

// Node names. The router decides which agent handles the student next;
// every turn ends in respond_to_user.
const (
	NodeFirst   = "first"
	NodeRouter  = "routing_agent"
	NodeTutor   = "tutor_agent"
	NodeSearch  = "tavily_agent"
	NodeRespond = "respond_to_user"

	// End terminates a graph run.
	End = "end"
)

// Conversation history roles.
const (
	RoleHuman     = "human"
	RoleAssistant = "assistant"
)

// ChatMessage is one entry in the conversation history.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Handoff instructs the graph to route to another agent, carrying
// agent-specific parameters as raw JSON until the target decodes them.
type Handoff struct {
	AgentName      string          `json:"agent_name"`
	MessageToAgent string          `json:"message_to_agent"`
	Parameters     json.RawMessage `json:"agent_specific_parameters"`
}

// HandoffList is the structured output contract for the router and tutor
// agents.
type HandoffList struct {
	HandoffAgents []Handoff `json:"handoff_agents"`
}

// TutorParameters accompany a handoff to the tutor agent.
type TutorParameters struct {
	Subject string `json:"subject"`
	Grade   int    `json:"grade"`
}

// RespondParameters accompany a handoff to respond_to_user.
type RespondParameters struct {
	MessageToStudent   string `json:"message_to_student"`
	AgentAfterResponse string `json:"agent_after_response"`
}

// SearchParameters accompany a handoff to the search agent.
type SearchParameters struct {
	Query          string  `json:"query"`
	ScoreThreshold float64 `json:"score_threshold"`
}

// TutorParameters decodes the handoff parameters as tutor parameters.
func (h Handoff) TutorParameters() (TutorParameters, error) {
	var p TutorParameters
	if err := json.Unmarshal(h.Parameters, &p); err != nil {
		return p, fmt.Errorf("invalid tutor parameters: %w", err)
	}
	return p, nil
}

// RespondParameters decodes the handoff parameters as respond parameters.
func (h Handoff) RespondParameters() (RespondParameters, error) {
	var p RespondParameters
	if err := json.Unmarshal(h.Parameters, &p); err != nil {
		return p, fmt.Errorf("invalid respond parameters: %w", err)
	}
	return p, nil
}

// SearchParameters decodes the handoff parameters as search parameters.
func (h Handoff) SearchParameters() (SearchParameters, error) {
	var p SearchParameters
	if err := json.Unmarshal(h.Parameters, &p); err != nil {
		return p, fmt.Errorf("invalid search parameters: %w", err)
	}
	return p, nil
}

// NodeRecord logs one node visit so the next turn can resume where the
// conversation left off.
type NodeRecord struct {
	NodeName           string    `json:"node_name"`
	Handoffs           []Handoff `json:"handoffs,omitempty"`
	AgentAfterResponse string    `json:"agent_after_response,omitempty"`
}

// State is the full orchestration state for one student conversation. It is
// persisted as a JSON document between webhook deliveries.
type State struct {
	UserID   string `json:"user_id"`
	ChatID   string `json:"chat_id"`
	Platform string `json:"platform"`
	UserName string `json:"user_name,omitempty"`

	UserInput   string `json:"user_input"`
	FirstNode   string `json:"first_node"`
	CurrentStep string `json:"current_step,omitempty"`

	ConversationHistory []ChatMessage `json:"conversation_history"`
	NodeHistory         []NodeRecord  `json:"node_history"`

	MessageToStudent string `json:"message_to_student,omitempty"`
	CurrentSubject   string `json:"current_subject,omitempty"`
	CurrentGrade     int    `json:"current_grade"`
	ReadyForTutoring bool   `json:"ready_for_tutoring"`

	HandoffAgents []string  `json:"handoff_agents"`
	HandoffParams []Handoff `json:"handoff_agents_params"`

	RouterAttempts  int `json:"router_attempts"`
	TutorAttempts   int `json:"tutor_attempts"`
	RespondAttempts int `json:"response_to_user_attempts"`

	SearchResults  *tavily.SearchResponse `json:"tavily_results,omitempty"`
	SearchAttempts int                    `json:"tavily_attempts"`

	ErrorMessage string `json:"error_message,omitempty"`
}

// NewState creates a fresh conversation state for a student.
func NewState(chatID, userName, userInput string) *State {
	return &State{
		UserID:    chatID,
		ChatID:    chatID,
		Platform:  "telegram",
		UserName:  userName,
		UserInput: userInput,
		FirstNode: NodeRouter,
		ConversationHistory: []ChatMessage{
			{Role: RoleHuman, Content: userInput},
		},
		NodeHistory: []NodeRecord{},
	}
}

// BeginTurn resets the per-turn fields and appends the student's message to
// the conversation history.
func (s *State) BeginTurn(userInput string) {
	s.UserInput = userInput
	s.MessageToStudent = ""
	s.ErrorMessage = ""
	s.HandoffAgents = nil
	s.HandoffParams = nil
	s.ConversationHistory = append(s.ConversationHistory, ChatMessage{Role: RoleHuman, Content: userInput})
}

// setHandoffs records the structured output of an agent node on the state.
func (s *State) setHandoffs(handoffs []Handoff) {
	s.HandoffParams = handoffs
	s.HandoffAgents = make([]string, 0, len(handoffs))
	for _, h := range handoffs {
		s.HandoffAgents = append(s.HandoffAgents, h.AgentName)
	}
}

// findHandoff returns the first pending handoff targeting the given agent.
func (s *State) findHandoff(agentName string) (Handoff, bool) {
	for _, h := range s.HandoffParams {
		if h.AgentName == agentName {
			return h, true
		}
	}
	return Handoff{}, false
}

// Marshal encodes the state for persistence.
func (s *State) Marshal() ([]byte, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to encode state: %w", err)
	}
	return data, nil
}

// UnmarshalState decodes a persisted state document.
func UnmarshalState(data []byte) (*State, error) {
	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to decode state: %w", err)
	}
	return &s, nil
}
