package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Role identifies a specialist agent. The set is closed: adding a role means
// adding an enumerator here plus a classifier vocabulary and an agent config.
type Role string

const (
	RoleAgronomist     Role = "agronomist"
	RoleWeatherAdvisor Role = "weather_advisor"
)

// DisplayName is the human-readable form used in attribution phrases.
func (role Role) DisplayName() string {
	return strings.ReplaceAll(string(role), "_", " ")
}

type ChatRequest struct {
	Message        string `json:"message" binding:"required"`
	ConversationID string `json:"conversation_id,omitempty"`
	Location       string `json:"location,omitempty"`
	CropType       string `json:"crop_type,omitempty"`
}

type Source struct {
	Kind     string `json:"kind"`
	Name     string `json:"name"`
	Provider string `json:"provider"`
}

// AgentResult is one role's contribution to a chat answer. It is created once
// per role per request and never mutated afterwards.
type AgentResult struct {
	Role       Role     `json:"role"`
	Text       string   `json:"text"`
	Confidence float64  `json:"confidence"`
	Sources    []Source `json:"sources,omitempty"`
}

type ChatResponse struct {
	Response          string        `json:"response"`
	ConversationID    string        `json:"conversation_id"`
	AgentBreakdown    []AgentResult `json:"agent_breakdown"`
	FollowUpQuestions []string      `json:"follow_up_questions"`
}

// SharedState carries per-request context across sequential role
// invocations. It lives for exactly one request and is never shared
// across requests.
type SharedState struct {
	Location     string
	CropType     string
	ContextParts []string
	Weather      *WeatherObservation
}

func NewSharedState(location, cropType string) *SharedState {
	return &SharedState{
		Location:     location,
		CropType:     cropType,
		ContextParts: []string{},
	}
}

func (state *SharedState) AppendContext(part string) {
	if part == "" {
		return
	}
	state.ContextParts = append(state.ContextParts, part)
}

func (state *SharedState) Context() string {
	return strings.Join(state.ContextParts, "\n\n")
}

// FollowUpQuestions is the fixed set returned with every chat answer.
var FollowUpQuestions = []string{
	"What specific variety are you growing?",
	"When do you plan to plant?",
	"What is your soil type?",
	"Have you noticed any pests?",
}

func NewConversationID() string {
	return "conv_" + uuid.New().String()
}

func GenerateRequestID() string {
	return uuid.New().String()
}

type ConversationContext struct {
	ConversationID string    `json:"conversation_id"`
	MessageCount   int       `json:"message_count"`
	LastQuery      string    `json:"last_query"`
	LastRoles      []Role    `json:"last_roles"`
	UpdatedAt      time.Time `json:"updated_at"`
}
