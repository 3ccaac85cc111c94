// Package query orchestrates retrieval-augmented queries: persona prompt
// assembly, gateway invocation, confidence scoring, conversation tracking and
// analytics.
package query

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/covenantrix/rag/internal/conversation"
	"github.com/covenantrix/rag/internal/kb"
	"github.com/covenantrix/rag/internal/llm"
	"github.com/covenantrix/rag/internal/persona"
)

// Mode selects the retrieval strategy of the knowledge base.
type Mode string

const (
	ModeLocal  Mode = "local"
	ModeGlobal Mode = "global"
	ModeHybrid Mode = "hybrid"
	ModeNaive  Mode = "naive"
	ModeMix    Mode = "mix"
)

// Modes lists all retrieval modes in a stable order.
func Modes() []Mode {
	return []Mode{ModeLocal, ModeGlobal, ModeHybrid, ModeNaive, ModeMix}
}

// Retrieval tuning. Wide candidate counts and token budgets suit dense legal
// text better than the engine defaults.
const (
	topK              = 60
	chunkTopK         = 15
	maxEntityTokens   = 12000
	maxRelationTokens = 12000
	defaultMaxTokens  = 4000
)

// Context scopes a query: which documents, which persona, which mode.
type Context struct {
	DocumentIDs      []string
	FolderID         string
	DocumentTypes    []string
	Persona          persona.Persona
	Mode             Mode
	MaxTokens        int
	IncludeCitations bool
}

// Source is a heuristic citation descriptor extracted from an answer.
type Source struct {
	Type       string  `json:"type"`
	Confidence float64 `json:"confidence"`
	Excerpt    string  `json:"excerpt"`
}

// Response is the structured outcome of one query.
type Response struct {
	Answer         string          `json:"answer"`
	Sources        []Source        `json:"sources"`
	Confidence     float64         `json:"confidence_score"`
	Mode           Mode            `json:"query_mode"`
	Persona        persona.Persona `json:"persona_used"`
	ProcessingTime time.Duration   `json:"processing_time"`
	TokensUsed     int             `json:"tokens_used"`
	ConversationID string          `json:"conversation_id"`
	Timestamp      time.Time       `json:"timestamp"`
}

// ModelResolver maps a persona model tier to a concrete model name.
type ModelResolver interface {
	ModelForTier(tier string) string
}

// Orchestrator runs queries end to end. Query never returns an error; all
// failures degrade to a zero-confidence response.
type Orchestrator struct {
	gateway       kb.Gateway
	personas      *persona.Registry
	conversations *conversation.Store
	analytics     *Aggregator
	completer     llm.Completer
	models        ModelResolver
}

func NewOrchestrator(gateway kb.Gateway, personas *persona.Registry, conversations *conversation.Store, analytics *Aggregator, completer llm.Completer, models ModelResolver) *Orchestrator {
	return &Orchestrator{
		gateway:       gateway,
		personas:      personas,
		conversations: conversations,
		analytics:     analytics,
		completer:     completer,
		models:        models,
	}
}

// Query executes one retrieval-augmented query. An empty conversationID
// starts a new conversation bound to the context's persona.
func (o *Orchestrator) Query(ctx context.Context, text string, qc Context, conversationID string) Response {
	start := time.Now()

	if qc.Persona == "" {
		qc.Persona = persona.DefaultPersona
	}
	if qc.Mode == "" {
		qc.Mode = ModeHybrid
	}
	if conversationID == "" {
		conversationID = o.conversations.Create(string(qc.Persona))
	}

	cfg := o.personas.Get(qc.Persona)
	params := o.buildParams(qc, cfg, conversationID)

	recent := o.conversations.Recent(conversationID, 3)
	prompt := o.personas.BuildPrompt(qc.Persona, text, buildContextInfo(qc, recent))

	answer, err := o.gateway.Query(ctx, prompt, params)
	elapsed := time.Since(start)

	if err != nil {
		resp := Response{
			Answer:         fmt.Sprintf("I apologize, but I encountered an error processing your query: %v", err),
			Confidence:     0.0,
			Mode:           qc.Mode,
			Persona:        qc.Persona,
			ProcessingTime: elapsed,
			ConversationID: conversationID,
			Timestamp:      time.Now(),
		}
		o.record(text, qc, resp)
		return resp
	}

	sources := extractSources(answer)
	resp := Response{
		Answer:         answer,
		Sources:        sources,
		Confidence:     scoreConfidence(answer, len(sources)),
		Mode:           qc.Mode,
		Persona:        qc.Persona,
		ProcessingTime: elapsed,
		TokensUsed:     estimateTokens(answer),
		ConversationID: conversationID,
		Timestamp:      time.Now(),
	}

	o.conversations.Append(conversationID, text, answer)
	o.record(text, qc, resp)
	return resp
}

func (o *Orchestrator) buildParams(qc Context, cfg persona.Config, conversationID string) kb.QueryParams {
	var history []llm.Turn
	for _, ex := range o.conversations.Recent(conversationID, 2) {
		history = append(history,
			llm.Turn{Role: "user", Content: ex.Query},
			llm.Turn{Role: "assistant", Content: ex.Answer},
		)
	}

	maxTokens := qc.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	return kb.QueryParams{
		Mode:              string(qc.Mode),
		TopK:              topK,
		ChunkTopK:         chunkTopK,
		MaxEntityTokens:   maxEntityTokens,
		MaxRelationTokens: maxRelationTokens,
		MaxTotalTokens:    maxTokens,
		History:           history,
		ResponseType:      "Multiple Paragraphs",
		EnableRerank:      true,
		Model:             o.models.ModelForTier(cfg.ModelTier),
		Temperature:       cfg.Temperature,
	}
}

func buildContextInfo(qc Context, recent []conversation.Exchange) string {
	var b strings.Builder

	if len(qc.DocumentIDs) > 0 {
		ids := qc.DocumentIDs
		if len(ids) > 5 {
			ids = ids[:5]
		}
		fmt.Fprintf(&b, "Focus on documents: %s\n", strings.Join(ids, ", "))
	}
	if qc.FolderID != "" {
		fmt.Fprintf(&b, "Folder context: %s\n", qc.FolderID)
	}
	if len(qc.DocumentTypes) > 0 {
		fmt.Fprintf(&b, "Document types: %s\n", strings.Join(qc.DocumentTypes, ", "))
	}

	if len(recent) > 0 {
		if len(recent) > 2 {
			recent = recent[len(recent)-2:]
		}
		b.WriteString("\nRecent conversation context:\n")
		for _, ex := range recent {
			fmt.Fprintf(&b, "Q: %s...\n", clip(ex.Query, 100))
			fmt.Fprintf(&b, "A: %s...\n\n", clip(ex.Answer, 100))
		}
	}

	return b.String()
}

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func extractSources(answer string) []Source {
	lower := strings.ToLower(answer)
	var sources []Source
	if strings.Contains(lower, "based on") || strings.Contains(lower, "according to") {
		sources = append(sources, Source{
			Type:       "document_reference",
			Confidence: 0.8,
			Excerpt:    "Document reference found in response",
		})
	}
	return sources
}

var qualityCues = []string{
	"specific", "section", "clause", "provision", "according to",
	"based on", "as stated in", "the document indicates",
}

var uncertaintyCues = []string{
	"might", "could", "possibly", "unclear", "ambiguous", "uncertain",
}

// scoreConfidence derives a heuristic reliability estimate in [0.1, 1.0]
// from lexical cues in the answer.
func scoreConfidence(answer string, sourceCount int) float64 {
	lower := strings.ToLower(answer)
	score := 0.5

	if sourceCount > 0 {
		score += 0.2 * float64(min(sourceCount, 3)) / 3.0
	}

	quality := 0
	for _, cue := range qualityCues {
		if strings.Contains(lower, cue) {
			quality++
		}
	}
	score += 0.05 * float64(min(quality, 4))

	uncertainty := 0
	for _, cue := range uncertaintyCues {
		if strings.Contains(lower, cue) {
			uncertainty++
		}
	}
	score -= 0.1 * float64(min(uncertainty, 2))

	return max(0.1, min(1.0, score))
}

func estimateTokens(answer string) int {
	return int(float64(len(strings.Fields(answer))) * 1.3)
}

func (o *Orchestrator) record(text string, qc Context, resp Response) {
	o.analytics.Record(Entry{
		Timestamp:    resp.Timestamp,
		Query:        text,
		Persona:      string(qc.Persona),
		Mode:         string(qc.Mode),
		ResponseTime: resp.ProcessingTime,
		Confidence:   resp.Confidence,
		TokensUsed:   resp.TokensUsed,
		SourceCount:  len(resp.Sources),
	})
}

var followUpMarker = regexp.MustCompile(`^\s*(?:[-*]|\d+[.)])\s*(.+)$`)

const followUpSystemPrompt = "You are a helpful legal assistant that suggests relevant follow-up questions."

// SuggestFollowUps asks the completion model for up to three follow-up
// questions. Any failure falls back to a fixed persona-specific list.
func (o *Orchestrator) SuggestFollowUps(ctx context.Context, originalQuery string, resp Response, qc Context) []string {
	prompt := fmt.Sprintf(`Based on this legal query and response, suggest 3 relevant follow-up questions that a legal professional might ask:

Original Query: %s

Response Summary: %s...

Persona Context: %s

Please suggest specific, actionable follow-up questions that would help the user get more detailed or related information. Focus on practical legal concerns.`,
		originalQuery, clip(resp.Answer, 500), qc.Persona)

	raw, err := o.completer.Complete(ctx, prompt, followUpSystemPrompt, nil, llm.Options{
		Model:     o.models.ModelForTier(llm.TierStandard),
		MaxTokens: 300,
	})
	if err != nil {
		return fallbackFollowUps(qc.Persona)
	}

	var questions []string
	for _, line := range strings.Split(raw, "\n") {
		m := followUpMarker.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		if q := strings.TrimSpace(m[1]); q != "" {
			questions = append(questions, q)
		}
		if len(questions) == 3 {
			break
		}
	}
	if len(questions) == 0 {
		return fallbackFollowUps(qc.Persona)
	}
	return questions
}

func fallbackFollowUps(p persona.Persona) []string {
	switch p {
	case persona.ContractAnalyst:
		return []string{
			"What are the key obligations for each party?",
			"Are there any problematic clauses I should review?",
			"How does this compare to standard industry contracts?",
		}
	case persona.RiskAssessor:
		return []string{
			"What is the overall risk level of this arrangement?",
			"What mitigation strategies would you recommend?",
			"Are there any red flags I should be concerned about?",
		}
	case persona.LegalWriter:
		return []string{
			"How can this language be improved for clarity?",
			"Are there any standard clauses that should be added?",
			"What alternative phrasings would you suggest?",
		}
	case persona.ComplianceOfficer:
		return []string{
			"What regulatory requirements apply here?",
			"Are there any compliance gaps I should address?",
			"What documentation is needed for compliance?",
		}
	default:
		return []string{
			"What are the potential legal risks in this situation?",
			"Are there any compliance requirements I should be aware of?",
			"What would you recommend as next steps?",
		}
	}
}
