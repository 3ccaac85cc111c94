// Package persona holds the fixed catalogue of answer-framing personas and
// assembles persona- and language-aware prompts.
package persona

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/covenantrix/rag/internal/llm"
)

// Persona identifies a specialized assistant role.
type Persona string

const (
	LegalAdvisor      Persona = "legal_advisor"
	LegalWriter       Persona = "legal_writer"
	ContractAnalyst   Persona = "contract_analyst"
	RiskAssessor      Persona = "risk_assessor"
	ComplianceOfficer Persona = "compliance_officer"
)

// DefaultPersona is used when an unknown persona is requested.
const DefaultPersona = LegalAdvisor

// Config describes one persona. Read-only after construction.
type Config struct {
	SystemPrompt  string
	ModelTier     string
	Temperature   float64
	ResponseStyle string
	Specialties   []string
}

// Registry is the static persona catalogue. Construct one per component
// instance; there is no package-level registry.
type Registry struct {
	configs map[Persona]Config
	order   []Persona
}

// NewRegistry builds the five-persona catalogue.
func NewRegistry() *Registry {
	return &Registry{
		order: []Persona{LegalAdvisor, LegalWriter, ContractAnalyst, RiskAssessor, ComplianceOfficer},
		configs: map[Persona]Config{
			LegalAdvisor: {
				SystemPrompt: "You are a senior legal advisor with 20+ years of experience in contract law, " +
					"corporate law, and legal risk assessment. You provide precise, actionable legal advice based on " +
					"the provided documents. Always cite specific clauses, sections, or provisions when making " +
					"recommendations. Focus on practical implications and potential risks.",
				ModelTier:     llm.TierStandard,
				Temperature:   0.1,
				ResponseStyle: "detailed_analysis",
				Specialties:   []string{"contract_review", "risk_assessment", "legal_compliance"},
			},
			LegalWriter: {
				SystemPrompt: "You are an expert legal writer specializing in drafting, editing, and " +
					"improving legal documents. You help create clear, enforceable legal language while maintaining " +
					"precision and completeness. Focus on structure, clarity, and legal soundness. Suggest specific " +
					"improvements and alternative phrasings.",
				ModelTier:     llm.TierPremium,
				Temperature:   0.3,
				ResponseStyle: "constructive_editing",
				Specialties:   []string{"document_drafting", "clause_improvement", "legal_writing"},
			},
			ContractAnalyst: {
				SystemPrompt: "You are a specialized contract analyst who excels at breaking down complex " +
					"agreements, identifying key terms, obligations, and potential issues. You provide systematic " +
					"analysis of contract components including parties, consideration, performance requirements, " +
					"termination conditions, and dispute resolution mechanisms.",
				ModelTier:     llm.TierStandard,
				Temperature:   0.1,
				ResponseStyle: "systematic_breakdown",
				Specialties:   []string{"contract_analysis", "term_extraction", "obligation_mapping"},
			},
			RiskAssessor: {
				SystemPrompt: "You are a legal risk assessment specialist who identifies, evaluates, and " +
					"prioritizes legal risks in documents and business arrangements. You assess probability and impact " +
					"of potential legal issues, suggest mitigation strategies, and provide risk ratings with clear " +
					"justifications.",
				ModelTier:     llm.TierStandard,
				Temperature:   0.1,
				ResponseStyle: "risk_focused_analysis",
				Specialties:   []string{"risk_identification", "impact_assessment", "mitigation_strategies"},
			},
			ComplianceOfficer: {
				SystemPrompt: "You are a compliance officer specialized in regulatory requirements, " +
					"industry standards, and legal compliance verification. You identify compliance gaps, " +
					"regulatory requirements, and ensure documents meet applicable legal standards. You stay " +
					"current with regulatory changes and industry best practices.",
				ModelTier:     llm.TierStandard,
				Temperature:   0.1,
				ResponseStyle: "compliance_checklist",
				Specialties:   []string{"regulatory_compliance", "standards_verification", "gap_analysis"},
			},
		},
	}
}

// Get returns the configuration for a persona, falling back to the default
// persona for unknown values.
func (r *Registry) Get(p Persona) Config {
	if cfg, ok := r.configs[p]; ok {
		return cfg
	}
	return r.configs[DefaultPersona]
}

// All lists the catalogue in a stable order.
func (r *Registry) All() []Persona {
	out := make([]Persona, len(r.order))
	copy(out, r.order)
	return out
}

const hebrewDirective = "\n\nCRITICAL HEBREW RESPONSE REQUIREMENT\n" +
	"=== YOU MUST RESPOND IN HEBREW ===\n" +
	"- The user query is in Hebrew\n" +
	"- Your ENTIRE response must be in Hebrew\n" +
	"- Use professional Hebrew legal terminology\n" +
	"- Do NOT translate to English\n" +
	"- Maintain RTL text direction\n" +
	"- This is mandatory - Hebrew queries require Hebrew responses"

// BuildPrompt assembles the full persona prompt: system text, an optional
// Hebrew-only directive, the supplied context block, the user query and the
// fixed instruction footer.
func (r *Registry) BuildPrompt(p Persona, query, contextInfo string) string {
	cfg := r.Get(p)

	directive := ""
	languageLine := "Responds in English"
	if IsHebrew(query) {
		directive = hebrewDirective
		languageLine = "** MANDATORY: Respond ONLY in Hebrew using proper legal terminology **"
	}

	return fmt.Sprintf(`%s%s

CONTEXT INFORMATION:
%s

USER QUERY: %s

Please provide a response that:
1. Directly addresses the query with %s
2. Cites specific sources and sections when available
3. Focuses on your specialty areas: %s
4. Provides actionable insights appropriate for a legal professional
5. %s

RESPONSE:`,
		cfg.SystemPrompt, directive, contextInfo, query,
		cfg.ResponseStyle, strings.Join(cfg.Specialties, ", "), languageLine)
}

// IsHebrew reports whether strictly more than 30% of the text's alphabetic
// characters fall in the Hebrew Unicode block (U+0590 to U+05FF). Integer
// comparison keeps the 30% boundary exact.
func IsHebrew(text string) bool {
	hebrew, alpha := 0, 0
	for _, r := range text {
		if !unicode.IsLetter(r) {
			continue
		}
		alpha++
		if r >= 0x0590 && r <= 0x05FF {
			hebrew++
		}
	}
	if alpha == 0 {
		return false
	}
	return hebrew*10 > alpha*3
}
