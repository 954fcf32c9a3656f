package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"sentinel-bfsi/internal/domain/entity"
	"sentinel-bfsi/internal/domain/repository"
)

// TierInput is everything a tier may read. Candidates are already ordered.
type TierInput struct {
	Query      entity.SanitizedQuery
	Candidates []entity.CandidateMatch
	Category   string
}

// TierExecutor is the single capability the router needs from a tier: try
// once, return text or an error.
type TierExecutor interface {
	Tier() entity.Tier
	Attempt(ctx context.Context, in TierInput) (string, error)
}

// ExactLookup returns the top candidate's canonical answer verbatim.
type ExactLookup struct{}

func (ExactLookup) Tier() entity.Tier { return entity.TierExact }

func (ExactLookup) Attempt(_ context.Context, in TierInput) (string, error) {
	if len(in.Candidates) == 0 || in.Candidates[0].Entry.Answer == "" {
		return "", eris.New("exact lookup: no canonical answer")
	}
	return in.Candidates[0].Entry.Answer, nil
}

// GenerationTier prompts the fine-tuned model with an instruction template.
type GenerationTier struct {
	generator      repository.Generator
	instructions   map[string]string
	relevanceFloor float64
}

func NewGenerationTier(gen repository.Generator, instructions map[string]string, relevanceFloor float64) *GenerationTier {
	return &GenerationTier{generator: gen, instructions: instructions, relevanceFloor: relevanceFloor}
}

func (t *GenerationTier) Tier() entity.Tier { return entity.TierGenerated }

func (t *GenerationTier) Attempt(ctx context.Context, in TierInput) (string, error) {
	prompt := BuildPrompt(t.Instruction(in), in.Query.Text)
	gen, err := t.generator.Generate(ctx, prompt)
	if err != nil {
		return "", err
	}
	return gen.Text, nil
}

// Instruction prefers the best candidate's template when it clears the
// relevance floor, then the category map, then a generic phrasing.
func (t *GenerationTier) Instruction(in TierInput) string {
	if len(in.Candidates) > 0 {
		top := in.Candidates[0]
		if top.Score >= t.relevanceFloor {
			if instr := strings.TrimSpace(top.Entry.Instruction); instr != "" {
				return instr
			}
		}
	}
	if instr, ok := t.instructions[in.Category]; ok {
		return instr
	}
	return "Provide information about " + strings.ReplaceAll(in.Category, "_", " ")
}

// BuildPrompt mirrors the instruction/input layout the model was tuned on.
func BuildPrompt(instruction, maskedQuery string) string {
	return fmt.Sprintf(`%s
Input: %s
Answer in at most three sentences. Do not state amounts, rates, percentages or dates specific to the customer. Do not say whether the customer is eligible, approved or rejected. For account-specific details, direct the customer to the mobile app, internet banking or customer care.`,
		instruction, maskedQuery)
}

// RetrievalTier synthesizes from the policy corpus.
type RetrievalTier struct {
	synth repository.Synthesizer
}

func NewRetrievalTier(synth repository.Synthesizer) *RetrievalTier {
	return &RetrievalTier{synth: synth}
}

func (t *RetrievalTier) Tier() entity.Tier { return entity.TierRetrieved }

func (t *RetrievalTier) Attempt(ctx context.Context, in TierInput) (string, error) {
	text, ok, err := t.synth.SynthesizeOrEscalate(ctx, in.Query)
	if err != nil {
		if isTimeout(ctx, err) {
			return "", eris.Wrap(entity.ErrGenerationTimeout, err.Error())
		}
		return "", eris.Wrap(entity.ErrGenerationFault, err.Error())
	}
	if !ok || strings.TrimSpace(text) == "" {
		return "", entity.ErrRetrievalExhausted
	}
	return text, nil
}

// DefaultInstructions maps categories to the instruction phrasing used when
// no knowledge-base template is close enough.
func DefaultInstructions() map[string]string {
	return map[string]string{
		"loan_eligibility":        "Provide information about loan eligibility criteria",
		"loan_application_status": "Check loan application status",
		"loan_documents":          "Provide information about loan documents required",
		"emi_details":             "Provide EMI details",
		"emi_schedule":            "Provide EMI schedule information",
		"emi_missed":              "Provide information about missed EMI",
		"emi_bounced":             "Provide information about bounced EMI",
		"payment_failure":         "Provide information about payment failure",
		"transaction_status":      "Check transaction status",
		"payment_methods":         "Provide information about payment methods",
		"account_locked":          "Provide information about account locked",
		"account_statement":       "Provide account statement information",
		"account_balance":         "Provide information about account balance",
		"update_mobile":           "Provide information about updating mobile number",
		"update_address":          "Provide information about updating address",
		"update_email":            "Provide information about updating email",
		"policy_information":      "Provide information about policy and terms",
		"premium_payment":         "Provide information about premium payment",
		"claim_status":            "Check insurance claim status",
		"complaint":               "Handle complaint",
		"speak_to_manager":        "Handle request to speak to manager",
		"not_satisfied":           "Handle customer not satisfied",
	}
}
