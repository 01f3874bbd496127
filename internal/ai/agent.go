package ai

import (
	"context"
	"encoding/json"
	"fmt"

	"warehouse-backoffice/internal/core"

	"github.com/invopop/jsonschema"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/responses"
	"github.com/openai/openai-go/shared"
	"github.com/openai/openai-go/shared/constant"
)

type AgentService interface {
	InterpretMovement(ctx context.Context, naturalLanguage, catalog string) (*core.MovementProposal, error)
}

type Agent struct {
	client *openai.Client
}

func NewAgent(apiKey string) *Agent {
	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &Agent{client: &client}
}

// InterpretMovement turns a natural-language movement description into a
// structured proposal. catalog is a plain-text listing of known product SKUs
// and warehouse codes the model must pick from.
func (a *Agent) InterpretMovement(ctx context.Context, naturalLanguage, catalog string) (*core.MovementProposal, error) {
	prompt := fmt.Sprintf(`You are a warehouse operations assistant.
Your goal is to interpret a stock movement described in natural language and propose a structured ledger entry.
You MUST use the provided product and warehouse catalog.
Rules:
1. Use ONLY SKUs and warehouse codes from the catalog below.
2. action is one of: inbound, outbound, transfer, adjustment.
3. Quantities must be exact decimal strings (e.g. "50" or "12.5"), signed only for adjustments.
4. Transfers need both warehouse_code (source) and to_warehouse_code (destination).
5. Adjustments need a reason.
6. Provide a confidence score (0.0-1.0).
7. Explain your reasoning.

Catalog:
%s

Request: %s`, catalog, naturalLanguage)

	// Dynamically generate the JSON schema from the Go struct
	schemaStruct := generateSchema()
	schemaJSON, err := json.Marshal(schemaStruct)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}
	var schemaMap map[string]any
	if err := json.Unmarshal(schemaJSON, &schemaMap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal schema to map: %w", err)
	}

	params := responses.ResponseNewParams{
		Model: shared.ResponsesModel(shared.ChatModelGPT4o),
		Input: responses.ResponseNewParamsInputUnion{
			OfString: param.NewOpt(prompt),
		},
		Text: responses.ResponseTextConfigParam{
			Format: responses.ResponseFormatTextConfigUnionParam{
				OfJSONSchema: &responses.ResponseFormatTextJSONSchemaConfigParam{
					Type:        constant.JSONSchema("json_schema"),
					Name:        "stock_movement_proposal",
					Strict:      param.NewOpt(true),
					Schema:      schemaMap,
					Description: param.NewOpt("A proposed warehouse stock movement"),
				},
			},
		},
	}

	resp, err := a.client.Responses.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai responses error: %w", err)
	}

	content := resp.OutputText()
	if content == "" {
		return nil, fmt.Errorf("empty response content")
	}

	var proposal core.MovementProposal
	if err := json.Unmarshal([]byte(content), &proposal); err != nil {
		return nil, fmt.Errorf("failed to parse completion: %w", err)
	}

	proposal.Normalize()
	if err := proposal.Validate(); err != nil {
		return nil, fmt.Errorf("proposal validation failed: %w", err)
	}

	return &proposal, nil
}

func generateSchema() interface{} {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v core.MovementProposal
	return reflector.Reflect(v)
}
