package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/rsned/industry-planner/pkg/industry"
)

// ToolDefinition describes an MCP tool.
type ToolDefinition struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	InputSchema JSONSchema `json:"inputSchema"`
}

// JSONSchema is a simplified JSON Schema representation.
type JSONSchema struct {
	Type       string              `json:"type,omitempty"`
	Properties map[string]Property `json:"properties,omitempty"`
	Required   []string            `json:"required,omitempty"`
	AnyOf      []JSONSchema        `json:"anyOf,omitempty"`
}

// Property describes a schema property.
type Property struct {
	Type                 string              `json:"type,omitempty"`
	Description          string              `json:"description,omitempty"`
	Default              any                 `json:"default,omitempty"`
	Enum                 []string            `json:"enum,omitempty"`
	Minimum              *float64            `json:"minimum,omitempty"`
	Maximum              *float64            `json:"maximum,omitempty"`
	MinItems             *int                `json:"minItems,omitempty"`
	Items                *Property           `json:"items,omitempty"`
	Properties           map[string]Property `json:"properties,omitempty"`
	Required             []string            `json:"required,omitempty"`
	PropertyNames        *Property           `json:"propertyNames,omitempty"`
	Pattern              string              `json:"pattern,omitempty"`
	AdditionalProperties *Property           `json:"additionalProperties,omitempty"`
}

// GetToolDefinitions returns all tool definitions.
func GetToolDefinitions() []ToolDefinition {
	return []ToolDefinition{
		oreMixTool(),
		buildPlanTool(),
		shoppingListTool(),
		itemLookupTool(),
	}
}

func fptr(v float64) *float64 { return &v }

// typeMap is an object keyed by decimal type ids.
func typeMap(description string, value Property) Property {
	return Property{
		Type:                 "object",
		Description:          description,
		PropertyNames:        &Property{Pattern: "^[0-9]+$"},
		AdditionalProperties: &value,
	}
}

func typeList(description string) Property {
	return Property{
		Type:        "array",
		Description: description,
		Items:       &Property{Type: "integer", Minimum: fptr(1)},
	}
}

func oreConstraintsProperty() Property {
	return typeMap("Per-ore overrides (ore id -> constraint). Missing prices fall back to the stored ore prices.", Property{
		Type: "object",
		Properties: map[string]Property{
			"allowed":    {Type: "boolean"},
			"unit_price": {Type: "number", Minimum: fptr(0)},
			"cap":        {Type: "number", Minimum: fptr(0), Description: "Maximum units; 0 means unlimited"},
		},
	})
}

func efficiencyProperty() Property {
	return Property{
		Type:        "number",
		Description: "Refining efficiency in (0,1]; 0 uses the configured default",
		Minimum:     fptr(0),
		Maximum:     fptr(1),
	}
}

func oreMixTool() ToolDefinition {
	return ToolDefinition{
		Name:        "ore_mix",
		Description: "Find the cheapest combination of ores whose refined output covers a mineral demand. Returns ore quantities in refining batches, the refined output and the total cost.",
		InputSchema: JSONSchema{
			Type: "object",
			Properties: map[string]Property{
				"demand":       typeMap("Mineral demand (mineral id -> units)", Property{Type: "number", Minimum: fptr(0)}),
				"constraints":  oreConstraintsProperty(),
				"allowed_ores": typeList("Restrict the mix to these ore ids"),
				"efficiency":   efficiencyProperty(),
				"stock_owner": {
					Type:        "string",
					Description: "Only refine ores held by this owner, capped at the held quantity",
				},
			},
			Required: []string{"demand"},
		},
	}
}

// planProperties is shared by build_plan and the plan section of
// shopping_list.
func planProperties() map[string]Property {
	return map[string]Property{
		"targets": {
			Type:        "array",
			Description: "Products to build",
			MinItems:    ptrInt(1),
			Items: &Property{
				Type: "object",
				Properties: map[string]Property{
					"product_id": {Type: "integer", Minimum: fptr(1)},
					"quantity":   {Type: "integer", Minimum: fptr(0)},
				},
				Required: []string{"product_id", "quantity"},
			},
		},
		"stock_owner": {
			Type:        "string",
			Description: "Net the stored stock of this owner against the plan",
		},
		"stocks": {
			Type:        "array",
			Description: "Additional stock on hand",
			Items: &Property{
				Type: "object",
				Properties: map[string]Property{
					"item_id":  {Type: "integer", Minimum: fptr(1)},
					"quantity": {Type: "integer", Minimum: fptr(0)},
				},
				Required: []string{"item_id", "quantity"},
			},
		},
		"overrides": typeMap("Fixed ME/TE percentages per product id", Property{
			Type: "object",
			Properties: map[string]Property{
				"me": {Type: "number", Minimum: fptr(0), Maximum: fptr(100)},
				"te": {Type: "number", Minimum: fptr(0), Maximum: fptr(100)},
			},
		}),
		"blacklist": typeList("Items never built or bought"),
		"max_runs":  typeMap("Maximum runs per job (product id -> runs)", Property{Type: "integer", Minimum: fptr(1)}),
		"max_job_time_sec": {
			Type:        "integer",
			Description: "Split intermediate jobs longer than this wall time",
			Minimum:     fptr(0),
		},
		"skip_children": {
			Type:        "boolean",
			Description: "Treat the direct inputs of the targets as raw materials",
		},
	}
}

func ptrInt(v int) *int { return &v }

func buildPlanTool() ToolDefinition {
	return ToolDefinition{
		Name:        "build_plan",
		Description: "Expand products into a full build plan: every intermediate job with runs, facility bonuses and job cost, plus the raw materials still to acquire after stock.",
		InputSchema: JSONSchema{
			Type:       "object",
			Properties: planProperties(),
			Required:   []string{"targets"},
		},
	}
}

func shoppingListTool() ToolDefinition {
	return ToolDefinition{
		Name:        "shopping_list",
		Description: "Build a plan, then cover its mineral requirements with the cheapest ore mix. Non-mineral materials are listed as purchases.",
		InputSchema: JSONSchema{
			Type: "object",
			Properties: map[string]Property{
				"plan": {
					Type:        "object",
					Description: "Build plan request",
					Properties:  planProperties(),
					Required:    []string{"targets"},
				},
				"constraints":  oreConstraintsProperty(),
				"allowed_ores": typeList("Restrict the mix to these ore ids"),
				"efficiency":   efficiencyProperty(),
			},
			Required: []string{"plan"},
		},
	}
}

func itemLookupTool() ToolDefinition {
	return ToolDefinition{
		Name:        "item_lookup",
		Description: "Look up an item by id or name search. Returns the item, its blueprint, what uses it and whether it is an ore or mineral.",
		InputSchema: JSONSchema{
			Type: "object",
			Properties: map[string]Property{
				"item_id": {
					Type:        "integer",
					Description: "Exact item type id",
					Minimum:     fptr(1),
				},
				"search": {
					Type:        "string",
					Description: "Search term for the item name (alternative to item_id)",
				},
			},
			AnyOf: []JSONSchema{
				{Required: []string{"item_id"}},
				{Required: []string{"search"}},
			},
		},
	}
}

// compileSchemas compiles the input schema of every tool.
func compileSchemas(tools []ToolDefinition) (map[string]*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	for _, tool := range tools {
		raw, err := json.Marshal(tool.InputSchema)
		if err != nil {
			return nil, fmt.Errorf("encoding %s schema: %w", tool.Name, err)
		}
		if err := compiler.AddResource(tool.Name+".json", bytes.NewReader(raw)); err != nil {
			return nil, fmt.Errorf("adding %s schema: %w", tool.Name, err)
		}
	}

	schemas := make(map[string]*jsonschema.Schema, len(tools))
	for _, tool := range tools {
		schema, err := compiler.Compile(tool.Name + ".json")
		if err != nil {
			return nil, fmt.Errorf("compiling %s schema: %w", tool.Name, err)
		}
		schemas[tool.Name] = schema
	}
	return schemas, nil
}

// validateArguments checks tool arguments against the tool's input schema.
func (s *Server) validateArguments(name string, args json.RawMessage) error {
	schema, ok := s.schemas[name]
	if !ok {
		return fmt.Errorf("unknown tool: %s", name)
	}
	var v any
	if err := json.Unmarshal(args, &v); err != nil {
		return fmt.Errorf("arguments: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("arguments: %w", err)
	}
	return nil
}

// Tool handlers

func (s *Server) toolOreMix(ctx context.Context, args json.RawMessage) (any, error) {
	var req industry.OreMixRequest
	if err := json.Unmarshal(args, &req); err != nil {
		return nil, err
	}
	return s.engine.OreMix(ctx, req)
}

func (s *Server) toolBuildPlan(ctx context.Context, args json.RawMessage) (any, error) {
	var req industry.BuildPlanRequest
	if err := json.Unmarshal(args, &req); err != nil {
		return nil, err
	}
	return s.engine.BuildPlan(ctx, req)
}

func (s *Server) toolShoppingList(ctx context.Context, args json.RawMessage) (any, error) {
	var req industry.ShoppingListRequest
	if err := json.Unmarshal(args, &req); err != nil {
		return nil, err
	}
	return s.engine.ShoppingList(ctx, req)
}

func (s *Server) toolItemLookup(ctx context.Context, args json.RawMessage) (any, error) {
	var req industry.ItemLookupRequest
	if err := json.Unmarshal(args, &req); err != nil {
		return nil, err
	}
	return s.engine.ItemLookup(ctx, req)
}
