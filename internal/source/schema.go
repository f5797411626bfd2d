package source

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

const adzunaListingSchema = `{
	"type": "object",
	"required": ["id", "title", "redirect_url"],
	"properties": {
		"id": {"type": ["string", "integer"]},
		"title": {"type": "string", "minLength": 1},
		"redirect_url": {"type": "string", "minLength": 1},
		"description": {"type": "string"},
		"created": {"type": "string"},
		"company": {"type": "object", "properties": {"display_name": {"type": "string"}}},
		"location": {"type": "object", "properties": {"display_name": {"type": "string"}}},
		"category": {"type": "object", "properties": {"label": {"type": "string"}}},
		"salary_min": {"type": "number"},
		"salary_max": {"type": "number"}
	}
}`

const remotiveListingSchema = `{
	"type": "object",
	"required": ["id", "title", "url"],
	"properties": {
		"id": {"type": ["integer", "string"]},
		"title": {"type": "string", "minLength": 1},
		"url": {"type": "string", "minLength": 1},
		"company_name": {"type": "string"},
		"category": {"type": "string"},
		"tags": {"type": "array", "items": {"type": "string"}},
		"publication_date": {"type": "string"},
		"candidate_required_location": {"type": "string"},
		"salary": {"type": "string"},
		"description": {"type": "string"}
	}
}`

const jsearchListingSchema = `{
	"type": "object",
	"required": ["job_id", "job_title", "job_apply_link"],
	"properties": {
		"job_id": {"type": "string", "minLength": 1},
		"job_title": {"type": "string", "minLength": 1},
		"job_apply_link": {"type": "string", "minLength": 1},
		"employer_name": {"type": ["string", "null"]},
		"job_city": {"type": ["string", "null"]},
		"job_country": {"type": ["string", "null"]},
		"job_description": {"type": ["string", "null"]},
		"job_posted_at_timestamp": {"type": ["integer", "null"]},
		"job_offer_expiration_timestamp": {"type": ["integer", "null"]},
		"job_required_skills": {"type": ["array", "null"], "items": {"type": "string"}}
	}
}`

// ListingValidator checks one raw board listing against its JSON Schema
type ListingValidator struct {
	schema *jsonschema.Schema
}

// NewListingValidator compiles schemaJSON under the given resource name
func NewListingValidator(name, schemaJSON string) (*ListingValidator, error) {
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(schemaJSON))
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s schema: %w", name, err)
	}

	c := jsonschema.NewCompiler()
	location := name + ".schema.json"
	if err := c.AddResource(location, doc); err != nil {
		return nil, fmt.Errorf("failed to add %s schema: %w", name, err)
	}

	schema, err := c.Compile(location)
	if err != nil {
		return nil, fmt.Errorf("failed to compile %s schema: %w", name, err)
	}

	return &ListingValidator{schema: schema}, nil
}

// Decode validates raw and unmarshals it into out
func (v *ListingValidator) Decode(raw json.RawMessage, out any) error {
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("listing is not valid json: %w", err)
	}
	if err := v.schema.Validate(inst); err != nil {
		return fmt.Errorf("listing failed schema validation: %w", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode listing: %w", err)
	}
	return nil
}
