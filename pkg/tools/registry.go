// Package tools declares the callable tools exposed to the completion
// service and dispatches requested invocations against the university
// backend.
package tools

import (
	"encoding/json"

	"esupchat/pkg/models"
)

// Tool names as declared to the completion service. The names are part of
// the prompt contract; the seed developer message references them.
const (
	ToolNews     = "getActualities"
	ToolContacts = "getContacts"
	ToolMenu     = "getMenuRU"
	ToolSchedule = "getEDT"
)

// schemaDefs is the fixed tool set. Parameter shapes are strict JSON
// schemas: additionalProperties:false with an explicit required list, so
// the completion service only ever supplies the declared fields.
var schemaDefs = []models.ToolSchema{
	{
		Name:        ToolNews,
		Description: "Get the latest university news.",
		Parameters:  json.RawMessage(`{"type": "object", "properties": {}, "additionalProperties": false, "required": []}`),
	},
	{
		Name:        ToolContacts,
		Description: "Look up contact information for a member of the teaching or administrative staff.",
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"name": {
					"type": "string",
					"description": "First and/or last name of the person to look up"
				}
			},
			"additionalProperties": false,
			"required": ["name"]
		}`),
	},
	{
		Name:        ToolMenu,
		Description: "Get this week's menu for a university restaurant.",
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"id": {
					"type": "string",
					"description": "The university restaurant id"
				}
			},
			"additionalProperties": false,
			"required": ["id"]
		}`),
	},
	{
		Name:        ToolSchedule,
		Description: "Get the class schedule for the coming week.",
		Parameters:  json.RawMessage(`{"type": "object", "properties": {}, "additionalProperties": false, "required": []}`),
	},
}

// Schemas returns the declared tool schemas, communicated verbatim to the
// completion service on every round.
func Schemas() []models.ToolSchema {
	out := make([]models.ToolSchema, len(schemaDefs))
	copy(out, schemaDefs)
	return out
}

// Restaurants maps the known university restaurant ids to their names.
// The table is rendered into the seed developer message so the model can
// resolve restaurant names to ids on its own.
var Restaurants = []struct {
	ID   string
	Name string
}{
	{"1184", "Restaurant Universitaire Ronzier"},
	{"1165", "Restaurant Universitaire Rambouillet"},
	{"1175", "Cafétéria IUT"},
	{"1176", "Cafétéria Matisse"},
	{"1182", "Mont Houy 1"},
	{"1183", "Mont Houy 2"},
	{"1188", "Cafétéria Mousseron"},
	{"1265", "Cafétéria Mont Houy 1"},
	{"1773", "Cafétéria Mont Houy 2"},
	{"1689", "RU Rubika"},
}
