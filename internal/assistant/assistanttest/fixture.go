// Package assistanttest wires a complete in-memory Service around a
// scripted oracle for handler and tool tests.
package assistanttest

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rendis/reqbot/internal/assistant"
	"github.com/rendis/reqbot/internal/flows"
	"github.com/rendis/reqbot/internal/generation"
	"github.com/rendis/reqbot/internal/handoff"
	"github.com/rendis/reqbot/internal/oracle"
	"github.com/rendis/reqbot/internal/report"
	"github.com/rendis/reqbot/internal/streaming"
	"github.com/rendis/reqbot/internal/workers"
)

// DiagramReply is a structured diagram with one edge to a missing node.
const DiagramReply = `{
  "nodes": [
    {"id": "A", "kind": "start", "label": "Start"},
    {"id": "B", "kind": "decision", "label": "Valid input?"},
    {"id": "C", "kind": "action", "label": "Process (batch)"},
    {"id": "D", "kind": "end", "label": "End"}
  ],
  "edges": [
    {"from": "A", "to": "B"},
    {"from": "B", "to": "C", "label": "Yes"},
    {"from": "B", "to": "D", "label": "No"},
    {"from": "C", "to": "D"},
    {"from": "C", "to": "Z"}
  ]
}`

// Replies returns a reply for every template.
func Replies() map[string]oracle.Reply {
	return map[string]oracle.Reply{
		generation.TemplateChatReply: {Text: `{"response": "Who will use the system?"}`},
		generation.TemplateExtractRequirements: {Text: `{"requirements": [
			{"id": "FR-1", "type": "Functional", "description": "Patients book appointments online", "priority": "High", "confidence_score": 0.9},
			{"id": "NFR-1", "type": "NonFunctional", "description": "Pages load within two seconds", "priority": "Med", "confidence_score": 0.6}
		]}`},
		generation.TemplateExecutiveSummary: {Text: `{"summary": "## Overview\nAn online booking system."}`},
		generation.TemplateActivityDiagram:  {Text: DiagramReply},
		generation.TemplateCostEstimation:   {Text: `{"estimation": "Roughly three months for two developers."}`},
		generation.TemplateReferences:       {Text: `{"references": "- HL7 FHIR Appointment resource"}`},
	}
}

// Fixture bundles the service with the collaborators tests inspect.
type Fixture struct {
	Service *assistant.Service
	Oracle  *oracle.Scripted
	Store   *handoff.Memory
	Hub     *streaming.MemoryHub
	Pool    *workers.Pool
}

// New builds a Fixture answering from replies.
func New(t testing.TB, replies map[string]oracle.Reply) *Fixture {
	t.Helper()
	o := oracle.NewScripted(replies)
	gen, err := generation.New(o)
	require.NoError(t, err)

	f := flows.New(gen, nil)
	pool := workers.New(4)
	t.Cleanup(pool.Shutdown)
	hub := streaming.NewMemoryHub()
	store := handoff.NewMemory()
	builder := report.New(f, pool, report.WithHub(hub))

	return &Fixture{
		Service: assistant.New(f, store, builder, hub, nil),
		Oracle:  o,
		Store:   store,
		Hub:     hub,
		Pool:    pool,
	}
}
