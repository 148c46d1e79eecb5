// Package tools defines the Eino tools the question-answering agent can
// invoke during a conversation: searching the local document index and
// searching the web. Each tool satisfies Eino's tool.InvokableTool interface
// so it can be registered directly with the ReAct agent.
package tools

// Tool is the interface all agent tools in this package satisfy. It extends
// the basic Eino tool contract with Name and Description accessors so the
// agent can log and route tool calls without type assertions.
type Tool interface {
	// Name returns the unique tool name registered with the agent.
	Name() string

	// Description returns a human-readable description of what the tool does.
	// This text is sent to the LLM as part of the tool schema.
	Description() string
}
