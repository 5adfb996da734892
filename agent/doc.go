// Package agent contains the core conversation loop shared by the
// interaction modes (terminal CLI and MCP server).
//
// The Agent type drives one turn at a time: it raises the prompt
// lifecycle hooks, builds the trimmed conversation context, round-trips
// with the model executing tool calls under the permission contract, and
// persists the exchange. Interaction modes customize how events are
// surfaced through ProcessCallbacks, so the same processing logic serves
// both an interactive terminal and a JSON-RPC server.
//
// Lifecycle hooks are raised at every step: a blocking pre_agent_start or
// user_prompt_submit hook can refuse the step, while the observational
// events (post_tool_use, agent_response, session_save and friends) never
// affect the turn.
//
// The agent supports two operation modes:
//
//   - ModeAuto: tool calls execute without confirmation
//   - ModePrompt: tool execution is confirmed through ShouldExecuteTool
package agent
