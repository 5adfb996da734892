// Package terminal implements the interactive command-line interaction
// mode: prompt-based conversations, tool execution confirmations and
// configurable verbosity.
package terminal

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/nanoagent/nanoagent/agent"
	"github.com/nanoagent/nanoagent/commands"
	"github.com/nanoagent/nanoagent/session"
)

// Terminal runs the agent against stdin/stdout.
type Terminal struct {
	agent *agent.Agent
	cmds  *commands.Loader
	in    *bufio.Scanner
}

// New builds a terminal for the agent. cmds may be nil, which disables
// slash-command expansion.
func New(a *agent.Agent, cmds *commands.Loader) *Terminal {
	return &Terminal{
		agent: a,
		cmds:  cmds,
		in:    bufio.NewScanner(os.Stdin),
	}
}

// Run starts the interactive session. An initial prompt, if given, is
// processed before reading from stdin. The session ends on /quit, /exit
// or EOF.
func (t *Terminal) Run(ctx context.Context, initialPrompt string) error {
	if err := t.agent.Start(ctx); err != nil {
		return err
	}
	defer t.agent.Shutdown(ctx)

	if initialPrompt != "" {
		if err := t.handleInput(ctx, initialPrompt); err != nil {
			return err
		}
	}

	for {
		fmt.Print("You: ")
		if !t.in.Scan() {
			break
		}

		userInput := strings.TrimSpace(t.in.Text())
		if userInput == "" {
			continue
		}
		if userInput == "/quit" || userInput == "/exit" {
			break
		}

		if err := t.handleInput(ctx, userInput); err != nil {
			fmt.Printf("Error: %v\n", err)
		}
	}

	return t.in.Err()
}

// handleInput expands slash-command invocations before the turn runs.
// "/commands" lists the available templates instead of prompting.
func (t *Terminal) handleInput(ctx context.Context, userInput string) error {
	if t.cmds != nil {
		if userInput == "/commands" {
			t.listCommands()
			return nil
		}
		if name, arguments, ok := commands.ParseInvocation(userInput); ok {
			expanded, err := t.cmds.Expand(name, arguments)
			if err != nil {
				fmt.Printf("Unknown command /%s. Type /commands to list them.\n", name)
				return nil
			}
			userInput = expanded
		}
	}
	return t.processTurn(ctx, userInput)
}

func (t *Terminal) listCommands() {
	cmds, err := t.cmds.List()
	if err != nil || len(cmds) == 0 {
		fmt.Printf("No commands found in %s\n", t.cmds.Dir())
		return
	}
	for _, c := range cmds {
		fmt.Printf("/%-20s %s\n", c.Name, c.Description)
	}
}

func (t *Terminal) processTurn(ctx context.Context, userInput string) error {
	callbacks := agent.ProcessCallbacks{
		OnAssistantMessage: func(message string) {
			fmt.Printf("Agent: %s\n", message)
		},
		OnToolCall: func(tc session.ToolCall) {
			switch t.agent.Verbosity {
			case agent.ToolVerbosityAll:
				fmt.Printf("Agent wants to call tool `%s` with args: %v\n", tc.Name, tc.Args)
			case agent.ToolVerbosityInfo:
				fmt.Printf("Agent wants to call tool `%s`\n", tc.Name)
			}
		},
		OnToolResult: func(tc session.ToolCall, result string) {
			if t.agent.Verbosity == agent.ToolVerbosityAll {
				fmt.Printf("Tool `%s` output: %s\n", tc.Name, result)
			}
		},
		ShouldExecuteTool: func(tc session.ToolCall) bool {
			if t.agent.Mode != agent.ModePrompt {
				return true
			}
			fmt.Printf("Allow tool `%s`? (y/n): ", tc.Name)
			if !t.in.Scan() {
				return false
			}
			return strings.TrimSpace(strings.ToLower(t.in.Text())) == "y"
		},
		OnWarning: func(warning string) {
			fmt.Printf("Warning: %s\n", warning)
		},
	}

	_, err := t.agent.ProcessUserInput(ctx, userInput, callbacks)
	return err
}
