package hooks

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/nanoagent/nanoagent/logger"
)

// EnvOverlay maps event data fields to the environment variables exposed
// to hook processes. Pure function: same data, same overlay.
func EnvOverlay(data *EventData) map[string]string {
	env := map[string]string{
		"NANO_CLI_EVENT":       data.Event,
		"NANO_CLI_CONTEXT":     data.Context,
		"NANO_CLI_WORKING_DIR": data.WorkingDir,
		"NANO_CLI_SESSION_ID":  data.SessionID,
		"NANO_CLI_MODEL":       data.Model,
		"NANO_CLI_PROVIDER":    data.Provider,
	}
	if data.Context == ContextMCP {
		env["NANO_MCP_CONTEXT"] = "true"
		if data.MCPClient != "" {
			env["NANO_MCP_CLIENT"] = data.MCPClient
		}
		if data.MCPRequestID != "" {
			env["NANO_MCP_REQUEST_ID"] = data.MCPRequestID
		}
	}
	return env
}

// environ flattens the overlay onto the parent environment in a stable
// order.
func environ(overlay map[string]string) []string {
	keys := make([]string, 0, len(overlay))
	for k := range overlay {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	env := os.Environ()
	for _, k := range keys {
		env = append(env, k+"="+overlay[k])
	}
	return env
}

// execute runs one hook command as a child process: JSON event on stdin,
// env overlay, working directory from the event, bounded by the hook's
// timeout. Every failure mode is converted into a failed ExecutionResult;
// execute never returns an error or panics into the orchestrator.
func execute(ctx context.Context, cfg *Configuration, hook *HookConfig, data *EventData) ExecutionResult {
	if !hook.Enabled {
		return ExecutionResult{
			HookName: hook.Name,
			Success:  true,
			ExitCode: 0,
			Stdout:   "Hook disabled",
		}
	}

	start := time.Now()
	failed := func(err string) ExecutionResult {
		return ExecutionResult{
			HookName:      hook.Name,
			Success:       false,
			ExitCode:      -1,
			Error:         err,
			ExecutionTime: time.Since(start),
			Blocked:       hook.Blocking,
		}
	}

	payload, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return failed("failed to serialize event data: " + err.Error())
	}

	timeout := cfg.HookTimeout(hook)
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	command := hook.Command
	if strings.HasPrefix(command, "~") {
		if home, err := os.UserHomeDir(); err == nil {
			command = filepath.Join(home, strings.TrimPrefix(command, "~"))
		}
	}

	logger.Debug().Str("hook", hook.Name).Str("command", command).Msg("executing hook")

	cmd := exec.CommandContext(cctx, "sh", "-c", command)
	cmd.Dir = data.WorkingDir
	cmd.Env = environ(EnvOverlay(data))
	cmd.Stdin = bytes.NewReader(payload)
	// Bound the post-kill wait so a grandchild holding the output pipes
	// cannot stall the orchestrator past the timeout.
	cmd.WaitDelay = time.Second

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	elapsed := time.Since(start)

	if cctx.Err() == context.DeadlineExceeded {
		logger.Warn().Str("hook", hook.Name).Dur("timeout", timeout).Msg("hook timed out")
		res := failed(fmt.Sprintf("hook execution timed out after %s", timeout))
		res.ExecutionTime = elapsed
		return res
	}

	if runErr != nil {
		var exitErr *exec.ExitError
		if !stderrors.As(runErr, &exitErr) {
			// Spawn or pipe failure, not a hook decision.
			logger.Error().Str("hook", hook.Name).Err(runErr).Msg("hook execution failed")
			res := failed(runErr.Error())
			res.ExecutionTime = elapsed
			return res
		}
	}

	exitCode := cmd.ProcessState.ExitCode()
	result := ExecutionResult{
		HookName:      hook.Name,
		Success:       exitCode == 0,
		ExitCode:      exitCode,
		Stdout:        decodeOutput(stdout.Bytes()),
		Stderr:        decodeOutput(stderr.Bytes()),
		ExecutionTime: elapsed,
		Blocked:       exitCode != 0 && hook.Blocking,
	}

	logger.Debug().
		Str("hook", hook.Name).
		Int("exit_code", exitCode).
		Dur("elapsed", elapsed).
		Bool("blocked", result.Blocked).
		Msg("hook completed")
	return result
}

// decodeOutput converts captured bytes to text, replacing invalid UTF-8.
func decodeOutput(b []byte) string {
	return strings.TrimSpace(strings.ToValidUTF8(string(b), "�"))
}
