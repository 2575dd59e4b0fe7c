package transport

import (
	"context"
	"fmt"
	"io"
	"os/exec"
)

// process wires a subprocess's stdin and stdout together into a
// single ReadWriteCloser, for the exec:/bridge: address schemes.
type process struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout io.ReadCloser
}

func dialProcess(ctx context.Context, a Address) (ReadWriteCloser, error) {
	var cmd *exec.Cmd
	switch a.Kind {
	case KindExec:
		cmd = exec.CommandContext(ctx, a.Argv[0], a.Argv[1:]...)
	case KindBridge:
		cmd = exec.CommandContext(ctx, "/bin/sh", "-c", a.Command)
	default:
		return nil, fmt.Errorf("transport: %s is not a process address", a.Kind)
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("transport: stdin pipe for %s: %w", a, err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("transport: stdout pipe for %s: %w", a, err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("transport: starting %s: %w", a, err)
	}

	return &process{cmd: cmd, stdin: stdin, stdout: stdout}, nil
}

func (p *process) Read(b []byte) (int, error)  { return p.stdout.Read(b) }
func (p *process) Write(b []byte) (int, error) { return p.stdin.Write(b) }

func (p *process) Close() error {
	stdinErr := p.stdin.Close()
	stdoutErr := p.stdout.Close()
	waitErr := p.cmd.Wait()
	if stdinErr != nil {
		return stdinErr
	}
	if stdoutErr != nil {
		return stdoutErr
	}
	return waitErr
}
