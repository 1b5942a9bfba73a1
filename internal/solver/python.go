package solver

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/andresmejia3/eigenfaces/internal/linalg"
	"github.com/andresmejia3/eigenfaces/internal/types"
	"github.com/andresmejia3/eigenfaces/internal/utils"
)

const megabyte = 1024 * 1024

// Defaults for the subprocess backend.
const (
	DefaultInterpreter = "python3"
	DefaultScript      = "python/eigvals.py"
	DefaultTimeout     = 5 * time.Minute
	DefaultMaxOutput   = 256 * megabyte
)

// Python runs an external eigen solver process. The matrix is written as a JSON
// array of arrays to a temp file whose path is passed as the last argument; the
// process must print a single JSON document on stdout (see ParseOutput).
type Python struct {
	Command   string        // executable, defaults to python3
	Args      []string      // arguments before the matrix path, defaults to the bundled script
	Env       []string      // extra environment entries
	Timeout   time.Duration // 0 means DefaultTimeout
	MaxOutput int           // stdout cap in bytes; 0 means DefaultMaxOutput
	TempDir   string        // where the matrix file is written, "" for os.TempDir
	Logger    *zerolog.Logger
}

// NewPython returns a Python backend running script with the default interpreter.
func NewPython(script string) *Python {
	if script == "" {
		script = DefaultScript
	}
	return &Python{Command: DefaultInterpreter, Args: []string{script}}
}

const pythonBackend = "python"

// Solve implements Solver.
func (p *Python) Solve(ctx context.Context, m linalg.Matrix) (*types.EigenResult, error) {
	if err := requireSquare(m); err != nil {
		return nil, err
	}
	log := p.logger()

	path, err := p.writeMatrix(m)
	if err != nil {
		return nil, newError(pythonBackend, "cannot write matrix file", err)
	}
	defer os.Remove(path)

	timeout := p.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	command := p.Command
	if command == "" {
		command = DefaultInterpreter
	}
	args := append(append([]string(nil), p.Args...), path)
	cmd := utils.NewSafeCommand(ctx, command, args...)
	if len(p.Env) > 0 {
		cmd.Env = append(os.Environ(), p.Env...)
	}
	stdout := &limitedBuffer{max: p.maxOutput()}
	cmd.Stdout = stdout

	log.Debug().Str("command", command).Strs("args", args).Int("dim", m.Rows()).Msg("starting eigen solver")
	start := time.Now()
	runErr := cmd.Run()

	if runErr != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			reason := "cancelled"
			if errors.Is(ctxErr, context.DeadlineExceeded) {
				reason = fmt.Sprintf("timed out after %s", timeout)
			}
			e := newError(pythonBackend, reason, ctxErr)
			e.Stderr = cmd.StderrText()
			return nil, e
		}
		e := newError(pythonBackend, "process failed", runErr)
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			e.ExitCode = exitErr.ExitCode()
		}
		e.Output = stdout.String()
		e.Stderr = cmd.StderrText()
		return nil, e
	}
	if stdout.overflow {
		e := newError(pythonBackend, fmt.Sprintf("output exceeds %d bytes", stdout.max), nil)
		e.Stderr = cmd.StderrText()
		return nil, e
	}

	res, err := ParseOutput(pythonBackend, stdout.Bytes())
	if err != nil {
		var se *SolverError
		if errors.As(err, &se) {
			se.Stderr = cmd.StderrText()
		}
		return nil, err
	}
	if err := Validate(pythonBackend, res, m.Rows()); err != nil {
		return nil, err
	}
	log.Debug().Dur("elapsed", time.Since(start)).Int("eigenpairs", res.Len()).Msg("eigen solver finished")
	return res, nil
}

func (p *Python) writeMatrix(m linalg.Matrix) (string, error) {
	f, err := os.CreateTemp(p.TempDir, "covariance-*.json")
	if err != nil {
		return "", err
	}
	w := bufio.NewWriterSize(f, megabyte)
	if err := json.NewEncoder(w).Encode(m); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", err
	}
	if err := w.Flush(); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}

func (p *Python) maxOutput() int {
	if p.MaxOutput > 0 {
		return p.MaxOutput
	}
	return DefaultMaxOutput
}

func (p *Python) logger() *zerolog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	nop := zerolog.Nop()
	return &nop
}

// limitedBuffer keeps at most max bytes and silently drops the rest, so the
// child never blocks on a full pipe. overflow records that data was dropped.
type limitedBuffer struct {
	buf      []byte
	max      int
	overflow bool
}

func (b *limitedBuffer) Write(p []byte) (int, error) {
	room := b.max - len(b.buf)
	if room <= 0 {
		if len(p) > 0 {
			b.overflow = true
		}
		return len(p), nil
	}
	if len(p) > room {
		b.buf = append(b.buf, p[:room]...)
		b.overflow = true
		return len(p), nil
	}
	b.buf = append(b.buf, p...)
	return len(p), nil
}

func (b *limitedBuffer) Bytes() []byte  { return b.buf }
func (b *limitedBuffer) String() string { return string(b.buf) }
