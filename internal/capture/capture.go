// Package capture runs a shell command, records its combined output under a
// wall-clock deadline and writes a cleaned transcript artifact.
package capture

import (
	"context"
	"errors"
	"io"
	"os"
	"time"

	"github.com/google/uuid"

	"pkt.systems/loopster/internal/artifact"
	"pkt.systems/loopster/internal/logx"
)

// TimeoutExitCode is returned when the deadline expired before the child exited.
const TimeoutExitCode = 124

const (
	defaultShell        = "bash"
	defaultPollInterval = 100 * time.Millisecond
	defaultChunkSize    = 4096
	defaultReapGrace    = time.Second
)

// Request describes one capture.
type Request struct {
	Command    string
	OutputPath string
	// RawPath, when set, receives the decoded stream verbatim.
	RawPath string
	// Inputs are written to stdin in order; stdin is closed afterwards.
	Inputs  [][]byte
	Timeout time.Duration
	Env     map[string]string
	Mirror  bool
	// Stdout receives mirrored chunks. Defaults to os.Stdout.
	Stdout io.Writer
	// Header is prepended to the cleaned artifact.
	Header string

	Shell        string
	ShellArgs    []string
	PollInterval time.Duration
	ChunkSize    int
	ReapGrace    time.Duration
}

// Result reports the outcome of a capture.
type Result struct {
	SessionID string
	// ExitCode is TimeoutExitCode on timeout, the negated signal number when
	// the child was killed by a signal, else the child's exit status.
	ExitCode int
	TimedOut bool
	Bytes    int
	Duration time.Duration
}

func (r Request) withDefaults() Request {
	if r.Shell == "" {
		r.Shell = defaultShell
	}
	if r.ShellArgs == nil {
		r.ShellArgs = []string{"-lc"}
	}
	if r.PollInterval <= 0 {
		r.PollInterval = defaultPollInterval
	}
	if r.ChunkSize <= 0 {
		r.ChunkSize = defaultChunkSize
	}
	if r.ReapGrace <= 0 {
		r.ReapGrace = defaultReapGrace
	}
	if r.Stdout == nil {
		r.Stdout = os.Stdout
	}
	return r
}

// Run spawns req.Command, captures its output and writes the artifacts. The
// returned error covers spawn failures, artifact directory creation and the
// cleaned artifact write; the Result is populated in the last case.
func Run(ctx context.Context, req Request) (Result, error) {
	if req.Command == "" {
		return Result{}, errors.New("capture command is required")
	}
	if req.OutputPath == "" {
		return Result{}, errors.New("capture output path is required")
	}
	req = req.withDefaults()

	if err := artifact.EnsureDir(req.OutputPath); err != nil {
		return Result{}, err
	}
	if req.RawPath != "" {
		if err := artifact.EnsureDir(req.RawPath); err != nil {
			return Result{}, err
		}
	}

	id := uuid.NewString()
	ctx = logx.ContextWithSession(ctx, id)
	log := logx.WithCommand(logx.Ctx(ctx), req.Command)

	s := newSession(id, req, log)
	if err := s.start(); err != nil {
		return Result{SessionID: id}, err
	}
	s.pump()
	res, err := s.finish()
	s.reap()
	res.ExitCode = s.exitCode()
	if log != nil {
		log.Info(
			"capture finished",
			"exit_code", res.ExitCode,
			"timed_out", res.TimedOut,
			"bytes", res.Bytes,
			"duration_ms", res.Duration.Milliseconds(),
		)
	}
	return res, err
}
