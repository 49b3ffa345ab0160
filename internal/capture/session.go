package capture

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
	"pkt.systems/pslog"
)

type session struct {
	id       string
	req      Request
	log      pslog.Logger
	cmd      *exec.Cmd
	out      *os.File
	started  time.Time
	deadline time.Time

	raw      []byte
	timedOut bool

	done    chan struct{}
	waitErr error

	mirrorFailed bool
}

func newSession(id string, req Request, log pslog.Logger) *session {
	return &session{
		id:   id,
		req:  req,
		log:  log,
		done: make(chan struct{}),
	}
}

func (s *session) start() error {
	args := append(append([]string{}, s.req.ShellArgs...), s.req.Command)
	cmd := exec.Command(s.req.Shell, args...)
	cmd.Env = mergeEnv(os.Environ(), s.req.Env)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	r, w, err := os.Pipe()
	if err != nil {
		return fmt.Errorf("capture pipe: %w", err)
	}
	cmd.Stdout = w
	cmd.Stderr = w
	stdin, err := cmd.StdinPipe()
	if err != nil {
		_ = r.Close()
		_ = w.Close()
		return fmt.Errorf("capture stdin: %w", err)
	}

	if s.log != nil {
		s.log.Info(
			"capture start",
			"shell", s.req.Shell,
			"timeout_ms", s.req.Timeout.Milliseconds(),
			"inputs", len(s.req.Inputs),
			"env_extra", len(s.req.Env),
			"mirror", s.req.Mirror,
		)
	}
	if err := cmd.Start(); err != nil {
		_ = r.Close()
		_ = w.Close()
		if s.log != nil {
			s.log.Error("capture start failed", "err", err)
		}
		return fmt.Errorf("capture start: %w", err)
	}
	// The child holds its own copy of the write end; ours must go so the
	// read end sees EOF once every writer is gone.
	_ = w.Close()

	s.cmd = cmd
	s.out = r
	s.started = time.Now()
	if s.req.Timeout > 0 {
		s.deadline = s.started.Add(s.req.Timeout)
	}
	if s.log != nil {
		s.log.Debug("capture started", "pid", cmd.Process.Pid)
	}

	go func() {
		for _, chunk := range s.req.Inputs {
			if _, err := stdin.Write(chunk); err != nil {
				break
			}
		}
		_ = stdin.Close()
	}()
	go func() {
		s.waitErr = cmd.Wait()
		close(s.done)
	}()
	return nil
}

func (s *session) exited() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// pump reads the combined output until end of stream, the deadline, or a
// quiet poll after the child has exited.
func (s *session) pump() {
	fd := int32(s.out.Fd())
	buf := make([]byte, s.req.ChunkSize)
	for {
		wait := s.req.PollInterval
		if !s.deadline.IsZero() {
			left := time.Until(s.deadline)
			if left <= 0 {
				s.timedOut = true
				s.signal(unix.SIGTERM)
				if s.log != nil {
					s.log.Warn("capture timed out", "timeout_ms", s.req.Timeout.Milliseconds(), "bytes", len(s.raw))
				}
				return
			}
			if left < wait {
				wait = left
			}
		}

		fds := []unix.PollFd{{Fd: fd, Events: unix.POLLIN}}
		n, err := unix.Poll(fds, int(wait/time.Millisecond))
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			if s.log != nil {
				s.log.Error("capture poll failed", "err", err)
			}
			return
		}
		if n == 0 {
			if s.exited() {
				return
			}
			continue
		}
		revents := fds[0].Revents
		if revents&(unix.POLLIN|unix.POLLHUP) == 0 {
			// POLLERR or POLLNVAL
			return
		}
		read, err := s.out.Read(buf)
		if read > 0 {
			s.append(buf[:read])
		}
		if read == 0 || err != nil {
			if err != nil && !errors.Is(err, io.EOF) && s.log != nil {
				s.log.Warn("capture read failed", "err", err)
			}
			return
		}
	}
}

func (s *session) append(chunk []byte) {
	s.raw = append(s.raw, chunk...)
	if !s.req.Mirror {
		return
	}
	if _, err := s.req.Stdout.Write(chunk); err != nil && !s.mirrorFailed {
		s.mirrorFailed = true
		if s.log != nil {
			s.log.Warn("capture mirror failed", "err", err)
		}
	}
}

func (s *session) signal(sig unix.Signal) {
	if s.cmd == nil || s.cmd.Process == nil || s.exited() {
		return
	}
	if err := unix.Kill(-s.cmd.Process.Pid, sig); err != nil && s.log != nil {
		s.log.Debug("capture signal failed", "signal", sig.String(), "err", err)
	}
}

// reap waits for the child, escalating to SIGKILL once.
func (s *session) reap() {
	defer func() { _ = s.out.Close() }()
	if s.waitFor(s.req.ReapGrace) {
		return
	}
	if s.log != nil {
		s.log.Warn("capture reap timed out, killing", "grace_ms", s.req.ReapGrace.Milliseconds())
	}
	s.signal(unix.SIGKILL)
	if !s.waitFor(s.req.ReapGrace) && s.log != nil {
		s.log.Error("capture reap failed", "pid", s.cmd.Process.Pid)
	}
}

func (s *session) waitFor(grace time.Duration) bool {
	timer := time.NewTimer(grace)
	defer timer.Stop()
	select {
	case <-s.done:
		return true
	case <-timer.C:
		return false
	}
}

func (s *session) exitCode() int {
	if s.timedOut {
		return TimeoutExitCode
	}
	if !s.exited() {
		return -1
	}
	if s.waitErr == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(s.waitErr, &exitErr) {
		if status, ok := exitErr.Sys().(syscall.WaitStatus); ok && status.Signaled() {
			return -int(status.Signal())
		}
		return exitErr.ExitCode()
	}
	return -1
}

// mergeEnv overlays overrides on base, replacing existing keys.
func mergeEnv(base []string, overrides map[string]string) []string {
	if len(overrides) == 0 {
		return base
	}
	env := make([]string, 0, len(base)+len(overrides))
	for _, kv := range base {
		key, _, _ := strings.Cut(kv, "=")
		if _, ok := overrides[key]; ok {
			continue
		}
		env = append(env, kv)
	}
	keys := make([]string, 0, len(overrides))
	for key := range overrides {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		env = append(env, key+"="+overrides[key])
	}
	return env
}
