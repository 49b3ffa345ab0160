package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"pkt.systems/loopster/internal/appconfig"
	"pkt.systems/loopster/internal/capture"
)

// runCapture is replaced in tests.
var runCapture = capture.Run

type captureFlags struct {
	command           string
	output            string
	timeout           float64
	noMirror          bool
	raw               string
	includeInvocation bool
	inputs            []string
	env               []string
}

func newCaptureCmd(opts *rootOptions) *cobra.Command {
	var flags captureFlags
	cmd := &cobra.Command{
		Use:   "capture [--cmd CMD | -- CMD ARGS...]",
		Short: "Run a command and save a cleaned, human-readable log",
		Long: "Run a command and save a cleaned, human-readable log.\n" +
			"Terminal control sequences are removed while preserving layout.\n" +
			"The partial log is always written on timeout or error; on timeout the exit code is 124.",
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			command := flags.command
			if command == "" && len(args) > 0 {
				command = shellJoin(args)
			}
			if command == "" {
				say(out, "[loopster] capture: provide --cmd to run (no-op)")
				return nil
			}
			cfg, err := opts.load(cmd.Context())
			if err != nil {
				return err
			}
			env, err := parseEnv(flags.env)
			if err != nil {
				return err
			}

			output := flags.output
			auto := output == ""
			if auto {
				output, err = autoLogPath(cfg.LogDir)
				if err != nil {
					return err
				}
			}
			req := captureRequest(cfg, command, output)
			if cmd.Flags().Changed("timeout") {
				req.Timeout = seconds(flags.timeout)
			}
			if flags.noMirror {
				req.Mirror = false
			}
			req.RawPath = flags.raw
			req.Env = env
			req.Stdout = out
			for _, input := range flags.inputs {
				if !strings.HasSuffix(input, "\n") {
					input += "\n"
				}
				req.Inputs = append(req.Inputs, []byte(input))
			}

			banner := fmt.Sprintf("[loopster] capturing: %s\n[loopster] log: %s", command, output)
			say(out, "%s", banner)
			if flags.includeInvocation || cfg.Capture.IncludeInvocation {
				req.Header = invocationLine(cmd, flags, command, output) + "\n" + banner + "\n"
			}

			res, err := runCapture(cmd.Context(), req)
			if err != nil {
				return err
			}
			if auto {
				say(out, "[loopster] session saved to: %s", output)
			}
			code := processExitCode(res.ExitCode)
			say(out, "[loopster] finished with exit code %d", code)
			if code != 0 {
				return &exitError{code: code}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&flags.command, "cmd", "", "command to run through the configured shell")
	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "cleaned log path (alias --out)")
	cmd.Flags().Float64Var(&flags.timeout, "timeout", 0, "timeout in seconds; on timeout the partial log is saved and 124 is returned")
	cmd.Flags().BoolVar(&flags.noMirror, "no-mirror", false, "do not mirror child output to this terminal")
	cmd.Flags().StringVar(&flags.raw, "raw", "", "optional path for the raw, uncleaned log")
	cmd.Flags().BoolVar(&flags.includeInvocation, "include-invocation", false, "prefix the cleaned log with the invocation and banner lines")
	cmd.Flags().StringArrayVar(&flags.inputs, "input", nil, "line of scripted input (repeatable, newline appended)")
	cmd.Flags().StringArrayVar(&flags.env, "env", nil, "environment override KEY=VALUE (repeatable)")
	cmd.Flags().SetNormalizeFunc(outputAlias)
	return cmd
}

func outputAlias(_ *pflag.FlagSet, name string) pflag.NormalizedName {
	if name == "out" {
		name = "output"
	}
	return pflag.NormalizedName(name)
}

// captureRequest maps the capture section of cfg onto a request.
func captureRequest(cfg appconfig.Config, command, output string) capture.Request {
	return capture.Request{
		Command:      command,
		OutputPath:   output,
		Timeout:      seconds(cfg.Capture.TimeoutSeconds),
		Mirror:       cfg.Capture.Mirror,
		Shell:        cfg.Capture.Shell,
		ShellArgs:    cfg.Capture.ShellArgs,
		PollInterval: time.Duration(cfg.Capture.PollIntervalMS) * time.Millisecond,
		ChunkSize:    cfg.Capture.ChunkSize,
		ReapGrace:    time.Duration(cfg.Capture.ReapGraceMS) * time.Millisecond,
	}
}

// invocationLine reconstructs the explicitly given capture flags.
func invocationLine(cmd *cobra.Command, flags captureFlags, command, output string) string {
	parts := []string{"loopster", "capture", "--cmd", command}
	if flags.output != "" {
		parts = append(parts, "--out", output)
	}
	if flags.raw != "" {
		parts = append(parts, "--raw", flags.raw)
	}
	if cmd.Flags().Changed("timeout") {
		parts = append(parts, "--timeout", strconv.FormatFloat(flags.timeout, 'f', -1, 64))
	}
	if flags.noMirror {
		parts = append(parts, "--no-mirror")
	}
	parts = append(parts, "--include-invocation")
	return strings.Join(parts, " ")
}

func autoLogPath(logDir string) (string, error) {
	if logDir != "" {
		if err := os.MkdirAll(logDir, 0o755); err != nil {
			return "", err
		}
		name := fmt.Sprintf("loopster_%s_%s.log", time.Now().Format("20060102_150405"), uuid.NewString()[:8])
		return filepath.Join(logDir, name), nil
	}
	f, err := os.CreateTemp("", "loopster_*.log")
	if err != nil {
		return "", err
	}
	name := f.Name()
	if err := f.Close(); err != nil {
		return "", err
	}
	return name, nil
}

func parseEnv(entries []string) (map[string]string, error) {
	if len(entries) == 0 {
		return nil, nil
	}
	env := make(map[string]string, len(entries))
	for _, entry := range entries {
		key, value, ok := strings.Cut(entry, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --env %q; expected KEY=VALUE", entry)
		}
		env[key] = value
	}
	return env, nil
}

func seconds(value float64) time.Duration {
	if value <= 0 {
		return 0
	}
	return time.Duration(value * float64(time.Second))
}

// processExitCode folds a signal result (-N) into the shell convention 128+N.
func processExitCode(code int) int {
	if code < 0 {
		return 128 - code
	}
	return code
}

// shellJoin quotes args so the shell sees them as separate words.
func shellJoin(args []string) string {
	quoted := make([]string, len(args))
	for i, arg := range args {
		quoted[i] = shellQuote(arg)
	}
	return strings.Join(quoted, " ")
}

func shellQuote(arg string) string {
	if arg == "" {
		return "''"
	}
	safe := true
	for _, r := range arg {
		if !(r == '-' || r == '_' || r == '.' || r == '/' || r == '=' || r == ':' || r == ',' || r == '+' || r == '@' ||
			(r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')) {
			safe = false
			break
		}
	}
	if safe {
		return arg
	}
	return "'" + strings.ReplaceAll(arg, "'", `'\''`) + "'"
}
