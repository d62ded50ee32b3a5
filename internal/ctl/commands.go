// Package ctl is the jarvis-ctl command tree.
package ctl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"jarvis/internal/assistant"
	"jarvis/internal/command"
	"jarvis/internal/config"
	"jarvis/internal/history"
)

// Backend talks to the daemon and the bridge and transcribes recordings.
type Backend interface {
	Control(ctx context.Context, socket string, req assistant.ControlRequest) (assistant.ControlResponse, error)
	Bridge(ctx context.Context, socket string, action command.Action, args map[string]string) (string, error)
	Transcribe(ctx context.Context, path, model string) (string, error)
}

type options struct {
	socket       string
	bridgeSocket string
	timeout      time.Duration
}

func NewRootCmd(c Backend) *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "jarvis-ctl",
		Short:         "Control a running jarvisd",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&opts.socket, "socket", "s", config.LoadDaemon().ControlSocket, "Daemon control socket")
	root.PersistentFlags().StringVar(&opts.bridgeSocket, "bridge-socket", config.DefaultBridgeSocket(), "Bridge socket")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", 30*time.Second, "Request timeout")

	control := func(cmd *cobra.Command, req assistant.ControlRequest) (assistant.ControlResponse, error) {
		ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
		defer cancel()

		resp, err := c.Control(ctx, opts.socket, req)
		if err != nil {
			return resp, fmt.Errorf("jarvisd not running: %w", err)
		}
		if !resp.OK {
			return resp, errors.New(resp.Error)
		}
		return resp, nil
	}

	root.AddCommand(
		&cobra.Command{
			Use:   "submit <text>",
			Short: "Run a text command and print its response",
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				resp, err := control(cmd, assistant.ControlRequest{Cmd: "submit", Text: strings.Join(args, " ")})
				if err != nil {
					return err
				}
				if resp.Record != nil {
					printRecord(cmd.OutOrStdout(), *resp.Record)
				}
				return nil
			},
		},
		&cobra.Command{
			Use:   "listen",
			Short: "Start listening for voice commands",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				_, err := control(cmd, assistant.ControlRequest{Cmd: "listen"})
				return err
			},
		},
		&cobra.Command{
			Use:   "stop",
			Short: "Stop listening",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				_, err := control(cmd, assistant.ControlRequest{Cmd: "stop"})
				return err
			},
		},
		&cobra.Command{
			Use:   "speak <text>",
			Short: "Test voice feedback",
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				_, err := control(cmd, assistant.ControlRequest{Cmd: "speak", Text: strings.Join(args, " ")})
				return err
			},
		},
		&cobra.Command{
			Use:   "status",
			Short: "Show listening, speaking and bridge state",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				resp, err := control(cmd, assistant.ControlRequest{Cmd: "status"})
				if err != nil {
					return err
				}
				if resp.Status != nil {
					printStatus(cmd.OutOrStdout(), *resp.Status)
				}
				return nil
			},
		},
		newHistoryCmd(control),
		newReplayCmd(c, control),
		newBridgeCmd(c, opts),
	)
	return root
}

func newHistoryCmd(control func(*cobra.Command, assistant.ControlRequest) (assistant.ControlResponse, error)) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Print the command log, most recent first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := control(cmd, assistant.ControlRequest{Cmd: "history"})
			if err != nil {
				return err
			}
			if len(resp.Commands) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No commands yet.")
				return nil
			}
			for i, r := range resp.Commands {
				if limit > 0 && i >= limit {
					break
				}
				printRecord(cmd.OutOrStdout(), r)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Max entries to show (0 for all)")
	return cmd
}

// newReplayCmd transcribes a recorded utterance locally and submits the
// transcript as if it had been spoken.
func newReplayCmd(c Backend, control func(*cobra.Command, assistant.ControlRequest) (assistant.ControlResponse, error)) *cobra.Command {
	var model string

	cmd := &cobra.Command{
		Use:   "replay <audio-file>",
		Short: "Transcribe a recording (wav, mp3, ogg) and run it as a voice command",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if model == "" {
				return errors.New("--model or JARVIS_WHISPER_MODEL required")
			}

			text, err := c.Transcribe(cmd.Context(), args[0], model)
			if err != nil {
				return err
			}
			text = strings.TrimSpace(text)
			if text == "" {
				return errors.New("no speech recognized")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "heard: %s\n", text)

			resp, err := control(cmd, assistant.ControlRequest{Cmd: "submit", Text: text})
			if err != nil {
				return err
			}
			if resp.Record != nil {
				printRecord(cmd.OutOrStdout(), *resp.Record)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&model, "model", "m", config.LoadDaemon().WhisperModel, "Whisper model path")
	return cmd
}

// newBridgeCmd sends one action straight to the bridge, bypassing the
// daemon and the interpreter.
func newBridgeCmd(c Backend, opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "bridge <action> [key=value...]",
		Short: "Send an action directly to the bridge",
		Example: "  jarvis-ctl bridge open-application name=calculator\n" +
			"  jarvis-ctl bridge open-folder folder=downloads",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			action := command.Action(args[0])
			if !action.Valid() {
				return fmt.Errorf("unknown action: %s", args[0])
			}

			kv := make(map[string]string)
			for _, a := range args[1:] {
				k, v, ok := strings.Cut(a, "=")
				if !ok {
					return fmt.Errorf("argument %q is not key=value", a)
				}
				kv[k] = v
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()

			msg, err := c.Bridge(ctx, opts.bridgeSocket, action, kv)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), msg)
			return nil
		},
	}
}

func printRecord(w io.Writer, r history.Record) {
	fmt.Fprintf(w, "%s  %-10s  %s\n", r.CreatedAt.Local().Format(time.TimeOnly), r.Status, r.Text)
	if r.Response != "" {
		fmt.Fprintf(w, "          -> %s\n", r.Response)
	}
}

func printStatus(w io.Writer, s assistant.Snapshot) {
	bridgeState := "unavailable"
	if s.Bridge {
		bridgeState = "available"
	}
	fmt.Fprintf(w, "state:    %s\n", s.State)
	fmt.Fprintf(w, "speaking: %t\n", s.Speaking)
	fmt.Fprintf(w, "bridge:   %s\n", bridgeState)
	fmt.Fprintf(w, "voice:    %t\n", s.SpeakResponses)
}
