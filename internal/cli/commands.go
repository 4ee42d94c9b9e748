package cli

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newSendCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "send <command> [args...]",
		Short: "Send one command on a fresh connection",
		Long: `Send joins its arguments into a single command, sends it on a new
connection and prints the reply. Sessions do not survive between send
invocations; use exec or shell to log in and act in one session.`,
		Example: `  wishlist send register alice secret`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSession(cmd, []string{strings.Join(args, " ")})
		},
	}
}

func newExecCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "exec <command> [command...]",
		Short:   "Send several commands on one connection",
		Example: `  wishlist exec "login alice secret" "post-wish bob bicycle" "get-wish"`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSession(cmd, args)
		},
	}
}

func newShellCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Read commands from stdin and send them on one connection",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := Dial(cfg.Server, cfg.Timeout)
			if err != nil {
				return err
			}
			defer func() { _ = c.Close() }()

			out := NewOutput(cfg.Output, cmd.OutOrStdout())
			scanner := bufio.NewScanner(cmd.InOrStdin())
			for scanner.Scan() {
				line := strings.TrimSpace(scanner.Text())
				if line == "" {
					continue
				}
				reply, err := c.Send(line)
				if err != nil {
					return err
				}
				out.Print(reply)
				if reply.Disconnected() {
					return nil
				}
			}
			return scanner.Err()
		},
	}
}

// runSession sends commands in order on one connection and prints each
// reply. It stops early if the server ends the session.
func runSession(cmd *cobra.Command, commands []string) error {
	c, err := Dial(cfg.Server, cfg.Timeout)
	if err != nil {
		return err
	}
	defer func() { _ = c.Close() }()

	out := NewOutput(cfg.Output, cmd.OutOrStdout())
	for i, command := range commands {
		reply, err := c.Send(command)
		if err != nil {
			return err
		}
		out.Print(reply)
		if reply.Disconnected() && i < len(commands)-1 {
			return fmt.Errorf("server closed the session; %d command(s) not sent", len(commands)-1-i)
		}
	}
	return nil
}
