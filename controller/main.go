package main

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"inputrepeater/internal/types"
)

const defaultServer = "ws://127.0.0.1:8080/ws"

func main() {
	rootCmd := &cobra.Command{
		Use:           "controller",
		Short:         "Drive a running repeater from the command line",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().String("server", defaultServer, "Repeater websocket endpoint")
	rootCmd.PersistentFlags().Duration("timeout", 5*time.Second, "Dial and reply timeout")
	rootCmd.PersistentFlags().Bool("follow", false, "Keep printing notices after the reply")

	rootCmd.AddCommand(
		actionCmd("toggle", "Start or stop recording", types.ActionToggleRecording),
		actionCmd("play", "Replay the last recording", types.ActionStartPlayback),
		actionCmd("stop", "Stop a running playback", types.ActionStopPlayback),
		actionCmd("status", "Print the engine status", types.ActionStatus),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func actionCmd(use, short, action string) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			server, _ := cmd.Flags().GetString("server")
			timeout, _ := cmd.Flags().GetDuration("timeout")
			follow, _ := cmd.Flags().GetBool("follow")
			return send(cmd, server, timeout, follow, action)
		},
	}
}

func send(cmd *cobra.Command, server string, timeout time.Duration, follow bool, action string) error {
	u, err := url.Parse(server)
	if err != nil {
		return errors.Wrap(err, "parse server url")
	}
	q := u.Query()
	if q.Get("clientId") == "" {
		q.Set("clientId", "controller-"+uuid.NewString())
	}
	u.RawQuery = q.Encode()

	dialer := *websocket.DefaultDialer
	dialer.HandshakeTimeout = timeout
	ws, _, err := dialer.Dial(u.String(), nil)
	if err != nil {
		return errors.Wrapf(err, "dial %s", server)
	}
	defer ws.Close()

	if err := ws.WriteJSON(types.Command{Action: action}); err != nil {
		return errors.Wrap(err, "send command")
	}

	out := cmd.OutOrStdout()
	for {
		if !follow {
			_ = ws.SetReadDeadline(time.Now().Add(timeout))
		}
		var msg types.Message
		if err := ws.ReadJSON(&msg); err != nil {
			return errors.Wrap(err, "read reply")
		}
		switch msg.Type {
		case types.MessageError:
			return errors.Errorf("%s refused: %s", action, msg.Error)
		case types.MessageNotice:
			if msg.Notice == nil {
				continue
			}
			fmt.Fprintf(out, "notice: %s (%s)\n", msg.Notice.Message, msg.Notice.Kind)
			continue
		case types.MessageStatus:
			b, _ := json.MarshalIndent(msg.Status, "", "  ")
			fmt.Fprintln(out, string(b))
		}
		if !follow {
			return nil
		}
	}
}
