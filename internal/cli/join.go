package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	boardnet "PeerBoard/internal/net"
	"PeerBoard/internal/session"
	"PeerBoard/internal/ui"
)

var joinCmd = &cobra.Command{
	Use:   "join <code|link>",
	Short: "Join a board by its six-digit code or peerboard:// link",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runJoin(cmd.Context(), args[0])
	},
}

func runJoin(ctx context.Context, target string) error {
	board := ui.NewBoard()
	sess, err := session.Join(ctx, cfg.Session(), target, board)
	if err != nil {
		return explainJoin(target, err)
	}
	return runWindow(sess, board)
}

func explainJoin(target string, err error) error {
	switch {
	case errors.Is(err, boardnet.ErrSessionNotFound):
		return fmt.Errorf("no session %s found on this network; ask the host for the full link", target)
	case errors.Is(err, boardnet.ErrUnknownSession):
		return fmt.Errorf("the host at that address is not running session %s anymore", target)
	}
	return err
}
