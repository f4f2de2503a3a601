package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"fyne.io/fyne/v2/app"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"PeerBoard/internal/config"
	"PeerBoard/internal/export"
	"PeerBoard/internal/render"
	"PeerBoard/internal/session"
	"PeerBoard/internal/share"
	"PeerBoard/internal/state"
	"PeerBoard/internal/ui"
)

// Headless hosts have no window to size the board, so exports use this.
const (
	headlessWidth  = 1600
	headlessHeight = 1000
)

var hostCmd = &cobra.Command{
	Use:   "host",
	Short: "Host a new board",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runHost(cmd.Context())
	},
}

func init() {
	hostCmd.Flags().Bool("headless", false, "relay only, without a window; the board is exported on exit")
	cobra.CheckErr(viper.BindPFlag(config.HeadlessKey, hostCmd.Flags().Lookup("headless")))
}

func runHost(ctx context.Context) error {
	if cfg.Headless {
		return runHeadless(ctx)
	}
	board := ui.NewBoard()
	sess, err := session.Host(ctx, cfg.Session(), board)
	if err != nil {
		return err
	}
	return runWindow(sess, board)
}

func runWindow(sess *session.Session, board *ui.Board) error {
	a := app.New()
	ui.NewWindow(a, sess, board, cfg.ExportDir).Show()
	a.Run()
	sess.Leave()
	return nil
}

// runHeadless keeps a host session alive until it is interrupted, logging
// notices as they come, then exports the board.
func runHeadless(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	rec := render.NewRecorder(headlessWidth, headlessHeight)
	sess, err := session.Host(ctx, cfg.Session(), rec)
	if err != nil {
		return err
	}
	printInvite(sess.Link())

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		for u := range sess.Updates() {
			switch u.Kind {
			case session.UpdateNotice:
				log.Info().Str("from", u.From).Msg(u.Text)
			case session.UpdateRoster:
				log.Info().Int("participants", len(u.Roster)).Msg("roster changed")
			}
		}
		return nil
	})
	g.Go(func() error {
		select {
		case <-ctx.Done():
		case <-sess.Done():
		}
		sess.Leave()
		ops, err := sess.History()
		if err != nil {
			return err
		}
		return exportHeadless(sess.ID(), ops, rec)
	})
	return g.Wait()
}

func exportHeadless(id string, ops []state.Operation, rec *render.Recorder) error {
	if len(ops) == 0 {
		log.Info().Msg("board is empty, nothing to export")
		return nil
	}
	path, err := export.Save(cfg.ExportDir, id, ops, headlessWidth, headlessHeight)
	if err != nil {
		return err
	}
	log.Info().Str("path", path).Int("segments", len(rec.Segments())).Msg("board exported")
	return nil
}

func printInvite(l share.Link) {
	fmt.Printf("Session code: %s\nLink:         %s\n\n", l.SessionID, l.String())
	if qr, err := share.QRText(l); err == nil {
		fmt.Println(qr)
	}
}
