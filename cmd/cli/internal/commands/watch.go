package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/wolfeidau/contactgain/internal/lifecycle"
)

type WatchCmd struct {
	ID       string        `arg:"" help:"Session ID"`
	Interval time.Duration `help:"Refresh interval" default:"1s"`
}

func (w *WatchCmd) Run(ctx context.Context, globals *Globals) error {
	cl, err := globals.newClient()
	if err != nil {
		return err
	}

	session, err := cl.GetSession(ctx, w.ID)
	if err != nil {
		return fmt.Errorf("failed to get session: %w", err)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := globals.out()
	fmt.Fprintf(out, "Watching %s (%s), press Ctrl+C to stop...\n", session.Name, session.SessionID)

	err = lifecycle.Watch(ctx, lifecycle.SystemClock{}, session.ExpiresAt, w.Interval, func(tick lifecycle.Tick) {
		fmt.Fprintln(out, formatTick(tick))
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func formatTick(tick lifecycle.Tick) string {
	switch tick.Phase {
	case lifecycle.Active:
		return fmt.Sprintf("[%s] Active, ends in %s", tick.Now.Format("15:04:05"), tick.Remaining)
	case lifecycle.Expired:
		return fmt.Sprintf("[%s] Expired, download window closes in %s", tick.Now.Format("15:04:05"), tick.GraceRemaining)
	default:
		return fmt.Sprintf("[%s] Download window closed", tick.Now.Format("15:04:05"))
	}
}
