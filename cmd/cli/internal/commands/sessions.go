package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/wolfeidau/contactgain/internal/lifecycle"
	"github.com/wolfeidau/contactgain/internal/store"
)

type ListCmd struct{}

func (l *ListCmd) Run(ctx context.Context, globals *Globals) error {
	cl, err := globals.newClient()
	if err != nil {
		return err
	}

	sessions, err := cl.ListSessions(ctx)
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}

	out := globals.out()
	if len(sessions) == 0 {
		fmt.Fprintln(out, "No sessions found.")
		return nil
	}

	// Print header
	fmt.Fprintf(out, "%-10s %-30s %-8s %-9s %-20s\n", "ID", "Name", "Status", "Contacts", "Created At")
	fmt.Fprintln(out, strings.Repeat("─", 80))

	for _, s := range sessions {
		fmt.Fprintf(out, "%-10s %-30s %-8s %-9d %-20s\n",
			s.SessionID, truncate(s.Name, 30), s.Status, s.ContactCount, formatTime(s.CreatedAt))
	}

	return nil
}

type ShowCmd struct {
	ID string `arg:"" help:"Session ID"`
}

func (s *ShowCmd) Run(ctx context.Context, globals *Globals) error {
	cl, err := globals.newClient()
	if err != nil {
		return err
	}

	session, err := cl.GetSession(ctx, s.ID)
	if err != nil {
		if errors.Is(err, store.ErrSessionNotFound) {
			return fmt.Errorf("session %s not found", s.ID)
		}
		return fmt.Errorf("failed to get session: %w", err)
	}

	out := globals.out()
	fmt.Fprintf(out, "Session:    %s (%s)\n", session.Name, session.SessionID)
	fmt.Fprintf(out, "WhatsApp:   %s\n", session.WhatsAppLink)
	fmt.Fprintf(out, "Phase:      %s\n", session.Phase)
	fmt.Fprintf(out, "Remaining:  %s\n", session.TimeRemaining)
	if session.Phase == lifecycle.Expired {
		fmt.Fprintf(out, "Download window closes in %s\n", session.GraceRemaining)
	}
	fmt.Fprintf(out, "Contacts:   %d\n", session.ContactCount)

	if session.IsCreator {
		fmt.Fprintf(out, "Downloads:  %d\n", session.DownloadCount)
		for i, c := range session.Contacts {
			fmt.Fprintf(out, "  %3d. %-30s %s\n", i+1, truncate(c.Name, 30), c.Phone)
		}
	}

	return nil
}

type HideCmd struct {
	ID string `arg:"" help:"Session ID"`
}

func (h *HideCmd) Run(ctx context.Context, globals *Globals) error {
	cl, err := globals.newClient()
	if err != nil {
		return err
	}

	if err := cl.HideSession(ctx, h.ID); err != nil {
		if errors.Is(err, store.ErrSessionNotFound) {
			return fmt.Errorf("session %s not found or not created by you", h.ID)
		}
		return fmt.Errorf("failed to hide session: %w", err)
	}

	fmt.Fprintf(globals.out(), "Session %s hidden\n", h.ID)
	return nil
}

type DurationsCmd struct{}

func (d *DurationsCmd) Run(ctx context.Context, globals *Globals) error {
	cl, err := globals.newClient()
	if err != nil {
		return err
	}

	list, err := cl.ListDurations(ctx)
	if err != nil {
		return fmt.Errorf("failed to list durations: %w", err)
	}

	out := globals.out()
	for _, d := range list.Durations {
		marker := ""
		if d.Value == list.Default {
			marker = " (default)"
		}
		fmt.Fprintf(out, "%-5s %s%s\n", d.Value, d.Label, marker)
	}

	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
