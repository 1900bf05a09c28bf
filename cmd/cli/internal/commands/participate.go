package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/contactgain/internal/api"
	"github.com/wolfeidau/contactgain/internal/client"
	"github.com/wolfeidau/contactgain/internal/store"
)

type JoinCmd struct {
	ID    string `arg:"" help:"Session ID"`
	Name  string `help:"Your display name" required:""`
	Phone string `help:"Your phone number in international format, e.g. +233241234567" required:""`
}

func (j *JoinCmd) Run(ctx context.Context, globals *Globals) error {
	cl, err := globals.newClient()
	if err != nil {
		return err
	}

	contact, err := cl.AddContact(ctx, j.ID, api.AddContactRequest{Name: j.Name, Phone: j.Phone})
	if err != nil {
		switch {
		case errors.Is(err, store.ErrSessionNotFound):
			return fmt.Errorf("session %s not found", j.ID)
		case errors.Is(err, client.ErrSessionExpired):
			return fmt.Errorf("session %s has expired and no longer accepts contacts", j.ID)
		case errors.Is(err, store.ErrDuplicateName):
			return fmt.Errorf("the name %q is already taken in this session", j.Name)
		case errors.Is(err, store.ErrDuplicatePhone):
			return fmt.Errorf("the phone number %s has already joined this session", j.Phone)
		}
		return fmt.Errorf("failed to join session: %w", err)
	}

	out := globals.out()
	fmt.Fprintf(out, "Joined session %s as %s (%s)\n", j.ID, contact.Name, contact.Phone)

	session, err := cl.GetSession(ctx, j.ID)
	if err != nil {
		log.Warn().Err(err).Str("session", j.ID).Msg("failed to fetch WhatsApp group link")
		return nil
	}
	fmt.Fprintf(out, "Join the WhatsApp group: %s\n", session.WhatsAppLink)

	return nil
}

type DownloadCmd struct {
	ID  string `arg:"" help:"Session ID"`
	Out string `help:"Directory to write the VCF file to" default:"." type:"path"`
}

func (d *DownloadCmd) Run(ctx context.Context, globals *Globals) error {
	cl, err := globals.newClient()
	if err != nil {
		return err
	}

	file, err := cl.Download(ctx, d.ID)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrSessionNotFound):
			return fmt.Errorf("session %s not found", d.ID)
		case errors.Is(err, client.ErrSessionActive):
			return fmt.Errorf("session %s is still active, contacts can be downloaded once it expires", d.ID)
		case errors.Is(err, client.ErrSessionExpired):
			return fmt.Errorf("the download window for session %s has closed", d.ID)
		case errors.Is(err, client.ErrNoContacts):
			return fmt.Errorf("session %s has no contacts to download", d.ID)
		}
		return fmt.Errorf("failed to download contacts: %w", err)
	}

	if err := os.MkdirAll(d.Out, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	path := filepath.Join(d.Out, filepath.Base(file.Filename))
	// #nosec G306 - contact cards are meant to be imported by other apps
	if err := os.WriteFile(path, file.Body, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	fmt.Fprintf(globals.out(), "Saved %s (download #%d)\n", path, file.DownloadCount)
	return nil
}
