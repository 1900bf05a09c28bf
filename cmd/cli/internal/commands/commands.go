package commands

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/wolfeidau/contactgain/cmd/cli/internal/identity"
	"github.com/wolfeidau/contactgain/internal/client"
)

type Globals struct {
	Debug   bool
	Version string
	Server  string
	Home    string

	// Stdout receives command output, os.Stdout when nil.
	Stdout io.Writer
}

func (g *Globals) out() io.Writer {
	if g.Stdout == nil {
		return os.Stdout
	}
	return g.Stdout
}

// newClient builds an API client carrying the local creator identity.
func (g *Globals) newClient() (*client.Client, error) {
	store, err := identity.NewStore(g.Home)
	if err != nil {
		return nil, err
	}

	id, err := store.LoadOrCreate()
	if err != nil {
		return nil, fmt.Errorf("failed to load identity: %w", err)
	}

	config := client.DefaultConfig()
	config.ServerURL = g.Server
	config.CreatorID = id.CreatorID
	config.CacheDir = store.CacheDir()

	c, err := client.New(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}
	return c, nil
}

func formatTime(t time.Time) string {
	return t.Local().Format("2006-01-02 15:04:05")
}
