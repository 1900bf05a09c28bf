package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/wolfeidau/contactgain/internal/api"
	"gopkg.in/yaml.v3"
)

type SessionConfig struct {
	Name         string `yaml:"name" json:"name"`
	WhatsAppLink string `yaml:"whatsappLink" json:"whatsappLink"`
	Duration     string `yaml:"duration" json:"duration"`
}

type CreateCmd struct {
	Name     string `arg:"" optional:"" help:"Session name"`
	Link     string `help:"WhatsApp group invite link" default:""`
	Duration string `help:"Session duration preset, see the durations command" default:"1h"`
	Config   string `help:"YAML/JSON config file path"`
}

func (c *CreateCmd) Run(ctx context.Context, globals *Globals) error {
	// Load config from file if provided
	if c.Config != "" {
		if err := c.loadConfigFile(); err != nil {
			return fmt.Errorf("failed to load config file: %w", err)
		}
	}

	if c.Name == "" {
		return fmt.Errorf("session name is required (use NAME argument or --config file)")
	}
	if c.Link == "" {
		return fmt.Errorf("whatsapp link is required (use --link flag or --config file)")
	}

	cl, err := globals.newClient()
	if err != nil {
		return err
	}

	session, err := cl.CreateSession(ctx, api.CreateSessionRequest{
		Name:         c.Name,
		WhatsAppLink: c.Link,
		Duration:     c.Duration,
	})
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	out := globals.out()
	fmt.Fprintf(out, "Session created with ID: %s\n", session.SessionID)
	fmt.Fprintf(out, "Name:       %s\n", session.Name)
	fmt.Fprintf(out, "Expires at: %s (%s)\n", formatTime(session.ExpiresAt), session.TimeRemaining)
	fmt.Fprintf(out, "Share this ID with participants: contactgain join %s --name NAME --phone PHONE\n", session.SessionID)

	return nil
}

func (c *CreateCmd) loadConfigFile() error {
	data, err := os.ReadFile(c.Config)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var config SessionConfig

	// Determine file format by extension
	if strings.HasSuffix(strings.ToLower(c.Config), ".json") {
		if err := json.Unmarshal(data, &config); err != nil {
			return fmt.Errorf("failed to parse JSON config: %w", err)
		}
	} else {
		// Default to YAML
		if err := yaml.Unmarshal(data, &config); err != nil {
			return fmt.Errorf("failed to parse YAML config: %w", err)
		}
	}

	// config file takes precedence over flags
	if config.Name != "" {
		c.Name = config.Name
	}
	if config.WhatsAppLink != "" {
		c.Link = config.WhatsAppLink
	}
	if config.Duration != "" {
		c.Duration = config.Duration
	}

	return nil
}
