// Copyright 2026 The Roomwarden Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/roomwarden/roomwarden/cmd/roomwarden/cli"
	"github.com/roomwarden/roomwarden/lib/config"
	"github.com/roomwarden/roomwarden/lib/policydef"
	"github.com/roomwarden/roomwarden/lib/ref"
	"github.com/roomwarden/roomwarden/lib/secret"
	"github.com/roomwarden/roomwarden/lib/service"
	"github.com/roomwarden/roomwarden/lib/version"
	"github.com/roomwarden/roomwarden/messaging"
	"github.com/roomwarden/roomwarden/warden"
)

func serveCommand() *cli.Command {
	var configPath string

	return &cli.Command{
		Name:    "serve",
		Summary: "run the admission service",
		Description: "Runs the admission HTTP service: loads the configuration and\n" +
			"policy definition, connects to the homeserver as the warden\n" +
			"account, and serves admission checks until interrupted.",
		Usage: "roomwarden serve [flags]",
		Examples: []cli.Example{
			{
				Description: "start with an explicit config file",
				Command:     "roomwarden serve --config /etc/roomwarden/roomwarden.yaml",
			},
			{
				Description: "start using $ROOMWARDEN_CONFIG",
				Command:     "roomwarden serve",
			},
		},
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("serve", pflag.ContinueOnError)
			flagSet.StringVar(&configPath, "config", "", "path to roomwarden.yaml (defaults to $ROOMWARDEN_CONFIG)")
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) > 0 {
				return fmt.Errorf("serve takes no positional arguments (got %q)", args[0])
			}
			return runServe(configPath)
		},
	}
}

func runServe(configPath string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	logger := cli.NewCommandLogger().With("command", "serve")
	logger.Info("starting roomwarden", "version", version.Short(), "environment", cfg.Environment)

	definition, err := loadDefinition(cfg.Policy.File)
	if err != nil {
		return err
	}

	serverName, err := ref.ParseServerName(cfg.Homeserver.ServerName)
	if err != nil {
		return fmt.Errorf("homeserver.server_name: %w", err)
	}
	wardenUser, err := ref.ParseUserID(cfg.Homeserver.UserID)
	if err != nil {
		return fmt.Errorf("homeserver.user_id: %w", err)
	}

	var auditRoom ref.RoomID
	if cfg.Policy.AuditRoom != "" {
		auditRoom, err = ref.ParseRoomID(cfg.Policy.AuditRoom)
		if err != nil {
			return fmt.Errorf("policy.audit_room: %w", err)
		}
	}

	token, err := secret.ReadFromPath(cfg.Homeserver.TokenFile)
	if err != nil {
		return fmt.Errorf("reading access token: %w", err)
	}
	defer token.Close()

	client, err := messaging.NewClient(messaging.ClientConfig{
		HomeserverURL: cfg.Homeserver.URL,
		Logger:        logger,
	})
	if err != nil {
		return err
	}
	defer client.CloseIdleConnections()

	session, err := client.SessionFromToken(wardenUser, strings.TrimSpace(token.String()))
	if err != nil {
		return err
	}
	defer session.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Validate the credentials up front rather than on the first
	// admission check.
	identity, err := session.WhoAmI(ctx)
	if err != nil {
		return fmt.Errorf("validating session: %w", err)
	}
	logger.Info("authenticated", "user_id", identity)

	// Audit events are posted into the audit room, so the warden
	// account has to be a member before the first denial comes in.
	if !auditRoom.IsZero() {
		if err := ensureJoined(ctx, session, auditRoom); err != nil {
			return fmt.Errorf("joining audit room: %w", err)
		}
	}

	var journal *warden.Journal
	if cfg.Journal.Path != "" {
		if err := cfg.EnsurePaths(); err != nil {
			return err
		}
		journal, err = warden.OpenJournal(cfg.Journal.Path)
		if err != nil {
			return err
		}
		defer journal.Close()
	}

	engine, err := warden.New(warden.Config{
		ServerName: serverName,
		Definition: definition,
		Session:    session,
		AuditRoom:  auditRoom,
		Journal:    journal,
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	var hmacSecret []byte
	if cfg.Listen.SecretFile != "" {
		secretBuffer, err := secret.ReadFromPath(cfg.Listen.SecretFile)
		if err != nil {
			return fmt.Errorf("reading admission secret: %w", err)
		}
		defer secretBuffer.Close()
		hmacSecret = secretBuffer.Bytes()
	} else {
		logger.Warn("admission endpoint has no request signature secret configured")
	}

	server := service.NewHTTPServer(service.HTTPServerConfig{
		Address: cfg.Listen.Address,
		Handler: warden.NewHandler(engine, hmacSecret, logger),
		Logger:  logger,
	})

	// Announce readiness to the moderation room once the listener is
	// bound. Best-effort: the announcement failing must not stop the
	// service.
	if !auditRoom.IsZero() {
		go func() {
			select {
			case <-ctx.Done():
			case <-server.Ready():
				service.AnnounceReady(ctx, session, auditRoom, "roomwarden",
					[]string{"freeze", "unfreeze", "succession"}, logger)
			}
		}()
	}

	return server.Serve(ctx)
}

// ensureJoined joins the room unless the session is already a member.
func ensureJoined(ctx context.Context, session messaging.Session, roomID ref.RoomID) error {
	joined, err := session.JoinedRooms(ctx)
	if err != nil {
		return err
	}
	for _, member := range joined {
		if member == roomID {
			return nil
		}
	}
	_, err = session.JoinRoom(ctx, roomID)
	return err
}

// loadConfig loads and validates configuration from the --config flag
// or, when empty, the ROOMWARDEN_CONFIG environment variable.
func loadConfig(configPath string) (*config.Config, error) {
	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = config.LoadFile(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// loadDefinition reads and validates the policy definition. An empty
// path yields the default (empty) definition.
func loadDefinition(path string) (*policydef.Definition, error) {
	if path == "" {
		return &policydef.Definition{}, nil
	}
	definition, err := policydef.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if issues := policydef.Validate(definition); len(issues) > 0 {
		return nil, fmt.Errorf("policy definition %s has issues:\n  %s",
			path, strings.Join(issues, "\n  "))
	}
	return definition, nil
}
