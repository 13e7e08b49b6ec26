// sessionctl manages a kubedeck dashboard session from the terminal:
// log in with a freshly issued token pair, inspect the session, mint a
// guaranteed-fresh access token for scripting, and log out.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v3"

	"github.com/kubedeck/sessionkit/authapi"
	"github.com/kubedeck/sessionkit/cluster"
	"github.com/kubedeck/sessionkit/credentials"
	"github.com/kubedeck/sessionkit/internal/config"
	"github.com/kubedeck/sessionkit/session"
)

func main() {
	if err := run(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	_ = godotenv.Load()
	cfg := config.New()

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(zerolog.InfoLevel).
		With().Timestamp().Logger()
	if os.Getenv("KUBEDECK_DEBUG") != "" {
		log = log.Level(zerolog.DebugLevel)
	}

	root := &cli.Command{
		Name:  "sessionctl",
		Usage: "Manage a kubedeck dashboard session",
		Commands: []*cli.Command{
			loginCmd(cfg, log),
			statusCmd(cfg, log),
			tokenCmd(cfg, log),
			logoutCmd(cfg, log),
		},
	}

	return root.Run(ctx, os.Args)
}

// buildManager wires the store, API client, cluster state and manager the
// same way for every command.
func buildManager(cfg config.Config, log zerolog.Logger) (*session.Manager, *cluster.Store, error) {
	creds, err := credentials.NewFileRepo(cfg.GetCredentialsPath(), cfg.GetCredentialsPassphrase())
	if err != nil {
		return nil, nil, fmt.Errorf("open credential store: %w", err)
	}

	api, err := authapi.NewClient(cfg.GetAuthBaseURL(),
		authapi.WithTimeout(time.Duration(cfg.GetHTTPTimeoutSeconds())*time.Second))
	if err != nil {
		return nil, nil, fmt.Errorf("create auth api client: %w", err)
	}

	clusters, err := cluster.NewStore(creds,
		cluster.WithLogger(log),
		cluster.WithUpdateBufferSize(cfg.GetUpdateBufferSize()))
	if err != nil {
		return nil, nil, fmt.Errorf("create cluster store: %w", err)
	}
	if err := clusters.Load(); err != nil {
		log.Warn().Err(err).Msg("could not restore cluster state")
	}

	manager, err := session.NewManager(session.Deps{
		Credentials: creds,
		AuthAPI:     api,
		Clusters:    clusters,
	},
		session.WithLogger(log),
		session.WithSkew(time.Duration(cfg.GetSkewSeconds())*time.Second))
	if err != nil {
		return nil, nil, fmt.Errorf("create session manager: %w", err)
	}

	return manager, clusters, nil
}

func loginCmd(cfg config.Config, log zerolog.Logger) *cli.Command {
	return &cli.Command{
		Name:  "login",
		Usage: "Store a token pair and verify it against the auth API",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "access-token",
				Usage:    "Access token issued by the dashboard",
				Sources:  cli.EnvVars("KUBEDECK_ACCESS_TOKEN"),
				Required: true,
			},
			&cli.StringFlag{
				Name:    "refresh-token",
				Usage:   "Refresh token issued by the dashboard",
				Sources: cli.EnvVars("KUBEDECK_REFRESH_TOKEN"),
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			banner()

			manager, _, err := buildManager(cfg, log)
			if err != nil {
				return err
			}

			manager.Login(ctx, cmd.String("access-token"), cmd.String("refresh-token"))

			snapshot := manager.Snapshot()
			if !snapshot.IsAuthenticated {
				return fmt.Errorf("login failed: token pair was rejected")
			}

			fmt.Printf("Logged in as %s (%s)\n", snapshot.User.Username, snapshot.User.Role)
			return nil
		},
	}
}

func statusCmd(cfg config.Config, log zerolog.Logger) *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Verify the stored session and show who is logged in",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			manager, clusters, err := buildManager(cfg, log)
			if err != nil {
				return err
			}

			manager.Load()
			manager.Verify(ctx)

			snapshot := manager.Snapshot()
			if !snapshot.IsAuthenticated {
				fmt.Println("Not logged in")
				return nil
			}

			fmt.Printf("Logged in as %s (%s)\n", snapshot.User.Username, snapshot.User.Role)
			if active := clusters.Active(); active != "" {
				fmt.Printf("Active cluster: %s\n", active)
			}
			return nil
		},
	}
}

func tokenCmd(cfg config.Config, log zerolog.Logger) *cli.Command {
	return &cli.Command{
		Name:  "token",
		Usage: "Print a guaranteed-fresh access token for scripting",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			manager, _, err := buildManager(cfg, log)
			if err != nil {
				return err
			}

			manager.Load()
			accessToken, ok := manager.GetValidAccessToken(ctx)
			if !ok {
				return fmt.Errorf("no usable session; run 'sessionctl login' first")
			}

			fmt.Println(accessToken)
			return nil
		},
	}
}

func logoutCmd(cfg config.Config, log zerolog.Logger) *cli.Command {
	return &cli.Command{
		Name:  "logout",
		Usage: "End the session locally and revoke it server-side",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "local-only",
				Usage: "Skip the server-side revoke call",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			manager, _, err := buildManager(cfg, log)
			if err != nil {
				return err
			}

			manager.Load()
			outcome := manager.Logout(ctx, session.WithServerRevoke(!cmd.Bool("local-only")))

			if outcome.Attempted && !outcome.OK {
				log.Warn().Err(outcome.Cause).Msg("server-side revoke failed; session cleared locally")
			}
			fmt.Println("Logged out")
			return nil
		},
	}
}

func banner() {
	figure.NewFigure("kubedeck", "cybermedium", true).Print()
	fmt.Println()
}
