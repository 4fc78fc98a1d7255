// Package cli implements the graphedit command line: one-shot graph
// commands and an interactive session over the editor workspace.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jm289765/concept-graph-web/internal/config"
	"github.com/jm289765/concept-graph-web/internal/di"
	"github.com/jm289765/concept-graph-web/internal/domain/node"
	"github.com/jm289765/concept-graph-web/internal/logging"
	"github.com/jm289765/concept-graph-web/internal/provider"
	"github.com/jm289765/concept-graph-web/internal/viewer"
	"github.com/jm289765/concept-graph-web/internal/workspace"
)

// Session is what the commands operate on.
type Session struct {
	Config    *config.Config
	Logger    *zap.Logger
	Level     zap.AtomicLevel
	Provider  provider.Provider
	Workspace *workspace.Workspace
}

// Connector builds a session from loaded configuration.
type Connector func(cfg *config.Config, confirm viewer.Confirmer) (*Session, error)

// Connect builds a session through the dependency container.
func Connect(cfg *config.Config, confirm viewer.Confirmer) (*Session, error) {
	c, err := di.InitializeClient(cfg, confirm)
	if err != nil {
		return nil, err
	}
	return &Session{
		Config:    c.Config,
		Logger:    c.Logger,
		Level:     c.Logging.Level,
		Provider:  c.Provider,
		Workspace: c.Workspace,
	}, nil
}

type rootOptions struct {
	configFile string
	server     string
	asJSON     bool
	yes        bool
}

type app struct {
	opts    rootOptions
	connect Connector
	in      *bufio.Reader
	session *Session
	watcher *config.Watcher
}

// NewRootCommand returns the graphedit command tree. A nil connect uses
// Connect.
func NewRootCommand(connect Connector) *cobra.Command {
	if connect == nil {
		connect = Connect
	}
	a := &app{connect: connect}

	root := &cobra.Command{
		Use:   "graphedit",
		Short: "Browse and edit a concept graph",
		Long: `graphedit talks to a concept graph server.

Examples:
  graphedit get 0
  graphedit add --title "Graphs" --parent 0
  graphedit link 1 2
  graphedit repl`,
		SilenceUsage:      true,
		PersistentPreRunE: a.open,
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			a.close(cmd.Context())
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&a.opts.configFile, "config", "c", "", "YAML config file (default $CONFIG_FILE)")
	flags.StringVarP(&a.opts.server, "server", "s", "", "graph server base URL (overrides provider.base_url)")
	flags.BoolVar(&a.opts.asJSON, "json", false, "print JSON instead of text")
	flags.BoolVarP(&a.opts.yes, "yes", "y", false, "answer yes to every confirmation")

	root.AddCommand(
		a.getCommand(),
		a.neighborsCommand(),
		a.searchCommand(),
		a.idsCommand(),
		a.addCommand(),
		a.updateCommand(),
		a.linkCommand(),
		a.unlinkCommand(),
		a.replCommand(),
	)
	return root
}

func (a *app) open(cmd *cobra.Command, _ []string) error {
	path := a.opts.configFile
	var (
		cfg *config.Config
		err error
	)
	if path != "" {
		cfg, err = config.LoadFile(path)
	} else {
		cfg, err = config.LoadConfig()
	}
	if err != nil {
		return err
	}
	if a.opts.server != "" {
		cfg.Provider.BaseURL = a.opts.server
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	if cfg.Logging.Output == "stdout" {
		// stdout carries command output
		cfg.Logging.Output = "stderr"
	}

	a.in = bufio.NewReader(cmd.InOrStdin())
	var confirm viewer.Confirmer = &promptConfirmer{in: a.in, out: cmd.OutOrStdout()}
	if a.opts.yes {
		confirm = viewer.AutoConfirm
	}

	a.session, err = a.connect(cfg, confirm)
	if err != nil {
		return err
	}
	if cfg.File != "" {
		a.follow(cfg.File)
	}
	return nil
}

// follow applies edits of the config file to the running session.
func (a *app) follow(path string) {
	logger := a.session.Logger
	w, err := config.NewWatcher(path, logger)
	if err != nil {
		logger.Warn("Config reloading disabled", zap.Error(err))
		return
	}
	a.session.Workspace.Follow(w)
	logging.Follow(w, a.session.Level, logger)
	w.Start()
	a.watcher = w
}

func (a *app) close(ctx context.Context) {
	if a.watcher != nil {
		a.watcher.Stop()
		a.watcher = nil
	}
	if a.session == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if a.session.Workspace != nil {
		a.session.Workspace.Close(ctx)
	}
	if a.session.Logger != nil {
		_ = a.session.Logger.Sync()
	}
	a.session = nil
}

// promptConfirmer asks on out and reads the answer from in.
type promptConfirmer struct {
	in  *bufio.Reader
	out io.Writer
}

func (p *promptConfirmer) Confirm(_ context.Context, prompt string) (bool, error) {
	fmt.Fprintf(p.out, "%s [y/N] ", prompt)
	line, err := p.in.ReadString('\n')
	if err != nil && line == "" {
		if err == io.EOF {
			return false, nil
		}
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

func parseID(s string) (node.ID, error) {
	id, err := node.ParseID(s)
	if err != nil {
		return node.NoID, err
	}
	if id.IsZero() {
		return node.NoID, fmt.Errorf("node id is required")
	}
	return id, nil
}
