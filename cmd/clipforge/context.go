package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"clipforge/internal/config"
	"clipforge/internal/ipc"
)

// commandContext carries the CLI's lazily loaded configuration and the
// socket used to reach the export daemon. All cobra commands share one
// instance so the config file is read at most once per invocation.
type commandContext struct {
	socketFlag *string
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(socketFlag, configFlag *string) *commandContext {
	return &commandContext{
		socketFlag: socketFlag,
		configFlag: configFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		c.config, c.configErr = config.Load(path)
	})
	return c.config, c.configErr
}

// socketPath resolves the daemon socket: the --socket flag wins, then the
// configured paths.socket_path, then a per-user temp default.
func (c *commandContext) socketPath() string {
	if c.socketFlag != nil && strings.TrimSpace(*c.socketFlag) != "" {
		return *c.socketFlag
	}
	if cfg, err := c.ensureConfig(); err == nil && cfg.Paths.SocketPath != "" {
		return cfg.Paths.SocketPath
	}
	return filepath.Join(os.TempDir(), "clipforge.sock")
}

// withClient dials the export daemon and runs fn against it, translating
// the usual unix-socket failures into actionable messages.
func (c *commandContext) withClient(fn func(*ipc.Client) error) error {
	socket := c.socketPath()
	client, err := ipc.Dial(socket)
	if err != nil {
		switch {
		case errors.Is(err, syscall.ENOENT), os.IsNotExist(err):
			return fmt.Errorf("export daemon is not reachable: socket %s does not exist; start it with `clipforge daemon`", socket)
		case errors.Is(err, syscall.ECONNREFUSED):
			return fmt.Errorf("export daemon is not reachable: socket %s refused the connection; the daemon may have crashed, restart it with `clipforge daemon`", socket)
		default:
			return fmt.Errorf("export daemon is not reachable: %w", err)
		}
	}
	defer client.Close()
	return fn(client)
}

// shouldSkipConfig reports whether a command (or any ancestor) opts out of
// config loading, for commands like `config init` that must run before a
// valid config exists.
func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
