package bridge

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"go.uber.org/zap"

	"github.com/5dlabs/toolman-sub001/config"
	"github.com/5dlabs/toolman-sub001/internal/logging"
)

// Execute runs the stdio bridge.
func (o *ServeOptions) Execute(_ []string) error {
	logger, err := logging.New(o.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	service, err := New(o.env.ctx, o, o.env.stdout, logger)
	if err != nil {
		logger.Error("failed to start bridge", zap.Error(err))
		return err
	}
	err = service.Serve(o.env.ctx, o.env.stdin)
	logger.Info("bridge stopped", zap.Error(err))
	return err
}

// Execute prints every server with its tools.
func (c *ConfigListCommand) Execute(_ []string) error {
	store, err := loadStore(c.env, c.Common)
	if err != nil {
		return err
	}
	writer := tabwriter.NewWriter(c.env.stdout, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintf(writer, "SERVER\tTRANSPORT\tENABLED\tALWAYS ACTIVE\tTOOLS\n")
	for _, server := range store.Servers() {
		var tools []string
		for _, tool := range server.Tools {
			state := "-"
			if tool.Enabled {
				state = "+"
			}
			tools = append(tools, state+tool.Name)
		}
		_, _ = fmt.Fprintf(writer, "%v\t%v\t%v\t%v\t%v\n", server.Name, server.EffectiveTransport(), server.Enabled, server.AlwaysActive, strings.Join(tools, " "))
	}
	return writer.Flush()
}

// Execute updates one tool and saves the registry.
func (c *ToolCommand) Execute(_ []string) error {
	store, err := loadStore(c.env, c.Common)
	if err != nil {
		return err
	}
	if err = store.UpdateToolEnabled(c.Args.Server, c.Args.Tool, c.enabled); err != nil {
		return err
	}
	if err = store.Save(c.env.ctx); err != nil {
		return err
	}
	server, err := store.Server(c.Args.Server)
	if err != nil {
		return err
	}
	tool, _ := server.Tool(c.Args.Tool)
	_, err = fmt.Fprintf(c.env.stdout, "%v/%v enabled=%v\n", server.Name, tool.Name, tool.Enabled)
	return err
}

// Execute updates one server and saves the registry.
func (c *ServerCommand) Execute(_ []string) error {
	store, err := loadStore(c.env, c.Common)
	if err != nil {
		return err
	}
	if err = store.UpdateServerEnabled(c.Args.Server, c.enabled); err != nil {
		return err
	}
	if err = store.Save(c.env.ctx); err != nil {
		return err
	}
	_, err = fmt.Fprintf(c.env.stdout, "%v enabled=%v\n", c.Args.Server, c.enabled)
	return err
}

func loadStore(env *environment, common Common) (*config.Store, error) {
	logger, err := logging.New(common.LogLevel)
	if err != nil {
		return nil, err
	}
	return config.Load(env.ctx, common.WorkingDir, config.WithLogger(logger))
}
