package bridge

import "time"

// Options is the toolman command line.
type Options struct {
	Serve  *ServeOptions  `command:"serve" description:"bridge stdio JSON-RPC to the toolman server (default)"`
	Config *ConfigOptions `command:"config" description:"inspect and edit the server registry"`
}

// Common holds flags shared by every command.
type Common struct {
	WorkingDir string `short:"w" long:"working-dir" description:"working directory (defaults to the current directory)"`
	LogLevel   string `long:"log-level" description:"log level" default:"info" choice:"debug" choice:"info" choice:"warn" choice:"error"`
}

// ServeOptions configures the stdio bridge.
type ServeOptions struct {
	Common
	URL             string        `short:"u" long:"url" env:"TOOLMAN_SERVER_URL" description:"toolman server url" default:"http://localhost:3000"`
	Timeout         time.Duration `long:"timeout" description:"per request timeout" default:"30s"`
	Drain           time.Duration `long:"drain" description:"time allowed for outstanding requests after end of input (defaults to the request timeout)"`
	DetectWorkspace bool          `long:"detect-workspace" description:"resolve the working directory from IDE environment variables"`
	ProjectRoot     bool          `long:"project-root" description:"report the enclosing git worktree root as the working directory"`
	Filter          bool          `long:"filter" description:"filter tools/list results with .toolman-filter.json from the working directory"`
	AnnounceTools   bool          `long:"announce-tools" description:"emit notifications/tools/list_changed at startup"`
	ToolDefaults    bool          `long:"tool-defaults" description:"fill in a missing description and inputSchema on listed tools"`
	NoSessionConfig bool          `long:"no-session-config" description:"do not attach the registry to initialize requests"`
	Metrics         string        `long:"metrics" description:"listen address for prometheus metrics, e.g. 127.0.0.1:9464"`
	env             *environment
}

func (o *ServeOptions) drain() time.Duration {
	if o.Drain > 0 {
		return o.Drain
	}
	return o.Timeout
}

// ConfigOptions groups the registry commands.
type ConfigOptions struct {
	List          *ConfigListCommand `command:"list" description:"list servers and tools"`
	Enable        *ToolCommand       `command:"enable" description:"enable a tool"`
	Disable       *ToolCommand       `command:"disable" description:"disable a tool"`
	EnableServer  *ServerCommand     `command:"enable-server" description:"enable a server"`
	DisableServer *ServerCommand     `command:"disable-server" description:"disable a server"`
}

// ConfigListCommand prints the registry.
type ConfigListCommand struct {
	Common
	env *environment
}

// ToolCommand flips one tool flag.
type ToolCommand struct {
	Common
	Args struct {
		Server string `positional-arg-name:"server" required:"yes"`
		Tool   string `positional-arg-name:"tool" required:"yes"`
	} `positional-args:"yes" required:"yes"`
	enabled bool
	env     *environment
}

// ServerCommand flips one server flag.
type ServerCommand struct {
	Common
	Args struct {
		Server string `positional-arg-name:"server" required:"yes"`
	} `positional-args:"yes" required:"yes"`
	enabled bool
	env     *environment
}

func newOptions(env *environment) *Options {
	return &Options{
		Serve: &ServeOptions{env: env},
		Config: &ConfigOptions{
			List:          &ConfigListCommand{env: env},
			Enable:        &ToolCommand{enabled: true, env: env},
			Disable:       &ToolCommand{enabled: false, env: env},
			EnableServer:  &ServerCommand{enabled: true, env: env},
			DisableServer: &ServerCommand{enabled: false, env: env},
		},
	}
}
