package constants

import "time"

const (
	// Managed image
	DockerImage     = "ratio1/edge_node"
	DockerTag       = "mainnet"
	DockerImageRef  = DockerImage + ":" + DockerTag
	ContainerPrefix = "r1node"
	VolumePrefix    = "r1vol"

	// Mount point of the node data volume inside the container
	ContainerDataPath = "/edge_node/_local_cache"

	// Command timeouts
	DefaultCommandTimeout = 10 * time.Second
	RemoteCommandTimeout  = 20 * time.Second
	StopTimeout           = 30 * time.Second
	LaunchTimeout         = 2 * time.Minute
	PullTimeout           = 10 * time.Minute

	// Conflict retry
	ConflictRetryDelay = 1 * time.Second

	// App data files, resolved under the data directory
	DataDirName      = ".edge_node"
	RegistryFileName = "containers.json"
	StoreFileName    = "nodes.yaml"
	ConfigFileName   = "config.yaml"
	EnvFileName      = ".env"
	LogDirName       = "logs"
	LogFileName      = "r1nodectl.log"

	// File permissions
	DefaultFileMode = 0644
	DefaultDirMode  = 0755

	// Node constraints
	MaxAliasLength = 32
	MinNodeRAMGB   = 4

	// Refresh cadence for the watch loop
	RefreshInterval = 10 * time.Second

	// System resource sampling cache
	ResourceCacheDuration = 5 * time.Second

	// Status bridge defaults
	DefaultBridgeAddr  = "127.0.0.1:9341"
	BridgeWriteTimeout = 5 * time.Second
	BridgePingInterval = 30 * time.Second

	// Display
	ContainerIDDisplayLength = 12
)
