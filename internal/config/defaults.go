package config

// Default configuration values.
const (
	DefaultConfigFile = "morph.yaml"
	DefaultMapping    = "mapping.yaml"
	DefaultStateFile  = ".morph/state.db"
	DefaultBatchSize  = 1000
	DefaultWorkers    = 1
)

// configFileNames are searched in order when no config file is given.
var configFileNames = []string{DefaultConfigFile, "morph.yml"}
