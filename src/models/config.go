package models

// MConfig Structure
type MConfig struct {
	Name       string            `yaml:"name"`
	Host       string            `yaml:"host" envconfig:"STDEV_HOST"`
	Port       int               `yaml:"port" envconfig:"STDEV_PORT"`
	LogLevel   string            `yaml:"log_level" envconfig:"STDEV_LOG_LEVEL"`
	LogFormat  string            `yaml:"log_format" envconfig:"STDEV_LOG_FORMAT"` // console or json
	Storage    MStorageConfig    `yaml:"storage"`
	Analysis   MAnalysisConfig   `yaml:"analysis"`
	DataSource MDataSourceConfig `yaml:"data_source"`
	State      MStateConfig      `yaml:"state"`
	Schedule   MScheduleConfig   `yaml:"schedule"`
}

type MStorageConfig struct {
	DBType             string `yaml:"db_type"` // sqlite, postgres or none
	DBPath             string `yaml:"db_path"`
	DBConnectionString string `yaml:"db_connection_string" envconfig:"STDEV_DB_CONNECTION_STRING"`
	DBSchema           string `yaml:"db_schema"`
}

type MAnalysisConfig struct {
	WindowSize   int  `yaml:"window_size"`
	LookbackDays int  `yaml:"lookback_days"`
	GapReset     bool `yaml:"gap_reset"`
}

type MDataSourceConfig struct {
	PricesPath        string `yaml:"prices_path" envconfig:"STDEV_PRICES_PATH"` // file path or glob
	ResultsPath       string `yaml:"results_path"`                              // empty disables the CSV copy
	DataRetentionDays int    `yaml:"data_retention_days"`
}

type MStateConfig struct {
	Location string `yaml:"location" envconfig:"STDEV_STATE_LOCATION"` // file path or redis:// URL, empty disables persistence
}

type MScheduleConfig struct {
	IntervalMinutes int    `yaml:"interval_minutes"`
	Calendar        string `yaml:"calendar"` // MIC code, empty runs every interval
}
