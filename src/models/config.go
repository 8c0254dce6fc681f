package models

// MConfig Structure
type MConfig struct {
	Name     string          `yaml:"name"`
	Host     string          `yaml:"host"`
	Port     int             `yaml:"port"`
	LogLevel string          `yaml:"log_level"`
	Storage  MStorageConfig  `yaml:"storage"`
	Realtime MRealtimeConfig `yaml:"realtime"`
	Upload   MUploadConfig   `yaml:"upload"`
}

type MStorageConfig struct {
	DBType             string `yaml:"db_type"`
	DBPath             string `yaml:"db_path"`
	DBConnectionString string `yaml:"db_connection_string"`
	ListenChannel      string `yaml:"listen_channel"`
}

type MRealtimeConfig struct {
	// ClientQueueSize bounds each session's outbound queue. Sessions that
	// cannot drain are disconnected rather than blocking the hub.
	ClientQueueSize int `yaml:"client_queue_size"`
	// FeedCapacity bounds the reconciler's in-memory feed view.
	FeedCapacity int `yaml:"feed_capacity"`
}

type MUploadConfig struct {
	Dir         string `yaml:"dir"`
	MaxUploadMB int    `yaml:"max_upload_mb"`
}
