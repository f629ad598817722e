package config

import (
	"time"
)

// File represents the structure of the .lure configuration file.
// Zero values leave the corresponding Config field untouched.
type File struct {
	Bind           string                `yaml:"bind,omitempty"`
	Ports          PortsSection          `yaml:"ports,omitempty"`
	Storage        StorageSection        `yaml:"storage,omitempty"`
	Limits         LimitsSection         `yaml:"limits,omitempty"`
	Classification ClassificationSection `yaml:"classification,omitempty"`
	GeoIP          GeoIPSection          `yaml:"geoip,omitempty"`
	Kafka          KafkaSection          `yaml:"kafka,omitempty"`
	Metrics        MetricsSection        `yaml:"metrics,omitempty"`
	Log            LogSection            `yaml:"log,omitempty"`
}

// PortsSection sets listener ports.
type PortsSection struct {
	HTTP int `yaml:"http,omitempty"`
	SSH  int `yaml:"ssh,omitempty"`
	FTP  int `yaml:"ftp,omitempty"`
}

// StorageSection sets where events are stored.
type StorageSection struct {
	Dir string `yaml:"dir,omitempty"`
}

// LimitsSection bounds session resources.
type LimitsSection struct {
	IdleTimeout    time.Duration `yaml:"idleTimeout,omitempty"`
	MaxConnections int           `yaml:"maxConnections,omitempty"`
}

// ClassificationSection tunes the HTTP timing classifier.
type ClassificationSection struct {
	Window     int           `yaml:"window,omitempty"`
	BotSpan    time.Duration `yaml:"botSpan,omitempty"`
	MaxClients int           `yaml:"maxClients,omitempty"`
}

// GeoIPSection points at MaxMind databases.
type GeoIPSection struct {
	CityDB string `yaml:"cityDB,omitempty"`
	ASNDB  string `yaml:"asnDB,omitempty"`
}

// KafkaSection enables event forwarding.
type KafkaSection struct {
	Brokers   []string `yaml:"brokers,omitempty"`
	Topic     string   `yaml:"topic,omitempty"`
	QueueSize int      `yaml:"queueSize,omitempty"`
}

// MetricsSection enables the Prometheus endpoint.
type MetricsSection struct {
	Address string `yaml:"address,omitempty"`
}

// LogSection configures log output.
type LogSection struct {
	JSON bool   `yaml:"json,omitempty"`
	File string `yaml:"file,omitempty"`
}

// Apply copies every non-zero value from the file onto cfg.
func (f *File) Apply(cfg *Config) {
	setString(&cfg.BindAddress, f.Bind)
	setInt(&cfg.HTTPPort, f.Ports.HTTP)
	setInt(&cfg.SSHPort, f.Ports.SSH)
	setInt(&cfg.FTPPort, f.Ports.FTP)
	setString(&cfg.DBDir, f.Storage.Dir)
	setDuration(&cfg.IdleTimeout, f.Limits.IdleTimeout)
	setInt(&cfg.MaxConnections, f.Limits.MaxConnections)
	setInt(&cfg.HistoryWindow, f.Classification.Window)
	setDuration(&cfg.BotSpan, f.Classification.BotSpan)
	setInt(&cfg.MaxClients, f.Classification.MaxClients)
	setString(&cfg.GeoIPCityDB, f.GeoIP.CityDB)
	setString(&cfg.GeoIPASNDB, f.GeoIP.ASNDB)
	if len(f.Kafka.Brokers) > 0 {
		cfg.KafkaBrokers = append([]string(nil), f.Kafka.Brokers...)
	}
	setString(&cfg.KafkaTopic, f.Kafka.Topic)
	setInt(&cfg.KafkaQueueSize, f.Kafka.QueueSize)
	setString(&cfg.MetricsAddress, f.Metrics.Address)
	if f.Log.JSON {
		cfg.LogJSON = true
	}
	setString(&cfg.LogFile, f.Log.File)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v time.Duration) {
	if v != 0 {
		*dst = v
	}
}
