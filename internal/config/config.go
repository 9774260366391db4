package config

import (
	"encoding/json"
	"os"
	"runtime"
	"time"
)

// Duration is a custom type that can unmarshal from JSON strings
type Duration struct {
	time.Duration
}

// UnmarshalJSON implements the json.Unmarshaler interface
func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	duration, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	d.Duration = duration
	return nil
}

// MarshalJSON implements the json.Marshaler interface
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Duration.String())
}

type Config struct {
	Server struct {
		Port            string   `json:"port" default:":8080"`
		ReadTimeout     Duration `json:"read_timeout" default:"10s"`
		WriteTimeout    Duration `json:"write_timeout" default:"10m"`
		ShutdownTimeout Duration `json:"shutdown_timeout" default:"30s"`
	} `json:"server"`

	Benchmark struct {
		Min    int `json:"min" default:"0"`
		Max    int `json:"max" default:"999"`
		Select int `json:"select" default:"3"`
	} `json:"benchmark"`

	Dispatcher struct {
		MaxConcurrency int `json:"max_concurrency"`
	} `json:"dispatcher"`

	Triggers struct {
		HTTP struct {
			Enabled      *bool  `json:"enabled"`
			FunctionName string `json:"function_name" default:"HttpTrigger"`
			Route        string `json:"route" default:"/api/HttpTrigger"`
		} `json:"http"`

		Blob struct {
			Enabled      *bool  `json:"enabled"`
			FunctionName string `json:"function_name" default:"BlobTrigger"`
			Dir          string `json:"dir" default:"./blobs"`
		} `json:"blob"`

		Queue struct {
			Enabled      *bool  `json:"enabled"`
			FunctionName string `json:"function_name" default:"QueueTrigger"`
			URL          string `json:"url" default:"nats://127.0.0.1:4222"`
			Subject      string `json:"subject" default:"busy-beaver"`
			QueueGroup   string `json:"queue_group" default:"busy-beaver-workers"`
		} `json:"queue"`

		Timer struct {
			Enabled      *bool    `json:"enabled"`
			FunctionName string   `json:"function_name" default:"TimerTrigger"`
			Schedule     string   `json:"schedule" default:"*/30 * * * * *"`
			BusySeconds  float64  `json:"busy_seconds" default:"1"`
			PastDueAfter Duration `json:"past_due_after" default:"1s"`
		} `json:"timer"`
	} `json:"triggers"`

	Metrics struct {
		HostSampleInterval Duration `json:"host_sample_interval" default:"15s"`
		CommandTimeout     Duration `json:"command_timeout" default:"10s"`
		EnableHostMetrics  *bool    `json:"enable_host_metrics"`
	} `json:"metrics"`

	Logging struct {
		Level  string `json:"level" default:"info"`
		Format string `json:"format" default:"json"`
	} `json:"logging"`
}

// New returns a Config with every default applied.
func New() *Config {
	config := &Config{}
	config.ApplyDefaults()
	return config
}

// LoadFromJSON loads configuration from a JSON file
func LoadFromJSON(path string) (*Config, error) {
	config := &Config{}

	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	decoder := json.NewDecoder(file)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(config); err != nil {
		return nil, err
	}

	config.ApplyDefaults()
	return config, nil
}

// ApplyDefaults fills every zero value with the documented default.
// Benchmark.Min is left alone since zero is both valid and the default.
func (c *Config) ApplyDefaults() {
	setString(&c.Server.Port, ":8080")
	setDuration(&c.Server.ReadTimeout, 10*time.Second)
	setDuration(&c.Server.WriteTimeout, 10*time.Minute)
	setDuration(&c.Server.ShutdownTimeout, 30*time.Second)

	if c.Benchmark.Max == 0 {
		c.Benchmark.Max = 999
	}
	if c.Benchmark.Select == 0 {
		c.Benchmark.Select = 3
	}

	if c.Dispatcher.MaxConcurrency <= 0 {
		c.Dispatcher.MaxConcurrency = runtime.GOMAXPROCS(0)
	}

	http := &c.Triggers.HTTP
	setString(&http.FunctionName, "HttpTrigger")
	setString(&http.Route, "/api/HttpTrigger")

	blob := &c.Triggers.Blob
	setString(&blob.FunctionName, "BlobTrigger")
	setString(&blob.Dir, "./blobs")

	queue := &c.Triggers.Queue
	setString(&queue.FunctionName, "QueueTrigger")
	setString(&queue.URL, "nats://127.0.0.1:4222")
	setString(&queue.Subject, "busy-beaver")
	setString(&queue.QueueGroup, "busy-beaver-workers")

	timer := &c.Triggers.Timer
	setString(&timer.FunctionName, "TimerTrigger")
	setString(&timer.Schedule, "*/30 * * * * *")
	if timer.BusySeconds == 0 {
		timer.BusySeconds = 1
	}
	setDuration(&timer.PastDueAfter, time.Second)

	setDuration(&c.Metrics.HostSampleInterval, 15*time.Second)
	setDuration(&c.Metrics.CommandTimeout, 10*time.Second)

	setString(&c.Logging.Level, "info")
	setString(&c.Logging.Format, "json")
}

// Enabled reports whether an optional toggle is on. A missing toggle means on.
func Enabled(flag *bool) bool {
	return flag == nil || *flag
}

func setString(s *string, def string) {
	if *s == "" {
		*s = def
	}
}

func setDuration(d *Duration, def time.Duration) {
	if d.Duration == 0 {
		d.Duration = def
	}
}
