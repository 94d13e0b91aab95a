package kafka

import (
	"time"

	"github.com/segmentio/kafka-go"
)

// ProducerConfig configures the match-event writer. Zero fields take the
// defaults below.
type ProducerConfig struct {
	Brokers []string
	// RequiredAcks is -1 (all replicas), 0 or 1.
	RequiredAcks int
	// Compression is one of none, gzip, snappy, lz4, zstd.
	Compression  string
	MaxAttempts  int
	WriteTimeout time.Duration
	ReadTimeout  time.Duration
	BatchSize    int
	BatchBytes   int
	Linger       time.Duration
	Async        bool
}

func (c ProducerConfig) withDefaults() ProducerConfig {
	if c.Compression == "" {
		c.Compression = "snappy"
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 10 * time.Second
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = 10 * time.Second
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 100
	}
	if c.BatchBytes <= 0 {
		c.BatchBytes = 1 << 20
	}
	if c.Linger <= 0 {
		c.Linger = 10 * time.Millisecond
	}
	return c
}

func (c ProducerConfig) compression() kafka.Compression {
	switch c.Compression {
	case "gzip":
		return kafka.Gzip
	case "snappy":
		return kafka.Snappy
	case "lz4":
		return kafka.Lz4
	case "zstd":
		return kafka.Zstd
	}
	return 0
}

// ConsumerConfig configures the scan-request reader and its worker pool.
type ConsumerConfig struct {
	Brokers []string
	GroupID string
	Workers int
	Buffer  int

	// RetryMax is the number of retries after the first attempt.
	RetryMax   int
	BackoffMin time.Duration
	BackoffMax time.Duration

	// DLQTopic receives messages that still fail after RetryMax retries.
	// Empty leaves them uncommitted.
	DLQTopic string

	MinBytes int
	MaxBytes int
}

func (c ConsumerConfig) withDefaults() ConsumerConfig {
	if c.GroupID == "" {
		c.GroupID = "candlescan"
	}
	if c.Workers <= 0 {
		c.Workers = 1
	}
	if c.Buffer <= 0 {
		c.Buffer = 16
	}
	if c.RetryMax < 0 {
		c.RetryMax = 0
	}
	if c.BackoffMin <= 0 {
		c.BackoffMin = 50 * time.Millisecond
	}
	if c.BackoffMax < c.BackoffMin {
		c.BackoffMax = 2 * time.Second
	}
	if c.MinBytes <= 0 {
		c.MinBytes = 1
	}
	if c.MaxBytes <= 0 {
		c.MaxBytes = 10e6
	}
	return c
}
