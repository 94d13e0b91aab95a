package clickhouse

import (
	"fmt"
	"net"
	"strconv"
	"time"

	ch "github.com/ClickHouse/clickhouse-go/v2"
)

// Config describes one ClickHouse endpoint and its pool.
type Config struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string

	// HTTP switches from the native protocol (9000) to HTTP (8123).
	HTTP bool

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	DialTimeout     time.Duration
	ReadTimeout     time.Duration

	// MaxExecutionTime is sent as the max_execution_time setting.
	MaxExecutionTime time.Duration
	AsyncInsert      bool
	WaitForAsync     bool

	SkipPing bool
}

func (c Config) withDefaults() Config {
	if c.Port == 0 {
		c.Port = 9000
	}
	if c.Database == "" {
		c.Database = "default"
	}
	if c.User == "" {
		c.User = "default"
	}
	if c.MaxOpenConns == 0 {
		c.MaxOpenConns = 10
	}
	if c.MaxIdleConns == 0 {
		c.MaxIdleConns = 5
	}
	if c.ConnMaxLifetime == 0 {
		c.ConnMaxLifetime = 5 * time.Minute
	}
	if c.DialTimeout == 0 {
		c.DialTimeout = 5 * time.Second
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 10 * time.Second
	}
	return c
}

// options translates c into the driver's option struct.
func (c Config) options() (*ch.Options, error) {
	if c.Host == "" {
		return nil, fmt.Errorf("clickhouse: host is required")
	}
	opts := &ch.Options{
		Addr: []string{net.JoinHostPort(c.Host, strconv.Itoa(c.Port))},
		Auth: ch.Auth{
			Database: c.Database,
			Username: c.User,
			Password: c.Password,
		},
		Protocol:        ch.Native,
		DialTimeout:     c.DialTimeout,
		ReadTimeout:     c.ReadTimeout,
		MaxOpenConns:    c.MaxOpenConns,
		MaxIdleConns:    c.MaxIdleConns,
		ConnMaxLifetime: c.ConnMaxLifetime,
		Settings:        ch.Settings{},
	}
	if c.HTTP {
		opts.Protocol = ch.HTTP
	}
	if c.MaxExecutionTime > 0 {
		opts.Settings["max_execution_time"] = int(c.MaxExecutionTime.Seconds())
	}
	if c.AsyncInsert {
		opts.Settings["async_insert"] = 1
		if c.WaitForAsync {
			opts.Settings["wait_for_async_insert"] = 1
		}
	}
	return opts, nil
}
