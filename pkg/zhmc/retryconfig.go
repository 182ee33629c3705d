// Zhmc is a client library for the IBM Z Hardware Management Console
// Web Services API.
// Copyright (C) 2025  Matthew Burns
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package zhmc

import "time"

// Default retry/timeout values. The read timeout is long because some HMC
// operations (e.g. CPC-wide actions) hold the connection open for a while.
const (
	DefaultConnectTimeout     = 10 * time.Second
	DefaultConnectRetries     = 3
	DefaultReadTimeout        = 30 * time.Minute
	DefaultStatusTimeout      = 60 * time.Second
	DefaultStatusPollInterval = 1 * time.Second
	DefaultJobPollInterval    = 1 * time.Second
	DefaultNameURICacheTTL    = 5 * time.Second

	defaultRetryBaseDelay  = 500 * time.Millisecond
	defaultRetryMaxDelay   = 3 * time.Second
	defaultRetryJitterFrac = 0.3
)

// RetryTimeoutConfig bundles the retry and timeout tunables of a Session.
// The zero value of any field means "use the default"; OperationTimeout is
// the exception, where zero means "wait forever".
type RetryTimeoutConfig struct {
	// ConnectTimeout bounds establishing the TCP/TLS connection.
	ConnectTimeout time.Duration
	// ConnectRetries is the number of additional attempts after a
	// transient connect failure. Zero uses the default; negative disables
	// connect retries.
	ConnectRetries int
	// ReadTimeout bounds one HTTP request/response exchange.
	ReadTimeout time.Duration
	// OperationTimeout bounds waiting for completion of an asynchronous
	// job. Zero waits forever.
	OperationTimeout time.Duration
	// StatusTimeout bounds waiting for a resource to reach an expected
	// status.
	StatusTimeout time.Duration
	// StatusPollInterval is the sleep between status polls.
	StatusPollInterval time.Duration
	// JobPollInterval is the sleep between job completion polls.
	JobPollInterval time.Duration
	// NameURICacheTTL bounds the staleness of the per-manager name-to-URI
	// cache.
	NameURICacheTTL time.Duration
}

// DefaultRetryTimeoutConfig returns the documented defaults.
func DefaultRetryTimeoutConfig() RetryTimeoutConfig {
	return RetryTimeoutConfig{}.withDefaults()
}

func (c RetryTimeoutConfig) withDefaults() RetryTimeoutConfig {
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = DefaultConnectTimeout
	}
	switch {
	case c.ConnectRetries == 0:
		c.ConnectRetries = DefaultConnectRetries
	case c.ConnectRetries < 0:
		c.ConnectRetries = 0
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = DefaultReadTimeout
	}
	if c.StatusTimeout <= 0 {
		c.StatusTimeout = DefaultStatusTimeout
	}
	if c.StatusPollInterval <= 0 {
		c.StatusPollInterval = DefaultStatusPollInterval
	}
	if c.JobPollInterval <= 0 {
		c.JobPollInterval = DefaultJobPollInterval
	}
	if c.NameURICacheTTL <= 0 {
		c.NameURICacheTTL = DefaultNameURICacheTTL
	}
	return c
}
