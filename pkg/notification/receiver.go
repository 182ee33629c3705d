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

// Package notification receives HMC notifications over STOMP. The HMC
// publishes job completion, object lifecycle, audit, security and OS message
// events on per-session JMS topics; a Receiver subscribes to one or more of
// them and delivers the messages on a bounded channel.
package notification

import (
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"

	"github.com/go-stomp/stomp/v3"
)

// DefaultPort is the HMC's STOMP port.
const DefaultPort = 61612

const defaultQueueSize = 128

// Notification types carried in the "notification-type" header.
const (
	TypeJobCompletion   = "job-completion"
	TypePropertyChange  = "property-change"
	TypeStatusChange    = "status-change"
	TypeInventoryChange = "inventory-change"
	TypeAudit           = "audit-notification"
	TypeSecurity        = "security-notification"
	TypeOSMessage       = "os-message"
)

// Message is one notification: the STOMP headers and the raw JSON body.
type Message struct {
	// Topic is the topic name the message arrived on, without the
	// "/topic/" prefix.
	Topic   string
	Headers map[string]string
	Body    []byte
}

// Type returns the "notification-type" header.
func (m Message) Type() string { return m.Headers["notification-type"] }

// ObjectURI returns the object or element URI the notification refers to,
// or "".
func (m Message) ObjectURI() string {
	if uri := m.Headers["object-uri"]; uri != "" {
		return uri
	}
	return m.Headers["element-uri"]
}

// Decode parses the JSON body. An empty body decodes to nil.
func (m Message) Decode() (map[string]any, error) {
	if len(m.Body) == 0 {
		return nil, nil
	}
	var out map[string]any
	if err := json.Unmarshal(m.Body, &out); err != nil {
		return nil, fmt.Errorf("failed to decode notification body: %w", err)
	}
	return out, nil
}

// Options configures a Receiver.
type Options struct {
	// Host is the HMC hostname or IP address. Required.
	Host string
	// Port is the STOMP port. Zero uses DefaultPort.
	Port int
	// Userid is the HMC userid of the session. Required.
	Userid string
	// Token is the API session-id, used as the STOMP passcode. Required.
	Token string
	// Topics are the topic names to subscribe to. At least one.
	Topics []string
	// TLSConfig configures the TLS connection. Nil uses defaults;
	// self-signed HMCs need InsecureSkipVerify.
	TLSConfig *tls.Config
	// PlainTCP connects without TLS. Only for test brokers.
	PlainTCP bool
	// QueueSize bounds the delivery channel. Zero uses a default.
	QueueSize int
	// Logger receives receiver logs. Nil uses slog.Default().
	Logger *slog.Logger
}

// Receiver is a subscription to one or more notification topics. Messages
// are delivered on the Notifications channel in broker order per topic; the
// channel is closed when the receiver shuts down, after which Err reports
// the cause.
type Receiver struct {
	conn *stomp.Conn
	subs []*stomp.Subscription
	ch   chan Message
	done chan struct{}
	wg   sync.WaitGroup
	log  *slog.Logger

	closeOnce sync.Once
	mu        sync.Mutex
	err       error
}

// Connect connects to the HMC's STOMP broker and subscribes to the given
// topics.
func Connect(opts Options) (*Receiver, error) {
	if opts.Host == "" {
		return nil, errors.New("notification receiver requires a host")
	}
	if opts.Userid == "" || opts.Token == "" {
		return nil, errors.New("notification receiver requires userid and session token")
	}
	if len(opts.Topics) == 0 {
		return nil, errors.New("notification receiver requires at least one topic")
	}
	port := opts.Port
	if port == 0 {
		port = DefaultPort
	}
	queueSize := opts.QueueSize
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	addr := fmt.Sprintf("%s:%d", opts.Host, port)
	var netConn net.Conn
	var err error
	if opts.PlainTCP {
		netConn, err = net.Dial("tcp", addr)
	} else {
		tlsCfg := opts.TLSConfig
		if tlsCfg == nil {
			tlsCfg = &tls.Config{}
		}
		netConn, err = tls.Dial("tcp", addr, tlsCfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", addr, err)
	}

	conn, err := stomp.Connect(netConn,
		stomp.ConnOpt.Login(opts.Userid, opts.Token))
	if err != nil {
		_ = netConn.Close()
		return nil, fmt.Errorf("STOMP connect to %s failed: %w", addr, err)
	}

	r := &Receiver{
		conn: conn,
		ch:   make(chan Message, queueSize),
		done: make(chan struct{}),
		log:  logger,
	}

	for _, topic := range opts.Topics {
		sub, err := conn.Subscribe("/topic/"+topic, stomp.AckAuto)
		if err != nil {
			_ = r.Close()
			return nil, fmt.Errorf("failed to subscribe to topic %s: %w", topic, err)
		}
		r.subs = append(r.subs, sub)
		r.wg.Add(1)
		go r.consume(topic, sub)
	}

	// The delivery channel closes once every subscription reader is done.
	go func() {
		r.wg.Wait()
		close(r.ch)
	}()

	r.log.Debug("Subscribed to HMC notification topics",
		"host", opts.Host, "topics", opts.Topics)
	return r, nil
}

// Notifications returns the delivery channel. It is closed when the
// receiver shuts down; check Err afterwards.
func (r *Receiver) Notifications() <-chan Message { return r.ch }

// Err returns the error that shut the receiver down, if any. Meaningful
// after the Notifications channel is closed.
func (r *Receiver) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// Close shuts the receiver down: subscriptions end, the broker connection
// is dropped, and the Notifications channel closes once the readers have
// drained. Close is safe to call from any goroutine, including a consumer
// of the Notifications channel, and may be called more than once.
func (r *Receiver) Close() error {
	r.closeOnce.Do(func() {
		close(r.done)
		for _, sub := range r.subs {
			if sub.Active() {
				_ = sub.Unsubscribe()
			}
		}
		_ = r.conn.Disconnect()
	})
	return nil
}

func (r *Receiver) consume(topic string, sub *stomp.Subscription) {
	defer r.wg.Done()
	for {
		msg, err := sub.Read()
		if err != nil {
			select {
			case <-r.done:
				// Shutdown in progress; the read error is the
				// subscription ending.
			default:
				r.setErr(fmt.Errorf("subscription to topic %s failed: %w", topic, err))
				r.log.Warn("HMC notification subscription failed", "topic", topic, "error", err)
			}
			return
		}
		m := Message{
			Topic:   topic,
			Headers: make(map[string]string, msg.Header.Len()),
			Body:    msg.Body,
		}
		for i := 0; i < msg.Header.Len(); i++ {
			k, v := msg.Header.GetAt(i)
			m.Headers[k] = v
		}
		select {
		case r.ch <- m:
		case <-r.done:
			return
		}
	}
}

func (r *Receiver) setErr(err error) {
	r.mu.Lock()
	if r.err == nil {
		r.err = err
	}
	r.mu.Unlock()
}
