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

package notification

import (
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/go-stomp/stomp/v3"
	"github.com/go-stomp/stomp/v3/frame"
	"github.com/go-stomp/stomp/v3/server"
)

// startBroker runs an in-process STOMP broker and returns its host and port.
func startBroker(t *testing.T) (string, int) {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	t.Cleanup(func() { _ = l.Close() })
	go func() {
		_ = (&server.Server{}).Serve(l)
	}()
	addr := l.Addr().(*net.TCPAddr)
	return "127.0.0.1", addr.Port
}

func connectReceiver(t *testing.T, host string, port int, topics ...string) *Receiver {
	t.Helper()
	r, err := Connect(Options{
		Host:     host,
		Port:     port,
		Userid:   "tester",
		Token:    "sess-1",
		Topics:   topics,
		PlainTCP: true,
	})
	if err != nil {
		t.Fatalf("failed to connect receiver: %v", err)
	}
	t.Cleanup(func() { _ = r.Close() })
	// Give the broker a moment to process the subscriptions before
	// anything is published.
	time.Sleep(50 * time.Millisecond)
	return r
}

func publish(t *testing.T, host string, port int, topic string, headers map[string]string, body []byte) {
	t.Helper()
	conn, err := stomp.Dial("tcp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		t.Fatalf("failed to dial broker: %v", err)
	}
	defer func() { _ = conn.Disconnect() }()
	sendOpts := make([]func(*frame.Frame) error, 0, len(headers))
	for k, v := range headers {
		sendOpts = append(sendOpts, stomp.SendOpt.Header(k, v))
	}
	if err := conn.Send("/topic/"+topic, "application/json", body, sendOpts...); err != nil {
		t.Fatalf("failed to send: %v", err)
	}
}

func receive(t *testing.T, r *Receiver) Message {
	t.Helper()
	select {
	case m, ok := <-r.Notifications():
		if !ok {
			t.Fatalf("notifications channel closed early (err: %v)", r.Err())
		}
		return m
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for a notification")
	}
	return Message{}
}

func TestReceiverDelivers(t *testing.T) {
	host, port := startBroker(t)
	r := connectReceiver(t, host, port, "tester.job")

	publish(t, host, port, "tester.job", map[string]string{
		"notification-type": TypeJobCompletion,
		"job-uri":           "/api/jobs/7",
	}, []byte(`{"job-status-code":200}`))

	m := receive(t, r)
	if m.Topic != "tester.job" {
		t.Fatalf("topic = %q", m.Topic)
	}
	if m.Type() != TypeJobCompletion {
		t.Fatalf("type = %q", m.Type())
	}
	if m.Headers["job-uri"] != "/api/jobs/7" {
		t.Fatalf("headers = %v", m.Headers)
	}
	body, err := m.Decode()
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["job-status-code"] != float64(200) {
		t.Fatalf("body = %v", body)
	}
}

func TestReceiverBrokerOrder(t *testing.T) {
	host, port := startBroker(t)
	r := connectReceiver(t, host, port, "tester.obj")

	for i := 0; i < 5; i++ {
		publish(t, host, port, "tester.obj", map[string]string{
			"notification-type": TypePropertyChange,
			"sequence-number":   strconv.Itoa(i),
		}, nil)
	}
	for i := 0; i < 5; i++ {
		m := receive(t, r)
		if m.Headers["sequence-number"] != strconv.Itoa(i) {
			t.Fatalf("message %d has sequence %q", i, m.Headers["sequence-number"])
		}
	}
}

func TestReceiverObjectURIFallback(t *testing.T) {
	m := Message{Headers: map[string]string{"element-uri": "/api/partitions/1/nics/1"}}
	if m.ObjectURI() != "/api/partitions/1/nics/1" {
		t.Fatalf("ObjectURI = %q", m.ObjectURI())
	}
	m.Headers["object-uri"] = "/api/partitions/1"
	if m.ObjectURI() != "/api/partitions/1" {
		t.Fatalf("ObjectURI = %q", m.ObjectURI())
	}
}

func TestReceiverCloseFromConsumer(t *testing.T) {
	host, port := startBroker(t)
	r := connectReceiver(t, host, port, "tester.job")

	if err := r.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	select {
	case _, ok := <-r.Notifications():
		if ok {
			// Draining a buffered message is fine; the channel must
			// still close.
			for range r.Notifications() {
			}
		}
	case <-time.After(5 * time.Second):
		t.Fatal("notifications channel did not close after Close")
	}
	if err := r.Err(); err != nil {
		t.Fatalf("Err after clean close = %v", err)
	}
	// Closing again is a no-op.
	if err := r.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
}

func TestReceiverOptionValidation(t *testing.T) {
	cases := []Options{
		{Userid: "u", Token: "t", Topics: []string{"x"}},
		{Host: "h", Token: "t", Topics: []string{"x"}},
		{Host: "h", Userid: "u", Topics: []string{"x"}},
		{Host: "h", Userid: "u", Token: "t"},
	}
	for i, opts := range cases {
		if _, err := Connect(opts); err == nil {
			t.Fatalf("case %d: invalid options accepted", i)
		}
	}
}

func TestMessageDecodeEmpty(t *testing.T) {
	m := Message{}
	body, err := m.Decode()
	if err != nil || body != nil {
		t.Fatalf("decode empty = %v, %v", body, err)
	}
	m.Body = []byte("{not json")
	if _, err := m.Decode(); err == nil {
		t.Fatal("decode of invalid JSON succeeded")
	}
}
