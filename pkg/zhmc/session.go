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

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net"
	"net/http"
	"os"
	"regexp"
	"strings"
	"sync"
	"time"

	"zhmc/internal/ctxkeys"
	"zhmc/internal/metrics"
	"zhmc/pkg/credentials"
)

// DefaultPort is the HMC Web Services API port.
const DefaultPort = 6794

const (
	sessionsURI     = "/api/sessions"
	thisSessionURI  = "/api/sessions/this-session"
	notifTopicsURI  = "/api/sessions/operations/get-notification-topics"
	contentTypeJSON = "application/json"
)

// SessionOptions configures a Session.
type SessionOptions struct {
	// Host is the HMC hostname or IP address. Required.
	Host string
	// Port is the Web Services API port. Zero uses DefaultPort.
	Port int
	// Userid is the HMC userid to log on with. Required for sessions that
	// perform logon-required requests.
	Userid string
	// Password is the password for Userid. May be empty if GetPassword is
	// set.
	Password string
	// GetPassword is invoked synchronously with (host, userid) during
	// logon when Password is empty.
	GetPassword func(host, userid string) (string, error)
	// CACertPath names a PEM CA bundle to verify the HMC certificate
	// against. Empty uses the system roots, unless SkipVerify is set.
	CACertPath string
	// SkipVerify permits TLS without peer verification. HMCs commonly run
	// with self-signed certificates.
	SkipVerify bool
	// RetryTimeout tunes retries and timeouts; zero fields use defaults.
	RetryTimeout RetryTimeoutConfig
	// Logger receives transport logs. Nil uses slog.Default().
	Logger *slog.Logger
}

// Session is an authenticated connection to one HMC. It owns the HTTP
// transport, the session-id lifecycle including transparent renewal after
// expiry, and the optional time statistics. A Session is safe for concurrent
// use; requests of concurrent callers are independent.
type Session struct {
	host        string
	port        int
	userid      string
	password    string
	getPassword func(host, userid string) (string, error)
	baseURL     string
	client      *http.Client
	rt          RetryTimeoutConfig
	log         *slog.Logger
	stats       *TimeStatsKeeper

	mu        sync.Mutex // guards the fields below
	sessionID string
	jobTopic  string
	objTopic  string

	renewMu sync.Mutex // serializes session renewal
}

// NewSession creates a logged-off Session. No network traffic happens until
// the first request or an explicit Logon.
func NewSession(opts SessionOptions) (*Session, error) {
	if opts.Host == "" {
		return nil, &ClientAuthError{Message: "session requires a host"}
	}
	port := opts.Port
	if port == 0 {
		port = DefaultPort
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	rt := opts.RetryTimeout.withDefaults()

	tlsCfg := &tls.Config{}
	switch {
	case opts.SkipVerify:
		tlsCfg.InsecureSkipVerify = true // HMCs often use self-signed certificates
	case opts.CACertPath != "":
		pem, err := os.ReadFile(opts.CACertPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read CA bundle %s: %w", opts.CACertPath, err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("no certificates found in CA bundle %s", opts.CACertPath)
		}
		tlsCfg.RootCAs = pool
	}

	client := &http.Client{
		Timeout: rt.ReadTimeout,
		Transport: &http.Transport{
			TLSClientConfig: tlsCfg,
			DialContext: (&net.Dialer{
				Timeout: rt.ConnectTimeout,
			}).DialContext,
		},
	}

	return &Session{
		host:        opts.Host,
		port:        port,
		userid:      opts.Userid,
		password:    opts.Password,
		getPassword: opts.GetPassword,
		baseURL:     fmt.Sprintf("https://%s:%d", opts.Host, port),
		client:      client,
		rt:          rt,
		log:         logger,
		stats:       NewTimeStatsKeeper(),
	}, nil
}

// Host returns the HMC host this session talks to.
func (s *Session) Host() string { return s.host }

// Port returns the Web Services API port.
func (s *Session) Port() int { return s.port }

// Userid returns the userid this session logs on with.
func (s *Session) Userid() string { return s.userid }

// RetryTimeoutConfig returns the effective retry/timeout tunables.
func (s *Session) RetryTimeoutConfig() RetryTimeoutConfig { return s.rt }

// TimeStats returns the session's time statistics keeper. Enable it to start
// measuring.
func (s *Session) TimeStats() *TimeStatsKeeper { return s.stats }

// SessionID returns the current API session-id, or "" when logged off. The
// id doubles as the STOMP passcode for notification subscriptions.
func (s *Session) SessionID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessionID
}

// JobNotificationTopic returns the job completion topic name announced at
// logon, or "".
func (s *Session) JobNotificationTopic() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobTopic
}

// ObjectNotificationTopic returns the object notification topic name
// announced at logon, or "".
func (s *Session) ObjectNotificationTopic() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.objTopic
}

// IsLogon reports whether the session currently holds a session-id.
func (s *Session) IsLogon() bool {
	return s.SessionID() != ""
}

// Logon creates a session on the HMC and caches its session-id. It is called
// implicitly by the first logon-required request.
func (s *Session) Logon(ctx context.Context) error {
	if s.userid == "" {
		return &ClientAuthError{Message: "session requires a userid for logon"}
	}
	password := s.password
	if password == "" {
		if s.getPassword == nil {
			return &ClientAuthError{Message: fmt.Sprintf("no password and no password callback for %s@%s", s.userid, s.host)}
		}
		var err error
		password, err = s.getPassword(s.host, s.userid)
		if err != nil {
			return &ClientAuthError{Message: fmt.Sprintf("password callback for %s@%s failed: %v", s.userid, s.host, err)}
		}
	}

	body := Properties{"userid": s.userid, "password": password}
	// renew=false: a 403/5 during logon must not recurse into another logon.
	_, result, err := s.doRequest(ctx, http.MethodPost, sessionsURI, body, false, false)
	if err != nil {
		var herr *HTTPError
		if errors.As(err, &herr) && (herr.HTTPStatus == http.StatusForbidden || herr.HTTPStatus == http.StatusUnauthorized) {
			return &ServerAuthError{
				Message: fmt.Sprintf("HMC rejected logon of %s@%s: %s", s.userid, s.host, herr.Message),
				Details: herr,
			}
		}
		return err
	}
	props, ok := result.(Properties)
	if !ok {
		return &ParseError{Message: "logon response is not a JSON object", RequestMethod: http.MethodPost, RequestURI: sessionsURI}
	}
	id, _ := props["api-session"].(string)
	if id == "" {
		return &ServerAuthError{Message: fmt.Sprintf("logon response for %s@%s carried no api-session", s.userid, s.host)}
	}
	jobTopic, _ := props["job-notification-topic"].(string)
	objTopic, _ := props["notification-topic"].(string)

	s.mu.Lock()
	s.sessionID = id
	s.jobTopic = jobTopic
	s.objTopic = objTopic
	s.mu.Unlock()

	s.log.Debug("Logged on to HMC",
		"host", s.host, "userid", s.userid, "session", credentials.RedactToken(id))
	return nil
}

// Logoff deletes the session on the HMC and forgets the session-id.
func (s *Session) Logoff(ctx context.Context) error {
	if !s.IsLogon() {
		return nil
	}
	_, _, err := s.doRequest(ctx, http.MethodDelete, thisSessionURI, nil, true, false)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.sessionID = ""
	s.jobTopic = ""
	s.objTopic = ""
	s.mu.Unlock()
	s.log.Debug("Logged off from HMC", "host", s.host, "userid", s.userid)
	return nil
}

// Get issues a GET and returns the JSON object body, or nil for empty
// responses.
func (s *Session) Get(ctx context.Context, uri string) (Properties, error) {
	_, result, err := s.doRequest(ctx, http.MethodGet, uri, nil, true, true)
	if err != nil {
		return nil, err
	}
	return asProperties(result, http.MethodGet, uri)
}

// GetRaw issues a GET and returns the decoded body without asserting its
// shape: a Properties for JSON objects, []any for JSON arrays, string for
// text bodies, nil for empty responses.
func (s *Session) GetRaw(ctx context.Context, uri string) (any, error) {
	_, result, err := s.doRequest(ctx, http.MethodGet, uri, nil, true, true)
	return result, err
}

// Post issues a POST and waits for completion: if the HMC answers 202 with a
// job-uri, the job is polled until it completes (bounded by the configured
// operation timeout) and the job results are returned. Synchronous responses
// are returned directly.
func (s *Session) Post(ctx context.Context, uri string, body any) (Properties, error) {
	job, result, err := s.StartPost(ctx, uri, body)
	if err != nil {
		return nil, err
	}
	if job != nil {
		return job.WaitForCompletion(ctx, s.rt.OperationTimeout)
	}
	return result, nil
}

// StartPost issues a POST without waiting for job completion. For
// asynchronous responses (202 with job-uri) it returns the Job and a nil
// result; for synchronous responses it returns a nil Job and the result.
func (s *Session) StartPost(ctx context.Context, uri string, body any) (*Job, Properties, error) {
	status, result, err := s.doRequest(ctx, http.MethodPost, uri, body, true, true)
	if err != nil {
		return nil, nil, err
	}
	props, perr := asProperties(result, http.MethodPost, uri)
	if perr != nil {
		return nil, nil, perr
	}
	if status == http.StatusAccepted && props != nil {
		if jobURI, _ := props["job-uri"].(string); jobURI != "" {
			return newJob(s, jobURI, http.MethodPost, uri), nil, nil
		}
	}
	return nil, props, nil
}

// PostRaw issues a POST and returns the decoded body without asserting its
// shape and without job handling.
func (s *Session) PostRaw(ctx context.Context, uri string, body any) (any, error) {
	_, result, err := s.doRequest(ctx, http.MethodPost, uri, body, true, true)
	return result, err
}

// Delete issues a DELETE.
func (s *Session) Delete(ctx context.Context, uri string) error {
	_, _, err := s.doRequest(ctx, http.MethodDelete, uri, nil, true, true)
	return err
}

// NotificationTopic describes one topic the HMC publishes notifications on
// for this session.
type NotificationTopic struct {
	Name      string
	Type      string
	ObjectURI string
}

// GetNotificationTopics returns the notification topics of this session.
func (s *Session) GetNotificationTopics(ctx context.Context) ([]NotificationTopic, error) {
	props, err := s.Get(ctx, notifTopicsURI)
	if err != nil {
		return nil, err
	}
	infos, _ := props["topic-info"].([]any)
	topics := make([]NotificationTopic, 0, len(infos))
	for _, it := range infos {
		m, ok := it.(map[string]any)
		if !ok {
			continue
		}
		t := NotificationTopic{}
		t.Name, _ = m["topic-name"].(string)
		t.Type, _ = m["topic-type"].(string)
		t.ObjectURI, _ = m["object-uri"].(string)
		topics = append(topics, t)
	}
	return topics, nil
}

// doRequest performs one HTTP exchange with connect retries, JSON decoding,
// error categorization, and at most one transparent session renewal.
func (s *Session) doRequest(ctx context.Context, method, uri string, body any, logonRequired, renew bool) (int, any, error) {
	ctx, cid := ctxkeys.EnsureCorrelationID(ctx)

	if logonRequired && !s.IsLogon() {
		if err := s.Logon(ctx); err != nil {
			return 0, nil, err
		}
	}

	var bodyBytes []byte
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return 0, nil, fmt.Errorf("failed to marshal request body for %s %s: %w", method, uri, err)
		}
		// A typed-nil map marshals to "null"; operations without a body
		// must send none.
		if !bytes.Equal(b, []byte("null")) {
			bodyBytes = b
		}
	}

	renewed := false
	for {
		sid := ""
		if logonRequired {
			sid = s.SessionID()
		}
		status, result, err := s.doOnce(ctx, method, uri, bodyBytes, sid, cid)
		if err != nil {
			return 0, nil, err
		}

		if status < 400 {
			return status, result, nil
		}

		errBody, _ := result.(Properties)
		reason := -1
		if errBody != nil {
			if r, ok := numberAsInt(errBody["reason"]); ok {
				reason = r
			}
		}

		// Session expired: renew once and replay the request.
		if status == http.StatusForbidden && reason == ReasonSessionExpired && renew && !renewed {
			s.log.Debug("HMC session expired, renewing",
				"host", s.host, "uri", uri, "correlation_id", cid)
			metrics.IncSessionRenewal()
			if rerr := s.renewSession(ctx, sid); rerr != nil {
				return 0, nil, rerr
			}
			renewed = true
			continue
		}

		// An HTML body from HTTP 500 means the Web Services API is not
		// enabled on this HMC.
		if status == http.StatusInternalServerError && errBody == nil {
			if text, ok := result.(string); ok && strings.Contains(strings.ToLower(text), "<html") {
				return 0, nil, &HTTPError{
					HTTPStatus:    status,
					Reason:        ReasonWSAPINotEnabled,
					Message:       "Web Services API is not enabled on the HMC.",
					RequestURI:    uri,
					RequestMethod: method,
				}
			}
		}

		return 0, nil, newHTTPError(status, errBody, method, uri)
	}
}

// doOnce performs the HTTP exchange including connect retries with backoff
// and jitter. HTTP status handling is left to the caller.
func (s *Session) doOnce(ctx context.Context, method, uri string, body []byte, sessionID, cid string) (int, any, error) {
	op := method + " " + uriTemplate(uri)
	attempts := s.rt.ConnectRetries + 1
	var lastErr error

	for attempt := 1; attempt <= attempts; attempt++ {
		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, s.baseURL+uri, reader)
		if err != nil {
			return 0, nil, fmt.Errorf("failed to create request %s %s: %w", method, uri, err)
		}
		req.Header.Set("Content-Type", contentTypeJSON)
		req.Header.Set("Accept", "*/*")
		if sessionID != "" {
			req.Header.Set("X-API-Session", sessionID)
		}

		start := time.Now()
		resp, err := s.client.Do(req)
		dur := time.Since(start)

		if err != nil {
			metrics.ObserveRequest(op, -1, dur)
			werr := wrapTransportError(method, uri, s.rt, err)
			if !isTransientTransportError(werr) {
				return 0, nil, werr
			}
			lastErr = werr
			if attempt < attempts {
				sleep := retrySleep(attempt)
				metrics.IncRetry(op)
				s.log.Debug("HMC request retry",
					"op", op, "attempt", attempt, "sleep", sleep, "err", err.Error(), "correlation_id", cid)
				timer := time.NewTimer(sleep)
				select {
				case <-ctx.Done():
					timer.Stop()
					return 0, nil, ctx.Err()
				case <-timer.C:
				}
				continue
			}
			return 0, nil, &RetriesExceededError{
				Message:        fmt.Sprintf("%s %s: giving up after %d attempts: %v", method, uri, attempts, err),
				ConnectRetries: s.rt.ConnectRetries,
				Err:            werr,
			}
		}

		data, rerr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		metrics.ObserveRequest(op, resp.StatusCode, dur)
		s.stats.Observe(op, dur)
		if rerr != nil {
			return 0, nil, wrapTransportError(method, uri, s.rt, rerr)
		}

		s.log.Debug("HMC request",
			"method", method, "uri", uri, "status", resp.StatusCode, "duration", dur, "correlation_id", cid)

		result, derr := decodeBody(resp.Header.Get("Content-Type"), data, method, uri)
		if derr != nil {
			return 0, nil, derr
		}
		return resp.StatusCode, result, nil
	}

	return 0, nil, lastErr
}

// renewSession re-logs on after a session expiry. Concurrent requests that
// hit the same expiry serialize here; whoever arrives after the id already
// changed reuses the new one without another logon.
func (s *Session) renewSession(ctx context.Context, staleID string) error {
	s.renewMu.Lock()
	defer s.renewMu.Unlock()
	if cur := s.SessionID(); cur != "" && cur != staleID {
		return nil
	}
	s.mu.Lock()
	s.sessionID = ""
	s.mu.Unlock()
	return s.Logon(ctx)
}

func decodeBody(contentType string, data []byte, method, uri string) (any, error) {
	if len(data) == 0 {
		return nil, nil
	}
	if !strings.Contains(strings.ToLower(contentType), "json") {
		return string(data), nil
	}
	var result any
	if err := json.Unmarshal(data, &result); err != nil {
		line, col := errorPosition(data, err)
		return nil, &ParseError{
			Message:       err.Error(),
			Line:          line,
			Column:        col,
			RequestMethod: method,
			RequestURI:    uri,
		}
	}
	if m, ok := result.(map[string]any); ok {
		return Properties(m), nil
	}
	return result, nil
}

// errorPosition derives line/column from the byte offset of a JSON error.
func errorPosition(data []byte, err error) (int, int) {
	var offset int64 = -1
	var synErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.As(err, &synErr):
		offset = synErr.Offset
	case errors.As(err, &typeErr):
		offset = typeErr.Offset
	}
	if offset < 0 || offset > int64(len(data)) {
		return 0, 0
	}
	line, col := 1, 1
	for _, b := range data[:offset] {
		if b == '\n' {
			line++
			col = 1
		} else {
			col++
		}
	}
	return line, col
}

func asProperties(result any, method, uri string) (Properties, error) {
	if result == nil {
		return nil, nil
	}
	if p, ok := result.(Properties); ok {
		return p, nil
	}
	return nil, &ParseError{
		Message:       fmt.Sprintf("response body is %T, not a JSON object", result),
		RequestMethod: method,
		RequestURI:    uri,
	}
}

// retrySleep computes the backoff with jitter for a connect retry.
func retrySleep(attempt int) time.Duration {
	exp := attempt - 1
	if exp > 10 {
		exp = 10 // cap exponent to prevent overflow
	}
	backoff := defaultRetryBaseDelay * (1 << exp)
	if backoff > defaultRetryMaxDelay {
		backoff = defaultRetryMaxDelay
	}
	jitter := time.Duration(rand.Float64() * defaultRetryJitterFrac * float64(backoff) * 2)
	return backoff - time.Duration(defaultRetryJitterFrac*float64(backoff)) + jitter
}

var idSegment = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)

// uriTemplate collapses object ids in a URI so that statistics group by
// operation rather than by resource.
func uriTemplate(uri string) string {
	path, _, _ := strings.Cut(uri, "?")
	segs := strings.Split(path, "/")
	for i, seg := range segs {
		if idSegment.MatchString(seg) {
			segs[i] = "{id}"
		}
	}
	return strings.Join(segs, "/")
}
