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
	"context"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"
)

// Reason codes the library gives symbolic treatment. Anything else the HMC
// reports is carried verbatim in HTTPError.Reason.
const (
	ReasonMissingRequiredProperty = 5   // with HTTP 400
	ReasonInvalidValue            = 8   // with HTTP 400
	ReasonInvalidFamily           = 18  // with HTTP 400
	ReasonSessionExpired          = 5   // with HTTP 403
	ReasonResourceNotFound        = 1   // with HTTP 404
	ReasonOSChannelExists         = 331 // with HTTP 409
	ReasonPrerequisiteMissing     = 487 // with HTTP 409
	ReasonMissingDiscoveryInfo    = 501 // with HTTP 409
	ReasonWrongStatus             = 263 // with HTTP 500
	ReasonWSAPINotEnabled         = 900 // synthetic, HTML from HTTP 500
)

// HTTPError is any error reported by the HMC through an error response body.
// All fields are preserved for programmatic use.
type HTTPError struct {
	HTTPStatus    int
	Reason        int
	Message       string
	RequestURI    string
	RequestMethod string
	Body          Properties // raw parsed error body, nil if none
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HMC error %d,%d: %s [%s %s]",
		e.HTTPStatus, e.Reason, e.Message, e.RequestMethod, e.RequestURI)
}

// StrDef produces the canonical one-line form for logs.
func (e *HTTPError) StrDef() string {
	return fmt.Sprintf("classname: HTTPError, request_method: %s, request_uri: %s, http_status: %d, reason: %d, message: %s",
		e.RequestMethod, e.RequestURI, e.HTTPStatus, e.Reason, e.Message)
}

// newHTTPError builds an HTTPError from a parsed HMC error body, falling back
// to the transport status when the body lacks the standard fields.
func newHTTPError(status int, body Properties, method, uri string) *HTTPError {
	e := &HTTPError{
		HTTPStatus:    status,
		RequestURI:    uri,
		RequestMethod: method,
		Body:          body,
	}
	if body != nil {
		if v, ok := numberAsInt(body["http-status"]); ok {
			e.HTTPStatus = v
		}
		if v, ok := numberAsInt(body["reason"]); ok {
			e.Reason = v
		}
		e.Message, _ = body["message"].(string)
		if v, ok := body["request-uri"].(string); ok && v != "" {
			e.RequestURI = v
		}
		if v, ok := body["request-method"].(string); ok && v != "" {
			e.RequestMethod = v
		}
	}
	return e
}

// ParseError indicates a non-JSON or malformed JSON response body.
type ParseError struct {
	Message       string
	Line          int
	Column        int
	RequestMethod string
	RequestURI    string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("cannot parse response of %s %s as JSON: %s (line %d, column %d)",
		e.RequestMethod, e.RequestURI, e.Message, e.Line, e.Column)
}

// StrDef produces the canonical one-line form for logs.
func (e *ParseError) StrDef() string {
	return fmt.Sprintf("classname: ParseError, line: %d, column: %d, message: %s", e.Line, e.Column, e.Message)
}

// ClientAuthError indicates missing or invalid local credentials, detected
// before any network call.
type ClientAuthError struct {
	Message string
}

func (e *ClientAuthError) Error() string { return e.Message }

// StrDef produces the canonical one-line form for logs.
func (e *ClientAuthError) StrDef() string {
	return "classname: ClientAuthError, message: " + e.Message
}

// ServerAuthError indicates that the HMC rejected the credentials or the
// session.
type ServerAuthError struct {
	Message string
	Details *HTTPError
}

func (e *ServerAuthError) Error() string { return e.Message }

func (e *ServerAuthError) Unwrap() error {
	if e.Details == nil {
		return nil
	}
	return e.Details
}

// StrDef produces the canonical one-line form for logs.
func (e *ServerAuthError) StrDef() string {
	return "classname: ServerAuthError, message: " + e.Message
}

// ConnectionError is a transport-level failure that is neither a timeout nor
// a TLS problem.
type ConnectionError struct {
	Message string
	Err     error
}

func (e *ConnectionError) Error() string { return e.Message }
func (e *ConnectionError) Unwrap() error { return e.Err }

// ConnectTimeoutError indicates that establishing the TCP/TLS connection
// exceeded the connect timeout, including all connect retries.
type ConnectTimeoutError struct {
	Message        string
	ConnectTimeout time.Duration
	ConnectRetries int
	Err            error
}

func (e *ConnectTimeoutError) Error() string { return e.Message }
func (e *ConnectTimeoutError) Unwrap() error { return e.Err }

// ReadTimeoutError indicates that reading the HTTP response exceeded the
// read timeout.
type ReadTimeoutError struct {
	Message     string
	ReadTimeout time.Duration
	Err         error
}

func (e *ReadTimeoutError) Error() string { return e.Message }
func (e *ReadTimeoutError) Unwrap() error { return e.Err }

// RetriesExceededError indicates that the configured number of connect
// retries was exhausted without reaching the HMC.
type RetriesExceededError struct {
	Message        string
	ConnectRetries int
	Err            error
}

func (e *RetriesExceededError) Error() string { return e.Message }
func (e *RetriesExceededError) Unwrap() error { return e.Err }

// SSLError indicates a TLS handshake or certificate verification failure.
type SSLError struct {
	Message string
	Err     error
}

func (e *SSLError) Error() string { return e.Message }
func (e *SSLError) Unwrap() error { return e.Err }

// NotFoundError is the client-side find() cardinality error for zero matches.
type NotFoundError struct {
	ClassName string
	Filter    Filter
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no %s resource matches filter %v", e.ClassName, e.Filter)
}

// NoUniqueMatchError is the client-side find() cardinality error for two or
// more matches.
type NoUniqueMatchError struct {
	ClassName string
	Filter    Filter
	URIs      []string
}

func (e *NoUniqueMatchError) Error() string {
	return fmt.Sprintf("%d %s resources match filter %v: %s",
		len(e.URIs), e.ClassName, e.Filter, strings.Join(e.URIs, ", "))
}

// StatusTimeoutError indicates that a resource did not reach any of the
// expected statuses within the status timeout.
type StatusTimeoutError struct {
	Resource         string
	ActualStatus     string
	ExpectedStatuses []string
	Timeout          time.Duration
}

func (e *StatusTimeoutError) Error() string {
	return fmt.Sprintf("waiting for status of %s timed out after %s: status is %q, expected one of %v",
		e.Resource, e.Timeout, e.ActualStatus, e.ExpectedStatuses)
}

// OperationTimeoutError indicates that waiting for completion of an
// asynchronous HMC job exceeded the operation timeout.
type OperationTimeoutError struct {
	Message string
	Timeout time.Duration
}

func (e *OperationTimeoutError) Error() string { return e.Message }

// CeasedExistenceError indicates an operation attempted on a resource that is
// known to no longer exist on the HMC.
type CeasedExistenceError struct {
	URI string
}

func (e *CeasedExistenceError) Error() string {
	return fmt.Sprintf("resource %s no longer exists", e.URI)
}

// ConsistencyError indicates a violated local invariant, such as a URI/OID or
// class mismatch in a materialized resource object.
type ConsistencyError struct {
	Message string
}

func (e *ConsistencyError) Error() string { return e.Message }

// MetricsResourceNotFoundError indicates that a metric object value
// references a resource that is not known locally.
type MetricsResourceNotFoundError struct {
	MetricGroup string
	ResourceURI string
}

func (e *MetricsResourceNotFoundError) Error() string {
	return fmt.Sprintf("resource %s referenced by metric group %q not found", e.ResourceURI, e.MetricGroup)
}

// wrapTransportError categorizes a failure of the HTTP round trip.
func wrapTransportError(method, uri string, rt RetryTimeoutConfig, err error) error {
	msg := fmt.Sprintf("%s %s: %v", method, uri, err)

	var certErr *x509.CertificateInvalidError
	var unknownAuth x509.UnknownAuthorityError
	var hostErr x509.HostnameError
	if errors.As(err, &certErr) || errors.As(err, &unknownAuth) || errors.As(err, &hostErr) ||
		strings.Contains(err.Error(), "x509:") || strings.Contains(err.Error(), "tls:") {
		return &SSLError{Message: msg, Err: err}
	}

	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		var opErr *net.OpError
		if errors.As(err, &opErr) && opErr.Op == "dial" {
			return &ConnectTimeoutError{
				Message:        msg,
				ConnectTimeout: rt.ConnectTimeout,
				ConnectRetries: rt.ConnectRetries,
				Err:            err,
			}
		}
		return &ReadTimeoutError{Message: msg, ReadTimeout: rt.ReadTimeout, Err: err}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &ReadTimeoutError{Message: msg, ReadTimeout: rt.ReadTimeout, Err: err}
	}

	return &ConnectionError{Message: msg, Err: err}
}

// isTransientTransportError reports whether the transport failure is worth a
// connect retry. HTTP-level errors never reach this path.
func isTransientTransportError(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	var sslErr *SSLError
	if errors.As(err, &sslErr) {
		return false
	}
	var readTimeout *ReadTimeoutError
	return !errors.As(err, &readTimeout)
}

// asHTTPError unwraps err into an HTTPError if one is in the chain.
func asHTTPError(err error, target **HTTPError) bool {
	return errors.As(err, target)
}

func numberAsInt(v any) (int, bool) {
	switch n := v.(type) {
	case float64:
		return int(n), true
	case int:
		return n, true
	case int64:
		return int(n), true
	}
	return 0, false
}
