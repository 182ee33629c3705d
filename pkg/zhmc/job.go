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
	"fmt"
	"time"

	"zhmc/internal/metrics"
)

// JobStatusComplete is the terminal job status reported by the HMC.
const JobStatusComplete = "complete"

// Job is the handle for an asynchronous HMC operation, identified by the job
// URI from an HTTP 202 response.
type Job struct {
	session  *Session
	uri      string
	opMethod string
	opURI    string
}

func newJob(s *Session, uri, opMethod, opURI string) *Job {
	return &Job{session: s, uri: uri, opMethod: opMethod, opURI: opURI}
}

// URI returns the job URI.
func (j *Job) URI() string { return j.uri }

// CheckForCompletion polls the job once. While the job is running it returns
// the current status and a nil result. On completion with a job-status-code
// in [200,400) the job resource is released and the job results are
// returned; other codes produce an HTTPError built from the job status and
// reason codes.
func (j *Job) CheckForCompletion(ctx context.Context) (string, Properties, error) {
	metrics.IncJobPoll()
	props, err := j.session.Get(ctx, j.uri)
	if err != nil {
		return "", nil, err
	}
	status, _ := props["status"].(string)
	if status != JobStatusComplete {
		return status, nil, nil
	}

	code, ok := numberAsInt(props["job-status-code"])
	if !ok {
		return "", nil, &ConsistencyError{
			Message: fmt.Sprintf("completed job %s carries no job-status-code", j.uri),
		}
	}
	results, _ := props["job-results"].(map[string]any)

	if code >= 200 && code < 400 {
		if err := j.session.Delete(ctx, j.uri); err != nil {
			j.session.log.Warn("Failed to release completed job", "job", j.uri, "error", err)
		}
		if results == nil {
			return JobStatusComplete, nil, nil
		}
		return JobStatusComplete, Properties(results), nil
	}

	reason := -1
	if r, ok := numberAsInt(props["job-reason-code"]); ok {
		reason = r
	}
	var message string
	if results != nil {
		if m, ok := results["error"].(string); ok {
			message = m
		} else if m, ok := results["message"].(string); ok {
			message = m
		}
	}
	return "", nil, &HTTPError{
		HTTPStatus:    code,
		Reason:        reason,
		Message:       message,
		RequestURI:    j.opURI,
		RequestMethod: j.opMethod,
	}
}

// WaitForCompletion polls the job until it completes, sleeping the configured
// job poll interval between polls. A positive timeout bounds the wall-clock
// wait; zero waits forever. Completion found on the final poll takes priority
// over the timeout.
func (j *Job) WaitForCompletion(ctx context.Context, timeout time.Duration) (Properties, error) {
	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}
	for {
		status, result, err := j.CheckForCompletion(ctx)
		if err != nil {
			return nil, err
		}
		if status == JobStatusComplete {
			return result, nil
		}
		if !deadline.IsZero() && time.Now().After(deadline) {
			return nil, &OperationTimeoutError{
				Message: fmt.Sprintf("Waiting for completion of job %s timed out after %s (last status %q)",
					j.uri, timeout, status),
				Timeout: timeout,
			}
		}
		timer := time.NewTimer(j.session.rt.JobPollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

// Cancel releases the job on the HMC. Jobs whose operation does not support
// cancellation answer with an HTTPError.
func (j *Job) Cancel(ctx context.Context) error {
	err := j.session.Delete(ctx, j.uri)
	if err != nil {
		return fmt.Errorf("failed to cancel job %s: %w", j.uri, err)
	}
	return nil
}
