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

package credentials

// RedactToken redacts an API session token for logging.
// Shows first 4 and last 4 characters with an ellipsis.
func RedactToken(token string) string {
	if token == "" {
		return ""
	}
	if len(token) <= 8 {
		return "********"
	}
	return token[:4] + "…" + token[len(token)-4:]
}

// RedactPassword always returns "[REDACTED]" for any non-empty password.
// This ensures no password information leaks in logs.
func RedactPassword(password string) string {
	if password == "" {
		return ""
	}
	return "[REDACTED]"
}
