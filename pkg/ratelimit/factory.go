// SPDX-License-Identifier: AGPL-3.0
// Copyright 2025 Kadir Pekel
//
// Licensed under the GNU Affero General Public License v3.0 (AGPL-3.0) (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.gnu.org/licenses/agpl-3.0.en.html
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ratelimit

import (
	"database/sql"
	"fmt"
)

// DefaultLimits approximates a token-bucket limiter allowing roughly 5
// requests per minute per teacher with a burst of 10, expressed on this
// package's windowed counter model: a tight per-minute ceiling plus a
// looser per-hour ceiling absorbs bursts without letting a runaway client
// sustain a high rate.
func DefaultLimits() []LimitRule {
	return []LimitRule{
		{Type: LimitTypeCount, Window: WindowMinute, Limit: 10},
		{Type: LimitTypeCount, Window: WindowHour, Limit: 120},
	}
}

// NewMemoryRateLimiter builds a per-teacher limiter backed by an in-process
// store, for single-instance or development deployments.
func NewMemoryRateLimiter(limits []LimitRule) (RateLimiter, error) {
	return NewRateLimiter(&Config{Enabled: true, Limits: limits}, NewMemoryStore())
}

// NewSQLRateLimiter builds a per-teacher limiter backed by db, so usage
// counters are shared across every gateway instance talking to it.
func NewSQLRateLimiter(db *sql.DB, dialect string, limits []LimitRule) (RateLimiter, error) {
	store, err := NewSQLStore(db, dialect)
	if err != nil {
		return nil, fmt.Errorf("ratelimit: build sql store: %w", err)
	}
	return NewRateLimiter(&Config{Enabled: true, Limits: limits}, store)
}

// TeacherIdentifierFunc scopes rate limiting to the authenticated teacher
// id rather than session or remote address, for a per-teacher throttle.
// identify must return "" for an unauthenticated request so the
// middleware passes it through to the auth layer.
type TeacherIdentifierFunc = IdentifierFunc
