// frame-check - audit frame continuity of camera captures
//  Copyright (C) 2025, The Cacophony Project
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

package loglimiter

import (
	"fmt"
	"log"
	"time"
)

// New returns a new LogLimiter with the configured minimum log interval.
func New(interval time.Duration) *LogLimiter {
	return &LogLimiter{
		interval: interval,
		nowFunc:  time.Now,
	}
}

// LogLimiter will suppress log messages if a message with the same key
// is seen within some time interval. Print and Printf use the message
// itself as the key.
type LogLimiter struct {
	interval    time.Duration
	nowFunc     func() time.Time
	previousKey string
	previousAt  time.Time
	pending     int
	suppressed  int
}

func (limiter *LogLimiter) Printf(format string, v ...interface{}) {
	limiter.Print(fmt.Sprintf(format, v...))
}

func (limiter *LogLimiter) Print(s string) {
	limiter.print(s, s)
}

// Keyf logs a formatted message unless another message with the same
// key was logged within the interval. This allows messages that differ
// only in their details, such as a frame number, to be limited
// together.
func (limiter *LogLimiter) Keyf(key, format string, v ...interface{}) {
	limiter.print(key, fmt.Sprintf(format, v...))
}

func (limiter *LogLimiter) print(key, s string) {
	now := limiter.nowFunc()
	if key == limiter.previousKey && now.Sub(limiter.previousAt) < limiter.interval {
		limiter.pending++
		limiter.suppressed++
		return
	}

	limiter.Flush()
	log.Print(s)
	limiter.previousAt = now
	limiter.previousKey = key
}

// Flush logs how many messages were suppressed since the last message
// let through, if any.
func (limiter *LogLimiter) Flush() {
	if limiter.pending > 0 {
		log.Printf("(%d similar messages suppressed)", limiter.pending)
		limiter.pending = 0
	}
}

// Suppressed returns the total number of messages suppressed.
func (limiter *LogLimiter) Suppressed() int {
	return limiter.suppressed
}
