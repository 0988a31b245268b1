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

package record

import (
	"bytes"
	"io"
	"os"

	"github.com/juju/ratelimit"
)

// NewReadBucket returns a token bucket limiting reads to mbPerSec
// megabytes per second, or nil (no limit) if mbPerSec is zero.
func NewReadBucket(mbPerSec float64) *ratelimit.Bucket {
	if mbPerSec <= 0 {
		return nil
	}
	rate := mbPerSec * 1024 * 1024
	return ratelimit.NewBucketWithRate(rate, int64(rate))
}

// Load reads a whole capture file into memory. If bucket is not nil
// reading is throttled by it, so a check can run alongside a capture
// that is still writing to the same disk.
func Load(path string, bucket *ratelimit.Bucket) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var r io.Reader = f
	if bucket != nil {
		r = ratelimit.Reader(f, bucket)
	}

	buf := new(bytes.Buffer)
	if info, err := f.Stat(); err == nil {
		buf.Grow(int(info.Size()))
	}
	if _, err := io.Copy(buf, r); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
