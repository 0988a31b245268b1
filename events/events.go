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

// Package events queues audit results on the device event service so
// they are uploaded with the device's other events.
package events

import (
	"encoding/json"
	"time"

	"github.com/godbus/dbus"
	"github.com/google/uuid"
)

const (
	dbusDest  = "org.cacophony.Events"
	dbusPath  = "/org/cacophony/Events"
	queueCall = dbusDest + ".Queue"
	eventType = "frameCheck"
)

// Queuer hands a serialised event to the event service.
type Queuer interface {
	Queue(details []byte, ts time.Time) error
}

// DBusQueuer queues events over the system bus.
type DBusQueuer struct{}

func (DBusQueuer) Queue(details []byte, ts time.Time) error {
	conn, err := dbus.SystemBus()
	if err != nil {
		return err
	}
	obj := conn.Object(dbusDest, dbusPath)
	return obj.Call(queueCall, 0, details, ts.UnixNano()).Err
}

// FrameCheck is the outcome of auditing one camera channel.
type FrameCheck struct {
	CheckID    string
	Device     string
	Path       string
	Channel    int
	CatchRate  float64
	Caught     int
	Dropped    int
	Total      uint64
	OutOfOrder int
}

// Details returns the event details in the shape expected by the
// event service.
func (fc FrameCheck) Details() map[string]interface{} {
	return map[string]interface{}{
		"description": map[string]interface{}{
			"type": eventType,
			"details": map[string]interface{}{
				"checkID":    fc.CheckID,
				"device":     fc.Device,
				"path":       fc.Path,
				"channel":    fc.Channel,
				"catchRate":  fc.CatchRate,
				"caught":     fc.Caught,
				"dropped":    fc.Dropped,
				"total":      fc.Total,
				"outOfOrder": fc.OutOfOrder,
			},
		},
	}
}

// NewRecorder returns a Recorder which queues events with q. Every
// event it records carries the same check ID so the channels of one
// invocation can be grouped together.
func NewRecorder(q Queuer) *Recorder {
	return &Recorder{
		q:       q,
		checkID: uuid.New().String(),
		nowFunc: time.Now,
	}
}

type Recorder struct {
	q       Queuer
	checkID string
	nowFunc func() time.Time
}

// CheckID returns the ID attached to this recorder's events.
func (r *Recorder) CheckID() string {
	return r.checkID
}

// Record queues a frameCheck event.
func (r *Recorder) Record(fc FrameCheck) error {
	fc.CheckID = r.checkID
	detailsJSON, err := json.Marshal(fc.Details())
	if err != nil {
		return err
	}
	return r.q.Queue(detailsJSON, r.nowFunc())
}
