package util

import (
	"sync"

	"github.com/influxdata/influxdb-client-go/api/write"
)

// DiscardWriteAPI satisfies api.WriteAPI and drops every point. It stands in
// when no InfluxDB host is configured.
type DiscardWriteAPI struct{}

func (m *DiscardWriteAPI) WriteRecord(line string) {}

func (m *DiscardWriteAPI) WritePoint(point *write.Point) {}

func (m *DiscardWriteAPI) Flush() {}

func (m *DiscardWriteAPI) Close() {}

func (m *DiscardWriteAPI) Errors() <-chan error { return nil }

// RecordingWriteAPI keeps every point it is given, for tests.
type RecordingWriteAPI struct {
	mu     sync.Mutex
	points []*write.Point
}

func (r *RecordingWriteAPI) WriteRecord(line string) {}

func (r *RecordingWriteAPI) WritePoint(point *write.Point) {
	r.mu.Lock()
	r.points = append(r.points, point)
	r.mu.Unlock()
}

func (r *RecordingWriteAPI) Flush() {}

func (r *RecordingWriteAPI) Close() {}

func (r *RecordingWriteAPI) Errors() <-chan error { return nil }

// Points returns the recorded points with the given measurement name.
func (r *RecordingWriteAPI) Points(measurement string) []*write.Point {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ret []*write.Point
	for _, p := range r.points {
		if p.Name() == measurement {
			ret = append(ret, p)
		}
	}
	return ret
}
