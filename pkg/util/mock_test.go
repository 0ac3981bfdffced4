package util

import (
	"testing"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go"
	"github.com/stretchr/testify/assert"
)

func TestRecordingWriteAPI(t *testing.T) {
	r := &RecordingWriteAPI{}
	r.WritePoint(influxdb2.NewPoint("a", nil, map[string]interface{}{"n": 1}, time.Now()))
	r.WritePoint(influxdb2.NewPoint("b", nil, map[string]interface{}{"n": 2}, time.Now()))
	r.WritePoint(influxdb2.NewPoint("a", nil, map[string]interface{}{"n": 3}, time.Now()))

	assert.Len(t, r.Points("a"), 2)
	assert.Len(t, r.Points("b"), 1)
	assert.Empty(t, r.Points("c"))
}

func TestTimeOperationMicroseconds(t *testing.T) {
	us := TimeOperationMicroseconds(func() { time.Sleep(2 * time.Millisecond) })
	assert.GreaterOrEqual(t, us, int64(2000))
}
