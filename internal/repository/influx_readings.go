package repository

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"sensor_monitor/internal/models"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
)

const (
	influxMeasurement = "sensor_data"
	influxField       = "value"
	influxSensorTag   = "sensor_id"

	// how far back FetchLatest looks for the newest point
	latestLookback = "-1h"
)

// InfluxReadings reads sensor history from an InfluxDB bucket. Points are
// expected in measurement "sensor_data", field "value", tag "sensor_id".
type InfluxReadings struct {
	client influxdb2.Client
	query  api.QueryAPI
	bucket string
	loc    *time.Location
}

// NewInfluxReadings connects to url with token and queries org/bucket.
// Query dates are interpreted in loc (UTC when nil).
func NewInfluxReadings(url, token, org, bucket string, loc *time.Location) *InfluxReadings {
	if loc == nil {
		loc = time.UTC
	}
	client := influxdb2.NewClient(url, token)
	return &InfluxReadings{
		client: client,
		query:  client.QueryAPI(org),
		bucket: bucket,
		loc:    loc,
	}
}

// Close releases the client's resources.
func (r *InfluxReadings) Close() {
	r.client.Close()
}

// FetchReadings implements the history fetch contract.
func (r *InfluxReadings) FetchReadings(ctx context.Context, q models.QueryDescriptor) ([]models.Reading, error) {
	from, to, err := q.Bounds(r.loc)
	if err != nil {
		return nil, err
	}
	flux := buildRangeQuery(r.bucket, from, to, q.SensorID)
	return r.run(ctx, flux)
}

// FetchLatest implements the latest-reading contract.
func (r *InfluxReadings) FetchLatest(ctx context.Context) ([]models.Reading, error) {
	return r.run(ctx, buildLatestQuery(r.bucket))
}

func (r *InfluxReadings) run(ctx context.Context, flux string) ([]models.Reading, error) {
	result, err := r.query.Query(ctx, flux)
	if err != nil {
		return nil, fmt.Errorf("influx query: %w", err)
	}
	defer result.Close()

	var out []models.Reading
	for result.Next() {
		rec := result.Record()
		reading, err := toReading(rec.ValueByKey(influxSensorTag), rec.Value(), rec.Time())
		if err != nil {
			return nil, err
		}
		out = append(out, reading)
	}
	if err := result.Err(); err != nil {
		return nil, fmt.Errorf("influx result: %w", err)
	}

	// one table per series; merge them into a single timeline
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out, nil
}

func buildRangeQuery(bucket string, from, to time.Time, sensorID *int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "from(bucket: %q)\n", bucket)
	fmt.Fprintf(&b, "  |> range(start: %s, stop: %s)\n", from.UTC().Format(time.RFC3339), to.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "  |> filter(fn: (r) => r._measurement == %q and r._field == %q)\n", influxMeasurement, influxField)
	if sensorID != nil {
		fmt.Fprintf(&b, "  |> filter(fn: (r) => r.%s == %q)\n", influxSensorTag, strconv.Itoa(*sensorID))
	}
	b.WriteString(`  |> sort(columns: ["_time"])`)
	return b.String()
}

func buildLatestQuery(bucket string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "from(bucket: %q)\n", bucket)
	fmt.Fprintf(&b, "  |> range(start: %s)\n", latestLookback)
	fmt.Fprintf(&b, "  |> filter(fn: (r) => r._measurement == %q and r._field == %q)\n", influxMeasurement, influxField)
	b.WriteString("  |> last()")
	return b.String()
}

// toReading converts a Flux record's tag, value and time into a Reading.
func toReading(tag any, value any, ts time.Time) (models.Reading, error) {
	tagStr, ok := tag.(string)
	if !ok {
		return models.Reading{}, fmt.Errorf("influx record: missing %s tag", influxSensorTag)
	}
	id, err := strconv.Atoi(tagStr)
	if err != nil {
		return models.Reading{}, fmt.Errorf("influx record: bad %s %q: %w", influxSensorTag, tagStr, err)
	}

	var v float64
	switch x := value.(type) {
	case float64:
		v = x
	case int64:
		v = float64(x)
	case uint64:
		v = float64(x)
	default:
		return models.Reading{}, fmt.Errorf("influx record: unsupported value type %T", value)
	}
	return models.Reading{SensorID: id, Value: v, Timestamp: ts.UTC()}, nil
}
