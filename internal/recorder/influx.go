package recorder

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
)

// influxSink writes each sample as a point to an InfluxDB bucket. It is
// configured entirely from the environment (typically via .env):
// INFLUXDB_HOST, INFLUXDB_TOKEN, INFLUXDB_ORG, INFLUXDB_BUCKET.
type influxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	device   string
}

// newInfluxSinkFromEnv returns (nil, nil) when the sink is not configured.
func newInfluxSinkFromEnv() (Sink, error) {
	host := os.Getenv("INFLUXDB_HOST")
	token := os.Getenv("INFLUXDB_TOKEN")
	org := os.Getenv("INFLUXDB_ORG")
	bucket := os.Getenv("INFLUXDB_BUCKET")

	if host == "" {
		return nil, nil
	}
	if token == "" || org == "" || bucket == "" {
		return nil, fmt.Errorf("incomplete InfluxDB configuration (need INFLUXDB_TOKEN, INFLUXDB_ORG, INFLUXDB_BUCKET)")
	}

	client := influxdb2.NewClient(host, token)
	return &influxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
		device:   os.Getenv("DEVICE_TAG"),
	}, nil
}

func (s *influxSink) Write(sample *Sample) error {
	fields := map[string]interface{}{
		"elapsed_ms":   sample.ElapsedMS,
		"ram_freq_khz": sample.RAMFreqKHz,
	}
	for policy, freq := range sample.CPUFreqKHz {
		fields["cpu_freq_khz_"+policy] = freq
	}
	for zone, temp := range sample.TempMilliC {
		fields["temp_milli_c_"+zone] = temp
	}
	if sample.Cycles > 0 {
		fields["cycles"] = strconv.FormatUint(sample.Cycles, 10)
	}
	if sample.Instructions > 0 {
		fields["instructions"] = strconv.FormatUint(sample.Instructions, 10)
	}

	point := influxdb2.NewPoint("dvfs_sample",
		map[string]string{"device": s.device},
		fields,
		sample.Timestamp,
	)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.writeAPI.WritePoint(ctx, point)
}

func (s *influxSink) Close() error {
	s.client.Close()
	return nil
}
