package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const validYAML = `
environment: development
server:
  port: 8080
kafka:
  brokers: ["localhost:9092"]
  input_topic: signals.raw
  output_topic: signals.composite
  consumer:
    group_id: composite-processor
schema:
  rules:
    - field: symbol
      kind: string
    - field: anomaly_detected
      kind: any
      optional: true
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	c, err := Load(writeConfig(t, validYAML))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Environment != "development" {
		t.Fatalf("environment = %q", c.Environment)
	}
	if c.Kafka.InputTopic != "signals.raw" || c.Kafka.OutputTopic != "signals.composite" {
		t.Fatalf("topics = %q / %q", c.Kafka.InputTopic, c.Kafka.OutputTopic)
	}
	if len(c.Schema.Rules) != 2 {
		t.Fatalf("rules = %d", len(c.Schema.Rules))
	}
	if !c.Schema.Rules[1].Optional {
		t.Fatalf("anomaly_detected rule should be optional")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatalf("expected error")
	}
}

func TestValidateFailures(t *testing.T) {
	cases := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "missing environment",
			yaml: strings.Replace(validYAML, "environment: development", "", 1),
			want: "environment",
		},
		{
			name: "no brokers",
			yaml: strings.Replace(validYAML, `brokers: ["localhost:9092"]`, "", 1),
			want: "brokers",
		},
		{
			name: "same topics",
			yaml: strings.Replace(validYAML, "output_topic: signals.composite", "output_topic: signals.raw", 1),
			want: "must differ",
		},
		{
			name: "bad rule kind",
			yaml: strings.Replace(validYAML, "kind: any", "kind: float", 1),
			want: "kind",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.yaml))
			if err == nil {
				t.Fatalf("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error %q does not mention %q", err, tc.want)
			}
		})
	}
}

func TestValidateStreamRequiresURL(t *testing.T) {
	cfg := validYAML + "\nstream:\n  enabled: true\n"
	if _, err := Load(writeConfig(t, cfg)); err == nil {
		t.Fatalf("enabled stream without url must fail validation")
	}
}

func TestLoadWithEnvOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("KAFKA_OUTPUT_TOPIC", "signals.composite.v2")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("STREAM_SYMBOLS", "AAPL,MSFT")

	c, err := LoadWithEnv(writeConfig(t, validYAML))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Server.Port != 9090 {
		t.Fatalf("port = %d", c.Server.Port)
	}
	if len(c.Kafka.Brokers) != 2 || c.Kafka.Brokers[1] != "k2:9092" {
		t.Fatalf("brokers = %v", c.Kafka.Brokers)
	}
	if c.Kafka.OutputTopic != "signals.composite.v2" {
		t.Fatalf("output topic = %q", c.Kafka.OutputTopic)
	}
	if !c.Cache.Redis.Enabled || c.Cache.Redis.Addr != "redis:6379" {
		t.Fatalf("redis override not applied: %+v", c.Cache.Redis)
	}
	if len(c.Stream.Symbols) != 2 {
		t.Fatalf("symbols = %v", c.Stream.Symbols)
	}
}
