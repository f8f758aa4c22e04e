package config_test

import (
	"strings"
	"testing"

	"github.com/samirrijal/trackmotion/internal/pkg/config"
	"github.com/samirrijal/trackmotion/internal/pkg/geospatial"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := config.Load("trackmotion-test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("port = %d", cfg.Server.Port)
	}
	if cfg.Telemetry.ServiceName != "trackmotion-test" {
		t.Errorf("service name = %q", cfg.Telemetry.ServiceName)
	}
	if cfg.Kinematics.Model() != geospatial.ModelWGS84 {
		t.Errorf("model = %q", cfg.Kinematics.Model())
	}
	if cfg.Output.ChartWidthIn != 12 || cfg.Output.ChartHeightIn != 6 {
		t.Errorf("chart size = %vx%v", cfg.Output.ChartWidthIn, cfg.Output.ChartHeightIn)
	}
	if cfg.Temporal.TaskQueue != "track-analysis" {
		t.Errorf("task queue = %q", cfg.Temporal.TaskQueue)
	}
	if cfg.Server.DocsRoute != "/docs" || cfg.Server.OpenAPIPath != "api/openapi.yaml" {
		t.Errorf("docs = %q %q", cfg.Server.DocsRoute, cfg.Server.OpenAPIPath)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("TRACKMOTION_SERVER_PORT", "9090")
	t.Setenv("TRACKMOTION_KINEMATICS_DISTANCE_MODEL", "sphere")
	t.Setenv("TRACKMOTION_KINEMATICS_PARALLEL_AXES", "true")

	cfg, err := config.Load("x")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("port = %d", cfg.Server.Port)
	}
	if cfg.Kinematics.Model() != geospatial.ModelSphere || !cfg.Kinematics.ParallelAxes {
		t.Errorf("kinematics = %+v", cfg.Kinematics)
	}
}

func TestLoad_InvalidModel(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("TRACKMOTION_KINEMATICS_DISTANCE_MODEL", "flat")

	_, err := config.Load("x")
	if err == nil || !strings.Contains(err.Error(), "kinematics.distance_model") {
		t.Errorf("expected distance model error, got %v", err)
	}
}

func TestValidate_CollectsAllProblems(t *testing.T) {
	cfg := &config.Config{}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error")
	}
	for _, want := range []string{"server.port", "database.host", "nats.url", "log.format"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error missing %q: %v", want, err)
		}
	}
}

func TestDatabaseDSN(t *testing.T) {
	d := config.DatabaseConfig{User: "u", Password: "p", Host: "db", Port: 5432, DBName: "tm", SSLMode: "disable"}
	if got := d.DSN(); got != "postgres://u:p@db:5432/tm?sslmode=disable" {
		t.Errorf("DSN = %s", got)
	}
}
