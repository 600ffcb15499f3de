package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRunInitDoesNotPersistEnvSecrets(t *testing.T) {
	cfgFile = filepath.Join(t.TempDir(), "config.yaml")
	defer func() { cfgFile = "" }()

	t.Setenv("VELOCOUNT_MQTT_PASSWORD", "hunter2")
	t.Setenv("VELOCOUNT_INFLUX_TOKEN", "secret-token")

	if err := runInit(initCmd, nil); err != nil {
		t.Fatalf("runInit returned error: %v", err)
	}

	data, err := os.ReadFile(cfgFile)
	if err != nil {
		t.Fatalf("reading written config: %v", err)
	}
	written := string(data)
	for _, secret := range []string{"hunter2", "secret-token"} {
		if strings.Contains(written, secret) {
			t.Errorf("Config file contains environment secret %q:\n%s", secret, written)
		}
	}
	if !strings.Contains(written, "bicycle-monthly-counts") {
		t.Errorf("Expected defaults to be filled in:\n%s", written)
	}
}
