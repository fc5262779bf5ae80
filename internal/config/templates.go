package config

import (
	"fmt"
	"os"
	"strings"
)

func Template(kind string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "", "decoder":
		return decoderTemplate, nil
	case "service":
		return decoderTemplate + serviceTemplate, nil
	default:
		return "", fmt.Errorf("unknown config kind: %s", kind)
	}
}

func WriteTemplate(path, kind string, overwrite bool) error {
	template, err := Template(kind)
	if err != nil {
		return err
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(template), 0o600)
}

const decoderTemplate = `[beacon]
container_size = 77

[telemetry]
# 30 for older flight software builds, 36 for newer ones
task_count = 30

[output]
dir = "decoded"
formats = ["csv", "jsonl"]

[log]
level = "info"
file = ""
`

const serviceTemplate = `
[server]
addr = ":9300"
cors_origins = ["http://localhost:3000"]
max_body_bytes = 16777216

[ingest]
url = "ws://127.0.0.1:6660"
request_id = 0
handshake_timeout = "10s"
`
