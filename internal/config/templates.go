package config

import (
	"fmt"
	"os"
)

func Template() string {
	return clientTemplate
}

func WriteTemplate(path string, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(clientTemplate), 0o600)
}

const clientTemplate = `host = "127.0.0.1"
port = 11730
debug = false
dial_timeout = "5s"
check_correlation = false
log_level = "info"
`
