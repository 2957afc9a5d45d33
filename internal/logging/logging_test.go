package logging

import (
	"bytes"
	"encoding/json"
	"regexp"
	"testing"
)

func TestLogger(t *testing.T) {
	var stdout, stderr bytes.Buffer
	logger := New(&stdout, &stderr)

	logger.Info("Reading configuration file: hillipop.json", "main")
	re := regexp.MustCompile(`^\[\d{4}/\d{2}/\d{2} \d{2}:\d{2}:\d{2}\] \[main\] Reading configuration file: hillipop.json\n$`)
	if !re.MatchString(stdout.String()) {
		t.Errorf("Info() wrote %q", stdout.String())
	}

	logger.Error("cannot open file")
	var record map[string]any
	if err := json.Unmarshal(stderr.Bytes(), &record); err != nil {
		t.Fatalf("Error() wrote invalid JSON %q: %v", stderr.String(), err)
	}
	if record["msg"] != "cannot open file" || record["level"] != "ERROR" {
		t.Errorf("Error() record = %v", record)
	}
}
