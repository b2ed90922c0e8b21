package sink

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jpalmerr/sensorbridge/telemetry"
)

// topicFor replaces every "%s" in tmpl with the device name. Other "%"
// sequences are left alone.
func topicFor(tmpl, device string) string {
	return strings.ReplaceAll(tmpl, "%s", device)
}

// encode marshals a sample for the wire sinks.
func encode(s telemetry.Sample) ([]byte, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode sample: %w", err)
	}
	return b, nil
}
