package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/whisper/battlewatch/internal/messaging"
)

// formatRemoval renders a subscriber.removed payload as one line. Payloads
// that do not decode are printed raw.
func formatRemoval(data []byte) string {
	var ev messaging.SubscriberRemoved
	if err := json.Unmarshal(data, &ev); err != nil || ev.Handle == "" {
		return fmt.Sprintf("unparsable event: %s", data)
	}
	return fmt.Sprintf("%s removed %s: %s", ev.RemovedAt.UTC().Format(time.RFC3339), ev.Handle, ev.Reason)
}
