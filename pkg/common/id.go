package common

import (
	"strings"

	"github.com/google/uuid"
)

// NewRunID returns a short identifier used to correlate the log lines of one sync run.
func NewRunID() string {
	return "run-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}
