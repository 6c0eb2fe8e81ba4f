package questionserver

import (
	"time"

	"github.com/opencode-ai/opencode-engine/internal/apperr"
)

func nowMillis() int64 {
	return time.Now().UnixMilli()
}

// rejectReasonError wraps a caller-supplied reason string so
// question.Broker.Reject surfaces it verbatim as the Ask error.
func rejectReasonError(reason string) error {
	return apperr.New(apperr.Cancelled, "%s", reason)
}
