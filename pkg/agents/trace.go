package agents

import (
	"context"
	"time"

	"github.com/entrhq/waypoint/pkg/logging"
	"github.com/entrhq/waypoint/pkg/navigation"
)

// Trace logs every navigation that reaches it and how the rest of the chain
// treated it.
type Trace struct {
	logger *logging.Logger
}

// NewTrace logs through logger.
func NewTrace(logger *logging.Logger) *Trace {
	if logger == nil {
		logger = logging.Discard("trace")
	}
	return &Trace{logger: logger}
}

func (t *Trace) Intercept(ctx context.Context, cur *navigation.Cursor, req navigation.Request) error {
	from := "<none>"
	if req.From != nil {
		from = req.From.Href()
	}
	t.logger.Debugf("%s %s -> %s", req.Action, from, req.Target.Href())

	start := time.Now()
	err := cur.Next(ctx)
	if err != nil {
		t.logger.Warnf("%s to %s failed downstream after %s: %v", req.Action, req.Target.Href(), time.Since(start), err)
		return err
	}
	t.logger.Debugf("%s to %s passed the chain in %s", req.Action, req.Target.Href(), time.Since(start))
	return nil
}
