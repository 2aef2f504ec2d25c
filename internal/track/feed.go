package track

import (
	"context"

	"github.com/gorilla/websocket"

	"github.com/pathwaylabs/engage/internal/logging"
)

// feedEvent is one visibility transition frame from the page runtime.
type feedEvent struct {
	Type string `json:"type"`
	Kind Kind   `json:"kind"`
	Key  string `json:"key,omitempty"`
}

// Feed consumes visibility events over a websocket and drives a Tracker.
// The page runtime pushes a frame whenever a tracked region enters or
// leaves the viewport.
type Feed struct {
	url     string
	tracker *Tracker
	log     *logging.Logger
}

func NewFeed(url string, tracker *Tracker, log *logging.Logger) *Feed {
	return &Feed{url: url, tracker: tracker, log: log.Sub("feed")}
}

// Run dials the feed and processes frames until the connection drops or
// the context is cancelled. Open timers are flushed on exit so partially
// viewed regions still count.
func (f *Feed) Run(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, f.url, nil)
	if err != nil {
		return err
	}
	defer conn.Close()
	defer f.tracker.Flush()

	stop := context.AfterFunc(ctx, func() {
		conn.Close()
	})
	defer stop()

	f.log.Info().Str("url", f.url).Msg("visibility feed connected")

	for {
		var ev feedEvent
		if err := conn.ReadJSON(&ev); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return err
		}

		switch ev.Type {
		case "visible":
			f.tracker.OnVisible(ev.Kind, ev.Key)
		case "hidden":
			f.tracker.OnHidden(ev.Kind, ev.Key)
		default:
			f.log.Debug().Str("type", ev.Type).Msg("unknown feed frame")
		}
	}
}
