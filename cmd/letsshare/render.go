package main

import (
	"fmt"
	"io"
	"time"

	"github.com/opd-ai/letsshare/session"
	"github.com/schollz/progressbar/v3"
)

// renderEvents prints status messages and a progress bar until the
// connection reaches a terminal status. It returns the failure, if any.
func renderEvents(events <-chan session.Event, out io.Writer) error {
	var bar *progressbar.ProgressBar
	var description string
	closeBar := func(success bool) {
		if bar == nil {
			return
		}
		if success {
			_ = bar.Finish()
		} else {
			fmt.Fprintln(out)
		}
		bar = nil
	}

	for ev := range events {
		switch ev.Kind {
		case session.EventProgress:
			if bar == nil {
				bar = newProgressBar(out, ev.Progress.Total, description)
			}
			_ = bar.Set64(ev.Progress.Transferred)

		case session.EventCompleted:
			closeBar(true)
			fmt.Fprintln(out, ev.Message)
			return nil

		case session.EventFailed:
			closeBar(false)
			return ev.Err

		case session.EventStatus:
			switch ev.Status {
			case session.StatusDisconnected:
				closeBar(false)
				return session.ErrCancelled
			case session.StatusCompleted, session.StatusFailed:
				// Followed by the matching terminal event
			case session.StatusTransferring:
				description = ev.Message
			default:
				if ev.Message != "" {
					fmt.Fprintln(out, ev.Message)
				}
			}
		}
	}
	return session.ErrSessionClosed
}

func newProgressBar(out io.Writer, total int64, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions64(total,
		progressbar.OptionSetWriter(out),
		progressbar.OptionSetDescription(description),
		progressbar.OptionShowBytes(true),
		progressbar.OptionSetWidth(30),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionOnCompletion(func() { fmt.Fprintln(out) }),
	)
}
