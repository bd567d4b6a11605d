package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/wolfeidau/gazerecorder/internal/models"
)

var errStoreUnreadable = errors.New("session store could not be read, see the log for details")

type ListCmd struct{}

func (l *ListCmd) Run(ctx context.Context, globals *Globals) error {
	sessions, _, cleanup, err := globals.openSessions(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	all, ok := sessions.FetchAll(ctx)
	if !ok {
		return errStoreUnreadable
	}

	printSessions(globals.stdout(), all)
	return nil
}

func printSessions(w io.Writer, sessions []*models.Session) {
	if len(sessions) == 0 {
		fmt.Fprintln(w, "No sessions found.")
		return
	}

	fmt.Fprintf(w, "%-36s %-24s %-20s %-10s %-8s %-8s\n",
		"Session ID", "App ID", "Began At", "Duration", "Gaze", "Signals")
	fmt.Fprintln(w, strings.Repeat("─", 111))

	for _, s := range sessions {
		appID := s.AppID
		if len(appID) > 24 {
			appID = appID[:21] + "..."
		}

		began := time.Unix(0, int64(s.BeginTime*float64(time.Second))).Format("2006-01-02 15:04:05")

		duration := "active"
		if s.EndTime != nil {
			duration = fmt.Sprintf("%.1fs", *s.EndTime-s.BeginTime)
		}

		fmt.Fprintf(w, "%-36s %-24s %-20s %-10s %-8d %-8d\n",
			s.ID,
			appID,
			began,
			duration,
			len(s.ScanPath),
			s.SampleCount()-len(s.ScanPath))
	}

	fmt.Fprintf(w, "\nTotal sessions: %d\n", len(sessions))
}
