package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"time"

	"github.com/wolfeidau/gazerecorder/internal/models"
	"github.com/wolfeidau/gazerecorder/internal/recorder"
	"github.com/wolfeidau/gazerecorder/internal/tracking"
)

// RecordCmd records one session by replaying a tracking trace.
type RecordCmd struct {
	Trace       string        `help:"Trace file (YAML or JSON) to replay" required:"" type:"existingfile"`
	Duration    time.Duration `help:"Stop recording after this long; 0 waits for the trace to finish" default:"0s"`
	DeviceModel string        `help:"Device model recorded with the session" default:"replay"`
}

func (c *RecordCmd) Run(ctx context.Context, globals *Globals) error {
	log := globals.setupLogger()

	cfg, err := globals.loadConfig()
	if err != nil {
		return err
	}

	stopTelemetry := globals.startTelemetry(ctx, cfg.AppID, log)
	defer stopTelemetry()

	trace, err := tracking.LoadTrace(c.Trace)
	if err != nil {
		return err
	}

	sessions, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore(sessions, log)

	clock := tracking.NewSystemClock()
	tracker := tracking.NewReplayTracker(trace, clock, log)

	device := recorder.DeviceInfoFunc(func() models.DeviceInfo {
		return models.DeviceInfo{
			Model:         c.DeviceModel,
			ScreenSize:    models.ScreenSize{Width: trace.Viewport.Width, Height: trace.Viewport.Height},
			SystemName:    runtime.GOOS,
			SystemVersion: runtime.Version(),
		}
	})

	rec, err := recorder.New(cfg.Recorder(), tracker, device,
		recorder.WithClock(clock),
		recorder.WithStore(sessions),
		recorder.WithLogger(log),
	)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	started, err := rec.Start(ctx)
	if err != nil {
		if errors.Is(err, recorder.ErrHardwareUnsupported) {
			return fmt.Errorf("trace reports face tracking as unsupported: %w", err)
		}
		return err
	}

	var timeout <-chan time.Time
	if c.Duration > 0 {
		timer := time.NewTimer(c.Duration)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case <-tracker.Done():
	case <-timeout:
		log.Info().Dur("duration", c.Duration).Msg("Recording duration reached")
	case <-ctx.Done():
		log.Info().Msg("Recording interrupted")
	}

	// End must still persist after an interrupt.
	ended, err := rec.End(context.WithoutCancel(ctx))
	if ended != nil {
		fmt.Fprintf(globals.stdout(), "Recorded session %s: %d gaze points, %d signal samples, %.3fs\n",
			started.ID,
			len(ended.ScanPath),
			ended.SampleCount()-len(ended.ScanPath),
			*ended.EndTime-ended.BeginTime,
		)
	}
	return err
}
