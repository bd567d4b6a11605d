package commands

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/wolfeidau/gazerecorder/internal/codec"
	"github.com/wolfeidau/gazerecorder/internal/models"
)

// ExportCmd writes stored sessions in the exchange format.
type ExportCmd struct {
	ID        string `help:"Export only this session"`
	SnakeCase bool   `help:"Use snake_case keys instead of the declared names"`
	Archive   bool   `help:"Write a compressed, checksummed archive instead of JSON (all sessions only)"`
	Indent    bool   `help:"Indent JSON output" default:"true" negatable:""`
	Out       string `help:"Output file; stdout when empty" type:"path"`
}

func (c *ExportCmd) Validate() error {
	if c.Archive && c.ID != "" {
		return fmt.Errorf("--archive exports every session and cannot be combined with --id")
	}
	return nil
}

func (c *ExportCmd) Run(ctx context.Context, globals *Globals) error {
	sessions, log, cleanup, err := globals.openSessions(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	opts := codec.Options{Keys: codec.KeysAsDeclared, Indent: c.Indent}
	if c.SnakeCase {
		opts.Keys = codec.KeysSnakeCase
	}

	var (
		data  []byte
		count int
	)

	switch {
	case c.ID != "":
		session, ok := sessions.FetchOne(ctx, c.ID)
		if !ok {
			return fmt.Errorf("session %s not found", c.ID)
		}
		if data, err = codec.EncodeSession(session, opts); err != nil {
			return err
		}
		count = 1

	default:
		all, ok := sessions.FetchAll(ctx)
		if !ok {
			return errStoreUnreadable
		}
		if data, err = c.encodeAll(all, opts); err != nil {
			return err
		}
		count = len(all)
	}

	if c.Out == "" {
		_, err = globals.stdout().Write(data)
		if err == nil && !c.Archive {
			_, err = fmt.Fprintln(globals.stdout())
		}
		return err
	}

	if err := os.WriteFile(c.Out, data, 0o600); err != nil {
		return fmt.Errorf("failed to write export: %w", err)
	}

	log.Info().Int("sessions", count).Str("path", c.Out).Str("keys", opts.Keys.String()).Bool("archive", c.Archive).Msg("Sessions exported")
	return nil
}

func (c *ExportCmd) encodeAll(all []*models.Session, opts codec.Options) ([]byte, error) {
	if !c.Archive {
		return codec.EncodeSessions(all, opts)
	}

	var buf bytes.Buffer
	if err := codec.WriteSessionsArchive(&buf, all, opts); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
