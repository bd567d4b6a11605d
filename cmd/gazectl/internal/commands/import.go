package commands

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/wolfeidau/gazerecorder/internal/codec"
	"github.com/wolfeidau/gazerecorder/internal/models"
)

// ImportCmd loads exported sessions into the store. A file holding a single
// session, an array of sessions or an object keyed by session id is accepted.
type ImportCmd struct {
	File    string `arg:"" help:"Exported JSON or archive file" type:"existingfile"`
	Archive bool   `help:"Read an archive written by export --archive"`
}

func (c *ImportCmd) Run(ctx context.Context, globals *Globals) error {
	data, err := os.ReadFile(c.File)
	if err != nil {
		return fmt.Errorf("failed to read import: %w", err)
	}

	imported, err := c.decode(data)
	if err != nil {
		return err
	}

	sessions, log, cleanup, err := globals.openSessions(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	if len(imported) > 0 {
		if err := sessions.WriteMany(ctx, imported); err != nil {
			return err
		}
	}

	log.Info().Int("sessions", len(imported)).Str("path", c.File).Msg("Sessions imported")
	fmt.Fprintf(globals.stdout(), "Imported %d sessions\n", len(imported))
	return nil
}

func (c *ImportCmd) decode(data []byte) ([]*models.Session, error) {
	if c.Archive {
		return codec.ReadSessionsArchive(bytes.NewReader(data))
	}

	many, err := codec.DecodeSessions(data)
	if err == nil {
		return many, nil
	}

	one, oneErr := codec.DecodeSession(data)
	if oneErr != nil {
		// neither a collection nor a single session
		return nil, errors.Join(err, oneErr)
	}
	return []*models.Session{one}, nil
}
