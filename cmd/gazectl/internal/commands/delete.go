package commands

import (
	"context"
	"fmt"
)

type DeleteCmd struct {
	ID  string `help:"Delete the session with this id" xor:"target" required:""`
	All bool   `help:"Delete every session, keeping the table" xor:"target" required:""`
}

func (c *DeleteCmd) Run(ctx context.Context, globals *Globals) error {
	sessions, log, cleanup, err := globals.openSessions(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	if c.All {
		if err := sessions.DeleteAll(ctx); err != nil {
			return err
		}
		log.Info().Msg("All sessions deleted")
		fmt.Fprintln(globals.stdout(), "Deleted all sessions")
		return nil
	}

	session, ok := sessions.FetchOne(ctx, c.ID)
	if !ok {
		return fmt.Errorf("session %s not found", c.ID)
	}
	if err := sessions.DeleteOne(ctx, session); err != nil {
		return err
	}

	log.Info().Str("session_id", c.ID).Msg("Session deleted")
	fmt.Fprintf(globals.stdout(), "Deleted session %s\n", c.ID)
	return nil
}

// EraseCmd drops the session schema entirely.
type EraseCmd struct {
	Force bool `help:"Confirm erasing all stored data" required:""`
}

func (c *EraseCmd) Run(ctx context.Context, globals *Globals) error {
	sessions, log, cleanup, err := globals.openSessions(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	if err := sessions.Erase(ctx); err != nil {
		return err
	}

	log.Warn().Msg("Session store erased")
	fmt.Fprintln(globals.stdout(), "Erased session store")
	return nil
}
