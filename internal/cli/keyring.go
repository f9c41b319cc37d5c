package cli

import (
	"errors"
	"fmt"

	"github.com/julianstephens/eyecare/internal/keyring"
	"github.com/julianstephens/eyecare/internal/storage/postgres"
)

type KeyringCmd struct {
	Set    KeyringSetCmd    `cmd:"" help:"Store the PostgreSQL connection string."`
	Get    KeyringGetCmd    `cmd:"" help:"Show the stored connection string with the password masked."`
	Delete KeyringDeleteCmd `cmd:"" help:"Remove the stored connection string."`
	Status KeyringStatusCmd `cmd:"" help:"Check whether the OS keyring is usable." default:"1"`
}

// Seams for tests.
var (
	keyringSetFunc    = keyring.SetConnectionString
	keyringGetFunc    = keyring.GetConnectionString
	keyringDeleteFunc = keyring.DeleteConnectionString
	keyringAvailable  = keyring.IsAvailable
)

// KeyringSetCmd stores database connection credentials in the OS keyring
type KeyringSetCmd struct {
	ConnectionString string `arg:"" help:"PostgreSQL connection string to store in keyring"`
}

func (cmd *KeyringSetCmd) Run(ctx *Context) error {
	if !postgres.IsConnString(cmd.ConnectionString) {
		return errors.New("connection string must be a valid PostgreSQL connection string")
	}

	if _, err := postgres.ValidateConnString(cmd.ConnectionString); err != nil {
		if !errors.Is(err, postgres.ErrEmbeddedCredentials) {
			return fmt.Errorf("invalid connection string: %w", err)
		}
		// the keyring is a secret store, embedded passwords are fine here
		fmt.Fprintln(ctx.out(), "⚠️  Connection string contains embedded credentials; storing it in the OS keyring.")
	}

	if err := keyringSetFunc(cmd.ConnectionString); err != nil {
		return err
	}

	fmt.Fprintln(ctx.out(), "✓ Connection string stored successfully in OS keyring")
	fmt.Fprintln(ctx.out(), "  eyecare will use it when no --store is given")
	return nil
}

// KeyringGetCmd retrieves database connection credentials from the OS keyring
type KeyringGetCmd struct{}

func (cmd *KeyringGetCmd) Run(ctx *Context) error {
	connStr, err := keyringGetFunc()
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return errors.New("no connection string found in keyring. Use 'eyecare keyring set' to store one")
		}
		return fmt.Errorf("failed to retrieve connection string from keyring: %w", err)
	}

	fmt.Fprintln(ctx.out(), "Connection string retrieved from keyring:")
	fmt.Fprintln(ctx.out(), keyring.MaskPassword(connStr))
	return nil
}

// KeyringDeleteCmd removes database connection credentials from the OS keyring
type KeyringDeleteCmd struct{}

func (cmd *KeyringDeleteCmd) Run(ctx *Context) error {
	if err := keyringDeleteFunc(); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return errors.New("no connection string found in keyring")
		}
		return err
	}

	fmt.Fprintln(ctx.out(), "✓ Connection string deleted from OS keyring")
	return nil
}

// KeyringStatusCmd checks the availability of the OS keyring
type KeyringStatusCmd struct{}

func (cmd *KeyringStatusCmd) Run(ctx *Context) error {
	if !keyringAvailable() {
		fmt.Fprintln(ctx.out(), "❌ OS keyring is not available on this system")
		return keyring.ErrKeyringUnavailable
	}
	fmt.Fprintln(ctx.out(), "✓ OS keyring is available")

	_, err := keyringGetFunc()
	switch {
	case err == nil:
		fmt.Fprintln(ctx.out(), "✓ Connection string is stored in keyring")
	case errors.Is(err, keyring.ErrNotFound):
		fmt.Fprintln(ctx.out(), "ℹ No connection string stored in keyring")
	}
	return nil
}
