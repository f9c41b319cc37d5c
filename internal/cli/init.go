package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/julianstephens/eyecare/internal/config"
)

type InitCmd struct {
	WriteConfig bool `help:"Also write a default config file if none exists."`
}

func (c *InitCmd) Run(ctx *Context) error {
	bg := context.Background()
	if err := ctx.Store.Init(bg); err != nil {
		return err
	}
	fmt.Fprintf(ctx.out(), "Initialized eyecare storage at: %s\n", ctx.Store.GetConfigPath())

	if !c.WriteConfig {
		return nil
	}
	path, err := config.ExpandPath(config.DefaultPath())
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); err == nil {
		fmt.Fprintf(ctx.out(), "Config file already exists: %s\n", path)
		return nil
	}
	if err := config.DefaultConfig().Save(path); err != nil {
		return err
	}
	fmt.Fprintf(ctx.out(), "Wrote default config: %s\n", path)
	return nil
}
