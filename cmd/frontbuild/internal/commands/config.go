package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

type ConfigCmd struct {
	ModeFlag `embed:""`
	Format   string `help:"Output format." default:"yaml" enum:"yaml,json"`

	out io.Writer `kong:"-"`
}

func (c *ConfigCmd) Run(ctx context.Context, globals *Globals) error {
	cfg, _, err := globals.load(c.ModeFlag)
	if err != nil {
		return fmt.Errorf("failed to resolve project root: %w", err)
	}

	out := c.out
	if out == nil {
		out = os.Stdout
	}

	switch c.Format {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(cfg)
	default:
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(cfg); err != nil {
			return fmt.Errorf("failed to encode configuration: %w", err)
		}
		return enc.Close()
	}
}
