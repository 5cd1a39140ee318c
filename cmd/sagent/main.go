// Command sagent loads the configuration, builds the configured agent and
// sends it a single prompt.
//
//	sagent [-config path] [-prompt text]
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/leofalp/sagent/core/agent"
	"github.com/leofalp/sagent/core/settings"
	"github.com/leofalp/sagent/providers/observability/slogobs"

	_ "github.com/joho/godotenv/autoload"
)

func main() {
	configPath := flag.String("config", "", "configuration file (default: config.{yaml,yml,json} in the working directory)")
	prompt := flag.String("prompt", "hi", "prompt to send")
	flag.Parse()

	observer := slogobs.New(
		slogobs.WithFormat(slogobs.FormatFromEnv()),
		slogobs.WithLevel(slogobs.LevelFromEnv()),
		slogobs.WithOutput(os.Stderr),
	)
	slog.SetDefault(observer.Logger())

	if err := run(context.Background(), *configPath, *prompt, observer); err != nil {
		slog.Error("sagent failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath, prompt string, observer *slogobs.Observer) error {
	cfg, err := loadSettings(configPath)
	if err != nil {
		return err
	}
	fmt.Println(cfg)

	sa, err := cfg.Agent(settings.HookFunc(func(b *agent.Builder) *agent.Builder {
		if cfg.Debug {
			return b.Observer(observer)
		}
		return b
	}))
	if err != nil {
		return err
	}

	response, err := sa.Prompt(ctx, prompt)
	if err != nil {
		return err
	}
	fmt.Println(response)
	return nil
}

func loadSettings(path string) (*settings.Settings, error) {
	if path != "" {
		return settings.LoadFile(path)
	}
	return settings.Load()
}
