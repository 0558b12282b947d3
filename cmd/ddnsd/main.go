package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/judwhite/go-svc"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
)

var version = "dev"

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "ddnsd: %s\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "ddnsd",
		Usage:   "keep a DNS record pointed at this host's public address",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to the YAML config file",
				Value:   defaultConfigPath,
				EnvVars: []string{envPrefix + "_CONFIG"},
			},
		},
		Action: runDaemon,
		Commands: []*cli.Command{
			{
				Name:    "run",
				Aliases: []string{"daemon"},
				Usage:   "run the update loop until interrupted (default)",
				Action:  runDaemon,
			},
			{
				Name:   "once",
				Usage:  "run a single update cycle and exit",
				Action: runOnce,
			},
			{
				Name:    "check",
				Aliases: []string{"ip"},
				Usage:   "print the current public addresses without updating anything",
				Action:  runCheck,
			},
			{
				Name:   "setup",
				Usage:  "prompt for a Cloudflare API token and store it in api_token_file",
				Action: runSetupCommand,
			},
		},
	}
}

func runDaemon(c *cli.Context) error {
	return svc.Run(&program{configPath: c.String("config")}, syscall.SIGINT, syscall.SIGTERM)
}

func runOnce(c *cli.Context) error {
	cfg, err := loadConfig(c.String("config"))
	if err != nil {
		return err
	}
	logger, closer := logFromConfig(cfg.Log)
	defer closer.Close()

	client, err := buildClient(cfg, logger)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cache := client.LoadCache()
	if err := client.RunDDNS(ctx, &cache); err != nil {
		return errors.Wrap(err, "failed to update record")
	}
	return nil
}

func runCheck(c *cli.Context) error {
	cfg, err := loadConfig(c.String("config"))
	if err != nil {
		return err
	}
	resolver, err := buildResolver(cfg.Resolver)
	if err != nil {
		return err
	}
	var failed bool
	for _, f := range cfg.Families() {
		a, err := resolver.Resolve(c.Context, f)
		if err != nil {
			failed = true
			fmt.Fprintf(c.App.ErrWriter, "%s: %s\n", f, err)
			continue
		}
		fmt.Fprintf(c.App.Writer, "%s: %s\n", f, a)
	}
	if failed {
		return cli.Exit("", 1)
	}
	return nil
}

func runSetupCommand(c *cli.Context) error {
	cfg, err := loadConfig(c.String("config"))
	if err != nil {
		return err
	}
	logger, closer := logFromConfig(cfg.Log)
	defer closer.Close()
	return runSetup(c.Context, cfg.APITokenFile, c.App.Writer, logger)
}
