package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/audionhq/timbre/internal/announce"
	"github.com/audionhq/timbre/internal/announce/discord"
	"github.com/audionhq/timbre/internal/announce/slack"
	"github.com/audionhq/timbre/internal/api"
	"github.com/audionhq/timbre/internal/archive"
	"github.com/audionhq/timbre/internal/callback"
	"github.com/audionhq/timbre/internal/config"
	"github.com/audionhq/timbre/internal/media"
	"github.com/audionhq/timbre/internal/registry"
	"github.com/audionhq/timbre/internal/storage"
	"github.com/audionhq/timbre/internal/trainer"
)

func newServeCmd() *cobra.Command {
	var (
		configPath   string
		promptSecret bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the training service",
		Long:  "Loads the config file, wires the training pipeline, and serves the job API until interrupted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, configPath, promptSecret)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "timbre.yaml", "path to Timbre config file")
	cmd.Flags().BoolVar(&promptSecret, "prompt-secret", false, "prompt for the auth secret instead of reading it from config")
	return cmd
}

func runServe(cmd *cobra.Command, configPath string, promptSecret bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if promptSecret {
		secret, err := readSecret(cmd)
		if err != nil {
			return err
		}
		cfg.AuthSecret = secret
	}
	if cfg.AuthSecret == "" {
		return fmt.Errorf("auth secret is required (set auth_secret or use --prompt-secret)")
	}

	arch, err := archive.Open(archive.Opts{
		Driver: cfg.Archive.Driver,
		Path:   cfg.Archive.Path,
		DSN:    cfg.Archive.DSN,
	})
	if err != nil {
		return err
	}

	store, err := storage.New(storage.Opts{
		Endpoint:      cfg.Storage.Endpoint,
		Region:        cfg.Storage.Region,
		AccessKey:     cfg.Storage.AccessKey,
		SecretKey:     cfg.Storage.SecretKey,
		UseSSL:        cfg.Storage.UseSSL,
		PublicBaseURL: cfg.Storage.PublicBaseURL,
	})
	if err != nil {
		return err
	}

	announcer, err := buildAnnouncer(cfg)
	if err != nil {
		return err
	}
	defer announcer.Close()

	reg := registry.New()
	tr := &trainer.Trainer{
		Registry:   reg,
		Fetcher:    &media.Fetcher{},
		Normalizer: &media.Normalizer{FFmpegBin: cfg.Tools.FFmpegBin, MinClipSeconds: cfg.Tools.MinClipSeconds},
		Encoder:    &media.Encoder{Bin: cfg.Tools.EncoderBin, Tag: cfg.Tools.EncoderTag},
		Synthesizer: &media.Synthesizer{
			Bin: cfg.Tools.TTSBin,
		},
		Publisher: store,
		Callback: &callback.Dispatcher{
			URL:     cfg.Callback.URL,
			Secret:  cfg.AuthSecret,
			Timeout: time.Duration(cfg.Callback.TimeoutSeconds) * time.Second,
			Version: cfg.Version,
		},
		Announcer:     announcer,
		Archive:       arch,
		DataDir:       cfg.DataDir,
		ModelsBucket:  cfg.Storage.ModelsBucket,
		PreviewBucket: cfg.Storage.PreviewBucket,
		PreviewText:   cfg.Preview.Text,
		PreviewLang:   cfg.Preview.Language,
		ModelVersion:  cfg.Version,
		EncoderTag:    cfg.Tools.EncoderTag,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if announcer.Enabled() {
		digester := &announce.Digester{
			Announcer: announcer,
			Summarize: func(since time.Time) (announce.Summary, error) {
				s, err := arch.Summarize(since)
				return announce.Summary(s), err
			},
			Schedule: cfg.Announce.DigestSchedule,
		}
		go func() {
			if err := digester.Run(ctx); err != nil {
				log.Printf("serve: digest loop: %v", err)
			}
		}()
	}

	fmt.Fprintf(cmd.OutOrStdout(), "timbre serving on %s\n", cfg.ListenAddr)
	return api.Start(ctx, api.StartOpts{
		Registry:   reg,
		Trainer:    tr,
		AuthSecret: cfg.AuthSecret,
		Addr:       cfg.ListenAddr,
	})
}

// buildAnnouncer creates chat adapters for every configured platform. No
// platforms configured yields a disabled announcer.
func buildAnnouncer(cfg *config.Config) (*announce.Announcer, error) {
	var adapters []announce.Adapter

	if cfg.Announce.Slack.Enabled() {
		a, err := slack.New(slack.AdapterOpts{
			BotToken:  cfg.Announce.Slack.BotToken,
			ChannelID: cfg.Announce.Slack.Channel,
		})
		if err != nil {
			return nil, err
		}
		adapters = append(adapters, a)
	}

	if cfg.Announce.Discord.Enabled() {
		a, err := discord.New(discord.AdapterOpts{
			BotToken:  cfg.Announce.Discord.BotToken,
			ChannelID: cfg.Announce.Discord.Channel,
		})
		if err != nil {
			return nil, err
		}
		adapters = append(adapters, a)
	}

	return announce.New(adapters...), nil
}

// readSecret reads the auth secret from the terminal without echo, falling
// back to a plain line read when stdin is not a terminal.
func readSecret(cmd *cobra.Command) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		var secret string
		if _, err := fmt.Fscanln(cmd.InOrStdin(), &secret); err != nil {
			return "", fmt.Errorf("read auth secret: %w", err)
		}
		return strings.TrimSpace(secret), nil
	}

	fmt.Fprint(cmd.OutOrStdout(), "Auth secret: ")
	raw, err := term.ReadPassword(fd)
	fmt.Fprintln(cmd.OutOrStdout())
	if err != nil {
		return "", fmt.Errorf("read auth secret: %w", err)
	}
	secret := strings.TrimSpace(string(raw))
	if secret == "" {
		return "", fmt.Errorf("auth secret is empty")
	}
	return secret, nil
}
