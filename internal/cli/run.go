package cli

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pkoster/pairchoice/internal/clock"
	"github.com/pkoster/pairchoice/internal/config"
	"github.com/pkoster/pairchoice/internal/experiment"
	"github.com/pkoster/pairchoice/internal/logging"
	"github.com/pkoster/pairchoice/internal/presentation"
	"github.com/pkoster/pairchoice/internal/randomizer"
	"github.com/pkoster/pairchoice/internal/server"
	"github.com/pkoster/pairchoice/internal/session"
	"github.com/pkoster/pairchoice/internal/submit"
	"github.com/pkoster/pairchoice/internal/telemetry"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the experiment agent and wait for the subject",
	RunE:  runAgent,
}

func init() {
	runCmd.Flags().String("address", "", "listen address for the front-end API")
	runCmd.Flags().String("experiment-file", "", "path to the experiment definition YAML")
	runCmd.Flags().String("endpoint", "", "crowdsourcing submission endpoint")
	_ = viper.BindPFlag("address", runCmd.Flags().Lookup("address"))
	_ = viper.BindPFlag("experiment.file", runCmd.Flags().Lookup("experiment-file"))
	_ = viper.BindPFlag("submission.endpoint", runCmd.Flags().Lookup("endpoint"))

	rootCmd.AddCommand(runCmd)
}

func runAgent(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log, err := logging.New(logging.Options{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})
	if err != nil {
		return err
	}
	slog.SetDefault(log)

	def, err := experiment.Load(cfg.Experiment.File)
	if err != nil {
		return err
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := randomizer.New(seed)

	trials, err := rng.BuildTrialOrder(def.LeftStimuli, def.RightStimuli)
	if err != nil {
		return fmt.Errorf("build trial order: %w", err)
	}

	clk := clock.New(nil)

	tel, err := telemetry.New(telemetry.Options{
		Interval: time.Duration(cfg.Timing.SampleMS) * time.Millisecond,
		Clock:    clk,
		Viewport: telemetry.Viewport{
			OffsetX: cfg.Viewport.OffsetX,
			OffsetY: cfg.Viewport.OffsetY,
			Width:   cfg.Viewport.Width,
			Height:  cfg.Viewport.Height,
		},
		Logger: log,
	})
	if err != nil {
		return err
	}

	views := presentation.NewState(def.RenderInstructions())
	submitter := submit.NewHTTPSubmitter(
		cfg.Submission.Endpoint,
		time.Duration(cfg.Submission.TimeoutSec)*time.Second,
		log,
	)

	sess, err := session.New(session.Options{
		Trials:      trials,
		Clock:       clk,
		Telemetry:   tel,
		Renderer:    views,
		Randomizer:  rng,
		Submitter:   submitter,
		SettleDelay: time.Duration(cfg.Timing.SettleMS) * time.Millisecond,
		BlankDelay:  time.Duration(cfg.Timing.BlankMS) * time.Millisecond,
		SubmitDelay: time.Duration(cfg.Timing.SubmitDelayMS) * time.Millisecond,
		Logger:      log,
	})
	if err != nil {
		return err
	}

	log.Info("experiment loaded",
		"title", def.Title,
		"trials", len(trials),
		"seed", seed)

	// The session starts when the front-end posts /start; until then the
	// subject sees the instructions and nothing is sampled or timed.
	return server.NewServer(sess, views, cfg.Address, log).Start()
}
