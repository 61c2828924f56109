package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/povarna/generative-ai-agents/chart-agent/internal/models"
	"github.com/povarna/generative-ai-agents/chart-agent/internal/setup"
	applog "github.com/povarna/generative-ai-agents/chart-agent/internal/setup/logger"
	red "github.com/povarna/generative-ai-agents/chart-agent/internal/stream/redis"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type options struct {
	jobID       string
	prompt      string
	current     string
	instruction string
	stream      string
}

func main() {
	_ = godotenv.Load()
	cfg := setup.LoadConfig()

	fs := flag.NewFlagSet("producer", flag.ExitOnError)
	opts := parseFlags(fs, os.Args[1:], cfg)

	job, err := buildJob(opts.jobID, opts.prompt, opts.current, opts.instruction)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		fmt.Fprintln(os.Stderr, "Usage: producer -p '<prompt>' | producer -c '<json>' -i '<instruction>'")
		fs.PrintDefaults()
		os.Exit(1)
	}

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = applog.NewConsole(cfg.LogLevel)

	if err := run(cfg, job, opts.stream); err != nil {
		log.Error().Err(err).Msg("producer failed")
		os.Exit(1)
	}
}

// parseFlags reads the command line. The stream defaults to the worker's
// configured stream so both sides agree when CHART_STREAM is set.
func parseFlags(fs *flag.FlagSet, args []string, cfg *setup.Config) options {
	var opts options
	fs.StringVar(&opts.prompt, "p", "", "Chart description for a generate job")
	fs.StringVar(&opts.current, "c", "", "Inline JSON chart config for an update job")
	fs.StringVar(&opts.instruction, "i", "", "Instruction for an update job")
	fs.StringVar(&opts.jobID, "id", "", "Job identifier (default: generated)")
	fs.StringVar(&opts.stream, "stream", cfg.Stream, "Stream name (default from CHART_STREAM)")
	_ = fs.Parse(args)
	return opts
}

func buildJob(id, prompt, current, instruction string) (models.ChartJob, error) {
	if id == "" {
		id = fmt.Sprintf("job-%d", time.Now().UnixNano())
	}

	switch {
	case current != "" || instruction != "":
		if current == "" || instruction == "" {
			return models.ChartJob{}, fmt.Errorf("update jobs need both -c and -i")
		}
		return models.ChartJob{
			JobID:         id,
			Kind:          models.JobKindUpdate,
			CurrentConfig: []byte(current),
			Instruction:   instruction,
		}, nil
	case prompt != "":
		return models.ChartJob{JobID: id, Kind: models.JobKindGenerate, Prompt: prompt}, nil
	default:
		return models.ChartJob{}, fmt.Errorf("either -p or -c/-i is required")
	}
}

func run(cfg *setup.Config, job models.ChartJob, stream string) error {
	values, err := red.EncodeJob(job)
	if err != nil {
		return err
	}

	ctx := context.Background()
	client, err := red.ConnectRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, 3, &log.Logger)
	if err != nil {
		return err
	}
	defer client.Close()

	id, err := client.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		Values: values,
	}).Result()
	if err != nil {
		return err
	}

	log.Info().Str("stream", stream).Str("id", id).Str("job_id", job.JobID).Str("kind", string(job.Kind)).Msg("Published successfully!")
	return nil
}
