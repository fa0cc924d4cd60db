package main

import (
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/soyunomas/relinker/internal/config"
	"github.com/soyunomas/relinker/internal/engine"
	"github.com/soyunomas/relinker/internal/fault"
	"github.com/soyunomas/relinker/internal/hasher"
	"github.com/soyunomas/relinker/internal/logger"
)

// flagKeys maps command-line flags to configuration keys.
var flagKeys = map[string]string{
	"dry-run":       "run.dry_run",
	"keep":          "plan.keep",
	"algorithm":     "hash.algorithm",
	"chunk-size":    "hash.chunk_size",
	"workers":       "hash.workers",
	"min-size":      "scan.min_size",
	"exclude":       "scan.exclude",
	"parallel-scan": "scan.parallel",
	"scan-workers":  "scan.workers",
}

func RunCommand() *cobra.Command {
	command := &cobra.Command{
		Use:   "run DIR",
		Short: "Replace duplicate files below DIR with hard links",
		Long: `Hash every regular file below DIR, then replace each duplicate with a hard
link to the canonical copy of its group. Files are only mutated after the whole
tree has been indexed.`,
		Example: `  relinker run ~/photos
  relinker run --keep shortest --exclude .git --exclude node_modules /srv/data`,
		Args: cobra.ExactArgs(1),
	}
	addRunFlags(command.Flags(), true)

	command.RunE = func(cmd *cobra.Command, args []string) error {
		return execute(cmd, args[0], false)
	}
	return command
}

func PlanCommand() *cobra.Command {
	command := &cobra.Command{
		Use:   "plan DIR",
		Short: "Show what run would relink, without touching any file",
		Args:  cobra.ExactArgs(1),
	}
	addRunFlags(command.Flags(), false)

	command.RunE = func(cmd *cobra.Command, args []string) error {
		return execute(cmd, args[0], true)
	}
	return command
}

func addRunFlags(fs *pflag.FlagSet, withDryRun bool) {
	if withDryRun {
		fs.Bool("dry-run", false, "Report what would be relinked without mutating")
	}
	fs.Bool("json", false, "Print a JSON report to stdout")
	fs.String("keep", "oldest", "Canonical file policy: oldest, newest, shortest, longest")
	fs.String("algorithm", "sha256", "Content hash: "+strings.Join(hasher.Names(), ", "))
	fs.String("chunk-size", "4KiB", "Read size used while hashing")
	fs.Int("workers", 0, "Hashing workers (0 = number of CPUs)")
	fs.String("min-size", "0", "Ignore files smaller than this size")
	fs.StringSlice("exclude", nil, "Directory name to skip (repeatable)")
	fs.Bool("parallel-scan", false, "Walk the tree with parallel workers")
	fs.Int("scan-workers", 0, "Walker workers for --parallel-scan (0 = walker default)")
}

func execute(cmd *cobra.Command, dir string, planOnly bool) error {
	if err := logger.Init(flagLogLevel, flagLogFile); err != nil {
		return errors.Wrap(err, "failed initializing logger")
	}
	log := logger.GetLogger("relinker")

	cfg, err := config.Load(config.Source{
		File:  flagConfigFile,
		Flags: changedFlags(cmd.Flags()),
	})
	if err != nil {
		return err
	}

	opts, err := cfg.EngineOptions()
	if err != nil {
		return err
	}
	if planOnly {
		opts.DryRun = true
	}

	root, err := validateRoot(dir)
	if err != nil {
		return err
	}

	if alg, _ := hasher.Lookup(opts.Algorithm); alg != nil && !alg.Cryptographic {
		log.Warnf("%s is not collision resistant; crafted files could be merged", alg.Name)
	}

	jsonOut, _ := cmd.Flags().GetBool("json")
	var rep *jsonReport
	reporters := multiReporter{newLogReporter(log)}
	if jsonOut {
		rep = newJSONReport(root, opts)
		reporters = append(reporters, rep)
	}
	opts.Reporter = reporters

	runner, err := engine.New(opts)
	if err != nil {
		return fault.Usage("%v", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Infof("Scanning %q (hash: %s, keep: %s, dry-run: %v)", root, opts.Algorithm, opts.Strategy, opts.DryRun)
	res, runErr := runner.Run(ctx, root)

	if rep != nil {
		if err := rep.write(cmd.OutOrStdout(), res); err != nil {
			log.WithError(err).Error("Failed writing JSON report")
		}
	}

	if runErr != nil {
		return errors.Wrap(runErr, "run interrupted")
	}
	return nil
}

// changedFlags returns the explicitly set flags keyed by configuration key.
func changedFlags(fs *pflag.FlagSet) map[string]interface{} {
	out := make(map[string]interface{})
	fs.Visit(func(f *pflag.Flag) {
		key, ok := flagKeys[f.Name]
		if !ok {
			return
		}

		switch f.Value.Type() {
		case "bool":
			v, _ := fs.GetBool(f.Name)
			out[key] = v
		case "int":
			v, _ := fs.GetInt(f.Name)
			out[key] = v
		case "stringSlice":
			v, _ := fs.GetStringSlice(f.Name)
			out[key] = v
		default:
			out[key] = f.Value.String()
		}
	})
	return out
}

// validateRoot resolves dir and checks that it is a readable directory.
func validateRoot(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fault.Usage("invalid path %q: %v", dir, err)
	}

	fi, err := os.Stat(abs)
	if err != nil {
		return "", fault.Usage("cannot access %q: %v", dir, err)
	}
	if !fi.IsDir() {
		return "", fault.Usage("%q is not a directory", dir)
	}

	f, err := os.Open(abs)
	if err != nil {
		return "", fault.Usage("cannot read %q: %v", dir, err)
	}
	_ = f.Close()

	return abs, nil
}
