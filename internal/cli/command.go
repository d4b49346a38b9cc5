package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/dl/goread/internal/input"
)

// exitError carries a non-zero exit code out of a cobra RunE.
type exitError struct {
	code int
}

func (e *exitError) Error() string { return fmt.Sprintf("exit status %d", e.code) }

// NewRootCommand builds the goread command tree. All flags are persistent
// so a config file line is valid whichever subcommand runs.
func NewRootCommand() *cobra.Command {
	var (
		cfg   Config
		color string
	)

	root := &cobra.Command{
		Use:   "goread",
		Short: "Read files, byte windows of files, or streams in chunks",

		SilenceErrors:     true,
		SilenceUsage:      true,
		CompletionOptions: cobra.CompletionOptions{DisableDefaultCmd: true},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			mode, err := ParseColorMode(color)
			if err != nil {
				return err
			}
			cfg.Color = mode
			cfg.HasLength = cmd.Flags().Changed("length")
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.Int64VarP(&cfg.Length, "length", "n", 0, "read at most this many bytes (default: to end of file)")
	flags.Int64VarP(&cfg.Offset, "offset", "o", 0, "start reading at this byte offset")
	flags.IntVarP(&cfg.ChunkSize, "chunk-size", "s", 4096, "bytes per read in chunks mode (0 reads everything at once)")
	flags.BoolVar(&cfg.JSONOutput, "json", false, "print JSON lines instead of raw bytes")
	flags.BoolVar(&cfg.ShowAbsent, "show-absent", false, "print a marker when a bounded read finds nothing")
	flags.StringVar(&color, "color", "auto", "colorize headers: auto, always or never")
	flags.IntVarP(&cfg.Workers, "workers", "j", 0, "concurrent readers (default: 2 x CPUs)")
	flags.Int64Var(&cfg.MmapThreshold, "mmap-threshold", input.DefaultMmapThreshold, "memory-map reads of at least this many bytes")
	flags.StringVarP(&cfg.Verbosity, "verbosity", "v", "warn", "log level: debug, info, warn or error")

	runMode := func(mode Mode) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			cfg.Mode = mode
			cfg.Paths = args
			if code := Run(cfg); code != ExitOK {
				return &exitError{code: code}
			}
			return nil
		}
	}

	root.AddCommand(&cobra.Command{
		Use:   "cat [PATH...]",
		Short: "Read each file, or stdin, honoring --length and --offset",
		RunE:  runMode(ModeCat),
	})
	root.AddCommand(&cobra.Command{
		Use:   "chunks PATH",
		Short: "Read an open stream in --chunk-size pieces until nothing is left",
		Args:  cobra.ExactArgs(1),
		RunE:  runMode(ModeChunks),
	})
	root.AddCommand(&cobra.Command{
		Use:   "follow PATH...",
		Short: "Print files, then keep printing bytes appended to them",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runMode(ModeFollow),
	})

	return root
}

// Execute runs the command line args, with config file flags merged in,
// and returns the process exit code.
func Execute(args []string) int {
	root := NewRootCommand()
	root.SetArgs(mergeConfigArgs(LoadConfigArgs(), args))

	err := root.Execute()
	if err == nil {
		return ExitOK
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	if errors.Is(err, pflag.ErrHelp) {
		return ExitOK
	}
	fmt.Fprintln(os.Stderr, "goread:", err)
	return ExitError
}
