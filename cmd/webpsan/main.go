// Command webpsan validates that a WebP file is safe to hand to an
// untrusted decoder. It produces no output of its own: a valid input
// exits 0, an invalid one prints the classified error and exits 1.
//
// Usage:
//
//	webpsan [options] <input.webp>
package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	flag "github.com/spf13/pflag"

	"github.com/deepteams/mediasan/internal/stream"
	"github.com/deepteams/mediasan/webpsan"
)

func main() {
	var (
		allowUnknown bool
		verbose      bool
	)
	fs := flag.NewFlagSet("webpsan", flag.ContinueOnError)
	fs.BoolVar(&allowUnknown, "allow-unknown-chunks", false, "permit unrecognized trailing chunks")
	fs.BoolVarP(&verbose, "verbose", "v", false, "log each chunk as it is parsed")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: webpsan [options] <input.webp>\n\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(os.Args[1:]); err != nil {
		os.Exit(2)
	}
	if fs.NArg() != 1 {
		fs.Usage()
		os.Exit(2)
	}

	if err := run(fs.Arg(0), allowUnknown, verbose); err != nil {
		fmt.Fprintf(os.Stderr, "webpsan: %v\n", err)
		os.Exit(1)
	}
}

func run(input string, allowUnknown, verbose bool) error {
	f, err := os.Open(input)
	if err != nil {
		return err
	}
	defer f.Close()

	sr, err := stream.NewSeekReader(f)
	if err != nil {
		return err
	}

	cfg := webpsan.DefaultConfig()
	cfg.AllowUnknownChunks = allowUnknown
	if verbose {
		cfg.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}

	return webpsan.SanitizeWithConfig(sr, cfg)
}
