// Command mp4san sanitizes an MP4 file for safe handing to an untrusted
// decoder, relocating metadata ahead of sample data when necessary.
//
// Usage:
//
//	mp4san [options] <input.mp4>
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	flag "github.com/spf13/pflag"

	"github.com/deepteams/mediasan/internal/stream"
	"github.com/deepteams/mediasan/mp4san"
)

func main() {
	var (
		output  string
		verbose bool
	)
	fs := flag.NewFlagSet("mp4san", flag.ContinueOnError)
	fs.StringVarP(&output, "output", "o", "-", "output path (\"-\" for stdout)")
	fs.BoolVarP(&verbose, "verbose", "v", false, "log each box as it is parsed")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: mp4san [options] <input.mp4>\n\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(os.Args[1:]); err != nil {
		os.Exit(2)
	}
	if fs.NArg() != 1 {
		fs.Usage()
		os.Exit(2)
	}

	if err := run(fs.Arg(0), output, verbose); err != nil {
		fmt.Fprintf(os.Stderr, "mp4san: %v\n", err)
		os.Exit(1)
	}
}

func run(input, output string, verbose bool) error {
	f, err := os.Open(input)
	if err != nil {
		return err
	}
	defer f.Close()

	sr, err := stream.NewSeekReader(f)
	if err != nil {
		return err
	}

	cfg := mp4san.DefaultConfig()
	if verbose {
		cfg.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}

	out, err := mp4san.SanitizeWithConfig(sr, cfg)
	if err != nil {
		return err
	}

	w, err := openOutput(output)
	if err != nil {
		return err
	}
	defer w.Close()

	if out.Metadata == nil {
		if _, err := f.Seek(0, io.SeekStart); err != nil {
			return err
		}
		_, err = io.Copy(w, f)
		return err
	}
	if _, err := w.Write(out.Metadata); err != nil {
		return err
	}
	if _, err := f.Seek(int64(out.Data.Offset), io.SeekStart); err != nil {
		return err
	}
	_, err = io.CopyN(w, f, int64(out.Data.Len))
	return err
}

func openOutput(path string) (io.WriteCloser, error) {
	if path == "-" {
		return nopWriteCloser{os.Stdout}, nil
	}
	return os.Create(path)
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }
