package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/CorrelAid/form_upload_processor/inits"
	"github.com/CorrelAid/form_upload_processor/uploader"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const defaultURL = "http://127.0.0.1:8000"

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	v := viper.New()
	v.SetEnvPrefix("UPLOAD")
	v.AutomaticEnv()
	v.SetDefault("url", defaultURL)
	v.SetDefault("loglevel", "warn")

	flags := pflag.NewFlagSet("upload", pflag.ContinueOnError)
	flags.SetOutput(stderr)
	flags.String("url", defaultURL, "Base URL of the form processing API")
	flags.String("loglevel", "warn", "Log level (debug, info, warn, error)")
	flags.Usage = func() {
		fmt.Fprintf(stderr, "Usage: upload [options] <file>\n\nUploads one banking form and prints the processing result.\n\nOptions:\n")
		flags.PrintDefaults()
		fmt.Fprintf(stderr, "\nEnvironment Variables:\n  UPLOAD_URL       API base URL\n  UPLOAD_LOGLEVEL  Log level\n")
	}
	if err := flags.Parse(args); err != nil {
		return 2
	}
	_ = v.BindPFlag("url", flags.Lookup("url"))
	_ = v.BindPFlag("loglevel", flags.Lookup("loglevel"))

	logger, err := inits.Logger(v.GetString("loglevel"), true)
	if err != nil {
		fmt.Fprintf(stderr, "invalid log level: %v\n", err)
		return 2
	}
	defer func() { _ = logger.Sync() }()

	var file *uploader.File
	if path := flags.Arg(0); path != "" {
		f, err := os.Open(path)
		if err != nil {
			fmt.Fprintf(stderr, "cannot open %s: %v\n", path, err)
			return 1
		}
		defer f.Close()
		file = &uploader.File{Name: path, Content: f}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	form := uploader.NewForm(uploader.NewClient(v.GetString("url"), nil), terminal{out: stdout}, logger)
	if view := form.Submit(ctx, file); view.StatusClass == uploader.ClassError {
		return 1
	}
	return 0
}

// terminal prints the status line on every change and the result fields once
// they are revealed.
type terminal struct {
	out io.Writer
}

func (t terminal) Render(view uploader.View) {
	fmt.Fprintln(t.out, view.Status)
	if !view.ResultVisible {
		return
	}
	w := tabwriter.NewWriter(t.out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Acknowledgment ID:\t%s\n", view.AckID)
	fmt.Fprintf(w, "Form type:\t%s\n", view.FormType)
	fmt.Fprintf(w, "Status:\t%s\n", view.FormStatus)
	fmt.Fprintf(w, "Missing fields:\t%s\n", view.MissingFields)
	_ = w.Flush()
}
