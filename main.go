package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
)

// Version is set at build time via -ldflags
var Version = "dev"

// AppOptions carries the command line flags to the application.
type AppOptions struct {
	ConfigFile     string
	TraceCenters   string
	TracePartition string
	MqttMode       bool
	HttpMode       bool
	HttpPort       int
}

// Runner is the part of App that run drives.
type Runner interface {
	ApplyOptions(opts AppOptions)
	RunPartition(ctx context.Context) error
	WriteExample(path string) error
}

func main() {
	if err := run(os.Args[1:], os.Stdout, NewApp(os.Stdout)); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		log.Fatalf("Error: %v", err)
	}
}

func run(args []string, out io.Writer, app Runner) error {
	fs := flag.NewFlagSet("coverpart", flag.ContinueOnError)
	fs.SetOutput(out)

	var opts AppOptions
	fs.StringVar(&opts.ConfigFile, "config", "config.yaml", "Path to run configuration file")
	fs.StringVar(&opts.TraceCenters, "trace-centers", "", "Write center positions after every diagram rebuild to this file")
	fs.StringVar(&opts.TracePartition, "trace-partition", "", "Write cell vertices after every diagram rebuild to this file")
	fs.BoolVar(&opts.MqttMode, "mqtt", false, "Publish snapshots to the MQTT broker from the configuration")
	fs.BoolVar(&opts.HttpMode, "http", false, "Serve run state over HTTP and keep serving after the run")
	fs.IntVar(&opts.HttpPort, "http-port", 8080, "HTTP server port")
	example := fs.String("example", "", "Write an example configuration to this file and exit")
	showVersion := fs.Bool("version", false, "Print version and exit")

	if err := fs.Parse(args); err != nil {
		return err
	}

	fmt.Fprintf(out, "coverpart version: %s\n", Version)
	if *showVersion {
		return nil
	}

	app.ApplyOptions(opts)

	if *example != "" {
		return app.WriteExample(*example)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return app.RunPartition(ctx)
}
