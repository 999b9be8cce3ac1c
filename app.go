package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/paulmach/orb"

	"github.com/kwv/coverpart/coverage"
)

// App encapsulates the application state and dependencies
type App struct {
	Out          io.Writer
	Config       *coverage.Config
	StateTracker *coverage.StateTracker
	Publisher    *coverage.SnapshotPublisher

	// CLI Flags (effectively dependencies)
	ConfigFile     string
	TraceCenters   string
	TracePartition string
	MqttMode       bool
	HttpMode       bool
	HttpPort       int

	// connectMQTT is replaced in tests.
	connectMQTT func(coverage.MQTTConfig) (mqtt.Client, error)
}

// NewApp creates a new App instance
func NewApp(out io.Writer) *App {
	return &App{
		Out:          out,
		StateTracker: coverage.NewStateTracker(),
		connectMQTT:  coverage.ConnectMQTT,
	}
}

// ApplyOptions applies CLI options to the App instance
func (a *App) ApplyOptions(opts AppOptions) {
	a.ConfigFile = opts.ConfigFile
	a.TraceCenters = opts.TraceCenters
	a.TracePartition = opts.TracePartition
	a.MqttMode = opts.MqttMode
	a.HttpMode = opts.HttpMode
	a.HttpPort = opts.HttpPort
}

// RunPartition loads the configuration, runs the partition with every
// configured observer attached and prints the outcome.
func (a *App) RunPartition(ctx context.Context) error {
	config, err := coverage.LoadConfig(a.ConfigFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	a.Config = config
	log.Printf("Loaded config from %s", a.ConfigFile)

	partition, err := config.NewPartition()
	if err != nil {
		return fmt.Errorf("setting up partition: %w", err)
	}

	trace, closeTrace, err := a.openTrace()
	if err != nil {
		return err
	}
	defer closeTrace()

	if a.MqttMode || config.MQTT.Enabled {
		client, err := a.connectMQTT(config.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer client.Disconnect(250)
		a.Publisher = coverage.NewSnapshotPublisher(client, config.MQTT.TopicPrefix)
		a.Publisher.SetQoS(config.MQTT.QoS)
		a.Publisher.SetRetain(config.MQTT.Retain)
	}

	var server *http.Server
	if a.HttpMode {
		server = a.startHTTP()
	}

	handlers := []coverage.IterationHandler{a.StateTracker.Handle}
	if trace != nil {
		handlers = append(handlers, trace.Handle)
	}
	if a.Publisher != nil {
		handlers = append(handlers, a.Publisher.Handle)
	}
	partition.SetHandler(coverage.Handlers(handlers...))

	log.Printf("Partitioning into %d regions", partition.Len())
	a.StateTracker.Start()
	result, runErr := partition.Run(ctx)
	a.StateTracker.Finish(result, runErr)

	if trace != nil {
		if err := trace.Flush(); err != nil {
			log.Printf("Warning: %v", err)
		}
	}
	if runErr != nil {
		return fmt.Errorf("running partition: %w", runErr)
	}

	if a.Publisher != nil {
		if err := a.Publisher.PublishResult(result, partition.Centers(), partition.Weights()); err != nil {
			log.Printf("Error publishing result: %v", err)
		}
	}

	a.printSummary(partition, result)

	if server != nil {
		fmt.Fprintln(a.Out, "\nPress Ctrl+C to stop")
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("[HTTP] Shutdown error: %v", err)
		}
	}
	return nil
}

// openTrace opens the trace files named on the command line, falling back
// to the configuration. It returns a nil writer when neither is set.
func (a *App) openTrace() (*coverage.TraceWriter, func(), error) {
	centersPath := firstNonEmpty(a.TraceCenters, a.Config.Trace.Centers)
	partitionPath := firstNonEmpty(a.TracePartition, a.Config.Trace.Partition)
	if centersPath == "" && partitionPath == "" {
		return nil, func() {}, nil
	}

	var files []*os.File
	closeAll := func() {
		for _, f := range files {
			if err := f.Close(); err != nil {
				log.Printf("Warning: closing %s: %v", f.Name(), err)
			}
		}
	}

	var centersOut, partitionOut io.Writer
	if centersPath != "" {
		f, err := os.Create(centersPath)
		if err != nil {
			return nil, nil, fmt.Errorf("creating centers trace: %w", err)
		}
		files = append(files, f)
		centersOut = f
	}
	if partitionPath != "" {
		f, err := os.Create(partitionPath)
		if err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("creating partition trace: %w", err)
		}
		files = append(files, f)
		partitionOut = f
	}
	return coverage.NewTraceWriter(centersOut, partitionOut), closeAll, nil
}

func (a *App) startHTTP() *http.Server {
	server := &http.Server{
		Addr:              fmt.Sprintf("0.0.0.0:%d", a.HttpPort),
		Handler:           newHTTPServer(a.StateTracker),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Printf("[HTTP] Starting server on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("[HTTP] Server error: %v", err)
		}
	}()
	return server
}

func (a *App) printSummary(p *coverage.Partition, res coverage.Result) {
	fmt.Fprintln(a.Out, "\nPartition Result")
	fmt.Fprintln(a.Out, "================")
	fmt.Fprintf(a.Out, "Converged: %v\n", res.Converged)
	fmt.Fprintf(a.Out, "Areas within tolerance: %v\n", res.VolumesConverged)
	fmt.Fprintf(a.Out, "Outer iterations: %d, inner iterations: %d\n", res.OuterIterations, res.InnerIterations)
	fmt.Fprintf(a.Out, "Volume error: %.6g, center movement: %.6g\n", res.VolumeError, res.CenterError)

	centers := p.Centers()
	weights := p.Weights()
	desired := p.DesiredAreas()
	covering := p.Covering()
	for i := range centers {
		fmt.Fprintf(a.Out, "Region %d: center (%.4f, %.4f) weight %.4f area %.4f (desired %.4f) vertices %d\n",
			i, centers[i][0], centers[i][1], weights[i], res.Volumes[i], desired[i], covering[i].Len())
	}
	fmt.Fprintf(a.Out, "Shared edges: %d\n", p.DualGraph().EdgeCount())
}

// WriteExample writes a small configuration to path as a starting point.
func (a *App) WriteExample(path string) error {
	config := &coverage.Config{
		Region:       []orb.Point{{0, 0}, {4, 0}, {4, 4}, {0, 4}},
		Density:      coverage.DensityConfig{NX: 5, NY: 5},
		Regions:      3,
		DesiredAreas: []float64{0.5, 0.25, 0.25},
		Parameters:   coverage.DefaultParameters(),
		MQTT:         coverage.MQTTConfig{Broker: "tcp://localhost:1883", TopicPrefix: coverage.DefaultTopicPrefix},
	}
	if err := coverage.SaveConfig(path, config); err != nil {
		return err
	}
	fmt.Fprintf(a.Out, "Example configuration written to %s\n", path)
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
