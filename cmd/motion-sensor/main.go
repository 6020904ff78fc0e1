// Command motion-sensor classifies accelerometer samples into shake, flip and
// fall events and publishes them to MQTT.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sweeney/motion-sensor/internal/config"
	"github.com/sweeney/motion-sensor/internal/gpio"
	"github.com/sweeney/motion-sensor/internal/logic"
	"github.com/sweeney/motion-sensor/internal/metrics"
	"github.com/sweeney/motion-sensor/internal/motion"
	"github.com/sweeney/motion-sensor/internal/mqtt"
	"github.com/sweeney/motion-sensor/internal/sensor"
	"github.com/sweeney/motion-sensor/internal/status"
	"github.com/sweeney/motion-sensor/internal/web"
)

// eventQueueSize bounds events waiting between the listener callbacks and runLoop.
const eventQueueSize = 64

// refreshInterval is how often the status tracker picks up gate stats.
const refreshInterval = time.Second

// methodQueue is the sink method every listener is registered with.
const methodQueue = "queue"

func main() {
	def := config.Default()

	configPath := flag.String("config", "", "YAML config file (flags override it)")
	flag.String("source", def.Source.Type, "Sample source: mqtt or adxl345")
	flag.String("topic", def.Source.Topic, "MQTT topic carrying raw samples (mqtt source)")
	flag.String("i2c-bus", def.Source.I2CBus, "I2C bus name, empty for the first bus (adxl345 source)")
	flag.Duration("poll", def.Source.PollInterval, "Accelerometer polling interval (adxl345 source)")
	flag.Duration("min-interval", def.Motion.MinInterval, "Minimum time between accepted samples")
	flag.Int("sensitivity", def.Motion.Sensitivity, "Shake sensitivity (0 picks the default for the sample density)")
	flag.Bool("dense", def.Motion.DenseSamples, "Source reports a dense sample stream")
	flag.String("broker", def.MQTT.Broker, "MQTT broker address")
	flag.Duration("heartbeat", def.Heartbeat, "Heartbeat interval (0 to disable)")
	flag.String("http", def.HTTP.Addr, "HTTP status address (empty to disable)")
	flag.Int("gpio-pin", def.GPIO.Pin, "BCM pin number of the indicator LED; setting it enables the indicator (negative disables)")
	printSample := flag.Bool("print-sample", false, "Print one sample from the source and exit")

	flag.Parse()

	cfg := def
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			log.Fatalf("fatal: %v", err)
		}
	}
	if err := applyFlags(&cfg, flag.CommandLine); err != nil {
		log.Fatalf("fatal: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("fatal: %v", err)
	}

	if err := run(cfg, *printSample); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

// applyFlags copies explicitly set flags over cfg.
func applyFlags(cfg *config.Config, fs *flag.FlagSet) error {
	var err error
	fs.Visit(func(f *flag.Flag) {
		if err != nil {
			return
		}
		getter, ok := f.Value.(flag.Getter)
		if !ok {
			return
		}
		v := getter.Get()
		switch f.Name {
		case "source":
			cfg.Source.Type = v.(string)
		case "topic":
			cfg.Source.Topic = v.(string)
		case "i2c-bus":
			cfg.Source.I2CBus = v.(string)
		case "poll":
			cfg.Source.PollInterval = v.(time.Duration)
		case "min-interval":
			cfg.Motion.MinInterval = v.(time.Duration)
		case "sensitivity":
			cfg.Motion.Sensitivity = v.(int)
		case "dense":
			cfg.Motion.DenseSamples = v.(bool)
		case "broker":
			cfg.MQTT.Broker = v.(string)
		case "heartbeat":
			cfg.Heartbeat = v.(time.Duration)
		case "http":
			cfg.HTTP.Addr = v.(string)
		case "gpio-pin":
			pin := v.(int)
			cfg.GPIO.Enabled = pin >= 0
			if pin >= 0 {
				cfg.GPIO.Pin = pin
			}
		case "config", "print-sample":
		default:
			err = fmt.Errorf("unhandled flag %q", f.Name)
		}
	})
	return err
}

// sampleSource is a motion.Source that owns a connection or device.
type sampleSource interface {
	motion.Source
	io.Closer
}

func openSource(cfg config.Config) (sampleSource, error) {
	switch cfg.Source.Type {
	case config.SourceMQTT:
		src, err := sensor.NewMQTTSource(cfg.MQTT.Broker, cfg.Source.Topic)
		if err != nil {
			return nil, fmt.Errorf("init mqtt source: %w", err)
		}
		return src, nil
	case config.SourceADXL345:
		dev, err := sensor.OpenADXL345(cfg.Source.I2CBus, cfg.Source.I2CAddr)
		if err != nil {
			return nil, fmt.Errorf("init adxl345: %w", err)
		}
		return sensor.NewPollingSource(dev, cfg.Source.PollInterval), nil
	}
	return nil, fmt.Errorf("unknown source type %q", cfg.Source.Type)
}

func run(cfg config.Config, printSample bool) error {
	src, err := openSource(cfg)
	if err != nil {
		return err
	}
	defer src.Close()

	// Print sample mode
	if printSample {
		s, err := firstSample(src, 5*time.Second)
		if err != nil {
			return err
		}
		fmt.Printf("x=%.3f y=%.3f z=%.3f m/s²\n", s.X, s.Y, s.Z)
		return nil
	}

	met, err := metrics.New()
	if err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}

	// Initialize MQTT
	publisher, err := mqtt.NewRealPublisher(cfg.MQTT.Broker, cfg.MQTT.BufferSize)
	if err != nil {
		return fmt.Errorf("init mqtt: %w", err)
	}
	defer publisher.Close()

	var indicator gpio.Indicator
	if cfg.GPIO.Enabled {
		ind, err := gpio.NewRealIndicator(cfg.GPIO.Pin)
		if err != nil {
			return fmt.Errorf("init gpio: %w", err)
		}
		defer ind.Close()
		indicator = ind
	}

	// Initialize status tracker (before STARTUP so snapshot is available)
	tracker := status.NewTracker(time.Now(), status.Config{
		Source:        cfg.Source.Type,
		SampleTopic:   sampleTopic(cfg),
		MinIntervalMs: cfg.Motion.MinInterval.Milliseconds(),
		Sensitivity:   cfg.Sensitivity(),
		HeartbeatMs:   cfg.Heartbeat.Milliseconds(),
		Broker:        cfg.MQTT.Broker,
		HTTPAddr:      cfg.HTTP.Addr,
	})

	m := motion.Get(src, cfg.MotionConfig(), motion.WithRecorder(met))

	events := make(chan logic.Event, eventQueueSize)
	sink := newEventSink(events, time.Now)
	unregister, err := registerListeners(m, sink, cfg.Kinds())
	if err != nil {
		return err
	}
	defer unregister()

	// Publish startup event with full status snapshot
	tracker.Update(m.Stats())
	snap := tracker.Snapshot()
	startupEvent := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}
	if err := publisher.PublishSystem(startupEvent); err != nil {
		log.Printf("failed to publish startup event: %v", err)
	} else {
		log.Printf("published startup event")
	}

	// Start HTTP status server
	hub := web.NewHub()
	defer hub.Close()
	if cfg.HTTP.Addr != "" {
		srv := web.New(cfg.HTTP.Addr, tracker, met.Handler(), hub)
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Printf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Printf("http status server listening on %s", cfg.HTTP.Addr)
	}

	log.Printf("started: source=%s min-interval=%v sensitivity=%d kinds=%v broker=%s heartbeat=%v",
		cfg.Source.Type, cfg.Motion.MinInterval, cfg.Sensitivity(), cfg.Kinds(), cfg.MQTT.Broker, cfg.Heartbeat)

	var heartbeat <-chan time.Time
	if cfg.Heartbeat > 0 {
		hb := time.NewTicker(cfg.Heartbeat)
		defer hb.Stop()
		heartbeat = hb.C
	}

	refresh := time.NewTicker(refreshInterval)
	defer refresh.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	deps := loopDeps{
		stats:      m.Stats,
		publisher:  publisher,
		mqttStatus: publisher,
		tracker:    tracker,
		hub:        hub,
		indicator:  indicator,
		metrics:    met,
		now:        time.Now,
	}
	if cs, ok := src.(mqtt.ConnectionStatus); ok {
		deps.sourceStatus = cs
	}
	return runLoop(deps, events, heartbeat, refresh.C, sigCh)
}

func sampleTopic(cfg config.Config) string {
	if cfg.Source.Type == config.SourceMQTT {
		return cfg.Source.Topic
	}
	return ""
}

// firstSample subscribes to src and returns the first sample it delivers.
func firstSample(src motion.Source, timeout time.Duration) (logic.Sample, error) {
	got := make(chan logic.Sample, 1)
	err := src.Subscribe(func(s logic.Sample) error {
		select {
		case got <- s:
		default:
		}
		return nil
	})
	if err != nil {
		return logic.Sample{}, fmt.Errorf("subscribe: %w", err)
	}
	defer src.Unsubscribe()

	select {
	case s := <-got:
		return s, nil
	case <-time.After(timeout):
		return logic.Sample{}, fmt.Errorf("no sample within %v", timeout)
	}
}

// newEventSink returns the handler all listeners are registered on. Its
// queue method forwards the kind argument to events without blocking, so the
// sensor delivery goroutine never waits on MQTT.
func newEventSink(events chan<- logic.Event, now func() time.Time) *motion.MethodSet {
	return motion.NewMethodSet("event-sink").On(methodQueue, func(args ...any) {
		if len(args) == 0 {
			log.Printf("event sink: missing kind argument")
			return
		}
		kind, ok := args[0].(logic.Kind)
		if !ok {
			log.Printf("event sink: unexpected argument %T", args[0])
			return
		}
		select {
		case events <- logic.Event{Timestamp: now(), Kind: kind}:
		default:
			log.Printf("event sink: queue full, dropping %s", kind)
		}
	})
}

// listenerRegistry is the part of *motion.Motion the daemon registers with.
type listenerRegistry interface {
	AddListener(kind logic.Kind, l motion.Listener) error
	RemoveListener(kind logic.Kind, l motion.Listener) error
}

// registerListeners adds one sink listener per kind. The returned function
// removes them again. On error nothing stays registered.
func registerListeners(reg listenerRegistry, sink motion.Handler, kinds []logic.Kind) (func(), error) {
	var added []logic.Kind
	unregister := func() {
		for _, kind := range added {
			l := motion.Listener{Context: sink, Method: methodQueue}
			if err := reg.RemoveListener(kind, l); err != nil {
				log.Printf("remove %s listener: %v", kind, err)
			}
		}
	}

	for _, kind := range kinds {
		l := motion.Listener{Context: sink, Method: methodQueue, Arguments: []any{kind}}
		if err := reg.AddListener(kind, l); err != nil {
			unregister()
			return nil, fmt.Errorf("add %s listener: %w", kind, err)
		}
		added = append(added, kind)
	}
	return unregister, nil
}

// loopDeps are the collaborators runLoop drives. Everything except
// publisher and now may be nil.
type loopDeps struct {
	stats        func() motion.Stats
	publisher    mqtt.Publisher
	mqttStatus   mqtt.ConnectionStatus
	sourceStatus mqtt.ConnectionStatus
	tracker      *status.Tracker
	hub          *web.Hub
	indicator    gpio.Indicator
	metrics      *metrics.Metrics
	now          func() time.Time
}

func runLoop(d loopDeps, events <-chan logic.Event, heartbeat, refresh <-chan time.Time, sig <-chan os.Signal) error {
	var counts logic.EventCounts

	for {
		select {
		case s := <-sig:
			log.Printf("received %v, shutting down", s)
			signalName := "UNKNOWN"
			if s == syscall.SIGINT {
				signalName = "SIGINT"
			} else if s == syscall.SIGTERM {
				signalName = "SIGTERM"
			}
			event := mqtt.SystemEvent{
				Timestamp: d.now(),
				Event:     "SHUTDOWN",
				Reason:    signalName,
				Retained:  true,
			}
			if d.tracker != nil {
				refreshStatus(d)
				snap := d.tracker.Snapshot()
				event.RawPayload = status.FormatStatusEvent(snap, "SHUTDOWN", signalName)
			}
			if err := d.publisher.PublishSystem(event); err != nil {
				log.Printf("failed to publish shutdown event: %v", err)
			} else {
				log.Printf("published shutdown event")
			}
			return nil

		case e := <-events:
			counts.Add(e.Kind)
			e.Counts = counts
			log.Printf("event: %s (shake=%d flip=%d fall=%d)", e.Kind, counts.Shake, counts.Flip, counts.Fall)

			if err := d.publisher.Publish(e); err != nil {
				log.Printf("publish error: %v", err)
				// Don't crash on publish failure
				if d.metrics != nil {
					d.metrics.PublishFailed()
				}
			}
			if d.tracker != nil {
				d.tracker.RecordEvent(e)
			}
			if d.hub != nil {
				d.hub.Broadcast(e)
			}
			if d.indicator != nil {
				if err := d.indicator.Pulse(e.Kind); err != nil {
					log.Printf("gpio pulse error: %v", err)
				}
			}

		case <-heartbeat:
			t := d.now()
			hbEvent := mqtt.SystemEvent{
				Timestamp: t,
				Event:     "HEARTBEAT",
			}
			if d.tracker != nil {
				refreshStatus(d)
				snap := d.tracker.Snapshot()
				log.Printf("heartbeat: uptime=%v shake=%d flip=%d fall=%d accepted=%d dropped=%d",
					snap.Uptime().Truncate(time.Second), snap.Counts.Shake, snap.Counts.Flip, snap.Counts.Fall,
					snap.Gate.Accepted, snap.Gate.Dropped)
				hbEvent.RawPayload = status.FormatStatusEvent(snap, "HEARTBEAT", "")
			}
			if err := d.publisher.PublishSystem(hbEvent); err != nil {
				log.Printf("heartbeat publish error: %v", err)
			}

		case <-refresh:
			refreshStatus(d)
		}
	}
}

// refreshStatus copies gate stats and connection states into the tracker and metrics.
func refreshStatus(d loopDeps) {
	connected := false
	if d.mqttStatus != nil {
		connected = d.mqttStatus.IsConnected()
	}
	if d.metrics != nil {
		d.metrics.SetMQTTConnected(connected)
	}
	if d.tracker == nil {
		return
	}
	if d.stats != nil {
		d.tracker.Update(d.stats())
	}
	d.tracker.SetMQTTConnected(connected)
	if d.sourceStatus != nil {
		d.tracker.SetSourceConnected(d.sourceStatus.IsConnected())
	}
}
