// Command button-blink classifies how long a push button is held and
// blinks an LED at a rate that depends on the classification.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sweeney/button-blink/internal/clock"
	"github.com/sweeney/button-blink/internal/gpio"
	"github.com/sweeney/button-blink/internal/led"
	"github.com/sweeney/button-blink/internal/logic"
	"github.com/sweeney/button-blink/internal/mqtt"
	"github.com/sweeney/button-blink/internal/status"
	"github.com/sweeney/button-blink/internal/task"
	"github.com/sweeney/button-blink/internal/web"
)

// Activity priorities and stack budgets (words).
const (
	prioClassifier task.Priority = 2
	prioDriver     task.Priority = 1
	prioMonitor    task.Priority = 0

	stackWords = 90
)

type options struct {
	chip       string
	pinButton  int
	pinLED     int
	probe      time.Duration
	mediumHalf time.Duration
	longHalf   time.Duration
	tick       time.Duration
	dwellMode  string
	dwell      time.Duration
	poll       time.Duration
	broker     string
	heartbeat  time.Duration
	httpAddr   string
	printState bool
}

func main() {
	var o options
	flag.StringVar(&o.chip, "chip", gpio.DefaultChip, "GPIO chip name")
	flag.IntVar(&o.pinButton, "pin-button", gpio.DefaultPinButton, "BCM pin number for the button (active low)")
	flag.IntVar(&o.pinLED, "pin-led", gpio.DefaultPinLED, "BCM pin number for the LED")
	flag.DurationVar(&o.probe, "probe", 2*time.Second, "Interval between button probes")
	flag.DurationVar(&o.mediumHalf, "medium-half", 400*time.Millisecond, "LED half period for MEDIUM")
	flag.DurationVar(&o.longHalf, "long-half", 100*time.Millisecond, "LED half period for LONG")
	flag.DurationVar(&o.tick, "tick", 10*time.Millisecond, "Yield between classifier cycles and while the LED is off")
	flag.StringVar(&o.dwellMode, "dwell-mode", string(logic.DwellUniform), `Band dwell policy ("uniform" or "legacy")`)
	flag.DurationVar(&o.dwell, "dwell", 0, "Minimum band lifetime in uniform mode (0 uses -probe)")
	flag.DurationVar(&o.poll, "poll", 100*time.Millisecond, "Monitor polling interval")
	flag.StringVar(&o.broker, "broker", "tcp://192.168.1.200:1883", "MQTT broker address")
	flag.DurationVar(&o.heartbeat, "heartbeat", 15*time.Minute, "Heartbeat interval (0 to disable)")
	flag.StringVar(&o.httpAddr, "http", ":80", "HTTP status address (empty to disable)")
	flag.BoolVar(&o.printState, "print-state", false, "Print current button state and exit")

	flag.Parse()

	if err := run(o); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

// configs derives the component configurations from the flags.
func (o options) configs() (logic.ClassifierConfig, led.Config, error) {
	mode, err := logic.ParseDwellMode(o.dwellMode)
	if err != nil {
		return logic.ClassifierConfig{}, led.Config{}, err
	}
	if o.probe <= 0 {
		return logic.ClassifierConfig{}, led.Config{}, fmt.Errorf("probe interval must be positive, got %v", o.probe)
	}
	if o.tick <= 0 {
		return logic.ClassifierConfig{}, led.Config{}, fmt.Errorf("tick must be positive, got %v", o.tick)
	}
	if o.mediumHalf <= 0 || o.longHalf <= 0 {
		return logic.ClassifierConfig{}, led.Config{}, errors.New("LED half periods must be positive")
	}

	dwell := o.dwell
	if dwell <= 0 {
		dwell = o.probe
	}

	cc := logic.ClassifierConfig{
		Probe: o.probe,
		Tick:  o.tick,
		Mode:  mode,
		Dwell: dwell,
	}
	lc := led.Config{
		MediumHalf: o.mediumHalf,
		LongHalf:   o.longHalf,
		Tick:       o.tick,
	}
	return cc, lc, nil
}

func (o options) statusConfig(cc logic.ClassifierConfig) status.Config {
	return status.Config{
		ProbeMs:      cc.Probe.Milliseconds(),
		TickMs:       cc.Tick.Milliseconds(),
		DwellMode:    string(cc.Mode),
		DwellMs:      cc.Dwell.Milliseconds(),
		MediumHalfMs: o.mediumHalf.Milliseconds(),
		LongHalfMs:   o.longHalf.Milliseconds(),
		PollMs:       o.poll.Milliseconds(),
		HeartbeatMs:  o.heartbeat.Milliseconds(),
		Broker:       o.broker,
		HTTPAddr:     o.httpAddr,
	}
}

func run(o options) error {
	classifierCfg, ledCfg, err := o.configs()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	// Initialize GPIO
	hw, err := gpio.NewRealIO(o.chip, o.pinButton, o.pinLED)
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	defer hw.Close()

	// Print state mode
	if o.printState {
		pressed, err := hw.Pressed()
		if err != nil {
			return fmt.Errorf("read gpio: %w", err)
		}
		fmt.Printf("BUTTON: %s\n", buttonString(pressed))
		return nil
	}

	// Initialize MQTT
	publisher, err := mqtt.NewRealPublisher(o.broker)
	if err != nil {
		return fmt.Errorf("init mqtt: %w", err)
	}
	defer publisher.Close()

	// Initialize status tracker (before STARTUP so snapshot is available)
	start := time.Now()
	tracker := status.NewTracker(start, o.statusConfig(classifierCfg))
	if net := readNetworkInfo(); net != nil {
		tracker.SetNetwork(net)
	}
	tracker.SetMQTTConnected(publisher.IsConnected())

	// Publish startup event with full status snapshot
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
	if o.httpAddr != "" {
		srv := web.New(o.httpAddr, tracker)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Printf("http status server listening on %s", o.httpAddr)
	}

	cell := logic.NewCell(start)
	clk := clock.Real{}
	classifier := logic.NewClassifier(classifierCfg, hw, clk, cell)
	driver := led.NewDriver(ledCfg, hw, clk, cell)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	monitor := func(ctx context.Context) error {
		ticker := time.NewTicker(o.poll)
		defer ticker.Stop()
		// The monitor owns shutdown: once it returns, every activity stops.
		defer cancel()
		return runLoop(ctx, cell, publisher, publisher, tracker, o.heartbeat, time.Now, ticker.C, sigCh)
	}

	sched := task.NewScheduler(task.DefaultBudget())
	if err := createActivities(sched, classifier.Run, driver.Run, monitor); err != nil {
		return err
	}

	log.Printf("started: probe=%v dwell=%s/%v tick=%v poll=%v broker=%s heartbeat=%v",
		classifierCfg.Probe, classifierCfg.Mode, classifierCfg.Dwell, classifierCfg.Tick, o.poll, o.broker, o.heartbeat)

	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("scheduler: %w", err)
	}
	return nil
}

// createActivities registers the three daemon activities, highest priority
// first.
func createActivities(sched *task.Scheduler, classifier, driver, monitor task.Func) error {
	if _, err := sched.Create("classifier", classifier, prioClassifier, stackWords); err != nil {
		return err
	}
	if _, err := sched.Create("led", driver, prioDriver, stackWords); err != nil {
		return err
	}
	if _, err := sched.Create("monitor", monitor, prioMonitor, stackWords); err != nil {
		return err
	}
	return nil
}

// runLoop observes the shared classification on every tick, publishes band
// changes and heartbeats, and keeps the status tracker current. It returns
// nil after publishing SHUTDOWN when a signal arrives, or ctx.Err() when
// ctx is cancelled.
func runLoop(ctx context.Context, cell *logic.Cell, publisher mqtt.Publisher, mqttStatus mqtt.ConnectionStatus, tracker *status.Tracker, heartbeat time.Duration, now func() time.Time, tick <-chan time.Time, sig <-chan os.Signal) error {
	startTime := now()
	observer := logic.NewObserver(startTime)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case s := <-sig:
			log.Printf("received %v, shutting down", s)
			signalName := "UNKNOWN"
			if s == syscall.SIGINT {
				signalName = "SIGINT"
			} else if s == syscall.SIGTERM {
				signalName = "SIGTERM"
			}
			event := mqtt.SystemEvent{
				Timestamp: now(),
				Event:     "SHUTDOWN",
				Reason:    signalName,
				Retained:  true,
			}
			if tracker != nil {
				if mqttStatus != nil {
					tracker.SetMQTTConnected(mqttStatus.IsConnected())
				}
				snap := tracker.Snapshot()
				event.RawPayload = status.FormatStatusEvent(snap, "SHUTDOWN", signalName)
			}
			if err := publisher.PublishSystem(event); err != nil {
				log.Printf("failed to publish shutdown event: %v", err)
			} else {
				log.Printf("published shutdown event")
			}
			return nil

		case <-tick:
			t := now()
			pub := cell.Load()

			if event := observer.Process(pub); event != nil {
				log.Printf("event: %s (%s -> %s)", event.Type, event.Previous, event.Band)
				if err := publisher.Publish(*event); err != nil {
					log.Printf("publish error: %v", err)
				}
			}

			// Update status tracker for HTTP consumers
			if tracker != nil {
				tracker.Update(pub.Band, pub.Since, observer.Counts())
				if mqttStatus != nil {
					tracker.SetMQTTConnected(mqttStatus.IsConnected())
				}
			}

			hb := observer.CheckHeartbeat(t, heartbeat)
			if hb == nil {
				continue
			}
			log.Printf("heartbeat: uptime=%v band=%s short=%d medium=%d long=%d",
				hb.Uptime, hb.Band, hb.Counts.Short, hb.Counts.Medium, hb.Counts.Long)
			if b, ok := publisher.(interface{ Buffered() int }); ok && b.Buffered() > 0 {
				log.Printf("heartbeat: %d mqtt messages waiting for broker", b.Buffered())
			}

			hbEvent := mqtt.SystemEvent{
				Timestamp: hb.Timestamp,
				Event:     "HEARTBEAT",
			}
			if tracker != nil {
				// Refresh network info for heartbeat
				if net := readNetworkInfo(); net != nil {
					tracker.SetNetwork(net)
				}
				hbEvent.RawPayload = status.FormatStatusEvent(tracker.Snapshot(), "HEARTBEAT", "")
			}
			if err := publisher.PublishSystem(hbEvent); err != nil {
				log.Printf("heartbeat publish error: %v", err)
			}
		}
	}
}

// pi-helper env var names (written to /run/pi-helper.env).
const (
	envNetworkType       = "NETWORK_TYPE"
	envNetworkIP         = "NETWORK_IP"
	envNetworkStatus     = "NETWORK_STATUS"
	envNetworkGateway    = "NETWORK_GATEWAY"
	envNetworkWifiStatus = "NETWORK_WIFI_STATUS"
	envNetworkWifiSSID   = "NETWORK_WIFI_SSID"
)

func readNetworkInfo() *status.NetworkInfo {
	s := os.Getenv(envNetworkStatus)
	if s == "" {
		return nil
	}
	return &status.NetworkInfo{
		Type:       os.Getenv(envNetworkType),
		IP:         os.Getenv(envNetworkIP),
		Status:     s,
		Gateway:    os.Getenv(envNetworkGateway),
		WifiStatus: os.Getenv(envNetworkWifiStatus),
		SSID:       os.Getenv(envNetworkWifiSSID),
	}
}

func buttonString(pressed bool) string {
	if pressed {
		return "PRESSED"
	}
	return "RELEASED"
}
