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

	"gnss-ingest/internal/config"
	"gnss-ingest/internal/gdl90"
	"gnss-ingest/internal/gps"
	"gnss-ingest/internal/mqttpub"
	"gnss-ingest/internal/replay"
	"gnss-ingest/internal/sim"
	"gnss-ingest/internal/uart"
	"gnss-ingest/internal/udp"
	"gnss-ingest/internal/web"
)

func main() {
	var configPath string
	var summarizePath string
	flag.StringVar(&configPath, "config", "./dev.yaml", "Path to YAML config")
	flag.StringVar(&summarizePath, "summarize", "", "Print a summary of an NMEA capture file and exit")
	flag.Parse()

	if summarizePath != "" {
		if err := printCaptureSummary(os.Stdout, summarizePath); err != nil {
			log.Fatalf("summarize failed: %v", err)
		}
		return
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	logs := web.NewLogBuffer(cfg.Web.LogLines)
	log.SetOutput(io.MultiWriter(os.Stderr, logs))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	log.Printf("gnss-ingest starting config=%s", configPath)
	if err := run(ctx, cfg, logs); err != nil {
		log.Fatalf("gnss-ingest failed: %v", err)
	}
	log.Printf("gnss-ingest stopping")
}

func run(ctx context.Context, cfg config.Config, logs *web.LogBuffer) error {
	drv, err := uart.NewDriver(cfg.Ring.RxSize, cfg.Ring.TxSize)
	if err != nil {
		return err
	}

	port, source, err := openSource(ctx, cfg)
	if err != nil {
		return err
	}
	defer port.Close()
	log.Printf("source=%s rx_ring=%d tx_ring=%d", source, cfg.Ring.RxSize, cfg.Ring.TxSize)

	status := web.NewStatus()
	out := newFanout(status, 8)

	var broadcaster *udp.Broadcaster
	if cfg.UDP.Enable {
		broadcaster, err = udp.NewBroadcaster(cfg.UDP.Dest)
		if err != nil {
			return fmt.Errorf("udp broadcaster init: %w", err)
		}
		defer broadcaster.Close()
		out.add("udp:"+cfg.UDP.Dest, broadcaster.SendJSON)
	}

	if cfg.MQTT.Enable {
		pub, err := mqttpub.New(mqttpub.Config{
			Broker:   cfg.MQTT.Broker,
			ClientID: cfg.MQTT.ClientID,
			Topic:    cfg.MQTT.Topic,
			QoS:      byte(cfg.MQTT.QoS),
		})
		if err != nil {
			return err
		}
		defer pub.Close()
		out.add("mqtt:"+cfg.MQTT.Topic, pub.Publish)
	}

	if cfg.GDL90.Enable {
		icao, err := gdl90.ParseICAOHex(cfg.GDL90.ICAO)
		if err != nil {
			return err
		}
		efb, err := udp.NewBroadcaster(cfg.GDL90.Dest)
		if err != nil {
			return fmt.Errorf("gdl90 broadcaster init: %w", err)
		}
		defer efb.Close()
		enc := gdl90.Encoder{ICAO: icao, Callsign: cfg.GDL90.Callsign}
		out.add("gdl90:"+cfg.GDL90.Dest, gdl90Sink(enc, efb.Send))
	}

	var hub *web.Hub
	if cfg.Web.Enable {
		hub = web.NewHub()
		defer hub.Close()
		out.add("web:stream", hub.Publish)
	}

	var recorder *replay.Recorder
	if cfg.Record.Enable {
		recorder, err = replay.NewRecorder(cfg.Record.Dir)
		if err != nil {
			return err
		}
		defer recorder.Close()
		log.Printf("recording dir=%s", cfg.Record.Dir)
	}

	initCmd := cfg.Decoder.Init
	var reconnected <-chan struct{}
	nc, isNet := port.(*gps.NetClient)
	if isNet {
		reconnected = nc.Connected()
		if cfg.Net.GPSD {
			initCmd = gps.GPSDWatch + initCmd
		}
	}

	svc := gps.New(gps.Config{
		SyncPattern: cfg.Decoder.Sync,
		MaxSentence: cfg.Decoder.MaxSentence,
		InitCommand: initCmd,
		Reconnected: reconnected,
		OnSentence: func(line string) {
			if recorder != nil {
				recorder.Record(line)
			}
			if broadcaster != nil && cfg.UDP.Sentences {
				_ = broadcaster.SendSentence(line)
			}
		},
		OnFix: out.Offer,
	}, drv)

	status.SetStatic(source, out.names())
	status.SetGPS(svc.Snapshot)
	if isNet {
		status.SetNet(nc.Snapshot)
	}

	go out.Run(ctx)

	if err := svc.Start(ctx); err != nil {
		return err
	}
	defer svc.Close()

	if cfg.Web.Enable {
		go func() {
			log.Printf("web listen=%s", cfg.Web.Listen)
			err := web.Serve(ctx, cfg.Web.Listen, web.Handler(status, logs, hub))
			if err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("web server stopped: %v", err)
			}
		}()
	}

	linkErr := make(chan error, 1)
	go func() {
		linkErr <- uart.NewLink(port, drv).Run(ctx)
	}()

	select {
	case <-ctx.Done():
		_ = port.Close()
		<-linkErr
	case err := <-linkErr:
		if err != nil {
			return fmt.Errorf("link %s: %w", source, err)
		}
		log.Printf("source finished source=%s", source)
	}

	snap := svc.Snapshot()
	log.Printf("totals sentences=%d fixes=%d unsupported=%d framer_dropped=%d rx_dropped=%d rx_resets=%d",
		snap.Sentences, snap.Fixes, snap.Unsupported, snap.FramerDropped,
		snap.Transport.RxDropped, snap.Transport.RxResets,
	)
	return nil
}

// openSource returns the byte stream to ingest and a short description of
// where it comes from.
func openSource(ctx context.Context, cfg config.Config) (io.ReadWriteCloser, string, error) {
	switch {
	case cfg.Replay.Enable:
		recs, err := replay.ReadFile(cfg.Replay.Path)
		if err != nil {
			return nil, "", fmt.Errorf("replay load: %w", err)
		}
		return replay.NewSource(ctx, recs, cfg.Replay.Speed, cfg.Replay.Loop), "replay:" + cfg.Replay.Path, nil

	case cfg.Sim.Enable:
		own := sim.Ownship{
			CenterLatDeg: cfg.Sim.CenterLatDeg,
			CenterLonDeg: cfg.Sim.CenterLonDeg,
			AltFeet:      cfg.Sim.AltFeet,
			GroundKt:     cfg.Sim.GroundKt,
			RadiusNm:     cfg.Sim.RadiusNm,
			Period:       cfg.Sim.Period,
		}
		return sim.NewSource(ctx, own, cfg.Sim.Interval), fmt.Sprintf("sim:%.4f,%.4f", own.CenterLatDeg, own.CenterLonDeg), nil

	case cfg.Net.Enable:
		name := "tcp"
		if cfg.Net.GPSD {
			name = "gpsd"
		}
		c, err := gps.NewNetClient(ctx, gps.NetClientConfig{
			Name:           name,
			Addr:           cfg.Net.Addr,
			GPSD:           cfg.Net.GPSD,
			ReconnectDelay: cfg.Net.ReconnectDelay,
		})
		if err != nil {
			return nil, "", err
		}
		return c, name + ":" + cfg.Net.Addr, nil

	default:
		device := cfg.Serial.Device
		if device == "auto" {
			device = gps.AutoDetectDevice()
			if device == "" {
				return nil, "", fmt.Errorf("no serial GPS device found")
			}
		}
		port, err := gps.OpenSerial(device, cfg.Serial.Baud)
		if err != nil {
			return nil, "", fmt.Errorf("open %s: %w", device, err)
		}
		return port, fmt.Sprintf("serial:%s@%d", device, cfg.Serial.Baud), nil
	}
}
