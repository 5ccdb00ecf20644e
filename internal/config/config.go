package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"gnss-ingest/internal/gdl90"
)

type Config struct {
	Serial  SerialConfig  `yaml:"serial"`
	Net     NetConfig     `yaml:"net"`
	Ring    RingConfig    `yaml:"ring"`
	Decoder DecoderConfig `yaml:"decoder"`
	Replay  ReplayConfig  `yaml:"replay"`
	Sim     SimConfig     `yaml:"sim"`
	Record  RecordConfig  `yaml:"record"`
	UDP     UDPConfig     `yaml:"udp"`
	MQTT    MQTTConfig    `yaml:"mqtt"`
	GDL90   GDL90Config   `yaml:"gdl90"`
	Web     WebConfig     `yaml:"web"`
}

// SerialConfig selects a local receiver. Device "auto" probes the usual USB
// serial device nodes.
type SerialConfig struct {
	Device string `yaml:"device"`
	Baud   int    `yaml:"baud"`
}

// NetConfig reads NMEA over TCP. With GPSD set the address is a gpsd
// daemon and a WATCH request asks it to relay raw sentences.
type NetConfig struct {
	Enable         bool          `yaml:"enable"`
	Addr           string        `yaml:"addr"`
	GPSD           bool          `yaml:"gpsd"`
	ReconnectDelay time.Duration `yaml:"reconnect_delay"`
}

type RingConfig struct {
	RxSize int `yaml:"rx_size"`
	TxSize int `yaml:"tx_size"`
}

// DecoderConfig tunes framing. Init is written to the receiver once the
// stream is up, for example a rate or message-selection sentence. It is
// sent verbatim, so it carries its own CR LF.
type DecoderConfig struct {
	MaxSentence int    `yaml:"max_sentence"`
	Sync        string `yaml:"sync"`
	Init        string `yaml:"init"`
}

type ReplayConfig struct {
	Enable bool    `yaml:"enable"`
	Path   string  `yaml:"path"`
	Speed  float64 `yaml:"speed"`
	Loop   bool    `yaml:"loop"`
}

// SimConfig drives a synthetic receiver flying a figure-eight around a
// center point.
type SimConfig struct {
	Enable       bool          `yaml:"enable"`
	CenterLatDeg float64       `yaml:"center_lat_deg"`
	CenterLonDeg float64       `yaml:"center_lon_deg"`
	AltFeet      int           `yaml:"alt_feet"`
	GroundKt     int           `yaml:"ground_kt"`
	RadiusNm     float64       `yaml:"radius_nm"`
	Period       time.Duration `yaml:"period"`
	Interval     time.Duration `yaml:"interval"`
}

type RecordConfig struct {
	Enable bool   `yaml:"enable"`
	Dir    string `yaml:"dir"`
}

type UDPConfig struct {
	Enable    bool   `yaml:"enable"`
	Dest      string `yaml:"dest"`
	Sentences bool   `yaml:"sentences"`
}

type MQTTConfig struct {
	Enable   bool   `yaml:"enable"`
	Broker   string `yaml:"broker"`
	ClientID string `yaml:"client_id"`
	Topic    string `yaml:"topic"`
	QoS      int    `yaml:"qos"`
}

// GDL90Config sends heartbeat and ownship reports to an EFB app.
type GDL90Config struct {
	Enable   bool   `yaml:"enable"`
	Dest     string `yaml:"dest"`
	ICAO     string `yaml:"icao"`
	Callsign string `yaml:"callsign"`
}

type WebConfig struct {
	Enable   bool   `yaml:"enable"`
	Listen   string `yaml:"listen"`
	LogLines int    `yaml:"log_lines"`
}

func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	return Parse(b)
}

// Parse decodes YAML, rejects unknown keys, applies defaults and validates.
func Parse(b []byte) (Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, err
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (cfg *Config) applyDefaults() {
	cfg.Serial.Device = strings.TrimSpace(cfg.Serial.Device)
	if cfg.Serial.Baud == 0 {
		cfg.Serial.Baud = 9600
	}
	if cfg.Net.Addr == "" {
		cfg.Net.Addr = "127.0.0.1:2947"
	}
	if cfg.Net.ReconnectDelay == 0 {
		cfg.Net.ReconnectDelay = 2 * time.Second
	}
	if cfg.Ring.RxSize == 0 {
		cfg.Ring.RxSize = 1024
	}
	if cfg.Ring.TxSize == 0 {
		cfg.Ring.TxSize = 256
	}
	if cfg.Decoder.MaxSentence == 0 {
		cfg.Decoder.MaxSentence = 82
	}
	if cfg.Replay.Speed == 0 {
		cfg.Replay.Speed = 1
	}
	if cfg.Sim.AltFeet == 0 {
		cfg.Sim.AltFeet = 3000
	}
	if cfg.Sim.GroundKt == 0 {
		cfg.Sim.GroundKt = 90
	}
	if cfg.Sim.RadiusNm == 0 {
		cfg.Sim.RadiusNm = 0.5
	}
	if cfg.Sim.Period == 0 {
		cfg.Sim.Period = 120 * time.Second
	}
	if cfg.Sim.Interval == 0 {
		cfg.Sim.Interval = 1 * time.Second
	}
	if cfg.Record.Dir == "" {
		cfg.Record.Dir = "./captures"
	}
	if cfg.UDP.Dest == "" {
		cfg.UDP.Dest = "127.0.0.1:10110"
	}
	if cfg.MQTT.ClientID == "" {
		cfg.MQTT.ClientID = "gnss-ingest"
	}
	if cfg.MQTT.Topic == "" {
		cfg.MQTT.Topic = "gnss/fix"
	}
	if cfg.GDL90.Dest == "" {
		cfg.GDL90.Dest = "127.0.0.1:4000"
	}
	if cfg.GDL90.ICAO == "" {
		cfg.GDL90.ICAO = "F00000"
	}
	if cfg.Web.Listen == "" {
		cfg.Web.Listen = ":8080"
	}
	if cfg.Web.LogLines == 0 {
		cfg.Web.LogLines = 2000
	}
}

func (cfg Config) validate() error {
	sources := 0
	if cfg.Serial.Device != "" {
		sources++
	}
	if cfg.Net.Enable {
		sources++
	}
	if cfg.Replay.Enable {
		sources++
	}
	if cfg.Sim.Enable {
		sources++
	}
	if sources == 0 {
		return fmt.Errorf("serial.device is required unless net, replay or sim is enabled")
	}
	if sources > 1 {
		return fmt.Errorf("only one of serial.device, net, replay and sim may be used")
	}

	if cfg.Net.ReconnectDelay < 0 {
		return fmt.Errorf("net.reconnect_delay must be > 0")
	}
	if cfg.Serial.Baud < 0 {
		return fmt.Errorf("serial.baud must be > 0")
	}
	if cfg.Ring.RxSize < 2 || cfg.Ring.TxSize < 2 {
		return fmt.Errorf("ring sizes must be >= 2")
	}
	if cfg.Decoder.MaxSentence < 11 {
		return fmt.Errorf("decoder.max_sentence must be >= 11")
	}

	if cfg.Replay.Enable {
		if cfg.Replay.Path == "" {
			return fmt.Errorf("replay.path is required when replay.enable is true")
		}
		if cfg.Replay.Speed < 0 {
			return fmt.Errorf("replay.speed must be > 0")
		}
		if cfg.Record.Enable {
			return fmt.Errorf("record and replay cannot both be enabled")
		}
	}

	if cfg.Sim.Enable {
		if cfg.Sim.CenterLatDeg < -90 || cfg.Sim.CenterLatDeg > 90 {
			return fmt.Errorf("sim.center_lat_deg must be within [-90,90]")
		}
		if cfg.Sim.CenterLonDeg < -180 || cfg.Sim.CenterLonDeg > 180 {
			return fmt.Errorf("sim.center_lon_deg must be within [-180,180]")
		}
		if cfg.Sim.Interval < 0 || cfg.Sim.Period < 0 {
			return fmt.Errorf("sim.interval and sim.period must be > 0")
		}
	}

	if cfg.MQTT.Enable && cfg.MQTT.Broker == "" {
		return fmt.Errorf("mqtt.broker is required when mqtt.enable is true")
	}
	if cfg.MQTT.QoS < 0 || cfg.MQTT.QoS > 2 {
		return fmt.Errorf("mqtt.qos must be 0, 1 or 2")
	}
	if cfg.GDL90.Enable {
		if _, err := gdl90.ParseICAOHex(cfg.GDL90.ICAO); err != nil {
			return fmt.Errorf("gdl90.icao: %w", err)
		}
	}
	if cfg.Web.LogLines < 0 {
		return fmt.Errorf("web.log_lines must be > 0")
	}
	return nil
}
