package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/chaz8081/sonicare-ble/internal/ble"
	"github.com/chaz8081/sonicare-ble/internal/config"
	"github.com/chaz8081/sonicare-ble/internal/monitor"
	"github.com/chaz8081/sonicare-ble/internal/publish"
	"github.com/chaz8081/sonicare-ble/internal/sonicare"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "path to config file (default: ~/.config/sonicare-ble/config.yaml)")
	envFile := flag.String("env", ".env", "dotenv file with overrides, ignored if missing")
	writeDefault := flag.Bool("write-config", false, "write the default config file and exit")
	flag.Parse()

	if *writeDefault {
		path, err := config.WriteDefault()
		if err != nil {
			log.Fatalf("config: %v", err)
		}
		if path == "" {
			fmt.Println("Config already exists at", config.DefaultConfigPath())
		} else {
			fmt.Println("Wrote default config to", path)
		}
		return
	}

	// Load configuration
	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if err := cfg.ApplyEnv(*envFile); err != nil {
		log.Fatalf("config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config validation: %v", err)
	}

	slog.SetLogLoggerLevel(config.ParseLogLevel(cfg.LogLevel))

	printBanner(cfg)

	adapter, err := ble.NewTinyGoAdapter(sonicare.AdvertisementUUID)
	if err != nil {
		log.Fatalf("Failed to set up BLE adapter: %v", err)
	}

	var sink publish.Sink = publish.Log{}
	closeSink := func() {}
	if cfg.MQTT.Enabled {
		mq, err := publish.DialMQTT(publish.MQTTOptions{
			Broker:      cfg.MQTT.Broker,
			ClientID:    cfg.MQTT.ClientID,
			Username:    cfg.MQTT.Username,
			Password:    cfg.MQTT.Password,
			TopicPrefix: cfg.MQTT.TopicPrefix,
			QoS:         cfg.MQTT.QoS,
			Retain:      cfg.MQTT.Retain,
		})
		if err != nil {
			log.Fatalf("Failed to connect to MQTT broker: %v", err)
		}
		closeSink = mq.Close
		sink = mq
	}

	mon := monitor.New(adapter, sink, monitor.Options{
		Schedule: sonicare.Schedule{
			BrushingInterval: cfg.Poll.BrushingInterval,
			IdleInterval:     cfg.Poll.IdleInterval,
			RecentlyBrushing: cfg.Poll.RecentlyBrushing,
		},
		Decoder:         sonicare.Decoder{Location: cfg.Location()},
		Timeout:         cfg.Poll.Timeout,
		ConnectAttempts: cfg.Poll.ConnectAttempts,
		ReconnectMax:    cfg.Poll.ReconnectMax,
		MaxConcurrent:   cfg.Poll.MaxConcurrent,
	})

	// Signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Println("Watching for Sonicare toothbrushes. Ctrl+C to quit.")
	err = mon.Run(ctx)
	closeSink()
	if err != nil {
		log.Printf("ERROR: %v", err)
		stop()
		os.Exit(1)
	}
	log.Println("Goodbye!")
}

// loadConfig loads the config from the specified path, or falls back to
// the default config path, or uses built-in defaults.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}

	// Try default config path
	defaultPath := config.DefaultConfigPath()
	if _, err := os.Stat(defaultPath); err == nil {
		cfg, err := config.Load(defaultPath)
		if err != nil {
			return nil, fmt.Errorf("loading %s: %w", defaultPath, err)
		}
		log.Printf("Config loaded from %s", defaultPath)
		return cfg, nil
	}

	// No config file, use defaults
	log.Println("No config file found, using defaults")
	return config.Default(), nil
}

// printBanner displays the startup configuration summary.
func printBanner(cfg *config.Config) {
	fmt.Println("=== sonicare-ble ===")
	fmt.Printf("  Poll:    %s brushing / %s idle (recent: %s)\n", cfg.Poll.BrushingInterval, cfg.Poll.IdleInterval, cfg.Poll.RecentlyBrushing)
	fmt.Printf("  Connect: %d attempts, %s timeout\n", cfg.Poll.ConnectAttempts, cfg.Poll.Timeout)
	if cfg.MQTT.Enabled {
		fmt.Printf("  MQTT:    %s (%s/...)\n", cfg.MQTT.Broker, cfg.MQTT.TopicPrefix)
	} else {
		fmt.Println("  MQTT:    disabled, logging readings")
	}
	fmt.Printf("  Clock:   %s\n", cfg.Location())
	fmt.Printf("  Log:     %s\n", cfg.LogLevel)
	fmt.Println("====================")
}
