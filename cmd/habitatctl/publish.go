package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"time"

	"habitat-monitor/internal/config"
	"habitat-monitor/internal/mqtt"
)

type publishArgs struct {
	node string
	msg  mqtt.ReadingMessage
}

func parsePublishArgs(args []string) (publishArgs, error) {
	var p publishArgs
	fs := flag.NewFlagSet("publish", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&p.node, "node", "habitatctl", "node name used in the topic")
	fs.Float64Var(&p.msg.Temperature, "temp", 0, "temperature in °C")
	fs.Float64Var(&p.msg.Humidity, "hum", 0, "relative humidity in %")
	fs.Float64Var(&p.msg.WaterLevel, "water", 0, "water level in %")
	fs.BoolVar(&p.msg.Stable, "stable", true, "stability flag")
	if err := fs.Parse(args); err != nil {
		return publishArgs{}, err
	}
	if fs.NArg() > 0 {
		return publishArgs{}, fmt.Errorf("unexpected arguments %v", fs.Args())
	}
	return p, nil
}

func runPublish(ctx context.Context, cfg config.Config, args []string, out io.Writer) error {
	if !cfg.MQTTEnabled() {
		return errors.New("MQTT_BROKER is not set")
	}
	p, err := parsePublishArgs(args)
	if err != nil {
		return err
	}

	cfg.MQTTClientID = fmt.Sprintf("%s-%d", appName, time.Now().UnixNano())
	publisher := mqtt.NewPublisher(cfg, slog.Default())

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := publisher.Connect(connectCtx); err != nil {
		return err
	}
	defer publisher.Disconnect()

	if err := publisher.PublishReading(p.node, p.msg); err != nil {
		return err
	}
	fmt.Fprintf(out, "published reading for %s\n", p.node)
	return nil
}
