package main

import (
	"fmt"
	"io"
	"log"
	"os"

	socketio "github.com/googollee/go-socket.io"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/Speshl/gorrc_robot/internal/actuator"
	"github.com/Speshl/gorrc_robot/internal/actuator/canbus"
	"github.com/Speshl/gorrc_robot/internal/actuator/pca9685"
	"github.com/Speshl/gorrc_robot/internal/actuator/pipwm"
	"github.com/Speshl/gorrc_robot/internal/app"
	"github.com/Speshl/gorrc_robot/internal/command"
	"github.com/Speshl/gorrc_robot/internal/config"
	"github.com/Speshl/gorrc_robot/internal/input"
	"github.com/Speshl/gorrc_robot/internal/robot"
)

func main() {
	cfg := config.GetConfig()

	if cfg.LogCfg.File != "" {
		log.SetOutput(io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:   cfg.LogCfg.File,
			MaxSize:    cfg.LogCfg.MaxSizeMB,
			MaxBackups: cfg.LogCfg.MaxBackups,
		}))
	}

	driver, err := newDriver(cfg.ActuatorCfg)
	if err != nil {
		panic(err)
	}

	hw := robot.Hardware{Driver: driver}
	if cfg.RelayCfg.Enabled {
		relay, err := pipwm.NewRelay(cfg.RelayCfg.Pin)
		if err != nil {
			panic(fmt.Errorf("error creating relay - %w", err))
		}
		shifter, err := pipwm.NewRelay(cfg.RelayCfg.ShifterPin)
		if err != nil {
			panic(fmt.Errorf("error creating shifter - %w", err))
		}
		hw.Relay = relay
		hw.Shifter = shifter
	}

	var feedback app.FeedbackSource
	if cfg.FeedbackCfg.Enabled {
		fb := canbus.NewFeedback(cfg.FeedbackCfg, nil)
		hw.Pose = fb
		hw.WheelSpeeds = fb
		hw.VisionYaw = fb.VisionYaw
		feedback = fb
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	hub := input.NewHub(cfg.ServerCfg.SeatCount, cfg.ControlCfg.SeatTimeout, nil)
	rbt, err := robot.NewRobot(cfg, hw, hub, command.NewMetrics(registry), nil)
	if err != nil {
		panic(fmt.Errorf("error creating robot - %w", err))
	}

	socketURI := fmt.Sprintf("http://%s", cfg.ServerCfg.Server)
	client, err := socketio.NewClient(socketURI, nil)
	if err != nil {
		panic(fmt.Errorf("error creating client - %w", err))
	}

	app := app.NewApp(cfg, client, rbt, hub, feedback, registry)
	err = app.RegisterHandlers()
	if err != nil {
		log.Printf("robot failed registering handlers: %s", err.Error())
		os.Exit(1)
	}

	err = app.Start()
	if err != nil {
		log.Printf("robot shutdown with error: %s", err.Error())
	} else {
		log.Println("robot shutdown successfully")
	}
}

func newDriver(cfg config.ActuatorConfig) (actuator.Driver, error) {
	switch cfg.Driver {
	case "pca9685":
		return pca9685.NewDriver(cfg), nil
	case "pipwm":
		return pipwm.NewDriver(cfg), nil
	case "can":
		return canbus.NewDriver(cfg), nil
	case "sim":
		return actuator.NewSimDriver(), nil
	default:
		return nil, fmt.Errorf("unsupported actuator driver: %s", cfg.Driver)
	}
}
