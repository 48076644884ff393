package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	socketio "github.com/googollee/go-socket.io"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/Speshl/gorrc_robot/internal/config"
	"github.com/Speshl/gorrc_robot/internal/input"
	"github.com/Speshl/gorrc_robot/internal/models"
	"github.com/Speshl/gorrc_robot/internal/robot"
)

const (
	healthRate      = 30 * time.Second
	shutdownTimeout = 5 * time.Second
)

// FeedbackSource runs until its context is done, e.g. the CAN receive loop.
type FeedbackSource interface {
	Start(ctx context.Context) error
}

type App struct {
	ctx       context.Context
	ctxCancel context.CancelFunc

	cfg      config.Config
	client   *socketio.Client
	robot    *robot.Robot
	hub      *input.Hub
	feedback FeedbackSource
	gatherer prometheus.Gatherer
	stats    *ProcessStats

	robotInfo models.Robot
	fieldInfo models.Field

	connLock  sync.RWMutex
	userConns map[int]*Connection
}

// NewApp wires the field server client to the robot. A nil feedback source
// is skipped and a nil gatherer disables the metrics endpoint.
func NewApp(cfg config.Config, client *socketio.Client, rbt *robot.Robot, hub *input.Hub, feedback FeedbackSource, gatherer prometheus.Gatherer) *App {
	ctx, cancel := context.WithCancel(context.Background())
	return &App{
		ctx:       ctx,
		ctxCancel: cancel,
		cfg:       cfg,
		client:    client,
		robot:     rbt,
		hub:       hub,
		feedback:  feedback,
		gatherer:  gatherer,
		stats:     NewProcessStats(),
		userConns: make(map[int]*Connection, cfg.ServerCfg.SeatCount),
	}
}

func (a *App) RegisterHandlers() error {
	log.Println("registering handlers")
	a.client.OnEvent("reply", func(s socketio.Conn, msg string) {
		log.Println("receive message /reply: ", "reply", msg)
	})
	a.client.OnEvent("offer", a.onOffer)
	a.client.OnEvent("candidate", a.onICECandidate)
	a.client.OnEvent("register_success", a.onRegisterSuccess)
	a.client.OnEvent("mode", a.onMode)

	log.Println("attemping to connect to server...")
	err := a.client.Connect() //Client must have atleast 1 event handler to work
	if err != nil {
		return fmt.Errorf("error connecting to server - %w", err)
	}
	log.Println("connected to server")
	return nil
}

func (a *App) Start() error {
	group, groupCtx := errgroup.WithContext(a.ctx)
	log.Println("starting...")

	if err := a.robot.Init(); err != nil {
		return fmt.Errorf("error initializing robot: %w", err)
	}

	defer func() {
		log.Println("stopping...")
		a.closeConnections()
		a.client.Close()
	}()

	//kill listener
	group.Go(func() error {
		signalChannel := make(chan os.Signal, 1)
		signal.Notify(signalChannel, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(signalChannel)
		select {
		case sig := <-signalChannel:
			log.Printf("received signal: %s\n", sig)
			a.ctxCancel()
			return fmt.Errorf("received signal: %s", sig)
		case <-groupCtx.Done():
			log.Println("closing signal goroutine")
			return groupCtx.Err()
		}
	})

	//control loop
	group.Go(func() error {
		return a.robot.Start(groupCtx)
	})

	if a.feedback != nil {
		group.Go(func() error {
			return a.feedback.Start(groupCtx)
		})
	}

	if a.gatherer != nil && a.cfg.MetricsCfg.Address != "" {
		group.Go(func() error {
			return a.serveMetrics(groupCtx)
		})
	}

	group.Go(func() error {
		return a.sendHuds(groupCtx)
	})

	//Send connect and send healthchecks
	group.Go(func() error {
		encodedMsg, err := encode(models.ConnectReq{
			Key:       a.cfg.ServerCfg.Key,
			Password:  a.cfg.ServerCfg.Password,
			SeatCount: a.cfg.ServerCfg.SeatCount,
		})
		if err != nil {
			return fmt.Errorf("failed encoding connect request: %w", err)
		}
		a.client.Emit("robot_connect", encodedMsg)

		healthTicker := time.NewTicker(healthRate)
		defer healthTicker.Stop()
		for {
			select {
			case <-groupCtx.Done():
				log.Println("health checker stopped")
				return groupCtx.Err()
			case <-healthTicker.C:
				log.Println("healthcheck: healthy")
				a.client.Emit("robot_healthy", "")
			}
		}
	})

	err := group.Wait()
	if err != nil {
		if errors.Is(err, context.Canceled) {
			log.Println("context was cancelled")
			return nil
		}
		return fmt.Errorf("robot stopping due to error - %w", err)
	}

	log.Println("shutting down")
	return nil
}

// sendHuds pushes the robot HUD to every connected seat.
func (a *App) sendHuds(ctx context.Context) error {
	ticker := time.NewTicker(hudRate)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			a.broadcastHud(BuildHud(a.robot.HudLines(), a.stats.Line()))
		}
	}
}

func (a *App) broadcastHud(hud models.Hud) {
	a.connLock.RLock()
	defer a.connLock.RUnlock()
	for _, conn := range a.userConns {
		conn.PushHud(hud)
	}
}

func (a *App) serveMetrics(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(a.gatherer, promhttp.HandlerOpts{}))
	server := &http.Server{
		Addr:              a.cfg.MetricsCfg.Address,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("failed stopping metrics server: %s\n", err.Error())
		}
	}()

	log.Printf("serving metrics on %s\n", a.cfg.MetricsCfg.Address)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("metrics server failed: %w", err)
	}
	return ctx.Err()
}

func (a *App) validSeat(seat int) bool {
	return seat >= 0 && seat < a.cfg.ServerCfg.SeatCount
}

// setConnection replaces the operator on seat, closing any previous one.
func (a *App) setConnection(seat int, conn *Connection) {
	a.connLock.Lock()
	prev := a.userConns[seat]
	a.userConns[seat] = conn
	a.connLock.Unlock()

	if prev != nil {
		prev.Disconnect()
	}
}

func (a *App) closeConnections() {
	a.connLock.Lock()
	conns := a.userConns
	a.userConns = make(map[int]*Connection)
	a.connLock.Unlock()

	for _, conn := range conns {
		conn.Disconnect()
	}
}
