package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	socketio "github.com/googollee/go-socket.io"
	"github.com/pion/webrtc/v3"

	"github.com/Speshl/gorrc_robot/internal/models"
)

const (
	hudRate      = 33 * time.Millisecond // 30hz
	pingRate     = 1 * time.Second
	hudQueueSize = 10
)

// StateSink receives every control state an operator sends.
type StateSink func(models.ControlState)

// Connection is one operator seat: control states in, HUD and pings out.
type Connection struct {
	Seat           int
	Socket         socketio.Conn
	PeerConnection *webrtc.PeerConnection
	Ctx            context.Context
	CtxCancel      context.CancelFunc
	HudChannel     chan models.Hud

	sink StateSink

	lock       sync.RWMutex
	hudOutput  *webrtc.DataChannel
	pingOutput *webrtc.DataChannel
	pingInput  chan int64
}

func NewConnection(ctx context.Context, socketConn socketio.Conn, seat int, sink StateSink, peerConn *webrtc.PeerConnection) *Connection {
	if socketConn != nil {
		log.Printf("creating operator connection %s for seat %d\n", socketConn.ID(), seat)
	}
	ctx, cancel := context.WithCancel(ctx)
	return &Connection{
		Seat:           seat,
		Socket:         socketConn,
		PeerConnection: peerConn,
		Ctx:            ctx,
		CtxCancel:      cancel,
		HudChannel:     make(chan models.Hud, hudQueueSize),
		sink:           sink,
		pingInput:      make(chan int64, 10),
	}
}

func (c *Connection) Disconnect() {
	log.Printf("operator on seat %d disconnecting\n", c.Seat)
	c.CtxCancel()
	if c.PeerConnection != nil {
		if err := c.PeerConnection.Close(); err != nil {
			log.Printf("failed closing peer connection: %s\n", err.Error())
		}
	}
}

// PushHud queues a HUD update, dropping it if the sender is behind.
func (c *Connection) PushHud(hud models.Hud) {
	select {
	case c.HudChannel <- hud:
	default:
	}
}

func (c *Connection) RegisterHandlers() error {
	if c.PeerConnection == nil {
		return fmt.Errorf("no peer connection for seat %d", c.Seat)
	}

	log.Println("start event listeners")
	c.PeerConnection.OnICEConnectionStateChange(c.onICEConnectionStateChange)
	c.PeerConnection.OnICECandidate(c.onICECandidate)
	c.PeerConnection.OnDataChannel(c.onDataChannel)

	go c.sendLoop()
	return nil
}

// sendLoop sends the newest HUD at most at hudRate and pings once a second.
func (c *Connection) sendLoop() {
	pingTicker := time.NewTicker(pingRate)
	defer pingTicker.Stop()
	hudTicker := time.NewTicker(hudRate)
	defer hudTicker.Stop()

	sent := true
	hudToSend := models.Hud{}
	lastPing := int64(0)
	for {
		select {
		case <-c.Ctx.Done():
			log.Printf("stopping operator updater: %s\n", c.Ctx.Err().Error())
			return
		case hud := <-c.HudChannel:
			hudToSend = hud
			sent = false
		case <-pingTicker.C:
			if err := c.sendPing(); err != nil {
				log.Printf("failed sending ping: %s\n", err.Error())
			}
		case rtt := <-c.pingInput:
			lastPing = rtt
		case <-hudTicker.C:
			if sent {
				continue
			}
			sent = true
			if err := c.sendHud(withPing(hudToSend, lastPing)); err != nil {
				log.Printf("failed sending hud: %s\n", err.Error())
			}
		}
	}
}

func (c *Connection) sendPing() error {
	c.lock.RLock()
	out := c.pingOutput
	c.lock.RUnlock()
	if out == nil {
		return nil
	}

	data, err := json.Marshal(models.Ping{
		TimeStamp: time.Now().UnixMilli(),
		Source:    PingSourceName,
	})
	if err != nil {
		return err
	}
	return out.Send(data)
}

func (c *Connection) sendHud(hud models.Hud) error {
	c.lock.RLock()
	out := c.hudOutput
	c.lock.RUnlock()
	if out == nil {
		return nil
	}

	encodedMsg, err := encode(hud)
	if err != nil {
		return err
	}
	return out.SendText(encodedMsg)
}

// withPing appends the round trip time to the first line.
func withPing(hud models.Hud, ping int64) models.Hud {
	if len(hud.Lines) == 0 {
		return hud
	}
	lines := append([]string(nil), hud.Lines...)
	lines[0] = fmt.Sprintf("%s | Ping:%dms", lines[0], ping)
	return models.Hud{Lines: lines}
}
