package app

import (
	"encoding/json"
	"log"
	"time"

	"github.com/pion/webrtc/v3"

	"github.com/Speshl/gorrc_robot/internal/models"
)

const PingSourceName = "robot"

func (c *Connection) onICEConnectionStateChange(connectionState webrtc.ICEConnectionState) {
	log.Printf("connection state has changed: %s\n", connectionState.String())
	if connectionState == webrtc.ICEConnectionStateFailed || connectionState == webrtc.ICEConnectionStateClosed {
		c.CtxCancel()
	}
}

func (c *Connection) onICECandidate(candidate *webrtc.ICECandidate) {
	if candidate != nil {
		log.Printf("recieved ICE candidate from operator: %s\n", candidate.String())
	}
}

func (c *Connection) onDataChannel(d *webrtc.DataChannel) {
	log.Printf("new data channel: %s\n", d.Label())

	d.OnOpen(func() {
		log.Printf("data channel open: %s\n", d.Label())
		c.lock.Lock()
		defer c.lock.Unlock()
		switch d.Label() {
		case "hud":
			c.hudOutput = d
		case "ping":
			c.pingOutput = d
		}
	})

	switch d.Label() {
	case "command":
		d.OnMessage(func(msg webrtc.DataChannelMessage) { c.onCommandHandler(msg.Data) })
	case "ping":
		d.OnMessage(func(msg webrtc.DataChannelMessage) { c.onPingHandler(msg.Data) })
	case "hud":
	default:
		log.Printf("recieved message on unsupported channel: %s\n", d.Label())
	}
}

// onCommandHandler hands the state to the sink stamped with this seat, so an
// operator can only drive the seat it connected to.
func (c *Connection) onCommandHandler(data []byte) {
	state := models.ControlState{}
	err := json.Unmarshal(data, &state)
	if err != nil {
		log.Printf("failed unmarshalling data channel msg: %s\n", data)
		return
	}
	state.Seat = c.Seat
	c.sink(state)
}

func (c *Connection) onPingHandler(data []byte) {
	ping := models.Ping{}
	err := json.Unmarshal(data, &ping)
	if err != nil {
		log.Printf("failed unmarshalling data channel msg: %s\n", data)
		return
	}
	if ping.Source != PingSourceName {
		return
	}

	select {
	case c.pingInput <- time.Now().UnixMilli() - ping.TimeStamp:
	default:
	}
}
