package app

import (
	"encoding/json"
	"log"

	socketio "github.com/googollee/go-socket.io"
	"github.com/pion/webrtc/v3"

	"github.com/Speshl/gorrc_robot/internal/models"
	"github.com/Speshl/gorrc_robot/internal/robot"
)

func encode(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func decode(msg string, v any) error {
	return json.Unmarshal([]byte(msg), v)
}

func (a *App) onOffer(socketConn socketio.Conn, msgs []string) {
	if len(msgs) == 0 {
		log.Printf("offer from %s had no msgs\n", socketConn.ID())
		return
	}
	if len(msgs) > 1 {
		log.Printf("offer from %s had to many msgs: %d\n", socketConn.ID(), len(msgs))
	}

	offer := models.Offer{}
	err := decode(msgs[0], &offer)
	if err != nil {
		log.Printf("offer from %s failed unmarshaling: %s\n", socketConn.ID(), err.Error())
		return
	}

	if !a.validSeat(offer.SeatNumber) {
		log.Printf("offer was for unsupported seat number: %d\n", offer.SeatNumber)
		return
	}

	peerConn, err := webrtc.NewPeerConnection(webrtc.Configuration{})
	if err != nil {
		log.Printf("failed creating peer connection for seat %d: %s\n", offer.SeatNumber, err.Error())
		return
	}

	conn := NewConnection(a.ctx, socketConn, offer.SeatNumber, a.hub.Update, peerConn)
	if err := conn.RegisterHandlers(); err != nil {
		log.Printf("failed registering handlers for seat %d: %s\n", offer.SeatNumber, err.Error())
		conn.Disconnect()
		return
	}
	a.setConnection(offer.SeatNumber, conn)

	if err := peerConn.SetRemoteDescription(offer.Offer); err != nil {
		log.Printf("failed to set remote description: %s\n", err.Error())
		return
	}

	answer, err := peerConn.CreateAnswer(nil)
	if err != nil {
		log.Printf("failed to create answer: %s\n", err.Error())
		return
	}

	// only one signalling message is exchanged, so wait for every candidate
	gatherComplete := webrtc.GatheringCompletePromise(peerConn)
	if err := peerConn.SetLocalDescription(answer); err != nil {
		log.Printf("failed to set local description: %s\n", err.Error())
		return
	}
	<-gatherComplete

	encodedAnswer, err := encode(models.Answer{
		Answer:     peerConn.LocalDescription(),
		SeatNumber: offer.SeatNumber,
	})
	if err != nil {
		log.Printf("failed encoding answer: %s\n", err.Error())
		return
	}
	log.Println("sending answer")
	a.client.Emit("answer", encodedAnswer)
}

func (a *App) onICECandidate(socketConn socketio.Conn, msg string) {
	decodedMsg := ""
	err := decode(msg, &decodedMsg)
	if err != nil {
		log.Printf("ice candidate from %s failed unmarshaling: %s\n", socketConn.ID(), msg)
		return
	}
}

func (a *App) onRegisterSuccess(socketConn socketio.Conn, msgs []string) {
	if len(msgs) == 0 {
		return
	}

	decodedMsg := models.ConnectResp{}
	err := decode(msgs[0], &decodedMsg)
	if err != nil {
		log.Printf("register response from %s failed unmarshaling: %s\n", socketConn.ID(), msgs[0])
		return
	}

	a.robotInfo = decodedMsg.Robot
	a.fieldInfo = decodedMsg.Field
	log.Printf("robot connected as %s(%s) @ %s(%s) with %d seats available\n", a.robotInfo.Name, a.robotInfo.ShortName,
		a.fieldInfo.Name, a.fieldInfo.ShortName, a.cfg.ServerCfg.SeatCount)
}

// onMode queues a mode change from the field server for the control loop.
func (a *App) onMode(socketConn socketio.Conn, msg string) {
	req := models.ModeReq{}
	if err := decode(msg, &req); err != nil {
		log.Printf("mode request from %s failed unmarshaling: %s\n", socketConn.ID(), msg)
		return
	}
	if err := a.handleMode(req); err != nil {
		log.Printf("mode request rejected: %s\n", err.Error())
	}
}

func (a *App) handleMode(req models.ModeReq) error {
	mode, err := robot.ParseMode(req.Mode)
	if err != nil {
		return err
	}
	return a.robot.RequestMode(mode)
}
