package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/url"
	"os"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/vovakirdan/wirechat-gateway/internal/core"
	"github.com/vovakirdan/wirechat-gateway/internal/proto"
)

func main() {
	if err := run(); err != nil {
		log.Printf("ws_smoke: %v", err)
		os.Exit(1)
	}
}

func run() error {
	addr := flag.String("addr", "ws://localhost:8080/ws", "WebSocket address")
	token := flag.String("token", "", "JWT issued by /api/login")
	room := flag.Int64("room", 0, "room id to enter and post to")
	text := flag.String("text", "hello from smoke test", "message text to send")
	timeout := flag.Duration("timeout", 5*time.Second, "total timeout for the run")
	flag.Parse()

	if *token == "" || *room <= 0 {
		return fmt.Errorf("-token and -room are required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, *addr+"?token="+url.QueryEscape(*token), nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	send := func(typ, id string, data any) error {
		payload, err := json.Marshal(data)
		if err != nil {
			return fmt.Errorf("marshal %s: %w", typ, err)
		}
		if err := wsjson.Write(ctx, conn, proto.Inbound{Type: typ, ID: id, Data: payload}); err != nil {
			return fmt.Errorf("send %s: %w", typ, err)
		}
		return nil
	}

	if err := send(proto.InboundTypeEnter, "enter", proto.RoomData{RoomID: *room}); err != nil {
		return err
	}
	if err := send(proto.InboundTypePost, "post", proto.PostData{RoomID: *room, Message: *text}); err != nil {
		return err
	}

	for {
		var frame struct {
			Type  string          `json:"type"`
			ID    string          `json:"id"`
			Event string          `json:"event"`
			Data  json.RawMessage `json:"data"`
			Error *proto.Error    `json:"error"`
		}
		if err := wsjson.Read(ctx, conn, &frame); err != nil {
			return fmt.Errorf("read: %w", err)
		}

		fmt.Printf("Received: type=%s", frame.Type)
		if frame.ID != "" {
			fmt.Printf(" id=%s", frame.ID)
		}
		if frame.Event != "" {
			fmt.Printf(" event=%s", frame.Event)
		}
		fmt.Println()

		if frame.Error != nil {
			return fmt.Errorf("server error %s: %s", frame.Error.Code, frame.Error.Msg)
		}

		if frame.Event == core.EventChatsReceive {
			var evt core.ReceiveEvent
			if err := json.Unmarshal(frame.Data, &evt); err != nil {
				fmt.Printf("Raw data: %s\n", string(frame.Data))
				return fmt.Errorf("unmarshal receive: %w", err)
			}
			fmt.Printf("Message: room=%d from=%d content=%q\n", evt.RoomID, evt.Message.FromUID, evt.Message.Content)
			return nil
		}
	}
}
