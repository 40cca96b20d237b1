package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/vovakirdan/pairchat/internal/proto"
)

// inbound mirrors proto.Outbound with the payload left raw.
type inbound struct {
	Type  string          `json:"type"`
	Ref   string          `json:"ref"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
	Error *proto.Error    `json:"error"`
}

func main() {
	if err := run(); err != nil {
		log.Printf("ws_chat: %v", err)
		os.Exit(1)
	}
}

func run() error {
	addr := flag.String("addr", "ws://localhost:8080/ws", "WebSocket address")
	token := flag.String("token", os.Getenv("PAIRCHAT_TOKEN"), "bearer token (see `pairchat token`)")
	with := flag.String("with", "", "username of the person to chat with")
	flag.Parse()

	if *token == "" || *with == "" {
		return errors.New("-token and -with are required")
	}

	baseCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(baseCtx)
	defer cancel()

	conn, resp, err := websocket.Dial(ctx, *addr, &websocket.DialOptions{
		HTTPHeader: http.Header{"Authorization": []string{"Bearer " + *token}},
	})
	if err != nil {
		if resp != nil {
			return fmt.Errorf("dial: %w (status %d)", err, resp.StatusCode)
		}
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	room, err := joinPrivateRoom(ctx, conn, *with)
	if err != nil {
		return err
	}

	fmt.Printf("Connected to %s, chatting with %s in room %s\n", *addr, *with, room)
	fmt.Println("Type messages and press Enter to send. /rooms lists your rooms. Ctrl+C to exit.")

	go func() {
		defer cancel()
		readLoop(ctx, conn)
	}()

	writeLoop(ctx, conn, room)

	stop()
	cancel()
	_ = conn.Close(websocket.StatusNormalClosure, "bye")
	return nil
}

func joinPrivateRoom(ctx context.Context, conn *websocket.Conn, receiver string) (string, error) {
	payload, err := json.Marshal(proto.JoinPrivateRoomData{Receiver: receiver})
	if err != nil {
		return "", fmt.Errorf("marshal join: %w", err)
	}
	if err := wsjson.Write(ctx, conn, proto.Inbound{Type: proto.InboundTypeJoinPrivateRoom, Ref: "join", Data: payload}); err != nil {
		return "", fmt.Errorf("send join: %w", err)
	}

	for {
		var in inbound
		if err := wsjson.Read(ctx, conn, &in); err != nil {
			return "", fmt.Errorf("read join ack: %w", err)
		}
		if in.Ref != "join" {
			continue
		}
		if in.Error != nil {
			return "", fmt.Errorf("%s: %s %s", in.Error.Type, in.Error.Message, in.Error.Resolution)
		}
		var joined proto.RoomJoined
		if err := json.Unmarshal(in.Data, &joined); err != nil {
			return "", fmt.Errorf("unmarshal join ack: %w", err)
		}
		return joined.Room, nil
	}
}

func readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		var in inbound
		if err := wsjson.Read(ctx, conn, &in); err != nil {
			// Treat expected shutdowns quietly.
			if errors.Is(err, context.Canceled) {
				return
			}
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				return
			}
			log.Printf("read error: %v", err)
			return
		}

		switch {
		case in.Type == proto.OutboundTypeError && in.Error != nil:
			fmt.Printf("! %s: %s (%s)\n", in.Error.Type, in.Error.Message, in.Error.Resolution)
		case in.Event == proto.EventPrivateMessage:
			var evt proto.EventMessage
			if err := json.Unmarshal(in.Data, &evt); err != nil {
				log.Printf("unmarshal message: %v", err)
				continue
			}
			fmt.Printf("[%s] %s: %s\n", evt.Timestamp.Local().Format("15:04:05"), evt.Sender, evt.Message)
		case in.Event == proto.InboundTypeListRooms:
			var list proto.RoomList
			if err := json.Unmarshal(in.Data, &list); err != nil {
				log.Printf("unmarshal room list: %v", err)
				continue
			}
			fmt.Printf("rooms: %s\n", strings.Join(list.Rooms, ", "))
		default:
			fmt.Printf("type=%s event=%s data=%s\n", in.Type, in.Event, in.Data)
		}
	}
}

func writeLoop(ctx context.Context, conn *websocket.Conn, room string) {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			text := strings.TrimSpace(line)
			if text == "" {
				continue
			}

			out := proto.Inbound{Type: proto.InboundTypeListRooms}
			if text != "/rooms" {
				payload, err := json.Marshal(proto.SendMessageData{Room: room, Message: text})
				if err != nil {
					log.Printf("marshal msg: %v", err)
					return
				}
				out = proto.Inbound{Type: proto.InboundTypeSendMessage, Data: payload}
			}
			if err := wsjson.Write(ctx, conn, out); err != nil {
				log.Printf("send error: %v", err)
				return
			}
		}
	}
}
