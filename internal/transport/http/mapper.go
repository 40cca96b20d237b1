package http

import (
	"encoding/json"
	stdhttp "net/http"

	"github.com/vovakirdan/pairchat/internal/core"
	"github.com/vovakirdan/pairchat/internal/proto"
)

func inboundToCommand(inbound proto.Inbound) (*core.Command, error) {
	switch inbound.Type {
	case proto.InboundTypeJoinPrivateRoom:
		var join proto.JoinPrivateRoomData
		if err := decodeData(inbound.Data, &join); err != nil {
			return nil, err
		}
		return &core.Command{
			Kind:     core.CommandJoinPrivateRoom,
			Ref:      inbound.Ref,
			Receiver: join.Receiver,
		}, nil
	case proto.InboundTypeSendMessage:
		var msg proto.SendMessageData
		if err := decodeData(inbound.Data, &msg); err != nil {
			return nil, err
		}
		return &core.Command{
			Kind: core.CommandSendMessage,
			Ref:  inbound.Ref,
			Room: msg.Room,
			Body: msg.Message,
		}, nil
	case proto.InboundTypeListRooms:
		return &core.Command{Kind: core.CommandListRooms, Ref: inbound.Ref}, nil
	default:
		return nil, core.NewError(core.KindValidation, "Unknown event type.", nil).
			WithResolution("Use join_private_room, send_message or list_rooms.")
	}
}

// decodeData unmarshals optional event data. Missing fields are left to the core checks.
func decodeData(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return core.NewError(core.KindValidation, "Malformed event data.", err)
	}
	return nil
}

func outboundFromEvent(event *core.Event) proto.Outbound {
	switch event.Kind {
	case core.EventRoomMessage:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventPrivateMessage,
			Data: proto.EventMessage{
				Room:      event.Room.Hex(),
				Sender:    event.Message.Sender,
				Message:   event.Message.Body,
				Timestamp: event.Message.Timestamp,
			},
		}
	case core.EventRoomJoined:
		return proto.Outbound{
			Type:  proto.OutboundTypeAck,
			Ref:   event.Ref,
			Event: proto.InboundTypeJoinPrivateRoom,
			Data:  proto.RoomJoined{Room: event.Room.Hex()},
		}
	case core.EventRoomList:
		return proto.Outbound{
			Type:  proto.OutboundTypeAck,
			Ref:   event.Ref,
			Event: proto.InboundTypeListRooms,
			Data:  proto.RoomList{Rooms: event.Rooms},
		}
	case core.EventError:
		return errorOutbound(event.Ref, event.Err)
	default:
		return proto.Outbound{Type: proto.OutboundTypeEvent}
	}
}

func errorOutbound(ref string, err error) proto.Outbound {
	return proto.Outbound{
		Type:  proto.OutboundTypeError,
		Ref:   ref,
		Error: protoError(err),
	}
}

func protoError(err error) *proto.Error {
	d := core.Describe(err)
	return &proto.Error{
		Type:       d.Type,
		Message:    d.Message,
		Resolution: d.Resolution,
	}
}

// statusFor maps an error kind to the HTTP status of a refused request.
func statusFor(kind core.Kind) int {
	switch kind {
	case core.KindAuthentication:
		return stdhttp.StatusUnauthorized
	case core.KindValidation, core.KindSelfTarget:
		return stdhttp.StatusBadRequest
	case core.KindForbidden:
		return stdhttp.StatusForbidden
	case core.KindNotFound:
		return stdhttp.StatusNotFound
	case core.KindConflict:
		return stdhttp.StatusConflict
	default:
		return stdhttp.StatusServiceUnavailable
	}
}
