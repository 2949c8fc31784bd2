package http

import (
	"encoding/json"

	"github.com/vovakirdan/coderoom-server/internal/core"
	"github.com/vovakirdan/coderoom-server/internal/proto"
)

func inboundToCommand(inbound proto.Inbound) (*core.Command, *proto.Error, error) {
	switch inbound.Type {
	case proto.InboundTypeJoin:
		var join proto.JoinData
		if err := json.Unmarshal(inbound.Data, &join); err != nil {
			return nil, nil, err
		}
		if join.Room == "" {
			return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "roomId is required"}, nil
		}
		return &core.Command{
			Kind:  core.CommandJoinRoom,
			Room:  join.Room,
			Token: join.Token,
		}, nil, nil

	case proto.InboundTypeLeave:
		var leave proto.LeaveData
		if err := json.Unmarshal(inbound.Data, &leave); err != nil {
			return nil, nil, err
		}
		if leave.Room == "" {
			return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "roomId is required"}, nil
		}
		return &core.Command{
			Kind:  core.CommandLeaveRoom,
			Room:  leave.Room,
			Token: leave.Token,
		}, nil, nil

	case proto.InboundTypeCodeChange:
		var change proto.CodeChangeData
		if err := json.Unmarshal(inbound.Data, &change); err != nil {
			return nil, nil, err
		}
		if change.Room == "" {
			return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "roomId is required"}, nil
		}
		return &core.Command{
			Kind: core.CommandCodeChange,
			Room: change.Room,
			Code: change.Code,
			File: change.File,
		}, nil, nil

	case proto.InboundTypeTyping:
		var typing proto.TypingData
		if err := json.Unmarshal(inbound.Data, &typing); err != nil {
			return nil, nil, err
		}
		// Invalid identity fields are dropped silently by the hub.
		return &core.Command{
			Kind:     core.CommandTyping,
			Room:     typing.Room,
			Line:     typing.Line,
			Username: typing.Username,
			UserID:   typing.UserID,
			File:     typing.File,
		}, nil, nil

	case proto.InboundTypeStopTyping:
		var stop proto.StopTypingData
		if err := json.Unmarshal(inbound.Data, &stop); err != nil {
			return nil, nil, err
		}
		return &core.Command{
			Kind:   core.CommandStopTyping,
			Room:   stop.Room,
			UserID: stop.UserID,
			File:   stop.File,
		}, nil, nil

	case proto.InboundTypeMsg:
		var msg proto.MsgData
		if err := json.Unmarshal(inbound.Data, &msg); err != nil {
			return nil, nil, err
		}
		if msg.Room == "" {
			return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "roomId is required"}, nil
		}
		return &core.Command{
			Kind: core.CommandSendChat,
			Room: msg.Room,
			Body: msg.Body,
		}, nil, nil

	case proto.InboundTypeOffer, proto.InboundTypeAnswer, proto.InboundTypeCandidate:
		var sig proto.SignalData
		if err := json.Unmarshal(inbound.Data, &sig); err != nil {
			return nil, nil, err
		}
		if sig.Room == "" {
			return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "roomId is required"}, nil
		}
		return &core.Command{
			Kind: core.CommandSignal,
			Room: sig.Room,
			Signal: &core.Signal{
				Kind:    inbound.Type,
				Payload: sig.Payload,
			},
		}, nil, nil

	case proto.InboundTypeLogout, proto.InboundTypeDisconnect:
		return &core.Command{Kind: core.CommandLogout}, nil, nil

	default:
		return nil, &proto.Error{Code: "invalid_message", Msg: "unknown message type"}, nil
	}
}

func outboundFromEvent(event *core.Event) proto.Outbound {
	switch event.Kind {
	case core.EventOnlineUsers:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventOnlineUsers,
			Data: proto.OnlineUsersData{
				Room:  event.Room,
				Users: event.Users,
			},
		}

	case core.EventCodeUpdate:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventCodeUpdate,
			Data: proto.CodeUpdateData{
				Room: event.Room,
				Code: event.Code,
				File: event.File,
			},
		}

	case core.EventUserTyping:
		data := proto.UserTypingData{Room: event.Room}
		if event.Typing != nil {
			data.Line = event.Typing.Line
			data.Username = event.Typing.Username
			data.UserID = event.Typing.UserID
			data.File = event.Typing.File
			data.TS = event.Typing.TS
		}
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventUserTyping,
			Data:  data,
		}

	case core.EventUserStoppedTyping:
		data := proto.UserStoppedTypingData{Room: event.Room}
		if event.Typing != nil {
			data.UserID = event.Typing.UserID
			data.File = event.Typing.File
			data.TS = event.Typing.TS
		}
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventUserStoppedTyping,
			Data:  data,
		}

	case core.EventNewMessage:
		data := proto.NewMessageData{Room: event.Room}
		if event.Chat != nil {
			data.UserID = event.Chat.UserID
			data.Username = event.Chat.Username
			data.Body = event.Chat.Body
			data.TS = event.Chat.TS
		}
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventNewMessage,
			Data:  data,
		}

	case core.EventSignal:
		if event.Signal == nil {
			return proto.Outbound{Type: proto.OutboundTypeEvent}
		}
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: event.Signal.Kind,
			Data: proto.SignalData{
				Room:    event.Room,
				Payload: event.Signal.Payload,
			},
		}

	case core.EventError:
		if event.Error == nil {
			return proto.Outbound{Type: proto.OutboundTypeError, Error: &proto.Error{Code: "unknown", Msg: "unknown error"}}
		}
		return proto.Outbound{
			Type:  proto.OutboundTypeError,
			Error: &proto.Error{Code: event.Error.Code, Msg: event.Error.Message},
		}

	default:
		return proto.Outbound{Type: proto.OutboundTypeEvent}
	}
}
