package http

import (
	"github.com/vovakirdan/wirechat-gateway/internal/core"
	"github.com/vovakirdan/wirechat-gateway/internal/proto"
	"github.com/vovakirdan/wirechat-gateway/internal/socket"
)

func outboundFromEnvelope(env *socket.Envelope) proto.Outbound {
	return proto.Outbound{
		Type:  proto.OutboundTypeEvent,
		Event: env.Event,
		Data:  env.Data,
	}
}

func ackFrame(id string, data any) proto.Outbound {
	return proto.Outbound{Type: proto.OutboundTypeAck, ID: id, Data: data}
}

// errorFrame reports err to the client. Domain errors keep their code;
// anything else is hidden behind a generic internal error.
func errorFrame(id string, err error) proto.Outbound {
	code := core.Code(err)
	msg := err.Error()
	if code == "" {
		code, msg = "internal", "internal error"
	}
	return proto.Outbound{
		Type:  proto.OutboundTypeError,
		ID:    id,
		Error: &proto.Error{Code: code, Msg: msg},
	}
}
