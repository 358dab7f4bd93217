package main

import (
	"tcpgate/app"
	"tcpgate/dispatch"
)

// pingProtocolID is the one handler this binary ships with: a liveness
// check a client can send once ready, independent of the heartbeat packet
// (which only keeps the transport alive and never reaches the dispatcher).
const pingProtocolID = 1

type pingArgs struct{}

type pingReply struct {
	OK bool `json:"ok"`
}

type pingHandler struct{}

func (pingHandler) Handle(args *pingArgs, reply *pingReply) error {
	reply.OK = true
	return nil
}

// registerHandlers binds the business handlers this deployment of the
// gateway ships. The source's own business layer is an unimplemented stub
// (Client::receive_msg in socket_client.rs); this is the minimal concrete
// handler needed to exercise dispatch end to end.
func registerHandlers(c *app.Container) {
	if err := dispatch.Register(c.Dispatcher(), pingProtocolID, &pingHandler{}); err != nil {
		panic("gate: failed to register ping handler: " + err.Error())
	}
}
