// Package dispatch maps a decoded Data message's protocol id to an
// application handler, discovered by reflection.
//
// Grounded on the teacher's service/methodType machinery (server/service.go):
// a handler's single exported method is found by reflect.TypeOf, its
// argument and reply types captured via reflect.New, and a pluggable Codec
// (package codec) used to (de)serialize the payload. The teacher keys
// handlers by "Service.Method" strings resolved from an RPC call; this
// adapts the same reflection shape to the gateway's numeric protocol_id
// keying, with one handler exposing exactly one Handle method instead of
// many.
package dispatch

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	"tcpgate/codec"
	"tcpgate/message"
)

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// handlerEntry is the reflection metadata captured for one registered
// handler, mirroring the teacher's methodType.
type handlerEntry struct {
	rcvr      reflect.Value
	method    reflect.Method
	argType   reflect.Type
	replyType reflect.Type
}

// Dispatcher routes decoded Data messages to registered handlers by
// protocol id and, for Request messages, marshals the reply back into a
// Response message.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[uint16]*handlerEntry
	codec    codec.Codec
}

// New creates an empty Dispatcher using codec.CodecTypeJSON to (de)serialize
// args/reply. Logging is the caller's job: wrap Handle in
// middleware.LoggingMiddleware rather than threading a logger through
// Dispatch directly.
func New() *Dispatcher {
	return &Dispatcher{
		handlers: make(map[uint16]*handlerEntry),
		codec:    codec.GetCodec(codec.CodecTypeJSON),
	}
}

// Register binds protocolID to rcvr's Handle method, found by reflection.
// rcvr must be a pointer to a struct exposing exactly one exported method
// named Handle with signature func(args *ArgsType, reply *ReplyType) error.
func Register(d *Dispatcher, protocolID uint16, rcvr any) error {
	typ := reflect.TypeOf(rcvr)
	if typ == nil || typ.Kind() != reflect.Ptr {
		return fmt.Errorf("dispatch: handler must be a pointer, got %v", typ)
	}
	method, ok := typ.MethodByName("Handle")
	if !ok {
		return fmt.Errorf("dispatch: handler %v has no Handle method", typ)
	}
	if method.Type.NumIn() != 3 || method.Type.NumOut() != 1 {
		return fmt.Errorf("dispatch: Handle must take (args, reply) and return error")
	}
	if method.Type.Out(0) != errorType {
		return fmt.Errorf("dispatch: Handle must return error")
	}
	if method.Type.In(1).Kind() != reflect.Ptr || method.Type.In(2).Kind() != reflect.Ptr {
		return fmt.Errorf("dispatch: Handle's args and reply must both be pointers")
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[protocolID] = &handlerEntry{
		rcvr:      reflect.ValueOf(rcvr),
		method:    method,
		argType:   method.Type.In(1).Elem(),
		replyType: method.Type.In(2).Elem(),
	}
	return nil
}

// ReplyFunc is called with the Response message a Request should produce.
type ReplyFunc func(message.Message)

// ErrUnregisteredProtocol is returned by Dispatch when msg.ProtocolID has no
// registered handler.
var ErrUnregisteredProtocol = fmt.Errorf("dispatch: no handler registered for protocol id")

// Dispatch decodes msg.Payload into the registered handler's argument type,
// invokes it, and, for Request messages, builds and delivers a Response
// through reply. Notify and Push messages run the same handler but discard
// any reply. The handler's own error (or ErrUnregisteredProtocol) is
// returned so a caller running this through middleware.Chain can log,
// retry, or rate-limit on it.
func (d *Dispatcher) Dispatch(sessionID uint64, msg message.Message, reply ReplyFunc) error {
	d.mu.RLock()
	entry, ok := d.handlers[msg.ProtocolID]
	d.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnregisteredProtocol, msg.ProtocolID)
	}

	argv := reflect.New(entry.argType)
	if len(msg.Payload) > 0 {
		if err := d.codec.Decode(msg.Payload, argv.Interface()); err != nil {
			return fmt.Errorf("dispatch: failed to decode args: %w", err)
		}
	}
	replyv := reflect.New(entry.replyType)

	results := entry.method.Func.Call([]reflect.Value{entry.rcvr, argv, replyv})
	var callErr error
	if !results[0].IsNil() {
		callErr = results[0].Interface().(error)
	}

	if msg.Type != message.Request || reply == nil {
		return callErr
	}
	body, err := d.codec.Encode(replyv.Interface())
	if err != nil {
		if callErr != nil {
			return callErr
		}
		return fmt.Errorf("dispatch: failed to encode reply: %w", err)
	}
	reply(message.Message{Type: message.Response, ID: msg.ID, Payload: body})
	return callErr
}

// Handle adapts Dispatch to the middleware.HandlerFunc signature
// (ctx, sessionID, req) (message.Message, error), so a Dispatcher serves as
// the innermost handler in a middleware.Chain: logging, rate limiting,
// timeout, and retry all wrap this the same way they'd wrap any other
// handler.
func (d *Dispatcher) Handle(ctx context.Context, sessionID uint64, req message.Message) (message.Message, error) {
	var resp message.Message
	err := d.Dispatch(sessionID, req, func(m message.Message) { resp = m })
	return resp, err
}

