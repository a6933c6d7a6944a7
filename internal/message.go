package internal

import gows "github.com/gorilla/websocket"

// OutboundMessage represents a frame queued
// to be written over the websocket connection
type OutboundMessage struct {
	DataType int
	Data     []byte
}

// TextMessage queues a text frame
func TextMessage(d []byte) OutboundMessage {
	return OutboundMessage{DataType: gows.TextMessage, Data: d}
}

// BinaryMessage queues a binary frame
func BinaryMessage(d []byte) OutboundMessage {
	return OutboundMessage{DataType: gows.BinaryMessage, Data: d}
}
