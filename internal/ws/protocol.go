package ws

import (
	"encoding/json"
	"strings"
)

// Frame types.
const (
	FrameConnect    = "CONNECT"
	FrameConnected  = "CONNECTED"
	FrameSend       = "SEND"
	FrameDisconnect = "DISCONNECT"
	FrameMessage    = "MESSAGE"
	FrameReceipt    = "RECEIPT"
	FrameError      = "ERROR"
)

const (
	// SendDestination is the application destination of client sends.
	SendDestination = "/app/chat/send"
	// UserPrefix is prepended to per-user channels on outbound MESSAGE frames.
	UserPrefix = "/user"
)

// Frame is one JSON message on the chat websocket.
type Frame struct {
	Type        string            `json:"type"`
	Destination string            `json:"destination,omitempty"`
	Headers     map[string]string `json:"headers,omitempty"`
	Receipt     string            `json:"receipt,omitempty"`
	Body        json.RawMessage   `json:"body,omitempty"`
}

// ErrorBody is the body of an ERROR frame.
type ErrorBody struct {
	Kind      string `json:"kind"`
	Message   string `json:"message"`
	ReceiptID string `json:"receiptId,omitempty"`
}

// headerValue looks key up case-insensitively.
func headerValue(headers map[string]string, key string) string {
	for k, v := range headers {
		if strings.EqualFold(k, key) {
			return v
		}
	}
	return ""
}

func encodeFrame(frame Frame) ([]byte, error) {
	return json.Marshal(frame)
}

func messageFrame(channel string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return encodeFrame(Frame{Type: FrameMessage, Destination: UserPrefix + channel, Body: body})
}

func errorFrame(kind, message, receiptID string) []byte {
	body, _ := json.Marshal(ErrorBody{Kind: kind, Message: message, ReceiptID: receiptID})
	data, _ := encodeFrame(Frame{Type: FrameError, Body: body})
	return data
}

func receiptFrame(receiptID string) []byte {
	data, _ := encodeFrame(Frame{Type: FrameReceipt, Headers: map[string]string{"receipt-id": receiptID}})
	return data
}
