// Package protocol encodes outbound integrity messages and parses inbound
// collector commands.
package protocol

import (
	"encoding/json"

	"github.com/bft-labs/fimsync/internal/domain"
)

// DefaultComponent is the component name reported to the collector.
const DefaultComponent = "syscheck"

// MessageType is the kind of an outbound message.
type MessageType string

const (
	TypeGlobal MessageType = "integrity_check_global"
	TypeLeft   MessageType = "integrity_check_left"
	TypeRight  MessageType = "integrity_check_right"
	TypeClear  MessageType = "integrity_clear"
	TypeState  MessageType = "state"
)

// Message is the envelope of every outbound message.
type Message struct {
	Component string      `json:"component"`
	Type      MessageType `json:"type"`
	Data      interface{} `json:"data"`
}

// CheckData is the payload of the integrity_* messages.
type CheckData struct {
	ID       int64   `json:"id"`
	Begin    string  `json:"begin,omitempty"`
	End      string  `json:"end,omitempty"`
	Tail     *string `json:"tail,omitempty"`
	Checksum string  `json:"checksum,omitempty"`
}

// Encoder serializes outbound messages for one component.
type Encoder struct {
	Component string
}

// NewEncoder returns an Encoder; an empty component selects DefaultComponent.
func NewEncoder(component string) Encoder {
	if component == "" {
		component = DefaultComponent
	}
	return Encoder{Component: component}
}

// Global encodes the summary of the whole store.
func (e Encoder) Global(id int64, begin, end, checksum string) (string, error) {
	return e.encode(TypeGlobal, CheckData{ID: id, Begin: begin, End: end, Checksum: checksum})
}

// Clear encodes the message sent when the store is empty.
func (e Encoder) Clear(id int64) (string, error) {
	return e.encode(TypeClear, CheckData{ID: id})
}

// Left encodes the left half of a split; tail is the first key of the right half.
func (e Encoder) Left(id int64, begin, end, tail, checksum string) (string, error) {
	return e.encode(TypeLeft, CheckData{ID: id, Begin: begin, End: end, Tail: &tail, Checksum: checksum})
}

// Right encodes the right half of a split.
func (e Encoder) Right(id int64, begin, end, checksum string) (string, error) {
	empty := ""
	return e.encode(TypeRight, CheckData{ID: id, Begin: begin, End: end, Tail: &empty, Checksum: checksum})
}

// State encodes the full representation of one entry.
func (e Encoder) State(entry domain.Entry) (string, error) {
	return e.encode(TypeState, entry)
}

func (e Encoder) encode(t MessageType, data interface{}) (string, error) {
	b, err := json.Marshal(Message{Component: e.Component, Type: t, Data: data})
	if err != nil {
		return "", err
	}
	return string(b), nil
}
