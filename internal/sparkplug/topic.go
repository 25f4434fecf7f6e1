// Package sparkplug implements the Sparkplug B topic grammar and in-memory
// network-view model (C8), grounded on original_source's
// crates/mqtlib/src/sparkplug/topic.rs, with one deliberate correction: the
// version segment is validated on both the edge-node and host-application
// branches (the original skips it for STATE topics, which contradicts the
// universal invariant spec.md states).
package sparkplug

import (
	"errors"
	"fmt"
	"strings"
)

// TopicVersion is the only version segment this module accepts.
const TopicVersion = "spBv1.0"

var (
	ErrNotEnoughPartsInTopic   = errors.New("sparkplug: not enough parts in topic")
	ErrInvalidTopicVersion     = errors.New("sparkplug: invalid topic version")
	ErrInvalidTopicMessageType = errors.New("sparkplug: invalid message type")
	ErrGroupIdNotValid         = errors.New("sparkplug: group id not valid")
	ErrEdgeNodeIdNotValid      = errors.New("sparkplug: edge node id not valid")
	ErrDeviceIdNotValid        = errors.New("sparkplug: device id not valid")
)

// MessageType is one of the nine Sparkplug B message kinds.
type MessageType string

const (
	MessageTypeNBIRTH MessageType = "NBIRTH"
	MessageTypeNDATA  MessageType = "NDATA"
	MessageTypeNDEATH MessageType = "NDEATH"
	MessageTypeNCMD   MessageType = "NCMD"
	MessageTypeDBIRTH MessageType = "DBIRTH"
	MessageTypeDDATA  MessageType = "DDATA"
	MessageTypeDDEATH MessageType = "DDEATH"
	MessageTypeDCMD   MessageType = "DCMD"
	MessageTypeSTATE  MessageType = "STATE"
)

func parseMessageType(s string) (MessageType, error) {
	switch MessageType(s) {
	case MessageTypeNBIRTH, MessageTypeNDATA, MessageTypeNDEATH, MessageTypeNCMD,
		MessageTypeDBIRTH, MessageTypeDDATA, MessageTypeDDEATH, MessageTypeDCMD, MessageTypeSTATE:
		return MessageType(s), nil
	default:
		return "", ErrInvalidTopicMessageType
	}
}

// EdgeNodeTopic addresses an edge node or one of its devices.
type EdgeNodeTopic struct {
	Version      string
	GroupID      string
	EdgeNodeID   string
	MessageType  MessageType
	DeviceID     *string
	MetricLevels []string
}

// HostApplicationTopic addresses a primary host application's STATE topic.
type HostApplicationTopic struct {
	Version     string
	HostID      string
	MessageType MessageType
}

// Topic is a sealed union over the two Sparkplug topic shapes.
type Topic struct {
	EdgeNode        *EdgeNodeTopic
	HostApplication *HostApplicationTopic
}

func isPartValid(part string) bool {
	return !strings.ContainsAny(part, "+/#")
}

// Parse parses a raw MQTT topic string into a Sparkplug Topic.
func Parse(value string) (Topic, error) {
	parts := strings.Split(value, "/")
	if len(parts) < 3 {
		return Topic{}, ErrNotEnoughPartsInTopic
	}

	if parts[0] != TopicVersion {
		return Topic{}, ErrInvalidTopicVersion
	}

	if parts[1] == "STATE" {
		return Topic{HostApplication: &HostApplicationTopic{
			Version:     parts[0],
			HostID:      parts[2],
			MessageType: MessageTypeSTATE,
		}}, nil
	}

	if len(parts) < 4 {
		return Topic{}, ErrNotEnoughPartsInTopic
	}

	if !isPartValid(parts[1]) {
		return Topic{}, ErrGroupIdNotValid
	}
	if !isPartValid(parts[3]) {
		return Topic{}, ErrEdgeNodeIdNotValid
	}

	messageType, err := parseMessageType(parts[2])
	if err != nil {
		return Topic{}, err
	}

	var deviceID *string
	if len(parts) > 4 {
		if !isPartValid(parts[4]) {
			return Topic{}, ErrDeviceIdNotValid
		}
		d := parts[4]
		deviceID = &d
	}

	var metricLevels []string
	if len(parts) > 5 {
		metricLevels = append(metricLevels, parts[5:]...)
	}

	return Topic{EdgeNode: &EdgeNodeTopic{
		Version:      parts[0],
		GroupID:      parts[1],
		EdgeNodeID:   parts[3],
		MessageType:  messageType,
		DeviceID:     deviceID,
		MetricLevels: metricLevels,
	}}, nil
}

// String reconstructs the canonical topic string.
func (t Topic) String() string {
	if t.HostApplication != nil {
		h := t.HostApplication
		return fmt.Sprintf("%s/%s/%s", h.Version, h.MessageType, h.HostID)
	}

	e := t.EdgeNode
	s := fmt.Sprintf("%s/%s/%s/%s", e.Version, e.GroupID, e.MessageType, e.EdgeNodeID)
	if e.DeviceID != nil {
		s += "/" + *e.DeviceID
	}
	for _, level := range e.MetricLevels {
		s += "/" + level
	}
	return s
}
