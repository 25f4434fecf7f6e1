package sparkplug

import (
	"sync"
	"time"

	"github.com/jhump/protoreflect/dynamic"
	"github.com/sirupsen/logrus"
)

// NodeStatus is the liveness state of an edge node, driven by NBIRTH/NDEATH.
type NodeStatus int

const (
	StatusUnknown NodeStatus = iota
	StatusOnline
	StatusOffline
)

// Message is one decoded payload appended to a MessageStore, keeping both
// the raw topic it arrived on and the dynamic message for later inspection.
type Message struct {
	Topic       Topic
	MessageType MessageType
	Payload     *dynamic.Message
	ReceivedAt  time.Time
}

// MessageStore is an append-only history of payloads received for one
// identity (an edge node or a host application).
type MessageStore struct {
	mu       sync.Mutex
	Messages []Message
}

func (s *MessageStore) append(m Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Messages = append(s.Messages, m)
}

// Len reports how many messages have been recorded.
func (s *MessageStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Messages)
}

// TemplateDefinition is a named template recorded from a metric whose value
// carries the is-definition flag.
type TemplateDefinition struct {
	Name    string
	Metric  *dynamic.Message
}

// deviceKey compares devices by (device-id, metric-levels), per spec.
type deviceKey struct {
	deviceID     string
	metricLevels string
}

// EdgeNode aggregates everything observed for one (group-id, edge-node-id).
type EdgeNode struct {
	GroupID    string
	EdgeNodeID string

	mu        sync.Mutex
	Status     NodeStatus
	Store      *MessageStore
	Devices    map[deviceKey]*MessageStore
	Templates  map[string]*TemplateDefinition
}

func newEdgeNode(groupID, edgeNodeID string) *EdgeNode {
	return &EdgeNode{
		GroupID:    groupID,
		EdgeNodeID: edgeNodeID,
		Store:      &MessageStore{},
		Devices:    make(map[deviceKey]*MessageStore),
		Templates:  make(map[string]*TemplateDefinition),
	}
}

func (n *EdgeNode) setStatus(status NodeStatus) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Status = status
}

// StatusNow reports the node's current liveness status.
func (n *EdgeNode) StatusNow() NodeStatus {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.Status
}

func (n *EdgeNode) deviceStore(key deviceKey) *MessageStore {
	n.mu.Lock()
	defer n.mu.Unlock()
	store, ok := n.Devices[key]
	if !ok {
		store = &MessageStore{}
		n.Devices[key] = store
	}
	return store
}

func (n *EdgeNode) recordTemplateDefinition(name string, metric *dynamic.Message) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Templates[name] = &TemplateDefinition{Name: name, Metric: metric}
}

// edgeNodeKey compares edge nodes by (group-id, edge-node-id), per spec.
type edgeNodeKey struct {
	groupID    string
	edgeNodeID string
}

// Network is the in-memory SparkplugNetwork view: host applications and
// edge nodes keyed by identity, exclusively mutated by one monitor goroutine
// per spec.md's "SparkplugNetwork: mutex-guarded; exclusively mutated by the
// monitor" concurrency rule.
type Network struct {
	mu               sync.Mutex
	hostApplications map[string]*MessageStore
	edgeNodes        map[edgeNodeKey]*EdgeNode

	log logrus.FieldLogger
}

// NewNetwork constructs an empty Network.
func NewNetwork(log logrus.FieldLogger) *Network {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Network{
		hostApplications: make(map[string]*MessageStore),
		edgeNodes:        make(map[edgeNodeKey]*EdgeNode),
		log:              log,
	}
}

// EdgeNode returns (creating if necessary) the EdgeNode for (groupID, edgeNodeID).
func (n *Network) EdgeNode(groupID, edgeNodeID string) *EdgeNode {
	key := edgeNodeKey{groupID, edgeNodeID}

	n.mu.Lock()
	defer n.mu.Unlock()

	node, ok := n.edgeNodes[key]
	if !ok {
		node = newEdgeNode(groupID, edgeNodeID)
		n.edgeNodes[key] = node
	}
	return node
}

// HostApplication returns (creating if necessary) the MessageStore for hostID.
func (n *Network) HostApplication(hostID string) *MessageStore {
	n.mu.Lock()
	defer n.mu.Unlock()

	store, ok := n.hostApplications[hostID]
	if !ok {
		store = &MessageStore{}
		n.hostApplications[hostID] = store
	}
	return store
}

// isTemplateDefinition reports whether msg is a Metric with a Template value
// whose is_definition flag is set, and returns its name (metric name, since
// anonymous definitions have no usable key).
func isTemplateDefinition(metric *dynamic.Message) (name string, template *dynamic.Message, ok bool) {
	tv, err := metric.TryGetFieldByName("template_value")
	if err != nil || tv == nil {
		return "", nil, false
	}
	tmpl, isMsg := tv.(*dynamic.Message)
	if !isMsg {
		return "", nil, false
	}

	isDef, _ := tmpl.TryGetFieldByName("is_definition")
	defFlag, _ := isDef.(bool)
	if !defFlag {
		return "", nil, false
	}

	nameVal, _ := metric.TryGetFieldByName("name")
	metricName, _ := nameVal.(string)
	return metricName, tmpl, true
}

// Assimilate records a decoded Sparkplug payload into the network, per
// spec.md 4.8's assimilation rules: EdgeNode variant appends to the
// (group-id, edge-node-id) store, flips status on NBIRTH/NDEATH, and records
// template definitions found among the NBIRTH payload's metrics;
// HostApplication variant appends to the host-id store.
func (n *Network) Assimilate(topic Topic, payload *dynamic.Message) {
	now := time.Now()

	if topic.HostApplication != nil {
		h := topic.HostApplication
		store := n.HostApplication(h.HostID)
		store.append(Message{Topic: topic, MessageType: h.MessageType, Payload: payload, ReceivedAt: now})
		return
	}

	e := topic.EdgeNode
	node := n.EdgeNode(e.GroupID, e.EdgeNodeID)

	var target *MessageStore
	if e.DeviceID != nil {
		levels := ""
		for _, l := range e.MetricLevels {
			levels += "/" + l
		}
		target = node.deviceStore(deviceKey{deviceID: *e.DeviceID, metricLevels: levels})
	} else {
		target = node.Store
	}
	target.append(Message{Topic: topic, MessageType: e.MessageType, Payload: payload, ReceivedAt: now})

	switch e.MessageType {
	case MessageTypeNBIRTH:
		node.setStatus(StatusOnline)
		n.recordTemplateDefinitions(node, payload)
	case MessageTypeNDEATH:
		node.setStatus(StatusOffline)
	}
}

func (n *Network) recordTemplateDefinitions(node *EdgeNode, payload *dynamic.Message) {
	if payload == nil {
		return
	}
	metricsField, err := payload.TryGetFieldByName("metrics")
	if err != nil {
		return
	}
	metrics, ok := metricsField.([]any)
	if !ok {
		return
	}

	for _, m := range metrics {
		metric, ok := m.(*dynamic.Message)
		if !ok {
			continue
		}
		name, tmpl, isDef := isTemplateDefinition(metric)
		if !isDef {
			continue
		}
		if name == "" {
			n.log.Warn("sparkplug: ignoring anonymous template definition")
			continue
		}
		node.recordTemplateDefinition(name, tmpl)
	}
}
