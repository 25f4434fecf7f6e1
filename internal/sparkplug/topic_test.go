package sparkplug

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEdgeNodeTopic(t *testing.T) {
	topic, err := Parse("spBv1.0/Group1/NBIRTH/Node1")
	require.NoError(t, err)
	require.NotNil(t, topic.EdgeNode)
	assert.Nil(t, topic.HostApplication)
	assert.Equal(t, "Group1", topic.EdgeNode.GroupID)
	assert.Equal(t, "Node1", topic.EdgeNode.EdgeNodeID)
	assert.Equal(t, MessageTypeNBIRTH, topic.EdgeNode.MessageType)
	assert.Nil(t, topic.EdgeNode.DeviceID)
	assert.Equal(t, "spBv1.0/Group1/NBIRTH/Node1", topic.String())
}

func TestParseEdgeNodeTopicWithDeviceAndLevels(t *testing.T) {
	topic, err := Parse("spBv1.0/Group1/DDATA/Node1/Device1/a/b")
	require.NoError(t, err)
	require.NotNil(t, topic.EdgeNode)
	require.NotNil(t, topic.EdgeNode.DeviceID)
	assert.Equal(t, "Device1", *topic.EdgeNode.DeviceID)
	assert.Equal(t, []string{"a", "b"}, topic.EdgeNode.MetricLevels)
	assert.Equal(t, "spBv1.0/Group1/DDATA/Node1/Device1/a/b", topic.String())
}

func TestParseHostApplicationStateTopic(t *testing.T) {
	topic, err := Parse("spBv1.0/STATE/scada-host")
	require.NoError(t, err)
	require.NotNil(t, topic.HostApplication)
	assert.Nil(t, topic.EdgeNode)
	assert.Equal(t, "scada-host", topic.HostApplication.HostID)
	assert.Equal(t, MessageTypeSTATE, topic.HostApplication.MessageType)
	assert.Equal(t, "spBv1.0/STATE/scada-host", topic.String())
}

func TestParseRejectsWrongVersionOnStateBranch(t *testing.T) {
	_, err := Parse("spBv2.0/STATE/scada-host")
	assert.ErrorIs(t, err, ErrInvalidTopicVersion)
}

func TestParseRejectsWrongVersionOnEdgeNodeBranch(t *testing.T) {
	_, err := Parse("spBv2.0/Group1/NBIRTH/Node1")
	assert.ErrorIs(t, err, ErrInvalidTopicVersion)
}

func TestParseRejectsTooFewParts(t *testing.T) {
	_, err := Parse("spBv1.0/Group1")
	assert.ErrorIs(t, err, ErrNotEnoughPartsInTopic)
}

func TestParseRejectsInvalidMessageType(t *testing.T) {
	_, err := Parse("spBv1.0/Group1/BOGUS/Node1")
	assert.ErrorIs(t, err, ErrInvalidTopicMessageType)
}

func TestParseRejectsInvalidGroupId(t *testing.T) {
	_, err := Parse("spBv1.0/Group#1/NBIRTH/Node1")
	assert.ErrorIs(t, err, ErrGroupIdNotValid)
}

func TestParseRejectsInvalidDeviceId(t *testing.T) {
	_, err := Parse("spBv1.0/Group1/DDATA/Node1/Dev+ice")
	assert.ErrorIs(t, err, ErrDeviceIdNotValid)
}
