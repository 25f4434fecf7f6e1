package sparkplug

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssimilateHostApplicationTopic(t *testing.T) {
	net := NewNetwork(nil)
	topic, err := Parse("spBv1.0/STATE/scada-host")
	require.NoError(t, err)

	net.Assimilate(topic, nil)

	store := net.HostApplication("scada-host")
	assert.Equal(t, 1, store.Len())
}

func TestAssimilateEdgeNodeNBIRTHSetsOnline(t *testing.T) {
	net := NewNetwork(nil)
	topic, err := Parse("spBv1.0/Group1/NBIRTH/Node1")
	require.NoError(t, err)

	node := net.EdgeNode("Group1", "Node1")
	assert.Equal(t, StatusUnknown, node.StatusNow())

	net.Assimilate(topic, nil)

	assert.Equal(t, StatusOnline, node.StatusNow())
	assert.Equal(t, 1, node.Store.Len())
}

func TestAssimilateEdgeNodeNDEATHSetsOffline(t *testing.T) {
	net := NewNetwork(nil)
	birthTopic, err := Parse("spBv1.0/Group1/NBIRTH/Node1")
	require.NoError(t, err)
	deathTopic, err := Parse("spBv1.0/Group1/NDEATH/Node1")
	require.NoError(t, err)

	net.Assimilate(birthTopic, nil)
	net.Assimilate(deathTopic, nil)

	node := net.EdgeNode("Group1", "Node1")
	assert.Equal(t, StatusOffline, node.StatusNow())
	assert.Equal(t, 2, node.Store.Len())
}

func TestAssimilateDeviceDataStoresUnderDeviceKey(t *testing.T) {
	net := NewNetwork(nil)
	topic, err := Parse("spBv1.0/Group1/DDATA/Node1/Device1")
	require.NoError(t, err)

	net.Assimilate(topic, nil)

	node := net.EdgeNode("Group1", "Node1")
	assert.Equal(t, 0, node.Store.Len())
	assert.Len(t, node.Devices, 1)
}
