package netutil

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExpandTargets_SkipsNetworkAndBroadcast(t *testing.T) {
	urls, err := ExpandTargets("192.168.1.0/30", "", "http")
	require.NoError(t, err)
	require.Equal(t, []string{"http://192.168.1.1", "http://192.168.1.2"}, urls)
}

func TestExpandTargets_SingleIP(t *testing.T) {
	urls, err := ExpandTargets("10.0.0.5", "", "https")
	require.NoError(t, err)
	require.Equal(t, []string{"https://10.0.0.5"}, urls)
}

func TestExpandTargets_CustomPorts(t *testing.T) {
	urls, err := ExpandTargets("10.0.0.5", "8080,8443", "http")
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"http://10.0.0.5:8080", "http://10.0.0.5:8443"}, urls)
}

func TestExpandTargets_InvalidCIDRErrors(t *testing.T) {
	_, err := ExpandTargets("not-an-ip", "", "http")
	require.Error(t, err)
}

func TestExpandTargets_DefaultPortOmittedFromURL(t *testing.T) {
	urls, err := ExpandTargets("10.0.0.5", "", "https")
	require.NoError(t, err)
	require.Equal(t, []string{"https://10.0.0.5"}, urls)
}
