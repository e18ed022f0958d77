package profile

import (
	"net"
	"strings"
	"testing"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimulateDrawsFromFixedSets(t *testing.T) {
	sim := NewSimulator(gofakeit.New(3))

	for i := 0; i < 50; i++ {
		p := sim.Simulate()

		require.NotNil(t, net.ParseIP(p.IP).To4(), "ip %q", p.IP)
		assert.True(t, strings.HasSuffix(p.ISP, " Networks"))
		assert.Contains(t, Devices, p.Device)

		found := false
		for _, loc := range Locations {
			if loc.Label == p.Location {
				found = true
				assert.Equal(t, loc.Lat, p.Lat)
				assert.Equal(t, loc.Lng, p.Lng)
			}
		}
		assert.True(t, found, "unexpected location %q", p.Location)
	}
}
