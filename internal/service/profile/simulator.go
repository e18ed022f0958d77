// Package profile simulates a "dark web lookup" of the adversary. All output is
// fabricated; nothing here resolves real network data.
package profile

import (
	"github.com/brianvoe/gofakeit/v7"

	"github.com/zhouzirui/honeypot/backend/internal/model/session"
)

// Location is a labelled coordinate the simulator may report.
type Location struct {
	Label string
	Lat   float64
	Lng   float64
}

// Locations is the fixed set of candidate origins.
var Locations = []Location{
	{Label: "Lagos, Nigeria", Lat: 6.5244, Lng: 3.3792},
	{Label: "Moscow, Russia", Lat: 55.7558, Lng: 37.6173},
	{Label: "Kolkata, India", Lat: 22.5726, Lng: 88.3639},
	{Label: "Manila, Philippines", Lat: 14.5995, Lng: 120.9842},
	{Label: "New York, USA", Lat: 40.7128, Lng: -74.0060},
	{Label: "Bucharest, Romania", Lat: 44.4268, Lng: 26.1025},
}

// Devices is the fixed set of candidate device strings.
var Devices = []string{"Android 14", "Windows 11 PC", "Unknown Linux Distro"}

// Simulator fabricates a fresh adversary profile per call.
type Simulator struct {
	faker *gofakeit.Faker
}

// NewSimulator returns a Simulator backed by faker.
func NewSimulator(faker *gofakeit.Faker) *Simulator {
	return &Simulator{faker: faker}
}

// Simulate draws location, IP, ISP, device and VPN flag independently.
func (s *Simulator) Simulate() session.Profile {
	loc := Locations[s.faker.Number(0, len(Locations)-1)]
	return session.Profile{
		IP:          s.faker.IPv4Address(),
		ISP:         s.faker.Company() + " Networks",
		Location:    loc.Label,
		Lat:         loc.Lat,
		Lng:         loc.Lng,
		Device:      s.faker.RandomString(Devices),
		VPNDetected: s.faker.Bool(),
	}
}
