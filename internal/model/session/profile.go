package session

import "encoding/json"

// Profile is a simulated network/location fingerprint of the adversary for one turn.
type Profile struct {
	IP          string
	ISP         string
	Location    string
	Lat         float64
	Lng         float64
	Device      string
	VPNDetected bool
}

type profileJSON struct {
	IP          string     `json:"ip"`
	ISP         string     `json:"isp"`
	Location    string     `json:"location"`
	Coords      [2]float64 `json:"coords"`
	Device      string     `json:"device"`
	VPNDetected bool       `json:"vpn_detected"`
}

// MarshalJSON emits the scammer_intel shape consumed by the dashboard.
func (p Profile) MarshalJSON() ([]byte, error) {
	return json.Marshal(profileJSON{
		IP:          p.IP,
		ISP:         p.ISP,
		Location:    p.Location,
		Coords:      [2]float64{p.Lat, p.Lng},
		Device:      p.Device,
		VPNDetected: p.VPNDetected,
	})
}

// UnmarshalJSON accepts the scammer_intel shape.
func (p *Profile) UnmarshalJSON(data []byte) error {
	var raw profileJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*p = Profile{
		IP:          raw.IP,
		ISP:         raw.ISP,
		Location:    raw.Location,
		Lat:         raw.Coords[0],
		Lng:         raw.Coords[1],
		Device:      raw.Device,
		VPNDetected: raw.VPNDetected,
	}
	return nil
}
