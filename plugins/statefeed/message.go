package statefeed

import (
	"encoding/json"
	"time"

	"github.com/bft-labs/servolink/pkg/servolink"
)

type envelope struct {
	Type string      `json:"type"`
	Ts   time.Time   `json:"ts"`
	Data interface{} `json:"data,omitempty"`
}

type snapshot struct {
	Angles servolink.AngleState `json:"angles"`
	State  string               `json:"state"`
}

type stateChangedData struct {
	Previous string `json:"previous"`
	Current  string `json:"current"`
	Reason   string `json:"reason,omitempty"`
}

type presenceData struct {
	At time.Time `json:"at"`
}

type packetData struct {
	Packet string `json:"packet"`
	Error  string `json:"error,omitempty"`
}

func marshal(typ string, ts time.Time, data interface{}) ([]byte, error) {
	return json.Marshal(envelope{Type: typ, Ts: ts.UTC(), Data: data})
}

// encodeEvent converts a bridge event to its wire form.
func encodeEvent(ev servolink.Event) ([]byte, error) {
	var data interface{}
	switch d := ev.Data.(type) {
	case servolink.StateChangeEvent:
		data = stateChangedData{
			Previous: d.Previous.String(),
			Current:  d.Current.String(),
			Reason:   d.Reason,
		}
	case servolink.PresenceEvent:
		data = presenceData{At: d.At.UTC()}
	case servolink.AngleEvent:
		data = d.State
	case servolink.PacketEvent:
		pd := packetData{Packet: d.Packet.String()}
		if d.Err != nil {
			pd.Error = d.Err.Error()
		}
		data = pd
	default:
		data = d
	}
	return marshal(string(ev.Type), ev.Time, data)
}
