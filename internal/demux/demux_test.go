package demux

import "testing"

func TestClassifyTotality(t *testing.T) {
	cases := []struct {
		name string
		data []byte
		want Route
	}{
		{"empty", nil, RouteDrop},
		{"stun-low", []byte{0x00, 0x01}, RouteSTUN},
		{"stun-high", []byte{0x03, 0xff}, RouteSTUN},
		{"dtls-low", []byte{20, 0}, RouteDTLS},
		{"dtls-high", []byte{63, 0}, RouteDTLS},
		{"turn-channel", []byte{64, 0}, RouteTURNChannel},
		{"turn-channel-high", []byte{79, 0}, RouteTURNChannel},
		{"rtp", []byte{128, 96}, RouteRTP},
		{"rtcp-sr", []byte{128, 200}, RouteRTCP},
		{"rtcp-boundary-low", []byte{191, 192}, RouteRTCP},
		{"rtcp-boundary-high", []byte{191, 223}, RouteRTCP},
		{"rtp-boundary-high", []byte{191, 224}, RouteRTP},
		{"unassigned", []byte{10}, RouteDrop},
		{"unassigned-high", []byte{250}, RouteDrop},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Classify(tc.data); got != tc.want {
				t.Fatalf("Classify(%v) = %v, want %v", tc.data, got, tc.want)
			}
		})
	}
}

func TestClassifyDeterministic(t *testing.T) {
	d := []byte{128, 201, 1, 2}
	first := Classify(d)
	for i := 0; i < 10; i++ {
		if Classify(d) != first {
			t.Fatal("Classify is not deterministic")
		}
	}
}
