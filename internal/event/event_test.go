package event

import "testing"

func TestAdmissible(t *testing.T) {
	cases := []struct {
		name string
		e    Event
		want bool
	}{
		{"drop with port", Event{Action: ActionDrop, DestPort: 80}, true},
		{"accept with port", Event{Action: ActionAccept, DestPort: 80}, false},
		{"drop without port", Event{Action: ActionDrop, DestPort: 0}, false},
		{"drop with invalid port", Event{Action: ActionDrop, DestPort: 70000}, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := c.e.Admissible(); got != c.want {
				t.Errorf("Admissible() = %v, want %v", got, c.want)
			}
		})
	}
}

func TestKindString(t *testing.T) {
	if FastScan.String() != "FastScan" {
		t.Errorf("FastScan.String() = %q", FastScan.String())
	}
	if SlowScan.String() != "SlowScan" {
		t.Errorf("SlowScan.String() = %q", SlowScan.String())
	}
}
