package gaia

import "testing"

func TestParseValidDrop(t *testing.T) {
	p := New()
	line := `product: VPN-1 & FireWall-1; rule: 5; action: drop; src: 192.168.11.7; dst: 10.0.0.5; proto: tcp; service: 443; s_port: 51234;`

	e, ok := p.Parse(line)
	if !ok {
		t.Fatalf("expected event, got discard")
	}
	if e.SourceIP != "192.168.11.7" {
		t.Errorf("src = %q", e.SourceIP)
	}
	if e.DestPort != 443 {
		t.Errorf("dest_port = %d, want 443 (from service, not s_port)", e.DestPort)
	}
	if e.Proto != "tcp" {
		t.Errorf("proto = %q", e.Proto)
	}
}

func TestParseFieldOrderIndependent(t *testing.T) {
	p := New()
	line := `service: 22; src: 1.2.3.4; action: drop; dst: 5.6.7.8;`
	e, ok := p.Parse(line)
	if !ok {
		t.Fatalf("expected event, got discard")
	}
	if e.DestPort != 22 || e.SourceIP != "1.2.3.4" {
		t.Errorf("got %+v", e)
	}
}

func TestParseNonNumericServiceDiscarded(t *testing.T) {
	p := New()
	line := `action: drop; src: 1.2.3.4; dst: 5.6.7.8; service: http;`
	if _, ok := p.Parse(line); ok {
		t.Fatal("expected discard for non-numeric service")
	}
}

func TestParseNotDropDiscarded(t *testing.T) {
	p := New()
	line := `action: accept; src: 1.2.3.4; dst: 5.6.7.8; service: 80;`
	if _, ok := p.Parse(line); ok {
		t.Fatal("expected discard for non-drop action")
	}
}

func TestParseDropletSubstringNotMistakenForAction(t *testing.T) {
	p := New()
	line := `info: droplet created; src: 1.2.3.4; dst: 5.6.7.8; service: 80;`
	if _, ok := p.Parse(line); ok {
		t.Fatal("expected discard: 'droplet' must not match the drop cue")
	}
}

func TestParseMissingSrcAndDstDiscarded(t *testing.T) {
	p := New()
	line := `action: drop; service: 80; proto: tcp;`
	if _, ok := p.Parse(line); ok {
		t.Fatal("expected discard for missing src and dst")
	}
}

func TestParseMissingServiceDiscarded(t *testing.T) {
	p := New()
	line := `action: drop; src: 1.2.3.4; dst: 5.6.7.8;`
	if _, ok := p.Parse(line); ok {
		t.Fatal("expected discard for missing service (no dest port)")
	}
}

func TestParseBlankLineDiscarded(t *testing.T) {
	p := New()
	if _, ok := p.Parse("   "); ok {
		t.Fatal("expected discard for blank line")
	}
}

func TestName(t *testing.T) {
	if New().Name() != "gaia" {
		t.Errorf("Name() = %q", New().Name())
	}
}
