package types

import (
	"encoding/json"
	"math"
	"testing"
)

func TestReadingValueJSON(t *testing.T) {
	v := ReadingValue{
		Voltage_V:  3.328,
		Current_mA: -12.34567,
		Power_mW:   0,
		Shunt_mV:   1.0004,
	}
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	want := `{"voltage_V":3.328,"current_mA":-12.346,"power_mW":0.000,"shunt_mV":1.000}`
	if string(b) != want {
		t.Fatalf("got %s", b)
	}
}

func TestFixed3_NonFinite(t *testing.T) {
	// Not representable in JSON; the encoder must refuse rather than emit NaN.
	if _, err := json.Marshal(ReadingValue{Voltage_V: Fixed3(math.NaN())}); err == nil {
		t.Fatal("expected error for NaN")
	}
}

func TestStatusReplyJSON(t *testing.T) {
	b, _ := json.Marshal(StatusReply{Status: StatusAlive})
	if string(b) != `{"status":"alive"}` {
		t.Fatalf("got %s", b)
	}
}
