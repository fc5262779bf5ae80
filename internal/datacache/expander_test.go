package datacache

import (
	"slices"
	"testing"

	"github.com/danmuck/tlmdecode/internal/catalog"
	"github.com/danmuck/tlmdecode/internal/testutil/testlog"
)

func TestExpandUnknownEnumeratesBytes(t *testing.T) {
	testlog.Start(t)
	x := NewExpander(catalog.Beacon())
	msg := x.Expand(0x7E, []byte{1, 2, 3})
	if msg.Known || msg.TypeName != catalog.UnknownName {
		t.Fatalf("expected unknown message, got %+v", msg)
	}
	if got := msg.Names(); !slices.Equal(got, []string{"0", "1", "2"}) {
		t.Fatalf("names=%v", got)
	}
	for i, want := range []int64{1, 2, 3} {
		if v, _ := msg.Get(msg.Names()[i]); v != want {
			t.Fatalf("field %d=%d want %d", i, v, want)
		}
	}
}

func TestExpandSignExtendsSignedFields(t *testing.T) {
	testlog.Start(t)
	x := NewExpander(catalog.Beacon())
	payload := make([]byte, 12)
	payload[0], payload[1] = 0xFF, 0xFF // sunDataMain u16
	payload[4], payload[5] = 0xFE, 0xFF // tempMCU i16
	msg := x.Expand(catalog.CodeSSP0, payload)
	if v, _ := msg.Get("sunDataMain"); v != 65535 {
		t.Fatalf("sunDataMain=%d", v)
	}
	if v, _ := msg.Get("tempMCU"); v != -2 {
		t.Fatalf("tempMCU=%d", v)
	}
	want := []string{"sunDataMain", "sunDataExt", "tempMCU", "tempMain", "tempExt1", "tempExt2"}
	if !slices.Equal(msg.Names(), want) {
		t.Fatalf("names=%v", msg.Names())
	}
}

func TestExpandUnsigned32NeverNegative(t *testing.T) {
	testlog.Start(t)
	x := NewExpander(catalog.Beacon())
	payload := []byte{0x01, 0xFF, 0xFF, 0xFF, 0xFF, 0x02, 0x00, 0x03, 0x00, 0x04, 0x00}
	msg := x.Expand(catalog.CodeOBC0, payload)
	if v, _ := msg.Get("upTime"); v != 0xFFFFFFFF {
		t.Fatalf("upTime=%d", v)
	}
	if v, _ := msg.Get("opMode"); v != 1 {
		t.Fatalf("opMode=%d", v)
	}
	if v, _ := msg.Get("payloadModesStatus"); v != 4 {
		t.Fatalf("payloadModesStatus=%d", v)
	}
	if msg.Short || msg.Excess != 0 {
		t.Fatalf("unexpected length flags: short=%v excess=%d", msg.Short, msg.Excess)
	}
}

func TestExpandArraysUseLabels(t *testing.T) {
	testlog.Start(t)
	x := NewExpander(catalog.Beacon())
	payload := []byte{0x01, 0x00, 0x02, 0x00, 0xFF, 0xFF, 0, 0, 0, 0, 0, 0}
	msg := x.Expand(catalog.CodeADCS1, payload)
	want := []string{"estQSet_Q1", "estQSet_Q2", "estQSet_Q3", "estAngRateVec_X", "estAngRateVec_Y", "estAngRateVec_Z"}
	if !slices.Equal(msg.Names(), want) {
		t.Fatalf("names=%v", msg.Names())
	}
	if v, _ := msg.Get("estQSet_Q3"); v != -1 {
		t.Fatalf("estQSet_Q3=%d", v)
	}
}

func TestExpandBitFieldsLSBFirst(t *testing.T) {
	testlog.Start(t)
	x := NewExpander(catalog.Beacon())
	// byte0: estimation mode 0x3, control mode 0xA
	// byte1: run mode 1, sense1 enabled 0b10 (bits 4-5)
	payload := []byte{0xA3, 0x21, 0x80, 0, 0, 0x01}
	msg := x.Expand(catalog.CodeADCS2, payload)
	checks := map[string]int64{
		"Attitude_Estimation_Mode":         3,
		"Control_Mode":                     10,
		"ADCS_Run_Mode":                    1,
		"ASGP4_Mode":                       0,
		"CubeSense1_Enabled":               2,
		"CubeSense2_Enabled":               0,
		"Sun_is_Above_Local_Horizon":       1,
		"Cam2_Sensor_Busy_Error":           1,
		"StarTracker_Overcurrent_Detected": 0,
	}
	for name, want := range checks {
		if v, ok := msg.Get(name); !ok || v != want {
			t.Fatalf("%s=%d,%v want %d", name, v, ok, want)
		}
	}
	if msg.Len() != 40 {
		t.Fatalf("len=%d", msg.Len())
	}
}

func TestExpandShortPayloadStopsAtLastWholeField(t *testing.T) {
	testlog.Start(t)
	x := NewExpander(catalog.Beacon())
	msg := x.Expand(catalog.CodeSSP0, []byte{1, 0, 2, 0, 3})
	if !msg.Short {
		t.Fatalf("expected short payload")
	}
	if !slices.Equal(msg.Names(), []string{"sunDataMain", "sunDataExt"}) {
		t.Fatalf("names=%v", msg.Names())
	}
}

func TestExpandCountsExcessBytes(t *testing.T) {
	testlog.Start(t)
	x := NewExpander(catalog.Beacon())
	msg := x.Expand(catalog.CodeAOCSControlSysState, []byte{4, 5, 6, 7})
	if msg.Excess != 2 || msg.Short {
		t.Fatalf("excess=%d short=%v", msg.Excess, msg.Short)
	}
	if v, _ := msg.Get("adcsSysStateStatus"); v != 5 {
		t.Fatalf("adcsSysStateStatus=%d", v)
	}
}

func TestExpandTaskStatsPartialSlots(t *testing.T) {
	testlog.Start(t)
	x := NewExpander(catalog.Beacon())
	payload := make([]byte, 2*catalog.LegacyTasks)
	payload[0] = 7
	msg := x.Expand(catalog.CodeTaskStats, payload)
	if msg.Len() != catalog.LegacyTasks {
		t.Fatalf("slots=%d", msg.Len())
	}
	if v, _ := msg.Get("TASK_MONITOR_TASK"); v != 7 {
		t.Fatalf("TASK_MONITOR_TASK=%d", v)
	}
}

func TestEngineeringAppliesScale(t *testing.T) {
	testlog.Start(t)
	cat := catalog.MustNew("scaled", []catalog.Entry{{
		Code: 0x01,
		Name: "TEMP",
		Fields: []catalog.Field{
			catalog.I16("raw"),
			catalog.I16("celsius").Scaled(0.5),
		},
	}})
	msg := NewExpander(cat).Expand(0x01, []byte{10, 0, 0xF6, 0xFF})
	if v, _ := msg.Engineering("raw"); v != 10 {
		t.Fatalf("raw=%v", v)
	}
	if v, _ := msg.Engineering("celsius"); v != -5 {
		t.Fatalf("celsius=%v", v)
	}
	if _, ok := msg.Engineering("missing"); ok {
		t.Fatalf("expected missing field")
	}
}
