package ttypes

import (
	"encoding/json"
	"testing"
)

func TestLooseInt(t *testing.T) {
	tests := []struct {
		in      string
		want    LooseInt
		wantErr bool
	}{
		{`10`, 10, false},
		{`"10"`, 10, false},
		{`"-5"`, -5, false},
		{`" 7 "`, 7, false},
		{`12.6`, 13, false},
		{`"1.5"`, 2, false},
		{`""`, 0, false},
		{`null`, 0, false},
		{`"loud"`, 0, true},
		{`true`, 0, true},
	}
	for _, tt := range tests {
		var n LooseInt
		err := json.Unmarshal([]byte(tt.in), &n)
		if (err != nil) != tt.wantErr {
			t.Errorf("Unmarshal(%s) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && n != tt.want {
			t.Errorf("Unmarshal(%s) = %d, want %d", tt.in, n, tt.want)
		}
	}
}

func TestPresetUnmarshal(t *testing.T) {
	var p Preset
	body := `{"name":"n","voice":"v","style":"cheerful","rate":"10","pitch":-5,"volume":"0"}`
	if err := json.Unmarshal([]byte(body), &p); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	want := Preset{Name: "n", Voice: "v", Style: "cheerful", Rate: 10, Pitch: -5}
	if p != want {
		t.Errorf("got %+v, want %+v", p, want)
	}
}
