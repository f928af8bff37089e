package ui

import (
	"strings"
	"testing"

	"github.com/dgnsrekt/ttstudio/internal/voice"
)

var testGroups = []voice.Group{
	{Key: "zh", Label: "Chinese", Preferred: true, Voices: []voice.Voice{
		{ShortName: "zh-CN-XiaoxiaoNeural", FriendlyName: "Xiaoxiao", Locale: "zh-CN", Gender: "Female"},
		{ShortName: "zh-CN-YunxiNeural", FriendlyName: "Yunxi", Locale: "zh-CN", Gender: "Male"},
	}},
	{Key: "en", Label: "English", Voices: []voice.Voice{
		{ShortName: "en-US-AriaNeural", FriendlyName: "Aria", Locale: "en-US", Gender: "Female"},
	}},
}

func TestVoiceItems(t *testing.T) {
	tests := []struct {
		name      string
		hidden    int
		query     string
		wantIDs   []string
		wantFinal string
	}{
		{
			name:    "grouped",
			wantIDs: []string{"", "zh-CN-XiaoxiaoNeural", "zh-CN-YunxiNeural", "", "en-US-AriaNeural"},
		},
		{
			name:      "collapsed others",
			hidden:    7,
			wantIDs:   []string{"", "zh-CN-XiaoxiaoNeural", "zh-CN-YunxiNeural", "", "en-US-AriaNeural", ""},
			wantFinal: "7 more voices",
		},
		{
			name:    "filtered",
			query:   "en-us",
			wantIDs: []string{"en-US-AriaNeural"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items := voiceItems(testGroups, tt.hidden, tt.query)
			if len(items) != len(tt.wantIDs) {
				t.Fatalf("expected %d items, got %d", len(tt.wantIDs), len(items))
			}
			for i, id := range tt.wantIDs {
				if items[i].id != id {
					t.Errorf("item %d: expected %q, got %q", i, id, items[i].id)
				}
				if (id == "") != items[i].header {
					t.Errorf("item %d: header=%v", i, items[i].header)
				}
			}
			if tt.wantFinal != "" && !strings.Contains(items[len(items)-1].label, tt.wantFinal) {
				t.Errorf("expected final header to mention %q, got %q", tt.wantFinal, items[len(items)-1].label)
			}
		})
	}
}

// TestPickerSkipsHeaders tests that the cursor only lands on choices.
func TestPickerSkipsHeaders(t *testing.T) {
	p := newPicker("Voices", true)
	p.setItems(voiceItems(testGroups, 0, ""), "")

	it, ok := p.current()
	if !ok || it.id != "zh-CN-XiaoxiaoNeural" {
		t.Fatalf("expected cursor on first voice, got %+v", it)
	}

	p.move(2)
	if it, _ := p.current(); it.id != "en-US-AriaNeural" {
		t.Errorf("expected to skip the English header, got %q", it.id)
	}

	p.move(5)
	if it, _ := p.current(); it.id != "en-US-AriaNeural" {
		t.Errorf("expected cursor to stop at the last voice, got %q", it.id)
	}

	p.move(-10)
	if it, _ := p.current(); it.id != "zh-CN-XiaoxiaoNeural" {
		t.Errorf("expected cursor to stop at the first voice, got %q", it.id)
	}
}

func TestPickerSelected(t *testing.T) {
	p := newPicker("Voices", false)
	p.setItems(voiceItems(testGroups, 0, ""), "en-US-AriaNeural")
	if it, _ := p.current(); it.id != "en-US-AriaNeural" {
		t.Errorf("expected cursor on selection, got %q", it.id)
	}
}

func TestPickerScroll(t *testing.T) {
	p := newPicker("Region", false)
	p.height = 3
	p.setItems(stringItems([]string{"a", "b", "c", "d", "e", "f"}), "e")
	if p.offset != 2 {
		t.Errorf("expected offset 2, got %d", p.offset)
	}
	p.move(-4)
	if p.offset != 0 || p.cursor != 0 {
		t.Errorf("expected top, got offset %d cursor %d", p.offset, p.cursor)
	}
	if out := p.view(40, ""); !strings.Contains(out, "1/6") {
		t.Errorf("expected position marker in %q", out)
	}
}

func TestPickerEmpty(t *testing.T) {
	p := newPicker("Presets", false)
	p.setItems(nil, "")
	if _, ok := p.current(); ok {
		t.Error("expected no current item")
	}
	if !strings.Contains(p.view(40, ""), "nothing to choose") {
		t.Error("expected empty placeholder")
	}
}
