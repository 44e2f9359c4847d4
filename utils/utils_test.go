package utils

import (
	"reflect"
	"testing"
)

func TestParseArgs(t *testing.T) {
	tests := []struct {
		name string
		argv []string
		want map[string]string
	}{
		{
			name: "equals form",
			argv: []string{"scan", "--folder=/photos", "--prefix=card1"},
			want: map[string]string{"command": "scan", "folder": "/photos", "prefix": "card1"},
		},
		{
			name: "space form and booleans",
			argv: []string{"--debug", "search", "--image", "q.jpg", "--force"},
			want: map[string]string{"command": "search", "debug": "true", "image": "q.jpg", "force": "true"},
		},
		{
			name: "boolean flag before command",
			argv: []string{"--debug", "convert", "--input=a.nef", "--output=a.jpg"},
			want: map[string]string{"command": "convert", "debug": "true", "input": "a.nef", "output": "a.jpg"},
		},
		{
			name: "no command",
			argv: []string{"--input=a.nef"},
			want: map[string]string{"input": "a.nef"},
		},
		{
			name: "value equal to a command name",
			argv: []string{"hash", "--input", "hash"},
			want: map[string]string{"command": "hash", "input": "hash"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseArgs(tt.argv); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseArgs(%v) = %v, want %v", tt.argv, got, tt.want)
			}
		})
	}
}

func TestParseThreshold(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"0", 0, false},
		{"12", 12, false},
		{" 64 ", 64, false},
		{"65", DefaultMaxDistance, true},
		{"-1", DefaultMaxDistance, true},
		{"0.8", DefaultMaxDistance, true},
	}
	for _, tt := range tests {
		got, err := ParseThreshold(tt.in)
		if got != tt.want || (err != nil) != tt.wantErr {
			t.Errorf("ParseThreshold(%q) = %d, %v", tt.in, got, err)
		}
	}
}
