package util

import "testing"

func TestParseEndpoint(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		schemes []string
		want    string
		wantErr bool
	}{
		{"ws", "ws://localhost:8000/ws/progress/", ChannelSchemes, "ws://localhost:8000/ws/progress/", false},
		{"uppercase scheme", "WSS://api.example.com/ws", ChannelSchemes, "wss://api.example.com/ws", false},
		{"https upload", " https://api.example.com/api/upload-video/ ", UploadSchemes, "https://api.example.com/api/upload-video/", false},
		{"wrong scheme", "http://api.example.com/ws", ChannelSchemes, "", true},
		{"no scheme", "localhost:8000/ws", ChannelSchemes, "", true},
		{"no host", "https:///upload", UploadSchemes, "", true},
		{"empty", "", UploadSchemes, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := ParseEndpoint(tt.raw, tt.schemes...)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseEndpoint(%q) = %v, want error", tt.raw, u)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseEndpoint(%q) err = %v", tt.raw, err)
			}
			if u.String() != tt.want {
				t.Errorf("got %q, want %q", u.String(), tt.want)
			}
		})
	}
}
