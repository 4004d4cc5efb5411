package validation

import (
	"strings"
	"testing"
)

func TestValidateContentID(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		wantErr bool
	}{
		{"valid id", "video-123", false},
		{"valid with underscore", "live_2024_01", false},
		{"empty id", "", true},
		{"path traversal", "../secret", true},
		{"slash", "a/b", true},
		{"dot", "video.m3u8", true},
		{"too long", strings.Repeat("a", 129), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateContentID(tt.id)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateContentID() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateUserID(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		wantErr bool
	}{
		{"firebase style", "aZ09xYq1LmN2", false},
		{"auth0 style", "auth0|5f7c8ec7c33c6c004bbafe82", false},
		{"empty", "", true},
		{"whitespace", "user 1", true},
		{"too long", strings.Repeat("u", 129), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateUserID(tt.id)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateUserID() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateIDToken(t *testing.T) {
	tests := []struct {
		name    string
		token   string
		wantErr bool
	}{
		{"compact jws", "aaa.bbb.ccc", false},
		{"empty", "", true},
		{"two segments", "aaa.bbb", true},
		{"too long", strings.Repeat("a", 8190) + ".b.c", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateIDToken(tt.token)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateIDToken() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{"valid https", "https://cdn.example.com/video-1/master.m3u8", false},
		{"valid http", "http://localhost:8080", false},
		{"empty", "", true},
		{"no scheme", "cdn.example.com", true},
		{"ws scheme", "wss://example.com", true},
		{"no host", "https://", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateURL(tt.url)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateURL() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateStringLength(t *testing.T) {
	if err := ValidateStringLength("héllo", 1, 5, "name"); err != nil {
		t.Errorf("expected rune-based length check to pass, got %v", err)
	}
	if err := ValidateStringLength("", 1, 5, "name"); err == nil {
		t.Error("expected error for empty string")
	}
	if err := ValidateNonEmptyString("   ", "name"); err == nil {
		t.Error("expected error for blank string")
	}
}
