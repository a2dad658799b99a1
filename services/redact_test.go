package services

import "testing"

func TestRedactSecrets(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		secrets []string
		want    string
	}{
		{"google key shape", "bad key AIzaSyA0123456789abcdefghijklmn", nil, "bad key [redacted]"},
		{"configured secret", "jwt super-secret-value leaked", []string{"super-secret-value"}, "jwt [redacted] leaked"},
		{"short secrets ignored", "code abc", []string{"abc"}, "code abc"},
		{"empty secret ignored", "nothing here", []string{""}, "nothing here"},
		{"both", "k=AIzaSyA0123456789abcdefghijklmn s=hunter2hunter2", []string{"hunter2hunter2"}, "k=[redacted] s=[redacted]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RedactSecrets(tt.in, tt.secrets...); got != tt.want {
				t.Errorf("RedactSecrets() = %q, want %q", got, tt.want)
			}
		})
	}
}
