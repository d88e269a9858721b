package config

import "testing"

func TestNormalizeBackend(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "r2", want: "r2"},
		{in: "R2", want: "r2"},
		{in: "remote", want: "r2"},
		{in: "s3", want: "r2"},
		{in: "local", want: "local"},
		{in: "", want: "local"},
		{in: "garbage", want: "local"},
	}
	for _, tt := range tests {
		if got := normalizeBackend(tt.in); got != tt.want {
			t.Fatalf("normalizeBackend(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestValidateRemoteRequiresCredentials(t *testing.T) {
	cfg := Config{
		StorageBackend: "r2",
		R2AccountID:    "acct",
		R2AccessKey:    "key",
	}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for missing R2 secret and bucket")
	}

	cfg.R2SecretKey = "secret"
	cfg.R2Bucket = "photos"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected complete remote config to validate: %v", err)
	}
}

func TestValidateLocalNeedsNoCredentials(t *testing.T) {
	cfg := Config{StorageBackend: "local"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("local backend must not require credentials: %v", err)
	}
}
