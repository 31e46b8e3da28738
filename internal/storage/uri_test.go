package storage

import "testing"

func TestParseURI(t *testing.T) {
	tests := []struct {
		name       string
		uri        string
		wantBucket string
		wantObject string
		wantErr    bool
	}{
		{
			name:       "bucket and nested object",
			uri:        "gs://my-bucket/uploads/user-1/stmt.pdf",
			wantBucket: "my-bucket",
			wantObject: "uploads/user-1/stmt.pdf",
		},
		{name: "missing scheme", uri: "my-bucket/stmt.pdf", wantErr: true},
		{name: "bucket only", uri: "gs://my-bucket", wantErr: true},
		{name: "empty object", uri: "gs://my-bucket/", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bucket, object, err := ParseURI(tt.uri)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseURI(%q) expected error, got %q/%q", tt.uri, bucket, object)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseURI(%q) error = %v", tt.uri, err)
			}
			if bucket != tt.wantBucket || object != tt.wantObject {
				t.Errorf("ParseURI(%q) = %q/%q, want %q/%q", tt.uri, bucket, object, tt.wantBucket, tt.wantObject)
			}
		})
	}
}

func TestFilenameFromURI(t *testing.T) {
	tests := []struct {
		uri  string
		want string
	}{
		{"gs://bucket/folder/file.pdf", "file.pdf"},
		{"gs://bucket/file.pdf", "file.pdf"},
		{"uploads/user-1/statement.csv", "statement.csv"},
		{"statement.csv", "statement.csv"},
	}

	for _, tt := range tests {
		if got := FilenameFromURI(tt.uri); got != tt.want {
			t.Errorf("FilenameFromURI(%q) = %q, want %q", tt.uri, got, tt.want)
		}
	}
}

func TestChecksumSHA256(t *testing.T) {
	got := ChecksumSHA256([]byte("hello"))
	want := "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824"
	if got != want {
		t.Errorf("ChecksumSHA256 = %q, want %q", got, want)
	}
	if ChecksumSHA256([]byte("hello")) != got {
		t.Error("checksum must be deterministic")
	}
	if ChecksumSHA256([]byte("hello!")) == got {
		t.Error("different content must produce a different checksum")
	}
}
