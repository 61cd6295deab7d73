package targets

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestFromLines(t *testing.T) {
	t.Parallel()

	input := strings.Join([]string{
		"# program scope",
		"example.com",
		"",
		"  EXAMPLE.com  ",
		"https://api.example.org/login",
		"not a domain",
		"co.uk",
		"example.net.",
	}, "\n")

	set, err := FromLines(strings.NewReader(input))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"example.com", "api.example.org", "example.net"}
	if !reflect.DeepEqual(set.Targets, want) {
		t.Errorf("targets = %v, want %v", set.Targets, want)
	}
	if set.Duplicates != 1 {
		t.Errorf("duplicates = %d, want 1", set.Duplicates)
	}
	if len(set.Rejected) != 2 {
		t.Fatalf("rejected = %v", set.Rejected)
	}
	if set.Rejected[0].Line != 6 {
		t.Errorf("first rejection line = %d, want 6", set.Rejected[0].Line)
	}
}

func TestFromLinesEmpty(t *testing.T) {
	t.Parallel()

	_, err := FromLines(strings.NewReader("# nothing here\n\n"))
	if !errors.Is(err, ErrNoTargets) {
		t.Errorf("expected ErrNoTargets, got %v", err)
	}
}

func TestLoad(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	list := filepath.Join(dir, "targets.txt")
	if err := os.WriteFile(list, []byte("example.com\nexample.org\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		domain  string
		list    string
		want    []string
		wantErr error
	}{
		{name: "single domain", domain: "Example.com", want: []string{"example.com"}},
		{name: "list file", list: list, want: []string{"example.com", "example.org"}},
		{name: "missing file", list: filepath.Join(dir, "nope.txt"), wantErr: ErrNoTargets},
		{name: "nothing given", wantErr: ErrNoTargets},
		{name: "invalid domain", domain: "localhost", wantErr: ErrNoTargets},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			set, err := Load(tt.domain, tt.list)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !reflect.DeepEqual(set.Targets, tt.want) {
				t.Errorf("targets = %v, want %v", set.Targets, tt.want)
			}
		})
	}

	if _, err := Load("example.com", list); err == nil {
		t.Error("expected error when both domain and list are given")
	}
}
