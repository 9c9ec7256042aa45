package testhelpers

import "testing"

// CommandAnnotationTest is a single expected cobra command annotation
type CommandAnnotationTest struct {
	Key      string
	Expected string
}

// TestCommandAnnotations checks that annotations contain every expected key/value pair
func TestCommandAnnotations(t *testing.T, annotations map[string]string, tests []CommandAnnotationTest) {
	t.Helper()
	for _, tt := range tests {
		got, ok := annotations[tt.Key]
		if !ok {
			t.Errorf("expected annotation %q to be set", tt.Key)
			continue
		}
		if got != tt.Expected {
			t.Errorf("annotation %q: expected %q, got %q", tt.Key, tt.Expected, got)
		}
	}
}
