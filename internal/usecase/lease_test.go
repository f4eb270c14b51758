package usecase

import (
	"strings"
	"testing"
)

func TestLeaseOwnerIsProcessScoped(t *testing.T) {
	t.Parallel()

	capture := leaseOwner(defaultCaptureOwnerTag)
	allocation := leaseOwner(defaultAllocationOwnerTag)

	if !strings.HasPrefix(capture, defaultCaptureOwnerTag+"/") {
		t.Fatalf("owner must keep the stage prefix, got %q", capture)
	}
	if capture == defaultCaptureOwnerTag {
		t.Fatalf("owner must not be the bare stage tag shared by every process: %q", capture)
	}
	if capture == allocation {
		t.Fatalf("stages must not share an owner: %q", capture)
	}
	if again := leaseOwner(defaultCaptureOwnerTag); again != capture {
		t.Fatalf("owner must be stable within a process: %q vs %q", capture, again)
	}
}
