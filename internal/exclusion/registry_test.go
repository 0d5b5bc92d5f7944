package exclusion

import (
	"context"
	"testing"
)

// TestIsBlockedSymmetric verifies a block hides both users from each other
// regardless of which side created it.
func TestIsBlockedSymmetric(t *testing.T) {
	reg := NewInMemoryRegistry()
	ctx := context.Background()

	if err := reg.Block(ctx, "alice", "bob"); err != nil {
		t.Fatalf("Block failed: %v", err)
	}

	tests := []struct {
		name     string
		a, b     string
		expected bool
	}{
		{"creator direction", "alice", "bob", true},
		{"reverse direction", "bob", "alice", true},
		{"unrelated pair", "alice", "carol", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			blocked, err := reg.IsBlocked(ctx, tt.a, tt.b)
			if err != nil {
				t.Fatalf("IsBlocked failed: %v", err)
			}
			if blocked != tt.expected {
				t.Errorf("IsBlocked(%s, %s) = %v, expected %v", tt.a, tt.b, blocked, tt.expected)
			}
		})
	}
}

// TestUnblockRemovesOnlyOwnEdge verifies that removing one party's block
// leaves a block created by the other party intact.
func TestUnblockRemovesOnlyOwnEdge(t *testing.T) {
	reg := NewInMemoryRegistry()
	ctx := context.Background()

	// Both parties block each other.
	if err := reg.Block(ctx, "alice", "bob"); err != nil {
		t.Fatalf("Block failed: %v", err)
	}
	if err := reg.Block(ctx, "bob", "alice"); err != nil {
		t.Fatalf("Block failed: %v", err)
	}

	// Alice unblocks; Bob's edge must still apply.
	if err := reg.Unblock(ctx, "alice", "bob"); err != nil {
		t.Fatalf("Unblock failed: %v", err)
	}
	blocked, err := reg.IsBlocked(ctx, "alice", "bob")
	if err != nil {
		t.Fatalf("IsBlocked failed: %v", err)
	}
	if !blocked {
		t.Error("expected bob's block to remain effective after alice unblocks")
	}

	// Bob unblocks too; the pair is now clear.
	if err := reg.Unblock(ctx, "bob", "alice"); err != nil {
		t.Fatalf("Unblock failed: %v", err)
	}
	blocked, err = reg.IsBlocked(ctx, "alice", "bob")
	if err != nil {
		t.Fatalf("IsBlocked failed: %v", err)
	}
	if blocked {
		t.Error("expected no block after both parties unblock")
	}
}
