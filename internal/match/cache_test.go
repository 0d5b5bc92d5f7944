package match

import (
	"strings"
	"testing"
)

// TestResultKeyStable verifies equal requests map to the same cache key.
func TestResultKeyStable(t *testing.T) {
	req := Request{
		RequesterID: "alice",
		Limit:       20,
		Offset:      0,
		Preset:      PresetBalanced,
		Filters:     Filters{MinAge: 25, MaxAge: 35, MaxDistanceKm: 50},
	}
	if resultKey(req) != resultKey(req) {
		t.Error("identical requests must produce identical keys")
	}
	if !strings.HasPrefix(resultKey(req), "match:result:alice:") {
		t.Errorf("unexpected key shape %q", resultKey(req))
	}
}

// TestResultKeyDistinguishesParameters verifies each parameter that changes
// the ranked page changes the key.
func TestResultKeyDistinguishesParameters(t *testing.T) {
	base := Request{
		RequesterID: "alice",
		Limit:       20,
		Preset:      PresetBalanced,
	}

	variants := map[string]Request{
		"requester": {RequesterID: "bob", Limit: 20, Preset: PresetBalanced},
		"limit":     {RequesterID: "alice", Limit: 10, Preset: PresetBalanced},
		"offset":    {RequesterID: "alice", Limit: 20, Offset: 20, Preset: PresetBalanced},
		"preset":    {RequesterID: "alice", Limit: 20, Preset: PresetNearby},
		"min age":   {RequesterID: "alice", Limit: 20, Preset: PresetBalanced, Filters: Filters{MinAge: 21}},
		"distance":  {RequesterID: "alice", Limit: 20, Preset: PresetBalanced, Filters: Filters{MaxDistanceKm: 10}},
		"online":    {RequesterID: "alice", Limit: 20, Preset: PresetBalanced, Filters: Filters{OnlineOnly: true}},
		"new users": {RequesterID: "alice", Limit: 20, Preset: PresetBalanced, Filters: Filters{NewUsersOnly: true}},
	}

	baseKey := resultKey(base)
	for name, req := range variants {
		t.Run(name, func(t *testing.T) {
			if resultKey(req) == baseKey {
				t.Errorf("changing %s must change the cache key", name)
			}
		})
	}
}

// TestRequesterKeysKey pins the key-set naming used for invalidation.
func TestRequesterKeysKey(t *testing.T) {
	if got := requesterKeysKey("alice"); got != "match:keys:alice" {
		t.Errorf("requesterKeysKey = %q", got)
	}
}
