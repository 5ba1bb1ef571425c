package recorder

import "testing"

func newRouterDirectory() *fakeDirectory {
	return &fakeDirectory{
		channels:  map[string][]string{"cat": {"vc1", "vc2"}},
		occupants: map[string]int{},
		names:     map[string]string{},
	}
}

func TestDecideStartOnJoinFromNowhere(t *testing.T) {
	t.Parallel()
	dir := newRouterDirectory()
	ev := PresenceEvent{CommunityID: "g", AfterChannelID: "vc1"}

	d, target := decide(ev, "cat", dir)
	if d != decideStart || target != "vc1" {
		t.Fatalf("decide = (%v, %q), want (start, vc1)", d, target)
	}
}

func TestDecideStartOnJoinFromForeignChannel(t *testing.T) {
	t.Parallel()
	dir := newRouterDirectory()
	ev := PresenceEvent{CommunityID: "g", BeforeChannelID: "lobby", AfterChannelID: "vc2"}

	d, target := decide(ev, "cat", dir)
	if d != decideStart || target != "vc2" {
		t.Fatalf("decide = (%v, %q), want (start, vc2)", d, target)
	}
}

func TestDecideIgnoresBots(t *testing.T) {
	t.Parallel()
	dir := newRouterDirectory()
	ev := PresenceEvent{CommunityID: "g", Bot: true, AfterChannelID: "vc1"}

	if d, _ := decide(ev, "cat", dir); d != decideNone {
		t.Fatalf("decide = %v for bot, want none", d)
	}
}

func TestDecideNoopWithoutCategory(t *testing.T) {
	t.Parallel()
	dir := newRouterDirectory()
	ev := PresenceEvent{CommunityID: "g", AfterChannelID: "vc1"}

	if d, _ := decide(ev, "", dir); d != decideNone {
		t.Fatalf("decide = %v without category, want none", d)
	}
}

func TestDecideStopWhenCategoryEmpties(t *testing.T) {
	t.Parallel()
	dir := newRouterDirectory()
	ev := PresenceEvent{CommunityID: "g", BeforeChannelID: "vc1"}

	if d, _ := decide(ev, "cat", dir); d != decideStop {
		t.Fatalf("decide = %v, want stop", d)
	}
}

func TestDecideNoStopWhileOccupied(t *testing.T) {
	t.Parallel()
	dir := newRouterDirectory()
	dir.setOccupants("vc2", 1)
	ev := PresenceEvent{CommunityID: "g", BeforeChannelID: "vc1"}

	// Occupancy is read live, not from the event snapshot: someone is still
	// in another channel of the category.
	if d, _ := decide(ev, "cat", dir); d != decideNone {
		t.Fatalf("decide = %v with occupied category, want none", d)
	}
}

func TestDecideMoveWithinCategoryIsNoop(t *testing.T) {
	t.Parallel()
	dir := newRouterDirectory()
	dir.setOccupants("vc2", 1)
	ev := PresenceEvent{CommunityID: "g", BeforeChannelID: "vc1", AfterChannelID: "vc2"}

	if d, _ := decide(ev, "cat", dir); d != decideNone {
		t.Fatalf("decide = %v for move within category, want none", d)
	}
}

func TestDecideForeignTrafficIsNoop(t *testing.T) {
	t.Parallel()
	dir := newRouterDirectory()
	ev := PresenceEvent{CommunityID: "g", BeforeChannelID: "lobby", AfterChannelID: "afk"}

	if d, _ := decide(ev, "cat", dir); d != decideNone {
		t.Fatalf("decide = %v for foreign channels, want none", d)
	}
}
