package board

import (
	"reflect"
	"testing"

	"github.com/dockboard/dockboard/internal/core/domain"
)

func intp(v int) *int { return &v }

func keys(cards []Card) []string {
	out := make([]string, len(cards))
	for i, c := range cards {
		out[i] = c.Key
	}
	return out
}

func TestCardOrdering(t *testing.T) {
	tests := []struct {
		name  string
		cards []Card
		want  []string
	}{
		{
			name: "explicit order ranks numerically",
			cards: []Card{
				{Kind: KindContainer, Key: "b", Label: "b", Order: intp(2)},
				{Kind: KindContainer, Key: "a", Label: "a", Order: intp(0)},
				{Kind: KindGroup, Key: "g", Label: "g", Order: intp(1)},
			},
			want: []string{"a", "g", "b"},
		},
		{
			name: "ordered before unordered",
			cards: []Card{
				{Kind: KindGroup, Key: "aaa", Label: "aaa"},
				{Kind: KindContainer, Key: "zzz", Label: "zzz", Order: intp(5)},
			},
			want: []string{"zzz", "aaa"},
		},
		{
			name: "unordered groups before containers",
			cards: []Card{
				{Kind: KindContainer, Key: "c", Label: "alpha"},
				{Kind: KindGroup, Key: "g", Label: "zeta"},
			},
			want: []string{"g", "c"},
		},
		{
			name: "unordered same kind by label case-insensitively",
			cards: []Card{
				{Kind: KindContainer, Key: "c1", Label: "Zebra"},
				{Kind: KindContainer, Key: "c2", Label: "apple"},
			},
			want: []string{"c2", "c1"},
		},
		{
			name: "identical labels break the tie by key",
			cards: []Card{
				{Kind: KindContainer, Key: "c2", Label: "same"},
				{Kind: KindContainer, Key: "c1", Label: "same"},
			},
			want: []string{"c1", "c2"},
		},
		{
			name: "equal explicit orders break the tie by key",
			cards: []Card{
				{Kind: KindContainer, Key: "c2", Label: "b", Order: intp(3)},
				{Kind: KindContainer, Key: "c1", Label: "a", Order: intp(3)},
			},
			want: []string{"c1", "c2"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			SortCards(tt.cards)
			if got := keys(tt.cards); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("order = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDragListExcludesPinned(t *testing.T) {
	list := NewDragList([]Card{
		{Kind: KindGroup, Key: "fresh", Label: "fresh", Pinned: true},
		{Kind: KindGroup, Key: "web", Label: "web"},
		{Kind: KindContainer, Key: "c1", Label: "api"},
	})
	if got := keys(list.Cards()); !reflect.DeepEqual(got, []string{"web", "c1"}) {
		t.Errorf("list = %v, want [web c1]", got)
	}
}

func TestDragListMove(t *testing.T) {
	base := []Card{
		{Kind: KindGroup, Key: "a", Label: "a", Order: intp(0)},
		{Kind: KindContainer, Key: "b", Label: "b", Order: intp(1)},
		{Kind: KindGroup, Key: "c", Label: "c", Order: intp(2)},
	}

	t.Run("above the hovered card", func(t *testing.T) {
		list := NewDragList(base)
		if !list.Move("c", "a", true) {
			t.Fatal("expected a move")
		}
		if got := keys(list.Cards()); !reflect.DeepEqual(got, []string{"c", "a", "b"}) {
			t.Errorf("sequence = %v, want [c a b]", got)
		}
	})

	t.Run("below the hovered card", func(t *testing.T) {
		list := NewDragList(base)
		if !list.Move("a", "b", false) {
			t.Fatal("expected a move")
		}
		if got := keys(list.Cards()); !reflect.DeepEqual(got, []string{"b", "a", "c"}) {
			t.Errorf("sequence = %v, want [b a c]", got)
		}
	})

	t.Run("hovering the dragged card is a no-op", func(t *testing.T) {
		list := NewDragList(base)
		if list.Move("a", "a", true) {
			t.Error("move onto itself must not change the list")
		}
	})

	t.Run("unknown keys are ignored", func(t *testing.T) {
		list := NewDragList(base)
		if list.Move("a", "ghost", true) || list.Move("ghost", "a", true) {
			t.Error("unknown key must not change the list")
		}
	})
}

func TestDragListReorderValidation(t *testing.T) {
	base := []Card{
		{Kind: KindGroup, Key: "a", Label: "a"},
		{Kind: KindContainer, Key: "b", Label: "b"},
	}

	t.Run("wrong length", func(t *testing.T) {
		if err := NewDragList(base).Reorder([]string{"a"}); err == nil {
			t.Error("expected an error for a short sequence")
		}
	})
	t.Run("duplicate key", func(t *testing.T) {
		if err := NewDragList(base).Reorder([]string{"a", "a"}); err == nil {
			t.Error("expected an error for a duplicate key")
		}
	})
	t.Run("unknown key", func(t *testing.T) {
		if err := NewDragList(base).Reorder([]string{"a", "ghost"}); err == nil {
			t.Error("expected an error for an unknown key")
		}
	})
	t.Run("valid sequence applies", func(t *testing.T) {
		list := NewDragList(base)
		if err := list.Reorder([]string{"b", "a"}); err != nil {
			t.Fatal(err)
		}
		if got := keys(list.Cards()); !reflect.DeepEqual(got, []string{"b", "a"}) {
			t.Errorf("sequence = %v, want [b a]", got)
		}
	})
}

// A drag of the first group below the first container must commit contiguous
// zero-based positions for every card, not only the dragged one.
func TestDragCommitScenario(t *testing.T) {
	list := NewDragList([]Card{
		{Kind: KindGroup, Key: "groupA", Label: "GroupA"},
		{Kind: KindContainer, Key: "ctrX", Label: "ContainerX"},
		{Kind: KindGroup, Key: "groupB", Label: "GroupB"},
	})
	// Unordered render order: groups first (GroupA, GroupB), then the container.
	if got := keys(list.Cards()); !reflect.DeepEqual(got, []string{"groupA", "groupB", "ctrX"}) {
		t.Fatalf("initial sequence = %v", got)
	}

	if err := list.Reorder([]string{"ctrX", "groupA", "groupB"}); err != nil {
		t.Fatal(err)
	}

	want := []OrderAssignment{
		{Kind: KindContainer, Key: "ctrX", Order: 0},
		{Kind: KindGroup, Key: "groupA", Order: 1},
		{Kind: KindGroup, Key: "groupB", Order: 2},
	}
	if got := list.Commit(); !reflect.DeepEqual(got, want) {
		t.Errorf("assignments = %v, want %v", got, want)
	}
}

func TestApplyAssignments(t *testing.T) {
	groupAliases := domain.AliasMap{"web": {Alias: "Web stack"}}
	containerAliases := domain.AliasMap{}

	touched := ApplyAssignments([]OrderAssignment{
		{Kind: KindGroup, Key: "web", Order: 0},
		{Kind: KindContainer, Key: "c1", Order: 1},
	}, groupAliases, containerAliases)

	if got := groupAliases["web"]; got.Alias != "Web stack" || got.Order == nil || *got.Order != 0 {
		t.Errorf("group alias = %+v, want alias kept and order 0", got)
	}
	if got := containerAliases["c1"]; got.Order == nil || *got.Order != 1 {
		t.Errorf("container alias = %+v, want order 1", got)
	}
	if len(touched) != 1 || touched["c1"].Order == nil {
		t.Errorf("touched = %v, want only the container entry", touched)
	}
}
