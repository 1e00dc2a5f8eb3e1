package timeline

import "testing"

func element(id string, track int, start, duration float64, kind Kind) Element {
	return Element{
		ID:         id,
		Kind:       kind,
		SourceRef:  id + ".media",
		TrackIndex: track,
		StartTime:  start,
		Duration:   duration,
	}
}

func TestFreezeRejectsTrimBeyondSource(t *testing.T) {
	bad := element("a", 0, 0, 5, KindVisual)
	bad.TrimIn = 3
	bad.SourceDuration = 6
	if _, err := Freeze([]Element{bad}); err == nil {
		t.Fatal("expected trim validation to fail")
	}
}

func TestFreezeCopiesInput(t *testing.T) {
	elements := []Element{element("a", 0, 0, 5, KindVisual)}
	snapshot, err := Freeze(elements)
	if err != nil {
		t.Fatalf("Freeze: %v", err)
	}
	elements[0].StartTime = 99
	active := snapshot.ActiveAt(1, nil)
	if len(active) != 1 {
		t.Fatalf("expected element active at t=1, got %d", len(active))
	}
}

func TestActiveAtOrdersByTrack(t *testing.T) {
	snapshot, err := Freeze([]Element{
		element("top", 2, 0, 10, KindVisual),
		element("bottom", 0, 0, 10, KindVisual),
		element("middle", 1, 0, 10, KindVisual),
		element("late", 0, 20, 5, KindVisual),
	})
	if err != nil {
		t.Fatalf("Freeze: %v", err)
	}
	active := snapshot.ActiveAt(5, nil)
	if len(active) != 3 {
		t.Fatalf("expected 3 active elements, got %d", len(active))
	}
	for i, want := range []string{"bottom", "middle", "top"} {
		if active[i].ID != want {
			t.Errorf("active[%d] = %s, want %s", i, active[i].ID, want)
		}
	}
}

func TestActiveAtIntervalBoundaries(t *testing.T) {
	snapshot, err := Freeze([]Element{element("a", 0, 2, 3, KindVisual)})
	if err != nil {
		t.Fatalf("Freeze: %v", err)
	}
	if len(snapshot.ActiveAt(2, nil)) != 1 {
		t.Error("start boundary must be inclusive")
	}
	if len(snapshot.ActiveAt(5, nil)) != 0 {
		t.Error("end boundary must be exclusive")
	}
}

func TestSourceTimeHonorsTrim(t *testing.T) {
	clip := element("a", 0, 10, 5, KindAudio)
	clip.TrimIn = 2
	if got := clip.SourceTime(11.5); got != 3.5 {
		t.Errorf("SourceTime = %f, want 3.5", got)
	}
}

func TestAudioEndAndVisualEnd(t *testing.T) {
	snapshot, err := Freeze([]Element{
		element("v", 0, 0, 4, KindVisual),
		element("a", 1, 1, 6, KindAudio),
		element("b", 2, 0, 3, KindBoth),
	})
	if err != nil {
		t.Fatalf("Freeze: %v", err)
	}
	if got := snapshot.VisualEnd(); got != 4 {
		t.Errorf("VisualEnd = %f, want 4", got)
	}
	if got := snapshot.AudioEnd(); got != 7 {
		t.Errorf("AudioEnd = %f, want 7", got)
	}
	if got := len(snapshot.AudioElements()); got != 2 {
		t.Errorf("AudioElements len = %d, want 2", got)
	}
}
