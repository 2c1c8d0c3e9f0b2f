package game

import "testing"

func TestStepSoloReachesAdjacentGoal(t *testing.T) {
	corridor := mustTiles(t, "####", "#SG#", "####")
	levels := LevelSet{{Name: "one", Tiles: corridor}, {Name: "two", Tiles: corridor}}
	w := mustWorld(t, levels, testRules())

	next, events := Step(w, press("p1", KeyD), tickAt(1))
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	sc, ok := events[0].(StageClearEvent)
	if !ok {
		t.Fatalf("expected StageClearEvent, got %T", events[0])
	}
	if sc.Stage != 1 || sc.NextStage != 2 || sc.Deaths != 0 {
		t.Fatalf("unexpected stage clear: %+v", sc)
	}
	st := next.State()
	if st.Coins != 0 || st.TotalCoins != 0 {
		t.Fatalf("coins=%d total=%d, want 0/0", st.Coins, st.TotalCoins)
	}
	if st.Phase != PhaseStageClear {
		t.Fatalf("phase = %q, want stage-clear", st.Phase)
	}

	// stage-clear 期间 Tick 被跳过
	same, events := Step(next, press("p1", KeyD), tickAt(2))
	if len(events) != 0 || same.Tick() != next.Tick() {
		t.Fatalf("tick during stage-clear should be a no-op")
	}

	second, err := NextStage(next, tickAt(60))
	if err != nil {
		t.Fatalf("next stage: %v", err)
	}
	if second.Stage() != 2 || second.Phase() != PhasePlaying || second.Tick() != 0 {
		t.Fatalf("unexpected next stage: stage=%d phase=%q tick=%d", second.Stage(), second.Phase(), second.Tick())
	}
	if second.Position() != corridor.StartPosition(testRules().Tuning) {
		t.Fatalf("next stage should start at the start tile, got %+v", second.Position())
	}
}

func TestStepWallDeathBlamesPresser(t *testing.T) {
	box := mustTiles(t, "###", "#S#", "###")
	w := mustWorld(t, LevelSet{{Tiles: box}}, testRules())
	start := w.Position()

	next, events := Step(w, press("p1", KeyD), tickAt(1))
	if len(events) != 1 {
		t.Fatalf("expected a death event, got %d events", len(events))
	}
	death, ok := events[0].(DeathEvent)
	if !ok {
		t.Fatalf("expected DeathEvent, got %T", events[0])
	}
	if death.Deaths != 1 || death.CulpritID != "p1" || death.CulpritNickname != "nick-p1" {
		t.Fatalf("unexpected death: %+v", death)
	}
	if len(death.Log) != 1 || death.Log[0].Key != KeyD || death.Log[0].Direction != DirRight {
		t.Fatalf("death log should carry the fatal input, got %+v", death.Log)
	}
	if next.Deaths() != 1 || next.Position() != start {
		t.Fatalf("deaths=%d pos=%+v, want 1 at %+v", next.Deaths(), next.Position(), start)
	}
	if len(next.DeathLog()) != 0 {
		t.Fatalf("death log must be cleared after a death")
	}
	if w.Deaths() != 0 {
		t.Fatalf("Step mutated its input world")
	}
}

func TestStepDeathAbortsRemainingInputs(t *testing.T) {
	m := mustTiles(t, "####", "#S.#", "####")
	w := mustWorld(t, LevelSet{{Tiles: m}}, testRules())

	inputs := append(press("p1", KeyD), press("p2", KeyW)...)
	inputs = append(inputs, press("p1", KeyD)...)
	next, events := Step(w, inputs, tickAt(1))

	death := events[0].(DeathEvent)
	if death.CulpritID != "p2" {
		t.Fatalf("culprit = %q, want p2", death.CulpritID)
	}
	if len(death.Log) != 2 {
		t.Fatalf("inputs after the fatal one must not be recorded, log=%+v", death.Log)
	}
	if next.Position() != m.StartPosition(testRules().Tuning) {
		t.Fatalf("position not reset: %+v", next.Position())
	}
}

func TestStepObstacleDeathHasNoInputCulprit(t *testing.T) {
	m := mustTiles(t, "#####", "#S..#", "#####")
	start := m.StartPosition(testRules().Tuning)
	lv := Level{Tiles: m, Obstacles: []ObstacleConfig{{
		ID:        "o1",
		Waypoints: []Position{start},
		Size:      Size{Width: 16, Height: 16},
	}}}
	w := mustWorld(t, LevelSet{lv}, testRules())

	_, events := Step(w, press("p1", KeyD), tickAt(1))
	death := events[0].(DeathEvent)
	if death.CulpritID != "" || death.CulpritNickname != ObstacleCulprit {
		t.Fatalf("obstacle death attributed to %q/%q", death.CulpritID, death.CulpritNickname)
	}
}

func TestStepMovingIntoObstacleBlamesInput(t *testing.T) {
	m := mustTiles(t, "#####", "#S..#", "#####")
	lv := Level{Tiles: m, Obstacles: []ObstacleConfig{{
		ID:        "o1",
		Waypoints: []Position{{X: 64, Y: 40}},
		Size:      Size{Width: 16, Height: 16},
	}}}
	w := mustWorld(t, LevelSet{lv}, testRules())

	_, events := Step(w, press("p3", KeyD), tickAt(1))
	death := events[0].(DeathEvent)
	if death.CulpritID != "p3" {
		t.Fatalf("culprit = %q, want p3", death.CulpritID)
	}
}

func TestStepFinalStageCompletes(t *testing.T) {
	m := mustTiles(t, "######", "#SGo.#", "######")
	w := mustWorld(t, LevelSet{{Tiles: m}}, testRules())

	w, events := Step(w, press("p1", KeyD), tickAt(1))
	if len(events) != 0 {
		t.Fatalf("goal without all coins must not clear, got %v", events)
	}
	if w.State().Coins != 0 {
		t.Fatalf("no coin should be collected yet")
	}

	w, events = Step(w, press("p1", KeyD, KeyD, KeyD), tickAt(2))
	if len(events) != 1 {
		t.Fatalf("expected completion, got %d events", len(events))
	}
	done, ok := events[0].(CompleteEvent)
	if !ok {
		t.Fatalf("expected CompleteEvent, got %T", events[0])
	}
	if done.Deaths != 0 || done.ElapsedTime != tickAt(2).Sub(epoch).Milliseconds() {
		t.Fatalf("unexpected completion: %+v", done)
	}
	st := w.State()
	if st.Phase != PhaseComplete || st.Coins != 1 || len(st.CollectedCoins) != 1 || st.CollectedCoins[0] != "1,3" {
		t.Fatalf("unexpected final state: %+v", st)
	}

	_, events = Step(w, press("p1", KeyA), tickAt(3))
	if len(events) != 0 {
		t.Fatalf("completed world must not tick")
	}
}

func TestStepDeathResetsCoins(t *testing.T) {
	m := mustTiles(t, "#####", "#So.#", "#####")
	w := mustWorld(t, LevelSet{{Tiles: m}}, testRules())

	w, _ = Step(w, press("p1", KeyD), tickAt(1))
	if st := w.State(); st.Coins != 1 || st.Coins > st.TotalCoins {
		t.Fatalf("coins = %d of %d", st.Coins, st.TotalCoins)
	}
	w, _ = Step(w, press("p1", KeyW), tickAt(2))
	st := w.State()
	if st.Coins != 0 || len(st.CollectedCoins) != 0 || st.Deaths != 1 {
		t.Fatalf("death should reset coins: %+v", st)
	}
}

func TestStepIdleTick(t *testing.T) {
	m := mustTiles(t, "####", "#S.#", "####")
	w := mustWorld(t, LevelSet{{Tiles: m}}, testRules())

	w, _ = Step(w, press("p1", KeyD), tickAt(1))
	if !w.State().Moving {
		t.Fatalf("committed move should set moving")
	}
	pos := w.Position()
	w, events := Step(w, nil, tickAt(2))
	if len(events) != 0 || w.Position() != pos || w.State().Moving {
		t.Fatalf("idle tick changed state: events=%v pos=%+v moving=%v", events, w.Position(), w.State().Moving)
	}
	if w.Tick() != 2 {
		t.Fatalf("tick = %d, want 2", w.Tick())
	}
	if got := w.State().ElapsedTime; got != tickAt(2).Sub(epoch).Milliseconds() {
		t.Fatalf("elapsed = %d", got)
	}
}

func TestNextStageRejectsPlayingWorld(t *testing.T) {
	m := mustTiles(t, "###", "#S#", "###")
	w := mustWorld(t, LevelSet{{Tiles: m}, {Tiles: m}}, testRules())
	if _, err := NextStage(w, epoch); err == nil {
		t.Fatalf("expected error advancing a playing world")
	}
}

func TestNewWorldInvalidStage(t *testing.T) {
	m := mustTiles(t, "###", "#S#", "###")
	if _, err := NewWorld(LevelSet{{Tiles: m}}, 2, 0, testRules(), epoch); err == nil {
		t.Fatalf("expected error for stage beyond level set")
	}
}
