package registry

import (
	"errors"
	"testing"

	"tanksim/common"
)

type stubPlayer struct{}

func (stubPlayer) UpdateTankWithBattleInfo(common.TankAlgorithm, common.SatelliteView) {}

type stubAlgo struct{}

func (stubAlgo) GetAction() common.ActionRequest    { return common.ActionDoNothing }
func (stubAlgo) UpdateBattleInfo(common.BattleInfo) {}

type stubGM struct{}

func (stubGM) Run(cols, rows int, mapView common.SatelliteView, mapName string,
	maxSteps, numShells int,
	p1 common.Player, name1 string, p2 common.Player, name2 string,
	f1, f2 common.TankAlgorithmFactory) (common.GameResult, error) {
	return common.GameResult{}, nil
}

func registerStubAlgorithm() {
	RegisterPlayer(func(playerIndex, rows, cols, maxSteps, numShells int) common.Player {
		return stubPlayer{}
	})
	RegisterTankAlgorithm(func(playerIndex, tankIndex int) common.TankAlgorithm {
		return stubAlgo{}
	})
}

func TestAlgorithmRegistrationProtocol(t *testing.T) {
	Reset()
	defer Reset()

	CreateAlgorithmEntry("alpha")
	registerStubAlgorithm()
	if err := ValidateLastAlgorithm(); err != nil {
		t.Fatalf("validation failed: %v", err)
	}

	entries := Algorithms()
	if len(entries) != 1 || entries[0].Name != "alpha" {
		t.Fatalf("entries = %+v", entries)
	}
	if entries[0].NewPlayer == nil || entries[0].NewTankAlgorithm == nil {
		t.Error("factories not attached")
	}
}

func TestValidationFailsWithoutFactories(t *testing.T) {
	Reset()
	defer Reset()

	CreateAlgorithmEntry("hollow")
	err := ValidateLastAlgorithm()
	var regErr *RegistrationError
	if !errors.As(err, &regErr) {
		t.Fatalf("want *RegistrationError, got %v", err)
	}
	RemoveLastAlgorithm()
	if len(Algorithms()) != 0 {
		t.Error("rollback left an entry behind")
	}
}

func TestDuplicateRegistrationDetected(t *testing.T) {
	Reset()
	defer Reset()

	CreateAlgorithmEntry("twice")
	registerStubAlgorithm()
	RegisterPlayer(func(playerIndex, rows, cols, maxSteps, numShells int) common.Player {
		return stubPlayer{}
	})
	if err := ValidateLastAlgorithm(); err == nil {
		t.Fatal("duplicate registration should fail validation")
	}
}

func TestGameManagerRegistrationProtocol(t *testing.T) {
	Reset()
	defer Reset()

	CreateGameManagerEntry("referee")
	RegisterGameManager(func(verbose bool) common.GameManager { return stubGM{} })
	if err := ValidateLastGameManager(); err != nil {
		t.Fatalf("validation failed: %v", err)
	}
	entries := GameManagers()
	if len(entries) != 1 || entries[0].Name != "referee" || entries[0].New == nil {
		t.Fatalf("entries = %+v", entries)
	}
}

func TestHostRollsBackFailedLoad(t *testing.T) {
	Reset()
	defer Reset()

	prev := openPlugin
	defer func() { openPlugin = prev }()
	openPlugin = func(path string) error {
		return errors.New("not a shared object")
	}

	host := NewHost()
	if _, err := host.LoadAlgorithm("broken.so"); err == nil {
		t.Fatal("expected load failure")
	}
	if len(Algorithms()) != 0 {
		t.Error("failed load left an entry behind")
	}
}

func TestHostCommitsValidLoad(t *testing.T) {
	Reset()
	defer Reset()

	prev := openPlugin
	defer func() { openPlugin = prev }()
	openPlugin = func(path string) error {
		// A real plugin's init functions run inside plugin.Open.
		registerStubAlgorithm()
		return nil
	}

	host := NewHost()
	entry, err := host.LoadAlgorithm("/plugins/alpha.so")
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if entry.Name != "alpha" {
		t.Errorf("entry name = %q, want alpha", entry.Name)
	}
	if len(Algorithms()) != 1 {
		t.Errorf("registry has %d entries, want 1", len(Algorithms()))
	}
}

func TestHostRejectsIncompleteRegistration(t *testing.T) {
	Reset()
	defer Reset()

	prev := openPlugin
	defer func() { openPlugin = prev }()
	openPlugin = func(path string) error {
		// Plugin registers only a player, never a tank algorithm.
		RegisterPlayer(func(playerIndex, rows, cols, maxSteps, numShells int) common.Player {
			return stubPlayer{}
		})
		return nil
	}

	host := NewHost()
	if _, err := host.LoadAlgorithm("half.so"); err == nil {
		t.Fatal("expected validation failure")
	}
	if len(Algorithms()) != 0 {
		t.Error("invalid registration not rolled back")
	}
}

func TestPluginName(t *testing.T) {
	tests := []struct{ path, want string }{
		{"/a/b/chaser.so", "chaser"},
		{"sniper.so", "sniper"},
		{"plain", "plain"},
	}
	for _, tt := range tests {
		if got := PluginName(tt.path); got != tt.want {
			t.Errorf("PluginName(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}
