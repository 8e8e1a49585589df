package common

// Battlefield characters returned by SatelliteView implementations.
const (
	CharWall       = '#'
	CharMine       = '@'
	CharTank1      = '1'
	CharTank2      = '2'
	CharShell      = '*'
	CharSelf       = '%'
	CharEmpty      = ' '
	CharOutOfRange = '&'
)

// SatelliteView is a read-only 2D character view of the battlefield.
// Queries outside the grid return CharOutOfRange (map-file views return
// CharEmpty instead, see the maps package).
type SatelliteView interface {
	ObjectAt(x, y int) byte
}

// BattleInfo is an open value type exchanged between a Player and the
// TankAlgorithms of the same plugin. The harness never inspects it; a
// concrete type is a private agreement inside one plugin.
type BattleInfo interface{}

// TankAlgorithm controls a single tank. GetAction is called once per turn;
// if it returns ActionGetBattleInfo, the referee routes a satellite view
// through the owning Player, which calls UpdateBattleInfo with a concrete
// BattleInfo the algorithm knows how to interpret.
type TankAlgorithm interface {
	GetAction() ActionRequest
	UpdateBattleInfo(info BattleInfo)
}

// Player represents one side of a match. It mediates between the referee's
// satellite view and its own tanks' battle info.
type Player interface {
	UpdateTankWithBattleInfo(tank TankAlgorithm, view SatelliteView)
}

// PlayerFactory builds a Player. playerIndex is 1 or 2.
type PlayerFactory func(playerIndex, rows, cols, maxSteps, numShells int) Player

// TankAlgorithmFactory builds the controller for one tank. tankIndex counts
// per player, starting at 0 in board discovery order.
type TankAlgorithmFactory func(playerIndex, tankIndex int) TankAlgorithm
