package sim

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	log "github.com/sirupsen/logrus"

	"tanksim/common"
	"tanksim/maps"
	"tanksim/registry"
)

// Scheduler builds the match set for the configured mode, runs it on the
// worker pool and aggregates results. Matches complete in arbitrary order;
// the reporter re-sorts on stable keys so the output is deterministic.
type Scheduler struct {
	cfg     Config
	host    *registry.Host
	errs    *ErrorLog
	archive *Archive
	log     *log.Entry

	mu          sync.Mutex
	comparative []ComparativeEntry
	competition []CompetitionEntry
	gamesPlayed int
}

func NewScheduler(cfg Config) *Scheduler {
	return &Scheduler{
		cfg:  cfg,
		host: registry.NewHost(),
		errs: NewErrorLog(),
		log:  log.WithField("component", "scheduler"),
	}
}

// GamesPlayed reports how many matches completed successfully.
func (s *Scheduler) GamesPlayed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gamesPlayed
}

// Run executes the configured mode and returns the process exit code:
// 0 on success, 1 when nothing could run.
func (s *Scheduler) Run() int {
	defer s.errs.Flush()

	if s.cfg.ResultsDB != "" {
		archive, err := OpenArchive(s.cfg.ResultsDB)
		if err != nil {
			s.log.WithError(err).Warn("results archive unavailable, continuing without")
		} else {
			s.archive = archive
			defer archive.Close()
		}
	}

	if s.cfg.ModeComparative {
		return s.runComparative()
	}
	return s.runCompetition()
}

func (s *Scheduler) runComparative() int {
	md, err := maps.Load(s.cfg.GameMap)
	if err != nil {
		s.errs.RecordMapError(s.cfg.GameMap, err)
		s.log.WithError(err).Error("failed to load game map")
		return 1
	}

	// Both algorithms must load in comparative mode.
	algoA, err := s.host.LoadAlgorithm(s.cfg.Algorithm1)
	if err != nil {
		s.errs.RecordRunError(s.cfg.Algorithm1, err)
		s.log.WithError(err).Error("failed to load algorithm1")
		return 1
	}
	algoB, err := s.host.LoadAlgorithm(s.cfg.Algorithm2)
	if err != nil {
		s.errs.RecordRunError(s.cfg.Algorithm2, err)
		s.log.WithError(err).Error("failed to load algorithm2")
		return 1
	}

	gms := s.loadGameManagerFolder()
	if len(gms) == 0 {
		s.log.Error("no game manager plugins loaded")
		return 1
	}
	s.log.WithField("count", len(gms)).Info("game managers loaded")

	pool := NewWorkerPool(s.cfg.NumThreads)
	for _, gmEntry := range gms {
		gmEntry := gmEntry
		pool.Enqueue(func() {
			result, err := s.runMatch(gmEntry, algoA, algoB, md, s.cfg.GameMap)
			if err != nil {
				s.errs.RecordRunError(fmt.Sprintf("%s: %s vs %s", gmEntry.Name, algoA.Name, algoB.Name), err)
				s.log.WithField("gm", gmEntry.Name).WithError(err).Warn("match failed")
				return
			}
			entry := ComparativeEntry{
				GMName:     gmEntry.Name,
				Result:     result,
				FinalState: RenderView(result.FinalState, md.Rows, md.Cols),
			}
			s.mu.Lock()
			s.comparative = append(s.comparative, entry)
			s.gamesPlayed++
			s.mu.Unlock()
			s.archiveMatch("comparative", s.cfg.GameMap, gmEntry.Name, algoA.Name, algoB.Name, result)
		})
	}
	pool.Shutdown()

	WriteComparativeFile(s.cfg, s.comparative)
	s.logSummary(len(gms), 2)
	return 0
}

func (s *Scheduler) runCompetition() int {
	mapData, mapPaths := s.loadMapsFolder()
	if len(mapData) == 0 {
		s.log.Error("no valid maps in game_maps_folder")
		return 1
	}

	gmEntry, err := s.host.LoadGameManager(s.cfg.GameManagerPath)
	if err != nil {
		s.errs.RecordRunError(s.cfg.GameManagerPath, err)
		s.log.WithError(err).Error("failed to load game manager")
		return 1
	}

	algos := s.loadAlgorithmFolder()
	if len(algos) < 2 {
		s.log.WithField("count", len(algos)).Error("need at least 2 algorithms")
		return 1
	}
	s.log.WithField("count", len(algos)).Info("algorithms loaded")

	pool := NewWorkerPool(s.cfg.NumThreads)
	for mi, md := range mapData {
		md := md
		mapPath := mapPaths[mi]
		for _, pair := range competitionPairs(len(algos), mi) {
			algoA, algoB := algos[pair[0]], algos[pair[1]]
			pool.Enqueue(func() {
				result, err := s.runMatch(gmEntry, algoA, algoB, md, mapPath)
				if err != nil {
					s.errs.RecordRunError(fmt.Sprintf("%s: %s vs %s", mapPath, algoA.Name, algoB.Name), err)
					s.log.WithField("map", mapPath).WithError(err).Warn("match failed")
					return
				}
				entry := CompetitionEntry{
					MapFile:    mapPath,
					Algorithm1: algoA.Name,
					Algorithm2: algoB.Name,
					Result:     result,
				}
				s.mu.Lock()
				s.competition = append(s.competition, entry)
				s.gamesPlayed++
				s.mu.Unlock()
				s.archiveMatch("competition", mapPath, gmEntry.Name, algoA.Name, algoB.Name, result)
			})
		}
	}
	pool.Shutdown()

	WriteCompetitionFile(s.cfg, s.competition)
	s.logSummary(1, len(algos))
	return 0
}

// runMatch builds the per-match objects and runs the referee. Any panic
// escaping plugin code terminates only this match.
func (s *Scheduler) runMatch(gmEntry registry.GameManagerEntry,
	algoA, algoB registry.AlgorithmEntry,
	md *maps.Data, mapPath string) (result common.GameResult, err error) {

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("match panicked: %v", r)
		}
	}()

	referee := gmEntry.New(s.cfg.Verbose)
	p1 := algoA.NewPlayer(1, md.Rows, md.Cols, md.MaxSteps, md.NumShells)
	p2 := algoB.NewPlayer(2, md.Rows, md.Cols, md.MaxSteps, md.NumShells)
	if p1 == nil || p2 == nil {
		return result, fmt.Errorf("player factory returned nil controller")
	}
	return referee.Run(md.Cols, md.Rows, md.View, mapPath,
		md.MaxSteps, md.NumShells,
		p1, algoA.Name, p2, algoB.Name,
		algoA.NewTankAlgorithm, algoB.NewTankAlgorithm)
}

// competitionPairs enumerates the pairings for map index m over n
// algorithms: each i plays (i+1+(m mod (n-1))) mod n. When n is even, the
// middle rotation would pair everyone twice, so only the first half plays.
func competitionPairs(n, m int) [][2]int {
	if n < 2 {
		return nil
	}
	d := 1 + m%(n-1)
	limit := n
	if n%2 == 0 && 2*d == n {
		limit = n / 2
	}
	pairs := make([][2]int, 0, limit)
	for i := 0; i < limit; i++ {
		pairs = append(pairs, [2]int{i, (i + d) % n})
	}
	return pairs
}

func (s *Scheduler) loadGameManagerFolder() []registry.GameManagerEntry {
	var entries []registry.GameManagerEntry
	for _, path := range sharedObjects(s.cfg.GameManagersFolder) {
		entry, err := s.host.LoadGameManager(path)
		if err != nil {
			s.errs.RecordRunError(path, err)
			continue
		}
		entries = append(entries, entry)
	}
	return entries
}

func (s *Scheduler) loadAlgorithmFolder() []registry.AlgorithmEntry {
	var entries []registry.AlgorithmEntry
	for _, path := range sharedObjects(s.cfg.AlgorithmsFolder) {
		entry, err := s.host.LoadAlgorithm(path)
		if err != nil {
			s.errs.RecordRunError(path, err)
			continue
		}
		entries = append(entries, entry)
	}
	return entries
}

func (s *Scheduler) loadMapsFolder() ([]*maps.Data, []string) {
	var data []*maps.Data
	var paths []string
	entries, err := os.ReadDir(s.cfg.GameMapsFolder)
	if err != nil {
		s.log.WithError(err).Error("cannot read game_maps_folder")
		return nil, nil
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		path := filepath.Join(s.cfg.GameMapsFolder, e.Name())
		md, err := maps.Load(path)
		if err != nil {
			s.errs.RecordMapError(path, err)
			s.log.WithField("map", path).WithError(err).Warn("skipping invalid map")
			continue
		}
		data = append(data, md)
		paths = append(paths, path)
	}
	return data, paths
}

// sharedObjects lists the .so files in dir in sorted order so the match set
// is enumerated deterministically.
func sharedObjects(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var out []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".so" {
			out = append(out, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(out)
	return out
}

func (s *Scheduler) archiveMatch(mode, mapFile, gmName, a1, a2 string, result common.GameResult) {
	if s.archive == nil {
		return
	}
	err := s.archive.RecordMatch(MatchRow{
		Mode:        mode,
		MapFile:     mapFile,
		GameManager: gmName,
		Algorithm1:  a1,
		Algorithm2:  a2,
		Winner:      result.Winner,
		Reason:      result.Reason.String(),
		Rounds:      result.Rounds,
		Player1Left: result.RemainingTanks[0],
		Player2Left: result.RemainingTanks[1],
	})
	if err != nil {
		s.log.WithError(err).Warn("failed to archive match")
	}
}

func (s *Scheduler) logSummary(gmsLoaded, algosLoaded int) {
	s.log.WithFields(log.Fields{
		"games":         s.GamesPlayed(),
		"game_managers": gmsLoaded,
		"algorithms":    algosLoaded,
	}).Info("run complete")
}
