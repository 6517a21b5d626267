package tablebase

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/ABDO10DZ/Hugine/internal/board"
)

// SyzygyProber indexes Syzygy table files found under a directory.
// It answers MaxPieces and Available from the files on disk, so the
// search only pays for probes that could possibly hit.
//
// TODO: integrate a .rtbw/.rtbz decoder; until then Probe and
// ProbeRoot report misses even when the table file exists.
type SyzygyProber struct {
	mu        sync.RWMutex
	path      string
	maxPieces int
	tables    map[string]bool // material keys with both WDL and DTZ files
}

// NewSyzygyProber scans path for table files. An empty or missing path
// yields a prober that is simply unavailable.
func NewSyzygyProber(path string) *SyzygyProber {
	sp := &SyzygyProber{path: path}
	sp.refresh()
	return sp
}

// SetPath points the prober at a new directory and rescans it.
func (sp *SyzygyProber) SetPath(path string) {
	sp.mu.Lock()
	sp.path = path
	sp.mu.Unlock()
	sp.refresh()
}

// Path returns the directory being scanned.
func (sp *SyzygyProber) Path() string {
	sp.mu.RLock()
	defer sp.mu.RUnlock()
	return sp.path
}

// refresh rebuilds the material index from the files on disk. A table
// counts only when both its WDL (.rtbw) and DTZ (.rtbz) halves exist.
func (sp *SyzygyProber) refresh() {
	sp.mu.Lock()
	defer sp.mu.Unlock()

	sp.tables = make(map[string]bool)
	sp.maxPieces = 0
	if sp.path == "" {
		return
	}

	wdl := make(map[string]bool)
	dtz := make(map[string]bool)
	entries, err := os.ReadDir(sp.path)
	if err != nil {
		return
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		switch filepath.Ext(name) {
		case ".rtbw":
			wdl[strings.TrimSuffix(name, ".rtbw")] = true
		case ".rtbz":
			dtz[strings.TrimSuffix(name, ".rtbz")] = true
		}
	}

	for material := range wdl {
		if !dtz[material] {
			continue
		}
		sp.tables[material] = true
		if n := materialPieces(material); n > sp.maxPieces {
			sp.maxPieces = n
		}
	}
}

// materialPieces counts the pieces named by a key like "KQvKR".
func materialPieces(material string) int {
	return len(material) - strings.Count(material, "v")
}

// hasTable reports whether the position's material is covered,
// checking both orientations of the key.
func (sp *SyzygyProber) hasTable(pos *board.Position) bool {
	white, black := sideMaterial(pos, board.White), sideMaterial(pos, board.Black)
	sp.mu.RLock()
	defer sp.mu.RUnlock()
	return sp.tables[white+"v"+black] || sp.tables[black+"v"+white]
}

// sideMaterial renders one side's material as "KQR..." with pieces in
// descending value order, the order Syzygy file names use.
func sideMaterial(pos *board.Position, c board.Color) string {
	var b strings.Builder
	b.WriteByte('K')
	for i := int(board.Queen); i >= int(board.Pawn); i-- {
		pt := board.PieceType(i)
		n := pos.Pieces[c][pt].PopCount()
		for i := 0; i < n; i++ {
			b.WriteByte(pieceChar(pt))
		}
	}
	return b.String()
}

func pieceChar(pt board.PieceType) byte {
	switch pt {
	case board.Queen:
		return 'Q'
	case board.Rook:
		return 'R'
	case board.Bishop:
		return 'B'
	case board.Knight:
		return 'N'
	case board.Pawn:
		return 'P'
	default:
		return '?'
	}
}

// InRange reports whether a probe of this position could hit a local
// table.
func (sp *SyzygyProber) InRange(pos *board.Position) bool {
	return CountPieces(pos) <= sp.MaxPieces() && sp.hasTable(pos)
}

// Probe looks up the position's WDL verdict. Misses until table
// decoding is wired in.
func (sp *SyzygyProber) Probe(pos *board.Position) ProbeResult {
	if !sp.InRange(pos) {
		return ProbeResult{Found: false}
	}
	return ProbeResult{Found: false}
}

// ProbeRoot finds the tablebase-best move. Misses until table decoding
// is wired in.
func (sp *SyzygyProber) ProbeRoot(pos *board.Position) RootResult {
	if !sp.InRange(pos) {
		return RootResult{Found: false}
	}
	return RootResult{Found: false}
}

// MaxPieces returns the largest piece count covered by the indexed
// tables.
func (sp *SyzygyProber) MaxPieces() int {
	sp.mu.RLock()
	defer sp.mu.RUnlock()
	return sp.maxPieces
}

// Available reports whether any complete table was found.
func (sp *SyzygyProber) Available() bool {
	return sp.MaxPieces() > 0
}

// TableCount returns the number of complete tables indexed.
func (sp *SyzygyProber) TableCount() int {
	sp.mu.RLock()
	defer sp.mu.RUnlock()
	return len(sp.tables)
}
