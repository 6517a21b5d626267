// Package uci speaks the Universal Chess Interface on stdin/stdout.
// Protocol output goes to the writer; diagnostics go to the standard
// logger. Malformed input is ignored, never fatal.
package uci

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/ABDO10DZ/Hugine/internal/board"
	"github.com/ABDO10DZ/Hugine/internal/book"
	"github.com/ABDO10DZ/Hugine/internal/engine"
	"github.com/ABDO10DZ/Hugine/internal/learning"
	"github.com/ABDO10DZ/Hugine/internal/tablebase"
)

// Option defaults and bounds, mirrored in the uci command output.
const (
	defaultHashMB   = 256
	defaultOverhead = 100
)

// UCI is the protocol state machine for one session.
type UCI struct {
	out io.Writer
	eng *engine.Engine
	pos *board.Position

	// opening book
	ownBook     bool
	bookFile    string
	bookVariety int
	book        *book.Book

	// endgame tables
	syzygy *tablebase.SyzygyProber

	// persistent learning
	learning  bool
	learnFile string
	learn     *learning.Table

	// strength limiting
	limitStrength bool
	elo           int

	chess960 bool

	searchDone chan struct{}
}

// New creates a protocol handler around the engine, writing protocol
// output to out.
func New(eng *engine.Engine, out io.Writer) *UCI {
	u := &UCI{
		out:     out,
		eng:     eng,
		learn:   learning.New(),
		elo:     3000,
		ownBook: true,
	}
	u.pos, _ = board.ParseFEN(board.StartFEN)
	return u
}

// Run processes commands from r until quit or EOF. Returns the process
// exit code.
func (u *UCI) Run(r io.Reader) int {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		cmd, args := fields[0], fields[1:]

		switch cmd {
		case "uci":
			u.cmdUCI()
		case "isready":
			fmt.Fprintln(u.out, "readyok")
		case "ucinewgame":
			u.cmdNewGame()
		case "setoption":
			u.cmdSetOption(args)
		case "position":
			u.cmdPosition(args)
		case "go":
			u.cmdGo(args)
		case "stop":
			u.cmdStop()
		case "ponderhit":
			u.eng.PonderHit()
		case "quit":
			u.cmdStop()
			u.saveLearningOnExit()
			return 0
		case "d":
			u.cmdDisplay()
		case "perft":
			u.cmdPerft(args)
		case "eval":
			u.cmdEval()
		default:
			// Unknown commands are ignored per the protocol.
		}
	}
	u.cmdStop()
	u.saveLearningOnExit()
	return 0
}

func (u *UCI) cmdUCI() {
	fmt.Fprintln(u.out, "id name Hugine")
	fmt.Fprintln(u.out, "id author ABDO10DZ")
	fmt.Fprintln(u.out)
	fmt.Fprintf(u.out, "option name Hash type spin default %d min 1 max 8192\n", defaultHashMB)
	fmt.Fprintln(u.out, "option name Threads type spin default 1 min 1 max 64")
	fmt.Fprintln(u.out, "option name Ponder type check default false")
	fmt.Fprintln(u.out, "option name MultiPV type spin default 1 min 1 max 5")
	fmt.Fprintln(u.out, "option name Contempt type spin default 0 min -100 max 100")
	fmt.Fprintf(u.out, "option name Move Overhead type spin default %d min 0 max 5000\n", defaultOverhead)
	fmt.Fprintln(u.out, "option name OwnBook type check default true")
	fmt.Fprintln(u.out, "option name BookFile type string default <empty>")
	fmt.Fprintln(u.out, "option name BookVariety type spin default 0 min 0 max 10")
	fmt.Fprintln(u.out, "option name SyzygyPath type string default <empty>")
	fmt.Fprintln(u.out, "option name EvalFile type string default <empty>")
	fmt.Fprintln(u.out, "option name UCI_Chess960 type check default false")
	fmt.Fprintln(u.out, "option name UCI_LimitStrength type check default false")
	fmt.Fprintln(u.out, "option name UCI_Elo type spin default 3000 min 800 max 3000")
	fmt.Fprintln(u.out, "option name Learning type check default false")
	fmt.Fprintln(u.out, "option name LearningFile type string default <empty>")
	fmt.Fprintln(u.out, "option name LearningRate type spin default 100 min 0 max 500")
	fmt.Fprintln(u.out, "option name LearningMaxAdjust type spin default 50 min 0 max 200")
	fmt.Fprintln(u.out, "option name Clear Learning type button")
	fmt.Fprintln(u.out, "option name Save Learning type button")
	fmt.Fprintln(u.out, "option name Clear Hash type button")
	fmt.Fprintln(u.out, "uciok")
}

func (u *UCI) cmdNewGame() {
	u.cmdStop()
	u.eng.NewGame()
	u.pos = u.startPosition()
}

func (u *UCI) startPosition() *board.Position {
	pos, _ := board.ParseFEN(board.StartFEN)
	pos.Chess960 = u.chess960
	return pos
}

// cmdSetOption handles "setoption name <name> [value <value>]". Names
// may contain spaces; matching is case-insensitive.
func (u *UCI) cmdSetOption(args []string) {
	name, value := parseOption(args)
	if name == "" {
		return
	}

	switch strings.ToLower(name) {
	case "hash":
		if mb, err := strconv.Atoi(value); err == nil {
			u.eng.ResizeHash(clampInt(mb, 1, 8192))
		}
	case "threads":
		if n, err := strconv.Atoi(value); err == nil {
			u.eng.Threads = clampInt(n, 1, 64)
		}
	case "ponder":
		// Pondering is driven by go ponder; the option only signals
		// GUI intent.
	case "multipv":
		if n, err := strconv.Atoi(value); err == nil {
			u.eng.MultiPV = clampInt(n, 1, 5)
		}
	case "contempt":
		if n, err := strconv.Atoi(value); err == nil {
			u.eng.Contempt = clampInt(n, -100, 100)
		}
	case "move overhead":
		if ms, err := strconv.Atoi(value); err == nil {
			u.eng.SetMoveOverhead(time.Duration(clampInt(ms, 0, 5000)) * time.Millisecond)
		}
	case "ownbook":
		u.ownBook = strings.EqualFold(value, "true")
	case "bookfile":
		u.bookFile = cleanValue(value)
		u.loadBook()
	case "bookvariety":
		if n, err := strconv.Atoi(value); err == nil {
			u.bookVariety = clampInt(n, 0, 10)
			if u.book != nil {
				u.book.Variety = u.bookVariety
			}
		}
	case "syzygypath":
		u.setSyzygyPath(cleanValue(value))
	case "evalfile":
		u.loadEvalFile(cleanValue(value))
	case "uci_chess960":
		u.chess960 = strings.EqualFold(value, "true")
		u.eng.Chess960 = u.chess960
		u.pos.Chess960 = u.chess960
	case "uci_limitstrength":
		u.limitStrength = strings.EqualFold(value, "true")
		u.applyStrengthLimit()
	case "uci_elo":
		if n, err := strconv.Atoi(value); err == nil {
			u.elo = clampInt(n, 800, 3000)
			u.applyStrengthLimit()
		}
	case "learning":
		u.learning = strings.EqualFold(value, "true")
		u.applyLearning()
	case "learningfile":
		u.learnFile = cleanValue(value)
		if u.learnFile != "" {
			if err := u.learn.Load(u.learnFile); err != nil {
				log.Printf("learning load failed: %v", err)
			}
		}
	case "learningrate":
		if n, err := strconv.Atoi(value); err == nil {
			u.learn.Rate = clampInt(n, 0, 500)
		}
	case "learningmaxadjust":
		if n, err := strconv.Atoi(value); err == nil {
			u.learn.MaxAdjust = clampInt(n, 0, 200)
		}
	case "clear learning":
		u.learn.Clear()
	case "save learning":
		if u.learnFile != "" {
			if err := u.learn.Save(u.learnFile); err != nil {
				log.Printf("learning save failed: %v", err)
			}
		}
	case "clear hash":
		u.eng.ClearHash()
	}
}

// parseOption splits setoption arguments into the multi-word name and
// value.
func parseOption(args []string) (name, value string) {
	var names, values []string
	target := &names
	for _, arg := range args {
		switch arg {
		case "name":
			target = &names
		case "value":
			target = &values
		default:
			*target = append(*target, arg)
		}
	}
	return strings.Join(names, " "), strings.Join(values, " ")
}

// cleanValue maps the conventional <empty> placeholder to "".
func cleanValue(v string) string {
	if v == "<empty>" {
		return ""
	}
	return v
}

func (u *UCI) loadBook() {
	if u.bookFile == "" {
		u.book = nil
		return
	}
	b, err := book.LoadPolyglot(u.bookFile)
	if err != nil {
		log.Printf("book load failed: %v", err)
		u.book = nil
		return
	}
	b.Variety = u.bookVariety
	u.book = b
}

func (u *UCI) setSyzygyPath(path string) {
	if path == "" {
		u.syzygy = nil
		u.eng.SetTablebase(tablebase.NoopProber{})
		return
	}
	if u.syzygy == nil {
		u.syzygy = tablebase.NewSyzygyProber(path)
	} else {
		u.syzygy.SetPath(path)
	}
	if !u.syzygy.Available() {
		log.Printf("no tablebases found at %s", path)
	}
	u.eng.SetTablebase(u.syzygy)
}

// loadEvalFile swaps in the network evaluator, falling back to the
// classical one when loading fails.
func (u *UCI) loadEvalFile(path string) {
	if path == "" {
		u.eng.ReplaceEvaluators(func() engine.Evaluator { return engine.NewClassicalEvaluator() })
		return
	}
	net, err := engine.LoadNetwork(path)
	if err != nil {
		log.Printf("eval file load failed, keeping classical evaluation: %v", err)
		return
	}
	// The network is stateless, so every worker can share it.
	u.eng.ReplaceEvaluators(func() engine.Evaluator { return net })
}

// applyStrengthLimit maps UCI_Elo onto a depth cap when limiting is
// enabled.
func (u *UCI) applyStrengthLimit() {
	if !u.limitStrength {
		u.eng.DepthCap = 0
		return
	}
	u.eng.DepthCap = clampInt(1+(u.elo-800)/100, 1, 30)
}

func (u *UCI) applyLearning() {
	if u.learning {
		u.eng.Adjust = u.learn
	} else {
		u.eng.Adjust = nil
	}
}

func (u *UCI) saveLearningOnExit() {
	if u.learning && u.learnFile != "" {
		if err := u.learn.Save(u.learnFile); err != nil {
			log.Printf("learning save failed: %v", err)
		}
	}
}

// cmdPosition parses "position [startpos | fen <fen>] [moves ...]".
func (u *UCI) cmdPosition(args []string) {
	if len(args) == 0 {
		return
	}

	movesIdx := len(args)
	for i, arg := range args {
		if arg == "moves" {
			movesIdx = i
			break
		}
	}
	moveStart := movesIdx + 1

	var pos *board.Position
	switch args[0] {
	case "startpos":
		pos = u.startPosition()
	case "fen":
		if movesIdx <= 1 {
			return
		}
		parsed, err := board.ParseFEN(strings.Join(args[1:movesIdx], " "))
		if err != nil {
			log.Printf("invalid fen: %v", err)
			return
		}
		pos = parsed
		if u.chess960 {
			pos.Chess960 = true
		}
	default:
		return
	}

	if moveStart > len(args) {
		moveStart = len(args)
	}
	for _, text := range args[moveStart:] {
		m, err := pos.ParseUCIMove(text)
		if err != nil {
			log.Printf("invalid move %q: %v", text, err)
			return
		}
		pos.MakeMove(m)
		pos.UpdateCheckers()
	}
	u.pos = pos
}

// cmdGo parses limits and launches the search.
func (u *UCI) cmdGo(args []string) {
	u.cmdStop()

	limits := u.parseGoLimits(args)

	// The book answers instantly outside analysis modes.
	if u.ownBook && u.book != nil && !limits.Infinite && !limits.Ponder {
		if m, ok := u.book.Probe(u.pos); ok && m != board.NoMove {
			fmt.Fprintf(u.out, "bestmove %s\n", u.pos.MoveToUCI(m))
			return
		}
	}

	pos := u.pos.Copy()
	u.eng.OnInfo = func(info engine.Info) { u.writeInfo(info) }

	done := make(chan struct{})
	u.searchDone = done
	go func() {
		defer close(done)
		result := u.eng.Search(pos, limits)

		if u.learning && result.BestMove != board.NoMove && !engine.IsMateScore(result.Score) {
			u.learn.Record(pos.Hash, result.Score)
		}

		if result.BestMove == board.NoMove {
			fmt.Fprintln(u.out, "bestmove 0000")
			return
		}
		if result.Ponder != board.NoMove {
			after := pos.Copy()
			after.MakeMove(result.BestMove)
			fmt.Fprintf(u.out, "bestmove %s ponder %s\n",
				pos.MoveToUCI(result.BestMove), after.MoveToUCI(result.Ponder))
			return
		}
		fmt.Fprintf(u.out, "bestmove %s\n", pos.MoveToUCI(result.BestMove))
	}()
}

func (u *UCI) parseGoLimits(args []string) engine.SearchLimits {
	var limits engine.SearchLimits

	ms := func(s string) time.Duration {
		n, _ := strconv.Atoi(s)
		if n < 0 {
			n = 0
		}
		return time.Duration(n) * time.Millisecond
	}

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "depth":
			if i+1 < len(args) {
				limits.Depth, _ = strconv.Atoi(args[i+1])
				i++
			}
		case "nodes":
			if i+1 < len(args) {
				limits.Nodes, _ = strconv.ParseUint(args[i+1], 10, 64)
				i++
			}
		case "movetime":
			if i+1 < len(args) {
				limits.MoveTime = ms(args[i+1])
				i++
			}
		case "wtime":
			if i+1 < len(args) {
				limits.Time[board.White] = ms(args[i+1])
				i++
			}
		case "btime":
			if i+1 < len(args) {
				limits.Time[board.Black] = ms(args[i+1])
				i++
			}
		case "winc":
			if i+1 < len(args) {
				limits.Inc[board.White] = ms(args[i+1])
				i++
			}
		case "binc":
			if i+1 < len(args) {
				limits.Inc[board.Black] = ms(args[i+1])
				i++
			}
		case "movestogo":
			if i+1 < len(args) {
				limits.MovesToGo, _ = strconv.Atoi(args[i+1])
				i++
			}
		case "mate":
			// Treated as a depth bound of twice the mate distance.
			if i+1 < len(args) {
				if n, err := strconv.Atoi(args[i+1]); err == nil && n > 0 {
					limits.Depth = 2 * n
				}
				i++
			}
		case "searchmoves":
			// Root move restriction is not supported; consume the
			// move tokens so later keywords still parse.
			for i+1 < len(args) {
				if _, err := u.pos.ParseUCIMove(args[i+1]); err != nil {
					break
				}
				i++
			}
		case "infinite":
			limits.Infinite = true
		case "ponder":
			limits.Ponder = true
		}
	}
	return limits
}

func (u *UCI) cmdStop() {
	if u.searchDone == nil {
		return
	}
	u.eng.Stop()
	<-u.searchDone
	u.searchDone = nil
}

// writeInfo renders one per-depth report.
func (u *UCI) writeInfo(info engine.Info) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "info depth %d", info.Depth)
	if u.eng.MultiPV > 1 {
		fmt.Fprintf(&sb, " multipv %d", info.MultiPV)
	}
	if engine.IsMateScore(info.Score) {
		fmt.Fprintf(&sb, " score mate %d", engine.MateIn(info.Score))
	} else {
		fmt.Fprintf(&sb, " score cp %d", info.Score)
	}
	fmt.Fprintf(&sb, " nodes %d nps %d time %d tbhits %d",
		info.Nodes, info.NPS, info.Time.Milliseconds(), info.TBHits)
	if len(info.PV) > 0 {
		sb.WriteString(" pv")
		pos := u.pos.Copy()
		for _, m := range info.PV {
			sb.WriteByte(' ')
			sb.WriteString(pos.MoveToUCI(m))
			pos.MakeMove(m)
		}
	}
	fmt.Fprintln(u.out, sb.String())
}

func (u *UCI) cmdDisplay() {
	fmt.Fprintln(u.out, u.pos.String())
	fmt.Fprintf(u.out, "Fen: %s\n", u.pos.ToFEN())
	fmt.Fprintf(u.out, "Key: %016X\n", u.pos.Hash)
	fmt.Fprintln(u.out, u.pos.CastlingDiagnostics())
}

func (u *UCI) cmdPerft(args []string) {
	depth := 5
	if len(args) > 0 {
		if n, err := strconv.Atoi(args[0]); err == nil && n > 0 {
			depth = n
		}
	}

	start := time.Now()
	divide, total := u.eng.PerftDivide(u.pos, depth)
	elapsed := time.Since(start)

	for _, d := range divide {
		fmt.Fprintf(u.out, "%s: %d\n", u.pos.MoveToUCI(d.Move), d.Nodes)
	}
	fmt.Fprintf(u.out, "\nNodes searched: %d\n", total)
	fmt.Fprintf(u.out, "Time: %d ms\n", elapsed.Milliseconds())
	if elapsed > 0 {
		fmt.Fprintf(u.out, "NPS: %.0f\n", float64(total)/elapsed.Seconds())
	}
}

func (u *UCI) cmdEval() {
	score := u.eng.Evaluate(u.pos)
	fmt.Fprintf(u.out, "Static eval: %s (%d cp, %s to move)\n",
		engine.ScoreToString(score), score, u.pos.SideToMove)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
