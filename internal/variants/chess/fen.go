package chess

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/justinabrahms/boardcore/internal/board"
	"github.com/justinabrahms/boardcore/internal/engine"
	notnil "github.com/notnil/chess"
)

const StartFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

var fromNotnilKind = map[notnil.PieceType]board.PieceKind{
	notnil.Pawn:   board.Pawn,
	notnil.Knight: board.Knight,
	notnil.Bishop: board.Bishop,
	notnil.Rook:   board.Rook,
	notnil.Queen:  board.Queen,
	notnil.King:   board.King,
}

// parseFEN validates fen with the notnil parser and returns its position.
func parseFEN(fen string) (*notnil.Position, error) {
	opt, err := notnil.FEN(fen)
	if err != nil {
		return nil, fmt.Errorf("invalid FEN: %w", err)
	}
	return notnil.NewGame(opt).Position(), nil
}

// FromFEN builds a state from Forsyth-Edwards notation.
func FromFEN(fen string) (*State, error) {
	fen = strings.TrimSpace(fen)
	position, err := parseFEN(fen)
	if err != nil {
		return nil, err
	}

	b := board.NewSquare(Size).Edit(func(e *board.Editor) {
		for sq, p := range position.Board().SquareMap() {
			owner := engine.PlayerA
			if p.Color() == notnil.Black {
				owner = engine.PlayerB
			}
			e.Put(int(sq), piece(owner, fromNotnilKind[p.Type()]))
		}
	})

	st := &State{
		board:    b,
		turn:     engine.PlayerA,
		epTarget: -1,
		fullmove: 1,
	}
	if position.Turn() == notnil.Black {
		st.turn = engine.PlayerB
	}
	rights := position.CastleRights()
	for _, r := range []struct {
		color notnil.Color
		side  notnil.Side
		flag  Castling
	}{
		{notnil.White, notnil.KingSide, WhiteKingSide},
		{notnil.White, notnil.QueenSide, WhiteQueenSide},
		{notnil.Black, notnil.KingSide, BlackKingSide},
		{notnil.Black, notnil.QueenSide, BlackQueenSide},
	} {
		if rights.CanCastle(r.color, r.side) {
			st.castling |= r.flag
		}
	}

	fields := strings.Fields(fen)
	if len(fields) > 3 && fields[3] != "-" {
		p, err := board.ParseSquare(fields[3])
		if err != nil {
			return nil, fmt.Errorf("invalid FEN en passant square: %w", err)
		}
		st.epTarget = idx(p)
	}
	if len(fields) > 4 {
		if st.halfmove, err = strconv.Atoi(fields[4]); err != nil {
			return nil, fmt.Errorf("invalid FEN halfmove clock %q", fields[4])
		}
	}
	if len(fields) > 5 {
		if st.fullmove, err = strconv.Atoi(fields[5]); err != nil {
			return nil, fmt.Errorf("invalid FEN fullmove number %q", fields[5])
		}
	}
	st.moveNumber = 2 * (st.fullmove - 1)
	if st.turn == engine.PlayerB {
		st.moveNumber++
	}
	return st, nil
}

// ToFEN renders a state as Forsyth-Edwards notation.
func ToFEN(s *State) string {
	var sb strings.Builder
	for y := Size - 1; y >= 0; y-- {
		empty := 0
		for x := 0; x < Size; x++ {
			c := s.board.At(y*Size + x)
			if !c.Occupied {
				empty++
				continue
			}
			if empty > 0 {
				sb.WriteString(strconv.Itoa(empty))
				empty = 0
			}
			sb.WriteByte(glyph(c))
		}
		if empty > 0 {
			sb.WriteString(strconv.Itoa(empty))
		}
		if y > 0 {
			sb.WriteByte('/')
		}
	}

	sb.WriteByte(' ')
	if s.turn == engine.PlayerB {
		sb.WriteByte('b')
	} else {
		sb.WriteByte('w')
	}

	sb.WriteByte(' ')
	rights := ""
	for _, r := range []struct {
		flag   Castling
		letter string
	}{
		{WhiteKingSide, "K"}, {WhiteQueenSide, "Q"}, {BlackKingSide, "k"}, {BlackQueenSide, "q"},
	} {
		if s.castling&r.flag != 0 {
			rights += r.letter
		}
	}
	if rights == "" {
		rights = "-"
	}
	sb.WriteString(rights)

	sb.WriteByte(' ')
	if s.epTarget >= 0 {
		sb.WriteString(board.SquareName(pos(s.epTarget)))
	} else {
		sb.WriteByte('-')
	}
	fmt.Fprintf(&sb, " %d %d", s.halfmove, s.fullmove)
	return sb.String()
}

// SAN renders a legal move in standard algebraic notation, e.g. "Nf3" or
// "exd8=Q+".
func SAN(s *State, m engine.Move) (string, error) {
	position, err := parseFEN(ToFEN(s))
	if err != nil {
		return "", err
	}
	uci := New().FormatMove(s, m)
	move, err := notnil.UCINotation{}.Decode(position, uci)
	if err != nil {
		return "", fmt.Errorf("%w: %s", engine.ErrIllegalMove, uci)
	}
	return notnil.AlgebraicNotation{}.Encode(position, move), nil
}

// ParseSAN resolves standard algebraic notation against the legal moves of s.
func ParseSAN(s *State, san string) (engine.Move, error) {
	position, err := parseFEN(ToFEN(s))
	if err != nil {
		return engine.Move{}, err
	}
	move, err := notnil.AlgebraicNotation{}.Decode(position, strings.TrimSpace(san))
	if err != nil {
		return engine.Move{}, fmt.Errorf("%w: %q", engine.ErrIllegalMove, san)
	}
	r := New()
	return engine.ParseMove(r, s, notnil.UCINotation{}.Encode(position, move))
}
