package chess

import (
	"github.com/justinabrahms/boardcore/internal/board"
	"github.com/justinabrahms/boardcore/internal/engine"
)

// Castling is a bit set of remaining castling rights.
type Castling uint8

const (
	WhiteKingSide Castling = 1 << iota
	WhiteQueenSide
	BlackKingSide
	BlackQueenSide

	AllCastling = WhiteKingSide | WhiteQueenSide | BlackKingSide | BlackQueenSide
)

const Size = 8

// Square indices used by castling.
const (
	sqA1 = 0
	sqC1 = 2
	sqD1 = 3
	sqE1 = 4
	sqF1 = 5
	sqG1 = 6
	sqH1 = 7
	sqA8 = 56
	sqC8 = 58
	sqD8 = 59
	sqE8 = 60
	sqF8 = 61
	sqG8 = 62
	sqH8 = 63
)

// State is an immutable chess position.
type State struct {
	board      *board.Board
	turn       engine.Player
	castling   Castling
	epTarget   int
	halfmove   int
	fullmove   int
	moveNumber int
}

func (s *State) Kind() engine.Kind {
	return engine.Chess
}

func (s *State) Board() *board.Board {
	return s.board
}

func (s *State) Turn() engine.Player {
	return s.turn
}

func (s *State) MoveNumber() int {
	return s.moveNumber
}

func (s *State) Castling() Castling {
	return s.castling
}

// EnPassantTarget is the square a pawn skipped on its double push, or -1.
func (s *State) EnPassantTarget() int {
	return s.epTarget
}

func (s *State) HalfmoveClock() int {
	return s.halfmove
}

// PliesToDraw is how many plies remain before the fifty-move rule applies.
func (s *State) PliesToDraw() int {
	return FiftyMovePlies - s.halfmove
}

func (s *State) Hash() uint64 {
	z := board.Zobrist(s.board.Len())
	h := s.board.Hash()
	if s.turn == engine.PlayerB {
		h ^= z.Side()
	}
	h ^= z.Extra(int(s.castling))
	if s.epTarget >= 0 {
		h ^= z.Extra(16 + s.epTarget%Size)
	}
	return h
}

// MaterialCount is the material held by each side in pawn units.
type MaterialCount struct {
	White int `json:"white"`
	Black int `json:"black"`
}

// StandardPieceValues maps piece kinds to their conventional pawn values.
var StandardPieceValues = map[board.PieceKind]int{
	board.Pawn:   1,
	board.Knight: 3,
	board.Bishop: 3,
	board.Rook:   5,
	board.Queen:  9,
	board.King:   0,
}

// Material counts both sides' material.
func Material(s *State) MaterialCount {
	var count MaterialCount
	for i := 0; i < s.board.Len(); i++ {
		c := s.board.At(i)
		if !c.Occupied {
			continue
		}
		if c.Piece.Owner == board.OwnerA {
			count.White += StandardPieceValues[c.Piece.Kind]
		} else {
			count.Black += StandardPieceValues[c.Piece.Kind]
		}
	}
	return count
}

// MaterialBalance is white's material minus black's.
func MaterialBalance(s *State) int {
	count := Material(s)
	return count.White - count.Black
}
