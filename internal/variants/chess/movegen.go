package chess

import (
	"github.com/justinabrahms/boardcore/internal/board"
	"github.com/justinabrahms/boardcore/internal/engine"
)

var (
	rookDirs   = board.Orthogonal
	bishopDirs = board.Diagonal
	queenDirs  = board.AllEight
	promotions = []board.PieceKind{board.Queen, board.Rook, board.Bishop, board.Knight}
)

func pawnDir(p engine.Player) int {
	if p == engine.PlayerA {
		return 1
	}
	return -1
}

func idx(p board.Pos) int {
	return p.Y*Size + p.X
}

func pos(i int) board.Pos {
	return board.Pos{X: i % Size, Y: i / Size}
}

func inside(p board.Pos) bool {
	return p.X >= 0 && p.X < Size && p.Y >= 0 && p.Y < Size
}

// attacked reports whether any piece of side by attacks square sq.
func attacked(b *board.Board, sq int, by engine.Player) bool {
	target := pos(sq)
	owner := by.Owner()

	// A pawn of `by` attacks sq from one rank behind it.
	back := -pawnDir(by)
	for _, dx := range []int{-1, 1} {
		from := board.Pos{X: target.X + dx, Y: target.Y + back}
		if inside(from) {
			c := b.At(idx(from))
			if c.OwnedBy(owner) && c.Piece.Kind == board.Pawn {
				return true
			}
		}
	}
	for _, d := range board.KnightJump {
		from := target.Add(d)
		if inside(from) {
			c := b.At(idx(from))
			if c.OwnedBy(owner) && c.Piece.Kind == board.Knight {
				return true
			}
		}
	}
	for _, d := range board.AllEight {
		from := target.Add(d)
		if inside(from) {
			c := b.At(idx(from))
			if c.OwnedBy(owner) && c.Piece.Kind == board.King {
				return true
			}
		}
	}
	for _, d := range rookDirs {
		ray := b.Ray(target, d)
		if len(ray) == 0 {
			continue
		}
		c := b.At(ray[len(ray)-1])
		if c.OwnedBy(owner) && (c.Piece.Kind == board.Rook || c.Piece.Kind == board.Queen) {
			return true
		}
	}
	for _, d := range bishopDirs {
		ray := b.Ray(target, d)
		if len(ray) == 0 {
			continue
		}
		c := b.At(ray[len(ray)-1])
		if c.OwnedBy(owner) && (c.Piece.Kind == board.Bishop || c.Piece.Kind == board.Queen) {
			return true
		}
	}
	return false
}

func kingSquare(b *board.Board, p engine.Player) int {
	for i := 0; i < b.Len(); i++ {
		c := b.At(i)
		if c.OwnedBy(p.Owner()) && c.Piece.Kind == board.King {
			return i
		}
	}
	return -1
}

// InCheck reports whether the side to move is in check.
func InCheck(s *State) bool {
	return inCheck(s.board, s.turn)
}

func inCheck(b *board.Board, p engine.Player) bool {
	k := kingSquare(b, p)
	return k >= 0 && attacked(b, k, p.Opponent())
}

// pseudoMoves generates moves that obey piece movement but may leave the
// mover's king in check.
func pseudoMoves(s *State) []engine.Move {
	b := s.board
	me := s.turn
	var moves []engine.Move
	for i := 0; i < b.Len(); i++ {
		c := b.At(i)
		if !c.OwnedBy(me.Owner()) {
			continue
		}
		switch c.Piece.Kind {
		case board.Pawn:
			moves = appendPawnMoves(moves, s, i)
		case board.Knight:
			moves = appendSteps(moves, b, me, i, board.KnightJump)
		case board.Bishop:
			moves = appendSlides(moves, b, me, i, bishopDirs)
		case board.Rook:
			moves = appendSlides(moves, b, me, i, rookDirs)
		case board.Queen:
			moves = appendSlides(moves, b, me, i, queenDirs)
		case board.King:
			moves = appendSteps(moves, b, me, i, board.AllEight)
			moves = appendCastles(moves, s, i)
		}
	}
	return moves
}

func quietOrCapture(b *board.Board, me engine.Player, from, to int) (engine.Move, bool) {
	target := b.At(to)
	if target.OwnedBy(me.Owner()) {
		return engine.Move{}, false
	}
	m := engine.Move{From: from, To: to}
	if target.Occupied {
		m.Captured = []int{to}
	}
	return m, true
}

func appendSteps(moves []engine.Move, b *board.Board, me engine.Player, from int, pattern board.Pattern) []engine.Move {
	for _, to := range b.NeighborIndices(from, pattern) {
		if m, ok := quietOrCapture(b, me, from, to); ok {
			moves = append(moves, m)
		}
	}
	return moves
}

func appendSlides(moves []engine.Move, b *board.Board, me engine.Player, from int, dirs board.Pattern) []engine.Move {
	origin := pos(from)
	for _, d := range dirs {
		for _, to := range b.Ray(origin, d) {
			if m, ok := quietOrCapture(b, me, from, to); ok {
				moves = append(moves, m)
			}
		}
	}
	return moves
}

func appendPawnMoves(moves []engine.Move, s *State, from int) []engine.Move {
	b := s.board
	me := s.turn
	dir := pawnDir(me)
	origin := pos(from)
	lastRank := 7
	startRank := 1
	if me == engine.PlayerB {
		lastRank, startRank = 0, 6
	}

	add := func(m engine.Move) {
		if pos(m.To).Y == lastRank {
			for _, kind := range promotions {
				promo := m
				promo.Promotion = kind
				moves = append(moves, promo)
			}
			return
		}
		moves = append(moves, m)
	}

	one := board.Pos{X: origin.X, Y: origin.Y + dir}
	if inside(one) && !b.At(idx(one)).Occupied {
		add(engine.Move{From: from, To: idx(one)})
		two := board.Pos{X: origin.X, Y: origin.Y + 2*dir}
		if origin.Y == startRank && !b.At(idx(two)).Occupied {
			moves = append(moves, engine.Move{From: from, To: idx(two), Special: engine.SpecialDoublePush})
		}
	}
	for _, dx := range []int{-1, 1} {
		diag := board.Pos{X: origin.X + dx, Y: origin.Y + dir}
		if !inside(diag) {
			continue
		}
		to := idx(diag)
		target := b.At(to)
		switch {
		case target.OwnedBy(me.Opponent().Owner()):
			add(engine.Move{From: from, To: to, Captured: []int{to}})
		case to == s.epTarget && !target.Occupied:
			victim := idx(board.Pos{X: diag.X, Y: origin.Y})
			moves = append(moves, engine.Move{From: from, To: to, Special: engine.SpecialEnPassant, Captured: []int{victim}})
		}
	}
	return moves
}

func appendCastles(moves []engine.Move, s *State, from int) []engine.Move {
	b := s.board
	me := s.turn
	kingSide, queenSide, home := WhiteKingSide, WhiteQueenSide, sqE1
	if me == engine.PlayerB {
		kingSide, queenSide, home = BlackKingSide, BlackQueenSide, sqE8
	}
	if from != home || s.castling&(kingSide|queenSide) == 0 {
		return moves
	}
	them := me.Opponent()
	if attacked(b, home, them) {
		return moves
	}
	rookAt := func(i int) bool {
		c := b.At(i)
		return c.OwnedBy(me.Owner()) && c.Piece.Kind == board.Rook
	}
	if s.castling&kingSide != 0 && rookAt(home+3) &&
		!b.At(home+1).Occupied && !b.At(home+2).Occupied &&
		!attacked(b, home+1, them) && !attacked(b, home+2, them) {
		moves = append(moves, engine.Move{From: home, To: home + 2, Special: engine.SpecialCastleKing})
	}
	if s.castling&queenSide != 0 && rookAt(home-4) &&
		!b.At(home-1).Occupied && !b.At(home-2).Occupied && !b.At(home-3).Occupied &&
		!attacked(b, home-1, them) && !attacked(b, home-2, them) {
		moves = append(moves, engine.Move{From: home, To: home - 2, Special: engine.SpecialCastleQueen})
	}
	return moves
}

// legalMoves filters pseudo-legal moves by playing each one and rejecting
// those that leave the mover's king attacked.
func legalMoves(s *State) []engine.Move {
	pseudo := pseudoMoves(s)
	legal := pseudo[:0:0]
	for _, m := range pseudo {
		next := play(s, m)
		if !inCheck(next.board, s.turn) {
			legal = append(legal, m)
		}
	}
	return legal
}

// play applies a generated move without validation.
func play(s *State, m engine.Move) *State {
	me := s.turn
	moving := s.board.At(m.From)
	next := &State{
		turn:       me.Opponent(),
		castling:   s.castling,
		epTarget:   -1,
		halfmove:   s.halfmove + 1,
		fullmove:   s.fullmove,
		moveNumber: s.moveNumber + 1,
	}
	if me == engine.PlayerB {
		next.fullmove++
	}
	if moving.Piece.Kind == board.Pawn || len(m.Captured) > 0 {
		next.halfmove = 0
	}
	if m.Special == engine.SpecialDoublePush {
		next.epTarget = (m.From + m.To) / 2
	}

	next.board = s.board.Edit(func(e *board.Editor) {
		for _, c := range m.Captured {
			e.Clear(c)
		}
		e.Clear(m.From)
		placed := moving
		if m.Promotion != board.NoKind {
			placed = board.Occupied(board.Piece{Owner: me.Owner(), Kind: m.Promotion})
		}
		e.Put(m.To, placed)
		switch m.Special {
		case engine.SpecialCastleKing:
			e.Put(m.From+1, e.Get(m.From+3))
			e.Clear(m.From + 3)
		case engine.SpecialCastleQueen:
			e.Put(m.From-1, e.Get(m.From-4))
			e.Clear(m.From - 4)
		}
	})

	next.castling &^= rightsTouching(m.From) | rightsTouching(m.To)
	if moving.Piece.Kind == board.King {
		if me == engine.PlayerA {
			next.castling &^= WhiteKingSide | WhiteQueenSide
		} else {
			next.castling &^= BlackKingSide | BlackQueenSide
		}
	}
	return next
}

// rightsTouching returns the castling rights lost when a piece moves from or
// is captured on sq.
func rightsTouching(sq int) Castling {
	switch sq {
	case sqA1:
		return WhiteQueenSide
	case sqH1:
		return WhiteKingSide
	case sqA8:
		return BlackQueenSide
	case sqH8:
		return BlackKingSide
	case sqE1:
		return WhiteKingSide | WhiteQueenSide
	case sqE8:
		return BlackKingSide | BlackQueenSide
	}
	return 0
}
