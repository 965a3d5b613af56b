package decoder

import (
	"fmt"

	_ "github.com/go-sql-driver/mysql"
	sqlx "github.com/jmoiron/sqlx" //make alias name the package to sqlx
	"golang.org/x/exp/slices"
)

func ConnectToDatabase(user string, pass string, host string, dbname string) (*sqlx.DB, error) {
	port := "3306"
	dbURI := fmt.Sprintf("%s:%s@(%s:%s)/%s?parseTime=true", user, pass, host, port, dbname)
	db, err := sqlx.Connect("mysql", dbURI)
	return db, err
}

// ReadoutBoard is one row of the ReadoutBoards table.
type ReadoutBoard struct {
	BoardID int    `db:"BoardID"`
	Layer   int    `db:"Layer"`
	Mode    string `db:"Mode"`
}

// BoardLayout lists the boards of a run ordered by layer. Layer 0 is the
// reference of the correlation.
type BoardLayout struct {
	RunNumber int
	Boards    []ReadoutBoard
}

func LoadBoardLayout(db *sqlx.DB, runNumber int, verbosity int) (BoardLayout, error) {
	query := "SELECT BoardID, Layer, Mode FROM ReadoutBoards WHERE MinRun <= %d and MaxRun >= %d ORDER BY Layer"
	query = fmt.Sprintf(query, runNumber, runNumber)

	if verbosity > 0 {
		logger.Info("Reading board layout from database", "database")
	}
	if verbosity > 2 {
		message := fmt.Sprintf("Query: %s", query)
		logger.Info(message, "database")
	}

	layout := BoardLayout{RunNumber: runNumber}
	rows, err := db.Queryx(query)
	if err != nil {
		errMessage := fmt.Errorf("error querying database: %w", err)
		return layout, errMessage
	}
	defer rows.Close()

	for rows.Next() {
		board := ReadoutBoard{}
		err := rows.StructScan(&board)
		if err != nil {
			errMessage := fmt.Errorf("error scanning DB row: %w", err)
			return layout, errMessage
		}
		layout.Boards = append(layout.Boards, board)
	}
	if err := rows.Err(); err != nil {
		return layout, fmt.Errorf("error iterating DB rows: %w", err)
	}
	if len(layout.Boards) == 0 {
		return layout, fmt.Errorf("no readout boards for run %d", runNumber)
	}
	return layout, nil
}

// Mode returns the operating mode shared by the boards of the run. Boards
// disagreeing on the mode are an error since one classifier decodes them all.
func (l BoardLayout) Mode() (BoardMode, error) {
	if len(l.Boards) == 0 {
		return BoardMode{}, fmt.Errorf("empty board layout for run %d", l.RunNumber)
	}
	mode, err := ParseBoardMode(l.Boards[0].Mode)
	if err != nil {
		return BoardMode{}, err
	}
	for _, board := range l.Boards[1:] {
		if board.Mode != l.Boards[0].Mode {
			return BoardMode{}, fmt.Errorf("run %d mixes board modes %q and %q",
				l.RunNumber, l.Boards[0].Mode, board.Mode)
		}
	}
	return mode, nil
}

// OrderStreams reorders streams by the layer of their board. Stream.Index is
// the board id. Streams of boards missing from the layout go last, in their
// original order.
func (l BoardLayout) OrderStreams(streams []Stream) []Stream {
	layer := make(map[int]int, len(l.Boards))
	for _, board := range l.Boards {
		layer[board.BoardID] = board.Layer
	}
	ordered := slices.Clone(streams)
	slices.SortStableFunc(ordered, func(a, b Stream) int {
		la, okA := layer[a.Index]
		lb, okB := layer[b.Index]
		switch {
		case okA && okB:
			return la - lb
		case okA:
			return -1
		case okB:
			return 1
		}
		return 0
	})
	return ordered
}
